package services

import (
	"beautyhub-backend/apperrors"
	"beautyhub-backend/models"
	"beautyhub-backend/repository"
	"beautyhub-backend/utils"
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var applicationNumberPattern = regexp.MustCompile(`^APP-\d{8}-[0-9A-F]{8}$`)

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []models.AppointmentStatus
}

func (n *recordingNotifier) AppointmentStatusChanged(ctx context.Context, a *models.Appointment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, a.Status)
}

type bookingFixture struct {
	store    *fakeStore
	svc      *BookingService
	notifier *recordingNotifier
	salon    *models.Salon
	employee *models.Employee
	user     *models.User
	schedule *models.Schedule
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	store := newFakeStore()
	salon := store.addSalon()
	emp := store.addEmployee(salon.ID)
	user := store.addUser("+998901234567")
	sch := &models.Schedule{
		SalonID:      salon.ID,
		Name:         "Haircut",
		Date:         "2025-11-20",
		StartTime:    strp("10:00"),
		EndTime:      strp("12:00"),
		Price:        100000,
		EmployeeList: pq.StringArray{emp.ID.String()},
		IsActive:     true,
	}
	require.NoError(t, store.CreateSchedule(context.Background(), sch))

	notifier := &recordingNotifier{}
	return &bookingFixture{
		store:    store,
		svc:      NewBookingService(store, notifier, 30),
		notifier: notifier,
		salon:    salon,
		employee: emp,
		user:     user,
		schedule: sch,
	}
}

func (f *bookingFixture) userPrincipal() utils.Principal {
	return utils.Principal{ID: f.user.ID, Role: utils.RoleUser}
}

func (f *bookingFixture) input(clock string) CreateAppointmentInput {
	return CreateAppointmentInput{
		SalonID:    f.salon.ID,
		ScheduleID: &f.schedule.ID,
		EmployeeID: f.employee.ID,
		Time:       clock,
	}
}

func TestCreateAppointmentHappyPath(t *testing.T) {
	f := newBookingFixture(t)

	res, err := f.svc.CreateAppointment(context.Background(), f.userPrincipal(), f.input("10:30"))
	require.NoError(t, err)

	assert.Regexp(t, applicationNumberPattern, res.ApplicationNumber)
	require.NotEmpty(t, res.BookedAppointments)
	booked := res.BookedAppointments[0]
	assert.Equal(t, "10:30", booked.ApplicationTime)
	assert.Equal(t, "2025-11-20", booked.ApplicationDate)
	assert.Equal(t, "Haircut", booked.ServiceName)
	assert.Equal(t, models.AppointmentPending, booked.Status)
}

func TestCreateAppointmentSlotTaken(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateAppointment(ctx, f.userPrincipal(), f.input("10:30"))
	require.NoError(t, err)

	_, err = f.svc.CreateAppointment(ctx, f.userPrincipal(), f.input("10:30"))
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindSlotTaken))
	assert.Len(t, f.store.appointments, 1)
}

func TestCreateAppointmentRejectsOverlapOffGrid(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateAppointment(ctx, f.userPrincipal(), f.input("10:00"))
	require.NoError(t, err)

	_, err = f.svc.CreateAppointment(ctx, f.userPrincipal(), f.input("10:07"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTimeOutOfRange))
	assert.Len(t, f.store.appointments, 1)
}

func TestCreateAppointmentConcurrentRace(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateAppointment(ctx, f.userPrincipal(), f.input("11:00"))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, apperrors.IsKind(err, apperrors.KindSlotTaken), "unexpected error %v", err)
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, f.store.appointments, 1)
}

func TestCreateAppointmentValidation(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	other := f.store.addEmployee(f.salon.ID)

	tests := []struct {
		name   string
		mutate func(*CreateAppointmentInput)
		code   string
		kind   apperrors.Kind
	}{
		{"unknown salon", func(in *CreateAppointmentInput) { in.SalonID = uuid.New() }, apperrors.CodeSalonNotFound, apperrors.KindNotFound},
		{"unknown schedule", func(in *CreateAppointmentInput) { id := uuid.New(); in.ScheduleID = &id }, apperrors.CodeScheduleNotFound, apperrors.KindNotFound},
		{"before window", func(in *CreateAppointmentInput) { in.Time = "09:30" }, apperrors.CodeTimeOutOfRange, apperrors.KindValidation},
		{"after window", func(in *CreateAppointmentInput) { in.Time = "12:30" }, apperrors.CodeTimeOutOfRange, apperrors.KindValidation},
		{"between slots", func(in *CreateAppointmentInput) { in.Time = "10:07" }, apperrors.CodeTimeOutOfRange, apperrors.KindValidation},
		{"employee not on schedule", func(in *CreateAppointmentInput) { in.EmployeeID = other.ID }, apperrors.CodeEmployeeNotFound, apperrors.KindNotFound},
		{"card required", func(in *CreateAppointmentInput) { in.OnlyCard = true }, apperrors.CodeCardInvalid, apperrors.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.input("10:00")
			tt.mutate(&in)
			_, err := f.svc.CreateAppointment(ctx, f.userPrincipal(), in)
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, tt.kind), "got %v", err)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}
	assert.Empty(t, f.store.appointments)
}

func TestCreateAppointmentBoundaryTimes(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateAppointment(ctx, f.userPrincipal(), f.input("10:00"))
	require.NoError(t, err)
	_, err = f.svc.CreateAppointment(ctx, f.userPrincipal(), f.input("12:00"))
	require.NoError(t, err)
}

func TestChangeStatusTransitions(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateAppointment(ctx, f.userPrincipal(), f.input("10:30"))
	require.NoError(t, err)

	admin := utils.Principal{ID: uuid.New(), Role: utils.RoleAdmin, SalonID: &f.salon.ID}
	appt, err := f.svc.ChangeStatus(ctx, admin, res.AppointmentID, models.AppointmentAccepted)
	require.NoError(t, err)
	assert.True(t, appt.IsConfirmed)

	appt, err = f.svc.ChangeStatus(ctx, admin, res.AppointmentID, models.AppointmentDone)
	require.NoError(t, err)
	assert.True(t, appt.IsCompleted)

	_, err = f.svc.ChangeStatus(ctx, admin, res.AppointmentID, models.AppointmentAccepted)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	assert.Equal(t, []models.AppointmentStatus{models.AppointmentAccepted, models.AppointmentDone}, f.notifier.statuses)
}

func TestChangeStatusScope(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateAppointment(ctx, f.userPrincipal(), f.input("10:30"))
	require.NoError(t, err)

	otherSalon := uuid.New()
	admin := utils.Principal{ID: uuid.New(), Role: utils.RoleAdmin, SalonID: &otherSalon}
	_, err = f.svc.ChangeStatus(ctx, admin, res.AppointmentID, models.AppointmentAccepted)
	assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))

	stranger := utils.Principal{ID: uuid.New(), Role: utils.RoleEmployee}
	_, err = f.svc.ChangeStatus(ctx, stranger, res.AppointmentID, models.AppointmentAccepted)
	assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))

	self := utils.Principal{ID: f.employee.ID, Role: utils.RoleEmployee}
	_, err = f.svc.ChangeStatus(ctx, self, res.AppointmentID, models.AppointmentIgnored)
	require.NoError(t, err)
}

func TestCancelByUserFreesSlot(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateAppointment(ctx, f.userPrincipal(), f.input("10:30"))
	require.NoError(t, err)

	appt, err := f.svc.CancelByUser(ctx, f.userPrincipal(), res.AppointmentID)
	require.NoError(t, err)
	assert.True(t, appt.IsCancelled)

	_, err = f.svc.CancelByUser(ctx, f.userPrincipal(), res.AppointmentID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	_, err = f.svc.CreateAppointment(ctx, f.userPrincipal(), f.input("10:30"))
	require.NoError(t, err)
}

func TestCancelByUserOtherUser(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateAppointment(ctx, f.userPrincipal(), f.input("10:30"))
	require.NoError(t, err)

	_, err = f.svc.CancelByUser(ctx, utils.Principal{ID: uuid.New(), Role: utils.RoleUser}, res.AppointmentID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))
}

func TestListScopesByRole(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateAppointment(ctx, f.userPrincipal(), f.input("10:30"))
	require.NoError(t, err)

	admin := utils.Principal{ID: uuid.New(), Role: utils.RoleAdmin, SalonID: &f.salon.ID}
	list, err := f.svc.List(ctx, admin, repository.AppointmentFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	other := utils.Principal{ID: uuid.New(), Role: utils.RoleEmployee}
	list, err = f.svc.List(ctx, other, repository.AppointmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.List(ctx, f.userPrincipal(), repository.AppointmentFilter{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))
}

func TestNewApplicationNumber(t *testing.T) {
	at := time.Date(2025, 11, 20, 21, 0, 0, 0, time.UTC)
	n := NewApplicationNumber(at)
	assert.Regexp(t, applicationNumberPattern, n)
	// 21:00 UTC is already the next day at +05:00.
	assert.Equal(t, "APP-20251121-", n[:13])
}
