package services

import (
	"beautyhub-backend/apperrors"
	"beautyhub-backend/models"
	"beautyhub-backend/repository"
	"beautyhub-backend/utils"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	bookedHistoryLimit     = 10
	applicationNumberTries = 5
)

type BookingStore interface {
	TxRunner
	DirectoryStore
	ScheduleStore
	AppointmentStore
	CardStore
}

// StatusNotifier is told about every appointment status change.
type StatusNotifier interface {
	AppointmentStatusChanged(ctx context.Context, a *models.Appointment)
}

type BookingService struct {
	store    BookingStore
	notifier StatusNotifier
	// step is the slot grid in minutes; bookable times match derived slots.
	step int
	now  func() time.Time
}

func NewBookingService(store BookingStore, notifier StatusNotifier, stepMinutes int) *BookingService {
	if stepMinutes <= 0 {
		stepMinutes = DefaultSlotMinutes
	}
	return &BookingService{store: store, notifier: notifier, step: stepMinutes, now: time.Now}
}

type CreateAppointmentInput struct {
	SalonID    uuid.UUID  `json:"salon_id" binding:"required"`
	ScheduleID *uuid.UUID `json:"schedule_id"`
	EmployeeID uuid.UUID  `json:"employee_id" binding:"required"`
	Date       string     `json:"date"`
	Time       string     `json:"time" binding:"required"`
	OnlyCard   bool       `json:"only_card"`
	CardID     *uuid.UUID `json:"card_id"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone"`
}

type BookedAppointment struct {
	ID                uuid.UUID                `json:"id"`
	ApplicationNumber string                   `json:"application_number"`
	SalonID           uuid.UUID                `json:"salon_id"`
	EmployeeID        uuid.UUID                `json:"employee_id"`
	ServiceName       string                   `json:"service_name"`
	ServicePrice      float64                  `json:"service_price"`
	ApplicationDate   string                   `json:"application_date"`
	ApplicationTime   string                   `json:"application_time"`
	Status            models.AppointmentStatus `json:"status"`
	CreatedAt         time.Time                `json:"created_at"`
}

type CreateAppointmentResult struct {
	AppointmentID      uuid.UUID           `json:"appointment_id"`
	ApplicationNumber  string              `json:"application_number"`
	BookedAppointments []BookedAppointment `json:"bookedAppointments"`
}

func toBooked(a models.Appointment) BookedAppointment {
	return BookedAppointment{
		ID:                a.ID,
		ApplicationNumber: a.ApplicationNumber,
		SalonID:           a.SalonID,
		EmployeeID:        a.EmployeeID,
		ServiceName:       a.ServiceName,
		ServicePrice:      a.ServicePrice,
		ApplicationDate:   a.Date,
		ApplicationTime:   a.Time,
		Status:            a.Status,
		CreatedAt:         a.CreatedAt,
	}
}

// NewApplicationNumber renders "APP-YYYYMMDD-XXXXXXXX" with eight random
// uppercase hex digits.
func NewApplicationNumber(now time.Time) string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		copy(b, uuid.New().NodeID())
	}
	return "APP-" + now.In(utils.LocalZone).Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(b))
}

// CreateAppointment validates the request and books the slot. The partial
// unique index on (employee_id, date, time) decides races.
func (s *BookingService) CreateAppointment(ctx context.Context, actor utils.Principal, in CreateAppointmentInput) (*CreateAppointmentResult, error) {
	salon, err := s.store.GetSalon(ctx, in.SalonID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !salon.IsActive) {
		return nil, apperrors.NotFound("Salon not found").WithCode(apperrors.CodeSalonNotFound)
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to load salon").Wrap(err)
	}

	date := in.Date
	var schedule *models.Schedule
	if in.ScheduleID != nil {
		schedule, err = s.store.GetSchedule(ctx, *in.ScheduleID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && (!schedule.IsActive || schedule.SalonID != in.SalonID)) {
			return nil, apperrors.NotFound("Schedule not found").WithCode(apperrors.CodeScheduleNotFound)
		}
		if err != nil {
			return nil, apperrors.Internal("Failed to load schedule").Wrap(err)
		}
		if date == "" {
			date = schedule.Date
		}
		ok, err := OnGrid(schedule, in.Time, s.step)
		if err != nil {
			return nil, apperrors.Validation("time must be HH:MM")
		}
		if !ok {
			return nil, apperrors.Validation("Time is not a slot of this schedule").WithCode(apperrors.CodeTimeOutOfRange)
		}
	}
	if _, err := utils.ParseClock(in.Time); err != nil {
		return nil, apperrors.Validation("time must be HH:MM")
	}
	if _, err := utils.ParseDate(date); err != nil {
		return nil, apperrors.Validation("date must be YYYY-MM-DD")
	}

	emp, err := s.store.GetEmployee(ctx, in.EmployeeID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && (!emp.IsActive || !emp.BelongsTo(in.SalonID))) {
		return nil, apperrors.NotFound("Employee not found").WithCode(apperrors.CodeEmployeeNotFound)
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to load employee").Wrap(err)
	}
	if schedule != nil && !schedule.Includes(emp.ID) {
		return nil, apperrors.NotFound("Employee does not serve this schedule").WithCode(apperrors.CodeEmployeeNotFound)
	}

	if in.OnlyCard {
		if in.CardID == nil {
			return nil, apperrors.Validation("card_id is required for card-only booking").WithCode(apperrors.CodeCardInvalid)
		}
		card, err := s.store.GetCard(ctx, *in.CardID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && (!card.Usable() || card.UserID != actor.ID)) {
			return nil, apperrors.Validation("Card is not active, verified or owned by you").WithCode(apperrors.CodeCardInvalid)
		}
		if err != nil {
			return nil, apperrors.Internal("Failed to load card").Wrap(err)
		}
	}

	taken, err := s.store.ActiveAppointmentExists(ctx, emp.ID, date, in.Time)
	if err != nil {
		return nil, apperrors.Internal("Failed to check slot").Wrap(err)
	}
	if taken {
		return nil, apperrors.SlotTaken()
	}

	user, err := s.store.GetUser(ctx, actor.ID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !user.IsActive) {
		return nil, apperrors.NotFound("User not found").WithCode(apperrors.CodeUserNotFound)
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to load user").Wrap(err)
	}
	name := in.Name
	if name == "" {
		name = user.Name
	}

	appt := &models.Appointment{
		UserID:     &user.ID,
		Phone:      user.Phone,
		Name:       name,
		SalonID:    in.SalonID,
		EmployeeID: emp.ID,
		ScheduleID: in.ScheduleID,
		Date:       date,
		Time:       in.Time,
		OnlyCard:   in.OnlyCard,
		CardID:     in.CardID,
		Status:     models.AppointmentPending,
	}
	if schedule != nil {
		appt.ServiceName = schedule.Name
		appt.ServicePrice = schedule.Price
		if schedule.EndTime != nil {
			appt.EndTime = schedule.EndTime
		}
	}

	if err := s.insertAppointment(ctx, appt); err != nil {
		return nil, err
	}
	log.Info().
		Str("appointment_id", appt.ID.String()).
		Str("employee_id", appt.EmployeeID.String()).
		Str("date", appt.Date).
		Str("time", appt.Time).
		Msg("appointment booked")

	recent, err := s.store.ListAppointmentsByPhone(ctx, appt.Phone, bookedHistoryLimit)
	if err != nil {
		log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to load booked appointments")
	}
	booked := make([]BookedAppointment, 0, len(recent))
	for _, a := range recent {
		booked = append(booked, toBooked(a))
	}

	return &CreateAppointmentResult{
		AppointmentID:      appt.ID,
		ApplicationNumber:  appt.ApplicationNumber,
		BookedAppointments: booked,
	}, nil
}

// insertAppointment retries only on application number collisions; a slot
// conflict is final.
func (s *BookingService) insertAppointment(ctx context.Context, appt *models.Appointment) error {
	for i := 0; i < applicationNumberTries; i++ {
		appt.ID = uuid.Nil
		appt.ApplicationNumber = NewApplicationNumber(s.now())
		err := s.store.RunInTx(ctx, func(ctx context.Context) error {
			return s.store.CreateAppointment(ctx, appt)
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrSlotConflict):
			return apperrors.SlotTaken()
		case errors.Is(err, repository.ErrApplicationNumberConflict):
			continue
		default:
			return apperrors.Internal("Failed to create appointment").Wrap(err)
		}
	}
	return apperrors.Internal("Failed to generate a unique application number")
}

func (s *BookingService) MyAppointments(ctx context.Context, actor utils.Principal) ([]BookedAppointment, error) {
	list, err := s.store.ListAppointmentsByUser(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load appointments").Wrap(err)
	}
	out := make([]BookedAppointment, 0, len(list))
	for _, a := range list {
		out = append(out, toBooked(a))
	}
	return out, nil
}

// List returns the appointments visible to staff. Employees see their own,
// admins those of their salon.
func (s *BookingService) List(ctx context.Context, actor utils.Principal, f repository.AppointmentFilter) ([]models.Appointment, error) {
	switch actor.Role {
	case utils.RoleEmployee:
		f.EmployeeID = &actor.ID
	case utils.RoleAdmin:
		if actor.SalonID == nil {
			return nil, apperrors.PermissionDenied("Admin has no salon")
		}
		f.SalonID = actor.SalonID
	case utils.RoleSuperadmin:
	default:
		return nil, apperrors.PermissionDenied("Role not allowed")
	}
	list, err := s.store.ListAppointments(ctx, f)
	if err != nil {
		return nil, apperrors.Internal("Failed to load appointments").Wrap(err)
	}
	return list, nil
}

func (s *BookingService) load(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Appointment not found")
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to load appointment").Wrap(err)
	}
	return appt, nil
}

func (s *BookingService) transition(ctx context.Context, appt *models.Appointment, target models.AppointmentStatus) error {
	next, err := nextAppointmentStatus(ctx, appt.Status, target)
	if errors.Is(err, ErrInvalidTransition) {
		return apperrors.Conflict("Cannot move appointment from " + string(appt.Status) + " to " + string(target))
	}
	if err != nil {
		return apperrors.Internal("Failed to change status").Wrap(err)
	}
	appt.Status = next
	applyAppointmentFlags(appt)
	if err := s.store.UpdateAppointmentStatus(ctx, appt); err != nil {
		return apperrors.Internal("Failed to update appointment").Wrap(err)
	}
	log.Info().Str("appointment_id", appt.ID.String()).Str("status", string(next)).Msg("appointment status changed")
	if s.notifier != nil {
		s.notifier.AppointmentStatusChanged(ctx, appt)
	}
	return nil
}

// ChangeStatus is the staff-side status transition.
func (s *BookingService) ChangeStatus(ctx context.Context, actor utils.Principal, id uuid.UUID, target models.AppointmentStatus) (*models.Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case utils.RoleEmployee:
		if appt.EmployeeID != actor.ID {
			return nil, apperrors.PermissionDenied("Appointment belongs to another employee")
		}
	case utils.RoleAdmin, utils.RoleSuperadmin:
		if !actor.ManagesSalon(appt.SalonID) {
			return nil, apperrors.PermissionDenied("Appointment belongs to another salon")
		}
	default:
		return nil, apperrors.PermissionDenied("Role not allowed")
	}
	if err := s.transition(ctx, appt, target); err != nil {
		return nil, err
	}
	return appt, nil
}

// CancelByUser lets the booking user cancel until the appointment is done
// or already cancelled.
func (s *BookingService) CancelByUser(ctx context.Context, actor utils.Principal, id uuid.UUID) (*models.Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.UserID == nil || *appt.UserID != actor.ID {
		return nil, apperrors.PermissionDenied("Appointment belongs to another user")
	}
	if appt.Status.Terminal() {
		return nil, apperrors.Conflict("Appointment can no longer be changed")
	}
	if err := s.transition(ctx, appt, models.AppointmentCancelled); err != nil {
		return nil, err
	}
	return appt, nil
}
