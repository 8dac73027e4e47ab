package services

import (
	"beautyhub-backend/apperrors"
	"beautyhub-backend/models"
	"beautyhub-backend/repository"
	"beautyhub-backend/utils"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const weekDays = 7

type SlotStore interface {
	DirectoryStore
	ScheduleStore
	AppointmentStore
	BusySlotStore
}

// SlotService serves the read-only availability views.
type SlotService struct {
	store       SlotStore
	stepMinutes int
	now         func() time.Time
}

func NewSlotService(store SlotStore, stepMinutes int) *SlotService {
	if stepMinutes <= 0 {
		stepMinutes = DefaultSlotMinutes
	}
	return &SlotService{store: store, stepMinutes: stepMinutes, now: time.Now}
}

type ScheduleWithSlots struct {
	models.Schedule
	TimeSlots []Slot `json:"time_slots"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

type SchedulePage struct {
	Items      []ScheduleWithSlots `json:"items"`
	Pagination Pagination          `json:"pagination"`
}

type DayFilter struct {
	Date      string           `json:"date"`
	Weekday   string           `json:"weekday"`
	Available bool             `json:"available"`
	Services  []ServiceSummary `json:"services"`
}

type ServiceSummary struct {
	ScheduleID uuid.UUID `json:"schedule_id"`
	Name       string    `json:"name"`
	Title      string    `json:"title,omitempty"`
	Price      float64   `json:"price"`
	StartTime  *string   `json:"start_time,omitempty"`
	EndTime    *string   `json:"end_time,omitempty"`
	TimeSlots  []Slot    `json:"time_slots,omitempty"`
}

type EmployeeWeek struct {
	EmployeeID uuid.UUID   `json:"employee_id"`
	Days       []DayFilter `json:"days"`
	Pagination Pagination  `json:"pagination"`
}

func (s *SlotService) activeSalon(ctx context.Context, salonID uuid.UUID) (*models.Salon, error) {
	salon, err := s.store.GetSalon(ctx, salonID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !salon.IsActive) {
		return nil, apperrors.NotFound("Salon not found").WithCode(apperrors.CodeSalonNotFound)
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to load salon").Wrap(err)
	}
	return salon, nil
}

func (s *SlotService) startDate(raw string) (time.Time, error) {
	if raw == "" {
		return utils.BeginningOfDay(s.now().In(utils.LocalZone)), nil
	}
	d, err := utils.ParseDate(raw)
	if err != nil {
		return time.Time{}, apperrors.Validation("start_date must be YYYY-MM-DD")
	}
	return d, nil
}

// deriveForDate loads the appointments and busy intervals of the given date
// and derives slots for the schedules.
func (s *SlotService) deriveForDate(ctx context.Context, date string, schedules []models.Schedule, staff []models.Employee, employeeID *uuid.UUID, step int) ([]Slot, error) {
	ids := make([]uuid.UUID, 0, len(staff)+1)
	if employeeID != nil {
		ids = append(ids, *employeeID)
	} else {
		for _, e := range staff {
			ids = append(ids, e.ID)
		}
	}
	appts, err := s.store.ListActiveAppointments(ctx, ids, date)
	if err != nil {
		return nil, apperrors.Internal("Failed to load appointments").Wrap(err)
	}
	busy, err := s.store.ListBusySlots(ctx, ids, date)
	if err != nil {
		return nil, apperrors.Internal("Failed to load busy slots").Wrap(err)
	}
	return DeriveSlots(SlotInput{
		Schedules:    schedules,
		EmployeeID:   employeeID,
		Staff:        staff,
		Appointments: appts,
		BusySlots:    busy,
		StepMinutes:  step,
	}), nil
}

// Slots returns the bookable ticks of a salon on one date.
func (s *SlotService) Slots(ctx context.Context, salonID uuid.UUID, date string, employeeID *uuid.UUID, step int) ([]Slot, error) {
	if _, err := utils.ParseDate(date); err != nil {
		return nil, apperrors.Validation("date must be YYYY-MM-DD")
	}
	if step <= 0 {
		step = s.stepMinutes
	}
	if _, err := s.activeSalon(ctx, salonID); err != nil {
		return nil, err
	}
	staff, err := s.store.ListSalonEmployees(ctx, salonID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load employees").Wrap(err)
	}
	schedules, _, err := s.store.ListSchedules(ctx, repository.ScheduleFilter{
		SalonID:    &salonID,
		EmployeeID: employeeID,
		Date:       date,
		ActiveOnly: true,
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to load schedules").Wrap(err)
	}
	return s.deriveForDate(ctx, date, schedules, staff, employeeID, step)
}

// SalonSchedules pages through a salon's active schedules, each with its
// derived time slots.
func (s *SlotService) SalonSchedules(ctx context.Context, salonID uuid.UUID, date string, page, limit int) (*SchedulePage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	if date != "" {
		if _, err := utils.ParseDate(date); err != nil {
			return nil, apperrors.Validation("date must be YYYY-MM-DD")
		}
	}
	if _, err := s.activeSalon(ctx, salonID); err != nil {
		return nil, err
	}
	staff, err := s.store.ListSalonEmployees(ctx, salonID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load employees").Wrap(err)
	}

	f := repository.ScheduleFilter{
		SalonID:    &salonID,
		Date:       date,
		ActiveOnly: true,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}
	if date == "" {
		f.DateFrom = s.now().In(utils.LocalZone).Format(utils.DateLayout)
	}
	schedules, total, err := s.store.ListSchedules(ctx, f)
	if err != nil {
		return nil, apperrors.Internal("Failed to load schedules").Wrap(err)
	}

	items := make([]ScheduleWithSlots, 0, len(schedules))
	for _, sch := range schedules {
		slots, err := s.deriveForDate(ctx, sch.Date, []models.Schedule{sch}, staff, nil, s.stepMinutes)
		if err != nil {
			return nil, err
		}
		items = append(items, ScheduleWithSlots{Schedule: sch, TimeSlots: slots})
	}
	return &SchedulePage{
		Items:      items,
		Pagination: Pagination{Page: page, Limit: limit, Total: total},
	}, nil
}

// Filters returns per-day service facets of a salon for seven days.
func (s *SlotService) Filters(ctx context.Context, salonID uuid.UUID, startDate string) ([]DayFilter, error) {
	start, err := s.startDate(startDate)
	if err != nil {
		return nil, err
	}
	if _, err := s.activeSalon(ctx, salonID); err != nil {
		return nil, err
	}
	end := start.AddDate(0, 0, weekDays-1)
	schedules, _, err := s.store.ListSchedules(ctx, repository.ScheduleFilter{
		SalonID:    &salonID,
		DateFrom:   start.Format(utils.DateLayout),
		DateTo:     end.Format(utils.DateLayout),
		ActiveOnly: true,
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to load schedules").Wrap(err)
	}
	return groupByDay(start, weekDays, schedules), nil
}

// EmployeeWeek pages over days starting at startDate. A day is available
// when at least one schedule references the employee.
func (s *SlotService) EmployeeWeek(ctx context.Context, employeeID uuid.UUID, startDate string, page, limit int) (*EmployeeWeek, error) {
	if limit < 1 || limit > weekDays {
		limit = weekDays
	}
	if page < 1 {
		page = 1
	}
	start, err := s.startDate(startDate)
	if err != nil {
		return nil, err
	}
	start = start.AddDate(0, 0, (page-1)*limit)

	emp, err := s.store.GetEmployee(ctx, employeeID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && (!emp.IsActive || emp.SalonID == nil)) {
		return nil, apperrors.NotFound("Employee not found").WithCode(apperrors.CodeEmployeeNotFound)
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to load employee").Wrap(err)
	}

	end := start.AddDate(0, 0, limit-1)
	schedules, _, err := s.store.ListSchedules(ctx, repository.ScheduleFilter{
		SalonID:    emp.SalonID,
		EmployeeID: &employeeID,
		DateFrom:   start.Format(utils.DateLayout),
		DateTo:     end.Format(utils.DateLayout),
		ActiveOnly: true,
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to load schedules").Wrap(err)
	}

	days := groupByDay(start, limit, schedules)
	staff := []models.Employee{*emp}
	for i := range days {
		for j := range days[i].Services {
			svc := &days[i].Services[j]
			sch := findSchedule(schedules, svc.ScheduleID)
			slots, err := s.deriveForDate(ctx, days[i].Date, []models.Schedule{sch}, staff, &employeeID, s.stepMinutes)
			if err != nil {
				return nil, err
			}
			svc.TimeSlots = slots
		}
	}

	return &EmployeeWeek{
		EmployeeID: employeeID,
		Days:       days,
		Pagination: Pagination{Page: page, Limit: limit, Total: int64(limit)},
	}, nil
}

func groupByDay(start time.Time, n int, schedules []models.Schedule) []DayFilter {
	days := make([]DayFilter, n)
	index := make(map[string]int, n)
	for i := 0; i < n; i++ {
		d := start.AddDate(0, 0, i)
		days[i] = DayFilter{
			Date:     d.Format(utils.DateLayout),
			Weekday:  d.Weekday().String(),
			Services: []ServiceSummary{},
		}
		index[days[i].Date] = i
	}
	for _, sch := range schedules {
		i, ok := index[sch.Date]
		if !ok {
			continue
		}
		days[i].Available = true
		days[i].Services = append(days[i].Services, ServiceSummary{
			ScheduleID: sch.ID,
			Name:       sch.Name,
			Title:      sch.Title,
			Price:      sch.Price,
			StartTime:  sch.StartTime,
			EndTime:    sch.EndTime,
		})
	}
	return days
}

func findSchedule(schedules []models.Schedule, id uuid.UUID) models.Schedule {
	for _, s := range schedules {
		if s.ID == id {
			return s
		}
	}
	return models.Schedule{}
}
