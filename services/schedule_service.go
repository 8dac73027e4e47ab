package services

import (
	"beautyhub-backend/apperrors"
	"beautyhub-backend/models"
	"beautyhub-backend/repository"
	"beautyhub-backend/utils"
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ScheduleAdminStore interface {
	DirectoryStore
	ScheduleStore
}

type ScheduleService struct {
	store ScheduleAdminStore
}

func NewScheduleService(store ScheduleAdminStore) *ScheduleService {
	return &ScheduleService{store: store}
}

type CreateScheduleInput struct {
	SalonID      uuid.UUID   `json:"salon_id" binding:"required"`
	Name         string      `json:"name" binding:"required"`
	Title        string      `json:"title"`
	Date         string      `json:"date" binding:"required"`
	StartTime    *string     `json:"start_time"`
	EndTime      *string     `json:"end_time"`
	Price        float64     `json:"price" binding:"gte=0"`
	FullPay      *float64    `json:"full_pay"`
	Deposit      *float64    `json:"deposit"`
	Repeat       bool        `json:"repeat"`
	EmployeeList []uuid.UUID `json:"employee_list"`
}

func (s *ScheduleService) authorize(actor utils.Principal, salonID uuid.UUID) error {
	if !actor.ManagesSalon(salonID) {
		return apperrors.PermissionDenied("Not an administrator of this salon")
	}
	return nil
}

func (s *ScheduleService) Create(ctx context.Context, actor utils.Principal, in CreateScheduleInput) (*models.Schedule, error) {
	if err := s.authorize(actor, in.SalonID); err != nil {
		return nil, err
	}
	if _, err := utils.ParseDate(in.Date); err != nil {
		return nil, apperrors.Validation("date must be YYYY-MM-DD")
	}
	if (in.StartTime == nil) != (in.EndTime == nil) {
		return nil, apperrors.Validation("start_time and end_time go together")
	}
	if in.StartTime != nil {
		start, err := utils.ParseClock(*in.StartTime)
		if err != nil {
			return nil, apperrors.Validation("start_time must be HH:MM")
		}
		end, err := utils.ParseClock(*in.EndTime)
		if err != nil {
			return nil, apperrors.Validation("end_time must be HH:MM")
		}
		if end < start {
			return nil, apperrors.Validation("end_time is before start_time")
		}
	}

	salon, err := s.store.GetSalon(ctx, in.SalonID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !salon.IsActive) {
		return nil, apperrors.NotFound("Salon not found").WithCode(apperrors.CodeSalonNotFound)
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to load salon").Wrap(err)
	}

	list := make([]string, 0, len(in.EmployeeList))
	for _, id := range in.EmployeeList {
		emp, err := s.store.GetEmployee(ctx, id)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && (!emp.IsActive || !emp.BelongsTo(in.SalonID))) {
			return nil, apperrors.NotFound("Employee not found").WithCode(apperrors.CodeEmployeeNotFound)
		}
		if err != nil {
			return nil, apperrors.Internal("Failed to load employee").Wrap(err)
		}
		list = append(list, id.String())
	}

	sch := &models.Schedule{
		SalonID:      in.SalonID,
		Name:         strings.TrimSpace(in.Name),
		Title:        in.Title,
		Date:         in.Date,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		Price:        in.Price,
		FullPay:      in.FullPay,
		Deposit:      in.Deposit,
		IsRepeat:     in.Repeat,
		EmployeeList: list,
		IsActive:     true,
	}
	if err := s.store.CreateSchedule(ctx, sch); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("Schedule already exists for this date, name and start time")
		}
		return nil, apperrors.Internal("Failed to create schedule").Wrap(err)
	}
	log.Info().Str("schedule_id", sch.ID.String()).Str("salon_id", sch.SalonID.String()).Msg("schedule created")
	return sch, nil
}

func (s *ScheduleService) List(ctx context.Context, actor utils.Principal, salonID uuid.UUID, date string) ([]models.Schedule, error) {
	if err := s.authorize(actor, salonID); err != nil {
		return nil, err
	}
	schedules, _, err := s.store.ListSchedules(ctx, repository.ScheduleFilter{SalonID: &salonID, Date: date})
	if err != nil {
		return nil, apperrors.Internal("Failed to load schedules").Wrap(err)
	}
	return schedules, nil
}

func (s *ScheduleService) Deactivate(ctx context.Context, actor utils.Principal, id uuid.UUID) error {
	sch, err := s.store.GetSchedule(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("Schedule not found").WithCode(apperrors.CodeScheduleNotFound)
	}
	if err != nil {
		return apperrors.Internal("Failed to load schedule").Wrap(err)
	}
	if err := s.authorize(actor, sch.SalonID); err != nil {
		return err
	}
	if err := s.store.DeactivateSchedule(ctx, id); err != nil {
		return apperrors.Internal("Failed to deactivate schedule").Wrap(err)
	}
	return nil
}
