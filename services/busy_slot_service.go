package services

import (
	"beautyhub-backend/apperrors"
	"beautyhub-backend/models"
	"beautyhub-backend/repository"
	"beautyhub-backend/utils"
	"context"
	"errors"

	"github.com/google/uuid"
)

type BusyStore interface {
	DirectoryStore
	BusySlotStore
}

type BusySlotService struct {
	store BusyStore
}

func NewBusySlotService(store BusyStore) *BusySlotService {
	return &BusySlotService{store: store}
}

type BusySlotInput struct {
	EmployeeID *uuid.UUID `json:"employee_id"`
	Date       string     `json:"date" binding:"required"`
	StartTime  string     `json:"start_time" binding:"required"`
	EndTime    string     `json:"end_time" binding:"required"`
	Reason     *string    `json:"reason"`
}

// resolveEmployee returns the employee the actor may manage busy slots for.
// Employees act on themselves; admins on staff of their salon.
func (s *BusySlotService) resolveEmployee(ctx context.Context, actor utils.Principal, employeeID *uuid.UUID) (uuid.UUID, error) {
	id := actor.ID
	if actor.Role != utils.RoleEmployee {
		if employeeID == nil {
			return uuid.Nil, apperrors.Validation("employee_id is required")
		}
		id = *employeeID
	}
	emp, err := s.store.GetEmployee(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return uuid.Nil, apperrors.NotFound("Employee not found").WithCode(apperrors.CodeEmployeeNotFound)
	}
	if err != nil {
		return uuid.Nil, apperrors.Internal("Failed to load employee").Wrap(err)
	}
	if actor.Role != utils.RoleEmployee && (emp.SalonID == nil || !actor.ManagesSalon(*emp.SalonID)) {
		return uuid.Nil, apperrors.PermissionDenied("Employee belongs to another salon")
	}
	return id, nil
}

func (s *BusySlotService) Create(ctx context.Context, actor utils.Principal, in BusySlotInput) (*models.BusySlot, error) {
	if _, err := utils.ParseDate(in.Date); err != nil {
		return nil, apperrors.Validation("date must be YYYY-MM-DD")
	}
	start, err := utils.ParseClock(in.StartTime)
	if err != nil {
		return nil, apperrors.Validation("start_time must be HH:MM")
	}
	end, err := utils.ParseClock(in.EndTime)
	if err != nil {
		return nil, apperrors.Validation("end_time must be HH:MM")
	}
	if start >= end {
		return nil, apperrors.Validation("start_time must be before end_time")
	}

	employeeID, err := s.resolveEmployee(ctx, actor, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	slot := &models.BusySlot{
		EmployeeID: employeeID,
		Date:       in.Date,
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		Reason:     in.Reason,
	}
	if err := s.store.CreateBusySlot(ctx, slot); err != nil {
		return nil, apperrors.Internal("Failed to create busy slot").Wrap(err)
	}
	return slot, nil
}

func (s *BusySlotService) List(ctx context.Context, actor utils.Principal, employeeID *uuid.UUID, fromDate string) ([]models.BusySlot, error) {
	id, err := s.resolveEmployee(ctx, actor, employeeID)
	if err != nil {
		return nil, err
	}
	slots, err := s.store.ListEmployeeBusySlots(ctx, id, fromDate)
	if err != nil {
		return nil, apperrors.Internal("Failed to load busy slots").Wrap(err)
	}
	return slots, nil
}

func (s *BusySlotService) Delete(ctx context.Context, actor utils.Principal, id uuid.UUID) error {
	slot, err := s.store.GetBusySlot(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("Busy slot not found")
	}
	if err != nil {
		return apperrors.Internal("Failed to load busy slot").Wrap(err)
	}
	if _, err := s.resolveEmployee(ctx, actor, &slot.EmployeeID); err != nil {
		return err
	}
	if actor.Role == utils.RoleEmployee && slot.EmployeeID != actor.ID {
		return apperrors.PermissionDenied("Busy slot belongs to another employee")
	}
	if err := s.store.DeleteBusySlot(ctx, id); err != nil {
		return apperrors.Internal("Failed to delete busy slot").Wrap(err)
	}
	return nil
}
