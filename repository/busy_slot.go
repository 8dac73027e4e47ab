package repository

import (
	"beautyhub-backend/models"
	"context"

	"github.com/google/uuid"
)

func (s *Store) CreateBusySlot(ctx context.Context, b *models.BusySlot) error {
	return translate(s.conn(ctx).Create(b).Error)
}

func (s *Store) GetBusySlot(ctx context.Context, id uuid.UUID) (*models.BusySlot, error) {
	return first[models.BusySlot](s.conn(ctx), "id = ?", id)
}

func (s *Store) DeleteBusySlot(ctx context.Context, id uuid.UUID) error {
	res := s.conn(ctx).Delete(&models.BusySlot{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListBusySlots(ctx context.Context, employeeIDs []uuid.UUID, date string) ([]models.BusySlot, error) {
	var out []models.BusySlot
	if len(employeeIDs) == 0 {
		return out, nil
	}
	err := s.conn(ctx).
		Where("employee_id IN ? AND date = ?", employeeIDs, date).
		Order("start_time").
		Find(&out).Error
	return out, translate(err)
}

func (s *Store) ListEmployeeBusySlots(ctx context.Context, employeeID uuid.UUID, fromDate string) ([]models.BusySlot, error) {
	var out []models.BusySlot
	q := s.conn(ctx).Where("employee_id = ?", employeeID)
	if fromDate != "" {
		q = q.Where("date >= ?", fromDate)
	}
	err := q.Order("date, start_time").Find(&out).Error
	return out, translate(err)
}
