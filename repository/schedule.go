package repository

import (
	"beautyhub-backend/models"
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Store) CreateSchedule(ctx context.Context, sch *models.Schedule) error {
	return translate(s.conn(ctx).Create(sch).Error)
}

func (s *Store) GetSchedule(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	return first[models.Schedule](s.conn(ctx), "id = ?", id)
}

func applyScheduleFilter(q *gorm.DB, f ScheduleFilter) *gorm.DB {
	if f.SalonID != nil {
		q = q.Where("salon_id = ?", *f.SalonID)
	}
	if f.EmployeeID != nil {
		q = q.Where("(cardinality(employee_list) = 0 OR employee_list IS NULL OR ? = ANY(employee_list))", f.EmployeeID.String())
	}
	if f.Date != "" {
		q = q.Where("date = ?", f.Date)
	}
	if f.DateFrom != "" {
		q = q.Where("date >= ?", f.DateFrom)
	}
	if f.DateTo != "" {
		q = q.Where("date <= ?", f.DateTo)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	return q
}

// ListSchedules returns the matching page ordered by date and start time,
// plus the total number of matches.
func (s *Store) ListSchedules(ctx context.Context, f ScheduleFilter) ([]models.Schedule, int64, error) {
	var total int64
	if err := applyScheduleFilter(s.conn(ctx).Model(&models.Schedule{}), f).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	q := applyScheduleFilter(s.conn(ctx), f).Order("date, start_time, name")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var schedules []models.Schedule
	if err := q.Find(&schedules).Error; err != nil {
		return nil, 0, translate(err)
	}
	return schedules, total, nil
}

func (s *Store) DeactivateSchedule(ctx context.Context, id uuid.UUID) error {
	res := s.conn(ctx).Model(&models.Schedule{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
