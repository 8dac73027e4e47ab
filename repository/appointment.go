package repository

import (
	"beautyhub-backend/models"
	"context"

	"github.com/google/uuid"
)

func (s *Store) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	return translate(s.conn(ctx).Create(a).Error)
}

func (s *Store) GetAppointment(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	return first[models.Appointment](s.conn(ctx), "id = ?", id)
}

func (s *Store) ActiveAppointmentExists(ctx context.Context, employeeID uuid.UUID, date, clock string) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.Appointment{}).
		Where("employee_id = ? AND date = ? AND time = ? AND is_cancelled = ?", employeeID, date, clock, false).
		Count(&count).Error
	return count > 0, translate(err)
}

func (s *Store) ListActiveAppointments(ctx context.Context, employeeIDs []uuid.UUID, date string) ([]models.Appointment, error) {
	var out []models.Appointment
	if len(employeeIDs) == 0 {
		return out, nil
	}
	err := s.conn(ctx).
		Where("employee_id IN ? AND date = ? AND is_cancelled = ?", employeeIDs, date, false).
		Order("time").
		Find(&out).Error
	return out, translate(err)
}

func (s *Store) ListAppointmentsByPhone(ctx context.Context, phone string, limit int) ([]models.Appointment, error) {
	var out []models.Appointment
	err := s.conn(ctx).
		Where("phone = ? AND is_cancelled = ?", phone, false).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, translate(err)
}

func (s *Store) ListAppointmentsByUser(ctx context.Context, userID uuid.UUID) ([]models.Appointment, error) {
	var out []models.Appointment
	err := s.conn(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	return out, translate(err)
}

func (s *Store) ListAppointments(ctx context.Context, f AppointmentFilter) ([]models.Appointment, error) {
	q := s.conn(ctx)
	if f.SalonID != nil {
		q = q.Where("salon_id = ?", *f.SalonID)
	}
	if f.EmployeeID != nil {
		q = q.Where("employee_id = ?", *f.EmployeeID)
	}
	if f.Date != "" {
		q = q.Where("date = ?", f.Date)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var out []models.Appointment
	err := q.Order("date, time").Find(&out).Error
	return out, translate(err)
}

func (s *Store) UpdateAppointmentStatus(ctx context.Context, a *models.Appointment) error {
	res := s.conn(ctx).Model(a).
		Select("status", "is_confirmed", "is_completed", "is_cancelled").
		Updates(a)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
