package repository

import (
	"beautyhub-backend/models"
	"context"

	"github.com/google/uuid"
)

func (s *Store) GetSalon(ctx context.Context, id uuid.UUID) (*models.Salon, error) {
	return first[models.Salon](s.conn(ctx), "id = ?", id)
}

func (s *Store) ListActiveSalons(ctx context.Context) ([]models.Salon, error) {
	var salons []models.Salon
	err := s.conn(ctx).Where("is_active = ?", true).Order("is_top DESC, rating DESC").Find(&salons).Error
	return salons, translate(err)
}

func (s *Store) SetSalonTop(ctx context.Context, salonID uuid.UUID, isTop bool) error {
	res := s.conn(ctx).Model(&models.Salon{}).Where("id = ?", salonID).Update("is_top", isTop)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	return first[models.Employee](s.conn(ctx), "id = ?", id)
}

func (s *Store) ListSalonEmployees(ctx context.Context, salonID uuid.UUID) ([]models.Employee, error) {
	var employees []models.Employee
	err := s.conn(ctx).
		Where("salon_id = ? AND is_active = ?", salonID, true).
		Order("name").
		Find(&employees).Error
	return employees, translate(err)
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return first[models.User](s.conn(ctx), "id = ?", id)
}

func (s *Store) SetUserAutoPay(ctx context.Context, id uuid.UUID, enabled bool) error {
	res := s.conn(ctx).Model(&models.User{}).Where("id = ?", id).Update("auto_pay", enabled)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
