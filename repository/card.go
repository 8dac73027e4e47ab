package repository

import (
	"beautyhub-backend/models"
	"context"

	"github.com/google/uuid"
)

func (s *Store) CreateCard(ctx context.Context, c *models.PaymentCard) error {
	return translate(s.conn(ctx).Create(c).Error)
}

func (s *Store) GetCard(ctx context.Context, id uuid.UUID) (*models.PaymentCard, error) {
	return first[models.PaymentCard](s.conn(ctx), "id = ?", id)
}

func (s *Store) ListCards(ctx context.Context, userID uuid.UUID) ([]models.PaymentCard, error) {
	var out []models.PaymentCard
	err := s.conn(ctx).Where("user_id = ?", userID).Order("is_default DESC, created_at DESC").Find(&out).Error
	return out, translate(err)
}

func (s *Store) UpdateCard(ctx context.Context, c *models.PaymentCard, columns ...string) error {
	res := s.conn(ctx).Model(c).Select(columns).Updates(c)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ClearDefaultCard(ctx context.Context, userID uuid.UUID) error {
	return translate(s.conn(ctx).Model(&models.PaymentCard{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error)
}

func (s *Store) GetDefaultCard(ctx context.Context, userID uuid.UUID) (*models.PaymentCard, error) {
	return first[models.PaymentCard](s.conn(ctx),
		"user_id = ? AND is_default = ? AND is_active = ? AND is_verified = ?", userID, true, true, true)
}
