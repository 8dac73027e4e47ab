package repository

import (
	"beautyhub-backend/models"
	"context"
	"time"

	"github.com/google/uuid"
)

func (s *Store) CreatePayment(ctx context.Context, p *models.Payment) error {
	return translate(s.conn(ctx).Create(p).Error)
}

func (s *Store) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return first[models.Payment](s.conn(ctx), "id = ?", id)
}

func (s *Store) ListPayments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, int64, error) {
	var total int64
	if err := s.conn(ctx).Model(&models.Payment{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	var out []models.Payment
	err := s.conn(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, total, translate(err)
}

// LatestPaymentFor returns the newest payment whose key starts with prefix
// and that was created after since.
func (s *Store) LatestPaymentFor(ctx context.Context, prefix string, since time.Time) (*models.Payment, error) {
	var out models.Payment
	err := s.conn(ctx).
		Where("payment_for LIKE ? AND created_at > ?", prefix+"%", since).
		Order("created_at DESC").
		First(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (s *Store) UpdatePayment(ctx context.Context, p *models.Payment, columns ...string) error {
	res := s.conn(ctx).Model(p).Select(columns).Updates(p)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompletePayment is a conditional update so concurrent completions of the
// same payment leave exactly one winner.
func (s *Store) CompletePayment(ctx context.Context, id uuid.UUID, providerTxnID string, at time.Time) (bool, error) {
	res := s.conn(ctx).Model(&models.Payment{}).
		Where("id = ? AND status <> ?", id, models.PaymentCompleted).
		Updates(map[string]interface{}{
			"status":          models.PaymentCompleted,
			"provider_txn_id": providerTxnID,
			"completed_at":    at,
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}
