package repository

import (
	"beautyhub-backend/models"
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

func (s *Store) IsSubscribed(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.NotifSubscription{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, translate(err)
}

func (s *Store) Subscribe(ctx context.Context, userID uuid.UUID) error {
	sub := models.NotifSubscription{UserID: userID}
	return translate(s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&sub).Error)
}

func (s *Store) Unsubscribe(ctx context.Context, userID uuid.UUID) error {
	return translate(s.conn(ctx).Delete(&models.NotifSubscription{}, "user_id = ?", userID).Error)
}

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return translate(s.conn(ctx).Create(n).Error)
}

func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, int64, error) {
	var total int64
	if err := s.conn(ctx).Model(&models.Notification{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	var out []models.Notification
	err := s.conn(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, total, translate(err)
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	res := s.conn(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreateSmsLog(ctx context.Context, l *models.SmsLog) error {
	return translate(s.conn(ctx).Create(l).Error)
}
