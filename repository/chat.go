package repository

import (
	"beautyhub-backend/models"
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FindConversation looks up the conversation of a user with exactly one of
// an employee or a salon.
func (s *Store) FindConversation(ctx context.Context, userID uuid.UUID, employeeID, salonID *uuid.UUID) (*models.Conversation, error) {
	switch {
	case employeeID != nil:
		return first[models.Conversation](s.conn(ctx), "user_id = ? AND employee_id = ?", userID, *employeeID)
	case salonID != nil:
		return first[models.Conversation](s.conn(ctx), "user_id = ? AND salon_id = ?", userID, *salonID)
	}
	return nil, ErrNotFound
}

func (s *Store) CreateConversation(ctx context.Context, c *models.Conversation) error {
	return translate(s.conn(ctx).Create(c).Error)
}

func (s *Store) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	return first[models.Conversation](s.conn(ctx), "id = ?", id)
}

func (s *Store) ListConversations(ctx context.Context, participantID uuid.UUID, role string) ([]models.Conversation, error) {
	q := s.conn(ctx)
	switch role {
	case models.RoleUser:
		q = q.Where("user_id = ?", participantID)
	case models.RoleEmployee:
		q = q.Where("employee_id = ?", participantID)
	case models.RoleSalon:
		q = q.Where("salon_id = ?", participantID)
	default:
		return nil, nil
	}
	var out []models.Conversation
	err := q.Order("last_message_time DESC NULLS LAST, created_at DESC").Find(&out).Error
	return out, translate(err)
}

func (s *Store) NextMessageSeq(ctx context.Context, conversationID uuid.UUID, preview string, at time.Time) (int64, error) {
	conv := models.Conversation{ID: conversationID}
	res := s.conn(ctx).Model(&conv).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "message_count"}}}).
		Updates(map[string]interface{}{
			"message_count":     gorm.Expr("message_count + 1"),
			"last_message":      preview,
			"last_message_time": at,
		})
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return conv.MessageCount, nil
}

func (s *Store) CreateMessage(ctx context.Context, m *models.Message) error {
	return translate(s.conn(ctx).Create(m).Error)
}

// ListMessages returns a page of messages newest first and the total count.
func (s *Store) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, int64, error) {
	var total int64
	if err := s.conn(ctx).Model(&models.Message{}).Where("conversation_id = ?", conversationID).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	var out []models.Message
	if int64(offset) >= total {
		return out, total, nil
	}
	err := s.conn(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, total, translate(err)
}

func (s *Store) MarkMessagesRead(ctx context.Context, conversationID, receiverID uuid.UUID) (int64, error) {
	res := s.conn(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = ?", conversationID, receiverID, false).
		Update("is_read", true)
	return res.RowsAffected, translate(res.Error)
}

func (s *Store) CountUnread(ctx context.Context, conversationID, receiverID uuid.UUID) (int64, error) {
	var count int64
	err := s.conn(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = ?", conversationID, receiverID, false).
		Count(&count).Error
	return count, translate(err)
}
