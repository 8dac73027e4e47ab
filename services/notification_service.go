package services

import (
	"beautyhub-backend/apperrors"
	"beautyhub-backend/models"
	"beautyhub-backend/repository"
	"beautyhub-backend/utils"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Titles are sent in every supported language; clients pick one.
type Titles struct {
	UZ string `json:"uz"`
	RU string `json:"ru"`
	EN string `json:"en"`
}

var newMessageTitles = Titles{UZ: "Yangi xabar", RU: "Новое сообщение", EN: "New message"}

var statusTitles = map[models.AppointmentStatus]Titles{
	models.AppointmentAccepted:  {UZ: "Buyurtma tasdiqlandi", RU: "Запись подтверждена", EN: "Appointment confirmed"},
	models.AppointmentDone:      {UZ: "Xizmat yakunlandi", RU: "Услуга оказана", EN: "Appointment completed"},
	models.AppointmentCancelled: {UZ: "Buyurtma bekor qilindi", RU: "Запись отменена", EN: "Appointment cancelled"},
	models.AppointmentIgnored:   {UZ: "Buyurtma ko'rib chiqilmadi", RU: "Запись не рассмотрена", EN: "Appointment not reviewed"},
}

// ChatNotification is the payload of the notification socket event.
type ChatNotification struct {
	NotificationID uuid.UUID `json:"notification_id"`
	ReceiverID     uuid.UUID `json:"receiver_id"`
	Titles         Titles    `json:"titles"`
	Message        string    `json:"message"`
	UnreadCount    int64     `json:"unread_count"`
}

type NotificationDeps interface {
	NotificationStore
	ChatStore
}

type NotificationService struct {
	store NotificationDeps
	sms   *SmsService
}

func NewNotificationService(store NotificationDeps, sms *SmsService) *NotificationService {
	return &NotificationService{store: store, sms: sms}
}

// ChatMessage records a notification for a subscribed user receiving msg.
// It returns nil when the receiver is not a subscribed user.
func (s *NotificationService) ChatMessage(ctx context.Context, msg *models.Message) (*ChatNotification, error) {
	if msg.ReceiverRole != models.RoleUser {
		return nil, nil
	}
	subscribed, err := s.store.IsSubscribed(ctx, msg.ReceiverID)
	if err != nil || !subscribed {
		return nil, err
	}

	n := &models.Notification{
		UserID:  msg.ReceiverID,
		Title:   newMessageTitles.EN,
		Message: msg.Text,
		Kind:    models.NotificationChatMessage,
		Data: models.JSONB{
			"conversation_id": msg.ConversationID.String(),
			"message_id":      msg.ID.String(),
			"sender_id":       msg.SenderID.String(),
			"sender_role":     msg.SenderRole,
		},
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	unread, err := s.store.CountUnread(ctx, msg.ConversationID, msg.ReceiverID)
	if err != nil {
		return nil, err
	}
	return &ChatNotification{
		NotificationID: n.ID,
		ReceiverID:     msg.ReceiverID,
		Titles:         newMessageTitles,
		Message:        msg.Text,
		UnreadCount:    unread,
	}, nil
}

// AppointmentStatusChanged notifies the booking user in-app and by SMS.
func (s *NotificationService) AppointmentStatusChanged(ctx context.Context, a *models.Appointment) {
	titles, ok := statusTitles[a.Status]
	if !ok {
		return
	}
	text := fmt.Sprintf("%s: %s %s (%s)", a.ApplicationNumber, a.Date, a.Time, titles.EN)

	if a.UserID != nil {
		n := &models.Notification{
			UserID:  *a.UserID,
			Title:   titles.EN,
			Message: text,
			Kind:    models.NotificationAppointmentStatus,
			Data: models.JSONB{
				"appointment_id":     a.ID.String(),
				"application_number": a.ApplicationNumber,
				"status":             string(a.Status),
				"titles":             titles,
			},
		}
		if err := s.store.CreateNotification(ctx, n); err != nil {
			log.Error().Err(err).Str("appointment_id", a.ID.String()).Msg("failed to store status notification")
		}
	}

	if s.sms != nil && a.Phone != "" {
		s.sms.Send(ctx, &a.ID, a.Phone, titles.UZ+". "+text)
	}
}

type NotificationPage struct {
	Items      []models.Notification `json:"items"`
	Pagination HistoryPagination     `json:"pagination"`
}

func (s *NotificationService) List(ctx context.Context, actor utils.Principal, limit, offset int) (*NotificationPage, error) {
	limit, offset = clampPage(limit, offset)
	items, total, err := s.store.ListNotifications(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, apperrors.Internal("Failed to load notifications").Wrap(err)
	}
	if items == nil {
		items = []models.Notification{}
	}
	return &NotificationPage{
		Items:      items,
		Pagination: HistoryPagination{Limit: limit, Offset: offset, Total: total},
	}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, actor utils.Principal, id uuid.UUID) error {
	err := s.store.MarkNotificationRead(ctx, id, actor.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("Notification not found")
	}
	if err != nil {
		return apperrors.Internal("Failed to update notification").Wrap(err)
	}
	return nil
}

func (s *NotificationService) Subscribe(ctx context.Context, actor utils.Principal) error {
	if err := s.store.Subscribe(ctx, actor.ID); err != nil {
		return apperrors.Internal("Failed to subscribe").Wrap(err)
	}
	return nil
}

func (s *NotificationService) Unsubscribe(ctx context.Context, actor utils.Principal) error {
	if err := s.store.Unsubscribe(ctx, actor.ID); err != nil {
		return apperrors.Internal("Failed to unsubscribe").Wrap(err)
	}
	return nil
}
