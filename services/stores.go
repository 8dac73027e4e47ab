package services

import (
	"beautyhub-backend/models"
	"beautyhub-backend/repository"
	"context"
	"time"

	"github.com/google/uuid"
)

// TxRunner runs fn in one transaction carried by the context passed to fn.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type DirectoryStore interface {
	GetSalon(ctx context.Context, id uuid.UUID) (*models.Salon, error)
	ListActiveSalons(ctx context.Context) ([]models.Salon, error)
	GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	ListSalonEmployees(ctx context.Context, salonID uuid.UUID) ([]models.Employee, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetUserAutoPay(ctx context.Context, id uuid.UUID, enabled bool) error
}

type ScheduleStore interface {
	CreateSchedule(ctx context.Context, s *models.Schedule) error
	GetSchedule(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
	ListSchedules(ctx context.Context, f repository.ScheduleFilter) ([]models.Schedule, int64, error)
	DeactivateSchedule(ctx context.Context, id uuid.UUID) error
}

type AppointmentStore interface {
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	ActiveAppointmentExists(ctx context.Context, employeeID uuid.UUID, date, clock string) (bool, error)
	ListActiveAppointments(ctx context.Context, employeeIDs []uuid.UUID, date string) ([]models.Appointment, error)
	ListAppointmentsByPhone(ctx context.Context, phone string, limit int) ([]models.Appointment, error)
	ListAppointmentsByUser(ctx context.Context, userID uuid.UUID) ([]models.Appointment, error)
	ListAppointments(ctx context.Context, f repository.AppointmentFilter) ([]models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, a *models.Appointment) error
}

type BusySlotStore interface {
	CreateBusySlot(ctx context.Context, b *models.BusySlot) error
	GetBusySlot(ctx context.Context, id uuid.UUID) (*models.BusySlot, error)
	DeleteBusySlot(ctx context.Context, id uuid.UUID) error
	ListBusySlots(ctx context.Context, employeeIDs []uuid.UUID, date string) ([]models.BusySlot, error)
	ListEmployeeBusySlots(ctx context.Context, employeeID uuid.UUID, fromDate string) ([]models.BusySlot, error)
}

type ChatStore interface {
	FindConversation(ctx context.Context, userID uuid.UUID, employeeID, salonID *uuid.UUID) (*models.Conversation, error)
	CreateConversation(ctx context.Context, c *models.Conversation) error
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListConversations(ctx context.Context, participantID uuid.UUID, role string) ([]models.Conversation, error)
	// NextMessageSeq bumps the conversation counter and last-message fields,
	// returning the sequence number for the new message.
	NextMessageSeq(ctx context.Context, conversationID uuid.UUID, preview string, at time.Time) (int64, error)
	CreateMessage(ctx context.Context, m *models.Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, int64, error)
	MarkMessagesRead(ctx context.Context, conversationID, receiverID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, conversationID, receiverID uuid.UUID) (int64, error)
}

type NotificationStore interface {
	IsSubscribed(ctx context.Context, userID uuid.UUID) (bool, error)
	Subscribe(ctx context.Context, userID uuid.UUID) error
	Unsubscribe(ctx context.Context, userID uuid.UUID) error
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, int64, error)
	MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error
}

type SmsLogStore interface {
	CreateSmsLog(ctx context.Context, l *models.SmsLog) error
}

type PaymentStore interface {
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListPayments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, int64, error)
	// UpdatePayment writes only the named columns of p.
	UpdatePayment(ctx context.Context, p *models.Payment, columns ...string) error
	// CompletePayment moves a payment to completed unless it already is.
	// It reports whether this call performed the transition.
	CompletePayment(ctx context.Context, id uuid.UUID, providerTxnID string, at time.Time) (bool, error)
}

type CardStore interface {
	CreateCard(ctx context.Context, c *models.PaymentCard) error
	GetCard(ctx context.Context, id uuid.UUID) (*models.PaymentCard, error)
	ListCards(ctx context.Context, userID uuid.UUID) ([]models.PaymentCard, error)
	UpdateCard(ctx context.Context, c *models.PaymentCard, columns ...string) error
	ClearDefaultCard(ctx context.Context, userID uuid.UUID) error
	GetDefaultCard(ctx context.Context, userID uuid.UUID) (*models.PaymentCard, error)
}

type EntitlementStore interface {
	AddPaidPosts(ctx context.Context, employeeID uuid.UUID, count int) error
	GetPostLimit(ctx context.Context, employeeID uuid.UUID) (*models.EmployeePostLimit, error)
	// ConsumePost counts one published post if the quota allows it.
	ConsumePost(ctx context.Context, employeeID uuid.UUID, freeQuota int) (bool, error)

	ListActivePremiums(ctx context.Context, userID uuid.UUID) ([]models.UserPremium, error)
	CreatePremium(ctx context.Context, p *models.UserPremium) error
	SavePremium(ctx context.Context, p *models.UserPremium) error
	DeactivatePremiums(ctx context.Context, ids []uuid.UUID) error
	ListUsersWithDuplicatePremiums(ctx context.Context) ([]uuid.UUID, error)
	ListExpiredPremiums(ctx context.Context, now time.Time) ([]models.UserPremium, error)
	ListLapsedAutoPayPremiums(ctx context.Context, now time.Time) ([]models.UserPremium, error)
	LatestPaymentFor(ctx context.Context, prefix string, since time.Time) (*models.Payment, error)

	ListActiveTops(ctx context.Context, salonID uuid.UUID) ([]models.SalonTopHistory, error)
	CloseActiveTops(ctx context.Context, salonID uuid.UUID, at time.Time) error
	CreateTopHistory(ctx context.Context, h *models.SalonTopHistory) error
	ListExpiredTops(ctx context.Context, now time.Time) ([]models.SalonTopHistory, error)
	DeactivateTop(ctx context.Context, id uuid.UUID) error
	SetSalonTop(ctx context.Context, salonID uuid.UUID, isTop bool) error
}
