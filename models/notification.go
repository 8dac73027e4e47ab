package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Title     string    `gorm:"not null" json:"title"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Kind      string    `gorm:"type:varchar(30);not null" json:"type"`
	Data      JSONB     `gorm:"type:jsonb;default:'{}'" json:"data"`
	IsRead    bool      `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	NotificationChatMessage       = "chat_message"
	NotificationAppointmentStatus = "appointment_status"
)

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}

// NotifSubscription marks a user as opted into push-style notifications.
type NotifSubscription struct {
	UserID    uuid.UUID `gorm:"type:uuid;primary_key" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
