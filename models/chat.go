package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ConversationUserEmployee = "user_employee"
	ConversationUserSalon    = "user_salon"
)

const (
	RoleUser       = "user"
	RoleEmployee   = "employee"
	RoleSalon      = "salon"
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)

// Conversation pairs a user with exactly one of an employee or a salon.
type Conversation struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_conv_user_employee,priority:1;uniqueIndex:idx_conv_user_salon,priority:1" json:"user_id"`
	EmployeeID      *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_conv_user_employee,priority:2" json:"employee_id,omitempty"`
	SalonID         *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_conv_user_salon,priority:2" json:"salon_id,omitempty"`
	Type            string     `gorm:"type:varchar(20);not null" json:"type"`
	LastMessage     *string    `gorm:"type:text" json:"last_message,omitempty"`
	LastMessageTime *time.Time `json:"last_message_time,omitempty"`
	MessageCount    int64      `gorm:"default:0;not null" json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// Participant reports whether the principal takes part in the conversation.
func (c *Conversation) Participant(id uuid.UUID, role string) bool {
	switch role {
	case RoleUser:
		return c.UserID == id
	case RoleEmployee:
		return c.EmployeeID != nil && *c.EmployeeID == id
	case RoleSalon:
		return c.SalonID != nil && *c.SalonID == id
	}
	return false
}

const (
	MessageText  = "text"
	MessageFile  = "file"
	MessageImage = "image"
)

// Message is one chat line. Seq is dense per conversation, starting at 1.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_message_seq,priority:1;index:idx_message_conv_created,priority:1" json:"conversation_id"`
	Seq            int64     `gorm:"not null;uniqueIndex:idx_message_seq,priority:2" json:"seq"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	SenderRole     string    `gorm:"type:varchar(20);not null" json:"sender_role"`
	ReceiverID     uuid.UUID `gorm:"type:uuid;not null;index" json:"receiver_id"`
	ReceiverRole   string    `gorm:"type:varchar(20);not null" json:"receiver_role"`
	Text           string    `gorm:"type:text" json:"text"`
	Kind           string    `gorm:"type:varchar(10);default:'text'" json:"type"`
	FileURL        *string   `json:"file_url,omitempty"`
	IsRead         bool      `gorm:"default:false" json:"is_read"`
	CreatedAt      time.Time `gorm:"index:idx_message_conv_created,priority:2" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
