package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type Salon struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name     string    `gorm:"not null" json:"name"`
	Phone    *string   `json:"phone,omitempty"`
	Rating   float64   `gorm:"type:decimal(3,2);default:0" json:"rating"`
	IsActive bool      `gorm:"default:true;index" json:"is_active"`
	IsTop    bool      `gorm:"default:false;index" json:"is_top"`
	Lat      *float64  `json:"lat,omitempty"`
	Lng      *float64  `json:"lng,omitempty"`

	Types    pq.StringArray `gorm:"type:text[]" json:"types"`
	Comforts JSONB          `gorm:"type:jsonb;default:'{}'" json:"comforts"`

	// Per-language texts keyed by "uz", "ru", "en".
	Descriptions JSONB `gorm:"type:jsonb;default:'{}'" json:"descriptions"`
	Addresses    JSONB `gorm:"type:jsonb;default:'{}'" json:"addresses"`

	Sale *int `json:"sale,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Salon) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

// SalonTopHistory records promotion windows. At most one row per salon is active.
type SalonTopHistory struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	SalonID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"salon_id"`
	AdminID   *uuid.UUID `gorm:"type:uuid" json:"admin_id,omitempty"`
	PaymentID *uuid.UUID `gorm:"type:uuid" json:"payment_id,omitempty"`
	StartDate time.Time  `gorm:"not null" json:"start_date"`
	EndDate   *time.Time `gorm:"index" json:"end_date,omitempty"`
	Days      int        `json:"days"`
	Action    string     `gorm:"type:varchar(20);not null" json:"action"`
	IsActive  bool       `gorm:"not null;index" json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

const (
	TopActionPromoted = "promoted"
	TopActionDemoted  = "demoted"
)

func (h *SalonTopHistory) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return
}
