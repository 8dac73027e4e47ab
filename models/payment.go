package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentCreated   PaymentStatus = "created"
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentError     PaymentStatus = "error"
)

// Payment is one purchase attempt. PaymentFor is the entitlement key
// "<action>_<entityId>_<quantity>".
type Payment struct {
	ID         uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	UserID     uuid.UUID     `gorm:"type:uuid;index;not null" json:"user_id"`
	PayerRole  string        `gorm:"type:varchar(20);not null" json:"payer_role"`
	PaymentFor string        `gorm:"type:varchar(80);not null" json:"payment_for"`
	Amount     float64       `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status     PaymentStatus `gorm:"type:varchar(20);default:'created';index" json:"status"`
	CardID     *uuid.UUID    `gorm:"type:uuid" json:"card_id,omitempty"`

	// Provider side identifiers. ProviderTxnID is the click_trans_id of the
	// completing callback and is unique so a completion is applied once.
	ProviderTxnID     *string `gorm:"type:varchar(64);uniqueIndex" json:"provider_txn_id,omitempty"`
	PrepareID         *int64  `json:"prepare_id,omitempty"`
	InvoiceID         *string `gorm:"type:varchar(64)" json:"invoice_id,omitempty"`
	ProviderPaymentID *string `gorm:"type:varchar(64)" json:"provider_payment_id,omitempty"`
	ErrorNote         string  `gorm:"type:text" json:"error_note,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

// PaymentCard is a provider card token owned by a user. The raw card number
// is never stored; NumberHash is a bcrypt fingerprint used to detect duplicates.
type PaymentCard struct {
	ID                uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID            uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	NumberHash        string     `gorm:"type:varchar(100);not null" json:"-"`
	ProviderCardToken string     `gorm:"type:varchar(128);uniqueIndex;not null" json:"-"`
	MaskedNumber      string     `gorm:"type:varchar(25);not null" json:"masked_number"`
	Expiry            string     `gorm:"type:varchar(4);not null" json:"expiry"`
	ExpiryAt          *time.Time `json:"expiry_at,omitempty"`
	PhoneNumber       *string    `gorm:"type:varchar(20)" json:"phone_number,omitempty"`
	IsDefault         bool       `gorm:"default:false" json:"is_default"`
	IsActive          bool       `gorm:"default:false" json:"is_active"`
	IsVerified        bool       `gorm:"default:false" json:"is_verified"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (c *PaymentCard) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// Usable reports whether the card may be charged.
func (c *PaymentCard) Usable() bool {
	return c.IsActive && c.IsVerified
}

type UserPremium struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	StartDate      time.Time `gorm:"not null" json:"start_date"`
	EndDate        time.Time `gorm:"not null;index" json:"end_date"`
	DurationMonths int       `gorm:"not null" json:"duration_months"`
	IsActive       bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (p *UserPremium) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
