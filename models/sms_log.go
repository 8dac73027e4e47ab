// models/sms_log.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SmsLog struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key"`
	AppointmentID *uuid.UUID `gorm:"type:uuid;index"`
	Phone         string     `gorm:"type:varchar(20)"`
	Message       string     `gorm:"type:text"`
	Status        string     `gorm:"type:varchar(20)"` // sent, failed, skipped
	ErrorMessage  string     `gorm:"type:text"`
	ProviderSid   string     `gorm:"type:varchar(64)"`
	SentAt        time.Time
}

func (r *SmsLog) BeforeCreate(tx *gorm.DB) (err error) {
	r.ID = uuid.New()
	return
}
