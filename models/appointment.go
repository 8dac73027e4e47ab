package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentAccepted  AppointmentStatus = "accepted"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentIgnored   AppointmentStatus = "ignored"
	AppointmentDone      AppointmentStatus = "done"
)

// Terminal reports whether the booking user may no longer edit the appointment.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentDone || s == AppointmentCancelled
}

// Appointment is a customer's claim on a slot. (employee_id, date, time) is
// unique among rows that are not cancelled.
type Appointment struct {
	ID                uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ApplicationNumber string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"application_number"`
	UserID            *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Phone             string     `gorm:"type:varchar(20);index;not null" json:"phone"`
	Name              string     `json:"name"`

	SalonID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"salon_id"`
	EmployeeID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_appointment_slot,priority:1,where:is_cancelled = false" json:"employee_id"`
	ScheduleID *uuid.UUID `gorm:"type:uuid;index" json:"schedule_id,omitempty"`

	ServiceName  string  `json:"service_name"`
	ServicePrice float64 `gorm:"type:decimal(12,2)" json:"service_price"`

	Date            string  `gorm:"type:varchar(10);not null;uniqueIndex:idx_appointment_slot,priority:2,where:is_cancelled = false" json:"application_date"`
	Time            string  `gorm:"type:varchar(5);not null;uniqueIndex:idx_appointment_slot,priority:3,where:is_cancelled = false" json:"application_time"`
	EndTime         *string `gorm:"type:varchar(5)" json:"end_time,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`

	OnlyCard bool       `gorm:"default:false" json:"only_card"`
	CardID   *uuid.UUID `gorm:"type:uuid" json:"card_id,omitempty"`

	Status      AppointmentStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	IsConfirmed bool              `gorm:"default:false" json:"is_confirmed"`
	IsCompleted bool              `gorm:"default:false" json:"is_completed"`
	IsCancelled bool              `gorm:"default:false" json:"is_cancelled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppointmentSlotIndex is the partial unique index guarding double booking.
const AppointmentSlotIndex = "idx_appointment_slot"

func (a *Appointment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
