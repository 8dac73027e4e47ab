package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Schedule is a planned service offering on one date. Dates are "YYYY-MM-DD"
// and times are local wall-clock "HH:MM".
//
// idx_schedule_slot never matches two NULL start times, so windowless
// schedules carry their own partial index, idx_schedule_open.
type Schedule struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	SalonID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_schedule_slot,priority:1;uniqueIndex:idx_schedule_open,priority:1,where:start_time IS NULL" json:"salon_id"`
	Name      string    `gorm:"not null;uniqueIndex:idx_schedule_slot,priority:3;uniqueIndex:idx_schedule_open,priority:3,where:start_time IS NULL" json:"name"`
	Title     string    `json:"title"`
	Date      string    `gorm:"type:varchar(10);not null;index;uniqueIndex:idx_schedule_slot,priority:2;uniqueIndex:idx_schedule_open,priority:2,where:start_time IS NULL" json:"date"`
	StartTime *string   `gorm:"type:varchar(5);uniqueIndex:idx_schedule_slot,priority:4" json:"start_time,omitempty"`
	EndTime   *string   `gorm:"type:varchar(5)" json:"end_time,omitempty"`

	Price    float64  `gorm:"type:decimal(12,2);not null" json:"price"`
	FullPay  *float64 `gorm:"type:decimal(12,2)" json:"full_pay,omitempty"`
	Deposit  *float64 `gorm:"type:decimal(12,2)" json:"deposit,omitempty"`
	IsRepeat bool     `gorm:"default:false" json:"repeat"`

	// Empty list means any staff member of the salon.
	EmployeeList pq.StringArray `gorm:"type:text[]" json:"employee_list"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Schedule) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

// Includes reports whether the employee may serve this schedule.
func (s *Schedule) Includes(employeeID uuid.UUID) bool {
	if len(s.EmployeeList) == 0 {
		return true
	}
	id := employeeID.String()
	for _, e := range s.EmployeeList {
		if e == id {
			return true
		}
	}
	return false
}

// BusySlot blocks an employee for the half-open interval [StartTime, EndTime).
type BusySlot struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	EmployeeID uuid.UUID `gorm:"type:uuid;index:idx_busy_employee_date,priority:1;not null" json:"employee_id"`
	Date       string    `gorm:"type:varchar(10);index:idx_busy_employee_date,priority:2;not null" json:"date"`
	StartTime  string    `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime    string    `gorm:"type:varchar(5);not null" json:"end_time"`
	Reason     *string   `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (b *BusySlot) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}
