package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Employee struct {
	ID      uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	SalonID *uuid.UUID `gorm:"type:uuid;index" json:"salon_id"`

	Name       string  `gorm:"not null" json:"name"`
	Surname    string  `json:"surname"`
	Phone      string  `gorm:"not null;uniqueIndex" json:"phone"`
	Email      string  `gorm:"not null;uniqueIndex" json:"email"`
	Username   string  `gorm:"not null;uniqueIndex" json:"username"`
	Profession string  `json:"profession"`
	IsActive   bool    `gorm:"default:true" json:"is_active"`
	Rating     float64 `gorm:"type:decimal(3,2);default:0" json:"rating"`

	// Working range used when a schedule carries no time window, "HH:MM".
	WorkStartTime *string `gorm:"type:varchar(5)" json:"work_start_time,omitempty"`
	WorkEndTime   *string `gorm:"type:varchar(5)" json:"work_end_time,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (e *Employee) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return
}

// BelongsTo reports whether the employee is attached to the salon.
func (e *Employee) BelongsTo(salonID uuid.UUID) bool {
	return e.SalonID != nil && *e.SalonID == salonID
}

// FreePostQuota is the number of posts an employee may publish without paying.
const FreePostQuota = 4

// EmployeePostLimit tracks free and paid post usage per employee.
type EmployeePostLimit struct {
	EmployeeID uuid.UUID `gorm:"type:uuid;primary_key" json:"employee_id"`
	FreeUsed   int       `gorm:"default:0;not null" json:"free_used"`
	TotalPaid  int       `gorm:"default:0;not null" json:"total_paid"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (l EmployeePostLimit) RemainingFree() int {
	return max(0, FreePostQuota-l.FreeUsed)
}

func (l EmployeePostLimit) RemainingPaid() int {
	paidUsed := max(0, l.FreeUsed-FreePostQuota)
	return max(0, l.TotalPaid-paidUsed)
}
