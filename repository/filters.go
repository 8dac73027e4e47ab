package repository

import "github.com/google/uuid"

type ScheduleFilter struct {
	SalonID    *uuid.UUID
	EmployeeID *uuid.UUID // matches schedules listing the employee or listing nobody
	Date       string
	DateFrom   string
	DateTo     string
	ActiveOnly bool
	Limit      int
	Offset     int
}

type AppointmentFilter struct {
	SalonID    *uuid.UUID
	EmployeeID *uuid.UUID
	Date       string
	Status     string
}
