package controllers

import (
	"beautyhub-backend/models"
	"beautyhub-backend/repository"
	"beautyhub-backend/services"
	"beautyhub-backend/utils"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Booking interface {
	CreateAppointment(ctx context.Context, actor utils.Principal, in services.CreateAppointmentInput) (*services.CreateAppointmentResult, error)
	MyAppointments(ctx context.Context, actor utils.Principal) ([]services.BookedAppointment, error)
	List(ctx context.Context, actor utils.Principal, f repository.AppointmentFilter) ([]models.Appointment, error)
	ChangeStatus(ctx context.Context, actor utils.Principal, id uuid.UUID, target models.AppointmentStatus) (*models.Appointment, error)
	CancelByUser(ctx context.Context, actor utils.Principal, id uuid.UUID) (*models.Appointment, error)
}

type AppointmentController struct {
	Booking Booking
}

type StatusInput struct {
	Status models.AppointmentStatus `json:"status" binding:"required"`
}

func (ac *AppointmentController) Create(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var input services.CreateAppointmentInput
	if !bindJSON(c, &input) {
		return
	}
	res, err := ac.Booking.CreateAppointment(c.Request.Context(), actor, input)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (ac *AppointmentController) My(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	items, err := ac.Booking.MyAppointments(c.Request.Context(), actor)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": items})
}

// List expects optional ?salon_id&employee_id&date&status.
func (ac *AppointmentController) List(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	salonID, ok := optionalUUIDQuery(c, "salon_id")
	if !ok {
		return
	}
	employeeID, ok := optionalUUIDQuery(c, "employee_id")
	if !ok {
		return
	}
	items, err := ac.Booking.List(c.Request.Context(), actor, repository.AppointmentFilter{
		SalonID:    salonID,
		EmployeeID: employeeID,
		Date:       c.Query("date"),
		Status:     c.Query("status"),
	})
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": items})
}

func (ac *AppointmentController) ChangeStatus(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input StatusInput
	if !bindJSON(c, &input) {
		return
	}
	appt, err := ac.Booking.ChangeStatus(c.Request.Context(), actor, id, input.Status)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (ac *AppointmentController) Cancel(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	appt, err := ac.Booking.CancelByUser(c.Request.Context(), actor, id)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}
