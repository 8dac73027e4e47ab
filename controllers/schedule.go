package controllers

import (
	"beautyhub-backend/models"
	"beautyhub-backend/services"
	"beautyhub-backend/utils"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ScheduleAdmin interface {
	Create(ctx context.Context, actor utils.Principal, in services.CreateScheduleInput) (*models.Schedule, error)
	List(ctx context.Context, actor utils.Principal, salonID uuid.UUID, date string) ([]models.Schedule, error)
	Deactivate(ctx context.Context, actor utils.Principal, id uuid.UUID) error
}

type SlotReader interface {
	Slots(ctx context.Context, salonID uuid.UUID, date string, employeeID *uuid.UUID, step int) ([]services.Slot, error)
	SalonSchedules(ctx context.Context, salonID uuid.UUID, date string, page, limit int) (*services.SchedulePage, error)
	Filters(ctx context.Context, salonID uuid.UUID, startDate string) ([]services.DayFilter, error)
	EmployeeWeek(ctx context.Context, employeeID uuid.UUID, startDate string, page, limit int) (*services.EmployeeWeek, error)
}

// ScheduleController serves schedule administration and the public slot views.
type ScheduleController struct {
	Schedules ScheduleAdmin
	Slots     SlotReader
}

func (sc *ScheduleController) Create(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var input services.CreateScheduleInput
	if !bindJSON(c, &input) {
		return
	}
	schedule, err := sc.Schedules.Create(c.Request.Context(), actor, input)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, schedule)
}

// List expects ?salon_id and an optional ?date.
func (sc *ScheduleController) List(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	salonID, ok := optionalUUIDQuery(c, "salon_id")
	if !ok {
		return
	}
	if salonID == nil {
		if actor.SalonID == nil {
			utils.RespondWithError(c, http.StatusBadRequest, "salon_id is required")
			return
		}
		salonID = actor.SalonID
	}
	schedules, err := sc.Schedules.List(c.Request.Context(), actor, *salonID, c.Query("date"))
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}

func (sc *ScheduleController) Deactivate(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := sc.Schedules.Deactivate(c.Request.Context(), actor, id); err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Schedule deactivated"})
}

func (sc *ScheduleController) SalonSchedules(c *gin.Context) {
	salonID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	page, err := sc.Slots.SalonSchedules(c.Request.Context(), salonID, c.Query("date"), intQuery(c, "page", 1), intQuery(c, "limit", 10))
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (sc *ScheduleController) Filters(c *gin.Context) {
	salonID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	days, err := sc.Slots.Filters(c.Request.Context(), salonID, c.Query("start_date"))
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

func (sc *ScheduleController) EmployeeWeek(c *gin.Context) {
	employeeID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	week, err := sc.Slots.EmployeeWeek(c.Request.Context(), employeeID, c.Query("start_date"), intQuery(c, "page", 1), intQuery(c, "limit", 10))
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, week)
}

// TimeSlots expects ?salon_id&date with optional ?employee_id&slot_minutes.
func (sc *ScheduleController) TimeSlots(c *gin.Context) {
	salonID, ok := optionalUUIDQuery(c, "salon_id")
	if !ok {
		return
	}
	if salonID == nil {
		utils.RespondWithError(c, http.StatusBadRequest, "salon_id is required")
		return
	}
	employeeID, ok := optionalUUIDQuery(c, "employee_id")
	if !ok {
		return
	}
	slots, err := sc.Slots.Slots(c.Request.Context(), *salonID, c.Query("date"), employeeID, intQuery(c, "slot_minutes", 0))
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}
