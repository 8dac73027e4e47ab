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

type BusySlots interface {
	Create(ctx context.Context, actor utils.Principal, in services.BusySlotInput) (*models.BusySlot, error)
	List(ctx context.Context, actor utils.Principal, employeeID *uuid.UUID, fromDate string) ([]models.BusySlot, error)
	Delete(ctx context.Context, actor utils.Principal, id uuid.UUID) error
}

type PostQuota interface {
	PostLimits(ctx context.Context, employeeID uuid.UUID) (*services.PostLimitView, error)
	ConsumePost(ctx context.Context, employeeID uuid.UUID) (*services.PostLimitView, error)
}

// EmployeeController serves the employee workspace: busy slots and post quota.
type EmployeeController struct {
	Busy  BusySlots
	Posts PostQuota
}

func (ec *EmployeeController) CreateBusySlot(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var input services.BusySlotInput
	if !bindJSON(c, &input) {
		return
	}
	slot, err := ec.Busy.Create(c.Request.Context(), actor, input)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

func (ec *EmployeeController) ListBusySlots(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	employeeID, ok := optionalUUIDQuery(c, "employee_id")
	if !ok {
		return
	}
	slots, err := ec.Busy.List(c.Request.Context(), actor, employeeID, c.Query("from_date"))
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"busy_slots": slots})
}

func (ec *EmployeeController) DeleteBusySlot(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := ec.Busy.Delete(c.Request.Context(), actor, id); err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Busy slot deleted"})
}

func (ec *EmployeeController) PostLimits(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	view, err := ec.Posts.PostLimits(c.Request.Context(), actor.ID)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (ec *EmployeeController) ConsumePost(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	view, err := ec.Posts.ConsumePost(c.Request.Context(), actor.ID)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
