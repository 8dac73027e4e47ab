package controllers

import (
	"beautyhub-backend/services"
	"beautyhub-backend/utils"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Notifications interface {
	List(ctx context.Context, actor utils.Principal, limit, offset int) (*services.NotificationPage, error)
	MarkRead(ctx context.Context, actor utils.Principal, id uuid.UUID) error
	Subscribe(ctx context.Context, actor utils.Principal) error
	Unsubscribe(ctx context.Context, actor utils.Principal) error
}

type NotificationController struct {
	Notifications Notifications
}

func (nc *NotificationController) List(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	page, err := nc.Notifications.List(c.Request.Context(), actor, intQuery(c, "limit", 0), intQuery(c, "offset", 0))
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (nc *NotificationController) MarkRead(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := nc.Notifications.MarkRead(c.Request.Context(), actor, id); err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (nc *NotificationController) Subscribe(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	if err := nc.Notifications.Subscribe(c.Request.Context(), actor); err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscribed": true})
}

func (nc *NotificationController) Unsubscribe(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	if err := nc.Notifications.Unsubscribe(c.Request.Context(), actor); err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscribed": false})
}
