package controllers

import (
	"beautyhub-backend/services"
	"beautyhub-backend/utils"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ChatReader interface {
	ListConversations(ctx context.Context, actor utils.Principal) ([]services.ConversationView, error)
	Messages(ctx context.Context, actor utils.Principal, conversationID uuid.UUID, limit, offset int) (*services.HistoryPage, error)
}

type ChatController struct {
	Chats ChatReader
}

func (cc *ChatController) Conversations(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	convs, err := cc.Chats.ListConversations(c.Request.Context(), actor)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

func (cc *ChatController) Messages(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	page, err := cc.Chats.Messages(c.Request.Context(), actor, id, intQuery(c, "limit", 0), intQuery(c, "offset", 0))
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
