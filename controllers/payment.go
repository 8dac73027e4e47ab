package controllers

import (
	"beautyhub-backend/models"
	"beautyhub-backend/services"
	"beautyhub-backend/utils"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Payments interface {
	CreateInvoice(ctx context.Context, actor utils.Principal, kind services.PurchaseKind, in services.PurchaseInput) (*services.PurchaseResult, error)
	DirectPurchase(ctx context.Context, actor utils.Principal, kind services.PurchaseKind, in services.PurchaseInput) (*services.PurchaseResult, error)
	Get(ctx context.Context, actor utils.Principal, id uuid.UUID) (*models.Payment, error)
	History(ctx context.Context, actor utils.Principal, limit, offset int) (*services.PaymentPage, error)
	SetAutoPay(ctx context.Context, actor utils.Principal, enabled bool) error
}

type Cards interface {
	Create(ctx context.Context, actor utils.Principal, in services.CardInput) (*models.PaymentCard, error)
	Verify(ctx context.Context, actor utils.Principal, cardID uuid.UUID, smsCode string) (*models.PaymentCard, error)
	List(ctx context.Context, actor utils.Principal) ([]models.PaymentCard, error)
	Delete(ctx context.Context, actor utils.Principal, cardID uuid.UUID) error
	SetDefault(ctx context.Context, actor utils.Principal, cardID uuid.UUID) (*models.PaymentCard, error)
}

type CallbackHandler interface {
	Handle(ctx context.Context, req services.CallbackRequest) services.CallbackResponse
}

type PremiumReader interface {
	ActivePremium(ctx context.Context, userID uuid.UUID) (*models.UserPremium, error)
}

// PaymentController serves purchases, saved cards, premium settings and
// the provider callback.
type PaymentController struct {
	Payments     Payments
	Cards        Cards
	Callbacks    CallbackHandler
	Entitlements PremiumReader
}

type VerifyCardInput struct {
	CardID  uuid.UUID `json:"card_id" binding:"required"`
	SmsCode string    `json:"sms_code" binding:"required"`
}

type AutoPayInput struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// Invoice creates a payment of kind settled through a provider invoice.
func (pc *PaymentController) Invoice(kind services.PurchaseKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := principal(c)
		if !ok {
			return
		}
		var input services.PurchaseInput
		if !bindJSON(c, &input) {
			return
		}
		res, err := pc.Payments.CreateInvoice(c.Request.Context(), actor, kind, input)
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}
		c.JSON(http.StatusCreated, res)
	}
}

// Direct charges a saved card for a payment of kind.
func (pc *PaymentController) Direct(kind services.PurchaseKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := principal(c)
		if !ok {
			return
		}
		var input services.PurchaseInput
		if !bindJSON(c, &input) {
			return
		}
		res, err := pc.Payments.DirectPurchase(c.Request.Context(), actor, kind, input)
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}
		c.JSON(http.StatusCreated, res)
	}
}

func (pc *PaymentController) Get(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	payment, err := pc.Payments.Get(c.Request.Context(), actor, id)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (pc *PaymentController) History(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	page, err := pc.Payments.History(c.Request.Context(), actor, intQuery(c, "limit", 0), intQuery(c, "offset", 0))
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (pc *PaymentController) Premium(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	premium, err := pc.Entitlements.ActivePremium(c.Request.Context(), actor.ID)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": premium != nil, "premium": premium})
}

func (pc *PaymentController) SetAutoPay(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var input AutoPayInput
	if !bindJSON(c, &input) {
		return
	}
	if err := pc.Payments.SetAutoPay(c.Request.Context(), actor, *input.Enabled); err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auto_pay": *input.Enabled})
}

func (pc *PaymentController) CreateCard(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var input services.CardInput
	if !bindJSON(c, &input) {
		return
	}
	card, err := pc.Cards.Create(c.Request.Context(), actor, input)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"card": card, "message": "SMS code sent to the card holder"})
}

func (pc *PaymentController) VerifyCard(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var input VerifyCardInput
	if !bindJSON(c, &input) {
		return
	}
	card, err := pc.Cards.Verify(c.Request.Context(), actor, input.CardID, input.SmsCode)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (pc *PaymentController) ListCards(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	cards, err := pc.Cards.List(c.Request.Context(), actor)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": cards})
}

func (pc *PaymentController) DeleteCard(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := pc.Cards.Delete(c.Request.Context(), actor, id); err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Card deleted"})
}

func (pc *PaymentController) SetDefaultCard(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	card, err := pc.Cards.SetDefault(c.Request.Context(), actor, id)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// Callback answers the provider with its error code table. The body is
// always JSON with status 200; a malformed request yields error -8.
func (pc *PaymentController) Callback(c *gin.Context) {
	var req services.CallbackRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Warn().Err(err).Msg("malformed payment callback")
	}
	c.JSON(http.StatusOK, pc.Callbacks.Handle(c.Request.Context(), req))
}
