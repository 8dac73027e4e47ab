package services

import (
	"beautyhub-backend/apperrors"
	"beautyhub-backend/clients/click"
	"beautyhub-backend/config"
	"beautyhub-backend/models"
	"beautyhub-backend/repository"
	"beautyhub-backend/utils"
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type PurchaseKind string

const (
	PurchaseEmployeePost PurchaseKind = "employee-post"
	PurchaseUserPremium  PurchaseKind = "user-premium"
	PurchaseSalonTop     PurchaseKind = "salon-top"
)

type PaymentDeps interface {
	TxRunner
	DirectoryStore
	PaymentStore
	CardStore
}

// PaymentService creates purchases and drives them through the invoice or
// the card token path. Completion arrives through the provider callback.
type PaymentService struct {
	store       PaymentDeps
	provider    PaymentProvider
	pricing     config.Pricing
	frontendURL string
	// newBackOff paces renewal charge retries.
	newBackOff func() backoff.BackOff
}

func NewPaymentService(store PaymentDeps, provider PaymentProvider, pricing config.Pricing, frontendURL string) *PaymentService {
	return &PaymentService{
		store:       store,
		provider:    provider,
		pricing:     pricing,
		frontendURL: frontendURL,
		newBackOff:  renewalBackOff,
	}
}

func renewalBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.MaxElapsedTime = time.Minute
	return backoff.WithMaxRetries(b, 3)
}

// PurchaseInput carries the quantity (posts, months or days) and, depending
// on the purchase, the target employee or salon.
type PurchaseInput struct {
	Quantity   int        `json:"quantity" binding:"required,min=1"`
	EmployeeID *uuid.UUID `json:"employee_id"`
	SalonID    *uuid.UUID `json:"salon_id"`
	CardID     *uuid.UUID `json:"card_id"`
	Phone      string     `json:"phone"`
}

type PurchaseResult struct {
	PaymentID         uuid.UUID            `json:"payment_id"`
	PaymentFor        string               `json:"payment_for"`
	Amount            float64              `json:"amount"`
	Status            models.PaymentStatus `json:"status"`
	InvoiceID         *string              `json:"invoice_id,omitempty"`
	PaymentURL        string               `json:"payment_url,omitempty"`
	ProviderPaymentID *string              `json:"provider_payment_id,omitempty"`
}

type purchase struct {
	key    PaymentFor
	amount float64
	phone  string
}

// resolve checks the actor may buy kind for the target and prices it.
func (s *PaymentService) resolve(ctx context.Context, actor utils.Principal, kind PurchaseKind, in PurchaseInput) (*purchase, error) {
	if in.Quantity <= 0 {
		return nil, apperrors.Validation("Quantity must be positive")
	}

	switch kind {
	case PurchaseEmployeePost:
		if in.Quantity > s.pricing.MaxPostCount {
			return nil, apperrors.Validation("Too many posts in one purchase")
		}
		employeeID := actor.ID
		if actor.Is(utils.RoleAdmin, utils.RoleSuperadmin) {
			if in.EmployeeID == nil {
				return nil, apperrors.Validation("employee_id is required")
			}
			employeeID = *in.EmployeeID
		} else if !actor.Is(utils.RoleEmployee) {
			return nil, apperrors.PermissionDenied("Only employees and salon admins can buy posts")
		}
		emp, err := s.store.GetEmployee(ctx, employeeID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NotFound("Employee not found").WithCode(apperrors.CodeEmployeeNotFound)
			}
			return nil, apperrors.Internal("Failed to load employee").Wrap(err)
		}
		if actor.Is(utils.RoleAdmin) && (actor.SalonID == nil || !emp.BelongsTo(*actor.SalonID)) {
			return nil, apperrors.PermissionDenied("Employee does not belong to your salon")
		}
		return &purchase{
			key:    PaymentFor{Action: ActionPost, EntityID: emp.ID, Quantity: in.Quantity},
			amount: s.pricing.PostTotal(in.Quantity),
			phone:  emp.Phone,
		}, nil

	case PurchaseUserPremium:
		if !actor.Is(utils.RoleUser) {
			return nil, apperrors.PermissionDenied("Only users can buy premium")
		}
		if in.Quantity > s.pricing.MaxPremiumMonths {
			return nil, apperrors.Validation("Too many months in one purchase")
		}
		user, err := s.store.GetUser(ctx, actor.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NotFound("User not found").WithCode(apperrors.CodeUserNotFound)
			}
			return nil, apperrors.Internal("Failed to load user").Wrap(err)
		}
		return &purchase{
			key:    PaymentFor{Action: ActionPremium, EntityID: user.ID, Quantity: in.Quantity},
			amount: s.pricing.PremiumTotal(in.Quantity),
			phone:  user.Phone,
		}, nil

	case PurchaseSalonTop:
		if in.SalonID == nil {
			return nil, apperrors.Validation("salon_id is required")
		}
		if !actor.ManagesSalon(*in.SalonID) {
			return nil, apperrors.PermissionDenied("Not an administrator of this salon")
		}
		if in.Quantity > s.pricing.MaxTopDays {
			return nil, apperrors.Validation("Too many days in one purchase")
		}
		salon, err := s.store.GetSalon(ctx, *in.SalonID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NotFound("Salon not found").WithCode(apperrors.CodeSalonNotFound)
			}
			return nil, apperrors.Internal("Failed to load salon").Wrap(err)
		}
		phone := ""
		if salon.Phone != nil {
			phone = *salon.Phone
		}
		return &purchase{
			key:    PaymentFor{Action: ActionSalonTop, EntityID: salon.ID, Quantity: in.Quantity},
			amount: s.pricing.TopTotal(in.Quantity),
			phone:  phone,
		}, nil
	}
	return nil, apperrors.Validation("Unknown purchase type")
}

func (s *PaymentService) newPayment(ctx context.Context, payerID uuid.UUID, role string, p *purchase, cardID *uuid.UUID) (*models.Payment, error) {
	payment := &models.Payment{
		UserID:     payerID,
		PayerRole:  role,
		PaymentFor: p.key.String(),
		Amount:     p.amount,
		Status:     models.PaymentCreated,
		CardID:     cardID,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, apperrors.Internal("Failed to create payment").Wrap(err)
	}
	log.Info().
		Str("payment_id", payment.ID.String()).
		Str("payment_for", payment.PaymentFor).
		Float64("amount", payment.Amount).
		Msg("payment created")
	return payment, nil
}

// markError records a failed provider call on the payment.
func (s *PaymentService) markError(ctx context.Context, p *models.Payment, cause error) {
	next, err := nextPaymentStatus(ctx, p.Status, paymentEventError)
	if err != nil {
		return
	}
	p.Status = next
	p.ErrorNote = cause.Error()
	if err := s.store.UpdatePayment(ctx, p, "status", "error_note"); err != nil {
		log.Error().Err(err).Str("payment_id", p.ID.String()).Msg("failed to record payment error")
	}
}

// CreateInvoice creates the payment and a provider invoice the payer settles
// in the Click app or on the returned payment page.
func (s *PaymentService) CreateInvoice(ctx context.Context, actor utils.Principal, kind PurchaseKind, in PurchaseInput) (*PurchaseResult, error) {
	p, err := s.resolve(ctx, actor, kind, in)
	if err != nil {
		return nil, err
	}
	phone := p.phone
	if in.Phone != "" {
		phone = in.Phone
	}
	normalized, ok := utils.NormalizeUzPhone(phone)
	if !ok {
		return nil, apperrors.Validation("A valid phone number is required for the invoice")
	}

	payment, err := s.newPayment(ctx, actor.ID, actor.Role, p, nil)
	if err != nil {
		return nil, err
	}

	inv, err := s.provider.CreateInvoice(ctx, payment.Amount, normalized, payment.ID.String())
	if err != nil {
		log.Warn().Err(err).Str("payment_id", payment.ID.String()).Msg("invoice creation failed")
		s.markError(ctx, payment, err)
		return nil, providerFailure(err)
	}
	invoiceID := strconv.FormatInt(inv.InvoiceID, 10)
	payment.InvoiceID = &invoiceID
	if err := s.store.UpdatePayment(ctx, payment, "invoice_id"); err != nil {
		return nil, apperrors.Internal("Failed to save invoice").Wrap(err)
	}

	return &PurchaseResult{
		PaymentID:  payment.ID,
		PaymentFor: payment.PaymentFor,
		Amount:     payment.Amount,
		Status:     payment.Status,
		InvoiceID:  payment.InvoiceID,
		PaymentURL: s.provider.PaymentURL(payment.Amount, payment.ID.String(), s.frontendURL),
	}, nil
}

// DirectPurchase charges a saved card. Without card_id the default card is used.
func (s *PaymentService) DirectPurchase(ctx context.Context, actor utils.Principal, kind PurchaseKind, in PurchaseInput) (*PurchaseResult, error) {
	p, err := s.resolve(ctx, actor, kind, in)
	if err != nil {
		return nil, err
	}
	card, err := s.payerCard(ctx, actor.ID, in.CardID)
	if err != nil {
		return nil, err
	}

	payment, err := s.newPayment(ctx, actor.ID, actor.Role, p, &card.ID)
	if err != nil {
		return nil, err
	}
	if err := s.charge(ctx, payment, card, false); err != nil {
		return nil, err
	}
	return &PurchaseResult{
		PaymentID:         payment.ID,
		PaymentFor:        payment.PaymentFor,
		Amount:            payment.Amount,
		Status:            payment.Status,
		ProviderPaymentID: payment.ProviderPaymentID,
	}, nil
}

func (s *PaymentService) payerCard(ctx context.Context, payerID uuid.UUID, cardID *uuid.UUID) (*models.PaymentCard, error) {
	var (
		card *models.PaymentCard
		err  error
	)
	if cardID != nil {
		card, err = s.store.GetCard(ctx, *cardID)
	} else {
		card, err = s.store.GetDefaultCard(ctx, payerID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Card not found").WithCode(apperrors.CodeCardInvalid)
		}
		return nil, apperrors.Internal("Failed to load card").Wrap(err)
	}
	if card.UserID != payerID {
		return nil, apperrors.NotFound("Card not found").WithCode(apperrors.CodeCardInvalid)
	}
	if !card.Usable() {
		return nil, apperrors.Validation("Card is not active or not verified").WithCode(apperrors.CodeCardInvalid)
	}
	return card, nil
}

// charge moves the payment to pending and calls card_token/payment. With
// retry set, transient network failures are retried with backoff; a timeout
// is never retried since the charge may have gone through.
func (s *PaymentService) charge(ctx context.Context, payment *models.Payment, card *models.PaymentCard, retry bool) error {
	next, err := nextPaymentStatus(ctx, payment.Status, paymentEventPrepare)
	if err != nil {
		return apperrors.PaymentState("Payment cannot be charged in its current state").Wrap(err)
	}
	payment.Status = next
	payment.CardID = &card.ID
	if err := s.store.UpdatePayment(ctx, payment, "status", "card_id"); err != nil {
		return apperrors.Internal("Failed to update payment").Wrap(err)
	}

	var resp *click.CardPaymentResponse
	op := func() error {
		var err error
		resp, err = s.provider.PayWithCardToken(ctx, card.ProviderCardToken, payment.Amount, payment.ID.String())
		if err != nil && !(retry && transient(err)) {
			return backoff.Permanent(err)
		}
		return err
	}
	err = backoff.Retry(op, backoff.WithContext(s.newBackOff(), ctx))
	if err != nil {
		log.Warn().Err(err).Str("payment_id", payment.ID.String()).Msg("card token payment failed")
		s.markError(ctx, payment, err)
		return providerFailure(err)
	}

	providerID := strconv.FormatInt(resp.PaymentID, 10)
	payment.ProviderPaymentID = &providerID
	if err := s.store.UpdatePayment(ctx, payment, "provider_payment_id"); err != nil {
		return apperrors.Internal("Failed to update payment").Wrap(err)
	}
	log.Info().Str("payment_id", payment.ID.String()).Str("provider_payment_id", providerID).Msg("card charged")
	return nil
}

// transient reports network failures that happened before the provider saw
// the request.
func transient(err error) bool {
	if click.IsTimeout(err) || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// RenewPremium charges the user's default card for another period of
// months. The callback applies the entitlement.
func (s *PaymentService) RenewPremium(ctx context.Context, userID uuid.UUID, months int) (*models.Payment, error) {
	card, err := s.payerCard(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	p := &purchase{
		key:    PaymentFor{Action: ActionPremium, EntityID: userID, Quantity: months},
		amount: s.pricing.PremiumTotal(months),
	}
	payment, err := s.newPayment(ctx, userID, utils.RoleUser, p, &card.ID)
	if err != nil {
		return nil, err
	}
	if err := s.charge(ctx, payment, card, true); err != nil {
		return payment, err
	}
	return payment, nil
}

// Get returns a payment to its payer.
func (s *PaymentService) Get(ctx context.Context, actor utils.Principal, id uuid.UUID) (*models.Payment, error) {
	p, err := s.store.GetPayment(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Payment not found")
		}
		return nil, apperrors.Internal("Failed to load payment").Wrap(err)
	}
	if p.UserID != actor.ID && !actor.Is(utils.RoleSuperadmin) {
		return nil, apperrors.NotFound("Payment not found")
	}
	return p, nil
}

type PaymentPage struct {
	Items      []models.Payment  `json:"items"`
	Pagination HistoryPagination `json:"pagination"`
}

func (s *PaymentService) History(ctx context.Context, actor utils.Principal, limit, offset int) (*PaymentPage, error) {
	limit, offset = clampPage(limit, offset)
	items, total, err := s.store.ListPayments(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, apperrors.Internal("Failed to load payments").Wrap(err)
	}
	if items == nil {
		items = []models.Payment{}
	}
	return &PaymentPage{
		Items:      items,
		Pagination: HistoryPagination{Limit: limit, Offset: offset, Total: total},
	}, nil
}

// SetAutoPay toggles premium renewal from the default card.
func (s *PaymentService) SetAutoPay(ctx context.Context, actor utils.Principal, enabled bool) error {
	if !actor.Is(utils.RoleUser) {
		return apperrors.PermissionDenied("Only users have premium")
	}
	if enabled {
		if _, err := s.payerCard(ctx, actor.ID, nil); err != nil {
			if apperrors.IsKind(err, apperrors.KindNotFound) {
				return apperrors.Validation("Add and verify a card before enabling auto-pay").WithCode(apperrors.CodeCardInvalid)
			}
			return err
		}
	}
	if err := s.store.SetUserAutoPay(ctx, actor.ID, enabled); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("User not found").WithCode(apperrors.CodeUserNotFound)
		}
		return apperrors.Internal("Failed to update auto-pay").Wrap(err)
	}
	return nil
}
