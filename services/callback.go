package services

import (
	"beautyhub-backend/clients/click"
	"beautyhub-backend/models"
	"beautyhub-backend/repository"
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CallbackRequest is the form Click posts to the merchant callback. Values
// stay strings because the signature is computed over them verbatim.
type CallbackRequest struct {
	ClickTransID      string `form:"click_trans_id" json:"click_trans_id"`
	ServiceID         string `form:"service_id" json:"service_id"`
	ClickPaydocID     string `form:"click_paydoc_id" json:"click_paydoc_id"`
	MerchantTransID   string `form:"merchant_trans_id" json:"merchant_trans_id"`
	MerchantPrepareID string `form:"merchant_prepare_id" json:"merchant_prepare_id"`
	Amount            string `form:"amount" json:"amount"`
	Action            string `form:"action" json:"action"`
	Error             string `form:"error" json:"error"`
	ErrorNote         string `form:"error_note" json:"error_note"`
	SignTime          string `form:"sign_time" json:"sign_time"`
	SignString        string `form:"sign_string" json:"sign_string"`
}

type CallbackResponse struct {
	ClickTransID      string `json:"click_trans_id"`
	MerchantTransID   string `json:"merchant_trans_id"`
	MerchantPrepareID int64  `json:"merchant_prepare_id,omitempty"`
	MerchantConfirmID int64  `json:"merchant_confirm_id,omitempty"`
	Error             int    `json:"error,string"`
	ErrorNote         string `json:"error_note"`
}

type CallbackDeps interface {
	TxRunner
	PaymentStore
}

// EntitlementApplier grants what a completed payment bought.
type EntitlementApplier interface {
	Apply(ctx context.Context, p *models.Payment) error
}

// CallbackService answers Click prepare and complete callbacks.
type CallbackService struct {
	store        CallbackDeps
	entitlements EntitlementApplier
	secret       string
	now          func() time.Time
}

func NewCallbackService(store CallbackDeps, entitlements EntitlementApplier, secret string) *CallbackService {
	return &CallbackService{store: store, entitlements: entitlements, secret: secret, now: time.Now}
}

var errAlreadyCompleted = errors.New("payment already completed")

func (r CallbackRequest) missingFields() bool {
	return r.ClickTransID == "" || r.ServiceID == "" || r.MerchantTransID == "" ||
		r.Amount == "" || r.Action == "" || r.SignTime == "" || r.SignString == ""
}

// Handle validates the callback and answers with Click's error code table.
// Nothing is written before the signature checks out.
func (s *CallbackService) Handle(ctx context.Context, req CallbackRequest) CallbackResponse {
	resp := s.handle(ctx, req)
	event := log.Info()
	if resp.Error != click.CodeOK {
		event = log.Warn()
	}
	event.
		Str("merchant_trans_id", req.MerchantTransID).
		Str("click_trans_id", req.ClickTransID).
		Str("action", req.Action).
		Int("code", resp.Error).
		Msg("payment callback")
	return resp
}

func (s *CallbackService) handle(ctx context.Context, req CallbackRequest) CallbackResponse {
	resp := CallbackResponse{ClickTransID: req.ClickTransID, MerchantTransID: req.MerchantTransID}
	answer := func(code int, note string) CallbackResponse {
		resp.Error = code
		resp.ErrorNote = note
		return resp
	}

	if req.missingFields() {
		return answer(click.CodeBadRequest, "Error in request from click")
	}
	action, err := strconv.Atoi(req.Action)
	if err != nil {
		return answer(click.CodeBadRequest, "Error in request from click")
	}
	expected := click.CallbackSign(req.ClickTransID, req.ServiceID, s.secret, req.MerchantTransID,
		req.MerchantPrepareID, req.Amount, action, req.SignTime)
	if !click.VerifyCallbackSign(expected, req.SignString) {
		return answer(click.CodeSignFailed, "SIGN CHECK FAILED!")
	}
	if action != click.ActionPrepare && action != click.ActionComplete {
		return answer(click.CodeActionNotFound, "Action not found")
	}

	paymentID, err := uuid.Parse(req.MerchantTransID)
	if err != nil {
		return answer(click.CodeOrderNotFound, "Order not found")
	}
	payment, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return answer(click.CodeOrderNotFound, "Order not found")
		}
		log.Error().Err(err).Str("payment_id", paymentID.String()).Msg("failed to load payment")
		return answer(click.CodeUpdateFailed, "Failed to load payment")
	}

	amount, err := strconv.ParseFloat(req.Amount, 64)
	if err != nil {
		return answer(click.CodeBadRequest, "Error in request from click")
	}
	if math.Abs(amount-payment.Amount) > 0.01 {
		return answer(click.CodeIncorrectAmount, "Incorrect parameter amount")
	}

	if payment.Status == models.PaymentCompleted {
		if action == click.ActionComplete && payment.ProviderTxnID != nil && *payment.ProviderTxnID == req.ClickTransID {
			if payment.PrepareID != nil {
				resp.MerchantConfirmID = *payment.PrepareID
			}
			return answer(click.CodeOK, "Success")
		}
		return answer(click.CodeAlreadyPaid, "Already paid")
	}
	if payment.Status == models.PaymentFailed {
		return answer(click.CodeTransactionFailed, "Transaction cancelled")
	}

	if code, _ := strconv.Atoi(req.Error); code < 0 {
		s.fail(ctx, payment, req.ErrorNote)
		return answer(click.CodeTransactionFailed, "Transaction cancelled")
	}

	if action == click.ActionPrepare {
		prepareID, err := s.prepare(ctx, payment)
		if err != nil {
			log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("failed to prepare payment")
			return answer(click.CodeUpdateFailed, "Failed to update payment")
		}
		resp.MerchantPrepareID = prepareID
		return answer(click.CodeOK, "Success")
	}

	if payment.PrepareID == nil {
		return answer(click.CodeTransactionError, "Transaction does not exist")
	}
	if prepareID, err := strconv.ParseInt(req.MerchantPrepareID, 10, 64); err != nil || prepareID != *payment.PrepareID {
		return answer(click.CodeTransactionError, "Transaction does not exist")
	}

	err = s.complete(ctx, payment, req.ClickTransID)
	switch {
	case errors.Is(err, errAlreadyCompleted):
		// A concurrent delivery won the transition.
		latest, lerr := s.store.GetPayment(ctx, payment.ID)
		if lerr == nil && latest.ProviderTxnID != nil && *latest.ProviderTxnID == req.ClickTransID {
			resp.MerchantConfirmID = *payment.PrepareID
			return answer(click.CodeOK, "Success")
		}
		return answer(click.CodeAlreadyPaid, "Already paid")
	case errors.Is(err, repository.ErrDuplicate):
		return answer(click.CodeTransactionError, "Transaction already used")
	case err != nil:
		log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("failed to complete payment")
		return answer(click.CodeUpdateFailed, "Failed to update payment")
	}
	resp.MerchantConfirmID = *payment.PrepareID
	return answer(click.CodeOK, "Success")
}

// prepare moves the payment to pending and assigns its prepare id. A repeated
// prepare returns the id assigned the first time.
func (s *CallbackService) prepare(ctx context.Context, p *models.Payment) (int64, error) {
	columns := []string{}
	if p.Status != models.PaymentPending {
		next, err := nextPaymentStatus(ctx, p.Status, paymentEventPrepare)
		if err != nil {
			return 0, err
		}
		p.Status = next
		columns = append(columns, "status")
	}
	if p.PrepareID == nil {
		id := s.now().UnixMilli()
		p.PrepareID = &id
		columns = append(columns, "prepare_id")
	}
	if len(columns) > 0 {
		if err := s.store.UpdatePayment(ctx, p, columns...); err != nil {
			return 0, err
		}
	}
	return *p.PrepareID, nil
}

// complete marks the payment completed and applies its entitlement in one
// transaction. Only the call that performs the transition applies anything.
func (s *CallbackService) complete(ctx context.Context, p *models.Payment, clickTransID string) error {
	if _, err := nextPaymentStatus(ctx, p.Status, paymentEventComplete); err != nil {
		return err
	}
	now := s.now().UTC()
	return s.store.RunInTx(ctx, func(ctx context.Context) error {
		applied, err := s.store.CompletePayment(ctx, p.ID, clickTransID, now)
		if err != nil {
			return err
		}
		if !applied {
			return errAlreadyCompleted
		}
		p.Status = models.PaymentCompleted
		p.ProviderTxnID = &clickTransID
		p.CompletedAt = &now
		return s.entitlements.Apply(ctx, p)
	})
}

func (s *CallbackService) fail(ctx context.Context, p *models.Payment, note string) {
	next, err := nextPaymentStatus(ctx, p.Status, paymentEventFail)
	if err != nil {
		return
	}
	p.Status = next
	p.ErrorNote = note
	if err := s.store.UpdatePayment(ctx, p, "status", "error_note"); err != nil {
		log.Error().Err(err).Str("payment_id", p.ID.String()).Msg("failed to mark payment failed")
	}
}
