package services

import (
	"beautyhub-backend/clients/click"
	"beautyhub-backend/models"
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "click-secret"

type callbackFixture struct {
	store   *fakeStore
	svc     *CallbackService
	payment *models.Payment
	empID   uuid.UUID
}

func newCallbackFixture(t *testing.T) *callbackFixture {
	t.Helper()
	store := newFakeStore()
	ent := NewEntitlementService(store)
	svc := NewCallbackService(store, ent, testSecret)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }

	empID := uuid.New()
	p := &models.Payment{
		UserID:     uuid.New(),
		PayerRole:  "employee",
		PaymentFor: PaymentFor{Action: ActionPost, EntityID: empID, Quantity: 3}.String(),
		Amount:     30000,
		Status:     models.PaymentCreated,
	}
	require.NoError(t, store.CreatePayment(context.Background(), p))
	return &callbackFixture{store: store, svc: svc, payment: p, empID: empID}
}

func signed(req CallbackRequest) CallbackRequest {
	action, _ := strconv.Atoi(req.Action)
	req.SignString = click.CallbackSign(req.ClickTransID, req.ServiceID, testSecret, req.MerchantTransID,
		req.MerchantPrepareID, req.Amount, action, req.SignTime)
	return req
}

func (f *callbackFixture) prepareRequest(clickTransID string) CallbackRequest {
	return signed(CallbackRequest{
		ClickTransID:    clickTransID,
		ServiceID:       "100",
		MerchantTransID: f.payment.ID.String(),
		Amount:          "30000.00",
		Action:          "0",
		Error:           "0",
		SignTime:        "2025-06-01 10:00:00",
	})
}

func (f *callbackFixture) completeRequest(clickTransID string, prepareID int64) CallbackRequest {
	return signed(CallbackRequest{
		ClickTransID:      clickTransID,
		ServiceID:         "100",
		MerchantTransID:   f.payment.ID.String(),
		MerchantPrepareID: strconv.FormatInt(prepareID, 10),
		Amount:            "30000.00",
		Action:            "1",
		Error:             "0",
		SignTime:          "2025-06-01 10:00:05",
	})
}

func (f *callbackFixture) stored(t *testing.T) *models.Payment {
	t.Helper()
	p, err := f.store.GetPayment(context.Background(), f.payment.ID)
	require.NoError(t, err)
	return p
}

func TestCallbackPrepareAndComplete(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()

	prep := f.svc.Handle(ctx, f.prepareRequest("555"))
	require.Equal(t, click.CodeOK, prep.Error)
	require.NotZero(t, prep.MerchantPrepareID)
	assert.Equal(t, models.PaymentPending, f.stored(t).Status)

	again := f.svc.Handle(ctx, f.prepareRequest("555"))
	assert.Equal(t, click.CodeOK, again.Error)
	assert.Equal(t, prep.MerchantPrepareID, again.MerchantPrepareID)

	done := f.svc.Handle(ctx, f.completeRequest("555", prep.MerchantPrepareID))
	require.Equal(t, click.CodeOK, done.Error, done.ErrorNote)
	assert.Equal(t, prep.MerchantPrepareID, done.MerchantConfirmID)

	p := f.stored(t)
	assert.Equal(t, models.PaymentCompleted, p.Status)
	require.NotNil(t, p.ProviderTxnID)
	assert.Equal(t, "555", *p.ProviderTxnID)
	assert.Equal(t, 3, f.store.postLimits[f.empID].TotalPaid)
}

func TestCallbackCompleteIsIdempotent(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()
	prep := f.svc.Handle(ctx, f.prepareRequest("555"))
	require.Equal(t, click.CodeOK, prep.Error)
	require.Equal(t, click.CodeOK, f.svc.Handle(ctx, f.completeRequest("555", prep.MerchantPrepareID)).Error)

	redelivered := f.svc.Handle(ctx, f.completeRequest("555", prep.MerchantPrepareID))
	assert.Equal(t, click.CodeOK, redelivered.Error)
	assert.Equal(t, 3, f.store.postLimits[f.empID].TotalPaid, "entitlement applied once")

	other := f.svc.Handle(ctx, f.completeRequest("556", prep.MerchantPrepareID))
	assert.Equal(t, click.CodeAlreadyPaid, other.Error)

	late := f.svc.Handle(ctx, f.prepareRequest("557"))
	assert.Equal(t, click.CodeAlreadyPaid, late.Error)
	assert.Equal(t, 3, f.store.postLimits[f.empID].TotalPaid)
}

func TestCallbackBadSignatureChangesNothing(t *testing.T) {
	f := newCallbackFixture(t)
	req := f.prepareRequest("555")
	req.SignString = "deadbeef"

	resp := f.svc.Handle(context.Background(), req)
	assert.Equal(t, click.CodeSignFailed, resp.Error)

	p := f.stored(t)
	assert.Equal(t, models.PaymentCreated, p.Status)
	assert.Nil(t, p.PrepareID)
	assert.Empty(t, f.store.postLimits)
}

func TestCallbackErrorCodes(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  func() CallbackRequest
		want int
	}{
		{"missing field", func() CallbackRequest {
			r := f.prepareRequest("555")
			r.SignTime = ""
			return r
		}, click.CodeBadRequest},
		{"non numeric action", func() CallbackRequest {
			r := f.prepareRequest("555")
			r.Action = "x"
			return r
		}, click.CodeBadRequest},
		{"unknown action", func() CallbackRequest {
			r := f.prepareRequest("555")
			r.Action = "5"
			return signed(r)
		}, click.CodeActionNotFound},
		{"unknown order", func() CallbackRequest {
			r := f.prepareRequest("555")
			r.MerchantTransID = uuid.New().String()
			return signed(r)
		}, click.CodeOrderNotFound},
		{"malformed order", func() CallbackRequest {
			r := f.prepareRequest("555")
			r.MerchantTransID = "order-1"
			return signed(r)
		}, click.CodeOrderNotFound},
		{"amount mismatch", func() CallbackRequest {
			r := f.prepareRequest("555")
			r.Amount = "29000.00"
			return signed(r)
		}, click.CodeIncorrectAmount},
		{"complete without prepare", func() CallbackRequest {
			return f.completeRequest("555", 42)
		}, click.CodeTransactionError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.svc.Handle(ctx, tt.req())
			assert.Equal(t, tt.want, resp.Error)
		})
	}
	assert.Equal(t, models.PaymentCreated, f.stored(t).Status)
}

func TestCallbackPrepareIDMismatch(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()
	prep := f.svc.Handle(ctx, f.prepareRequest("555"))
	require.Equal(t, click.CodeOK, prep.Error)

	resp := f.svc.Handle(ctx, f.completeRequest("555", prep.MerchantPrepareID+1))
	assert.Equal(t, click.CodeTransactionError, resp.Error)
	assert.Equal(t, models.PaymentPending, f.stored(t).Status)
}

func TestCallbackProviderErrorFailsPayment(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()
	prep := f.svc.Handle(ctx, f.prepareRequest("555"))
	require.Equal(t, click.CodeOK, prep.Error)

	req := f.completeRequest("555", prep.MerchantPrepareID)
	req.Error = "-5017"
	req.ErrorNote = "insufficient funds"
	resp := f.svc.Handle(ctx, signed(req))
	assert.Equal(t, click.CodeTransactionFailed, resp.Error)

	p := f.stored(t)
	assert.Equal(t, models.PaymentFailed, p.Status)
	assert.Equal(t, "insufficient funds", p.ErrorNote)

	again := f.svc.Handle(ctx, f.completeRequest("555", prep.MerchantPrepareID))
	assert.Equal(t, click.CodeTransactionFailed, again.Error)
	assert.Empty(t, f.store.postLimits)
}

func TestCallbackReconcilesErroredPayment(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()
	f.store.payments[f.payment.ID].Status = models.PaymentError

	prep := f.svc.Handle(ctx, f.prepareRequest("555"))
	require.Equal(t, click.CodeOK, prep.Error)
	done := f.svc.Handle(ctx, f.completeRequest("555", prep.MerchantPrepareID))
	assert.Equal(t, click.CodeOK, done.Error)
	assert.Equal(t, models.PaymentCompleted, f.stored(t).Status)
}

func TestCallbackResponseRendersErrorAsString(t *testing.T) {
	data, err := json.Marshal(CallbackResponse{Error: click.CodeSignFailed, ErrorNote: "SIGN CHECK FAILED!"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error":"-1"`)
}
