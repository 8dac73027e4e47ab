package services

import (
	"beautyhub-backend/apperrors"
	"beautyhub-backend/clients/click"
	"context"
	"errors"
)

// PaymentProvider is the slice of the Click merchant API the services use.
type PaymentProvider interface {
	RequestCardToken(ctx context.Context, in click.CardTokenRequest) (*click.CardTokenResponse, error)
	VerifyCardToken(ctx context.Context, cardToken, smsCode string) (*click.CardVerifyResponse, error)
	PayWithCardToken(ctx context.Context, cardToken string, amount float64, merchantTransID string) (*click.CardPaymentResponse, error)
	DeleteCardToken(ctx context.Context, cardToken string) error
	CreateInvoice(ctx context.Context, amount float64, phone, merchantTransID string) (*click.InvoiceResponse, error)
	PaymentURL(amount float64, merchantTransID, returnURL string) string
}

// providerFailure converts a provider call error into the client-facing
// error, flagging timeouts so the caller knows to check the status later.
func providerFailure(err error) *apperrors.Error {
	if click.IsTimeout(err) {
		return apperrors.ProviderError("Payment provider timed out, check the payment status", true).Wrap(err)
	}
	var perr *click.ProviderError
	if errors.As(err, &perr) {
		return apperrors.ProviderError(perr.Note, false).Wrap(err)
	}
	return apperrors.ProviderError("Payment provider is unavailable", false).Wrap(err)
}
