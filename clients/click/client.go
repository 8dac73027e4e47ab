// Package click is a client for the Click merchant API (card tokens and
// invoices) plus the signature scheme of its callbacks.
package click

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultTimeout = 30 * time.Second

type Config struct {
	BaseURL        string
	MerchantID     string
	ServiceID      string
	SecretKey      string
	MerchantUserID string
}

type HTTPClient struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
}

func NewHTTPClient(cfg Config) *HTTPClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &HTTPClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		now:        time.Now,
	}
}

// ProviderError is a non-zero error_code returned by Click.
type ProviderError struct {
	Code int
	Note string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("click error %d: %s", e.Code, e.Note)
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type CardTokenRequest struct {
	CardNumber string
	ExpireDate string // MMYY
	Temporary  bool
}

type CardTokenResponse struct {
	CardToken   string `json:"card_token"`
	PhoneNumber string `json:"phone_number"`
	Temporary   int    `json:"temporary"`
}

type CardVerifyResponse struct {
	CardNumber string `json:"card_number"`
}

type CardPaymentResponse struct {
	PaymentID     int64 `json:"payment_id"`
	PaymentStatus int   `json:"payment_status"`
}

type InvoiceResponse struct {
	InvoiceID int64 `json:"invoice_id"`
}

type envelope struct {
	ErrorCode int    `json:"error_code"`
	ErrorNote string `json:"error_note"`
}

// authHeader renders "merchant_user_id:sha1(timestamp+secret):timestamp".
func (c *HTTPClient) authHeader() string {
	ts := strconv.FormatInt(c.now().Unix(), 10)
	return c.cfg.MerchantUserID + ":" + SHA1Hex(ts+c.cfg.SecretKey) + ":" + ts
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Auth", c.authHeader())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("click request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("click returned status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if env.ErrorCode != 0 {
		return &ProviderError{Code: env.ErrorCode, Note: env.ErrorNote}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("click returned status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *HTTPClient) serviceID() int64 {
	id, _ := strconv.ParseInt(c.cfg.ServiceID, 10, 64)
	return id
}

// RequestCardToken registers a card and triggers the SMS confirmation code.
func (c *HTTPClient) RequestCardToken(ctx context.Context, in CardTokenRequest) (*CardTokenResponse, error) {
	body := map[string]interface{}{
		"service_id":  c.serviceID(),
		"card_number": in.CardNumber,
		"expire_date": in.ExpireDate,
		"temporary":   boolInt(in.Temporary),
	}
	var out CardTokenResponse
	if err := c.do(ctx, http.MethodPost, "/card_token/request", body, &out); err != nil {
		return nil, err
	}
	if out.CardToken == "" {
		return nil, errors.New("click returned no card token")
	}
	return &out, nil
}

func (c *HTTPClient) VerifyCardToken(ctx context.Context, cardToken, smsCode string) (*CardVerifyResponse, error) {
	code, err := strconv.Atoi(smsCode)
	if err != nil {
		return nil, fmt.Errorf("invalid sms code: %w", err)
	}
	body := map[string]interface{}{
		"service_id": c.serviceID(),
		"card_token": cardToken,
		"sms_code":   code,
	}
	var out CardVerifyResponse
	if err := c.do(ctx, http.MethodPost, "/card_token/verify", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PayWithCardToken charges a verified token. merchantTransID is echoed back
// in the callback.
func (c *HTTPClient) PayWithCardToken(ctx context.Context, cardToken string, amount float64, merchantTransID string) (*CardPaymentResponse, error) {
	body := map[string]interface{}{
		"service_id":            c.serviceID(),
		"card_token":            cardToken,
		"amount":                amount,
		"transaction_parameter": merchantTransID,
	}
	var out CardPaymentResponse
	if err := c.do(ctx, http.MethodPost, "/card_token/payment", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteCardToken(ctx context.Context, cardToken string) error {
	path := "/card_token/" + url.PathEscape(c.cfg.ServiceID) + "/" + url.PathEscape(cardToken)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *HTTPClient) CreateInvoice(ctx context.Context, amount float64, phone, merchantTransID string) (*InvoiceResponse, error) {
	body := map[string]interface{}{
		"service_id":        c.serviceID(),
		"amount":            amount,
		"phone_number":      strings.TrimPrefix(phone, "+"),
		"merchant_trans_id": merchantTransID,
	}
	var out InvoiceResponse
	if err := c.do(ctx, http.MethodPost, "/invoice/create", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PaymentURL builds the hosted checkout link for a payment.
func (c *HTTPClient) PaymentURL(amount float64, merchantTransID, returnURL string) string {
	q := url.Values{}
	q.Set("service_id", c.cfg.ServiceID)
	q.Set("merchant_id", c.cfg.MerchantID)
	q.Set("amount", strconv.FormatFloat(amount, 'f', 2, 64))
	q.Set("transaction_param", merchantTransID)
	if returnURL != "" {
		q.Set("return_url", returnURL)
	}
	return "https://my.click.uz/services/pay?" + q.Encode()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
