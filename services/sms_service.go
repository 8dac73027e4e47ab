// services/sms_service.go
package services

import (
	"beautyhub-backend/config"
	"beautyhub-backend/models"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageAPI is the part of the Twilio REST API the service uses.
type messageAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SmsService sends customer notices through Twilio and records every
// attempt in sms_logs.
type SmsService struct {
	logs SmsLogStore
	api  messageAPI
	from string
	now  func() time.Time
}

func NewSmsService(logs SmsLogStore, cfg config.TwilioConfig) *SmsService {
	s := &SmsService{logs: logs, from: cfg.PhoneNumber, now: time.Now}
	if cfg.Enabled() {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
		s.api = client.Api
	}
	return s
}

func (s *SmsService) Enabled() bool {
	return s != nil && s.api != nil
}

// Send delivers body to phone. Failures are logged and recorded, never
// returned to the caller's flow.
func (s *SmsService) Send(ctx context.Context, appointmentID *uuid.UUID, phone, body string) {
	if !s.Enabled() {
		log.Debug().Str("phone", phone).Msg("sms disabled, notice skipped")
		return
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(s.from)
	params.SetBody(body)

	entry := models.SmsLog{
		AppointmentID: appointmentID,
		Phone:         phone,
		Message:       body,
		Status:        "sent",
		SentAt:        s.now(),
	}

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		log.Error().Err(err).Str("phone", phone).Msg("failed to send sms")
		entry.Status = "failed"
		entry.ErrorMessage = err.Error()
	} else if resp != nil && resp.Sid != nil {
		entry.ProviderSid = *resp.Sid
		log.Info().Str("phone", phone).Str("sid", *resp.Sid).Msg("sms sent")
	}

	if err := s.logs.CreateSmsLog(ctx, &entry); err != nil {
		log.Error().Err(err).Str("phone", phone).Msg("failed to record sms")
	}
}
