package services

import (
	"beautyhub-backend/apperrors"
	"beautyhub-backend/clients/click"
	"beautyhub-backend/models"
	"beautyhub-backend/repository"
	"beautyhub-backend/utils"
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type CardDeps interface {
	TxRunner
	CardStore
}

type CardService struct {
	store    CardDeps
	provider PaymentProvider
}

func NewCardService(store CardDeps, provider PaymentProvider) *CardService {
	return &CardService{store: store, provider: provider}
}

type CardInput struct {
	CardNumber string `json:"card_number" binding:"required"`
	Expiry     string `json:"expiry" binding:"required"`
}

// normalizeCard strips separators and checks a 16 digit PAN and an MMYY expiry.
func normalizeCard(in CardInput) (string, string, time.Time, error) {
	number := strings.NewReplacer(" ", "", "-", "").Replace(in.CardNumber)
	if len(number) != 16 {
		return "", "", time.Time{}, apperrors.Validation("Card number must have 16 digits").WithCode(apperrors.CodeCardInvalid)
	}
	if _, err := strconv.ParseUint(number, 10, 64); err != nil {
		return "", "", time.Time{}, apperrors.Validation("Card number must have 16 digits").WithCode(apperrors.CodeCardInvalid)
	}

	expiry := strings.ReplaceAll(in.Expiry, "/", "")
	if len(expiry) != 4 {
		return "", "", time.Time{}, apperrors.Validation("Expiry must be MMYY").WithCode(apperrors.CodeCardInvalid)
	}
	month, err1 := strconv.Atoi(expiry[:2])
	year, err2 := strconv.Atoi(expiry[2:])
	if err1 != nil || err2 != nil || month < 1 || month > 12 {
		return "", "", time.Time{}, apperrors.Validation("Expiry must be MMYY").WithCode(apperrors.CodeCardInvalid)
	}
	// Valid through the last day of the month.
	expiresAt := time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	return number, expiry, expiresAt, nil
}

func maskCard(number string) string {
	return number[:4] + " **** **** " + number[12:]
}

// Create registers a card with the provider, which sends an SMS code to the
// card holder. The card stays inactive until Verify.
func (s *CardService) Create(ctx context.Context, actor utils.Principal, in CardInput) (*models.PaymentCard, error) {
	number, expiry, expiresAt, err := normalizeCard(in)
	if err != nil {
		return nil, err
	}
	if !expiresAt.After(time.Now()) {
		return nil, apperrors.Validation("Card has expired").WithCode(apperrors.CodeCardInvalid)
	}

	cards, err := s.store.ListCards(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load cards").Wrap(err)
	}
	var pending *models.PaymentCard
	for i := range cards {
		if !utils.CheckSecretHash(number, cards[i].NumberHash) {
			continue
		}
		if cards[i].Usable() {
			return nil, apperrors.Conflict("Card already added")
		}
		pending = &cards[i]
		break
	}

	resp, err := s.provider.RequestCardToken(ctx, click.CardTokenRequest{CardNumber: number, ExpireDate: expiry})
	if err != nil {
		log.Warn().Err(err).Str("user_id", actor.ID.String()).Msg("card token request failed")
		return nil, providerFailure(err)
	}
	var phone *string
	if resp.PhoneNumber != "" {
		phone = &resp.PhoneNumber
	}

	// A card that was added before but never verified or later removed gets
	// the fresh token instead of a second row.
	if pending != nil {
		pending.ProviderCardToken = resp.CardToken
		pending.Expiry = expiry
		pending.ExpiryAt = &expiresAt
		pending.PhoneNumber = phone
		pending.IsActive = false
		pending.IsVerified = false
		pending.IsDefault = false
		if err := s.store.UpdateCard(ctx, pending, "provider_card_token", "expiry", "expiry_at", "phone_number", "is_active", "is_verified", "is_default"); err != nil {
			return nil, apperrors.Internal("Failed to save card").Wrap(err)
		}
		return pending, nil
	}

	hash, err := utils.HashSecret(number)
	if err != nil {
		return nil, apperrors.Internal("Failed to save card").Wrap(err)
	}
	card := &models.PaymentCard{
		UserID:            actor.ID,
		NumberHash:        hash,
		ProviderCardToken: resp.CardToken,
		MaskedNumber:      maskCard(number),
		Expiry:            expiry,
		ExpiryAt:          &expiresAt,
		PhoneNumber:       phone,
	}
	if err := s.store.CreateCard(ctx, card); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("Card already added")
		}
		return nil, apperrors.Internal("Failed to save card").Wrap(err)
	}
	log.Info().Str("user_id", actor.ID.String()).Str("card_id", card.ID.String()).Msg("card token requested")
	return card, nil
}

func (s *CardService) ownedCard(ctx context.Context, actor utils.Principal, cardID uuid.UUID) (*models.PaymentCard, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Card not found")
		}
		return nil, apperrors.Internal("Failed to load card").Wrap(err)
	}
	if card.UserID != actor.ID {
		return nil, apperrors.NotFound("Card not found")
	}
	return card, nil
}

// Verify confirms the SMS code. The first verified card becomes the default.
func (s *CardService) Verify(ctx context.Context, actor utils.Principal, cardID uuid.UUID, smsCode string) (*models.PaymentCard, error) {
	card, err := s.ownedCard(ctx, actor, cardID)
	if err != nil {
		return nil, err
	}
	if card.Usable() {
		return card, nil
	}
	if _, err := s.provider.VerifyCardToken(ctx, card.ProviderCardToken, smsCode); err != nil {
		return nil, providerFailure(err)
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		_, err := s.store.GetDefaultCard(ctx, actor.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			card.IsDefault = true
		case err != nil:
			return err
		}
		card.IsActive = true
		card.IsVerified = true
		return s.store.UpdateCard(ctx, card, "is_active", "is_verified", "is_default")
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to verify card").Wrap(err)
	}
	return card, nil
}

// List returns the actor's usable cards.
func (s *CardService) List(ctx context.Context, actor utils.Principal) ([]models.PaymentCard, error) {
	cards, err := s.store.ListCards(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load cards").Wrap(err)
	}
	out := make([]models.PaymentCard, 0, len(cards))
	for _, c := range cards {
		if c.Usable() {
			out = append(out, c)
		}
	}
	return out, nil
}

// Delete revokes the token at the provider and deactivates the card. A
// provider failure is logged; the card is deactivated regardless.
func (s *CardService) Delete(ctx context.Context, actor utils.Principal, cardID uuid.UUID) error {
	card, err := s.ownedCard(ctx, actor, cardID)
	if err != nil {
		return err
	}
	if err := s.provider.DeleteCardToken(ctx, card.ProviderCardToken); err != nil {
		log.Warn().Err(err).Str("card_id", card.ID.String()).Msg("provider card token delete failed")
	}
	card.IsActive = false
	card.IsVerified = false
	card.IsDefault = false
	if err := s.store.UpdateCard(ctx, card, "is_active", "is_verified", "is_default"); err != nil {
		return apperrors.Internal("Failed to delete card").Wrap(err)
	}
	return nil
}

func (s *CardService) SetDefault(ctx context.Context, actor utils.Principal, cardID uuid.UUID) (*models.PaymentCard, error) {
	card, err := s.ownedCard(ctx, actor, cardID)
	if err != nil {
		return nil, err
	}
	if !card.Usable() {
		return nil, apperrors.Validation("Card is not verified").WithCode(apperrors.CodeCardInvalid)
	}
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.ClearDefaultCard(ctx, actor.ID); err != nil {
			return err
		}
		card.IsDefault = true
		return s.store.UpdateCard(ctx, card, "is_default")
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to update card").Wrap(err)
	}
	return card, nil
}
