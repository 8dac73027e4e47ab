package services

import (
	"beautyhub-backend/apperrors"
	"beautyhub-backend/models"
	"beautyhub-backend/repository"
	"beautyhub-backend/utils"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type EntitlementDeps interface {
	TxRunner
	DirectoryStore
	EntitlementStore
}

// EntitlementService applies the consequences of completed payments and
// reconciles expired premiums and promotions.
type EntitlementService struct {
	store EntitlementDeps
	now   func() time.Time
}

func NewEntitlementService(store EntitlementDeps) *EntitlementService {
	return &EntitlementService{store: store, now: time.Now}
}

// Apply grants what p paid for. It must run inside the transaction that
// completed the payment.
func (s *EntitlementService) Apply(ctx context.Context, p *models.Payment) error {
	key, err := ParsePaymentFor(p.PaymentFor)
	if err != nil {
		return err
	}
	now := s.now().UTC()

	switch key.Action {
	case ActionPost:
		err = s.store.AddPaidPosts(ctx, key.EntityID, key.Quantity)
	case ActionPremium:
		_, err = s.ExtendPremium(ctx, key.EntityID, key.Quantity, now)
	case ActionSalonTop:
		err = s.promote(ctx, key.EntityID, key.Quantity, &p.UserID, &p.ID, now)
	default:
		err = fmt.Errorf("unknown entitlement %q", key.Action)
	}
	if err != nil {
		return err
	}
	log.Info().
		Str("payment_id", p.ID.String()).
		Str("action", key.Action).
		Str("entity_id", key.EntityID.String()).
		Int("quantity", key.Quantity).
		Msg("entitlement applied")
	return nil
}

// ExtendPremium keeps at most one active premium per user. The newest live
// row is extended by months counted from its start date, so extending by k
// and then m months equals one extension by k+m. Without a live row a new
// period starts now.
func (s *EntitlementService) ExtendPremium(ctx context.Context, userID uuid.UUID, months int, now time.Time) (*models.UserPremium, error) {
	var out *models.UserPremium
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		active, err := s.store.ListActivePremiums(ctx, userID)
		if err != nil {
			return err
		}

		if len(active) > 0 && active[0].EndDate.After(now) {
			newest := active[0]
			stale := make([]uuid.UUID, 0, len(active)-1)
			for _, p := range active[1:] {
				stale = append(stale, p.ID)
			}
			if err := s.store.DeactivatePremiums(ctx, stale); err != nil {
				return err
			}

			if utils.AddMonthsClamped(newest.StartDate, newest.DurationMonths).Equal(newest.EndDate) {
				newest.EndDate = utils.AddMonthsClamped(newest.StartDate, newest.DurationMonths+months)
			} else {
				newest.EndDate = utils.AddMonthsClamped(newest.EndDate, months)
			}
			newest.DurationMonths += months
			if err := s.store.SavePremium(ctx, &newest); err != nil {
				return err
			}
			out = &newest
			return nil
		}

		ids := make([]uuid.UUID, 0, len(active))
		for _, p := range active {
			ids = append(ids, p.ID)
		}
		if err := s.store.DeactivatePremiums(ctx, ids); err != nil {
			return err
		}
		created := &models.UserPremium{
			UserID:         userID,
			StartDate:      now,
			EndDate:        utils.AddMonthsClamped(now, months),
			DurationMonths: months,
			IsActive:       true,
		}
		if err := s.store.CreatePremium(ctx, created); err != nil {
			return err
		}
		out = created
		return nil
	})
	return out, err
}

// promote replaces any active promotion of the salon with a new window.
func (s *EntitlementService) promote(ctx context.Context, salonID uuid.UUID, days int, adminID, paymentID *uuid.UUID, now time.Time) error {
	return s.store.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.CloseActiveTops(ctx, salonID, now); err != nil {
			return err
		}
		if err := s.store.SetSalonTop(ctx, salonID, true); err != nil {
			return err
		}
		end := now.AddDate(0, 0, days)
		return s.store.CreateTopHistory(ctx, &models.SalonTopHistory{
			SalonID:   salonID,
			AdminID:   adminID,
			PaymentID: paymentID,
			StartDate: now,
			EndDate:   &end,
			Days:      days,
			Action:    models.TopActionPromoted,
			IsActive:  true,
		})
	})
}

// DemoteSalon ends the salon's promotion ahead of time.
func (s *EntitlementService) DemoteSalon(ctx context.Context, actor utils.Principal, salonID uuid.UUID) error {
	if !actor.ManagesSalon(salonID) {
		return apperrors.PermissionDenied("Not an administrator of this salon")
	}
	if _, err := s.store.GetSalon(ctx, salonID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("Salon not found").WithCode(apperrors.CodeSalonNotFound)
		}
		return apperrors.Internal("Failed to load salon").Wrap(err)
	}

	now := s.now().UTC()
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.CloseActiveTops(ctx, salonID, now); err != nil {
			return err
		}
		if err := s.store.CreateTopHistory(ctx, &models.SalonTopHistory{
			SalonID:   salonID,
			AdminID:   &actor.ID,
			StartDate: now,
			EndDate:   &now,
			Action:    models.TopActionDemoted,
		}); err != nil {
			return err
		}
		return s.store.SetSalonTop(ctx, salonID, false)
	})
	if err != nil {
		return apperrors.Internal("Failed to demote salon").Wrap(err)
	}
	return nil
}

type PostLimitView struct {
	EmployeeID    uuid.UUID `json:"employee_id"`
	FreeUsed      int       `json:"free_used"`
	TotalPaid     int       `json:"total_paid"`
	RemainingFree int       `json:"remaining_free"`
	RemainingPaid int       `json:"remaining_paid"`
}

func (s *EntitlementService) PostLimits(ctx context.Context, employeeID uuid.UUID) (*PostLimitView, error) {
	l, err := s.store.GetPostLimit(ctx, employeeID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load post limits").Wrap(err)
	}
	return &PostLimitView{
		EmployeeID:    employeeID,
		FreeUsed:      l.FreeUsed,
		TotalPaid:     l.TotalPaid,
		RemainingFree: l.RemainingFree(),
		RemainingPaid: l.RemainingPaid(),
	}, nil
}

// ConsumePost spends one free post, or a paid one once the free quota is gone.
func (s *EntitlementService) ConsumePost(ctx context.Context, employeeID uuid.UUID) (*PostLimitView, error) {
	ok, err := s.store.ConsumePost(ctx, employeeID, models.FreePostQuota)
	if err != nil {
		return nil, apperrors.Internal("Failed to consume post").Wrap(err)
	}
	if !ok {
		return nil, apperrors.Conflict("Post quota exhausted")
	}
	return s.PostLimits(ctx, employeeID)
}

// ActivePremium returns the user's live premium, or nil.
func (s *EntitlementService) ActivePremium(ctx context.Context, userID uuid.UUID) (*models.UserPremium, error) {
	active, err := s.store.ListActivePremiums(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load premium").Wrap(err)
	}
	now := s.now()
	for i := range active {
		if active[i].EndDate.After(now) {
			return &active[i], nil
		}
	}
	return nil, nil
}

// DedupePremiums keeps only the newest active premium of every user.
func (s *EntitlementService) DedupePremiums(ctx context.Context) (int, error) {
	users, err := s.store.ListUsersWithDuplicatePremiums(ctx)
	if err != nil {
		return 0, err
	}
	deactivated := 0
	for _, userID := range users {
		err := s.store.RunInTx(ctx, func(ctx context.Context) error {
			active, err := s.store.ListActivePremiums(ctx, userID)
			if err != nil || len(active) < 2 {
				return err
			}
			stale := make([]uuid.UUID, 0, len(active)-1)
			for _, p := range active[1:] {
				stale = append(stale, p.ID)
			}
			deactivated += len(stale)
			return s.store.DeactivatePremiums(ctx, stale)
		})
		if err != nil {
			log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to dedupe premiums")
		}
	}
	return deactivated, nil
}

// ExpirePremiums deactivates every active premium past its end date and
// returns the rows it deactivated.
func (s *EntitlementService) ExpirePremiums(ctx context.Context, now time.Time) ([]models.UserPremium, error) {
	expired, err := s.store.ListExpiredPremiums(ctx, now)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserPremium, 0, len(expired))
	for _, p := range expired {
		if err := s.store.DeactivatePremiums(ctx, []uuid.UUID{p.ID}); err != nil {
			log.Error().Err(err).Str("premium_id", p.ID.String()).Msg("failed to expire premium")
			continue
		}
		p.IsActive = false
		out = append(out, p)
	}
	return out, nil
}

// RenewalCandidates returns the lapsed premiums of auto-pay users that have
// no renewal charge in flight. A failed charge leaves the user here so the
// next sweep tries again.
func (s *EntitlementService) RenewalCandidates(ctx context.Context, now time.Time) ([]models.UserPremium, error) {
	lapsed, err := s.store.ListLapsedAutoPayPremiums(ctx, now)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserPremium, 0, len(lapsed))
	for _, p := range lapsed {
		prefix := ActionPremium + "_" + p.UserID.String() + "_"
		last, err := s.store.LatestPaymentFor(ctx, prefix, p.EndDate)
		switch {
		case errors.Is(err, repository.ErrNotFound):
		case err != nil:
			log.Error().Err(err).Str("user_id", p.UserID.String()).Msg("failed to load renewal payment")
			continue
		case last.Status == models.PaymentPending || last.Status == models.PaymentCompleted:
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// ExpireTops ends promotions past their end date and clears Salon.IsTop
// when no active promotion remains.
func (s *EntitlementService) ExpireTops(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.store.ListExpiredTops(ctx, now)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, h := range expired {
		err := s.store.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.store.DeactivateTop(ctx, h.ID); err != nil {
				return err
			}
			remaining, err := s.store.ListActiveTops(ctx, h.SalonID)
			if err != nil {
				return err
			}
			if len(remaining) == 0 {
				return s.store.SetSalonTop(ctx, h.SalonID, false)
			}
			return nil
		})
		if err != nil {
			log.Error().Err(err).Str("salon_id", h.SalonID.String()).Msg("failed to expire promotion")
			continue
		}
		count++
	}
	return count, nil
}
