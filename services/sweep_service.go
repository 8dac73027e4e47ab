package services

import (
	"beautyhub-backend/models"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const sweepLockKey = "beautyhub:sweep:lock"

// PremiumRenewer charges the default card for another premium period.
type PremiumRenewer interface {
	RenewPremium(ctx context.Context, userID uuid.UUID, months int) (*models.Payment, error)
}

// SweepService periodically expires premiums and salon promotions and
// renews premiums of users with auto-pay.
type SweepService struct {
	users        DirectoryStore
	entitlements *EntitlementService
	renewer      PremiumRenewer
	// redis is optional; when set it holds a lock so one instance sweeps.
	redis    *redis.Client
	interval time.Duration
	cron     *cron.Cron
	now      func() time.Time
}

func NewSweepService(users DirectoryStore, entitlements *EntitlementService, renewer PremiumRenewer, rdb *redis.Client, interval time.Duration) *SweepService {
	return &SweepService{
		users:        users,
		entitlements: entitlements,
		renewer:      renewer,
		redis:        rdb,
		interval:     interval,
		now:          time.Now,
	}
}

type SweepReport struct {
	Deduped     int
	Expired     int
	Renewed     int
	TopsExpired int
}

// Start schedules Run every interval. Overlapping runs are skipped.
func (s *SweepService) Start() error {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	_, err := c.AddFunc("@every "+s.interval.String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		defer cancel()
		s.Run(ctx)
	})
	if err != nil {
		return err
	}
	c.Start()
	s.cron = c
	log.Info().Dur("interval", s.interval).Msg("expiry sweep scheduled")
	return nil
}

// Stop halts scheduling; the returned context is done once a running sweep ends.
func (s *SweepService) Stop() context.Context {
	if s.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return s.cron.Stop()
}

func (s *SweepService) lock(ctx context.Context) (bool, func()) {
	if s.redis == nil {
		return true, func() {}
	}
	ok, err := s.redis.SetNX(ctx, sweepLockKey, time.Now().UTC().Format(time.RFC3339), s.interval).Result()
	if err != nil {
		log.Warn().Err(err).Msg("sweep lock unavailable, running without it")
		return true, func() {}
	}
	if !ok {
		return false, nil
	}
	return true, func() {
		if err := s.redis.Del(context.Background(), sweepLockKey).Err(); err != nil {
			log.Warn().Err(err).Msg("failed to release sweep lock")
		}
	}
}

// Run performs one sweep.
func (s *SweepService) Run(ctx context.Context) SweepReport {
	var report SweepReport
	acquired, release := s.lock(ctx)
	if !acquired {
		log.Debug().Msg("sweep already running elsewhere")
		return report
	}
	defer release()

	now := s.now().UTC()

	deduped, err := s.entitlements.DedupePremiums(ctx)
	if err != nil {
		log.Error().Err(err).Msg("premium dedupe failed")
	}
	report.Deduped = deduped

	expired, err := s.entitlements.ExpirePremiums(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("premium expiry failed")
	}
	report.Expired = len(expired)

	candidates, err := s.entitlements.RenewalCandidates(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("renewal candidate lookup failed")
	}
	for _, p := range candidates {
		if s.renew(ctx, p) {
			report.Renewed++
		}
	}

	tops, err := s.entitlements.ExpireTops(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("promotion expiry failed")
	}
	report.TopsExpired = tops

	log.Info().
		Int("deduped", report.Deduped).
		Int("expired", report.Expired).
		Int("renewed", report.Renewed).
		Int("tops_expired", report.TopsExpired).
		Msg("expiry sweep finished")
	return report
}

// renew starts an auto-pay charge. On failure the premium stays inactive
// and the user remains a candidate for the next sweep.
func (s *SweepService) renew(ctx context.Context, p models.UserPremium) bool {
	user, err := s.users.GetUser(ctx, p.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", p.UserID.String()).Msg("failed to load user for renewal")
		return false
	}
	if !user.AutoPay {
		return false
	}
	months := max(p.DurationMonths, 1)
	payment, err := s.renewer.RenewPremium(ctx, user.ID, months)
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("premium renewal failed")
		return false
	}
	log.Info().Str("user_id", user.ID.String()).Str("payment_id", payment.ID.String()).Msg("premium renewal charged")
	return true
}
