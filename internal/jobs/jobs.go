// Package jobs runs the periodic housekeeping of the service on a cron
// schedule: expiring ACTIVE policies past their term, purging lapsed
// idempotency keys and sweeping payments that never settled.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-policy-admin/internal/repo"
)

var sweepRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "housekeeping_runs_total",
		Help: "Total number of housekeeping sweeps by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(sweepRuns)
}

// Expirer moves policies past their expiry date to EXPIRED.
type Expirer interface {
	ExpireDue(ctx context.Context, asOf time.Time) (int, error)
}

// Sweeper performs one housekeeping pass.
type Sweeper struct {
	DB       *gorm.DB
	Policies Expirer
	Now      func() time.Time
	Timeout  time.Duration // per-run bound; zero means no bound

	// PaymentStaleAfter is the age past which a PENDING payment is failed
	// and a PROCESSING one reported. Zero skips the payment sweep.
	PaymentStaleAfter time.Duration
}

// Result summarizes a sweep.
type Result struct {
	PoliciesExpired int
	KeysPurged      int64
	PaymentsFailed  int64
	PaymentsStuck   int
}

// Run expires due policies, purges lapsed idempotency keys and sweeps
// unsettled payments. Every step runs; their errors are joined.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	at := now().UTC()

	var res Result
	var expErr, purgeErr, payErr error
	if s.Policies != nil {
		res.PoliciesExpired, expErr = s.Policies.ExpireDue(ctx, at)
	}
	if s.DB != nil {
		res.KeysPurged, purgeErr = repo.PurgeExpiredIdempotency(ctx, s.DB, at)
		if s.PaymentStaleAfter > 0 {
			res.PaymentsFailed, res.PaymentsStuck, payErr = s.sweepPayments(ctx, at)
		}
	}
	return res, errors.Join(expErr, purgeErr, payErr)
}

// sweepPayments fails PENDING payments that never reached SpeedPay, which
// releases their reservation, and reports PROCESSING ones. The latter may
// have settled remotely, so they are left for reconciliation against the
// SpeedPay transaction log.
func (s *Sweeper) sweepPayments(ctx context.Context, at time.Time) (int64, int, error) {
	cutoff := at.Add(-s.PaymentStaleAfter)
	failed, err := repo.FailStalePayments(ctx, s.DB, cutoff, at, "abandoned before settlement")
	if err != nil {
		return 0, 0, err
	}
	stuck, err := repo.StuckPayments(ctx, s.DB, cutoff)
	if err != nil {
		return failed, 0, err
	}
	log := zerolog.Ctx(ctx)
	for _, p := range stuck {
		log.Warn().
			Uint64("payment_id", p.ID).
			Uint64("claim_id", p.ClaimID).
			Str("amount", p.Amount.StringFixed(2)).
			Time("created_at", p.CreatedAt).
			Msg("payment awaiting reconciliation")
	}
	return failed, len(stuck), nil
}

// Scheduler wraps a cron runner whose jobs log through zerolog and never
// overlap with themselves.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// NewScheduler returns a stopped scheduler evaluating specs in UTC.
func NewScheduler(log zerolog.Logger) *Scheduler {
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: log,
	}
}

// Schedule registers sw under expr (standard five-field cron or a
// descriptor such as @hourly).
func (s *Scheduler) Schedule(expr string, sw *Sweeper) error {
	_, err := s.cron.AddFunc(expr, func() {
		ctx := s.log.WithContext(context.Background())
		res, err := sw.Run(ctx)
		if err != nil {
			sweepRuns.WithLabelValues("error").Inc()
			s.log.Error().Err(err).
				Int("policies_expired", res.PoliciesExpired).
				Int64("keys_purged", res.KeysPurged).
				Int64("payments_failed", res.PaymentsFailed).
				Msg("housekeeping sweep failed")
			return
		}
		sweepRuns.WithLabelValues("ok").Inc()
		s.log.Info().
			Int("policies_expired", res.PoliciesExpired).
			Int64("keys_purged", res.KeysPurged).
			Int64("payments_failed", res.PaymentsFailed).
			Int("payments_stuck", res.PaymentsStuck).
			Msg("housekeeping sweep finished")
	})
	return err
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and waits for a running sweep until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ log zerolog.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug().Fields(kv).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error().Err(err).Fields(kv).Msg("cron: " + msg)
}
