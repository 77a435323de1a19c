package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/hackgods/clinic-scheduling/internal/clock"
	"github.com/hackgods/clinic-scheduling/internal/config"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

const (
	JobProcessDue  = "notifications:due"
	JobRetryFailed = "notifications:retry"
)

type RunResult struct {
	Claimed int
	Sent    int
	Failed  int
}

// Dispatcher flushes PROGRAMMED notifications that came due and retries
// FAILED ones below the attempt cap, at a flat cadence.
type Dispatcher struct {
	repo    Repository
	senders Senders
	locker  redisclient.Locker
	limiter *rate.Limiter
	clock   clock.Clock
	cfg     config.NotificationConfig
	jobTTL  time.Duration
	metrics *Metrics
	log     zerolog.Logger
}

// NewDispatcher builds a dispatcher. locker may be nil when a single worker
// process runs; otherwise each job run holds a lock named after the job.
func NewDispatcher(
	repo Repository,
	senders Senders,
	locker redisclient.Locker,
	clk clock.Clock,
	cfg config.NotificationConfig,
	jobTTL time.Duration,
	metrics *Metrics,
	logger zerolog.Logger,
) *Dispatcher {
	limit := rate.Inf
	burst := 1
	if cfg.SendRatePerSecond > 0 {
		limit = rate.Limit(cfg.SendRatePerSecond)
		burst = max(1, int(cfg.SendRatePerSecond))
	}
	return &Dispatcher{
		repo:    repo,
		senders: senders,
		locker:  locker,
		limiter: rate.NewLimiter(limit, burst),
		clock:   clk,
		cfg:     cfg,
		jobTTL:  jobTTL,
		metrics: metrics,
		log:     logger.With().Str("component", "notification_dispatcher").Logger(),
	}
}

// ProcessDue sends up to DueBatchSize PROGRAMMED notifications whose time has come.
func (d *Dispatcher) ProcessDue(ctx context.Context) (RunResult, error) {
	claimed, err := d.repo.ClaimDueProgrammed(ctx, d.clock.Now(), d.cfg.DueBatchSize)
	if err != nil {
		return RunResult{}, err
	}
	return d.sendAll(ctx, claimed)
}

// RetryFailed resends up to RetryBatchSize FAILED notifications that have
// fewer than MaxAttempts attempts. PENDING rows stuck longer than StaleAfter
// are picked up too.
func (d *Dispatcher) RetryFailed(ctx context.Context) (RunResult, error) {
	staleBefore := d.clock.Now().Add(-d.cfg.StaleAfter)
	claimed, err := d.repo.ClaimRetryableFailed(ctx, d.cfg.MaxAttempts, staleBefore, d.cfg.RetryBatchSize)
	if err != nil {
		return RunResult{}, err
	}
	return d.sendAll(ctx, claimed)
}

func (d *Dispatcher) sendAll(ctx context.Context, batch []Notification) (RunResult, error) {
	res := RunResult{Claimed: len(batch)}
	for i := range batch {
		n := &batch[i]
		if err := d.limiter.Wait(ctx); err != nil {
			// Unsent rows stay PENDING and are reclaimed once stale.
			return res, fmt.Errorf("rate limiter: %w", err)
		}

		log := d.log.With().
			Str("notification_id", n.ID.String()).
			Str("type", string(n.Type)).
			Str("channel", string(n.Channel)).
			Logger()

		if err := sendNow(ctx, d.repo, d.senders, d.clock, d.metrics, n, log); err != nil {
			res.Failed++
			continue
		}
		res.Sent++
	}
	return res, nil
}

// Run drives both jobs on their own tickers until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		d.loop(ctx, JobProcessDue, d.cfg.DueInterval, d.ProcessDue)
	}()
	go func() {
		defer wg.Done()
		d.loop(ctx, JobRetryFailed, d.cfg.RetryInterval, d.RetryFailed)
	}()
	wg.Wait()
	return ctx.Err()
}

func (d *Dispatcher) loop(ctx context.Context, job string, interval time.Duration, fn func(context.Context) (RunResult, error)) {
	d.log.Info().Str("job", job).Dur("interval", interval).Msg("job scheduled")

	// Run once at startup
	d.RunJob(ctx, job, fn)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Str("job", job).Msg("shutdown signal received, stopping job")
			return
		case <-ticker.C:
			d.RunJob(ctx, job, fn)
		}
	}
}

// RunJob executes one job run under the job lock. A run already in progress
// elsewhere is skipped.
func (d *Dispatcher) RunJob(ctx context.Context, job string, fn func(context.Context) (RunResult, error)) {
	start := time.Now()
	var res RunResult

	run := func(runCtx context.Context) error {
		var err error
		res, err = fn(runCtx)
		return err
	}

	var err error
	if d.locker != nil {
		err = d.locker.WithLock(ctx, redisclient.JobKey(job), run)
	} else {
		runCtx, cancel := context.WithTimeout(ctx, d.jobTTL)
		err = run(runCtx)
		cancel()
	}

	switch {
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		d.metrics.ObserveJob(job, "skipped", 0)
		d.log.Debug().Str("job", job).Msg("job running elsewhere, skipped")
	case err != nil:
		d.metrics.ObserveJob(job, "error", res.Claimed)
		d.log.Error().Err(err).Str("job", job).Msg("job run error")
	default:
		d.metrics.ObserveJob(job, "ok", res.Claimed)
		ev := d.log.Debug()
		if res.Claimed > 0 {
			ev = d.log.Info()
		}
		ev.Str("job", job).
			Int("claimed", res.Claimed).
			Int("sent", res.Sent).
			Int("failed", res.Failed).
			Dur("took", time.Since(start)).
			Msg("job run complete")
	}
}
