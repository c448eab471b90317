// Package reconciler sweeps batches awaiting gateway settlement and
// confirms the ones the gateway reports paid.
package reconciler

import (
	"context"
	"errors"
	"time"

	batchdomain "github.com/mediasign/licenza/internal/batchlicense/domain"
	gatewaydomain "github.com/mediasign/licenza/internal/gateway/domain"
	obsmetrics "github.com/mediasign/licenza/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sweepJobName = "settlement_sweep"

type Params struct {
	fx.In

	Log     *zap.Logger
	Service batchdomain.Service
	Gateway gatewaydomain.Client `optional:"true"`
}

// Reconciler drives the periodic settlement sweep. Manual confirmation
// stays available regardless; the sweep only automates the gateway path.
type Reconciler struct {
	log     *zap.Logger
	service batchdomain.Service
	enabled bool
	cfg     Config
}

func New(p Params, cfg Config) *Reconciler {
	return &Reconciler{
		log:     p.Log.Named("reconciler"),
		service: p.Service,
		enabled: p.Gateway != nil,
		cfg:     cfg.withDefaults(),
	}
}

// RunOnce executes a single sweep: list batches in pending_payment with an
// open gateway invoice and poll each one. Per-batch failures are logged and
// counted but never abort the sweep.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	if !r.enabled {
		return nil
	}
	return r.runJob(ctx, sweepJobName, r.cfg.RunTimeout, r.sweep)
}

// RunForever runs sweeps at the configured interval until ctx is done.
func (r *Reconciler) RunForever(ctx context.Context) {
	if !r.enabled {
		r.log.Warn("gateway not configured; settlement sweep disabled")
		return
	}

	ticker := time.NewTicker(r.cfg.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if err := r.RunOnce(ctx); err != nil {
				r.log.Error("settlement sweep failed", zap.Error(err))
			}
			if lag := time.Since(start) - r.cfg.RunInterval; lag > 0 {
				obsmetrics.Reconciler().ObserveRunLoopLag(lag)
			}
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) error {
	batches, err := r.service.ListAwaitingSettlement(ctx, r.cfg.BatchSize)
	if err != nil {
		obsmetrics.Reconciler().IncJobError(sweepJobName, err)
		return err
	}
	if len(batches) == 0 {
		return nil
	}

	settled := 0
	for _, batch := range batches {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result, err := r.service.CheckPaymentStatus(ctx, batch.ID)
		if err != nil {
			// One bad invoice must not starve the rest of the sweep.
			obsmetrics.Reconciler().IncJobError(sweepJobName, err)
			r.log.Warn("settlement check failed",
				zap.String("batch_id", batch.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if result.Settled {
			settled++
		}
	}

	obsmetrics.Reconciler().AddBatchesSwept(sweepJobName, len(batches))
	r.log.Info("settlement sweep finished",
		zap.Int("swept", len(batches)),
		zap.Int("settled", settled),
	)
	return nil
}

func (r *Reconciler) runJob(ctx context.Context, name string, timeout time.Duration, fn func(context.Context) error) error {
	obsmetrics.Reconciler().IncJobRun(name)
	start := time.Now()
	defer func() {
		obsmetrics.Reconciler().ObserveJobDuration(name, time.Since(start))
	}()

	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(jobCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		// A slow sweep resumes where the next interval picks up; treat the
		// deadline as a soft stop rather than a failure.
		obsmetrics.Reconciler().IncJobTimeout(name)
		r.log.Warn("job hit deadline", zap.String("job", name), zap.Duration("timeout", timeout))
		return nil
	}
	return err
}
