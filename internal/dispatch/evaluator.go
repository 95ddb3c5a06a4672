package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/junglehq/jungle/internal/leads"
	"github.com/junglehq/jungle/pkg/logging"
)

// EvaluatorConfig tunes the threshold polling loop.
type EvaluatorConfig struct {
	// Interval between polls.
	Interval time.Duration
	// BatchSize caps the leads enqueued per poll.
	BatchSize int
	// DefaultThresholdMins applies to organizations without a configured
	// speed-to-lead threshold.
	DefaultThresholdMins int
}

// Evaluator periodically finds pending leads past their organization's
// speed-to-lead threshold and enqueues dispatch jobs. More than one
// evaluator may run at once: the dispatcher's claim makes double-enqueued
// leads harmless.
type Evaluator struct {
	repo      leads.Repository
	publisher *Publisher
	logger    *logging.Logger
	cfg       EvaluatorConfig
}

// NewEvaluator creates the polling evaluator.
func NewEvaluator(repo leads.Repository, publisher *Publisher, cfg EvaluatorConfig, logger *logging.Logger) *Evaluator {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.DefaultThresholdMins <= 0 {
		cfg.DefaultThresholdMins = 5
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Evaluator{
		repo:      repo,
		publisher: publisher,
		logger:    logger.Component("evaluator"),
		cfg:       cfg,
	}
}

// Run polls until ctx is cancelled. The first poll happens immediately so a
// restart does not wait a full interval to pick up overdue leads.
func (e *Evaluator) Run(ctx context.Context) {
	e.logger.Info("evaluator started",
		"interval", e.cfg.Interval.String(),
		"batch_size", e.cfg.BatchSize,
		"default_threshold_mins", e.cfg.DefaultThresholdMins,
	)

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	e.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("evaluator stopping")
			return
		case <-ticker.C:
			e.poll(ctx)
		}
	}
}

// poll enqueues every due lead found in one scan. Enqueue failures are
// logged and skipped: the lead stays pending and the next poll retries it.
func (e *Evaluator) poll(ctx context.Context) {
	due, err := e.repo.FindDue(ctx, e.cfg.DefaultThresholdMins, e.cfg.BatchSize)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		e.logger.Error("due lead scan failed", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	enqueued := 0
	for _, lead := range due {
		err := e.publisher.Publish(ctx, Job{
			LeadID:         lead.LeadID,
			OrganizationID: lead.OrganizationID,
		})
		if err != nil {
			e.logger.Error("failed to enqueue dispatch job", "error", err, "lead_id", lead.LeadID)
			continue
		}
		enqueued++
	}

	e.logger.Info("due leads enqueued", "found", len(due), "enqueued", enqueued)
}
