// Package runner executes analysis runs requested over the event bus.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opencivic-data/heron/internal/dataset"
	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/report"
)

const (
	// reportCacheTTL bounds how long a completed report stays hot.
	reportCacheTTL = time.Hour

	// maxFlaggedEvents bounds finding.flagged publications per run.
	maxFlaggedEvents = 25

	// flaggedRiskFloor is the risk score at which a finding is worth an
	// event of its own.
	flaggedRiskFloor = 0.9
)

// Runner subscribes to analysis requests, loads the datasets, generates
// the report, and persists everything before publishing the outcome.
type Runner struct {
	bus        domain.EventBus
	repo       domain.Repository
	cache      domain.Cache
	aggregator *report.Aggregator
	logger     *slog.Logger

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// New creates a runner. Repository and cache may be nil for ephemeral
// one-shot use; persistence and caching are then skipped.
func New(bus domain.EventBus, repo domain.Repository, cache domain.Cache, aggregator *report.Aggregator, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		bus:        bus,
		repo:       repo,
		cache:      cache,
		aggregator: aggregator,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins processing analysis requests from the bus.
func (r *Runner) Start() error {
	sub, err := r.bus.Subscribe(r.ctx, domain.TopicAnalysisRequested, r.handleRequest)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", domain.TopicAnalysisRequested, err)
	}
	r.subscriptions = append(r.subscriptions, sub)

	r.logger.Info("runner started",
		"topic", domain.TopicAnalysisRequested,
	)
	return nil
}

// handleRequest parses a request message and processes it.
func (r *Runner) handleRequest(ctx context.Context, msg *domain.Message) error {
	var req domain.AnalysisRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		r.logger.Error("failed to parse analysis request",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}
	if req.RunID == "" {
		req.RunID = msg.ID
	}
	return r.Process(ctx, req)
}

// Process executes a single analysis run end to end. Terminal load
// errors fail the run; they are recorded, published, and not returned,
// since retrying the same inputs cannot succeed.
func (r *Runner) Process(ctx context.Context, req domain.AnalysisRequest) error {
	r.wg.Add(1)
	defer r.wg.Done()

	start := time.Now()

	run := r.startRun(ctx, req)
	r.publish(ctx, domain.TopicAnalysisStarted, run)

	r.logger.Info("analysis run started",
		"run_id", req.RunID,
		"licenses", req.LicensesPath,
		"contracts", req.ContractsPath,
		"taxes", req.TaxesPath,
	)

	data, err := dataset.Load(req.LicensesPath, req.ContractsPath, req.TaxesPath)
	if err != nil {
		r.failRun(ctx, run, err)
		if domain.IsTerminal(err) {
			return nil
		}
		return err
	}

	rep, err := r.aggregator.Generate(ctx, req.RunID, data)
	if err != nil {
		r.failRun(ctx, run, err)
		return err
	}

	findings := rep.AllFindings()

	if r.repo != nil {
		if err := r.repo.SaveFindings(ctx, req.RunID, findings); err != nil {
			r.logger.Error("failed to save findings",
				"run_id", req.RunID,
				"error", err,
			)
		}
		if err := r.repo.SaveReport(ctx, rep); err != nil {
			r.logger.Error("failed to save report",
				"run_id", req.RunID,
				"error", err,
			)
		}
	}

	if r.cache != nil {
		if err := r.cache.SetReport(ctx, rep, reportCacheTTL); err != nil {
			r.logger.Warn("failed to cache report",
				"run_id", req.RunID,
				"error", err,
			)
		}
	}

	run.Status = domain.RunStatusCompleted
	run.CompletedAt = time.Now().UTC()
	run.FindingCount = len(findings)
	if r.repo != nil {
		if err := r.repo.UpdateRun(ctx, run); err != nil {
			r.logger.Error("failed to update run",
				"run_id", req.RunID,
				"error", err,
			)
		}
	}

	r.publish(ctx, domain.TopicAnalysisCompleted, run)
	r.flagFindings(ctx, req.RunID, findings)

	r.logger.Info("analysis run completed",
		"run_id", req.RunID,
		"finding_count", len(findings),
		"key_findings", len(rep.KeyFindings),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// startRun ensures a persisted run record exists and marks it running.
func (r *Runner) startRun(ctx context.Context, req domain.AnalysisRequest) *domain.AnalysisRun {
	run := &domain.AnalysisRun{
		ID:            req.RunID,
		Status:        domain.RunStatusRunning,
		LicensesPath:  req.LicensesPath,
		ContractsPath: req.ContractsPath,
		TaxesPath:     req.TaxesPath,
		StartedAt:     time.Now().UTC(),
	}

	if r.repo == nil {
		return run
	}

	existing, err := r.repo.GetRun(ctx, req.RunID)
	if err != nil {
		// First sight of this run; the API normally creates it.
		if err := r.repo.SaveRun(ctx, run); err != nil {
			r.logger.Error("failed to save run",
				"run_id", req.RunID,
				"error", err,
			)
		}
		return run
	}

	run.StartedAt = existing.StartedAt
	if err := r.repo.UpdateRun(ctx, run); err != nil {
		r.logger.Error("failed to mark run running",
			"run_id", req.RunID,
			"error", err,
		)
	}
	return run
}

// failRun records and publishes a failed run.
func (r *Runner) failRun(ctx context.Context, run *domain.AnalysisRun, cause error) {
	run.Status = domain.RunStatusFailed
	run.CompletedAt = time.Now().UTC()
	run.Error = cause.Error()

	if r.repo != nil {
		if err := r.repo.UpdateRun(ctx, run); err != nil {
			r.logger.Error("failed to record run failure",
				"run_id", run.ID,
				"error", err,
			)
		}
	}

	r.publish(ctx, domain.TopicAnalysisFailed, run)

	r.logger.Error("analysis run failed",
		"run_id", run.ID,
		"error", cause,
		"terminal", domain.IsTerminal(cause),
	)
}

// flagFindings publishes high-risk findings individually, bounded per run.
func (r *Runner) flagFindings(ctx context.Context, runID string, findings []domain.Finding) {
	for _, f := range findings {
		if f.RiskScore < flaggedRiskFloor {
			continue
		}

		if r.cache != nil {
			count, err := r.cache.IncrementCounter(ctx, "flagged:"+runID, reportCacheTTL)
			if err == nil && count > maxFlaggedEvents {
				r.logger.Warn("flagged finding limit reached",
					"run_id", runID,
					"limit", maxFlaggedEvents,
				)
				return
			}
		}

		payload, err := json.Marshal(f)
		if err != nil {
			continue
		}
		if err := r.bus.Publish(ctx, domain.TopicFindingFlagged, payload); err != nil {
			r.logger.Error("failed to publish flagged finding",
				"run_id", runID,
				"finding_id", f.ID,
				"error", err,
			)
		}
	}
}

func (r *Runner) publish(ctx context.Context, topic string, run *domain.AnalysisRun) {
	payload, err := json.Marshal(run)
	if err != nil {
		return
	}
	if err := r.bus.Publish(ctx, topic, payload); err != nil {
		r.logger.Error("failed to publish run event",
			"topic", topic,
			"run_id", run.ID,
			"error", err,
		)
	}
}

// Stop unsubscribes and waits for in-flight runs to finish.
func (r *Runner) Stop() error {
	r.cancel()

	for _, sub := range r.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			r.logger.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	r.subscriptions = nil

	r.wg.Wait()

	r.logger.Info("runner stopped")
	return nil
}

// Stats returns runner subscription statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current runner statistics.
func (r *Runner) GetStats() Stats {
	topics := make([]string, len(r.subscriptions))
	for i, sub := range r.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(r.subscriptions),
		Topics:            topics,
	}
}
