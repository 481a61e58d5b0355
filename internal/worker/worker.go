// Package worker provides the periodic model retraining loop.
package worker

import (
	"context"
	"sync"
	"time"

	"learnpath/internal/database"
	"learnpath/internal/observability"
	"learnpath/internal/services"

	"go.opentelemetry.io/otel/attribute"
)

// Status is a snapshot of the worker state for the status endpoint.
type Status struct {
	Running       bool      `json:"running"`
	Paused        bool      `json:"paused"`
	LastRunAt     time.Time `json:"last_run_at"`
	LastRunError  string    `json:"last_run_error,omitempty"`
	TopicsTrained int       `json:"topics_trained"`
	TopicsSkipped int       `json:"topics_skipped"`
}

// Worker retrains the mastery models on a fixed interval. Training is a
// batch job out of the request path; a failed cycle is logged and retried on
// the next tick rather than crashing the process.
type Worker struct {
	attempts  database.AttemptStoreInterface
	analytics services.AnalyticsServiceInterface
	mastery   services.MasteryServiceInterface
	interval  time.Duration
	logger    *observability.Logger

	mu      sync.Mutex
	paused  bool
	running bool
	status  Status

	trigger chan struct{}
}

// NewWorker creates a new retraining worker
func NewWorker(
	attempts database.AttemptStoreInterface,
	analytics services.AnalyticsServiceInterface,
	mastery services.MasteryServiceInterface,
	interval time.Duration,
	logger *observability.Logger,
) *Worker {
	return &Worker{
		attempts:  attempts,
		analytics: analytics,
		mastery:   mastery,
		interval:  interval,
		logger:    logger,
		trigger:   make(chan struct{}, 1),
	}
}

// Run blocks until the context is cancelled, training on every tick and on
// manual triggers.
func (w *Worker) Run(ctx context.Context) {
	w.mu.Lock()
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	w.logger.Info(ctx, "Retraining worker started", map[string]interface{}{
		"interval": w.interval.String(),
	})

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Retraining worker stopping")
			return
		case <-ticker.C:
			w.runCycle(ctx)
		case <-w.trigger:
			w.runCycle(ctx)
		}
	}
}

// TriggerTraining requests an immediate training cycle. A cycle already
// pending coalesces with the request.
func (w *Worker) TriggerTraining() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Pause suspends scheduled training until Resume.
func (w *Worker) Pause() {
	w.mu.Lock()
	w.paused = true
	w.mu.Unlock()
}

// Resume reenables scheduled training.
func (w *Worker) Resume() {
	w.mu.Lock()
	w.paused = false
	w.mu.Unlock()
}

// Status returns a snapshot of the worker state.
func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.status
	s.Running = w.running
	s.Paused = w.paused
	return s
}

func (w *Worker) runCycle(ctx context.Context) {
	w.mu.Lock()
	paused := w.paused
	w.mu.Unlock()
	if paused {
		w.logger.Debug(ctx, "Retraining worker is paused, skipping cycle")
		return
	}

	err := w.TrainOnce(ctx)
	w.mu.Lock()
	w.status.LastRunAt = time.Now()
	if err != nil {
		w.status.LastRunError = err.Error()
	} else {
		w.status.LastRunError = ""
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error(ctx, "Training cycle failed", err)
	}
}

// TrainOnce runs one full training cycle: load the attempt log, aggregate
// features, then retrain the global and per-topic models.
func (w *Worker) TrainOnce(ctx context.Context) (err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "train_once")
	defer observability.FinishSpan(span, &err)

	records, err := w.attempts.LoadAttempts(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		w.logger.Info(ctx, "No attempt records yet, skipping training")
		return nil
	}

	vectors, err := w.analytics.AggregateFeatures(ctx, records)
	if err != nil {
		return err
	}

	globalReport, err := w.mastery.TrainGlobal(ctx, vectors)
	if err != nil {
		return err
	}
	topicReport, err := w.mastery.TrainPerTopic(ctx, vectors)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.status.TopicsTrained = len(topicReport.Trained)
	w.status.TopicsSkipped = len(topicReport.Skipped)
	w.mu.Unlock()

	w.logger.Info(ctx, "Training cycle completed", map[string]interface{}{
		"records":          len(records),
		"vectors":          len(vectors),
		"holdout_accuracy": globalReport.HoldoutAccuracy,
		"topics_trained":   len(topicReport.Trained),
		"topics_skipped":   len(topicReport.Skipped),
	})
	span.SetAttributes(
		attribute.Int("train.topics_trained", len(topicReport.Trained)),
		attribute.Int("train.topics_skipped", len(topicReport.Skipped)),
	)

	return nil
}
