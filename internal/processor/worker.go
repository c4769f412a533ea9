// Package processor runs the batch classification loop: it claims pending
// titles, paces calls through the rate governor, and reconciles each
// response back into the store while publishing progress snapshots.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/jobtitles/internal/logging"
	"github.com/steveyegge/jobtitles/internal/progress"
	"github.com/steveyegge/jobtitles/internal/ratelimit"
	"github.com/steveyegge/jobtitles/internal/storage"
	"github.com/steveyegge/jobtitles/internal/types"
)

const (
	DefaultBatchSize              = 100
	DefaultMaxConsecutiveFailures = 10
	DefaultTickInterval           = time.Second
)

// ErrTooManyFailures stops a run whose batches keep failing
var ErrTooManyFailures = errors.New("too many consecutive failed batches")

// Classifier classifies one batch of titles. Implementations report failures
// through the result status and never return nil.
type Classifier interface {
	Classify(ctx context.Context, batch []types.TitleInput) *types.BatchResult
}

// Params are the start parameters of one run
type Params struct {
	BatchSize int
	Rate      ratelimit.Config
	// MaxConsecutiveFailures stops dispatch after this many failed batches in
	// a row (0 disables)
	MaxConsecutiveFailures int
	TickInterval           time.Duration
	EmitInterval           time.Duration
}

// Validate checks the parameters
func (p Params) Validate() error {
	if p.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive (got %d)", p.BatchSize)
	}
	if p.MaxConsecutiveFailures < 0 {
		return fmt.Errorf("max consecutive failures must be non-negative (got %d)", p.MaxConsecutiveFailures)
	}
	return p.Rate.Validate()
}

func (p Params) withDefaults() Params {
	if p.TickInterval <= 0 {
		p.TickInterval = DefaultTickInterval
	}
	if p.EmitInterval <= 0 {
		p.EmitInterval = progress.DefaultEmitInterval
	}
	return p
}

// Worker drives classification runs against one store
type Worker struct {
	store      storage.Storage
	classifier Classifier
	reconciler *Reconciler
	logger     *slog.Logger
	recorder   *logging.Recorder
	now        func() time.Time
}

// NewWorker creates a worker. recorder may be nil; when set, its entries are
// attached to every snapshot.
func NewWorker(store storage.Storage, classifier Classifier, logger *slog.Logger, recorder *logging.Recorder) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:      store,
		classifier: classifier,
		reconciler: NewReconciler(store, logger),
		logger:     logger,
		recorder:   recorder,
		now:        time.Now,
	}
}

// Run starts a run in the background. Snapshots arrive on the first channel,
// the last one with Done set; both channels close when the run ends. The
// error channel yields at most one error: a configuration or store failure,
// ErrTooManyFailures, or the context error after cancellation. Cancelling ctx
// stops new claims; batches already dispatched finish and are reconciled.
func (w *Worker) Run(ctx context.Context, params Params) (<-chan progress.Snapshot, <-chan error) {
	snapshots := make(chan progress.Snapshot, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(snapshots)
		defer close(errCh)
		if err := w.run(ctx, params, snapshots); err != nil {
			errCh <- err
		}
	}()

	return snapshots, errCh
}

func (w *Worker) run(ctx context.Context, params Params, out chan<- progress.Snapshot) error {
	params = params.withDefaults()
	if err := params.Validate(); err != nil {
		return err
	}
	gov, err := ratelimit.New(params.Rate)
	if err != nil {
		return err
	}

	reclaimed, err := w.store.ReclaimStale(ctx)
	if err != nil {
		return fmt.Errorf("failed to reclaim stale titles: %w", err)
	}
	if reclaimed > 0 {
		w.logger.Info("returned stale titles to pending", "count", reclaimed)
	}

	run := &types.Run{
		ID:        uuid.NewString(),
		StartedAt: w.now().UTC(),
		BatchSize: params.BatchSize,
		RateMode:  string(gov.Mode()),
	}
	if err := w.store.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	w.logger.Info("run started", "run", run.ID, "batch_size", params.BatchSize,
		"mode", string(gov.Mode()), "concurrency", gov.Concurrency())

	state := &State{}
	projector := progress.NewProjector()
	debouncer := progress.NewDebouncer(params.EmitInterval)

	// The ticker outlives ctx so progress keeps flowing while batches drain
	tickCtx, stopTicker := context.WithCancel(context.WithoutCancel(ctx))
	tickerDone := make(chan struct{})
	go func() {
		defer close(tickerDone)
		w.tick(tickCtx, params.TickInterval, projector, debouncer, state, out)
	}()

	runErr := w.dispatch(ctx, gov, params, state)

	stopTicker()
	<-tickerDone

	bg := context.WithoutCancel(ctx)
	final, err := w.observe(bg, projector, state)
	if err != nil {
		w.logger.Warn("failed to read final counts", "error", err)
	}
	final.Done = true
	out <- final

	calls := state.Snapshot()
	finishedAt := w.now().UTC()
	run.FinishedAt = &finishedAt
	run.TotalCalls = calls.Total
	run.SuccessfulCalls = calls.Successful
	run.FailedCalls = calls.Failed
	run.MismatchCalls = calls.Mismatched
	run.TitlesCompleted = state.TitlesCompleted()
	run.Cost = calls.Cost
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := w.store.FinishRun(bg, run); err != nil {
		w.logger.Error("failed to record run result", "run", run.ID, "error", err)
		if runErr == nil {
			runErr = fmt.Errorf("failed to record run result: %w", err)
		}
	}

	w.logger.Info("run finished", "run", run.ID, "calls", calls.Total,
		"completed", run.TitlesCompleted, "cost", calls.Cost, "error", runErr)
	return runErr
}

// dispatch claims and launches batches until the queue is empty and nothing
// is in flight, the context is cancelled, or a batch stops the run
func (w *Worker) dispatch(ctx context.Context, gov *ratelimit.Governor, params Params, state *State) error {
	var (
		g        errgroup.Group
		inflight atomic.Int64
		finished = make(chan struct{}, 1)
		stopped  = make(chan struct{})
		stopOnce sync.Once
		stopErr  error
	)
	stop := func(err error) {
		stopOnce.Do(func() {
			stopErr = err
			close(stopped)
		})
	}
	batchCtx := context.WithoutCancel(ctx)

	for {
		if err := ctx.Err(); err != nil {
			stop(err)
			break
		}
		if isClosed(stopped) {
			break
		}

		release, err := gov.Acquire(ctx)
		if err != nil {
			stop(err)
			break
		}
		if isClosed(stopped) {
			release()
			break
		}

		// Read before claiming: batches already finished have reverted any
		// failed records, so an empty claim with none in flight means the
		// queue is drained.
		n := inflight.Load()
		batch, err := w.store.ClaimBatch(ctx, params.BatchSize)
		if err != nil {
			release()
			if ctx.Err() != nil {
				stop(ctx.Err())
			} else {
				stop(fmt.Errorf("failed to claim batch: %w", err))
			}
			break
		}

		if len(batch) == 0 {
			release()
			if n == 0 {
				break
			}
			select {
			case <-finished:
			case <-stopped:
			case <-ctx.Done():
			}
			continue
		}

		inflight.Add(1)
		g.Go(func() error {
			defer release()
			err := w.runBatch(batchCtx, batch, state, params.MaxConsecutiveFailures)
			if err != nil {
				stop(err)
			}
			inflight.Add(-1)
			select {
			case finished <- struct{}{}:
			default:
			}
			return nil
		})
	}

	_ = g.Wait()
	return stopErr
}

// runBatch classifies one claimed batch and reconciles the outcome
func (w *Worker) runBatch(ctx context.Context, batch []*types.CanonicalTitle, state *State, maxFailures int) error {
	inputs := make([]types.TitleInput, len(batch))
	for i, t := range batch {
		inputs[i] = t.Input()
	}

	w.logger.Debug("dispatching batch", "size", len(batch), "first_id", batch[0].ID)
	result := w.classifier.Classify(ctx, inputs)

	completed, commitErr := w.reconciler.Commit(ctx, batch, result)
	failures := state.Record(len(batch), result, completed)
	if commitErr != nil {
		state.SetError(commitErr)
		w.logger.Error("failed to reconcile batch", "size", len(batch), "error", commitErr)
		return commitErr
	}

	if result.Status == types.BatchSuccess {
		w.logger.Info("batch completed", "size", len(batch), "completed", completed,
			"cost", result.Cost, "duration", result.Duration.Round(time.Millisecond))
		return nil
	}

	if maxFailures > 0 && failures >= maxFailures {
		return fmt.Errorf("%w: %d in a row, last: %v", ErrTooManyFailures, failures, result.Err)
	}
	return nil
}

// tick observes the store on a fixed period and emits debounced snapshots
// without blocking on a slow consumer
func (w *Worker) tick(ctx context.Context, interval time.Duration, projector *progress.Projector,
	debouncer *progress.Debouncer, state *State, out chan<- progress.Snapshot) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	emit := func() {
		snap, err := w.observe(ctx, projector, state)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Warn("failed to read status counts", "error", err)
			}
			return
		}
		if !debouncer.Allow(snap.At) {
			return
		}
		select {
		case out <- snap:
		default:
		}
	}

	emit()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			emit()
		}
	}
}

func (w *Worker) observe(ctx context.Context, projector *progress.Projector, state *State) (progress.Snapshot, error) {
	counts, err := w.store.StatusCounts(ctx)
	if err != nil {
		return progress.Snapshot{At: w.now(), Calls: state.Snapshot()}, err
	}
	snap := projector.Observe(w.now(), *counts, state.Snapshot())
	if w.recorder != nil {
		snap.Logs = w.recorder.Entries()
	}
	return snap, nil
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
