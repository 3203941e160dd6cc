package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"curator/internal/logging"
	"curator/internal/services"
)

// Event is emitted after each attempted item.
type Event struct {
	BatchID string
	Index   int // 1-based position in the run
	Total   int
	ID      int64
	Err     error
}

// Operation processes one item. The context carries cancellation values but
// is never cancelled mid-item.
type Operation[T any] func(ctx context.Context, id int64) (T, error)

// Runner holds the hooks shared by every run.
type Runner struct {
	// Progress, if set, is called after every attempted item.
	Progress func(Event)
	// Refresh, if set, is called once after the loop with every attempted
	// id, failures included.
	Refresh func(ctx context.Context, attempted []int64)
	Logger  *slog.Logger
	// BatchID stamps logs and events. A random id is used when empty.
	BatchID string
}

// Result tallies one run.
type Result[T any] struct {
	BatchID   string
	Succeeded int
	Failed    int
	Errors    map[int64]error
	Values    map[int64]T
	Attempted []int64
	// Skipped lists ids never started because the context was cancelled.
	Skipped  []int64
	Duration time.Duration
}

// Run applies op to ids one at a time, in order. A failing or panicking item
// is recorded and the run continues. When ctx is cancelled the current item
// finishes and the remaining ids are reported as skipped. Empty input
// returns a zero Result without calling any hook.
func Run[T any](ctx context.Context, r Runner, ids []int64, op Operation[T]) Result[T] {
	if len(ids) == 0 {
		return Result[T]{}
	}
	batchID := r.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}
	ctx = services.WithBatchID(ctx, batchID)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(r.Logger, "batch"))

	result := Result[T]{
		BatchID:   batchID,
		Errors:    make(map[int64]error),
		Values:    make(map[int64]T, len(ids)),
		Attempted: make([]int64, 0, len(ids)),
	}
	start := time.Now()
	logger.Info("batch started", logging.Int("items", len(ids)))

	itemCtx := context.WithoutCancel(ctx)
	for i, id := range ids {
		if ctx.Err() != nil {
			result.Skipped = append(result.Skipped, ids[i:]...)
			break
		}
		result.Attempted = append(result.Attempted, id)
		value, err := invoke(services.WithItemID(itemCtx, id), id, op)
		if err != nil {
			result.Failed++
			result.Errors[id] = err
			logging.WarnWithContext(logger.With(logging.Int64(logging.FieldItemID, id)), "batch item failed", "batch_item_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "rerun the batch for this item after fixing the cause"),
			)
		} else {
			result.Succeeded++
			result.Values[id] = value
		}
		if r.Progress != nil {
			r.Progress(Event{BatchID: batchID, Index: i + 1, Total: len(ids), ID: id, Err: err})
		}
	}

	if r.Refresh != nil && len(result.Attempted) > 0 {
		r.Refresh(itemCtx, append([]int64(nil), result.Attempted...))
	}
	result.Duration = time.Since(start)
	logger.Info("batch finished",
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed),
		logging.Int("skipped", len(result.Skipped)),
		logging.Duration("duration", result.Duration),
	)
	return result
}

func invoke[T any](ctx context.Context, id int64, op Operation[T]) (value T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("item %d panicked: %v", id, rec)
		}
	}()
	return op(ctx, id)
}
