package suggest

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"curator/internal/boards"
	"curator/internal/services"
)

// BoardWriter performs the storage writes a plan needs.
type BoardWriter interface {
	CreateBoard(ctx context.Context, draft boards.Draft) (int64, error)
	AddMembership(ctx context.Context, boardID, imageID int64) error
}

// ApplyResult reports what a plan application did. Partial success is data,
// not an error.
type ApplyResult struct {
	CreatedBoardID int64
	Added          []int64
	Failed         map[int64]error
	// Err is set when the apply halted before any membership write, such
	// as a failed board creation.
	Err error
}

// Success reports whether at least one membership was written.
func (r ApplyResult) Success() bool {
	return r.Err == nil && len(r.Added) > 0
}

// Partial reports whether some but not all membership writes failed.
func (r ApplyResult) Partial() bool {
	return len(r.Added) > 0 && len(r.Failed) > 0
}

// Apply creates the drafted board, if any, then adds the target image to
// every listed board. A failed creation skips all membership writes. Adds are
// attempted independently and nothing is rolled back.
func Apply(ctx context.Context, plan Plan, w BoardWriter) ApplyResult {
	var result ApplyResult
	targets := append([]int64(nil), plan.BoardIDsToAddTo...)

	if plan.BoardToCreate != nil {
		if err := ValidateDraft(*plan.BoardToCreate); err != nil {
			result.Err = services.Wrap(services.ErrCreateFailed, "suggest", "create board", "invalid draft", err)
			return result
		}
		id, err := w.CreateBoard(ctx, *plan.BoardToCreate)
		if err != nil {
			if !errors.Is(err, services.ErrCreateFailed) {
				err = services.Wrap(services.ErrCreateFailed, "suggest", "create board", plan.BoardToCreate.Name, err)
			}
			result.Err = err
			return result
		}
		result.CreatedBoardID = id
		targets = []int64{id}
	}

	if len(targets) == 0 {
		result.Err = services.Wrap(services.ErrValidation, "suggest", "apply", "plan has no boards", nil)
		return result
	}

	for _, boardID := range targets {
		if err := w.AddMembership(ctx, boardID, plan.TargetImageID); err != nil {
			result.recordFailure(boardID, err)
			continue
		}
		result.Added = append(result.Added, boardID)
	}
	return result
}

func (r *ApplyResult) recordFailure(boardID int64, err error) {
	if r.Failed == nil {
		r.Failed = make(map[int64]error)
	}
	r.Failed[boardID] = err
}

// Failure summarises why an apply did not succeed. Returns nil on success.
func (r ApplyResult) Failure() error {
	if r.Err != nil {
		return r.Err
	}
	if len(r.Added) > 0 {
		return nil
	}
	ids := slices.Sorted(maps.Keys(r.Failed))
	errs := make([]error, 0, len(ids))
	for _, id := range ids {
		errs = append(errs, fmt.Errorf("board %d: %w", id, r.Failed[id]))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
