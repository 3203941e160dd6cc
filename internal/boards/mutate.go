package boards

import (
	"context"
	"fmt"

	"curator/internal/services"
)

// Merger rewrites image memberships from one board to another in storage.
// When deleteSource is set it also hands the source's sub-boards to target
// and removes the source row.
type Merger interface {
	MergeBoards(ctx context.Context, sourceID, targetID int64, deleteSource bool) (int, error)
}

// Deleter removes a board from storage.
type Deleter interface {
	DeleteBoard(ctx context.Context, id int64, cascade bool) error
}

// MergeResult reports the outcome of a merge.
type MergeResult struct {
	ImagesMoved   int
	SourceDeleted bool
}

// ValidateMergeTarget rejects merges into the source board or any of its
// descendants.
func (t *Tree) ValidateMergeTarget(sourceID, targetID int64) error {
	if _, ok := t.FindByID(sourceID); !ok {
		return notFound("merge", sourceID)
	}
	if _, ok := t.FindByID(targetID); !ok {
		return notFound("merge", targetID)
	}
	if sourceID == targetID {
		return services.Wrap(services.ErrInvalidMergeTarget, "boards", "merge", "cannot merge a board into itself", nil)
	}
	if _, inside := t.DescendantIDs(sourceID)[targetID]; inside {
		return services.Wrap(services.ErrInvalidMergeTarget, "boards", "merge",
			fmt.Sprintf("board %d is a descendant of board %d", targetID, sourceID), nil)
	}
	return nil
}

// ValidMergeTargets lists every board outside the source's subtree in
// flatten order.
func (t *Tree) ValidMergeTargets(sourceID int64) []FlatBoard {
	excluded := t.DescendantIDs(sourceID)
	excluded[sourceID] = struct{}{}
	all := t.Flatten("")
	out := make([]FlatBoard, 0, len(all))
	for _, fb := range all {
		if _, skip := excluded[fb.Board.ID]; skip {
			continue
		}
		out = append(out, fb)
	}
	return out
}

// Merge validates the target, asks merger to move memberships, then, when
// deleteSource is set, removes the source node and appends its sub-boards to
// the target. The tree is untouched when validation or the merger fails.
func (t *Tree) Merge(ctx context.Context, sourceID, targetID int64, deleteSource bool, merger Merger) (MergeResult, error) {
	if err := t.ValidateMergeTarget(sourceID, targetID); err != nil {
		return MergeResult{}, err
	}
	if merger == nil {
		return MergeResult{}, services.Wrap(services.ErrConfiguration, "boards", "merge", "no merger configured", nil)
	}
	moved, err := merger.MergeBoards(ctx, sourceID, targetID, deleteSource)
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge board %d into %d: %w", sourceID, targetID, err)
	}
	result := MergeResult{ImagesMoved: moved}
	if !deleteSource {
		return result, nil
	}

	source, _, _ := t.detach(sourceID)
	target, _ := t.FindByID(targetID)
	for _, child := range source.SubBoards {
		id := target.ID
		child.ParentID = &id
		target.SubBoards = append(target.SubBoards, child)
	}
	source.SubBoards = nil
	result.SourceDeleted = true
	return result, nil
}

// Delete removes a board from the tree and returns the removed ids in
// pre-order. Without cascade the board's children are spliced into its
// former position under the former parent (or among the roots), keeping
// their order. With cascade the whole subtree goes.
func (t *Tree) Delete(id int64, cascade bool) ([]int64, error) {
	b, parent, idx := t.locate(id)
	if b == nil {
		return nil, notFound("delete", id)
	}

	if cascade {
		t.detach(id)
		removed := []int64{b.ID}
		walk(b.SubBoards, func(child *Board, _ int) {
			removed = append(removed, child.ID)
		})
		return removed, nil
	}

	children := b.SubBoards
	for _, child := range children {
		if parent == nil {
			child.ParentID = nil
		} else {
			pid := parent.ID
			child.ParentID = &pid
		}
	}
	if parent == nil {
		t.roots = splice(t.roots, idx, children)
	} else {
		parent.SubBoards = splice(parent.SubBoards, idx, children)
	}
	b.SubBoards = nil
	return []int64{b.ID}, nil
}

// Remove checks the board exists, deletes it through deleter, then applies
// the same edit to the tree.
func (t *Tree) Remove(ctx context.Context, id int64, cascade bool, deleter Deleter) ([]int64, error) {
	if _, ok := t.FindByID(id); !ok {
		return nil, notFound("delete", id)
	}
	if err := deleter.DeleteBoard(ctx, id, cascade); err != nil {
		return nil, fmt.Errorf("delete board %d: %w", id, err)
	}
	return t.Delete(id, cascade)
}

func splice(nodes []*Board, idx int, replacement []*Board) []*Board {
	out := make([]*Board, 0, len(nodes)-1+len(replacement))
	out = append(out, nodes[:idx]...)
	out = append(out, replacement...)
	return append(out, nodes[idx+1:]...)
}
