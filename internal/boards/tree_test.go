package boards

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"curator/internal/services"
)

// sampleTree builds:
//
//	1 Travel
//	  2 Japan
//	    4 Kyoto
//	  3 Italy
//	5 Food
func sampleTree() *Tree {
	kyoto := &Board{ID: 4, Name: "Kyoto"}
	japan := &Board{ID: 2, Name: "Japan", SubBoards: []*Board{kyoto}}
	italy := &Board{ID: 3, Name: "Italy"}
	travel := &Board{ID: 1, Name: "Travel", SubBoards: []*Board{japan, italy}}
	food := &Board{ID: 5, Name: "Food"}
	return New(travel, food)
}

func flatIDs(flat []FlatBoard) []int64 {
	out := make([]int64, 0, len(flat))
	for _, fb := range flat {
		out = append(out, fb.Board.ID)
	}
	return out
}

func TestFindByID(t *testing.T) {
	tree := sampleTree()
	for _, id := range []int64{1, 2, 3, 4, 5} {
		b, ok := tree.FindByID(id)
		if !ok || b.ID != id {
			t.Fatalf("FindByID(%d) = %v, %v", id, b, ok)
		}
	}
	if _, ok := tree.FindByID(99); ok {
		t.Fatal("expected unknown id to be absent")
	}
	if _, ok := New().FindByID(1); ok {
		t.Fatal("expected empty tree to find nothing")
	}
}

func TestNewLinksParentIDs(t *testing.T) {
	tree := sampleTree()
	kyoto, _ := tree.FindByID(4)
	if kyoto.ParentID == nil || *kyoto.ParentID != 2 {
		t.Fatalf("expected Kyoto parent 2, got %v", kyoto.ParentID)
	}
	travel, _ := tree.FindByID(1)
	if travel.ParentID != nil {
		t.Fatal("roots should have nil ParentID")
	}
}

func TestDescendantIDs(t *testing.T) {
	tree := sampleTree()
	got := tree.DescendantIDs(1)
	if len(got) != 3 {
		t.Fatalf("expected 3 descendants, got %v", got)
	}
	for _, id := range []int64{2, 3, 4} {
		if _, ok := got[id]; !ok {
			t.Fatalf("missing descendant %d", id)
		}
	}
	if _, self := got[1]; self {
		t.Fatal("descendants must exclude the board itself")
	}
	if leaf := tree.DescendantIDs(4); len(leaf) != 0 {
		t.Fatalf("expected leaf to have no descendants, got %v", leaf)
	}
	if unknown := tree.DescendantIDs(42); len(unknown) != 0 {
		t.Fatalf("expected unknown id to have no descendants, got %v", unknown)
	}
}

func TestFlattenPreOrderAndPrefix(t *testing.T) {
	tree := sampleTree()
	flat := tree.Flatten("")
	if want := []int64{1, 2, 4, 3, 5}; !slices.Equal(flatIDs(flat), want) {
		t.Fatalf("flatten order = %v, want %v", flatIDs(flat), want)
	}
	if len(flat) != tree.Count() {
		t.Fatalf("expected %d entries, got %d", tree.Count(), len(flat))
	}
	for _, fb := range flat {
		if len(fb.Prefix) != 2*fb.Depth {
			t.Fatalf("board %d: prefix %q at depth %d", fb.Board.ID, fb.Prefix, fb.Depth)
		}
	}
	if flat[2].Label() != "    Kyoto" {
		t.Fatalf("unexpected label %q", flat[2].Label())
	}

	again := tree.Flatten("")
	if !slices.Equal(flatIDs(flat), flatIDs(again)) {
		t.Fatal("flatten must be stable across calls")
	}

	withPrefix := tree.Flatten("> ")
	if withPrefix[1].Prefix != ">   " {
		t.Fatalf("expected caller prefix to lead, got %q", withPrefix[1].Prefix)
	}
	// The caller prefix appears once; only IndentUnit repeats with depth.
	for _, fb := range withPrefix {
		want := "> " + strings.Repeat(IndentUnit, fb.Depth)
		if fb.Prefix != want {
			t.Fatalf("board %d at depth %d: prefix %q, want %q", fb.Board.ID, fb.Depth, fb.Prefix, want)
		}
	}
	if withPrefix[2].Prefix != ">     " {
		t.Fatalf("depth 2 must not repeat the caller prefix, got %q", withPrefix[2].Prefix)
	}
}

func TestPath(t *testing.T) {
	tree := sampleTree()
	if got := tree.Path(4); got != "Travel / Japan / Kyoto" {
		t.Fatalf("Path(4) = %q", got)
	}
	if got := tree.Path(5); got != "Food" {
		t.Fatalf("Path(5) = %q", got)
	}
	if got := tree.Path(77); got != "" {
		t.Fatalf("Path(77) = %q", got)
	}
}

func TestInsert(t *testing.T) {
	tree := sampleTree()
	parent := int64(3)
	if err := tree.Insert(&Board{ID: 6, Name: "Rome", ParentID: &parent}); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if err := tree.Insert(&Board{ID: 7, Name: "Sunsets"}); err != nil {
		t.Fatalf("Insert root returned error: %v", err)
	}
	if want := []int64{1, 2, 4, 3, 6, 5, 7}; !slices.Equal(flatIDs(tree.Flatten("")), want) {
		t.Fatalf("order after insert = %v, want %v", flatIDs(tree.Flatten("")), want)
	}

	missing := int64(404)
	if err := tree.Insert(&Board{ID: 8, ParentID: &missing}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing parent, got %v", err)
	}
	if err := tree.Insert(&Board{ID: 1}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for duplicate id, got %v", err)
	}
}

func TestRename(t *testing.T) {
	tree := sampleTree()
	if err := tree.Rename(3, "  Italia ", "pasta"); err != nil {
		t.Fatalf("Rename returned error: %v", err)
	}
	b, _ := tree.FindByID(3)
	if b.Name != "Italia" || b.Description != "pasta" {
		t.Fatalf("unexpected board after rename: %+v", b)
	}
	if err := tree.Rename(3, " ", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := tree.Rename(99, "x", ""); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBuildFromRows(t *testing.T) {
	one, two, ghost := int64(1), int64(2), int64(500)
	rows := []Row{
		{ID: 3, Name: "Kyoto", ParentID: &two},
		{ID: 1, Name: "Travel"},
		{ID: 2, Name: "Japan", ParentID: &one},
		{ID: 4, Name: "Orphan", ParentID: &ghost},
	}
	tree := Build(rows)
	if want := []int64{1, 2, 3, 4}; !slices.Equal(flatIDs(tree.Flatten("")), want) {
		t.Fatalf("built order = %v, want %v", flatIDs(tree.Flatten("")), want)
	}
	orphan, _ := tree.FindByID(4)
	if orphan.ParentID != nil {
		t.Fatal("orphan should be promoted to root")
	}
	kyoto, _ := tree.FindByID(3)
	if kyoto.ParentID == nil || *kyoto.ParentID != 2 {
		t.Fatal("expected Kyoto under Japan")
	}
}

func TestBuildBreaksCycles(t *testing.T) {
	a, b := int64(10), int64(11)
	rows := []Row{
		{ID: 10, Name: "A", ParentID: &b},
		{ID: 11, Name: "B", ParentID: &a},
		{ID: 12, Name: "Self", ParentID: func() *int64 { v := int64(12); return &v }()},
	}
	tree := Build(rows)
	if tree.Count() != 3 {
		t.Fatalf("expected all rows present, got %d", tree.Count())
	}
	if len(tree.Roots()) != 2 {
		t.Fatalf("expected two roots after breaking cycles, got %d", len(tree.Roots()))
	}
}

type fakeMerger struct {
	calls int
	moved int
	err   error
}

func (f *fakeMerger) MergeBoards(_ context.Context, _, _ int64, _ bool) (int, error) {
	f.calls++
	return f.moved, f.err
}

func TestValidateMergeTarget(t *testing.T) {
	tree := sampleTree()
	for _, target := range []int64{1, 2, 3, 4} {
		if err := tree.ValidateMergeTarget(1, target); !errors.Is(err, services.ErrInvalidMergeTarget) {
			t.Fatalf("target %d: expected ErrInvalidMergeTarget, got %v", target, err)
		}
	}
	if err := tree.ValidateMergeTarget(1, 5); err != nil {
		t.Fatalf("expected Food to be valid target, got %v", err)
	}
	if err := tree.ValidateMergeTarget(4, 1); err != nil {
		t.Fatalf("merging into an ancestor should be allowed, got %v", err)
	}
	if err := tree.ValidateMergeTarget(1, 99); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestValidMergeTargets(t *testing.T) {
	tree := sampleTree()
	if got := flatIDs(tree.ValidMergeTargets(2)); !slices.Equal(got, []int64{1, 3, 5}) {
		t.Fatalf("ValidMergeTargets(2) = %v", got)
	}
}

func TestMergeRejectsDescendantWithoutCallingStore(t *testing.T) {
	tree := sampleTree()
	merger := &fakeMerger{}
	before := flatIDs(tree.Flatten(""))
	if _, err := tree.Merge(context.Background(), 1, 4, true, merger); !errors.Is(err, services.ErrInvalidMergeTarget) {
		t.Fatalf("expected ErrInvalidMergeTarget, got %v", err)
	}
	if merger.calls != 0 {
		t.Fatal("merger must not be called when validation fails")
	}
	if !slices.Equal(before, flatIDs(tree.Flatten(""))) {
		t.Fatal("tree changed after rejected merge")
	}
}

func TestMergeDeleteSourceMovesChildrenToTarget(t *testing.T) {
	tree := sampleTree()
	merger := &fakeMerger{moved: 7}
	result, err := tree.Merge(context.Background(), 2, 5, true, merger)
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if result.ImagesMoved != 7 || !result.SourceDeleted {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, ok := tree.FindByID(2); ok {
		t.Fatal("source should be removed")
	}
	kyoto, ok := tree.FindByID(4)
	if !ok || kyoto.ParentID == nil || *kyoto.ParentID != 5 {
		t.Fatalf("expected Kyoto re-owned by Food, got %+v", kyoto)
	}
	if tree.Count() != 4 {
		t.Fatalf("expected 4 boards, got %d", tree.Count())
	}
}

func TestMergeKeepSource(t *testing.T) {
	tree := sampleTree()
	result, err := tree.Merge(context.Background(), 3, 5, false, &fakeMerger{moved: 2})
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if result.SourceDeleted || tree.Count() != 5 {
		t.Fatalf("source should be kept, result=%+v count=%d", result, tree.Count())
	}
}

func TestMergeStoreFailureLeavesTree(t *testing.T) {
	tree := sampleTree()
	merger := &fakeMerger{err: services.Wrap(services.ErrTransport, "library", "merge", "", nil)}
	if _, err := tree.Merge(context.Background(), 2, 5, true, merger); !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if tree.Count() != 5 {
		t.Fatal("tree must be unchanged after store failure")
	}
}

func TestDeletePromotesChildren(t *testing.T) {
	tree := sampleTree()
	before := tree.Count()
	removed, err := tree.Delete(2, false)
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if !slices.Equal(removed, []int64{2}) {
		t.Fatalf("removed = %v", removed)
	}
	if tree.Count() != before-1 {
		t.Fatalf("expected %d boards, got %d", before-1, tree.Count())
	}
	kyoto, _ := tree.FindByID(4)
	if kyoto.ParentID == nil || *kyoto.ParentID != 1 {
		t.Fatalf("expected Kyoto promoted under Travel, got %v", kyoto.ParentID)
	}
	if want := []int64{1, 4, 3, 5}; !slices.Equal(flatIDs(tree.Flatten("")), want) {
		t.Fatalf("order after delete = %v, want %v", flatIDs(tree.Flatten("")), want)
	}
}

func TestDeleteRootPromotesChildrenToRoots(t *testing.T) {
	tree := sampleTree()
	if _, err := tree.Delete(1, false); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	roots := tree.Roots()
	ids := make([]int64, 0, len(roots))
	for _, r := range roots {
		ids = append(ids, r.ID)
		if r.ParentID != nil {
			t.Fatalf("root %d should have nil ParentID", r.ID)
		}
	}
	if !slices.Equal(ids, []int64{2, 3, 5}) {
		t.Fatalf("roots = %v", ids)
	}
}

func TestDeleteCascade(t *testing.T) {
	tree := sampleTree()
	removed, err := tree.Delete(1, true)
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if !slices.Equal(removed, []int64{1, 2, 4, 3}) {
		t.Fatalf("removed = %v", removed)
	}
	if tree.Count() != 1 {
		t.Fatalf("expected only Food left, got %d", tree.Count())
	}
}

func TestDeleteUnknownIsReported(t *testing.T) {
	if _, err := sampleTree().Delete(99, true); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type fakeDeleter struct {
	err     error
	cascade bool
}

func (f *fakeDeleter) DeleteBoard(_ context.Context, _ int64, cascade bool) error {
	f.cascade = cascade
	return f.err
}

func TestRemoveAppliesStoreThenTree(t *testing.T) {
	tree := sampleTree()
	deleter := &fakeDeleter{}
	if _, err := tree.Remove(context.Background(), 2, true, deleter); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if !deleter.cascade || tree.Count() != 3 {
		t.Fatalf("unexpected state: cascade=%v count=%d", deleter.cascade, tree.Count())
	}

	failing := &fakeDeleter{err: errors.New("disk full")}
	if _, err := tree.Remove(context.Background(), 3, false, failing); err == nil {
		t.Fatal("expected store error")
	}
	if _, ok := tree.FindByID(3); !ok {
		t.Fatal("tree must be unchanged when the store fails")
	}
}
