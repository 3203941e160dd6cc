package suggest

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"curator/internal/boards"
	"curator/internal/services"
)

type membership struct {
	board, image int64
}

type fakeWriter struct {
	nextID    int64
	createErr error
	failOn    map[int64]error
	drafts    []boards.Draft
	added     []membership
}

func (f *fakeWriter) CreateBoard(_ context.Context, d boards.Draft) (int64, error) {
	f.drafts = append(f.drafts, d)
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	return f.nextID, nil
}

func (f *fakeWriter) AddMembership(_ context.Context, boardID, imageID int64) error {
	if err, ok := f.failOn[boardID]; ok {
		return err
	}
	f.added = append(f.added, membership{boardID, imageID})
	return nil
}

type fakeClassifier struct {
	s   Suggestion
	err error
}

func (f fakeClassifier) Classify(context.Context, int64) (Suggestion, error) {
	return f.s, f.err
}

func addSuggestion(conf float64, ids ...int64) Suggestion {
	return Suggestion{Action: ActionAddToExisting, Confidence: conf, SuggestedBoards: ids}
}

func TestModeForBoundaries(t *testing.T) {
	tests := []struct {
		conf float64
		want Mode
	}{
		{1, ModeAutoApply},
		{0.85000001, ModeAutoApply},
		{0.85, ModeAutoApply},
		{0.8499, ModeConfirm},
		{0.70, ModeConfirm},
		{0.6999, ModeIgnore},
		{0, ModeIgnore},
	}
	for _, tt := range tests {
		if got := ModeFor(tt.conf); got != tt.want {
			t.Errorf("ModeFor(%v) = %v, want %v", tt.conf, got, tt.want)
		}
	}
}

func TestDecideAddToExistingForwardsIDsVerbatim(t *testing.T) {
	d := Decide(addSuggestion(0.9, 7, 404, 3), 42)
	if d.Mode != ModeAutoApply || d.Plan == nil {
		t.Fatalf("unexpected decision %+v", d)
	}
	if !slices.Equal(d.Plan.BoardIDsToAddTo, []int64{7, 404, 3}) {
		t.Fatalf("board ids = %v", d.Plan.BoardIDsToAddTo)
	}
	if d.Plan.TargetImageID != 42 || d.Plan.BoardToCreate != nil {
		t.Fatalf("unexpected plan %+v", d.Plan)
	}
}

func TestDecideIgnoreHasNoPlan(t *testing.T) {
	d := Decide(addSuggestion(0.5, 1), 1)
	if d.Mode != ModeIgnore || d.Plan != nil {
		t.Fatalf("expected ignore without plan, got %+v", d)
	}
}

func TestDecideRejectsMalformedSuggestions(t *testing.T) {
	tests := []struct {
		name string
		s    Suggestion
		want string
	}{
		{"unknown action", Suggestion{Action: "move", Confidence: 0.9}, "action"},
		{"confidence above one", addSuggestion(1.5, 1), "confidence"},
		{"add without boards", addSuggestion(0.9), "suggested_boards"},
		{"create without draft", Suggestion{Action: ActionCreateNew, Confidence: 0.9}, "new_board"},
		{"create with blank name", Suggestion{Action: ActionCreateNew, Confidence: 0.9, NewBoard: &boards.Draft{Name: "  "}}, "name"},
		{"both payloads", Suggestion{Action: ActionCreateNew, Confidence: 0.9, SuggestedBoards: []int64{1}, NewBoard: &boards.Draft{Name: "x"}}, "suggested_boards"},
		{"non-positive board id", addSuggestion(0.9, 0), "suggested_boards"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.s, 1)
			if d.Mode != ModeIgnore || d.Plan != nil {
				t.Fatalf("expected ignore, got %+v", d)
			}
			if !errors.Is(d.Invalid, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", d.Invalid)
			}
			if !strings.Contains(d.Invalid.Error(), tt.want) {
				t.Fatalf("expected %q in %v", tt.want, d.Invalid)
			}
		})
	}
}

func TestApplyCreatesBoardThenAdds(t *testing.T) {
	w := &fakeWriter{nextID: 10}
	plan := Plan{BoardToCreate: &boards.Draft{Name: "Sunsets"}, TargetImageID: 5}
	res := Apply(context.Background(), plan, w)
	if !res.Success() || res.CreatedBoardID != 11 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !slices.Equal(w.added, []membership{{11, 5}}) {
		t.Fatalf("memberships = %v", w.added)
	}
}

func TestApplyCreateFailureSkipsMembership(t *testing.T) {
	w := &fakeWriter{createErr: errors.New("disk full")}
	plan := Plan{BoardToCreate: &boards.Draft{Name: "Sunsets"}, TargetImageID: 5}
	res := Apply(context.Background(), plan, w)
	if res.Success() {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, services.ErrCreateFailed) {
		t.Fatalf("expected ErrCreateFailed, got %v", res.Err)
	}
	if len(w.added) != 0 {
		t.Fatal("membership must not be attempted after failed create")
	}
}

func TestApplyInvalidDraftNeverReachesStore(t *testing.T) {
	w := &fakeWriter{}
	res := Apply(context.Background(), Plan{BoardToCreate: &boards.Draft{Name: ""}, TargetImageID: 1}, w)
	if !errors.Is(res.Err, services.ErrCreateFailed) {
		t.Fatalf("expected ErrCreateFailed, got %v", res.Err)
	}
	if len(w.drafts) != 0 {
		t.Fatal("invalid draft should not be sent to the store")
	}
}

func TestApplyPartialSuccess(t *testing.T) {
	w := &fakeWriter{failOn: map[int64]error{2: services.Wrap(services.ErrNotFound, "library", "add", "board 2", nil)}}
	res := Apply(context.Background(), Plan{BoardIDsToAddTo: []int64{1, 2, 3}, TargetImageID: 9}, w)
	if !res.Success() || !res.Partial() {
		t.Fatalf("expected partial success, got %+v", res)
	}
	if !slices.Equal(res.Added, []int64{1, 3}) {
		t.Fatalf("added = %v", res.Added)
	}
	if !errors.Is(res.Failed[2], services.ErrNotFound) {
		t.Fatalf("expected not found for board 2, got %v", res.Failed[2])
	}
	if res.Failure() != nil {
		t.Fatalf("partial success should not report failure, got %v", res.Failure())
	}
}

func TestApplyAllFail(t *testing.T) {
	boom := errors.New("boom")
	w := &fakeWriter{failOn: map[int64]error{1: boom, 2: boom}}
	res := Apply(context.Background(), Plan{BoardIDsToAddTo: []int64{2, 1}, TargetImageID: 9}, w)
	if res.Success() {
		t.Fatal("expected failure")
	}
	failure := res.Failure()
	if !errors.Is(failure, boom) {
		t.Fatalf("expected joined failure, got %v", failure)
	}
	if !strings.HasPrefix(failure.Error(), "board 1:") {
		t.Fatalf("expected failures ordered by board id, got %q", failure.Error())
	}
}

func TestEngineEndToEndCreateNewOnEmptyTree(t *testing.T) {
	tree := boards.New()
	w := &fakeWriter{}
	confirmCalls := 0
	confirmer := ConfirmFunc(func(context.Context, Decision, string) (bool, error) {
		confirmCalls++
		return true, nil
	})
	s := Suggestion{Action: ActionCreateNew, Confidence: 0.9, NewBoard: &boards.Draft{Name: "Sunsets"}}
	engine := NewEngine(fakeClassifier{s: s}, w, confirmer, tree, nil)

	out, err := engine.Process(context.Background(), 77)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if confirmCalls != 0 {
		t.Fatal("auto-apply must not ask for confirmation")
	}
	if len(w.drafts) != 1 || w.drafts[0].Name != "Sunsets" || w.drafts[0].ParentID != nil {
		t.Fatalf("unexpected drafts %+v", w.drafts)
	}
	if !slices.Equal(w.added, []membership{{1, 77}}) {
		t.Fatalf("memberships = %v", w.added)
	}
	roots := tree.Roots()
	if len(roots) != 1 || roots[0].Name != "Sunsets" {
		t.Fatalf("expected new root board in tree, got %+v", roots)
	}
	if got := out.Summary(tree); got != "auto-created and added to Sunsets, 90% confident" {
		t.Fatalf("summary = %q", got)
	}
}

func TestEngineConfirmTier(t *testing.T) {
	tree := boards.New(&boards.Board{ID: 3, Name: "Cats"})
	for _, accept := range []bool{true, false} {
		w := &fakeWriter{}
		var prompt string
		confirmer := ConfirmFunc(func(_ context.Context, d Decision, summary string) (bool, error) {
			prompt = summary
			if d.Mode != ModeConfirm {
				t.Fatalf("confirmer called for %v", d.Mode)
			}
			return accept, nil
		})
		s := addSuggestion(0.75, 3)
		s.Reasoning = "whiskers"
		out, err := NewEngine(fakeClassifier{s: s}, w, confirmer, tree, nil).Process(context.Background(), 8)
		if err != nil {
			t.Fatalf("Process returned error: %v", err)
		}
		if prompt != `add to "Cats" (75% confident): whiskers` {
			t.Fatalf("prompt = %q", prompt)
		}
		if out.Applied != accept || (len(w.added) == 1) != accept {
			t.Fatalf("accept=%v but applied=%v added=%v", accept, out.Applied, w.added)
		}
		if !accept && out.Summary(tree) != "suggestion declined" {
			t.Fatalf("summary = %q", out.Summary(tree))
		}
		if accept && out.Summary(tree) != "added to Cats, 75% confident" {
			t.Fatalf("summary = %q", out.Summary(tree))
		}
	}
}

func TestEngineConfirmErrorIsRejection(t *testing.T) {
	w := &fakeWriter{}
	confirmer := ConfirmFunc(func(context.Context, Decision, string) (bool, error) {
		return true, errors.New("stdin closed")
	})
	out, err := NewEngine(fakeClassifier{s: addSuggestion(0.8, 1)}, w, confirmer, nil, nil).Process(context.Background(), 1)
	if err != nil || out.Applied || len(w.added) != 0 {
		t.Fatalf("expected rejection, got out=%+v err=%v", out, err)
	}
}

func TestEngineTransportErrorIsIgnore(t *testing.T) {
	w := &fakeWriter{}
	classifier := fakeClassifier{err: services.Wrap(services.ErrTransport, "llm", "classify", "", nil)}
	out, err := NewEngine(classifier, w, nil, nil, nil).Process(context.Background(), 1)
	if err != nil {
		t.Fatalf("transport error should not surface, got %v", err)
	}
	if out.Decision.Mode != ModeIgnore || out.Applied || out.Summary(nil) != "" {
		t.Fatalf("expected silent ignore, got %+v", out)
	}
	if !errors.Is(out.ClassifyErr, services.ErrTransport) {
		t.Fatalf("expected classify error recorded, got %v", out.ClassifyErr)
	}
}

func TestEngineApplyFailureIsReturned(t *testing.T) {
	w := &fakeWriter{failOn: map[int64]error{4: services.Wrap(services.ErrNotFound, "library", "add", "", nil)}}
	out, err := NewEngine(fakeClassifier{s: addSuggestion(0.95, 4)}, w, nil, nil, nil).Process(context.Background(), 2)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if !strings.HasPrefix(out.Summary(nil), "could not apply suggestion (95% confident)") {
		t.Fatalf("summary = %q", out.Summary(nil))
	}
}

func TestSummaryAutoAddPartial(t *testing.T) {
	tree := boards.New(&boards.Board{ID: 1, Name: "Beach"}, &boards.Board{ID: 2, Name: "Sea"})
	w := &fakeWriter{failOn: map[int64]error{2: errors.New("gone")}}
	out, err := NewEngine(fakeClassifier{s: addSuggestion(0.88, 1, 2)}, w, nil, tree, nil).Process(context.Background(), 3)
	if err != nil {
		t.Fatalf("partial success should not error, got %v", err)
	}
	if got := out.Summary(tree); got != "auto-added to Beach, 88% confident (1 board(s) failed)" {
		t.Fatalf("summary = %q", got)
	}
}
