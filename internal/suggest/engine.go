package suggest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"curator/internal/boards"
	"curator/internal/logging"
	"curator/internal/services"
)

// Classifier proposes a board placement for an image.
type Classifier interface {
	Classify(ctx context.Context, imageID int64) (Suggestion, error)
}

// Confirmer decides confirm-tier suggestions. Returning an error counts as a
// rejection.
type Confirmer interface {
	Confirm(ctx context.Context, d Decision, summary string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, d Decision, summary string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, d Decision, summary string) (bool, error) {
	return f(ctx, d, summary)
}

// RejectAll declines every confirm-tier suggestion.
var RejectAll Confirmer = ConfirmFunc(func(context.Context, Decision, string) (bool, error) {
	return false, nil
})

// Engine classifies images and routes the resulting suggestions through the
// confidence policy.
type Engine struct {
	classifier Classifier
	writer     BoardWriter
	confirmer  Confirmer
	tree       *boards.Tree
	logger     *slog.Logger
}

// NewEngine wires an engine. tree is updated in place when a plan creates a
// board so later images in the same session see it. A nil confirmer rejects
// every confirm-tier suggestion.
func NewEngine(classifier Classifier, writer BoardWriter, confirmer Confirmer, tree *boards.Tree, logger *slog.Logger) *Engine {
	if confirmer == nil {
		confirmer = RejectAll
	}
	if tree == nil {
		tree = boards.New()
	}
	return &Engine{
		classifier: classifier,
		writer:     writer,
		confirmer:  confirmer,
		tree:       tree,
		logger:     logging.NewComponentLogger(logger, "suggest"),
	}
}

// Outcome is what happened to one image.
type Outcome struct {
	ImageID     int64
	Decision    Decision
	ClassifyErr error
	Confirmed   bool
	Applied     bool
	Result      ApplyResult
}

// Process classifies imageID and acts on the decision. The returned error is
// non-nil only when a plan was applied and no membership was written;
// classification failures and declined or ignored suggestions are not errors.
func (e *Engine) Process(ctx context.Context, imageID int64) (Outcome, error) {
	ctx = services.WithItemID(ctx, imageID)
	logger := logging.WithContext(ctx, e.logger)
	out := Outcome{ImageID: imageID}

	s, err := e.classifier.Classify(ctx, imageID)
	if err != nil {
		out.ClassifyErr = err
		out.Decision = Decision{Mode: ModeIgnore}
		logger.Debug("classification failed; treating as ignore", logging.Error(err))
		return out, nil
	}

	out.Decision = Decide(s, imageID)
	switch out.Decision.Mode {
	case ModeIgnore:
		if out.Decision.Invalid != nil {
			logger.Debug("malformed suggestion ignored", logging.Error(out.Decision.Invalid))
		}
		return out, nil
	case ModeConfirm:
		accepted, err := e.confirmer.Confirm(ctx, out.Decision, e.describePlan(out.Decision))
		if err != nil {
			logger.Debug("confirmation failed; treating as rejection", logging.Error(err))
		}
		if err != nil || !accepted {
			return out, nil
		}
		out.Confirmed = true
	}

	out.Applied = true
	out.Result = Apply(ctx, *out.Decision.Plan, e.writer)
	if out.Result.CreatedBoardID != 0 {
		e.insertCreated(out.Result.CreatedBoardID, *out.Decision.Plan.BoardToCreate, logger)
	}
	if failure := out.Result.Failure(); failure != nil {
		logging.WarnWithContext(logger, "suggestion apply failed", "suggestion_apply_failed",
			logging.String("mode", out.Decision.Mode.String()),
			logging.Error(failure),
			logging.String(logging.FieldErrorHint, "check the board still exists and retry"),
		)
		return out, failure
	}
	logger.Info("suggestion applied",
		logging.String(logging.FieldEventType, "suggestion_applied"),
		logging.String("mode", out.Decision.Mode.String()),
		logging.Float64("confidence", out.Decision.Suggestion.Confidence),
		logging.Int("boards", len(out.Result.Added)),
	)
	return out, nil
}

func (e *Engine) insertCreated(id int64, draft boards.Draft, logger *slog.Logger) {
	b := &boards.Board{ID: id, Name: draft.Name, Description: draft.Description}
	if draft.ParentID != nil {
		pid := *draft.ParentID
		b.ParentID = &pid
	}
	if err := e.tree.Insert(b); err != nil {
		logger.Debug("created board not added to tree", logging.Int64(logging.FieldBoardID, id), logging.Error(err))
	}
}

// describePlan renders a confirm prompt such as
// `add to "Travel / Japan" (78% confident): shrine at dusk`.
func (e *Engine) describePlan(d Decision) string {
	if d.Plan == nil {
		return ""
	}
	var target string
	if d.Plan.BoardToCreate != nil {
		target = fmt.Sprintf("create board %q", d.Plan.BoardToCreate.Name)
		if d.Plan.BoardToCreate.ParentID != nil {
			target += " under " + quoteName(e.tree, *d.Plan.BoardToCreate.ParentID)
		}
	} else {
		target = "add to " + joinNames(e.tree, d.Plan.BoardIDsToAddTo)
	}
	text := fmt.Sprintf("%s (%d%% confident)", target, percent(d.Suggestion.Confidence))
	if reasoning := strings.TrimSpace(d.Suggestion.Reasoning); reasoning != "" {
		text += ": " + reasoning
	}
	return text
}

// Summary renders the user-visible report for an outcome. Ignored
// suggestions yield "".
func (o Outcome) Summary(tree *boards.Tree) string {
	if !o.Applied {
		if o.Decision.Mode == ModeConfirm {
			return "suggestion declined"
		}
		return ""
	}
	conf := percent(o.Decision.Suggestion.Confidence)
	if failure := o.Result.Failure(); failure != nil {
		return fmt.Sprintf("could not apply suggestion (%d%% confident): %v", conf, failure)
	}
	names := make([]string, 0, len(o.Result.Added))
	for _, id := range o.Result.Added {
		if id == o.Result.CreatedBoardID && o.Decision.Plan != nil && o.Decision.Plan.BoardToCreate != nil {
			names = append(names, o.Decision.Plan.BoardToCreate.Name)
			continue
		}
		names = append(names, boardName(tree, id))
	}
	verb := "added to"
	switch {
	case o.Decision.Mode == ModeAutoApply && o.Result.CreatedBoardID != 0:
		verb = "auto-created and added to"
	case o.Decision.Mode == ModeAutoApply:
		verb = "auto-added to"
	case o.Result.CreatedBoardID != 0:
		verb = "created and added to"
	}
	text := fmt.Sprintf("%s %s, %d%% confident", verb, strings.Join(names, ", "), conf)
	if len(o.Result.Failed) > 0 {
		text += fmt.Sprintf(" (%d board(s) failed)", len(o.Result.Failed))
	}
	return text
}

func percent(confidence float64) int {
	return int(math.Round(confidence * 100))
}

func boardName(tree *boards.Tree, id int64) string {
	if tree != nil {
		if b, ok := tree.FindByID(id); ok {
			return b.Name
		}
	}
	return fmt.Sprintf("#%d", id)
}

func quoteName(tree *boards.Tree, id int64) string {
	if tree != nil {
		if path := tree.Path(id); path != "" {
			return fmt.Sprintf("%q", path)
		}
	}
	return fmt.Sprintf("#%d", id)
}

func joinNames(tree *boards.Tree, ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, quoteName(tree, id))
	}
	return strings.Join(parts, ", ")
}
