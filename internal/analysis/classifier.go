package analysis

import (
	"context"
	"log/slog"

	"curator/internal/batch"
	"curator/internal/boards"
	"curator/internal/library"
	"curator/internal/logging"
	"curator/internal/services/llm"
	"curator/internal/suggest"
)

// Advisor proposes a board placement from an image summary.
type Advisor interface {
	SuggestBoard(ctx context.Context, img llm.ImageSummary, options []llm.BoardOption) (suggest.Suggestion, error)
}

// BoardClassifier implements suggest.Classifier on top of the library and an
// LLM advisor. The tree is read at every call so boards created earlier in
// the session are offered to later images.
type BoardClassifier struct {
	store   *library.Store
	advisor Advisor
	tree    *boards.Tree
}

// NewBoardClassifier returns a classifier offering the boards in tree.
func NewBoardClassifier(store *library.Store, advisor Advisor, tree *boards.Tree) *BoardClassifier {
	return &BoardClassifier{store: store, advisor: advisor, tree: tree}
}

// Classify implements suggest.Classifier.
func (c *BoardClassifier) Classify(ctx context.Context, imageID int64) (suggest.Suggestion, error) {
	img, err := c.store.MustGetImage(ctx, imageID)
	if err != nil {
		return suggest.Suggestion{}, err
	}
	summary := llm.ImageSummary{
		Filename:    img.Filename,
		Description: img.Description,
		Tags:        img.Tags,
	}
	return c.advisor.SuggestBoard(ctx, summary, llm.BoardOptions(c.tree.Flatten("")))
}

// Organizer runs the suggestion engine over a batch of images.
type Organizer struct {
	Engine *suggest.Engine
	Tree   *boards.Tree
	Logger *slog.Logger

	store *library.Store
}

// NewOrganizer loads the board tree and wires a classifier, the store as
// board writer, and confirmer into a suggestion engine sharing that tree.
func NewOrganizer(ctx context.Context, store *library.Store, advisor Advisor, confirmer suggest.Confirmer, logger *slog.Logger) (*Organizer, error) {
	tree, err := store.LoadTree(ctx)
	if err != nil {
		return nil, err
	}
	classifier := NewBoardClassifier(store, advisor, tree)
	return &Organizer{
		Engine: suggest.NewEngine(classifier, store, confirmer, tree, logger),
		Tree:   tree,
		Logger: logger,
		store:  store,
	}, nil
}

// OrganizeSummary tallies a classification run.
type OrganizeSummary struct {
	BatchID      string
	Total        int
	AutoApplied  int
	Confirmed    int
	Declined     int
	Ignored      int
	ClassifyErrs int
	Failed       int
	Skipped      int
	Outcomes     []suggest.Outcome
	Errors       map[int64]error
}

// Run classifies ids in order. Applied plans that wrote no membership count
// as failures; everything else is tallied by decision mode. Once the loop
// ends Tree is reloaded from the store so summaries see fresh image counts.
func (o *Organizer) Run(ctx context.Context, runner batch.Runner, ids []int64) OrganizeSummary {
	if runner.Logger == nil {
		runner.Logger = o.Logger
	}
	refresh := runner.Refresh
	runner.Refresh = func(ctx context.Context, attempted []int64) {
		if refresh != nil {
			refresh(ctx, attempted)
		}
		o.reloadTree(ctx)
	}
	res := batch.Run(ctx, runner, ids, o.Engine.Process)
	summary := OrganizeSummary{
		BatchID: res.BatchID,
		Total:   len(ids),
		Failed:  res.Failed,
		Skipped: len(res.Skipped),
		Errors:  res.Errors,
	}
	for _, id := range res.Attempted {
		out, ok := res.Values[id]
		if !ok {
			continue
		}
		summary.Outcomes = append(summary.Outcomes, out)
		switch {
		case out.ClassifyErr != nil:
			summary.ClassifyErrs++
		case out.Applied && out.Confirmed:
			summary.Confirmed++
		case out.Applied:
			summary.AutoApplied++
		case out.Decision.Mode == suggest.ModeConfirm:
			summary.Declined++
		default:
			summary.Ignored++
		}
	}
	return summary
}

func (o *Organizer) reloadTree(ctx context.Context) {
	if o.store == nil {
		return
	}
	tree, err := o.store.LoadTree(ctx)
	if err != nil {
		if o.Logger != nil {
			o.Logger.Warn("board tree reload failed", logging.Error(err))
		}
		return
	}
	o.Tree = tree
}
