package analysis

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"curator/internal/batch"
	"curator/internal/fileutil"
	"curator/internal/library"
	"curator/internal/logging"
	"curator/internal/services"
	"curator/internal/services/llm"
	"curator/internal/textutil"
)

// Vision describes an image with a vision-capable model.
type Vision interface {
	AnalyzeImage(ctx context.Context, path, style, customPrompt string) (llm.Analysis, error)
}

// Options controls how images are analyzed.
type Options struct {
	Style        string
	CustomPrompt string
	AutoRename   bool
}

// Analyzer runs vision analysis against library images and records the
// results.
type Analyzer struct {
	store  *library.Store
	vision Vision
	opts   Options
	logger *slog.Logger
}

// NewAnalyzer wires an analyzer. An empty style means classic.
func NewAnalyzer(store *library.Store, vision Vision, opts Options, logger *slog.Logger) *Analyzer {
	if strings.TrimSpace(opts.Style) == "" {
		opts.Style = "classic"
	}
	return &Analyzer{
		store:  store,
		vision: vision,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "analysis"),
	}
}

// Result is the outcome of analyzing one image.
type Result struct {
	ImageID           int64    `json:"image_id"`
	Description       string   `json:"description"`
	Tags              []string `json:"tags"`
	SuggestedFilename string   `json:"suggested_filename,omitempty"`
	Renamed           bool     `json:"renamed"`
	Filename          string   `json:"filename"`
	// RenameErr is set when auto-rename was attempted and failed. The
	// analysis itself is still stored.
	RenameErr error `json:"-"`
}

// Analyze describes one image and stores its description and tags. When
// auto-rename is on and the model suggested a filename, the file is moved to
// that name within its directory, keeping the extension. Videos are rejected.
func (a *Analyzer) Analyze(ctx context.Context, id int64) (Result, error) {
	ctx = services.WithItemID(ctx, id)
	logger := logging.WithContext(ctx, a.logger)

	img, err := a.store.MustGetImage(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if img.MediaType != library.MediaImage {
		return Result{}, services.Wrap(services.ErrValidation, "analysis", "analyze", "only images can be analyzed", nil)
	}
	if _, err := os.Stat(img.Filepath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, services.Wrap(services.ErrNotFound, "analysis", "analyze", "file not found on disk: "+img.Filepath, nil)
		}
		return Result{}, fmt.Errorf("stat image: %w", err)
	}

	out, err := a.vision.AnalyzeImage(ctx, img.Filepath, a.opts.Style, a.opts.CustomPrompt)
	if err != nil {
		return Result{}, err
	}
	if !out.Parsed {
		logger.Debug("analysis reply was not JSON; stored as description", logging.Int("length", len(out.Raw)))
	}
	if err := a.store.UpdateAnalysis(ctx, id, out.Description, out.Tags); err != nil {
		return Result{}, err
	}
	result := Result{
		ImageID:           id,
		Description:       out.Description,
		Tags:              textutil.NormalizeTags(out.Tags),
		SuggestedFilename: out.SuggestedFilename,
		Filename:          img.Filename,
	}

	if a.opts.AutoRename && out.SuggestedFilename != "" {
		newPath, renamed, err := a.renameTo(ctx, img, out.SuggestedFilename, true)
		switch {
		case err != nil:
			result.RenameErr = err
			logging.WarnWithContext(logger, "auto-rename failed", "auto_rename_failed",
				logging.String("suggested", out.SuggestedFilename),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "rename the file manually with curator rename"),
			)
		case renamed:
			result.Renamed = true
			result.Filename = filepath.Base(newPath)
			logger.Info("image auto-renamed",
				logging.String(logging.FieldEventType, "image_renamed"),
				logging.String("from", img.Filename),
				logging.String("to", result.Filename),
			)
		}
	}

	logger.Info("image analyzed",
		logging.String(logging.FieldEventType, "image_analyzed"),
		logging.String("style", a.opts.Style),
		logging.Int("tags", len(result.Tags)),
		logging.Bool("renamed", result.Renamed),
	)
	return result, nil
}

// Rename moves an image file to newName in the same directory and records
// the new path. The name is sanitised; the original extension is kept when
// newName has none. An existing file with that name is an error.
func (a *Analyzer) Rename(ctx context.Context, id int64, newName string) (string, error) {
	img, err := a.store.MustGetImage(ctx, id)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(img.Filepath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "analysis", "rename", "file not found on disk: "+img.Filepath, nil)
		}
		return "", fmt.Errorf("stat image: %w", err)
	}
	newPath, _, err := a.renameTo(ctx, img, newName, false)
	if err != nil {
		return "", err
	}
	return newPath, nil
}

// renameTo moves img to name within its directory. With pickFree the first
// free name_N variant is used on collision; otherwise a collision fails.
func (a *Analyzer) renameTo(ctx context.Context, img *library.Image, name string, pickFree bool) (string, bool, error) {
	currentExt := filepath.Ext(img.Filepath)
	ext := currentExt
	stemSource := strings.TrimSpace(name)
	if given := filepath.Ext(stemSource); given != "" && strings.EqualFold(given, currentExt) {
		stemSource = strings.TrimSuffix(stemSource, given)
	}
	stem := textutil.SecureFileName(stemSource)
	if stem == "" {
		return "", false, services.Wrap(services.ErrValidation, "analysis", "rename", fmt.Sprintf("%q is not a usable filename", name), nil)
	}
	dir := filepath.Dir(img.Filepath)

	var target string
	if pickFree {
		path, err := fileutil.UniquePath(dir, stem, ext, img.Filepath)
		if err != nil {
			return "", false, err
		}
		target = path
	} else {
		target = filepath.Join(dir, stem+ext)
		if target != img.Filepath {
			exists, err := fileutil.Exists(target)
			if err != nil {
				return "", false, err
			}
			if exists {
				return "", false, services.Wrap(services.ErrValidation, "analysis", "rename", "file with that name already exists: "+filepath.Base(target), nil)
			}
		}
	}
	if target == img.Filepath {
		return target, false, nil
	}

	if err := fileutil.MoveFile(img.Filepath, target); err != nil {
		return "", false, fmt.Errorf("move file: %w", err)
	}
	if err := a.store.RenameImage(ctx, img.ID, target); err != nil {
		if rbErr := fileutil.MoveFile(target, img.Filepath); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("restore original name: %w", rbErr))
		}
		return "", false, err
	}
	return target, true, nil
}

// BatchSummary tallies a batch analysis run.
type BatchSummary struct {
	BatchID  string          `json:"batch_id"`
	Total    int             `json:"total"`
	Analyzed int             `json:"analyzed"`
	Renamed  int             `json:"renamed"`
	Failed   int             `json:"failed"`
	Skipped  int             `json:"skipped"`
	Errors   map[int64]error `json:"-"`
}

// AnalyzeBatch analyzes ids in order through the batch runner.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, runner batch.Runner, ids []int64) BatchSummary {
	if runner.Logger == nil {
		runner.Logger = a.logger
	}
	res := batch.Run(ctx, runner, ids, a.Analyze)
	summary := BatchSummary{
		BatchID:  res.BatchID,
		Total:    len(ids),
		Analyzed: res.Succeeded,
		Failed:   res.Failed,
		Skipped:  len(res.Skipped),
		Errors:   res.Errors,
	}
	for _, r := range res.Values {
		if r.Renamed {
			summary.Renamed++
		}
	}
	return summary
}

// AnalyzeUnanalyzed analyzes up to limit images that have never been
// analyzed, oldest first.
func (a *Analyzer) AnalyzeUnanalyzed(ctx context.Context, runner batch.Runner, limit int) (BatchSummary, error) {
	ids, err := a.store.UnanalyzedIDs(ctx, limit)
	if err != nil {
		return BatchSummary{}, err
	}
	return a.AnalyzeBatch(ctx, runner, ids), nil
}
