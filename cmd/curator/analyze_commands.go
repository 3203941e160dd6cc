package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"curator/internal/analysis"
	"curator/internal/batch"
	"curator/internal/config"
	"curator/internal/library"
	"curator/internal/services/llm"
	"curator/internal/suggest"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var recursive bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Register media files already on disk",
		Long:  "Register every supported image and video under a directory (the library directory by default) that is not yet in the library.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				dir := cfg.Paths.LibraryDir
				if len(args) == 1 {
					expanded, err := config.ExpandPath(args[0])
					if err != nil {
						return err
					}
					dir = expanded
				}
				res, err := store.Scan(cmd.Context(), dir, recursive)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scanned %s: %d added, %d already known, %d unsupported\n",
					dir, len(res.Added), res.Skipped, res.Unsupported)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var style string
	var prompt string
	var rename bool
	var limit int
	var skipCheck bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze [image-id...]",
		Short: "Describe and tag images with the vision model",
		Long: "Describe and tag the given images, or up to --limit images that have " +
			"never been analyzed. With --rename the file is moved to the name the " +
			"model suggests, keeping its extension.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := selectImages(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				opts := analysis.Options{
					Style:        cfg.Analysis.DefaultStyle,
					CustomPrompt: cfg.Analysis.CustomPrompt,
					AutoRename:   cfg.Analysis.AutoRename,
				}
				if cmd.Flags().Changed("style") {
					if _, ok := llm.LookupStyle(style); !ok {
						return fmt.Errorf("unknown style %q", style)
					}
					opts.Style = style
				}
				if cmd.Flags().Changed("prompt") {
					opts.CustomPrompt = prompt
				}
				if cmd.Flags().Changed("rename") {
					opts.AutoRename = rename
				}
				if !cmd.Flags().Changed("limit") {
					limit = cfg.Analysis.BatchLimit
				}

				client := ctx.llmClient(cfg)
				if !skipCheck {
					if err := client.HealthCheck(cmd.Context()); err != nil {
						return fmt.Errorf("AI not available: %w", err)
					}
				}
				analyzer := analysis.NewAnalyzer(store, client, opts, ctx.loggerValue())

				if len(ids) == 1 {
					res, err := analyzer.Analyze(cmd.Context(), ids[0])
					if err != nil {
						return err
					}
					if asJSON {
						return writeJSON(cmd, res)
					}
					printAnalysis(cmd.OutOrStdout(), res)
					return nil
				}

				return withBatchLock(cfg, func() error {
					if len(ids) == 0 {
						ids, err = store.UnanalyzedIDs(cmd.Context(), limit)
						if err != nil {
							return err
						}
						if len(ids) == 0 {
							fmt.Fprintln(cmd.OutOrStdout(), "No unanalyzed images")
							return nil
						}
					}
					report, finish := newProgressReporter(cmd.ErrOrStderr(), len(ids), "analyzing")
					summary := analyzer.AnalyzeBatch(cmd.Context(), batch.Runner{Progress: report}, ids)
					finish()
					if asJSON {
						return writeJSON(cmd, struct {
							analysis.BatchSummary
							Errors map[string]string `json:"errors,omitempty"`
						}{summary, itemErrors(summary.Errors)})
					}
					for _, id := range sortedKeys(summary.Errors) {
						fmt.Fprintf(cmd.OutOrStdout(), "image %d: %v\n", id, summary.Errors[id])
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Analyzed %d of %d image(s): %d renamed, %d failed",
						summary.Analyzed, summary.Total, summary.Renamed, summary.Failed)
					if summary.Skipped > 0 {
						fmt.Fprintf(cmd.OutOrStdout(), ", %d skipped", summary.Skipped)
					}
					fmt.Fprintln(cmd.OutOrStdout())
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVarP(&style, "style", "s", "", "Description style: "+strings.Join(config.AnalysisStyles, ", "))
	cmd.Flags().StringVar(&prompt, "prompt", "", "Prompt for the custom style")
	cmd.Flags().BoolVar(&rename, "rename", false, "Rename files to the suggested filename")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum images when no ids are given (defaults to analysis.batch_limit)")
	cmd.Flags().BoolVar(&skipCheck, "skip-check", false, "Skip the endpoint health check")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printAnalysis(out io.Writer, res analysis.Result) {
	fmt.Fprintf(out, "Image %d analyzed\n", res.ImageID)
	fmt.Fprintf(out, "  File:        %s\n", res.Filename)
	if res.Renamed {
		fmt.Fprintln(out, "  Renamed:     yes")
	} else if res.RenameErr != nil {
		fmt.Fprintf(out, "  Renamed:     no (%v)\n", res.RenameErr)
	}
	fmt.Fprintf(out, "  Tags:        %s\n", strings.Join(res.Tags, ", "))
	fmt.Fprintf(out, "  Description: %s\n", res.Description)
}

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var acceptAll bool
	var rejectAll bool
	var skipCheck bool

	cmd := &cobra.Command{
		Use:   "classify [image-id...]",
		Short: "Ask the model which boards images belong on",
		Long: "Ask the model to place images on boards. Suggestions at or above 85% " +
			"confidence are applied, those from 70% are offered for confirmation, " +
			"and the rest are dropped. Without ids, analyzed images that are on no " +
			"board are classified.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if acceptAll && rejectAll {
				return fmt.Errorf("--yes and --no are mutually exclusive")
			}
			ids, err := selectImages(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				client := ctx.llmClient(cfg)
				if !skipCheck {
					if err := client.HealthCheck(cmd.Context()); err != nil {
						return fmt.Errorf("AI not available: %w", err)
					}
				}
				if len(ids) == 0 {
					ids, err = unplacedImageIDs(cmd.Context(), store, limit)
					if err != nil {
						return err
					}
					if len(ids) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "No unplaced analyzed images")
						return nil
					}
				}

				var confirmer suggest.Confirmer
				switch {
				case acceptAll:
					confirmer = suggest.ConfirmFunc(func(context.Context, suggest.Decision, string) (bool, error) {
						return true, nil
					})
				case rejectAll:
					confirmer = suggest.RejectAll
				case isInteractive(cmd.InOrStdin()):
					confirmer = newPromptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
				default:
					confirmer = suggest.RejectAll
				}

				return withBatchLock(cfg, func() error {
					org, err := analysis.NewOrganizer(cmd.Context(), store, client, confirmer, ctx.loggerValue())
					if err != nil {
						return err
					}
					report, finish := newProgressReporter(cmd.ErrOrStderr(), len(ids), "classifying")
					summary := org.Run(cmd.Context(), batch.Runner{Progress: report}, ids)
					finish()

					out := cmd.OutOrStdout()
					for _, o := range summary.Outcomes {
						if text := o.Summary(org.Tree); text != "" {
							fmt.Fprintf(out, "image %d: %s\n", o.ImageID, text)
						}
					}
					for _, id := range sortedKeys(summary.Errors) {
						fmt.Fprintf(out, "image %d: %v\n", id, summary.Errors[id])
					}
					fmt.Fprintf(out, "Classified %d image(s): %d auto-applied, %d confirmed, %d declined, %d ignored, %d unavailable, %d failed",
						summary.Total, summary.AutoApplied, summary.Confirmed, summary.Declined,
						summary.Ignored, summary.ClassifyErrs, summary.Failed)
					if summary.Skipped > 0 {
						fmt.Fprintf(out, ", %d skipped", summary.Skipped)
					}
					fmt.Fprintln(out)
					return nil
				})
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum images when no ids are given")
	cmd.Flags().BoolVarP(&acceptAll, "yes", "y", false, "Accept every suggestion that needs confirmation")
	cmd.Flags().BoolVar(&rejectAll, "no", false, "Decline every suggestion that needs confirmation")
	cmd.Flags().BoolVar(&skipCheck, "skip-check", false, "Skip the endpoint health check")
	return cmd
}

// selectImages parses image ids, dropping repeats while keeping the order
// they were given in.
func selectImages(args []string) ([]int64, error) {
	ids, err := parseIDs("image", args)
	if err != nil {
		return nil, err
	}
	return batch.NewSelection(ids...).IDs(), nil
}

// unplacedImageIDs lists analyzed images on no board, oldest first.
func unplacedImageIDs(ctx context.Context, store *library.Store, limit int) ([]int64, error) {
	images, err := store.ListImages(ctx, library.ListFilter{})
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, img := range images {
		if img.Analyzed() && len(img.BoardIDs) == 0 {
			ids = append(ids, img.ID)
		}
	}
	slices.Sort(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func sortedKeys(m map[int64]error) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func newPromptConfirmer(in io.Reader, out io.Writer) suggest.Confirmer {
	reader := bufio.NewReader(in)
	return suggest.ConfirmFunc(func(_ context.Context, d suggest.Decision, summary string) (bool, error) {
		fmt.Fprintf(out, "image %d: %s\nApply? [y/N] ", d.Plan.TargetImageID, summary)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	})
}
