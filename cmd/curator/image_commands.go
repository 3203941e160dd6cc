package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"curator/internal/analysis"
	"curator/internal/config"
	"curator/internal/library"
	"curator/internal/similarity"
	"curator/internal/textutil"
)

var imageColumns = []string{"ID", "File", "Type", "Size", "Fav", "Tags", "Analyzed"}
var imageAligns = []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft}

func imageRows(images []*library.Image) [][]string {
	rows := make([][]string, 0, len(images))
	for _, img := range images {
		fav := ""
		if img.Favorite {
			fav = "★"
		}
		rows = append(rows, []string{
			strconv.FormatInt(img.ID, 10),
			img.Filename,
			string(img.MediaType),
			formatSize(img.Size),
			fav,
			truncate(strings.Join(img.Tags, ", "), 40),
			formatWhen(img.AnalyzedAt),
		})
	}
	return rows
}

func newImageCommand(ctx *commandContext) *cobra.Command {
	imageCmd := &cobra.Command{
		Use:     "image",
		Aliases: []string{"images"},
		Short:   "Inspect and edit library images",
	}

	imageCmd.AddCommand(newImageAddCommand(ctx))
	imageCmd.AddCommand(newImageListCommand(ctx))
	imageCmd.AddCommand(newImageShowCommand(ctx))
	imageCmd.AddCommand(newImageSearchCommand(ctx))
	imageCmd.AddCommand(newImageSimilarCommand(ctx))
	imageCmd.AddCommand(newImageFavoriteCommand(ctx))
	imageCmd.AddCommand(newImageTagCommand(ctx))
	imageCmd.AddCommand(newImageUntagCommand(ctx))
	imageCmd.AddCommand(newImageDescribeCommand(ctx))
	imageCmd.AddCommand(newImageRenameCommand(ctx))
	imageCmd.AddCommand(newImageDeleteCommand(ctx))

	return imageCmd
}

func newImageAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>...",
		Short: "Copy files into the library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				out := cmd.OutOrStdout()
				for _, arg := range args {
					src, err := config.ExpandPath(arg)
					if err != nil {
						return err
					}
					img, err := store.Import(cmd.Context(), src, cfg.Paths.LibraryDir)
					if err != nil {
						return fmt.Errorf("add %s: %w", arg, err)
					}
					fmt.Fprintf(out, "Added image %d: %s\n", img.ID, img.Filename)
				}
				return nil
			})
		},
	}
}

func newImageListCommand(ctx *commandContext) *cobra.Command {
	var filter library.ListFilter
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List images, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *library.Store) error {
				images, err := store.ListImages(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, images)
				}
				printTable(cmd, imageColumns, imageRows(images), imageAligns, "No images found")
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&filter.BoardID, "board", 0, "Only images on this board")
	cmd.Flags().BoolVar(&filter.FavoritesOnly, "favorites", false, "Only favorites")
	cmd.Flags().BoolVar(&filter.Unanalyzed, "unanalyzed", false, "Only images without an analysis")
	cmd.Flags().StringVar(&filter.Tag, "tag", "", "Only images with this tag")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 0, "Maximum number of images")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newImageShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <image-id>",
		Short: "Show one image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("image", args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *library.Store) error {
				img, err := store.MustGetImage(cmd.Context(), id)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, img)
				}
				tree, err := store.LoadTree(cmd.Context())
				if err != nil {
					return err
				}
				boardNames := make([]string, 0, len(img.BoardIDs))
				for _, bid := range img.BoardIDs {
					boardNames = append(boardNames, tree.Path(bid))
				}
				description := img.Description
				if description == "" {
					description = "(none)"
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Image %d\n", img.ID)
				fmt.Fprintf(out, "  File:        %s\n", img.Filename)
				fmt.Fprintf(out, "  Path:        %s\n", img.Filepath)
				fmt.Fprintf(out, "  Type:        %s\n", img.MediaType)
				fmt.Fprintf(out, "  Size:        %s\n", formatSize(img.Size))
				fmt.Fprintf(out, "  Favorite:    %s\n", yesNo(img.Favorite))
				fmt.Fprintf(out, "  Added:       %s\n", formatWhen(&img.CreatedAt))
				fmt.Fprintf(out, "  Analyzed:    %s\n", formatWhen(img.AnalyzedAt))
				fmt.Fprintf(out, "  Tags:        %s\n", strings.Join(img.Tags, ", "))
				fmt.Fprintf(out, "  Boards:      %s\n", strings.Join(boardNames, "; "))
				fmt.Fprintf(out, "  Description: %s\n", description)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newImageSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search filenames, descriptions, and tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return ctx.withStore(func(_ *config.Config, store *library.Store) error {
				images, err := store.SearchImages(cmd.Context(), query, limit)
				if err != nil {
					return err
				}
				printTable(cmd, imageColumns, imageRows(images), imageAligns, fmt.Sprintf("No images match %q", query))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of results")
	return cmd
}

func newImageSimilarCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "similar <image-id>...",
		Short: "Find images sharing tags with an image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs("image", args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				if !cmd.Flags().Changed("limit") {
					limit = cfg.Similarity.Limit
				}
				cache := similarity.NewCache(similarity.NewTagLookup(store, limit), ctx.loggerValue())
				defer cache.Reset()

				out := cmd.OutOrStdout()
				for i, id := range ids {
					matches, err := cache.Get(cmd.Context(), id)
					if err != nil {
						return err
					}
					if len(ids) > 1 {
						if i > 0 {
							fmt.Fprintln(out)
						}
						fmt.Fprintf(out, "Similar to image %d\n", id)
					}
					rows := make([][]string, 0, len(matches))
					for _, m := range matches {
						rows = append(rows, []string{
							strconv.FormatInt(m.ImageID, 10),
							m.Filename,
							strings.Join(m.SharedTags, ", "),
							fmt.Sprintf("%.2f", m.TextScore),
						})
					}
					printTable(cmd, []string{"ID", "File", "Shared tags", "Text"}, rows,
						[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight}, "No similar images")
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum matches (defaults to similarity.limit)")
	return cmd
}

func newImageFavoriteCommand(ctx *commandContext) *cobra.Command {
	var set, unset bool

	cmd := &cobra.Command{
		Use:   "favorite <image-id>",
		Short: "Toggle the favorite flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if set && unset {
				return fmt.Errorf("--set and --unset are mutually exclusive")
			}
			id, err := parseID("image", args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *library.Store) error {
				var favorite bool
				switch {
				case set, unset:
					favorite = set
					err = store.SetFavorite(cmd.Context(), id, favorite)
				default:
					favorite, err = store.ToggleFavorite(cmd.Context(), id)
				}
				if err != nil {
					return err
				}
				state := "removed from favorites"
				if favorite {
					state = "marked as favorite"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Image %d %s\n", id, state)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&set, "set", false, "Mark as favorite")
	cmd.Flags().BoolVar(&unset, "unset", false, "Remove from favorites")
	return cmd
}

func newImageTagCommand(ctx *commandContext) *cobra.Command {
	var tagArgs []string

	cmd := &cobra.Command{
		Use:   "tag <image-id>... --tag <tag>[,<tag>...]",
		Short: "Add tags to one or more images",
		Long: "Add the same tags to every listed image. Each image is attempted; " +
			"failures are listed once the batch ends.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := selectImages(args)
			if err != nil {
				return err
			}
			tags := textutil.SplitTags(strings.Join(tagArgs, ","))
			if len(tags) == 0 {
				return fmt.Errorf("no tags given (use --tag)")
			}
			return ctx.withStore(func(_ *config.Config, store *library.Store) error {
				res := runImageBatch(cmd, ctx, "tagging", ids, func(c context.Context, id int64) ([]string, error) {
					return store.AddTags(c, id, tags)
				})
				out := cmd.OutOrStdout()
				for _, id := range ids {
					if all, ok := res.Values[id]; ok {
						fmt.Fprintf(out, "Image %d tags: %s\n", id, strings.Join(all, ", "))
					}
				}
				printBatchTotals(out, "Tagged", len(ids), res)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&tagArgs, "tag", "t", nil, "Tags to add (comma separated or repeated)")
	return cmd
}

func newImageUntagCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "untag <image-id> <tag>",
		Short: "Remove a tag from an image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("image", args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *library.Store) error {
				if err := store.RemoveTag(cmd.Context(), id, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed tag %q from image %d\n", textutil.NormalizeTag(args[1]), id)
				return nil
			})
		},
	}
}

func newImageDescribeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <image-id> <text>",
		Short: "Replace an image description",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("image", args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *library.Store) error {
				if err := store.UpdateDescription(cmd.Context(), id, strings.Join(args[1:], " ")); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated description of image %d\n", id)
				return nil
			})
		},
	}
}

func newImageRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <image-id> <new-name>",
		Short: "Rename an image file on disk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("image", args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				analyzer := analysis.NewAnalyzer(store, nil, analysis.Options{}, ctx.loggerValue())
				path, err := analyzer.Rename(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed image %d to %s\n", id, path)
				return nil
			})
		},
	}
}

func newImageDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <image-id>",
		Short: "Forget an image (the file stays on disk)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("image", args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *library.Store) error {
				if err := store.DeleteImage(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed image %d from the library\n", id)
				return nil
			})
		},
	}
}

func newTagsCommand(ctx *commandContext) *cobra.Command {
	var prefix string
	var related string
	var limit int
	var prune bool

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List tags with image counts",
		Long: "List tags with image counts. With --related the count is how many " +
			"images carry both the listed tag and the given one.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *library.Store) error {
				if prune {
					n, err := store.PruneTags(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d unused tag(s)\n", n)
					return nil
				}
				var (
					tags []library.TagCount
					err  error
				)
				switch {
				case related != "":
					tags, err = store.RelatedTags(cmd.Context(), related, limit)
				case prefix != "":
					tags, err = store.TagSuggestions(cmd.Context(), prefix, limit)
				default:
					tags, err = store.AllTags(cmd.Context())
				}
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(tags))
				for _, tc := range tags {
					rows = append(rows, []string{tc.Name, strconv.Itoa(tc.Count)})
				}
				empty := "No tags yet"
				if related != "" {
					empty = fmt.Sprintf("No tags share images with %q", textutil.NormalizeTag(related))
				}
				printTable(cmd, []string{"Tag", "Images"}, rows, []columnAlignment{alignLeft, alignRight}, empty)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Only tags starting with this prefix")
	cmd.Flags().StringVar(&related, "related", "", "Tags that appear on images alongside this tag")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum tags for --prefix and --related")
	cmd.Flags().BoolVar(&prune, "prune", false, "Delete tags no image uses")
	return cmd
}
