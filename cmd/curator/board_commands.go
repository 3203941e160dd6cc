package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"curator/internal/boards"
	"curator/internal/config"
	"curator/internal/library"
	"curator/internal/suggest"
)

func newBoardCommand(ctx *commandContext) *cobra.Command {
	boardCmd := &cobra.Command{
		Use:   "board",
		Short: "Create, arrange, and merge boards",
	}

	boardCmd.AddCommand(newBoardListCommand(ctx))
	boardCmd.AddCommand(newBoardShowCommand(ctx))
	boardCmd.AddCommand(newBoardCreateCommand(ctx))
	boardCmd.AddCommand(newBoardRenameCommand(ctx))
	boardCmd.AddCommand(newBoardDeleteCommand(ctx))
	boardCmd.AddCommand(newBoardMergeCommand(ctx))
	boardCmd.AddCommand(newBoardTargetsCommand(ctx))
	boardCmd.AddCommand(newBoardMembershipCommand(ctx, true))
	boardCmd.AddCommand(newBoardMembershipCommand(ctx, false))

	return boardCmd
}

type boardJSON struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	ParentID    *int64      `json:"parent_id"`
	ImageCount  int         `json:"image_count"`
	SubBoards   []boardJSON `json:"sub_boards"`
}

func toBoardJSON(nodes []*boards.Board) []boardJSON {
	out := make([]boardJSON, 0, len(nodes))
	for _, b := range nodes {
		out = append(out, boardJSON{
			ID:          b.ID,
			Name:        b.Name,
			Description: b.Description,
			ParentID:    b.ParentID,
			ImageCount:  b.ImageCount,
			SubBoards:   toBoardJSON(b.SubBoards),
		})
	}
	return out
}

func boardRows(flat []boards.FlatBoard) [][]string {
	rows := make([][]string, 0, len(flat))
	for _, fb := range flat {
		rows = append(rows, []string{
			strconv.FormatInt(fb.Board.ID, 10),
			fb.Label(),
			strconv.Itoa(fb.Board.ImageCount),
			truncate(fb.Board.Description, 48),
		})
	}
	return rows
}

var boardColumns = []string{"ID", "Board", "Images", "Description"}
var boardAligns = []columnAlignment{alignRight, alignLeft, alignRight, alignLeft}

func newBoardListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the board tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *library.Store) error {
				tree, err := store.LoadTree(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, toBoardJSON(tree.Roots()))
				}
				printTable(cmd, boardColumns, boardRows(tree.Flatten("")), boardAligns, "No boards yet")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the tree as JSON")
	return cmd
}

func newBoardShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <board-id>",
		Short: "List the images on a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("board", args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *library.Store) error {
				tree, err := store.LoadTree(cmd.Context())
				if err != nil {
					return err
				}
				images, err := store.BoardImages(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", tree.Path(id))
				printTable(cmd, imageColumns, imageRows(images), imageAligns, "No images on this board")
				return nil
			})
		},
	}
}

func newBoardCreateCommand(ctx *commandContext) *cobra.Command {
	var parent int64
	var description string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := boards.Draft{Name: args[0], Description: description}
			if parent > 0 {
				draft.ParentID = &parent
			}
			if err := suggest.ValidateDraft(draft); err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *library.Store) error {
				id, err := store.CreateBoard(cmd.Context(), draft)
				if err != nil {
					return err
				}
				tree, err := store.LoadTree(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created board %d: %s\n", id, tree.Path(id))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&parent, "parent", 0, "Parent board id")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Board description")
	return cmd
}

func newBoardRenameCommand(ctx *commandContext) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "rename <board-id> <name>",
		Short: "Rename a board",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("board", args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *library.Store) error {
				tree, err := store.LoadTree(cmd.Context())
				if err != nil {
					return err
				}
				b, ok := tree.FindByID(id)
				if !ok {
					return fmt.Errorf("board %d not found", id)
				}
				desc := b.Description
				if cmd.Flags().Changed("description") {
					desc = description
				}
				if err := store.RenameBoard(cmd.Context(), id, args[1], desc); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed board %d to %s\n", id, args[1])
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "New description (unchanged when omitted)")
	return cmd
}

func newBoardDeleteCommand(ctx *commandContext) *cobra.Command {
	var cascade bool

	cmd := &cobra.Command{
		Use:   "delete <board-id>",
		Short: "Delete a board",
		Long: "Delete a board. Sub-boards move up to the deleted board's parent " +
			"unless --cascade is given, in which case the whole subtree is removed. " +
			"Images stay in the library either way.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("board", args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *library.Store) error {
				tree, err := store.LoadTree(cmd.Context())
				if err != nil {
					return err
				}
				name := tree.Path(id)
				removed, err := tree.Remove(cmd.Context(), id, cascade, store)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(removed) > 1 {
					fmt.Fprintf(out, "Deleted %s and %d sub-board(s)\n", name, len(removed)-1)
				} else {
					fmt.Fprintf(out, "Deleted %s\n", name)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&cascade, "cascade", false, "Also delete every sub-board")
	return cmd
}

func newBoardMergeCommand(ctx *commandContext) *cobra.Command {
	var keepSource bool

	cmd := &cobra.Command{
		Use:   "merge <source-id> <target-id>",
		Short: "Move every image from one board into another",
		Long: "Move every image from the source board into the target. The source " +
			"is deleted and its sub-boards move under the target unless --keep-source " +
			"is given. The target may not be the source or one of its descendants.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs("board", args)
			if err != nil {
				return err
			}
			source, target := ids[0], ids[1]
			return ctx.withStore(func(_ *config.Config, store *library.Store) error {
				tree, err := store.LoadTree(cmd.Context())
				if err != nil {
					return err
				}
				sourceName, targetName := tree.Path(source), tree.Path(target)
				res, err := tree.Merge(cmd.Context(), source, target, !keepSource, store)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Merged %s into %s: %d image(s) moved\n", sourceName, targetName, res.ImagesMoved)
				if res.SourceDeleted {
					fmt.Fprintf(out, "Deleted %s\n", sourceName)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&keepSource, "keep-source", false, "Keep the source board after merging")
	return cmd
}

func newBoardTargetsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "targets <source-id>",
		Short: "List boards a board can be merged into",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := parseID("board", args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *library.Store) error {
				tree, err := store.LoadTree(cmd.Context())
				if err != nil {
					return err
				}
				if _, ok := tree.FindByID(source); !ok {
					return fmt.Errorf("board %d not found", source)
				}
				printTable(cmd, boardColumns, boardRows(tree.ValidMergeTargets(source)), boardAligns, "No valid merge targets")
				return nil
			})
		},
	}
}

func newBoardMembershipCommand(ctx *commandContext, add bool) *cobra.Command {
	use, short, verb, description := "remove <board-id> <image-id>...", "Remove images from a board", "Removed", "removing"
	if add {
		use, short, verb, description = "add <board-id> <image-id>...", "Add images to a board", "Added", "adding"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  short + ". Every image is attempted; failures are listed once the batch ends.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := parseID("board", args[0])
			if err != nil {
				return err
			}
			images, err := selectImages(args[1:])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *library.Store) error {
				res := runImageBatch(cmd, ctx, description, images, func(c context.Context, img int64) (struct{}, error) {
					if add {
						return struct{}{}, store.AddMembership(c, board, img)
					}
					return struct{}{}, store.RemoveMembership(c, board, img)
				})
				printBatchTotals(cmd.OutOrStdout(), verb, len(images), res)
				return nil
			})
		},
	}
}
