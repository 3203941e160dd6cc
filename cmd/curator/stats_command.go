package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"curator/internal/config"
	"curator/internal/library"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				st, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, st)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, strings.Join(renderSectionHeader("Library", colorize), "\n"))
				fmt.Fprintln(out, renderStatusLine("Location", statusInfo, cfg.Paths.LibraryDir, colorize))
				fmt.Fprintln(out, renderStatusLine("Images", statusInfo, strconv.Itoa(st.Images), colorize))
				kind := statusOK
				if st.Analyzed < st.Images {
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Analyzed", kind, fmt.Sprintf("%d of %d", st.Analyzed, st.Images), colorize))
				fmt.Fprintln(out, renderStatusLine("Favorites", statusInfo, strconv.Itoa(st.Favorites), colorize))
				fmt.Fprintln(out, renderStatusLine("Boards", statusInfo, strconv.Itoa(st.Boards), colorize))
				fmt.Fprintln(out, renderStatusLine("Tags", statusInfo, strconv.Itoa(st.Tags), colorize))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
