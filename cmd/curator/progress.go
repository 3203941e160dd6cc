package main

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"curator/internal/batch"
)

// newProgressReporter returns a batch progress hook. Terminals get a
// progress bar; other writers get one line per item.
func newProgressReporter(w io.Writer, total int, description string) (func(batch.Event), func()) {
	if !shouldColorize(w) {
		report := func(e batch.Event) {
			status := "ok"
			if e.Err != nil {
				status = "failed: " + e.Err.Error()
			}
			fmt.Fprintf(w, "[%d/%d] image %d %s\n", e.Index, e.Total, e.ID, status)
		}
		return report, func() {}
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
	failed := 0
	report := func(e batch.Event) {
		if e.Err != nil {
			failed++
			bar.Describe(fmt.Sprintf("%s (%d failed)", description, failed))
		}
		_ = bar.Add(1)
	}
	finish := func() {
		_ = bar.Finish()
	}
	return report, finish
}

// runImageBatch applies op to every id with progress on stderr, then prints
// one line per failed image to stdout.
func runImageBatch[T any](cmd *cobra.Command, ctx *commandContext, description string, ids []int64, op batch.Operation[T]) batch.Result[T] {
	report, finish := newProgressReporter(cmd.ErrOrStderr(), len(ids), description)
	res := batch.Run(cmd.Context(), batch.Runner{Progress: report, Logger: ctx.loggerValue()}, ids, op)
	finish()
	for _, id := range sortedKeys(res.Errors) {
		fmt.Fprintf(cmd.OutOrStdout(), "image %d: %v\n", id, res.Errors[id])
	}
	return res
}

// printBatchTotals writes "<verb> N of M image(s), K failed" and any
// images left unattempted by cancellation.
func printBatchTotals[T any](out io.Writer, verb string, total int, res batch.Result[T]) {
	fmt.Fprintf(out, "%s %d of %d image(s), %d failed", verb, res.Succeeded, total, res.Failed)
	if n := len(res.Skipped); n > 0 {
		fmt.Fprintf(out, ", %d skipped", n)
	}
	fmt.Fprintln(out)
}
