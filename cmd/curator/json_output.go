package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// writeJSON writes v to stdout as indented JSON. HTML escaping is off so
// filenames and descriptions print as typed.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// itemErrors keys per-item batch failures by id. error values have no JSON
// form of their own.
func itemErrors(errs map[int64]error) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]string, len(errs))
	for id, err := range errs {
		out[strconv.FormatInt(id, 10)] = err.Error()
	}
	return out
}
