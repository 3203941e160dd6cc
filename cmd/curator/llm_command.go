package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"curator/internal/services/llm"
)

func newLLMCommand(ctx *commandContext) *cobra.Command {
	llmCmd := &cobra.Command{
		Use:   "llm",
		Short: "Inspect the language model endpoint",
	}

	llmCmd.AddCommand(newLLMCheckCommand(ctx))
	llmCmd.AddCommand(newLLMStylesCommand())

	return llmCmd
}

func newLLMCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the endpoint is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			client := ctx.llmClient(cfg)

			fmt.Fprintln(out, strings.Join(renderSectionHeader("Language model", colorize), "\n"))
			fmt.Fprintln(out, renderStatusLine("Endpoint", statusInfo, cfg.TextLLM().BaseURL, colorize))
			fmt.Fprintln(out, renderStatusLine("Text model", statusInfo, client.Model(), colorize))
			fmt.Fprintln(out, renderStatusLine("Vision model", statusInfo, cfg.VisionLLM().Model, colorize))
			if cfg.TextLLM().APIKey == "" {
				fmt.Fprintln(out, renderStatusLine("API key", statusWarn, "not set", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("API key", statusOK, "set", colorize))
			}

			if err := client.HealthCheck(cmd.Context()); err != nil {
				fmt.Fprintln(out, renderStatusLine("Connection", statusError, err.Error(), colorize))
				return fmt.Errorf("AI not available")
			}
			fmt.Fprintln(out, renderStatusLine("Connection", statusOK, "reachable", colorize))
			return nil
		},
	}
}

func newLLMStylesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "styles",
		Short:       "List the image description styles",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			styles := llm.Styles()
			rows := make([][]string, 0, len(styles))
			for _, s := range styles {
				rows = append(rows, []string{s.Key, s.Name, s.Description})
			}
			printTable(cmd, []string{"Key", "Name", "Description"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft}, "No styles")
			return nil
		},
	}
}
