package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pario-ai/convo/pkg/engine"
)

func newGenerateCmd(configPath *string) *cobra.Command {
	var (
		maxLength   int
		temperature float64
		noCache     bool
		showStats   bool
	)

	cmd := &cobra.Command{
		Use:   "generate [prompt...]",
		Short: "Generate a response for a single prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(configPath, func(cmd *cobra.Command, args []string, a *app) error {
			text, err := a.engine.Generate(cmd.Context(), engine.Request{
				Prompt:      strings.Join(args, " "),
				MaxLength:   maxLength,
				Temperature: temperatureFlag(cmd, temperature),
				NoCache:     noCache,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			if showStats {
				printStats(cmd, a)
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&maxLength, "max-length", 0, "maximum response length (0 uses the configured default)")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "sampling temperature (unset uses the configured default)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the response cache")
	cmd.Flags().BoolVar(&showStats, "stats", false, "print statistics afterwards")
	return cmd
}

func newAlternativesCmd(configPath *string) *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "alternatives [prompt...]",
		Short: "Generate responses at increasing temperatures",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(configPath, func(cmd *cobra.Command, args []string, a *app) error {
			out, err := a.engine.GenerateAlternatives(cmd.Context(), strings.Join(args, " "), n, nil)
			if err != nil {
				return err
			}
			for i, text := range out {
				fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s\n", i+1, text)
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&n, "num", "n", 3, "number of alternatives")
	return cmd
}

func newInteractiveCmd(configPath *string) *cobra.Command {
	var (
		turns  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "interactive [prompt...]",
		Short: "Feed each response back into the prompt for several turns",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(configPath, func(cmd *cobra.Command, args []string, a *app) error {
			out, err := a.engine.InteractiveGenerate(cmd.Context(), strings.Join(args, " "), turns, nil)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			for _, t := range out {
				fmt.Fprintf(cmd.OutOrStdout(), "Turn %d: %s\n", t.Turn, t.Response)
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&turns, "turns", "n", 3, "number of turns")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print turns as JSON")
	return cmd
}
