package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/pario-ai/convo/pkg/engine"
	"github.com/pario-ai/convo/pkg/stats"
)

func newBatchCmd(configPath *string) *cobra.Command {
	var (
		maxLength   int
		temperature float64
		showStats   bool
		metrics     bool
	)

	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "Generate a response for every line of a file (or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(configPath, func(cmd *cobra.Command, args []string, a *app) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			prompts, err := readPrompts(in)
			if err != nil {
				return err
			}

			out, err := a.engine.BatchGenerate(cmd.Context(), prompts, engine.BatchRequest{
				MaxLength:   maxLength,
				Temperature: temperatureFlag(cmd, temperature),
			})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, text := range out {
				fmt.Fprintln(w, text)
			}

			if showStats {
				printStats(cmd, a)
			}
			if metrics {
				return writeMetrics(w, a)
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&maxLength, "max-length", 0, "maximum response length (0 uses the configured default)")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "sampling temperature (unset uses the configured default)")
	cmd.Flags().BoolVar(&showStats, "stats", false, "print statistics afterwards")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "print prometheus metrics afterwards")
	return cmd
}

// readPrompts returns the non-blank lines of r.
func readPrompts(r io.Reader) ([]string, error) {
	var prompts []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		prompts = append(prompts, line)
	}
	return prompts, sc.Err()
}

// writeMetrics renders the engine statistics in prometheus text format.
func writeMetrics(w io.Writer, a *app) error {
	reg := prometheus.NewRegistry()
	size := func() int {
		return a.engine.Statistics().CacheSize
	}
	if err := reg.Register(stats.NewCollector(a.stats, "convo", size)); err != nil {
		return err
	}

	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
