package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	cachesql "github.com/pario-ai/convo/pkg/cache/sqlite"
)

func newCacheCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache (needs the sqlite backend with a file dsn)",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: withApp(configPath, func(cmd *cobra.Command, args []string, a *app) error {
			warnEphemeral(cmd, a)
			stats, err := a.cache.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backend: %s\nEntries: %d\nHits:    %d\nMisses:  %d\n",
				a.cfg.Cache.Backend, stats.Entries, stats.Hits, stats.Misses)
			return nil
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all cache entries",
		RunE: withApp(configPath, func(cmd *cobra.Command, args []string, a *app) error {
			warnEphemeral(cmd, a)
			n, err := a.engine.ClearCache(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cache entries.\n", n)
			return nil
		}),
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached responses (sqlite backend)",
		RunE: withApp(configPath, func(cmd *cobra.Command, args []string, a *app) error {
			c, ok := a.cache.(*cachesql.Cache)
			if !ok {
				return fmt.Errorf("cache list requires the sqlite backend, got %q", a.cfg.Cache.Backend)
			}
			entries, err := c.Entries(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cached responses.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CREATED\tMAX_LEN\tTEMP\tPROMPT\tRESPONSE")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%d\t%g\t%s\t%s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.MaxLength, e.Temperature,
					truncate(e.Prompt, 40), truncate(e.Response, 40))
			}
			return w.Flush()
		}),
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show (0 shows all)")

	cmd.AddCommand(statsCmd, clearCmd, listCmd)
	return cmd
}

// warnEphemeral notes that a process-local cache starts empty on every run.
func warnEphemeral(cmd *cobra.Command, a *app) {
	if a.persistentCache() {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(),
		"note: the %s cache does not outlive this process; set cache.backend: sqlite with a file dsn to manage a shared cache\n",
		a.cfg.Cache.Backend)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
