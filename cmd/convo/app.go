package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pario-ai/convo/pkg/cache"
	cachesql "github.com/pario-ai/convo/pkg/cache/sqlite"
	"github.com/pario-ai/convo/pkg/config"
	"github.com/pario-ai/convo/pkg/engine"
	"github.com/pario-ai/convo/pkg/logger"
	"github.com/pario-ai/convo/pkg/model"
	"github.com/pario-ai/convo/pkg/stats"
)

// app holds the components shared by every command.
type app struct {
	cfg    *config.Config
	log    *logrus.Logger
	cache  cache.Cache
	stats  *stats.Statistics
	engine *engine.Engine

	closeCache func() error
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	m, err := model.New(cfg.Provider, log)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		log:        log,
		stats:      stats.New(),
		closeCache: func() error { return nil },
	}

	switch cfg.Cache.Backend {
	case config.BackendSQLite:
		c, err := cachesql.New(cfg.Cache.DSN)
		if err != nil {
			return nil, err
		}
		a.cache = c
		a.closeCache = c.Close
	default:
		a.cache = cache.NewMemory(cfg.Cache.MaxEntries)
	}

	a.engine = engine.New(m, cfg.Inference,
		engine.WithCache(a.cache),
		engine.WithStatistics(a.stats),
		engine.WithLogger(log),
	)

	log.WithFields(logrus.Fields{
		"provider": cfg.Provider.Type,
		"cache":    cfg.Cache.Backend,
	}).Debug("convo ready")
	return a, nil
}

// persistentCache reports whether cached responses outlive this process.
func (a *app) persistentCache() bool {
	dsn := a.cfg.Cache.DSN
	return a.cfg.Cache.Backend == config.BackendSQLite && dsn != "" && dsn != cachesql.MemoryDSN
}

func (a *app) Close() error {
	return a.closeCache()
}

// withApp wraps a RunE so the app is built from the --config flag and
// closed afterwards.
func withApp(configPath *string, run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(*configPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				a.log.WithError(err).Warn("close cache")
			}
		}()
		return run(cmd, args, a)
	}
}

// temperatureFlag returns nil unless the flag was set explicitly.
func temperatureFlag(cmd *cobra.Command, value float64) *float64 {
	if !cmd.Flags().Changed("temperature") {
		return nil
	}
	return engine.Temperature(value)
}

func printStats(cmd *cobra.Command, a *app) {
	st := a.engine.Statistics()
	fmt.Fprintf(cmd.OutOrStdout(), "Requests:       %d\nTokens:         %d\nTokens/request: %.2f\nAvg latency:    %s\nCache entries:  %d\n",
		st.TotalRequests, st.TotalTokensGenerated, st.TokensPerRequest, st.AverageLatency, st.CacheSize)
}
