package model

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/convo/pkg/config"
)

// Params are the generation settings handed to a Model. MaxLength and
// Temperature are resolved by the caller; the rest pass through from
// config.InferenceConfig. Extra carries caller-specific options.
type Params struct {
	MaxLength          int
	Temperature        float64
	TopP               float64
	TopK               int
	RepetitionPenalty  float64
	NumReturnSequences int
	DoSample           bool
	Extra              map[string]any
}

// Model generates text from a prompt.
type Model interface {
	Generate(ctx context.Context, prompt string, p Params) (string, error)
}

// Func adapts a plain function to Model.
type Func func(ctx context.Context, prompt string, p Params) (string, error)

// Generate implements Model.
func (f Func) Generate(ctx context.Context, prompt string, p Params) (string, error) {
	return f(ctx, prompt, p)
}

// New builds the Model described by cfg. Configured fallbacks wrap it in a
// Fallback chain that logs to log.
func New(cfg config.ProviderConfig, log logrus.FieldLogger) (Model, error) {
	primary, err := newSingle(cfg)
	if err != nil {
		return nil, err
	}
	if len(cfg.Fallbacks) == 0 {
		return primary, nil
	}

	routes := []Route{{Name: routeName(cfg, 0), Model: primary}}
	for i, fb := range cfg.Fallbacks {
		m, err := newSingle(fb)
		if err != nil {
			return nil, fmt.Errorf("fallback %d: %w", i, err)
		}
		routes = append(routes, Route{Name: routeName(fb, i+1), Model: m})
	}
	return NewFallback(log, routes...), nil
}

func newSingle(cfg config.ProviderConfig) (Model, error) {
	switch cfg.Type {
	case "", config.ProviderEcho:
		return &Echo{}, nil
	case config.ProviderOpenAI:
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}

func routeName(cfg config.ProviderConfig, i int) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	return fmt.Sprintf("%s#%d", cfg.Type, i)
}
