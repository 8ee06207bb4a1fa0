// Package engine wraps a Model with response memoization and usage statistics.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/pario-ai/convo/pkg/cache"
	"github.com/pario-ai/convo/pkg/config"
	"github.com/pario-ai/convo/pkg/logger"
	"github.com/pario-ai/convo/pkg/model"
	"github.com/pario-ai/convo/pkg/models"
	"github.com/pario-ai/convo/pkg/stats"
)

// AlternativeStep is the temperature increment between alternatives.
const AlternativeStep = 0.1

// batchLogEvery controls how often BatchGenerate logs progress.
const batchLogEvery = 10

// Option configures an Engine.
type Option func(*Engine)

// WithCache replaces the default unbounded in-memory cache.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithStatistics shares a Statistics instance, e.g. one already registered
// with a prometheus Collector.
func WithStatistics(s *stats.Statistics) Option {
	return func(e *Engine) { e.stats = s }
}

// WithLogger sets the engine logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock overrides the time source used for latency and timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Request is a single generation request. Zero MaxLength and nil Temperature
// take the configured defaults.
type Request struct {
	Prompt      string
	MaxLength   int
	Temperature *float64
	// NoCache bypasses both lookup and insertion.
	NoCache bool
	// Extra is passed to the model untouched. It is not part of the cache key.
	Extra map[string]any
}

// BatchRequest holds the settings shared by every prompt of a batch.
type BatchRequest struct {
	MaxLength   int
	Temperature *float64
	Extra       map[string]any
}

// Engine is the generation orchestrator. It is safe for concurrent use.
type Engine struct {
	model model.Model
	cfg   config.InferenceConfig
	cache cache.Cache
	stats *stats.Statistics
	log   logrus.FieldLogger
	now   func() time.Time

	group singleflight.Group
}

// New creates an Engine around m. Zero values in cfg are not defaulted;
// pass config.DefaultInference() for stock settings.
func New(m model.Model, cfg config.InferenceConfig, opts ...Option) *Engine {
	e := &Engine{
		model: m,
		cfg:   cfg,
		log:   logger.Discard(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = cache.NewMemory(0)
	}
	if e.stats == nil {
		e.stats = stats.New()
	}
	return e
}

// Temperature returns a pointer to t, for use in Request literals.
func Temperature(t float64) *float64 {
	return &t
}

func (e *Engine) resolve(prompt string, maxLength int, temperature *float64) cache.Key {
	k := cache.Key{
		Prompt:      prompt,
		MaxLength:   maxLength,
		Temperature: e.cfg.Temperature,
	}
	if k.MaxLength <= 0 {
		k.MaxLength = e.cfg.MaxLength
	}
	if temperature != nil {
		k.Temperature = *temperature
	}
	return k
}

// Generate returns text for req. A cached response is returned without
// calling the model or touching statistics. Model errors are returned as-is
// and leave cache and statistics unchanged. If the response was generated but
// could not be cached, the text is returned together with the cache error.
//
// Concurrent cached requests for the same key share one model call. The
// shared call is detached from every caller's cancellation; a caller whose
// ctx ends stops waiting and gets its own ctx error, while the call finishes
// and fills the cache for the others.
func (e *Engine) Generate(ctx context.Context, req Request) (string, error) {
	key := e.resolve(req.Prompt, req.MaxLength, req.Temperature)

	if req.NoCache {
		return e.call(ctx, key, req.Extra)
	}

	if text, ok := e.lookup(ctx, key); ok {
		return text, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := e.group.DoChan(key.Hash(), func() (any, error) {
		// A flight that finished between our lookup and DoChan has filled the cache.
		if text, ok := e.peek(shared, key); ok {
			return text, nil
		}
		text, err := e.call(shared, key, req.Extra)
		if err != nil {
			return "", err
		}
		if err := e.cache.Put(shared, key, text); err != nil {
			return text, fmt.Errorf("cache response: %w", err)
		}
		return text, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Shared {
			e.log.WithField("prompt_len", len(req.Prompt)).Debug("joined in-flight generation")
		}
		text, _ := res.Val.(string)
		return text, res.Err
	}
}

func (e *Engine) lookup(ctx context.Context, key cache.Key) (string, bool) {
	text, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.log.WithError(err).Warn("cache lookup failed, generating")
		return "", false
	}
	if ok {
		e.log.WithField("max_length", key.MaxLength).Debug("cache hit")
	}
	return text, ok
}

// peek re-checks the cache without counting a second miss.
func (e *Engine) peek(ctx context.Context, key cache.Key) (string, bool) {
	text, ok, err := e.cache.Peek(ctx, key)
	if err != nil {
		return "", false
	}
	return text, ok
}

// call runs the model once and records statistics on success.
func (e *Engine) call(ctx context.Context, key cache.Key, extra map[string]any) (string, error) {
	p := model.Params{
		MaxLength:          key.MaxLength,
		Temperature:        key.Temperature,
		TopP:               e.cfg.TopP,
		TopK:               e.cfg.TopK,
		RepetitionPenalty:  e.cfg.RepetitionPenalty,
		NumReturnSequences: e.cfg.NumReturnSequences,
		DoSample:           e.cfg.DoSample,
		Extra:              extra,
	}

	start := e.now()
	text, err := e.model.Generate(ctx, key.Prompt, p)
	if err != nil {
		return "", err
	}
	latency := e.now().Sub(start)

	words := len(strings.Fields(text))
	e.stats.Record(latency, words)
	e.log.WithFields(logrus.Fields{
		"latency": latency,
		"words":   words,
	}).Debug("generated")
	return text, nil
}

// BatchGenerate generates each prompt in order with shared settings. The
// first failure aborts the batch; no partial results are returned.
func (e *Engine) BatchGenerate(ctx context.Context, prompts []string, br BatchRequest) ([]string, error) {
	results := make([]string, 0, len(prompts))
	for i, prompt := range prompts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i%batchLogEvery == 0 {
			e.log.WithFields(logrus.Fields{
				"prompt": i + 1,
				"total":  len(prompts),
			}).Info("batch progress")
		}
		text, err := e.Generate(ctx, Request{
			Prompt:      prompt,
			MaxLength:   br.MaxLength,
			Temperature: br.Temperature,
			Extra:       br.Extra,
		})
		if err != nil {
			return nil, err
		}
		results = append(results, text)
	}
	return results, nil
}

// GenerateAlternatives returns n uncached responses for prompt, the i-th
// sampled at the default temperature plus i*AlternativeStep.
func (e *Engine) GenerateAlternatives(ctx context.Context, prompt string, n int, extra map[string]any) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	out := make([]string, 0, n)
	for i := range n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := e.Generate(ctx, Request{
			Prompt:      prompt,
			Temperature: Temperature(e.cfg.Temperature + float64(i)*AlternativeStep),
			NoCache:     true,
			Extra:       extra,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, nil
}

// InteractiveGenerate feeds each response back into the prompt for numTurns
// rounds. The prompt is never trimmed, so it grows with every turn.
func (e *Engine) InteractiveGenerate(ctx context.Context, initial string, numTurns int, extra map[string]any) ([]models.InteractiveTurn, error) {
	if numTurns <= 0 {
		return nil, nil
	}
	turns := make([]models.InteractiveTurn, 0, numTurns)
	prompt := initial
	for i := range numTurns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := e.Generate(ctx, Request{Prompt: prompt, Extra: extra})
		if err != nil {
			return nil, err
		}
		turns = append(turns, models.InteractiveTurn{
			Turn:      i + 1,
			Prompt:    prompt,
			Response:  text,
			Timestamp: e.now(),
		})
		prompt = prompt + " " + text
	}
	return turns, nil
}

// Statistics returns the current counters together with the cache size.
func (e *Engine) Statistics() models.EngineStats {
	size, err := e.cache.Size(context.Background())
	if err != nil {
		e.log.WithError(err).Warn("cache size unavailable")
	}
	return models.EngineStats{
		StatsSnapshot: e.stats.Snapshot(),
		CacheSize:     size,
	}
}

// ClearCache drops every cached response.
func (e *Engine) ClearCache(ctx context.Context) (int, error) {
	n, err := e.cache.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	e.log.WithField("entries", n).Info("cache cleared")
	return n, nil
}

// ResetStatistics zeroes the request, token and latency counters.
func (e *Engine) ResetStatistics() {
	e.stats.Reset()
}

// Cache returns the engine's response cache.
func (e *Engine) Cache() cache.Cache {
	return e.cache
}

// Stats returns the engine's statistics accumulator.
func (e *Engine) Stats() *stats.Statistics {
	return e.stats
}
