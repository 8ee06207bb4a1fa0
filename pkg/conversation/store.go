package conversation

import (
	"maps"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pario-ai/convo/pkg/config"
	"github.com/pario-ai/convo/pkg/logger"
	"github.com/pario-ai/convo/pkg/models"
)

// DefaultNearCapacity is the fraction of MaxContextLength at which
// NearCapacity starts reporting true.
const DefaultNearCapacity = 0.9

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for summarization and pruning events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides the time source used for turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is a capacity-bounded, chronological ledger of conversation turns
// with a derived rolling summary. It is safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	cfg config.ContextConfig
	log logrus.FieldLogger
	now func() time.Time

	id        string
	createdAt time.Time

	turns   []models.Turn
	summary string

	totalTurns         int
	summarizationCount int
}

// NewStore creates an empty Store. Zero or negative limits in cfg fall back
// to config.DefaultContext values.
func NewStore(cfg config.ContextConfig, opts ...Option) *Store {
	def := config.DefaultContext()
	if cfg.MaxContextLength <= 0 {
		cfg.MaxContextLength = def.MaxContextLength
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = def.MaxTurns
	}
	if cfg.SummarizationThreshold <= 0 {
		cfg.SummarizationThreshold = def.SummarizationThreshold
	}

	s := &Store{
		cfg: cfg,
		log: logger.Discard(),
		now: time.Now,
		id:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.createdAt = s.now()
	s.turns = make([]models.Turn, 0, cfg.MaxTurns)
	return s
}

// ID returns the conversation identifier used in exports.
func (s *Store) ID() string {
	return s.id
}

// Config returns the effective limits.
func (s *Store) Config() config.ContextConfig {
	return s.cfg
}

// AddTurn appends a turn, evicting the oldest one when the buffer is full,
// and rebuilds the summary once the summarization threshold is reached.
func (s *Store) AddTurn(role, content string, metadata map[string]any) {
	turn := models.Turn{
		Role:      role,
		Content:   content,
		Metadata:  maps.Clone(metadata),
		Timestamp: s.now(),
	}
	if turn.Metadata == nil {
		turn.Metadata = map[string]any{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.turns) >= s.cfg.MaxTurns {
		s.turns = slices.Delete(s.turns, 0, 1)
	}
	s.turns = append(s.turns, turn)
	s.totalTurns++

	if len(s.turns) >= s.cfg.SummarizationThreshold {
		s.summarizeLocked()
	}
}

// AddSystemMessage appends a system instruction turn.
func (s *Store) AddSystemMessage(content string) {
	s.AddTurn(models.RoleSystem, content, map[string]any{"type": "system_instruction"})
}

// Recent returns the last n turns in chronological order.
// n <= 0 returns every turn.
func (s *Store) Recent(n int) []models.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTurns(s.recentLocked(n))
}

// History returns a copy of the whole buffer.
func (s *Store) History() []models.Turn {
	return s.Recent(0)
}

func (s *Store) recentLocked(n int) []models.Turn {
	if n <= 0 || n >= len(s.turns) {
		return s.turns
	}
	return s.turns[len(s.turns)-n:]
}

// LastTurn returns the most recent turn, or the most recent turn with the
// given role when role is non-empty.
func (s *Store) LastTurn(role string) (models.Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.turns) - 1; i >= 0; i-- {
		if role == "" || s.turns[i].Role == role {
			return cloneTurn(s.turns[i]), true
		}
	}
	return models.Turn{}, false
}

// Len returns the number of turns currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Summary returns the current rolling summary, empty if none was built.
func (s *Store) Summary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// Clear drops every turn and the summary and reports how many turns were
// removed. Lifetime counters are kept.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.turns)
	clear(s.turns)
	s.turns = s.turns[:0]
	s.summary = ""

	s.log.WithField("turns", n).Info("conversation cleared")
	return n
}

// EstimateTokens approximates the token cost of the buffered turns at four
// characters per token. The summary is not counted.
func (s *Store) EstimateTokens() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.estimateLocked()
}

func (s *Store) estimateLocked() int {
	chars := 0
	for i := range s.turns {
		chars += utf8.RuneCountInString(s.turns[i].Content)
	}
	return chars / 4
}

// IsNearCapacity reports whether the estimated tokens exceed fraction of
// MaxContextLength. A fraction of 0 reports true for any non-empty estimate.
func (s *Store) IsNearCapacity(fraction float64) bool {
	return float64(s.EstimateTokens()) > float64(s.cfg.MaxContextLength)*fraction
}

// NearCapacity is IsNearCapacity at DefaultNearCapacity.
func (s *Store) NearCapacity() bool {
	return s.IsNearCapacity(DefaultNearCapacity)
}

// Stats reports occupancy and lifetime counters.
func (s *Store) Stats() models.ContextStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := s.estimateLocked()
	return models.ContextStats{
		TotalTurns:         s.totalTurns,
		CurrentTurns:       len(s.turns),
		ContextTokens:      tokens,
		ContextPercent:     float64(tokens) / float64(s.cfg.MaxContextLength) * 100,
		SummarizationCount: s.summarizationCount,
		HasSummary:         s.summary != "",
	}
}

func cloneTurn(t models.Turn) models.Turn {
	t.Metadata = maps.Clone(t.Metadata)
	return t
}

func cloneTurns(turns []models.Turn) []models.Turn {
	out := make([]models.Turn, len(turns))
	for i := range turns {
		out[i] = cloneTurn(turns[i])
	}
	return out
}
