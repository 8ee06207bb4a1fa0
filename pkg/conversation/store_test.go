package conversation

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pario-ai/convo/pkg/config"
	"github.com/pario-ai/convo/pkg/models"
)

func stepClock() func() time.Time {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var n int
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func newTestStore(t *testing.T, maxTurns, threshold int) *Store {
	t.Helper()
	return NewStore(config.ContextConfig{
		MaxContextLength:       4096,
		MaxTurns:               maxTurns,
		SummarizationThreshold: threshold,
	}, WithClock(stepClock()))
}

func contents(turns []models.Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Content
	}
	return out
}

func TestNewStoreDefaults(t *testing.T) {
	s := NewStore(config.ContextConfig{})
	cfg := s.Config()
	if cfg.MaxTurns != 50 || cfg.SummarizationThreshold != 40 || cfg.MaxContextLength != 4096 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if s.ID() == "" {
		t.Error("expected a conversation id")
	}
	if s.Len() != 0 || s.Summary() != "" {
		t.Error("new store should be empty")
	}
}

func TestAddTurnEvictsOldest(t *testing.T) {
	s := NewStore(config.ContextConfig{MaxTurns: 3})

	s.AddTurn("system", "A", nil)
	s.AddTurn("user", "B", nil)
	s.AddTurn("assistant", "C", nil)
	s.AddTurn("user", "D", nil)

	got := contents(s.History())
	want := []string{"B", "C", "D"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}

	last, ok := s.LastTurn("")
	if !ok || last.Content != "D" {
		t.Errorf("expected last turn D, got %+v (ok=%v)", last, ok)
	}
	if _, ok := s.LastTurn("system"); ok {
		t.Error("expected no system turn after eviction")
	}
	if s.Stats().TotalTurns != 4 {
		t.Errorf("expected 4 total turns, got %d", s.Stats().TotalTurns)
	}
}

func TestBufferHoldsMostRecentTurns(t *testing.T) {
	const maxTurns = 5
	s := newTestStore(t, maxTurns, maxTurns)

	for i := 1; i <= 20; i++ {
		s.AddTurn(models.RoleUser, fmt.Sprintf("turn %d", i), nil)

		if s.Len() > maxTurns {
			t.Fatalf("buffer exceeded capacity: %d", s.Len())
		}
		keep := min(i, maxTurns)
		got := contents(s.History())
		if len(got) != keep {
			t.Fatalf("after %d adds expected %d turns, got %d", i, keep, len(got))
		}
		for j, c := range got {
			want := fmt.Sprintf("turn %d", i-keep+1+j)
			if c != want {
				t.Fatalf("after %d adds position %d: expected %q, got %q", i, j, want, c)
			}
		}
		if s.Stats().TotalTurns != i {
			t.Errorf("expected total %d, got %d", i, s.Stats().TotalTurns)
		}
	}
}

func TestTimestampsAreChronological(t *testing.T) {
	s := newTestStore(t, 10, 10)
	s.AddTurn(models.RoleUser, "first", nil)
	s.AddTurn(models.RoleAssistant, "second", nil)

	h := s.History()
	if !h[0].Timestamp.Before(h[1].Timestamp) {
		t.Errorf("expected increasing timestamps: %v, %v", h[0].Timestamp, h[1].Timestamp)
	}
}

func TestMetadataDefaultsAndIsolation(t *testing.T) {
	s := newTestStore(t, 10, 10)

	s.AddTurn(models.RoleUser, "no metadata", nil)
	meta := map[string]any{"source": "cli"}
	s.AddTurn(models.RoleUser, "with metadata", meta)

	meta["source"] = "mutated"

	h := s.History()
	if h[0].Metadata == nil || len(h[0].Metadata) != 0 {
		t.Errorf("expected empty metadata, got %v", h[0].Metadata)
	}
	if h[1].Metadata["source"] != "cli" {
		t.Errorf("stored metadata changed through caller map: %v", h[1].Metadata)
	}

	h[1].Metadata["source"] = "changed"
	if got, _ := s.LastTurn(""); got.Metadata["source"] != "cli" {
		t.Errorf("stored metadata changed through returned turn: %v", got.Metadata)
	}
}

func TestAddSystemMessage(t *testing.T) {
	s := newTestStore(t, 10, 10)
	s.AddSystemMessage("be brief")

	turn, ok := s.LastTurn(models.RoleSystem)
	if !ok {
		t.Fatal("expected a system turn")
	}
	if turn.Metadata["type"] != "system_instruction" {
		t.Errorf("unexpected metadata: %v", turn.Metadata)
	}
}

func TestRecent(t *testing.T) {
	s := newTestStore(t, 10, 10)
	for _, c := range []string{"a", "b", "c", "d"} {
		s.AddTurn(models.RoleUser, c, nil)
	}

	if got := strings.Join(contents(s.Recent(2)), ""); got != "cd" {
		t.Errorf("Recent(2): expected cd, got %s", got)
	}
	if got := strings.Join(contents(s.Recent(0)), ""); got != "abcd" {
		t.Errorf("Recent(0): expected abcd, got %s", got)
	}
	if got := strings.Join(contents(s.Recent(10)), ""); got != "abcd" {
		t.Errorf("Recent(10): expected abcd, got %s", got)
	}
}

func TestLastTurnByRole(t *testing.T) {
	s := newTestStore(t, 10, 10)
	s.AddTurn(models.RoleUser, "q1", nil)
	s.AddTurn(models.RoleAssistant, "a1", nil)
	s.AddTurn(models.RoleUser, "q2", nil)

	turn, ok := s.LastTurn(models.RoleAssistant)
	if !ok || turn.Content != "a1" {
		t.Errorf("expected a1, got %+v", turn)
	}
	turn, ok = s.LastTurn(models.RoleUser)
	if !ok || turn.Content != "q2" {
		t.Errorf("expected q2, got %+v", turn)
	}
	if _, ok := s.LastTurn("tool"); ok {
		t.Error("expected no tool turn")
	}
}

func TestLastTurnEmpty(t *testing.T) {
	s := newTestStore(t, 10, 10)
	if _, ok := s.LastTurn(""); ok {
		t.Error("expected no turn in empty store")
	}
}

func TestEstimateTokens(t *testing.T) {
	s := newTestStore(t, 10, 10)
	s.AddTurn(models.RoleUser, "abcd", nil)
	s.AddTurn(models.RoleUser, "hello world", nil)
	s.AddTurn(models.RoleUser, "xyz", nil)

	// (4 + 11 + 3) / 4
	if got := s.EstimateTokens(); got != 4 {
		t.Errorf("expected 4 tokens, got %d", got)
	}
}

func TestEstimateTokensCountsCharacters(t *testing.T) {
	s := newTestStore(t, 10, 10)
	s.AddTurn(models.RoleUser, "héllo wörld!", nil)

	// 12 characters, 14 bytes
	if got := s.EstimateTokens(); got != 3 {
		t.Errorf("expected 3 tokens, got %d", got)
	}
}

func TestIsNearCapacity(t *testing.T) {
	s := NewStore(config.ContextConfig{MaxContextLength: 10, MaxTurns: 10})
	s.AddTurn(models.RoleUser, strings.Repeat("x", 36), nil)

	// 9 tokens is not above 90% of 10
	if s.NearCapacity() {
		t.Error("9 tokens should not be near capacity")
	}

	s.AddTurn(models.RoleUser, "abcd", nil)
	if !s.NearCapacity() {
		t.Error("10 tokens should be near capacity")
	}
	if s.IsNearCapacity(1.0) {
		t.Error("10 tokens should not exceed a 100% threshold")
	}
}

func TestIsNearCapacityZeroFraction(t *testing.T) {
	s := NewStore(config.ContextConfig{MaxContextLength: 10, MaxTurns: 10})
	if s.IsNearCapacity(0) {
		t.Error("empty store should not exceed a zero threshold")
	}

	s.AddTurn(models.RoleUser, "abcd", nil)
	if !s.IsNearCapacity(0) {
		t.Error("one token should exceed a zero threshold")
	}
	if s.NearCapacity() {
		t.Error("one token should not be near the default threshold")
	}
}

func TestStats(t *testing.T) {
	s := NewStore(config.ContextConfig{MaxContextLength: 100, MaxTurns: 10})
	s.AddTurn(models.RoleUser, strings.Repeat("x", 40), nil)

	st := s.Stats()
	if st.CurrentTurns != 1 || st.TotalTurns != 1 {
		t.Errorf("unexpected turn counts: %+v", st)
	}
	if st.ContextTokens != 10 {
		t.Errorf("expected 10 tokens, got %d", st.ContextTokens)
	}
	if st.ContextPercent != 10 {
		t.Errorf("expected 10%%, got %v", st.ContextPercent)
	}
	if st.HasSummary {
		t.Error("expected no summary")
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t, 10, 2)
	s.AddTurn(models.RoleUser, strings.Repeat("q", 60), nil)
	s.AddTurn(models.RoleAssistant, strings.Repeat("a", 60), nil)
	if s.Summary() == "" {
		t.Fatal("expected summary before clear")
	}

	if n := s.Clear(); n != 2 {
		t.Errorf("expected 2 cleared turns, got %d", n)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty buffer, got %d", s.Len())
	}
	if s.Summary() != "" {
		t.Error("expected summary reset")
	}

	st := s.Stats()
	if st.TotalTurns != 2 {
		t.Errorf("total turns should survive clear, got %d", st.TotalTurns)
	}
	if st.SummarizationCount != 1 {
		t.Errorf("summarization count should survive clear, got %d", st.SummarizationCount)
	}
	if _, ok := s.LastTurn(""); ok {
		t.Error("expected no last turn after clear")
	}
}

func TestPruneOldest(t *testing.T) {
	s := newTestStore(t, 10, 10)
	for _, c := range []string{"a", "b", "c"} {
		s.AddTurn(models.RoleUser, c, nil)
	}

	if err := s.Prune(PruneOldest); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(contents(s.History()), ""); got != "bc" {
		t.Errorf("expected bc, got %s", got)
	}
}

func TestPruneLeastRelevant(t *testing.T) {
	s := newTestStore(t, 10, 10)
	s.AddTurn(models.RoleUser, "longest one", nil)
	s.AddTurn(models.RoleAssistant, "ab", nil)
	s.AddTurn(models.RoleUser, "mid", nil)
	s.AddTurn(models.RoleAssistant, "cd", nil)

	if err := s.Prune(PruneLeastRelevant); err != nil {
		t.Fatal(err)
	}
	// "ab" and "cd" tie; the earlier one goes
	got := contents(s.History())
	if strings.Join(got, ",") != "longest one,mid,cd" {
		t.Errorf("unexpected buffer after prune: %v", got)
	}
}

func TestPruneEmptyIsNoop(t *testing.T) {
	s := newTestStore(t, 10, 10)
	if err := s.Prune(PruneOldest); err != nil {
		t.Errorf("oldest on empty store: %v", err)
	}
	if err := s.Prune(PruneLeastRelevant); err != nil {
		t.Errorf("least_relevant on empty store: %v", err)
	}
}

func TestPruneUnknownStrategy(t *testing.T) {
	s := newTestStore(t, 10, 10)
	s.AddTurn(models.RoleUser, "keep", nil)

	err := s.Prune(PruneStrategy("random"))
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("unknown strategy must not remove turns, have %d", s.Len())
	}
}
