package conversation

import (
	"strings"
	"testing"

	"github.com/pario-ai/convo/pkg/models"
)

func TestRenderTurns(t *testing.T) {
	s := newTestStore(t, 10, 10)
	s.AddTurn(models.RoleSystem, "be helpful", nil)
	s.AddTurn(models.RoleUser, "hi", nil)
	s.AddTurn(models.RoleAssistant, "hello", nil)

	want := "system: be helpful\nuser: hi\nassistant: hello"
	if got := s.Render(0, true); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if got := s.Render(2, true); got != "user: hi\nassistant: hello" {
		t.Errorf("unexpected last-2 render: %q", got)
	}
}

func TestRenderEmpty(t *testing.T) {
	s := newTestStore(t, 10, 10)
	if got := s.Render(0, true); got != "" {
		t.Errorf("expected empty render, got %q", got)
	}
}

func TestRenderWithSummary(t *testing.T) {
	s := newTestStore(t, 10, 2)
	long := strings.Repeat("w", 55)
	s.AddTurn(models.RoleUser, long, nil)
	s.AddTurn(models.RoleAssistant, "ok", nil)

	summary := s.Summary()
	want := "[Previous Context Summary]\n" + summary + "\n\n" +
		"user: " + long + "\n" +
		"assistant: ok"
	if got := s.Render(0, true); got != want {
		t.Errorf("unexpected render:\n got: %q\nwant: %q", got, want)
	}

	if got := s.Render(0, false); strings.Contains(got, summaryHeader) {
		t.Errorf("summary should be omitted: %q", got)
	}
}

func TestRenderDoesNotMutate(t *testing.T) {
	s := newTestStore(t, 10, 10)
	s.AddTurn(models.RoleUser, "one", nil)

	_ = s.Render(0, true)
	_ = s.Render(1, false)

	if s.Len() != 1 || s.Stats().TotalTurns != 1 {
		t.Error("render changed store state")
	}
}
