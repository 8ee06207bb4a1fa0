package conversation

import "strings"

const summaryHeader = "[Previous Context Summary]"

// Render builds a prompt-ready transcript of the last numTurns turns
// (all turns when numTurns <= 0), one "role: content" line per turn. When
// includeSummary is set and a summary exists, it is prepended as a
// delimited block.
func (s *Store) Render(numTurns int, includeSummary bool) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.recentLocked(numTurns)
	parts := make([]string, 0, len(turns)+1)

	if includeSummary && s.summary != "" {
		parts = append(parts, summaryHeader+"\n"+s.summary+"\n")
	}
	for _, t := range turns {
		parts = append(parts, t.Role+": "+t.Content)
	}
	return strings.Join(parts, "\n")
}
