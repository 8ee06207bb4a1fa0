package conversation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// excerptLen is the number of characters kept from each summarized turn.
// Shorter turns are left out of the summary entirely.
const excerptLen = 50

// summarizeLocked rebuilds the summary from the older half of the buffer.
// Summarized turns stay in the buffer; only capacity eviction removes them.
// Callers must hold s.mu for writing.
func (s *Store) summarizeLocked() {
	if len(s.turns) < s.cfg.SummarizationThreshold {
		return
	}

	n := len(s.turns) / 2

	var b strings.Builder
	fmt.Fprintf(&b, "Summary of %d conversation turns:\n", n)
	b.WriteString("Key topics discussed:")
	for _, t := range s.turns[:n] {
		if utf8.RuneCountInString(t.Content) <= excerptLen {
			continue
		}
		fmt.Fprintf(&b, "\n- %s: %s...", t.Role, truncate(t.Content, excerptLen))
	}

	s.summary = b.String()
	s.summarizationCount++

	s.log.WithFields(logrus.Fields{
		"turns": n,
		"count": s.summarizationCount,
	}).Debug("context summarized")
}

// truncate returns the first n runes of str.
func truncate(str string, n int) string {
	i := 0
	for pos := range str {
		if i == n {
			return str[:pos]
		}
		i++
	}
	return str
}
