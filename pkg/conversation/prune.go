package conversation

import (
	"errors"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// ErrUnknownStrategy is returned by Prune for an unrecognised strategy.
var ErrUnknownStrategy = errors.New("unknown prune strategy")

// PruneStrategy selects which turn Prune removes.
type PruneStrategy string

const (
	// PruneOldest removes the chronologically earliest turn.
	PruneOldest PruneStrategy = "oldest"
	// PruneLeastRelevant removes the turn with the shortest content; the
	// earliest one wins ties.
	PruneLeastRelevant PruneStrategy = "least_relevant"
)

// Prune removes a single turn chosen by strategy. It is a no-op on an empty
// store. An unknown strategy leaves the store untouched and returns
// ErrUnknownStrategy.
func (s *Store) Prune(strategy PruneStrategy) error {
	switch strategy {
	case PruneOldest, PruneLeastRelevant:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.turns) == 0 {
		return nil
	}

	idx := 0
	if strategy == PruneLeastRelevant {
		shortest := utf8.RuneCountInString(s.turns[0].Content)
		for i := 1; i < len(s.turns); i++ {
			if l := utf8.RuneCountInString(s.turns[i].Content); l < shortest {
				idx, shortest = i, l
			}
		}
	}

	removed := s.turns[idx]
	s.turns = slices.Delete(s.turns, idx, idx+1)

	s.log.WithFields(logrus.Fields{
		"strategy": strategy,
		"role":     removed.Role,
	}).Debug("turn pruned")
	return nil
}
