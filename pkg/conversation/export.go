package conversation

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pario-ai/convo/pkg/models"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks YAML for .yaml/.yml files and JSON otherwise.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Snapshot returns a full copy of the store suitable for serialization.
func (s *Store) Snapshot() models.Export {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return models.Export{
		Metadata: models.ExportMetadata{
			ConversationID:     s.id,
			CreatedAt:          s.createdAt,
			TotalTurns:         s.totalTurns,
			SummarizationCount: s.summarizationCount,
		},
		ContextSummary: s.summary,
		Conversation:   cloneTurns(s.turns),
	}
}

// WriteExport encodes a snapshot to w.
func (s *Store) WriteExport(w io.Writer, format Format) error {
	snap := s.Snapshot()

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode yaml export: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode json export: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// Export writes a one-shot snapshot to path, choosing the encoding from the
// file extension.
func (s *Store) Export(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}

	if err := s.WriteExport(f, FormatForPath(path)); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}

	s.log.WithField("path", path).Info("conversation exported")
	return nil
}
