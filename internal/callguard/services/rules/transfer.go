package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/haukened/rr-callguard/internal/callguard/common/clock"
	"github.com/haukened/rr-callguard/internal/callguard/domain"
)

// Format selects the document encoding for Export and Import.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var (
	// ErrUnsupportedFormat is returned for an unknown transfer format.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrInvalidDocument is returned when an import document cannot be parsed.
	ErrInvalidDocument = errors.New("invalid rules document")
)

// ParseFormat maps a format name to a Format. An empty name selects JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the media type of documents in format f.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// ImportResult summarizes an Import.
type ImportResult struct {
	OK       bool   `json:"ok"`
	Message  string `json:"message"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

// Export writes every rule to w as a list document.
func (s *Service) Export(w io.Writer, f Format) error {
	rs, err := s.store.ListAll()
	if err != nil {
		return err
	}
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rs)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rs); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// Import reads a list document from r and inserts its rules. The whole
// document is parsed first; a parse failure inserts nothing. Rules are then
// inserted one by one with fresh ids: blank, invalid and already stored
// patterns are skipped, and an insert failure does not stop the remaining rules.
func (s *Service) Import(r io.Reader, f Format) (ImportResult, error) {
	rs, err := decodeRules(r, f)
	if err != nil {
		return ImportResult{OK: false, Message: err.Error()}, err
	}

	res := ImportResult{OK: true}
	now := clock.UnixMilli(s.clock)
	for _, in := range rs {
		rule := in.WithoutID()
		rule.Pattern = strings.TrimSpace(rule.Pattern)
		rule.Label = strings.TrimSpace(rule.Label)
		if rule.CreatedAt == 0 {
			rule.CreatedAt = now
		}
		if rule.Validate() != nil {
			res.Skipped++
			continue
		}
		exists, err := s.store.Exists(rule.Pattern)
		if err != nil {
			s.logger.Error(map[string]any{"pattern": rule.Pattern, "error": err}, "import: existence check failed")
			res.Failed++
			continue
		}
		if exists {
			res.Skipped++
			continue
		}
		if _, err := s.store.Insert(rule); err != nil {
			s.logger.Error(map[string]any{"pattern": rule.Pattern, "error": err}, "import: insert failed")
			res.Failed++
			continue
		}
		res.Imported++
	}
	res.Message = fmt.Sprintf("%d rules imported, %d skipped, %d failed", res.Imported, res.Skipped, res.Failed)
	s.logger.Info(map[string]any{
		"imported": res.Imported,
		"skipped":  res.Skipped,
		"failed":   res.Failed,
		"format":   string(f),
	}, "rules imported")

	if res.Imported > 0 {
		if err := s.refresh(); err != nil {
			return res, err
		}
	}
	return res, nil
}

func decodeRules(r io.Reader, f Format) ([]domain.PrefixRule, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read rules document: %w", err)
	}
	var rs []domain.PrefixRule
	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, &rs)
	case FormatYAML:
		err = yaml.Unmarshal(data, &rs)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return rs, nil
}
