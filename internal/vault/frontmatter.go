package vault

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontmatter indicates the document did not start with a YAML fence.
	ErrMissingFrontmatter = errors.New("vault: missing frontmatter")
	// ErrMalformedFrontmatter indicates the YAML block could not be parsed.
	ErrMalformedFrontmatter = errors.New("vault: malformed frontmatter")
)

// Metadata is the structured header persisted at the top of every entry
// document. Triage and synthesis payloads are stored JSON-encoded so the
// header stays flat and diff-friendly.
type Metadata struct {
	WeaklogID      string `yaml:"weaklog_id"`
	Created        string `yaml:"created"` // ISO 8601
	CooldownDays   int    `yaml:"cooldown_days"`
	Status         string `yaml:"status"`
	TriageResult   string `yaml:"triage_result,omitempty"`
	SynthesisGuide string `yaml:"synthesis_guide,omitempty"`
	PublishedAt    string `yaml:"published_at,omitempty"`
}

// MetadataPatch merges selected fields into an existing header. Nil
// pointers leave the stored value untouched.
type MetadataPatch struct {
	Status         *string
	CooldownDays   *int
	TriageResult   *string
	SynthesisGuide *string
	PublishedAt    *string
}

// Apply merges the patch into meta.
func (p MetadataPatch) Apply(meta *Metadata) {
	if p.Status != nil {
		meta.Status = *p.Status
	}
	if p.CooldownDays != nil {
		meta.CooldownDays = *p.CooldownDays
	}
	if p.TriageResult != nil {
		meta.TriageResult = *p.TriageResult
	}
	if p.SynthesisGuide != nil {
		meta.SynthesisGuide = *p.SynthesisGuide
	}
	if p.PublishedAt != nil {
		meta.PublishedAt = *p.PublishedAt
	}
}

// ParseFrontmatter extracts the metadata block and body from a document
// that starts with `---` YAML fences.
func ParseFrontmatter(content []byte) (Metadata, string, error) {
	if len(content) == 0 {
		return Metadata{}, "", ErrMissingFrontmatter
	}
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return Metadata{}, "", ErrMissingFrontmatter
	}
	rest := normalized[4:]
	parts := bytes.SplitN(rest, []byte("\n---\n"), 2)
	if len(parts) < 2 {
		return Metadata{}, "", ErrMalformedFrontmatter
	}
	var meta Metadata
	if err := yaml.Unmarshal(parts[0], &meta); err != nil {
		return Metadata{}, "", fmt.Errorf("%w: %v", ErrMalformedFrontmatter, err)
	}
	body := string(bytes.TrimPrefix(parts[1], []byte("\n")))
	return meta, body, nil
}

// RenderFrontmatter serializes metadata + body with YAML fences.
func RenderFrontmatter(meta Metadata, body string) ([]byte, error) {
	if meta.WeaklogID == "" {
		return nil, fmt.Errorf("vault: metadata missing weaklog_id")
	}
	data, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("vault: encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(bytes.TrimRight(data, "\n"))
	buf.WriteString("\n---\n\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}
