package entry

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"weaklog/internal/logging"
	"weaklog/internal/vault"
)

var (
	// ErrIDGenerationExhausted indicates 100 consecutive id collisions.
	ErrIDGenerationExhausted = errors.New("entry: id generation exhausted after 100 attempts")
	// ErrTransitionCollision indicates the destination stage already holds
	// a document with this entry's identity.
	ErrTransitionCollision = errors.New("entry: destination already occupied")
	// ErrInconsistentTransition indicates the metadata update succeeded
	// but the relocation failed; the document's status and location now
	// disagree and need user attention.
	ErrInconsistentTransition = errors.New("entry: metadata updated but relocation failed")
	// ErrArchiveExhausted indicates 100 consecutive archive-name collisions.
	ErrArchiveExhausted = errors.New("entry: archive name collision after 100 attempts")
)

// Dirs maps workflow stages to vault directories.
type Dirs struct {
	Raw         string
	Cooling     string
	Triaged     string
	Synthesized string
	Published   string
	Archive     string
}

// DefaultDirs returns the standard vault layout.
func DefaultDirs() Dirs {
	return Dirs{
		Raw:         "raw",
		Cooling:     "cooling",
		Triaged:     "triaged",
		Synthesized: "synthesized",
		Published:   "published",
		Archive:     "archive",
	}
}

// For returns the directory a status maps to. Ready-for-triage is
// logical only and shares the cooling location; rejected entries live in
// the archive.
func (d Dirs) For(s Status) string {
	switch s {
	case StatusRaw:
		return d.Raw
	case StatusCooling, StatusReadyForTriage:
		return d.Cooling
	case StatusTriaged:
		return d.Triaged
	case StatusSynthesized:
		return d.Synthesized
	case StatusPublished:
		return d.Published
	default:
		return d.Archive
	}
}

// all lists every stage directory including the archive.
func (d Dirs) all() []string {
	return []string{d.Raw, d.Cooling, d.Triaged, d.Synthesized, d.Published, d.Archive}
}

// Store owns the authoritative document state of every entry.
type Store struct {
	fs   vault.FS
	dirs Dirs
	now  func() time.Time
	log  *zap.Logger
}

// NewStore builds an entry store over a vault.
func NewStore(fs vault.FS, dirs Dirs) *Store {
	return &Store{
		fs:   fs,
		dirs: dirs,
		now:  time.Now,
		log:  logging.Get(logging.CategoryStore),
	}
}

var idPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})_(\d{3})$`)

func fileName(id string) string { return id + ".md" }

// GenerateID allocates the next collision-free id for the current date.
// IDs have the form YYYY-MM-DD_NNN; the sequence is unique within the
// date regardless of which stage the sibling entries live in.
func (s *Store) GenerateID() (string, error) {
	date := s.now().Format("2006-01-02")
	maxSeq := 0
	for _, dir := range s.dirs.all() {
		names, err := s.fs.List(dir)
		if err != nil {
			return "", fmt.Errorf("entry: scan %s: %w", dir, err)
		}
		for _, name := range names {
			base := strings.TrimSuffix(name, ".md")
			// Archive copies may carry a -N collision suffix.
			if i := strings.LastIndexByte(base, '-'); i > 10 {
				base = base[:i]
			}
			m := idPattern.FindStringSubmatch(base)
			if m == nil || m[1] != date {
				continue
			}
			if seq, err := strconv.Atoi(m[2]); err == nil && seq > maxSeq {
				maxSeq = seq
			}
		}
	}

	for attempt := 0; attempt < 100; attempt++ {
		candidate := fmt.Sprintf("%s_%03d", date, maxSeq+1+attempt)
		if !s.existsAnywhere(candidate) {
			return candidate, nil
		}
	}
	return "", ErrIDGenerationExhausted
}

func (s *Store) existsAnywhere(id string) bool {
	for _, dir := range s.dirs.all() {
		if s.fs.Exists(path.Join(dir, fileName(id))) {
			return true
		}
	}
	return false
}

// Create allocates an id and writes the initial raw document.
func (s *Store) Create(content string, cooldownDays int) (*Entry, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	id, err := s.GenerateID()
	if err != nil {
		return nil, err
	}
	e := &Entry{
		ID:           id,
		Content:      content,
		CreatedAt:    s.now().UTC().Truncate(time.Second),
		CooldownDays: cooldownDays,
		Status:       StatusRaw,
		Path:         path.Join(s.dirs.Raw, fileName(id)),
	}
	doc, err := vault.RenderFrontmatter(s.encodeMeta(e), e.Content)
	if err != nil {
		return nil, err
	}
	if err := s.fs.Create(e.Path, doc); err != nil {
		return nil, err
	}
	s.log.Info("entry created",
		zap.String("id", e.ID),
		zap.Int("cooldown_days", e.CooldownDays))
	return e, nil
}

// Transition is the only sanctioned way to change stage. It updates the
// stored status metadata first, then relocates the document. A failed
// relocation after the metadata write surfaces ErrInconsistentTransition
// so the disagreement is detectable, never silent.
func (s *Store) Transition(e *Entry, target Status) (*Entry, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("entry: invalid target status %q", target)
	}
	dest := path.Join(s.dirs.For(target), fileName(e.ID))
	if dest != e.Path && s.fs.Exists(dest) {
		return nil, fmt.Errorf("%w: %s", ErrTransitionCollision, dest)
	}

	updated := *e
	updated.Status = target
	doc, err := vault.RenderFrontmatter(s.encodeMeta(&updated), updated.Content)
	if err != nil {
		return nil, err
	}
	if err := s.fs.Write(e.Path, doc); err != nil {
		return nil, fmt.Errorf("entry: update status metadata: %w", err)
	}

	if dest != e.Path {
		if err := s.fs.Move(e.Path, dest); err != nil {
			return nil, fmt.Errorf("%w: %s marked %q but still at %s: %v",
				ErrInconsistentTransition, e.ID, target, e.Path, err)
		}
	}
	updated.Path = dest
	s.log.Info("entry transitioned",
		zap.String("id", e.ID),
		zap.String("from", string(e.Status)),
		zap.String("to", string(target)))
	return &updated, nil
}

// Archive relocates an entry into the archive area instead of deleting
// it. Name collisions get an incrementing numeric suffix.
func (s *Store) Archive(e *Entry) (*Entry, error) {
	doc, err := vault.RenderFrontmatter(s.encodeMeta(e), e.Content)
	if err != nil {
		return nil, err
	}
	if err := s.fs.Write(e.Path, doc); err != nil {
		return nil, fmt.Errorf("entry: update metadata before archive: %w", err)
	}

	dest := path.Join(s.dirs.Archive, fileName(e.ID))
	for attempt := 1; s.fs.Exists(dest); attempt++ {
		if attempt >= 100 {
			return nil, ErrArchiveExhausted
		}
		dest = path.Join(s.dirs.Archive, fmt.Sprintf("%s-%d.md", e.ID, attempt))
	}
	if err := s.fs.Move(e.Path, dest); err != nil {
		return nil, fmt.Errorf("entry: archive %s: %w", e.ID, err)
	}

	archived := *e
	archived.Path = dest
	s.log.Info("entry archived", zap.String("id", e.ID), zap.String("path", dest))
	return &archived, nil
}

// Read parses an entry document. A document missing required metadata is
// unusable rather than exceptional: Read logs a warning and returns
// (nil, nil) so callers route it to user attention instead of an error
// path.
func (s *Store) Read(docPath string) (*Entry, error) {
	data, err := s.fs.Read(docPath)
	if err != nil {
		return nil, err
	}
	meta, body, err := vault.ParseFrontmatter(data)
	if err != nil {
		s.log.Warn("unreadable entry document", zap.String("path", docPath), zap.Error(err))
		return nil, nil
	}
	if meta.WeaklogID == "" || meta.Created == "" || meta.Status == "" {
		s.log.Warn("entry document missing required fields", zap.String("path", docPath))
		return nil, nil
	}
	created, err := time.Parse(time.RFC3339, meta.Created)
	if err != nil {
		s.log.Warn("entry document has malformed created timestamp",
			zap.String("path", docPath), zap.String("created", meta.Created))
		return nil, nil
	}

	e := &Entry{
		ID:           meta.WeaklogID,
		Content:      body,
		CreatedAt:    created,
		CooldownDays: meta.CooldownDays,
		Status:       Status(meta.Status),
		Path:         docPath,
	}
	if meta.TriageResult != "" {
		var tr TriageResult
		if err := json.Unmarshal([]byte(meta.TriageResult), &tr); err != nil {
			s.log.Warn("entry has malformed triage_result", zap.String("path", docPath), zap.Error(err))
		} else {
			e.Triage = &tr
		}
	}
	if meta.SynthesisGuide != "" {
		var sg SynthesisGuide
		if err := json.Unmarshal([]byte(meta.SynthesisGuide), &sg); err != nil {
			s.log.Warn("entry has malformed synthesis_guide", zap.String("path", docPath), zap.Error(err))
		} else {
			e.Guide = &sg
		}
	}
	if meta.PublishedAt != "" {
		if ts, err := time.Parse(time.RFC3339, meta.PublishedAt); err == nil {
			e.PublishedAt = ts
		}
	}
	return e, nil
}

// Find locates an entry by id, searching every stage directory.
func (s *Store) Find(id string) (*Entry, error) {
	for _, dir := range s.dirs.all() {
		p := path.Join(dir, fileName(id))
		if s.fs.Exists(p) {
			return s.Read(p)
		}
	}
	return nil, fmt.Errorf("entry: %s not found", id)
}

// List reads every entry in the directory mapped to a status. Unusable
// documents are skipped (already logged by Read).
func (s *Store) List(status Status) ([]*Entry, error) {
	dir := s.dirs.For(status)
	names, err := s.fs.List(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]*Entry, 0, len(names))
	for _, name := range names {
		e, err := s.Read(path.Join(dir, name))
		if err != nil || e == nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// UpdateMetadata merges fields into the stored header without disturbing
// the body.
func (s *Store) UpdateMetadata(e *Entry, patch vault.MetadataPatch) error {
	data, err := s.fs.Read(e.Path)
	if err != nil {
		return err
	}
	meta, body, err := vault.ParseFrontmatter(data)
	if err != nil {
		return fmt.Errorf("entry: reparse %s: %w", e.Path, err)
	}
	patch.Apply(&meta)
	doc, err := vault.RenderFrontmatter(meta, body)
	if err != nil {
		return err
	}
	if err := s.fs.Write(e.Path, doc); err != nil {
		return fmt.Errorf("entry: write metadata %s: %w", e.Path, err)
	}
	if patch.Status != nil {
		e.Status = Status(*patch.Status)
	}
	return nil
}

// SetTriage persists a triage result into the entry header. The result
// is immutable once set; a second call is rejected.
func (s *Store) SetTriage(e *Entry, tr TriageResult) error {
	if e.Triage != nil {
		return fmt.Errorf("entry: %s already has a triage result", e.ID)
	}
	encoded, err := json.Marshal(tr)
	if err != nil {
		return err
	}
	str := string(encoded)
	if err := s.UpdateMetadata(e, vault.MetadataPatch{TriageResult: &str}); err != nil {
		return err
	}
	e.Triage = &tr
	return nil
}

// SetGuide persists a synthesis guide into the entry header.
func (s *Store) SetGuide(e *Entry, sg SynthesisGuide) error {
	encoded, err := json.Marshal(sg)
	if err != nil {
		return err
	}
	str := string(encoded)
	if err := s.UpdateMetadata(e, vault.MetadataPatch{SynthesisGuide: &str}); err != nil {
		return err
	}
	e.Guide = &sg
	return nil
}

func (s *Store) encodeMeta(e *Entry) vault.Metadata {
	meta := vault.Metadata{
		WeaklogID:    e.ID,
		Created:      e.CreatedAt.Format(time.RFC3339),
		CooldownDays: e.CooldownDays,
		Status:       string(e.Status),
	}
	if e.Triage != nil {
		if encoded, err := json.Marshal(e.Triage); err == nil {
			meta.TriageResult = string(encoded)
		}
	}
	if e.Guide != nil {
		if encoded, err := json.Marshal(e.Guide); err == nil {
			meta.SynthesisGuide = string(encoded)
		}
	}
	if !e.PublishedAt.IsZero() {
		meta.PublishedAt = e.PublishedAt.Format(time.RFC3339)
	}
	return meta
}
