// Package cooldown tracks when entries become ready for triage. The
// index is a derived, separately persisted shadow of the entry store,
// keyed by entry id; it is allowed to drift and is reconciled by
// ValidateAndClean rather than trusted blindly.
package cooldown

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"weaklog/internal/logging"
)

// Entry is one persisted cooldown record. Created at registration,
// removed on adoption or rejection, never mutated in between.
type Entry struct {
	WeaklogID    string    `json:"weaklogId"`
	FilePath     string    `json:"filePath"`
	CreatedAt    time.Time `json:"createdAt"`
	CooldownDays int       `json:"cooldownDays"`
	ReadyAt      time.Time `json:"readyAt"` // createdAt + cooldownDays, computed once
}

// Data is the on-disk index shape.
type Data struct {
	Entries     []Entry   `json:"entries"`
	LastChecked time.Time `json:"lastChecked"`
}

// Summary is the user-facing readiness report.
type Summary struct {
	Ready []Entry
	Total int
}

// Message renders the summary as a notice line.
func (s Summary) Message() string {
	if len(s.Ready) == 0 {
		return fmt.Sprintf("no entries ready for triage (%d cooling)", s.Total)
	}
	names := make([]string, len(s.Ready))
	for i, e := range s.Ready {
		names[i] = e.WeaklogID
	}
	return fmt.Sprintf("%d entries ready for triage: %s", len(s.Ready), strings.Join(names, ", "))
}

// Scheduler persists the cooldown index with a backup-before-write
// discipline: the previous on-disk snapshot is copied to a sibling .bak
// file before every overwrite, and the write is skipped entirely if the
// backup copy fails.
type Scheduler struct {
	path string
	now  func() time.Time
	log  *zap.Logger
}

// New builds a scheduler persisting at indexPath (a JSON file).
func New(indexPath string) *Scheduler {
	return &Scheduler{
		path: indexPath,
		now:  time.Now,
		log:  logging.Get(logging.CategoryScheduler),
	}
}

// backupPath replaces the index file's extension with .bak.
func (s *Scheduler) backupPath() string {
	ext := filepath.Ext(s.path)
	return strings.TrimSuffix(s.path, ext) + ".bak"
}

// load reads the index. A missing or corrupt index is treated as empty,
// never fatal.
func (s *Scheduler) load() Data {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("cooldown index unreadable, treating as empty", zap.Error(err))
		}
		return Data{}
	}
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		s.log.Warn("cooldown index corrupt, treating as empty", zap.Error(err))
		return Data{}
	}
	return data
}

func (s *Scheduler) save(data Data) error {
	if current, err := os.ReadFile(s.path); err == nil {
		if err := writeFileAtomic(s.backupPath(), current); err != nil {
			return fmt.Errorf("cooldown: backup failed, index not written: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cooldown: cannot read current index for backup: %w", err)
	}

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("cooldown: encode index: %w", err)
	}
	if err := writeFileAtomic(s.path, encoded); err != nil {
		return fmt.Errorf("cooldown: write index: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp_cooldown_*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Register upserts a cooldown record: any prior record with the same id
// is removed first. ReadyAt is computed here, once.
func (s *Scheduler) Register(id, filePath string, createdAt time.Time, cooldownDays int) error {
	data := s.load()
	kept := data.Entries[:0]
	for _, e := range data.Entries {
		if e.WeaklogID != id {
			kept = append(kept, e)
		}
	}
	data.Entries = append(kept, Entry{
		WeaklogID:    id,
		FilePath:     filePath,
		CreatedAt:    createdAt,
		CooldownDays: cooldownDays,
		ReadyAt:      createdAt.AddDate(0, 0, cooldownDays),
	})
	data.LastChecked = s.now()
	if err := s.save(data); err != nil {
		return err
	}
	s.log.Info("cooldown registered",
		zap.String("id", id),
		zap.Int("days", cooldownDays))
	return nil
}

// Unregister removes a record by id. A missing id is logged, not an
// error, so the call is safe to repeat.
func (s *Scheduler) Unregister(id string) error {
	data := s.load()
	kept := data.Entries[:0]
	found := false
	for _, e := range data.Entries {
		if e.WeaklogID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		s.log.Info("unregister: id not in cooldown index", zap.String("id", id))
		return nil
	}
	data.Entries = kept
	data.LastChecked = s.now()
	return s.save(data)
}

// Ready returns every record whose cooldown has elapsed.
func (s *Scheduler) Ready() []Entry {
	data := s.load()
	now := s.now()
	var ready []Entry
	for _, e := range data.Entries {
		if !e.ReadyAt.After(now) {
			ready = append(ready, e)
		}
	}
	return ready
}

// CheckStatus produces the user-facing readiness summary and stamps
// lastChecked.
func (s *Scheduler) CheckStatus() (Summary, error) {
	data := s.load()
	now := s.now()
	summary := Summary{Total: len(data.Entries)}
	for _, e := range data.Entries {
		if !e.ReadyAt.After(now) {
			summary.Ready = append(summary.Ready, e)
		}
	}
	data.LastChecked = now
	if err := s.save(data); err != nil {
		return summary, err
	}
	return summary, nil
}

// ValidateAndClean prunes records whose documents no longer exist, whose
// dates are malformed, or whose required fields are missing. Returns the
// number pruned. This is the reconciliation pass that keeps the
// non-authoritative index honest relative to the entry store.
func (s *Scheduler) ValidateAndClean(exists func(path string) bool) (int, error) {
	data := s.load()
	kept := data.Entries[:0]
	removed := 0
	for _, e := range data.Entries {
		switch {
		case e.WeaklogID == "" || e.FilePath == "" || e.CooldownDays < 1:
			s.log.Warn("pruning cooldown record with missing fields", zap.String("id", e.WeaklogID))
			removed++
		case e.CreatedAt.IsZero() || e.ReadyAt.IsZero():
			s.log.Warn("pruning cooldown record with malformed dates", zap.String("id", e.WeaklogID))
			removed++
		case !exists(e.FilePath):
			s.log.Warn("pruning cooldown record for missing document",
				zap.String("id", e.WeaklogID), zap.String("path", e.FilePath))
			removed++
		default:
			kept = append(kept, e)
		}
	}
	if removed == 0 {
		return 0, nil
	}
	data.Entries = kept
	data.LastChecked = s.now()
	if err := s.save(data); err != nil {
		return 0, err
	}
	return removed, nil
}
