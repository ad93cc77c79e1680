// Package vault provides path-addressed document storage for weaklog.
// Documents are markdown files with a YAML frontmatter header carrying
// the workflow metadata. The FS interface is the seam the rest of the
// system talks to; OS is the on-disk implementation.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrExists indicates a create or move would overwrite an existing file.
var ErrExists = errors.New("vault: destination already exists")

// ErrNotExist indicates the requested document is missing.
var ErrNotExist = errors.New("vault: file does not exist")

// FS is the storage contract the entry store and scheduler depend on.
// Paths are relative to the vault root.
type FS interface {
	// Create writes a new file; fails with ErrExists if the path is taken.
	Create(path string, data []byte) error
	// Write overwrites a file atomically (same-directory temp + rename).
	Write(path string, data []byte) error
	Read(path string) ([]byte, error)
	// Move renames a file; fails with ErrExists if the destination is taken.
	Move(oldPath, newPath string) error
	Exists(path string) bool
	// List returns the markdown file names (not paths) directly under dir,
	// sorted. A missing directory lists as empty.
	List(dir string) ([]string, error)
}

// OS is the local-filesystem vault rooted at a base directory.
type OS struct {
	root string
}

// NewOS opens (creating if needed) a vault rooted at dir.
func NewOS(dir string) (*OS, error) {
	if dir == "" {
		return nil, fmt.Errorf("vault: root directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("vault: create root: %w", err)
	}
	return &OS{root: dir}, nil
}

// Root returns the absolute base directory of the vault.
func (v *OS) Root() string { return v.root }

func (v *OS) abs(path string) string {
	return filepath.Join(v.root, filepath.FromSlash(path))
}

func (v *OS) Create(path string, data []byte) error {
	target := v.abs(path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("vault: create parent dir: %w", err)
	}
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
		return fmt.Errorf("vault: create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("vault: write %s: %w", path, err)
	}
	return f.Close()
}

func (v *OS) Write(path string, data []byte) error {
	target := v.abs(path)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("vault: create parent dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp_doc_*")
	if err != nil {
		return fmt.Errorf("vault: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("vault: write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("vault: replace %s: %w", path, err)
	}
	return nil
}

func (v *OS) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(v.abs(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
		}
		return nil, fmt.Errorf("vault: read %s: %w", path, err)
	}
	return data, nil
}

func (v *OS) Move(oldPath, newPath string) error {
	src, dst := v.abs(oldPath), v.abs(newPath)
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, newPath)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("vault: create parent dir: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("vault: move %s -> %s: %w", oldPath, newPath, err)
	}
	return nil
}

func (v *OS) Exists(path string) bool {
	_, err := os.Stat(v.abs(path))
	return err == nil
}

func (v *OS) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(v.abs(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("vault: list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
