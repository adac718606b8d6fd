// Package filestore provides a FileStore backed by the local file system.
package filestore

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/artpar/schemata/ports"
)

const tempPattern = ".schemata-*.tmp"

// Store reads and writes documents under a root directory.
// Relative paths are resolved against the root, absolute paths are used as is.
type Store struct {
	root   string
	dryRun atomic.Bool
	logger zerolog.Logger
}

// New creates a store rooted at root ("" means the working directory).
// With dryRun, writes are logged instead of performed.
func New(root string, dryRun bool, logger zerolog.Logger) *Store {
	s := &Store{root: root, logger: logger}
	s.dryRun.Store(dryRun)
	return s
}

// DryRun reports whether writes are only logged.
func (s *Store) DryRun() bool {
	return s.dryRun.Load()
}

// SetDryRun switches dry run mode on or off.
func (s *Store) SetDryRun(dryRun bool) {
	s.dryRun.Store(dryRun)
}

func (s *Store) resolve(path string) string {
	if filepath.IsAbs(path) || s.root == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(s.root, path)
}

// ReadFile returns the content of the file at path.
func (s *Store) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.resolve(path))
}

// WriteFile replaces the file at path, creating parent directories as needed.
// The content is written to a temporary file first and renamed into place,
// so readers never see a partial document.
func (s *Store) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := s.resolve(path)
	if s.dryRun.Load() {
		s.logger.Info().Str("path", target).Int("bytes", len(data)).Msg("would save")
		return nil
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write %s: %w", target, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", target, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", target, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", target, err)
	}

	s.logger.Debug().Str("path", target).Int("bytes", len(data)).Msg("saved")
	return nil
}

// List returns the files below the root whose slash separated relative path
// starts with prefix. Leftover temporary files are skipped.
func (s *Store) List(ctx context.Context, prefix string) ([]ports.DocumentInfo, error) {
	root := s.root
	if root == "" {
		root = "."
	}

	var docs []ports.DocumentInfo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if matched, _ := filepath.Match(tempPattern, d.Name()); matched {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		docs = append(docs, ports.DocumentInfo{
			Path:      rel,
			Size:      int(info.Size()),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// Ensure interface compliance.
var (
	_ ports.FileStore      = (*Store)(nil)
	_ ports.DocumentLister = (*Store)(nil)
)
