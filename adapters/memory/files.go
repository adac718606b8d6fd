// Package memory provides in-memory implementations for testing.
package memory

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/artpar/schemata/adapters/clock"
	"github.com/artpar/schemata/ports"
)

type file struct {
	data      []byte
	updatedAt time.Time
}

// Files is an in-memory implementation of ports.FileStore.
type Files struct {
	mu    sync.RWMutex
	files map[string]file
	clock ports.Clock
}

// NewFiles creates a new in-memory file store.
func NewFiles() *Files {
	return NewFilesWithClock(clock.Real{})
}

// NewFilesWithClock creates a new in-memory file store stamping writes with c.
func NewFilesWithClock(c ports.Clock) *Files {
	return &Files{
		files: make(map[string]file),
		clock: c,
	}
}

// ReadFile returns a copy of the content stored at path.
func (s *Files) ReadFile(ctx context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", path, fs.ErrNotExist)
	}
	return append([]byte(nil), f.data...), nil
}

// WriteFile stores a copy of data at path.
func (s *Files) WriteFile(ctx context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[path] = file{data: append([]byte(nil), data...), updatedAt: s.clock.Now()}
	return nil
}

// List returns the documents whose path starts with prefix.
func (s *Files) List(ctx context.Context, prefix string) ([]ports.DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ports.DocumentInfo
	for path, f := range s.files {
		if strings.HasPrefix(path, prefix) {
			result = append(result, ports.DocumentInfo{Path: path, Size: len(f.data), UpdatedAt: f.updatedAt})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}

// Delete removes path, returning whether it existed.
func (s *Files) Delete(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.files[path]
	delete(s.files, path)
	return ok
}

// Len returns the number of stored documents.
func (s *Files) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Ensure interface compliance.
var (
	_ ports.FileStore      = (*Files)(nil)
	_ ports.DocumentLister = (*Files)(nil)
)
