// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Document Store Ports
// -----------------------------------------------------------------------------

// FileStore reads and writes serialized documents by path.
// A missing document is reported with an error matching fs.ErrNotExist.
type FileStore interface {
	// ReadFile returns the raw content stored at path.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile replaces the content stored at path.
	WriteFile(ctx context.Context, path string, data []byte) error
}

// DocumentInfo describes a stored document.
type DocumentInfo struct {
	Path      string
	Size      int
	UpdatedAt time.Time
}

// DocumentLister is implemented by stores able to enumerate their documents.
type DocumentLister interface {
	// List returns the documents whose path starts with prefix, sorted by path.
	List(ctx context.Context, prefix string) ([]DocumentInfo, error)
}

// -----------------------------------------------------------------------------
// Observability Ports
// -----------------------------------------------------------------------------

// SchemaObserver is notified of schema load activity.
type SchemaObserver interface {
	// DocumentLoaded records a document loaded into class.
	DocumentLoaded(class string)

	// AttributeMismatch records a value that did not satisfy its descriptor.
	// strict tells whether the mismatch was rejected or coerced.
	AttributeMismatch(class, attribute string, strict bool)

	// ExtrasFound records undeclared keys found while loading class.
	ExtrasFound(class string, count int)
}
