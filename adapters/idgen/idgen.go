// Package idgen provides the identifier generators used for request ids.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/artpar/schemata/ports"
)

// UUID generates random v4 UUIDs, with an optional prefix.
type UUID struct {
	Prefix string
}

// New returns a new identifier.
func (g UUID) New() string {
	return g.Prefix + uuid.NewString()
}

// Sequential generates prefix1, prefix2, ... for deterministic tests.
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New returns the next identifier.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

var (
	_ ports.IDGenerator = UUID{}
	_ ports.IDGenerator = (*Sequential)(nil)
)
