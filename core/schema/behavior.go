package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Policy says what to do with undeclared keys found while loading a document.
type Policy int

const (
	// Warn logs the undeclared keys and carries on.
	Warn Policy = iota
	// Ignore drops undeclared keys silently.
	Ignore
	// Raise fails the load with an *ExtrasError.
	Raise
)

func (p Policy) String() string {
	switch p {
	case Warn:
		return "warn"
	case Ignore:
		return "ignore"
	case Raise:
		return "raise"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy parses "warn", "ignore" or "raise".
func ParsePolicy(text string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "warn", "":
		return Warn, nil
	case "ignore":
		return Ignore, nil
	case "raise":
		return Raise, nil
	}
	return Warn, fmt.Errorf("invalid extras policy %q (want warn, ignore or raise)", text)
}

// Behavior controls how documents are loaded into a described type.
// The zero value is lenient and warns about extras.
type Behavior struct {
	// Strict turns type mismatches into *ValidationError instead of warnings.
	Strict bool

	// Extras says what to do with undeclared keys.
	Extras Policy

	// IgnoredExtras are undeclared keys never reported, whatever the policy.
	IgnoredExtras []string

	// Hook is called once for every type described with this behavior.
	Hook func(m *Meta)
}

// Lenient is the default behavior.
func Lenient() Behavior {
	return Behavior{}
}

// StrictBehavior rejects mismatches and extras.
func StrictBehavior() Behavior {
	return Behavior{Strict: true, Extras: Raise}
}

func (b Behavior) String() string {
	var parts []string
	if b.Strict {
		parts = append(parts, "strict")
	}
	if b.Extras != Warn {
		parts = append(parts, "extras: "+b.Extras.String())
	}
	if len(b.IgnoredExtras) > 0 {
		ignored := append([]string(nil), b.IgnoredExtras...)
		sort.Strings(ignored)
		parts = append(parts, fmt.Sprintf("ignored extras: [%s]", strings.Join(ignored, ", ")))
	}
	if b.Hook != nil {
		parts = append(parts, "hook")
	}
	if len(parts) == 0 {
		return "lenient"
	}
	return strings.Join(parts, ", ")
}

// ignores reports whether key is listed in IgnoredExtras.
func (b Behavior) ignores(key string) bool {
	for _, name := range b.IgnoredExtras {
		if name == key {
			return true
		}
	}
	return false
}
