package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/schemata/core/types"
)

// ErrValidation is matched by every error caused by a non-compliant document.
var ErrValidation = errors.New("validation failed")

// DeclarationError is returned when a type can't be described.
type DeclarationError = types.DeclarationError

// ValidationError reports a value that doesn't satisfy its attribute's descriptor.
type ValidationError struct {
	Class     string
	Attribute string
	Source    string
	Expected  string // descriptor label
	Actual    string // type name of the offending value
	Value     string // text form of the offending value
	Problem   string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "can't deserialize %s.%s", e.Class, e.Attribute)
	if e.Source != "" {
		fmt.Fprintf(&b, " from %s", e.Source)
	}
	b.WriteString(": ")
	b.WriteString(e.Problem)
	return b.String()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ExtrasError reports undeclared keys when extras are configured to raise.
type ExtrasError struct {
	Class  string
	Source string
	Keys   []string // sorted
}

func (e *ExtrasError) Error() string {
	where := e.Class
	if e.Source != "" {
		where = fmt.Sprintf("%s from %s", e.Class, e.Source)
	}
	return fmt.Sprintf("extra content given for %s: %s", where, strings.Join(e.Keys, ", "))
}

func (e *ExtrasError) Is(target error) bool {
	return target == ErrValidation
}

// InstanceMethodError is returned by Broadcast when a capability is only
// implemented on the pointer type, i.e. it needs an instance.
type InstanceMethodError struct {
	Class      string
	Capability string
}

func (e *InstanceMethodError) Error() string {
	return fmt.Sprintf("%s implements %s on its pointer type only, broadcast needs a value receiver", e.Class, e.Capability)
}

// TypeMismatchError is returned when an instance method gets an object of the wrong type.
type TypeMismatchError struct {
	Class string
	Got   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("expecting *%s, got %s", e.Class, e.Got)
}

func declarationError(class, format string, args ...any) error {
	return &DeclarationError{Class: class, Message: fmt.Sprintf(format, args...)}
}
