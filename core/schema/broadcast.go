package schema

import (
	"fmt"
	"reflect"
)

// Broadcast calls call on the zero value of every registered type
// implementing capability C, in qualified name order, and stops at the
// first error.
//
// Only value receiver methods count: when a type implements C on its pointer
// type only, Broadcast fails with an *InstanceMethodError before calling
// anything, as no instance exists to call it on.
func Broadcast[C any](r *Registry, call func(C) error) error {
	capability := reflect.TypeOf((*C)(nil)).Elem()
	if capability.Kind() != reflect.Interface {
		return fmt.Errorf("broadcast capability %s is not an interface", capability)
	}

	var targets []C
	for _, m := range r.List() {
		zero := reflect.Zero(m.typ).Interface()
		if c, ok := zero.(C); ok {
			targets = append(targets, c)
			continue
		}
		if reflect.PointerTo(m.typ).Implements(capability) {
			return &InstanceMethodError{Class: m.QualifiedName(), Capability: capability.String()}
		}
	}

	for _, c := range targets {
		if err := call(c); err != nil {
			return err
		}
	}
	return nil
}
