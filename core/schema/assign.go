package schema

import (
	"fmt"
	"reflect"
	"time"

	"github.com/artpar/schemata/core/types"
)

var timeType = reflect.TypeOf(time.Time{})

// assign stores the canonical value v (as produced by a descriptor's
// Converted) into dst, converting containers to dst's Go type.
func assign(dst reflect.Value, v any) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	src := reflect.ValueOf(v)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}

	switch dst.Kind() {
	case reflect.Pointer:
		if src.Kind() == reflect.Pointer && src.Type().Elem().AssignableTo(dst.Type().Elem()) {
			if src.IsNil() {
				dst.Set(reflect.Zero(dst.Type()))
				return nil
			}
			p := reflect.New(dst.Type().Elem())
			p.Elem().Set(src.Elem())
			dst.Set(p)
			return nil
		}
		p := reflect.New(dst.Type().Elem())
		if err := assign(p.Elem(), v); err != nil {
			return err
		}
		dst.Set(p)
		return nil

	case reflect.Struct:
		if src.Kind() == reflect.Pointer && src.Type().Elem() == dst.Type() && !src.IsNil() {
			dst.Set(src.Elem())
			return nil
		}

	case reflect.String:
		if src.Kind() == reflect.String {
			dst.SetString(src.String())
			return nil
		}

	case reflect.Bool:
		if src.Kind() == reflect.Bool {
			dst.SetBool(src.Bool())
			return nil
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, ok := types.ToInt(v); ok && isInteger(src) {
			if dst.OverflowInt(n) {
				return fmt.Errorf("%d overflows %s", n, dst.Type())
			}
			dst.SetInt(n)
			return nil
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, ok := types.ToInt(v); ok && isInteger(src) {
			if n < 0 || dst.OverflowUint(uint64(n)) {
				return fmt.Errorf("%d overflows %s", n, dst.Type())
			}
			dst.SetUint(uint64(n))
			return nil
		}

	case reflect.Float32, reflect.Float64:
		if f, ok := types.ToFloat(v); ok && (isInteger(src) || src.Kind() == reflect.Float32 || src.Kind() == reflect.Float64) {
			dst.SetFloat(f)
			return nil
		}

	case reflect.Slice:
		if dst.Type().Elem().Kind() == reflect.Uint8 && src.Kind() == reflect.String {
			dst.SetBytes([]byte(src.String()))
			return nil
		}
		items, ok := types.Elements(v)
		if !ok {
			break
		}
		s := reflect.MakeSlice(dst.Type(), len(items), len(items))
		for i, item := range items {
			if err := assign(s.Index(i), item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		dst.Set(s)
		return nil

	case reflect.Array:
		items, ok := types.Elements(v)
		if !ok {
			break
		}
		if len(items) > dst.Len() {
			return fmt.Errorf("%d items don't fit in %s", len(items), dst.Type())
		}
		a := reflect.New(dst.Type()).Elem()
		for i, item := range items {
			if err := assign(a.Index(i), item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		dst.Set(a)
		return nil

	case reflect.Map:
		if types.IsSet(dst.Type()) {
			items, ok := types.Elements(v)
			if !ok {
				break
			}
			set := reflect.MakeMapWithSize(dst.Type(), len(items))
			member := reflect.New(dst.Type().Elem()).Elem()
			for _, item := range items {
				k := reflect.New(dst.Type().Key()).Elem()
				if err := assign(k, item); err != nil {
					return err
				}
				set.SetMapIndex(k, member)
			}
			dst.Set(set)
			return nil
		}
		if src.Kind() != reflect.Map {
			break
		}
		m := reflect.MakeMapWithSize(dst.Type(), src.Len())
		iter := src.MapRange()
		for iter.Next() {
			k := reflect.New(dst.Type().Key()).Elem()
			if err := assign(k, iter.Key().Interface()); err != nil {
				return fmt.Errorf("key %s: %w", types.Repr(iter.Key().Interface()), err)
			}
			e := reflect.New(dst.Type().Elem()).Elem()
			if err := assign(e, iter.Value().Interface()); err != nil {
				return fmt.Errorf("value of %s: %w", types.Repr(iter.Key().Interface()), err)
			}
			m.SetMapIndex(k, e)
		}
		dst.Set(m)
		return nil
	}

	return fmt.Errorf("can't store %s in %s", types.TypeName(v), dst.Type())
}

func isInteger(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// cloneValue returns a deep copy of v. Unexported struct fields are copied shallowly.
// Shared pointers and maps stay shared in the copy, so cyclic values copy
// into the same cycle.
func cloneValue(v reflect.Value) reflect.Value {
	c := cloner{seen: make(map[visit]reflect.Value)}
	return c.clone(v)
}

type visit struct {
	ptr uintptr
	typ reflect.Type
}

type cloner struct {
	seen map[visit]reflect.Value
}

func (cl cloner) clone(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key := visit{v.Pointer(), v.Type()}
		if c, ok := cl.seen[key]; ok {
			return c
		}
		c := reflect.New(v.Type().Elem())
		cl.seen[key] = c
		c.Elem().Set(cl.clone(v.Elem()))
		return c

	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		c := reflect.New(v.Type()).Elem()
		c.Set(cl.clone(v.Elem()))
		return c

	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		c := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			c.Index(i).Set(cl.clone(v.Index(i)))
		}
		return c

	case reflect.Array:
		c := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			c.Index(i).Set(cl.clone(v.Index(i)))
		}
		return c

	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key := visit{v.Pointer(), v.Type()}
		if c, ok := cl.seen[key]; ok {
			return c
		}
		c := reflect.MakeMapWithSize(v.Type(), v.Len())
		cl.seen[key] = c
		iter := v.MapRange()
		for iter.Next() {
			c.SetMapIndex(iter.Key(), cl.clone(iter.Value()))
		}
		return c

	case reflect.Struct:
		c := reflect.New(v.Type()).Elem()
		c.Set(v)
		if v.Type() == timeType {
			return c
		}
		for i := 0; i < v.NumField(); i++ {
			if c.Field(i).CanSet() {
				c.Field(i).Set(cl.clone(v.Field(i)))
			}
		}
		return c
	}

	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}

// valuesEqual compares two field values. Times compare by instant,
// empty and nil containers are equal.
func valuesEqual(a, b reflect.Value) bool {
	return equalValues(a, b, make(map[[2]visit]bool))
}

// equalValues tracks the pointer, map and slice pairs under comparison; a
// pair met again is part of a cycle and compares equal.
func equalValues(a, b reflect.Value, seen map[[2]visit]bool) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}
	if a.Type() == timeType {
		return a.Interface().(time.Time).Equal(b.Interface().(time.Time))
	}

	switch a.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if !a.IsNil() && !b.IsNil() {
			pair := [2]visit{{a.Pointer(), a.Type()}, {b.Pointer(), b.Type()}}
			if seen[pair] {
				return true
			}
			seen[pair] = true
		}
	}

	switch a.Kind() {
	case reflect.Pointer, reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		return equalValues(a.Elem(), b.Elem(), seen)

	case reflect.Slice, reflect.Array:
		if a.Len() != b.Len() {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !equalValues(a.Index(i), b.Index(i), seen) {
				return false
			}
		}
		return true

	case reflect.Map:
		if a.Len() != b.Len() {
			return false
		}
		iter := a.MapRange()
		for iter.Next() {
			other := b.MapIndex(iter.Key())
			if !other.IsValid() || !equalValues(iter.Value(), other, seen) {
				return false
			}
		}
		return true

	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !a.Type().Field(i).IsExported() {
				return reflect.DeepEqual(a.Interface(), b.Interface())
			}
		}
		for i := 0; i < a.NumField(); i++ {
			if !equalValues(a.Field(i), b.Field(i), seen) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(a.Interface(), b.Interface())
}
