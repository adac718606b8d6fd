// Package serialize reads and writes documents through a ports.FileStore.
//
// Documents are JSON unless their path ends in .yaml or .yml. JSON output is
// sanitized first, keys are sorted, indented by 2 and newline terminated.
package serialize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/artpar/schemata/core/jsonable"
	"github.com/artpar/schemata/core/types"
	"github.com/artpar/schemata/ports"
)

var (
	// ErrNotFound is returned when a required document is missing.
	ErrNotFound = errors.New("document not found")

	// ErrWrongType is returned when a document's top-level shape doesn't match the expected default.
	ErrWrongType = errors.New("document has wrong type")
)

// Options tunes reading and writing.
type Options struct {
	// Default is returned when the document is missing. When set, a
	// document of another top-level shape is rejected with ErrWrongType.
	Default any

	// Fatal makes a missing document with no Default an ErrNotFound error.
	Fatal bool

	// KeepNone keeps nil values when writing.
	KeepNone bool

	// Indent is the JSON indentation width, 2 when zero. Negative means compact.
	Indent int

	// Expand renders custom values as mappings, see jsonable.Options.
	Expand func(v any) (map[string]any, bool)

	// Logger receives debug lines for each read and save, when set.
	Logger *zerolog.Logger
}

func (o Options) sanitizer() jsonable.Options {
	return jsonable.Options{KeepNone: o.KeepNone, Expand: o.Expand}
}

func (o Options) indent() string {
	switch {
	case o.Indent < 0:
		return ""
	case o.Indent == 0:
		return "  "
	}
	return strings.Repeat(" ", o.Indent)
}

// IsYAML reports whether path names a YAML document.
func IsYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Decode parses data, as YAML when path says so, JSON otherwise.
// JSON numbers are kept as json.Number.
func Decode(path string, data []byte) (any, error) {
	var result any
	if IsYAML(path) {
		if err := yaml.Unmarshal(data, &result); err != nil {
			return nil, err
		}
		return result, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected content after top-level value")
	}
	return result, nil
}

// Encode sanitizes data and renders it, as YAML when path says so, JSON otherwise.
func Encode(path string, data any, opts Options) ([]byte, error) {
	clean := jsonable.Sanitize(data, opts.sanitizer())
	if IsYAML(path) {
		return yaml.Marshal(clean)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", opts.indent())
	if err := enc.Encode(clean); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Represented returns data as sorted, indented JSON text ending with a newline.
func Represented(data any, opts Options) string {
	out, err := Encode("", data, opts)
	if err != nil {
		return types.Stringified(jsonable.Sanitize(data, opts.sanitizer())) + "\n"
	}
	return string(out)
}

// ReadJSON reads and decodes the document at path.
// found is false when the document is missing and opts.Default was returned.
func ReadJSON(ctx context.Context, store ports.FileStore, path string, opts Options) (data any, found bool, err error) {
	raw, err := store.ReadFile(ctx, path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, false, fmt.Errorf("couldn't read %s: %w", path, err)
		}
		if opts.Default == nil && opts.Fatal {
			return nil, false, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return opts.Default, false, nil
	}

	data, err = Decode(path, raw)
	if err != nil {
		return nil, true, fmt.Errorf("couldn't read %s: %w", path, err)
	}
	if opts.Default != nil && !sameShape(data, opts.Default) {
		return nil, true, fmt.Errorf("%w: %s is %s, expecting %s", ErrWrongType, path, shape(data), shape(opts.Default))
	}

	if opts.Logger != nil {
		opts.Logger.Debug().Str("path", path).Msg("read document")
	}
	return data, true, nil
}

// SaveJSON sanitizes and writes data to path.
func SaveJSON(ctx context.Context, store ports.FileStore, data any, path string, opts Options) error {
	if data == nil {
		return fmt.Errorf("no data to save to %s", path)
	}
	if path == "" {
		return errors.New("no path to save to")
	}

	out, err := Encode(path, data, opts)
	if err != nil {
		return fmt.Errorf("couldn't save %s: %w", path, err)
	}
	if err := store.WriteFile(ctx, path, out); err != nil {
		return fmt.Errorf("couldn't save %s: %w", path, err)
	}

	if opts.Logger != nil {
		opts.Logger.Debug().Str("path", path).Msg("saved document")
	}
	return nil
}

func sameShape(a, b any) bool {
	return shape(a) == shape(b)
}

// shape is the JSON kind of v: object, array, string, number, boolean or null.
func shape(v any) string {
	if v == nil {
		return "null"
	}
	if _, ok := v.(json.Number); ok {
		return "number"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if types.IsSet(rv.Type()) {
			return "array"
		}
		return "object"
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return "string"
		}
		return "array"
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	}
	return rv.Kind().String()
}
