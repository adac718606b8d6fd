package formatter

import (
	"io"

	"github.com/artpar/schemata/core/serialize"
)

// JSONFormatter formats output as sorted, sanitized JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Description returns the formatter description.
func (f *JSONFormatter) Description() string {
	return "JSON output format"
}

// FormatList formats a list of records as a JSON array.
func (f *JSONFormatter) FormatList(w io.Writer, records []map[string]any, opts FormatOptions) error {
	return f.encode(w, filterRecords(records, opts.Columns), opts.Compact)
}

// FormatRecord formats a single record as a JSON object, null when nil.
func (f *JSONFormatter) FormatRecord(w io.Writer, record map[string]any, opts FormatOptions) error {
	if record == nil {
		_, err := io.WriteString(w, "null\n")
		return err
	}
	return f.encode(w, filterRecord(record, opts.Columns), opts.Compact)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, map[string]any{"error": err.Error()}, false)
}

func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	opts := serialize.Options{KeepNone: true}
	if compact {
		opts.Indent = -1
	}
	out, err := serialize.Encode("", data, opts)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
