package formatter

import (
	"io"

	"github.com/artpar/schemata/core/serialize"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Description returns the formatter description.
func (f *YAMLFormatter) Description() string {
	return "YAML output format"
}

// FormatList formats a list of records as a YAML sequence.
func (f *YAMLFormatter) FormatList(w io.Writer, records []map[string]any, opts FormatOptions) error {
	return f.encode(w, filterRecords(records, opts.Columns))
}

// FormatRecord formats a single record as a YAML mapping.
func (f *YAMLFormatter) FormatRecord(w io.Writer, record map[string]any, opts FormatOptions) error {
	if record == nil {
		_, err := io.WriteString(w, "null\n")
		return err
	}
	return f.encode(w, filterRecord(record, opts.Columns))
}

// FormatError formats an error as YAML.
func (f *YAMLFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, map[string]any{"error": err.Error()})
}

func (f *YAMLFormatter) encode(w io.Writer, data any) error {
	out, err := serialize.Encode(".yaml", data, serialize.Options{KeepNone: true})
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
