package types

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Date layouts accepted by ToDate, tried in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

var (
	trueTokens  = map[string]bool{"true": true, "yes": true, "y": true, "on": true, "1": true}
	falseTokens = map[string]bool{"false": true, "no": true, "n": true, "off": true, "0": true, "": true}
)

// ToInt converts value to an int64.
// Accepts all integer kinds, finite floats (truncated), json.Number and text
// holding a decimal, 0x/0o/0b prefixed or underscore separated integer literal.
func ToInt(value any) (int64, bool) {
	switch v := value.(type) {
	case nil, bool:
		return 0, false
	case json.Number:
		return intFromText(string(v))
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, false
		}
		return int64(f), true
	case reflect.String:
		return intFromText(rv.String())
	}
	return 0, false
}

// ToFloat converts value to a float64.
// Text may hold any integer form ToInt accepts, a float literal, inf/nan,
// or the yaml-like ".inf" / "-.inf" sentinels.
func ToFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case nil, bool:
		return 0, false
	case json.Number:
		return floatFromText(string(v))
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		return floatFromText(rv.String())
	}
	return 0, false
}

// ToBoolean converts value to a bool.
// Numbers are true when non-zero; text is matched against true/yes/y/on/1
// and false/no/n/off/0 (case-insensitive, empty text is false).
func ToBoolean(value any) (bool, bool) {
	if value == nil {
		return false, false
	}
	if b, ok := value.(bool); ok {
		return b, true
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), true
	case reflect.String:
		text := strings.ToLower(strings.TrimSpace(rv.String()))
		if trueTokens[text] {
			return true, true
		}
		if falseTokens[text] {
			return false, true
		}
		if f, ok := floatFromText(text); ok && !math.IsNaN(f) {
			return f != 0, true
		}
		return false, false
	}

	if f, ok := ToFloat(value); ok && !math.IsNaN(f) {
		return f != 0, true
	}
	return false, false
}

// ToDate converts value to a time.Time.
// Numbers (and numeric text) are epoch seconds. Text without a zone is
// interpreted in loc, UTC when loc is nil.
func ToDate(value any, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}

	switch v := value.(type) {
	case nil, bool:
		return time.Time{}, false
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	}

	if rv := reflect.ValueOf(value); rv.Kind() == reflect.String {
		text := strings.TrimSpace(rv.String())
		if text == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, text, loc); err == nil {
				return t, true
			}
		}
	}

	f, ok := ToFloat(value)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, false
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC(), true
}

// Stringified returns the text form of value.
func Stringified(value any) string {
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return "nil"
	}

	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case json.Number:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case encoding.TextMarshaler:
		if text, err := v.MarshalText(); err == nil {
			return string(text)
		}
	case fmt.Stringer:
		return v.String()
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	}
	return fmt.Sprintf("%v", value)
}

// Repr is the text form of value used in mismatch messages.
func Repr(value any) string {
	if value == nil {
		return "nil"
	}
	return Stringified(value)
}

// TypeName returns a short name for the dynamic type of value.
// All text-like values are reported as "string".
func TypeName(value any) string {
	if value == nil {
		return "nil"
	}
	if isText(value) {
		return "string"
	}
	return reflect.TypeOf(value).String()
}

// isText reports whether value belongs to the text family: any string kind
// (json.Number excluded) or a byte slice.
func isText(value any) bool {
	switch value.(type) {
	case nil, json.Number:
		return false
	case string, []byte:
		return true
	}
	return reflect.ValueOf(value).Kind() == reflect.String
}

func intFromText(text string) (int64, bool) {
	text = strings.TrimSpace(text)
	digits := strings.TrimLeft(text, "+-")
	if digits == "" {
		return 0, false
	}

	prefixed := len(digits) > 2 && digits[0] == '0' && strings.ContainsRune("xXoObB", rune(digits[1]))
	if !prefixed && len(digits) > 1 && digits[0] == '0' && strings.Trim(digits, "0_") != "" {
		// Leading zeros are not an octal marker.
		return 0, false
	}

	n, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func floatFromText(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if n, ok := intFromText(text); ok {
		return float64(n), true
	}

	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f, true
	}

	// ".inf", "-.inf", "+.Inf"
	lower := strings.ToLower(text)
	if strings.HasSuffix(lower, ".inf") && len(strings.TrimLeft(lower, "+-")) == 4 {
		if f, err := strconv.ParseFloat(strings.Replace(lower, ".", "", 1), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
