// Package engine implements the input normalization and lending metrics
// core: value coercion, key canonicalization, embedded key/value extraction,
// plausibility auditing, amortization, and explainable risk scoring.
//
// Every public computation degrades to nil-plus-audit-note instead of
// failing; only the amortization schedule reports a distinct error, and the
// metrics computation absorbs it internally.
package engine

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// ValueKind tags a coerced scalar.
type ValueKind int

const (
	// KindNull means the input was absent (nil or empty string).
	KindNull ValueKind = iota
	// KindNumber means a numeric value was recovered.
	KindNumber
	// KindText means the input was present but not numeric; the trimmed
	// original is preserved so audit messages can quote it.
	KindText
)

// Value is the tagged result of coercing an arbitrary scalar. It is the only
// place in the engine that pattern-matches on raw input types.
type Value struct {
	Kind ValueKind
	Num  float64
	Text string
}

// Null, Number and Text construct Values of the respective kind.
func Null() Value            { return Value{Kind: KindNull} }
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }
func Text(s string) Value    { return Value{Kind: KindText, Text: s} }

// IsNumber reports whether the value carries a usable number.
func (v Value) IsNumber() bool { return v.Kind == KindNumber }

// numberRx finds the first embedded numeric substring: optional sign,
// digits, optional decimal fraction.
var numberRx = regexp.MustCompile(`-?\d+(\.\d+)?`)

// stripper removes thousands separators, currency symbols, percent signs and
// non-breaking spaces before a parse attempt. The set is fixed; coercion
// never mutates shared state.
var stripper = strings.NewReplacer(
	" ", "",
	",", "",
	"£", "",
	"$", "",
	"€", "",
	"%", "",
)

// Coerce converts an arbitrary scalar representation into a Value. It never
// panics: numbers pass through, numeric-looking strings are cleaned and
// parsed, anything else comes back as Text so callers can distinguish
// "present but unparsable" from "absent". Booleans are deliberately excluded
// from numeric treatment.
func Coerce(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Text(strconv.FormatBool(v))
	case float64:
		return Number(v)
	case float32:
		return Number(float64(v))
	case int:
		return Number(float64(v))
	case int32:
		return Number(float64(v))
	case int64:
		return Number(float64(v))
	case uint:
		return Number(float64(v))
	case uint32:
		return Number(float64(v))
	case uint64:
		return Number(float64(v))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return Number(f)
		}
		return coerceString(v.String())
	case string:
		return coerceString(v)
	case Value:
		return v
	default:
		return Null()
	}
}

func coerceString(s string) Value {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Null()
	}

	cleaned := strings.TrimSpace(stripper.Replace(trimmed))
	if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return Number(f)
	}

	// Fall back to the first embedded numeric substring.
	if m := numberRx.FindString(cleaned); m != "" {
		if f, err := strconv.ParseFloat(m, 64); err == nil {
			return Number(f)
		}
	}

	return Text(trimmed)
}

// CoerceNumber is a convenience wrapper returning (number, ok).
func CoerceNumber(raw any) (float64, bool) {
	v := Coerce(raw)
	return v.Num, v.IsNumber()
}
