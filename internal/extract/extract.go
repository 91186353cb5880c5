// Package extract turns fetched documents into typed values through
// declarative field descriptors. Adding a tracked field is a data change,
// not a code change, and an upstream layout break surfaces as one typed
// error instead of a stray failure deep in business logic.
package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

// Rule is how a located raw value is parsed.
type Rule int

const (
	// Number parses a plain numeric value.
	Number Rule = iota
	// Percent parses a numeric value with an optional trailing % sign.
	Percent
)

// FieldDescriptor maps one named output field to a location in the
// document plus a parse rule. Sentinel is the upstream's literal "no data"
// marker; a located value equal to it omits the field rather than failing.
type FieldDescriptor struct {
	Field    string
	Path     string // JSONPath locator into the decoded document
	Rule     Rule
	Sentinel string
}

// NumberFormat is an explicit numeric-parsing configuration. It replaces
// ambient locale state so concurrent extractions cannot race on a shared
// formatting context.
type NumberFormat struct {
	DecimalSep rune
	GroupSep   rune
}

// DefaultFormat parses en-US style numbers like "1,234.56".
func DefaultFormat() NumberFormat {
	return NumberFormat{DecimalSep: '.', GroupSep: ','}
}

// Parse converts a raw string under this format and rule into a decimal.
func (nf NumberFormat) Parse(raw string, rule Rule) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if rule == Percent {
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}
	if nf.GroupSep != 0 {
		s = strings.ReplaceAll(s, string(nf.GroupSep), "")
	}
	if nf.DecimalSep != 0 && nf.DecimalSep != '.' {
		s = strings.ReplaceAll(s, string(nf.DecimalSep), ".")
	}
	return decimal.NewFromString(s)
}

// FieldNotFoundError reports a descriptor whose locator matched nothing:
// the upstream layout has changed.
type FieldNotFoundError struct {
	Field string
	Path  string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("field %q not found at %q", e.Field, e.Path)
}

// FieldParseError reports a located, non-sentinel value that the parse
// rule could not handle.
type FieldParseError struct {
	Field string
	Raw   string
	Err   error
}

func (e *FieldParseError) Error() string {
	return fmt.Sprintf("field %q: cannot parse %q: %v", e.Field, e.Raw, e.Err)
}

func (e *FieldParseError) Unwrap() error { return e.Err }

// Extract runs every descriptor against the document and fails on the
// first structural or parse error. Sentinel values are omitted from the
// result without error.
func Extract(doc any, descs []FieldDescriptor, nf NumberFormat) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(descs))
	for _, d := range descs {
		val, ok, err := extractOne(doc, d, nf)
		if err != nil {
			return nil, err
		}
		if ok {
			out[d.Field] = val
		}
	}
	return out, nil
}

// ExtractPartial runs every descriptor and isolates per-field failures:
// fields that extracted cleanly are returned alongside the errors of those
// that did not.
func ExtractPartial(doc any, descs []FieldDescriptor, nf NumberFormat) (map[string]decimal.Decimal, []error) {
	out := make(map[string]decimal.Decimal, len(descs))
	var errs []error
	for _, d := range descs {
		val, ok, err := extractOne(doc, d, nf)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			out[d.Field] = val
		}
	}
	return out, errs
}

func extractOne(doc any, d FieldDescriptor, nf NumberFormat) (decimal.Decimal, bool, error) {
	jval, err := jsonpath.Get(d.Path, doc)
	if err != nil {
		return decimal.Decimal{}, false, &FieldNotFoundError{Field: d.Field, Path: d.Path}
	}
	// jsonpath is never clear about whether it returns a list of one
	// answer or a single answer; keep the first one if any.
	if list, ok := jval.([]any); ok {
		if len(list) == 0 {
			return decimal.Decimal{}, false, &FieldNotFoundError{Field: d.Field, Path: d.Path}
		}
		jval = list[0]
	}
	raw, err := stringify(jval)
	if err != nil {
		return decimal.Decimal{}, false, &FieldParseError{Field: d.Field, Raw: fmt.Sprint(jval), Err: err}
	}
	raw = strings.TrimSpace(raw)
	if d.Sentinel != "" && raw == d.Sentinel {
		return decimal.Decimal{}, false, nil
	}
	val, err := nf.Parse(raw, d.Rule)
	if err != nil {
		return decimal.Decimal{}, false, &FieldParseError{Field: d.Field, Raw: raw, Err: err}
	}
	return val, true, nil
}

func stringify(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case nil:
		return "", fmt.Errorf("value is null")
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
