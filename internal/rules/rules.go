// Package rules defines the declarative per-column coercion rule table used by
// the bulk-load pipeline.
//
// Each destination column has exactly one Rule describing how a raw staging
// value (always text) is validated and converted into a typed value. A value
// that fails its rule becomes NULL in the promoted row; rules never reject a
// whole row.
//
// The same table drives two consumers:
//
//   - internal/sqlgen renders the promote INSERT..SELECT and the bad-row
//     sample statement from it, and
//   - Rule.Coerce evaluates the identical semantics in-process, which the
//     tests and diagnostics rely on.
//
// Keeping both behind one table means schema changes are data edits here, not
// new statement code.
package rules

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Kind selects the validation/conversion policy applied to a column.
type Kind int

const (
	// Text is a trimmed passthrough; no validation.
	Text Kind = iota

	// Integer accepts unsigned digit strings only (no sign, no decimal
	// point) and converts to a 64-bit integer.
	Integer

	// Decimal accepts a decimal-number string and casts to a fixed
	// precision/scale. The accepted pattern is carried on the Rule because
	// some columns permit a sign and some do not.
	Decimal

	// Currency strips literal "$" and "," from the trimmed value and then
	// applies the Decimal policy.
	Currency

	// Date tries the format chain in fixed priority order; the first
	// matching format wins. Empty strings and the N/A sentinels are NULL.
	// A Date rule never errors.
	Date
)

// String returns the lower-case rule kind name used in logs and statements.
func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Decimal:
		return "decimal"
	case Currency:
		return "currency"
	case Date:
		return "date"
	default:
		return "text"
	}
}

// Validation patterns, shared between SQL generation (MySQL REGEXP) and the
// in-process evaluator. They are deliberately subsets of both regexp dialects
// so one literal serves both.
const (
	// PatternInteger matches unsigned digit strings.
	PatternInteger = `^[0-9]+$`

	// PatternDecimal matches unsigned decimal numbers ("12", "12.5").
	PatternDecimal = `^[0-9]+(\.[0-9]+)?$`

	// PatternSignedDecimal matches optionally signed decimal numbers,
	// including forms with a bare leading dot (".5", "-73.98").
	PatternSignedDecimal = `^[-+]?[0-9]*\.?[0-9]+$`
)

// DateFormat pairs a gating pattern with the equivalent MySQL and Go layouts.
// The pattern decides whether the format applies; the layouts perform the
// actual conversion on each side.
type DateFormat struct {
	Pattern string // anchored regexp the raw value must match
	MySQL   string // STR_TO_DATE format string
	Layout  string // equivalent Go time layout
}

// DateFormats is the fixed-priority date format chain: two-digit-year US
// dates first, then four-digit-year US dates, then ISO dates. First match
// wins; order changes here change promote semantics.
var DateFormats = []DateFormat{
	{Pattern: `^[0-9]{1,2}/[0-9]{1,2}/[0-9]{2}$`, MySQL: `%m/%d/%y`, Layout: "1/2/06"},
	{Pattern: `^[0-9]{1,2}/[0-9]{1,2}/[0-9]{4}$`, MySQL: `%m/%d/%Y`, Layout: "1/2/2006"},
	{Pattern: `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`, MySQL: `%Y-%m-%d`, Layout: "2006-01-02"},
}

// dateSentinels are the case-insensitive raw values treated as NULL by Date
// rules, in addition to the empty string.
var dateSentinels = map[string]bool{"N/A": true, "NA": true, "NULL": true}

// Rule describes the validation pattern and conversion policy for one column.
type Rule struct {
	// Name is the column name, identical in staging and target relations.
	Name string

	// Kind selects the conversion policy.
	Kind Kind

	// Pattern is the validation regexp for Integer, Decimal and Currency
	// kinds. Text and Date rules leave it empty.
	Pattern string

	// Precision and Scale apply to Decimal and Currency kinds and select
	// the CAST target, e.g. DECIMAL(10,2).
	Precision int
	Scale     int

	// Formats is the date format chain for Date kinds. Nil means
	// DateFormats.
	Formats []DateFormat
}

// Table is an ordered coercion rule set plus the columns the bad-row sample
// projects. Rule order defines staging column order; the two must never
// diverge.
type Table struct {
	Rules []Rule

	// IDColumn identifies a row in diagnostic output.
	IDColumn string

	// NumericIDColumn and CurrencyColumn are the two historically
	// failure-prone columns the bad-row sample inspects.
	NumericIDColumn string
	CurrencyColumn  string
}

// Columns returns the column names in table order.
func (t Table) Columns() []string {
	cols := make([]string, len(t.Rules))
	for i, r := range t.Rules {
		cols[i] = r.Name
	}
	return cols
}

// Find returns the rule for the named column, or false when absent.
func (t Table) Find(name string) (Rule, bool) {
	for _, r := range t.Rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// formats returns the rule's date format chain, defaulting to DateFormats.
func (r Rule) formats() []DateFormat {
	if r.Formats != nil {
		return r.Formats
	}
	return DateFormats
}

// Coerce applies the rule to a raw staging value and returns the typed value,
// or nil when the value fails validation. The result types are:
//
//	Text     string
//	Integer  int64
//	Decimal  float64
//	Currency float64
//	Date     time.Time (UTC, midnight)
//
// Semantics mirror the generated SQL expressions exactly; tests compare the
// two surfaces through this function.
func (r Rule) Coerce(raw string) any {
	v := strings.TrimSpace(raw)

	switch r.Kind {
	case Integer:
		if !matchPattern(PatternInteger, v) {
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil
		}
		return n

	case Decimal:
		return coerceDecimal(v, r.decimalPattern())

	case Currency:
		v = strings.ReplaceAll(v, "$", "")
		v = strings.ReplaceAll(v, ",", "")
		return coerceDecimal(v, r.decimalPattern())

	case Date:
		if v == "" || dateSentinels[strings.ToUpper(v)] {
			return nil
		}
		for _, f := range r.formats() {
			if !matchPattern(f.Pattern, v) {
				continue
			}
			d, err := time.ParseInLocation(f.Layout, v, time.UTC)
			if err != nil {
				return nil
			}
			return d
		}
		return nil

	default:
		return v
	}
}

// Valid reports whether the raw value passes the rule's validation pattern.
// For Date and Text rules every value is valid (both always produce a value
// or NULL without being considered a failure).
func (r Rule) Valid(raw string) bool {
	switch r.Kind {
	case Integer, Decimal, Currency:
		return r.Coerce(raw) != nil
	default:
		return true
	}
}

// decimalPattern returns the rule's validation pattern, defaulting to the
// unsigned decimal pattern.
func (r Rule) decimalPattern() string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return PatternDecimal
}

func coerceDecimal(v, pattern string) any {
	if !matchPattern(pattern, v) {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return f
}

var (
	patternCacheMu sync.Mutex
	patternCache   = map[string]*regexp.Regexp{}
)

// matchPattern compiles (with caching) and applies an anchored pattern. The
// table's patterns are fixed literals, so compilation failures are programmer
// errors and treated as non-matches.
func matchPattern(pattern, v string) bool {
	patternCacheMu.Lock()
	re, ok := patternCache[pattern]
	if !ok {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			patternCacheMu.Unlock()
			return false
		}
		patternCache[pattern] = re
	}
	patternCacheMu.Unlock()
	return re.MatchString(v)
}
