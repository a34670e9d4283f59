// Package match implements the per-field matcher primitives a Match
// selector case key compiles to: exact string equality, a tuple
// treated as a disjunction (regex alternation), a wildcard, and
// decimal inequalities.
package match

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/stsci-crds/crds-go/internal/value"
)

// Status is the three-valued result of testing one field's matcher
// against a header value: exact match, don't-care, or no match.
type Status int

const (
	// NoMatch means the field matcher rejected the value outright.
	NoMatch Status = -1
	// Wildcard means the field matcher doesn't constrain the value.
	Wildcard Status = 0
	// Exact means the field matcher matched the value precisely.
	Exact Status = 1
)

// Matcher tests a single field of a Match case key against a header
// value and reports Exact, Wildcard, or NoMatch.
type Matcher interface {
	Test(headerValue string) Status
	// String renders the matcher's original key form, used in
	// diagnostics and in re-deriving validation value sets.
	String() string
}

type exactMatcher struct{ value string }

func (m exactMatcher) Test(v string) Status {
	if value.EqualFold(m.value, v) {
		return Exact
	}
	return NoMatch
}
func (m exactMatcher) String() string { return m.value }

type wildcardMatcher struct{}

func (wildcardMatcher) Test(string) Status { return Wildcard }
func (wildcardMatcher) String() string     { return "*" }

type alternationMatcher struct {
	alts []string
	re   *regexp.Regexp
}

func (m alternationMatcher) Test(v string) Status {
	if m.re.MatchString(v) {
		return Exact
	}
	return NoMatch
}
func (m alternationMatcher) String() string { return "(" + strings.Join(m.alts, "|") + ")" }

type inequalityMatcher struct {
	op  string
	lit float64
	raw string
}

func (m inequalityMatcher) Test(v string) Status {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return NoMatch
	}
	var ok bool
	switch m.op {
	case "<":
		ok = f < m.lit
	case "<=":
		ok = f <= m.lit
	case ">":
		ok = f > m.lit
	case ">=":
		ok = f >= m.lit
	}
	if ok {
		return Exact
	}
	return NoMatch
}
func (m inequalityMatcher) String() string { return m.raw }

var inequalityPrefixes = []string{"<=", ">=", "<", ">"}

// Compile builds the Matcher a single field key compiles to. key may
// be a plain string, a tuple of alternatives (pass as []string), or a
// string beginning with an inequality operator.
func Compile(key any) (Matcher, error) {
	switch k := key.(type) {
	case []string:
		if len(k) == 1 {
			return Compile(k[0])
		}
		return compileAlternation(k)
	case string:
		if k == "*" {
			return wildcardMatcher{}, nil
		}
		for _, op := range inequalityPrefixes {
			if strings.HasPrefix(k, op) {
				litStr := strings.TrimSpace(strings.TrimPrefix(k, op))
				lit, err := strconv.ParseFloat(litStr, 64)
				if err != nil {
					// Not actually an inequality (e.g. a filename
					// that happens to start with '<'); fall through
					// to exact match.
					break
				}
				return inequalityMatcher{op: op, lit: lit, raw: k}, nil
			}
		}
		return exactMatcher{value: k}, nil
	default:
		return nil, fmt.Errorf("match: unsupported field key type %T", key)
	}
}

func compileAlternation(alts []string) (Matcher, error) {
	escaped := make([]string, len(alts))
	for i, a := range alts {
		escaped[i] = regexp.QuoteMeta(a)
	}
	pattern := "^(?i:" + strings.Join(escaped, "|") + ")$"
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("match: bad alternation %v: %w", alts, err)
	}
	return alternationMatcher{alts: alts, re: re}, nil
}

// IsWildcardKey reports whether a raw case-key field literal is the
// wildcard sentinel, used by validation to exempt '*' fields from
// value-set checks.
func IsWildcardKey(key any) bool {
	s, ok := key.(string)
	return ok && s == "*"
}
