package selector

import (
	"sort"
	"strconv"
	"strings"

	"github.com/stsci-crds/crds-go/internal/crdserrors"
	"github.com/stsci-crds/crds-go/internal/match"
	"github.com/stsci-crds/crds-go/internal/value"
)

// FieldKey is one field of a raw, pre-compile Match case key: either a
// plain string, a []string disjunction tuple, or the wildcard "*".
// Inequality operators arrive as plain strings and are recognized by
// match.Compile.
type FieldKey any

// CaseEntry is one (key, child) pair of a Match node's case table, in
// file order. File order is preserved (rather than a Go map) because
// the safe parser reads the mapping file's dict literal sequentially
// and nothing guarantees this order is insignificant at the
// validation layer, even though choose() itself is order-independent
// except within a tied weight group.
type CaseEntry struct {
	Key   []FieldKey
	Child Child
}

// Substitution rewrites case keys at load time: for a given parkey,
// any field whose current value equals "From" is replaced with "To"
// before matcher compilation ("Substitutions").
type Substitution struct {
	Parkey string
	From   string
	To     string
}

// Match is the winnow, rank, yield selector over an
// ordered parameter list where each parameter may be optional (a
// leading '*' in its name, stripped here into the parallel Optional
// slice).
type Match struct {
	names    []string // parameter names, '*' prefix stripped
	optional []bool
	cases    []compiledCase
	declared map[string]map[string]bool // parameter -> declared values (for BadValueError); nil entries mean "no declared set, skip check"
	label    string                     // for diagnostics (reftype/basename), set by the loader
}

type compiledCase struct {
	rawKey   []FieldKey
	matchers []match.Matcher
	child    Child
}

// NewMatch compiles parameters and cases into a Match node. parameters
// entries beginning with '*' are optional. substitutions are applied
// to case keys before matcher compilation. declared, if non-nil, maps
// a parameter name to its allowed value set for BadValueError checks;
// a parameter absent from declared skips the check entirely.
func NewMatch(parameters []string, cases []CaseEntry, subs []Substitution, declared map[string]map[string]bool) (*Match, error) {
	names := make([]string, len(parameters))
	optional := make([]bool, len(parameters))
	for i, p := range parameters {
		if strings.HasPrefix(p, "*") {
			names[i] = strings.TrimPrefix(p, "*")
			optional[i] = true
		} else {
			names[i] = p
		}
	}

	m := &Match{names: names, optional: optional, declared: declared}

	for _, ce := range cases {
		key := ce.Key
		if len(key) != len(names) {
			return nil, &crdserrors.FormatError{Message: "match case key arity does not match parameter count"}
		}
		key = applySubstitutions(names, key, subs)
		matchers := make([]match.Matcher, len(key))
		for i, fk := range key {
			mm, err := match.Compile(fk)
			if err != nil {
				return nil, err
			}
			matchers[i] = mm
		}
		m.cases = append(m.cases, compiledCase{rawKey: key, matchers: matchers, child: ce.Child})
	}
	return m, nil
}

// SetLabel attaches a diagnostic label (e.g. the owning rmap basename)
// used in error messages; purely cosmetic.
func (m *Match) SetLabel(label string) { m.label = label }

func applySubstitutions(names []string, key []FieldKey, subs []Substitution) []FieldKey {
	if len(subs) == 0 {
		return key
	}
	out := make([]FieldKey, len(key))
	copy(out, key)
	for i, name := range names {
		s, ok := out[i].(string)
		if !ok {
			continue
		}
		for _, sub := range subs {
			if sub.Parkey == name && s == sub.From {
				out[i] = sub.To
			}
		}
	}
	return out
}

// Parameters implements Node.
func (m *Match) Parameters() []string { return append([]string(nil), m.names...) }

// ReferenceNames implements Node.
func (m *Match) ReferenceNames() []string {
	var out []string
	for _, c := range m.cases {
		out = append(out, childReferenceNames(c.child)...)
	}
	return dedupe(out)
}

// Children implements Node.
func (m *Match) Children() []Node {
	kids := make([]Child, len(m.cases))
	for i, c := range m.cases {
		kids[i] = c.child
	}
	return nodesOf(kids)
}

// Keys implements Node.
func (m *Match) Keys() []string {
	out := make([]string, len(m.cases))
	for i, c := range m.cases {
		parts := make([]string, len(c.matchers))
		for j, mm := range c.matchers {
			parts[j] = mm.String()
		}
		out[i] = "(" + strings.Join(parts, ", ") + ")"
	}
	return out
}

// validateParameters implements the pre-winnow parameter
// validation: a missing required parameter is fatal, as is a value
// not among the parameter's declared set when no wildcard exists.
func (m *Match) validateParameters(hdr value.Header) error {
	for i, name := range m.names {
		if !hdr.Has(name) {
			if !m.optional[i] {
				return &crdserrors.MissingParameterError{Parameter: name}
			}
			continue
		}
		allowed, hasDeclared := m.declared[name]
		if !hasDeclared {
			continue
		}
		v := hdr.Get(name)
		if allowed[v] {
			continue
		}
		if m.hasWildcardOnParameter(i) {
			continue
		}
		return &crdserrors.BadValueError{Parameter: name, Value: v}
	}
	return nil
}

// ValidateKeys implements the Match-specific _validate_key check:
// every case's field value must appear in the parameter's declared set,
// with exemptions for the wildcard, "NOT PRESENT", decimal-trailing-zero
// forms ("1.0" matching "1"), range specs ("lo:hi"), and inequality
// keys (which are not literal values to look up); each alternative of an
// alternation key is checked against the declared set on its own. valid maps
// a parameter name to its declared value set; a parameter absent from
// valid is reported once as a warning rather than an error (missing TPN
// data is non-fatal). Substitutions have already been applied to case
// keys at construction time, so no separate exemption is needed for them.
func (m *Match) ValidateKeys(valid map[string]map[string]bool) (errs []error, warnings []string) {
	warned := map[string]bool{}
	for _, c := range m.cases {
		if len(c.rawKey) != len(m.names) {
			errs = append(errs, &crdserrors.FormatError{Message: "match case key arity does not match parameter count"})
			continue
		}
		for i, name := range m.names {
			allowed, ok := valid[name]
			if !ok {
				if !warned[name] {
					warned[name] = true
					warnings = append(warnings, "no declared values for parameter "+name+"; skipping validation")
				}
				continue
			}
			if err := validateFieldValue(name, c.rawKey[i], allowed); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs, warnings
}

func validateFieldValue(param string, raw FieldKey, allowed map[string]bool) error {
	switch v := raw.(type) {
	case string:
		if validateScalarValue(v, allowed) {
			return nil
		}
		return &crdserrors.BadValueError{Parameter: param, Value: v}
	case []string:
		for _, alt := range v {
			if !validateScalarValue(alt, allowed) {
				return &crdserrors.BadValueError{Parameter: param, Value: alt}
			}
		}
		return nil
	default:
		return nil
	}
}

// validateScalarValue reports whether v is acceptable for a declared
// value set: the wildcard, "NOT PRESENT", an exact member, a
// decimal-trailing-zero equivalent member, a range spec "lo:hi", or an
// inequality-prefixed expression (none of which name a literal value).
func validateScalarValue(v string, allowed map[string]bool) bool {
	if v == "*" || v == value.NotPresent {
		return true
	}
	if allowed[v] {
		return true
	}
	if strings.Contains(v, ":") {
		return true
	}
	for _, prefix := range []string{"<=", ">=", "<", ">"} {
		if strings.HasPrefix(v, prefix) {
			return true
		}
	}
	return trailingZeroMatch(v, allowed)
}

func trailingZeroMatch(v string, allowed map[string]bool) bool {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return false
	}
	for candidate := range allowed {
		cf, err := strconv.ParseFloat(candidate, 64)
		if err == nil && cf == f {
			return true
		}
	}
	return false
}

func (m *Match) hasWildcardOnParameter(paramIdx int) bool {
	for _, c := range m.cases {
		if c.matchers[paramIdx].String() == "*" {
			return true
		}
	}
	return false
}

type rankedCase struct {
	weight int
	idx    int
}

// Choose implements the winnow/rank/yield algorithm.
func (m *Match) Choose(hdr value.Header) (any, error) {
	if err := m.validateParameters(hdr); err != nil {
		return nil, err
	}

	live := make([]bool, len(m.cases))
	weight := make([]int, len(m.cases))
	for i := range m.cases {
		live[i] = true
	}

	for p, name := range m.names {
		hv := hdr.Get(name)
		if m.optional[p] && hv == value.NotPresent {
			// An absent optional parameter is don't-care, not a
			// mismatch: it must not penalize a case just because that
			// case names this field explicitly instead of wildcarding
			// it.
			continue
		}
		for i, c := range m.cases {
			if !live[i] {
				continue
			}
			status := c.matchers[p].Test(hv)
			if status == match.NoMatch {
				if !m.optional[p] {
					live[i] = false
					continue
				}
				weight[i] += -int(status)
				continue
			}
			weight[i] += -int(status)
		}
	}

	var ranked []rankedCase
	for i, ok := range live {
		if ok {
			ranked = append(ranked, rankedCase{weight: weight[i], idx: i})
		}
	}
	if len(ranked) == 0 {
		return nil, &crdserrors.MatchingError{Selector: m.label, Detail: "no case survived winnowing"}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].weight < ranked[j].weight })

	i := 0
	for i < len(ranked) {
		j := i
		for j < len(ranked) && ranked[j].weight == ranked[i].weight {
			j++
		}
		group := ranked[i:j]
		if len(group) > 1 {
			return nil, &crdserrors.AmbiguousMatchError{Selector: m.label, Weight: group[0].weight, Count: len(group)}
		}
		c := m.cases[group[0].idx]
		result, err := resolveChild(c.child, hdr)
		if err == nil {
			return result, nil
		}
		if _, ok := crdserrors.AsLookupError(err); ok {
			i = j
			continue
		}
		return nil, err
	}
	return nil, &crdserrors.MatchingError{Selector: m.label, Detail: "every candidate group failed"}
}

var _ Node = (*Match)(nil)
