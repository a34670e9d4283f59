package parser

// Value is the evaluated form of any literal expression the grammar
// accepts: a string, a float64, a *Tuple, a *Dict, or a *Call (only
// legal as the selector assignment's value or nested inside one).
type Value any

// Tuple is an ordered, literal-only tuple, e.g. ('1.0', '*'), the flat
// parkey ('INSTRUME',) or the per-level parkey tuple-of-tuples
// (('DETECTOR',), ('DATE-OBS',)). Elements are strings, float64,
// or nested *Tuple — never a *Dict or *Call.
type Tuple struct {
	Elements []Value
}

// Dict is an ordered key/value literal mapping. Order is preserved
// because selector case tables are order-sensitive for diagnostics
// even though choose() itself only depends on order within a tied
// weight group, which the matching algorithm resolves by always failing
// such a tie rather than picking one by position.
type Dict struct {
	Keys   []Value
	Values []Value
}

// Get returns the value paired with a string key, used for header
// field lookups ('header', 'selector', 'mapping', 'parkey', ...).
func (d *Dict) Get(key string) (Value, bool) {
	for i, k := range d.Keys {
		if s, ok := k.(string); ok && s == key {
			return d.Values[i], true
		}
	}
	return nil, false
}

// Call is a registered selector constructor invocation, e.g.
// Match({...}) or UseAfter({...}). Constructors wrap their argument
// as a deferred node: no selector logic runs here, only at the
// mapping loader's instantiation pass.
type Call struct {
	Name string
	Arg  Value
	Line int
}

// registeredConstructors is the static dispatch table of selector
// constructor names the grammar accepts as a call target. An
// unrecognized name is a FormatError, never a runtime lookup failure.
var registeredConstructors = map[string]bool{
	"Match":                 true,
	"UseAfter":              true,
	"ClosestTime":           true,
	"ClosestGeometricRatio": true,
	"LinearInterpolation":   true,
	"VersionDep":            true,
}
