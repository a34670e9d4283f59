package selector

import (
	"sort"
	"strconv"

	"github.com/stsci-crds/crds-go/internal/crdserrors"
	"github.com/stsci-crds/crds-go/internal/value"
)

// LinearInterpolation's terminals are always themselves: unlike every
// other variant it never nests a selector under a case (a terminal is
// always the pair of strings returned), so its children are plain
// strings rather than Child.
type LinearInterpolation struct {
	param string
	keys  []float64
	kids  []string
	label string
}

// NewLinearInterpolation parses and sorts cases by key ascending.
func NewLinearInterpolation(param string, rawKeys []string, terminals []string) (*LinearInterpolation, error) {
	if len(rawKeys) != len(terminals) {
		return nil, &crdserrors.FormatError{Message: "linear_interpolation key/value count mismatch"}
	}
	type entry struct {
		f float64
		t string
	}
	entries := make([]entry, len(rawKeys))
	for i, rk := range rawKeys {
		f, err := strconv.ParseFloat(rk, 64)
		if err != nil {
			return nil, &crdserrors.FormatError{Message: "linear_interpolation key " + rk + " is not numeric"}
		}
		entries[i] = entry{f: f, t: terminals[i]}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].f < entries[j].f })

	li := &LinearInterpolation{param: param}
	for _, e := range entries {
		li.keys = append(li.keys, e.f)
		li.kids = append(li.kids, e.t)
	}
	return li, nil
}

func (li *LinearInterpolation) SetLabel(label string) { li.label = label }

func (li *LinearInterpolation) Parameters() []string { return []string{li.param} }

func (li *LinearInterpolation) ReferenceNames() []string { return dedupe(append([]string(nil), li.kids...)) }

// Children implements Node; LinearInterpolation never nests another
// selector: its terminal is always the literal pair.
func (li *LinearInterpolation) Children() []Node { return nil }

func (li *LinearInterpolation) Keys() []string {
	out := make([]string, len(li.keys))
	for i, k := range li.keys {
		out[i] = strconv.FormatFloat(k, 'g', -1, 64)
	}
	return out
}

// Choose returns the bracketing pair: the first key >= the
// query determines the upper bound; if it equals the query, or sits at
// either end of the table, the pair collapses to (key, key).
func (li *LinearInterpolation) Choose(hdr value.Header) (any, error) {
	q, err := hdr.Float(li.param)
	if err != nil {
		return nil, err
	}
	if len(li.keys) == 0 {
		return nil, &crdserrors.MatchingError{Selector: li.label, Detail: "linear_interpolation has no keys"}
	}
	idx := sort.Search(len(li.keys), func(i int) bool { return li.keys[i] >= q })
	switch {
	case idx == len(li.keys):
		last := li.kids[len(li.kids)-1]
		return Pair{last, last}, nil
	case li.keys[idx] == q:
		return Pair{li.kids[idx], li.kids[idx]}, nil
	case idx == 0:
		first := li.kids[0]
		return Pair{first, first}, nil
	default:
		return Pair{li.kids[idx-1], li.kids[idx]}, nil
	}
}

var _ Node = (*LinearInterpolation)(nil)
