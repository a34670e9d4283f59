package selector

import (
	"math"
	"sort"
	"strconv"

	"github.com/stsci-crds/crds-go/internal/crdserrors"
	"github.com/stsci-crds/crds-go/internal/value"
)

// ClosestGeometricRatio chooses the child whose numeric key minimizes
// the absolute difference to the query value. The name notwithstanding,
// this is plain absolute distance on the real line, not a
// geometric-ratio computation; behavior is preserved as observed in
// the source this was distilled from. Ties resolve to the numerically
// smaller key, which falls out naturally from scanning keys in
// ascending order with a strict less-than.
type ClosestGeometricRatio struct {
	param string
	keys  []float64
	raw   []string
	kids  []Child
	label string
}

// NewClosestGeometricRatio parses and sorts cases by key ascending.
func NewClosestGeometricRatio(param string, rawKeys []string, children []Child) (*ClosestGeometricRatio, error) {
	if len(rawKeys) != len(children) {
		return nil, &crdserrors.FormatError{Message: "closest_geometric_ratio key/value count mismatch"}
	}
	type entry struct {
		f float64
		r string
		c Child
	}
	entries := make([]entry, len(rawKeys))
	for i, rk := range rawKeys {
		f, err := strconv.ParseFloat(rk, 64)
		if err != nil {
			return nil, &crdserrors.FormatError{Message: "closest_geometric_ratio key " + rk + " is not numeric"}
		}
		entries[i] = entry{f: f, r: rk, c: children[i]}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].f < entries[j].f })

	cgr := &ClosestGeometricRatio{param: param}
	for _, e := range entries {
		cgr.keys = append(cgr.keys, e.f)
		cgr.raw = append(cgr.raw, e.r)
		cgr.kids = append(cgr.kids, e.c)
	}
	return cgr, nil
}

func (cgr *ClosestGeometricRatio) SetLabel(label string) { cgr.label = label }

func (cgr *ClosestGeometricRatio) Parameters() []string { return []string{cgr.param} }

func (cgr *ClosestGeometricRatio) ReferenceNames() []string {
	var out []string
	for _, c := range cgr.kids {
		out = append(out, childReferenceNames(c)...)
	}
	return dedupe(out)
}

func (cgr *ClosestGeometricRatio) Keys() []string { return append([]string(nil), cgr.raw...) }

func (cgr *ClosestGeometricRatio) Children() []Node { return nodesOf(cgr.kids) }

func (cgr *ClosestGeometricRatio) Choose(hdr value.Header) (any, error) {
	q, err := hdr.Float(cgr.param)
	if err != nil {
		return nil, err
	}
	if len(cgr.keys) == 0 {
		return nil, &crdserrors.MatchingError{Selector: cgr.label, Detail: "closest_geometric_ratio has no keys"}
	}
	best := 0
	bestDelta := math.Abs(cgr.keys[0] - q)
	for i := 1; i < len(cgr.keys); i++ {
		d := math.Abs(cgr.keys[i] - q)
		if d < bestDelta {
			bestDelta = d
			best = i
		}
	}
	return resolveChild(cgr.kids[best], hdr)
}

var _ Node = (*ClosestGeometricRatio)(nil)
