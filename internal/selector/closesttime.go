package selector

import (
	"math"
	"sort"

	"github.com/stsci-crds/crds-go/internal/crdserrors"
	"github.com/stsci-crds/crds-go/internal/timeutil"
	"github.com/stsci-crds/crds-go/internal/value"
)

// ClosestTime chooses the child whose datetime key minimizes the
// absolute delta, in seconds, to the query datetime.
type ClosestTime struct {
	param string
	keys  []string // original text, ascending by parsed time
	times []int64  // unix seconds, same order as keys
	kids  []Child
	label string
}

// NewClosestTime parses and sorts cases by time ascending.
func NewClosestTime(param string, rawKeys []string, children []Child) (*ClosestTime, error) {
	if len(rawKeys) != len(children) {
		return nil, &crdserrors.FormatError{Message: "closest_time key/value count mismatch"}
	}
	type entry struct {
		raw string
		t   int64
		c   Child
	}
	entries := make([]entry, len(rawKeys))
	for i, rk := range rawKeys {
		t, err := timeutil.Parse(rk)
		if err != nil {
			return nil, &crdserrors.FormatError{Message: "closest_time key " + rk + ": " + err.Error()}
		}
		entries[i] = entry{raw: rk, t: t.Unix(), c: children[i]}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].t < entries[j].t })

	ct := &ClosestTime{param: param}
	for _, e := range entries {
		ct.keys = append(ct.keys, e.raw)
		ct.times = append(ct.times, e.t)
		ct.kids = append(ct.kids, e.c)
	}
	return ct, nil
}

func (ct *ClosestTime) SetLabel(label string) { ct.label = label }

func (ct *ClosestTime) Parameters() []string { return []string{ct.param} }

func (ct *ClosestTime) ReferenceNames() []string {
	var out []string
	for _, c := range ct.kids {
		out = append(out, childReferenceNames(c)...)
	}
	return dedupe(out)
}

func (ct *ClosestTime) Keys() []string { return append([]string(nil), ct.keys...) }

func (ct *ClosestTime) Children() []Node { return nodesOf(ct.kids) }

func (ct *ClosestTime) Choose(hdr value.Header) (any, error) {
	q, err := timeutil.Parse(hdr.Get(ct.param))
	if err != nil {
		return nil, err
	}
	if len(ct.times) == 0 {
		return nil, &crdserrors.MatchingError{Selector: ct.label, Detail: "closest_time has no keys"}
	}
	qu := q.Unix()
	best := 0
	bestDelta := int64(math.MaxInt64)
	for i, t := range ct.times {
		d := t - qu
		if d < 0 {
			d = -d
		}
		if d < bestDelta {
			bestDelta = d
			best = i
		}
	}
	return resolveChild(ct.kids[best], hdr)
}

var _ Node = (*ClosestTime)(nil)
