package selector

import (
	"sort"

	"github.com/stsci-crds/crds-go/internal/crdserrors"
	"github.com/stsci-crds/crds-go/internal/timeutil"
	"github.com/stsci-crds/crds-go/internal/value"
)

// UseAfter picks the child keyed by the greatest use-after datetime
// that is less than or equal to the query datetime. Keys
// are normalized to timeutil.Canonical at construction time so lookup
// is a binary search over ascending, lexically-comparable strings.
type UseAfter struct {
	params []string // usually (DATE-OBS, TIME-OBS); joined with a space at query time
	keys   []string // normalized, ascending
	raw    []string // original key text, same order as keys
	kids   []Child
	label  string
}

// NewUseAfter normalizes and sorts cases by datetime key ascending.
func NewUseAfter(params []string, rawKeys []string, children []Child) (*UseAfter, error) {
	if len(rawKeys) != len(children) {
		return nil, &crdserrors.FormatError{Message: "use_after key/value count mismatch"}
	}
	type entry struct {
		norm, raw string
		child     Child
	}
	entries := make([]entry, len(rawKeys))
	for i, rk := range rawKeys {
		norm, err := timeutil.Normalize(rk)
		if err != nil {
			return nil, &crdserrors.FormatError{Message: "use_after key " + rk + ": " + err.Error()}
		}
		entries[i] = entry{norm: norm, raw: rk, child: children[i]}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].norm < entries[j].norm })

	u := &UseAfter{params: params}
	for _, e := range entries {
		u.keys = append(u.keys, e.norm)
		u.raw = append(u.raw, e.raw)
		u.kids = append(u.kids, e.child)
	}
	return u, nil
}

func (u *UseAfter) SetLabel(label string) { u.label = label }

func (u *UseAfter) Parameters() []string { return append([]string(nil), u.params...) }

func (u *UseAfter) ReferenceNames() []string {
	var out []string
	for _, c := range u.kids {
		out = append(out, childReferenceNames(c)...)
	}
	return dedupe(out)
}

func (u *UseAfter) Keys() []string { return append([]string(nil), u.raw...) }

func (u *UseAfter) Children() []Node { return nodesOf(u.kids) }

// Choose performs the binary search for the greatest key <= the joined
// query datetime and raises UseAfterError if none qualifies.
func (u *UseAfter) Choose(hdr value.Header) (any, error) {
	query := u.queryString(hdr)
	norm, err := timeutil.Normalize(query)
	if err != nil {
		return nil, err
	}
	// sort.Search finds the first index whose key is > norm; the
	// greatest key <= norm is the one just before it.
	idx := sort.Search(len(u.keys), func(i int) bool { return u.keys[i] > norm })
	if idx == 0 {
		return nil, &crdserrors.UseAfterError{Parameter: u.label, Query: norm}
	}
	return resolveChild(u.kids[idx-1], hdr)
}

func (u *UseAfter) queryString(hdr value.Header) string {
	if len(u.params) == 1 {
		return hdr.Get(u.params[0])
	}
	date := hdr.Get(u.params[0])
	clock := ""
	if len(u.params) > 1 {
		clock = hdr.Get(u.params[1])
	}
	return timeutil.Join(date, clock)
}

var _ Node = (*UseAfter)(nil)
