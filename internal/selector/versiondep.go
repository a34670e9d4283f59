package selector

import (
	"github.com/stsci-crds/crds-go/internal/crdserrors"
	"github.com/stsci-crds/crds-go/internal/value"
	"github.com/stsci-crds/crds-go/internal/version"
)

// SWVersionParameter is the fixed header parameter VersionDep reads.
const SWVersionParameter = "sw_version"

// VersionDep chooses the first relation, in ascending order, that the
// query's bare software version satisfies; "default" always terminates
// the scan.
type VersionDep struct {
	relations []version.Relation
	raw       []string
	kids      []Child
	label     string
}

// NewVersionDep parses and totally orders its case keys.
func NewVersionDep(rawKeys []string, children []Child) (*VersionDep, error) {
	if len(rawKeys) != len(children) {
		return nil, &crdserrors.FormatError{Message: "version_dep key/value count mismatch"}
	}
	type entry struct {
		r version.Relation
		raw string
		c   Child
	}
	entries := make([]entry, len(rawKeys))
	for i, rk := range rawKeys {
		r, err := version.Parse(rk)
		if err != nil {
			return nil, &crdserrors.FormatError{Message: err.Error()}
		}
		entries[i] = entry{r: r, raw: rk, c: children[i]}
	}
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && version.Less(entries[j].r, entries[j-1].r); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}

	vd := &VersionDep{}
	for _, e := range entries {
		vd.relations = append(vd.relations, e.r)
		vd.raw = append(vd.raw, e.raw)
		vd.kids = append(vd.kids, e.c)
	}
	return vd, nil
}

func (vd *VersionDep) SetLabel(label string) { vd.label = label }

func (vd *VersionDep) Parameters() []string { return []string{SWVersionParameter} }

func (vd *VersionDep) ReferenceNames() []string {
	var out []string
	for _, c := range vd.kids {
		out = append(out, childReferenceNames(c)...)
	}
	return dedupe(out)
}

func (vd *VersionDep) Keys() []string { return append([]string(nil), vd.raw...) }

func (vd *VersionDep) Children() []Node { return nodesOf(vd.kids) }

func (vd *VersionDep) Choose(hdr value.Header) (any, error) {
	bare, err := version.ParseBare(hdr.Get(SWVersionParameter))
	if err != nil {
		return nil, err
	}
	for i, r := range vd.relations {
		if version.Satisfies(r, bare) {
			return resolveChild(vd.kids[i], hdr)
		}
	}
	return nil, &crdserrors.MatchingError{Selector: vd.label, Detail: "no version relation satisfied"}
}

var _ Node = (*VersionDep)(nil)
