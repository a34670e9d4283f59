package mapping

import (
	"github.com/stsci-crds/crds-go/internal/parser"
	"github.com/stsci-crds/crds-go/internal/selector"
	"github.com/stsci-crds/crds-go/internal/value"
)

// Reference is the leaf tier (a *.rmap): its selector is a selector
// tree root rather than a plain dict.
type Reference struct {
	Filename string
	Header   Header
	Root     selector.Node
}

// LoadReference parses and validates a *.rmap file's content and
// instantiates its selector tree. validValues, if non-nil, maps a
// parkey name to its declared set of allowed values; it is the
// already-resolved output of the external valid_values(instrument,
// reftype) collaborator the surrounding system provides.
func LoadReference(basename, content string, bypassChecksum bool, validValues map[string][]string) (*Reference, error) {
	f, err := parser.Parse(basename, content)
	if err != nil {
		return nil, err
	}
	header, err := parseCommonHeader(basename, f.Header, TierReference)
	if err != nil {
		return nil, err
	}
	instrument, err := requireString(basename, f.Header, "instrument")
	if err != nil {
		return nil, err
	}
	reftype, err := requireString(basename, f.Header, "reftype")
	if err != nil {
		return nil, err
	}
	header.Instrument = instrument
	header.Reftype = reftype
	if !bypassChecksum {
		if err := VerifyChecksum(basename, content, header.Sha1sum); err != nil {
			return nil, err
		}
	}

	declared := declaredSet(validValues)
	root, err := Instantiate(basename, f.Selector, header.Parkey, header.Substitutions, declared)
	if err != nil {
		return nil, err
	}

	return &Reference{Filename: basename, Header: header, Root: root}, nil
}

func declaredSet(validValues map[string][]string) map[string]map[string]bool {
	if validValues == nil {
		return nil
	}
	out := make(map[string]map[string]bool, len(validValues))
	for parkey, values := range validValues {
		set := make(map[string]bool, len(values))
		for _, v := range values {
			set[v] = true
		}
		out[parkey] = set
	}
	return out
}

// MappingNames implements the one-element closure of a leaf tier.
func (r *Reference) MappingNames() []string { return []string{r.Filename} }

// ReferenceNames returns every terminal basename the selector tree
// can return.
func (r *Reference) ReferenceNames() []string { return r.Root.ReferenceNames() }

// RequiredParameters returns every header parameter the selector tree
// reads.
func (r *Reference) RequiredParameters() []string { return selector.RequiredParameters(r.Root) }

// Choose evaluates the selector tree against hdr.
func (r *Reference) Choose(hdr value.Header) (any, error) { return r.Root.Choose(hdr) }
