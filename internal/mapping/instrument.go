package mapping

import (
	"fmt"

	"github.com/stsci-crds/crds-go/internal/crdserrors"
	"github.com/stsci-crds/crds-go/internal/parser"
)

// ReftypeEntry is one (reftype -> (extension, rmap_basename)) binding
// of an Instrument's selector.
type ReftypeEntry struct {
	Reftype   string
	Extension string
	Basename  string
	Mapping   *Reference
}

// Instrument is the middle tier (a *.imap).
type Instrument struct {
	Filename string
	Header   Header
	Entries  []ReftypeEntry
}

// LoadInstrument parses and validates a *.imap file's content,
// recursively loading each reference mapping through loadChild.
func LoadInstrument(basename, content string, bypassChecksum bool, loadChild func(basename string) (*Reference, error)) (*Instrument, error) {
	f, err := parser.Parse(basename, content)
	if err != nil {
		return nil, err
	}
	header, err := parseCommonHeader(basename, f.Header, TierInstrument)
	if err != nil {
		return nil, err
	}
	instrument, err := requireString(basename, f.Header, "instrument")
	if err != nil {
		return nil, err
	}
	header.Instrument = instrument
	if !bypassChecksum {
		if err := VerifyChecksum(basename, content, header.Sha1sum); err != nil {
			return nil, err
		}
	}

	d, ok := f.Selector.(*parser.Dict)
	if !ok {
		return nil, &crdserrors.FormatError{File: basename, Message: "instrument 'selector' must be a dict literal {reftype: (extension, rmap_basename)}"}
	}

	inst := &Instrument{Filename: basename, Header: header}
	for i, k := range d.Keys {
		reftype, ok := k.(string)
		if !ok {
			return nil, &crdserrors.FormatError{File: basename, Message: "instrument selector keys must be reftype strings"}
		}
		tuple, ok := d.Values[i].(*parser.Tuple)
		if !ok || len(tuple.Elements) != 2 {
			return nil, &crdserrors.FormatError{File: basename, Message: fmt.Sprintf("instrument selector[%s] must be an (extension, rmap_basename) tuple", reftype)}
		}
		extension, ok1 := tuple.Elements[0].(string)
		childBasename, ok2 := tuple.Elements[1].(string)
		if !ok1 || !ok2 {
			return nil, &crdserrors.FormatError{File: basename, Message: fmt.Sprintf("instrument selector[%s] tuple elements must be strings", reftype)}
		}
		child, err := loadChild(childBasename)
		if err != nil {
			return nil, err
		}
		if child.Header.Instrument != "" && child.Header.Instrument != instrument {
			return nil, &crdserrors.FormatError{File: basename,
				Message: fmt.Sprintf("reference mapping %q declares instrument %q, expected %q", childBasename, child.Header.Instrument, instrument)}
		}
		if child.Header.Reftype != "" && child.Header.Reftype != reftype {
			return nil, &crdserrors.FormatError{File: basename,
				Message: fmt.Sprintf("reference mapping %q declares reftype %q, expected %q", childBasename, child.Header.Reftype, reftype)}
		}
		inst.Entries = append(inst.Entries, ReftypeEntry{Reftype: reftype, Extension: extension, Basename: childBasename, Mapping: child})
	}
	return inst, nil
}

// MappingNames returns self plus every reference mapping basename.
func (i *Instrument) MappingNames() []string {
	out := []string{i.Filename}
	for _, e := range i.Entries {
		out = append(out, e.Mapping.Filename)
	}
	return out
}

// ReferenceNames returns every terminal reference basename reachable
// through the instrument's reference mappings.
func (i *Instrument) ReferenceNames() []string {
	var out []string
	for _, e := range i.Entries {
		out = append(out, e.Mapping.ReferenceNames()...)
	}
	return dedupeStrings(out)
}

// ReferenceNameMap groups reference names by reftype, per
// original_source/lib/rmap.py's InstrumentContext.reference_name_map().
func (i *Instrument) ReferenceNameMap() map[string][]string {
	out := make(map[string][]string, len(i.Entries))
	for _, e := range i.Entries {
		out[e.Reftype] = e.Mapping.ReferenceNames()
	}
	return out
}

// MissingMappings reports reference-mapping basenames exists reports
// as absent.
func (i *Instrument) MissingMappings(exists func(basename string) bool) []string {
	var out []string
	for _, e := range i.Entries {
		if !exists(e.Basename) {
			out = append(out, e.Basename)
		}
	}
	return out
}
