package mapping

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stsci-crds/crds-go/internal/crdserrors"
	"github.com/stsci-crds/crds-go/internal/parser"
)

// InstrumentEntry is one (instrument name -> instrument mapping
// basename) binding of a Pipeline's selector, together with the
// already-loaded child ("Pipeline, whose selector
// is a plain dict {instrument -> imap_basename}").
type InstrumentEntry struct {
	Instrument string
	Basename   string
	Mapping    *Instrument
}

// Pipeline is the root tier (a *.pmap), identifying a full observatory
// configuration.
type Pipeline struct {
	Filename string
	Header   Header
	Entries  []InstrumentEntry
}

// LoadPipeline parses and validates a *.pmap file's content, recursively
// loading each instrument mapping through loadChild (normally backed
// by the process cache). bypassChecksum skips the
// sha1sum integrity check ("unless explicitly bypassed").
func LoadPipeline(basename, content string, bypassChecksum bool, loadChild func(basename string) (*Instrument, error)) (*Pipeline, error) {
	f, err := parser.Parse(basename, content)
	if err != nil {
		return nil, err
	}
	header, err := parseCommonHeader(basename, f.Header, TierPipeline)
	if err != nil {
		return nil, err
	}
	if !bypassChecksum {
		if err := VerifyChecksum(basename, content, header.Sha1sum); err != nil {
			return nil, err
		}
	}
	obs, _, _, _ := basenameParts(basename)
	if header.Observatory != "" && obs != "" && header.Observatory != obs {
		return nil, &crdserrors.FormatError{File: basename, Message: fmt.Sprintf("basename observatory %q disagrees with header.observatory %q", obs, header.Observatory)}
	}

	d, ok := f.Selector.(*parser.Dict)
	if !ok {
		return nil, &crdserrors.FormatError{File: basename, Message: "pipeline 'selector' must be a dict literal {instrument: imap_basename}"}
	}

	p := &Pipeline{Filename: basename, Header: header}
	for i, k := range d.Keys {
		instrument, ok := k.(string)
		if !ok {
			return nil, &crdserrors.FormatError{File: basename, Message: "pipeline selector keys must be instrument name strings"}
		}
		childBasename, ok := d.Values[i].(string)
		if !ok {
			return nil, &crdserrors.FormatError{File: basename, Message: "pipeline selector values must be imap basenames"}
		}
		child, err := loadChild(childBasename)
		if err != nil {
			return nil, err
		}
		if child.Header.Instrument != "" && !strings.EqualFold(child.Header.Instrument, instrument) {
			return nil, &crdserrors.FormatError{File: basename,
				Message: fmt.Sprintf("instrument mapping %q declares instrument %q, expected %q", childBasename, child.Header.Instrument, instrument)}
		}
		p.Entries = append(p.Entries, InstrumentEntry{Instrument: instrument, Basename: childBasename, Mapping: child})
	}
	return p, nil
}

// MappingNames returns the closure of basenames: self plus every
// transitively reachable instrument and reference mapping.
func (p *Pipeline) MappingNames() []string {
	out := []string{p.Filename}
	for _, e := range p.Entries {
		out = append(out, e.Mapping.MappingNames()...)
	}
	return out
}

// ReferenceNames returns every terminal reference-file basename
// reachable through the pipeline.
func (p *Pipeline) ReferenceNames() []string {
	var out []string
	for _, e := range p.Entries {
		out = append(out, e.Mapping.ReferenceNames()...)
	}
	return dedupeStrings(out)
}

// ReferenceNameMap groups reference names by instrument, mirroring
// original_source/lib/rmap.py's InstrumentContext.reference_name_map()
// broken out one level higher, at the pipeline (per-instrument)
// granularity the original also exposes.
func (p *Pipeline) ReferenceNameMap() map[string][]string {
	out := make(map[string][]string, len(p.Entries))
	for _, e := range p.Entries {
		out[e.Instrument] = e.Mapping.ReferenceNames()
	}
	return out
}

// MissingMappings reports basenames transitively referenced by the
// pipeline that exists reports as absent.
func (p *Pipeline) MissingMappings(exists func(basename string) bool) []string {
	var out []string
	for _, e := range p.Entries {
		if !exists(e.Basename) {
			out = append(out, e.Basename)
		}
		out = append(out, e.Mapping.MissingMappings(exists)...)
	}
	return out
}

// MissingReferences reports reference basenames transitively visible
// through the pipeline that exists reports as absent.
func (p *Pipeline) MissingReferences(exists func(basename string) bool) []string {
	var out []string
	for _, name := range p.ReferenceNames() {
		if !exists(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func dedupeStrings(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
