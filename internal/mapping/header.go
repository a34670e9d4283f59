// Package mapping implements the three tiered mapping types (Pipeline,
// Instrument, Reference): loading from the safe
// parser's AST, structural invariant checks, checksum verification,
// closure traversal, and selector-tree instantiation.
package mapping

import (
	"fmt"
	"strings"

	"github.com/stsci-crds/crds-go/internal/crdserrors"
	"github.com/stsci-crds/crds-go/internal/parser"
)

// Tier identifies which of the three mapping kinds a file declares
// itself to be, via its header's "mapping" field.
type Tier string

const (
	TierPipeline   Tier = "pipeline"
	TierInstrument Tier = "instrument"
	TierReference  Tier = "reference"
)

// Header is the common header shape every tier carries.
// Tier-specific required keys are validated by each tier's
// loader.
type Header struct {
	Observatory   string
	MappingTier   Tier
	Instrument    string // instrument & reference tiers
	Reftype       string // reference tier only
	Parkey        [][]string
	Sha1sum       string
	Substitutions map[string]map[string]string
	Extra         map[string]string // other scalar header fields, preserved for rewrite/diagnostics
	Raw           *parser.Dict
}

func getString(d *parser.Dict, key string) (string, bool) {
	v, ok := d.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func requireString(file string, d *parser.Dict, key string) (string, error) {
	s, ok := getString(d, key)
	if !ok {
		return "", &crdserrors.MissingHeaderKeyError{File: file, Key: key}
	}
	return s, nil
}

func requireTierMatch(file string, d *parser.Dict, want Tier) error {
	got, err := requireString(file, d, "mapping")
	if err != nil {
		return err
	}
	if Tier(got) != want {
		return &crdserrors.FormatError{File: file, Message: fmt.Sprintf("header['mapping'] = %q, expected %q", got, want)}
	}
	return nil
}

func tupleStrings(v parser.Value) ([]string, error) {
	t, ok := v.(*parser.Tuple)
	if !ok {
		return nil, fmt.Errorf("expected a tuple literal")
	}
	out := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("tuple element %d is not a string literal", i)
		}
		out[i] = s
	}
	return out, nil
}

// parseParkey implements the "parkey is a tuple/list of
// parameter-name tuples, one tuple per selector nesting level." A
// flat tuple of strings (no nested tuples) is treated as a single
// level, which is how pipeline/instrument tiers declare their
// (non-nested) plain-dict selector's key.
func parseParkey(file string, d *parser.Dict) ([][]string, error) {
	v, ok := d.Get("parkey")
	if !ok {
		return nil, &crdserrors.MissingHeaderKeyError{File: file, Key: "parkey"}
	}
	t, ok := v.(*parser.Tuple)
	if !ok {
		return nil, &crdserrors.FormatError{File: file, Message: "header['parkey'] must be a tuple"}
	}
	if len(t.Elements) == 0 {
		return nil, nil
	}
	if _, nested := t.Elements[0].(*parser.Tuple); nested {
		levels := make([][]string, len(t.Elements))
		for i, e := range t.Elements {
			lvl, err := tupleStrings(e)
			if err != nil {
				return nil, &crdserrors.FormatError{File: file, Message: fmt.Sprintf("header['parkey'][%d]: %v", i, err)}
			}
			levels[i] = lvl
		}
		return levels, nil
	}
	flat, err := tupleStrings(t)
	if err != nil {
		return nil, &crdserrors.FormatError{File: file, Message: "header['parkey']: " + err.Error()}
	}
	return [][]string{flat}, nil
}

func parseSubstitutions(d *parser.Dict) (map[string]map[string]string, error) {
	v, ok := d.Get("substitutions")
	if !ok {
		return nil, nil
	}
	outer, ok := v.(*parser.Dict)
	if !ok {
		return nil, fmt.Errorf("header['substitutions'] must be a dict")
	}
	out := make(map[string]map[string]string, len(outer.Keys))
	for i, k := range outer.Keys {
		parkey, ok := k.(string)
		if !ok {
			return nil, fmt.Errorf("substitutions key must be a parkey string")
		}
		inner, ok := outer.Values[i].(*parser.Dict)
		if !ok {
			return nil, fmt.Errorf("substitutions[%s] must be a dict", parkey)
		}
		m := make(map[string]string, len(inner.Keys))
		for j, fk := range inner.Keys {
			from, ok := fk.(string)
			if !ok {
				return nil, fmt.Errorf("substitutions[%s] keys must be strings", parkey)
			}
			to, ok := inner.Values[j].(string)
			if !ok {
				return nil, fmt.Errorf("substitutions[%s][%s] must be a string", parkey, from)
			}
			m[from] = to
		}
		out[parkey] = m
	}
	return out, nil
}

// parseCommonHeader extracts the fields every tier shares and stashes
// anything else, verbatim, into Extra for round-trip/diagnostics.
func parseCommonHeader(file string, d *parser.Dict, tier Tier) (Header, error) {
	if err := requireTierMatch(file, d, tier); err != nil {
		return Header{}, err
	}
	observatory, _ := getString(d, "observatory")
	sha1sum, err := requireString(file, d, "sha1sum")
	if err != nil {
		return Header{}, err
	}
	parkey, err := parseParkey(file, d)
	if err != nil {
		return Header{}, err
	}
	subs, err := parseSubstitutions(d)
	if err != nil {
		return Header{}, &crdserrors.FormatError{File: file, Message: err.Error()}
	}

	extra := map[string]string{}
	known := map[string]bool{"observatory": true, "mapping": true, "parkey": true, "sha1sum": true,
		"substitutions": true, "instrument": true, "reftype": true}
	for i, k := range d.Keys {
		ks, ok := k.(string)
		if !ok || known[ks] {
			continue
		}
		if s, ok := d.Values[i].(string); ok {
			extra[ks] = s
		}
	}

	return Header{
		Observatory:   observatory,
		MappingTier:   tier,
		Parkey:        parkey,
		Sha1sum:       sha1sum,
		Substitutions: subs,
		Extra:         extra,
		Raw:           d,
	}, nil
}

// ParseBasename exports basenameParts for collaborators (e.g. the cache
// package) that need a reference mapping's instrument/reftype before
// its header has been parsed, to resolve an external valid_values set.
func ParseBasename(basename string) (obs, inst, ref, ext string) {
	return basenameParts(basename)
}

// basenameParts splits "<obs>_<inst>_<ref>.<ext>" per the
// filename convention. Missing tokens are returned empty; only the
// tier-relevant leading tokens are required by callers.
func basenameParts(basename string) (obs, inst, ref, ext string) {
	name := basename
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		ext = name[dot+1:]
		name = name[:dot]
	}
	parts := strings.SplitN(name, "_", 3)
	if len(parts) > 0 {
		obs = parts[0]
	}
	if len(parts) > 1 {
		inst = parts[1]
	}
	if len(parts) > 2 {
		ref = parts[2]
	}
	return
}
