// Package query implements the best_references front door: resolve a
// pipeline context, dispatch to its instrument by header["INSTRUME"],
// and choose a reference for every reftype that instrument declares.
package query

import (
	"fmt"
	"strings"

	"github.com/stsci-crds/crds-go/internal/crdserrors"
	"github.com/stsci-crds/crds-go/internal/mapping"
	"github.com/stsci-crds/crds-go/internal/metrics"
	"github.com/stsci-crds/crds-go/internal/value"
)

// PipelineLoader resolves a pipeline mapping basename to its loaded
// tree, normally backed by the process cache.
type PipelineLoader interface {
	LoadPipeline(basename string) (*mapping.Pipeline, error)
}

// BestReferences returns a reftype -> basename map for every reftype
// the header's instrument declares. A reftype whose selector raises
// fails independently of the others: its entry becomes a "NOT FOUND
// <message>" placeholder instead of aborting the whole batch.
func BestReferences(loader PipelineLoader, ctxBasename string, hdr value.Header) (map[string]string, error) {
	return bestReferences(loader, ctxBasename, hdr, nil)
}

// BestReferencesWithMetrics is BestReferences with optional counter
// recording; see internal/metrics.
func BestReferencesWithMetrics(loader PipelineLoader, ctxBasename string, hdr value.Header, m *metrics.Counters) (map[string]string, error) {
	return bestReferences(loader, ctxBasename, hdr, m)
}

func bestReferences(loader PipelineLoader, ctxBasename string, hdr value.Header, m *metrics.Counters) (map[string]string, error) {
	pipeline, err := loader.LoadPipeline(ctxBasename)
	if err != nil {
		return nil, err
	}

	instrumentName := hdr.Get("INSTRUME")
	instrument := findInstrument(pipeline, instrumentName)
	if instrument == nil {
		return nil, fmt.Errorf("query: %s declares no instrument mapping for INSTRUME=%q", ctxBasename, instrumentName)
	}

	out := make(map[string]string, len(instrument.Entries))
	for _, e := range instrument.Entries {
		out[e.Reftype] = chooseOne(e.Mapping, hdr, m)
	}
	return out, nil
}

func findInstrument(pipeline *mapping.Pipeline, instrumentName string) *mapping.Instrument {
	for _, e := range pipeline.Entries {
		if strings.EqualFold(e.Instrument, instrumentName) {
			return e.Mapping
		}
	}
	return nil
}

func chooseOne(ref *mapping.Reference, hdr value.Header, m *metrics.Counters) string {
	if m != nil {
		m.RecordLookup()
	}
	result, err := ref.Choose(hdr)
	if err != nil {
		if m != nil {
			if _, ok := crdserrors.AsLookupError(err); ok {
				m.RecordLookupError()
			}
			if _, ok := err.(*crdserrors.AmbiguousMatchError); ok {
				m.RecordAmbiguousMatch()
			}
		}
		return "NOT FOUND " + err.Error()
	}
	switch v := result.(type) {
	case string:
		return v
	default:
		return fmt.Sprintf("NOT FOUND unexpected selector result %v", v)
	}
}
