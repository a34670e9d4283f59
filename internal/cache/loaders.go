package cache

import "github.com/stsci-crds/crds-go/internal/mapping"

// FileSource resolves a mapping basename to its on-disk content, rooted
// at CRDS_MAPPATH/CRDS_REFPATH; supplied by
// the locate package.
type FileSource interface {
	ReadMapping(basename string) (string, error)
}

// ValidValuesSource resolves a reference mapping's externally declared
// parameter values, the valid_values collaborator the surrounding system
// assumes the surrounding system provides.
type ValidValuesSource interface {
	ValidValues(instrument, reftype string) (map[string][]string, error)
}

// Mappings composes one Cache per tier into the single logical
// process-wide cache: loadChild closures passed down
// to mapping.LoadPipeline/LoadInstrument route back through these same
// per-tier caches, so a pipeline and instrument loaded by two different
// top-level queries share the same underlying instrument/reference
// entries instead of each re-parsing their own copy.
type Mappings struct {
	Pipelines   *Cache[*mapping.Pipeline]
	Instruments *Cache[*mapping.Instrument]
	References  *Cache[*mapping.Reference]

	files          FileSource
	validValues    ValidValuesSource
	bypassChecksum bool
}

// NewMappings wires a fresh, empty set of per-tier caches against files
// and validValues. validValues may be nil, in which case reference
// mappings load with no declared value sets and Match field-level
// validation is skipped entirely (missing TPN data is
// non-fatal).
func NewMappings(files FileSource, validValues ValidValuesSource, bypassChecksum bool) *Mappings {
	return &Mappings{
		Pipelines:      New[*mapping.Pipeline](),
		Instruments:    New[*mapping.Instrument](),
		References:     New[*mapping.Reference](),
		files:          files,
		validValues:    validValues,
		bypassChecksum: bypassChecksum,
	}
}

// LoadPipeline loads basename's pipeline mapping, and transitively its
// entire instrument/reference closure, through the cache.
func (m *Mappings) LoadPipeline(basename string) (*mapping.Pipeline, error) {
	return m.Pipelines.Get(basename, func(b string) (*mapping.Pipeline, string, error) {
		content, err := m.files.ReadMapping(b)
		if err != nil {
			return nil, "", err
		}
		p, err := mapping.LoadPipeline(b, content, m.bypassChecksum, m.LoadInstrument)
		return p, content, err
	})
}

// LoadInstrument loads basename's instrument mapping through the cache.
func (m *Mappings) LoadInstrument(basename string) (*mapping.Instrument, error) {
	return m.Instruments.Get(basename, func(b string) (*mapping.Instrument, string, error) {
		content, err := m.files.ReadMapping(b)
		if err != nil {
			return nil, "", err
		}
		inst, err := mapping.LoadInstrument(b, content, m.bypassChecksum, m.LoadReference)
		return inst, content, err
	})
}

// LoadReference loads basename's reference mapping through the cache,
// resolving its declared value set from validValues by the
// instrument/reftype encoded in its own basename (the
// filename convention).
func (m *Mappings) LoadReference(basename string) (*mapping.Reference, error) {
	return m.References.Get(basename, func(b string) (*mapping.Reference, string, error) {
		content, err := m.files.ReadMapping(b)
		if err != nil {
			return nil, "", err
		}
		var valid map[string][]string
		if m.validValues != nil {
			_, instrument, reftype, _ := mapping.ParseBasename(b)
			valid, err = m.validValues.ValidValues(instrument, reftype)
			if err != nil {
				return nil, "", err
			}
		}
		ref, err := mapping.LoadReference(b, content, m.bypassChecksum, valid)
		return ref, content, err
	})
}

// Invalidate drops basename from whichever tier cache holds it, so the
// next load re-reads and re-parses it. A mapping that already has
// parent entries cached still serves those parents from cache; only
// the invalidated basename's own subtree is reloaded on next access.
func (m *Mappings) Invalidate(basename string) {
	m.Pipelines.Invalidate(basename)
	m.Instruments.Invalidate(basename)
	m.References.Invalidate(basename)
}

// Fingerprint reports the xxhash of basename's last-loaded content,
// checking each tier in turn; ok is false if basename isn't cached
// anywhere.
func (m *Mappings) Fingerprint(basename string) (uint64, bool) {
	if fp, ok := m.Pipelines.Fingerprint(basename); ok {
		return fp, true
	}
	if fp, ok := m.Instruments.Fingerprint(basename); ok {
		return fp, true
	}
	return m.References.Fingerprint(basename)
}
