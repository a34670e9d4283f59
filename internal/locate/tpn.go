package locate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/stsci-crds/crds-go/internal/tpnschema"
)

// TPNSource implements cache.ValidValuesSource by reading
// "<TPNPath>/<instrument>_<reftype>.tpn.toml" documents on demand. A
// missing document is not an error: missing TPN data is treated as
// non-fatal, so the reference loads with no declared value set and
// Match field-level validation is skipped for it.
type TPNSource struct {
	TPNPath string
}

// NewTPNSource builds a TPNSource rooted at CRDS_TPNPATH, falling back
// to "tpn" under the current directory when unset.
func NewTPNSource() *TPNSource {
	return &TPNSource{TPNPath: envOr("CRDS_TPNPATH", "tpn")}
}

// ValidValues implements cache.ValidValuesSource.
func (s *TPNSource) ValidValues(instrument, reftype string) (map[string][]string, error) {
	path := filepath.Join(s.TPNPath, fmt.Sprintf("%s_%s.tpn.toml", instrument, reftype))
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("locate: reading %s: %w", path, err)
	}
	return tpnschema.Parse(content)
}
