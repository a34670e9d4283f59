// Package config loads the optional project configuration file
// (.crds.kdl), per SPEC_FULL.md section 1.3: a handful of knobs
// (observatory, bypass_checksum, cache.max_entries, mappath/refpath
// overrides) that CLI flags take precedence over when both are set.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// Config is the resolved set of project-level knobs.
type Config struct {
	Observatory    string
	BypassChecksum bool
	CacheMaxEntries int // 0 means unbounded; the cache has no eviction policy by default
	MapPath        string
	RefPath        string
	WatchMode      bool
}

// Default returns the zero-knob configuration: no observatory pinned,
// checksums enforced, no cache bound, no path overrides, watch mode off.
func Default() *Config {
	return &Config{}
}

// LoadKDL loads .crds.kdl from projectRoot. A missing file is not an
// error; it returns Default().
func LoadKDL(projectRoot string) (*Config, error) {
	kdlPath := filepath.Join(projectRoot, ".crds.kdl")
	content, err := os.ReadFile(kdlPath)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", kdlPath, err)
	}
	return parseKDL(string(content))
}

func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("config: parsing .crds.kdl: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "observatory":
			if s, ok := firstStringArg(n); ok {
				cfg.Observatory = s
			}
		case "bypass_checksum":
			if b, ok := firstBoolArg(n); ok {
				cfg.BypassChecksum = b
			}
		case "watch":
			if b, ok := firstBoolArg(n); ok {
				cfg.WatchMode = b
			}
		case "mappath":
			if s, ok := firstStringArg(n); ok {
				cfg.MapPath = s
			}
		case "refpath":
			if s, ok := firstStringArg(n); ok {
				cfg.RefPath = s
			}
		case "cache":
			for _, cn := range n.Children {
				if nodeName(cn) == "max_entries" {
					if v, ok := firstIntArg(cn); ok {
						cfg.CacheMaxEntries = v
					}
				}
			}
		}
	}

	return cfg, nil
}

// Merge overrides cfg's fields with any non-zero field set on override,
// implementing "CLI flags take precedence over the config file."
func (cfg *Config) Merge(override *Config) *Config {
	if override == nil {
		return cfg
	}
	out := *cfg
	if override.Observatory != "" {
		out.Observatory = override.Observatory
	}
	if override.BypassChecksum {
		out.BypassChecksum = true
	}
	if override.CacheMaxEntries != 0 {
		out.CacheMaxEntries = override.CacheMaxEntries
	}
	if override.MapPath != "" {
		out.MapPath = override.MapPath
	}
	if override.RefPath != "" {
		out.RefPath = override.RefPath
	}
	if override.WatchMode {
		out.WatchMode = true
	}
	return &out
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}
