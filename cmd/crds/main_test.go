package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stsci-crds/crds-go/internal/locate"
	"github.com/stsci-crds/crds-go/internal/mapping"
	"github.com/stsci-crds/crds-go/internal/selector"
)

func TestParseHeaderFlags_SplitsKeyValuePairs(t *testing.T) {
	hdr, err := parseHeaderFlags([]string{"instrume=acs", "DETECTOR=WFC"})
	require.NoError(t, err)
	assert.Equal(t, "acs", hdr["INSTRUME"])
	assert.Equal(t, "WFC", hdr["DETECTOR"])
}

func TestParseHeaderFlags_ValueMayContainEquals(t *testing.T) {
	hdr, err := parseHeaderFlags([]string{"EXPR=a=b=c"})
	require.NoError(t, err)
	assert.Equal(t, "a=b=c", hdr["EXPR"])
}

func TestParseHeaderFlags_EmptyInputYieldsEmptyHeader(t *testing.T) {
	hdr, err := parseHeaderFlags(nil)
	require.NoError(t, err)
	assert.Empty(t, hdr)
}

func TestParseHeaderFlags_RejectsEntryWithoutEquals(t *testing.T) {
	_, err := parseHeaderFlags([]string{"nopairhere"})
	require.Error(t, err)
}

func TestOrphanedReferences_ReportsUndeclaredFilesOnDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "hst"), 0o755))
	for _, name := range []string{"declared.fits", "orphan.fits"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "hst", name), []byte("x"), 0o644))
	}
	loc := &locate.Locator{RefPath: dir}

	root, err := selector.NewMatch(nil, []selector.CaseEntry{{Key: nil, Child: "declared.fits"}}, nil, nil)
	require.NoError(t, err)

	p := &mapping.Pipeline{
		Header: mapping.Header{Observatory: "hst"},
		Entries: []mapping.InstrumentEntry{
			{Instrument: "acs", Basename: "hst_acs.imap", Mapping: &mapping.Instrument{
				Entries: []mapping.ReftypeEntry{
					{Reftype: "bias", Basename: "hst_acs_bias.rmap", Mapping: &mapping.Reference{
						Root: root,
					}},
				},
			}},
		},
	}

	got := orphanedReferences(p, loc)
	assert.Equal(t, []string{"orphan.fits"}, got)
}
