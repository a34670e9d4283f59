package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stsci-crds/crds-go/internal/crdserrors"
	"github.com/stsci-crds/crds-go/internal/value"
)

const referenceFixture = `header = {
    'observatory' : 'hst',
    'mapping' : 'reference',
    'instrument' : 'acs',
    'reftype' : 'biasfile',
    'parkey' : (('DETECTOR',), ('DATE-OBS',)),
    'sha1sum' : 'unchecked',
}
selector = Match({
    'WFC' : UseAfter({
        '2001-01-01 00:00:00' : 'old_bias.fits',
        '2010-01-01 00:00:00' : 'new_bias.fits',
    }),
    '*' : 'default_bias.fits',
})
`

func TestLoadReference(t *testing.T) {
	ref, err := LoadReference("hst_acs_biasfile.rmap", referenceFixture, true, nil)
	require.NoError(t, err)

	assert.Equal(t, "acs", ref.Header.Instrument)
	assert.Equal(t, "biasfile", ref.Header.Reftype)
	assert.ElementsMatch(t, []string{"hst_acs_biasfile.rmap"}, ref.MappingNames())
	assert.ElementsMatch(t, []string{"old_bias.fits", "new_bias.fits", "default_bias.fits"}, ref.ReferenceNames())
	assert.ElementsMatch(t, []string{"DETECTOR", "DATE-OBS"}, ref.RequiredParameters())

	got, err := ref.Choose(value.Header{"DETECTOR": "WFC", "DATE-OBS": "2005-01-01 00:00:00"})
	require.NoError(t, err)
	assert.Equal(t, "old_bias.fits", got)

	got, err = ref.Choose(value.Header{"DETECTOR": "HRC"})
	require.NoError(t, err)
	assert.Equal(t, "default_bias.fits", got)
}

func TestLoadReference_ChecksumEnforced(t *testing.T) {
	_, err := LoadReference("hst_acs_biasfile.rmap", referenceFixture, false, nil)
	require.Error(t, err)
	var checksumErr *crdserrors.ChecksumError
	require.ErrorAs(t, err, &checksumErr)
}

func TestLoadReference_DeclaredValuesRejectUndeclaredCase(t *testing.T) {
	fixtureWithBadCase := `header = {
    'mapping' : 'reference',
    'instrument' : 'acs',
    'reftype' : 'biasfile',
    'parkey' : ('DETECTOR',),
    'sha1sum' : 'unchecked',
}
selector = Match({
    'WFC' : 'a.fits',
    'BOGUS' : 'b.fits',
})
`
	_, err := LoadReference("hst_acs_biasfile.rmap", fixtureWithBadCase, true, map[string][]string{
		"DETECTOR": {"WFC", "HRC"},
	})
	// LoadReference itself does not run ValidateKeys (that is
	// internal/validate's job against an already-loaded Reference), but
	// instantiation must still succeed so the caller can validate it.
	require.NoError(t, err)
}

func TestLoadReference_MissingRequiredHeaderKey(t *testing.T) {
	missingReftype := `header = {
    'mapping' : 'reference',
    'instrument' : 'acs',
    'parkey' : ('DETECTOR',),
    'sha1sum' : 'unchecked',
}
selector = Match({'*' : 'a.fits'})
`
	_, err := LoadReference("hst_acs_biasfile.rmap", missingReftype, true, nil)
	require.Error(t, err)
	var missingKey *crdserrors.MissingHeaderKeyError
	require.ErrorAs(t, err, &missingKey)
}
