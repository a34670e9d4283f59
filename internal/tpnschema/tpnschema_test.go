package tpnschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ValidDocument(t *testing.T) {
	content := []byte(`
[parameters.DETECTOR]
values = ["WFC", "HRC"]

[parameters.FILTER]
values = ["F606W"]
`)
	got, err := Parse(content)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"DETECTOR": {"WFC", "HRC"},
		"FILTER":   {"F606W"},
	}, got)
}

func TestParse_EmptyParametersIsValid(t *testing.T) {
	content := []byte(`[parameters]`)
	got, err := Parse(content)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParse_RejectsMalformedTOML(t *testing.T) {
	_, err := Parse([]byte("this is not [ toml"))
	require.Error(t, err)
}

func TestParse_RejectsMissingParametersKey(t *testing.T) {
	_, err := Parse([]byte(`other = 1`))
	require.Error(t, err)
}

func TestParse_RejectsEntryMissingValues(t *testing.T) {
	content := []byte(`
[parameters.DETECTOR]
notvalues = ["WFC"]
`)
	_, err := Parse(content)
	require.Error(t, err)
}

func TestParse_RejectsNonStringValue(t *testing.T) {
	content := []byte(`
[parameters.DETECTOR]
values = [1, 2]
`)
	_, err := Parse(content)
	require.Error(t, err)
}
