package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stsci-crds/crds-go/internal/crdserrors"
	"github.com/stsci-crds/crds-go/internal/value"
)

func mustMatch(t *testing.T, names []string, cases []CaseEntry) *Match {
	t.Helper()
	m, err := NewMatch(names, cases, nil, nil)
	require.NoError(t, err)
	return m
}

func TestMatch_ExactBeatsWildcard(t *testing.T) {
	m := mustMatch(t, []string{"DETECTOR"}, []CaseEntry{
		{Key: []FieldKey{"WFC"}, Child: "wfc.fits"},
		{Key: []FieldKey{"*"}, Child: "default.fits"},
	})

	got, err := m.Choose(value.Header{"DETECTOR": "WFC"})
	require.NoError(t, err)
	assert.Equal(t, "wfc.fits", got)

	got, err = m.Choose(value.Header{"DETECTOR": "HRC"})
	require.NoError(t, err)
	assert.Equal(t, "default.fits", got)
}

func TestMatch_NoSurvivorsIsMatchingError(t *testing.T) {
	m := mustMatch(t, []string{"DETECTOR"}, []CaseEntry{
		{Key: []FieldKey{"WFC"}, Child: "wfc.fits"},
	})

	_, err := m.Choose(value.Header{"DETECTOR": "HRC"})
	require.Error(t, err)
	var matchErr *crdserrors.MatchingError
	require.ErrorAs(t, err, &matchErr)
}

func TestMatch_TiedWeightIsAmbiguous(t *testing.T) {
	m := mustMatch(t, []string{"DETECTOR", "FILTER"}, []CaseEntry{
		{Key: []FieldKey{"WFC", "*"}, Child: "a.fits"},
		{Key: []FieldKey{"*", "F606W"}, Child: "b.fits"},
	})

	_, err := m.Choose(value.Header{"DETECTOR": "WFC", "FILTER": "F606W"})
	require.Error(t, err)
	var ambig *crdserrors.AmbiguousMatchError
	require.ErrorAs(t, err, &ambig)
}

func TestMatch_MissingRequiredParameter(t *testing.T) {
	m := mustMatch(t, []string{"DETECTOR"}, []CaseEntry{
		{Key: []FieldKey{"*"}, Child: "a.fits"},
	})

	_, err := m.Choose(value.Header{})
	require.Error(t, err)
	var missing *crdserrors.MissingParameterError
	require.ErrorAs(t, err, &missing)
}

func TestMatch_OptionalParameterMayBeAbsent(t *testing.T) {
	m := mustMatch(t, []string{"*DETECTOR"}, []CaseEntry{
		{Key: []FieldKey{"*"}, Child: "a.fits"},
	})

	got, err := m.Choose(value.Header{})
	require.NoError(t, err)
	assert.Equal(t, "a.fits", got)
}

func TestMatch_OptionalParameterAbsentIsDontCareNotPenalty(t *testing.T) {
	m := mustMatch(t, []string{"*FOO", "BAR"}, []CaseEntry{
		{Key: []FieldKey{"1.0", "*"}, Child: "100.fits"},
		{Key: []FieldKey{"1.0", "2.0"}, Child: "200.fits"},
		{Key: []FieldKey{"*", "*"}, Child: "300.fits"},
	})

	got, err := m.Choose(value.Header{"FOO": "1.0", "BAR": "2.0"})
	require.NoError(t, err)
	assert.Equal(t, "200.fits", got)

	// FOO is optional and absent here: it must contribute no weight at
	// all, so the exact BAR=2.0 case wins outright rather than tying
	// with the fully-wildcarded case.
	got, err = m.Choose(value.Header{"BAR": "2.0"})
	require.NoError(t, err)
	assert.Equal(t, "200.fits", got)

	_, err = m.Choose(value.Header{})
	var missing *crdserrors.MissingParameterError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "BAR", missing.Parameter)
}

func TestMatch_FallsThroughNestedLookupError(t *testing.T) {
	inner, err := NewUseAfter([]string{"DATE-OBS"}, []string{"2010-01-01 00:00:00"}, []Child{"new.fits"})
	require.NoError(t, err)

	m := mustMatch(t, []string{"DETECTOR"}, []CaseEntry{
		{Key: []FieldKey{"WFC"}, Child: inner},
		{Key: []FieldKey{"*"}, Child: "fallback.fits"},
	})

	got, err := m.Choose(value.Header{"DETECTOR": "WFC", "DATE-OBS": "2001-01-01 00:00:00"})
	require.NoError(t, err, "UseAfterError from the winning case must fall through to the next group")
	assert.Equal(t, "fallback.fits", got)
}

func TestMatch_Alternation(t *testing.T) {
	m := mustMatch(t, []string{"FILTER"}, []CaseEntry{
		{Key: []FieldKey{[]string{"F606W", "F814W"}}, Child: "wide.fits"},
	})

	got, err := m.Choose(value.Header{"FILTER": "F814W"})
	require.NoError(t, err)
	assert.Equal(t, "wide.fits", got)
}

func TestMatch_ValidateKeys(t *testing.T) {
	m := mustMatch(t, []string{"DETECTOR"}, []CaseEntry{
		{Key: []FieldKey{"WFC"}, Child: "a.fits"},
		{Key: []FieldKey{"BOGUS"}, Child: "b.fits"},
		{Key: []FieldKey{"*"}, Child: "c.fits"},
	})

	errs, warnings := m.ValidateKeys(map[string]map[string]bool{"DETECTOR": {"WFC": true, "HRC": true}})
	require.Len(t, errs, 1)
	assert.Empty(t, warnings)
	var badValue *crdserrors.BadValueError
	require.ErrorAs(t, errs[0], &badValue)
	assert.Equal(t, "BOGUS", badValue.Value)
}

func TestMatch_ValidateKeys_UndeclaredParameterWarns(t *testing.T) {
	m := mustMatch(t, []string{"DETECTOR"}, []CaseEntry{
		{Key: []FieldKey{"WFC"}, Child: "a.fits"},
	})

	errs, warnings := m.ValidateKeys(map[string]map[string]bool{})
	assert.Empty(t, errs)
	require.Len(t, warnings, 1)
}

func TestMatch_ValidateKeys_TrailingZeroExempt(t *testing.T) {
	m := mustMatch(t, []string{"EXPTIME"}, []CaseEntry{
		{Key: []FieldKey{"1.0"}, Child: "a.fits"},
	})

	errs, _ := m.ValidateKeys(map[string]map[string]bool{"EXPTIME": {"1": true}})
	assert.Empty(t, errs, "1.0 should be accepted as equivalent to the declared value 1")
}

func TestUseAfter_PicksGreatestKeyLessOrEqual(t *testing.T) {
	u, err := NewUseAfter([]string{"DATE-OBS"}, []string{
		"2010-01-01 00:00:00",
		"2001-01-01 00:00:00",
	}, []Child{"new.fits", "old.fits"})
	require.NoError(t, err)

	got, err := u.Choose(value.Header{"DATE-OBS": "2005-06-01 00:00:00"})
	require.NoError(t, err)
	assert.Equal(t, "old.fits", got)

	got, err = u.Choose(value.Header{"DATE-OBS": "2020-01-01 00:00:00"})
	require.NoError(t, err)
	assert.Equal(t, "new.fits", got)
}

func TestUseAfter_BeforeEarliestKeyIsError(t *testing.T) {
	u, err := NewUseAfter([]string{"DATE-OBS"}, []string{"2010-01-01 00:00:00"}, []Child{"new.fits"})
	require.NoError(t, err)

	_, err = u.Choose(value.Header{"DATE-OBS": "1999-01-01 00:00:00"})
	require.Error(t, err)
	var useAfterErr *crdserrors.UseAfterError
	require.ErrorAs(t, err, &useAfterErr)
}

func TestUseAfter_JoinsDateAndTimeParams(t *testing.T) {
	u, err := NewUseAfter([]string{"DATE-OBS", "TIME-OBS"}, []string{"2001-01-01 00:00:00"}, []Child{"a.fits"})
	require.NoError(t, err)

	got, err := u.Choose(value.Header{"DATE-OBS": "2001-01-01", "TIME-OBS": "00:00:01"})
	require.NoError(t, err)
	assert.Equal(t, "a.fits", got)
}

func TestClosestTime_PicksNearest(t *testing.T) {
	ct, err := NewClosestTime("DATE-OBS", []string{
		"2001-01-01 00:00:00",
		"2010-01-01 00:00:00",
	}, []Child{"old.fits", "new.fits"})
	require.NoError(t, err)

	got, err := ct.Choose(value.Header{"DATE-OBS": "2008-01-01 00:00:00"})
	require.NoError(t, err)
	assert.Equal(t, "new.fits", got)
}

func TestClosestGeometricRatio_PicksNearestAbsoluteDifference(t *testing.T) {
	cgr, err := NewClosestGeometricRatio("EXPTIME", []string{"1.0", "10.0", "100.0"}, []Child{"short.fits", "mid.fits", "long.fits"})
	require.NoError(t, err)

	got, err := cgr.Choose(value.Header{"EXPTIME": "6.0"})
	require.NoError(t, err)
	assert.Equal(t, "mid.fits", got, "6.0 is closer to 10.0 than to 1.0 under absolute difference")

	got, err = cgr.Choose(value.Header{"EXPTIME": "90.0"})
	require.NoError(t, err)
	assert.Equal(t, "long.fits", got)
}

func TestLinearInterpolation_Bracketing(t *testing.T) {
	li, err := NewLinearInterpolation("EXPTIME", []string{"1.0", "2.0", "3.0"}, []string{"a.fits", "b.fits", "c.fits"})
	require.NoError(t, err)

	got, err := li.Choose(value.Header{"EXPTIME": "1.5"})
	require.NoError(t, err)
	assert.Equal(t, Pair{"a.fits", "b.fits"}, got)

	got, err = li.Choose(value.Header{"EXPTIME": "2.0"})
	require.NoError(t, err)
	assert.Equal(t, Pair{"b.fits", "b.fits"}, got, "an exact hit collapses to a repeated pair")

	got, err = li.Choose(value.Header{"EXPTIME": "0.0"})
	require.NoError(t, err)
	assert.Equal(t, Pair{"a.fits", "a.fits"}, got, "below the table clamps to the first entry")

	got, err = li.Choose(value.Header{"EXPTIME": "10.0"})
	require.NoError(t, err)
	assert.Equal(t, Pair{"c.fits", "c.fits"}, got, "above the table clamps to the last entry")
}

func TestVersionDep_FirstSatisfiedRelationWins(t *testing.T) {
	vd, err := NewVersionDep([]string{"<6.0", "default"}, []Child{"old.fits", "new.fits"})
	require.NoError(t, err)

	got, err := vd.Choose(value.Header{"sw_version": "5.0"})
	require.NoError(t, err)
	assert.Equal(t, "old.fits", got)

	got, err = vd.Choose(value.Header{"sw_version": "7.0"})
	require.NoError(t, err)
	assert.Equal(t, "new.fits", got)
}

func TestVersionDep_NoDefaultAndUnsatisfiedIsError(t *testing.T) {
	vd, err := NewVersionDep([]string{"<6.0"}, []Child{"old.fits"})
	require.NoError(t, err)

	_, err = vd.Choose(value.Header{"sw_version": "7.0"})
	require.Error(t, err)
}

func TestRequiredParameters_WalksNestedTree(t *testing.T) {
	inner, err := NewUseAfter([]string{"DATE-OBS"}, []string{"2001-01-01 00:00:00"}, []Child{"a.fits"})
	require.NoError(t, err)
	m := mustMatch(t, []string{"DETECTOR"}, []CaseEntry{
		{Key: []FieldKey{"WFC"}, Child: inner},
		{Key: []FieldKey{"*"}, Child: "b.fits"},
	})

	got := RequiredParameters(m)
	assert.ElementsMatch(t, []string{"DETECTOR", "DATE-OBS"}, got)
}

// docstring-scenario: ClosestGeometricRatio nested under VersionDep
// nested under ClosestTime, mirroring the nested selector example
// carried forward from the original source this repo's grammar
// descends from.
func TestNestedSelectorScenario(t *testing.T) {
	ratio, err := NewClosestGeometricRatio("EXPTIME", []string{"1.0", "100.0"}, []Child{"short.fits", "long.fits"})
	require.NoError(t, err)
	verdep, err := NewVersionDep([]string{"default"}, []Child{ratio})
	require.NoError(t, err)
	tree, err := NewClosestTime("DATE-OBS", []string{"2001-01-01 00:00:00"}, []Child{verdep})
	require.NoError(t, err)

	got, err := tree.Choose(value.Header{
		"DATE-OBS":   "2001-06-01 00:00:00",
		"sw_version": "1.0",
		"EXPTIME":    "90.0",
	})
	require.NoError(t, err)
	assert.Equal(t, "long.fits", got)

	names := tree.ReferenceNames()
	assert.ElementsMatch(t, []string{"short.fits", "long.fits"}, names)
}
