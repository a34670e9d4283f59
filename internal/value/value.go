// Package value defines the typed header parameter values that flow
// through mapping selection: the header map accepted by a query, and
// the sentinel used for parameters a header doesn't carry.
package value

import (
	"strconv"
	"strings"
)

// NotPresent is substituted for a header parameter that the caller's
// header does not contain, used during the winnow phase of selection.
const NotPresent = "NOT PRESENT"

// Header is the unordered mapping from uppercase parameter names (e.g.
// INSTRUME, DATE-OBS) to string values that best_references accepts.
// Numeric parameters are carried as their decimal string form; callers
// that have a float or int should format it before inserting here.
type Header map[string]string

// Get returns the header's value for key, or NotPresent if the header
// has no entry for it. Lookups are case-insensitive on the key name,
// matching the convention that header keys are normalized uppercase.
func (h Header) Get(key string) string {
	if h == nil {
		return NotPresent
	}
	if v, ok := h[key]; ok {
		return v
	}
	if v, ok := h[strings.ToUpper(key)]; ok {
		return v
	}
	for k, v := range h {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return NotPresent
}

// Has reports whether key is present in the header at all (distinct
// from Get returning a real but empty string).
func (h Header) Has(key string) bool {
	if h == nil {
		return false
	}
	_, ok := h[key]
	if ok {
		return true
	}
	if _, ok = h[strings.ToUpper(key)]; ok {
		return true
	}
	for k := range h {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

// Clone returns a shallow copy safe for a callee to mutate (e.g. to
// normalize timestamps) without affecting the caller's header.
func (h Header) Clone() Header {
	out := make(Header, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Float parses key's value as a decimal float. Parameters carried in
// headers are always strings; numeric selectors (ClosestGeometricRatio,
// LinearInterpolation, VersionDep) parse at the point of use.
func (h Header) Float(key string) (float64, error) {
	return strconv.ParseFloat(h.Get(key), 64)
}

// EqualFold reports whether a and b are equal, case-insensitively. The
// header values compare case-insensitively
// except where a selector variant says otherwise (datetime keys compare
// as normalized strings, not case-insensitively, since they contain no
// letters other than fixed separators).
func EqualFold(a, b string) bool {
	return strings.EqualFold(a, b)
}
