// Package crdserrors defines the closed enumeration of error kinds a
// mapping load or a selector lookup can raise. Each kind is a concrete
// type implementing error and, where useful, Unwrap() error so callers
// can use errors.As/errors.Is against the underlying cause.
package crdserrors

import "fmt"

// LookupError is implemented by the selector-lookup failures that an
// enclosing Match node is allowed to catch and fall through past
// (UseAfterError, MatchingError, AmbiguousMatchError). MissingParameterError
// and BadValueError are raised before winnowing even starts and are not
// part of this family: they are caught only by the query front door.
type LookupError interface {
	error
	IsLookupError() bool
}

// FormatError signals that a mapping file violates the restricted
// grammar. Fatal to load.
type FormatError struct {
	File    string
	Line    int
	Message string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: format error: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: format error: %s", e.File, e.Message)
}

// ChecksumError signals a sha1sum mismatch. Fatal to load
// unless the loader was explicitly told to bypass checksums.
type ChecksumError struct {
	File     string
	Expected string
	Got      string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%s: checksum mismatch: header declares %q, computed %q", e.File, e.Expected, e.Got)
}

// MissingHeaderKeyError signals that a required tier header key is
// absent.
type MissingHeaderKeyError struct {
	File string
	Key  string
}

func (e *MissingHeaderKeyError) Error() string {
	return fmt.Sprintf("%s: missing required header key %q", e.File, e.Key)
}

// MappingError is the generic wrapper for an unexpected evaluation
// fault during loading (an evaluation-time exception).
type MappingError struct {
	File string
	Err  error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("%s: mapping evaluation failed: %v", e.File, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

// MissingParameterError is raised by Match when a required parameter
// has no header entry at all. Caught by the query front door.
type MissingParameterError struct {
	Parameter string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Parameter)
}

// BadValueError is raised by Match when a header value is not among a
// parameter's declared values and no wildcard key exists for it.
type BadValueError struct {
	Parameter string
	Value     string
}

func (e *BadValueError) Error() string {
	return fmt.Sprintf("parameter %q has undeclared value %q", e.Parameter, e.Value)
}

// MatchingError is raised when no case survived winnowing, or every
// ranked group failed recursion. Part of the LookupError family: an
// outer Match may catch this from a nested Match and try its next group.
type MatchingError struct {
	Selector string
	Detail   string
}

func (e *MatchingError) Error() string {
	return fmt.Sprintf("%s: no matching case: %s", e.Selector, e.Detail)
}

func (e *MatchingError) IsLookupError() bool { return true }

// AmbiguousMatchError is raised when the best-ranked group contains
// more than one surviving case: within that Match node itself, ties are
// always fatal, never broken by falling through to a weaker group. It
// still implements LookupError, so an enclosing Match that nested this
// one as a child may catch it and fall through to its own next-best
// group (see DESIGN.md, "Open questions resolved").
type AmbiguousMatchError struct {
	Selector string
	Weight   int
	Count    int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%s: %d equally-weighted cases (weight %d)", e.Selector, e.Count, e.Weight)
}

func (e *AmbiguousMatchError) IsLookupError() bool { return true }

// UseAfterError is raised when no use-after key qualifies (no key is
// less than or equal to the query timestamp). The signal that lets an
// enclosing Match fall through to the next-best group.
type UseAfterError struct {
	Parameter string
	Query     string
}

func (e *UseAfterError) Error() string {
	return fmt.Sprintf("no %s <= %q", e.Parameter, e.Query)
}

func (e *UseAfterError) IsLookupError() bool { return true }

// ValidationError is reported by offline validation; never raised
// during a choose() lookup.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

var (
	_ LookupError = (*MatchingError)(nil)
	_ LookupError = (*AmbiguousMatchError)(nil)
	_ LookupError = (*UseAfterError)(nil)
)

// AsLookupError reports whether err belongs to the fall-through family
// an enclosing Match is allowed to catch.
func AsLookupError(err error) (LookupError, bool) {
	le, ok := err.(LookupError)
	return le, ok
}
