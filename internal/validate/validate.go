// Package validate implements the recursive structural
// validation of a loaded selector tree against an external valid_values
// collaborator: for every Match node, each case's field values must
// belong to the parameter's declared set (with the exemptions Match's
// own ValidateKeys documents); every other variant's keys are already
// guaranteed parseable by their constructors, so validate only recurses
// into their children.
package validate

import (
	"github.com/stsci-crds/crds-go/internal/selector"
)

// Report collects the outcome of validating one selector tree.
type Report struct {
	Errors   []error
	Warnings []string
}

// Valid reports whether no validation error was found. Warnings do not
// affect this: missing TPN data is non-fatal.
func (r Report) Valid() bool { return len(r.Errors) == 0 }

// Tree recursively validates root's tree. valid maps a parameter name to
// its declared value set; a Match node referencing a parameter absent
// from valid records a warning instead of an error.
func Tree(root selector.Node, valid map[string]map[string]bool) Report {
	var rpt Report
	walk(root, valid, &rpt)
	return rpt
}

func walk(n selector.Node, valid map[string]map[string]bool, rpt *Report) {
	if m, ok := n.(*selector.Match); ok {
		errs, warnings := m.ValidateKeys(valid)
		rpt.Errors = append(rpt.Errors, errs...)
		rpt.Warnings = append(rpt.Warnings, warnings...)
	}
	for _, c := range n.Children() {
		walk(c, valid, rpt)
	}
}
