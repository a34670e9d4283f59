// Package selector implements the six selector node variants: Match,
// UseAfter, ClosestTime, ClosestGeometricRatio, LinearInterpolation,
// and VersionDep, plus the recursive tree they form. A terminal is a
// reference-file basename (string); in LinearInterpolation a terminal
// is the pair of strings it returns.
package selector

import "github.com/stsci-crds/crds-go/internal/value"

// Node is implemented by every selector variant and is also the type
// a variant's child slot holds: a child is either a terminal string
// or another Node, so recursion is just a type switch on Child.
type Node interface {
	// Choose evaluates the node against a header and returns a
	// terminal value: a string, or a Pair for LinearInterpolation.
	Choose(hdr value.Header) (any, error)

	// Parameters returns the ordered parkey names this node reads
	// from the header, for required_parameters().
	Parameters() []string

	// ReferenceNames returns every terminal basename reachable
	// through this node and its descendants.
	ReferenceNames() []string

	// Keys returns the node's raw case/selection keys rendered as
	// strings, used by validation and diagnostics.
	Keys() []string

	// Children returns the node's child slots that hold a nested Node
	// (terminal-only children, e.g. LinearInterpolation's, are
	// omitted). Used by required_parameters() to recursively collect
	// every parkey the tree reads.
	Children() []Node
}

// nodesOf filters a slice of Child down to the ones that are nested
// selector nodes, discarding terminal strings.
func nodesOf(children []Child) []Node {
	var out []Node
	for _, c := range children {
		if n, ok := c.(Node); ok {
			out = append(out, n)
		}
	}
	return out
}

// RequiredParameters walks root and returns the full set of parkey
// names read anywhere in the tree (the required_parameters(mapping)
// equivalent).
func RequiredParameters(root Node) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(n Node)
	walk = func(n Node) {
		for _, p := range n.Parameters() {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(root)
	return out
}

// Pair is the terminal LinearInterpolation returns: the bracketing
// reference pair, or the same name twice on an exact or boundary hit.
type Pair [2]string

// Child is the value half of a selector's case mapping: either a
// terminal basename (string) or a nested Node. It is evaluated by
// resolveChild.
type Child any

func resolveChild(child Child, hdr value.Header) (any, error) {
	switch c := child.(type) {
	case string:
		return c, nil
	case Node:
		return c.Choose(hdr)
	default:
		panic("selector: child is neither a string terminal nor a Node")
	}
}

func childReferenceNames(child Child) []string {
	switch c := child.(type) {
	case string:
		return []string{c}
	case Node:
		return c.ReferenceNames()
	default:
		return nil
	}
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
