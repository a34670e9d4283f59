package mapping

import (
	"fmt"
	"strconv"

	"github.com/stsci-crds/crds-go/internal/crdserrors"
	"github.com/stsci-crds/crds-go/internal/parser"
	"github.com/stsci-crds/crds-go/internal/selector"
)

// levelConsumers is the set of constructor names whose parameter list
// is bound from the header's parkey, one tuple per nesting level
// (a final pass binding each nesting level to
// its parkey tuple). VersionDep is deliberately excluded: its keys
// fix its parameter to sw_version, so it never consumes a parkey
// level. The restricted grammar's constructor calls take a single
// argument, so ClosestTime / ClosestGeometricRatio /
// LinearInterpolation, which the distilled Python source shows taking
// an explicit leading parameter-name argument, take their parameter
// name from their parkey level instead.
var levelConsumers = map[string]bool{
	"Match":                 true,
	"UseAfter":              true,
	"ClosestTime":           true,
	"ClosestGeometricRatio": true,
	"LinearInterpolation":   true,
}

// instantiator walks a parser.Value tree (built by the safe parser,
// containing only deferred *parser.Call nodes) into a concrete
// selector.Node tree, consuming one parkey level per nesting level
// that needs one.
type instantiator struct {
	file     string
	levels   [][]string
	declared map[string]map[string]bool // parameter -> declared value set, for Match's BadValueError checks; nil to skip
	subs     map[string]map[string]string
}

// Instantiate builds the concrete selector tree rooted at v (normally
// the reference tier's top-level 'selector' value, always a *parser.Call)
// against the header's declared parkey levels.
func Instantiate(file string, v parser.Value, levels [][]string, subs map[string]map[string]string, declared map[string]map[string]bool) (selector.Node, error) {
	in := &instantiator{file: file, levels: levels, declared: declared, subs: subs}
	return in.build(v, 0)
}

func (in *instantiator) build(v parser.Value, depth int) (selector.Node, error) {
	call, ok := v.(*parser.Call)
	if !ok {
		return nil, &crdserrors.FormatError{File: in.file, Message: "expected a selector constructor call"}
	}

	nextDepth := depth
	var params []string
	if levelConsumers[call.Name] {
		if depth >= len(in.levels) {
			return nil, &crdserrors.FormatError{File: in.file, Line: call.Line,
				Message: fmt.Sprintf("%s nests deeper than header['parkey'] declares levels for", call.Name)}
		}
		params = in.levels[depth]
		nextDepth = depth + 1
	}

	switch call.Name {
	case "Match":
		return in.buildMatch(call, params, nextDepth)
	case "UseAfter":
		return in.buildUseAfter(call, params, nextDepth)
	case "ClosestTime":
		return in.buildClosestTime(call, params, nextDepth)
	case "ClosestGeometricRatio":
		return in.buildClosestRatio(call, params, nextDepth)
	case "LinearInterpolation":
		return in.buildLinearInterpolation(call, params)
	case "VersionDep":
		return in.buildVersionDep(call, nextDepth)
	default:
		return nil, &crdserrors.FormatError{File: in.file, Line: call.Line, Message: "unknown constructor " + call.Name}
	}
}

// buildChildOrTerminal resolves a case's value: a nested constructor
// call recurses, otherwise it must be a terminal basename string.
func (in *instantiator) buildChildOrTerminal(v parser.Value, depth int) (selector.Child, error) {
	if call, ok := v.(*parser.Call); ok {
		return in.build(call, depth)
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return nil, &crdserrors.FormatError{File: in.file, Message: "selector case value must be a terminal string or a nested constructor call"}
}

func valueAsFieldKey(v parser.Value) (selector.FieldKey, error) {
	switch e := v.(type) {
	case string:
		return e, nil
	case float64:
		return formatNumericKey(e), nil
	case *parser.Tuple:
		alts := make([]string, len(e.Elements))
		for i, el := range e.Elements {
			s, ok := el.(string)
			if !ok {
				return nil, fmt.Errorf("alternation element must be a string literal")
			}
			alts[i] = s
		}
		return alts, nil
	default:
		return nil, fmt.Errorf("unsupported field key literal")
	}
}

func formatNumericKey(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func valueAsString(v parser.Value) (string, error) {
	switch e := v.(type) {
	case string:
		return e, nil
	case float64:
		return formatNumericKey(e), nil
	default:
		return "", fmt.Errorf("expected a scalar literal key")
	}
}

func (in *instantiator) subsForParams(params []string) []selector.Substitution {
	var out []selector.Substitution
	for _, p := range params {
		for from, to := range in.subs[p] {
			out = append(out, selector.Substitution{Parkey: p, From: from, To: to})
		}
	}
	return out
}

func (in *instantiator) buildMatch(call *parser.Call, params []string, childDepth int) (selector.Node, error) {
	d, ok := call.Arg.(*parser.Dict)
	if !ok {
		return nil, &crdserrors.FormatError{File: in.file, Line: call.Line, Message: "Match() argument must be a dict literal"}
	}
	nparams := len(params)
	cases := make([]selector.CaseEntry, 0, len(d.Keys))
	for i, k := range d.Keys {
		var fields []selector.FieldKey
		if t, ok := k.(*parser.Tuple); ok {
			fields = make([]selector.FieldKey, len(t.Elements))
			for j, el := range t.Elements {
				fk, err := valueAsFieldKey(el)
				if err != nil {
					return nil, &crdserrors.FormatError{File: in.file, Line: call.Line, Message: err.Error()}
				}
				fields[j] = fk
			}
		} else if nparams == 1 {
			fk, err := valueAsFieldKey(k)
			if err != nil {
				return nil, &crdserrors.FormatError{File: in.file, Line: call.Line, Message: err.Error()}
			}
			fields = []selector.FieldKey{fk}
		} else {
			return nil, &crdserrors.FormatError{File: in.file, Line: call.Line, Message: "Match case key must be a tuple unless there is exactly one parameter"}
		}
		child, err := in.buildChildOrTerminal(d.Values[i], childDepth)
		if err != nil {
			return nil, err
		}
		cases = append(cases, selector.CaseEntry{Key: fields, Child: child})
	}
	m, err := selector.NewMatch(params, cases, in.subsForParams(params), in.declared)
	if err != nil {
		return nil, err
	}
	m.SetLabel(in.file)
	return m, nil
}

func (in *instantiator) buildUseAfter(call *parser.Call, params []string, childDepth int) (selector.Node, error) {
	d, ok := call.Arg.(*parser.Dict)
	if !ok {
		return nil, &crdserrors.FormatError{File: in.file, Line: call.Line, Message: "UseAfter() argument must be a dict literal"}
	}
	rawKeys := make([]string, len(d.Keys))
	children := make([]selector.Child, len(d.Values))
	for i, k := range d.Keys {
		s, err := valueAsString(k)
		if err != nil {
			return nil, &crdserrors.FormatError{File: in.file, Line: call.Line, Message: err.Error()}
		}
		rawKeys[i] = s
		child, err := in.buildChildOrTerminal(d.Values[i], childDepth)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	u, err := selector.NewUseAfter(params, rawKeys, children)
	if err != nil {
		return nil, err
	}
	u.SetLabel(in.file)
	return u, nil
}

func (in *instantiator) buildClosestTime(call *parser.Call, params []string, childDepth int) (selector.Node, error) {
	d, ok := call.Arg.(*parser.Dict)
	if !ok {
		return nil, &crdserrors.FormatError{File: in.file, Line: call.Line, Message: "ClosestTime() argument must be a dict literal"}
	}
	param := soleParam(params)
	rawKeys := make([]string, len(d.Keys))
	children := make([]selector.Child, len(d.Values))
	for i, k := range d.Keys {
		s, err := valueAsString(k)
		if err != nil {
			return nil, &crdserrors.FormatError{File: in.file, Line: call.Line, Message: err.Error()}
		}
		rawKeys[i] = s
		child, err := in.buildChildOrTerminal(d.Values[i], childDepth)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	ct, err := selector.NewClosestTime(param, rawKeys, children)
	if err != nil {
		return nil, err
	}
	ct.SetLabel(in.file)
	return ct, nil
}

func (in *instantiator) buildClosestRatio(call *parser.Call, params []string, childDepth int) (selector.Node, error) {
	d, ok := call.Arg.(*parser.Dict)
	if !ok {
		return nil, &crdserrors.FormatError{File: in.file, Line: call.Line, Message: "ClosestGeometricRatio() argument must be a dict literal"}
	}
	param := soleParam(params)
	rawKeys := make([]string, len(d.Keys))
	children := make([]selector.Child, len(d.Values))
	for i, k := range d.Keys {
		s, err := valueAsString(k)
		if err != nil {
			return nil, &crdserrors.FormatError{File: in.file, Line: call.Line, Message: err.Error()}
		}
		rawKeys[i] = s
		child, err := in.buildChildOrTerminal(d.Values[i], childDepth)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	cgr, err := selector.NewClosestGeometricRatio(param, rawKeys, children)
	if err != nil {
		return nil, err
	}
	cgr.SetLabel(in.file)
	return cgr, nil
}

func (in *instantiator) buildLinearInterpolation(call *parser.Call, params []string) (selector.Node, error) {
	d, ok := call.Arg.(*parser.Dict)
	if !ok {
		return nil, &crdserrors.FormatError{File: in.file, Line: call.Line, Message: "LinearInterpolation() argument must be a dict literal"}
	}
	param := soleParam(params)
	rawKeys := make([]string, len(d.Keys))
	terminals := make([]string, len(d.Values))
	for i, k := range d.Keys {
		s, err := valueAsString(k)
		if err != nil {
			return nil, &crdserrors.FormatError{File: in.file, Line: call.Line, Message: err.Error()}
		}
		rawKeys[i] = s
		term, ok := d.Values[i].(string)
		if !ok {
			return nil, &crdserrors.FormatError{File: in.file, Line: call.Line, Message: "LinearInterpolation values must be terminal strings"}
		}
		terminals[i] = term
	}
	li, err := selector.NewLinearInterpolation(param, rawKeys, terminals)
	if err != nil {
		return nil, err
	}
	li.SetLabel(in.file)
	return li, nil
}

func (in *instantiator) buildVersionDep(call *parser.Call, childDepth int) (selector.Node, error) {
	d, ok := call.Arg.(*parser.Dict)
	if !ok {
		return nil, &crdserrors.FormatError{File: in.file, Line: call.Line, Message: "VersionDep() argument must be a dict literal"}
	}
	rawKeys := make([]string, len(d.Keys))
	children := make([]selector.Child, len(d.Values))
	for i, k := range d.Keys {
		s, err := valueAsString(k)
		if err != nil {
			return nil, &crdserrors.FormatError{File: in.file, Line: call.Line, Message: err.Error()}
		}
		rawKeys[i] = s
		child, err := in.buildChildOrTerminal(d.Values[i], childDepth)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	vd, err := selector.NewVersionDep(rawKeys, children)
	if err != nil {
		return nil, err
	}
	vd.SetLabel(in.file)
	return vd, nil
}

func soleParam(params []string) string {
	if len(params) == 0 {
		return ""
	}
	return params[0]
}
