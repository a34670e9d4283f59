package parser

import (
	"fmt"
	"strconv"

	"github.com/stsci-crds/crds-go/internal/crdserrors"
)

// File is the result of parsing one mapping file: exactly the two
// top-level assignments the grammar permits.
type File struct {
	Header   *Dict // required
	Selector Value // *Dict (tier 1/2) or *Call (tier 3, possibly nested)
}

// Parse parses the restricted grammar of src, returning a File or a
// *crdserrors.FormatError naming the offending line.
func Parse(name, src string) (*File, error) {
	p := &parserState{lex: newLexer(src), file: name}
	if err := p.advance(); err != nil {
		return nil, p.formatErr(err)
	}

	seen := map[string]bool{}
	f := &File{}
	for p.cur.kind != tokEOF {
		if p.cur.kind != tokIdent {
			return nil, p.errf("expected top-level assignment, found %s", describeToken(p.cur))
		}
		name := p.cur.text
		if name != "header" && name != "selector" {
			return nil, p.errf("unexpected top-level assignment %q (only 'header' and 'selector' are permitted)", name)
		}
		if seen[name] {
			return nil, p.errf("duplicate top-level assignment %q", name)
		}
		seen[name] = true
		if err := p.advance(); err != nil {
			return nil, p.formatErr(err)
		}
		if p.cur.kind != tokEquals {
			return nil, p.errf("expected '=' after %q", name)
		}
		if err := p.advance(); err != nil {
			return nil, p.formatErr(err)
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if name == "header" {
			d, ok := val.(*Dict)
			if !ok {
				return nil, p.errf("'header' must be a dict literal")
			}
			f.Header = d
		} else {
			f.Selector = val
		}
	}

	if f.Header == nil {
		return nil, &crdserrors.FormatError{File: name, Message: "missing required top-level assignment 'header'"}
	}
	if f.Selector == nil {
		return nil, &crdserrors.FormatError{File: name, Message: "missing required top-level assignment 'selector'"}
	}
	return f, nil
}

type parserState struct {
	lex  *lexer
	cur  token
	file string
}

func (p *parserState) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *parserState) errf(format string, args ...any) error {
	return &crdserrors.FormatError{File: p.file, Line: p.cur.line, Message: fmt.Sprintf(format, args...)}
}

func (p *parserState) formatErr(err error) error {
	return &crdserrors.FormatError{File: p.file, Line: p.cur.line, Message: err.Error()}
}

func describeToken(t token) string {
	switch t.kind {
	case tokEOF:
		return "end of file"
	case tokIdent:
		return fmt.Sprintf("identifier %q", t.text)
	case tokString:
		return fmt.Sprintf("string %q", t.text)
	case tokNumber:
		return fmt.Sprintf("number %q", t.text)
	default:
		return "token"
	}
}

// parseValue parses any expr production: dict, tuple, call, or literal.
func (p *parserState) parseValue() (Value, error) {
	switch p.cur.kind {
	case tokLBrace:
		return p.parseDict()
	case tokLParen:
		return p.parseTuple()
	case tokString:
		s := p.cur.text
		if err := p.advance(); err != nil {
			return nil, p.formatErr(err)
		}
		return s, nil
	case tokNumber:
		f, err := strconv.ParseFloat(p.cur.text, 64)
		if err != nil {
			return nil, p.errf("malformed numeric literal %q", p.cur.text)
		}
		if err := p.advance(); err != nil {
			return nil, p.formatErr(err)
		}
		return f, nil
	case tokIdent:
		return p.parseCall()
	default:
		return nil, p.errf("expected a value, found %s", describeToken(p.cur))
	}
}

func (p *parserState) parseCall() (Value, error) {
	name := p.cur.text
	line := p.cur.line
	if !registeredConstructors[name] {
		return nil, p.errf("unknown constructor %q (not in the registered selector registry)", name)
	}
	if err := p.advance(); err != nil {
		return nil, p.formatErr(err)
	}
	if p.cur.kind != tokLParen {
		return nil, p.errf("expected '(' after constructor %q", name)
	}
	if err := p.advance(); err != nil {
		return nil, p.formatErr(err)
	}
	arg, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokRParen {
		return nil, p.errf("expected ')' to close constructor %q", name)
	}
	if err := p.advance(); err != nil {
		return nil, p.formatErr(err)
	}
	return &Call{Name: name, Arg: arg, Line: line}, nil
}

// parseDict parses '{' (key ':' value (',' key ':' value)* ','?)? '}'.
func (p *parserState) parseDict() (Value, error) {
	if err := p.advance(); err != nil { // consume '{'
		return nil, p.formatErr(err)
	}
	d := &Dict{}
	for p.cur.kind != tokRBrace {
		key, err := p.parseDictKey()
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tokColon {
			return nil, p.errf("expected ':' after dict key")
		}
		if err := p.advance(); err != nil {
			return nil, p.formatErr(err)
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		d.Keys = append(d.Keys, key)
		d.Values = append(d.Values, val)

		if p.cur.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, p.formatErr(err)
			}
			continue
		}
		break
	}
	if p.cur.kind != tokRBrace {
		return nil, p.errf("expected '}' to close dict literal")
	}
	if err := p.advance(); err != nil {
		return nil, p.formatErr(err)
	}
	return d, nil
}

// parseDictKey parses a key literal: string, number, or a literal
// tuple (used for Match's multi-field case keys).
func (p *parserState) parseDictKey() (Value, error) {
	switch p.cur.kind {
	case tokString:
		s := p.cur.text
		if err := p.advance(); err != nil {
			return nil, p.formatErr(err)
		}
		return s, nil
	case tokNumber:
		f, err := strconv.ParseFloat(p.cur.text, 64)
		if err != nil {
			return nil, p.errf("malformed numeric literal %q", p.cur.text)
		}
		if err := p.advance(); err != nil {
			return nil, p.formatErr(err)
		}
		return f, nil
	case tokLParen:
		return p.parseTuple()
	default:
		return nil, p.errf("expected a literal dict key, found %s", describeToken(p.cur))
	}
}

// parseTuple parses '(' (value (',' value)* ','?)? ')'. Elements must
// themselves be literals (string/number/tuple); a tuple containing a
// dict or call has no production and is rejected by parseLiteralElem.
func (p *parserState) parseTuple() (Value, error) {
	if err := p.advance(); err != nil { // consume '('
		return nil, p.formatErr(err)
	}
	t := &Tuple{}
	for p.cur.kind != tokRParen {
		elem, err := p.parseLiteralElem()
		if err != nil {
			return nil, err
		}
		t.Elements = append(t.Elements, elem)
		if p.cur.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, p.formatErr(err)
			}
			continue
		}
		break
	}
	if p.cur.kind != tokRParen {
		return nil, p.errf("expected ')' to close tuple literal")
	}
	if err := p.advance(); err != nil {
		return nil, p.formatErr(err)
	}
	return t, nil
}

func (p *parserState) parseLiteralElem() (Value, error) {
	switch p.cur.kind {
	case tokString:
		s := p.cur.text
		if err := p.advance(); err != nil {
			return nil, p.formatErr(err)
		}
		return s, nil
	case tokNumber:
		f, err := strconv.ParseFloat(p.cur.text, 64)
		if err != nil {
			return nil, p.errf("malformed numeric literal %q", p.cur.text)
		}
		if err := p.advance(); err != nil {
			return nil, p.formatErr(err)
		}
		return f, nil
	case tokLParen:
		return p.parseTuple()
	default:
		return nil, p.errf("tuple elements must be literals, found %s", describeToken(p.cur))
	}
}
