package source

import (
	"fmt"
	"strings"
	"unicode"
)

// openstepParser is a small recursive-descent parser for the OpenStep plist
// dialect used by Glyphs sources: dicts `{k = v; ...}`, arrays `(a, b)`,
// quoted and bare strings. Values decode to map[string]any, []any and
// string; numbers stay as strings since the build graph never does
// arithmetic on them.
type openstepParser struct {
	src []rune
	pos int
}

func parseOpenstep(raw string) (any, error) {
	p := &openstepParser{src: []rune(raw)}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errf("trailing content")
	}
	return v, nil
}

func (p *openstepParser) errf(format string, args ...any) error {
	return fmt.Errorf("plist offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *openstepParser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if unicode.IsSpace(c) {
			p.pos++
			continue
		}
		// Comments appear in hand-edited files.
		if c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '*' {
			end := strings.Index(string(p.src[p.pos+2:]), "*/")
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.pos += 2 + end + 2
			continue
		}
		return
	}
}

func (p *openstepParser) peek() (rune, bool) {
	if p.pos >= len(p.src) {
		return 0, false
	}
	return p.src[p.pos], true
}

func (p *openstepParser) value() (any, error) {
	c, ok := p.peek()
	if !ok {
		return nil, p.errf("unexpected end of input")
	}
	switch c {
	case '{':
		return p.dict()
	case '(':
		return p.array()
	case '"':
		return p.quotedString()
	default:
		return p.bareString()
	}
}

func (p *openstepParser) dict() (map[string]any, error) {
	p.pos++ // consume '{'
	out := make(map[string]any)
	for {
		p.skipSpace()
		c, ok := p.peek()
		if !ok {
			return nil, p.errf("unterminated dict")
		}
		if c == '}' {
			p.pos++
			return out, nil
		}
		key, err := p.value()
		if err != nil {
			return nil, err
		}
		keyStr, ok := key.(string)
		if !ok {
			return nil, p.errf("dict key is not a string")
		}
		p.skipSpace()
		if c, _ := p.peek(); c != '=' {
			return nil, p.errf("expected '=' after key %q", keyStr)
		}
		p.pos++
		p.skipSpace()
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		out[keyStr] = val
		p.skipSpace()
		if c, _ := p.peek(); c == ';' {
			p.pos++
		}
	}
}

func (p *openstepParser) array() ([]any, error) {
	p.pos++ // consume '('
	var out []any
	for {
		p.skipSpace()
		c, ok := p.peek()
		if !ok {
			return nil, p.errf("unterminated array")
		}
		if c == ')' {
			p.pos++
			return out, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		if c, _ := p.peek(); c == ',' {
			p.pos++
		}
	}
}

func (p *openstepParser) quotedString() (string, error) {
	p.pos++ // consume '"'
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '"':
			p.pos++
			return b.String(), nil
		case '\\':
			p.pos++
			if p.pos >= len(p.src) {
				return "", p.errf("unterminated escape")
			}
			switch e := p.src[p.pos]; e {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			default:
				b.WriteRune(e)
			}
			p.pos++
		default:
			b.WriteRune(c)
			p.pos++
		}
	}
	return "", p.errf("unterminated string")
}

// bareString consumes an unquoted token: identifiers, numbers, paths.
func (p *openstepParser) bareString() (string, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if unicode.IsSpace(c) || strings.ContainsRune("{}();,=", c) {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return "", p.errf("unexpected character %q", p.src[p.pos])
	}
	return string(p.src[start:p.pos]), nil
}
