package keyvalues

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokString
	tokOpen
	tokClose
)

type token struct {
	kind   tokenKind
	text   string
	line   int
	quoted bool
}

type lexer struct {
	src  string
	pos  int
	line int
}

func (lx *lexer) next() (token, error) {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\n':
			lx.line++
			lx.pos++
		case c == ' ' || c == '\t' || c == '\r':
			lx.pos++
		case c == '/' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '/':
			if end := strings.IndexByte(lx.src[lx.pos:], '\n'); end == -1 {
				lx.pos = len(lx.src)
			} else {
				lx.pos += end
			}
		case c == '{':
			lx.pos++
			return token{kind: tokOpen, line: lx.line}, nil
		case c == '}':
			lx.pos++
			return token{kind: tokClose, line: lx.line}, nil
		case c == '"':
			return lx.quoted()
		default:
			return lx.bare()
		}
	}
	return token{kind: tokEOF, line: lx.line}, nil
}

func (lx *lexer) quoted() (token, error) {
	start := lx.line
	lx.pos++ // opening quote
	var sb strings.Builder
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch c {
		case '"':
			lx.pos++
			return token{kind: tokString, text: sb.String(), line: start, quoted: true}, nil
		case '\\':
			if lx.pos+1 < len(lx.src) {
				lx.pos++
				switch esc := lx.src[lx.pos]; esc {
				case 'n':
					sb.WriteByte('\n')
				case 't':
					sb.WriteByte('\t')
				default:
					sb.WriteByte(esc)
				}
				lx.pos++
				continue
			}
			lx.pos++
		case '\n':
			// Quoted values never span lines in this format.
			return token{}, fmt.Errorf("line %d: %w", start, ErrUnclosedQuote)
		default:
			sb.WriteByte(c)
			lx.pos++
		}
	}
	return token{}, fmt.Errorf("line %d: %w", start, ErrUnclosedQuote)
}

func (lx *lexer) bare() (token, error) {
	start := lx.pos
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '{' || c == '}' || c == '"' {
			break
		}
		lx.pos++
	}
	return token{kind: tokString, text: lx.src[start:lx.pos], line: lx.line}, nil
}
