package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"rcore/interpreter-go/pkg/ast"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNewline
	tokSemicolon
	tokComma
	tokNumber
	tokInteger
	tokComplex
	tokString
	tokSymbol
	tokKeyword
	tokOperator
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokLBracket
	tokLBB
	tokRBracket
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokNewline:
		return "newline"
	case tokSemicolon:
		return "';'"
	case tokComma:
		return "','"
	case tokNumber, tokInteger, tokComplex:
		return "numeric constant"
	case tokString:
		return "string constant"
	case tokSymbol:
		return "symbol"
	case tokKeyword:
		return "keyword"
	case tokOperator:
		return "operator"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	case tokLBracket:
		return "'['"
	case tokLBB:
		return "'[['"
	case tokRBracket:
		return "']'"
	default:
		return fmt.Sprintf("token(%d)", int(k))
	}
}

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  ast.Position
	end  ast.Position
}

var keywords = map[string]bool{
	"if": true, "else": true, "for": true, "in": true, "while": true, "repeat": true,
	"break": true, "next": true, "function": true, "TRUE": true, "FALSE": true,
	"NULL": true, "NA": true, "NA_integer_": true, "NA_real_": true,
	"NA_character_": true, "Inf": true, "NaN": true,
}

// Longest operators first.
var operators = []string{
	"<<-", "->>", "|>", "<-", "->", "<=", ">=", "==", "!=", "&&", "||", "::", "**",
	"+", "-", "*", "/", "^", "<", ">", "!", "&", "|", "~", "?", ":", "=", "$", "@", "\\",
}

type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) position() ast.Position {
	return ast.Position{Line: l.line, Column: l.col, Offset: l.pos}
}

func (l *lexer) advance(n int) {
	for k := 0; k < n && l.pos < len(l.src); k++ {
		if l.src[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

func (l *lexer) errorf(pos ast.Position, incomplete bool, format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), Line: pos.Line, Column: pos.Column, Incomplete: incomplete}
}

func (l *lexer) tokenize() ([]token, error) {
	var out []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.kind == tokEOF {
			return out, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\f' {
			l.advance(1)
			continue
		}
		if c == '#' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance(1)
			}
			continue
		}
		break
	}
	start := l.position()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start, end: start}, nil
	}
	emit := func(kind tokenKind, n int) (token, error) {
		text := l.src[l.pos : l.pos+n]
		l.advance(n)
		return token{kind: kind, text: text, pos: start, end: l.position()}, nil
	}
	c := l.src[l.pos]
	switch c {
	case '\n':
		return emit(tokNewline, 1)
	case ';':
		return emit(tokSemicolon, 1)
	case ',':
		return emit(tokComma, 1)
	case '(':
		return emit(tokLParen, 1)
	case ')':
		return emit(tokRParen, 1)
	case '{':
		return emit(tokLBrace, 1)
	case '}':
		return emit(tokRBrace, 1)
	case '[':
		if strings.HasPrefix(l.src[l.pos:], "[[") {
			return emit(tokLBB, 2)
		}
		return emit(tokLBracket, 1)
	case ']':
		return emit(tokRBracket, 1)
	case '"', '\'':
		return l.lexString(start, c)
	case '`':
		return l.lexBackquoted(start)
	case '%':
		end := strings.IndexByte(l.src[l.pos+1:], '%')
		if end < 0 || strings.ContainsRune(l.src[l.pos+1:l.pos+1+end], '\n') {
			return token{}, l.errorf(start, false, "unexpected input")
		}
		return emit(tokOperator, end+2)
	}
	if isDigit(c) || (c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])) {
		return l.lexNumber(start)
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	if c == '.' || unicode.IsLetter(r) {
		return l.lexSymbol(start)
	}
	for _, op := range operators {
		if strings.HasPrefix(l.src[l.pos:], op) {
			return emit(tokOperator, len(op))
		}
	}
	return token{}, l.errorf(start, false, "unexpected input")
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (l *lexer) lexSymbol(start ast.Position) (token, error) {
	end := l.pos
	for end < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' {
			end += size
			continue
		}
		break
	}
	text := l.src[l.pos:end]
	l.advance(end - l.pos)
	kind := tokSymbol
	if keywords[text] {
		kind = tokKeyword
	}
	return token{kind: kind, text: text, pos: start, end: l.position()}, nil
}

func (l *lexer) lexBackquoted(start ast.Position) (token, error) {
	var b strings.Builder
	p := l.pos + 1
	for p < len(l.src) {
		c := l.src[p]
		if c == '\\' && p+1 < len(l.src) {
			b.WriteByte(l.src[p+1])
			p += 2
			continue
		}
		if c == '`' {
			l.advance(p + 1 - l.pos)
			return token{kind: tokSymbol, text: b.String(), pos: start, end: l.position()}, nil
		}
		b.WriteByte(c)
		p++
	}
	return token{}, l.errorf(start, true, "unexpected INCOMPLETE_STRING")
}

func (l *lexer) lexNumber(start ast.Position) (token, error) {
	p := l.pos
	src := l.src
	var value float64
	if strings.HasPrefix(src[p:], "0x") || strings.HasPrefix(src[p:], "0X") {
		q := p + 2
		for q < len(src) && isHexDigit(src[q]) {
			q++
		}
		n, err := strconv.ParseUint(src[p+2:q], 16, 64)
		if err != nil {
			return token{}, l.errorf(start, false, "malformed hex constant %q", src[p:q])
		}
		value = float64(n)
		p = q
	} else {
		q := p
		for q < len(src) && isDigit(src[q]) {
			q++
		}
		if q < len(src) && src[q] == '.' {
			q++
			for q < len(src) && isDigit(src[q]) {
				q++
			}
		}
		if q < len(src) && (src[q] == 'e' || src[q] == 'E') {
			r := q + 1
			if r < len(src) && (src[r] == '+' || src[r] == '-') {
				r++
			}
			if r < len(src) && isDigit(src[r]) {
				for r < len(src) && isDigit(src[r]) {
					r++
				}
				q = r
			}
		}
		f, err := strconv.ParseFloat(src[p:q], 64)
		if err != nil {
			// Overflowing literals such as 1e400 become Inf.
			if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
				return token{}, l.errorf(start, false, "malformed numeric constant %q", src[p:q])
			}
		}
		value = f
		p = q
	}
	kind := tokNumber
	if p < len(src) {
		switch src[p] {
		case 'L':
			kind = tokInteger
			p++
		case 'i':
			kind = tokComplex
			p++
		}
	}
	text := src[l.pos:p]
	l.advance(p - l.pos)
	return token{kind: kind, text: text, num: value, pos: start, end: l.position()}, nil
}

func (l *lexer) lexString(start ast.Position, quote byte) (token, error) {
	var b strings.Builder
	p := l.pos + 1
	src := l.src
	for p < len(src) {
		c := src[p]
		if c == quote {
			l.advance(p + 1 - l.pos)
			return token{kind: tokString, text: b.String(), pos: start, end: l.position()}, nil
		}
		if c != '\\' {
			b.WriteByte(c)
			p++
			continue
		}
		if p+1 >= len(src) {
			break
		}
		e := src[p+1]
		p += 2
		switch e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '\\', '"', '\'', '`', ' ', '\n':
			b.WriteByte(e)
		case 'x':
			q := p
			for q < len(src) && q < p+2 && isHexDigit(src[q]) {
				q++
			}
			if q == p {
				return token{}, l.errorf(start, false, "'\\x' used without hex digits in character string")
			}
			n, _ := strconv.ParseUint(src[p:q], 16, 8)
			b.WriteByte(byte(n))
			p = q
		case 'u', 'U':
			limit := 4
			if e == 'U' {
				limit = 8
			}
			braced := p < len(src) && src[p] == '{'
			if braced {
				p++
			}
			q := p
			for q < len(src) && q < p+limit && isHexDigit(src[q]) {
				q++
			}
			if q == p {
				return token{}, l.errorf(start, false, "'\\%c' used without hex digits in character string", e)
			}
			n, _ := strconv.ParseUint(src[p:q], 16, 32)
			b.WriteRune(rune(n))
			p = q
			if braced && p < len(src) && src[p] == '}' {
				p++
			}
		default:
			return token{}, l.errorf(start, false, "'\\%c' is an unrecognized escape in character string", e)
		}
	}
	return token{}, l.errorf(start, true, "unexpected INCOMPLETE_STRING")
}
