// Package parser turns R source text into pkg/ast trees.
package parser

import (
	"fmt"
	"math"
	"strings"

	"rcore/interpreter-go/pkg/ast"
)

// ParseError reports a syntax error. Incomplete is set when the input ended
// inside an unfinished construct, which lets a REPL ask for more lines.
type ParseError struct {
	Message    string
	Line       int
	Column     int
	Incomplete bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// Parse parses a whole program.
func Parse(src string) (*ast.Program, error) {
	toks, err := newLexer(src).tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	body, err := p.parseSequence(tokEOF)
	if err != nil {
		return nil, err
	}
	prog := ast.NewProgram(body)
	prog.Source = src
	ast.SetSpan(prog, ast.Span{Start: ast.Position{Line: 1, Column: 1}, End: p.toks[len(p.toks)-1].pos})
	return prog, nil
}

// ParseExpression parses source that must contain exactly one expression.
func ParseExpression(src string) (ast.Expression, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	if len(prog.Body) != 1 {
		return nil, &ParseError{Message: fmt.Sprintf("expected a single expression, found %d", len(prog.Body)), Line: 1, Column: 1}
	}
	return prog.Body[0], nil
}

type parser struct {
	src     string
	toks    []token
	idx     int
	prevEnd ast.Position
	// Each entry records whether newlines are insignificant in the current
	// bracket context: true inside ( and [, false inside {.
	nlStack []bool
}

func (p *parser) ignoringNewlines() bool {
	return len(p.nlStack) > 0 && p.nlStack[len(p.nlStack)-1]
}

func (p *parser) push(ignoreNL bool) { p.nlStack = append(p.nlStack, ignoreNL) }
func (p *parser) pop()               { p.nlStack = p.nlStack[:len(p.nlStack)-1] }

func (p *parser) skipIgnored() {
	if !p.ignoringNewlines() {
		return
	}
	for p.toks[p.idx].kind == tokNewline {
		p.idx++
	}
}

func (p *parser) peek() token {
	p.skipIgnored()
	return p.toks[p.idx]
}

// peekAfter returns the token following the current one, skipping newlines
// when they are insignificant.
func (p *parser) peekAfter() token {
	p.skipIgnored()
	j := p.idx + 1
	if p.ignoringNewlines() {
		for j < len(p.toks) && p.toks[j].kind == tokNewline {
			j++
		}
	}
	if j >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[j]
}

func (p *parser) advance() token {
	tok := p.peek()
	if tok.kind != tokEOF {
		p.idx++
	}
	p.prevEnd = tok.end
	return tok
}

func (p *parser) skipNewlines() {
	for p.toks[p.idx].kind == tokNewline {
		p.idx++
	}
}

func (p *parser) unexpected(tok token) *ParseError {
	if tok.kind == tokEOF {
		return &ParseError{Message: "unexpected end of input", Line: tok.pos.Line, Column: tok.pos.Column, Incomplete: true}
	}
	desc := tok.kind.String()
	switch tok.kind {
	case tokKeyword:
		desc = "'" + tok.text + "'"
		if tok.text == "TRUE" || tok.text == "FALSE" || tok.text == "NULL" || strings.HasPrefix(tok.text, "NA") || tok.text == "Inf" || tok.text == "NaN" {
			desc = "numeric constant"
		}
	case tokOperator:
		desc = "'" + tok.text + "'"
		if tok.text == "=" || tok.text == "<-" || tok.text == "<<-" {
			desc = "assignment"
		}
	}
	return &ParseError{Message: "unexpected " + desc, Line: tok.pos.Line, Column: tok.pos.Column}
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.peek()
	if tok.kind != kind {
		return tok, p.unexpected(tok)
	}
	return p.advance(), nil
}

func (p *parser) expectKeyword(word string) error {
	tok := p.peek()
	if tok.kind != tokKeyword || tok.text != word {
		return p.unexpected(tok)
	}
	p.advance()
	return nil
}

func (p *parser) finish(node ast.Node, start ast.Position) {
	ast.SetSpan(node, ast.Span{Start: start, End: p.prevEnd})
}

// parseSequence parses newline or semicolon separated expressions until the
// closing token (EOF or '}').
func (p *parser) parseSequence(closing tokenKind) ([]ast.Expression, error) {
	var body []ast.Expression
	for {
		for k := p.toks[p.idx].kind; k == tokNewline || k == tokSemicolon; k = p.toks[p.idx].kind {
			p.idx++
		}
		if p.toks[p.idx].kind == closing {
			return body, nil
		}
		expr, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		body = append(body, expr)
		switch tok := p.toks[p.idx]; tok.kind {
		case tokNewline, tokSemicolon:
		default:
			if tok.kind != closing {
				return nil, p.unexpected(tok)
			}
		}
	}
}

const (
	precEquals   = 2
	precAssign   = 3
	precRight    = 4
	precTilde    = 5
	precOr       = 6
	precAnd      = 7
	precNot      = 8
	precCompare  = 9
	precSum      = 10
	precProduct  = 11
	precSpecial  = 12
	precColon    = 13
	precUnary    = 14
	precPower    = 15
	precPostfix  = 16
	precNamespce = 17
)

// Binding powers: left-associative operators bind (2p, 2p+1), right
// associative ones (2p+1, 2p).
func bindingPower(tok token) (lbp, rbp int, ok bool) {
	left := func(prec int) (int, int, bool) { return prec * 2, prec*2 + 1, true }
	right := func(prec int) (int, int, bool) { return prec*2 + 1, prec * 2, true }
	switch tok.kind {
	case tokLParen, tokLBracket, tokLBB:
		return left(precPostfix)
	case tokOperator:
	default:
		return 0, 0, false
	}
	switch tok.text {
	case "=":
		return right(precEquals)
	case "<-", "<<-":
		return right(precAssign)
	case "->", "->>":
		return left(precRight)
	case "~":
		return left(precTilde)
	case "||", "|":
		return left(precOr)
	case "&&", "&":
		return left(precAnd)
	case "==", "!=", "<", ">", "<=", ">=":
		return left(precCompare)
	case "+", "-":
		return left(precSum)
	case "*", "/":
		return left(precProduct)
	case "|>":
		return left(precSpecial)
	case ":":
		return left(precColon)
	case "^", "**":
		return right(precPower)
	case "$", "@":
		return left(precPostfix)
	case "::":
		return left(precNamespce)
	}
	if strings.HasPrefix(tok.text, "%") {
		return left(precSpecial)
	}
	return 0, 0, false
}

func (p *parser) parseExpr(minBP int) (ast.Expression, error) {
	start := p.peek().pos
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		lbp, rbp, ok := bindingPower(tok)
		if !ok || lbp < minBP {
			return left, nil
		}
		p.advance()
		switch {
		case tok.kind == tokLParen:
			args, err := p.parseArgs(tokRParen)
			if err != nil {
				return nil, err
			}
			left = ast.NewCallExpression(left, args, ast.FormPrefix)
		case tok.kind == tokLBracket:
			args, err := p.parseArgs(tokRBracket)
			if err != nil {
				return nil, err
			}
			left = ast.NewCallExpression(ast.NewIdentifier("["), append([]*ast.Argument{ast.Arg(left)}, args...), ast.FormIndex)
		case tok.kind == tokLBB:
			args, err := p.parseArgs(tokRBracket)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBracket); err != nil {
				return nil, err
			}
			left = ast.NewCallExpression(ast.NewIdentifier("[["), append([]*ast.Argument{ast.Arg(left)}, args...), ast.FormIndex2)
		case tok.text == "$" || tok.text == "@":
			name, err := p.parseMemberName()
			if err != nil {
				return nil, err
			}
			form := ast.FormDollar
			if tok.text == "@" {
				form = ast.FormAt
			}
			left = ast.NewCallExpression(ast.NewIdentifier(tok.text), []*ast.Argument{ast.Arg(left), ast.Arg(name)}, form)
		default:
			p.skipNewlines()
			right, err := p.parseExpr(rbp)
			if err != nil {
				return nil, err
			}
			left, err = p.makeBinary(tok, left, right)
			if err != nil {
				return nil, err
			}
		}
		p.finish(left, start)
	}
}

func (p *parser) makeBinary(op token, left, right ast.Expression) (ast.Expression, error) {
	switch op.text {
	case "<-":
		return ast.NewAssignmentExpression(ast.AssignLocal, left, right), nil
	case "<<-":
		return ast.NewAssignmentExpression(ast.AssignSuper, left, right), nil
	case "=":
		return ast.NewAssignmentExpression(ast.AssignEquals, left, right), nil
	case "->":
		return ast.NewAssignmentExpression(ast.AssignLocal, right, left), nil
	case "->>":
		return ast.NewAssignmentExpression(ast.AssignSuper, right, left), nil
	case "**":
		return ast.Binary("^", left, right), nil
	case "|>":
		call, ok := right.(*ast.CallExpression)
		if !ok || call.Form != ast.FormPrefix {
			return nil, &ParseError{Message: "The pipe operator requires a function call as RHS", Line: op.pos.Line, Column: op.pos.Column}
		}
		args := append([]*ast.Argument{ast.Arg(left)}, call.Args...)
		return ast.NewCallExpression(call.Function, args, ast.FormPrefix), nil
	}
	return ast.Binary(op.text, left, right), nil
}

func (p *parser) parseMemberName() (ast.Expression, error) {
	tok := p.peek()
	switch tok.kind {
	case tokSymbol, tokString, tokKeyword:
		p.advance()
		id := ast.NewIdentifier(tok.text)
		ast.SetSpan(id, ast.Span{Start: tok.pos, End: tok.end})
		return id, nil
	}
	return nil, p.unexpected(tok)
}

// parseArgs parses a comma separated argument list up to the closing token.
// Empty arguments are kept as nil values (x[, 1], alist(a = )).
func (p *parser) parseArgs(closing tokenKind) ([]*ast.Argument, error) {
	p.push(true)
	defer p.pop()
	var args []*ast.Argument
	if p.peek().kind == closing {
		p.advance()
		return args, nil
	}
	for {
		arg := &ast.Argument{}
		tok := p.peek()
		if next := p.peekAfter(); next.kind == tokOperator && next.text == "=" &&
			(tok.kind == tokSymbol || tok.kind == tokString || (tok.kind == tokKeyword && tok.text == "NULL")) {
			p.advance()
			p.advance()
			arg.Name = tok.text
			arg.Named = true
		}
		if k := p.peek().kind; k != tokComma && k != closing {
			value, err := p.parseExpr(precEquals*2 + 2)
			if err != nil {
				return nil, err
			}
			arg.Value = value
		}
		args = append(args, arg)
		tok = p.advance()
		switch tok.kind {
		case tokComma:
			continue
		case closing:
			return args, nil
		default:
			return nil, p.unexpected(tok)
		}
	}
}

func (p *parser) parsePrefix() (ast.Expression, error) {
	tok := p.peek()
	start := tok.pos
	var node ast.Expression
	switch tok.kind {
	case tokNumber:
		p.advance()
		node = ast.NewNumericLiteral(tok.num)
	case tokInteger:
		p.advance()
		if tok.num == math.Trunc(tok.num) && tok.num <= math.MaxInt32 {
			node = ast.NewIntegerLiteral(int32(tok.num))
		} else {
			node = ast.NewNumericLiteral(tok.num)
		}
	case tokComplex:
		p.advance()
		node = ast.NewComplexLiteral(tok.num)
	case tokString:
		p.advance()
		node = ast.NewStringLiteral(tok.text)
	case tokSymbol:
		p.advance()
		node = ast.NewIdentifier(tok.text)
	case tokKeyword:
		return p.parseKeyword(tok)
	case tokLParen:
		p.advance()
		p.push(true)
		inner, err := p.parseExpr(0)
		if err != nil {
			p.pop()
			return nil, err
		}
		_, err = p.expect(tokRParen)
		p.pop()
		if err != nil {
			return nil, err
		}
		node = ast.NewParenExpression(inner)
	case tokLBrace:
		p.advance()
		p.push(false)
		body, err := p.parseSequence(tokRBrace)
		p.pop()
		if err != nil {
			return nil, err
		}
		p.advance()
		node = ast.NewBlockExpression(body)
	case tokOperator:
		switch tok.text {
		case "-", "+":
			p.advance()
			operand, err := p.parseExpr(precUnary * 2)
			if err != nil {
				return nil, err
			}
			node = ast.NewCallExpression(ast.NewIdentifier(tok.text), []*ast.Argument{ast.Arg(operand)}, ast.FormUnary)
		case "!":
			p.advance()
			operand, err := p.parseExpr(precNot * 2)
			if err != nil {
				return nil, err
			}
			node = ast.NewCallExpression(ast.NewIdentifier("!"), []*ast.Argument{ast.Arg(operand)}, ast.FormUnary)
		case "~":
			p.advance()
			operand, err := p.parseExpr(precTilde*2 + 1)
			if err != nil {
				return nil, err
			}
			node = ast.NewCallExpression(ast.NewIdentifier("~"), []*ast.Argument{ast.Arg(operand)}, ast.FormUnary)
		case "\\":
			return p.parseFunction(tok)
		default:
			return nil, p.unexpected(tok)
		}
	default:
		return nil, p.unexpected(tok)
	}
	p.finish(node, start)
	return node, nil
}

func (p *parser) parseKeyword(tok token) (ast.Expression, error) {
	start := tok.pos
	var node ast.Expression
	switch tok.text {
	case "TRUE":
		node = ast.NewLogicalLiteral(ast.LogicalTrue)
	case "FALSE":
		node = ast.NewLogicalLiteral(ast.LogicalFalse)
	case "NA":
		node = ast.NewLogicalLiteral(ast.LogicalNA)
	case "NULL":
		node = ast.NewNullLiteral()
	case "NA_integer_":
		lit := ast.NewIntegerLiteral(0)
		lit.NA = true
		node = lit
	case "NA_real_":
		lit := ast.NewNumericLiteral(math.NaN())
		lit.NA = true
		node = lit
	case "NA_character_":
		lit := ast.NewStringLiteral("")
		lit.NA = true
		node = lit
	case "Inf":
		node = ast.NewNumericLiteral(math.Inf(1))
	case "NaN":
		node = ast.NewNumericLiteral(math.NaN())
	case "break":
		node = ast.NewBreakExpression()
	case "next":
		node = ast.NewNextExpression()
	case "function":
		return p.parseFunction(tok)
	case "if":
		return p.parseIf(tok)
	case "for":
		return p.parseFor(tok)
	case "while":
		return p.parseWhile(tok)
	case "repeat":
		p.advance()
		body, err := p.parseBody()
		if err != nil {
			return nil, err
		}
		node = ast.NewRepeatLoop(body)
		p.finish(node, start)
		return node, nil
	default:
		return nil, p.unexpected(tok)
	}
	p.advance()
	p.finish(node, start)
	return node, nil
}

// parseBody parses the body of a control construct; newlines may precede it.
func (p *parser) parseBody() (ast.Expression, error) {
	p.skipNewlines()
	return p.parseExpr(precEquals * 2)
}

func (p *parser) parseCondition() (ast.Expression, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	p.push(true)
	cond, err := p.parseExpr(0)
	if err == nil {
		_, err = p.expect(tokRParen)
	}
	p.pop()
	return cond, err
}

func (p *parser) parseIf(tok token) (ast.Expression, error) {
	p.advance()
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	var els ast.Expression
	// `else` on a following line only continues the if inside braces or
	// parentheses; at top level the newline ends the expression.
	save := p.idx
	if len(p.nlStack) > 0 {
		p.skipNewlines()
	}
	if next := p.peek(); next.kind == tokKeyword && next.text == "else" {
		p.advance()
		els, err = p.parseBody()
		if err != nil {
			return nil, err
		}
	} else {
		p.idx = save
	}
	node := ast.NewIfExpression(cond, then, els)
	p.finish(node, tok.pos)
	return node, nil
}

func (p *parser) parseFor(tok token) (ast.Expression, error) {
	p.advance()
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	p.push(true)
	variable, err := p.expect(tokSymbol)
	if err == nil {
		err = p.expectKeyword("in")
	}
	var seq ast.Expression
	if err == nil {
		seq, err = p.parseExpr(0)
	}
	if err == nil {
		_, err = p.expect(tokRParen)
	}
	p.pop()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	node := ast.NewForLoop(variable.text, seq, body)
	p.finish(node, tok.pos)
	return node, nil
}

func (p *parser) parseWhile(tok token) (ast.Expression, error) {
	p.advance()
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	node := ast.NewWhileLoop(cond, body)
	p.finish(node, tok.pos)
	return node, nil
}

func (p *parser) parseFunction(tok token) (ast.Expression, error) {
	p.advance()
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	p.push(true)
	params, err := p.parseParams()
	p.pop()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	fn := ast.NewFunctionLiteral(params, body)
	p.finish(fn, tok.pos)
	fn.Source = p.src[tok.pos.Offset:p.prevEnd.Offset]
	return fn, nil
}

func (p *parser) parseParams() ([]*ast.Parameter, error) {
	var params []*ast.Parameter
	if p.peek().kind == tokRParen {
		p.advance()
		return params, nil
	}
	seen := map[string]bool{}
	for {
		name, err := p.expect(tokSymbol)
		if err != nil {
			return nil, err
		}
		if seen[name.text] {
			return nil, &ParseError{Message: fmt.Sprintf("repeated formal argument '%s'", name.text), Line: name.pos.Line, Column: name.pos.Column}
		}
		seen[name.text] = true
		param := &ast.Parameter{Name: name.text}
		if next := p.peek(); next.kind == tokOperator && next.text == "=" {
			p.advance()
			def, err := p.parseExpr(precEquals*2 + 2)
			if err != nil {
				return nil, err
			}
			param.Default = def
		}
		params = append(params, param)
		tok := p.advance()
		switch tok.kind {
		case tokComma:
		case tokRParen:
			return params, nil
		default:
			return nil, p.unexpected(tok)
		}
	}
}
