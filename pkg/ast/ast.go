package ast

type NodeType string

const (
	NodeProgram         NodeType = "Program"
	NodeIdentifier      NodeType = "Identifier"
	NodeNumericLiteral  NodeType = "NumericLiteral"
	NodeIntegerLiteral  NodeType = "IntegerLiteral"
	NodeComplexLiteral  NodeType = "ComplexLiteral"
	NodeStringLiteral   NodeType = "StringLiteral"
	NodeLogicalLiteral  NodeType = "LogicalLiteral"
	NodeNullLiteral     NodeType = "NullLiteral"
	NodeConstant        NodeType = "Constant"
	NodeCallExpression  NodeType = "CallExpression"
	NodeFunctionLiteral NodeType = "FunctionLiteral"
	NodeIfExpression    NodeType = "IfExpression"
	NodeForLoop         NodeType = "ForLoop"
	NodeWhileLoop       NodeType = "WhileLoop"
	NodeRepeatLoop      NodeType = "RepeatLoop"
	NodeBlockExpression NodeType = "BlockExpression"
	NodeParenExpression NodeType = "ParenExpression"
	NodeAssignment      NodeType = "AssignmentExpression"
	NodeBreakExpression NodeType = "BreakExpression"
	NodeNextExpression  NodeType = "NextExpression"
)

type Node interface {
	NodeType() NodeType
	Span() Span
	isNode()
}

type nodeImpl struct {
	Type NodeType `json:"type"`
	span Span
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n *nodeImpl) NodeType() NodeType { return n.Type }
func (n *nodeImpl) Span() Span         { return n.span }
func (n *nodeImpl) setSpan(span Span)  { n.span = span }
func (*nodeImpl) isNode()              {}

// Expression is any node that can be evaluated.
type Expression interface {
	Node
	expressionNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

// Program is a parsed top-level sequence.
type Program struct {
	nodeImpl

	Body   []Expression `json:"body"`
	Source string       `json:"-"`
}

func NewProgram(body []Expression) *Program {
	return &Program{nodeImpl: newNodeImpl(NodeProgram), Body: body}
}

// Identifier is a symbol reference. Backquoted names parse to identifiers too.
type Identifier struct {
	nodeImpl
	expressionMarker

	Name string `json:"name"`
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Name: name}
}

// NumericLiteral is a double constant; NA marks NA_real_.
type NumericLiteral struct {
	nodeImpl
	expressionMarker

	Value float64 `json:"value"`
	NA    bool    `json:"na,omitempty"`
}

func NewNumericLiteral(value float64) *NumericLiteral {
	return &NumericLiteral{nodeImpl: newNodeImpl(NodeNumericLiteral), Value: value}
}

type IntegerLiteral struct {
	nodeImpl
	expressionMarker

	Value int32 `json:"value"`
	NA    bool  `json:"na,omitempty"`
}

func NewIntegerLiteral(value int32) *IntegerLiteral {
	return &IntegerLiteral{nodeImpl: newNodeImpl(NodeIntegerLiteral), Value: value}
}

// ComplexLiteral is an imaginary constant such as 2i.
type ComplexLiteral struct {
	nodeImpl
	expressionMarker

	Imaginary float64 `json:"imaginary"`
}

func NewComplexLiteral(imaginary float64) *ComplexLiteral {
	return &ComplexLiteral{nodeImpl: newNodeImpl(NodeComplexLiteral), Imaginary: imaginary}
}

type StringLiteral struct {
	nodeImpl
	expressionMarker

	Value string `json:"value"`
	NA    bool   `json:"na,omitempty"`
}

func NewStringLiteral(value string) *StringLiteral {
	return &StringLiteral{nodeImpl: newNodeImpl(NodeStringLiteral), Value: value}
}

// LogicalValue mirrors the three-valued R logical.
type LogicalValue int

const (
	LogicalFalse LogicalValue = iota
	LogicalTrue
	LogicalNA
)

type LogicalLiteral struct {
	nodeImpl
	expressionMarker

	Value LogicalValue `json:"value"`
}

func NewLogicalLiteral(value LogicalValue) *LogicalLiteral {
	return &LogicalLiteral{nodeImpl: newNodeImpl(NodeLogicalLiteral), Value: value}
}

type NullLiteral struct {
	nodeImpl
	expressionMarker
}

func NewNullLiteral() *NullLiteral {
	return &NullLiteral{nodeImpl: newNodeImpl(NodeNullLiteral)}
}

// Constant embeds an already evaluated runtime value in a synthesized call
// (do.call, lapply). Text is used when the call is deparsed.
type Constant struct {
	nodeImpl
	expressionMarker

	Value any    `json:"-"`
	Text  string `json:"text"`
}

func NewConstant(value any, text string) *Constant {
	return &Constant{nodeImpl: newNodeImpl(NodeConstant), Value: value, Text: text}
}

// CallForm records the surface syntax a call was written in so it can be
// deparsed the same way.
type CallForm int

const (
	FormPrefix CallForm = iota
	FormInfix
	FormUnary
	FormIndex
	FormIndex2
	FormDollar
	FormAt
)

// Argument is a single actual argument. Value is nil for an empty argument
// such as the row position of x[, 1].
type Argument struct {
	Name  string     `json:"name,omitempty"`
	Named bool       `json:"named,omitempty"`
	Value Expression `json:"value"`
}

// CallExpression covers ordinary calls, operators and indexing.
type CallExpression struct {
	nodeImpl
	expressionMarker

	Function Expression  `json:"function"`
	Args     []*Argument `json:"args"`
	Form     CallForm    `json:"form"`
}

func NewCallExpression(fn Expression, args []*Argument, form CallForm) *CallExpression {
	return &CallExpression{nodeImpl: newNodeImpl(NodeCallExpression), Function: fn, Args: args, Form: form}
}

// FunctionName returns the callee symbol name when the function position is
// a plain identifier.
func (c *CallExpression) FunctionName() (string, bool) {
	if id, ok := c.Function.(*Identifier); ok {
		return id.Name, true
	}
	if s, ok := c.Function.(*StringLiteral); ok {
		return s.Value, true
	}
	return "", false
}

// Parameter is a formal argument; Default is nil when none was written.
type Parameter struct {
	Name    string     `json:"name"`
	Default Expression `json:"default,omitempty"`
}

type FunctionLiteral struct {
	nodeImpl
	expressionMarker

	Params []*Parameter `json:"params"`
	Body   Expression   `json:"body"`
	Source string       `json:"source,omitempty"`
}

func NewFunctionLiteral(params []*Parameter, body Expression) *FunctionLiteral {
	return &FunctionLiteral{nodeImpl: newNodeImpl(NodeFunctionLiteral), Params: params, Body: body}
}

type IfExpression struct {
	nodeImpl
	expressionMarker

	Condition Expression `json:"condition"`
	Then      Expression `json:"then"`
	Else      Expression `json:"else,omitempty"`
}

func NewIfExpression(cond, then, els Expression) *IfExpression {
	return &IfExpression{nodeImpl: newNodeImpl(NodeIfExpression), Condition: cond, Then: then, Else: els}
}

type ForLoop struct {
	nodeImpl
	expressionMarker

	Variable string     `json:"variable"`
	Sequence Expression `json:"sequence"`
	Body     Expression `json:"body"`
}

func NewForLoop(variable string, seq, body Expression) *ForLoop {
	return &ForLoop{nodeImpl: newNodeImpl(NodeForLoop), Variable: variable, Sequence: seq, Body: body}
}

type WhileLoop struct {
	nodeImpl
	expressionMarker

	Condition Expression `json:"condition"`
	Body      Expression `json:"body"`
}

func NewWhileLoop(cond, body Expression) *WhileLoop {
	return &WhileLoop{nodeImpl: newNodeImpl(NodeWhileLoop), Condition: cond, Body: body}
}

type RepeatLoop struct {
	nodeImpl
	expressionMarker

	Body Expression `json:"body"`
}

func NewRepeatLoop(body Expression) *RepeatLoop {
	return &RepeatLoop{nodeImpl: newNodeImpl(NodeRepeatLoop), Body: body}
}

type BlockExpression struct {
	nodeImpl
	expressionMarker

	Body []Expression `json:"body"`
}

func NewBlockExpression(body []Expression) *BlockExpression {
	return &BlockExpression{nodeImpl: newNodeImpl(NodeBlockExpression), Body: body}
}

type ParenExpression struct {
	nodeImpl
	expressionMarker

	Inner Expression `json:"inner"`
}

func NewParenExpression(inner Expression) *ParenExpression {
	return &ParenExpression{nodeImpl: newNodeImpl(NodeParenExpression), Inner: inner}
}

type AssignmentOperator string

const (
	AssignLocal  AssignmentOperator = "<-"
	AssignEquals AssignmentOperator = "="
	AssignSuper  AssignmentOperator = "<<-"
)

// AssignmentExpression is `target <- value`; right arrows are normalised by
// the parser.
type AssignmentExpression struct {
	nodeImpl
	expressionMarker

	Operator AssignmentOperator `json:"operator"`
	Target   Expression         `json:"target"`
	Value    Expression         `json:"value"`
}

func NewAssignmentExpression(op AssignmentOperator, target, value Expression) *AssignmentExpression {
	return &AssignmentExpression{nodeImpl: newNodeImpl(NodeAssignment), Operator: op, Target: target, Value: value}
}

// IsSuper reports whether the assignment targets an enclosing scope.
func (a *AssignmentExpression) IsSuper() bool {
	return a.Operator == AssignSuper
}

type BreakExpression struct {
	nodeImpl
	expressionMarker
}

func NewBreakExpression() *BreakExpression {
	return &BreakExpression{nodeImpl: newNodeImpl(NodeBreakExpression)}
}

type NextExpression struct {
	nodeImpl
	expressionMarker
}

func NewNextExpression() *NextExpression {
	return &NextExpression{nodeImpl: newNodeImpl(NodeNextExpression)}
}
