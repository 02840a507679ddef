package scriptify

import (
	"reflect"
	"strconv"
)

// NodeKind identifies the concrete type of an expression Node.
type NodeKind uint8

const (
	KindLambda NodeKind = iota + 1
	KindBinary
	KindUnary
	KindMember
	KindParameter
	KindConstant
	KindCall
	KindConditional
	KindConstruct
	KindNewArray
)

var nodeKindNames = [...]string{
	KindLambda:      "Lambda",
	KindBinary:      "Binary",
	KindUnary:       "Unary",
	KindMember:      "Member",
	KindParameter:   "Parameter",
	KindConstant:    "Constant",
	KindCall:        "Call",
	KindConditional: "Conditional",
	KindConstruct:   "Construct",
	KindNewArray:    "NewArray",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeKindNames) && nodeKindNames[k] != "" {
		return nodeKindNames[k]
	}
	return "NodeKind(" + strconv.Itoa(int(k)) + ")"
}

// Op is the operator carried by a BinaryExpr or UnaryExpr.
type Op uint8

const (
	OpAdd Op = iota + 1
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpAnd
	OpAndAlso
	OpOr
	OpOrElse
	OpExclusiveOr
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpEqual
	OpNotEqual
	// host only binary operators, foldable but without a script form
	OpLeftShift
	OpRightShift
	OpAndNot

	OpUnaryPlus
	OpNegate
	OpNot
	// OpConvert is a value conversion, T(x).
	OpConvert
	// OpTypeAs is a reference type test, x.(T) yielding the zero value on mismatch.
	OpTypeAs
	// OpQuote wraps a nested lambda passed as an expression argument.
	OpQuote
)

var opNames = [...]string{
	OpAdd:                "Add",
	OpSubtract:           "Subtract",
	OpMultiply:           "Multiply",
	OpDivide:             "Divide",
	OpModulo:             "Modulo",
	OpAnd:                "And",
	OpAndAlso:            "AndAlso",
	OpOr:                 "Or",
	OpOrElse:             "OrElse",
	OpExclusiveOr:        "ExclusiveOr",
	OpLessThan:           "LessThan",
	OpLessThanOrEqual:    "LessThanOrEqual",
	OpGreaterThan:        "GreaterThan",
	OpGreaterThanOrEqual: "GreaterThanOrEqual",
	OpEqual:              "Equal",
	OpNotEqual:           "NotEqual",
	OpLeftShift:          "LeftShift",
	OpRightShift:         "RightShift",
	OpAndNot:             "AndNot",
	OpUnaryPlus:          "UnaryPlus",
	OpNegate:             "Negate",
	OpNot:                "Not",
	OpConvert:            "Convert",
	OpTypeAs:             "TypeAs",
	OpQuote:              "Quote",
}

func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return "Op(" + strconv.Itoa(int(o)) + ")"
}

// isComparison reports if the operator always yields a boolean.
func (o Op) isComparison() bool {
	switch o {
	case OpLessThan, OpLessThanOrEqual, OpGreaterThan, OpGreaterThanOrEqual, OpEqual, OpNotEqual,
		OpAndAlso, OpOrElse:
		return true
	default:
		return false
	}
}

// Node is a typed expression tree node. The set of implementations is closed to this package.
type Node interface {
	Kind() NodeKind
	// Type returns the static host type of the expression, nil when unknown.
	Type() reflect.Type
	exprNode()
}

// LambdaExpr is a function literal; the root of every compile.
type LambdaExpr struct {
	Params     []*ParameterExpr
	Body       Node
	StaticType reflect.Type
}

// BinaryExpr applies Op to Left and Right. Method is set when the operator resolves to a host overload.
type BinaryExpr struct {
	Op          Op
	Left, Right Node
	Method      *Method
	StaticType  reflect.Type
}

// UnaryExpr applies Op to Operand. For OpConvert and OpTypeAs the StaticType is the target type.
type UnaryExpr struct {
	Op         Op
	Operand    Node
	StaticType reflect.Type
}

// MemberExpr reads Member from Object, Object is nil for static members.
type MemberExpr struct {
	Object     Node
	Member     *Member
	StaticType reflect.Type
}

// ParameterExpr references a lambda parameter.
type ParameterExpr struct {
	Name       string
	StaticType reflect.Type
}

// ConstantExpr holds a host value captured at authoring time.
type ConstantExpr struct {
	Value      any
	StaticType reflect.Type
}

// CallExpr invokes Method on Receiver with Args, Receiver is nil for static calls.
type CallExpr struct {
	Receiver   Node
	Method     *Method
	Args       []Node
	StaticType reflect.Type
}

// ConditionalExpr is the ternary Test ? IfTrue : IfFalse.
type ConditionalExpr struct {
	Test, IfTrue, IfFalse Node
	StaticType            reflect.Type
}

// ConstructExpr creates a host object through Ctor, or positionally fills a struct when Ctor is nil.
type ConstructExpr struct {
	Ctor       *Method
	Args       []Node
	StaticType reflect.Type
}

// NewArrayExpr is a literal slice construction, used for variadic arguments.
type NewArrayExpr struct {
	Elems      []Node
	StaticType reflect.Type // slice type
}

func (*LambdaExpr) Kind() NodeKind      { return KindLambda }
func (*BinaryExpr) Kind() NodeKind      { return KindBinary }
func (*UnaryExpr) Kind() NodeKind       { return KindUnary }
func (*MemberExpr) Kind() NodeKind      { return KindMember }
func (*ParameterExpr) Kind() NodeKind   { return KindParameter }
func (*ConstantExpr) Kind() NodeKind    { return KindConstant }
func (*CallExpr) Kind() NodeKind        { return KindCall }
func (*ConditionalExpr) Kind() NodeKind { return KindConditional }
func (*ConstructExpr) Kind() NodeKind   { return KindConstruct }
func (*NewArrayExpr) Kind() NodeKind    { return KindNewArray }

func (n *LambdaExpr) Type() reflect.Type      { return n.StaticType }
func (n *BinaryExpr) Type() reflect.Type      { return n.StaticType }
func (n *UnaryExpr) Type() reflect.Type       { return n.StaticType }
func (n *MemberExpr) Type() reflect.Type      { return n.StaticType }
func (n *ParameterExpr) Type() reflect.Type   { return n.StaticType }
func (n *CallExpr) Type() reflect.Type        { return n.StaticType }
func (n *ConditionalExpr) Type() reflect.Type { return n.StaticType }
func (n *ConstructExpr) Type() reflect.Type   { return n.StaticType }
func (n *NewArrayExpr) Type() reflect.Type    { return n.StaticType }

func (n *ConstantExpr) Type() reflect.Type {
	if n.StaticType == nil && n.Value != nil {
		return reflect.TypeOf(n.Value)
	}
	return n.StaticType
}

func (*LambdaExpr) exprNode()      {}
func (*BinaryExpr) exprNode()      {}
func (*UnaryExpr) exprNode()       {}
func (*MemberExpr) exprNode()      {}
func (*ParameterExpr) exprNode()   {}
func (*ConstantExpr) exprNode()    {}
func (*CallExpr) exprNode()        {}
func (*ConditionalExpr) exprNode() {}
func (*ConstructExpr) exprNode()   {}
func (*NewArrayExpr) exprNode()    {}
