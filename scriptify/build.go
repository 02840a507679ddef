package scriptify

import "reflect"

var boolType = reflect.TypeOf(false)

// Lambda builds a function literal over params.
func Lambda(body Node, params ...*ParameterExpr) *LambdaExpr {
	return &LambdaExpr{Params: params, Body: body}
}

// Param builds a parameter reference.
func Param(name string, t reflect.Type) *ParameterExpr {
	return &ParameterExpr{Name: name, StaticType: t}
}

// Const builds a constant typed by its dynamic value.
func Const(v any) *ConstantExpr {
	return &ConstantExpr{Value: v}
}

// TypedConst builds a constant with an explicit static type, needed for nil values.
func TypedConst(v any, t reflect.Type) *ConstantExpr {
	return &ConstantExpr{Value: v, StaticType: t}
}

// Binary builds an operator node. Comparison and logical operators are typed bool, others take the type
// of the left operand.
func Binary(op Op, left, right Node) *BinaryExpr {
	t := left.Type()
	if op.isComparison() {
		t = boolType
	}
	return &BinaryExpr{Op: op, Left: left, Right: right, StaticType: t}
}

// Overload builds an operator node resolved to the host overload method.
func Overload(op Op, method *Method, left, right Node) *BinaryExpr {
	return &BinaryExpr{Op: op, Left: left, Right: right, Method: method, StaticType: method.Result}
}

// Unary builds an arithmetic or logical unary node typed by its operand.
func Unary(op Op, operand Node) *UnaryExpr {
	return &UnaryExpr{Op: op, Operand: operand, StaticType: operand.Type()}
}

// Convert builds the value conversion t(operand).
func Convert(operand Node, t reflect.Type) *UnaryExpr {
	return &UnaryExpr{Op: OpConvert, Operand: operand, StaticType: t}
}

// TypeAs builds the type test operand.(t).
func TypeAs(operand Node, t reflect.Type) *UnaryExpr {
	return &UnaryExpr{Op: OpTypeAs, Operand: operand, StaticType: t}
}

// Quote wraps a nested lambda passed as an expression argument.
func Quote(l *LambdaExpr) *UnaryExpr {
	return &UnaryExpr{Op: OpQuote, Operand: l, StaticType: l.Type()}
}

// Field builds a member read, pass a nil object for static members.
func Field(object Node, member *Member) *MemberExpr {
	return &MemberExpr{Object: object, Member: member, StaticType: member.Type}
}

// Call builds a method call, pass a nil receiver for static methods.
func Call(receiver Node, method *Method, args ...Node) *CallExpr {
	return &CallExpr{Receiver: receiver, Method: method, Args: args, StaticType: method.Result}
}

// Cond builds a conditional typed by its true branch.
func Cond(test, ifTrue, ifFalse Node) *ConditionalExpr {
	return &ConditionalExpr{Test: test, IfTrue: ifTrue, IfFalse: ifFalse, StaticType: ifTrue.Type()}
}

// New builds an object creation through a host constructor.
func New(ctor *Method, args ...Node) *ConstructExpr {
	return &ConstructExpr{Ctor: ctor, Args: args, StaticType: ctor.Result}
}

// NewArray builds a literal slice of elem values.
func NewArray(elem reflect.Type, elems ...Node) *NewArrayExpr {
	return &NewArrayExpr{Elems: elems, StaticType: reflect.SliceOf(elem)}
}
