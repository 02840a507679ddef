package scriptify

import (
	"reflect"
	"strings"
)

var binaryOperators = map[Op]string{
	OpAdd:                "+",
	OpSubtract:           "-",
	OpMultiply:           "*",
	OpDivide:             "/",
	OpModulo:             "%",
	OpAnd:                "&",
	OpAndAlso:            "&&",
	OpOr:                 "|",
	OpOrElse:             "||",
	OpExclusiveOr:        "^",
	OpLessThan:           "<",
	OpLessThanOrEqual:    "<=",
	OpGreaterThan:        ">",
	OpGreaterThanOrEqual: ">=",
	OpEqual:              "==",
	OpNotEqual:           "!=",
}

// evaluator walks one expression tree, deciding per node whether it can still be folded on the host.
type evaluator struct {
	registry *Registry
	values   stringifier
}

func (e *evaluator) eval(n Node) (Result, error) {
	switch x := n.(type) {
	case *LambdaExpr:
		return e.evalLambda(x)
	case *BinaryExpr:
		return e.evalBinary(x)
	case *UnaryExpr:
		return e.evalUnary(x)
	case *MemberExpr:
		return e.evalMember(x)
	case *ParameterExpr:
		return Committed(x.Name), nil // only known once the compiled function runs
	case *ConstantExpr:
		return Deferred(x), nil
	case *CallExpr:
		return e.evalCall(x)
	case *ConditionalExpr:
		return e.evalConditional(x)
	case *ConstructExpr:
		return Deferred(x), nil
	case nil:
		return Result{}, &UnsupportedError{Detail: "nil node"}
	default:
		return Result{}, unsupported(n, "no script translation")
	}
}

// commit turns a result into script text, folding a Deferred result through the host.
func (e *evaluator) commit(r Result) (script, error) {
	if !r.IsDeferred() {
		return r.script, nil
	}
	v, err := materialize(r.node)
	if err != nil {
		return script{}, err
	}
	text, err := e.values.Stringify(v)
	if err != nil {
		return script{}, err
	}
	return plainScript(text), nil
}

func (e *evaluator) commitAll(results []Result) ([]script, error) {
	scripts := make([]script, len(results))
	for i, r := range results {
		s, err := e.commit(r)
		if err != nil {
			return nil, err
		}
		scripts[i] = s
	}
	return scripts, nil
}

func (e *evaluator) evalLambda(x *LambdaExpr) (Result, error) {
	body, err := e.eval(x.Body)
	if err != nil {
		return Result{}, err
	}
	bodyScript, err := e.commit(body)
	if err != nil {
		return Result{}, err
	}
	names := make([]string, len(x.Params))
	for i, p := range x.Params {
		names[i] = p.Name
	}

	var b scriptBuilder
	b.WriteString("(" + strings.Join(names, ",") + ")=>")
	b.WriteScript(bodyScript)
	return committedScript(b.Script()), nil
}

func (e *evaluator) evalBinary(x *BinaryExpr) (Result, error) {
	left, err := e.eval(x.Left)
	if err != nil {
		return Result{}, err
	}
	right, err := e.eval(x.Right)
	if err != nil {
		return Result{}, err
	}
	if left.IsDeferred() && right.IsDeferred() {
		return Deferred(x), nil
	}

	if x.Method != nil {
		if facts := e.registry.MethodFacts(x.Method); facts.Format != "" {
			operands, err := e.commitAll([]Result{left, right})
			if err != nil {
				return Result{}, err
			}
			call, err := formatTemplate(facts.Format, operands)
			if err != nil {
				return Result{}, err
			}
			var b scriptBuilder
			if class := e.registry.ClassFacts(x.Method.Class).Name; class != "" {
				b.WriteString(class + ".")
			}
			b.WriteScript(call)
			return committedScript(b.Script()), nil
		}
	}

	op, ok := binaryOperators[x.Op]
	if !ok {
		return Result{}, unsupported(x, "no script operator")
	}
	operands, err := e.commitAll([]Result{left, right})
	if err != nil {
		return Result{}, err
	}
	// spaces around the operator keep "a - -b" from becoming a decrement
	var b scriptBuilder
	b.WriteString("(")
	b.WriteScript(operands[0])
	b.WriteString(" " + op + " ")
	b.WriteScript(operands[1])
	b.WriteString(")")
	return committedScript(b.Script()), nil
}

func isNumeric(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func (e *evaluator) evalUnary(x *UnaryExpr) (Result, error) {
	operand, err := e.eval(x.Operand)
	if err != nil {
		return Result{}, err
	} else if operand.IsDeferred() {
		return Deferred(x), nil
	}

	var prefix string
	switch x.Op {
	case OpQuote:
		return operand, nil // the nested lambda was already compiled
	case OpConvert, OpTypeAs:
		from, to := x.Operand.Type(), x.StaticType
		if x.Op == OpConvert && isNumeric(from) && isNumeric(to) {
			return operand, nil
		} else if from != nil && to != nil && from.AssignableTo(to) {
			return operand, nil
		}
		fn := "convert"
		if x.Op == OpTypeAs {
			fn = "as"
		}
		var typeName string
		if to != nil {
			typeName = e.registry.ClassFacts(ClassOf(to)).Name
		}
		var b scriptBuilder
		b.WriteString(fn + "(")
		b.WriteScript(operand.script)
		b.WriteString(`,"` + typeName + `")`)
		return committedScript(b.Script()), nil
	case OpUnaryPlus:
		prefix = "+"
	case OpNegate:
		prefix = "-"
	case OpNot:
		prefix = "~"
		if t := x.Operand.Type(); t != nil && t.Kind() == reflect.Bool {
			prefix = "!"
		}
	default:
		return Result{}, unsupported(x, "no script operator")
	}

	var b scriptBuilder
	b.WriteString(prefix)
	b.WriteScript(operand.script)
	return committedScript(b.Script()), nil
}

func (e *evaluator) evalMember(x *MemberExpr) (Result, error) {
	var object Result
	if x.Object != nil {
		var err error
		if object, err = e.eval(x.Object); err != nil {
			return Result{}, err
		}
	}
	facts := e.registry.MemberFacts(x.Member)
	if x.Object != nil && object.IsDeferred() && !facts.ScriptOnly {
		return Deferred(x), nil
	}

	var target script
	if x.Object == nil {
		target = plainScript(e.registry.ClassFacts(x.Member.Class).Name)
	} else {
		var err error
		if target, err = e.commit(object); err != nil {
			return Result{}, err
		}
	}
	if facts.Format != "" {
		s, err := formatTemplate(facts.Format, []script{target})
		if err != nil {
			return Result{}, err
		}
		return committedScript(s), nil
	}

	var b scriptBuilder
	if target.text != "" {
		b.WriteScript(target)
		b.WriteString(".")
	}
	b.WriteString(facts.Name)
	return committedScript(b.Script()), nil
}

func (e *evaluator) evalCall(x *CallExpr) (Result, error) {
	var receiver Result
	if x.Receiver != nil {
		var err error
		if receiver, err = e.eval(x.Receiver); err != nil {
			return Result{}, err
		}
	}

	args := make([]Result, 0, len(x.Args))
	for i, a := range x.Args {
		if !x.Method.variadicAt(i) {
			r, err := e.eval(a)
			if err != nil {
				return Result{}, err
			}
			args = append(args, r)
			continue
		}
		arr, ok := a.(*NewArrayExpr)
		if !ok {
			return Result{}, unsupported(x, "variadic argument %d of %s is a %s, not a literal array",
				i, x.Method.Name, a.Kind())
		}
		for _, elem := range arr.Elems {
			r, err := e.eval(elem)
			if err != nil {
				return Result{}, err
			}
			args = append(args, r)
		}
	}

	facts := e.registry.MethodFacts(x.Method)
	if (x.Receiver == nil || receiver.IsDeferred()) && !facts.ScriptOnly && allDeferred(args) {
		return Deferred(x), nil
	}

	argScripts, err := e.commitAll(args)
	if err != nil {
		return Result{}, err
	}
	var call script
	delimiter := "."
	if facts.Format != "" {
		// the last template slot takes every remaining argument so a spread variadic fills one position
		split := max(len(x.Args)-1, 0)
		split = min(split, len(argScripts))
		slots := append(argScripts[:split:split], joinScripts(argScripts[split:], ","))
		if call, err = formatTemplate(facts.Format, slots); err != nil {
			return Result{}, err
		}
	} else {
		switch x.Method.Accessor {
		case AccessorIndexGet:
			var b scriptBuilder
			b.WriteString("[")
			b.WriteScript(joinScripts(argScripts, ","))
			b.WriteString("]")
			call = b.Script()
			delimiter = ""
		case AccessorNone:
			var b scriptBuilder
			b.WriteString(x.Method.Name)
			if facts.Stateful {
				b.Mark()
			}
			b.WriteString("(")
			b.WriteScript(joinScripts(argScripts, ","))
			b.WriteString(")")
			call = b.Script()
		default:
			return Result{}, unsupported(x, "special method %s has no script form", x.Method.Name)
		}
	}

	var target script
	if x.Receiver != nil {
		if target, err = e.commit(receiver); err != nil {
			return Result{}, err
		}
	} else {
		target = plainScript(e.registry.ClassFacts(x.Method.Class).Name)
		if target.text == "" {
			delimiter = ""
		}
	}

	var b scriptBuilder
	b.WriteScript(target)
	b.WriteString(delimiter)
	b.WriteScript(call)
	return committedScript(b.Script()), nil
}

func allDeferred(results []Result) bool {
	for _, r := range results {
		if !r.IsDeferred() {
			return false
		}
	}
	return true
}

func (e *evaluator) evalConditional(x *ConditionalExpr) (Result, error) {
	parts := make([]Result, 3)
	for i, n := range []Node{x.Test, x.IfTrue, x.IfFalse} {
		r, err := e.eval(n)
		if err != nil {
			return Result{}, err
		}
		parts[i] = r
	}
	if allDeferred(parts) {
		return Deferred(x), nil
	}

	scripts, err := e.commitAll(parts)
	if err != nil {
		return Result{}, err
	}
	var b scriptBuilder
	b.WriteString("(")
	b.WriteScript(scripts[0])
	b.WriteString("?")
	b.WriteScript(scripts[1])
	b.WriteString(":")
	b.WriteScript(scripts[2])
	b.WriteString(")")
	return committedScript(b.Script()), nil
}
