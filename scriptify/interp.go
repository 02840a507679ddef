package scriptify

import (
	"errors"
	"fmt"
	"math"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// materialize evaluates a closed subtree on the host and returns its value. Host calls and getters run
// each time, nothing is memoized. A panic raised by host code is returned as ErrHostEvaluation.
func materialize(n Node) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrHostEvaluation, n.Kind(), r)
		}
	}()

	v, err := hostValue(n)
	if err != nil {
		return nil, err
	} else if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}

func hostValue(n Node) (reflect.Value, error) {
	switch x := n.(type) {
	case *ConstantExpr:
		if x.Value == nil {
			if t := x.Type(); t != nil {
				return reflect.Zero(t), nil
			}
			return reflect.Value{}, nil
		}
		return reflect.ValueOf(x.Value), nil
	case *BinaryExpr:
		return hostBinary(x)
	case *UnaryExpr:
		return hostUnary(x)
	case *MemberExpr:
		return hostMember(x)
	case *CallExpr:
		return hostCall(x)
	case *ConditionalExpr:
		test, err := hostValue(x.Test)
		if err != nil {
			return reflect.Value{}, err
		} else if test.Kind() != reflect.Bool {
			return reflect.Value{}, unsupported(x, "condition of type %s", test.Type())
		}
		if test.Bool() {
			return hostValue(x.IfTrue)
		}
		return hostValue(x.IfFalse)
	case *ConstructExpr:
		return hostConstruct(x)
	case *NewArrayExpr:
		args, err := hostValues(x.Elems)
		if err != nil {
			return reflect.Value{}, err
		}
		slice := reflect.MakeSlice(x.StaticType, len(args), len(args))
		for i, a := range args {
			slice.Index(i).Set(convertTo(a, x.StaticType.Elem()))
		}
		return slice, nil
	case *ParameterExpr:
		return reflect.Value{}, unsupported(x, "parameter %s has no value on the host", x.Name)
	case *LambdaExpr:
		return reflect.Value{}, unsupported(x, "lambda can not be folded")
	default:
		return reflect.Value{}, unsupported(n, "no host evaluation")
	}
}

func hostValues(nodes []Node) ([]reflect.Value, error) {
	values := make([]reflect.Value, len(nodes))
	for i, a := range nodes {
		v, err := hostValue(a)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func hostBinary(x *BinaryExpr) (reflect.Value, error) {
	l, err := hostValue(x.Left)
	if err != nil {
		return reflect.Value{}, err
	}
	if x.Method == nil && (x.Op == OpAndAlso || x.Op == OpOrElse) && l.Kind() == reflect.Bool {
		if l.Bool() == (x.Op == OpOrElse) {
			return l, nil // short circuit
		}
		return hostValue(x.Right)
	}
	r, err := hostValue(x.Right)
	if err != nil {
		return reflect.Value{}, err
	}
	if x.Method != nil {
		if !x.Method.Func.IsValid() {
			return reflect.Value{}, unsupported(x, "overload %s has no host implementation", x.Method.Name)
		}
		return callFunc(x.Method.Func, []reflect.Value{l, r})
	}
	if !l.IsValid() || !r.IsValid() {
		return reflect.Value{}, unsupported(x, "nil operand")
	}
	if l, r, err = promote(x, l, r); err != nil {
		return reflect.Value{}, err
	}

	var v reflect.Value
	switch l.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err = intBinary(x.Op, l.Int(), r)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		v, err = uintBinary(x.Op, l.Uint(), r)
	case reflect.Float32, reflect.Float64:
		v, err = floatBinary(x.Op, l.Float(), r.Float())
	case reflect.String:
		v, err = stringBinary(x.Op, l.String(), r.String())
	case reflect.Bool:
		v, err = boolBinary(x.Op, l.Bool(), r.Bool())
	default:
		switch x.Op {
		case OpEqual:
			v = reflect.ValueOf(l.Equal(r))
		case OpNotEqual:
			v = reflect.ValueOf(!l.Equal(r))
		default:
			err = errUnsupportedOp
		}
	}
	if errors.Is(err, errUnsupportedOp) {
		return reflect.Value{}, unsupported(x, "operands of type %s", l.Type())
	} else if err != nil {
		return reflect.Value{}, err
	}
	if v.Kind() != reflect.Bool {
		v = v.Convert(l.Type()) // keep the operand type, wrapping like the host would
	}
	return v, nil
}

var errUnsupportedOp = errors.New("operator not defined for operands")

func isFloat(t reflect.Type) bool {
	return t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64
}

// promote brings both operands to one type. An integer meets a float as that float type and the narrower
// of two floats is widened. Any other conversion must keep the value, a shift count is left as is.
func promote(x *BinaryExpr, l, r reflect.Value) (reflect.Value, reflect.Value, error) {
	lt, rt := l.Type(), r.Type()
	if lt == rt || x.Op == OpLeftShift || x.Op == OpRightShift {
		return l, r, nil
	}
	switch {
	case isFloat(lt) && isFloat(rt):
		if lt.Bits() < rt.Bits() {
			return l.Convert(rt), r, nil
		}
		return l, r.Convert(lt), nil
	case isFloat(rt) && isNumeric(lt):
		return l.Convert(rt), r, nil
	case isFloat(lt) && isNumeric(rt):
		return l, r.Convert(lt), nil
	case r.CanConvert(lt):
		if c := r.Convert(lt); c.CanConvert(rt) && c.Convert(rt).Equal(r) {
			return l, c, nil
		}
	}
	return reflect.Value{}, reflect.Value{}, unsupported(x, "operands of type %s and %s", lt, rt)
}

func shiftCount(r reflect.Value) uint64 {
	switch r.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if r.Int() < 0 {
			panic("negative shift amount")
		}
		return uint64(r.Int())
	default:
		return r.Uint()
	}
}

func intBinary(op Op, a int64, rv reflect.Value) (reflect.Value, error) {
	switch op {
	case OpLeftShift:
		return reflect.ValueOf(a << shiftCount(rv)), nil
	case OpRightShift:
		return reflect.ValueOf(a >> shiftCount(rv)), nil
	}
	b := rv.Int()
	switch op {
	case OpAdd:
		return reflect.ValueOf(a + b), nil
	case OpSubtract:
		return reflect.ValueOf(a - b), nil
	case OpMultiply:
		return reflect.ValueOf(a * b), nil
	case OpDivide:
		return reflect.ValueOf(a / b), nil
	case OpModulo:
		return reflect.ValueOf(a % b), nil
	case OpAnd:
		return reflect.ValueOf(a & b), nil
	case OpOr:
		return reflect.ValueOf(a | b), nil
	case OpExclusiveOr:
		return reflect.ValueOf(a ^ b), nil
	case OpAndNot:
		return reflect.ValueOf(a &^ b), nil
	}
	return compareOrdered(op, a, b)
}

func uintBinary(op Op, a uint64, rv reflect.Value) (reflect.Value, error) {
	switch op {
	case OpLeftShift:
		return reflect.ValueOf(a << shiftCount(rv)), nil
	case OpRightShift:
		return reflect.ValueOf(a >> shiftCount(rv)), nil
	}
	b := rv.Uint()
	switch op {
	case OpAdd:
		return reflect.ValueOf(a + b), nil
	case OpSubtract:
		return reflect.ValueOf(a - b), nil
	case OpMultiply:
		return reflect.ValueOf(a * b), nil
	case OpDivide:
		return reflect.ValueOf(a / b), nil
	case OpModulo:
		return reflect.ValueOf(a % b), nil
	case OpAnd:
		return reflect.ValueOf(a & b), nil
	case OpOr:
		return reflect.ValueOf(a | b), nil
	case OpExclusiveOr:
		return reflect.ValueOf(a ^ b), nil
	case OpAndNot:
		return reflect.ValueOf(a &^ b), nil
	}
	return compareOrdered(op, a, b)
}

func floatBinary(op Op, a, b float64) (reflect.Value, error) {
	switch op {
	case OpAdd:
		return reflect.ValueOf(a + b), nil
	case OpSubtract:
		return reflect.ValueOf(a - b), nil
	case OpMultiply:
		return reflect.ValueOf(a * b), nil
	case OpDivide:
		return reflect.ValueOf(a / b), nil
	case OpModulo:
		return reflect.ValueOf(math.Mod(a, b)), nil
	}
	return compareOrdered(op, a, b)
}

func stringBinary(op Op, a, b string) (reflect.Value, error) {
	if op == OpAdd {
		return reflect.ValueOf(a + b), nil
	}
	return compareOrdered(op, a, b)
}

func boolBinary(op Op, a, b bool) (reflect.Value, error) {
	switch op {
	case OpAnd, OpAndAlso:
		return reflect.ValueOf(a && b), nil
	case OpOr, OpOrElse:
		return reflect.ValueOf(a || b), nil
	case OpExclusiveOr, OpNotEqual:
		return reflect.ValueOf(a != b), nil
	case OpEqual:
		return reflect.ValueOf(a == b), nil
	}
	return reflect.Value{}, errUnsupportedOp
}

func compareOrdered[T int64 | uint64 | float64 | string](op Op, a, b T) (reflect.Value, error) {
	switch op {
	case OpLessThan:
		return reflect.ValueOf(a < b), nil
	case OpLessThanOrEqual:
		return reflect.ValueOf(a <= b), nil
	case OpGreaterThan:
		return reflect.ValueOf(a > b), nil
	case OpGreaterThanOrEqual:
		return reflect.ValueOf(a >= b), nil
	case OpEqual:
		return reflect.ValueOf(a == b), nil
	case OpNotEqual:
		return reflect.ValueOf(a != b), nil
	}
	return reflect.Value{}, errUnsupportedOp
}

func hostUnary(x *UnaryExpr) (reflect.Value, error) {
	v, err := hostValue(x.Operand)
	if err != nil {
		return reflect.Value{}, err
	}
	switch x.Op {
	case OpUnaryPlus:
		return v, nil
	case OpConvert:
		if !v.IsValid() {
			return reflect.Zero(x.StaticType), nil
		}
		return v.Convert(x.StaticType), nil
	case OpTypeAs:
		if v.IsValid() && v.Type().AssignableTo(x.StaticType) {
			return convertTo(v, x.StaticType), nil
		}
		return reflect.Zero(x.StaticType), nil
	case OpNegate:
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return reflect.ValueOf(-v.Int()).Convert(v.Type()), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			return reflect.ValueOf(-v.Uint()).Convert(v.Type()), nil
		case reflect.Float32, reflect.Float64:
			return reflect.ValueOf(-v.Float()).Convert(v.Type()), nil
		}
	case OpNot:
		switch v.Kind() {
		case reflect.Bool:
			return reflect.ValueOf(!v.Bool()).Convert(v.Type()), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return reflect.ValueOf(^v.Int()).Convert(v.Type()), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			return reflect.ValueOf(^v.Uint()).Convert(v.Type()), nil
		}
	}
	if !v.IsValid() {
		return reflect.Value{}, unsupported(x, "nil operand")
	}
	return reflect.Value{}, unsupported(x, "operand of type %s", v.Type())
}

func hostMember(x *MemberExpr) (reflect.Value, error) {
	if x.Object == nil {
		sv := x.Member.Static
		if !sv.IsValid() {
			return reflect.Value{}, unsupported(x, "member %s has no host value", x.Member.Name)
		} else if sv.Kind() == reflect.Func && sv.Type().NumIn() == 0 {
			return callFunc(sv, nil)
		}
		return sv, nil
	}
	obj, err := hostValue(x.Object)
	if err != nil {
		return reflect.Value{}, err
	}
	for obj.Kind() == reflect.Interface {
		obj = obj.Elem()
	}
	if !obj.IsValid() {
		return reflect.Value{}, fmt.Errorf("%w: read of %s on nil", ErrHostEvaluation, x.Member.Name)
	}
	if getter := methodByName(obj, x.Member.Name); getter.IsValid() && getter.Type().NumIn() == 0 {
		return callFunc(getter, nil)
	}
	for obj.Kind() == reflect.Pointer {
		if obj.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: read of %s on nil", ErrHostEvaluation, x.Member.Name)
		}
		obj = obj.Elem()
	}
	if obj.Kind() == reflect.Struct {
		if f := obj.FieldByName(x.Member.Name); f.IsValid() {
			return f, nil
		}
	}
	return reflect.Value{}, unsupported(x, "type %s has no field or getter %s", obj.Type(), x.Member.Name)
}

// methodByName finds a method on v, also considering pointer receivers of addressable values.
func methodByName(v reflect.Value, name string) reflect.Value {
	if m := v.MethodByName(name); m.IsValid() {
		return m
	}
	if v.Kind() != reflect.Pointer && v.Kind() != reflect.Interface {
		ptr := reflect.New(v.Type())
		ptr.Elem().Set(v)
		return ptr.MethodByName(name)
	}
	return reflect.Value{}
}

func hostCall(x *CallExpr) (reflect.Value, error) {
	args, err := hostValues(x.Args)
	if err != nil {
		return reflect.Value{}, err
	}
	if x.Receiver == nil {
		if !x.Method.Func.IsValid() {
			return reflect.Value{}, unsupported(x, "method %s has no host implementation", x.Method.Name)
		}
		return callFunc(x.Method.Func, args)
	}
	recv, err := hostValue(x.Receiver)
	if err != nil {
		return reflect.Value{}, err
	}
	for recv.Kind() == reflect.Interface {
		recv = recv.Elem()
	}
	if !recv.IsValid() {
		return reflect.Value{}, fmt.Errorf("%w: call of %s on nil", ErrHostEvaluation, x.Method.Name)
	}
	if x.Method.Accessor == AccessorIndexGet && len(args) == 1 {
		switch recv.Kind() {
		case reflect.Map:
			v := recv.MapIndex(convertTo(args[0], recv.Type().Key()))
			if !v.IsValid() {
				return reflect.Zero(recv.Type().Elem()), nil
			}
			return v, nil
		case reflect.Slice, reflect.Array, reflect.String:
			return recv.Index(int(args[0].Int())), nil
		}
	}
	if x.Method.Func.IsValid() {
		return callFunc(x.Method.Func, append([]reflect.Value{recv}, args...))
	}
	fn := methodByName(recv, x.Method.Name)
	if !fn.IsValid() {
		return reflect.Value{}, unsupported(x, "type %s has no method %s", recv.Type(), x.Method.Name)
	}
	return callFunc(fn, args)
}

func hostConstruct(x *ConstructExpr) (reflect.Value, error) {
	args, err := hostValues(x.Args)
	if err != nil {
		return reflect.Value{}, err
	}
	if x.Ctor != nil {
		if !x.Ctor.Func.IsValid() {
			return reflect.Value{}, unsupported(x, "constructor %s has no host implementation", x.Ctor.Name)
		}
		return callFunc(x.Ctor.Func, args)
	}
	t := x.StaticType
	if t == nil || t.Kind() != reflect.Struct || t.NumField() < len(args) {
		return reflect.Value{}, unsupported(x, "no constructor for %v", t)
	}
	v := reflect.New(t).Elem()
	for i, a := range args {
		v.Field(i).Set(convertTo(a, t.Field(i).Type))
	}
	return v, nil
}

// callFunc invokes fn converting arguments to the declared parameter types. A trailing slice argument is
// spread into a variadic parameter. A trailing error result is returned as ErrHostEvaluation.
func callFunc(fn reflect.Value, args []reflect.Value) (reflect.Value, error) {
	ft := fn.Type()
	in := make([]reflect.Value, len(args))
	spread := ft.IsVariadic() && len(args) == ft.NumIn() && args[len(args)-1].IsValid() &&
		args[len(args)-1].Kind() == reflect.Slice && args[len(args)-1].Type().ConvertibleTo(ft.In(ft.NumIn()-1))
	for i, a := range args {
		var pt reflect.Type
		switch {
		case ft.IsVariadic() && i >= ft.NumIn()-1 && !spread:
			pt = ft.In(ft.NumIn() - 1).Elem()
		case i < ft.NumIn():
			pt = ft.In(i)
		default:
			return reflect.Value{}, fmt.Errorf("%w: too many arguments for %s", ErrUnsupportedConstruct, ft)
		}
		in[i] = convertTo(a, pt)
	}

	var out []reflect.Value
	if spread {
		out = fn.CallSlice(in)
	} else {
		out = fn.Call(in)
	}
	if n := len(out); n > 0 && ft.Out(n-1) == errorType {
		if err, _ := out[n-1].Interface().(error); err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %w", ErrHostEvaluation, err)
		}
		out = out[:n-1]
	}
	if len(out) == 0 {
		return reflect.Value{}, nil
	}
	return out[0], nil
}

func convertTo(v reflect.Value, t reflect.Type) reflect.Value {
	if !v.IsValid() {
		return reflect.Zero(t)
	} else if v.Type() == t {
		return v
	} else if v.Type().AssignableTo(t) {
		nv := reflect.New(t).Elem()
		nv.Set(v)
		return nv
	}
	return v.Convert(t)
}
