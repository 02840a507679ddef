package scriptify

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
)

// ScriptLiteral is implemented by host values which render their own target literal.
type ScriptLiteral interface {
	ToScriptString() string
}

// Tuple is a fixed arity heterogeneous value, rendered as a target array.
type Tuple interface {
	Len() int
	At(i int) any
}

// Tuple2 is a two element Tuple.
type Tuple2[A, B any] struct {
	V1 A
	V2 B
}

func (Tuple2[A, B]) Len() int { return 2 }

func (t Tuple2[A, B]) At(i int) any {
	if i == 0 {
		return t.V1
	}
	return t.V2
}

// NewTuple2 is the host constructor of Tuple2, suitable for StaticFunc.
func NewTuple2[A, B any](v1 A, v2 B) Tuple2[A, B] {
	return Tuple2[A, B]{V1: v1, V2: v2}
}

// Tuple3 is a three element Tuple.
type Tuple3[A, B, C any] struct {
	V1 A
	V2 B
	V3 C
}

func (Tuple3[A, B, C]) Len() int { return 3 }

func (t Tuple3[A, B, C]) At(i int) any {
	switch i {
	case 0:
		return t.V1
	case 1:
		return t.V2
	default:
		return t.V3
	}
}

// NewTuple3 is the host constructor of Tuple3, suitable for StaticFunc.
func NewTuple3[A, B, C any](v1 A, v2 B, v3 C) Tuple3[A, B, C] {
	return Tuple3[A, B, C]{V1: v1, V2: v2, V3: v3}
}

var stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()

// stringifier renders folded host values as target literals. It is closed-world, unknown shapes fail.
type stringifier struct {
	nullLiteral string
}

// Stringify renders v as target literal text. Strings are quoted without escaping embedded quotes.
func (s stringifier) Stringify(v any) (string, error) {
	if isAbsent(v) {
		return s.nullLiteral, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.String:
		return `"` + rv.String() + `"`, nil
	}
	if isEnum(rv.Type()) {
		return `"` + v.(fmt.Stringer).String() + `"`, nil
	}
	if lit, ok := v.(ScriptLiteral); ok {
		return lit.ToScriptString(), nil
	}
	switch rv.Kind() {
	case reflect.Float32:
		return formatFloat(rv.Float(), 32), nil
	case reflect.Float64:
		return formatFloat(rv.Float(), 64), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	}
	switch tv := v.(type) {
	case *big.Float:
		if tv.IsInf() {
			return formatFloat(math.Inf(tv.Sign()), 64), nil
		}
		return formatBigFloat(tv), nil
	case Tuple:
		parts := make([]string, tv.Len())
		for i := range parts {
			str, err := s.Stringify(tv.At(i))
			if err != nil {
				return "", err
			}
			parts[i] = str
		}
		return "[" + strings.Join(parts, ",") + "]", nil
	}
	return "", &UnsupportedError{Kind: KindConstant, Detail: fmt.Sprintf("no script literal for value of type %T", v)}
}

func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

// isEnum matches named integer types with a String method, the Go form of an enumeration. Any such type
// qualifies, so time.Duration(time.Second) renders as "1s".
func isEnum(t reflect.Type) bool {
	if t.PkgPath() == "" || !t.Implements(stringerType) {
		return false
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

// formatFloat renders the shortest text that round-trips, using the same exponent thresholds as the
// target Number to string conversion.
func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'e', -1, bitSize)
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize)
}

var (
	bigSmall = big.NewFloat(1e-6)
	bigLarge = big.NewFloat(1e21)
)

// formatBigFloat renders f with the exponent thresholds of formatFloat.
func formatBigFloat(f *big.Float) string {
	abs := new(big.Float).Abs(f)
	if abs.Sign() != 0 && (abs.Cmp(bigSmall) < 0 || abs.Cmp(bigLarge) >= 0) {
		return f.Text('e', -1)
	}
	return f.Text('f', -1)
}
