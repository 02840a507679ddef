package scriptify

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/require"
)

// Block is the parameter type of the test lambdas, only ever available inside the script.
type Block interface {
	Bool() bool
	Int() int
	Width() float64
	Height() float64
	Color() Color
	Execute(fn func(int) int) float64
	Item(key string) int
}

type Paragraph interface {
	Block
	FontSize() float64
}

type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
)

func (a Alignment) String() string {
	switch a {
	case AlignLeft:
		return "Left"
	case AlignCenter:
		return "Center"
	default:
		return "Unknown"
	}
}

type Color struct {
	R, G, B float64
}

func (c Color) ToScriptString() string {
	return "new Color(" + formatFloat(c.R, 64) + "," + formatFloat(c.G, 64) + "," + formatFloat(c.B, 64) + ")"
}

func NewColor(hex string) Color {
	channel := func(s string) float64 {
		var v int
		for _, c := range s {
			v <<= 4
			switch {
			case c >= '0' && c <= '9':
				v += int(c - '0')
			case c >= 'a' && c <= 'f':
				v += int(c-'a') + 10
			}
		}
		return float64(v) / 255
	}
	return Color{R: channel(hex[0:2]), G: channel(hex[2:4]), B: channel(hex[4:6])}
}

func AddColors(a, b Color) Color {
	return Color{R: a.R + b.R, G: a.G + b.G, B: a.B + b.B}
}

// testHost plays the authoring side object whose members are captured by the lambdas.
type testHost struct {
	calls int
}

func (testHost) TestInt() int            { return 65 }
func (testHost) TestDouble() float64     { return 0.25 }
func (testHost) TestMethodInt(a int) int { return 2 * a }

func (testHost) Sum(args ...int) int {
	var result int
	for _, a := range args {
		result += a
	}
	return result
}

func (h *testHost) Counted() int {
	h.calls++
	return h.calls
}

func testStaticMethodInt(a int) int { return 2 * a }

func failingHost() (int, error) { return 0, errors.New("host failure") }

var (
	blockType     = reflect.TypeOf((*Block)(nil)).Elem()
	paragraphType = reflect.TypeOf((*Paragraph)(nil)).Elem()
	colorType     = reflect.TypeOf(Color{})
	hostType      = reflect.TypeOf(testHost{})
	intType       = reflect.TypeOf(0)
	floatType     = reflect.TypeOf(0.0)
	stringType    = reflect.TypeOf("")
)

// testEnv declares the script side objects together with their metadata.
type testEnv struct {
	window, math, global, colorClass, hostClass *Class

	blockBool, blockInt, blockWidth, blockHeight, blockColor *Member
	fontSize, colorR, blockArea                              *Member
	execute, item, addColors, newColor, blockTick            *Method

	windowPixelRatio, windowWidth, windowRenamed, windowInner *Member
	windowGetValue, windowRename, windowReorder, windowSize   *Method
	windowRect                                                *Method

	mathMax, mathSum, mathMin *Method

	globalMethod, globalSmooth, globalSetter *Method
	globalProperty                           *Member

	hostInt, hostDouble                *Member
	hostMethodInt, hostSum, hostStatic *Method
	hostCounted, hostFailing           *Method

	decls []Declaration
}

func newTestEnv() *testEnv {
	e := &testEnv{
		window:     NewClass("js.Window", "Window"),
		math:       NewClass("js.Math", "Math"),
		global:     NewClass("js.Global", "Global"),
		colorClass: ClassOf(colorType),
		hostClass:  ClassOf(hostType),
	}

	e.blockBool = FieldOf(blockType, "Bool")
	e.blockInt = FieldOf(blockType, "Int")
	e.blockWidth = FieldOf(blockType, "Width")
	e.blockHeight = FieldOf(blockType, "Height")
	e.blockColor = FieldOf(blockType, "Color")
	e.fontSize = FieldOf(paragraphType, "FontSize")
	e.colorR = FieldOf(colorType, "R")
	e.execute = MethodOf(blockType, "Execute")
	e.item = IndexerOf(blockType, "Item", intType)
	e.addColors = StaticFunc(e.colorClass, "Add", AddColors)
	e.newColor = StaticFunc(e.colorClass, "New", NewColor)
	e.blockTick = ScriptMethod(ClassOf(blockType), "Tick", floatType)
	e.blockArea = ScriptMember(ClassOf(blockType), "Area", floatType)

	e.windowPixelRatio = StaticMember(e.window, "DevicePixelRatio", func() float64 { panic("script only") })
	e.windowWidth = ScriptMember(e.window, "Width", floatType)
	e.windowRenamed = ScriptMember(e.window, "PropertyWithOtherName", floatType)
	e.windowInner = ScriptMember(e.window, "InnerSize", floatType)
	e.windowGetValue = ScriptMethod(e.window, "GetValue", floatType)
	e.windowRename = ScriptMethod(e.window, "MethodWithOtherName", floatType,
		ParamInfo{Name: "a"}, ParamInfo{Name: "b", Variadic: true})
	e.windowReorder = ScriptMethod(e.window, "MethodWithOtherNameParametersOrder", floatType,
		ParamInfo{Name: "a"}, ParamInfo{Name: "b", Variadic: true})
	e.windowSize = ScriptMethod(e.window, "SetSize", nil, ParamInfo{Name: "size"})
	e.windowRect = ScriptMethod(e.window, "Rect", nil, ParamInfo{Name: "values", Variadic: true})

	e.mathMax = StaticFunc(e.math, "Max", func(values ...float64) float64 {
		result := values[0]
		for _, v := range values[1:] {
			result = max(result, v)
		}
		return result
	})
	e.mathSum = StaticFunc(e.math, "Sum", func(values ...float64) float64 {
		var result float64
		for _, v := range values {
			result += v
		}
		return result
	})
	e.mathMin = StaticFunc(e.math, "Min", func(a, b float64) float64 { return min(a, b) })

	e.globalMethod = ScriptMethod(e.global, "Method", floatType)
	e.globalSmooth = ScriptMethod(e.global, "Smooth", floatType, ParamInfo{Name: "value"})
	e.globalSetter = &Method{Symbol: "js.Global.set_Value", Name: "set_Value", Class: e.global,
		Params: []ParamInfo{{Name: "value"}}, Accessor: AccessorSpecial}
	e.globalProperty = ScriptMember(e.global, "Property", floatType)

	e.hostInt = FieldOf(hostType, "TestInt")
	e.hostDouble = FieldOf(hostType, "TestDouble")
	e.hostMethodInt = MethodOf(hostType, "TestMethodInt")
	e.hostSum = MethodOf(hostType, "Sum")
	e.hostStatic = StaticFunc(e.hostClass, "TestStaticMethodInt", testStaticMethodInt)
	e.hostCounted = MethodOf(reflect.TypeOf(&testHost{}), "Counted")
	e.hostFailing = StaticFunc(e.hostClass, "Failing", failingHost)

	e.decls = []Declaration{
		DisplayName(e.window.Symbol, "window"),
		ScriptOnly(e.windowGetValue.Symbol),
		ScriptOnly(e.windowRename.Symbol),
		CallFormat(e.windowRename.Symbol, "nativeMethod({0},{1})"),
		ScriptOnly(e.windowReorder.Symbol),
		CallFormat(e.windowReorder.Symbol, "nativeMethod({1},{0})"),
		ScriptOnly(e.windowSize.Symbol),
		ScriptOnly(e.windowRect.Symbol),
		ScriptOnly(e.windowWidth.Symbol),
		ScriptOnly(e.windowRenamed.Symbol),
		DisplayName(e.windowRenamed.Symbol, "nativeProperty"),
		GetFormat(e.windowInner.Symbol, "{0}.innerWidth*{0}.innerHeight"),
		DisplayName(e.math.Symbol, ""),
		DisplayName(e.global.Symbol, ""),
		ScriptOnly(e.globalMethod.Symbol),
		ScriptOnly(e.globalProperty.Symbol),
		Stateful(e.globalSmooth.Symbol),
		ScriptOnly(e.globalSmooth.Symbol),
		CallFormat(e.addColors.Symbol, "CplusC({0},{1})"),
		Stateful(e.blockTick.Symbol),
		GetFormat(e.blockArea.Symbol, "{0}.w*{0}.h"),
	}
	return e
}

func (e *testEnv) compiler(t *testing.T) *Compiler {
	t.Helper()

	registry, err := NewRegistry(1, e.decls...)
	require.NoError(t, err)
	t.Cleanup(registry.Close)
	return NewCompiler(registry, DefaultConfig())
}

// param returns the lambda parameter "e" of type Block.
func (e *testEnv) param() *ParameterExpr {
	return Param("e", blockType)
}

func (e *testEnv) host() *ConstantExpr {
	return Const(testHost{})
}

// requireScript compares scripts, reporting a diff split at each parenthesis.
func requireScript(t *testing.T, expected, actual string) {
	t.Helper()

	if expected == actual {
		return
	}
	split := func(s string) []string {
		return difflib.SplitLines(strings.ReplaceAll(s, "(", "(\n"))
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        split(expected),
		B:        split(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  1,
	})
	require.Equal(t, expected, actual, diff)
}

func compileLambda(t *testing.T, c *Compiler, body Node, params ...*ParameterExpr) string {
	t.Helper()

	s, err := c.Compile(Lambda(body, params...))
	require.NoError(t, err)
	return s
}
