package scriptify

import (
	"fmt"
	"reflect"
)

// Symbol is the identity of a declared host entity, metadata facts are keyed by it.
// Classes use "pkgpath.Name", members and methods append ".Name" to their class symbol.
type Symbol string

// Class describes a host type or namespace that scripts reference by name.
type Class struct {
	Symbol Symbol
	Name   string // declared name
}

// ParamInfo describes one declared method parameter.
type ParamInfo struct {
	Name     string
	Variadic bool
}

// Accessor classifies compiler-generated methods.
type Accessor uint8

const (
	// AccessorNone is an ordinary named method.
	AccessorNone Accessor = iota
	// AccessorIndexGet reads an element, rendered as receiver[args].
	AccessorIndexGet
	// AccessorSpecial is any other generated method (setters, operators), which has no script form.
	AccessorSpecial
)

// Method describes a callable host symbol.
type Method struct {
	Symbol   Symbol
	Name     string
	Class    *Class
	Params   []ParamInfo
	Accessor Accessor
	Result   reflect.Type
	// Func is the host implementation used when a call is folded. When invalid, instance calls resolve the
	// method by Name on the receiver value.
	Func reflect.Value
}

// Member describes a readable host field or property.
type Member struct {
	Symbol Symbol
	Name   string
	Class  *Class
	Type   reflect.Type
	// Static holds the value of a static member, or a zero argument func producing it.
	Static reflect.Value
}

// TypeSymbol returns the symbol used for a host type, pointer types share the symbol of their element.
func TypeSymbol(t reflect.Type) Symbol {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return Symbol(t.String())
	}
	return Symbol(t.PkgPath() + "." + t.Name())
}

// ClassOf returns the Class describing a host type.
func ClassOf(t reflect.Type) *Class {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		name = t.String()
	}
	return &Class{Symbol: TypeSymbol(t), Name: name}
}

// NewClass declares a namespace which has no host type, such as a script global object.
func NewClass(sym Symbol, name string) *Class {
	return &Class{Symbol: sym, Name: name}
}

func memberSymbol(c *Class, name string) Symbol {
	if c == nil {
		return Symbol(name)
	}
	return c.Symbol + "." + Symbol(name)
}

// StaticFunc declares a static method of class implemented on the host by fn.
func StaticFunc(class *Class, name string, fn any) *Method {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		panic(fmt.Sprintf("static method %s requires a func, got %T", name, fn))
	}
	return &Method{
		Symbol: memberSymbol(class, name),
		Name:   name,
		Class:  class,
		Params: paramsOf(fv.Type(), 0),
		Result: resultOf(fv.Type()),
		Func:   fv,
	}
}

// MethodOf declares the instance method name of host type t. It panics if t has no such method.
func MethodOf(t reflect.Type, name string) *Method {
	m, ok := t.MethodByName(name)
	if !ok && t.Kind() != reflect.Interface && t.Kind() != reflect.Pointer {
		m, ok = reflect.PointerTo(t).MethodByName(name)
		t = reflect.PointerTo(t)
	}
	if !ok {
		panic(fmt.Sprintf("type %s has no method %s", t, name))
	}
	skip := 1 // method expressions take the receiver first
	if t.Kind() == reflect.Interface {
		skip = 0
	}
	class := ClassOf(t)
	return &Method{
		Symbol: memberSymbol(class, name),
		Name:   name,
		Class:  class,
		Params: paramsOf(m.Type, skip),
		Result: resultOf(m.Type),
	}
}

// IndexerOf declares the element getter of host type t, rendered as receiver[key]. Maps, slices, arrays and
// strings are indexed directly, other types resolve the named method on the receiver.
func IndexerOf(t reflect.Type, name string, result reflect.Type) *Method {
	class := ClassOf(t)
	return &Method{
		Symbol:   memberSymbol(class, name),
		Name:     name,
		Class:    class,
		Params:   []ParamInfo{{Name: "key"}},
		Accessor: AccessorIndexGet,
		Result:   result,
	}
}

// ScriptMethod declares a method that exists only in the script environment.
func ScriptMethod(class *Class, name string, result reflect.Type, params ...ParamInfo) *Method {
	return &Method{
		Symbol: memberSymbol(class, name),
		Name:   name,
		Class:  class,
		Params: params,
		Result: result,
	}
}

// FieldOf declares the field or zero argument getter method name of host type t.
func FieldOf(t reflect.Type, name string) *Member {
	var typ reflect.Type
	st := t
	for st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() == reflect.Struct {
		if f, ok := st.FieldByName(name); ok {
			typ = f.Type
		}
	}
	if typ == nil {
		m, ok := t.MethodByName(name)
		if !ok && t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
			m, ok = reflect.PointerTo(t).MethodByName(name)
		}
		if !ok {
			panic(fmt.Sprintf("type %s has no field or getter %s", t, name))
		}
		typ = resultOf(m.Type)
	}
	class := ClassOf(t)
	return &Member{
		Symbol: memberSymbol(class, name),
		Name:   name,
		Class:  class,
		Type:   typ,
	}
}

// StaticMember declares a static member of class whose host value is v, or the result of calling v when
// it is a zero argument func.
func StaticMember(class *Class, name string, v any) *Member {
	sv := reflect.ValueOf(v)
	typ := sv.Type()
	if sv.Kind() == reflect.Func && typ.NumIn() == 0 && typ.NumOut() > 0 {
		typ = typ.Out(0)
	}
	return &Member{
		Symbol: memberSymbol(class, name),
		Name:   name,
		Class:  class,
		Type:   typ,
		Static: sv,
	}
}

// ScriptMember declares a member that exists only in the script environment.
func ScriptMember(class *Class, name string, typ reflect.Type) *Member {
	return &Member{
		Symbol: memberSymbol(class, name),
		Name:   name,
		Class:  class,
		Type:   typ,
	}
}

func paramsOf(ft reflect.Type, skip int) []ParamInfo {
	params := make([]ParamInfo, 0, ft.NumIn()-skip)
	for i := skip; i < ft.NumIn(); i++ {
		params = append(params, ParamInfo{
			Name:     fmt.Sprintf("p%d", i-skip),
			Variadic: ft.IsVariadic() && i == ft.NumIn()-1,
		})
	}
	return params
}

func resultOf(ft reflect.Type) reflect.Type {
	if ft.NumOut() == 0 {
		return nil
	}
	return ft.Out(0)
}

func (m *Method) variadicAt(i int) bool {
	return i < len(m.Params) && m.Params[i].Variadic
}
