package vm

import (
	"fmt"
	"strings"
)

// Kind is the computational type of a Value.
type Kind uint8

const (
	KindInt Kind = iota // int and boolean
	KindFloat
	KindDouble
	KindRef
)

// Value is one operand stack entry or local. A double is a single Value
// here even though it occupies two JVM words.
type Value struct {
	kind Kind
	i    int32
	f    float32
	d    float64
	ref  any // nil, string, *Object or *printStream
}

// Int makes an int value.
func Int(v int32) Value { return Value{kind: KindInt, i: v} }

// Bool makes a boolean value, an int of 0 or 1.
func Bool(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

// Float makes a float value.
func Float(v float32) Value { return Value{kind: KindFloat, f: v} }

// Double makes a double value.
func Double(v float64) Value { return Value{kind: KindDouble, d: v} }

// String makes a java/lang/String reference.
func String(s string) Value { return Value{kind: KindRef, ref: s} }

// Null is the null reference.
var Null = Value{kind: KindRef}

func ref(r any) Value { return Value{kind: KindRef, ref: r} }

// Kind returns the value's computational type.
func (v Value) Kind() Kind { return v.kind }

func (v Value) AsInt() int32      { return v.i }
func (v Value) AsFloat() float32  { return v.f }
func (v Value) AsDouble() float64 { return v.d }
func (v Value) AsRef() any        { return v.ref }

// IsNull reports whether v is the null reference.
func (v Value) IsNull() bool { return v.kind == KindRef && v.ref == nil }

// wide reports whether the value takes two JVM words.
func (v Value) wide() bool { return v.kind == KindDouble }

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("int %d", v.i)
	case KindFloat:
		return "float " + FormatFloat(v.f)
	case KindDouble:
		return "double " + FormatDouble(v.d)
	}
	return "ref " + javaString(v.ref)
}

// Object is an instance of a library class.
type Object struct {
	Class   string
	builder *strings.Builder // java/lang/StringBuilder
	message string           // exceptions
	init    bool
}

type printStream struct{}

// javaString renders a reference the way String.valueOf(Object) would.
func javaString(r any) string {
	switch r := r.(type) {
	case nil:
		return "null"
	case string:
		return r
	case *Object:
		if r.builder != nil {
			return r.builder.String()
		}
		if r.message != "" {
			return javaName(r.Class) + ": " + r.message
		}
		return fmt.Sprintf("%s@%p", javaName(r.Class), r)
	case *printStream:
		return "java.io.PrintStream"
	}
	return fmt.Sprint(r)
}

// javaName turns an internal class name into a binary one.
func javaName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}
