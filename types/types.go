// Package types defines Sigma's type values and their compatibility rules.
package types

// Type is a Sigma type. The variant set is closed: *Primitive, *Class,
// *Void, *Null and *Error.
type Type interface {
	Name() string
	// IsCompatibleWith reports whether a value of this type may be stored
	// into a location declared with target.
	IsCompatibleWith(target Type) bool
	String() string
	sigmaType() // marker method
}

// Primitive is a value type. Width is the number of local slots it occupies.
type Primitive struct {
	name  string
	Width int
}

func (t *Primitive) Name() string   { return t.name }
func (t *Primitive) String() string { return t.name }
func (t *Primitive) sigmaType()     {}

func (t *Primitive) IsCompatibleWith(target Type) bool {
	switch target := target.(type) {
	case *Error:
		return true
	case *Primitive:
		// Any numeric goes into any numeric, narrowing included.
		return target.name == t.name || (IsNumeric(t) && IsNumeric(target))
	}
	return false
}

// Class is a reference type: String or a user-declared class.
type Class struct {
	name string
}

func (t *Class) Name() string   { return t.name }
func (t *Class) String() string { return t.name }
func (t *Class) sigmaType()     {}

func (t *Class) IsCompatibleWith(target Type) bool {
	switch target := target.(type) {
	case *Error:
		return true
	case *Class:
		return target.name == t.name
	}
	return false
}

// Void is the return type of methods that return nothing.
type Void struct{}

func (*Void) Name() string   { return "void" }
func (*Void) String() string { return "void" }
func (*Void) sigmaType()     {}

func (*Void) IsCompatibleWith(target Type) bool {
	switch target.(type) {
	case *Void, *Error:
		return true
	}
	return false
}

// Null is the type of the null literal.
type Null struct{}

func (*Null) Name() string   { return "null" }
func (*Null) String() string { return "null" }
func (*Null) sigmaType()     {}

func (*Null) IsCompatibleWith(target Type) bool {
	switch target.(type) {
	case *Null, *Class, *Error:
		return true
	}
	return false
}

// Error is the type of malformed expressions. It is compatible with
// everything so one mistake does not cascade.
type Error struct{}

func (*Error) Name() string                { return "<error>" }
func (*Error) String() string              { return "<error>" }
func (*Error) sigmaType()                  {}
func (*Error) IsCompatibleWith(Type) bool { return true }

// Built-in singletons.
var (
	Int     = &Primitive{name: "int", Width: 1}
	Double  = &Primitive{name: "double", Width: 2}
	Float   = &Primitive{name: "float", Width: 1}
	Boolean = &Primitive{name: "boolean", Width: 1}
	String  = &Class{name: "String"}
	VoidT   = &Void{}
	NullT   = &Null{}
	ErrorT  = &Error{}
)

// Equal compares types by name.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Name() == b.Name()
}

// IsNumeric reports whether t is int, float or double.
func IsNumeric(t Type) bool {
	p, ok := t.(*Primitive)
	return ok && p != Boolean && p.name != "boolean"
}

// IsBoolean reports whether t is boolean.
func IsBoolean(t Type) bool {
	return Equal(t, Boolean)
}

// IsString reports whether t is the built-in String class.
func IsString(t Type) bool {
	return Equal(t, String)
}

// IsError reports whether t is the Error type.
func IsError(t Type) bool {
	_, ok := t.(*Error)
	return ok
}

// IsVoid reports whether t is void.
func IsVoid(t Type) bool {
	_, ok := t.(*Void)
	return ok
}

// IsReference reports whether values of t are object references.
func IsReference(t Type) bool {
	switch t.(type) {
	case *Class, *Null:
		return true
	}
	return false
}

// SlotWidth returns the number of local slots a value of t occupies.
// Double takes two; void takes none.
func SlotWidth(t Type) int {
	switch t := t.(type) {
	case *Primitive:
		return t.Width
	case *Void:
		return 0
	}
	return 1
}

// Widest returns the widest numeric type among ts in the order
// double > float > int, or nil if any of ts is not numeric.
func Widest(ts ...Type) Type {
	var rank int
	for _, t := range ts {
		if !IsNumeric(t) {
			return nil
		}
		switch {
		case Equal(t, Double):
			rank = max(rank, 3)
		case Equal(t, Float):
			rank = max(rank, 2)
		default:
			rank = max(rank, 1)
		}
	}
	switch rank {
	case 3:
		return Double
	case 2:
		return Float
	case 1:
		return Int
	}
	return nil
}
