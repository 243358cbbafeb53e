package vm

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/chazu/sigma/classfile"
)

// ---------------------------------------------------------------------------
// Library methods available to generated code
// ---------------------------------------------------------------------------

// intrinsicFunc implements one library method. args include the receiver
// for instance methods.
type intrinsicFunc func(m *Machine, args []Value) (Value, error)

var intrinsics map[string]intrinsicFunc

func init() {
	intrinsics = map[string]intrinsicFunc{
		"java/lang/Object.<init>:()V": func(m *Machine, args []Value) (Value, error) {
			return Null, nil
		},
		"java/lang/StringBuilder.<init>:()V": func(m *Machine, args []Value) (Value, error) {
			o, err := receiver(args, classfile.StringBuilderName)
			if err != nil {
				return Null, err
			}
			o.builder = &strings.Builder{}
			o.init = true
			return Null, nil
		},
		"java/lang/StringBuilder.toString:()Ljava/lang/String;": func(m *Machine, args []Value) (Value, error) {
			o, err := builder(args)
			if err != nil {
				return Null, err
			}
			return String(o.builder.String()), nil
		},
		"java/lang/IllegalStateException.<init>:(Ljava/lang/String;)V": func(m *Machine, args []Value) (Value, error) {
			o, err := receiver(args, classfile.IllegalStateClass)
			if err != nil {
				return Null, err
			}
			o.message = javaString(args[1].ref)
			o.init = true
			return Null, nil
		},
		"java/lang/Math.pow:(DD)D": func(m *Machine, args []Value) (Value, error) {
			return Double(math.Pow(args[0].d, args[1].d)), nil
		},
		"java/util/Objects.equals:(Ljava/lang/Object;Ljava/lang/Object;)Z": func(m *Machine, args []Value) (Value, error) {
			return Bool(objectsEqual(args[0].ref, args[1].ref)), nil
		},
		"java/io/PrintStream.println:()V": func(m *Machine, args []Value) (Value, error) {
			return Null, m.write("\n")
		},
	}

	// print and println for every argument descriptor generated code uses,
	// and the matching StringBuilder.append overloads.
	for _, desc := range []string{"I", "Z", "F", "D", classfile.StringDesc, classfile.ObjectDesc} {
		desc := desc
		for _, name := range []string{"print", "println"} {
			suffix := ""
			if name == "println" {
				suffix = "\n"
			}
			key := fmt.Sprintf("%s.%s:(%s)V", classfile.PrintStreamClass, name, desc)
			intrinsics[key] = func(m *Machine, args []Value) (Value, error) {
				return Null, m.write(stringOf(args[1], desc) + suffix)
			}
		}
		key := fmt.Sprintf("%s.append:(%s)L%s;", classfile.StringBuilderName, desc, classfile.StringBuilderName)
		intrinsics[key] = func(m *Machine, args []Value) (Value, error) {
			o, err := builder(args)
			if err != nil {
				return Null, err
			}
			o.builder.WriteString(stringOf(args[1], desc))
			return args[0], nil
		}
	}
}

func (m *Machine) intrinsic(target classfile.MemberRef, args []Value) (Value, error) {
	fn, ok := intrinsics[target.String()]
	if !ok {
		return Null, throw("java/lang/NoSuchMethodError", "%s", target)
	}
	return fn(m, args)
}

func getStatic(ref classfile.MemberRef) (Value, error) {
	if ref.Class == classfile.SystemClass && ref.Name == "out" {
		return Value{kind: KindRef, ref: &printStream{}}, nil
	}
	return Null, throw("java/lang/NoSuchFieldError", "%s", ref)
}

func (m *Machine) write(s string) error {
	if m.out == nil {
		return nil
	}
	_, err := io.WriteString(m.out, s)
	return err
}

func receiver(args []Value, class string) (*Object, error) {
	if len(args) == 0 || args[0].IsNull() {
		return nil, throw("java/lang/NullPointerException", "null receiver")
	}
	o, ok := args[0].ref.(*Object)
	if !ok || o.Class != class {
		return nil, fmt.Errorf("vm: receiver is not a %s", javaName(class))
	}
	return o, nil
}

func builder(args []Value) (*Object, error) {
	o, err := receiver(args, classfile.StringBuilderName)
	if err != nil {
		return nil, err
	}
	if !o.init {
		return nil, fmt.Errorf("vm: use of an uninitialized StringBuilder")
	}
	return o, nil
}

// stringOf renders v as String.valueOf would for the static type desc.
func stringOf(v Value, desc string) string {
	switch desc {
	case "I":
		return fmt.Sprint(v.i)
	case "Z":
		if v.i != 0 {
			return "true"
		}
		return "false"
	case "F":
		return FormatFloat(v.f)
	case "D":
		return FormatDouble(v.d)
	}
	return javaString(v.ref)
}

func objectsEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		return ok && sa == sb
	}
	return a == b
}
