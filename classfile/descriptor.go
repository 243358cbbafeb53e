package classfile

import (
	"fmt"
	"strings"
)

// Common internal class names and descriptors.
const (
	ObjectClass       = "java/lang/Object"
	StringClass       = "java/lang/String"
	SystemClass       = "java/lang/System"
	PrintStreamClass  = "java/io/PrintStream"
	StringBuilderName = "java/lang/StringBuilder"
	MathClass         = "java/lang/Math"
	ObjectsClass      = "java/util/Objects"
	IllegalStateClass = "java/lang/IllegalStateException"

	ObjectDesc = "Ljava/lang/Object;"
	StringDesc = "Ljava/lang/String;"
)

// MethodDescriptor builds a descriptor such as (ID)Ljava/lang/String;.
func MethodDescriptor(params []string, ret string) string {
	return "(" + strings.Join(params, "") + ")" + ret
}

// ParseMethodDescriptor splits a method descriptor into its parameter
// field descriptors and return descriptor.
func ParseMethodDescriptor(desc string) ([]string, string, error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("malformed method descriptor %q", desc)
	}
	var params []string
	rest := desc[1:]
	for !strings.HasPrefix(rest, ")") {
		n := fieldLen(rest)
		if n == 0 {
			return nil, "", fmt.Errorf("malformed method descriptor %q", desc)
		}
		params = append(params, rest[:n])
		rest = rest[n:]
	}
	ret := rest[1:]
	if ret != "V" && (ret == "" || fieldLen(ret) != len(ret)) {
		return nil, "", fmt.Errorf("malformed method descriptor %q", desc)
	}
	return params, ret, nil
}

// fieldLen returns the length of the field descriptor at the start of s,
// or 0 if there is none.
func fieldLen(s string) int {
	if s == "" {
		return 0
	}
	switch s[0] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return 1
	case 'L':
		if i := strings.IndexByte(s, ';'); i > 1 {
			return i + 1
		}
	case '[':
		if n := fieldLen(s[1:]); n > 0 {
			return n + 1
		}
	}
	return 0
}

// Words returns how many stack or local words a value of the field
// descriptor occupies: 2 for long and double, 0 for void, else 1.
func Words(desc string) int {
	switch desc {
	case "J", "D":
		return 2
	case "V":
		return 0
	}
	return 1
}

// InvokeEffect is the net stack effect of invoking a method with the given
// descriptor; static calls have no receiver.
func InvokeEffect(desc string, static bool) (int, error) {
	params, ret, err := ParseMethodDescriptor(desc)
	if err != nil {
		return 0, err
	}
	effect := Words(ret)
	for _, p := range params {
		effect -= Words(p)
	}
	if !static {
		effect--
	}
	return effect, nil
}
