// Package vm interprets the class files the Sigma compiler emits. It
// covers exactly the instruction subset and library methods generated
// code uses, so programs can run without a JVM.
package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/tliron/commonlog"

	"github.com/chazu/sigma/classfile"
)

var log = commonlog.GetLogger("sigma.vm")

// DefaultMaxDepth bounds the call stack.
const DefaultMaxDepth = 2048

// checkInterval is how many instructions run between context checks.
const checkInterval = 1 << 12

// ---------------------------------------------------------------------------
// Exceptions
// ---------------------------------------------------------------------------

// Exception is a Java exception that escaped the program.
type Exception struct {
	Class   string // internal name
	Message string
}

func (e *Exception) Error() string {
	if e.Message == "" {
		return javaName(e.Class)
	}
	return javaName(e.Class) + ": " + e.Message
}

func throw(class, format string, args ...any) *Exception {
	return &Exception{Class: class, Message: fmt.Sprintf(format, args...)}
}

// ErrNoMain is returned by Run for a class without main(String[]).
var ErrNoMain = errors.New("vm: class has no public static void main(String[])")

// ---------------------------------------------------------------------------
// Machine: loaded class plus execution limits
// ---------------------------------------------------------------------------

// Machine runs the static methods of one class.
type Machine struct {
	class    *classfile.Class
	out      io.Writer
	methods  map[string]*method
	maxDepth int
	depth    int
	steps    int
}

// method is a decoded method body with a map from code offsets to
// instruction indexes for branch targets.
type method struct {
	*classfile.Method
	code  []classfile.Instruction
	index map[int]int
}

// Option configures a Machine.
type Option func(*Machine)

// WithMaxDepth sets the call stack limit.
func WithMaxDepth(n int) Option {
	return func(m *Machine) { m.maxDepth = n }
}

// Load parses a class file and prepares it for execution.
func Load(data []byte, out io.Writer, opts ...Option) (*Machine, error) {
	cls, err := classfile.Parse(data)
	if err != nil {
		return nil, err
	}
	return New(cls, out, opts...)
}

// New prepares a parsed class for execution, writing System.out to out.
func New(cls *classfile.Class, out io.Writer, opts ...Option) (*Machine, error) {
	m := &Machine{
		class:    cls,
		out:      out,
		methods:  make(map[string]*method),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, cm := range cls.Methods {
		if cm.Code == nil {
			continue
		}
		dm, err := decodeMethod(cm)
		if err != nil {
			return nil, fmt.Errorf("%s%s: %w", cm.Name, cm.Descriptor, err)
		}
		m.methods[cm.Name+cm.Descriptor] = dm
	}
	return m, nil
}

func decodeMethod(cm *classfile.Method) (*method, error) {
	dm := &method{Method: cm, index: make(map[int]int)}
	for pos := 0; pos < len(cm.Code.Code); {
		in, err := classfile.Decode(cm.Code.Code, pos)
		if err != nil {
			return nil, err
		}
		dm.index[pos] = len(dm.code)
		dm.code = append(dm.code, in)
		pos += in.Size
	}
	for _, in := range dm.code {
		if in.Op.IsBranch() {
			if _, ok := dm.index[in.Operand]; !ok {
				return nil, fmt.Errorf("branch at %d to %d is not an instruction boundary", in.Pos, in.Operand)
			}
		}
	}
	return dm, nil
}

// Run invokes main(String[]) with no arguments.
func (m *Machine) Run(ctx context.Context) error {
	if _, ok := m.methods["main([Ljava/lang/String;)V"]; !ok {
		return ErrNoMain
	}
	_, err := m.Invoke(ctx, "main", "([Ljava/lang/String;)V", Null)
	return err
}

// Invoke calls a static method of the class.
func (m *Machine) Invoke(ctx context.Context, name, desc string, args ...Value) (Value, error) {
	dm, ok := m.methods[name+desc]
	if !ok {
		return Null, fmt.Errorf("vm: no method %s.%s%s", m.class.Name, name, desc)
	}
	if !dm.IsStatic() {
		return Null, fmt.Errorf("vm: %s%s is not static", name, desc)
	}
	log.Debugf("invoke %s.%s%s", m.class.Name, name, desc)
	return m.call(ctx, dm, args)
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

type frame struct {
	locals []Value
	stack  []Value
}

func (f *frame) push(v Value) { f.stack = append(f.stack, v) }

func (f *frame) pop() Value {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *frame) popN(n int) []Value {
	args := make([]Value, n)
	copy(args, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return args
}

func (m *Machine) call(ctx context.Context, dm *method, args []Value) (Value, error) {
	if m.depth >= m.maxDepth {
		return Null, throw("java/lang/StackOverflowError", "call depth exceeds %d", m.maxDepth)
	}
	m.depth++
	defer func() { m.depth-- }()

	f := &frame{
		locals: make([]Value, max(dm.Code.MaxLocals, 1)),
		stack:  make([]Value, 0, dm.Code.MaxStack),
	}
	slot := 0
	for _, a := range args {
		if slot >= len(f.locals) {
			return Null, fmt.Errorf("vm: %s%s: too many arguments", dm.Name, dm.Descriptor)
		}
		f.locals[slot] = a
		slot++
		if a.wide() {
			slot++
		}
	}
	return m.execute(ctx, dm, f)
}

func (m *Machine) execute(ctx context.Context, dm *method, f *frame) (Value, error) {
	pool := m.class.Pool
	pc := 0
	for {
		if pc >= len(dm.code) {
			return Null, fmt.Errorf("vm: %s%s: execution ran off the end of the code", dm.Name, dm.Descriptor)
		}
		m.steps++
		if m.steps%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Null, err
			}
		}
		in := dm.code[pc]
		pc++

		if long, slot, ok := in.Slot(); ok {
			if slot >= len(f.locals) {
				return Null, fmt.Errorf("vm: %s%s: local %d out of range", dm.Name, dm.Descriptor, slot)
			}
			switch long {
			case classfile.OpIload, classfile.OpFload, classfile.OpDload, classfile.OpAload:
				f.push(f.locals[slot])
			default:
				f.locals[slot] = f.pop()
			}
			continue
		}

		switch op := in.Op; op {
		case classfile.OpNop:

		// --- Constants ---
		case classfile.OpAconstNull:
			f.push(Null)
		case classfile.OpIconstM1, classfile.OpIconst0, classfile.OpIconst1, classfile.OpIconst2,
			classfile.OpIconst3, classfile.OpIconst4, classfile.OpIconst5:
			f.push(Int(int32(op) - int32(classfile.OpIconst0)))
		case classfile.OpFconst0, classfile.OpFconst1, classfile.OpFconst2:
			f.push(Float(float32(op - classfile.OpFconst0)))
		case classfile.OpDconst0, classfile.OpDconst1:
			f.push(Double(float64(op - classfile.OpDconst0)))
		case classfile.OpBipush, classfile.OpSipush:
			f.push(Int(int32(in.Operand)))
		case classfile.OpLdc, classfile.OpLdcW, classfile.OpLdc2W:
			v, err := constant(pool, uint16(in.Operand))
			if err != nil {
				return Null, err
			}
			f.push(v)

		// --- Stack ---
		case classfile.OpPop:
			f.pop()
		case classfile.OpPop2:
			if v := f.pop(); !v.wide() {
				f.pop()
			}
		case classfile.OpDup:
			f.push(f.stack[len(f.stack)-1])

		// --- Arithmetic ---
		case classfile.OpIadd, classfile.OpIsub, classfile.OpImul, classfile.OpIdiv, classfile.OpIrem:
			b, a := f.pop().i, f.pop().i
			r, err := intArith(op, a, b)
			if err != nil {
				return Null, err
			}
			f.push(Int(r))
		case classfile.OpFadd, classfile.OpFsub, classfile.OpFmul, classfile.OpFdiv, classfile.OpFrem:
			b, a := f.pop().f, f.pop().f
			f.push(Float(float32(floatArith(op, float64(a), float64(b)))))
		case classfile.OpDadd, classfile.OpDsub, classfile.OpDmul, classfile.OpDdiv, classfile.OpDrem:
			b, a := f.pop().d, f.pop().d
			f.push(Double(floatArith(op, a, b)))
		case classfile.OpIneg:
			f.push(Int(-f.pop().i))
		case classfile.OpFneg:
			f.push(Float(-f.pop().f))
		case classfile.OpDneg:
			f.push(Double(-f.pop().d))
		case classfile.OpIxor:
			b, a := f.pop().i, f.pop().i
			f.push(Int(a ^ b))
		case classfile.OpIinc:
			f.locals[in.Operand] = Int(f.locals[in.Operand].i + int32(in.Delta))

		// --- Conversions ---
		case classfile.OpI2d:
			f.push(Double(float64(f.pop().i)))
		case classfile.OpI2f:
			f.push(Float(float32(f.pop().i)))
		case classfile.OpD2i:
			f.push(Int(d2i(f.pop().d)))
		case classfile.OpF2i:
			f.push(Int(d2i(float64(f.pop().f))))
		case classfile.OpF2d:
			f.push(Double(float64(f.pop().f)))
		case classfile.OpD2f:
			f.push(Float(float32(f.pop().d)))

		// --- Comparisons ---
		case classfile.OpDcmpg, classfile.OpDcmpl:
			b, a := f.pop().d, f.pop().d
			f.push(Int(compare(a, b, op == classfile.OpDcmpg)))
		case classfile.OpFcmpg, classfile.OpFcmpl:
			b, a := f.pop().f, f.pop().f
			f.push(Int(compare(float64(a), float64(b), op == classfile.OpFcmpg)))

		// --- Branches ---
		case classfile.OpIfeq, classfile.OpIfne, classfile.OpIflt, classfile.OpIfge, classfile.OpIfgt, classfile.OpIfle:
			if zeroHolds(op, f.pop().i) {
				pc = dm.index[in.Operand]
			}
		case classfile.OpIfIcmpeq, classfile.OpIfIcmpne, classfile.OpIfIcmplt,
			classfile.OpIfIcmpge, classfile.OpIfIcmpgt, classfile.OpIfIcmple:
			b, a := f.pop().i, f.pop().i
			if icmpHolds(op, a, b) {
				pc = dm.index[in.Operand]
			}
		case classfile.OpIfnull, classfile.OpIfnonnull:
			if f.pop().IsNull() == (op == classfile.OpIfnull) {
				pc = dm.index[in.Operand]
			}
		case classfile.OpGoto:
			pc = dm.index[in.Operand]

		// --- Returns ---
		case classfile.OpReturn:
			return Null, nil
		case classfile.OpIreturn, classfile.OpFreturn, classfile.OpDreturn, classfile.OpAreturn:
			return f.pop(), nil

		// --- Objects and calls ---
		case classfile.OpGetstatic:
			ref, err := pool.MemberAt(uint16(in.Operand))
			if err != nil {
				return Null, err
			}
			v, err := getStatic(ref)
			if err != nil {
				return Null, err
			}
			f.push(v)
		case classfile.OpNew:
			name, err := pool.ClassNameAt(uint16(in.Operand))
			if err != nil {
				return Null, err
			}
			f.push(ref(&Object{Class: name}))
		case classfile.OpInvokestatic, classfile.OpInvokevirtual, classfile.OpInvokespecial:
			if err := m.invoke(ctx, f, op, uint16(in.Operand)); err != nil {
				return Null, err
			}
		case classfile.OpAthrow:
			return Null, thrown(f.pop())

		default:
			return Null, fmt.Errorf("vm: unsupported instruction %s at %d", op, in.Pos)
		}
	}
}

func (m *Machine) invoke(ctx context.Context, f *frame, op classfile.Opcode, idx uint16) error {
	target, err := m.class.Pool.MemberAt(idx)
	if err != nil {
		return err
	}
	params, ret, err := classfile.ParseMethodDescriptor(target.Descriptor)
	if err != nil {
		return err
	}
	n := len(params)
	if op != classfile.OpInvokestatic {
		n++
	}
	if len(f.stack) < n {
		return fmt.Errorf("vm: operand stack underflow calling %s", target)
	}
	args := f.popN(n)

	var result Value
	if op == classfile.OpInvokestatic && target.Class == m.class.Name {
		dm, ok := m.methods[target.Name+target.Descriptor]
		if !ok {
			return fmt.Errorf("vm: no method %s", target)
		}
		result, err = m.call(ctx, dm, args)
	} else {
		result, err = m.intrinsic(target, args)
	}
	if err != nil {
		return err
	}
	if ret != "V" {
		f.push(result)
	}
	return nil
}

func constant(pool *classfile.ConstantPool, idx uint16) (Value, error) {
	c := pool.Entry(idx)
	if c == nil {
		return Null, fmt.Errorf("vm: bad constant index %d", idx)
	}
	switch c.Tag {
	case classfile.TagInteger:
		return Int(c.Int), nil
	case classfile.TagFloat:
		return Float(c.Float), nil
	case classfile.TagDouble:
		return Double(c.Double), nil
	case classfile.TagString:
		s, err := pool.Utf8At(c.Ref1)
		return String(s), err
	}
	return Null, fmt.Errorf("vm: unsupported constant %s", pool.Describe(idx))
}

func thrown(v Value) error {
	o, ok := v.ref.(*Object)
	if !ok {
		return throw("java/lang/NullPointerException", "cannot throw %s", javaString(v.ref))
	}
	return &Exception{Class: o.Class, Message: o.message}
}

func intArith(op classfile.Opcode, a, b int32) (int32, error) {
	switch op {
	case classfile.OpIadd:
		return a + b, nil
	case classfile.OpIsub:
		return a - b, nil
	case classfile.OpImul:
		return a * b, nil
	}
	if b == 0 {
		return 0, throw("java/lang/ArithmeticException", "/ by zero")
	}
	if op == classfile.OpIdiv {
		return a / b, nil
	}
	return a % b, nil
}

func floatArith(op classfile.Opcode, a, b float64) float64 {
	switch op {
	case classfile.OpFadd, classfile.OpDadd:
		return a + b
	case classfile.OpFsub, classfile.OpDsub:
		return a - b
	case classfile.OpFmul, classfile.OpDmul:
		return a * b
	case classfile.OpFdiv, classfile.OpDdiv:
		return a / b
	}
	return math.Mod(a, b)
}

// compare implements the cmpg and cmpl families; they differ only in the
// result for NaN.
func compare(a, b float64, nanIsGreater bool) int32 {
	switch {
	case a > b:
		return 1
	case a == b:
		return 0
	case a < b:
		return -1
	case nanIsGreater:
		return 1
	}
	return -1
}

func zeroHolds(op classfile.Opcode, v int32) bool {
	return icmpHolds(op-classfile.OpIfeq+classfile.OpIfIcmpeq, v, 0)
}

func icmpHolds(op classfile.Opcode, a, b int32) bool {
	switch op {
	case classfile.OpIfIcmpeq:
		return a == b
	case classfile.OpIfIcmpne:
		return a != b
	case classfile.OpIfIcmplt:
		return a < b
	case classfile.OpIfIcmpge:
		return a >= b
	case classfile.OpIfIcmpgt:
		return a > b
	}
	return a <= b
}
