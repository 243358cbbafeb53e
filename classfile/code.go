package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// maxCodeLength is the JVM limit on a method's bytecode.
const maxCodeLength = 65535

// ---------------------------------------------------------------------------
// Code: builder for one method body
// ---------------------------------------------------------------------------

// Code builds the bytecode of one method, tracking operand stack depth so
// max_stack can be computed as instructions are emitted. Errors (a branch
// that does not fit in 16 bits, a stack underflow) are sticky and surface
// from Finish.
type Code struct {
	pool      *ConstantPool
	bytes     []byte
	depth     int
	maxStack  int
	reachable bool
	labels    []*Label
	err       error
}

// NewCode creates an empty method body whose constants go to pool.
func NewCode(pool *ConstantPool) *Code {
	return &Code{
		pool:      pool,
		bytes:     make([]byte, 0, 64),
		reachable: true,
	}
}

// Bytes returns the constructed bytecode.
func (c *Code) Bytes() []byte {
	return c.bytes
}

// Len returns the current length.
func (c *Code) Len() int {
	return len(c.bytes)
}

// Depth returns the current operand stack depth in words.
func (c *Code) Depth() int {
	return c.depth
}

// MaxStack returns the deepest operand stack seen so far.
func (c *Code) MaxStack() int {
	return c.maxStack
}

// Reachable reports whether the next instruction can be reached by falling
// through; it is false after goto, return and athrow until a label is
// marked.
func (c *Code) Reachable() bool {
	return c.reachable
}

func (c *Code) fail(format string, args ...any) {
	if c.err == nil {
		c.err = fmt.Errorf(format, args...)
	}
}

// adjust applies a stack effect measured in words.
func (c *Code) adjust(effect int) {
	c.depth += effect
	if c.depth < 0 {
		c.fail("operand stack underflow at offset %d", len(c.bytes))
		c.depth = 0
	}
	if c.depth > c.maxStack {
		c.maxStack = c.depth
	}
}

func (c *Code) emit(op Opcode, effect int, operands ...byte) {
	c.bytes = append(c.bytes, byte(op))
	c.bytes = append(c.bytes, operands...)
	c.adjust(effect)
	if op.EndsBlock() {
		c.reachable = false
	}
}

// Emit appends an opcode with no operands.
func (c *Code) Emit(op Opcode) {
	info := op.Info()
	if info.OperandBytes != 0 || info.StackEffect == VarEffect {
		c.fail("%s needs operands", op)
		return
	}
	c.emit(op, info.StackEffect)
}

// EmitInt pushes an int constant using the shortest encoding.
func (c *Code) EmitInt(v int32) {
	switch {
	case v >= -1 && v <= 5:
		c.emit(Opcode(int32(OpIconst0)+v), 1)
	case v >= math.MinInt8 && v <= math.MaxInt8:
		c.emit(OpBipush, 1, byte(int8(v)))
	case v >= math.MinInt16 && v <= math.MaxInt16:
		c.emit(OpSipush, 1, byte(uint16(v)>>8), byte(v))
	default:
		c.emitLdc(c.pool.Integer(v))
	}
}

// EmitFloat pushes a float constant.
func (c *Code) EmitFloat(v float32) {
	switch {
	case v == 0 && !math.Signbit(float64(v)):
		c.emit(OpFconst0, 1)
	case v == 1:
		c.emit(OpFconst1, 1)
	case v == 2:
		c.emit(OpFconst2, 1)
	default:
		c.emitLdc(c.pool.Float(v))
	}
}

// EmitDouble pushes a double constant.
func (c *Code) EmitDouble(v float64) {
	switch {
	case v == 0 && !math.Signbit(v):
		c.emit(OpDconst0, 2)
	case v == 1:
		c.emit(OpDconst1, 2)
	default:
		idx := c.pool.Double(v)
		c.emit(OpLdc2W, 2, byte(idx>>8), byte(idx))
	}
}

// EmitString pushes a String constant.
func (c *Code) EmitString(s string) {
	c.emitLdc(c.pool.String(s))
}

func (c *Code) emitLdc(idx uint16) {
	if idx <= math.MaxUint8 {
		c.emit(OpLdc, 1, byte(idx))
		return
	}
	c.emit(OpLdcW, 1, byte(idx>>8), byte(idx))
}

// EmitLocal emits a load or store (the iload/istore family opcode) for
// slot, choosing the one-byte form for slots 0-3 and the wide prefix for
// slots above 255.
func (c *Code) EmitLocal(op Opcode, slot int) {
	if !op.IsLocalAccess() {
		c.fail("%s is not a local variable instruction", op)
		return
	}
	effect := op.Info().StackEffect
	switch {
	case slot < 0 || slot > math.MaxUint16:
		c.fail("local slot %d out of range", slot)
	case slot <= 3:
		c.emit(shortForm(op)+Opcode(slot), effect)
	case slot <= math.MaxUint8:
		c.emit(op, effect, byte(slot))
	default:
		c.bytes = append(c.bytes, byte(OpWide))
		c.emit(op, effect, byte(slot>>8), byte(slot))
	}
}

func shortForm(op Opcode) Opcode {
	switch op {
	case OpIload:
		return OpIload0
	case OpFload:
		return OpFload0
	case OpDload:
		return OpDload0
	case OpAload:
		return OpAload0
	case OpIstore:
		return OpIstore0
	case OpFstore:
		return OpFstore0
	case OpDstore:
		return OpDstore0
	}
	return OpAstore0
}

// EmitIinc increments an int local by delta.
func (c *Code) EmitIinc(slot int, delta int) {
	if slot <= math.MaxUint8 && delta >= math.MinInt8 && delta <= math.MaxInt8 {
		c.emit(OpIinc, 0, byte(slot), byte(int8(delta)))
		return
	}
	if slot > math.MaxUint16 || delta < math.MinInt16 || delta > math.MaxInt16 {
		c.fail("iinc operands out of range: slot %d, delta %d", slot, delta)
		return
	}
	c.bytes = append(c.bytes, byte(OpWide))
	c.emit(OpIinc, 0, byte(slot>>8), byte(slot), byte(uint16(delta)>>8), byte(delta))
}

// EmitField emits getstatic for a static field.
func (c *Code) EmitField(op Opcode, class, name, desc string) {
	if op != OpGetstatic {
		c.fail("unsupported field instruction %s", op)
		return
	}
	idx := c.pool.Fieldref(class, name, desc)
	c.emit(op, Words(desc), byte(idx>>8), byte(idx))
}

// EmitInvoke emits an invokestatic, invokevirtual or invokespecial.
func (c *Code) EmitInvoke(op Opcode, class, name, desc string) {
	if op != OpInvokestatic && op != OpInvokevirtual && op != OpInvokespecial {
		c.fail("unsupported invoke instruction %s", op)
		return
	}
	effect, err := InvokeEffect(desc, op == OpInvokestatic)
	if err != nil {
		c.fail("%s %s.%s: %w", op, class, name, err)
		return
	}
	idx := c.pool.Methodref(class, name, desc)
	c.emit(op, effect, byte(idx>>8), byte(idx))
}

// EmitNew allocates an uninitialized instance of class.
func (c *Code) EmitNew(class string) {
	idx := c.pool.Class(class)
	c.emit(OpNew, 1, byte(idx>>8), byte(idx))
}

// ---------------------------------------------------------------------------
// Label management for jumps
// ---------------------------------------------------------------------------

type labelRef struct {
	opPos    int // address of the branch opcode
	patchPos int // address of its 16-bit operand
}

// Label is a jump target. It records the stack depth on entry so code that
// follows an unconditional jump resumes with the right depth.
type Label struct {
	resolved   bool
	position   int
	depth      int
	depthKnown bool
	refs       []labelRef
}

// NewLabel creates an unresolved label.
func (c *Code) NewLabel() *Label {
	l := &Label{refs: make([]labelRef, 0, 2)}
	c.labels = append(c.labels, l)
	return l
}

func (c *Code) noteDepth(l *Label) {
	if !l.depthKnown {
		l.depth, l.depthKnown = c.depth, true
		return
	}
	if l.depth != c.depth {
		c.fail("inconsistent stack depth at label: %d and %d", l.depth, c.depth)
	}
}

// Mark resolves a label to the current position.
func (c *Code) Mark(l *Label) {
	if l.resolved {
		c.fail("label already resolved")
		return
	}
	switch {
	case c.reachable:
		c.noteDepth(l)
	case l.depthKnown:
		c.depth = l.depth
	default:
		c.depth = 0
		l.depth, l.depthKnown = 0, true
	}
	c.reachable = true
	l.resolved = true
	l.position = len(c.bytes)

	// Patch all forward references
	for _, ref := range l.refs {
		c.patch(ref, l.position)
	}
	l.refs = nil
}

// EmitJump emits a branch to label.
func (c *Code) EmitJump(op Opcode, l *Label) {
	if !op.IsBranch() {
		c.fail("%s is not a branch", op)
		return
	}
	opPos := len(c.bytes)
	c.emit(op, op.Info().StackEffect, 0, 0)
	c.noteDepth(l)
	ref := labelRef{opPos: opPos, patchPos: opPos + 1}
	if l.resolved {
		c.patch(ref, l.position)
		return
	}
	l.refs = append(l.refs, ref)
}

func (c *Code) patch(ref labelRef, target int) {
	offset := target - ref.opPos
	if offset < math.MinInt16 || offset > math.MaxInt16 {
		c.fail("method too large: branch offset %d does not fit in 16 bits", offset)
		return
	}
	binary.BigEndian.PutUint16(c.bytes[ref.patchPos:], uint16(int16(offset)))
}

// ---------------------------------------------------------------------------
// Finishing
// ---------------------------------------------------------------------------

// CodeAttr is a finished Code attribute.
type CodeAttr struct {
	MaxStack  int
	MaxLocals int
	Code      []byte
}

// Finish checks the body and packages it with maxLocals.
func (c *Code) Finish(maxLocals int) (*CodeAttr, error) {
	if c.err != nil {
		return nil, c.err
	}
	if len(c.bytes) == 0 {
		return nil, fmt.Errorf("empty method body")
	}
	for _, l := range c.labels {
		if !l.resolved && len(l.refs) > 0 {
			return nil, fmt.Errorf("jump to a label that was never marked")
		}
	}
	if len(c.bytes) > maxCodeLength {
		return nil, fmt.Errorf("method too large: %d bytes of code", len(c.bytes))
	}
	if c.reachable {
		return nil, fmt.Errorf("control falls off the end of the method")
	}
	if maxLocals > math.MaxUint16 || c.maxStack > math.MaxUint16 {
		return nil, fmt.Errorf("method too large: %d locals, %d stack words", maxLocals, c.maxStack)
	}
	return &CodeAttr{MaxStack: c.maxStack, MaxLocals: maxLocals, Code: c.bytes}, nil
}
