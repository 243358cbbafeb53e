package classfile

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Instruction decoding
// ---------------------------------------------------------------------------

// Instruction is one decoded instruction.
type Instruction struct {
	Pos     int    // address of the opcode (or of the wide prefix)
	Op      Opcode // the instruction proper, never OpWide
	Wide    bool
	Operand int // slot, constant index, immediate, or branch target
	Delta   int // iinc increment
	Size    int // bytes including any wide prefix
}

// Decode reads the instruction at pos.
func Decode(code []byte, pos int) (Instruction, error) {
	in := Instruction{Pos: pos}
	at := pos
	if at >= len(code) {
		return in, ErrTruncated
	}
	op := Opcode(code[at])
	if op == OpWide {
		in.Wide = true
		at++
		if at >= len(code) {
			return in, ErrTruncated
		}
		op = Opcode(code[at])
		if !op.IsLocalAccess() && op != OpIinc {
			return in, fmt.Errorf("wide %s at %d", op, pos)
		}
	}
	if !op.Known() {
		return in, fmt.Errorf("unknown opcode 0x%02x at %d", byte(op), at)
	}
	in.Op = op
	n := op.Info().OperandBytes
	if in.Wide {
		n *= 2
	}
	if at+1+n > len(code) {
		return in, ErrTruncated
	}
	b := code[at+1 : at+1+n]
	in.Size = at + 1 + n - pos

	switch {
	case op == OpIinc && in.Wide:
		in.Operand = int(binary.BigEndian.Uint16(b))
		in.Delta = int(int16(binary.BigEndian.Uint16(b[2:])))
	case op == OpIinc:
		in.Operand = int(b[0])
		in.Delta = int(int8(b[1]))
	case op.IsBranch():
		in.Operand = pos + int(int16(binary.BigEndian.Uint16(b)))
	case op == OpBipush:
		in.Operand = int(int8(b[0]))
	case op == OpSipush:
		in.Operand = int(int16(binary.BigEndian.Uint16(b)))
	case n == 1:
		in.Operand = int(b[0])
	case n == 2:
		in.Operand = int(binary.BigEndian.Uint16(b))
	}
	return in, nil
}

// Slot returns the local slot a load or store touches, including the
// one-byte forms; ok is false for other instructions.
func (in Instruction) Slot() (op Opcode, slot int, ok bool) {
	if in.Op.IsLocalAccess() {
		return in.Op, in.Operand, true
	}
	for _, long := range []Opcode{OpIload, OpFload, OpDload, OpAload, OpIstore, OpFstore, OpDstore, OpAstore} {
		base := shortForm(long)
		if in.Op >= base && in.Op < base+4 {
			return long, int(in.Op - base), true
		}
	}
	return 0, 0, false
}

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// DisassembleInstruction renders one instruction.
func DisassembleInstruction(in Instruction, pool *ConstantPool) string {
	name := in.Op.String()
	if in.Wide {
		name = "wide " + name
	}
	switch {
	case in.Op == OpIinc:
		return fmt.Sprintf("%04d  %s %d %d", in.Pos, name, in.Operand, in.Delta)
	case in.Op.IsBranch():
		return fmt.Sprintf("%04d  %s -> %04d", in.Pos, name, in.Operand)
	case in.Op == OpLdc, in.Op == OpLdcW, in.Op == OpLdc2W, in.Op == OpGetstatic,
		in.Op == OpInvokestatic, in.Op == OpInvokevirtual, in.Op == OpInvokespecial, in.Op == OpNew:
		return fmt.Sprintf("%04d  %s #%d // %s", in.Pos, name, in.Operand, pool.Describe(uint16(in.Operand)))
	case in.Op.Info().OperandBytes > 0:
		return fmt.Sprintf("%04d  %s %d", in.Pos, name, in.Operand)
	}
	return fmt.Sprintf("%04d  %s", in.Pos, name)
}

// DisassembleCode renders a method body, one instruction per line.
func DisassembleCode(code []byte, pool *ConstantPool) (string, error) {
	var lines []string
	for pos := 0; pos < len(code); {
		in, err := Decode(code, pos)
		if err != nil {
			return strings.Join(lines, "\n"), err
		}
		lines = append(lines, DisassembleInstruction(in, pool))
		pos += in.Size
	}
	return strings.Join(lines, "\n"), nil
}

// Disassemble renders a whole class in a javap-like layout.
func Disassemble(c *Class) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "class %s extends %s (version %d.%d)\n", c.Name, c.SuperName, c.Major, c.Minor)
	if c.SourceFile != "" {
		fmt.Fprintf(&sb, "  source %s\n", c.SourceFile)
	}
	for _, m := range c.Methods {
		static := ""
		if m.IsStatic() {
			static = "static "
		}
		fmt.Fprintf(&sb, "\n  %s%s%s\n", static, m.Name, m.Descriptor)
		if m.Code == nil {
			continue
		}
		fmt.Fprintf(&sb, "    max_stack=%d max_locals=%d\n", m.Code.MaxStack, m.Code.MaxLocals)
		body, err := DisassembleCode(m.Code.Code, c.Pool)
		for _, line := range strings.Split(body, "\n") {
			if line != "" {
				sb.WriteString("    " + line + "\n")
			}
		}
		if err != nil {
			return sb.String(), fmt.Errorf("%s%s: %w", m.Name, m.Descriptor, err)
		}
	}
	return sb.String(), nil
}
