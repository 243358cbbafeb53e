package classfile

import "fmt"

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode is a JVM instruction. Only the subset the Sigma code generator
// emits is defined here.
type Opcode byte

// Constants
const (
	OpNop        Opcode = 0x00
	OpAconstNull Opcode = 0x01
	OpIconstM1   Opcode = 0x02
	OpIconst0    Opcode = 0x03
	OpIconst1    Opcode = 0x04
	OpIconst2    Opcode = 0x05
	OpIconst3    Opcode = 0x06
	OpIconst4    Opcode = 0x07
	OpIconst5    Opcode = 0x08
	OpFconst0    Opcode = 0x0b
	OpFconst1    Opcode = 0x0c
	OpFconst2    Opcode = 0x0d
	OpDconst0    Opcode = 0x0e
	OpDconst1    Opcode = 0x0f
	OpBipush     Opcode = 0x10 // push signed 8-bit value
	OpSipush     Opcode = 0x11 // push signed 16-bit value
	OpLdc        Opcode = 0x12 // push int/float/String constant (8-bit index)
	OpLdcW       Opcode = 0x13 // push int/float/String constant (16-bit index)
	OpLdc2W      Opcode = 0x14 // push long/double constant (16-bit index)
)

// Loads
const (
	OpIload  Opcode = 0x15
	OpFload  Opcode = 0x17
	OpDload  Opcode = 0x18
	OpAload  Opcode = 0x19
	OpIload0 Opcode = 0x1a
	OpFload0 Opcode = 0x22
	OpDload0 Opcode = 0x26
	OpAload0 Opcode = 0x2a
)

// Stores
const (
	OpIstore  Opcode = 0x36
	OpFstore  Opcode = 0x38
	OpDstore  Opcode = 0x39
	OpAstore  Opcode = 0x3a
	OpIstore0 Opcode = 0x3b
	OpFstore0 Opcode = 0x43
	OpDstore0 Opcode = 0x47
	OpAstore0 Opcode = 0x4b
)

// Stack Operations
const (
	OpPop  Opcode = 0x57
	OpPop2 Opcode = 0x58
	OpDup  Opcode = 0x59
)

// Arithmetic
const (
	OpIadd Opcode = 0x60
	OpFadd Opcode = 0x62
	OpDadd Opcode = 0x63
	OpIsub Opcode = 0x64
	OpFsub Opcode = 0x66
	OpDsub Opcode = 0x67
	OpImul Opcode = 0x68
	OpFmul Opcode = 0x6a
	OpDmul Opcode = 0x6b
	OpIdiv Opcode = 0x6c
	OpFdiv Opcode = 0x6e
	OpDdiv Opcode = 0x6f
	OpIrem Opcode = 0x70
	OpFrem Opcode = 0x72
	OpDrem Opcode = 0x73
	OpIneg Opcode = 0x74
	OpFneg Opcode = 0x76
	OpDneg Opcode = 0x77
	OpIxor Opcode = 0x82
	OpIinc Opcode = 0x84 // increment local (8-bit slot, signed 8-bit delta)
)

// Conversions
const (
	OpI2f Opcode = 0x86
	OpI2d Opcode = 0x87
	OpF2i Opcode = 0x8b
	OpF2d Opcode = 0x8d
	OpD2i Opcode = 0x8e
	OpD2f Opcode = 0x90
)

// Comparisons
const (
	OpFcmpl Opcode = 0x95
	OpFcmpg Opcode = 0x96
	OpDcmpl Opcode = 0x97
	OpDcmpg Opcode = 0x98
)

// Control Flow (16-bit offset from the opcode's own address)
const (
	OpIfeq      Opcode = 0x99
	OpIfne      Opcode = 0x9a
	OpIflt      Opcode = 0x9b
	OpIfge      Opcode = 0x9c
	OpIfgt      Opcode = 0x9d
	OpIfle      Opcode = 0x9e
	OpIfIcmpeq  Opcode = 0x9f
	OpIfIcmpne  Opcode = 0xa0
	OpIfIcmplt  Opcode = 0xa1
	OpIfIcmpge  Opcode = 0xa2
	OpIfIcmpgt  Opcode = 0xa3
	OpIfIcmple  Opcode = 0xa4
	OpGoto      Opcode = 0xa7
	OpIfnull    Opcode = 0xc6
	OpIfnonnull Opcode = 0xc7
)

// Returns
const (
	OpIreturn Opcode = 0xac
	OpFreturn Opcode = 0xae
	OpDreturn Opcode = 0xaf
	OpAreturn Opcode = 0xb0
	OpReturn  Opcode = 0xb1
)

// References
const (
	OpGetstatic     Opcode = 0xb2
	OpInvokevirtual Opcode = 0xb6
	OpInvokespecial Opcode = 0xb7
	OpInvokestatic  Opcode = 0xb8
	OpNew           Opcode = 0xbb
	OpAthrow        Opcode = 0xbf
	OpWide          Opcode = 0xc4 // widen the following local-variable instruction
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// VarEffect marks instructions whose stack effect depends on a descriptor.
const VarEffect = -128

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name         string // mnemonic
	OperandBytes int    // number of operand bytes (unwidened)
	StackEffect  int    // net effect in stack words, or VarEffect
}

// opcodeTable maps opcodes to their metadata. The short load/store forms
// (iload_0 and friends) are filled in by init.
var opcodeTable = map[Opcode]OpcodeInfo{
	// Constants
	OpNop:        {"nop", 0, 0},
	OpAconstNull: {"aconst_null", 0, 1},
	OpIconstM1:   {"iconst_m1", 0, 1},
	OpIconst0:    {"iconst_0", 0, 1},
	OpIconst1:    {"iconst_1", 0, 1},
	OpIconst2:    {"iconst_2", 0, 1},
	OpIconst3:    {"iconst_3", 0, 1},
	OpIconst4:    {"iconst_4", 0, 1},
	OpIconst5:    {"iconst_5", 0, 1},
	OpFconst0:    {"fconst_0", 0, 1},
	OpFconst1:    {"fconst_1", 0, 1},
	OpFconst2:    {"fconst_2", 0, 1},
	OpDconst0:    {"dconst_0", 0, 2},
	OpDconst1:    {"dconst_1", 0, 2},
	OpBipush:     {"bipush", 1, 1},
	OpSipush:     {"sipush", 2, 1},
	OpLdc:        {"ldc", 1, 1},
	OpLdcW:       {"ldc_w", 2, 1},
	OpLdc2W:      {"ldc2_w", 2, 2},

	// Locals
	OpIload:  {"iload", 1, 1},
	OpFload:  {"fload", 1, 1},
	OpDload:  {"dload", 1, 2},
	OpAload:  {"aload", 1, 1},
	OpIstore: {"istore", 1, -1},
	OpFstore: {"fstore", 1, -1},
	OpDstore: {"dstore", 1, -2},
	OpAstore: {"astore", 1, -1},
	OpIinc:   {"iinc", 2, 0},

	// Stack
	OpPop:  {"pop", 0, -1},
	OpPop2: {"pop2", 0, -2},
	OpDup:  {"dup", 0, 1},

	// Arithmetic
	OpIadd: {"iadd", 0, -1},
	OpFadd: {"fadd", 0, -1},
	OpDadd: {"dadd", 0, -2},
	OpIsub: {"isub", 0, -1},
	OpFsub: {"fsub", 0, -1},
	OpDsub: {"dsub", 0, -2},
	OpImul: {"imul", 0, -1},
	OpFmul: {"fmul", 0, -1},
	OpDmul: {"dmul", 0, -2},
	OpIdiv: {"idiv", 0, -1},
	OpFdiv: {"fdiv", 0, -1},
	OpDdiv: {"ddiv", 0, -2},
	OpIrem: {"irem", 0, -1},
	OpFrem: {"frem", 0, -1},
	OpDrem: {"drem", 0, -2},
	OpIneg: {"ineg", 0, 0},
	OpFneg: {"fneg", 0, 0},
	OpDneg: {"dneg", 0, 0},
	OpIxor: {"ixor", 0, -1},

	// Conversions
	OpI2f: {"i2f", 0, 0},
	OpI2d: {"i2d", 0, 1},
	OpF2i: {"f2i", 0, 0},
	OpF2d: {"f2d", 0, 1},
	OpD2i: {"d2i", 0, -1},
	OpD2f: {"d2f", 0, -1},

	// Comparisons
	OpFcmpl: {"fcmpl", 0, -1},
	OpFcmpg: {"fcmpg", 0, -1},
	OpDcmpl: {"dcmpl", 0, -3},
	OpDcmpg: {"dcmpg", 0, -3},

	// Control flow
	OpIfeq:      {"ifeq", 2, -1},
	OpIfne:      {"ifne", 2, -1},
	OpIflt:      {"iflt", 2, -1},
	OpIfge:      {"ifge", 2, -1},
	OpIfgt:      {"ifgt", 2, -1},
	OpIfle:      {"ifle", 2, -1},
	OpIfIcmpeq:  {"if_icmpeq", 2, -2},
	OpIfIcmpne:  {"if_icmpne", 2, -2},
	OpIfIcmplt:  {"if_icmplt", 2, -2},
	OpIfIcmpge:  {"if_icmpge", 2, -2},
	OpIfIcmpgt:  {"if_icmpgt", 2, -2},
	OpIfIcmple:  {"if_icmple", 2, -2},
	OpGoto:      {"goto", 2, 0},
	OpIfnull:    {"ifnull", 2, -1},
	OpIfnonnull: {"ifnonnull", 2, -1},

	// Returns
	OpIreturn: {"ireturn", 0, -1},
	OpFreturn: {"freturn", 0, -1},
	OpDreturn: {"dreturn", 0, -2},
	OpAreturn: {"areturn", 0, -1},
	OpReturn:  {"return", 0, 0},

	// References
	OpGetstatic:     {"getstatic", 2, VarEffect},
	OpInvokevirtual: {"invokevirtual", 2, VarEffect},
	OpInvokespecial: {"invokespecial", 2, VarEffect},
	OpInvokestatic:  {"invokestatic", 2, VarEffect},
	OpNew:           {"new", 2, 1},
	OpAthrow:        {"athrow", 0, -1},
	OpWide:          {"wide", 0, 0},
}

func init() {
	short := []struct {
		base   Opcode
		prefix string
		effect int
	}{
		{OpIload0, "iload_", 1},
		{OpFload0, "fload_", 1},
		{OpDload0, "dload_", 2},
		{OpAload0, "aload_", 1},
		{OpIstore0, "istore_", -1},
		{OpFstore0, "fstore_", -1},
		{OpDstore0, "dstore_", -2},
		{OpAstore0, "astore_", -1},
	}
	for _, s := range short {
		for i := 0; i < 4; i++ {
			opcodeTable[s.base+Opcode(i)] = OpcodeInfo{fmt.Sprintf("%s%d", s.prefix, i), 0, s.effect}
		}
	}
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("unknown_%02x", byte(op))}
}

// Known reports whether op is in the supported subset.
func (op Opcode) Known() bool {
	_, ok := opcodeTable[op]
	return ok
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Info().Name
}

// IsBranch reports whether op takes a 16-bit branch offset.
func (op Opcode) IsBranch() bool {
	return (op >= OpIfeq && op <= OpIfIcmple) || op == OpGoto || op == OpIfnull || op == OpIfnonnull
}

// EndsBlock reports whether control never falls through op.
func (op Opcode) EndsBlock() bool {
	switch op {
	case OpGoto, OpAthrow, OpReturn, OpIreturn, OpFreturn, OpDreturn, OpAreturn:
		return true
	}
	return false
}

// IsLocalAccess reports whether op is a load or store with a slot operand.
func (op Opcode) IsLocalAccess() bool {
	switch op {
	case OpIload, OpFload, OpDload, OpAload, OpIstore, OpFstore, OpDstore, OpAstore:
		return true
	}
	return false
}
