package ast

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpLT
	OpLE
	OpGT
	OpGE
	OpEQ
	OpNE
	OpAnd
	OpOr
)

var binaryOpNames = [...]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpMod: "%",
	OpPow: "**",
	OpLT:  "<",
	OpLE:  "<=",
	OpGT:  ">",
	OpGE:  ">=",
	OpEQ:  "==",
	OpNE:  "!=",
	OpAnd: "&&",
	OpOr:  "||",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "?"
}

// IsComparison reports whether op is one of < <= > >= == !=.
func (op BinaryOp) IsComparison() bool {
	return op >= OpLT && op <= OpNE
}

// IsLogical reports whether op is && or ||.
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// IsArithmetic reports whether op is + - * / % **.
func (op BinaryOp) IsArithmetic() bool {
	return op <= OpPow
}

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota // !
	OpNeg                // -
)

func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "!"
	case OpNeg:
		return "-"
	}
	return "?"
}
