package hash

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/chazu/sigma/ast"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of a compilation unit.
//
// Encoding conventions:
//   - First byte: HashVersion
//   - Integers: big-endian fixed-width (int32=4B, counts=4B)
//   - Floats: IEEE 754 big-endian bits (double=8B, float=4B)
//   - Strings: uint32 big-endian length + UTF-8 bytes
//   - Booleans: single byte (0/1)
//   - Optional children: TagAbsent when missing
//
// Positions and the unit name are not serialized, so moving code around
// within a line or renaming the file keeps the hash.
// ---------------------------------------------------------------------------

// Serialize produces the byte serialization of unit.
func Serialize(unit *ast.CompilationUnit) []byte {
	s := &serializer{buf: make([]byte, 0, 256)}
	s.writeByte(HashVersion)
	s.writeByte(TagUnit)
	s.stmts(unit.Stmts)
	return s.buf
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint32(v uint32) {
	s.buf = binary.BigEndian.AppendUint32(s.buf, v)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) writeBool(b bool) {
	if b {
		s.writeByte(1)
	} else {
		s.writeByte(0)
	}
}

func (s *serializer) stmts(list []ast.Stmt) {
	s.writeUint32(uint32(len(list)))
	for _, stmt := range list {
		s.stmt(stmt)
	}
}

func (s *serializer) optExpr(e ast.Expr) {
	if e == nil {
		s.writeByte(TagAbsent)
		return
	}
	s.expr(e)
}

func (s *serializer) optStmt(st ast.Stmt) {
	if st == nil {
		s.writeByte(TagAbsent)
		return
	}
	s.stmt(st)
}

func (s *serializer) block(b *ast.Block) {
	s.writeByte(TagBlock)
	s.stmts(b.Stmts)
}

func (s *serializer) method(m *ast.MethodDecl) {
	s.writeByte(TagMethod)
	s.writeString(m.ReturnType)
	s.writeString(m.Name)
	s.writeUint32(uint32(len(m.Params)))
	for _, p := range m.Params {
		s.writeString(p.TypeName)
		s.writeString(p.Name)
	}
	s.block(m.Body)
}

func (s *serializer) stmt(stmt ast.Stmt) {
	switch n := stmt.(type) {
	case *ast.VarDecl:
		s.writeByte(TagVarDecl)
		s.writeString(n.TypeName)
		s.writeString(n.Name)
		s.optExpr(n.Init)
	case *ast.AssignStmt:
		s.writeByte(TagAssign)
		s.writeString(n.Name)
		s.expr(n.Value)
	case *ast.ExprStmt:
		s.writeByte(TagExpr)
		s.expr(n.Expr)
	case *ast.PrintStmt:
		s.writeByte(TagPrint)
		s.optExpr(n.Arg)
	case *ast.Block:
		s.block(n)
	case *ast.IfStmt:
		s.writeByte(TagIf)
		s.expr(n.Cond)
		s.block(n.Then)
		s.optStmt(n.Else)
	case *ast.WhileStmt:
		s.writeByte(TagWhile)
		s.expr(n.Cond)
		s.block(n.Body)
	case *ast.ForEachStmt:
		s.writeByte(TagForEach)
		s.writeString(n.TypeName)
		s.writeString(n.Name)
		s.expr(n.Iterable)
		s.block(n.Body)
	case *ast.ReturnStmt:
		s.writeByte(TagReturn)
		s.optExpr(n.Value)
	case *ast.MethodDecl:
		s.method(n)
	case *ast.FieldDecl:
		s.writeByte(TagField)
		s.writeString(n.TypeName)
		s.writeString(n.Name)
		s.optExpr(n.Init)
	case *ast.ClassDecl:
		s.writeByte(TagClass)
		s.writeString(n.Name)
		s.writeUint32(uint32(len(n.Fields)))
		for _, f := range n.Fields {
			s.stmt(f)
		}
		s.writeUint32(uint32(len(n.Methods)))
		for _, m := range n.Methods {
			s.method(m)
		}
	default:
		panic(fmt.Sprintf("hash: unknown statement %T", stmt))
	}
}

func (s *serializer) expr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.IntLiteral:
		s.writeByte(TagIntLiteral)
		s.writeUint32(uint32(n.Value))
	case *ast.DoubleLiteral:
		s.writeByte(TagDoubleLiteral)
		s.buf = binary.BigEndian.AppendUint64(s.buf, math.Float64bits(n.Value))
	case *ast.FloatLiteral:
		s.writeByte(TagFloatLiteral)
		s.writeUint32(math.Float32bits(n.Value))
	case *ast.StringLiteral:
		s.writeByte(TagStringLiteral)
		s.writeString(n.Value)
	case *ast.BoolLiteral:
		s.writeByte(TagBoolLiteral)
		s.writeBool(n.Value)
	case *ast.NullLiteral:
		s.writeByte(TagNullLiteral)
	case *ast.Identifier:
		s.writeByte(TagIdentifier)
		s.writeString(n.Name)
	case *ast.BinaryExpr:
		s.writeByte(TagBinary)
		s.writeByte(byte(n.Op))
		s.expr(n.Left)
		s.expr(n.Right)
	case *ast.UnaryExpr:
		s.writeByte(TagUnary)
		s.writeByte(byte(n.Op))
		s.expr(n.Operand)
	case *ast.CallExpr:
		s.writeByte(TagCall)
		s.expr(n.Callee)
		s.writeUint32(uint32(len(n.Args)))
		for _, a := range n.Args {
			s.expr(a)
		}
	case *ast.MemberExpr:
		s.writeByte(TagMember)
		s.expr(n.Object)
		s.writeString(n.Name)
	default:
		panic(fmt.Sprintf("hash: unknown expression %T", e))
	}
}
