package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the AST serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// every previously computed content hash and with it the build cache.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing content hashes.
const HashVersion byte = 1

// Node type tags.
const (
	TagReservedZero byte = 0x00

	// Literals
	TagIntLiteral    byte = 0x01
	TagDoubleLiteral byte = 0x02
	TagFloatLiteral  byte = 0x03
	TagStringLiteral byte = 0x04
	TagBoolLiteral   byte = 0x05
	TagNullLiteral   byte = 0x06

	// Other expressions
	TagIdentifier byte = 0x10
	TagBinary     byte = 0x11
	TagUnary      byte = 0x12
	TagCall       byte = 0x13
	TagMember     byte = 0x14

	// Statements
	TagVarDecl byte = 0x20
	TagAssign  byte = 0x21
	TagExpr    byte = 0x22
	TagPrint   byte = 0x23
	TagBlock   byte = 0x24
	TagIf      byte = 0x25
	TagWhile   byte = 0x26
	TagForEach byte = 0x27
	TagReturn  byte = 0x28

	// Declarations
	TagMethod byte = 0x30
	TagField  byte = 0x31
	TagClass  byte = 0x32
	TagUnit   byte = 0x33

	// Marks an absent optional child.
	TagAbsent byte = 0xFF
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagIntLiteral, TagDoubleLiteral, TagFloatLiteral, TagStringLiteral, TagBoolLiteral, TagNullLiteral,
	TagIdentifier, TagBinary, TagUnary, TagCall, TagMember,
	TagVarDecl, TagAssign, TagExpr, TagPrint, TagBlock, TagIf, TagWhile, TagForEach, TagReturn,
	TagMethod, TagField, TagClass, TagUnit,
	TagAbsent,
}
