// Package hash computes content hashes of Sigma compilation units.
package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/sigma/ast"
)

// HashUnit computes the SHA-256 content hash of a compilation unit.
//
// The hash is computed over a deterministic serialization of the AST that
// ignores source positions and the unit name. Two units with the same
// statements produce the same hash regardless of whitespace and comments.
func HashUnit(unit *ast.CompilationUnit) [32]byte {
	return sha256.Sum256(Serialize(unit))
}

// HashString is HashUnit rendered as lowercase hex.
func HashString(unit *ast.CompilationUnit) string {
	h := HashUnit(unit)
	return hex.EncodeToString(h[:])
}
