package syntax

import (
	"fmt"

	"github.com/chazu/sigma/ast"
)

// ---------------------------------------------------------------------------
// Token types for the Sigma lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInt        // 42
	TokenDouble     // 3.14, 1e10, 2d
	TokenFloat      // 3.14f
	TokenString     // "hello"
	TokenIdentifier // foo, int, Point

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenComma     // ,
	TokenSemicolon // ;
	TokenPeriod    // .
	TokenColon     // :
	TokenAssign    // =

	// Operators
	TokenPlus    // +
	TokenMinus   // -
	TokenStar    // *
	TokenSlash   // /
	TokenPercent // %
	TokenPower   // **
	TokenLT      // <
	TokenLE      // <=
	TokenGT      // >
	TokenGE      // >=
	TokenEQ      // ==
	TokenNE      // !=
	TokenAndAnd  // &&
	TokenOrOr    // ||
	TokenBang    // !

	// Reserved words
	TokenClass
	TokenIf
	TokenElse
	TokenWhile
	TokenFor
	TokenReturn
	TokenTrue
	TokenFalse
	TokenNull
	TokenPrint
	TokenPrintln
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenInt:        "INT",
	TokenDouble:     "DOUBLE",
	TokenFloat:      "FLOAT",
	TokenString:     "STRING",
	TokenIdentifier: "IDENTIFIER",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenComma:      ",",
	TokenSemicolon:  ";",
	TokenPeriod:     ".",
	TokenColon:      ":",
	TokenAssign:     "=",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenPercent:    "%",
	TokenPower:      "**",
	TokenLT:         "<",
	TokenLE:         "<=",
	TokenGT:         ">",
	TokenGE:         ">=",
	TokenEQ:         "==",
	TokenNE:         "!=",
	TokenAndAnd:     "&&",
	TokenOrOr:       "||",
	TokenBang:       "!",
	TokenClass:      "class",
	TokenIf:         "if",
	TokenElse:       "else",
	TokenWhile:      "while",
	TokenFor:        "for",
	TokenReturn:     "return",
	TokenTrue:       "true",
	TokenFalse:      "false",
	TokenNull:       "null",
	TokenPrint:      "print",
	TokenPrintln:    "println",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string  // the raw text; the decoded value for strings
	Pos     ast.Pos // start position
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types. Type names such as int and
// void are ordinary identifiers.
var reservedWords = map[string]TokenType{
	"class":   TokenClass,
	"if":      TokenIf,
	"else":    TokenElse,
	"while":   TokenWhile,
	"for":     TokenFor,
	"return":  TokenReturn,
	"true":    TokenTrue,
	"false":   TokenFalse,
	"null":    TokenNull,
	"print":   TokenPrint,
	"println": TokenPrintln,
}

// LookupIdent returns the token type for an identifier or reserved word.
func LookupIdent(ident string) TokenType {
	if tok, ok := reservedWords[ident]; ok {
		return tok
	}
	return TokenIdentifier
}
