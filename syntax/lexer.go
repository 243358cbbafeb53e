package syntax

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chazu/sigma/ast"
)

// ---------------------------------------------------------------------------
// Lexer: tokenizer for Sigma source
// ---------------------------------------------------------------------------

// Lexer tokenizes Sigma source code.
type Lexer struct {
	input   string
	pos     int  // offset of ch
	readPos int  // offset after ch
	ch      rune // current character, 0 at EOF
	line    int  // line of ch (1-based)
	col     int  // column of ch (1-based, in runes)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

// readChar advances to the next character, keeping line and column in step.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input)
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) position() ast.Pos {
	return ast.Pos{Line: l.line, Column: l.col}
}

// Tokenize returns every token up to and including EOF.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	if msg := l.skipWhitespaceAndComments(); msg != "" {
		return Token{Type: TokenError, Literal: msg, Pos: l.position()}
	}

	pos := l.position()
	single := func(t TokenType) Token {
		lit := string(l.ch)
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos}
	}
	// pair returns t2 if the next character is second, otherwise t1.
	pair := func(second rune, t1, t2 TokenType) Token {
		first := l.ch
		l.readChar()
		if l.ch == second {
			l.readChar()
			return Token{Type: t2, Literal: string([]rune{first, second}), Pos: pos}
		}
		return Token{Type: t1, Literal: string(first), Pos: pos}
	}

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Pos: pos}
	case l.ch == '(':
		return single(TokenLParen)
	case l.ch == ')':
		return single(TokenRParen)
	case l.ch == '{':
		return single(TokenLBrace)
	case l.ch == '}':
		return single(TokenRBrace)
	case l.ch == ',':
		return single(TokenComma)
	case l.ch == ';':
		return single(TokenSemicolon)
	case l.ch == ':':
		return single(TokenColon)
	case l.ch == '+':
		return single(TokenPlus)
	case l.ch == '-':
		return single(TokenMinus)
	case l.ch == '/':
		return single(TokenSlash)
	case l.ch == '%':
		return single(TokenPercent)
	case l.ch == '*':
		return pair('*', TokenStar, TokenPower)
	case l.ch == '<':
		return pair('=', TokenLT, TokenLE)
	case l.ch == '>':
		return pair('=', TokenGT, TokenGE)
	case l.ch == '=':
		return pair('=', TokenAssign, TokenEQ)
	case l.ch == '!':
		return pair('=', TokenBang, TokenNE)
	case l.ch == '&':
		if l.peekChar() == '&' {
			return pair('&', TokenError, TokenAndAnd)
		}
		l.readChar()
		return Token{Type: TokenError, Literal: "unexpected '&'", Pos: pos}
	case l.ch == '|':
		if l.peekChar() == '|' {
			return pair('|', TokenError, TokenOrOr)
		}
		l.readChar()
		return Token{Type: TokenError, Literal: "unexpected '|'", Pos: pos}
	case l.ch == '.':
		if isDigit(l.peekChar()) {
			return l.readNumber(pos)
		}
		return single(TokenPeriod)
	case l.ch == '"':
		return l.readString(pos)
	case isDigit(l.ch):
		return l.readNumber(pos)
	case isLetter(l.ch):
		start := l.pos
		for isLetter(l.ch) || isDigit(l.ch) {
			l.readChar()
		}
		lit := l.input[start:l.pos]
		return Token{Type: LookupIdent(lit), Literal: lit, Pos: pos}
	}

	ch := l.ch
	l.readChar()
	return Token{Type: TokenError, Literal: "unexpected character " + string(ch), Pos: pos}
}

// skipWhitespaceAndComments skips blanks, // line comments and /* */
// block comments. It returns a message for an unterminated block comment.
func (l *Lexer) skipWhitespaceAndComments() string {
	for {
		switch {
		case unicode.IsSpace(l.ch):
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for !(l.ch == '*' && l.peekChar() == '/') {
				if l.ch == 0 {
					return "unterminated comment"
				}
				l.readChar()
			}
			l.readChar()
			l.readChar()
		default:
			return ""
		}
	}
}

// readNumber scans 12, 1.5, .5, 1e3, 2.5f and 2d. A literal with a
// fraction or exponent is a double unless suffixed with f.
func (l *Lexer) readNumber(pos ast.Pos) Token {
	start := l.pos
	kind := TokenInt
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		kind = TokenDouble
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			kind = TokenDouble
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			if !isDigit(l.ch) {
				return Token{Type: TokenError, Literal: "malformed exponent", Pos: pos}
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	lit := l.input[start:l.pos]
	switch l.ch {
	case 'f', 'F':
		l.readChar()
		return Token{Type: TokenFloat, Literal: lit, Pos: pos}
	case 'd', 'D':
		l.readChar()
		return Token{Type: TokenDouble, Literal: lit, Pos: pos}
	}
	return Token{Type: kind, Literal: lit, Pos: pos}
}

func (l *Lexer) readString(pos ast.Pos) Token {
	l.readChar() // opening quote
	var sb strings.Builder
	for l.ch != '"' {
		switch l.ch {
		case 0, '\n':
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '"', '\\':
				sb.WriteRune(l.ch)
			default:
				return Token{Type: TokenError, Literal: "invalid escape \\" + string(l.ch), Pos: pos}
			}
		default:
			sb.WriteRune(l.ch)
		}
		l.readChar()
	}
	l.readChar() // closing quote
	return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
}

func isLetter(ch rune) bool {
	return ch == '_' || ch == '$' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}
