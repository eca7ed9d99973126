package code

// TokenType identifies the lexical class of a token.
type TokenType uint8

const (
	TOKEN_EOF TokenType = iota
	TOKEN_ERROR

	// Literals
	TOKEN_NAME
	TOKEN_NUMBER
	TOKEN_STRING

	// Keywords
	TOKEN_AND
	TOKEN_BREAK
	TOKEN_DO
	TOKEN_ELSE
	TOKEN_ELSEIF
	TOKEN_END
	TOKEN_FALSE
	TOKEN_FOR
	TOKEN_FUNCTION
	TOKEN_IF
	TOKEN_IN
	TOKEN_LOCAL
	TOKEN_NIL
	TOKEN_NOT
	TOKEN_OR
	TOKEN_RETURN
	TOKEN_THEN
	TOKEN_TRUE
	TOKEN_WHILE

	// Symbols
	TOKEN_PLUS     // +
	TOKEN_MINUS    // -
	TOKEN_STAR     // *
	TOKEN_SLASH    // /
	TOKEN_PERCENT  // %
	TOKEN_HASH     // #
	TOKEN_EQ       // ==
	TOKEN_NE       // ~=
	TOKEN_LT       // <
	TOKEN_LE       // <=
	TOKEN_GT       // >
	TOKEN_GE       // >=
	TOKEN_ASSIGN   // =
	TOKEN_LPAREN   // (
	TOKEN_RPAREN   // )
	TOKEN_LBRACE   // {
	TOKEN_RBRACE   // }
	TOKEN_LBRACKET // [
	TOKEN_RBRACKET // ]
	TOKEN_COMMA    // ,
	TOKEN_DOT      // .
	TOKEN_CONCAT   // ..
	TOKEN_SEMI     // ;
)

// Token is a single lexed token with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
}

var keywords = map[string]TokenType{
	"and":      TOKEN_AND,
	"break":    TOKEN_BREAK,
	"do":       TOKEN_DO,
	"else":     TOKEN_ELSE,
	"elseif":   TOKEN_ELSEIF,
	"end":      TOKEN_END,
	"false":    TOKEN_FALSE,
	"for":      TOKEN_FOR,
	"function": TOKEN_FUNCTION,
	"if":       TOKEN_IF,
	"in":       TOKEN_IN,
	"local":    TOKEN_LOCAL,
	"nil":      TOKEN_NIL,
	"not":      TOKEN_NOT,
	"or":       TOKEN_OR,
	"return":   TOKEN_RETURN,
	"then":     TOKEN_THEN,
	"true":     TOKEN_TRUE,
	"while":    TOKEN_WHILE,
}

// LookupKeyword returns the keyword token type for an identifier,
// or TOKEN_NAME when it is not a reserved word.
func LookupKeyword(ident string) TokenType {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return TOKEN_NAME
}
