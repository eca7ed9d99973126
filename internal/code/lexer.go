package code

import (
	"strings"
)

// Lexer turns Lumen source text into a token stream.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int  // current line number
}

// NewLexer creates a lexer over the given source.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.readChar()
		case l.ch == '-' && l.peekChar() == '-':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

// NextToken lexes and returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	line := l.line
	tok := func(t TokenType, lit string) Token {
		return Token{Type: t, Literal: lit, Line: line}
	}

	switch l.ch {
	case 0:
		return tok(TOKEN_EOF, "")
	case '+':
		l.readChar()
		return tok(TOKEN_PLUS, "+")
	case '-':
		l.readChar()
		return tok(TOKEN_MINUS, "-")
	case '*':
		l.readChar()
		return tok(TOKEN_STAR, "*")
	case '/':
		l.readChar()
		return tok(TOKEN_SLASH, "/")
	case '%':
		l.readChar()
		return tok(TOKEN_PERCENT, "%")
	case '#':
		l.readChar()
		return tok(TOKEN_HASH, "#")
	case '(':
		l.readChar()
		return tok(TOKEN_LPAREN, "(")
	case ')':
		l.readChar()
		return tok(TOKEN_RPAREN, ")")
	case '{':
		l.readChar()
		return tok(TOKEN_LBRACE, "{")
	case '}':
		l.readChar()
		return tok(TOKEN_RBRACE, "}")
	case '[':
		l.readChar()
		return tok(TOKEN_LBRACKET, "[")
	case ']':
		l.readChar()
		return tok(TOKEN_RBRACKET, "]")
	case ',':
		l.readChar()
		return tok(TOKEN_COMMA, ",")
	case ';':
		l.readChar()
		return tok(TOKEN_SEMI, ";")
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return tok(TOKEN_EQ, "==")
		}
		l.readChar()
		return tok(TOKEN_ASSIGN, "=")
	case '~':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return tok(TOKEN_NE, "~=")
		}
		l.readChar()
		return tok(TOKEN_ERROR, "unexpected character '~'")
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return tok(TOKEN_LE, "<=")
		}
		l.readChar()
		return tok(TOKEN_LT, "<")
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return tok(TOKEN_GE, ">=")
		}
		l.readChar()
		return tok(TOKEN_GT, ">")
	case '.':
		if l.peekChar() == '.' {
			l.readChar()
			l.readChar()
			return tok(TOKEN_CONCAT, "..")
		}
		if isDigit(l.peekChar()) {
			return tok(TOKEN_NUMBER, l.readNumber())
		}
		l.readChar()
		return tok(TOKEN_DOT, ".")
	case '"', '\'':
		lit, err := l.readString(l.ch)
		if err != "" {
			return tok(TOKEN_ERROR, err)
		}
		return tok(TOKEN_STRING, lit)
	}

	if isDigit(l.ch) {
		return tok(TOKEN_NUMBER, l.readNumber())
	}
	if isNameStart(l.ch) {
		ident := l.readName()
		return tok(LookupKeyword(ident), ident)
	}

	ch := l.ch
	l.readChar()
	return tok(TOKEN_ERROR, "unexpected character "+strings.TrimSpace(string(rune(ch))))
}

func (l *Lexer) readName() string {
	start := l.position
	for isNameStart(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber() string {
	start := l.position
	seenDot := false
	seenExp := false
	for {
		switch {
		case isDigit(l.ch):
			l.readChar()
		case l.ch == '.' && !seenDot && !seenExp && l.peekChar() != '.':
			seenDot = true
			l.readChar()
		case (l.ch == 'e' || l.ch == 'E') && !seenExp:
			seenExp = true
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
		case (l.ch == 'x' || l.ch == 'X') && l.position == start+1 && l.input[start] == '0':
			l.readChar()
			for isHexDigit(l.ch) {
				l.readChar()
			}
			return l.input[start:l.position]
		default:
			return l.input[start:l.position]
		}
	}
}

func (l *Lexer) readString(quote byte) (lit, errMsg string) {
	l.readChar() // consume opening quote
	var b strings.Builder
	for l.ch != quote {
		switch l.ch {
		case 0, '\n':
			return "", "unfinished string"
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			case '\'':
				b.WriteByte('\'')
			case '0':
				b.WriteByte(0)
			default:
				return "", "invalid escape sequence"
			}
			l.readChar()
		default:
			b.WriteByte(l.ch)
			l.readChar()
		}
	}
	l.readChar() // consume closing quote
	return b.String(), ""
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

func isNameStart(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}
