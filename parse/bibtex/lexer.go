package bibtex

import "strconv"

// =========================
// Tokens
// =========================

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokBraced
	tokQuoted
	tokNumber
	tokComma
	tokEqual
	tokConcat
	tokClose
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokBraced:
		return "braced value"
	case tokQuoted:
		return "quoted value"
	case tokNumber:
		return "number"
	case tokComma:
		return "','"
	case tokEqual:
		return "'='"
	case tokConcat:
		return "'#'"
	case tokClose:
		return "closing delimiter"
	default:
		return "unknown token"
	}
}

// token is one lexeme of a record body. text is a view into the input: the
// identifier, the content of a braced or quoted value without its
// delimiters, or the punctuation byte itself.
type token struct {
	kind tokenKind
	off  int
	text string
	num  int64
}

// =========================
// Lexer
// =========================

// lexer tokenizes the bytes of src between pos and end. Offsets are always
// absolute so errors and records can be located in the full input.
type lexer struct {
	src string
	win string // src[:end]; scanners never look past the chunk
	pos int
	end int
}

func newLexer(src string, start, end int) *lexer {
	return &lexer{src: src, win: src[:end], pos: start, end: end}
}

func (l *lexer) eof() bool { return l.pos >= l.end }

// skipBlank skips whitespace only.
func (l *lexer) skipBlank() {
	for l.pos < l.end && isSpace(l.src[l.pos]) {
		l.pos++
	}
}

// skipSpace skips whitespace and % line comments.
func (l *lexer) skipSpace() {
	for l.pos < l.end {
		c := l.src[l.pos]
		switch {
		case isSpace(c):
			l.pos++
		case c == PERCENT:
			nl := FindByte(l.win, '\n', l.pos)
			if nl < 0 {
				l.pos = l.end
				return
			}
			l.pos = nl + 1
		default:
			return
		}
	}
}

// ident reads an identifier at pos. It may be empty.
func (l *lexer) ident() string {
	start := l.pos
	for l.pos < l.end && isIdent(l.src[l.pos]) {
		l.pos++
	}
	return l.src[start:l.pos]
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.eof() {
		return token{kind: tokEOF, off: l.end}, nil
	}
	off := l.pos
	c := l.src[off]
	switch c {
	case COMMA:
		l.pos++
		return token{kind: tokComma, off: off, text: l.src[off:l.pos]}, nil
	case EQUAL:
		l.pos++
		return token{kind: tokEqual, off: off, text: l.src[off:l.pos]}, nil
	case HASH:
		l.pos++
		return token{kind: tokConcat, off: off, text: l.src[off:l.pos]}, nil
	case RBRACE, RPAREN:
		l.pos++
		return token{kind: tokClose, off: off, text: l.src[off:l.pos]}, nil
	case LBRACE:
		return l.braced()
	case QUOTE:
		return l.quoted()
	}
	if isDigit(c) || ((c == '+' || c == '-') && off+1 < l.end && isDigit(l.src[off+1])) {
		return l.number()
	}
	if isIdent(c) {
		return token{kind: tokIdent, off: off, text: l.ident()}, nil
	}
	return token{}, errAt(KindLexical, off, "unexpected character %q", c)
}

// balanced returns the offset of the '}' that closes the '{' at open.
// Backslash escapes the following byte.
func (l *lexer) balanced(open int) (int, error) {
	depth := 1
	i := open + 1
	for {
		j, c := FindBraceDelimiter(l.win, i)
		if j < 0 {
			return 0, errAt(KindLexical, open, "unterminated braced value")
		}
		switch c {
		case LBRACE:
			depth++
		case RBRACE:
			depth--
			if depth == 0 {
				return j, nil
			}
		case BACKSLASH:
			j++
		}
		i = j + 1
	}
}

func (l *lexer) braced() (token, error) {
	open := l.pos
	rb, err := l.balanced(open)
	if err != nil {
		return token{}, err
	}
	l.pos = rb + 1
	return token{kind: tokBraced, off: open, text: l.src[open+1 : rb]}, nil
}

// quoted reads "..." at pos. A quote only ends the value at brace depth
// zero; a stray '}' at depth zero is kept as text.
func (l *lexer) quoted() (token, error) {
	open := l.pos
	depth := 0
	i := open + 1
	for {
		j, c := FindQuoteDelimiter(l.win, i)
		if j < 0 {
			return token{}, errAt(KindLexical, open, "unterminated quoted string")
		}
		switch c {
		case QUOTE:
			if depth == 0 {
				l.pos = j + 1
				return token{kind: tokQuoted, off: open, text: l.src[open+1 : j]}, nil
			}
		case LBRACE:
			depth++
		case RBRACE:
			if depth > 0 {
				depth--
			}
		case BACKSLASH:
			j++
		}
		i = j + 1
	}
}

func (l *lexer) number() (token, error) {
	off := l.pos
	l.pos++
	for l.pos < l.end && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos < l.end && isIdent(l.src[l.pos]) {
		return token{}, errAt(KindLexical, off, "malformed number %q", l.src[off:l.pos+1])
	}
	text := l.src[off:l.pos]
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return token{}, errAt(KindLexical, off, "number %s out of range", text)
	}
	return token{kind: tokNumber, off: off, text: text, num: n}, nil
}
