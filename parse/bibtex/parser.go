package bibtex

import (
	"context"
	"strings"
)

// =========================
// Record Parser
// =========================

// chunkResult is everything one chunk produced, in input order.
type chunkResult struct {
	records  []Record
	entries  []*Entry
	defs     []*StringDef
	warnings []Warning
}

// chunkParser builds records from src[start:end].
type chunkParser struct {
	ctx   context.Context
	lx    *lexer
	out   chunkResult
	slab  []Entry
	field []Field // scratch for the entry being parsed
	parts []Value // scratch for the value being parsed
}

const (
	slabSize      = 256
	ctxCheckEvery = 64
)

func newChunkParser(ctx context.Context, src string, start, end int) *chunkParser {
	return &chunkParser{ctx: ctx, lx: newLexer(src, start, end)}
}

// parseChunk parses every record of src[start:end].
func parseChunk(ctx context.Context, src string, start, end int) (*chunkResult, error) {
	p := newChunkParser(ctx, src, start, end)
	if err := p.run(); err != nil {
		return nil, err
	}
	p.out.records = shrink(p.out.records)
	p.out.entries = shrink(p.out.entries)
	p.out.defs = shrink(p.out.defs)
	return &p.out, nil
}

func (p *chunkParser) run() error {
	lx := p.lx
	for n := 0; ; n++ {
		if n%ctxCheckEvery == 0 && p.ctx != nil {
			if err := p.ctx.Err(); err != nil {
				return err
			}
		}
		lx.skipBlank()
		if lx.eof() {
			return nil
		}
		switch lx.src[lx.pos] {
		case AT:
			if err := p.record(); err != nil {
				return err
			}
		case PERCENT:
			p.lineComment()
		default:
			p.implicitComment()
		}
	}
}

func (p *chunkParser) lineComment() {
	lx := p.lx
	off := lx.pos
	eol := FindByte(lx.win, '\n', off)
	if eol < 0 {
		eol = lx.end
	}
	lx.pos = eol
	text := strings.TrimRight(lx.src[off+1:eol], "\r")
	p.out.records = append(p.out.records, &Comment{Text: text, Form: CommentLine, offset: off})
}

// implicitComment consumes free text up to the next '@'.
func (p *chunkParser) implicitComment() {
	lx := p.lx
	off := lx.pos
	at := FindByte(lx.win, AT, off)
	if at < 0 {
		at = lx.end
	}
	lx.pos = at
	text := strings.TrimRight(lx.src[off:at], " \t\r\n\f\v")
	p.out.records = append(p.out.records, &Comment{Text: text, Form: CommentImplicit, offset: off})
}

// record parses one @type{...} or @type(...) at pos.
func (p *chunkParser) record() error {
	lx := p.lx
	off := lx.pos
	lx.pos++
	lx.skipBlank()
	typ := lx.ident()
	if typ == "" {
		if lx.eof() {
			return errAt(KindStructural, off, "missing entry type after '@'")
		}
		return errAt(KindStructural, off, "missing entry type after '@', found %q", lx.src[lx.pos])
	}
	for !lx.eof() && (lx.src[lx.pos] == ' ' || lx.src[lx.pos] == '\t') {
		lx.pos++
	}
	if strings.EqualFold(typ, "comment") {
		return p.blockComment(off)
	}
	lx.skipBlank()
	if lx.eof() {
		return errAt(KindStructural, off, "expected '{' or '(' after @%s", typ)
	}
	var closer byte
	switch lx.src[lx.pos] {
	case LBRACE:
		closer = RBRACE
	case LPAREN:
		closer = RPAREN
	default:
		return errAt(KindStructural, lx.pos, "expected '{' or '(' after @%s, found %q", typ, lx.src[lx.pos])
	}
	lx.pos++
	switch {
	case strings.EqualFold(typ, "string"):
		return p.stringDef(off, closer)
	case strings.EqualFold(typ, "preamble"):
		return p.preamble(off, closer)
	default:
		return p.entry(off, typ, closer)
	}
}

// blockComment handles @comment{...}, @comment(...) and a bare @comment
// running to the end of the line.
func (p *chunkParser) blockComment(off int) error {
	lx := p.lx
	var text string
	switch {
	case !lx.eof() && lx.src[lx.pos] == LBRACE:
		rb, err := lx.balanced(lx.pos)
		if err != nil {
			return errAt(KindLexical, off, "unterminated @comment block")
		}
		text = lx.src[lx.pos+1 : rb]
		lx.pos = rb + 1
	case !lx.eof() && lx.src[lx.pos] == LPAREN:
		rp, err := p.parenBlock(lx.pos)
		if err != nil {
			return err
		}
		text = lx.src[lx.pos+1 : rp]
		lx.pos = rp + 1
	default:
		eol := FindByte(lx.win, '\n', lx.pos)
		if eol < 0 {
			eol = lx.end
		}
		text = strings.TrimRight(lx.src[lx.pos:eol], "\r")
		lx.pos = eol
	}
	p.out.records = append(p.out.records, &Comment{Text: text, Form: CommentBlock, offset: off})
	return nil
}

// parenBlock finds the ')' closing the '(' at open, ignoring parentheses
// nested in braces.
func (p *chunkParser) parenBlock(open int) (int, error) {
	lx := p.lx
	depth := 0
	for i := open + 1; ; {
		j, c := FindBytes3(lx.win, LBRACE, RBRACE, RPAREN, i)
		if j < 0 {
			return 0, errAt(KindLexical, open, "unterminated @comment block")
		}
		switch c {
		case LBRACE:
			depth++
		case RBRACE:
			if depth > 0 {
				depth--
			}
		case RPAREN:
			if depth == 0 {
				return j, nil
			}
		}
		i = j + 1
	}
}

func (p *chunkParser) newEntry() *Entry {
	if len(p.slab) == cap(p.slab) {
		p.slab = make([]Entry, 0, slabSize)
	}
	p.slab = p.slab[:len(p.slab)+1]
	return &p.slab[len(p.slab)-1]
}

func (p *chunkParser) entry(off int, typ string, closer byte) error {
	p.lx.skipBlank()
	key, closed, err := p.key(off, closer)
	if err != nil {
		return err
	}
	p.field = p.field[:0]
	if !closed {
		if err := p.fields(off, closer); err != nil {
			return err
		}
	}
	e := p.newEntry()
	e.Type, e.Key, e.offset = typ, key, off
	if len(p.field) > 0 {
		e.Fields = make([]Field, len(p.field))
		copy(e.Fields, p.field)
	}
	p.out.records = append(p.out.records, e)
	p.out.entries = append(p.out.entries, e)
	return nil
}

// key reads the citation key up to ',' or, for a key-only entry, up to the
// closing delimiter. closed reports the latter.
func (p *chunkParser) key(off int, closer byte) (key string, closed bool, err error) {
	lx := p.lx
	start := lx.pos
	i, c := FindDelimiter(lx.win, start)
	if closer == RPAREN {
		limit := lx.end
		if i >= 0 {
			limit = i
		}
		if j := strings.IndexByte(lx.src[start:limit], RPAREN); j >= 0 {
			i, c = start+j, RPAREN
		}
	}
	if i < 0 {
		return "", false, errAt(KindStructural, off, "entry not closed")
	}
	switch c {
	case COMMA:
	case RBRACE, RPAREN:
		if c != closer {
			return "", false, errAt(KindStructural, i, "mismatched closing delimiter %q", c)
		}
		closed = true
	case EQUAL:
		return "", false, errAt(KindStructural, start, "missing key before first field")
	case AT:
		return "", false, errAt(KindStructural, off, "entry not closed before next record")
	default:
		return "", false, errAt(KindLexical, i, "unexpected %q in key", c)
	}
	key = strings.TrimRight(lx.src[start:i], " \t\r\n\f\v")
	if key == "" {
		return "", false, errAt(KindStructural, start, "missing key")
	}
	for k := 0; k < len(key); k++ {
		if isSpace(key[k]) || key[k] == QUOTE || key[k] == HASH {
			return "", false, errAt(KindLexical, start+k, "invalid character %q in key %q", key[k], key)
		}
	}
	lx.pos = i + 1
	return key, closed, nil
}

// fields parses `name = value` pairs separated by commas until the closing
// delimiter. A trailing comma is allowed.
func (p *chunkParser) fields(off int, closer byte) error {
	lx := p.lx
	for {
		tok, err := lx.next()
		if err != nil {
			return err
		}
		switch tok.kind {
		case tokClose:
			return p.checkClose(tok, closer)
		case tokIdent:
		case tokEOF:
			return errAt(KindStructural, off, "entry not closed")
		default:
			return errAt(KindStructural, tok.off, "expected field name, found %s", tok.kind)
		}
		name := tok.text
		eq, err := lx.next()
		if err != nil {
			return err
		}
		if eq.kind != tokEqual {
			if eq.kind == tokEOF {
				return errAt(KindStructural, off, "entry not closed")
			}
			return errAt(KindStructural, eq.off, "missing '=' after field %q", name)
		}
		v, err := p.value(off)
		if err != nil {
			return err
		}
		p.field = append(p.field, Field{Name: name, Value: v})

		sep, err := lx.next()
		if err != nil {
			return err
		}
		switch sep.kind {
		case tokComma:
		case tokClose:
			return p.checkClose(sep, closer)
		case tokEOF:
			return errAt(KindStructural, off, "entry not closed")
		default:
			return errAt(KindStructural, sep.off, "expected ',' or closing delimiter after field %q, found %s", name, sep.kind)
		}
	}
}

func (p *chunkParser) checkClose(tok token, closer byte) error {
	if tok.text[0] != closer {
		return errAt(KindStructural, tok.off, "mismatched closing delimiter %q", tok.text[0])
	}
	return nil
}

// value parses one operand or a '#' concatenation of operands.
func (p *chunkParser) value(off int) (Value, error) {
	lx := p.lx
	first, err := p.operand(off)
	if err != nil {
		return Value{}, err
	}
	lx.skipSpace()
	if lx.eof() || lx.src[lx.pos] != HASH {
		return first, nil
	}
	p.parts = append(p.parts[:0], first)
	for !lx.eof() && lx.src[lx.pos] == HASH {
		lx.pos++
		v, err := p.operand(off)
		if err != nil {
			return Value{}, err
		}
		p.parts = append(p.parts, v)
		lx.skipSpace()
	}
	return NewConcat(p.parts...), nil
}

func (p *chunkParser) operand(off int) (Value, error) {
	tok, err := p.lx.next()
	if err != nil {
		return Value{}, err
	}
	switch tok.kind {
	case tokBraced, tokQuoted:
		return viewLiteral(tok.text), nil
	case tokNumber:
		return NewNumber(tok.num), nil
	case tokIdent:
		return NewVariable(tok.text), nil
	case tokEOF:
		return Value{}, errAt(KindStructural, off, "record not closed: missing value")
	default:
		return Value{}, errAt(KindStructural, tok.off, "expected value, found %s", tok.kind)
	}
}

// stringDef parses the body of @string{name = value}.
func (p *chunkParser) stringDef(off int, closer byte) error {
	lx := p.lx
	tok, err := lx.next()
	if err != nil {
		return err
	}
	switch tok.kind {
	case tokIdent:
	case tokEOF:
		return errAt(KindStructural, off, "@string not closed")
	default:
		return errAt(KindStructural, tok.off, "expected string name, found %s", tok.kind)
	}
	name := tok.text
	eq, err := lx.next()
	if err != nil {
		return err
	}
	if eq.kind != tokEqual {
		return errAt(KindStructural, eq.off, "missing '=' after string name %q", name)
	}
	v, err := p.value(off)
	if err != nil {
		return err
	}
	if err := p.closeRecord(off, closer, "@string"); err != nil {
		return err
	}
	def := &StringDef{Name: name, Value: v, offset: off}
	p.out.records = append(p.out.records, def)
	p.out.defs = append(p.out.defs, def)
	return nil
}

func (p *chunkParser) preamble(off int, closer byte) error {
	v, err := p.value(off)
	if err != nil {
		return err
	}
	if err := p.closeRecord(off, closer, "@preamble"); err != nil {
		return err
	}
	p.out.records = append(p.out.records, &Preamble{Value: v, offset: off})
	return nil
}

// closeRecord expects the closing delimiter, optionally preceded by a comma.
func (p *chunkParser) closeRecord(off int, closer byte, what string) error {
	tok, err := p.lx.next()
	if err != nil {
		return err
	}
	if tok.kind == tokComma {
		if tok, err = p.lx.next(); err != nil {
			return err
		}
	}
	switch tok.kind {
	case tokClose:
		return p.checkClose(tok, closer)
	case tokEOF:
		return errAt(KindStructural, off, "%s not closed", what)
	default:
		return errAt(KindStructural, tok.off, "expected closing delimiter of %s, found %s", what, tok.kind)
	}
}
