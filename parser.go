package leandoc

import (
	"sort"
	"strconv"
	"strings"
)

// Parser transforms the line-token stream into a document tree. The grammar
// is LL(k) with k<=4 at the parser level (the deepest peek is the metadata
// run checked at section boundaries); there is no backtracking. The first
// malformed structure aborts the parse with a *ParseError.
type Parser struct {
	lex Lexer
}

func NewParser() *Parser {
	return &Parser{}
}

// Parse parses a whole LeanDoc document and returns its tree. On error the
// partial tree is discarded and a *ParseError is returned.
func (p *Parser) Parse(input string) (*Node, error) {
	p.lex.SetInput(input)
	return p.parseDocument()
}

func (p *Parser) la(k int) LineTok {
	return p.lex.Peek(k)
}

func (p *Parser) take() LineTok {
	return p.lex.Take()
}

func (p *Parser) errAt(msg string, line int) error {
	return &ParseError{Line: line, Column: 1, Message: msg}
}

// skipBlankAndComments ignores BLANK and LINE_COMMENT tokens between blocks.
func (p *Parser) skipBlankAndComments() {
	for p.la(0).Kind == LineBlank || p.la(0).Kind == LineComment {
		p.take()
	}
}

func (p *Parser) parseDocument() (*Node, error) {
	doc := NewNode(NodeDocument, SourcePos{Line: 1, Column: 1})

	p.skipBlankAndComments()
	p.parseHeader(doc)

	for !p.lex.AtEnd() {
		p.skipBlankAndComments()
		if p.lex.AtEnd() {
			break
		}
		b, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		if b == nil {
			break
		}
		doc.Add(b)
	}
	return doc, nil
}

// parseHeader consumes the optional document header: a level-1 title, an
// author line ("Name <mail>"), a revision line ("v...") and a run of
// ":name: value" attribute entries. Author and revision lines are only
// recognized after a title. Header fields are stored in doc.KV.
func (p *Parser) parseHeader(doc *Node) {
	hasTitle := false
	if t := p.la(0); t.Kind == LineSection && t.Level == 1 {
		p.take()
		doc.SetKV("title", t.Rest)
		doc.SetKV("titleLine", strconv.Itoa(t.LineNo))
		p.skipBlankAndComments()
		hasTitle = true
	}

	if t := p.la(0); hasTitle && t.Kind == LineText {
		s := strings.TrimSpace(t.Raw)
		if strings.Contains(s, "<") && strings.Contains(s, ">") {
			p.take()
			doc.SetKV("authorLine", s)
			doc.SetKV("authorLineNo", strconv.Itoa(t.LineNo))
			p.skipBlankAndComments()
		}
	}

	if t := p.la(0); hasTitle && t.Kind == LineText {
		s := strings.TrimSpace(t.Raw)
		if strings.HasPrefix(s, "v") {
			p.take()
			doc.SetKV("revisionLine", s)
			doc.SetKV("revisionLineNo", strconv.Itoa(t.LineNo))
			p.skipBlankAndComments()
		}
	}

	// document attributes: ":name: value"
	for p.la(0).Kind == LineText {
		s := strings.TrimSpace(p.la(0).Raw)
		if !strings.HasPrefix(s, ":") {
			break
		}
		second := strings.IndexByte(s[1:], ':')
		if second < 0 {
			break
		}
		second++ // index in s, not in s[1:]
		name := strings.TrimSpace(s[1:second])
		if name == "" {
			break
		}
		doc.SetKV("attr:"+name, strings.TrimSpace(s[second+1:]))
		p.take()
	}
}

// peekMetaRun returns the number of lookahead tokens forming a metadata
// run at the cursor: an anchor, then attributes, then a title, each at
// most once and in that order. Nothing is consumed.
func (p *Parser) peekMetaRun() int {
	k := 0
	if p.la(k).Kind == LineBlockAnchor {
		k++
	}
	if p.la(k).Kind == LineBlockAttrs {
		k++
	}
	if p.la(k).Kind == LineBlockTitle {
		k++
	}
	return k
}

// parseBlockMetaOpt consumes an optional metadata run: [[anchor]], then
// [attrs], then .Title, each at most once and in that order. Returns nil
// when the next line is not a metadata line.
func (p *Parser) parseBlockMetaOpt() *BlockMeta {
	k := p.la(0).Kind
	if k != LineBlockAnchor && k != LineBlockAttrs && k != LineBlockTitle {
		return nil
	}

	m := &BlockMeta{}

	if p.la(0).Kind == LineBlockAnchor {
		s := p.take().Rest // like "[[id, text]]"
		inner := stripOuter(stripOuter(s, '[', ']'), '[', ']')
		if comma := strings.IndexByte(inner, ','); comma < 0 {
			m.AnchorID = strings.TrimSpace(inner)
		} else {
			m.AnchorID = strings.TrimSpace(inner[:comma])
			m.AnchorText = strings.TrimSpace(inner[comma+1:])
		}
	}

	if p.la(0).Kind == LineBlockAttrs {
		m.Attrs = parseAttrList(p.take().Rest)
		// roles derive from ".role" style keys, in sorted key order
		var keys []string
		for k := range m.Attrs {
			if strings.HasPrefix(k, ".") {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			m.Roles = append(m.Roles, k[1:])
		}
	}

	if p.la(0).Kind == LineBlockTitle {
		m.Title = strings.TrimSpace(p.take().Rest)
	}

	return m
}

// parseAttrList parses a bracketed attribute list "[a=b, c]"; the brackets
// are optional on input. Values may be double-quoted; bare entries become
// boolean attributes with an empty value.
func parseAttrList(bracketed string) map[string]string {
	inner := stripOuter(strings.TrimSpace(bracketed), '[', ']')

	m := make(map[string]string)
	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			m[part] = ""
			continue
		}
		k := strings.TrimSpace(part[:eq])
		v := strings.TrimSpace(part[eq+1:])
		m[k] = stripOuter(v, '"', '"')
	}
	return m
}

func stripOuter(s string, a, b byte) string {
	t := strings.TrimSpace(s)
	if len(t) >= 2 && t[0] == a && t[len(t)-1] == b {
		return t[1 : len(t)-1]
	}
	return t
}

func isDelimTokenKind(k LineKind) bool {
	switch k {
	case LineDelimListing, LineDelimLiteral, LineDelimQuote, LineDelimExample,
		LineDelimSidebar, LineDelimOpen, LineDelimPassthrough, LineDelimComment:
		return true
	}
	return false
}

func (p *Parser) parseBlock() (*Node, error) {
	meta := p.parseBlockMetaOpt()

	switch t := p.la(0); t.Kind {
	case LineSection:
		return p.parseSection(meta)
	case LineAdmonition:
		return p.parseAdmonition(meta), nil
	case LineULItem, LineOLItem, LineDescTerm:
		return p.parseList(meta)
	case LineTableDelim:
		return p.parseTable(meta)
	case LineTableLine:
		return nil, p.errAt("unexpected table line outside a table", t.LineNo)
	case LineBlockMacro:
		return p.parseBlockMacro(meta), nil
	case LineDirective:
		return p.parseDirective(meta)
	case LineThematic, LinePageBreak, LineComment:
		return p.parseBreakOrComment(meta), nil
	case LineListCont:
		return nil, p.errAt("unexpected list continuation", t.LineNo)
	case LineEOF, LineBlank:
		if meta != nil {
			return nil, p.errAt("block metadata without a following block", t.LineNo)
		}
		return nil, nil
	}

	if isDelimTokenKind(p.la(0).Kind) || p.la(0).Kind == LineStemAttrLine {
		return p.parseDelimited(meta)
	}

	return p.parseParagraphOrLiteral(meta)
}

func (p *Parser) parseSection(meta *BlockMeta) (*Node, error) {
	t := p.take()
	s := NewNode(NodeSection, SourcePos{Line: t.LineNo, Column: 1})
	s.Meta = meta
	s.SetKV("level", strconv.Itoa(t.Level))
	s.Name = t.Rest

	// consume body until a section of the same or higher level
	for !p.lex.AtEnd() {
		p.skipBlankAndComments()
		if p.lex.AtEnd() {
			break
		}
		cur := p.la(0)
		if cur.Kind == LineSection && cur.Level <= t.Level {
			break
		}
		if cur.Kind == LineTableLine {
			return nil, p.errAt("unexpected table line outside a table", cur.LineNo)
		}

		// Metadata in front of a terminating sibling section belongs to
		// that section: peek past the whole run and do not consume it.
		if n := p.peekMetaRun(); n > 0 {
			if next := p.la(n); next.Kind == LineSection && next.Level <= t.Level {
				break
			}
		}

		b, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		if b == nil {
			break
		}
		s.Add(b)
	}
	return s, nil
}

func (p *Parser) parseAdmonition(meta *BlockMeta) *Node {
	t := p.take()
	a := NewNode(NodeAdmonitionParagraph, SourcePos{Line: t.LineNo, Column: 1})
	a.Meta = meta
	a.Name = t.Head
	a.Children = p.parseInlineContent(t.Rest, t.LineNo)
	return a
}

func (p *Parser) parseParagraphOrLiteral(meta *BlockMeta) (*Node, error) {
	// a literal paragraph starts with whitespace in the raw line
	first := p.la(0)
	literal := first.Kind == LineText && first.Raw != "" && isSpaceByte(first.Raw[0])

	kind := NodeParagraph
	if literal {
		kind = NodeLiteralParagraph
	}
	para := NewNode(kind, SourcePos{Line: first.LineNo, Column: 1})
	para.Meta = meta

	var lines []string
	for p.la(0).Kind == LineText {
		raw := p.la(0).Raw
		if literal {
			if raw == "" || !isSpaceByte(raw[0]) {
				break
			}
			lines = append(lines, raw[1:]) // verbatim minus the leading space
		} else {
			lines = append(lines, strings.TrimSpace(raw))
		}
		p.take()
		if p.la(0).Kind == LineBlank {
			break
		}
	}

	if literal {
		para.Text = strings.Join(lines, "\n")
	} else {
		para.Children = p.parseInlineContent(strings.Join(lines, " "), para.Pos.Line)
	}
	return para, nil
}

var delimNames = map[LineKind]string{
	LineDelimListing:     "listing",
	LineDelimLiteral:     "literal",
	LineDelimQuote:       "quote",
	LineDelimExample:     "example",
	LineDelimSidebar:     "sidebar",
	LineDelimOpen:        "open",
	LineDelimPassthrough: "passthrough",
	LineDelimComment:     "comment",
}

// parseDelimited parses a delimited block. Listing, literal, passthrough,
// comment and stem blocks are raw: their body accumulates verbatim up to
// the matching close fence. Quote, example, sidebar and open blocks are
// containers parsed recursively through the block dispatcher.
func (p *Parser) parseDelimited(meta *BlockMeta) (*Node, error) {
	isStem := false
	if p.la(0).Kind == LineStemAttrLine {
		p.take()
		isStem = true
	}

	if !isDelimTokenKind(p.la(0).Kind) {
		return nil, p.errAt("expected block delimiter", p.la(0).LineNo)
	}

	k := p.la(0).Kind
	open := p.take()

	b := NewNode(NodeDelimitedBlock, SourcePos{Line: open.LineNo, Column: 1})
	b.Meta = meta
	b.SetKV("delim", delimNames[k])
	if isStem {
		b.SetKV("stem", "1")
	} else {
		b.SetKV("stem", "0")
	}

	rawOnly := k == LineDelimListing || k == LineDelimLiteral ||
		k == LineDelimPassthrough || k == LineDelimComment || isStem

	if rawOnly {
		var lines []string
		for !p.lex.AtEnd() && p.la(0).Kind != k {
			lines = append(lines, p.take().Raw)
		}
		if p.la(0).Kind != k {
			return nil, p.errAt("expected closing delimiter", p.la(0).LineNo)
		}
		p.take()
		b.Text = strings.Join(lines, "\n")
		return b, nil
	}

	for !p.lex.AtEnd() && p.la(0).Kind != k {
		p.skipBlankAndComments()
		if p.la(0).Kind == k {
			break
		}
		inner, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		if inner == nil {
			break
		}
		b.Add(inner)
	}
	if p.la(0).Kind != k {
		return nil, p.errAt("expected closing delimiter", p.la(0).LineNo)
	}
	p.take()
	return b, nil
}

func (p *Parser) parseList(meta *BlockMeta) (*Node, error) {
	lst := NewNode(NodeList, SourcePos{Line: p.la(0).LineNo, Column: 1})
	lst.Meta = meta

	switch p.la(0).Kind {
	case LineDescTerm:
		lst.SetKV("type", "description")
	case LineOLItem:
		lst.SetKV("type", "ordered")
	default:
		lst.SetKV("type", "unordered")
	}

	for {
		if lst.GetKV("type") == "description" {
			if p.la(0).Kind != LineDescTerm {
				break
			}
			termTok := p.take()

			item := NewNode(NodeListItem, SourcePos{Line: termTok.LineNo, Column: 1})
			item.SetKV("kind", "definition")
			item.SetKV("termLevel", strconv.Itoa(termTok.Level))
			item.Name = termTok.Rest

			// the definition follows the term on the same line, or on the
			// next non-empty text line
			if termTok.Head != "" {
				defPara := NewNode(NodeParagraph, SourcePos{Line: termTok.LineNo, Column: 1})
				defPara.Children = p.parseInlineContent(termTok.Head, defPara.Pos.Line)
				item.Add(defPara)
			} else if p.la(0).Kind == LineText && strings.TrimSpace(p.la(0).Raw) != "" {
				defLine := strings.TrimSpace(p.take().Raw)
				defPara := NewNode(NodeParagraph, SourcePos{Line: termTok.LineNo, Column: 1})
				defPara.Children = p.parseInlineContent(defLine, defPara.Pos.Line)
				item.Add(defPara)
			}

			p.skipBlankAndComments()
			if p.la(0).Kind == LineListCont {
				p.take()
				p.skipBlankAndComments()
				var cont *Node
				var err error
				if isDelimTokenKind(p.la(0).Kind) || p.la(0).Kind == LineStemAttrLine {
					cont, err = p.parseDelimited(nil)
				} else {
					cont, err = p.parseParagraphOrLiteral(nil)
				}
				if err != nil {
					return nil, err
				}
				if cont != nil {
					item.Add(cont)
				}
			}

			lst.Add(item)
			p.skipBlankAndComments()
			continue
		}

		ordered := lst.GetKV("type") == "ordered"
		if ordered && p.la(0).Kind != LineOLItem {
			break
		}
		if !ordered && p.la(0).Kind != LineULItem {
			break
		}

		itTok := p.take()
		item := NewNode(NodeListItem, SourcePos{Line: itTok.LineNo, Column: 1})
		item.SetKV("markerLevel", strconv.Itoa(itTok.Level))

		// checklist marker: [*], [x] or [ ]
		payload := itTok.Rest
		if strings.HasPrefix(payload, "[*]") || strings.HasPrefix(payload, "[x]") || strings.HasPrefix(payload, "[ ]") {
			item.SetKV("check", payload[1:2])
			payload = strings.TrimSpace(payload[3:])
		}

		headPara := NewNode(NodeParagraph, SourcePos{Line: itTok.LineNo, Column: 1})
		headPara.Children = p.parseInlineContent(payload, itTok.LineNo)
		item.Add(headPara)

		// continuations are repeatable
		p.skipBlankAndComments()
		for p.la(0).Kind == LineListCont {
			p.take()
			p.skipBlankAndComments()
			cont, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			if cont != nil {
				item.Add(cont)
			}
			p.skipBlankAndComments()
		}

		lst.Add(item)
		p.skipBlankAndComments()
	}

	return lst, nil
}

// splitUnescapedPipe splits a table line on '|' separators. A pipe preceded
// by an odd number of backslashes is literal and consumes one escaping
// backslash; an even count keeps the pipe as a separator.
func splitUnescapedPipe(s string) []string {
	var parts []string
	var cur strings.Builder
	cur.Grow(len(s))

	backslashRun := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '|' {
			if backslashRun%2 == 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			} else {
				t := cur.String()
				cur.Reset()
				cur.WriteString(t[:len(t)-1])
				cur.WriteByte('|')
			}
			backslashRun = 0
			continue
		}
		cur.WriteByte(c)
		if c == '\\' {
			backslashRun++
		} else {
			backslashRun = 0
		}
	}
	parts = append(parts, cur.String())
	return parts
}

// readCells splits one table line into cell nodes. The part before the
// first '|' is discarded; the line shape is "|cell|cell|...".
func (p *Parser) readCells(rowTok LineTok) []*Node {
	parts := splitUnescapedPipe(rowTok.Raw)
	var cells []*Node
	for i := 1; i < len(parts); i++ {
		c := NewNode(NodeTableCell, SourcePos{Line: rowTok.LineNo, Column: 1})
		c.Children = p.parseInlineContent(strings.TrimSpace(parts[i]), rowTok.LineNo)
		cells = append(cells, c)
	}
	return cells
}

func (p *Parser) parseTable(meta *BlockMeta) (*Node, error) {
	open := p.take() // TABLE_DELIM
	t := NewNode(NodeTable, SourcePos{Line: open.LineNo, Column: 1})
	t.Meta = meta

	var parts [][]*Node
	closed := false
loop:
	for !p.lex.AtEnd() {
		switch p.la(0).Kind {
		case LineTableDelim:
			p.take()
			closed = true
			break loop
		case LineBlank:
			p.take()
		case LineTableLine:
			parts = append(parts, p.readCells(p.take()))
		default:
			p.take()
		}
	}
	if !closed {
		return nil, p.errAt("expected closing table delimiter |===", p.la(0).LineNo)
	}

	if len(parts) == 0 || len(parts[0]) == 0 {
		return t, nil
	}

	// the first row fixes the table width; the remaining cells re-flow
	// into rows of that width
	firstRow := parts[0]
	width := len(firstRow)

	row := NewNode(NodeTableRow, firstRow[0].Pos)
	for _, c := range firstRow {
		row.Add(c)
	}
	t.Add(row)

	var cells []*Node
	for _, part := range parts[1:] {
		cells = append(cells, part...)
	}
	if len(cells)%width != 0 {
		return nil, &ParseError{
			Line:    firstRow[0].Pos.Line,
			Column:  firstRow[0].Pos.Column,
			Message: "the number of cells is not compatible with the table size",
		}
	}
	for off := 0; off < len(cells); off += width {
		row := NewNode(NodeTableRow, cells[off].Pos)
		for i := 0; i < width; i++ {
			row.Add(cells[off+i])
		}
		t.Add(row)
	}

	return t, nil
}

func (p *Parser) parseBlockMacro(meta *BlockMeta) *Node {
	t := p.take()
	n := NewNode(NodeBlockMacro, SourcePos{Line: t.LineNo, Column: 1})
	n.Meta = meta
	n.Name = t.Head
	n.Target = t.Rest // still contains the "path[...]" portion
	return n
}

// parseDirective parses ifdef/ifndef conditionals including their body up
// to the matching endif::. Resolution is left to a semantic phase; the
// generator refuses directive nodes.
func (p *Parser) parseDirective(meta *BlockMeta) (*Node, error) {
	t := p.take()
	n := NewNode(NodeDirective, SourcePos{Line: t.LineNo, Column: 1})
	n.Meta = meta
	n.Name = t.Head
	n.Text = t.Rest

	if n.Name == "ifdef" || n.Name == "ifndef" {
		for !p.lex.AtEnd() {
			p.skipBlankAndComments()
			if p.la(0).Kind == LineDirective && p.la(0).Head == "endif" {
				end := p.take()
				endNode := NewNode(NodeDirective, SourcePos{Line: end.LineNo, Column: 1})
				endNode.Name = "endif"
				endNode.Text = end.Rest
				n.Add(endNode)
				break
			}
			if p.lex.AtEnd() {
				break
			}
			b, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			if b == nil {
				break
			}
			n.Add(b)
		}
	}

	return n, nil
}

func (p *Parser) parseBreakOrComment(meta *BlockMeta) *Node {
	switch p.la(0).Kind {
	case LineComment:
		t := p.take()
		c := NewNode(NodeLineComment, SourcePos{Line: t.LineNo, Column: 1})
		c.Meta = meta
		c.Text = t.Rest
		return c
	case LineThematic:
		t := p.take()
		b := NewNode(NodeThematicBreak, SourcePos{Line: t.LineNo, Column: 1})
		b.Meta = meta
		b.Text = strings.TrimSpace(t.Raw)
		return b
	case LinePageBreak:
		t := p.take()
		pb := NewNode(NodePageBreak, SourcePos{Line: t.LineNo, Column: 1})
		pb.Meta = meta
		pb.Text = t.Rest
		return pb
	}
	return nil
}
