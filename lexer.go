package leandoc

import (
	"strings"
)

// Lexer splits input text into a sequence of line tokens terminated by a
// synthetic EOF token. The token vector is built eagerly on SetInput; Peek
// and Take never fail.
type Lexer struct {
	toks []LineTok
	pos  int
}

// SetInput resets the lexer and classifies every line of text. Lines may be
// separated by "\n", "\r\n" or "\r".
func (l *Lexer) SetInput(text string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	l.toks = make([]LineTok, 0, len(lines)+1)
	for i, line := range lines {
		l.toks = append(l.toks, classifyLine(line, i+1))
	}
	l.toks = append(l.toks, LineTok{Kind: LineEOF, LineNo: len(lines) + 1})
	l.pos = 0
}

// Peek returns the token k lines ahead without consuming it. Peeking past
// the end returns the synthetic EOF token.
func (l *Lexer) Peek(k int) LineTok {
	idx := l.pos + k
	if idx < 0 {
		idx = 0
	}
	if idx >= len(l.toks) {
		idx = len(l.toks) - 1
	}
	return l.toks[idx]
}

// Take consumes and returns the current token.
func (l *Lexer) Take() LineTok {
	t := l.Peek(0)
	if l.pos < len(l.toks) {
		l.pos++
	}
	return t
}

// AtEnd reports whether the current token is EOF.
func (l *Lexer) AtEnd() bool {
	return l.Peek(0).Kind == LineEOF
}

// startsWithRun reports whether s begins with a run of ch of length
// minN..maxN and stores the run length in outN.
func startsWithRun(s string, ch byte, minN, maxN int, outN *int) bool {
	n := 0
	for n < len(s) && n < maxN && s[n] == ch {
		n++
	}
	if n >= minN {
		*outN = n
		return true
	}
	return false
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

// classifyLine applies the classification rules in their fixed order; the
// first match wins. The rules only inspect ASCII marker characters, so the
// byte-wise checks are UTF-8 safe.
func classifyLine(line string, lineNo int) LineTok {
	t := LineTok{LineNo: lineNo, Raw: line}

	s := strings.TrimSpace(line)
	if s == "" {
		t.Kind = LineBlank
		return t
	}

	// metadata lines
	if strings.HasPrefix(s, "[[") && strings.HasSuffix(s, "]]") {
		t.Kind = LineBlockAnchor
		t.Rest = s
		return t
	}
	if s == "[stem]" {
		t.Kind = LineStemAttrLine
		t.Rest = s
		return t
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		t.Kind = LineBlockAttrs
		t.Rest = s
		return t
	}
	if len(s) >= 2 && s[0] == '.' && !isSpaceByte(s[1]) && !isDelimLine(s) {
		t.Kind = LineBlockTitle
		t.Rest = s[1:]
		return t
	}

	// directives (preprocessor)
	if strings.HasPrefix(s, "ifdef::") || strings.HasPrefix(s, "ifndef::") || strings.HasPrefix(s, "endif::") {
		t.Kind = LineDirective
		p := strings.Index(s, "::")
		t.Head = s[:p]
		t.Rest = s[p+2:]
		return t
	}

	// block macros
	if strings.HasPrefix(s, "include::") {
		t.Kind = LineBlockMacro
		p := strings.Index(s, "::")
		t.Head = s[:p]
		t.Rest = s[p+2:]
		return t
	}
	// custom block macro: IDENT::target[...]
	if p := strings.Index(s, "::"); p > 0 && strings.IndexByte(s, '[') > p {
		t.Kind = LineBlockMacro
		t.Head = s[:p]
		t.Rest = s[p+2:]
		return t
	}

	// comments & breaks
	if strings.HasPrefix(s, "//") {
		t.Kind = LineComment
		t.Rest = s[2:]
		return t
	}
	if s == "'''" || s == "---" || s == "***" {
		t.Kind = LineThematic
		return t
	}
	if strings.HasPrefix(s, "<<<") {
		t.Kind = LinePageBreak
		t.Rest = strings.TrimSpace(s[3:])
		return t
	}

	// section title: =..====== then space
	var eqN int
	if startsWithRun(s, '=', 1, 6, &eqN) && len(s) > eqN && isSpaceByte(s[eqN]) {
		t.Kind = LineSection
		t.Level = eqN
		t.Rest = strings.TrimSpace(s[eqN:])
		return t
	}

	// lists
	var starN int
	if startsWithRun(s, '*', 1, 6, &starN) && len(s) > starN && isSpaceByte(s[starN]) {
		t.Kind = LineULItem
		t.Level = starN
		t.Rest = strings.TrimSpace(s[starN:])
		return t
	}
	var dotN int
	if startsWithRun(s, '.', 1, 6, &dotN) && len(s) > dotN && isSpaceByte(s[dotN]) {
		t.Kind = LineOLItem
		t.Level = dotN
		t.Rest = strings.TrimSpace(s[dotN:])
		return t
	}
	if s == "+" {
		t.Kind = LineListCont
		return t
	}

	// description list term: content then 2+ trailing colons, with the
	// definition expected on the following line
	if strings.HasSuffix(s, "::") {
		c := 0
		for i := len(s) - 1; i >= 0 && s[i] == ':'; i-- {
			c++
		}
		rest := strings.TrimSpace(s[:len(s)-c])
		if c >= 2 && rest != "" {
			t.Kind = LineDescTerm
			t.Level = c
			t.Rest = rest
			return t
		}
	}
	// single-word term with an inline definition: "term:: definition".
	// The definition travels in Head.
	if idx := strings.Index(s, "::"); idx > 0 {
		run := 0
		for i := idx; i < len(s) && s[i] == ':'; i++ {
			run++
		}
		if idx+run < len(s) && isSpaceByte(s[idx+run]) {
			term := strings.TrimSpace(s[:idx])
			if term != "" && !strings.ContainsAny(term, " \t|") {
				t.Kind = LineDescTerm
				t.Level = run
				t.Rest = term
				t.Head = strings.TrimSpace(s[idx+run:])
				return t
			}
		}
	}

	// tables
	if s == "|===" {
		t.Kind = LineTableDelim
		return t
	}
	if strings.HasPrefix(s, "|") {
		t.Kind = LineTableLine
		t.Rest = line
		return t
	}

	// delimited fences
	if k, ok := delimKinds[s]; ok {
		t.Kind = k
		return t
	}

	// admonition paragraph
	for _, label := range admonitionLabels {
		if strings.HasPrefix(s, label+":") {
			t.Kind = LineAdmonition
			t.Head = label
			t.Rest = strings.TrimSpace(s[len(label)+1:])
			return t
		}
	}

	t.Kind = LineText
	t.Rest = line
	return t
}

var delimKinds = map[string]LineKind{
	"----": LineDelimListing,
	"....": LineDelimLiteral,
	"____": LineDelimQuote,
	"====": LineDelimExample,
	"****": LineDelimSidebar,
	"--":   LineDelimOpen,
	"++++": LineDelimPassthrough,
	"////": LineDelimComment,
}

var admonitionLabels = []string{"NOTE", "TIP", "IMPORTANT", "CAUTION", "WARNING"}

// isDelimLine reports whether s is one of the dot-run fences that would
// otherwise be shadowed by the block-title rule.
func isDelimLine(s string) bool {
	return s == "...."
}
