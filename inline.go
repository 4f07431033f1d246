package leandoc

import (
	"strconv"
	"strings"
)

// maxInlineDepth bounds nested inline re-parsing; content nested deeper is
// kept as plain text.
const maxInlineDepth = 32

var urlSchemes = []string{"http:", "https:", "ftp:", "irc:", "mailto:"}

func hasURLScheme(s string) bool {
	for _, scheme := range urlSchemes {
		if strings.HasPrefix(s, scheme) {
			return true
		}
	}
	return false
}

func isMacroNameByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' ||
		b >= '0' && b <= '9' || b == '_' || b == '-'
}

func textNode(t string, lineNo int) *Node {
	n := NewNode(NodeText, SourcePos{Line: lineNo, Column: 1})
	n.Text = t
	return n
}

func pushText(out []*Node, acc *strings.Builder, lineNo int) []*Node {
	if acc.Len() == 0 {
		return out
	}
	out = append(out, textNode(acc.String(), lineNo))
	acc.Reset()
	return out
}

// parseInlineContent scans s left-to-right once, producing an ordered list
// of inline nodes. Recognizers are attempted in a fixed priority order;
// unmatched characters accumulate into Text nodes.
func (p *Parser) parseInlineContent(s string, lineNo int) []*Node {
	return p.parseInlineRec(s, lineNo, 0)
}

func (p *Parser) parseInlineRec(s string, lineNo, depth int) []*Node {
	if depth >= maxInlineDepth {
		if s == "" {
			return nil
		}
		return []*Node{textNode(s, lineNo)}
	}

	var out []*Node
	var acc strings.Builder

	i := 0
	for i < len(s) {
		// attribute reference: {name}
		if s[i] == '{' {
			if j := strings.IndexByte(s[i+1:], '}'); j > 0 {
				j += i + 1
				out = pushText(out, &acc, lineNo)
				n := NewNode(NodeAttrRef, SourcePos{Line: lineNo, Column: 1})
				n.Name = strings.TrimSpace(s[i+1 : j])
				out = append(out, n)
				i = j + 1
				continue
			}
		}

		// cross reference: <<id,text>>
		if i+1 < len(s) && s[i] == '<' && s[i+1] == '<' {
			if j := strings.Index(s[i+2:], ">>"); j > 0 {
				j += i + 2
				out = pushText(out, &acc, lineNo)
				inner := s[i+2 : j]
				x := NewNode(NodeXref, SourcePos{Line: lineNo, Column: 1})
				if comma := strings.IndexByte(inner, ','); comma < 0 {
					x.Target = strings.TrimSpace(inner)
				} else {
					x.Target = strings.TrimSpace(inner[:comma])
					x.Children = p.parseInlineRec(strings.TrimSpace(inner[comma+1:]), lineNo, depth+1)
				}
				out = append(out, x)
				i = j + 2
				continue
			}
		}

		// inline anchor: [[id,text]]
		if i+1 < len(s) && s[i] == '[' && s[i+1] == '[' {
			if j := strings.Index(s[i+2:], "]]"); j > 0 {
				j += i + 2
				out = pushText(out, &acc, lineNo)
				inner := s[i+2 : j]
				a := NewNode(NodeAnchorInline, SourcePos{Line: lineNo, Column: 1})
				if comma := strings.IndexByte(inner, ','); comma < 0 {
					a.Name = strings.TrimSpace(inner)
				} else {
					a.Name = strings.TrimSpace(inner[:comma])
					a.Children = p.parseInlineRec(strings.TrimSpace(inner[comma+1:]), lineNo, depth+1)
				}
				out = append(out, a)
				i = j + 2
				continue
			}
		}

		// URL autolink, consumed up to whitespace or brackets
		if hasURLScheme(s[i:]) {
			j := i
			for j < len(s) && !isSpaceByte(s[j]) && s[j] != '[' && s[j] != ']' {
				j++
			}
			if j > i+5 {
				out = pushText(out, &acc, lineNo)
				l := NewNode(NodeLink, SourcePos{Line: lineNo, Column: 1})
				l.Target = s[i:j]
				out = append(out, l)
				i = j
				continue
			}
		}

		// inline macro: name:target[args]
		if colon := strings.IndexByte(s[i:], ':'); colon > 0 {
			colon += i
			ok := true
			for k := i; k < colon; k++ {
				if !isMacroNameByte(s[k]) {
					ok = false
					break
				}
			}
			if ok && colon+1 < len(s) {
				if lb := strings.IndexByte(s[colon+1:], '['); lb >= 0 {
					lb += colon + 1
					if rb := strings.IndexByte(s[lb+1:], ']'); rb >= 0 {
						rb += lb + 1
						out = pushText(out, &acc, lineNo)
						m := NewNode(NodeInlineMacro, SourcePos{Line: lineNo, Column: 1})
						m.Name = s[i:colon]
						m.Target = s[colon+1 : lb]
						m.Children = p.parseInlineRec(s[lb+1:rb], lineNo, depth+1)
						out = append(out, m)
						i = rb + 1
						continue
					}
				}
			}
		}

		// unconstrained then constrained emphasis pairs
		if strings.HasPrefix(s[i:], "**") {
			if j := strings.Index(s[i+2:], "**"); j > 0 {
				j += i + 2
				out = pushText(out, &acc, lineNo)
				out = append(out, p.emphNode("bold", s[i+2:j], lineNo, depth))
				i = j + 2
				continue
			}
		}
		if s[i] == '*' {
			if j := strings.IndexByte(s[i+1:], '*'); j > 0 {
				j += i + 1
				out = pushText(out, &acc, lineNo)
				out = append(out, p.emphNode("bold", s[i+1:j], lineNo, depth))
				i = j + 1
				continue
			}
		}
		if strings.HasPrefix(s[i:], "__") {
			if j := strings.Index(s[i+2:], "__"); j > 0 {
				j += i + 2
				out = pushText(out, &acc, lineNo)
				out = append(out, p.emphNode("italic", s[i+2:j], lineNo, depth))
				i = j + 2
				continue
			}
		}
		if s[i] == '_' {
			if j := strings.IndexByte(s[i+1:], '_'); j > 0 {
				j += i + 1
				out = pushText(out, &acc, lineNo)
				out = append(out, p.emphNode("italic", s[i+1:j], lineNo, depth))
				i = j + 1
				continue
			}
		}
		if strings.HasPrefix(s[i:], "``") {
			if j := strings.Index(s[i+2:], "``"); j > 0 {
				j += i + 2
				out = pushText(out, &acc, lineNo)
				out = append(out, p.emphNode("mono", s[i+2:j], lineNo, depth))
				i = j + 2
				continue
			}
		}
		if s[i] == '`' {
			if j := strings.IndexByte(s[i+1:], '`'); j > 0 {
				j += i + 1
				out = pushText(out, &acc, lineNo)
				// constrained mono keeps its inner as a raw text run
				e := NewNode(NodeEmph, SourcePos{Line: lineNo, Column: 1})
				e.Name = "mono"
				e.Text = s[i+1 : j]
				out = append(out, e)
				i = j + 1
				continue
			}
		}
		if s[i] == '#' {
			if j := strings.IndexByte(s[i+1:], '#'); j > 0 {
				j += i + 1
				out = pushText(out, &acc, lineNo)
				out = append(out, p.emphNode("highlight", s[i+1:j], lineNo, depth))
				i = j + 1
				continue
			}
		}
		if s[i] == '^' {
			if j := strings.IndexByte(s[i+1:], '^'); j > 0 {
				j += i + 1
				out = pushText(out, &acc, lineNo)
				e := NewNode(NodeSuperscript, SourcePos{Line: lineNo, Column: 1})
				e.Text = s[i+1 : j]
				out = append(out, e)
				i = j + 1
				continue
			}
		}
		if s[i] == '~' {
			if j := strings.IndexByte(s[i+1:], '~'); j > 0 {
				j += i + 1
				out = pushText(out, &acc, lineNo)
				e := NewNode(NodeSubscript, SourcePos{Line: lineNo, Column: 1})
				e.Text = s[i+1 : j]
				out = append(out, e)
				i = j + 1
				continue
			}
		}

		// passthrough fences: +++...+++, ++...++, +...+
		if s[i] == '+' {
			plusN := 1
			for i+plusN < len(s) && s[i+plusN] == '+' {
				plusN++
			}
			if plusN <= 3 {
				fence := s[i : i+plusN]
				if j := strings.Index(s[i+plusN:], fence); j > 0 {
					j += i + plusN
					out = pushText(out, &acc, lineNo)
					pt := NewNode(NodePassthroughInline, SourcePos{Line: lineNo, Column: 1})
					pt.SetKV("plusN", strconv.Itoa(plusN))
					pt.Children = p.parseInlineRec(s[i+plusN:j], lineNo, depth+1)
					out = append(out, pt)
					i = j + plusN
					continue
				}
			}
		}

		acc.WriteByte(s[i])
		i++
	}

	out = pushText(out, &acc, lineNo)
	return out
}

func (p *Parser) emphNode(kind, inner string, lineNo, depth int) *Node {
	e := NewNode(NodeEmph, SourcePos{Line: lineNo, Column: 1})
	e.Name = kind
	e.Children = p.parseInlineRec(inner, lineNo, depth+1)
	return e
}
