package leandoc

import (
	"fmt"
	"io"
	"strings"
)

// DumpTokens classifies input and writes one line per token to w, including
// the synthetic trailing EOF. Used by the CLI --tokens mode.
func DumpTokens(input string, w io.Writer) error {
	var lex Lexer
	lex.SetInput(input)

	for {
		t := lex.Take()
		if _, err := fmt.Fprintf(w, "%d: %s", t.LineNo, t.Kind); err != nil {
			return err
		}
		if t.Level != 0 {
			fmt.Fprintf(w, " level=%d", t.Level)
		}
		if t.Head != "" {
			fmt.Fprintf(w, " head=%q", t.Head)
		}
		if t.Rest != "" {
			fmt.Fprintf(w, " rest=%q", t.Rest)
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		if t.Kind == LineEOF {
			return nil
		}
	}
}

// Dump writes an indented tree dump of n and its descendants to w. Text
// payloads longer than 64 runes are whitespace-collapsed and truncated.
func (n *Node) Dump(w io.Writer) error {
	return n.dump(w, 0)
}

func (n *Node) dump(w io.Writer, depth int) error {
	var sb strings.Builder
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.Kind.String())
	fmt.Fprintf(&sb, " @%d", n.Pos.Line)

	if m := n.Meta; m != nil {
		if m.AnchorID != "" {
			fmt.Fprintf(&sb, " anchorId=%q", m.AnchorID)
		}
		if m.AnchorText != "" {
			fmt.Fprintf(&sb, " anchorText=%q", m.AnchorText)
		}
		if m.Title != "" {
			fmt.Fprintf(&sb, " title=%q", m.Title)
		}
		if len(m.Attrs) > 0 {
			fmt.Fprintf(&sb, " attrs=%d", len(m.Attrs))
		}
	}

	if n.Name != "" {
		fmt.Fprintf(&sb, " name=%q", n.Name)
	}
	if n.Target != "" {
		fmt.Fprintf(&sb, " target=%q", n.Target)
	}
	if n.Text != "" {
		fmt.Fprintf(&sb, " text=%s", truncateText(n.Text))
	}
	if len(n.KV) > 0 {
		fmt.Fprintf(&sb, " kv=%d", len(n.KV))
	}

	if _, err := fmt.Fprintln(w, sb.String()); err != nil {
		return err
	}

	for _, c := range n.Children {
		if err := c.dump(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// truncateText quotes text, collapsing whitespace and appending "..." when
// it runs past 64 runes.
func truncateText(s string) string {
	r := []rune(s)
	if len(r) <= 64 {
		return fmt.Sprintf("%q", s)
	}
	collapsed := strings.Join(strings.Fields(s), " ")
	r = []rune(collapsed)
	if len(r) > 64 {
		r = r[:64]
	}
	return fmt.Sprintf("%q", string(r)) + "..."
}
