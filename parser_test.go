package leandoc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, input string) *Node {
	t.Helper()
	doc, err := NewParser().Parse(input)
	require.NoError(t, err)
	require.NotNil(t, doc)
	require.Equal(t, NodeDocument, doc.Kind)
	return doc
}

func TestParseEmptyInput(t *testing.T) {
	doc := mustParse(t, "")
	assert.Empty(t, doc.Children)
}

func TestParseHeader(t *testing.T) {
	doc := mustParse(t, "= Title\nJohn Doe <john@example.com>\nv1.0, 2024-01-01\n:toc: left\n:icons: font\n\nbody text\n")

	assert.Equal(t, "Title", doc.GetKV("title"))
	assert.Equal(t, "John Doe <john@example.com>", doc.GetKV("authorLine"))
	assert.Equal(t, "v1.0, 2024-01-01", doc.GetKV("revisionLine"))
	assert.Equal(t, "left", doc.GetKV("attr:toc"))
	assert.Equal(t, "font", doc.GetKV("attr:icons"))

	require.Len(t, doc.Children, 1)
	assert.Equal(t, NodeParagraph, doc.Children[0].Kind)
}

// Metadata between two blocks attaches to the following block, never the
// preceding one.
func TestMetadataAttachesToFollowingSection(t *testing.T) {
	doc := mustParse(t, "== Parent\nBody.\n\n[[child-id]]\n=== Child\n")

	require.Len(t, doc.Children, 1)
	parent := doc.Children[0]
	require.Equal(t, NodeSection, parent.Kind)
	assert.Equal(t, "Parent", parent.Name)
	assert.Nil(t, parent.Meta)

	require.Len(t, parent.Children, 2)
	assert.Equal(t, NodeParagraph, parent.Children[0].Kind)

	child := parent.Children[1]
	require.Equal(t, NodeSection, child.Kind)
	assert.Equal(t, "Child", child.Name)
	require.NotNil(t, child.Meta)
	assert.Equal(t, "child-id", child.Meta.AnchorID)
}

// Metadata in front of a terminating sibling section is not consumed by
// the section body that ends there.
func TestMetadataBeforeSiblingSectionNotSwallowed(t *testing.T) {
	doc := mustParse(t, "== A\nbody\n\n[[b-id]]\n== B\n")

	require.Len(t, doc.Children, 2)
	a, b := doc.Children[0], doc.Children[1]
	require.Equal(t, NodeSection, a.Kind)
	require.Equal(t, NodeSection, b.Kind)
	assert.Nil(t, a.Meta)
	require.NotNil(t, b.Meta)
	assert.Equal(t, "b-id", b.Meta.AnchorID)
	require.Len(t, a.Children, 1)
	assert.Equal(t, NodeParagraph, a.Children[0].Kind)
}

// A multi-line metadata run (anchor + attrs + title) in front of a
// terminating sibling section must not be swallowed either, and must not
// let the sibling nest inside the section that ends there.
func TestMetadataRunBeforeSiblingSectionNotSwallowed(t *testing.T) {
	doc := mustParse(t, "== A\nbody\n\n[[b-id]]\n[.lead]\n.B title\n== B\n")

	require.Len(t, doc.Children, 2)
	a, b := doc.Children[0], doc.Children[1]
	require.Equal(t, NodeSection, a.Kind)
	require.Equal(t, NodeSection, b.Kind)

	// A holds only its paragraph; B is a sibling, not a child of A
	require.Len(t, a.Children, 1)
	assert.Equal(t, NodeParagraph, a.Children[0].Kind)
	assert.Nil(t, a.Meta)

	require.NotNil(t, b.Meta)
	assert.Equal(t, "b-id", b.Meta.AnchorID)
	assert.Equal(t, []string{"lead"}, b.Meta.Roles)
	assert.Equal(t, "B title", b.Meta.Title)
}

func TestSectionNestingLevels(t *testing.T) {
	doc := mustParse(t, "== A\n=== B\n==== C\n== D\n")

	require.Len(t, doc.Children, 2)
	a, d := doc.Children[0], doc.Children[1]
	assert.Equal(t, "A", a.Name)
	assert.Equal(t, "D", d.Name)

	require.Len(t, a.Children, 1)
	b := a.Children[0]
	assert.Equal(t, "B", b.Name)
	require.Len(t, b.Children, 1)
	assert.Equal(t, "C", b.Children[0].Name)

	// every child section is strictly deeper than its parent
	var check func(n *Node, level int)
	check = func(n *Node, level int) {
		for _, c := range n.Children {
			if c.Kind != NodeSection {
				continue
			}
			childLevel := mustAtoi(t, c.GetKV("level"))
			assert.Greater(t, childLevel, level)
			check(c, childLevel)
		}
	}
	check(doc, 0)
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n := 0
	for i := 0; i < len(s); i++ {
		require.True(t, s[i] >= '0' && s[i] <= '9')
		n = n*10 + int(s[i]-'0')
	}
	return n
}

func TestLiteralVersusNormalParagraph(t *testing.T) {
	doc := mustParse(t, " indented line one\n indented line two\n\nnormal line one\nnormal line two\n")

	require.Len(t, doc.Children, 2)

	lit := doc.Children[0]
	require.Equal(t, NodeLiteralParagraph, lit.Kind)
	assert.Equal(t, "indented line one\nindented line two", lit.Text)

	para := doc.Children[1]
	require.Equal(t, NodeParagraph, para.Kind)
	require.Len(t, para.Children, 1)
	assert.Equal(t, NodeText, para.Children[0].Kind)
	assert.Equal(t, "normal line one normal line two", para.Children[0].Text)
}

func TestAdmonitionParagraph(t *testing.T) {
	doc := mustParse(t, "NOTE: be careful\n")

	require.Len(t, doc.Children, 1)
	a := doc.Children[0]
	require.Equal(t, NodeAdmonitionParagraph, a.Kind)
	assert.Equal(t, "NOTE", a.Name)
	require.Len(t, a.Children, 1)
	assert.Equal(t, "be careful", a.Children[0].Text)
}

func TestUnorderedListWithChecklist(t *testing.T) {
	doc := mustParse(t, "* [x] done\n* [ ] todo\n* plain\n")

	require.Len(t, doc.Children, 1)
	lst := doc.Children[0]
	require.Equal(t, NodeList, lst.Kind)
	assert.Equal(t, "unordered", lst.GetKV("type"))
	require.Len(t, lst.Children, 3)

	assert.Equal(t, "x", lst.Children[0].GetKV("check"))
	assert.Equal(t, " ", lst.Children[1].GetKV("check"))
	assert.Equal(t, "", lst.Children[2].GetKV("check"))
}

func TestOrderedList(t *testing.T) {
	doc := mustParse(t, ". first\n. second\n")

	require.Len(t, doc.Children, 1)
	lst := doc.Children[0]
	assert.Equal(t, "ordered", lst.GetKV("type"))
	require.Len(t, lst.Children, 2)
}

func TestListItemContinuation(t *testing.T) {
	doc := mustParse(t, "* item\n+\ncontinuation paragraph\n")

	require.Len(t, doc.Children, 1)
	lst := doc.Children[0]
	require.Len(t, lst.Children, 1)

	item := lst.Children[0]
	require.Len(t, item.Children, 2)
	assert.Equal(t, NodeParagraph, item.Children[0].Kind)
	assert.Equal(t, NodeParagraph, item.Children[1].Kind)
}

func TestDescriptionList(t *testing.T) {
	doc := mustParse(t, "CPU:: Central Processing Unit\nRAM:: Random Access Memory\n")

	require.Len(t, doc.Children, 1)
	lst := doc.Children[0]
	require.Equal(t, NodeList, lst.Kind)
	assert.Equal(t, "description", lst.GetKV("type"))
	require.Len(t, lst.Children, 2)

	first := lst.Children[0]
	assert.Equal(t, "CPU", first.Name)
	require.Len(t, first.Children, 1)
	def := first.Children[0]
	require.Equal(t, NodeParagraph, def.Kind)
	require.Len(t, def.Children, 1)
	assert.Equal(t, "Central Processing Unit", def.Children[0].Text)

	second := lst.Children[1]
	assert.Equal(t, "RAM", second.Name)
	require.Len(t, second.Children, 1)
}

func TestDescriptionListDefinitionOnNextLine(t *testing.T) {
	doc := mustParse(t, "CPU::\nCentral Processing Unit\n")

	lst := doc.Children[0]
	require.Equal(t, "description", lst.GetKV("type"))
	require.Len(t, lst.Children, 1)
	item := lst.Children[0]
	assert.Equal(t, "CPU", item.Name)
	require.Len(t, item.Children, 1)
	assert.Equal(t, "Central Processing Unit", item.Children[0].Children[0].Text)
}

func TestTableBasic(t *testing.T) {
	doc := mustParse(t, "|===\n|a |b\n|c |d\n|===\n")

	require.Len(t, doc.Children, 1)
	table := doc.Children[0]
	require.Equal(t, NodeTable, table.Kind)
	require.Len(t, table.Children, 2)
	for _, row := range table.Children {
		require.Equal(t, NodeTableRow, row.Kind)
		require.Len(t, row.Children, 2)
	}
}

func TestTableEscapedPipe(t *testing.T) {
	doc := mustParse(t, "|===\n|a\\|b |c\n|===\n")

	table := doc.Children[0]
	require.Len(t, table.Children, 1)
	row := table.Children[0]
	require.Len(t, row.Children, 2)

	first := row.Children[0]
	require.Len(t, first.Children, 1)
	assert.Equal(t, "a|b", first.Children[0].Text)
	assert.Equal(t, "c", row.Children[1].Children[0].Text)
}

// Cells after the first row re-flow into rows of the first row's width.
func TestTableReflow(t *testing.T) {
	doc := mustParse(t, "|===\n|a |b\n|c\n|d\n|===\n")

	table := doc.Children[0]
	require.Len(t, table.Children, 2)
	require.Len(t, table.Children[1].Children, 2)
}

func TestTableInconsistentWidthFails(t *testing.T) {
	_, err := NewParser().Parse("|===\n|a |b\n|c\n|===\n")
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Line)
	assert.Contains(t, pe.Message, "not compatible with the table size")
}

func TestTableMissingCloseFails(t *testing.T) {
	_, err := NewParser().Parse("|===\n|a |b\n")
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Message, "closing table delimiter")
}

func TestUnexpectedTableLineFails(t *testing.T) {
	for _, input := range []string{"|a |b\n", "== A\n|a |b\n"} {
		_, err := NewParser().Parse(input)
		require.Error(t, err, "input %q", input)

		var pe *ParseError
		require.True(t, errors.As(err, &pe))
		assert.Contains(t, pe.Message, "unexpected table line")
	}
}

func TestDelimitedListingIsRaw(t *testing.T) {
	doc := mustParse(t, "----\nif (a) {\n  *p = 1;\n}\n----\n")

	require.Len(t, doc.Children, 1)
	b := doc.Children[0]
	require.Equal(t, NodeDelimitedBlock, b.Kind)
	assert.Equal(t, "listing", b.GetKV("delim"))
	assert.Equal(t, "if (a) {\n  *p = 1;\n}", b.Text)
	assert.Empty(t, b.Children)
}

func TestDelimitedQuoteIsContainer(t *testing.T) {
	doc := mustParse(t, "____\nquoted text\n____\n")

	b := doc.Children[0]
	require.Equal(t, NodeDelimitedBlock, b.Kind)
	assert.Equal(t, "quote", b.GetKV("delim"))
	assert.Empty(t, b.Text)
	require.Len(t, b.Children, 1)
	assert.Equal(t, NodeParagraph, b.Children[0].Kind)
}

func TestStemBlock(t *testing.T) {
	doc := mustParse(t, "[stem]\n++++\nx^2 + y^2\n++++\n")

	b := doc.Children[0]
	require.Equal(t, NodeDelimitedBlock, b.Kind)
	assert.Equal(t, "1", b.GetKV("stem"))
	assert.Equal(t, "x^2 + y^2", b.Text)
}

func TestDelimitedMissingCloseFails(t *testing.T) {
	for _, input := range []string{"----\ncode\n", "____\ntext\n"} {
		_, err := NewParser().Parse(input)
		require.Error(t, err, "input %q", input)

		var pe *ParseError
		require.True(t, errors.As(err, &pe))
		assert.Contains(t, pe.Message, "expected closing delimiter")
	}
}

// A fence line inside a listing closes it early; content-matching fences
// are a known limitation of the fixed-length fence grammar.
func TestFenceInsideListingClosesEarly(t *testing.T) {
	doc, err := NewParser().Parse("----\nbefore\n----\nafter\n")
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(doc.Children), 2)
	assert.Equal(t, "before", doc.Children[0].Text)
	assert.Equal(t, NodeParagraph, doc.Children[1].Kind)
}

func TestBlockAttrsMetadata(t *testing.T) {
	doc := mustParse(t, "[source,python]\n----\nprint(1)\n----\n")

	b := doc.Children[0]
	require.NotNil(t, b.Meta)
	assert.Contains(t, b.Meta.Attrs, "source")
	assert.Contains(t, b.Meta.Attrs, "python")
}

func TestRolesDerivedFromAttrs(t *testing.T) {
	doc := mustParse(t, "[.lead]\nsome text\n")

	para := doc.Children[0]
	require.NotNil(t, para.Meta)
	assert.Equal(t, []string{"lead"}, para.Meta.Roles)
}

func TestBlockTitleMetadata(t *testing.T) {
	doc := mustParse(t, "[[fig-1]]\n[source]\n.Listing title\n----\ncode\n----\n")

	b := doc.Children[0]
	require.NotNil(t, b.Meta)
	assert.Equal(t, "fig-1", b.Meta.AnchorID)
	assert.Equal(t, "Listing title", b.Meta.Title)
	assert.Contains(t, b.Meta.Attrs, "source")
}

func TestMetadataWithoutBlockFails(t *testing.T) {
	_, err := NewParser().Parse("[[orphan]]\n")
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Message, "metadata without a following block")
}

func TestBlockMacro(t *testing.T) {
	doc := mustParse(t, "image::img/a.png[Alt text]\n")

	m := doc.Children[0]
	require.Equal(t, NodeBlockMacro, m.Kind)
	assert.Equal(t, "image", m.Name)
	assert.Equal(t, "img/a.png[Alt text]", m.Target)
}

func TestDirectiveParsesBody(t *testing.T) {
	doc := mustParse(t, "ifdef::backend[]\nconditional text\nendif::[]\n")

	d := doc.Children[0]
	require.Equal(t, NodeDirective, d.Kind)
	assert.Equal(t, "ifdef", d.Name)
	require.Len(t, d.Children, 2)
	assert.Equal(t, NodeParagraph, d.Children[0].Kind)
	assert.Equal(t, "endif", d.Children[1].Name)
}

func TestThematicAndPageBreak(t *testing.T) {
	doc := mustParse(t, "'''\n\n<<<\n")

	require.Len(t, doc.Children, 2)
	assert.Equal(t, NodeThematicBreak, doc.Children[0].Kind)
	assert.Equal(t, NodePageBreak, doc.Children[1].Kind)
}

func TestParagraphStopsAtBlockStarter(t *testing.T) {
	doc := mustParse(t, "text line\n* list item\n")

	require.Len(t, doc.Children, 2)
	assert.Equal(t, NodeParagraph, doc.Children[0].Kind)
	assert.Equal(t, NodeList, doc.Children[1].Kind)
}
