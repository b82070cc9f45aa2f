package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertParagraphs(t *testing.T) {
	got := Convert("<p>A</p><p>B</p>")
	assert.Equal(t, "A\n\nB", got)
}

func TestConvertIsDeterministic(t *testing.T) {
	input := "<h1>Title</h1><p>Some <strong>bold</strong> text</p><ul><li>one</li><li>two</li></ul>"
	first := Convert(input)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Convert(input))
	}
}

func TestConvertScriptOnlyDocumentIsEmpty(t *testing.T) {
	got := Convert("<script>var a = 1;</script><style>.x{}</style><noscript>enable js</noscript>")
	assert.Empty(t, got)
}

func TestConvertHeadings(t *testing.T) {
	got := Convert("<h1>One</h1><h2>Two</h2><h3>Three</h3>")
	assert.Equal(t, "# One\n\n## Two\n\n### Three", got)
}

func TestConvertUnorderedList(t *testing.T) {
	got := Convert("<ul><li>first</li><li></li><li>third</li></ul>")
	assert.Equal(t, "- first\n\n- third", got)
}

func TestConvertOrderedListSkipsEmptyItemsWithoutGaps(t *testing.T) {
	got := Convert("<ol><li>alpha</li><li>  </li><li>beta</li></ol>")
	// The blank item must not consume an ordinal.
	assert.Equal(t, "1. alpha\n\n2. beta", got)
}

func TestConvertBlockquote(t *testing.T) {
	got := Convert("<blockquote>quoted words</blockquote>")
	assert.Equal(t, "> quoted words", got)
}

func TestConvertInlineMarks(t *testing.T) {
	// Text runs are whitespace-normalized individually, so inline marks
	// join their neighbors without separating spaces.
	got := Convert("<p><strong>bold</strong>, <em>italic</em>, <a href=\"/x\">link</a></p>")
	assert.Equal(t, "**bold**,*italic*,[link](/x)", got)
}

func TestConvertBreakInsideParagraph(t *testing.T) {
	got := Convert("<p>line one<br/>line two</p>")
	assert.Equal(t, "line one\nline two", got)
}

func TestConvertAnchorWithoutHrefKeepsLabel(t *testing.T) {
	got := Convert("<p><a>just text</a></p>")
	assert.Equal(t, "just text", got)
}

func TestConvertEmptyStrongDropped(t *testing.T) {
	got := Convert("<p>before<strong>  </strong>each</p>")
	assert.Equal(t, "beforeeach", got)
}

func TestConvertDivWithBlocksRecurses(t *testing.T) {
	got := Convert("<div><p>inner</p><div><h2>deep</h2></div></div>")
	assert.Equal(t, "inner\n\n## deep", got)
}

func TestConvertDivWithoutBlocksIsOneParagraph(t *testing.T) {
	got := Convert("<div>plain run of text</div>")
	assert.Equal(t, "plain run of text", got)
}

func TestConvertCollapsesWhitespace(t *testing.T) {
	got := Convert("<p>  spaced \n\t out  </p>")
	assert.Equal(t, "spaced out", got)
}

func TestConvertDetailFragment(t *testing.T) {
	got := Convert("<html><body><h1>Title</h1><p>Body text</p></body></html>")
	assert.Equal(t, "# Title\n\nBody text", got)
}

func TestConvertNoTextualContent(t *testing.T) {
	assert.Empty(t, Convert(""))
	assert.Empty(t, Convert("<div></div>"))
	assert.Empty(t, Convert("<p>   </p>"))
}
