// Package markdown converts downloaded HTML detail pages into a readable
// Markdown rendition. The conversion is intentionally small: headings,
// paragraphs, lists, blockquotes and a handful of inline marks. Anything
// else is flattened to its text content.
package markdown

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blockTags = map[atom.Atom]bool{
	atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true,
	atom.P: true, atom.Ul: true, atom.Ol: true, atom.Li: true,
	atom.Table: true, atom.Blockquote: true,
}

var skipTags = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true,
}

var headingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3,
	atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// Convert renders rawHTML as Markdown. The output is deterministic for a
// given input; an input with no textual content yields the empty string.
func Convert(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	root := findBody(doc)
	if root == nil {
		root = doc
	}

	var lines []string
	walk(root, &lines)

	var kept []string
	for _, line := range lines {
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n\n"))
}

func walk(node *html.Node, lines *[]string) {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			if text := normalizeInline(child.Data); text != "" {
				*lines = append(*lines, text)
			}
			continue
		}
		if child.Type != html.ElementNode || skipTags[child.DataAtom] {
			continue
		}
		if level, ok := headingLevels[child.DataAtom]; ok {
			if text := normalizeInline(collectText(child)); text != "" {
				*lines = append(*lines, strings.Repeat("#", level)+" "+text)
			}
			continue
		}
		switch child.DataAtom {
		case atom.P:
			if text := strings.TrimSpace(inlineToMarkdown(child)); text != "" {
				*lines = append(*lines, text)
			}
		case atom.Ul, atom.Ol:
			ordered := child.DataAtom == atom.Ol
			idx := 1
			for li := child.FirstChild; li != nil; li = li.NextSibling {
				if li.Type != html.ElementNode || li.DataAtom != atom.Li {
					continue
				}
				item := strings.TrimSpace(inlineToMarkdown(li))
				if item == "" {
					continue
				}
				if ordered {
					*lines = append(*lines, strconv.Itoa(idx)+". "+item)
					idx++
				} else {
					*lines = append(*lines, "- "+item)
				}
			}
		case atom.Blockquote:
			if text := strings.TrimSpace(inlineToMarkdown(child)); text != "" {
				*lines = append(*lines, "> "+text)
			}
		case atom.Div:
			if hasBlockDescendants(child) {
				walk(child, lines)
			} else if text := strings.TrimSpace(inlineToMarkdown(child)); text != "" {
				*lines = append(*lines, text)
			}
		default:
			walk(child, lines)
		}
	}
}

// inlineToMarkdown flattens a node's subtree into a single inline run,
// keeping bold, italic, link and line-break marks.
func inlineToMarkdown(node *html.Node) string {
	if node.Type == html.TextNode {
		return normalizeInline(node.Data)
	}
	if node.Type != html.ElementNode || skipTags[node.DataAtom] {
		return ""
	}
	if node.DataAtom == atom.Br {
		return "\n"
	}

	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(inlineToMarkdown(child))
	}
	childrenText := strings.TrimSpace(b.String())

	switch node.DataAtom {
	case atom.Strong, atom.B:
		if childrenText == "" {
			return ""
		}
		return "**" + childrenText + "**"
	case atom.Em, atom.I:
		if childrenText == "" {
			return ""
		}
		return "*" + childrenText + "*"
	case atom.A:
		href := strings.TrimSpace(attr(node, "href"))
		label := childrenText
		if label == "" {
			label = normalizeInline(collectText(node))
		}
		if href != "" && label != "" {
			return "[" + label + "](" + href + ")"
		}
		return label
	}
	return childrenText
}

func hasBlockDescendants(node *html.Node) bool {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode {
			if blockTags[child.DataAtom] || hasBlockDescendants(child) {
				return true
			}
		}
	}
	return false
}

// collectText joins every text descendant with single spaces.
func collectText(node *html.Node) string {
	var parts []string
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(node)
	return strings.Join(parts, " ")
}

// normalizeInline collapses any run of whitespace to a single space.
func normalizeInline(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func attr(node *html.Node, name string) string {
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func findBody(doc *html.Node) *html.Node {
	var body *html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(doc)
	return body
}
