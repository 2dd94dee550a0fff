package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse parses a complete HTML document and returns a Document whose
// head and body regions hold the parsed content. A <base href> in the
// head becomes the document's BaseURI.
func Parse(markup string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	doc := NewDocument()
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Html:
				copyAttributes(doc.Root, n)
			case atom.Head:
				populateRegion(doc.Head, n)
				return
			case atom.Body:
				populateRegion(doc.Body, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	for _, child := range doc.Head.Element.Children {
		if child.TagName == "base" && child.HasAttribute("href") {
			doc.BaseURI = child.GetAttribute("href")
			break
		}
	}
	return doc, nil
}

func populateRegion(region *Region, n *html.Node) {
	copyAttributes(region.Element, n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if child := fromHTMLNode(c); child != nil {
			region.Element.AppendChild(child)
		}
	}
}

func copyAttributes(el *Element, n *html.Node) {
	for _, attr := range n.Attr {
		el.SetAttribute(attr.Key, attr.Val)
	}
}

// ParseFragment parses an HTML fragment in body context and returns the
// resulting top-level nodes, detached.
func ParseFragment(fragment string) ([]*Element, error) {
	context := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil, err
	}

	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		if el := fromHTMLNode(n); el != nil {
			out = append(out, el)
		}
	}
	return out, nil
}

// Render serializes the element subtree back to markup. Raw text elements
// such as script and style keep their text unescaped, matching browser
// serialization.
func Render(e *Element) (string, error) {
	var b strings.Builder
	if err := html.Render(&b, toHTMLNode(e)); err != nil {
		return "", err
	}
	return b.String(), nil
}

func fromHTMLNode(n *html.Node) *Element {
	switch n.Type {
	case html.ElementNode:
		el := NewElement(n.Data)
		for _, attr := range n.Attr {
			el.SetAttribute(attr.Key, attr.Val)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if child := fromHTMLNode(c); child != nil {
				el.AppendChild(child)
			}
		}
		return el
	case html.TextNode:
		return NewText(n.Data)
	case html.CommentNode:
		return NewComment(n.Data)
	}
	return nil
}

func toHTMLNode(e *Element) *html.Node {
	switch e.Type {
	case TextNode:
		return &html.Node{Type: html.TextNode, Data: e.Data}
	case CommentNode:
		return &html.Node{Type: html.CommentNode, Data: e.Data}
	}

	n := &html.Node{
		Type:     html.ElementNode,
		Data:     e.TagName,
		DataAtom: atom.Lookup([]byte(e.TagName)),
	}
	for key, val := range e.Attributes {
		n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	}
	for _, child := range e.Children {
		n.AppendChild(toHTMLNode(child))
	}
	return n
}
