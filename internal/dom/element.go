package dom

import (
	"errors"
	"strings"
)

// ErrNotChild is returned when a removal target is not a child of the
// element it is being removed from.
var ErrNotChild = errors.New("node is not a child of this element")

// NodeType discriminates tree nodes.
type NodeType int

const (
	ElementNode NodeType = iota
	TextNode
	CommentNode
)

// Element represents a node in the document tree. Text and comment nodes
// reuse the same struct with Type set accordingly and Data holding their
// content.
type Element struct {
	Type       NodeType
	TagName    string // lowercase for element nodes
	Data       string // text/comment content
	Attributes map[string]string
	Children   []*Element
	Parent     *Element

	// set on the document root only; connectivity checks climb to it
	doc *Document

	// live rule list, present only while connected (see Sheet)
	sheet *StyleSheet
}

// NewElement creates a detached element with the given tag.
func NewElement(tag string) *Element {
	return &Element{
		Type:       ElementNode,
		TagName:    strings.ToLower(tag),
		Attributes: make(map[string]string),
	}
}

// NewText creates a detached text node.
func NewText(data string) *Element {
	return &Element{Type: TextNode, Data: data}
}

// NewComment creates a detached comment node.
func NewComment(data string) *Element {
	return &Element{Type: CommentNode, Data: data}
}

// GetAttribute retrieves an attribute value, empty when absent.
func (e *Element) GetAttribute(name string) string {
	return e.Attributes[name]
}

// HasAttribute reports whether the attribute is present.
func (e *Element) HasAttribute(name string) bool {
	_, ok := e.Attributes[name]
	return ok
}

// SetAttribute sets an attribute value.
func (e *Element) SetAttribute(name, value string) {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[name] = value
}

// RemoveAttribute deletes an attribute.
func (e *Element) RemoveAttribute(name string) {
	delete(e.Attributes, name)
}

// TextContent concatenates the text of all descendant text nodes.
func (e *Element) TextContent() string {
	if e.Type == TextNode || e.Type == CommentNode {
		return e.Data
	}
	var b strings.Builder
	for _, child := range e.Children {
		b.WriteString(child.TextContent())
	}
	return b.String()
}

// SetTextContent replaces all children with a single text node.
func (e *Element) SetTextContent(text string) {
	for _, child := range e.Children {
		child.Parent = nil
	}
	e.Children = e.Children[:0]
	if text != "" {
		e.AppendChild(NewText(text))
	}
}

// AppendChild detaches the child from any previous parent and appends it.
func (e *Element) AppendChild(child *Element) *Element {
	return e.InsertBefore(child, nil)
}

// InsertBefore inserts the child before ref. A nil ref, or a ref that is
// not actually a child of this element, degrades to an append.
func (e *Element) InsertBefore(child, ref *Element) *Element {
	child.Detach()
	child.Parent = e

	if ref != nil {
		for i, existing := range e.Children {
			if existing == ref {
				e.Children = append(e.Children, nil)
				copy(e.Children[i+1:], e.Children[i:])
				e.Children[i] = child
				return child
			}
		}
	}
	e.Children = append(e.Children, child)
	return child
}

// RemoveChild removes a direct child, dropping live sheets in the removed
// subtree. Returns ErrNotChild when the node is not a child of e.
func (e *Element) RemoveChild(child *Element) (*Element, error) {
	for i, existing := range e.Children {
		if existing == child {
			e.Children = append(e.Children[:i], e.Children[i+1:]...)
			child.Parent = nil
			child.dropSheets()
			return child, nil
		}
	}
	return nil, ErrNotChild
}

// Detach removes the element from its parent, if any.
func (e *Element) Detach() {
	if e.Parent != nil {
		e.Parent.RemoveChild(e) //nolint:errcheck // child by construction
	}
}

// Contains reports whether other is e or a descendant of e.
func (e *Element) Contains(other *Element) bool {
	for n := other; n != nil; n = n.Parent {
		if n == e {
			return true
		}
	}
	return false
}

// IsConnected reports whether the element is part of a document tree.
func (e *Element) IsConnected() bool {
	return e.OwnerDocument() != nil
}

// OwnerDocument returns the document this element is attached to, or nil.
func (e *Element) OwnerDocument() *Document {
	n := e
	for n.Parent != nil {
		n = n.Parent
	}
	return n.doc
}

// Sheet returns the element's live stylesheet. Only connected style
// elements have one; it is created empty on first access and discarded
// when the element is detached.
func (e *Element) Sheet() *StyleSheet {
	if e.TagName != "style" || !e.IsConnected() {
		return nil
	}
	if e.sheet == nil {
		e.sheet = &StyleSheet{owner: e}
	}
	return e.sheet
}

// dropSheets discards live rule lists in the whole subtree.
func (e *Element) dropSheets() {
	e.sheet = nil
	for _, child := range e.Children {
		child.dropSheets()
	}
}
