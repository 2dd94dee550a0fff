package dom

import "sync"

// InsertFunc is a region insertion entry point. A nil ref appends.
type InsertFunc func(node, ref *Element) (*Element, error)

// RemoveFunc is a region removal entry point.
type RemoveFunc func(node *Element) (*Element, error)

// Region is a shared document region (head or body) whose insert and
// remove entry points can be swapped out. Node insertion from arbitrary
// callers flows through these hooks, which is how the mutation
// interceptor reroutes it.
type Region struct {
	*Element

	doc    *Document
	name   string
	insert InsertFunc
	remove RemoveFunc
}

// Name returns "head" or "body".
func (r *Region) Name() string {
	return r.name
}

// AppendChild routes through the region's insert hook.
func (r *Region) AppendChild(node *Element) (*Element, error) {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()
	return r.insert(node, nil)
}

// InsertBefore routes through the region's insert hook.
func (r *Region) InsertBefore(node, ref *Element) (*Element, error) {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()
	return r.insert(node, ref)
}

// RemoveChild routes through the region's remove hook.
func (r *Region) RemoveChild(node *Element) (*Element, error) {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()
	return r.remove(node)
}

// Hooks returns the currently installed entry points. Callers serialize
// with region mutation through Sync.
func (r *Region) Hooks() (InsertFunc, RemoveFunc) {
	return r.insert, r.remove
}

// SetHooks swaps the entry points and returns the previous pair. Hook
// swaps must hold the document lock, which region methods take before
// invoking a hook: call SetHooks inside Sync, never directly from a
// running hook.
func (r *Region) SetHooks(insert InsertFunc, remove RemoveFunc) (InsertFunc, RemoveFunc) {
	prevInsert, prevRemove := r.insert, r.remove
	if insert != nil {
		r.insert = insert
	}
	if remove != nil {
		r.remove = remove
	}
	return prevInsert, prevRemove
}

// Document is a single shared page: a root element with head and body
// regions. A mutex serializes region mutation, standing in for the
// browser's single event-loop thread.
type Document struct {
	Root *Element
	Head *Region
	Body *Region

	// BaseURI resolves relative resource references, like <base href>.
	BaseURI string

	mu sync.Mutex
}

// NewDocument creates an empty document with head and body regions.
func NewDocument() *Document {
	d := &Document{Root: NewElement("html")}
	d.Root.doc = d

	head := NewElement("head")
	body := NewElement("body")
	d.Root.AppendChild(head)
	d.Root.AppendChild(body)

	d.Head = d.newRegion(head, "head")
	d.Body = d.newRegion(body, "body")
	return d
}

func (d *Document) newRegion(el *Element, name string) *Region {
	r := &Region{Element: el, doc: d, name: name}
	r.insert = func(node, ref *Element) (*Element, error) {
		return el.InsertBefore(node, ref), nil
	}
	r.remove = func(node *Element) (*Element, error) {
		return el.RemoveChild(node)
	}
	return r
}

// Sync runs fn while holding the document's mutation lock. Asynchronous
// completions that touch the tree (the script pipeline's wrapped-code
// install) go through here so they serialize with region mutation.
func (d *Document) Sync(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

// Contains reports whether the node is attached to this document.
func (d *Document) Contains(node *Element) bool {
	return d.Root.Contains(node)
}

// Region returns the region wrapper for a shared region element, or nil
// when the element is neither head nor body.
func (d *Document) Region(el *Element) *Region {
	switch el {
	case d.Head.Element:
		return d.Head
	case d.Body.Element:
		return d.Body
	}
	return nil
}
