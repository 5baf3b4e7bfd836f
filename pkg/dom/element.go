package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Element is an element node owned by a Document.
type Element struct {
	doc       *Document
	node      *html.Node
	props     map[string]any
	style     *Style
	listeners map[string][]*listener
	nextID    int
}

// HTMLNode implements Node.
func (e *Element) HTMLNode() *html.Node { return e.node }

// OwnerDocument returns the document that created the element.
func (e *Element) OwnerDocument() *Document { return e.doc }

// TagName returns the element's tag name as created.
func (e *Element) TagName() string { return e.node.Data }

// NamespaceURI returns the element's namespace.
func (e *Element) NamespaceURI() string {
	if e.node.Namespace == "svg" {
		return NamespaceSVG
	}
	return NamespaceHTML
}

// Parent returns the parent element, or nil when detached or at the root.
func (e *Element) Parent() *Element {
	return e.doc.wrap(e.node.Parent)
}

// IsConnected reports whether the element is inside its document tree.
func (e *Element) IsConnected() bool {
	for n := e.node; n != nil; n = n.Parent {
		if n == e.doc.root {
			return true
		}
	}
	return false
}

// Contains reports whether other is e or one of its descendants.
func (e *Element) Contains(other Node) bool {
	if other == nil {
		return false
	}
	for n := other.HTMLNode(); n != nil; n = n.Parent {
		if n == e.node {
			return true
		}
	}
	return false
}

// AppendChild appends child as the last child of e, moving it from its
// current parent first. Appending e to itself or to one of its descendants
// fails with a HierarchyRequestError.
func (e *Element) AppendChild(child Node) error {
	c := child.HTMLNode()
	for n := e.node; n != nil; n = n.Parent {
		if n == c {
			return &DOMError{Name: "HierarchyRequestError", Message: "the new child is an ancestor of the parent"}
		}
	}
	if c.Parent != nil {
		c.Parent.RemoveChild(c)
	}
	if ce, ok := child.(*Element); ok && ce.doc == e.doc {
		e.doc.elements[c] = ce
	}
	e.node.AppendChild(c)
	return nil
}

// RemoveChild detaches child from e.
func (e *Element) RemoveChild(child Node) error {
	c := child.HTMLNode()
	if c.Parent != e.node {
		return &DOMError{Name: "NotFoundError", Message: "the node to be removed is not a child of this node"}
	}
	e.node.RemoveChild(c)
	return nil
}

// Remove detaches e from its parent. It is a no-op when already detached.
func (e *Element) Remove() {
	if e.node.Parent != nil {
		e.node.Parent.RemoveChild(e.node)
	}
}

// Children returns the element children of e in order.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

// ChildNodes returns the element and text children of e in order.
func (e *Element) ChildNodes() []Node {
	var out []Node
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			out = append(out, e.doc.wrap(c))
		case html.TextNode:
			out = append(out, &Text{node: c})
		}
	}
	return out
}

// ChildNodeCount returns the number of direct child nodes, text included.
func (e *Element) ChildNodeCount() int {
	count := 0
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		count++
	}
	return count
}

// DescendantCount returns the number of nodes below e, text included.
func (e *Element) DescendantCount() int {
	count := -1
	walk(e.node, func(*html.Node) bool {
		count++
		return true
	})
	return count
}

// FirstElementChild returns the first element child, or nil.
func (e *Element) FirstElementChild() *Element {
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return e.doc.wrap(c)
		}
	}
	return nil
}

// LastElementChild returns the last element child, or nil.
func (e *Element) LastElementChild() *Element {
	for c := e.node.LastChild; c != nil; c = c.PrevSibling {
		if c.Type == html.ElementNode {
			return e.doc.wrap(c)
		}
	}
	return nil
}

// ReplaceChildren removes every child of e and appends nodes in order.
func (e *Element) ReplaceChildren(nodes ...Node) {
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		e.doc.forget(c)
		c = next
	}
	for _, n := range nodes {
		_ = e.AppendChild(n)
	}
}

// SetAttribute sets a string attribute, replacing any previous value.
func (e *Element) SetAttribute(name, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// GetAttribute returns the attribute value and whether it is present.
func (e *Element) GetAttribute(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttribute reports whether the attribute is present.
func (e *Element) HasAttribute(name string) bool {
	_, ok := e.GetAttribute(name)
	return ok
}

// RemoveAttribute removes the attribute if present.
func (e *Element) RemoveAttribute(name string) {
	attrs := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		attrs = append(attrs, a)
	}
	e.node.Attr = attrs
}

// ID returns the id attribute.
func (e *Element) ID() string { return attr(e.node, "id") }

// TextContent returns the concatenated text of every descendant text node.
func (e *Element) TextContent() string {
	var b strings.Builder
	walk(e.node, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		return true
	})
	return b.String()
}

// SetTextContent replaces the children of e with a single text node.
func (e *Element) SetTextContent(s string) {
	if s == "" {
		e.ReplaceChildren()
		return
	}
	e.ReplaceChildren(e.doc.CreateTextNode(s))
}

// InnerHTML serializes the children of e.
func (e *Element) InnerHTML() string {
	var b strings.Builder
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

// SetInnerHTML replaces the children of e with the parsed fragment.
func (e *Element) SetInnerHTML(fragment string) error {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), e.node)
	if err != nil {
		return err
	}
	e.ReplaceChildren()
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	return nil
}

// OuterHTML serializes e and its children.
func (e *Element) OuterHTML() string {
	var b strings.Builder
	_ = html.Render(&b, e.node)
	return b.String()
}

// DOMError is returned for tree operations the DOM would reject.
type DOMError struct {
	Name    string
	Message string
}

func (e *DOMError) Error() string {
	return e.Name + ": " + e.Message
}
