package dom

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Namespaces supported by CreateElementNS.
const (
	NamespaceHTML = "http://www.w3.org/1999/xhtml"
	NamespaceSVG  = "http://www.w3.org/2000/svg"
)

// Node is anything that can be inserted into a Document tree.
type Node interface {
	HTMLNode() *html.Node
}

// Document is the root of a node tree.
type Document struct {
	root     *html.Node
	html     *Element
	head     *Element
	body     *Element
	elements map[*html.Node]*Element
}

// NewDocument returns an empty HTML document with html, head and body elements.
func NewDocument() *Document {
	d := &Document{
		root:     &html.Node{Type: html.DocumentNode},
		elements: make(map[*html.Node]*Element),
	}
	d.root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	d.html = d.CreateElement("html")
	d.head = d.CreateElement("head")
	d.body = d.CreateElement("body")
	d.root.AppendChild(d.html.node)
	d.html.node.AppendChild(d.head.node)
	d.html.node.AppendChild(d.body.node)
	return d
}

// DocumentElement returns the html element.
func (d *Document) DocumentElement() *Element { return d.html }

// Head returns the head element.
func (d *Document) Head() *Element { return d.head }

// Body returns the body element.
func (d *Document) Body() *Element { return d.body }

// CreateElement creates an element in the HTML namespace.
func (d *Document) CreateElement(tag string) *Element {
	return d.CreateElementNS(NamespaceHTML, tag)
}

// CreateElementNS creates an unattached element in the given namespace.
func (d *Document) CreateElementNS(namespace, tag string) *Element {
	n := &html.Node{
		Type: html.ElementNode,
		Data: tag,
	}
	switch namespace {
	case NamespaceSVG:
		n.Namespace = "svg"
	default:
		n.DataAtom = atom.Lookup([]byte(strings.ToLower(tag)))
	}
	return d.wrap(n)
}

// CreateTextNode creates an unattached text node.
func (d *Document) CreateTextNode(data string) *Text {
	return &Text{node: &html.Node{Type: html.TextNode, Data: data}}
}

// GetElementByID returns the first element with the given id, or nil.
func (d *Document) GetElementByID(id string) *Element {
	var found *Element
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			found = d.wrap(n)
			return false
		}
		return true
	})
	return found
}

// QuerySelector returns the first element in the document matching selector.
func (d *Document) QuerySelector(selector string) (*Element, error) {
	return d.html.querySelector(selector, true)
}

// QuerySelectorAll returns every element in the document matching selector.
func (d *Document) QuerySelectorAll(selector string) ([]*Element, error) {
	return d.html.querySelectorAll(selector, true)
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String returns the document serialized as HTML.
func (d *Document) String() string {
	var b strings.Builder
	_ = d.Render(&b)
	return b.String()
}

// wrap returns the Element for n, creating it on first use. Elements created
// by parsing (innerHTML) get their wrapper lazily here.
func (d *Document) wrap(n *html.Node) *Element {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	if e, ok := d.elements[n]; ok {
		return e
	}
	e := &Element{doc: d, node: n}
	d.elements[n] = e
	return e
}

// forget drops wrappers for n and its descendants. Called when content is
// replaced wholesale so the map does not grow without bound.
func (d *Document) forget(n *html.Node) {
	walk(n, func(c *html.Node) bool {
		delete(d.elements, c)
		return true
	})
}

// Text is a text node.
type Text struct {
	node *html.Node
}

// HTMLNode implements Node.
func (t *Text) HTMLNode() *html.Node { return t.node }

// Data returns the text content.
func (t *Text) Data() string { return t.node.Data }

// SetData replaces the text content.
func (t *Text) SetData(s string) { t.node.Data = s }

// Remove detaches the text node from its parent.
func (t *Text) Remove() {
	if t.node.Parent != nil {
		t.node.Parent.RemoveChild(t.node)
	}
}

// walk visits n and its descendants in document order until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}
