package el

import (
	"log/slog"

	"github.com/vango-dev/chatui/pkg/dom"
)

// Runtime binds the factory tables to one document.
type Runtime struct {
	doc *dom.Document

	// Elements maps every supported HTML tag name to its factory.
	Elements map[string]Factory

	// SVGElements maps the supported SVG tag names to their factories.
	SVGElements map[string]Factory
}

// New builds the factory tables for doc.
func New(doc *dom.Document) *Runtime {
	rt := &Runtime{
		doc:         doc,
		Elements:    make(map[string]Factory, len(htmlTags)),
		SVGElements: make(map[string]Factory, len(svgTags)),
	}
	for _, tag := range htmlTags {
		rt.Elements[tag] = rt.Create(tag)
	}
	for _, tag := range svgTags {
		rt.SVGElements[tag] = rt.CreateSVG(tag)
	}
	return rt
}

// Document returns the document the runtime renders into.
func (rt *Runtime) Document() *dom.Document { return rt.doc }

// Create returns the factory for an HTML tag.
func (rt *Runtime) Create(tag string) Factory {
	return rt.factory(dom.NamespaceHTML, tag)
}

// CreateSVG returns the factory for an SVG tag.
func (rt *Runtime) CreateSVG(tag string) Factory {
	return rt.factory(dom.NamespaceSVG, tag)
}

// QS returns the first element matching selector, or nil.
func (rt *Runtime) QS(selector string) *dom.Element {
	e, err := rt.doc.QuerySelector(selector)
	if err != nil {
		slog.Debug("el: bad selector", "selector", selector, "error", err)
		return nil
	}
	return e
}

// QSAll returns every element matching selector in document order.
func (rt *Runtime) QSAll(selector string) []*dom.Element {
	all, err := rt.doc.QuerySelectorAll(selector)
	if err != nil {
		slog.Debug("el: bad selector", "selector", selector, "error", err)
		return nil
	}
	return all
}

func (rt *Runtime) factory(namespace, tag string) Factory {
	return func(cfg Config, children ...Child) Mount {
		n := &node{
			doc:      rt.doc,
			el:       rt.doc.CreateElementNS(namespace, tag),
			declared: children,
		}
		n.ref = &ElementRef{n: n}
		for _, entry := range cfg {
			if entry != nil {
				entry.apply(n)
			}
		}
		return n.mount
	}
}

// node is the shared state behind every copy of an ElementRef.
type node struct {
	doc      *dom.Document
	el       *dom.Element
	ref      *ElementRef
	declared []Child
	children []*ElementRef
	unbind   []func()
	attached bool

	onAttach AttachFunc
	onUpdate UpdateFunc
}

func (n *node) mount(parent *dom.Element) *ElementRef {
	if parent == nil {
		parent = n.doc.Body()
	}
	if err := parent.AppendChild(n.el); err != nil {
		slog.Warn("el: mount failed", "tag", n.el.TagName(), "error", err)
		return n.ref
	}
	n.attached = true
	n.appendChildren(n.declared)
	if n.onAttach != nil {
		n.onAttach(n.ref)
	}
	return n.ref
}

func (n *node) appendChildren(children []Child) {
	for _, child := range children {
		switch c := child.(type) {
		case Text:
			_ = n.el.AppendChild(n.doc.CreateTextNode(string(c)))
		case Mount:
			if c == nil {
				continue
			}
			if ref := c(n.el); ref != nil {
				n.children = append(n.children, ref)
			}
		}
	}
}

func (n *node) update(data any) {
	if n.onUpdate != nil {
		if proceed, ok := n.onUpdate(data, n.ref).(bool); ok && !proceed {
			return
		}
	}
	for _, child := range n.children {
		child.Update(data)
	}
}

func (n *node) setChildren(children []Child) {
	for _, child := range n.children {
		child.Remove()
	}
	n.children = nil
	n.appendChildren(children)
}

func (n *node) remove() {
	for _, unbind := range n.unbind {
		unbind()
	}
	n.unbind = nil
	n.el.Remove()
	n.attached = false
	for _, child := range n.children {
		child.Remove()
	}
}
