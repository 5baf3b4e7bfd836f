package el

import "github.com/vango-dev/chatui/pkg/dom"

// Factory constructs one node of a fixed tag. It is the only component
// primitive: composite components are plain functions returning a Mount.
type Factory func(cfg Config, children ...Child) Mount

// Mount attaches a constructed node under parent (the document body when
// parent is nil) and returns its handle. A Mount is single-shot: invoking
// it twice attaches the same node twice, which is unsupported.
type Mount func(parent *dom.Element) *ElementRef

// Child is a declared child: literal Text or a nested Mount.
type Child interface {
	isChild()
}

// Text is a literal text child. It becomes a text node with no handle.
type Text string

func (Text) isChild()  {}
func (Mount) isChild() {}

// ElementRef is the lifecycle handle of one constructed node. Copies of an
// ElementRef (such as the one written by Ref) share the same node state.
type ElementRef struct {
	n *node
}

// Current returns the rendered element. It is nil before the node is
// mounted and after Remove.
func (r *ElementRef) Current() *dom.Element {
	if r == nil || r.n == nil || !r.n.attached {
		return nil
	}
	return r.n.el
}

// Update pushes data into the node. When an OnUpdate hook is configured it
// runs first, and a literal false return stops propagation; any other
// return value (nil, true, 0, "") lets every child handle receive data in
// declaration order.
func (r *ElementRef) Update(data any) {
	if r == nil || r.n == nil {
		return
	}
	r.n.update(data)
}

// SetChildren removes every tracked child handle, then processes children
// exactly like the initial children, appending under the same node.
func (r *ElementRef) SetChildren(children ...Child) {
	if r == nil || r.n == nil {
		return
	}
	r.n.setChildren(children)
}

// Remove unbinds every event listener, detaches the node and removes every
// child handle depth-first. Calling Remove twice is not supported.
func (r *ElementRef) Remove() {
	if r == nil || r.n == nil {
		return
	}
	r.n.remove()
}

// Children returns the currently tracked child handles in order.
func (r *ElementRef) Children() []*ElementRef {
	if r == nil || r.n == nil {
		return nil
	}
	return append([]*ElementRef(nil), r.n.children...)
}
