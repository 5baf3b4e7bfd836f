// Package el is the declarative component runtime for chatui.
//
// Every tag name has a factory of shape factory(config, children...) that
// builds one node and returns a Mount. Invoking the Mount with a parent
// attaches the node, mounts the declared children under it, fires the
// OnAttach hook and returns the node's *ElementRef:
//
//	rt := el.New(doc)
//	div, span := rt.Elements["div"], rt.Elements["span"]
//
//	ref := div(el.Config{el.ID("app"), el.OnUpdate(render)},
//	    span(el.Config{el.ClassName("light-mode")}, el.Text("Light")),
//	    el.Text("hello"),
//	)(nil) // nil mounts under the document body
//
//	ref.Update(state)          // pushes data down the tree
//	ref.SetChildren(...)       // replaces the tracked children
//	ref.Remove()               // unbinds listeners and detaches the subtree
//
// Configuration is a closed set of entries resolved once at construction:
// Style, event bindings (On, OnClick, ...), typed properties (Prop,
// ClassName, Value, ...), plain attributes (Attr, ID, ...), lifecycle hooks
// (OnAttach, OnUpdate) and Ref. FromMap converts an untyped map using the
// key-shape rules of the original script runtime.
//
// The runtime is synchronous and, like its Document, not safe for
// concurrent use.
package el
