// Package dom provides the host document that chatui components render into.
//
// A Document is a mutable tree of element and text nodes backed by
// golang.org/x/net/html nodes, so it can be serialized with html.Render and
// can parse HTML fragments for innerHTML. On top of the raw tree it keeps the
// pieces of browser state the component runtime needs: typed properties,
// an ordered style map, class lists, and event listeners with explicit
// unbind handles.
//
// # Usage
//
//	doc := dom.NewDocument()
//	div := doc.CreateElement("div")
//	div.SetProperty("className", "message bot")
//	remove := div.AddEventListener("click", func(ev *dom.Event) { ... })
//	doc.Body().AppendChild(div)
//	defer remove()
//
// A Document is not safe for concurrent use. Confine it to one goroutine,
// the way a browser confines the DOM to the UI thread.
package dom
