package el

import (
	"github.com/vango-dev/chatui/pkg/dom"
)

// Config is the ordered list of configuration entries for one node.
type Config []Entry

// Entry is one resolved configuration entry. The set of entry kinds is
// closed: StyleMap, EventBinding, Property, Attribute, LifecycleHook and
// RefBinding.
type Entry interface {
	apply(n *node)
}

// StyleMap sets inline style properties one by one.
type StyleMap map[string]string

func (s StyleMap) apply(n *node) {
	st := n.el.Style()
	for _, name := range sortedKeys(s) {
		st.Set(name, s[name])
	}
}

// EventBinding registers a listener when the node is constructed; the
// listener is unbound by Remove.
type EventBinding struct {
	Event   string
	Handler dom.Listener
}

func (b EventBinding) apply(n *node) {
	if b.Handler == nil {
		return
	}
	n.unbind = append(n.unbind, n.el.AddEventListener(b.Event, b.Handler))
}

// Property assigns a typed property (textContent, value, className, ...).
type Property struct {
	Name  string
	Value any
}

func (p Property) apply(n *node) {
	// Property assignment only fails for unparsable innerHTML, which the
	// script runtime would also have swallowed.
	_ = n.el.SetProperty(p.Name, p.Value)
}

// Attribute sets a plain string attribute.
type Attribute struct {
	Name  string
	Value string
}

func (a Attribute) apply(n *node) {
	n.el.SetAttribute(a.Name, a.Value)
}

// Style sets inline style properties.
func Style(styles map[string]string) StyleMap { return StyleMap(styles) }

// Prop sets a typed property.
func Prop(name string, value any) Property { return Property{Name: name, Value: value} }

// Attr sets a plain attribute.
func Attr(name, value string) Attribute { return Attribute{Name: name, Value: value} }

// Identity and text

// ID sets the id attribute.
func ID(id string) Attribute { return Attr("id", id) }

// ClassName sets the className property.
func ClassName(class string) Property { return Prop("className", class) }

// TextContent replaces the node's content with text.
func TextContent(text string) Property { return Prop("textContent", text) }

// InnerHTML replaces the node's content with parsed HTML.
// Use with caution: content is not escaped.
func InnerHTML(html string) Property { return Prop("innerHTML", html) }

// Form properties

// Value sets the value property.
func Value(value string) Property { return Prop("value", value) }

// Checked sets the checked flag.
func Checked(checked bool) Property { return Prop("checked", checked) }

// Selected sets the selected flag.
func Selected(selected bool) Property { return Prop("selected", selected) }

// Disabled sets the disabled flag.
func Disabled(disabled bool) Property { return Prop("disabled", disabled) }

// Placeholder sets the placeholder attribute.
func Placeholder(text string) Attribute { return Attr("placeholder", text) }

// Rows sets the rows attribute of a textarea.
func Rows(n int) Attribute { return Attr("rows", itoa(n)) }

// Name sets the name attribute.
func Name(name string) Attribute { return Attr("name", name) }

// Links and media

// Href sets the href attribute.
func Href(url string) Attribute { return Attr("href", url) }

// Src sets the src property.
func Src(url string) Property { return Prop("src", url) }

// Target sets the target property.
func Target(target string) Property { return Prop("target", target) }

// Rel sets the rel attribute.
func Rel(rel string) Attribute { return Attr("rel", rel) }

// TabIndex sets the tabindex property.
func TabIndex(index int) Property { return Prop("tabindex", index) }

// Data creates a data-* attribute.
func Data(key, value string) Attribute { return Attr("data-"+key, value) }

// AriaLabel sets the aria-label attribute.
func AriaLabel(label string) Attribute { return Attr("aria-label", label) }

// SVG

// ViewBox sets the viewBox attribute.
func ViewBox(box string) Attribute { return Attr("viewBox", box) }

// D sets the path data attribute.
func D(path string) Attribute { return Attr("d", path) }

// Fill sets the fill attribute.
func Fill(color string) Attribute { return Attr("fill", color) }
