package dom

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// reflected maps property names to the attribute they are stored in.
var reflected = map[string]string{
	"className":   "class",
	"id":          "id",
	"src":         "src",
	"srcdoc":      "srcdoc",
	"srcset":      "srcset",
	"tabindex":    "tabindex",
	"tabIndex":    "tabindex",
	"target":      "target",
	"href":        "href",
	"title":       "title",
	"name":        "name",
	"type":        "type",
	"placeholder": "placeholder",
}

// SetProperty assigns a property the way a script assignment
// (element[name] = value) would.
//
// textContent and innerText replace the children with one text node,
// innerHTML parses a fragment, value follows the element kind, style
// accepts CSS text, reflected properties (className, src, tabindex, ...)
// are stored as attributes, and bool values toggle presence attributes.
// Anything else is kept as an expando property readable with Property.
func (e *Element) SetProperty(name string, value any) error {
	switch name {
	case "textContent", "innerText":
		e.SetTextContent(Stringify(value))
		return nil
	case "innerHTML":
		return e.SetInnerHTML(Stringify(value))
	case "value":
		e.setValue(Stringify(value))
		return nil
	case "style":
		e.Style().SetCSSText(Stringify(value))
		return nil
	}

	if attrName, ok := reflected[name]; ok {
		e.SetAttribute(attrName, Stringify(value))
		return nil
	}

	if b, ok := value.(bool); ok {
		attrName := strings.ToLower(name)
		if b {
			e.SetAttribute(attrName, "")
		} else {
			e.RemoveAttribute(attrName)
		}
		return nil
	}

	if e.props == nil {
		e.props = make(map[string]any)
	}
	e.props[name] = value
	return nil
}

// Property reads back a property set with SetProperty.
func (e *Element) Property(name string) any {
	switch name {
	case "textContent", "innerText":
		return e.TextContent()
	case "innerHTML":
		return e.InnerHTML()
	case "value":
		return e.Value()
	case "style":
		return e.Style().CSSText()
	}
	if attrName, ok := reflected[name]; ok {
		v, _ := e.GetAttribute(attrName)
		return v
	}
	if v, ok := e.props[name]; ok {
		return v
	}
	switch name {
	case "checked", "selected", "disabled", "hidden", "readonly", "required", "multiple", "autofocus":
		return e.HasAttribute(name)
	}
	return nil
}

// Value returns the current form value of input, textarea, select and
// option elements, or the value attribute otherwise.
func (e *Element) Value() string {
	if v, ok := e.props["value"].(string); ok {
		return v
	}
	switch e.TagName() {
	case "textarea":
		return e.TextContent()
	case "select":
		var first *Element
		for _, opt := range e.options() {
			if first == nil {
				first = opt
			}
			if opt.HasAttribute("selected") {
				return opt.Value()
			}
		}
		if first != nil {
			return first.Value()
		}
		return ""
	case "option":
		if v, ok := e.GetAttribute("value"); ok {
			return v
		}
		return e.TextContent()
	}
	v, _ := e.GetAttribute("value")
	return v
}

func (e *Element) setValue(v string) {
	switch e.TagName() {
	case "textarea":
		if e.props == nil {
			e.props = make(map[string]any)
		}
		e.props["value"] = v
		e.SetTextContent(v)
	case "select":
		for _, opt := range e.options() {
			if opt.Value() == v {
				opt.SetAttribute("selected", "")
			} else {
				opt.RemoveAttribute("selected")
			}
		}
	default:
		e.SetAttribute("value", v)
	}
}

func (e *Element) options() []*Element {
	var opts []*Element
	walk(e.node, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "option" {
			opts = append(opts, e.doc.wrap(n))
		}
		return true
	})
	return opts
}

// ClassList returns a view over the class attribute.
func (e *Element) ClassList() ClassList {
	return ClassList{el: e}
}

// ClassList manipulates the space-separated class attribute of an element.
type ClassList struct {
	el *Element
}

func (c ClassList) tokens() []string {
	v, _ := c.el.GetAttribute("class")
	return strings.Fields(v)
}

func (c ClassList) set(tokens []string) {
	c.el.SetAttribute("class", strings.Join(tokens, " "))
}

// Contains reports whether the class is present.
func (c ClassList) Contains(class string) bool {
	for _, t := range c.tokens() {
		if t == class {
			return true
		}
	}
	return false
}

// Add adds classes that are not already present.
func (c ClassList) Add(classes ...string) {
	tokens := c.tokens()
	for _, class := range classes {
		if !contains(tokens, class) {
			tokens = append(tokens, class)
		}
	}
	c.set(tokens)
}

// Remove removes classes.
func (c ClassList) Remove(classes ...string) {
	tokens := c.tokens()
	out := tokens[:0]
	for _, t := range tokens {
		if !contains(classes, t) {
			out = append(out, t)
		}
	}
	c.set(out)
}

// Toggle flips the class and reports whether it is now present.
func (c ClassList) Toggle(class string) bool {
	if c.Contains(class) {
		c.Remove(class)
		return false
	}
	c.Add(class)
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Stringify converts a property or attribute value to its string form.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
