package dom

import (
	"strings"
	"unicode"
)

// Style is the inline style declaration of an element. Property names may
// be given in script form (backgroundColor) or CSS form (background-color).
type Style struct {
	el    *Element
	names []string
	vals  map[string]string
}

// Style returns the element's inline style, parsing the style attribute on
// first use.
func (e *Element) Style() *Style {
	if e.style == nil {
		e.style = &Style{el: e, vals: make(map[string]string)}
		if css, ok := e.GetAttribute("style"); ok {
			e.style.parse(css)
		}
	}
	return e.style
}

// Set assigns one property. An empty value removes it.
func (s *Style) Set(property, value string) {
	name := cssName(property)
	if value == "" {
		s.remove(name)
		s.sync()
		return
	}
	if _, ok := s.vals[name]; !ok {
		s.names = append(s.names, name)
	}
	s.vals[name] = value
	s.sync()
}

// Get returns the value of one property.
func (s *Style) Get(property string) string {
	return s.vals[cssName(property)]
}

// Len returns the number of declared properties.
func (s *Style) Len() int { return len(s.names) }

// CSSText serializes the declarations in insertion order.
func (s *Style) CSSText() string {
	parts := make([]string, 0, len(s.names))
	for _, name := range s.names {
		parts = append(parts, name+": "+s.vals[name]+";")
	}
	return strings.Join(parts, " ")
}

// SetCSSText replaces every declaration.
func (s *Style) SetCSSText(css string) {
	s.names = nil
	s.vals = make(map[string]string)
	s.parse(css)
	s.sync()
}

func (s *Style) parse(css string) {
	for _, decl := range strings.Split(css, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		if _, seen := s.vals[name]; !seen {
			s.names = append(s.names, name)
		}
		s.vals[name] = value
	}
}

func (s *Style) remove(name string) {
	if _, ok := s.vals[name]; !ok {
		return
	}
	delete(s.vals, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
}

func (s *Style) sync() {
	if len(s.names) == 0 {
		s.el.RemoveAttribute("style")
		return
	}
	s.el.SetAttribute("style", s.CSSText())
}

// cssName converts backgroundColor to background-color. Names that already
// contain a dash (including custom properties) are returned unchanged.
func cssName(property string) string {
	if strings.Contains(property, "-") {
		return property
	}
	var b strings.Builder
	for _, r := range property {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
