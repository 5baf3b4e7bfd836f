package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// compound is one simple-selector sequence such as div.message.bot:last-child.
type compound struct {
	tag        string
	id         string
	classes    []string
	lastChild  bool
	firstChild bool
}

// complexSelector is a chain of compounds joined by descendant combinators,
// stored left to right.
type complexSelector []compound

// parseSelector parses a comma-separated selector list. Supported syntax is
// type, #id, .class, :first-child and :last-child, combined with the
// descendant combinator (whitespace).
func parseSelector(s string) ([]complexSelector, error) {
	var list []complexSelector
	for _, part := range strings.Split(s, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			return nil, fmt.Errorf("dom: empty selector in %q", s)
		}
		var cs complexSelector
		for _, f := range fields {
			c, err := parseCompound(f)
			if err != nil {
				return nil, err
			}
			cs = append(cs, c)
		}
		list = append(list, cs)
	}
	return list, nil
}

func parseCompound(s string) (compound, error) {
	var c compound
	i := 0
	readName := func() string {
		start := i
		for i < len(s) && s[i] != '.' && s[i] != '#' && s[i] != ':' {
			i++
		}
		return s[start:i]
	}

	if s[0] != '.' && s[0] != '#' && s[0] != ':' {
		c.tag = strings.ToLower(readName())
		if c.tag == "*" {
			c.tag = ""
		}
	}
	for i < len(s) {
		marker := s[i]
		i++
		name := readName()
		if name == "" {
			return c, fmt.Errorf("dom: invalid selector %q", s)
		}
		switch marker {
		case '#':
			c.id = name
		case '.':
			c.classes = append(c.classes, name)
		case ':':
			switch name {
			case "last-child":
				c.lastChild = true
			case "first-child":
				c.firstChild = true
			default:
				return c, fmt.Errorf("dom: unsupported pseudo-class %q", name)
			}
		}
	}
	return c, nil
}

func (c compound) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && !strings.EqualFold(n.Data, c.tag) {
		return false
	}
	if c.id != "" && attr(n, "id") != c.id {
		return false
	}
	if len(c.classes) > 0 {
		have := strings.Fields(attr(n, "class"))
		for _, want := range c.classes {
			if !contains(have, want) {
				return false
			}
		}
	}
	if c.lastChild {
		for s := n.NextSibling; s != nil; s = s.NextSibling {
			if s.Type == html.ElementNode {
				return false
			}
		}
	}
	if c.firstChild {
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode {
				return false
			}
		}
	}
	return true
}

// matches checks the chain right to left against n and its ancestors.
func (cs complexSelector) matches(n *html.Node) bool {
	last := len(cs) - 1
	if !cs[last].matches(n) {
		return false
	}
	cur := n
	for i := last - 1; i >= 0; i-- {
		found := false
		for p := cur.Parent; p != nil; p = p.Parent {
			if cs[i].matches(p) {
				cur = p
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Matches reports whether e matches selector.
func (e *Element) Matches(selector string) (bool, error) {
	list, err := parseSelector(selector)
	if err != nil {
		return false, err
	}
	for _, cs := range list {
		if cs.matches(e.node) {
			return true, nil
		}
	}
	return false, nil
}

// QuerySelector returns the first descendant of e matching selector, or nil.
func (e *Element) QuerySelector(selector string) (*Element, error) {
	return e.querySelector(selector, false)
}

// QuerySelectorAll returns every descendant of e matching selector in
// document order.
func (e *Element) QuerySelectorAll(selector string) ([]*Element, error) {
	return e.querySelectorAll(selector, false)
}

func (e *Element) querySelector(selector string, includeSelf bool) (*Element, error) {
	list, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}
	var found *Element
	walk(e.node, func(n *html.Node) bool {
		if n == e.node && !includeSelf {
			return true
		}
		for _, cs := range list {
			if cs.matches(n) {
				found = e.doc.wrap(n)
				return false
			}
		}
		return true
	})
	return found, nil
}

func (e *Element) querySelectorAll(selector string, includeSelf bool) ([]*Element, error) {
	list, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}
	var out []*Element
	walk(e.node, func(n *html.Node) bool {
		if n == e.node && !includeSelf {
			return true
		}
		for _, cs := range list {
			if cs.matches(n) {
				out = append(out, e.doc.wrap(n))
				break
			}
		}
		return true
	})
	return out, nil
}
