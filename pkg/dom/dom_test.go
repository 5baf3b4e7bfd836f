package dom

import (
	"errors"
	"strings"
	"testing"
)

func TestNewDocumentRender(t *testing.T) {
	doc := NewDocument()
	got := doc.String()
	want := "<!DOCTYPE html><html><head></head><body></body></html>"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if !doc.Body().IsConnected() {
		t.Error("body should be connected")
	}
}

func TestCreateElementNS(t *testing.T) {
	doc := NewDocument()

	div := doc.CreateElement("div")
	if div.NamespaceURI() != NamespaceHTML {
		t.Errorf("div namespace = %q", div.NamespaceURI())
	}
	svg := doc.CreateElementNS(NamespaceSVG, "svg")
	if svg.NamespaceURI() != NamespaceSVG {
		t.Errorf("svg namespace = %q", svg.NamespaceURI())
	}
	if div.IsConnected() {
		t.Error("new element should not be connected")
	}
}

func TestAppendChild(t *testing.T) {
	doc := NewDocument()
	a := doc.CreateElement("div")
	b := doc.CreateElement("div")
	child := doc.CreateElement("span")

	if err := a.AppendChild(child); err != nil {
		t.Fatal(err)
	}
	if child.Parent() != a {
		t.Fatal("child parent should be a")
	}

	// Appending to another parent moves the node.
	if err := b.AppendChild(child); err != nil {
		t.Fatal(err)
	}
	if a.ChildNodeCount() != 0 || b.ChildNodeCount() != 1 {
		t.Errorf("counts a=%d b=%d, want 0 and 1", a.ChildNodeCount(), b.ChildNodeCount())
	}

	err := child.AppendChild(b)
	var domErr *DOMError
	if !errors.As(err, &domErr) || domErr.Name != "HierarchyRequestError" {
		t.Errorf("appending an ancestor: err = %v, want HierarchyRequestError", err)
	}
	if err := a.AppendChild(a); err == nil {
		t.Error("appending self should fail")
	}
}

func TestRemove(t *testing.T) {
	doc := NewDocument()
	div := doc.CreateElement("div")
	_ = doc.Body().AppendChild(div)

	div.Remove()
	if div.Parent() != nil || doc.Body().ChildNodeCount() != 0 {
		t.Fatal("div should be detached")
	}
	div.Remove() // detached: no-op

	if err := doc.Body().RemoveChild(div); err == nil {
		t.Error("RemoveChild of a non-child should fail")
	}
}

func TestDescendantCount(t *testing.T) {
	doc := NewDocument()
	root := doc.CreateElement("div")
	inner := doc.CreateElement("p")
	_ = inner.AppendChild(doc.CreateTextNode("hello"))
	_ = root.AppendChild(inner)
	_ = root.AppendChild(doc.CreateTextNode("tail"))

	if got := root.DescendantCount(); got != 3 {
		t.Errorf("DescendantCount() = %d, want 3", got)
	}
	if got := root.ChildNodeCount(); got != 2 {
		t.Errorf("ChildNodeCount() = %d, want 2", got)
	}
	if got := len(root.ChildNodes()); got != 2 {
		t.Errorf("len(ChildNodes()) = %d, want 2", got)
	}
	if got := root.TextContent(); got != "hellotail" {
		t.Errorf("TextContent() = %q", got)
	}
}

func TestSetProperty(t *testing.T) {
	doc := NewDocument()
	el := doc.CreateElement("div")

	tests := []struct {
		name  string
		value any
		check func(t *testing.T)
	}{
		{"className", "message bot", func(t *testing.T) {
			if v, _ := el.GetAttribute("class"); v != "message bot" {
				t.Errorf("class = %q", v)
			}
		}},
		{"textContent", "hi <b>", func(t *testing.T) {
			if el.InnerHTML() != "hi &lt;b&gt;" {
				t.Errorf("InnerHTML() = %q", el.InnerHTML())
			}
		}},
		{"innerHTML", "<pre><code>x</code></pre>", func(t *testing.T) {
			code, err := el.QuerySelector("pre code")
			if err != nil || code == nil {
				t.Fatalf("pre code not found: %v", err)
			}
			if code.TextContent() != "x" {
				t.Errorf("code text = %q", code.TextContent())
			}
		}},
		{"hidden", true, func(t *testing.T) {
			if !el.HasAttribute("hidden") || el.Property("hidden") != true {
				t.Error("hidden should be present")
			}
		}},
		{"tabindex", 3, func(t *testing.T) {
			if v, _ := el.GetAttribute("tabindex"); v != "3" {
				t.Errorf("tabindex = %q", v)
			}
		}},
		{"custom", 42, func(t *testing.T) {
			if el.Property("custom") != 42 {
				t.Errorf("custom = %v", el.Property("custom"))
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := el.SetProperty(tt.name, tt.value); err != nil {
				t.Fatal(err)
			}
			tt.check(t)
		})
	}

	_ = el.SetProperty("hidden", false)
	if el.HasAttribute("hidden") {
		t.Error("hidden=false should remove the attribute")
	}
}

func TestValue(t *testing.T) {
	doc := NewDocument()

	input := doc.CreateElement("input")
	_ = input.SetProperty("value", "abc")
	if input.Value() != "abc" {
		t.Errorf("input value = %q", input.Value())
	}

	area := doc.CreateElement("textarea")
	_ = area.SetProperty("value", "line")
	if area.Value() != "line" || area.TextContent() != "line" {
		t.Errorf("textarea value = %q text = %q", area.Value(), area.TextContent())
	}

	sel := doc.CreateElement("select")
	for _, v := range []string{"llama3", "mistral"} {
		opt := doc.CreateElement("option")
		_ = opt.SetProperty("value", v)
		_ = opt.SetProperty("textContent", v)
		_ = sel.AppendChild(opt)
	}
	if sel.Value() != "llama3" {
		t.Errorf("default select value = %q", sel.Value())
	}
	_ = sel.SetProperty("value", "mistral")
	if sel.Value() != "mistral" {
		t.Errorf("select value = %q", sel.Value())
	}
}

func TestStyle(t *testing.T) {
	doc := NewDocument()
	el := doc.CreateElement("div")

	el.Style().Set("backgroundColor", "red")
	el.Style().Set("width", "10px")
	if v, _ := el.GetAttribute("style"); v != "background-color: red; width: 10px;" {
		t.Errorf("style attr = %q", v)
	}
	if el.Style().Get("background-color") != "red" {
		t.Error("Get should accept css names")
	}

	el.Style().Set("backgroundColor", "")
	if el.Style().Len() != 1 {
		t.Errorf("Len() = %d, want 1", el.Style().Len())
	}
	el.Style().Set("width", "")
	if el.HasAttribute("style") {
		t.Error("empty style should remove the attribute")
	}

	_ = el.SetProperty("style", "color: blue; margin: 0")
	if el.Style().Get("color") != "blue" || el.Style().Get("margin") != "0" {
		t.Errorf("css text not parsed: %q", el.Style().CSSText())
	}
}

func TestClassList(t *testing.T) {
	doc := NewDocument()
	body := doc.Body()

	body.ClassList().Add("dark-mode")
	if !body.ClassList().Contains("dark-mode") {
		t.Fatal("dark-mode should be present")
	}
	if body.ClassList().Toggle("light-mode") != true {
		t.Error("toggle should add light-mode")
	}
	if body.ClassList().Toggle("dark-mode") != false {
		t.Error("toggle should remove dark-mode")
	}
	if v, _ := body.GetAttribute("class"); v != "light-mode" {
		t.Errorf("class = %q", v)
	}
}

func TestEvents(t *testing.T) {
	doc := NewDocument()
	outer := doc.CreateElement("div")
	inner := doc.CreateElement("button")
	_ = outer.AppendChild(inner)
	_ = doc.Body().AppendChild(outer)

	var order []string
	removeInner := inner.AddEventListener("click", func(ev *Event) {
		order = append(order, "inner")
		if ev.Target != inner || ev.CurrentTarget != inner {
			t.Error("unexpected targets on inner listener")
		}
	})
	outer.AddEventListener("click", func(ev *Event) {
		order = append(order, "outer")
		ev.PreventDefault()
	})

	if inner.Click() {
		t.Error("Click should report prevented default")
	}
	if strings.Join(order, ",") != "inner,outer" {
		t.Errorf("order = %v", order)
	}

	removeInner()
	if inner.ListenerCount("click") != 0 {
		t.Error("listener should be removed")
	}

	order = nil
	inner.AddEventListener("click", func(ev *Event) {
		order = append(order, "stop")
		ev.StopPropagation()
	})
	inner.Click()
	if strings.Join(order, ",") != "stop" {
		t.Errorf("propagation not stopped: %v", order)
	}
}

func TestQuerySelector(t *testing.T) {
	doc := NewDocument()
	box := doc.CreateElement("div")
	box.SetAttribute("id", "chat-box")
	_ = doc.Body().AppendChild(box)

	for _, class := range []string{"message system", "message bot", "message you", "message bot"} {
		m := doc.CreateElement("div")
		_ = m.SetProperty("className", class)
		_ = box.AppendChild(m)
	}

	got, err := doc.QuerySelector("#chat-box")
	if err != nil || got != box {
		t.Fatalf("QuerySelector(#chat-box) = %v, %v", got, err)
	}
	if doc.GetElementByID("chat-box") != box {
		t.Error("GetElementByID mismatch")
	}

	bots, _ := box.QuerySelectorAll(".message.bot")
	if len(bots) != 2 {
		t.Errorf("found %d bot messages, want 2", len(bots))
	}

	last, _ := box.QuerySelector(".message.bot:last-child")
	if last == nil || last != box.LastElementChild() {
		t.Error(".message.bot:last-child should match the last child")
	}

	first, _ := doc.QuerySelector("body div:first-child")
	if first != box {
		t.Error("descendant first-child should match chat box")
	}

	all, _ := doc.QuerySelectorAll(".system, .you")
	if len(all) != 2 {
		t.Errorf("selector list matched %d, want 2", len(all))
	}

	if _, err := doc.QuerySelector("div:hover"); err == nil {
		t.Error("unsupported pseudo-class should fail")
	}
	if ok, _ := last.Matches("div.bot"); !ok {
		t.Error("Matches(div.bot) should be true")
	}
}

func TestReplaceChildrenKeepsReattachedWrapper(t *testing.T) {
	doc := NewDocument()
	parent := doc.CreateElement("div")
	child := doc.CreateElement("span")
	_ = parent.AppendChild(child)

	clicks := 0
	child.AddEventListener("click", func(*Event) { clicks++ })
	parent.ReplaceChildren()
	_ = parent.AppendChild(child)

	if parent.FirstElementChild() != child {
		t.Fatal("wrapper identity lost after reattach")
	}
	child.Click()
	if clicks != 1 {
		t.Errorf("clicks = %d, want 1", clicks)
	}
}
