package chat

import (
	"testing"

	"github.com/vango-dev/chatui/pkg/dom"
)

func TestPageLayout(t *testing.T) {
	doc := dom.NewDocument()
	p := NewPage(doc, nil, PageHandlers{})

	for _, sel := range []string{
		"#app #toggle-mode .light-mode",
		"#app #toggle-mode .dark-mode",
		"#app .content .title-row h1",
		"#app .title-row #model-select",
		"#app .content #chat-box",
		"#input-container #user-input",
		"#input-container #send-button",
	} {
		if e, err := doc.QuerySelector(sel); err != nil || e == nil {
			t.Errorf("QuerySelector(%q) = %v, %v", sel, e, err)
		}
	}

	input := p.Input()
	if got, _ := input.GetAttribute("placeholder"); got != InputPlaceholder {
		t.Errorf("placeholder = %q", got)
	}
	if got, _ := input.GetAttribute("rows"); got != "3" {
		t.Errorf("rows = %q, want 3", got)
	}
	if got := doc.GetElementByID("send-button").TextContent(); got != "Send" {
		t.Errorf("send button text = %q", got)
	}
}

func TestPageMessages(t *testing.T) {
	p := NewPage(dom.NewDocument(), nil, PageHandlers{})

	p.AppendMessage(SenderYou, "a <b>\nline")
	ref := p.AppendMessage(SenderBot, PlaceholderMessage)

	if ref.Current() == nil {
		t.Fatal("placeholder not mounted")
	}
	msgs, _ := p.ChatBox().QuerySelectorAll(".message")
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if got := msgs[0].InnerHTML(); got != "<p>a &lt;b&gt;<br/>line</p>" && got != "<p>a &lt;b&gt;<br>line</p>" {
		t.Errorf("you message html = %q", got)
	}

	p.AppendPartial("Hel")
	p.AppendPartial("lo")
	if got := ref.Current().TextContent(); got != "Hello" {
		t.Errorf("partial text = %q, want Hello", got)
	}
	if got := p.Finalize(); got != "Hello" {
		t.Errorf("Finalize() = %q", got)
	}
	if p.Pending() != "" {
		t.Error("Finalize did not reset the accumulator")
	}

	// A reply after a non-bot message starts a new element.
	p.AppendMessage(SenderSystem, "note")
	p.AppendPartial("new")
	msgs, _ = p.ChatBox().QuerySelectorAll(".message.bot")
	if len(msgs) != 2 || msgs[1].TextContent() != "new" {
		t.Errorf("bot messages = %d", len(msgs))
	}
}

func TestPageModels(t *testing.T) {
	p := NewPage(dom.NewDocument(), nil, PageHandlers{})
	if got := p.SelectedModel(); got != DefaultModel {
		t.Errorf("SelectedModel() with no options = %q", got)
	}

	p.SetModels([]Model{{Model: "llama3.2"}, {Model: "mistral"}})
	opts, _ := p.Runtime().Document().QuerySelectorAll("#model-select option")
	if len(opts) != 2 {
		t.Fatalf("options = %d, want 2", len(opts))
	}
	p.SelectModel("mistral")
	if got := p.SelectedModel(); got != "mistral" {
		t.Errorf("SelectedModel() = %q, want mistral", got)
	}

	p.SetModels([]Model{{Model: "phi3"}})
	opts, _ = p.Runtime().Document().QuerySelectorAll("#model-select option")
	if len(opts) != 1 || p.SelectedModel() != "phi3" {
		t.Errorf("after reset: %d options, selected %q", len(opts), p.SelectedModel())
	}
}

func TestPageTheme(t *testing.T) {
	doc := dom.NewDocument()
	p := NewPage(doc, nil, PageHandlers{})

	p.ApplyTheme(ThemeDark)
	if p.ToggleTheme() != ThemeLight {
		t.Fatal("toggle from dark did not give light")
	}
	body := doc.Body().ClassList()
	if !body.Contains("light-mode") || body.Contains("dark-mode") {
		cls, _ := doc.Body().GetAttribute("class")
		t.Errorf("body class = %q", cls)
	}
	if p.ToggleTheme() != ThemeDark {
		t.Error("toggle from light did not give dark")
	}
}
