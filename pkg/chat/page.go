package chat

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/vango-dev/chatui/el"
	"github.com/vango-dev/chatui/pkg/dom"
)

// PlaceholderMessage is shown as the bot reply until the first chunk arrives.
const PlaceholderMessage = "Processing your request..."

// Page title and input hint.
const (
	Heading          = "Ollama UI"
	InputPlaceholder = "Type your message here..."
)

// Renderer turns message text into HTML for a message element.
type Renderer interface {
	Render(text string) string
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(text string) string

// Render calls f.
func (f RendererFunc) Render(text string) string { return f(text) }

// PlainText renders text as escaped paragraphs, one per blank-line
// separated block, with single newlines kept as line breaks.
var PlainText Renderer = RendererFunc(func(text string) string {
	var b strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(para), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
})

// PageHandlers receives the page's user events.
type PageHandlers struct {
	Send     func()
	KeyDown  dom.Listener
	Toggle   func()
	SetModel func(model string)
}

// Page is the chat layout rendered into a document body.
type Page struct {
	rt       *el.Runtime
	renderer Renderer

	app     el.ElementRef
	chatBox el.ElementRef
	input   el.ElementRef
	models  el.ElementRef

	accumulated string
}

// NewPage mounts the chat layout into the body of doc.
func NewPage(doc *dom.Document, renderer Renderer, h PageHandlers) *Page {
	if renderer == nil {
		renderer = PlainText
	}
	p := &Page{rt: el.New(doc), renderer: renderer}
	p.layout(h)(doc.Body())
	return p
}

func (p *Page) layout(h PageHandlers) el.Mount {
	e := p.rt.Elements
	onClick := func(fn func()) el.Entry {
		return el.OnClick(func(*dom.Event) {
			if fn != nil {
				fn()
			}
		})
	}
	onModel := el.OnChange(func(ev *dom.Event) {
		if h.SetModel != nil {
			h.SetModel(ev.Target.Value())
		}
	})
	var onKey el.Entry
	if h.KeyDown != nil {
		onKey = el.OnKeyDown(h.KeyDown)
	}

	return e["div"](el.Config{el.ID("app"), el.Ref(&p.app)},
		e["button"](el.Config{el.ID("toggle-mode"), onClick(h.Toggle)},
			e["span"](el.Config{el.ClassName("light-mode")}, el.Text("Light")),
			e["span"](el.Config{el.ClassName("dark-mode")}, el.Text("Dark")),
		),
		e["div"](el.Config{el.ClassName("content")},
			e["div"](el.Config{el.ClassName("title-row")},
				e["h1"](el.Config{el.ClassName("flex f-2")}, el.Text(Heading)),
				e["select"](el.Config{el.ClassName("flex f-1"), el.ID("model-select"), el.Ref(&p.models), onModel}),
			),
			e["div"](el.Config{el.ID("chat-box"), el.Ref(&p.chatBox)}),
			e["div"](el.Config{el.ID("input-container")},
				e["textarea"](el.Config{
					el.ID("user-input"),
					el.Placeholder(InputPlaceholder),
					el.Rows(3),
					el.Ref(&p.input),
					onKey,
				}),
				e["button"](el.Config{el.ID("send-button"), onClick(h.Send)}, el.Text("Send")),
			),
		),
	)
}

// Runtime returns the component runtime the page renders with.
func (p *Page) Runtime() *el.Runtime { return p.rt }

// ChatBox returns the message container.
func (p *Page) ChatBox() *dom.Element { return p.chatBox.Current() }

// Input returns the prompt textarea.
func (p *Page) Input() *dom.Element { return p.input.Current() }

// InputValue returns the current prompt text.
func (p *Page) InputValue() string { return p.input.Current().Value() }

// SetInputValue replaces the prompt text.
func (p *Page) SetInputValue(v string) {
	_ = p.input.Current().SetProperty("value", v)
}

// AppendMessage adds a finished message from sender to the chat box.
func (p *Page) AppendMessage(sender, text string) *el.ElementRef {
	return p.rt.Elements["div"](el.Config{
		el.ClassName(messageClass(sender)),
		el.OnAttach(func(ref *el.ElementRef) {
			_ = ref.Current().SetInnerHTML(p.renderer.Render(text))
		}),
	})(p.chatBox.Current())
}

// AppendPartial adds a streamed chunk to the bot reply being received. The
// chunk text replaces the placeholder in the last bot message; a new bot
// message starts when the last message is not from the bot.
func (p *Page) AppendPartial(chunk string) {
	last := p.lastBotMessage()
	if p.accumulated == PlaceholderMessage {
		p.accumulated = ""
	}
	if last == nil {
		last = p.rt.Elements["div"](el.Config{el.ClassName(messageClass(SenderBot))})(p.chatBox.Current()).Current()
	}
	p.accumulated += chunk
	_ = last.SetInnerHTML(p.renderer.Render(p.accumulated))
}

// Finalize renders the complete reply once more and returns it, resetting
// the accumulator for the next reply.
func (p *Page) Finalize() string {
	text := p.accumulated
	if last := p.lastBotMessage(); last != nil {
		_ = last.SetInnerHTML(p.renderer.Render(text))
	}
	p.accumulated = ""
	return text
}

// Pending returns the reply text received so far.
func (p *Page) Pending() string { return p.accumulated }

func (p *Page) lastBotMessage() *dom.Element {
	last, err := p.chatBox.Current().QuerySelector(".message.bot:last-child")
	if err != nil {
		return nil
	}
	return last
}

// SetModels replaces the model selector options.
func (p *Page) SetModels(models []Model) {
	children := make([]el.Child, 0, len(models))
	for _, m := range models {
		children = append(children, p.rt.Elements["option"](el.Config{
			el.Value(m.Model),
			el.TextContent(m.Model),
		}))
	}
	p.models.SetChildren(children...)
}

// SelectedModel returns the chosen model, or DefaultModel when the
// selector is empty.
func (p *Page) SelectedModel() string {
	if v := p.models.Current().Value(); v != "" {
		return v
	}
	return DefaultModel
}

// SelectModel marks model as chosen.
func (p *Page) SelectModel(model string) {
	_ = p.models.Current().SetProperty("value", model)
}

// ApplyTheme sets the body class for theme.
func (p *Page) ApplyTheme(theme Theme) {
	body := p.rt.Document().Body()
	body.ClassList().Remove(ThemeLight.Class(), ThemeDark.Class())
	body.ClassList().Add(theme.Class())
}

// Theme returns the theme currently applied to the body.
func (p *Page) Theme() Theme {
	if p.rt.Document().Body().ClassList().Contains(ThemeLight.Class()) {
		return ThemeLight
	}
	return ThemeDark
}

// ToggleTheme switches between the light and dark theme and returns the
// new one.
func (p *Page) ToggleTheme() Theme {
	next := ThemeLight
	if p.Theme() == ThemeLight {
		next = ThemeDark
	}
	p.ApplyTheme(next)
	return next
}

func messageClass(sender string) string {
	return "message " + strings.ToLower(sender)
}
