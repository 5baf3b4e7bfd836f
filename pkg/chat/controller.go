package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vango-dev/chatui/pkg/dom"
)

// System notices shown in the chat box.
const (
	NoticeConnected    = "Connected to the server."
	NoticeDisconnected = "Disconnected from the server."
	NoticeError        = "WebSocket error occurred."
	NoticeReconnect    = "Disconnected from the server. Please refresh the page to reconnect."
)

// Transport sends prompts to the chat server.
type Transport interface {
	Send(ctx context.Context, req Request) error
}

// Controller drives a Page: it submits prompts through a Transport,
// renders streamed replies and persists both sides of the conversation.
type Controller struct {
	ctx       context.Context
	page      *Page
	store     *Store
	transport Transport
	history   *InputHistory
	log       *slog.Logger
	now       func() time.Time

	// mu serializes page access between event handlers and the
	// receiving goroutine.
	mu        sync.Mutex
	connected bool
	sentAt    time.Time
}

// ControllerOption configures a Controller.
type ControllerOption func(*controllerOptions)

type controllerOptions struct {
	renderer Renderer
	logger   *slog.Logger
	now      func() time.Time
}

// WithRenderer sets the message renderer.
func WithRenderer(r Renderer) ControllerOption {
	return func(o *controllerOptions) { o.renderer = r }
}

// WithLogger sets the controller logger.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(o *controllerOptions) { o.logger = l }
}

// WithControllerClock sets the clock used to time replies.
func WithControllerClock(now func() time.Time) ControllerOption {
	return func(o *controllerOptions) { o.now = now }
}

// NewController renders the chat page into doc, restores the saved input
// history and theme, and returns a disconnected controller. ctx bounds the
// storage calls made from event handlers.
func NewController(ctx context.Context, doc *dom.Document, store *Store, transport Transport, opts ...ControllerOption) (*Controller, error) {
	o := controllerOptions{renderer: PlainText, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Controller{
		ctx:       ctx,
		store:     store,
		transport: transport,
		log:       o.logger.With("component", "chat.controller"),
		now:       o.now,
	}
	c.page = NewPage(doc, o.renderer, PageHandlers{
		Send:    c.submit,
		KeyDown: c.keyDown,
		Toggle:  c.toggleTheme,
	})

	saved, err := store.InputHistory(ctx)
	if err != nil {
		return nil, err
	}
	c.history = NewInputHistory(saved)

	theme, ok, err := store.Theme(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		theme = ThemeDark
	}
	c.page.ApplyTheme(theme)
	return c, nil
}

// Page returns the rendered page.
func (c *Controller) Page() *Page { return c.page }

// History returns the input history navigator.
func (c *Controller) History() *InputHistory { return c.history }

// Connected records an open connection.
func (c *Controller) Connected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	c.page.AppendMessage(SenderSystem, NoticeConnected)
}

// Disconnected records a closed connection.
func (c *Controller) Disconnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.page.AppendMessage(SenderSystem, NoticeDisconnected)
}

// Failed reports a transport error.
func (c *Controller) Failed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed(err)
}

func (c *Controller) failed(err error) {
	c.log.Warn("transport error", "error", err)
	c.page.AppendMessage(SenderSystem, NoticeError)
}

// IsConnected reports whether prompts can be sent.
func (c *Controller) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SetModels fills the model selector.
func (c *Controller) SetModels(models []Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page.SetModels(models)
}

// SetInput replaces the prompt text, as typing would.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page.SetInputValue(text)
}

// Submit sends the prompt in the input box. The prompt is shown and saved,
// the input is cleared and a placeholder reply is added. When disconnected
// only a notice is shown.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitLocked(ctx)
}

func (c *Controller) submitLocked(ctx context.Context) error {
	if !c.connected {
		c.page.AppendMessage(SenderSystem, NoticeReconnect)
		return nil
	}
	prompt := c.page.InputValue()
	if prompt == "" {
		return nil
	}

	c.page.AppendMessage(SenderYou, prompt)
	if err := c.transport.Send(ctx, Request{Model: c.page.SelectedModel(), Prompt: prompt}); err != nil {
		c.failed(err)
		return err
	}
	c.page.SetInputValue("")
	c.sentAt = c.now()

	c.history.Push(prompt)
	if _, err := c.store.AppendInputHistory(ctx, prompt); err != nil {
		return err
	}
	if _, err := c.store.SaveMessage(ctx, prompt, SenderYou); err != nil {
		return err
	}
	c.page.AppendMessage(SenderBot, PlaceholderMessage)
	return nil
}

// Receive handles one frame from the server: a reply chunk, or the end of
// message marker which finalizes and saves the reply.
func (c *Controller) Receive(ctx context.Context, data string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if data != EndOfMessage {
		c.page.AppendPartial(data)
		return nil
	}

	reply := c.page.Finalize()
	c.log.Debug("reply complete", "chars", len(reply), "elapsed", c.now().Sub(c.sentAt))
	_, err := c.store.SaveMessage(ctx, reply, SenderBot)
	return err
}

// KeyDown handles a key press in the input box: Enter submits, Shift+Enter
// is left alone and the arrow keys walk the input history.
func (c *Controller) KeyDown(ctx context.Context, ev *dom.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.page.InputValue()
	switch ev.Key {
	case "Enter":
		if current == "" || ev.ShiftKey {
			return nil
		}
		ev.PreventDefault()
		return c.submitLocked(ctx)
	case "ArrowUp":
		if v, ok := c.history.Up(current); ok {
			c.page.SetInputValue(v)
		}
	case "ArrowDown":
		if v, ok := c.history.Down(current); ok {
			c.page.SetInputValue(v)
		}
	}
	return nil
}

// ToggleTheme switches the theme and saves the preference.
func (c *Controller) ToggleTheme(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.SetTheme(ctx, c.page.ToggleTheme())
}

func (c *Controller) submit() {
	if err := c.Submit(c.ctx); err != nil {
		c.log.Error("submit failed", "error", err)
	}
}

func (c *Controller) keyDown(ev *dom.Event) {
	if err := c.KeyDown(c.ctx, ev); err != nil {
		c.log.Error("key handler failed", "key", ev.Key, "error", err)
	}
}

func (c *Controller) toggleTheme() {
	if err := c.ToggleTheme(c.ctx); err != nil {
		c.log.Error("save theme failed", "error", err)
	}
}
