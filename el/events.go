package el

import "github.com/vango-dev/chatui/pkg/dom"

// knownEvents are the event names recognized after an "on" prefix when
// resolving untyped configuration.
var knownEvents = map[string]bool{
	"click": true, "dblclick": true, "mousedown": true, "mouseup": true,
	"mousemove": true, "mouseenter": true, "mouseleave": true, "mouseover": true,
	"mouseout": true, "contextmenu": true, "wheel": true,
	"keydown": true, "keyup": true, "keypress": true,
	"input": true, "change": true, "submit": true, "reset": true,
	"focus": true, "blur": true, "focusin": true, "focusout": true, "select": true,
	"scroll": true, "load": true, "error": true, "resize": true,
	"touchstart": true, "touchmove": true, "touchend": true, "touchcancel": true,
	"pointerdown": true, "pointerup": true, "pointermove": true,
	"dragstart": true, "drag": true, "dragend": true, "dragenter": true,
	"dragleave": true, "dragover": true, "drop": true,
	"animationend": true, "transitionend": true, "toggle": true,
}

// IsEventName reports whether name is a recognized event name.
func IsEventName(name string) bool {
	return knownEvents[name]
}

// On binds handler to the named event.
func On(event string, handler dom.Listener) EventBinding {
	return EventBinding{Event: event, Handler: handler}
}

// Mouse events

// OnClick handles click events.
func OnClick(handler dom.Listener) EventBinding { return On("click", handler) }

// OnDblClick handles double-click events.
func OnDblClick(handler dom.Listener) EventBinding { return On("dblclick", handler) }

// OnMouseEnter handles mouseenter events.
func OnMouseEnter(handler dom.Listener) EventBinding { return On("mouseenter", handler) }

// OnMouseLeave handles mouseleave events.
func OnMouseLeave(handler dom.Listener) EventBinding { return On("mouseleave", handler) }

// Keyboard events

// OnKeyDown handles keydown events.
func OnKeyDown(handler dom.Listener) EventBinding { return On("keydown", handler) }

// OnKeyUp handles keyup events.
func OnKeyUp(handler dom.Listener) EventBinding { return On("keyup", handler) }

// Form events

// OnInput handles input events.
func OnInput(handler dom.Listener) EventBinding { return On("input", handler) }

// OnChange handles change events.
func OnChange(handler dom.Listener) EventBinding { return On("change", handler) }

// OnSubmit handles form submit events.
func OnSubmit(handler dom.Listener) EventBinding { return On("submit", handler) }

// OnFocus handles focus events.
func OnFocus(handler dom.Listener) EventBinding { return On("focus", handler) }

// OnBlur handles blur events.
func OnBlur(handler dom.Listener) EventBinding { return On("blur", handler) }
