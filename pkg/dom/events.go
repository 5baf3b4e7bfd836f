package dom

// Listener handles a dispatched event.
type Listener func(ev *Event)

type listener struct {
	id int
	fn Listener
}

// Event is a synthetic DOM event.
type Event struct {
	// Type is the event name without the "on" prefix (e.g. "click").
	Type string

	// Key is the key name for keyboard events (e.g. "Enter", "ArrowUp").
	Key string

	// ShiftKey reports whether shift was held for keyboard events.
	ShiftKey bool

	// Data carries an arbitrary payload for custom events.
	Data any

	// Target is the element the event was dispatched on.
	Target *Element

	// CurrentTarget is the element whose listener is running.
	CurrentTarget *Element

	defaultPrevented bool
	stopped          bool
}

// NewEvent creates an event of the given type.
func NewEvent(typ string) *Event {
	return &Event{Type: typ}
}

// PreventDefault marks the event as handled.
func (ev *Event) PreventDefault() { ev.defaultPrevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (ev *Event) DefaultPrevented() bool { return ev.defaultPrevented }

// StopPropagation stops the event from bubbling further.
func (ev *Event) StopPropagation() { ev.stopped = true }

// AddEventListener registers fn for events of type typ and returns the
// function that unregisters it. Go functions are not comparable, so the
// returned closure replaces removeEventListener(type, fn).
func (e *Element) AddEventListener(typ string, fn Listener) (remove func()) {
	if e.listeners == nil {
		e.listeners = make(map[string][]*listener)
	}
	e.nextID++
	l := &listener{id: e.nextID, fn: fn}
	e.listeners[typ] = append(e.listeners[typ], l)

	return func() {
		ls := e.listeners[typ]
		for i, cur := range ls {
			if cur.id == l.id {
				e.listeners[typ] = append(ls[:i:i], ls[i+1:]...)
				break
			}
		}
		if len(e.listeners[typ]) == 0 {
			delete(e.listeners, typ)
		}
	}
}

// ListenerCount returns the number of listeners registered for typ.
func (e *Element) ListenerCount(typ string) int {
	return len(e.listeners[typ])
}

// DispatchEvent runs listeners on e and then on each ancestor until
// propagation is stopped. It returns false if a listener called
// PreventDefault.
func (e *Element) DispatchEvent(ev *Event) bool {
	ev.Target = e
	for cur := e; cur != nil && !ev.stopped; cur = cur.Parent() {
		ls := append([]*listener(nil), cur.listeners[ev.Type]...)
		ev.CurrentTarget = cur
		for _, l := range ls {
			l.fn(ev)
		}
	}
	ev.CurrentTarget = nil
	return !ev.defaultPrevented
}

// Click dispatches a click event on e.
func (e *Element) Click() bool {
	return e.DispatchEvent(NewEvent("click"))
}
