package chat

// InputHistory navigates previously submitted prompts with the arrow keys.
// Navigation only applies while the input is empty or still holds a
// recalled prompt, so typed drafts are never overwritten.
type InputHistory struct {
	messages []string
	selected int
}

// NewInputHistory starts navigation over messages, oldest first.
func NewInputHistory(messages []string) *InputHistory {
	return &InputHistory{
		messages: append([]string(nil), messages...),
		selected: -1,
	}
}

// Push records a submitted prompt and resets navigation.
func (h *InputHistory) Push(msg string) {
	h.messages = append(h.messages, msg)
	h.selected = -1
}

// Messages returns the recorded prompts, oldest first.
func (h *InputHistory) Messages() []string {
	return append([]string(nil), h.messages...)
}

// Up moves to the previous prompt. It returns the new input value and
// whether the input should change.
func (h *InputHistory) Up(current string) (string, bool) {
	if !h.navigable(current) || len(h.messages) == 0 {
		return current, false
	}
	if h.selected == -1 {
		h.selected = len(h.messages) - 1
	} else if h.selected > 0 {
		h.selected--
	}
	return h.messages[h.selected], true
}

// Down moves to the next prompt; past the newest one the input is cleared.
func (h *InputHistory) Down(current string) (string, bool) {
	if !h.navigable(current) || len(h.messages) == 0 || h.selected == -1 {
		return current, false
	}
	if h.selected < len(h.messages)-1 {
		h.selected++
		return h.messages[h.selected], true
	}
	h.selected = -1
	return "", true
}

func (h *InputHistory) navigable(current string) bool {
	if current == "" {
		return true
	}
	for _, m := range h.messages {
		if m == current {
			return true
		}
	}
	return false
}
