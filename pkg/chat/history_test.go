package chat

import "testing"

func TestInputHistoryNavigation(t *testing.T) {
	type step struct {
		key     string
		current string
		want    string
		changed bool
	}
	tests := []struct {
		name    string
		history []string
		steps   []step
	}{
		{
			name:    "empty history",
			history: nil,
			steps:   []step{{"up", "", "", false}, {"down", "", "", false}},
		},
		{
			name:    "up walks back and stops at oldest",
			history: []string{"one", "two", "three"},
			steps: []step{
				{"up", "", "three", true},
				{"up", "three", "two", true},
				{"up", "two", "one", true},
				{"up", "one", "one", true},
			},
		},
		{
			name:    "down past newest clears",
			history: []string{"one", "two"},
			steps: []step{
				{"up", "", "two", true},
				{"up", "two", "one", true},
				{"down", "one", "two", true},
				{"down", "two", "", true},
				{"down", "", "", false},
			},
		},
		{
			name:    "down without selection does nothing",
			history: []string{"one"},
			steps:   []step{{"down", "", "", false}},
		},
		{
			name:    "typed draft is kept",
			history: []string{"one"},
			steps: []step{
				{"up", "draft", "draft", false},
				{"down", "draft", "draft", false},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewInputHistory(tt.history)
			for i, s := range tt.steps {
				var got string
				var changed bool
				if s.key == "up" {
					got, changed = h.Up(s.current)
				} else {
					got, changed = h.Down(s.current)
				}
				if got != s.want || changed != s.changed {
					t.Fatalf("step %d %s(%q) = %q, %v; want %q, %v", i, s.key, s.current, got, changed, s.want, s.changed)
				}
			}
		})
	}
}

func TestInputHistoryPushResetsSelection(t *testing.T) {
	h := NewInputHistory([]string{"one", "two"})
	h.Up("")
	h.Up("two")
	h.Push("three")

	got, _ := h.Up("")
	if got != "three" {
		t.Errorf("Up after Push = %q, want three", got)
	}
	if n := len(h.Messages()); n != 3 {
		t.Errorf("len(Messages) = %d, want 3", n)
	}
}
