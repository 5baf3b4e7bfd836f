package chat

import (
	"context"

	"github.com/vango-dev/chatui/pkg/webdb"
)

// Setting keys in the settings store.
const (
	settingHistory = "userMessages"
	settingTheme   = "theme"
)

// Theme is the page colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Class returns the body class that selects the theme.
func (t Theme) Class() string { return string(t) + "-mode" }

// InputHistory returns the persisted list of submitted prompts.
func (s *Store) InputHistory(ctx context.Context) ([]string, error) {
	rec, err := s.db.GetData(ctx, StoreSettings, settingHistory)
	if err != nil || rec == nil {
		return []string{}, err
	}
	return webdb.Decode[[]string](rec)
}

// AppendInputHistory adds a prompt to the persisted history, dropping the
// oldest entries beyond the history limit.
func (s *Store) AppendInputHistory(ctx context.Context, prompt string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.InputHistory(ctx)
	if err != nil {
		return nil, err
	}
	history = append(history, prompt)
	if s.historyLimit > 0 && len(history) > s.historyLimit {
		history = history[len(history)-s.historyLimit:]
	}
	if _, err := s.db.UpdateData(ctx, StoreSettings, history, settingHistory); err != nil {
		return nil, err
	}
	return history, nil
}

// Theme returns the saved theme. ok is false when none was saved.
func (s *Store) Theme(ctx context.Context) (theme Theme, ok bool, err error) {
	rec, err := s.db.GetData(ctx, StoreSettings, settingTheme)
	if err != nil || rec == nil {
		return "", false, err
	}
	str, _ := rec.(string)
	switch Theme(str) {
	case ThemeLight, ThemeDark:
		return Theme(str), true, nil
	}
	return "", false, nil
}

// SetTheme saves the theme preference.
func (s *Store) SetTheme(ctx context.Context, theme Theme) error {
	_, err := s.db.UpdateData(ctx, StoreSettings, string(theme), settingTheme)
	return err
}
