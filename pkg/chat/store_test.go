package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/chatui/pkg/webdb"
)

func openStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	db, err := OpenDB(context.Background(), webdb.WithDir(t.TempDir()))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, opts...)
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestSchema(t *testing.T) {
	s := openStore(t)
	want := []string{StoreMessages, StoreSessions, StoreSettings}
	if diff := cmp.Diff(want, s.DB().StoreNames()); diff != "" {
		t.Errorf("stores (-want +got):\n%s", diff)
	}
	info, ok := s.DB().StoreInfo(StoreMessages)
	if !ok || info.KeyPath != "id" || !info.AutoIncrement || len(info.Indexes) != 3 {
		t.Errorf("messages store = %+v", info)
	}
}

func TestSaveMessageCreatesSession(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, WithClock(fixedClock(1000)))

	if s.CurrentSession() != 0 {
		t.Fatalf("CurrentSession before first message = %d", s.CurrentSession())
	}
	first, err := s.SaveMessage(ctx, "What is the capital of France?", SenderYou)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.SaveMessage(ctx, "Paris.", SenderBot)
	if err != nil {
		t.Fatal(err)
	}
	if first.Session == 0 || second.Session != first.Session {
		t.Fatalf("sessions = %d, %d; want one shared session", first.Session, second.Session)
	}

	sessions, err := s.Sessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	wantSessions := []Session{{ID: first.Session, Title: "What is the capital ", Timestamp: 1000}}
	if diff := cmp.Diff(wantSessions, sessions); diff != "" {
		t.Errorf("sessions (-want +got):\n%s", diff)
	}

	msgs, err := s.Messages(ctx, first.Session)
	if err != nil {
		t.Fatal(err)
	}
	want := []Message{
		{ID: 1, Message: "What is the capital of France?", Sender: "you", Session: first.Session, Timestamp: 1000},
		{ID: 2, Message: "Paris.", Sender: "bot", Session: first.Session, Timestamp: 1000},
	}
	if diff := cmp.Diff(want, msgs); diff != "" {
		t.Errorf("messages (-want +got):\n%s", diff)
	}
}

func TestNewSessionAndResume(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	a, err := s.SaveMessage(ctx, "first", SenderYou)
	if err != nil {
		t.Fatal(err)
	}
	s.NewSession()
	b, err := s.SaveMessage(ctx, "second", SenderYou)
	if err != nil {
		t.Fatal(err)
	}
	if a.Session == b.Session {
		t.Fatal("NewSession did not start a new session")
	}

	if err := s.Resume(ctx, a.Session); err != nil {
		t.Fatal(err)
	}
	c, err := s.SaveMessage(ctx, "again", SenderYou)
	if err != nil {
		t.Fatal(err)
	}
	if c.Session != a.Session {
		t.Errorf("resumed session = %d, want %d", c.Session, a.Session)
	}
	if err := s.Resume(ctx, 99); err == nil {
		t.Error("Resume(99) succeeded for a missing session")
	}
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	m, err := s.SaveMessage(ctx, "hello", SenderYou)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveMessage(ctx, "hi", SenderBot); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteSession(ctx, m.Session); err != nil {
		t.Fatal(err)
	}
	if s.CurrentSession() != 0 {
		t.Error("deleting the current session did not reset it")
	}
	n, err := s.DB().CountData(ctx, StoreMessages)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("messages left = %d", n)
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		text string
		n    int
		want string
	}{
		{"short", 20, "short"},
		{"exactly twenty chars", 20, "exactly twenty chars"},
		{"this one is longer than twenty", 20, "this one is longer t"},
		{"héllo wörld", 5, "héllo"},
		{"", 20, ""},
	}
	for _, tt := range tests {
		if got := Title(tt.text, tt.n); got != tt.want {
			t.Errorf("Title(%q, %d) = %q, want %q", tt.text, tt.n, got, tt.want)
		}
	}
}

func TestInputHistorySettings(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, WithHistoryLimit(2))

	got, err := s.InputHistory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("initial history = %v", got)
	}
	for _, p := range []string{"a", "b", "c"} {
		if _, err := s.AppendInputHistory(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	got, err = s.InputHistory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b", "c"}, got); diff != "" {
		t.Errorf("history (-want +got):\n%s", diff)
	}
}

func TestThemeSetting(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	if _, ok, err := s.Theme(ctx); err != nil || ok {
		t.Fatalf("Theme() before save: ok=%v err=%v", ok, err)
	}
	if err := s.SetTheme(ctx, ThemeLight); err != nil {
		t.Fatal(err)
	}
	theme, ok, err := s.Theme(ctx)
	if err != nil || !ok || theme != ThemeLight {
		t.Errorf("Theme() = %q, %v, %v; want light", theme, ok, err)
	}
}
