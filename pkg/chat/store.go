package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vango-dev/chatui/pkg/idb"
	"github.com/vango-dev/chatui/pkg/webdb"
)

// Database layout.
const (
	DBName    = "chats"
	DBVersion = 2

	StoreSessions = "sessions"
	StoreMessages = "messages"
	StoreSettings = "settings"

	// DefaultTitleLength is the number of characters of the first message
	// used as a session title.
	DefaultTitleLength = 20
)

// Schema returns the store definitions of the chat database.
func Schema() []webdb.StoreDefinition {
	return []webdb.StoreDefinition{
		{
			Name:          StoreSessions,
			KeyPath:       "id",
			AutoIncrement: true,
			Indexes: []webdb.IndexDefinition{
				{Name: "title", KeyPath: "title"},
				{Name: "timestamp", KeyPath: "timestamp"},
			},
		},
		{
			Name:          StoreMessages,
			KeyPath:       "id",
			AutoIncrement: true,
			Indexes: []webdb.IndexDefinition{
				{Name: "timestamp", KeyPath: "timestamp"},
				{Name: "session", KeyPath: "session"},
				{Name: "sender", KeyPath: "sender"},
			},
		},
		// Added in version 2. Out-of-line keys.
		{Name: StoreSettings},
	}
}

// OpenDB opens the chat database.
func OpenDB(ctx context.Context, opts ...webdb.Option) (*webdb.DB, error) {
	return webdb.Open(ctx, DBName, DBVersion, Schema(), opts...)
}

// Session is a stored conversation.
type Session struct {
	ID        int    `json:"id,omitempty"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
}

// Message is a stored chat message.
type Message struct {
	ID        int    `json:"id,omitempty"`
	Message   string `json:"message"`
	Sender    string `json:"sender"`
	Session   int    `json:"session"`
	Timestamp int64  `json:"timestamp"`
}

// Store persists sessions, messages and settings. Messages saved through
// one Store belong to its current session, which is created by the first
// message saved.
type Store struct {
	db           *webdb.DB
	titleLength  int
	historyLimit int
	now          func() time.Time
	log          *slog.Logger

	mu      sync.Mutex
	current int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTitleLength sets how many characters of the first message become
// the session title.
func WithTitleLength(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.titleLength = n
		}
	}
}

// WithHistoryLimit caps the persisted input history. Zero keeps everything.
func WithHistoryLimit(n int) StoreOption {
	return func(s *Store) {
		s.historyLimit = n
	}
}

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// WithStoreLogger sets the logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.log = logger
	}
}

// NewStore wraps an open chat database.
func NewStore(db *webdb.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:          db,
		titleLength: DefaultTitleLength,
		now:         time.Now,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "chat.store")
	return s
}

// DB returns the underlying database handle.
func (s *Store) DB() *webdb.DB { return s.db }

// CurrentSession returns the id of the current session, or 0 before the
// first message.
func (s *Store) CurrentSession() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// NewSession makes the next saved message start a new session.
func (s *Store) NewSession() {
	s.mu.Lock()
	s.current = 0
	s.mu.Unlock()
}

// Resume makes later messages join an existing session.
func (s *Store) Resume(ctx context.Context, id int) error {
	rec, err := s.db.GetData(ctx, StoreSessions, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("session %d: %w", id, idb.ErrNotFound)
	}
	s.mu.Lock()
	s.current = id
	s.mu.Unlock()
	return nil
}

// SaveMessage stores text from sender in the current session. The first
// message creates the session, titled with its leading characters.
func (s *Store) SaveMessage(ctx context.Context, text, sender string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UnixMilli()
	if s.current == 0 {
		key, err := s.db.AddData(ctx, StoreSessions, Session{Title: Title(text, s.titleLength), Timestamp: ts})
		if err != nil {
			return Message{}, fmt.Errorf("create session: %w", err)
		}
		s.current = keyInt(key)
		s.log.Debug("session created", "session", s.current)
	}

	msg := Message{
		Message:   text,
		Sender:    strings.ToLower(sender),
		Session:   s.current,
		Timestamp: ts,
	}
	key, err := s.db.AddData(ctx, StoreMessages, msg)
	if err != nil {
		return Message{}, fmt.Errorf("save message: %w", err)
	}
	msg.ID = keyInt(key)
	return msg, nil
}

// Sessions returns every session, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	recs, err := s.db.GetAllByIndex(ctx, StoreSessions, "timestamp", nil)
	if err != nil {
		return nil, err
	}
	return webdb.DecodeAll[Session](recs)
}

// Messages returns the messages of one session in the order they were saved.
func (s *Store) Messages(ctx context.Context, session int) ([]Message, error) {
	recs, err := s.db.GetAllByIndex(ctx, StoreMessages, "session", session)
	if err != nil {
		return nil, err
	}
	return webdb.DecodeAll[Message](recs)
}

// DeleteSession removes a session and its messages.
func (s *Store) DeleteSession(ctx context.Context, id int) error {
	msgs, err := s.Messages(ctx, id)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if err := s.db.DeleteData(ctx, StoreMessages, m.ID); err != nil {
			return err
		}
	}
	if err := s.db.DeleteData(ctx, StoreSessions, id); err != nil {
		return err
	}

	s.mu.Lock()
	if s.current == id {
		s.current = 0
	}
	s.mu.Unlock()
	return nil
}

// Title shortens text to at most n characters.
func Title(text string, n int) string {
	r := []rune(text)
	if len(r) > n {
		return string(r[:n])
	}
	return text
}

func keyInt(k idb.Key) int {
	if f, ok := k.(float64); ok {
		return int(f)
	}
	return 0
}
