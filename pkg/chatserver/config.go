package chatserver

import (
	"net/http"
	"net/url"
	"time"

	"github.com/vango-dev/chatui/internal/errors"
)

// Config configures a Server.
type Config struct {
	// Address is the address to listen on.
	// Default: "localhost:8000".
	Address string

	// Title is the page title.
	// Default: "Ollama UI".
	Title string

	// ReadHeaderTimeout bounds reading request headers.
	// Default: 10 seconds.
	ReadHeaderTimeout time.Duration

	// WriteTimeout bounds each websocket frame write.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10 seconds.
	ShutdownTimeout time.Duration

	// ReadBufferSize and WriteBufferSize size the websocket buffers.
	// Default: 4096.
	ReadBufferSize  int
	WriteBufferSize int

	// MaxMessageSize caps an incoming frame in bytes.
	// Default: 64KB.
	MaxMessageSize int64

	// MaxHistory caps the turns kept per connection; the oldest are
	// dropped first. 0 keeps everything.
	MaxHistory int

	// CheckOrigin validates the websocket origin.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool
}

// DefaultConfig returns a Config with the defaults applied.
func DefaultConfig() Config {
	return Config{
		Address:           "localhost:8000",
		Title:             "Ollama UI",
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		MaxMessageSize:    64 * 1024,
		CheckOrigin:       SameOriginCheck,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Address == "" {
		c.Address = d.Address
	}
	if c.Title == "" {
		c.Title = d.Title
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = d.WriteBufferSize
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = d.CheckOrigin
	}
	return c
}

// Validate reports configuration values that cannot work.
func (c Config) Validate() error {
	switch {
	case c.MaxHistory < 0:
		return errors.New("E121").WithDetailf("server max history must not be negative, got %d", c.MaxHistory)
	case c.MaxMessageSize < 0:
		return errors.New("E121").WithDetailf("server max message size must not be negative, got %d", c.MaxMessageSize)
	case c.ReadHeaderTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0:
		return errors.New("E121").WithDetail("server timeouts must not be negative")
	}
	return nil
}

// SameOriginCheck accepts requests without an Origin header and requests
// whose Origin host matches the request host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return r.Host != "" && u.Host == r.Host
}
