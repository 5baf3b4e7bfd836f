package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/chatui/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "chatui.json"

	// DefaultPort is the default server port.
	DefaultPort = 8000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultDatabase is the default chat database name.
	DefaultDatabase = "chats"

	// DefaultModel is the model used when none is selected.
	DefaultModel = "llama3.2"

	// DefaultOllamaURL is where the ollama backend is expected.
	DefaultOllamaURL = "http://localhost:11434"

	// DefaultStorageDir is the default database directory.
	DefaultStorageDir = "data"

	// MemoryStorage as storage.dir keeps databases in memory.
	MemoryStorage = ":memory:"
)

// Backend names accepted in server.backend.
const (
	BackendEcho   = "echo"
	BackendOllama = "ollama"
)

// Config represents the complete chatui.json configuration.
type Config struct {
	// Server contains chat server configuration.
	Server ServerConfig `json:"server"`

	// Storage contains database configuration.
	Storage StorageConfig `json:"storage"`

	// Log contains logging configuration.
	Log LogConfig `json:"log"`

	// Backup contains snapshot upload configuration.
	Backup BackupConfig `json:"backup,omitempty"`

	// Chat contains client configuration.
	Chat ChatConfig `json:"chat"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains chat server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// Backend selects the model backend: "echo" or "ollama".
	Backend string `json:"backend,omitempty"`

	// OllamaURL is the ollama API address.
	OllamaURL string `json:"ollamaURL,omitempty"`

	// WriteTimeout bounds each websocket write (e.g., "10s").
	WriteTimeout string `json:"writeTimeout,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "10s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`

	// MaxHistory caps the conversation turns kept per connection.
	MaxHistory int `json:"maxHistory,omitempty"`
}

// StorageConfig contains database settings.
type StorageConfig struct {
	// Dir is the directory holding database files. ":memory:" keeps
	// databases in memory.
	Dir string `json:"dir,omitempty"`

	// Database is the chat database name.
	Database string `json:"database,omitempty"`

	// MaxReaders caps concurrent read connections.
	MaxReaders int `json:"maxReaders,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// BackupConfig contains S3 snapshot settings.
type BackupConfig struct {
	// Bucket is the S3 bucket name.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is prepended to snapshot object keys.
	Prefix string `json:"prefix,omitempty"`

	// Region is the bucket region.
	Region string `json:"region,omitempty"`

	// Endpoint overrides the S3 endpoint (e.g., MinIO).
	Endpoint string `json:"endpoint,omitempty"`

	// PathStyle enables path-style bucket addressing.
	PathStyle bool `json:"pathStyle,omitempty"`
}

// ChatConfig contains terminal client settings.
type ChatConfig struct {
	// ServerURL is the chat server the client connects to.
	ServerURL string `json:"serverURL,omitempty"`

	// Model is the default model.
	Model string `json:"model,omitempty"`

	// TitleLength is how many characters of the first message become the
	// session title.
	TitleLength int `json:"titleLength,omitempty"`

	// HistoryLimit caps the saved input history.
	HistoryLimit int `json:"historyLimit,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from the specified directory.
// It looks for chatui.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No chatui.json found in " + filepath.Dir(path)).
				WithSuggestion("Run 'chatui init' to write a default configuration")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse chatui.json: " + err.Error()).
			WithSuggestion("Check that chatui.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

// LoadOrDefault loads chatui.json from dir, falling back to the defaults
// when the file does not exist.
func LoadOrDefault(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if errors.HasCode(err, "E141") {
		return New(), nil
	}
	return cfg, err
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E120").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	// Server
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Backend == "" {
		c.Server.Backend = BackendEcho
	}
	if c.Server.OllamaURL == "" {
		c.Server.OllamaURL = DefaultOllamaURL
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "10s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}

	// Storage
	if c.Storage.Dir == "" {
		c.Storage.Dir = DefaultStorageDir
	}
	if c.Storage.Database == "" {
		c.Storage.Database = DefaultDatabase
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// Chat
	if c.Chat.ServerURL == "" {
		c.Chat.ServerURL = "http://" + c.Server.Address()
	}
	if c.Chat.Model == "" {
		c.Chat.Model = DefaultModel
	}
	if c.Chat.TitleLength == 0 {
		c.Chat.TitleLength = 20
	}
	if c.Chat.HistoryLimit == 0 {
		c.Chat.HistoryLimit = 100
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E121").WithDetail("server.port must be between 0 and 65535")
	}
	switch c.Server.Backend {
	case BackendEcho, BackendOllama:
	default:
		return errors.New("E121").
			WithDetailf("server.backend %q is not supported", c.Server.Backend).
			WithSuggestion(`Use "echo" or "ollama"`)
	}
	if _, err := c.Server.WriteTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.Server.ShutdownTimeoutDuration(); err != nil {
		return err
	}
	if c.Server.MaxHistory < 0 {
		return errors.New("E121").WithDetail("server.maxHistory must not be negative")
	}
	if c.Storage.MaxReaders < 0 {
		return errors.New("E121").WithDetail("storage.maxReaders must not be negative")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("E121").WithDetailf("log.format %q must be text or json", c.Log.Format)
	}
	if c.Chat.TitleLength < 1 {
		return errors.New("E121").WithDetail("chat.titleLength must be positive")
	}
	if c.Chat.HistoryLimit < 0 {
		return errors.New("E121").WithDetail("chat.historyLimit must not be negative")
	}
	return nil
}

// Address returns the host:port the server listens on.
func (s ServerConfig) Address() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// WriteTimeoutDuration parses WriteTimeout.
func (s ServerConfig) WriteTimeoutDuration() (time.Duration, error) {
	return parseDuration("server.writeTimeout", s.WriteTimeout)
}

// ShutdownTimeoutDuration parses ShutdownTimeout.
func (s ServerConfig) ShutdownTimeoutDuration() (time.Duration, error) {
	return parseDuration("server.shutdownTimeout", s.ShutdownTimeout)
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, errors.New("E121").
			WithDetailf("%s %q is not a valid duration", field, value).
			WithSuggestion(`Use Go duration syntax, e.g. "10s" or "1m30s"`)
	}
	return d, nil
}

// StorageDir returns the database directory, resolved against the config
// file location when relative. It is empty for in-memory storage.
func (c *Config) StorageDir() string {
	dir := c.Storage.Dir
	if dir == MemoryStorage {
		return ""
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.Dir(), dir)
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, errors.New("E121").WithDetailf("log.level %q must be debug, info, warn or error", l.Level)
	}
	return level, nil
}

// Enabled reports whether backups have a bucket to write to.
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}
