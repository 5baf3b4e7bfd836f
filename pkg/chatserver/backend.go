package chatserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/vango-dev/chatui/pkg/chat"
)

// Backend produces model replies.
type Backend interface {
	// Models lists the models a client may select.
	Models(ctx context.Context) ([]chat.Model, error)

	// Chat streams the reply to the last turn of history through emit,
	// one chunk per call. An emit error stops the reply and is returned.
	Chat(ctx context.Context, model string, history []chat.Turn, emit func(chunk string) error) error
}

// EchoBackend replies with the prompt it was given, one word per chunk.
type EchoBackend struct{}

// Models returns the default model.
func (EchoBackend) Models(context.Context) ([]chat.Model, error) {
	return []chat.Model{{Model: chat.DefaultModel}}, nil
}

// Chat streams the last user turn back.
func (EchoBackend) Chat(ctx context.Context, _ string, history []chat.Turn, emit func(string) error) error {
	var prompt string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == chat.RoleUser {
			prompt = history[i].Content
			break
		}
	}
	words := strings.SplitAfter(prompt, " ")
	for _, w := range words {
		if err := ctx.Err(); err != nil {
			return err
		}
		if w == "" {
			continue
		}
		if err := emit(w); err != nil {
			return err
		}
	}
	return nil
}

// OllamaBackend talks to an Ollama server's HTTP API.
type OllamaBackend struct {
	// BaseURL is the Ollama address, e.g. "http://localhost:11434".
	BaseURL string

	// Client is the HTTP client. Default: http.DefaultClient.
	Client *http.Client
}

type ollamaTags struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
		Size  int64  `json:"size"`
	} `json:"models"`
}

type ollamaChatRequest struct {
	Model    string      `json:"model"`
	Messages []chat.Turn `json:"messages"`
	Stream   bool        `json:"stream"`
}

type ollamaChatChunk struct {
	Message chat.Turn `json:"message"`
	Done    bool      `json:"done"`
	Error   string    `json:"error"`
}

func (o OllamaBackend) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return http.DefaultClient
}

func (o OllamaBackend) url(path string) string {
	return strings.TrimSuffix(o.BaseURL, "/") + path
}

// Models lists the locally available models.
func (o OllamaBackend) Models(ctx context.Context) ([]chat.Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.url("/api/tags"), nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama: list models: %s", resp.Status)
	}

	var tags ollamaTags
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("ollama: decode models: %w", err)
	}
	models := make([]chat.Model, 0, len(tags.Models))
	for _, m := range tags.Models {
		name := m.Model
		if name == "" {
			name = m.Name
		}
		models = append(models, chat.Model{Model: name, Size: m.Size})
	}
	return models, nil
}

// Chat streams a reply from /api/chat.
func (o OllamaBackend) Chat(ctx context.Context, model string, history []chat.Turn, emit func(string) error) error {
	body, err := json.Marshal(ollamaChatRequest{Model: model, Messages: history, Stream: true})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url("/api/chat"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: chat: %s", resp.Status)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaChatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("ollama: decode chunk: %w", err)
		}
		if chunk.Error != "" {
			return fmt.Errorf("ollama: %s", chunk.Error)
		}
		if chunk.Message.Content != "" {
			if err := emit(chunk.Message.Content); err != nil {
				return err
			}
		}
		if chunk.Done {
			return nil
		}
	}
	return sc.Err()
}
