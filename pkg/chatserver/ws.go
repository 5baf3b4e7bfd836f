package chatserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/chatui/internal/errors"
	"github.com/vango-dev/chatui/pkg/chat"
)

// conversation is the history of one websocket connection.
type conversation struct {
	turns []chat.Turn
	max   int
}

func (c *conversation) add(role, content string) {
	c.turns = append(c.turns, chat.Turn{Role: role, Content: content})
	if c.max > 0 && len(c.turns) > c.max {
		c.turns = append([]chat.Turn(nil), c.turns[len(c.turns)-c.max:]...)
	}
}

// drop removes the newest turn.
func (c *conversation) drop() {
	if len(c.turns) > 0 {
		c.turns = c.turns[:len(c.turns)-1]
	}
}

func (c *conversation) history() []chat.Turn {
	return append([]chat.Turn(nil), c.turns...)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	s.conns.Add(1)
	defer s.conns.Done()
	defer conn.Close()

	s.metrics.connections.Inc()
	defer s.metrics.connections.Dec()

	log := s.logger.With("remote", r.RemoteAddr)
	log.Info("client connected")

	// Closing the socket unblocks the read loop when the server stops.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stopClosing := context.AfterFunc(s.closing, cancel)
	defer stopClosing()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	conn.SetReadLimit(s.config.MaxMessageSize)
	conv := &conversation{max: s.config.MaxHistory}
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				log.Warn("websocket read error", "error", err)
			}
			log.Info("client disconnected")
			return
		}

		req, err := parseRequest(msg)
		if err != nil {
			log.Warn("bad chat request", "error", err)
			if err := s.send(conn, "Error: "+err.Error(), chat.EndOfMessage); err != nil {
				return
			}
			continue
		}
		if err := s.reply(ctx, conn, conv, req, log); err != nil {
			log.Info("client gone while replying", "error", err)
			return
		}
	}
}

func parseRequest(msg []byte) (chat.Request, error) {
	var req chat.Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return req, errors.New("E151").Wrap(err)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return req, errors.New("E151").WithDetail("prompt is empty")
	}
	if req.Model == "" {
		req.Model = chat.DefaultModel
	}
	return req, nil
}

// reply streams the backend's answer to req. A backend failure is reported
// to the client as text, the prompt is dropped from the history and the
// connection stays usable; only write errors are returned.
func (s *Server) reply(ctx context.Context, conn *websocket.Conn, conv *conversation, req chat.Request, log *slog.Logger) error {
	ctx, span := s.tracer.Start(ctx, "chatserver.reply", trace.WithAttributes(
		attribute.String("chat.model", req.Model),
		attribute.Int("chat.history", len(conv.turns)),
	))
	defer span.End()

	start := time.Now()
	conv.add(chat.RoleUser, req.Prompt)

	var full strings.Builder
	var writeErr error
	err := s.backend.Chat(ctx, req.Model, conv.history(), func(chunk string) error {
		if err := s.send(conn, chunk); err != nil {
			writeErr = err
			return err
		}
		s.metrics.chunks.Inc()
		full.WriteString(chunk)
		return nil
	})
	if writeErr != nil {
		span.RecordError(writeErr)
		span.SetStatus(codes.Error, "client write failed")
		return writeErr
	}

	status := "ok"
	if err != nil {
		status = "error"
		conv.drop()
		err = errors.New("E150").Wrap(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("backend failed", "model", req.Model, "error", err)
		if err := s.send(conn, "Error: "+err.Error()); err != nil {
			return err
		}
	} else {
		conv.add(chat.RoleAssistant, full.String())
	}
	s.metrics.prompts.WithLabelValues(req.Model, status).Inc()
	s.metrics.replyDuration.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())
	log.Debug("reply complete", "model", req.Model, "chars", full.Len(), "elapsed", time.Since(start))

	return s.send(conn, chat.EndOfMessage)
}

func (s *Server) send(conn *websocket.Conn, frames ...string) error {
	for _, f := range frames {
		_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			return err
		}
	}
	return nil
}
