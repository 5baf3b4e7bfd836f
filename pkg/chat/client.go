package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a websocket connection to the chat server.
type Client struct {
	// OnFrame, when set, sees every text frame returned by Receive.
	OnFrame func(frame string)

	conn *websocket.Conn

	writeMu sync.Mutex
}

// Dial connects to the /ws endpoint of the server at base (an http, https,
// ws or wss URL).
func Dial(ctx context.Context, base string, header http.Header) (*Client, error) {
	u, err := endpoint(base, "/ws")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	return &Client{conn: conn}, nil
}

// Send writes one prompt frame.
func (c *Client) Send(ctx context.Context, req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Receive reads the next text frame.
func (c *Client) Receive() (string, error) {
	for {
		typ, msg, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if typ == websocket.TextMessage {
			if c.OnFrame != nil {
				c.OnFrame(string(msg))
			}
			return string(msg), nil
		}
	}
}

// Close sends a close frame and closes the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.conn.Close()
}

// Pump feeds every received frame to ctrl until the connection closes or
// ctx is done. The controller is marked connected on entry and
// disconnected on return.
func Pump(ctx context.Context, c *Client, ctrl *Controller) error {
	ctrl.Connected()
	defer ctrl.Disconnected()

	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	for {
		msg, err := c.Receive()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			ctrl.Failed(err)
			return err
		}
		if err := ctrl.Receive(ctx, msg); err != nil {
			return err
		}
	}
}

// FetchModels lists the models offered by the server at base.
func FetchModels(ctx context.Context, hc *http.Client, base string) ([]Model, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	u, err := endpoint(base, "/models")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", u, resp.Status)
	}

	var list ModelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}
	return list.Models, nil
}

func endpoint(base, path string) (*url.URL, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u, nil
}
