package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/mcp-training/mergegame/game/engine"
	"github.com/wricardo/mcp-training/mergegame/game/service"
)

// Client calls the REST API for one session and follows its websocket feed
type Client struct {
	baseURL   string
	sessionID string
	http      *http.Client
}

func NewClient(baseURL, sessionID string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		sessionID: sessionID,
		http:      &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("API error: %s", resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) path(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + suffix
}

// EnsureSession creates a session when none is set
func (c *Client) EnsureSession(ctx context.Context, configID string) error {
	if c.sessionID != "" {
		return nil
	}
	var body interface{}
	if configID != "" {
		body = map[string]string{"config_id": configID}
	}
	var info service.SessionInfo
	if err := c.call(ctx, http.MethodPost, "/api/sessions", body, &info); err != nil {
		return err
	}
	c.sessionID = info.ID
	return nil
}

func (c *Client) State(ctx context.Context) (*engine.BoardState, error) {
	var state engine.BoardState
	if err := c.call(ctx, http.MethodGet, c.path("/state"), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) DragStart(ctx context.Context, itemID string, p engine.Vec2) error {
	return c.call(ctx, http.MethodPost, c.path("/drag/start"), map[string]interface{}{"item_id": itemID, "x": p.X, "y": p.Y}, nil)
}

func (c *Client) DragMove(ctx context.Context, itemID string, p engine.Vec2) error {
	return c.call(ctx, http.MethodPost, c.path("/drag/move"), map[string]interface{}{"item_id": itemID, "x": p.X, "y": p.Y}, nil)
}

func (c *Client) Drop(ctx context.Context, itemID string, p engine.Vec2) (*service.DropResult, error) {
	var result service.DropResult
	body := map[string]interface{}{"item_id": itemID, "position": p}
	if err := c.call(ctx, http.MethodPost, c.path("/drop"), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Trigger(ctx context.Context, generatorID string) (*service.SpawnResult, error) {
	var result service.SpawnResult
	if err := c.call(ctx, http.MethodPost, c.path("/generators/"+url.PathEscape(generatorID)+"/trigger"), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Reset(ctx context.Context) (*engine.BoardState, error) {
	var resp struct {
		State *engine.BoardState `json:"state"`
	}
	if err := c.call(ctx, http.MethodPost, c.path("/reset"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.State, nil
}

// wsMessage mirrors the frames pushed by the server hub
type wsMessage struct {
	SessionID  string             `json:"session_id"`
	Event      string             `json:"event"`
	BoardState *engine.BoardState `json:"board_state,omitempty"`
}

// Watch streams board states pushed for the session until ctx ends or the
// connection drops. The returned channel is closed on exit.
func (c *Client) Watch(ctx context.Context) (<-chan *engine.BoardState, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"session": {c.sessionID}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}

	out := make(chan *engine.BoardState, 16)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.BoardState == nil {
				continue
			}
			select {
			case out <- msg.BoardState:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
