package freebox

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event is a message received on the notification websocket.
type Event struct {
	Action    string          `json:"action"`
	Success   bool            `json:"success"`
	Source    string          `json:"source,omitempty"`
	Event     string          `json:"event,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Msg       string          `json:"msg,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
}

// Name returns the registration name of the event (e.g. "lan_host_l2_ident_changed")
func (e Event) Name() string {
	if e.Source == "" {
		return e.Event
	}
	return e.Source + "_" + e.Event
}

type registerMessage struct {
	Action string   `json:"action"`
	Events []string `json:"events"`
}

// WatchEvents subscribes to the given notifications and calls handler for each
// of them until ctx is cancelled or the connection fails.
//
// A handshake refused for lack of a valid session triggers one authentication
// and one redial, in the same way Do replays requests.
func (c *Client) WatchEvents(ctx context.Context, events []string, handler func(Event)) error {
	if len(events) == 0 {
		return NewConfigError("no events to watch")
	}

	conn, err := c.dialEvents(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	// Unblock ReadJSON when the caller cancels
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	if err := conn.WriteJSON(registerMessage{Action: "register", Events: events}); err != nil {
		return NewNetworkError("failed to register events", err)
	}
	c.logger.Info("Watching events", zap.Strings("events", events))

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				return NewParseError("invalid event message", err)
			}
			return NewNetworkError("event connection lost", err)
		}

		switch ev.Action {
		case "register":
			if !ev.Success {
				return NewAPIError(0, map[string]any{"msg": ev.Msg, "error_code": ev.ErrorCode})
			}
			c.logger.Debug("Event registration acknowledged")
		case "notification":
			handler(ev)
		default:
			c.logger.Debug("Ignoring websocket message", zap.String("action", ev.Action))
		}
	}
}

// dialEvents opens the notification websocket, authenticating once if needed.
func (c *Client) dialEvents(ctx context.Context) (*websocket.Conn, error) {
	conn, err := c.dialWebsocket(ctx)
	if err == nil {
		return conn, nil
	}
	if !IsAuthRequired(err) {
		return nil, err
	}

	c.logger.Info("Websocket refused, re-authenticating")
	if _, authErr := c.Authenticate(ctx); authErr != nil {
		return nil, authErr
	}
	return c.dialWebsocket(ctx)
}

func (c *Client) dialWebsocket(ctx context.Context) (*websocket.Conn, error) {
	target := "wss://" + strings.TrimPrefix(c.resolveURL(c.endpoint("ws/event")), "https://")

	header := http.Header{}
	if token := c.session.Token(); token != "" {
		header.Set(AuthHeader, token)
	}
	if c.userAgent != "" {
		header.Set("User-Agent", c.userAgent)
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		TLSClientConfig:  c.tlsConfig(),
		HandshakeTimeout: DefaultTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, target, header)
	if err == nil {
		return conn, nil
	}
	if resp == nil {
		return nil, ClassifyNetworkError(err, c.config.APIDomain)
	}

	body := map[string]any{}
	if resp.Body != nil {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		_ = json.Unmarshal(raw, &body)
		_ = resp.Body.Close()
	}
	apiErr := NewAPIError(resp.StatusCode, body)
	apiErr.Host = c.config.APIDomain
	apiErr.Err = err
	if apiErr.ErrorCode == "" && (resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized) {
		apiErr.Type = ErrTypeAuthRequired
	}
	return nil, apiErr
}

// tlsConfig reuses the TLS settings of the HTTP transport so the websocket
// accepts the same certificates as regular requests.
func (c *Client) tlsConfig() *tls.Config {
	if tr, ok := c.httpClient.Transport.(*http.Transport); ok && tr.TLSClientConfig != nil {
		return tr.TLSClientConfig.Clone()
	}
	return &tls.Config{InsecureSkipVerify: true} //nolint:gosec
}
