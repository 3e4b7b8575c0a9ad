package freebox

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

	"go.uber.org/zap"
)

// maxErrorBodySize bounds how much of a failed response is read
const maxErrorBodySize = 1 << 20

// sessionEndpointSuffix identifies the session creation endpoint in any API version
const sessionEndpointSuffix = "login/session"

// Do executes req against the box.
//
// The session token is attached unless req.Header already carries AuthHeader.
// When the box answers with an auth_required error, the client authenticates
// and replays req once. A failure of the replay, including a second
// auth_required, is returned as-is. Failures of the session endpoint itself
// never trigger authentication.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	return c.do(ctx, req, true)
}

// do runs req and, when reauth is set, recovers from a single auth_required failure.
// The authenticator calls it with reauth unset so it never re-enters itself.
func (c *Client) do(ctx context.Context, req Request, reauth bool) (*Response, error) {
	resp, err := c.send(ctx, req)
	if err == nil {
		return resp, nil
	}
	if !reauth || !IsAuthRequired(err) {
		return nil, err
	}

	c.logger.Info("Session expired, re-authenticating", zap.String("path", req.Path))
	if _, authErr := c.Authenticate(ctx); authErr != nil {
		return nil, authErr
	}

	c.logger.Debug("Replaying request", zap.String("path", req.Path))
	return c.send(ctx, req)
}

// send performs a single HTTP exchange.
func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	target := c.resolveURL(req.Path)

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, NewNetworkError("failed to create request", err)
	}

	// Header is cloned so the caller's map is never touched
	httpReq.Header = req.Header.Clone()
	if httpReq.Header == nil {
		httpReq.Header = http.Header{}
	}
	if httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("User-Agent") == "" && c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if token := c.session.Token(); token != "" && httpReq.Header.Get(AuthHeader) == "" {
		httpReq.Header.Set(AuthHeader, token)
		if c.config.Verbose {
			c.logger.Debug("Added session token to request", zap.String("token", token))
		}
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		netErr := ClassifyNetworkError(err, c.config.APIDomain)
		c.logger.Debug("HTTP request failed",
			zap.String("method", method),
			zap.String("url", target),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil, netErr
	}
	defer func() { _ = httpResp.Body.Close() }()

	c.logger.Debug("HTTP request completed",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", httpResp.StatusCode),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, c.failure(target, httpResp)
	}

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       raw,
	}
	if !req.ParseJSON {
		return resp, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, NewParseError("", err)
	}
	resp.Parsed = true
	resp.Success = env.Success
	resp.Result = env.Result
	resp.Msg = env.Msg
	resp.ErrorCode = env.ErrorCode
	return resp, nil
}

// failure decodes a non-2xx response into an *Error. An undecodable body is
// treated as an empty object.
func (c *Client) failure(target string, httpResp *http.Response) *Error {
	body := map[string]any{}
	raw, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBodySize))
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		body = map[string]any{}
	}

	apiErr := NewAPIError(httpResp.StatusCode, body)
	apiErr.Host = c.config.APIDomain
	if isSessionEndpoint(target) {
		apiErr.Type = ErrTypeAuthFailed
	}

	c.logger.Debug("Request error",
		zap.String("url", target),
		zap.Int("status", httpResp.StatusCode),
		zap.String("error_code", apiErr.ErrorCode),
		zap.String("msg", apiErr.Message),
	)
	return apiErr
}

// resolveURL builds an absolute URL from a path relative to the API base.
// Paths that already are URLs are returned unchanged.
func (c *Client) resolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	path = strings.TrimPrefix(path, "/")
	return fmt.Sprintf("https://%s:%d%s%s", c.config.APIDomain, c.config.HTTPSPort, c.config.APIBaseURL, path)
}

func isSessionEndpoint(target string) bool {
	path := target
	if u, err := url.Parse(target); err == nil {
		path = u.Path
	}
	return strings.HasSuffix(strings.TrimSuffix(path, "/"), sessionEndpointSuffix)
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, NewParseError("failed to encode request body", err)
		}
		return bytes.NewReader(data), nil
	}
}
