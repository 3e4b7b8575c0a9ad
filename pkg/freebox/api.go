package freebox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Call performs an authenticated JSON call and decodes the envelope's result
// into out (which may be nil). A success=false envelope is returned as an *Error.
func (c *Client) Call(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.Do(ctx, Request{
		Path:      path,
		Method:    method,
		Body:      in,
		ParseJSON: true,
	})
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	return resp.Decode(out)
}

// APIVersion fetches the box description
func (c *Client) APIVersion(ctx context.Context) (*APIVersion, error) {
	return c.fetchAPIVersion(ctx, true)
}

// System fetches the system configuration (requires a session)
func (c *Client) System(ctx context.Context) (*SystemConfig, error) {
	var system SystemConfig
	if err := c.Call(ctx, http.MethodGet, c.endpoint("system"), nil, &system); err != nil {
		return nil, err
	}
	return &system, nil
}

// Probe checks that a box answers at baseURL (e.g. "https://mafreebox.freebox.fr/api/")
// and returns its description. No credentials are needed.
func Probe(ctx context.Context, hc *http.Client, baseURL string) (*APIVersion, error) {
	if hc == nil {
		hc = NewHTTPClient()
	}
	target := strings.TrimSuffix(baseURL, "/") + "/" + DefaultAPIVersion + "/api_version"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, NewNetworkError("failed to create probe request", err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, ClassifyNetworkError(err, req.URL.Hostname())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Type:       ErrTypeNetwork,
			Message:    fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
			Host:       req.URL.Hostname(),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read probe response", err)
	}

	var info APIVersion
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, NewParseError("failed to decode api_version", err)
	}
	return &info, nil
}
