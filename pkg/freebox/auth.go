package freebox

import (
	"context"
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // the appliance protocol mandates HMAC-SHA1
	"encoding/hex"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// authGroupKey is the singleflight key shared by every authentication of a client
const authGroupKey = "session"

// authTimeout bounds a shared authentication, which outlives the caller that started it
const authTimeout = 3 * DefaultTimeout

// DerivePassword computes the session password for a challenge:
// the lowercase hex HMAC-SHA1 of challenge keyed by appToken.
func DerivePassword(appToken, challenge string) string {
	mac := hmac.New(sha1.New, []byte(appToken))
	mac.Write([]byte(challenge))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticate opens a new session and stores its token in the client.
//
// Concurrent callers share a single challenge/session exchange. The shared
// exchange is detached from the cancellation of the caller that started it and
// bounded by authTimeout; each caller stops waiting when its own ctx is done.
// The returned response is the answer of the session endpoint. The box
// description is refreshed on a best-effort basis and never affects the outcome.
func (c *Client) Authenticate(ctx context.Context) (*Response, error) {
	ch := c.authGroup.DoChan(authGroupKey, func() (any, error) {
		authCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), authTimeout)
		defer cancel()
		return c.authenticate(authCtx)
	})

	select {
	case <-ctx.Done():
		c.logger.Debug("Stopped waiting for authentication", zap.Error(ctx.Err()))
		return nil, ClassifyNetworkError(ctx.Err(), c.config.APIDomain)
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("Joined in-flight authentication")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Response), nil
	}
}

func (c *Client) authenticate(ctx context.Context) (*Response, error) {
	challenge, err := c.fetchChallenge(ctx)
	if err != nil {
		c.logger.Warn("Failed to get login challenge", zap.Error(err))
		return nil, err
	}

	password := DerivePassword(c.config.AppToken, challenge)
	if c.config.Verbose {
		c.logger.Debug("Derived session password",
			zap.String("challenge", challenge),
			zap.String("password", password),
		)
	}

	resp, err := c.do(ctx, Request{
		Path:      c.endpoint("login/session"),
		Method:    http.MethodPost,
		Body:      sessionRequest{AppID: c.config.AppID, Password: password},
		ParseJSON: true,
	}, false)
	if err != nil {
		c.logger.Warn("Session creation failed", zap.Error(err))
		return nil, err
	}
	if err := resp.Err(); err != nil {
		if fbxErr, ok := err.(*Error); ok {
			fbxErr.Type = ErrTypeAuthFailed
		}
		c.logger.Warn("Session creation refused", zap.Error(err))
		return nil, err
	}

	var session sessionResult
	if err := resp.Decode(&session); err != nil {
		return nil, err
	}
	if session.SessionToken == "" {
		return nil, &Error{Type: ErrTypeAuthFailed, Message: "session endpoint returned no session token", StatusCode: resp.StatusCode}
	}

	c.session.setToken(session.SessionToken)
	if c.config.Verbose {
		c.logger.Debug("Authenticated", zap.String("session_token", session.SessionToken), zap.Any("permissions", session.Permissions))
	} else {
		c.logger.Info("Authenticated")
	}

	info, infoErr := c.fetchAPIVersion(ctx, false)
	if infoErr != nil {
		c.logger.Debug("Failed to refresh box info", zap.Error(infoErr))
	}
	c.session.setInfo(info, infoErr)

	return resp, nil
}

// fetchChallenge returns the challenge string served by the login endpoint.
func (c *Client) fetchChallenge(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, Request{
		Path:      c.endpoint("login"),
		ParseJSON: true,
	}, false)
	if err != nil {
		return "", err
	}
	if err := resp.Err(); err != nil {
		return "", err
	}

	var result challengeResult
	if err := resp.Decode(&result); err != nil {
		return "", err
	}
	if result.Challenge == "" {
		return "", NewParseError("login response has no challenge", nil)
	}
	return result.Challenge, nil
}

// fetchAPIVersion reads the api_version document, which is not wrapped in an envelope.
func (c *Client) fetchAPIVersion(ctx context.Context, reauth bool) (*APIVersion, error) {
	resp, err := c.do(ctx, Request{Path: c.endpoint("api_version")}, reauth)
	if err != nil {
		return nil, err
	}
	var info APIVersion
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return nil, NewParseError("failed to decode api_version", err)
	}
	return &info, nil
}
