package freebox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/muurk/fbx/internal/logging"
)

const (
	// DefaultRegistrationURL is the API base reachable from the Freebox LAN
	DefaultRegistrationURL = "https://" + DefaultAPIDomain + DefaultAPIBaseURL

	// DefaultPollInterval is the delay between two authorization status checks
	DefaultPollInterval = 2 * time.Second
)

// Authorization statuses reported while a pairing request is tracked.
const (
	AuthStatusUnknown = "unknown"
	AuthStatusPending = "pending"
	AuthStatusTimeout = "timeout"
	AuthStatusGranted = "granted"
	AuthStatusDenied  = "denied"
)

// Pairing failures. Errors returned by Register wrap one of these.
var (
	ErrUnreachable            = errors.New("freebox unreachable")
	ErrUnparsable             = errors.New("freebox response unparsable")
	ErrCannotGetInfos         = errors.New("cannot get freebox infos")
	ErrCannotAskAuthorization = errors.New("cannot ask authorization")
	ErrCannotGetToken         = errors.New("cannot get app token")
	ErrAccessNotGranted       = errors.New("access not granted by user")
)

// AppRegistration describes the application shown on the box display.
type AppRegistration struct {
	AppID      string `json:"app_id"`
	AppName    string `json:"app_name"`
	AppVersion string `json:"app_version"`
	DeviceName string `json:"device_name"`
}

// Credentials is the outcome of a successful pairing.
type Credentials struct {
	AppToken  string `json:"appToken" yaml:"app_token"`
	AppID     string `json:"appId" yaml:"app_id"`
	APIDomain string `json:"apiDomain" yaml:"api_domain"`
	HTTPSPort int    `json:"httpsPort" yaml:"https_port"`

	// Box is the description of the paired box
	Box *APIVersion `json:"-" yaml:"-"`
}

// Config returns a client configuration using these credentials
func (c *Credentials) Config() Config {
	return Config{
		APIDomain: c.APIDomain,
		HTTPSPort: c.HTTPSPort,
		AppID:     c.AppID,
		AppToken:  c.AppToken,
	}
}

type authorizeResult struct {
	AppToken string `json:"app_token"`
	TrackID  int    `json:"track_id"`
}

type authorizeStatus struct {
	Status    string `json:"status"`
	Challenge string `json:"challenge"`
}

// Registrar runs the one-time pairing flow that produces an app token.
type Registrar struct {
	// BaseURL is the API base used for pairing (default: DefaultRegistrationURL)
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// Clock drives the polling delay
	Clock clock.Clock

	// PollInterval is the delay between status checks (default: 2s)
	PollInterval time.Duration

	// Logger receives progress events
	Logger *zap.Logger

	// OnPending is called once the request is displayed on the box
	OnPending func(trackID int)

	// OnStatus is called with every polled status
	OnStatus func(status string)
}

// NewRegistrar creates a registrar with default settings
func NewRegistrar() *Registrar {
	return &Registrar{
		BaseURL:      DefaultRegistrationURL,
		HTTPClient:   NewHTTPClient(),
		Clock:        clock.New(),
		PollInterval: DefaultPollInterval,
		Logger:       logging.GetLogger(),
	}
}

// Register asks the box for a new app token and waits until the user accepts
// or refuses the request on the box display.
func (r *Registrar) Register(ctx context.Context, app AppRegistration) (*Credentials, error) {
	if app.AppID == "" {
		return nil, ErrMissingAppID
	}
	if app.AppName == "" {
		return nil, NewConfigError("app name is missing")
	}
	r.applyDefaults()

	// Check that the box answers and learn its public domain and port
	info, err := Probe(ctx, r.HTTPClient, r.BaseURL)
	if err != nil {
		if IsParseError(err) {
			return nil, pairingError(ErrUnparsable, err)
		}
		return nil, pairingError(ErrUnreachable, err)
	}
	if info.APIBaseURL == "" || info.BoxModel == "" {
		return nil, pairingError(ErrCannotGetInfos, nil)
	}
	r.Logger.Info("Freebox found", zap.String("model", info.BoxModelName), zap.String("api_version", info.APIVersion))

	env, err := r.call(ctx, http.MethodPost, "login/authorize", app)
	if err != nil {
		return nil, pairingError(ErrCannotAskAuthorization, err)
	}
	var auth authorizeResult
	if err := json.Unmarshal(env.Result, &auth); err != nil || auth.AppToken == "" {
		return nil, pairingError(ErrCannotGetToken, err)
	}

	r.Logger.Info("Authorization requested, waiting for approval on the box", zap.Int("track_id", auth.TrackID))
	if r.OnPending != nil {
		r.OnPending(auth.TrackID)
	}

	status, err := r.waitForDecision(ctx, auth.TrackID)
	if err != nil {
		return nil, err
	}
	if status != AuthStatusGranted {
		return nil, pairingError(ErrAccessNotGranted, fmt.Errorf("status %q", status))
	}

	r.Logger.Info("Authorization granted")
	return &Credentials{
		AppToken:  auth.AppToken,
		AppID:     app.AppID,
		APIDomain: info.APIDomain,
		HTTPSPort: info.HTTPSPort,
		Box:       info,
	}, nil
}

// waitForDecision polls the tracked request until its status leaves "pending".
func (r *Registrar) waitForDecision(ctx context.Context, trackID int) (string, error) {
	status := AuthStatusPending
	for status == AuthStatusPending {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-r.Clock.After(r.PollInterval):
		}

		env, err := r.call(ctx, http.MethodGet, fmt.Sprintf("login/authorize/%d", trackID), nil)
		if err != nil {
			return "", err
		}

		var result authorizeStatus
		if err := json.Unmarshal(env.Result, &result); err != nil {
			return "", pairingError(ErrUnparsable, err)
		}
		status = result.Status
		r.Logger.Debug("Authorization status", zap.String("status", status))
		if r.OnStatus != nil {
			r.OnStatus(status)
		}
	}
	return status, nil
}

// call performs an unauthenticated JSON request and checks the envelope.
// Transport failures wrap ErrUnreachable, decode failures ErrUnparsable and
// success=false envelopes are returned as API errors.
func (r *Registrar) call(ctx context.Context, method, path string, in any) (*envelope, error) {
	target := strings.TrimSuffix(r.BaseURL, "/") + "/" + DefaultAPIVersion + "/" + path

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, NewParseError("failed to encode request body", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, NewNetworkError("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return nil, pairingError(ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pairingError(ErrUnreachable, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, pairingError(ErrUnparsable, err)
	}
	if !env.Success {
		body := map[string]any{}
		_ = json.Unmarshal(raw, &body)
		return nil, NewAPIError(resp.StatusCode, body)
	}
	return &env, nil
}

func (r *Registrar) applyDefaults() {
	if r.BaseURL == "" {
		r.BaseURL = DefaultRegistrationURL
	}
	if r.HTTPClient == nil {
		r.HTTPClient = NewHTTPClient()
	}
	if r.Clock == nil {
		r.Clock = clock.New()
	}
	if r.PollInterval <= 0 {
		r.PollInterval = DefaultPollInterval
	}
	if r.Logger == nil {
		r.Logger = logging.GetLogger()
	}
}

func pairingError(sentinel, cause error) *Error {
	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return &Error{
		Type:    ErrTypePairing,
		Message: sentinel.Error(),
		Err:     err,
	}
}
