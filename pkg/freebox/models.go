package freebox

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Request describes a single call to the appliance API. It is passed by value
// and never modified by the client.
type Request struct {
	// Path is relative to the API base ("v8/system") or a full https URL
	Path string

	// Method defaults to GET
	Method string

	// Body is sent as-is when it is a []byte or string, JSON-encoded otherwise
	Body any

	// Header is merged into the outgoing request. Setting AuthHeader here
	// disables automatic session token injection.
	Header http.Header

	// ParseJSON decodes the response body into the Response envelope fields
	ParseJSON bool
}

// Response is a successful (HTTP 2xx) answer from the appliance.
type Response struct {
	StatusCode int
	Header     http.Header

	// Body is the raw response body
	Body []byte

	// Parsed reports whether the envelope fields below were decoded
	Parsed bool

	Success   bool
	Result    json.RawMessage
	Msg       string
	ErrorCode string
}

// envelope is the JSON wrapper around every API answer.
type envelope struct {
	Success   bool            `json:"success"`
	Result    json.RawMessage `json:"result,omitempty"`
	Msg       string          `json:"msg,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
}

// Decode unmarshals the envelope's result field into v.
func (r *Response) Decode(v any) error {
	if len(r.Result) == 0 {
		return NewParseError("response has no result", nil)
	}
	if err := json.Unmarshal(r.Result, v); err != nil {
		return NewParseError("failed to decode result", err)
	}
	return nil
}

// Err converts a decoded envelope with success=false into an *Error.
// Returns nil for successful or undecoded responses.
func (r *Response) Err() error {
	if !r.Parsed || r.Success {
		return nil
	}
	body := map[string]any{}
	_ = json.Unmarshal(r.Body, &body)
	return NewAPIError(r.StatusCode, body)
}

// APIVersion is the unauthenticated device description served at api_version.
type APIVersion struct {
	UID            string `json:"uid" yaml:"uid"`
	DeviceName     string `json:"device_name" yaml:"device_name"`
	APIVersion     string `json:"api_version" yaml:"api_version"`
	APIBaseURL     string `json:"api_base_url" yaml:"api_base_url"`
	DeviceType     string `json:"device_type" yaml:"device_type"`
	APIDomain      string `json:"api_domain" yaml:"api_domain"`
	HTTPSAvailable bool   `json:"https_available" yaml:"https_available"`
	HTTPSPort      int    `json:"https_port" yaml:"https_port"`
	BoxModel       string `json:"box_model" yaml:"box_model"`
	BoxModelName   string `json:"box_model_name" yaml:"box_model_name"`
}

// String returns a one-line description of the box
func (v *APIVersion) String() string {
	name := v.BoxModelName
	if name == "" {
		name = v.BoxModel
	}
	return fmt.Sprintf("%s (API %s) at %s:%d", name, v.APIVersion, v.APIDomain, v.HTTPSPort)
}

// SystemConfig is the subset of GET v8/system used by the CLI.
type SystemConfig struct {
	FirmwareVersion  string `json:"firmware_version"`
	Mac              string `json:"mac"`
	Serial           string `json:"serial"`
	Uptime           string `json:"uptime"`
	UptimeVal        int64  `json:"uptime_val"`
	BoardName        string `json:"board_name"`
	BoxAuthenticated bool   `json:"box_authenticated"`
	DiskStatus       string `json:"disk_status"`
	UserMainStorage  string `json:"user_main_storage"`
	ModelInfo        struct {
		Name       string `json:"name"`
		PrettyName string `json:"pretty_name"`
	} `json:"model_info"`
}

// challengeResult is the result of GET login.
type challengeResult struct {
	LoggedIn  bool   `json:"logged_in"`
	Challenge string `json:"challenge"`
}

// sessionRequest is the body of POST login/session.
type sessionRequest struct {
	AppID    string `json:"app_id"`
	Password string `json:"password"`
}

// sessionResult is the result of POST login/session.
type sessionResult struct {
	SessionToken string          `json:"session_token"`
	Challenge    string          `json:"challenge"`
	Permissions  map[string]bool `json:"permissions"`
}
