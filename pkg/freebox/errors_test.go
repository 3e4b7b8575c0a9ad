package freebox

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
	"testing"
)

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantType    ErrorType
		wantSubtype NetworkErrorSubtype
	}{
		{
			name: "timeout",
			err: &url.Error{Op: "Get", URL: "https://mafreebox.freebox.fr", Err: &net.OpError{
				Op: "dial", Net: "tcp", Err: &timeoutError{},
			}},
			wantType:    ErrTypeTimeout,
			wantSubtype: NetworkErrorTimeout,
		},
		{
			name: "connection refused",
			err: &url.Error{Op: "Get", URL: "https://mafreebox.freebox.fr", Err: &net.OpError{
				Op: "dial", Net: "tcp", Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED},
			}},
			wantType:    ErrTypeConnectionRefused,
			wantSubtype: NetworkErrorConnectionRefused,
		},
		{
			name:        "dns",
			err:         &url.Error{Op: "Get", URL: "https://nope.invalid", Err: &net.DNSError{Err: "no such host", Name: "nope.invalid"}},
			wantType:    ErrTypeDNS,
			wantSubtype: NetworkErrorDNS,
		},
		{
			name:        "host unreachable",
			err:         &net.OpError{Op: "dial", Net: "tcp", Err: syscall.EHOSTUNREACH},
			wantType:    ErrTypeNetwork,
			wantSubtype: NetworkErrorHostUnreachable,
		},
		{
			name:        "network unreachable",
			err:         &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ENETUNREACH},
			wantType:    ErrTypeNetwork,
			wantSubtype: NetworkErrorNetworkUnreachable,
		},
		{
			name:        "generic",
			err:         errors.New("connection reset"),
			wantType:    ErrTypeNetwork,
			wantSubtype: NetworkErrorGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fbxErr := ClassifyNetworkError(tt.err, "mafreebox.freebox.fr")
			if fbxErr == nil {
				t.Fatal("ClassifyNetworkError() = nil")
			}
			if fbxErr.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", fbxErr.Type, tt.wantType)
			}
			if fbxErr.NetworkSubtype != tt.wantSubtype {
				t.Errorf("NetworkSubtype = %v, want %v", fbxErr.NetworkSubtype, tt.wantSubtype)
			}
			if fbxErr.Host != "mafreebox.freebox.fr" {
				t.Errorf("Host = %v, want mafreebox.freebox.fr", fbxErr.Host)
			}
			if !IsNetworkError(fbxErr) {
				t.Error("IsNetworkError() = false")
			}
		})
	}

	if ClassifyNetworkError(nil, "") != nil {
		t.Error("ClassifyNetworkError(nil) should be nil")
	}
}

func TestClassifyNetworkError_Canceled(t *testing.T) {
	err := &url.Error{Op: "Get", URL: "https://mafreebox.freebox.fr/api/v8/system", Err: context.Canceled}

	fbxErr := ClassifyNetworkError(err, "mafreebox.freebox.fr")
	if fbxErr.Type != ErrTypeCanceled {
		t.Fatalf("Type = %v, want %v", fbxErr.Type, ErrTypeCanceled)
	}
	if IsNetworkError(fbxErr) {
		t.Error("a cancelled request is not a network error")
	}
	if !IsCanceled(fbxErr) || !errors.Is(fbxErr, context.Canceled) {
		t.Error("cancellation should be visible through IsCanceled and errors.Is")
	}
	if got := GetShortErrorMessage(fbxErr); got != "Canceled" {
		t.Errorf("GetShortErrorMessage() = %q, want Canceled", got)
	}
	if hint := GetTroubleshootingHint(fbxErr); strings.Contains(hint, "network") {
		t.Errorf("GetTroubleshootingHint() = %q, should not blame the network", hint)
	}

	// Deadlines stay timeouts
	deadline := ClassifyNetworkError(&url.Error{Op: "Get", URL: "https://x", Err: context.DeadlineExceeded}, "")
	if deadline.Type != ErrTypeTimeout {
		t.Errorf("DeadlineExceeded Type = %v, want %v", deadline.Type, ErrTypeTimeout)
	}
}

func TestNewAPIError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        map[string]any
		wantType    ErrorType
		wantCode    string
		wantMessage string
	}{
		{
			name:        "auth required",
			status:      403,
			body:        map[string]any{"success": false, "msg": "Authentication required", "error_code": "auth_required"},
			wantType:    ErrTypeAuthRequired,
			wantCode:    CodeAuthRequired,
			wantMessage: "Authentication required",
		},
		{
			name:        "other code",
			status:      403,
			body:        map[string]any{"success": false, "msg": "Permission refusée", "error_code": "insufficient_rights"},
			wantType:    ErrTypeAPI,
			wantCode:    CodeInsufficientRights,
			wantMessage: "Permission refusée",
		},
		{
			name:        "no msg",
			status:      500,
			body:        map[string]any{},
			wantType:    ErrTypeAPI,
			wantMessage: "request failed with status 500",
		},
		{
			name:        "nil body",
			status:      0,
			body:        nil,
			wantType:    ErrTypeAPI,
			wantMessage: "request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.status, tt.body)
			if err.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", err.Type, tt.wantType)
			}
			if err.ErrorCode != tt.wantCode {
				t.Errorf("ErrorCode = %q, want %q", err.ErrorCode, tt.wantCode)
			}
			if err.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMessage)
			}
			if err.Body == nil {
				t.Error("Body should never be nil")
			}
			if err.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", err.StatusCode, tt.status)
			}
		})
	}
}

func TestNewAPIError_FallbackUsesBody(t *testing.T) {
	err := NewAPIError(400, map[string]any{"reason": "bad"})
	if !strings.Contains(err.Message, "reason=bad") {
		t.Errorf("Message = %q, want body dump", err.Message)
	}
}

func TestNewParseError_NeverEmpty(t *testing.T) {
	if msg := NewParseError("", nil).Message; msg == "" {
		t.Error("Message is empty")
	}
	if msg := NewParseError("", errors.New("unexpected EOF")).Message; msg != "unexpected EOF" {
		t.Errorf("Message = %q, want cause text", msg)
	}
}

func TestError_ErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"with cause", &Error{Type: ErrTypeNetwork, Message: "failed", Err: errors.New("boom")}, "Network Error: failed (caused by: boom)"},
		{"with code", &Error{Type: ErrTypeAPI, Message: "denied", ErrorCode: "insufficient_rights"}, "API Error: denied [insufficient_rights]"},
		{"plain", &Error{Type: ErrTypeConfig, Message: "app id is missing"}, "Configuration Error: app id is missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root")
	wrapped := fmt.Errorf("context: %w", &Error{Type: ErrTypeNetwork, Message: "x", Err: cause})

	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should find the cause through *Error")
	}
	if !IsNetworkError(wrapped) {
		t.Error("IsNetworkError should see through fmt wrapping")
	}
}

func TestErrorTypeHelpers(t *testing.T) {
	tests := []struct {
		err   *Error
		check func(error) bool
		name  string
	}{
		{&Error{Type: ErrTypeConfig}, IsConfigError, "IsConfigError"},
		{&Error{Type: ErrTypeParse}, IsParseError, "IsParseError"},
		{&Error{Type: ErrTypeAuthRequired}, IsAuthRequired, "IsAuthRequired"},
		{&Error{Type: ErrTypeAuthFailed}, IsAuthFailed, "IsAuthFailed"},
		{&Error{Type: ErrTypeAuthRequired}, IsAPIError, "IsAPIError(auth required)"},
		{&Error{Type: ErrTypePairing}, IsPairingError, "IsPairingError"},
		{&Error{Type: ErrTypeDNS}, IsNetworkError, "IsNetworkError(dns)"},
	}
	for _, tt := range tests {
		if !tt.check(tt.err) {
			t.Errorf("%s(%v) = false, want true", tt.name, tt.err.Type)
		}
	}

	if IsAuthRequired(errors.New("auth_required")) {
		t.Error("plain errors must not be classified")
	}
	if IsParseError(nil) {
		t.Error("IsParseError(nil) = true")
	}
}

func TestConfigSentinels(t *testing.T) {
	if !IsConfigError(ErrMissingAppID) || !IsConfigError(ErrMissingAppToken) {
		t.Error("missing credential errors should be config errors")
	}
}

func TestGetShortErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&Error{Type: ErrTypeTimeout}, "Freebox not responding (timeout)"},
		{&Error{Type: ErrTypeConnectionRefused}, "Freebox refused connection"},
		{&Error{Type: ErrTypeNetwork, NetworkSubtype: NetworkErrorHostUnreachable}, "Freebox unreachable - check network connection"},
		{&Error{Type: ErrTypeAuthRequired}, "Authentication required"},
		{&Error{Type: ErrTypeAPI, Message: "Permission refusée"}, "Permission refusée"},
		{errors.New("plain"), "plain"},
	}
	for _, tt := range tests {
		if got := GetShortErrorMessage(tt.err); got != tt.want {
			t.Errorf("GetShortErrorMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestGetTroubleshootingHint(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&Error{Type: ErrTypeConfig}, "fbx pair"},
		{&Error{Type: ErrTypeAuthFailed}, "Pair again"},
		{&Error{Type: ErrTypePairing}, "Freebox Server display"},
		{&Error{Type: ErrTypeAPI, ErrorCode: CodeInsufficientRights}, "permission"},
		{errors.New("plain"), "unexpected error"},
	}
	for _, tt := range tests {
		if got := GetTroubleshootingHint(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("GetTroubleshootingHint(%v) = %q, want it to mention %q", tt.err, got, tt.want)
		}
	}
}

func TestErrorType_String(t *testing.T) {
	if ErrTypeAuthRequired.String() != "Authentication Required" {
		t.Errorf("String() = %q", ErrTypeAuthRequired.String())
	}
	if ErrorType(99).String() != "ErrorType(99)" {
		t.Errorf("String() = %q", ErrorType(99).String())
	}
}

// timeoutError is a mock error that implements timeout behavior
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }
