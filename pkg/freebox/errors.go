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
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeConfig indicates an invalid client configuration (missing app id or token)
	ErrTypeConfig ErrorType = iota
	// ErrTypeNetwork indicates a network-level error (host unreachable, reset, etc.)
	ErrTypeNetwork
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the appliance refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeParse indicates the response body could not be decoded
	ErrTypeParse
	// ErrTypeAuthRequired indicates the session token is missing, expired or invalid
	ErrTypeAuthRequired
	// ErrTypeAuthFailed indicates the session could not be opened
	ErrTypeAuthFailed
	// ErrTypeAPI indicates any other error reported by the appliance
	ErrTypeAPI
	// ErrTypePairing indicates the pairing flow did not produce an app token
	ErrTypePairing
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
	// ErrTypeCanceled indicates the caller cancelled the operation
	ErrTypeCanceled
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// Error codes returned by the appliance in the "error_code" field.
const (
	CodeAuthRequired         = "auth_required"
	CodeInvalidToken         = "invalid_token"
	CodePendingToken         = "pending_token"
	CodeInsufficientRights   = "insufficient_rights"
	CodeDeniedFromExternalIP = "denied_from_external_ip"
	CodeInvalidRequest       = "invalid_request"
	CodeRateLimited          = "ratelimited"
	CodeNewAppsDenied        = "new_apps_denied"
	CodeAppsDenied           = "apps_denied"
	CodeInternalError        = "internal_error"
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeConfig:
		return "Configuration Error"
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeAuthRequired:
		return "Authentication Required"
	case ErrTypeAuthFailed:
		return "Authentication Failed"
	case ErrTypeAPI:
		return "API Error"
	case ErrTypePairing:
		return "Pairing Error"
	case ErrTypeUnknown:
		return "Unknown Error"
	case ErrTypeCanceled:
		return "Canceled"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is returned for every failed operation against the appliance.
type Error struct {
	Type           ErrorType           // Category of error
	Message        string              // Human-readable message, never empty
	StatusCode     int                 // HTTP status code (if applicable)
	ErrorCode      string              // Appliance "error_code" (if any)
	Body           map[string]any      // Decoded error body, empty when undecodable
	Err            error               // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype // More specific network error type
	Host           string              // Appliance host (for context)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	if e.ErrorCode != "" {
		return fmt.Sprintf("%s: %s [%s]", e.Type, e.Message, e.ErrorCode)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Configuration errors returned by New.
var (
	ErrMissingAppID    = NewConfigError("app id is missing")
	ErrMissingAppToken = NewConfigError("app token is missing")
)

// ClassifyNetworkError analyzes a transport error and returns a more specific error type
func ClassifyNetworkError(err error, host string) *Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return &Error{
			Type:    ErrTypeCanceled,
			Message: "Request canceled",
			Err:     err,
			Host:    host,
		}
	}

	if os.IsTimeout(err) {
		return &Error{
			Type:           ErrTypeTimeout,
			Message:        "Request timed out",
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
			Host:           host,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{
			Type:           ErrTypeDNS,
			Message:        fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:            err,
			NetworkSubtype: NetworkErrorDNS,
			Host:           host,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return &Error{
				Type:           ErrTypeConnectionRefused,
				Message:        "Appliance refused connection",
				Err:            err,
				NetworkSubtype: NetworkErrorConnectionRefused,
				Host:           host,
			}
		}
		if errors.Is(opErr.Err, syscall.EHOSTUNREACH) {
			return &Error{
				Type:           ErrTypeNetwork,
				Message:        "Host unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorHostUnreachable,
				Host:           host,
			}
		}
		if errors.Is(opErr.Err, syscall.ENETUNREACH) {
			return &Error{
				Type:           ErrTypeNetwork,
				Message:        "Network unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorNetworkUnreachable,
				Host:           host,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassifyNetworkError(urlErr.Err, host)
	}

	return &Error{
		Type:           ErrTypeNetwork,
		Message:        "Network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		Host:           host,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *Error {
	classified := ClassifyNetworkError(err, "")
	if classified != nil {
		classified.Message = message
		return classified
	}
	return &Error{
		Type:    ErrTypeNetwork,
		Message: message,
		Err:     err,
	}
}

// NewConfigError creates a configuration error
func NewConfigError(message string) *Error {
	return &Error{
		Type:    ErrTypeConfig,
		Message: message,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *Error {
	if message == "" && err != nil {
		message = err.Error()
	}
	if message == "" {
		message = "unparsable response"
	}
	return &Error{
		Type:    ErrTypeParse,
		Message: message,
		Err:     err,
	}
}

// NewAPIError builds an error from a decoded failure body. The error type is
// derived from the body's error_code: auth_required maps to ErrTypeAuthRequired,
// everything else to ErrTypeAPI.
func NewAPIError(statusCode int, body map[string]any) *Error {
	if body == nil {
		body = map[string]any{}
	}

	code, _ := body["error_code"].(string)
	msg, _ := body["msg"].(string)
	if msg == "" {
		msg = fallbackMessage(statusCode, body)
	}

	errType := ErrTypeAPI
	if code == CodeAuthRequired {
		errType = ErrTypeAuthRequired
	}

	return &Error{
		Type:       errType,
		Message:    msg,
		StatusCode: statusCode,
		ErrorCode:  code,
		Body:       body,
	}
}

// fallbackMessage renders something readable when the appliance sent no msg.
func fallbackMessage(statusCode int, body map[string]any) string {
	if len(body) > 0 {
		parts := make([]string, 0, len(body))
		for k, v := range body {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
		return strings.Join(parts, " ")
	}
	if statusCode > 0 {
		return fmt.Sprintf("request failed with status %d", statusCode)
	}
	return "request failed"
}

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool {
	return hasType(err, ErrTypeConfig)
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS, etc.)
func IsNetworkError(err error) bool {
	return hasType(err, ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS)
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	return hasType(err, ErrTypeParse)
}

// IsAuthRequired checks if an error carries the auth_required error code
func IsAuthRequired(err error) bool {
	return hasType(err, ErrTypeAuthRequired)
}

// IsAuthFailed checks if an error is a session creation failure
func IsAuthFailed(err error) bool {
	return hasType(err, ErrTypeAuthFailed)
}

// IsAPIError checks if an error was reported by the appliance
func IsAPIError(err error) bool {
	return hasType(err, ErrTypeAPI, ErrTypeAuthRequired, ErrTypeAuthFailed)
}

// IsPairingError checks if an error came out of the pairing flow
func IsPairingError(err error) bool {
	return hasType(err, ErrTypePairing)
}

// IsCanceled checks if an error comes from a cancelled context
func IsCanceled(err error) bool {
	return hasType(err, ErrTypeCanceled) || errors.Is(err, context.Canceled)
}

func hasType(err error, types ...ErrorType) bool {
	var fbxErr *Error
	if !errors.As(err, &fbxErr) {
		return false
	}
	for _, t := range types {
		if fbxErr.Type == t {
			return true
		}
	}
	return false
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	var fbxErr *Error
	if !errors.As(err, &fbxErr) {
		return "An unexpected error occurred. Please try again."
	}

	switch fbxErr.Type {
	case ErrTypeConfig:
		return strings.Join([]string{
			"The client is missing its credentials.",
			"Troubleshooting:",
			"  • Run 'fbx pair' once to obtain an app token",
			"  • Check that --app-id matches the id used while pairing",
		}, "\n")

	case ErrTypeTimeout:
		return strings.Join([]string{
			"The Freebox did not respond in time.",
			"Troubleshooting:",
			"  • Check that you are on the Freebox local network",
			"  • Try increasing the timeout duration",
		}, "\n")

	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The Freebox refused the connection.",
			"Troubleshooting:",
			"  • Verify the HTTPS port (see 'fbx probe')",
			"  • Remote access may be disabled for this port",
		}, "\n")

	case ErrTypeDNS:
		return strings.Join([]string{
			"Could not resolve the Freebox hostname.",
			"Troubleshooting:",
			"  • Use mafreebox.freebox.fr from the local network",
			"  • Or use the api_domain reported by 'fbx probe'",
		}, "\n")

	case ErrTypeNetwork:
		hint := []string{"Network communication failed."}
		switch fbxErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			hint = append(hint, "The Freebox is not reachable on the network.",
				"Troubleshooting:",
				"  • Check that you're on the same network as the Freebox",
				"  • Try pinging the box: ping "+fbxErr.Host)
		case NetworkErrorNetworkUnreachable:
			hint = append(hint, "Your computer cannot reach the Freebox network.",
				"Troubleshooting:",
				"  • Check your network adapter settings")
		default:
			hint = append(hint, "Troubleshooting:",
				"  • Check your network connection",
				"  • Ensure you're connected to the Freebox network")
		}
		return strings.Join(hint, "\n")

	case ErrTypeAuthRequired, ErrTypeAuthFailed:
		return strings.Join([]string{
			"The Freebox rejected the session.",
			"Troubleshooting:",
			"  • The app may have been revoked in Freebox OS (Paramètres > Gestion des accès)",
			"  • Pair again with 'fbx pair' to obtain a new app token",
			"  • Check the app permissions for the endpoint you called",
		}, "\n")

	case ErrTypeParse:
		return strings.Join([]string{
			"Failed to parse the Freebox response.",
			"Troubleshooting:",
			"  • Check the API version in the request path",
			"  • Use --raw to inspect the body",
		}, "\n")

	case ErrTypePairing:
		return strings.Join([]string{
			"Pairing did not complete.",
			"Troubleshooting:",
			"  • Accept the request on the Freebox Server display within the time limit",
			"  • New app requests may be disabled in Freebox OS",
		}, "\n")

	case ErrTypeCanceled:
		return "The operation was cancelled before the Freebox answered."

	case ErrTypeAPI:
		if fbxErr.ErrorCode == CodeInsufficientRights {
			return "The app lacks the permission for this endpoint. Grant it in Freebox OS."
		}
		return fmt.Sprintf("The Freebox returned an error (%s). Check the request parameters.", fbxErr.ErrorCode)

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var fbxErr *Error
	if !errors.As(err, &fbxErr) {
		return err.Error()
	}

	switch fbxErr.Type {
	case ErrTypeTimeout:
		return "Freebox not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Freebox refused connection"
	case ErrTypeDNS:
		return "Cannot resolve Freebox hostname"
	case ErrTypeNetwork:
		switch fbxErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "Freebox unreachable - check network connection"
		case NetworkErrorNetworkUnreachable:
			return "Network unreachable"
		default:
			return "Network error - check connection"
		}
	case ErrTypeAuthRequired:
		return "Authentication required"
	case ErrTypeAuthFailed:
		return "Authentication failed - " + fbxErr.Message
	case ErrTypeParse:
		return "Failed to parse Freebox response"
	case ErrTypeCanceled:
		return "Canceled"
	default:
		return fbxErr.Message
	}
}
