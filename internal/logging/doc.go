// Package logging provides structured logging for fbx.
//
// This package wraps a global zap logger. It is silent by default so that
// CLI output is not mixed with log lines; set FBX_LOG_LEVEL to enable it.
//
// # Log Levels
//
//   - Debug: request URLs, status codes and timings, session events
//   - Info: authentication, pairing progress, event subscriptions
//   - Warn: failed authentications
//   - Error: fatal CLI failures
//
// Session passwords and tokens are only logged by the freebox package when
// the client is configured as verbose.
//
// # Configuration
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// FBX_LOG_FILE sends the output to a file rotated by lumberjack instead of
// stderr.
package logging
