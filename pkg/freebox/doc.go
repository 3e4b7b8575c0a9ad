// Package freebox provides a client for the local HTTP API of Freebox routers.
//
// The API is reachable from the box's LAN at https://mafreebox.freebox.fr/api/
// (or at the api_domain/https_port pair reported by the box). The box uses a
// certificate that is not signed by a public authority, so the default
// transport does not verify certificates.
//
// # Pairing
//
// An application must be paired once. The user approves the request on the
// Freebox Server display and the box hands out a long-lived app token:
//
//	creds, err := freebox.NewRegistrar().Register(ctx, freebox.AppRegistration{
//	    AppID:      "fr.example.fbx",
//	    AppName:    "fbx",
//	    AppVersion: "1.0.0",
//	    DeviceName: "laptop",
//	})
//
// The app token must be stored; it cannot be retrieved again.
//
// # Sessions
//
// Requests are authorized by a short-lived session token sent in the
// X-Fbx-App-Auth header. The token is obtained by a challenge-response
// handshake:
//  1. GET login returns a challenge
//  2. the password is hex(HMAC-SHA1(app_token, challenge))
//  3. POST login/session with {app_id, password} returns the session token
//
// The client does not track token expiry. When the box answers a request
// with error_code "auth_required", the client opens a new session and
// replays the request once. Concurrent requests that hit an expired session
// share a single handshake.
//
// # Usage Example
//
//	client, err := freebox.New(creds.Config())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	system, err := client.System(ctx)
//	if err != nil {
//	    log.Fatal(freebox.GetShortErrorMessage(err))
//	}
//	fmt.Println(system.FirmwareVersion)
//
// Lower level calls go through Do:
//
//	resp, err := client.Do(ctx, freebox.Request{
//	    Path:      "v8/lan/browser/pub/",
//	    ParseJSON: true,
//	})
//
// # Error Handling
//
// Every failure is an *Error whose Type tells network problems, unparsable
// bodies, session failures and other API errors apart. The decoded error body
// is kept in Error.Body.
package freebox
