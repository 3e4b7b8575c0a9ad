package freebox

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
)

const (
	testAppID     = "fr.freebox.test"
	testAppToken  = "dyNYgfK0Ya6FWGqq83sBHa7TwzWo+pg4fDFUJHShcjVYzTfaRrZzm93p7OTAfH/0"
	testChallenge = "VzhbWpr2cfpwXVPqs0y4tfSUh8zZ6"
)

// fakeBox is an in-process Freebox answering the login endpoints.
type fakeBox struct {
	t   *testing.T
	srv *httptest.Server
	mux *http.ServeMux

	mu          sync.Mutex
	challenges  int
	sessions    int
	issued      int
	valid       map[string]bool
	lastSession sessionRequest

	// challenge is served by the login endpoint; appToken is the paired secret
	challenge string
	appToken  string

	// sessionFailure, when set, is returned by the session endpoint
	sessionFailure map[string]any
	// challengeStatus, when set, makes the login endpoint fail
	challengeStatus int
	// infoStatus, when set, makes api_version fail
	infoStatus int
	// beforeChallenge runs before the challenge is served
	beforeChallenge func()
}

func newFakeBox(t *testing.T) *fakeBox {
	t.Helper()
	fb := &fakeBox{
		t:     t,
		mux:   http.NewServeMux(),
		valid: make(map[string]bool),

		challenge: testChallenge,
		appToken:  testAppToken,
	}
	fb.mux.HandleFunc("/api/v8/login", fb.handleChallenge)
	fb.mux.HandleFunc("/api/v8/login/session", fb.handleSession)
	fb.mux.HandleFunc("/api/v8/api_version", fb.handleAPIVersion)
	fb.srv = httptest.NewTLSServer(fb.mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

// client returns a client pointed at the fake box
func (fb *fakeBox) client(opts ...Option) *Client {
	fb.t.Helper()
	return fb.clientWith(Config{AppID: testAppID, AppToken: testAppToken}, opts...)
}

func (fb *fakeBox) clientWith(cfg Config, opts ...Option) *Client {
	fb.t.Helper()
	u, err := url.Parse(fb.srv.URL)
	if err != nil {
		fb.t.Fatalf("url.Parse() error = %v", err)
	}
	port, _ := strconv.Atoi(u.Port())
	cfg.APIDomain = u.Hostname()
	cfg.HTTPSPort = port

	c, err := New(cfg, append([]Option{WithHTTPClient(fb.srv.Client())}, opts...)...)
	if err != nil {
		fb.t.Fatalf("New() error = %v", err)
	}
	return c
}

// handle registers a handler below /api/
func (fb *fakeBox) handle(path string, h http.HandlerFunc) {
	fb.mux.HandleFunc("/api/"+path, h)
}

// protected wraps h so it answers 403 auth_required without a valid session token
func (fb *fakeBox) protected(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !fb.isValid(r.Header.Get(AuthHeader)) {
			writeJSON(w, http.StatusForbidden, map[string]any{
				"success":    false,
				"msg":        "Authentication required",
				"error_code": CodeAuthRequired,
			})
			return
		}
		h(w, r)
	}
}

func (fb *fakeBox) isValid(token string) bool {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return token != "" && fb.valid[token]
}

// expire invalidates every issued session token
func (fb *fakeBox) expire() {
	fb.mu.Lock()
	fb.valid = make(map[string]bool)
	fb.mu.Unlock()
}

func (fb *fakeBox) counts() (challenges, sessions int) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.challenges, fb.sessions
}

func (fb *fakeBox) handleChallenge(w http.ResponseWriter, r *http.Request) {
	if fb.beforeChallenge != nil {
		fb.beforeChallenge()
	}
	fb.mu.Lock()
	fb.challenges++
	status := fb.challengeStatus
	challenge := fb.challenge
	fb.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]any{"success": false, "msg": "Internal error", "error_code": CodeInternalError})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result":  map[string]any{"logged_in": false, "challenge": challenge},
	})
}

func (fb *fakeBox) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req sessionRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	fb.mu.Lock()
	fb.sessions++
	fb.lastSession = req
	failure := fb.sessionFailure
	challenge, appToken := fb.challenge, fb.appToken
	fb.mu.Unlock()

	if failure != nil {
		writeJSON(w, http.StatusForbidden, failure)
		return
	}
	if req.AppID != testAppID || req.Password != DerivePassword(appToken, challenge) {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"success":    false,
			"msg":        "Erreur d'authentification de l'application",
			"error_code": CodeInvalidToken,
			"result":     map[string]any{"challenge": challenge},
		})
		return
	}

	fb.mu.Lock()
	fb.issued++
	token := fmt.Sprintf("session-%d", fb.issued)
	fb.valid[token] = true
	fb.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result": map[string]any{
			"session_token": token,
			"challenge":     challenge,
			"permissions":   map[string]bool{"settings": true, "contacts": false},
		},
	})
}

func (fb *fakeBox) handleAPIVersion(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	status := fb.infoStatus
	fb.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, http.StatusOK, testAPIVersion())
}

func testAPIVersion() map[string]any {
	return map[string]any{
		"uid":             "23b86ec8091013d668829fe12791fdab",
		"device_name":     "Freebox Server",
		"api_version":     "8.0",
		"api_base_url":    "/api/",
		"device_type":     "FreeboxServer7,1",
		"api_domain":      "abcd1234.fbxos.fr",
		"https_available": true,
		"https_port":      34567,
		"box_model":       "fbxgw7-r1/full",
		"box_model_name":  "Freebox v7 (r1)",
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
