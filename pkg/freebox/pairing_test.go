package freebox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// fakePairingBox answers the pairing endpoints with a scripted status sequence.
type fakePairingBox struct {
	srv *httptest.Server

	mu       sync.Mutex
	statuses []string
	polls    int
	app      AppRegistration
	info     map[string]any
}

func newFakePairingBox(t *testing.T, statuses ...string) *fakePairingBox {
	t.Helper()
	fp := &fakePairingBox{statuses: statuses, info: testAPIVersion()}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v8/api_version", func(w http.ResponseWriter, r *http.Request) {
		fp.mu.Lock()
		defer fp.mu.Unlock()
		writeJSON(w, http.StatusOK, fp.info)
	})
	mux.HandleFunc("/api/v8/login/authorize", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fp.mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&fp.app)
		fp.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"result":  map[string]any{"app_token": testAppToken, "track_id": 42},
		})
	})
	mux.HandleFunc("/api/v8/login/authorize/42", func(w http.ResponseWriter, r *http.Request) {
		fp.mu.Lock()
		status := fp.statuses[len(fp.statuses)-1]
		if fp.polls < len(fp.statuses) {
			status = fp.statuses[fp.polls]
		}
		fp.polls++
		fp.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"result":  map[string]any{"status": status, "challenge": testChallenge},
		})
	})

	fp.srv = httptest.NewTLSServer(mux)
	t.Cleanup(fp.srv.Close)
	return fp
}

func (fp *fakePairingBox) registrar(mock *clock.Mock) *Registrar {
	return &Registrar{
		BaseURL:      fp.srv.URL + "/api/",
		HTTPClient:   fp.srv.Client(),
		Clock:        mock,
		PollInterval: DefaultPollInterval,
		Logger:       zap.NewNop(),
	}
}

var testApp = AppRegistration{
	AppID:      testAppID,
	AppName:    "fbx tests",
	AppVersion: "1.0.0",
	DeviceName: "ci",
}

type registerResult struct {
	creds *Credentials
	err   error
}

// runRegister drives the mock clock until Register returns.
func runRegister(t *testing.T, ctx context.Context, r *Registrar, mock *clock.Mock) registerResult {
	t.Helper()
	done := make(chan registerResult, 1)
	go func() {
		creds, err := r.Register(ctx, testApp)
		done <- registerResult{creds, err}
	}()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case res := <-done:
			return res
		case <-deadline:
			t.Fatal("Register() did not return")
		default:
			mock.Add(r.PollInterval)
		}
	}
}

func TestRegister_Granted(t *testing.T) {
	fp := newFakePairingBox(t, AuthStatusPending, AuthStatusPending, AuthStatusGranted)
	mock := clock.NewMock()
	r := fp.registrar(mock)

	var pendingID int
	var seen []string
	r.OnPending = func(trackID int) { pendingID = trackID }
	r.OnStatus = func(status string) { seen = append(seen, status) }

	res := runRegister(t, context.Background(), r, mock)
	if res.err != nil {
		t.Fatalf("Register() error = %v", res.err)
	}

	creds := res.creds
	if creds.AppToken != testAppToken || creds.AppID != testAppID {
		t.Errorf("credentials = %q/%q, want %q/%q", creds.AppID, creds.AppToken, testAppID, testAppToken)
	}
	if creds.APIDomain != "abcd1234.fbxos.fr" || creds.HTTPSPort != 34567 {
		t.Errorf("location = %s:%d, want abcd1234.fbxos.fr:34567", creds.APIDomain, creds.HTTPSPort)
	}
	if creds.Box == nil || creds.Box.UID != "23b86ec8091013d668829fe12791fdab" {
		t.Errorf("Box = %+v, want the probed description", creds.Box)
	}
	if pendingID != 42 {
		t.Errorf("OnPending track id = %d, want 42", pendingID)
	}
	if len(seen) != 3 || seen[2] != AuthStatusGranted {
		t.Errorf("statuses = %v, want pending, pending, granted", seen)
	}

	fp.mu.Lock()
	app := fp.app
	fp.mu.Unlock()
	if app != testApp {
		t.Errorf("authorize body = %+v, want %+v", app, testApp)
	}

	cfg := res.creds.Config()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Credentials.Config() invalid: %v", err)
	}
}

func TestRegister_NotGranted(t *testing.T) {
	for _, status := range []string{AuthStatusDenied, AuthStatusTimeout, AuthStatusUnknown} {
		t.Run(status, func(t *testing.T) {
			fp := newFakePairingBox(t, AuthStatusPending, status)
			mock := clock.NewMock()

			res := runRegister(t, context.Background(), fp.registrar(mock), mock)
			if !errors.Is(res.err, ErrAccessNotGranted) {
				t.Errorf("Register() error = %v, want ErrAccessNotGranted", res.err)
			}
			if !IsPairingError(res.err) {
				t.Errorf("IsPairingError(%v) = false", res.err)
			}
			if res.creds != nil {
				t.Error("Register() returned credentials on refusal")
			}
		})
	}
}

func TestRegister_Unreachable(t *testing.T) {
	fp := newFakePairingBox(t, AuthStatusGranted)
	mock := clock.NewMock()
	r := fp.registrar(mock)
	fp.srv.Close()

	res := runRegister(t, context.Background(), r, mock)
	if !errors.Is(res.err, ErrUnreachable) {
		t.Errorf("Register() error = %v, want ErrUnreachable", res.err)
	}
}

func TestRegister_Unparsable(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not a freebox</html>"))
	}))
	defer srv.Close()

	mock := clock.NewMock()
	r := &Registrar{BaseURL: srv.URL + "/api/", HTTPClient: srv.Client(), Clock: mock, PollInterval: time.Second, Logger: zap.NewNop()}

	res := runRegister(t, context.Background(), r, mock)
	if !errors.Is(res.err, ErrUnparsable) {
		t.Errorf("Register() error = %v, want ErrUnparsable", res.err)
	}
}

func TestRegister_MissingBoxInfo(t *testing.T) {
	fp := newFakePairingBox(t, AuthStatusGranted)
	fp.info = map[string]any{"uid": "x", "api_version": "8.0"}
	mock := clock.NewMock()

	res := runRegister(t, context.Background(), fp.registrar(mock), mock)
	if !errors.Is(res.err, ErrCannotGetInfos) {
		t.Errorf("Register() error = %v, want ErrCannotGetInfos", res.err)
	}
}

func TestRegister_ContextCancelled(t *testing.T) {
	fp := newFakePairingBox(t, AuthStatusPending)
	mock := clock.NewMock()
	r := fp.registrar(mock)

	ctx, cancel := context.WithCancel(context.Background())
	r.OnStatus = func(string) { cancel() }

	res := runRegister(t, ctx, r, mock)
	if !errors.Is(res.err, context.Canceled) {
		t.Errorf("Register() error = %v, want context.Canceled", res.err)
	}
}

func TestRegister_Validation(t *testing.T) {
	r := NewRegistrar()
	if _, err := r.Register(context.Background(), AppRegistration{AppName: "x"}); !errors.Is(err, ErrMissingAppID) {
		t.Errorf("Register() error = %v, want ErrMissingAppID", err)
	}
	if _, err := r.Register(context.Background(), AppRegistration{AppID: "x"}); !IsConfigError(err) {
		t.Errorf("Register() error = %v, want config error", err)
	}
}
