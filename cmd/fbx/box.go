package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/muurk/fbx/internal/config"
	"github.com/muurk/fbx/internal/ui"
	"github.com/muurk/fbx/pkg/freebox"
)

// target is the box a command talks to
type target struct {
	UID    string
	Box    *config.Box
	Config freebox.Config
}

// resolveTarget picks the box from --box (or the default box) and applies
// the connection overrides given as flags or FBX_* variables.
func resolveTarget(reg *config.Registry, s *viper.Viper) (*target, error) {
	key := s.GetString("box")
	uid, box := reg.FindBox(key)
	if key != "" && box == nil {
		return nil, fmt.Errorf("no paired box matches %q (see 'fbx boxes')", key)
	}

	t := &target{UID: uid, Box: box}
	if box != nil {
		t.Config = box.Config(s.GetBool("verbose"))
	}
	t.Config.Verbose = s.GetBool("verbose")

	if v := s.GetString("domain"); v != "" {
		t.Config.APIDomain = v
	}
	if v := s.GetInt("port"); v != 0 {
		t.Config.HTTPSPort = v
	}
	if v := s.GetString("app-id"); v != "" {
		t.Config.AppID = v
	}
	if v := s.GetString("app-token"); v != "" {
		t.Config.AppToken = v
		if t.Config.AppID == "" && reg.Preferences != nil {
			t.Config.AppID = reg.Preferences.DefaultAppID
		}
	}

	if err := t.Config.Validate(); err != nil {
		if box == nil {
			return nil, fmt.Errorf("%w: no paired box, run 'fbx pair' first", err)
		}
		return nil, err
	}
	return t, nil
}

// newClient builds a client for the selected box
func newClient() (*freebox.Client, *target, error) {
	reg, err := config.LoadRegistry()
	if err != nil {
		return nil, nil, err
	}
	t, err := resolveTarget(reg, settings)
	if err != nil {
		return nil, nil, err
	}

	var opts []freebox.Option
	if timeout := settings.GetDuration("timeout"); timeout > 0 {
		hc := freebox.NewHTTPClient()
		hc.Timeout = timeout
		opts = append(opts, freebox.WithHTTPClient(hc))
	}

	client, err := freebox.New(t.Config, opts...)
	if err != nil {
		return nil, nil, err
	}
	return client, t, nil
}

// reportedError is an error already shown to the user
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// fail prints an error box with troubleshooting hints and returns the error
// marked as reported.
func fail(p *ui.Printer, title string, err error) error {
	p.PrintError(title, errors.New(freebox.GetShortErrorMessage(err)), hints(err))
	return reportedError{err: err}
}

// hints extracts the bullet points of a troubleshooting hint
func hints(err error) []string {
	var out []string
	for _, line := range strings.Split(freebox.GetTroubleshootingHint(err), "\n") {
		if item, ok := strings.CutPrefix(line, "  • "); ok {
			out = append(out, item)
		}
	}
	return out
}

// apiPath prefixes path with the API version unless it already has one
func apiPath(path, version string) string {
	path = strings.TrimPrefix(path, "/")
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if head, _, _ := strings.Cut(path, "/"); len(head) > 1 && head[0] == 'v' && isDigits(head[1:]) {
		return path
	}
	return version + "/" + path
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
