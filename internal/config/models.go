package config

import (
	"sort"
	"strings"
	"time"

	"github.com/muurk/fbx/pkg/freebox"
)

// CurrentVersion is the registry file format version
const CurrentVersion = 1

// Registry represents the entire user configuration file.
type Registry struct {
	Version     int             `yaml:"version"`
	Boxes       map[string]*Box `yaml:"boxes,omitempty"` // Keyed by box UID
	Preferences *Preferences    `yaml:"preferences,omitempty"`
}

// Box holds the credentials and last known location of a paired Freebox.
type Box struct {
	Nickname   string    `yaml:"nickname,omitempty"`
	AppID      string    `yaml:"app_id"`
	AppToken   string    `yaml:"app_token"`
	APIDomain  string    `yaml:"api_domain,omitempty"`
	HTTPSPort  int       `yaml:"https_port,omitempty"`
	APIBaseURL string    `yaml:"api_base_url,omitempty"`
	LastIP     string    `yaml:"last_ip,omitempty"`
	LastSeen   time.Time `yaml:"last_seen,omitempty"`
	BoxModel   string    `yaml:"box_model,omitempty"`
}

// Config returns the client configuration for this box
func (b *Box) Config(verbose bool) freebox.Config {
	return freebox.Config{
		APIDomain:  b.APIDomain,
		HTTPSPort:  b.HTTPSPort,
		APIBaseURL: b.APIBaseURL,
		AppID:      b.AppID,
		AppToken:   b.AppToken,
		Verbose:    verbose,
	}
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	AutoDiscover    bool   `yaml:"auto_discover"`         // Use mDNS when no box is configured
	DiscoverTimeout int    `yaml:"discover_timeout"`      // mDNS discovery timeout in seconds
	DefaultAppID    string `yaml:"default_app_id"`        // App ID used when pairing
	DefaultBox      string `yaml:"default_box,omitempty"` // UID used when none is given
}

// DefaultAppID is the app identifier registered by the CLI
const DefaultAppID = "fr.freebox.fbx"

func defaultPreferences() *Preferences {
	return &Preferences{
		AutoDiscover:    true,
		DiscoverTimeout: 5,
		DefaultAppID:    DefaultAppID,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     CurrentVersion,
		Boxes:       make(map[string]*Box),
		Preferences: defaultPreferences(),
	}
}

// GetBox retrieves a box by UID. Returns nil if unknown.
func (r *Registry) GetBox(uid string) *Box {
	return r.Boxes[uid]
}

// FindBox looks a box up by UID or nickname (case-insensitive).
// An empty key selects the default box, or the only box when there is one.
func (r *Registry) FindBox(key string) (string, *Box) {
	if key == "" {
		if r.Preferences != nil && r.Preferences.DefaultBox != "" {
			key = r.Preferences.DefaultBox
		} else if len(r.Boxes) == 1 {
			for uid, box := range r.Boxes {
				return uid, box
			}
		} else {
			return "", nil
		}
	}

	if box, ok := r.Boxes[key]; ok {
		return key, box
	}
	for _, uid := range r.UIDs() {
		if strings.EqualFold(r.Boxes[uid].Nickname, key) {
			return uid, r.Boxes[uid]
		}
	}
	return "", nil
}

// EnsureBox returns the entry for uid, creating it if needed.
func (r *Registry) EnsureBox(uid string) *Box {
	if r.Boxes == nil {
		r.Boxes = make(map[string]*Box)
	}
	if box, exists := r.Boxes[uid]; exists {
		return box
	}
	box := &Box{}
	r.Boxes[uid] = box
	return box
}

// StoreCredentials records the outcome of a pairing. The first box stored
// becomes the default one.
func (r *Registry) StoreCredentials(uid string, creds *freebox.Credentials) *Box {
	box := r.EnsureBox(uid)
	box.AppID = creds.AppID
	box.AppToken = creds.AppToken
	box.APIDomain = creds.APIDomain
	box.HTTPSPort = creds.HTTPSPort
	if creds.Box != nil {
		box.APIBaseURL = creds.Box.APIBaseURL
		box.BoxModel = creds.Box.BoxModelName
	}

	if r.Preferences == nil {
		r.Preferences = defaultPreferences()
	}
	if r.Preferences.DefaultBox == "" {
		r.Preferences.DefaultBox = uid
	}
	return box
}

// UpdateBoxLastSeen updates the last seen timestamp and IP for a box.
func (r *Registry) UpdateBoxLastSeen(uid, ip string) {
	box := r.EnsureBox(uid)
	box.LastSeen = time.Now()
	box.LastIP = ip
}

// SetBoxNickname sets a user-friendly nickname for a box.
func (r *Registry) SetBoxNickname(uid, nickname string) {
	r.EnsureBox(uid).Nickname = nickname
}

// RemoveBox forgets a box and clears it as default.
func (r *Registry) RemoveBox(uid string) bool {
	if _, ok := r.Boxes[uid]; !ok {
		return false
	}
	delete(r.Boxes, uid)
	if r.Preferences != nil && r.Preferences.DefaultBox == uid {
		r.Preferences.DefaultBox = ""
	}
	return true
}

// UIDs returns the box UIDs in sorted order
func (r *Registry) UIDs() []string {
	uids := make([]string, 0, len(r.Boxes))
	for uid := range r.Boxes {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}
