package freebox

import (
	"crypto/tls"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/muurk/fbx/internal/logging"
	"github.com/muurk/fbx/internal/version"
)

const (
	// DefaultAPIDomain resolves to the box from any host on the Freebox LAN
	DefaultAPIDomain = "mafreebox.freebox.fr"

	// DefaultHTTPSPort is the HTTPS port used on the local network
	DefaultHTTPSPort = 443

	// DefaultAPIBaseURL is the API prefix advertised by current firmwares
	DefaultAPIBaseURL = "/api/"

	// DefaultAPIVersion is the API version used for login and info endpoints
	DefaultAPIVersion = "v8"

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// AuthHeader carries the session token on authenticated requests
	AuthHeader = "X-Fbx-App-Auth"
)

// Config holds the connection settings and credentials of a Client.
type Config struct {
	// APIDomain is the box hostname (default: "mafreebox.freebox.fr")
	APIDomain string `yaml:"api_domain"`

	// HTTPSPort is the HTTPS port of the API (default: 443)
	HTTPSPort int `yaml:"https_port"`

	// APIBaseURL is the path prefix of the API (default: "/api/")
	APIBaseURL string `yaml:"api_base_url"`

	// APIVersion prefixes the login and api_version endpoints (default: "v8")
	APIVersion string `yaml:"api_version"`

	// AppID is the application identifier used while pairing
	AppID string `yaml:"app_id"`

	// AppToken is the long-lived secret obtained by pairing
	AppToken string `yaml:"app_token"`

	// Verbose enables debug logs that include session secrets
	Verbose bool `yaml:"verbose"`
}

// withDefaults returns a copy of c with empty fields set to their defaults
func (c Config) withDefaults() Config {
	if c.APIDomain == "" {
		c.APIDomain = DefaultAPIDomain
	}
	if c.HTTPSPort == 0 {
		c.HTTPSPort = DefaultHTTPSPort
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if !strings.HasPrefix(c.APIBaseURL, "/") {
		c.APIBaseURL = "/" + c.APIBaseURL
	}
	if !strings.HasSuffix(c.APIBaseURL, "/") {
		c.APIBaseURL += "/"
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	c.APIVersion = strings.Trim(c.APIVersion, "/")
	return c
}

// Validate checks that the credentials required to open a session are present
func (c Config) Validate() error {
	if c.AppID == "" {
		return ErrMissingAppID
	}
	if c.AppToken == "" {
		return ErrMissingAppToken
	}
	return nil
}

// Client performs authenticated requests against a single Freebox.
// A Client is safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
	userAgent  string

	session Session

	// authGroup collapses concurrent re-authentications into one round trip
	authGroup singleflight.Group
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client. A nil client is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request and session events. A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewHTTPClient returns an http.Client that accepts the box's self-signed certificate.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		},
	}
}

// New creates a client for the box described by cfg.
// It fails with ErrMissingAppID or ErrMissingAppToken when credentials are absent.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:     cfg.withDefaults(),
		httpClient: NewHTTPClient(),
		logger:     logging.GetLogger(),
		userAgent:  "fbx/" + version.Version,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = c.logger.With(zap.String("app_id", c.config.AppID), zap.String("api_domain", c.config.APIDomain))

	if c.config.Verbose {
		c.logger.Debug("Freebox client initialized", zap.Int("https_port", c.config.HTTPSPort))
	}
	return c, nil
}

// Config returns a copy of the client configuration
func (c *Client) Config() Config {
	return c.config
}

// Session returns the client's session state
func (c *Client) Session() *Session {
	return &c.session
}

// SessionToken returns the current session token, or "" before the first authentication
func (c *Client) SessionToken() string {
	return c.session.Token()
}

// BoxInfo returns the device description cached by the last authentication
func (c *Client) BoxInfo() (*APIVersion, error) {
	return c.session.Info()
}

// BaseURL returns the absolute URL of the API prefix
func (c *Client) BaseURL() string {
	return c.resolveURL("")
}

// endpoint joins the configured API version and a relative path
func (c *Client) endpoint(path string) string {
	return c.config.APIVersion + "/" + strings.TrimPrefix(path, "/")
}
