// Package oauth implements the token lifecycle for the TickTick Open
// API: interactive PKCE login, durable token storage, and transparent
// refresh before each authenticated call. The confidential half of the
// exchange runs either directly against the provider
// (bring-your-own-credentials) or through the stateless broker.
package oauth

import (
	"os"
	"strings"
	"time"
)

const (
	defaultAuthorizeURL = "https://ticktick.com/oauth/authorize"
	defaultTokenURL     = "https://ticktick.com/oauth/token"
	defaultRedirectURI  = "http://localhost:8080/callback"
	defaultScope        = "tasks:write tasks:read"
	defaultHTTPTimeout  = 15 * time.Second
	defaultLoginTimeout = 2 * time.Minute
)

// Mode selects which party performs the confidential half of the token
// exchange.
type Mode int

const (
	// ModeDirect calls the provider token endpoint with a local client
	// secret.
	ModeDirect Mode = iota
	// ModeBroker delegates the exchange to the broker, which holds the
	// secret; the client never sees it.
	ModeBroker
)

// Config is the OAuth app configuration, constructed once at process
// start and passed by reference into the manager and exchanger.
type Config struct {
	ClientID     string
	ClientSecret string
	BrokerURL    string
	BrokerKey    string
	RedirectURI  string

	AuthorizeURL string
	TokenURL     string
	Scope        string

	HTTPTimeout  time.Duration
	LoginTimeout time.Duration

	// Warnings collects non-fatal configuration findings, such as both a
	// secret and a broker URL being set.
	Warnings []string
}

// Mode returns the exchange path this configuration selects. When both a
// secret and a broker URL are configured, the secret takes precedence.
func (c *Config) Mode() Mode {
	if c.ClientSecret != "" {
		return ModeDirect
	}
	return ModeBroker
}

// LoadConfig builds a Config from TICKTICK_* environment variables.
// Exactly one of TICKTICK_CLIENT_SECRET and TICKTICK_OAUTH_BROKER_URL
// must be set; both absent is a configuration error, both present keeps
// the secret and records a warning.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ClientID:     strings.TrimSpace(os.Getenv("TICKTICK_CLIENT_ID")),
		ClientSecret: strings.TrimSpace(os.Getenv("TICKTICK_CLIENT_SECRET")),
		BrokerURL:    strings.TrimRight(strings.TrimSpace(os.Getenv("TICKTICK_OAUTH_BROKER_URL")), "/"),
		BrokerKey:    strings.TrimSpace(os.Getenv("TICKTICK_OAUTH_BROKER_KEY")),
		RedirectURI:  strings.TrimSpace(os.Getenv("TICKTICK_REDIRECT_URI")),
		AuthorizeURL: defaultAuthorizeURL,
		TokenURL:     defaultTokenURL,
		Scope:        defaultScope,
		HTTPTimeout:  defaultHTTPTimeout,
		LoginTimeout: defaultLoginTimeout,
	}

	if v := strings.TrimSpace(os.Getenv("TICKTICK_OAUTH_AUTHORIZE_URL")); v != "" {
		cfg.AuthorizeURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TICKTICK_OAUTH_TOKEN_URL")); v != "" {
		cfg.TokenURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TICKTICK_OAUTH_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.HTTPTimeout = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("TICKTICK_LOGIN_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.LoginTimeout = d
		}
	}
	if cfg.RedirectURI == "" {
		cfg.RedirectURI = defaultRedirectURI
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ClientID == "" {
		return &ConfigError{Reason: "TICKTICK_CLIENT_ID is not set"}
	}
	if c.ClientSecret == "" && c.BrokerURL == "" {
		return &ConfigError{Reason: "set TICKTICK_CLIENT_SECRET or TICKTICK_OAUTH_BROKER_URL (one is required)"}
	}
	if c.ClientSecret != "" && c.BrokerURL != "" {
		c.Warnings = append(c.Warnings,
			"both TICKTICK_CLIENT_SECRET and TICKTICK_OAUTH_BROKER_URL are set; using the client secret and ignoring the broker")
	}
	return nil
}
