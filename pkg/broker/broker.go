// Package broker implements the stateless OAuth credential-injecting
// proxy. It holds the confidential client secret on behalf of
// distributed CLI installs, forwards code-exchange and refresh grants to
// the provider token endpoint, and passes the provider's response
// through unmodified. It never persists anything and never logs request
// or response bodies.
package broker

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	defaultTokenURL        = "https://ticktick.com/oauth/token"
	defaultUpstreamTimeout = 15 * time.Second

	keyHeader = "x-broker-key"
)

// Config is the broker's deployment-time configuration. The client
// credentials are supplied out of band and never accepted from callers.
type Config struct {
	ClientID     string
	ClientSecret string

	// APIKey, when set, must accompany every request in the x-broker-key
	// header.
	APIKey string

	TokenURL        string
	UpstreamTimeout time.Duration
}

type exchangeRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
	RedirectURI  string `json:"redirect_uri"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type server struct {
	cfg      Config
	log      *zap.Logger
	upstream *http.Client
}

// New builds the broker's fiber app. A nil logger disables logging; a
// nil upstream client gets a default bounded by the configured timeout.
func New(cfg Config, logger *zap.Logger, upstream *http.Client) *fiber.App {
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = defaultUpstreamTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if upstream == nil {
		upstream = &http.Client{Timeout: cfg.UpstreamTimeout}
	}

	s := &server{cfg: cfg, log: logger, upstream: upstream}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(s.logRequests)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	v1 := app.Group("/v1/oauth", s.requireKey)
	v1.Post("/exchange", s.handleExchange)
	v1.Post("/refresh", s.handleRefresh)

	return app
}

// logRequests records method, path, and status only. Bodies carry codes
// and tokens and must never reach the logs.
func (s *server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Info("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("duration", time.Since(start)),
	)
	return err
}

// requireKey rejects requests without a matching broker key before any
// upstream call is considered. With no key configured it is a no-op.
func (s *server) requireKey(c *fiber.Ctx) error {
	if s.cfg.APIKey == "" {
		return c.Next()
	}
	if strings.TrimSpace(c.Get(keyHeader)) != s.cfg.APIKey {
		return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
	}
	return c.Next()
}

func (s *server) handleExchange(c *fiber.Ctx) error {
	var payload exchangeRequest
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid JSON body")
	}

	form, ok := exchangeGrant(payload)
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("Missing code, code_verifier, or redirect_uri")
	}

	return s.forward(c, form)
}

func (s *server) handleRefresh(c *fiber.Ctx) error {
	var payload refreshRequest
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid JSON body")
	}

	form, ok := refreshGrant(payload)
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("Missing refresh_token")
	}

	return s.forward(c, form)
}

// exchangeGrant maps a validated exchange request onto the provider's
// form-encoded grant. Pure: no network, no state.
func exchangeGrant(payload exchangeRequest) (url.Values, bool) {
	code := strings.TrimSpace(payload.Code)
	verifier := strings.TrimSpace(payload.CodeVerifier)
	redirectURI := strings.TrimSpace(payload.RedirectURI)
	if code == "" || verifier == "" || redirectURI == "" {
		return nil, false
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("code_verifier", verifier)
	return form, true
}

// refreshGrant maps a validated refresh request onto the provider's
// form-encoded grant.
func refreshGrant(payload refreshRequest) (url.Values, bool) {
	token := strings.TrimSpace(payload.RefreshToken)
	if token == "" {
		return nil, false
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", token)
	return form, true
}

// forward makes exactly one upstream call with the confidential
// credentials injected as Basic auth and passes the provider's status
// and body through verbatim. Upstream rejections are the provider's to
// report; the broker does not retry or translate them.
func (s *server) forward(c *fiber.Ctx, form url.Values) error {
	req, err := http.NewRequestWithContext(c.Context(), http.MethodPost, s.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return c.Status(fiber.StatusBadGateway).SendString("Upstream request failed")
	}
	req.SetBasicAuth(s.cfg.ClientID, s.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.upstream.Do(req)
	if err != nil {
		s.log.Warn("upstream call failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).SendString("Upstream request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.log.Warn("upstream read failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).SendString("Upstream request failed")
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		c.Set(fiber.HeaderContentType, ct)
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(resp.StatusCode).Send(body)
}
