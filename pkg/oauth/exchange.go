package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tickcli/tickcli/pkg/credentials"
)

const (
	brokerExchangePath = "/v1/oauth/exchange"
	brokerRefreshPath  = "/v1/oauth/refresh"

	// brokerKeyHeader authenticates requests against a key-protected
	// broker deployment.
	brokerKeyHeader = "x-broker-key"

	// defaultTokenLifetime applies when a success response omits
	// expires_in, matching the provider's documented default.
	defaultTokenLifetime = 3600
)

// tokenResponse is the provider's token endpoint payload. The broker
// passes it through unmodified, so both paths parse the same shape.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	ExpiresInSeconds int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// brokerExchangeRequest is the JSON body for the broker exchange path.
type brokerExchangeRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
	RedirectURI  string `json:"redirect_uri"`
}

// brokerRefreshRequest is the JSON body for the broker refresh path.
type brokerRefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Exchanger redeems authorization codes and refresh tokens for fresh
// token sets, either directly against the provider or via the broker,
// depending on the configured mode.
type Exchanger struct {
	cfg        *Config
	httpClient *http.Client
}

// NewExchanger creates an Exchanger. A nil httpClient gets a default
// client bounded by the configured HTTP timeout.
func NewExchanger(cfg *Config, httpClient *http.Client) *Exchanger {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Exchanger{cfg: cfg, httpClient: httpClient}
}

// Exchange redeems an authorization code plus its PKCE verifier for a
// token set. The returned expiry is computed from the request-start
// timestamp, not response arrival, so clock skew errs toward expiring
// early.
func (e *Exchanger) Exchange(ctx context.Context, code, verifier, redirectURI string) (*credentials.TokenSet, error) {
	if e.cfg.Mode() == ModeDirect {
		form := url.Values{}
		form.Set("grant_type", "authorization_code")
		form.Set("code", code)
		form.Set("redirect_uri", redirectURI)
		form.Set("code_verifier", verifier)
		return e.callDirect(ctx, "code exchange", form)
	}

	return e.callBroker(ctx, "code exchange", brokerExchangePath, brokerExchangeRequest{
		Code:         code,
		CodeVerifier: verifier,
		RedirectURI:  redirectURI,
	})
}

// Refresh redeems a refresh token for a fresh token set.
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (*credentials.TokenSet, error) {
	if e.cfg.Mode() == ModeDirect {
		form := url.Values{}
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", refreshToken)
		return e.callDirect(ctx, "token refresh", form)
	}

	return e.callBroker(ctx, "token refresh", brokerRefreshPath, brokerRefreshRequest{
		RefreshToken: refreshToken,
	})
}

// callDirect posts a form-encoded grant to the provider token endpoint,
// carrying the client credentials as HTTP Basic auth.
func (e *Exchanger) callDirect(ctx context.Context, op string, form url.Values) (*credentials.TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", op, err)
	}
	req.SetBasicAuth(e.cfg.ClientID, e.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	return e.send(req, op)
}

// callBroker posts a JSON grant to the broker, which injects the
// confidential credentials upstream. Only the client_id and grant fields
// leave this process, never a secret.
func (e *Exchanger) callBroker(ctx context.Context, op, path string, payload any) (*credentials.TokenSet, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BrokerURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if e.cfg.BrokerKey != "" {
		req.Header.Set(brokerKeyHeader, e.cfg.BrokerKey)
	}

	return e.send(req, op)
}

func (e *Exchanger) send(req *http.Request, op string) (*credentials.TokenSet, error) {
	start := time.Now()

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Cause: err}
	}

	var parsed tokenResponse
	parseErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(parsed.ErrorDescription)
		if msg == "" {
			msg = strings.TrimSpace(parsed.Error)
		}
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, &ExchangeRejectedError{StatusCode: resp.StatusCode, Message: msg}
	}

	if parseErr != nil {
		return nil, &ProtocolError{Reason: "response body is not valid JSON"}
	}
	if parsed.AccessToken == "" {
		return nil, &ProtocolError{Reason: "response is missing access_token"}
	}

	lifetime := parsed.ExpiresInSeconds
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}

	return &credentials.TokenSet{
		AccessToken:   parsed.AccessToken,
		RefreshToken:  parsed.RefreshToken,
		TokenType:     parsed.TokenType,
		Scope:         parsed.Scope,
		ExpiresAtUnix: start.Add(time.Duration(lifetime) * time.Second).Unix(),
	}, nil
}
