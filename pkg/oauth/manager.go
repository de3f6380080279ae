package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"

	"github.com/tickcli/tickcli/pkg/credentials"
	"github.com/tickcli/tickcli/pkg/pkce"
)

// RefreshMargin is the safety window before expiry inside which a token
// is refreshed rather than returned.
const RefreshMargin = 30 * time.Second

type callbackResult struct {
	Code  string
	State string
	Err   string
}

// Manager orchestrates the token lifecycle: interactive login, durable
// storage, and transparent pre-call refresh. All downstream commands
// obtain tokens exclusively through AccessToken.
type Manager struct {
	cfg       *Config
	store     *credentials.Store
	exchanger *Exchanger
}

// NewManager creates a Manager. A nil exchanger gets a default one built
// from the config.
func NewManager(cfg *Config, store *credentials.Store, exchanger *Exchanger) *Manager {
	if exchanger == nil {
		exchanger = NewExchanger(cfg, nil)
	}
	return &Manager{cfg: cfg, store: store, exchanger: exchanger}
}

// AccessToken returns a currently valid access token. Tokens fresh
// beyond RefreshMargin are returned without any network call. Expired
// tokens trigger exactly one refresh; a provider rejection clears the
// store and returns ErrReauthRequired.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	tokens, err := m.store.Load()
	if err != nil {
		return "", err
	}
	if tokens == nil {
		return "", ErrNotAuthenticated
	}

	if !tokens.ExpiresWithin(RefreshMargin) {
		return tokens.AccessToken, nil
	}

	if tokens.RefreshToken == "" {
		if clearErr := m.store.Clear(); clearErr != nil {
			return "", clearErr
		}
		return "", ErrReauthRequired
	}

	fresh, err := m.exchanger.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		var rejected *ExchangeRejectedError
		if errors.As(err, &rejected) {
			// The refresh token is consumed or revoked. Drop the stale
			// credentials so the state is cleanly unauthenticated.
			if clearErr := m.store.Clear(); clearErr != nil {
				return "", clearErr
			}
			return "", ErrReauthRequired
		}
		return "", err
	}

	if fresh.RefreshToken == "" {
		// Providers may omit a new refresh token; keep using the old one.
		fresh.RefreshToken = tokens.RefreshToken
	}

	if err := m.store.Save(fresh); err != nil {
		return "", err
	}

	return fresh.AccessToken, nil
}

// Login drives the interactive authorization flow: PKCE challenge,
// browser authorization against the provider, callback wait on the
// configured redirect URI, code exchange, and storage. On any failure
// the stored state is left untouched.
func (m *Manager) Login(ctx context.Context, out io.Writer) error {
	if out == nil {
		out = os.Stdout
	}

	challenge, err := pkce.New()
	if err != nil {
		return err
	}
	state, err := pkce.State()
	if err != nil {
		return err
	}

	redirect, err := url.Parse(m.cfg.RedirectURI)
	if err != nil || redirect.Host == "" {
		return &ConfigError{Reason: "TICKTICK_REDIRECT_URI is not a valid URL"}
	}
	callbackPath := redirect.Path
	if callbackPath == "" {
		callbackPath = "/"
	}

	// The redirect URI is registered with the OAuth app, so the listener
	// binds its exact host and port rather than an ephemeral one.
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("starting callback listener on %s: %w", redirect.Host, err)
	}
	defer func() { _ = listener.Close() }()

	callbackCh := make(chan callbackResult, 1)
	serveErrCh := make(chan error, 1)
	var callbackOnce sync.Once

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		result := callbackResult{
			Code:  strings.TrimSpace(q.Get("code")),
			State: strings.TrimSpace(q.Get("state")),
		}

		if errCode := strings.TrimSpace(q.Get("error")); errCode != "" {
			desc := strings.TrimSpace(q.Get("error_description"))
			if desc != "" {
				result.Err = fmt.Sprintf("authorization failed: %s (%s)", errCode, desc)
			} else {
				result.Err = "authorization failed: " + errCode
			}
		}

		callbackOnce.Do(func() {
			callbackCh <- result
		})

		status := http.StatusOK
		body := "Authentication complete. You can close this window."
		if result.Err != "" {
			status = http.StatusBadRequest
			body = "Authentication failed. Return to the terminal for details."
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			serveErrCh <- serveErr
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	authURL := m.authorizeURL(challenge, state)

	fmt.Fprintln(out, "Opening browser for authorization...")
	if err := openBrowser(authURL); err != nil {
		fmt.Fprintln(out, "Could not open a browser automatically.")
	}
	fmt.Fprintln(out, "If the browser does not open, visit:")
	fmt.Fprintln(out, authURL)
	fmt.Fprintln(out)

	if spin := newWaitSpinner(out); spin != nil {
		spin.Start()
		defer spin.Stop()
	}

	timeout := time.NewTimer(m.cfg.LoginTimeout)
	defer timeout.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case serveErr := <-serveErrCh:
		return fmt.Errorf("callback server failed: %w", serveErr)
	case <-timeout.C:
		return errors.New("timed out waiting for the authorization callback")
	case cb := <-callbackCh:
		if cb.Err != "" {
			return errors.New(cb.Err)
		}
		if cb.Code == "" {
			return errors.New("authorization callback did not include a code")
		}
		if cb.State != state {
			return errors.New("authorization state mismatch")
		}

		tokens, err := m.exchanger.Exchange(ctx, cb.Code, challenge.Verifier, m.cfg.RedirectURI)
		if err != nil {
			return err
		}

		if m.cfg.Mode() == ModeDirect {
			m.store.SetAppInfo(&credentials.AppInfo{
				ClientID:    m.cfg.ClientID,
				RedirectURI: m.cfg.RedirectURI,
			})
		}
		if err := m.store.Save(tokens); err != nil {
			return err
		}

		fmt.Fprintln(out, "Successfully authenticated!")
		fmt.Fprintf(out, "Credentials stored in %s\n", m.store.Path())
		return nil
	}
}

// Logout removes stored credentials. Safe to call when none exist.
func (m *Manager) Logout() error {
	return m.store.Clear()
}

// StatusInfo describes the stored authentication state for display.
type StatusInfo struct {
	Authenticated bool
	TokenHint     string
	ExpiresAt     time.Time
	Remaining     time.Duration
}

// Status reports the stored authentication state without refreshing.
func (m *Manager) Status() (*StatusInfo, error) {
	tokens, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if tokens == nil {
		return &StatusInfo{}, nil
	}

	return &StatusInfo{
		Authenticated: true,
		TokenHint:     tokenHint(tokens.AccessToken),
		ExpiresAt:     tokens.ExpiresAt(),
		Remaining:     time.Until(tokens.ExpiresAt()),
	}, nil
}

// StorePath returns the resolved credential file path.
func (m *Manager) StorePath() string {
	return m.store.Path()
}

func (m *Manager) authorizeURL(challenge *pkce.Challenge, state string) string {
	u, err := url.Parse(m.cfg.AuthorizeURL)
	if err != nil {
		u = &url.URL{}
	}

	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", m.cfg.ClientID)
	q.Set("redirect_uri", m.cfg.RedirectURI)
	q.Set("scope", m.cfg.Scope)
	q.Set("state", state)
	q.Set("code_challenge", challenge.Challenge)
	q.Set("code_challenge_method", challenge.Method)
	u.RawQuery = q.Encode()

	return u.String()
}

// newWaitSpinner returns a spinner for interactive terminals, nil
// otherwise so piped output stays clean.
func newWaitSpinner(out io.Writer) *spinner.Spinner {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(f))
	s.Suffix = " Waiting for authorization..."
	return s
}

func tokenHint(token string) string {
	if len(token) <= 16 {
		return "****"
	}
	return token[:8] + "..." + token[len(token)-8:]
}
