package oauth_test

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tickcli/tickcli/pkg/credentials"
	"github.com/tickcli/tickcli/pkg/oauth"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir string
		store  *credentials.Store
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "manager-test-*")
		Expect(err).NotTo(HaveOccurred())

		store, err = credentials.NewStore(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	newManager := func(provider *httptest.Server) *oauth.Manager {
		cfg := directConfig("http://127.0.0.1:1/token")
		var client *http.Client
		if provider != nil {
			cfg.TokenURL = provider.URL
			client = provider.Client()
		}
		return oauth.NewManager(cfg, store, oauth.NewExchanger(cfg, client))
	}

	Describe("AccessToken", func() {
		It("fails with ErrNotAuthenticated when nothing is stored", func() {
			_, err := newManager(nil).AccessToken(context.Background())
			Expect(err).To(MatchError(oauth.ErrNotAuthenticated))
		})

		It("returns a fresh token without any network call", func() {
			calls := 0
			provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls++
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer provider.Close()

			Expect(store.Save(&credentials.TokenSet{
				AccessToken:   "A1",
				RefreshToken:  "R1",
				ExpiresAtUnix: time.Now().Add(time.Hour).Unix(),
			})).To(Succeed())

			token, err := newManager(provider).AccessToken(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(Equal("A1"))
			Expect(calls).To(BeZero())
		})

		It("refreshes an expired token exactly once and stores the result", func() {
			calls := 0
			provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				Expect(r.ParseForm()).To(Succeed())
				Expect(r.PostForm.Get("grant_type")).To(Equal("refresh_token"))
				Expect(r.PostForm.Get("refresh_token")).To(Equal("R1"))

				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"access_token":"A2","refresh_token":"R2","expires_in":3600}`))
			}))
			defer provider.Close()

			Expect(store.Save(&credentials.TokenSet{
				AccessToken:   "A1",
				RefreshToken:  "R1",
				ExpiresAtUnix: time.Now().Add(-10 * time.Second).Unix(),
			})).To(Succeed())

			token, err := newManager(provider).AccessToken(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(Equal("A2"))
			Expect(calls).To(Equal(1))

			stored, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.AccessToken).To(Equal("A2"))
			Expect(stored.RefreshToken).To(Equal("R2"))
		})

		It("refreshes a token expiring inside the safety margin", func() {
			provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"access_token":"A2","expires_in":3600}`))
			}))
			defer provider.Close()

			Expect(store.Save(&credentials.TokenSet{
				AccessToken:   "A1",
				RefreshToken:  "R1",
				ExpiresAtUnix: time.Now().Add(10 * time.Second).Unix(),
			})).To(Succeed())

			token, err := newManager(provider).AccessToken(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(Equal("A2"))
		})

		It("retains the previous refresh token when the provider omits one", func() {
			provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"access_token":"A2","expires_in":3600}`))
			}))
			defer provider.Close()

			Expect(store.Save(&credentials.TokenSet{
				AccessToken:   "A1",
				RefreshToken:  "R1",
				ExpiresAtUnix: time.Now().Add(-10 * time.Second).Unix(),
			})).To(Succeed())

			_, err := newManager(provider).AccessToken(context.Background())
			Expect(err).NotTo(HaveOccurred())

			stored, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.RefreshToken).To(Equal("R1"))
		})

		It("clears the store and requires reauth when the refresh is rejected", func() {
			provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			}))
			defer provider.Close()

			Expect(store.Save(&credentials.TokenSet{
				AccessToken:   "A1",
				RefreshToken:  "R1",
				ExpiresAtUnix: time.Now().Add(-10 * time.Second).Unix(),
			})).To(Succeed())

			_, err := newManager(provider).AccessToken(context.Background())
			Expect(err).To(MatchError(oauth.ErrReauthRequired))

			stored, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeNil())
		})

		It("keeps the store untouched on a network failure", func() {
			Expect(store.Save(&credentials.TokenSet{
				AccessToken:   "A1",
				RefreshToken:  "R1",
				ExpiresAtUnix: time.Now().Add(-10 * time.Second).Unix(),
			})).To(Succeed())

			_, err := newManager(nil).AccessToken(context.Background())

			var network *oauth.NetworkError
			Expect(err).To(BeAssignableToTypeOf(network))

			stored, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.AccessToken).To(Equal("A1"))
		})

		It("requires reauth when the stored set has no refresh token", func() {
			Expect(store.Save(&credentials.TokenSet{
				AccessToken:   "A1",
				ExpiresAtUnix: time.Now().Add(-10 * time.Second).Unix(),
			})).To(Succeed())

			_, err := newManager(nil).AccessToken(context.Background())
			Expect(err).To(MatchError(oauth.ErrReauthRequired))

			stored, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeNil())
		})
	})

	Describe("Login", func() {
		It("exchanges the callback code and stores the token set", func() {
			var gotCode, gotVerifier string
			provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.ParseForm()).To(Succeed())
				gotCode = r.PostForm.Get("code")
				gotVerifier = r.PostForm.Get("code_verifier")

				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"access_token":"A1","refresh_token":"R1","expires_in":3600}`))
			}))
			defer provider.Close()

			cfg := directConfig(provider.URL)
			cfg.AuthorizeURL = "https://auth.example.test/oauth/authorize"
			cfg.RedirectURI = fmt.Sprintf("http://127.0.0.1:%d/callback", freePort())
			cfg.LoginTimeout = 5 * time.Second

			mgr := oauth.NewManager(cfg, store, oauth.NewExchanger(cfg, provider.Client()))

			var out bytes.Buffer
			errCh := make(chan error, 1)
			before := time.Now()

			go func() {
				errCh <- mgr.Login(context.Background(), &out)
			}()

			var authURL string
			Eventually(func() string {
				authURL = firstURLInOutput(out.String())
				return authURL
			}, 2*time.Second, 20*time.Millisecond).ShouldNot(BeEmpty())

			parsed, err := url.Parse(authURL)
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed.Query().Get("code_challenge")).NotTo(BeEmpty())
			Expect(parsed.Query().Get("code_challenge_method")).To(Equal("S256"))
			state := parsed.Query().Get("state")
			Expect(state).NotTo(BeEmpty())

			resp, err := http.Get(cfg.RedirectURI + "?code=auth123&state=" + url.QueryEscape(state))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Body.Close()).To(Succeed())

			Eventually(errCh, 2*time.Second, 20*time.Millisecond).Should(Receive(Succeed()))

			Expect(gotCode).To(Equal("auth123"))
			Expect(gotVerifier).NotTo(BeEmpty())

			stored, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.AccessToken).To(Equal("A1"))
			Expect(stored.RefreshToken).To(Equal("R1"))
			Expect(stored.ExpiresAt()).To(BeTemporally("~", before.Add(time.Hour), 10*time.Second))

			Expect(out.String()).To(ContainSubstring(store.Path()))
		})

		It("rejects a callback with a mismatched state", func() {
			cfg := directConfig("http://127.0.0.1:1/token")
			cfg.AuthorizeURL = "https://auth.example.test/oauth/authorize"
			cfg.RedirectURI = fmt.Sprintf("http://127.0.0.1:%d/callback", freePort())
			cfg.LoginTimeout = 5 * time.Second

			mgr := oauth.NewManager(cfg, store, nil)

			var out bytes.Buffer
			errCh := make(chan error, 1)

			go func() {
				errCh <- mgr.Login(context.Background(), &out)
			}()

			Eventually(func() string {
				return firstURLInOutput(out.String())
			}, 2*time.Second, 20*time.Millisecond).ShouldNot(BeEmpty())

			resp, err := http.Get(cfg.RedirectURI + "?code=auth123&state=wrong-state")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Body.Close()).To(Succeed())

			Eventually(errCh, 2*time.Second, 20*time.Millisecond).Should(Receive(MatchError(ContainSubstring("state mismatch"))))

			stored, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeNil())
		})

		It("times out waiting for the callback", func() {
			cfg := directConfig("http://127.0.0.1:1/token")
			cfg.AuthorizeURL = "https://auth.example.test/oauth/authorize"
			cfg.RedirectURI = fmt.Sprintf("http://127.0.0.1:%d/callback", freePort())
			cfg.LoginTimeout = 100 * time.Millisecond

			err := oauth.NewManager(cfg, store, nil).Login(context.Background(), &bytes.Buffer{})
			Expect(err).To(MatchError(ContainSubstring("timed out")))
		})
	})

	Describe("Logout", func() {
		It("clears the store and is idempotent", func() {
			Expect(store.Save(&credentials.TokenSet{
				AccessToken:   "A1",
				ExpiresAtUnix: time.Now().Add(time.Hour).Unix(),
			})).To(Succeed())

			mgr := newManager(nil)
			Expect(mgr.Logout()).To(Succeed())
			Expect(mgr.Logout()).To(Succeed())

			stored, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeNil())
		})
	})

	Describe("Status", func() {
		It("reports unauthenticated when nothing is stored", func() {
			info, err := newManager(nil).Status()
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Authenticated).To(BeFalse())
		})

		It("reports a truncated token hint, never the full token", func() {
			Expect(store.Save(&credentials.TokenSet{
				AccessToken:   "A1-very-long-access-token-value-here",
				ExpiresAtUnix: time.Now().Add(time.Hour).Unix(),
			})).To(Succeed())

			info, err := newManager(nil).Status()
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Authenticated).To(BeTrue())
			Expect(info.TokenHint).NotTo(Equal("A1-very-long-access-token-value-here"))
			Expect(info.TokenHint).To(ContainSubstring("..."))
			Expect(info.Remaining).To(BeNumerically(">", 0))
		})
	})
})

func freePort() int {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	port := ln.Addr().(*net.TCPAddr).Port
	Expect(ln.Close()).To(Succeed())
	return port
}

func firstURLInOutput(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "https://") || strings.HasPrefix(line, "http://") {
			return line
		}
	}
	return ""
}
