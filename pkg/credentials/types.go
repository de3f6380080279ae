package credentials

import "time"

// TokenSet is the stored OAuth token state. It is replaced wholesale on
// every refresh, never patched field by field.
type TokenSet struct {
	AccessToken   string `toml:"access_token"`
	RefreshToken  string `toml:"refresh_token,omitempty"`
	TokenType     string `toml:"token_type,omitempty"`
	Scope         string `toml:"scope,omitempty"`
	ExpiresAtUnix int64  `toml:"expires_at"`
}

// AppInfo carries the non-secret OAuth app fields persisted alongside the
// tokens in bring-your-own-credentials mode.
type AppInfo struct {
	ClientID    string `toml:"client_id,omitempty"`
	RedirectURI string `toml:"redirect_uri,omitempty"`
}

// credentialsFile is the full on-disk document.
type credentialsFile struct {
	Version int       `toml:"version"`
	Tokens  *TokenSet `toml:"tokens,omitempty"`
	App     *AppInfo  `toml:"app,omitempty"`
}

// ExpiresAt returns the absolute expiry time of the access token.
func (t *TokenSet) ExpiresAt() time.Time {
	return time.Unix(t.ExpiresAtUnix, 0)
}

// ExpiresWithin reports whether the access token expires at or before
// now+margin. Tokens inside the margin count as expired, so a token never
// looks valid after the provider has actually expired it.
func (t *TokenSet) ExpiresWithin(margin time.Duration) bool {
	return !t.ExpiresAt().After(time.Now().Add(margin))
}
