// Package credentials manages reading and writing the single-user
// credentials.toml in the per-OS standard config directory.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	appDirName      = "ticktick-cli"
	credentialsName = "credentials.toml"

	currentVersion = 0
)

// CorruptError indicates the on-disk credential file exists but cannot be
// used. The previous contents are left untouched; the remedy is to re-run
// login (or delete the file).
type CorruptError struct {
	Path  string
	Cause error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("credential file %s is unreadable: %v (re-run 'tt auth login' to replace it)", e.Path, e.Cause)
}

func (e *CorruptError) Unwrap() error {
	return e.Cause
}

// Store persists the current token set for one user. Writes are atomic
// replaces so a concurrent reader never observes a half-written file.
type Store struct {
	path string
	app  *AppInfo
}

// NewStore resolves the credential file location. If override is
// non-empty it is used as the directory; otherwise the per-OS user config
// directory applies, so repeated invocations agree on the same file.
func NewStore(override string) (*Store, error) {
	dir := override
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolving config dir: %w", err)
		}
		dir = filepath.Join(base, appDirName)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}

	return &Store{path: filepath.Join(dir, credentialsName)}, nil
}

// Path returns the resolved credential file path.
func (s *Store) Path() string {
	return s.path
}

// SetAppInfo records non-secret app fields to persist on the next Save.
func (s *Store) SetAppInfo(app *AppInfo) {
	s.app = app
}

// Load reads the stored token set. Returns (nil, nil) when no file
// exists. A file that cannot be parsed, or that holds an access token
// without an expiry, yields a *CorruptError and no partial data.
func (s *Store) Load() (*TokenSet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	doc := &credentialsFile{}
	if err := toml.Unmarshal(data, doc); err != nil {
		return nil, &CorruptError{Path: s.path, Cause: err}
	}

	if doc.Tokens == nil {
		return nil, nil
	}
	if doc.Tokens.AccessToken != "" && doc.Tokens.ExpiresAtUnix == 0 {
		return nil, &CorruptError{Path: s.path, Cause: errors.New("access token stored without an expiry")}
	}
	if doc.App != nil {
		s.app = doc.App
	}

	return doc.Tokens, nil
}

// App returns the persisted app info from the last Load, if any.
func (s *Store) App() *AppInfo {
	return s.app
}

// Save atomically replaces the stored token set with 0600 permissions.
// The write lands fully or leaves the previous file intact.
func (s *Store) Save(tokens *TokenSet) error {
	if tokens == nil {
		return errors.New("cannot save nil token set")
	}
	if tokens.AccessToken == "" {
		return errors.New("cannot save empty access token")
	}
	if tokens.ExpiresAtUnix == 0 {
		return errors.New("cannot save access token without an expiry")
	}

	doc := &credentialsFile{
		Version: currentVersion,
		Tokens:  tokens,
		App:     s.app,
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), credentialsName+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp credentials file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("restricting credentials permissions: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing credentials: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing credentials file: %w", err)
	}

	return nil
}

// Clear removes stored tokens. It is idempotent: clearing an absent file
// succeeds.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing credentials: %w", err)
	}
	return nil
}
