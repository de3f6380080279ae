package oauth

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated indicates no credentials are stored at all.
var ErrNotAuthenticated = errors.New("not authenticated: run 'tt auth login'")

// ErrReauthRequired indicates the stored refresh token is no longer
// usable. The store has already been cleared when this is returned;
// callers must not auto-trigger an interactive login.
var ErrReauthRequired = errors.New("session expired: run 'tt auth login' again")

// ConfigError indicates missing or contradictory OAuth configuration.
// It is surfaced before any network activity.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "oauth configuration error: " + e.Reason
}

// NetworkError indicates a transport failure or timeout talking to the
// provider or broker. It is surfaced without retry and without touching
// the store.
type NetworkError struct {
	Op    string
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Cause)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// ExchangeRejectedError indicates the provider (or broker, passing the
// provider through) declined a code exchange or refresh with a non-2xx
// status. The rejection is terminal for the attempt and never retried.
type ExchangeRejectedError struct {
	StatusCode int
	Message    string
}

func (e *ExchangeRejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("token exchange rejected (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("token exchange rejected (status %d): %s", e.StatusCode, e.Message)
}

// ProtocolError indicates a success response whose body is missing
// required fields or cannot be parsed. Fatal for the attempt.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "malformed token response: " + e.Reason
}
