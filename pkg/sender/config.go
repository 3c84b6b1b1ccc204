package sender

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AuthMode selects how requests authenticate against the endpoint.
type AuthMode string

const (
	AuthNone  AuthMode = "none"
	AuthBasic AuthMode = "basic"
)

// ParseAuthMode normalizes an auth mode string. The short form "b" is accepted for basic.
func ParseAuthMode(s string) (AuthMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return AuthNone, nil
	case "basic", "b":
		return AuthBasic, nil
	default:
		return "", fmt.Errorf("unsupported auth mode %q", s)
	}
}

// Config describes the endpoint a Sender talks to. It is fixed for the sender's lifetime.
type Config struct {
	Address          string // host:port
	Scheme           string // http or https
	ConnectTimeout   time.Duration
	RequestTimeout   time.Duration
	RetryInterval    time.Duration // wait after the first failed attempt; doubles per retry
	MaxAttempts      int
	AuthMode         AuthMode
	BasicCredentials string // already base64 encoded
}

// Validate checks the endpoint invariants.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.RetryInterval < 0 {
		return errors.New("retry interval must not be negative")
	}
	if c.ConnectTimeout < 0 || c.RequestTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	switch c.AuthMode {
	case "", AuthNone:
	case AuthBasic:
		if strings.TrimSpace(c.BasicCredentials) == "" {
			return errors.New("basic auth requires credentials")
		}
	default:
		return fmt.Errorf("unsupported auth mode %q", c.AuthMode)
	}
	return nil
}
