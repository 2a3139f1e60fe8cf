package zohocrm

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/growthpath/zohocrm-go/tokensource"
	"github.com/growthpath/zohocrm-go/tokenstore"
)

// TokenStorageType represents the supported access-token storage backends.
type TokenStorageType string

const (
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeEnv     TokenStorageType = "env"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
)

// Default configuration values
const (
	DefaultConfigBaseURL       = "https://www.zohoapis.com/crm/v2"
	DefaultConfigAccountsURL   = tokensource.DefaultAccountsURL
	DefaultConfigTimeout       = 30 * time.Second
	DefaultConfigRetryCount    = 10
	DefaultConfigRetryWait     = 2 * time.Second
	DefaultConfigRetryMaxWait  = 2 * time.Minute
	DefaultConfigAuthStorage   = TokenStorageTypeFile
	defaultKeyringService      = "zohocrm-access-token"
	defaultConfigDirectoryName = "zohocrm"
)

// RetryConfig bounds the transport's automatic retry of transient failures
// (connection errors, 429 and 5xx responses).
type RetryConfig struct {
	// Count is the maximum number of retry attempts per request.
	Count int `json:"count"`
	// Wait is the initial backoff; waits grow exponentially up to MaxWait.
	Wait    time.Duration `json:"wait"`
	MaxWait time.Duration `json:"max_wait"`
}

// AuthConfig holds the OAuth2 credentials and describes where the access
// token document is persisted.
type AuthConfig struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`

	Storage TokenStorageType `json:"storage" validate:"required,oneof=file env keyring"`

	// Storage-specific settings (mutually exclusive based on Storage type)
	TokenDir    string `json:"token_dir,omitempty"`    // For file storage: directory holding access_token.json
	EnvKey      string `json:"env_key,omitempty"`      // For env storage: environment variable name
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring storage: user identifier
}

// NewTokenStore creates a TokenStore from the authentication configuration.
func (a *AuthConfig) NewTokenStore() (tokenstore.TokenStore, error) {
	switch a.Storage {
	case TokenStorageTypeFile:
		return tokenstore.NewFileStore(a.TokenDir)
	case TokenStorageTypeEnv:
		return tokenstore.NewEnvStore(a.EnvKey)
	case TokenStorageTypeKeyring:
		return tokenstore.NewKeyringStore(defaultKeyringService, a.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", a.Storage)
	}
}

// Credentials returns the refresh-grant secrets.
func (a *AuthConfig) Credentials() tokensource.Credentials {
	return tokensource.Credentials{
		RefreshToken: a.RefreshToken,
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
	}
}

// Config holds the client's construction-time configuration.
type Config struct {
	// BaseURL selects the API (production by default; sandbox and other data
	// centers use their own hosts).
	BaseURL     string        `json:"base_url" validate:"required,url"`
	AccountsURL string        `json:"accounts_url" validate:"required,url"`
	Timeout     time.Duration `json:"timeout"`
	Retry       RetryConfig   `json:"retry"`
	Auth        AuthConfig    `json:"auth"`

	// DefaultUserName and DefaultUserID are the fallback returned by
	// FindUserByName for inactive or unknown users.
	DefaultUserName string `json:"default_user_name,omitempty"`
	DefaultUserID   string `json:"default_user_id,omitempty"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultConfigBaseURL
	}
	if c.AccountsURL == "" {
		c.AccountsURL = DefaultConfigAccountsURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultConfigTimeout
	}
	if c.Retry.Count == 0 {
		c.Retry.Count = DefaultConfigRetryCount
	}
	if c.Retry.Wait == 0 {
		c.Retry.Wait = DefaultConfigRetryWait
	}
	if c.Retry.MaxWait == 0 {
		c.Retry.MaxWait = DefaultConfigRetryMaxWait
	}
	if c.Auth.Storage == "" {
		c.Auth.Storage = DefaultConfigAuthStorage
	}

	// Dynamic defaults based on storage type
	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		if c.Auth.TokenDir == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("auth.token_dir required (auto-detect failed: %w)", err)
			}
			c.Auth.TokenDir = filepath.Join(configDir, defaultConfigDirectoryName)
		}
	case TokenStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("auth.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Auth.KeyringUser = currentUser.Username
		}
	case TokenStorageTypeEnv:
		// env_key must be explicitly configured (no sensible default)
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	// The refresh grant writes a new token document on every exchange; env
	// storage is read-only and cannot back it.
	if c.Auth.Storage == TokenStorageTypeEnv {
		return errors.New("refresh-token authentication requires writable storage, env is read-only")
	}

	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		if c.Auth.TokenDir == "" {
			return errors.New("token_dir required for file storage")
		}
	case TokenStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	}

	if (c.DefaultUserName == "") != (c.DefaultUserID == "") {
		return errors.New("default_user_name and default_user_id must be set together")
	}

	return nil
}
