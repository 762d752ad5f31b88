// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package config loads the pam_oidc relying-party configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the module reads its configuration from.
const DefaultPath = "/etc/pam_oidc/config.yaml"

const (
	// DefaultDiscoveryTimeout bounds the provider discovery request.
	DefaultDiscoveryTimeout = 10 * time.Second

	// DefaultTokenTimeout bounds the token endpoint request.
	DefaultTokenTimeout = 10 * time.Second

	// DefaultLogLevel is used when log_level is not set.
	DefaultLogLevel = "info"
)

var (
	// ErrRetrieval means the configuration file could not be opened or read.
	ErrRetrieval = errors.New("config retrieval failed")

	// ErrUnmarshal means the configuration file could not be decoded or is
	// missing required fields.
	ErrUnmarshal = errors.New("config unmarshal failed")

	// ErrInvalidParameter is an invalid parameter error
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ClientSecret is an oauth client secret which redacts itself when printed or
// marshaled.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (s ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (s ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// MarshalYAML will redact the client secret
func (s ClientSecret) MarshalYAML() (interface{}, error) {
	return RedactedClientSecret, nil
}

// Warning is a non-fatal finding about the configuration.
type Warning string

// Config is the relying party configuration of the module.
type Config struct {
	// ClientID is the relying party id
	ClientID string `yaml:"client_id"`

	// ClientSecret is the relying party secret
	ClientSecret ClientSecret `yaml:"client_secret"`

	// IssuerURL is the provider's issuer and the base for discovery.
	IssuerURL string `yaml:"issuer_url"`

	// ProviderCA is an optional PEM bundle used instead of the system trust
	// store.
	ProviderCA string `yaml:"provider_ca,omitempty"`

	// Scopes are requested in addition to "openid".
	Scopes []string `yaml:"scopes,omitempty"`

	DiscoveryTimeout time.Duration `yaml:"discovery_timeout,omitempty"`
	TokenTimeout     time.Duration `yaml:"token_timeout,omitempty"`

	// LogLevel is an hclog level name.
	LogLevel string `yaml:"log_level,omitempty"`

	// Warnings found while loading the file.
	Warnings []Warning `yaml:"-"`
}

// Load reads the configuration file, applies defaults and validates it.
// Supported options: WithPath
func Load(opt ...Option) (*Config, error) {
	const op = "config.Load"
	opts := getOpts(opt...)

	data, err := os.ReadFile(opts.withPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrRetrieval, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, opts.withPath, err)
	}
	if w := checkPermissions(opts.withPath); w != "" {
		c.Warnings = append(c.Warnings, w)
	}
	return c, nil
}

// Parse decodes a configuration document, applies defaults and validates
// the result.
func Parse(data []byte) (*Config, error) {
	const op = "config.Parse"
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnmarshal, err)
	}
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnmarshal, err)
	}
	return &c, nil
}

func (c *Config) setDefaults() {
	if c.DiscoveryTimeout == 0 {
		c.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	if c.TokenTimeout == 0 {
		c.TokenTimeout = DefaultTokenTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate the configuration.  It verifies the required fields are not
// empty, but it doesn't verify the issuer is a well formed URL; that's left
// to the oidc client.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrInvalidParameter)
	}
	var errs *multierror.Error
	if c.ClientID == "" {
		errs = multierror.Append(errs, fmt.Errorf("client_id is empty: %w", ErrInvalidParameter))
	}
	if c.ClientSecret == "" {
		errs = multierror.Append(errs, fmt.Errorf("client_secret is empty: %w", ErrInvalidParameter))
	}
	if c.IssuerURL == "" {
		errs = multierror.Append(errs, fmt.Errorf("issuer_url is empty: %w", ErrInvalidParameter))
	}
	if c.DiscoveryTimeout < 0 {
		errs = multierror.Append(errs, fmt.Errorf("discovery_timeout is negative: %w", ErrInvalidParameter))
	}
	if c.TokenTimeout < 0 {
		errs = multierror.Append(errs, fmt.Errorf("token_timeout is negative: %w", ErrInvalidParameter))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// checkPermissions returns a warning when the file is readable by other
// users.  Stat failures are ignored since the file was just read.
func checkPermissions(path string) Warning {
	fi, err := os.Stat(path)
	if err != nil {
		return ""
	}
	if fi.Mode().Perm()&0o004 != 0 {
		return Warning(fmt.Sprintf("%s is world-readable (mode %#o) and contains client_secret", path, fi.Mode().Perm()))
	}
	return ""
}
