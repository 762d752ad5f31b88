// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-hclog"
	"github.com/pam-oidc/pam-oidc/internal/httpclient"
)

const (
	// DefaultDiscoveryTimeout bounds the discovery request when no
	// WithDiscoveryTimeout option is given.
	DefaultDiscoveryTimeout = 10 * time.Second

	// DefaultTokenTimeout bounds the token request when no WithTokenTimeout
	// option is given.
	DefaultTokenTimeout = 10 * time.Second
)

// ClientSecret is an oauth client secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// Config represents the configuration for the resource owner password
// credentials flow against a provider.
type Config struct {
	// ClientID is the relying party id
	ClientID string

	// ClientSecret is the relying party secret
	ClientSecret ClientSecret

	// Scopes is the list of scopes to request of the provider.  The required
	// "openid" scope is always first.
	Scopes []string

	// Issuer is a case-sensitive URL string using the https scheme that
	// contains scheme, host, and optionally, port number and path components
	// and no query or fragment components.  The http scheme is accepted for
	// testing.
	Issuer string

	// ProviderCA is an optional CA cert to use when sending requests to the provider.
	ProviderCA string

	// DiscoveryTimeout bounds the discovery request.
	DiscoveryTimeout time.Duration

	// TokenTimeout bounds the token request.
	TokenTimeout time.Duration

	// Logger receives warnings about the provider.  It never receives
	// credentials.
	Logger hclog.Logger
}

// NewConfig composes a new config for a provider.
// Supported options:
//
//	WithScopes
//	WithProviderCA
//	WithDiscoveryTimeout
//	WithTokenTimeout
//	WithLogger
func NewConfig(issuer string, clientID string, clientSecret ClientSecret, opt ...Option) (*Config, error) {
	const op = "NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		Issuer:           issuer,
		ClientID:         clientID,
		ClientSecret:     clientSecret,
		Scopes:           opts.withScopes,
		ProviderCA:       opts.withProviderCA,
		DiscoveryTimeout: opts.withDiscoveryTimeout,
		TokenTimeout:     opts.withTokenTimeout,
		Logger:           opts.withLogger,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid provider config: %w", op, err)
	}
	return c, nil
}

// Validate the provider configuration.  Among other validations, it verifies
// the issuer is an absolute http(s) URL, but it doesn't verify the Issuer is
// discoverable via an http request.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if c.ClientID == "" {
		return fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter)
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("%s: client secret is empty: %w", op, ErrInvalidParameter)
	}
	if c.Issuer == "" {
		return fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidIssuer)
	}
	if _, err := issuerURL(c.Issuer); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if c.DiscoveryTimeout <= 0 {
		return fmt.Errorf("%s: discovery timeout must be positive: %w", op, ErrInvalidParameter)
	}
	if c.TokenTimeout <= 0 {
		return fmt.Errorf("%s: token timeout must be positive: %w", op, ErrInvalidParameter)
	}
	if c.Logger == nil {
		return fmt.Errorf("%s: logger is nil: %w", op, ErrNilParameter)
	}
	return nil
}

// HttpClient is a helper function that creates a new http client for the
// provider configured.  Request deadlines are carried by the contexts of
// NewProvider and Provider.PasswordCredentials.
func (c *Config) HttpClient() (*http.Client, error) {
	const op = "Config.HttpClient"
	client, err := httpclient.New(c.ProviderCA)
	if err != nil {
		if errors.Is(err, httpclient.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// HttpClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key used
// by the github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so the
// returned context works for those packages as well.
func HttpClientContext(ctx context.Context, client *http.Client) context.Context {
	// simple to implement as a wrapper for the coreos package
	return oidc.ClientContext(ctx, client)
}

func issuerURL(issuer string) (*url.URL, error) {
	u, err := url.Parse(issuer)
	if err != nil {
		return nil, fmt.Errorf("issuer %q is not a valid URL: %w: %w", issuer, ErrInvalidIssuer, err)
	}
	switch {
	case u.Scheme != "https" && u.Scheme != "http":
		return nil, fmt.Errorf("issuer %q scheme is not http or https: %w", issuer, ErrInvalidIssuer)
	case u.Host == "":
		return nil, fmt.Errorf("issuer %q has no host: %w", issuer, ErrInvalidIssuer)
	case u.RawQuery != "" || u.Fragment != "":
		return nil, fmt.Errorf("issuer %q must not have a query or fragment: %w", issuer, ErrInvalidIssuer)
	}
	return u, nil
}

// configOptions is the set of available options
type configOptions struct {
	withScopes           []string
	withProviderCA       string
	withDiscoveryTimeout time.Duration
	withTokenTimeout     time.Duration
	withLogger           hclog.Logger
}

// configDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func configDefaults() configOptions {
	return configOptions{
		withScopes:           []string{oidc.ScopeOpenID},
		withDiscoveryTimeout: DefaultDiscoveryTimeout,
		withTokenTimeout:     DefaultTokenTimeout,
		withLogger:           hclog.NewNullLogger(),
	}
}

// getConfigOpts gets the defaults and applies the opt overrides passed
// in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithScopes provides an optional list of scopes requested after "openid".
// Duplicates and empty scopes are dropped.
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			seen := map[string]bool{oidc.ScopeOpenID: true}
			s := []string{oidc.ScopeOpenID}
			for _, scope := range scopes {
				if scope == "" || seen[scope] {
					continue
				}
				seen[scope] = true
				s = append(s, scope)
			}
			o.withScopes = s
		}
	}
}

// WithProviderCA provides an optional CA cert for the provider's config
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithDiscoveryTimeout provides an optional timeout for discovery.  Zero
// keeps the default.
func WithDiscoveryTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok && d != 0 {
			o.withDiscoveryTimeout = d
		}
	}
}

// WithTokenTimeout provides an optional timeout for the token request.  Zero
// keeps the default.
func WithTokenTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok && d != 0 {
			o.withTokenTimeout = d
		}
	}
}

// WithLogger provides an optional logger for the provider's config
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}
