// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Token endpoint client authentication methods from the OIDC Discovery
// metadata.
const (
	AuthMethodClientSecretBasic = "client_secret_basic"
	AuthMethodClientSecretPost  = "client_secret_post"
)

// GrantTypePassword is the resource owner password credentials grant type.
const GrantTypePassword = "password"

// Provider provides integration with a provider using the resource owner
// password credentials grant.
type Provider struct {
	config   *Config
	provider *oidc.Provider
	client   *http.Client
	endpoint oauth2.Endpoint
}

// providerMetadata holds the discovery fields go-oidc doesn't expose.
type providerMetadata struct {
	GrantTypesSupported               []string `json:"grant_types_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
}

// NewProvider creates and initializes a Provider.  Initializing the provider
// includes making an http request to the provider's issuer for discovery,
// bounded by the config's DiscoveryTimeout.  The discovered issuer must match
// the configured one.
func NewProvider(ctx context.Context, c *Config) (*Provider, error) {
	const op = "NewProvider"
	if c == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider config is invalid: %w", op, err)
	}
	u, err := issuerURL(c.Issuer)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u.Scheme == "http" {
		c.Logger.Warn("issuer does not use https; this is only suitable for testing", "issuer", c.Issuer)
	}

	client, err := c.HttpClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}

	dctx, cancel := context.WithTimeout(ctx, c.DiscoveryTimeout)
	defer cancel()
	provider, err := oidc.NewProvider(HttpClientContext(dctx, client), c.Issuer) // makes http req to issuer for discovery
	if err != nil {
		return nil, fmt.Errorf("%s: unable to discover provider: %w: %w", op, ErrDiscoveryFailed, err)
	}

	var md providerMetadata
	if err := provider.Claims(&md); err != nil {
		return nil, fmt.Errorf("%s: unable to read provider metadata: %w: %w", op, ErrDiscoveryFailed, err)
	}
	endpoint := provider.Endpoint()
	if endpoint.TokenURL == "" {
		return nil, fmt.Errorf("%s: provider metadata has no token_endpoint: %w", op, ErrDiscoveryFailed)
	}
	if len(md.GrantTypesSupported) > 0 && !slices.Contains(md.GrantTypesSupported, GrantTypePassword) {
		c.Logger.Warn("provider does not advertise the password grant", "grant_types_supported", md.GrantTypesSupported)
	}
	endpoint.AuthStyle = authStyle(md.TokenEndpointAuthMethodsSupported)
	c.Logger.Debug("discovered provider", "issuer", c.Issuer, "token_endpoint", endpoint.TokenURL, "auth_style", authStyleName(endpoint.AuthStyle))

	return &Provider{
		config:   c,
		provider: provider,
		client:   client,
		endpoint: endpoint,
	}, nil
}

// TokenEndpoint returns the discovered token endpoint.
func (p *Provider) TokenEndpoint() string {
	return p.endpoint.TokenURL
}

// AuthStyle returns how the client credentials are sent to the token
// endpoint.
func (p *Provider) AuthStyle() oauth2.AuthStyle {
	return p.endpoint.AuthStyle
}

// PasswordCredentials requests a token from the provider's token endpoint
// using the resource owner password credentials grant (RFC 6749, section
// 4.3), bounded by the config's TokenTimeout.
//
// Any failure, including a non-2xx response, a network error or a timeout,
// wraps ErrTokenRequestFailed.  Error messages carry the oauth error code and
// http status of the response, never its body.
func (p *Provider) PasswordCredentials(ctx context.Context, username, password string) (*Token, error) {
	const op = "Provider.PasswordCredentials"
	if p == nil || p.config == nil {
		return nil, fmt.Errorf("%s: provider is not initialized: %w", op, ErrNilParameter)
	}
	if username == "" {
		return nil, fmt.Errorf("%s: username is empty: %w", op, ErrInvalidParameter)
	}
	if password == "" {
		return nil, fmt.Errorf("%s: password is empty: %w", op, ErrInvalidParameter)
	}

	oauth2Config := oauth2.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: string(p.config.ClientSecret),
		Endpoint:     p.endpoint,
		Scopes:       p.config.Scopes,
	}

	tctx, cancel := context.WithTimeout(ctx, p.config.TokenTimeout)
	defer cancel()
	oauth2Token, err := oauth2Config.PasswordCredentialsToken(HttpClientContext(tctx, p.client), username, password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			// RetrieveError.Error() includes the response body
			return nil, fmt.Errorf("%s: %w: %s", op, ErrTokenRequestFailed, describeRetrieveError(re))
		}
		return nil, fmt.Errorf("%s: %w: %w", op, ErrTokenRequestFailed, err)
	}
	if oauth2Token.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrTokenRequestFailed, ErrMissingAccessToken)
	}
	return &Token{
		AccessToken: AccessToken(oauth2Token.AccessToken),
		TokenType:   oauth2Token.Type(),
		Expiry:      oauth2Token.Expiry,
	}, nil
}

func describeRetrieveError(re *oauth2.RetrieveError) string {
	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	if re.ErrorCode == "" {
		return fmt.Sprintf("token endpoint returned status %d", status)
	}
	return fmt.Sprintf("token endpoint returned status %d: %s", status, re.ErrorCode)
}

// authStyle picks http basic auth unless the provider only accepts the
// client secret in the request body.
func authStyle(methods []string) oauth2.AuthStyle {
	if slices.Contains(methods, AuthMethodClientSecretPost) && !slices.Contains(methods, AuthMethodClientSecretBasic) {
		return oauth2.AuthStyleInParams
	}
	return oauth2.AuthStyleInHeader
}

func authStyleName(s oauth2.AuthStyle) string {
	switch s {
	case oauth2.AuthStyleInParams:
		return AuthMethodClientSecretPost
	case oauth2.AuthStyleInHeader:
		return AuthMethodClientSecretBasic
	default:
		return "auto"
	}
}
