// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"encoding/json"
	"encoding/pem"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/pam-oidc/pam-oidc/internal/httpclient"
	"github.com/stretchr/testify/require"
)

// TestProvider is a local server that supports the OIDC discovery and
// resource owner password credentials endpoints of a provider, which makes
// writing tests much easier.  It accepts the users added with SetUser and
// the client credentials set with SetClientCreds; every other password grant
// request is rejected with the oauth error a real provider would send.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string
	client     *http.Client

	jwks *jose.JSONWebKeySet

	mu               sync.Mutex
	issuer           string
	clientID         string
	clientSecret     string
	users            map[string]string
	authMethods      []string
	grantTypes       []string
	replyExpiry      time.Duration
	tokenDelay       time.Duration
	discoveryDelay   time.Duration
	failTokenStatus  int
	failTokenCode    string
	omitAccessToken  bool
	omitTokenURL     bool
	tokenRequests    int
	lastTokenRequest url.Values
	lastAuthMethod   string

	ecdsaPublicKey  string
	ecdsaPrivateKey string

	t TestingT
}

// StartTestProvider creates and starts a running TestProvider http server.
// Stop() is registered with t.Cleanup() when t supports it.
//
// Supported options: WithNoTLS, WithTestPort
func StartTestProvider(t TestingT, opt ...Option) *TestProvider {
	testHelper(t)
	require := require.New(t)
	opts := getTestProviderOpts(opt...)

	p := &TestProvider{
		t:           t,
		users:       map[string]string{},
		replyExpiry: 5 * time.Minute,
	}
	p.ecdsaPublicKey, p.ecdsaPrivateKey = TestGenerateKeys(t)
	p.jwks = testJWKS(t, p.ecdsaPublicKey)

	addr := "127.0.0.1:0"
	if opts.withPort != 0 {
		addr = net.JoinHostPort("127.0.0.1", strconv.Itoa(opts.withPort))
	}
	l, err := net.Listen("tcp", addr)
	require.NoError(err)
	p.httpServer = &httptest.Server{
		Listener: l,
		Config:   &http.Server{Handler: p, ErrorLog: log.New(io.Discard, "", 0)},
	}

	switch {
	case opts.withNoTLS:
		p.httpServer.Start()
		p.client, err = httpclient.New("")
		require.NoError(err)
	default:
		p.httpServer.StartTLS()
		var buf bytes.Buffer
		err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: p.httpServer.Certificate().Raw})
		require.NoError(err)
		p.caCert = buf.String()
		p.client, err = httpclient.New(p.caCert)
		require.NoError(err)
	}
	p.issuer = p.httpServer.URL

	if c, ok := t.(CleanupT); ok {
		c.Cleanup(p.Stop)
	}
	return p
}

// Stop stops the running TestProvider.  Subsequent connections are refused.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the current base URL for the test provider's running webserver.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.  It's empty when the provider was started WithNoTLS.
func (p *TestProvider) CACert() string { return p.caCert }

// HttpClient returns an http.Client that trusts the test provider.
func (p *TestProvider) HttpClient() *http.Client { return p.client }

// SetClientCreds is for configuring the client information required for the
// token endpoint.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// ClientCreds returns the relying party client information required for the
// token endpoint.
func (p *TestProvider) ClientCreds() (clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clientID, p.clientSecret
}

// SetUser adds (or replaces) a resource owner accepted by the token endpoint.
func (p *TestProvider) SetUser(username, password string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[username] = password
}

// SetIssuer overrides the issuer returned by discovery.  It's useful for
// testing issuer validation.
func (p *TestProvider) SetIssuer(issuer string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issuer = issuer
}

// SetSupportedAuthMethods configures token_endpoint_auth_methods_supported.
// When set, the token endpoint rejects clients that authenticate with any
// other method.
func (p *TestProvider) SetSupportedAuthMethods(methods ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authMethods = methods
}

// SetSupportedGrantTypes configures grant_types_supported in discovery.
func (p *TestProvider) SetSupportedGrantTypes(grantTypes ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grantTypes = grantTypes
}

// SetExpectedExpiry configures the expires_in of issued tokens.
func (p *TestProvider) SetExpectedExpiry(exp time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyExpiry = exp
}

// SetDiscoveryDelay delays every discovery response.  The delay ends early
// when the client goes away.
func (p *TestProvider) SetDiscoveryDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.discoveryDelay = d
}

// SetTokenDelay delays every token response.  The delay ends early when the
// client goes away.
func (p *TestProvider) SetTokenDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenDelay = d
}

// SetTokenFailure forces the token endpoint to reply with the status and
// oauth error code.  A zero status disables it.
func (p *TestProvider) SetTokenFailure(status int, errorCode string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failTokenStatus = status
	p.failTokenCode = errorCode
}

// OmitAccessTokens forces an error state where the token endpoint replies
// 200 without an access_token.
func (p *TestProvider) OmitAccessTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitAccessToken = true
}

// OmitTokenEndpoint removes token_endpoint from discovery.
func (p *TestProvider) OmitTokenEndpoint() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitTokenURL = true
}

// TokenRequests returns how many requests reached the token endpoint.
func (p *TestProvider) TokenRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenRequests
}

// LastTokenRequest returns the form of the last token request and the client
// authentication method it used.
func (p *TestProvider) LastTokenRequest() (url.Values, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastTokenRequest, p.lastAuthMethod
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) error {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}

	w.WriteHeader(statusCode)
	return p.writeJSON(w, &body)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p.mu.Lock()
		delay := p.discoveryDelay
		p.mu.Unlock()
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-req.Context().Done():
				return
			}
		}
		p.mu.Lock()
		reply := struct {
			Issuer            string   `json:"issuer"`
			AuthEndpoint      string   `json:"authorization_endpoint"`
			TokenEndpoint     string   `json:"token_endpoint,omitempty"`
			JWKSURI           string   `json:"jwks_uri"`
			GrantTypes        []string `json:"grant_types_supported,omitempty"`
			TokenAuthMethods  []string `json:"token_endpoint_auth_methods_supported,omitempty"`
			ResponseTypes     []string `json:"response_types_supported"`
			SubjectTypes      []string `json:"subject_types_supported"`
			IDTokenSigningAlg []string `json:"id_token_signing_alg_values_supported"`
		}{
			Issuer:            p.issuer,
			AuthEndpoint:      p.Addr() + "/auth",
			TokenEndpoint:     p.Addr() + "/token",
			JWKSURI:           p.Addr() + "/.well-known/jwks.json",
			GrantTypes:        p.grantTypes,
			TokenAuthMethods:  p.authMethods,
			ResponseTypes:     []string{"code", "id_token"},
			SubjectTypes:      []string{"public"},
			IDTokenSigningAlg: []string{string(jose.ES256)},
		}
		if p.omitTokenURL {
			reply.TokenEndpoint = ""
		}
		p.mu.Unlock()
		_ = p.writeJSON(w, &reply)

	case "/.well-known/jwks.json":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = p.writeJSON(w, p.jwks)

	case "/token":
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p.serveToken(w, req)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (p *TestProvider) serveToken(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "unable to parse form")
		return
	}

	p.mu.Lock()
	p.tokenRequests++
	p.lastTokenRequest = cloneValues(req.PostForm)
	delay := p.tokenDelay
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-req.Context().Done():
			return
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	method, clientID, clientSecret := clientAuth(req)
	p.lastAuthMethod = method

	switch {
	case p.failTokenStatus != 0:
		_ = p.writeTokenErrorResponse(w, p.failTokenStatus, p.failTokenCode, "forced failure")
		return
	case req.PostForm.Get("grant_type") != GrantTypePassword:
		_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "unsupported_grant_type", "bad grant_type")
		return
	case len(p.authMethods) > 0 && !slices.Contains(p.authMethods, method):
		_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "unsupported client authentication method")
		return
	case clientID != p.clientID || clientSecret != p.clientSecret:
		_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "bad client credentials")
		return
	case !slices.Contains(strings.Fields(req.PostForm.Get("scope")), "openid"):
		_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_scope", "openid scope is required")
		return
	}

	username, password := req.PostForm.Get("username"), req.PostForm.Get("password")
	if want, ok := p.users[username]; !ok || username == "" || want != password {
		_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_grant", "invalid username or password")
		return
	}

	now := time.Now()
	stdClaims := jwt.Claims{
		Subject:   username,
		Issuer:    p.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		Expiry:    jwt.NewNumericDate(now.Add(p.replyExpiry)),
		Audience:  jwt.Audience{p.clientID},
	}
	jwtData := TestSignJWT(p.t, p.ecdsaPrivateKey, stdClaims, nil)

	reply := struct {
		AccessToken string `json:"access_token,omitempty"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
		IDToken     string `json:"id_token"`
		Scope       string `json:"scope"`
	}{
		AccessToken: jwtData,
		TokenType:   "Bearer",
		ExpiresIn:   int64(p.replyExpiry.Seconds()),
		IDToken:     jwtData,
		Scope:       req.PostForm.Get("scope"),
	}
	if p.omitAccessToken {
		reply.AccessToken = ""
	}
	_ = p.writeJSON(w, &reply)
}

// clientAuth returns the client authentication method of the request and the
// credentials it carried.
func clientAuth(req *http.Request) (method, clientID, clientSecret string) {
	if id, secret, ok := req.BasicAuth(); ok {
		// RFC 6749, section 2.3.1 form-encodes the basic auth credentials
		if u, err := url.QueryUnescape(id); err == nil {
			id = u
		}
		if u, err := url.QueryUnescape(secret); err == nil {
			secret = u
		}
		return AuthMethodClientSecretBasic, id, secret
	}
	return AuthMethodClientSecretPost, req.PostForm.Get("client_id"), req.PostForm.Get("client_secret")
}

func cloneValues(v url.Values) url.Values {
	c := make(url.Values, len(v))
	for k, vals := range v {
		c[k] = append([]string(nil), vals...)
	}
	return c
}

// testProviderOptions is the set of available options for TestProvider
type testProviderOptions struct {
	withNoTLS bool
	withPort  int
}

// testProviderDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func testProviderDefaults() testProviderOptions {
	return testProviderOptions{}
}

// getTestProviderOpts gets the test provider defaults and applies the opt
// overrides passed in.
func getTestProviderOpts(opt ...Option) testProviderOptions {
	opts := testProviderDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithNoTLS provides the option to not use TLS for the test provider.
func WithNoTLS() Option {
	return func(o interface{}) {
		if o, ok := o.(*testProviderOptions); ok {
			o.withNoTLS = true
		}
	}
}

// WithTestPort provides an optional port for the test provider.
func WithTestPort(port int) Option {
	return func(o interface{}) {
		if o, ok := o.(*testProviderOptions); ok {
			o.withPort = port
		}
	}
}
