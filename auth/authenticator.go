// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-uuid"
	"github.com/pam-oidc/pam-oidc/config"
	"github.com/pam-oidc/pam-oidc/oidc"
)

// Handle is the part of the host transaction the module reads from.
type Handle interface {
	// User returns the user being authenticated.
	User() (string, error)

	// AuthToken returns the authentication token (password) the user
	// entered.
	AuthToken() (string, error)
}

// Authenticator runs one PAM operation.  It holds no state between calls:
// the config file is read and the provider discovered on every
// Authenticate.
type Authenticator struct {
	configPath string
	logger     hclog.Logger
}

// NewAuthenticator creates a new Authenticator.
// Supported options: WithConfigPath, WithLogger, WithLogOutput
func NewAuthenticator(opt ...Option) *Authenticator {
	opts := getAuthenticatorOpts(opt...)
	logger := opts.withLogger
	if logger == nil {
		logger = newLogger(opts.withLogOutput, hclog.Info)
	}
	return &Authenticator{
		configPath: opts.withConfigPath,
		logger:     logger,
	}
}

// Authenticate verifies the user's password with the OIDC provider using
// the resource owner password credentials grant and returns the PAM result.
func (a *Authenticator) Authenticate(ctx context.Context, h Handle) (result Result) {
	const op = "auth.(Authenticator).Authenticate"
	attempt, err := uuid.GenerateUUID()
	if err != nil {
		attempt = "unknown"
	}
	logger := a.logger.With("attempt", attempt)

	var user string
	defer func() {
		if r := recover(); r != nil {
			err := newError(KindInternal, op, fmt.Errorf("panic: %v", r))
			logger.Error("authentication aborted", "user", user, "kind", err.Kind, "result", err.Kind.Result(), "error", err)
			result = err.Kind.Result()
		}
	}()

	user, err = a.authenticate(ctx, logger, h)
	result = ResultOf(err)
	switch {
	case err == nil:
		logger.Info("authentication succeeded", "user", user, "result", result)
	default:
		logger.Warn("authentication failed", "user", user, "kind", KindOf(err), "result", result, "error", err)
	}
	return result
}

// authenticate returns the user it found on the handle along with the
// outcome so the caller can log it.
func (a *Authenticator) authenticate(ctx context.Context, logger hclog.Logger, h Handle) (string, error) {
	const op = "auth.(Authenticator).authenticate"
	if h == nil {
		return "", newError(KindInternal, op, fmt.Errorf("handle is nil"))
	}

	user, err := h.User()
	switch {
	case err != nil:
		return "", newError(KindInternal, op, fmt.Errorf("%w: %w", ErrMissingUser, err))
	case user == "":
		return "", newError(KindInternal, op, ErrMissingUser)
	}

	password, err := h.AuthToken()
	switch {
	case err != nil:
		return user, newError(KindUTF8, op, fmt.Errorf("%w: %w", ErrMissingAuthToken, err))
	case password == "":
		return user, newError(KindUTF8, op, ErrMissingAuthToken)
	case !utf8.ValidString(password):
		return user, newError(KindUTF8, op, ErrInvalidUTF8)
	}

	c, err := config.Load(config.WithPath(a.configPath))
	if err != nil {
		return user, configError(op, err)
	}
	setLogLevel(logger, c.LogLevel)
	for _, w := range c.Warnings {
		logger.Warn("configuration warning", "warning", string(w))
	}

	oc, err := oidc.NewConfig(
		c.IssuerURL,
		c.ClientID,
		oidc.ClientSecret(c.ClientSecret),
		oidc.WithScopes(c.Scopes...),
		oidc.WithProviderCA(c.ProviderCA),
		oidc.WithDiscoveryTimeout(c.DiscoveryTimeout),
		oidc.WithTokenTimeout(c.TokenTimeout),
		oidc.WithLogger(logger.Named("oidc")),
	)
	if err != nil {
		return user, oidcError(op, err)
	}

	p, err := oidc.NewProvider(ctx, oc)
	if err != nil {
		return user, oidcError(op, err)
	}

	if _, err := p.PasswordCredentials(ctx, user, password); err != nil {
		return user, oidcError(op, err)
	}
	return user, nil
}

// setLogLevel applies the configured log level.  Unknown names leave the
// level unchanged.
func setLogLevel(logger hclog.Logger, name string) {
	lvl := hclog.LevelFromString(strings.TrimSpace(name))
	if lvl == hclog.NoLevel {
		logger.Warn("unknown log_level, keeping current level", "log_level", name)
		return
	}
	logger.SetLevel(lvl)
}

// SetCred is not supported and always returns Ignore.
func (a *Authenticator) SetCred(context.Context, Handle) Result { return Ignore }

// ChangeAuthTok is not supported and always returns Ignore.  Passwords are
// changed at the provider.
func (a *Authenticator) ChangeAuthTok(context.Context, Handle) Result { return Ignore }

// AcctMgmt is not supported and always returns Ignore.
func (a *Authenticator) AcctMgmt(context.Context, Handle) Result { return Ignore }

// OpenSession is not supported and always returns Ignore.
func (a *Authenticator) OpenSession(context.Context, Handle) Result { return Ignore }

// CloseSession is not supported and always returns Ignore.
func (a *Authenticator) CloseSession(context.Context, Handle) Result { return Ignore }
