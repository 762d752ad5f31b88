// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"errors"
	"fmt"

	"github.com/pam-oidc/pam-oidc/config"
	"github.com/pam-oidc/pam-oidc/oidc"
)

var (
	// ErrMissingUser is returned when the host has no user for the
	// transaction.
	ErrMissingUser = errors.New("user is missing")

	// ErrMissingAuthToken is returned when the host has no authentication
	// token for the transaction.
	ErrMissingAuthToken = errors.New("authentication token is missing")

	// ErrInvalidUTF8 is returned when the authentication token isn't valid
	// UTF-8.
	ErrInvalidUTF8 = errors.New("authentication token is not valid UTF-8")
)

// Kind classifies why an authentication attempt failed.
type Kind int

const (
	// KindInternal is an invariant violation.  It's the zero Kind so an
	// unclassified error aborts.
	KindInternal Kind = iota
	KindURLParse
	KindDiscovery
	KindRequestToken
	KindConfigRetrieval
	KindConfigUnmarshal
	KindUTF8
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindURLParse:
		return "UrlParseError"
	case KindDiscovery:
		return "DiscoveryError"
	case KindRequestToken:
		return "RequestTokenError"
	case KindConfigRetrieval:
		return "ConfigRetrievalError"
	case KindConfigUnmarshal:
		return "ConfigUnmarshalError"
	case KindUTF8:
		return "Utf8Error"
	default:
		return "Internal"
	}
}

// Result maps the kind onto the PAM result returned to the host.
func (k Kind) Result() Result {
	switch k {
	case KindRequestToken:
		return AuthErr
	case KindDiscovery:
		return AuthinfoUnavail
	case KindConfigRetrieval:
		return OpenErr
	case KindUTF8:
		return AuthtokErr
	default:
		// KindURLParse, KindConfigUnmarshal, KindInternal
		return Abort
	}
}

// Error is a failed authentication attempt.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func newError(k Kind, op string, err error) *Error {
	return &Error{Kind: k, Op: op, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err.  Errors which aren't an *Error are
// KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ResultOf maps an authentication outcome onto a PAM result: nil is Success
// and every error maps through its Kind.
func ResultOf(err error) Result {
	if err == nil {
		return Success
	}
	return KindOf(err).Result()
}

// configError classifies an error from the config package.
func configError(op string, err error) *Error {
	switch {
	case errors.Is(err, config.ErrRetrieval):
		return newError(KindConfigRetrieval, op, err)
	case errors.Is(err, config.ErrUnmarshal):
		return newError(KindConfigUnmarshal, op, err)
	default:
		return newError(KindInternal, op, err)
	}
}

// oidcError classifies an error from the oidc package.
func oidcError(op string, err error) *Error {
	switch {
	case errors.Is(err, oidc.ErrInvalidIssuer):
		return newError(KindURLParse, op, err)
	case errors.Is(err, oidc.ErrInvalidCACert):
		return newError(KindConfigUnmarshal, op, err)
	case errors.Is(err, oidc.ErrDiscoveryFailed):
		return newError(KindDiscovery, op, err)
	case errors.Is(err, oidc.ErrTokenRequestFailed):
		return newError(KindRequestToken, op, err)
	default:
		return newError(KindInternal, op, err)
	}
}
