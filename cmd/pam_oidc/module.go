// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Command pam_oidc is the PAM module.  Build it as a shared object with
// go generate; the go_pam_module tag enables the pam_sm_* exports.
//
// The module reads /etc/pam_oidc/config.yaml on every call and ignores its
// arguments.
package main

import (
	"context"
	"errors"

	"github.com/hashicorp/go-hclog"
	"github.com/msteinert/pam/v2"
	"github.com/pam-oidc/pam-oidc/auth"
)

var pamModule = &module{}

// module runs the PAM operations on top of auth.Authenticator.  Each call
// gets its own authenticator and logger.
type module struct {
	// newAuthenticator is replaced by tests.
	newAuthenticator func(logger hclog.Logger) *auth.Authenticator
}

func (m *module) authenticator() (*auth.Authenticator, func()) {
	logger, closeFn := auth.NewLogger(hclog.Info)
	if m.newAuthenticator != nil {
		return m.newAuthenticator(logger), closeFn
	}
	return auth.NewAuthenticator(auth.WithLogger(logger)), closeFn
}

func (m *module) authenticate(h auth.Handle) error {
	a, closeFn := m.authenticator()
	defer closeFn()
	return toPamError(a.Authenticate(context.Background(), h))
}

func (m *module) setCred() error       { return toPamError(auth.Ignore) }
func (m *module) changeAuthTok() error { return toPamError(auth.Ignore) }
func (m *module) acctMgmt() error      { return toPamError(auth.Ignore) }
func (m *module) openSession() error   { return toPamError(auth.Ignore) }
func (m *module) closeSession() error  { return toPamError(auth.Ignore) }

// toPamError converts a result into a pam.Error.  Success is nil.
func toPamError(r auth.Result) error {
	switch r {
	case auth.Success:
		return nil
	case auth.OpenErr:
		return pam.ErrOpen
	case auth.SystemErr:
		return pam.ErrSystem
	case auth.AuthErr:
		return pam.ErrAuth
	case auth.AuthinfoUnavail:
		return pam.ErrAuthinfoUnavail
	case auth.AuthtokErr:
		return pam.ErrAuthtok
	case auth.Ignore:
		return pam.ErrIgnore
	default:
		return pam.ErrAbort
	}
}

// returnCode is the code handed back to the host for err.  Errors which
// don't carry a pam.Error are system errors.
func returnCode(err error) int {
	if err == nil {
		return 0
	}
	var pamErr pam.Error
	if errors.As(err, &pamErr) {
		return int(pamErr)
	}
	return int(pam.ErrSystem)
}

func main() {}
