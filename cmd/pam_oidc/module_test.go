// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/msteinert/pam/v2"
	"github.com/pam-oidc/pam-oidc/auth"
	"github.com/pam-oidc/pam-oidc/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// fakeHandle stands in for the items of a native PAM handle.
type fakeHandle struct {
	user    string
	authtok string
	itemErr error
}

func (f *fakeHandle) User() (string, error)      { return f.user, f.itemErr }
func (f *fakeHandle) AuthToken() (string, error) { return f.authtok, f.itemErr }

func testModule(t *testing.T, configPath string) *module {
	t.Helper()
	return &module{
		newAuthenticator: func(hclog.Logger) *auth.Authenticator {
			return auth.NewAuthenticator(auth.WithConfigPath(configPath), auth.WithLogOutput(io.Discard))
		},
	}
}

func Test_toPamError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		r    auth.Result
		want error
	}{
		{auth.Success, nil},
		{auth.OpenErr, pam.ErrOpen},
		{auth.SystemErr, pam.ErrSystem},
		{auth.AuthErr, pam.ErrAuth},
		{auth.AuthinfoUnavail, pam.ErrAuthinfoUnavail},
		{auth.AuthtokErr, pam.ErrAuthtok},
		{auth.Ignore, pam.ErrIgnore},
		{auth.Abort, pam.ErrAbort},
		{auth.Result(1000), pam.ErrAbort},
	}
	for _, tt := range tests {
		t.Run(tt.r.String(), func(t *testing.T) {
			assert := assert.New(t)
			got := toPamError(tt.r)
			assert.Equal(tt.want, got)
			if tt.want == nil {
				return
			}
			// the Result values are the Linux-PAM codes
			assert.Equal(int(tt.r), returnCode(got))
		})
	}
}

func Test_returnCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "pam-error", err: pam.ErrAuth, want: int(pam.ErrAuth)},
		{name: "wrapped", err: fmt.Errorf("pam_get_item: %w", pam.ErrAuthtok), want: int(pam.ErrAuthtok)},
		{name: "other", err: errors.New("boom"), want: int(pam.ErrSystem)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, returnCode(tt.err))
		})
	}
}

func TestModule_authenticate(t *testing.T) {
	t.Parallel()
	missing := filepath.Join(t.TempDir(), "config.yaml")

	tp := oidc.StartTestProvider(t)
	tp.SetClientCreds("rp", "rp-secret")
	tp.SetUser("alice", "pw")
	data, err := yaml.Marshal(map[string]interface{}{
		"client_id":     "rp",
		"client_secret": "rp-secret",
		"issuer_url":    tp.Addr(),
		"provider_ca":   tp.CACert(),
	})
	require.NoError(t, err)
	valid := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(valid, data, 0o600))

	tests := []struct {
		name       string
		configPath string
		handle     *fakeHandle
		want       error
	}{
		{name: "success", configPath: valid, handle: &fakeHandle{user: "alice", authtok: "pw"}},
		{name: "wrong-password", configPath: valid, handle: &fakeHandle{user: "alice", authtok: "nope"}, want: pam.ErrAuth},
		{name: "missing-config", configPath: missing, handle: &fakeHandle{user: "alice", authtok: "pw"}, want: pam.ErrOpen},
		{name: "invalid-authtok", configPath: missing, handle: &fakeHandle{user: "alice", authtok: "\xff"}, want: pam.ErrAuthtok},
		{name: "no-user", configPath: missing, handle: &fakeHandle{authtok: "pw"}, want: pam.ErrAbort},
		{name: "item-error", configPath: missing, handle: &fakeHandle{itemErr: pam.ErrSystem}, want: pam.ErrAbort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testModule(t, tt.configPath).authenticate(tt.handle)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestModule_ignored(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	m := testModule(t, filepath.Join(t.TempDir(), "config.yaml"))
	for _, err := range []error{m.setCred(), m.changeAuthTok(), m.acctMgmt(), m.openSession(), m.closeSession()} {
		assert.ErrorIs(err, pam.ErrIgnore)
		assert.Equal(int(auth.Ignore), returnCode(err))
	}
}
