// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSecret_String(t *testing.T) {
	t.Parallel()
	t.Run("redacted", func(t *testing.T) {
		assert := assert.New(t)
		const want = RedactedClientSecret
		secret := ClientSecret("bob's phone number")
		assert.Equalf(want, secret.String(), "ClientSecret.String() = %v, want %v", secret.String(), want)
	})
}

func TestClientSecret_MarshalJSON(t *testing.T) {
	t.Parallel()
	t.Run("redacted", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		want := fmt.Sprintf(`"%s"`, RedactedClientSecret)
		secret := ClientSecret("bob's phone number")
		got, err := secret.MarshalJSON()
		require.NoError(err)
		assert.Equalf([]byte(want), got, "ClientSecret.MarshalJSON() = %s, want %s", got, want)
	})
}

func TestNewConfig(t *testing.T) {
	t.Parallel()
	testLogger := hclog.New(&hclog.LoggerOptions{Name: "test"})

	type args struct {
		issuer       string
		clientID     string
		clientSecret ClientSecret
		opt          []Option
	}
	tests := []struct {
		name      string
		args      args
		want      *Config
		wantErr   bool
		wantIsErr error
	}{
		{
			name: "valid-with-all-valid-opts",
			args: args{
				issuer:       "https://YOUR_ISSUER/",
				clientID:     "YOUR_CLIENT_ID",
				clientSecret: "YOUR_CLIENT_SECRET",
				opt: []Option{
					WithScopes("email", "profile", "openid", ""),
					WithProviderCA("PEM"),
					WithDiscoveryTimeout(time.Second),
					WithTokenTimeout(2 * time.Second),
					WithLogger(testLogger),
				},
			},
			want: &Config{
				Issuer:           "https://YOUR_ISSUER/",
				ClientID:         "YOUR_CLIENT_ID",
				ClientSecret:     "YOUR_CLIENT_SECRET",
				Scopes:           []string{"openid", "email", "profile"},
				ProviderCA:       "PEM",
				DiscoveryTimeout: time.Second,
				TokenTimeout:     2 * time.Second,
				Logger:           testLogger,
			},
		},
		{
			name: "valid-defaults",
			args: args{
				issuer:       "http://YOUR_ISSUER",
				clientID:     "YOUR_CLIENT_ID",
				clientSecret: "YOUR_CLIENT_SECRET",
				opt:          []Option{WithTokenTimeout(0), WithLogger(nil)},
			},
			want: &Config{
				Issuer:           "http://YOUR_ISSUER",
				ClientID:         "YOUR_CLIENT_ID",
				ClientSecret:     "YOUR_CLIENT_SECRET",
				Scopes:           []string{"openid"},
				DiscoveryTimeout: DefaultDiscoveryTimeout,
				TokenTimeout:     DefaultTokenTimeout,
				Logger:           hclog.NewNullLogger(),
			},
		},
		{
			name: "empty-issuer",
			args: args{
				clientID:     "YOUR_CLIENT_ID",
				clientSecret: "YOUR_CLIENT_SECRET",
			},
			wantErr:   true,
			wantIsErr: ErrInvalidIssuer,
		},
		{
			name: "bad-issuer-scheme",
			args: args{
				issuer:       "ldap://bad-scheme",
				clientID:     "YOUR_CLIENT_ID",
				clientSecret: "YOUR_CLIENT_SECRET",
			},
			wantErr:   true,
			wantIsErr: ErrInvalidIssuer,
		},
		{
			name: "bad-issuer-url",
			args: args{
				issuer:       "http://bad-url\\",
				clientID:     "YOUR_CLIENT_ID",
				clientSecret: "YOUR_CLIENT_SECRET",
			},
			wantErr:   true,
			wantIsErr: ErrInvalidIssuer,
		},
		{
			name: "relative-issuer",
			args: args{
				issuer:       "idp.test",
				clientID:     "YOUR_CLIENT_ID",
				clientSecret: "YOUR_CLIENT_SECRET",
			},
			wantErr:   true,
			wantIsErr: ErrInvalidIssuer,
		},
		{
			name: "issuer-with-query",
			args: args{
				issuer:       "https://idp.test/?tenant=a",
				clientID:     "YOUR_CLIENT_ID",
				clientSecret: "YOUR_CLIENT_SECRET",
			},
			wantErr:   true,
			wantIsErr: ErrInvalidIssuer,
		},
		{
			name: "empty-client-id",
			args: args{
				issuer:       "https://YOUR_ISSUER/",
				clientSecret: "YOUR_CLIENT_SECRET",
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "empty-client-secret",
			args: args{
				issuer:   "https://YOUR_ISSUER/",
				clientID: "YOUR_CLIENT_ID",
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "negative-timeout",
			args: args{
				issuer:       "https://YOUR_ISSUER/",
				clientID:     "YOUR_CLIENT_ID",
				clientSecret: "YOUR_CLIENT_SECRET",
				opt:          []Option{WithDiscoveryTimeout(-time.Second)},
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := NewConfig(tt.args.issuer, tt.args.clientID, tt.args.clientSecret, tt.args.opt...)
			if tt.wantErr {
				require.Error(err)
				assert.Nil(got)
				if tt.wantIsErr != nil {
					assert.ErrorIs(err, tt.wantIsErr)
				}
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, got)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	t.Run("nil", func(t *testing.T) {
		var c *Config
		assert.ErrorIs(t, c.Validate(), ErrNilParameter)
	})
	t.Run("nil-logger", func(t *testing.T) {
		c := &Config{
			Issuer:           "https://idp.test",
			ClientID:         "rp",
			ClientSecret:     "s3cr3t",
			DiscoveryTimeout: time.Second,
			TokenTimeout:     time.Second,
		}
		assert.ErrorIs(t, c.Validate(), ErrNilParameter)
	})
}

func TestConfig_HttpClient(t *testing.T) {
	t.Parallel()
	tp := StartTestProvider(t)

	t.Run("with-provider-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewConfig(tp.Addr(), "rp", "s3cr3t", WithProviderCA(tp.CACert()))
		require.NoError(err)
		client, err := c.HttpClient()
		require.NoError(err)
		resp, err := client.Get(tp.Addr() + "/.well-known/openid-configuration")
		require.NoError(err)
		defer resp.Body.Close()
		assert.Equal(200, resp.StatusCode)
	})
	t.Run("bad-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewConfig(tp.Addr(), "rp", "s3cr3t", WithProviderCA("not a cert"))
		require.NoError(err)
		client, err := c.HttpClient()
		assert.Nil(client)
		assert.ErrorIs(err, ErrInvalidCACert)
	})
}
