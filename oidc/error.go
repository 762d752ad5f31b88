// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
)

var (
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrNilParameter       = errors.New("nil parameter")
	ErrInvalidCACert      = errors.New("invalid CA certificate")
	ErrInvalidIssuer      = errors.New("invalid issuer")
	ErrDiscoveryFailed    = errors.New("provider discovery failed")
	ErrTokenRequestFailed = errors.New("token request failed")
	ErrMissingAccessToken = errors.New("access_token is missing")
)
