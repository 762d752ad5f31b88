// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyOpts(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	// nil options and options for another struct are ignored
	opts := configDefaults()
	ApplyOpts(&opts, nil, WithNoTLS(), WithTokenTimeout(3*time.Second))
	assert.Equal(3*time.Second, opts.withTokenTimeout)

	tpOpts := testProviderDefaults()
	ApplyOpts(&tpOpts, WithScopes("email"), WithTestPort(8080))
	assert.Equal(8080, tpOpts.withPort)
	assert.False(tpOpts.withNoTLS)
}
