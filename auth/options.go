// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/pam-oidc/pam-oidc/config"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

type authenticatorOptions struct {
	withConfigPath string
	withLogger     hclog.Logger
	withLogOutput  io.Writer
}

func authenticatorDefaults() authenticatorOptions {
	return authenticatorOptions{
		withConfigPath: config.DefaultPath,
	}
}

func getAuthenticatorOpts(opt ...Option) authenticatorOptions {
	opts := authenticatorDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithConfigPath provides an optional path to the configuration file.
func WithConfigPath(p string) Option {
	return func(o interface{}) {
		if o, ok := o.(*authenticatorOptions); ok && p != "" {
			o.withConfigPath = p
		}
	}
}

// WithLogger provides an optional logger.  The default logger writes to
// stderr.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*authenticatorOptions); ok {
			o.withLogger = l
		}
	}
}

// WithLogOutput provides an optional writer for the default logger.  It's
// ignored when WithLogger is also used.
func WithLogOutput(w io.Writer) Option {
	return func(o interface{}) {
		if o, ok := o.(*authenticatorOptions); ok {
			o.withLogOutput = w
		}
	}
}
