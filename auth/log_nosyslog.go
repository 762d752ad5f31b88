// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build windows || plan9

package auth

import (
	"errors"
	"io"
)

func syslogOutput(string) (io.WriteCloser, error) {
	return nil, errors.New("syslog is not supported on this platform")
}
