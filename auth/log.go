// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// LoggerName is the name every module log line carries.
const LoggerName = "pam_oidc"

// NewLogger returns the module logger and a func that releases its output.
// Lines go to syslog (LOG_AUTHPRIV) when the daemon is reachable and to
// stderr otherwise.
func NewLogger(level hclog.Level) (hclog.Logger, func()) {
	var out io.Writer = os.Stderr
	closeFn := func() {}
	if w, err := syslogOutput(LoggerName); err == nil {
		out = w
		closeFn = func() { _ = w.Close() }
	}
	return newLogger(out, level), closeFn
}

func newLogger(out io.Writer, level hclog.Level) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:        LoggerName,
		Level:       level,
		Output:      out,
		DisableTime: true,
	})
}
