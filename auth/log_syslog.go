// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build !windows && !plan9

package auth

import (
	"io"
	"log/syslog"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// priorityWriter writes each line at one syslog priority.
type priorityWriter func(m string) error

func (f priorityWriter) Write(p []byte) (int, error) {
	if err := f(strings.TrimRight(string(p), "\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}

type syslogOut struct {
	*hclog.LeveledWriter
	io.Closer
}

// syslogger is the part of *syslog.Writer used for logging.
type syslogger interface {
	Debug(m string) error
	Info(m string) error
	Warning(m string) error
	Err(m string) error
}

// levelWriters maps hclog levels onto syslog priorities.  Levels without an
// entry (info) are written at LOG_INFO.
func levelWriters(w syslogger) *hclog.LeveledWriter {
	return hclog.NewLeveledWriter(priorityWriter(w.Info), map[hclog.Level]io.Writer{
		hclog.Trace: priorityWriter(w.Debug),
		hclog.Debug: priorityWriter(w.Debug),
		hclog.Warn:  priorityWriter(w.Warning),
		hclog.Error: priorityWriter(w.Err),
	})
}

func syslogOutput(tag string) (io.WriteCloser, error) {
	w, err := syslog.New(syslog.LOG_AUTHPRIV|syslog.LOG_INFO, tag)
	if err != nil {
		return nil, err
	}
	return syslogOut{LeveledWriter: levelWriters(w), Closer: w}, nil
}
