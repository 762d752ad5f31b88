// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build !windows && !plan9

package auth

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syslogEntry struct {
	priority string
	msg      string
}

type fakeSyslog struct {
	entries []syslogEntry
	err     error
}

func (f *fakeSyslog) add(p, m string) error {
	f.entries = append(f.entries, syslogEntry{priority: p, msg: m})
	return f.err
}

func (f *fakeSyslog) Debug(m string) error   { return f.add("debug", m) }
func (f *fakeSyslog) Info(m string) error    { return f.add("info", m) }
func (f *fakeSyslog) Warning(m string) error { return f.add("warning", m) }
func (f *fakeSyslog) Err(m string) error     { return f.add("err", m) }

func Test_levelWriters(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	fake := &fakeSyslog{}
	l := newLogger(levelWriters(fake), hclog.Trace)
	l.Trace("t")
	l.Debug("d")
	l.Info("i")
	l.Warn("w", "user", "alice")
	l.Error("e")

	require.Len(fake.entries, 5)
	want := []string{"debug", "debug", "info", "warning", "err"}
	for i, e := range fake.entries {
		assert.Equal(want[i], e.priority)
		assert.NotContains(e.msg, "\n")
	}
	assert.Contains(fake.entries[3].msg, "user=alice")
}

func Test_priorityWriter(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	fake := &fakeSyslog{}
	n, err := priorityWriter(fake.Info).Write([]byte("[INFO]  pam_oidc: hello\n"))
	assert.NoError(err)
	assert.Equal(len("[INFO]  pam_oidc: hello\n"), n)
	assert.Equal("[INFO]  pam_oidc: hello", fake.entries[0].msg)

	fake.err = errors.New("syslog down")
	n, err = priorityWriter(fake.Err).Write([]byte("x\n"))
	assert.Error(err)
	assert.Zero(n)
}
