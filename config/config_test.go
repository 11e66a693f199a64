// Copyright (c) 2015 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/tribes-go/logging"
	"github.com/uber/tribes-go/membership"
)

const full = `
listenAddress = "0.0.0.0:4000"
compression = true
probeInterval = "2s"
bufferPoolCeiling = 1048576

[local]
address = "127.0.0.1:4000"
id = "0a0b"

[[members]]
address = "127.0.0.1:4001"
id = "01"

[[members]]
address = "127.0.0.1:4002"
id = "02"

[sender]
connectTimeout = "500ms"
timeout = "2s"
maxRetries = 3
keepAliveCount = 100
keepAliveTime = "1m"

[receiver]
maxOutstandingWorkers = 8
maxIdleWorkers = 4
readTimeout = "30s"

[stats]
statsdAddress = "127.0.0.1:8125"
statsdPrefix = "tribes"

[log]
level = "debug"
json = true

[log.levels]
sender = "warn"
`

func TestParseFull(t *testing.T) {
	cfg, err := Parse(full)
	require.NoError(t, err)

	local, err := cfg.LocalMember()
	require.NoError(t, err)
	assert.Equal(t, membership.NewMember("127.0.0.1", 4000, []byte{10, 11}), local)

	members, err := cfg.RemoteMembers()
	require.NoError(t, err)
	assert.Equal(t, []membership.Member{
		membership.NewMember("127.0.0.1", 4001, []byte{1}),
		membership.NewMember("127.0.0.1", 4002, []byte{2}),
	}, members)

	assert.True(t, cfg.Compression)
	assert.Equal(t, 2*time.Second, cfg.ProbeInterval.Duration)
	assert.Equal(t, int64(1<<20), cfg.BufferPoolCeiling)

	sender := cfg.SenderOptions()
	assert.Equal(t, 500*time.Millisecond, sender.ConnectTimeout)
	assert.Equal(t, 2*time.Second, sender.Timeout)
	assert.Equal(t, 3, sender.MaxRetries)
	assert.Equal(t, 100, sender.KeepAliveCount)
	assert.Equal(t, time.Minute, sender.KeepAliveTime)
	assert.Nil(t, sender.Clock)

	receiver := cfg.ReceiverOptions()
	assert.Equal(t, 8, receiver.MaxOutstandingWorkers)
	assert.Equal(t, 4, receiver.MaxIdleWorkers)
	assert.Equal(t, 30*time.Second, receiver.ReadTimeout)
	assert.Equal(t, 64*1024, receiver.ReadBufferSize, "expected the default read buffer size")

	levels, err := cfg.LogLevels()
	require.NoError(t, err)
	assert.Equal(t, map[string]logging.Level{"sender": logging.Warn}, levels)
	assert.True(t, cfg.Log.JSON)

	opts, err := cfg.ChannelOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 7)
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse(`
[local]
address = "127.0.0.1:4000"
`)
	require.NoError(t, err)

	assert.Equal(t, kDefaultProbeInterval, cfg.ProbeInterval.Duration)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, time.Second, cfg.Sender.ConnectTimeout.Duration)
	assert.Equal(t, 3*time.Second, cfg.Sender.Timeout.Duration)
	assert.Equal(t, 1, cfg.Sender.MaxRetries)
	assert.Equal(t, 25, cfg.Receiver.MaxOutstandingWorkers)
	assert.Empty(t, cfg.Members)

	opts, err := cfg.ChannelOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 5)
}

func TestInvalid(t *testing.T) {
	tests := map[string]string{
		"no local":        `compression = true`,
		"bad local":       "[local]\naddress = \"nope\"",
		"bad member id":   "[local]\naddress = \"127.0.0.1:1\"\n[[members]]\naddress = \"127.0.0.1:2\"\nid = \"zz\"",
		"bad duration":    "probeInterval = \"soon\"\n[local]\naddress = \"127.0.0.1:1\"",
		"bad level":       "[local]\naddress = \"127.0.0.1:1\"\n[log]\nlevel = \"loud\"",
		"bad named level": "[local]\naddress = \"127.0.0.1:1\"\n[log.levels]\nsender = \"loud\"",
		"unknown key":     "colour = \"blue\"\n[local]\naddress = \"127.0.0.1:1\"",
		"negative retry":  "[local]\naddress = \"127.0.0.1:1\"\n[sender]\nmaxRetries = -1",
	}

	for name, data := range tests {
		_, err := Parse(data)
		assert.Error(t, err, name)
	}

	_, err := Parse(`compression = true`)
	assert.ErrorIs(t, err, ErrNoLocal)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tribes.toml")
	require.NoError(t, os.WriteFile(path, []byte(full), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Members, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))
}
