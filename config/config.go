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

// Package config loads channel configuration from TOML files.
//
//	[local]
//	address = "10.0.0.1:4000"
//	id = "0a0b0c0d"
//
//	[[members]]
//	address = "10.0.0.2:4000"
//	id = "01020304"
//
//	[sender]
//	timeout = "3s"
//	maxRetries = 2
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/uber/tribes-go"
	"github.com/uber/tribes-go/logging"
	"github.com/uber/tribes-go/membership"
	"github.com/uber/tribes-go/transport"
)

const (
	kDefaultLogLevel      = "info"
	kDefaultProbeInterval = tribes.DefaultProbeInterval
)

// ErrNoLocal is returned when the configuration names no local member.
var ErrNoLocal = errors.New("config: local member address is required")

// Duration is a time.Duration written as text, "1s" or "250ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Member is a member written as an address and a hex encoded unique id.
type Member struct {
	Address string `toml:"address"`
	ID      string `toml:"id"`
}

// Member parses m.
func (m Member) Member() (membership.Member, error) {
	return membership.ParseMember(m.Address, m.ID)
}

type SenderConfig struct {
	ConnectTimeout Duration `toml:"connectTimeout"`
	Timeout        Duration `toml:"timeout"`
	MaxRetries     int      `toml:"maxRetries"`
	KeepAliveCount int      `toml:"keepAliveCount"`
	KeepAliveTime  Duration `toml:"keepAliveTime"`
}

type ReceiverConfig struct {
	ReadBufferSize        int      `toml:"readBufferSize"`
	MaxOutstandingWorkers int      `toml:"maxOutstandingWorkers"`
	MaxIdleWorkers        int      `toml:"maxIdleWorkers"`
	ReadTimeout           Duration `toml:"readTimeout"`
}

type StatsConfig struct {
	// StatsdAddress enables reporting to a statsd server.
	StatsdAddress string `toml:"statsdAddress"`
	StatsdPrefix  string `toml:"statsdPrefix"`
	// MetricsAddress enables a Prometheus /metrics endpoint.
	MetricsAddress string `toml:"metricsAddress"`
}

type LogConfig struct {
	Level  string            `toml:"level"`
	JSON   bool              `toml:"json"`
	Levels map[string]string `toml:"levels"`
}

// Config is the configuration of one channel.
type Config struct {
	Local             Member   `toml:"local"`
	ListenAddress     string   `toml:"listenAddress"`
	Members           []Member `toml:"members"`
	Compression       bool     `toml:"compression"`
	ProbeInterval     Duration `toml:"probeInterval"`
	BufferPoolCeiling int64    `toml:"bufferPoolCeiling"`

	Sender   SenderConfig   `toml:"sender"`
	Receiver ReceiverConfig `toml:"receiver"`
	Stats    StatsConfig    `toml:"stats"`
	Log      LogConfig      `toml:"log"`
}

// Load decodes the TOML file at path, fills in defaults and validates the
// result. Keys that do not map to a field are an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return finish(cfg, md)
}

// Parse is Load for a configuration held in memory.
func Parse(data string) (*Config, error) {
	cfg := &Config{}
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return finish(cfg, md)
}

func finish(cfg *Config, md toml.MetaData) (*Config, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("config: unknown keys %s", strings.Join(keys, ", "))
	}

	cfg.SetDefaultIfNotDefined()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) SetDefaultIfNotDefined() {
	if cfg.ProbeInterval.Duration == 0 {
		cfg.ProbeInterval.Duration = kDefaultProbeInterval
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = kDefaultLogLevel
	}

	def := transport.DefaultSenderOptions()
	if cfg.Sender.ConnectTimeout.Duration == 0 {
		cfg.Sender.ConnectTimeout.Duration = def.ConnectTimeout
	}
	if cfg.Sender.Timeout.Duration == 0 {
		cfg.Sender.Timeout.Duration = def.Timeout
	}
	if cfg.Sender.MaxRetries == 0 {
		cfg.Sender.MaxRetries = def.MaxRetries
	}

	rdef := transport.DefaultReceiverOptions()
	if cfg.Receiver.ReadBufferSize == 0 {
		cfg.Receiver.ReadBufferSize = rdef.ReadBufferSize
	}
	if cfg.Receiver.MaxOutstandingWorkers == 0 {
		cfg.Receiver.MaxOutstandingWorkers = rdef.MaxOutstandingWorkers
	}
	if cfg.Receiver.MaxIdleWorkers == 0 {
		cfg.Receiver.MaxIdleWorkers = rdef.MaxIdleWorkers
	}
}

// Validate checks that every member parses and every log level is known.
func (cfg *Config) Validate() error {
	if cfg.Local.Address == "" {
		return ErrNoLocal
	}
	if _, err := cfg.Local.Member(); err != nil {
		return fmt.Errorf("config: local: %w", err)
	}
	if _, err := cfg.RemoteMembers(); err != nil {
		return err
	}
	if _, err := logging.Parse(cfg.Log.Level); err != nil {
		return fmt.Errorf("config: log level: %w", err)
	}
	if _, err := cfg.LogLevels(); err != nil {
		return err
	}
	if cfg.Sender.MaxRetries < 0 {
		return fmt.Errorf("config: sender.maxRetries must not be negative, got %d", cfg.Sender.MaxRetries)
	}
	return nil
}

// LocalMember returns the parsed local member.
func (cfg *Config) LocalMember() (membership.Member, error) {
	return cfg.Local.Member()
}

// RemoteMembers returns the parsed remote members in file order.
func (cfg *Config) RemoteMembers() ([]membership.Member, error) {
	members := make([]membership.Member, 0, len(cfg.Members))
	for i, m := range cfg.Members {
		member, err := m.Member()
		if err != nil {
			return nil, fmt.Errorf("config: members[%d]: %w", i, err)
		}
		members = append(members, member)
	}
	return members, nil
}

// LogLevels returns the per logger levels.
func (cfg *Config) LogLevels() (map[string]logging.Level, error) {
	levels := make(map[string]logging.Level, len(cfg.Log.Levels))
	for name, text := range cfg.Log.Levels {
		level, err := logging.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("config: log level of %q: %w", name, err)
		}
		levels[name] = level
	}
	return levels, nil
}

func (cfg *Config) SenderOptions() *transport.SenderOptions {
	opts := transport.DefaultSenderOptions()
	opts.ConnectTimeout = cfg.Sender.ConnectTimeout.Duration
	opts.Timeout = cfg.Sender.Timeout.Duration
	opts.MaxRetries = cfg.Sender.MaxRetries
	opts.KeepAliveCount = cfg.Sender.KeepAliveCount
	opts.KeepAliveTime = cfg.Sender.KeepAliveTime.Duration
	opts.Clock = nil
	return opts
}

func (cfg *Config) ReceiverOptions() *transport.ReceiverOptions {
	return &transport.ReceiverOptions{
		ReadBufferSize:        cfg.Receiver.ReadBufferSize,
		MaxOutstandingWorkers: cfg.Receiver.MaxOutstandingWorkers,
		MaxIdleWorkers:        cfg.Receiver.MaxIdleWorkers,
		ReadTimeout:           cfg.Receiver.ReadTimeout.Duration,
	}
}

// ChannelOptions returns the channel options the configuration describes.
// Logger and statter are left to the caller.
func (cfg *Config) ChannelOptions() ([]tribes.Option, error) {
	levels, err := cfg.LogLevels()
	if err != nil {
		return nil, err
	}

	opts := []tribes.Option{
		tribes.SenderConfig(cfg.SenderOptions()),
		tribes.ReceiverConfig(cfg.ReceiverOptions()),
		tribes.Compression(cfg.Compression),
		tribes.ProbeInterval(cfg.ProbeInterval.Duration),
		tribes.LogLevels(levels),
	}
	if cfg.ListenAddress != "" {
		opts = append(opts, tribes.ListenAddress(cfg.ListenAddress))
	}
	if cfg.BufferPoolCeiling > 0 {
		opts = append(opts, tribes.BufferPoolCeiling(cfg.BufferPoolCeiling))
	}
	return opts, nil
}
