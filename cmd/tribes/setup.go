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

package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/cactus/go-statsd-client/statsd"
	"github.com/spf13/cobra"
	"github.com/uber-common/bark"
	"github.com/uber/tribes-go"
	"github.com/uber/tribes-go/config"
	"github.com/uber/tribes-go/logging"
	"github.com/uber/tribes-go/stats"
)

// node is a channel built from a configuration file together with whatever
// has to be torn down with it.
type node struct {
	cfg     *config.Config
	channel *tribes.Channel
	logger  bark.Logger
	closers []func()
}

func (n *node) close() {
	if n.channel != nil {
		n.channel.Stop()
	}
	for i := len(n.closers) - 1; i >= 0; i-- {
		n.closers[i]()
	}
}

func newNode(cmd *cobra.Command, extra ...tribes.Option) (*node, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogrus(os.Stderr, cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return nil, err
	}

	n := &node{cfg: cfg, logger: logger}
	statter, err := n.statter()
	if err != nil {
		n.close()
		return nil, err
	}

	opts, err := cfg.ChannelOptions()
	if err != nil {
		n.close()
		return nil, err
	}
	opts = append(opts, tribes.Logger(logger), tribes.Statter(statter))
	opts = append(opts, extra...)

	local, err := cfg.LocalMember()
	if err != nil {
		n.close()
		return nil, err
	}
	n.channel, err = tribes.New(local, opts...)
	if err != nil {
		n.close()
		return nil, err
	}

	members, err := cfg.RemoteMembers()
	if err != nil {
		n.close()
		return nil, err
	}
	for _, m := range members {
		n.channel.MemberAdded(m)
	}
	return n, nil
}

// statter returns the stats reporter the configuration asks for. Statsd and
// Prometheus can be used together.
func (n *node) statter() (bark.StatsReporter, error) {
	var reporters stats.MultiReporter

	if addr := n.cfg.Stats.StatsdAddress; addr != "" {
		client, err := statsd.NewClient(addr, n.cfg.Stats.StatsdPrefix)
		if err != nil {
			return nil, fmt.Errorf("statsd: %w", err)
		}
		n.closers = append(n.closers, func() { client.Close() })
		reporters = append(reporters, bark.NewStatsReporterFromCactus(client))
	}

	if addr := n.cfg.Stats.MetricsAddress; addr != "" {
		prom := stats.NewPrometheusReporter("", nil)
		mux := http.NewServeMux()
		mux.Handle("/metrics", prom.Handler())
		server := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				n.logger.WithField("error", err.Error()).Error("metrics endpoint failed")
			}
		}()
		n.closers = append(n.closers, func() { server.Close() })
		reporters = append(reporters, prom)
	}

	return reporters, nil
}
