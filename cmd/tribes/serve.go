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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/uber-common/bark"
	"github.com/uber/tribes-go"
	"github.com/uber/tribes-go/membership"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a channel and log every message it receives",
	RunE:  serve,
}

func serve(cmd *cobra.Command, _ []string) error {
	n, err := newNode(cmd)
	if err != nil {
		return err
	}
	defer n.close()

	quiet, _ := cmd.Flags().GetBool("quiet")
	n.channel.RegisterListener(tribes.MessageListenerFunc(func(payload []byte, source membership.Member) {
		if quiet {
			return
		}
		n.logger.WithFields(bark.Fields{
			"source": source.String(),
			"bytes":  len(payload),
		}).Infof("received %q", payload)
	}))

	if err := n.channel.Start(); err != nil {
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals

	stats := n.channel.Stats()
	n.logger.WithFields(bark.Fields{
		"signal":   sig.String(),
		"received": stats.Receiver.Received,
		"sent":     stats.Sender.Sent,
	}).Info("shutting down")
	return nil
}

func init() {
	serveCmd.Flags().BoolP("quiet", "q", false, "do not log received messages")
}
