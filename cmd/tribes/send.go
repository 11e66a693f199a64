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
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/uber/tribes-go"
	"github.com/uber/tribes-go/message"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Broadcast a payload to the configured members",
	Long: `send starts a channel from the configuration, broadcasts one payload to
every configured member and prints the outcome per member. The process exits
non-zero when any member was not reached.`,
	RunE: send,
}

func send(cmd *cobra.Command, _ []string) error {
	payload, _ := cmd.Flags().GetString("payload")
	ack, _ := cmd.Flags().GetBool("ack")
	sync, _ := cmd.Flags().GetBool("sync")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	// listening is not needed to send
	n, err := newNode(cmd, tribes.ListenAddress("127.0.0.1:0"), tribes.ProbeInterval(-1))
	if err != nil {
		return err
	}
	defer n.close()

	if err := n.channel.Start(); err != nil {
		return err
	}

	options := message.OptionByteMessage
	if ack || sync {
		options |= message.OptionUseAck
	}
	if sync {
		options |= message.OptionSyncAck
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result := n.channel.BroadcastContext(ctx, []byte(payload), nil, options)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "message %s\n", result.ID)
	for _, r := range result.Results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		fmt.Fprintf(out, "  %-40s attempts=%d %-10s %s\n", r.Member, r.Attempts, r.Duration.Round(time.Microsecond), status)
	}
	return result.Err()
}

func init() {
	sendCmd.Flags().StringP("payload", "p", "", "payload to broadcast")
	sendCmd.Flags().Bool("ack", false, "wait for the receivers to acknowledge")
	sendCmd.Flags().Bool("sync", false, "wait until the receivers processed the message")
	sendCmd.Flags().Duration("timeout", 10*time.Second, "give up after this long")
	_ = sendCmd.MarkFlagRequired("payload")
}
