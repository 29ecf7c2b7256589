/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/scoir/trustflow/pkg/amqp"
	"github.com/scoir/trustflow/pkg/amqp/rabbitmq"
	"github.com/scoir/trustflow/pkg/ledger/pool"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Prints the txns the in-process pool commits",
	Long:  `Prints the txns the in-process pool commits, as published to the configured amqp queue`,
	RunE:  listenEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}

func listenEvents(cmd *cobra.Command, _ []string) error {
	ac, err := cfg.AMQPConfig()
	if err != nil {
		return errors.Wrap(err, "invalid amqp config")
	}
	if ac.Queue == "" {
		return errors.New("no amqp queue configured")
	}

	l, err := rabbitmq.NewListener(ac.Endpoint(), ac.Queue)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	return printEvents(cmd.OutOrStdout(), l, stop)
}

// printEvents writes one line per committed txn until stop fires or the delivery channel closes
func printEvents(out io.Writer, l amqp.Listener, stop <-chan os.Signal) error {
	deliveries, err := l.Listen()
	if err != nil {
		return err
	}

	for {
		select {
		case <-stop:
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}

			ev := &pool.Event{}
			err := json.Unmarshal(d.Body, ev)
			if err != nil {
				logger.Warnf("skipping malformed ledger event: %v", err)
				continue
			}

			_, err = io.WriteString(out, formatEvent(ev))
			if err != nil {
				return err
			}
		}
	}
}

func formatEvent(ev *pool.Event) string {
	return fmt.Sprintf("#%d %s %s by %s\n", ev.SeqNo, ev.Type, ev.ID, ev.From)
}
