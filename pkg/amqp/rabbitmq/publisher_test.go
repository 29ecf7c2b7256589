/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rabbitmq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnreachableBroker(t *testing.T) {
	t.Run("bad address publisher", func(t *testing.T) {
		publisher, err := NewPublisher("amqp://localhost:9999/", "trustflow-ledger-events")
		require.Error(t, err)
		require.Contains(t, err.Error(), "unable to dial AMQP")
		require.Nil(t, publisher)
	})

	t.Run("bad address listener", func(t *testing.T) {
		listener, err := NewListener("amqp://localhost:9999/", "trustflow-ledger-events")
		require.Error(t, err)
		require.Nil(t, listener)
	})
}
