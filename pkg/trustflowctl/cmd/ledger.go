/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"github.com/hyperledger/aries-framework-go/pkg/storage"
	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/amqp/rabbitmq"
	"github.com/scoir/trustflow/pkg/framework"
	"github.com/scoir/trustflow/pkg/ledger"
	"github.com/scoir/trustflow/pkg/ledger/pool"
)

type ledgerClient interface {
	ledger.Client
	Close() error
}

// openLedger connects to the configured ledger.  The in-process pool publishes its committed
// txns when an amqp queue is configured.
func openLedger() (ledgerClient, error) {
	lc, err := cfg.Ledger()
	if err != nil {
		return nil, errors.Wrap(err, "invalid ledger config")
	}
	lc.Genesis = expand(lc.Genesis)

	switch lc.Kind() {
	case framework.LedgerPool:
		ac, err := cfg.AMQPConfig()
		if err != nil {
			return nil, errors.Wrap(err, "invalid amqp config")
		}
		if ac.Host == "" || ac.Queue == "" {
			return lc.Pool()
		}

		pub, err := rabbitmq.NewPublisher(ac.Endpoint(), ac.Queue)
		if err != nil {
			return nil, err
		}

		p, err := lc.Pool(pool.WithPublisher(pub))
		if err != nil {
			_ = pub.Close()
			return nil, err
		}

		logger.Infof("publishing ledger events to queue %s", ac.Queue)
		return p, nil
	case framework.LedgerVDR:
		return openVDR(lc)
	default:
		return nil, errors.Errorf("unknown ledger client %s", lc.Kind())
	}
}

// walletStore opens the configured wallet storage, in memory when none is configured
func walletStore() (storage.Provider, error) {
	wsc, err := cfg.WalletStore()
	if err != nil {
		return nil, errors.Wrap(err, "invalid wallet store config")
	}

	if wsc.Database == "" {
		wsc.Database = "mem"
	}
	wsc.Path = expand(wsc.Path)

	return wsc.StorageProvider()
}
