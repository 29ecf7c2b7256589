/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import "github.com/scoir/trustflow/pkg/framework"

type Provider interface {
	Load(file string) Config
}

// Config is layered: Load reads the base file and every With call merges another one in
type Config interface {
	WithAMQP(opts ...Option) Config
	AMQPAddress() string
	AMQPConfig() (*framework.AMQPConfig, error)

	WithWalletStore(opts ...Option) Config
	WalletStore() (*framework.WalletStoreConfig, error)

	WithLedger(opts ...Option) Config
	Ledger() (*framework.LedgerConfig, error)

	GetString(s string) string
	GetInt(s string) int
	GetBool(s string) bool

	Endpoint(s string) (*framework.Endpoint, error)

	LogLevel() string
}
