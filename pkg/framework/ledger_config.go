/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package framework

import (
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/ledger/pool"
)

const (
	LedgerPool = "pool"
	LedgerVDR  = "vdr"
)

// LedgerConfig names the genesis file of the pool to connect to and how to reach it
type LedgerConfig struct {
	Client  string        `mapstructure:"client"`
	Genesis string        `mapstructure:"genesis"`
	Latency time.Duration `mapstructure:"latency"`
}

// Kind is the configured client, defaulting to the in-process pool
func (r *LedgerConfig) Kind() string {
	if r.Client == "" {
		return LedgerPool
	}
	return r.Client
}

func (r *LedgerConfig) OpenGenesis() (*os.File, error) {
	if r.Genesis == "" {
		return nil, errors.New("no ledger genesis file was provided")
	}

	f, err := os.Open(r.Genesis)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open ledger genesis file")
	}

	return f, nil
}

// Pool starts the in-process pool from the genesis file
func (r *LedgerConfig) Pool(opts ...pool.Option) (*pool.Pool, error) {
	if r.Kind() != LedgerPool {
		return nil, errors.Errorf("ledger client %s is not the in-process pool", r.Kind())
	}

	f, err := r.OpenGenesis()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if r.Latency > 0 {
		opts = append(opts, pool.WithLatency(r.Latency))
	}

	return pool.Open(f, opts...)
}
