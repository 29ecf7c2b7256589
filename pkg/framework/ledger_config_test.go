/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package framework

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scoir/trustflow/pkg/did"
	"github.com/scoir/trustflow/pkg/ledger"
	"github.com/scoir/trustflow/pkg/ledger/pool"
)

func writeGenesis(t *testing.T) string {
	trustee, kp, err := did.CreateMyDid(&did.MyDIDInfo{Seed: "000000000000000000000000Trustee1", Cid: true})
	require.NoError(t, err)

	f, err := ioutil.TempFile("", "genesis")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	err = pool.WriteGenesis(f, pool.GenesisNym(1, trustee.DIDVal.DID, kp.Verkey(), ledger.RoleTrustee))
	require.NoError(t, err)

	return f.Name()
}

func TestLedgerConfig(t *testing.T) {
	t.Run("pool from genesis", func(t *testing.T) {
		path := writeGenesis(t)
		defer func() { _ = os.Remove(path) }()

		lc := &LedgerConfig{Genesis: path}
		require.Equal(t, LedgerPool, lc.Kind())

		p, err := lc.Pool()
		require.NoError(t, err)
		require.Equal(t, uint32(1), p.Size())
		require.NoError(t, p.Close())
	})

	t.Run("no genesis", func(t *testing.T) {
		lc := &LedgerConfig{}

		p, err := lc.Pool()
		require.Error(t, err)
		require.Contains(t, err.Error(), "no ledger genesis file was provided")
		require.Nil(t, p)
	})

	t.Run("missing genesis", func(t *testing.T) {
		lc := &LedgerConfig{Genesis: "/does/not/exist.txn"}

		_, err := lc.Pool()
		require.Error(t, err)
	})

	t.Run("vdr is not the pool", func(t *testing.T) {
		lc := &LedgerConfig{Client: LedgerVDR, Genesis: "genesis.txn"}

		_, err := lc.Pool()
		require.Error(t, err)
	})
}
