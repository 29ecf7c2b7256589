//go:build indyvdr
// +build indyvdr

/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"github.com/scoir/trustflow/pkg/framework"
	"github.com/scoir/trustflow/pkg/ledger/vdr"
)

func openVDR(lc *framework.LedgerConfig) (ledgerClient, error) {
	f, err := lc.OpenGenesis()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return vdr.New(f)
}
