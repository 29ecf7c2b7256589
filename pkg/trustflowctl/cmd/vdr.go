//go:build !indyvdr
// +build !indyvdr

/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/framework"
)

func openVDR(*framework.LedgerConfig) (ledgerClient, error) {
	return nil, errors.New("trustflow was built without the indyvdr tag")
}
