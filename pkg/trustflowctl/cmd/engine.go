//go:build !ursa
// +build !ursa

/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"github.com/scoir/trustflow/pkg/anoncreds"
	"github.com/scoir/trustflow/pkg/anoncreds/edsig"
)

func newEngine() anoncreds.Engine {
	return edsig.New()
}
