/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package presentation builds proof requests, finds and proves matching credentials, and
// verifies the result against the ledger.
package presentation

import (
	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/anoncreds"
)

var logger = log.New("trustflow/presentation")

var (
	ErrIncompleteProof = errors.New("proof does not cover every requested referent")
	ErrProofInvalid    = errors.New("invalid proof")
	ErrInvalidRequest  = errors.New("invalid proof request")
	ErrUnknownReferent = errors.New("referent not in proof request")
)

type State int

const (
	StateRequested State = iota + 1
	StateSearched
	StateProven
	StateVerified
)

func (r State) String() string {
	switch r {
	case StateRequested:
		return "requested"
	case StateSearched:
		return "searched"
	case StateProven:
		return "proven"
	case StateVerified:
		return "verified"
	}
	return "unknown"
}

const proofCategory = "proof"

// findAttr maps a requested attribute name onto a credential attribute name, ignoring case and spaces
func findAttr(attrNames []string, name string) (string, bool) {
	want := anoncreds.AttrCommonView(name)
	for _, a := range attrNames {
		if anoncreds.AttrCommonView(a) == want {
			return a, true
		}
	}

	return "", false
}

func valueNames(values map[string]anoncreds.AttributeValue) []string {
	out := make([]string, 0, len(values))
	for k := range values {
		out = append(out, k)
	}
	return out
}
