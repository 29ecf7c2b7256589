/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package issuance runs the offer, request, issue and store exchange between an issuer and a holder
package issuance

import (
	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/pkg/errors"
)

var logger = log.New("trustflow/issuance")

var (
	ErrOfferExpired      = errors.New("credential offer expired")
	ErrAttributeMismatch = errors.New("credential values do not match the schema")
)

// State of one issuance exchange
type State int

const (
	StateOffered State = iota + 1
	StateRequested
	StateIssued
	StateStored
)

func (r State) String() string {
	switch r {
	case StateOffered:
		return "offered"
	case StateRequested:
		return "requested"
	case StateIssued:
		return "issued"
	case StateStored:
		return "stored"
	}
	return "unknown"
}

const (
	offerCategory        = "cred_offer"
	requestCategory      = "cred_request"
	masterSecretCategory = "master_secret"
	CredentialCategory   = "credential"

	// DefaultMasterSecretID names the master secret used when the caller does not pick one
	DefaultMasterSecretID = "default"
)
