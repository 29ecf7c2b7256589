/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package anoncreds

import (
	"encoding/json"
)

// CredDefKeys is the key material of a new credential definition
type CredDefKeys struct {
	PublicKey        json.RawMessage
	PrivateKey       json.RawMessage
	CorrectnessProof json.RawMessage
}

type BlindedSecrets struct {
	BlindedMS        json.RawMessage
	CorrectnessProof json.RawMessage
	BlindingFactor   json.RawMessage
}

type SignRequest struct {
	ProverDID                 string
	AttrNames                 []string
	Values                    map[string]AttributeValue
	PublicKey                 json.RawMessage
	PrivateKey                json.RawMessage
	BlindedMS                 json.RawMessage
	BlindedMSCorrectnessProof json.RawMessage
	OfferNonce                string
	RequestNonce              string
}

type Signature struct {
	Signature        json.RawMessage
	CorrectnessProof json.RawMessage
}

// ProvingCredential is one stored credential contributing a sub proof
type ProvingCredential struct {
	AttrNames  []string
	PublicKey  json.RawMessage
	Credential *Credential
	Revealed   []string
	Predicates []PredicateInfo
}

// VerifyingCredential is the published material a verifier checks one sub proof against
type VerifyingCredential struct {
	AttrNames  []string
	PublicKey  json.RawMessage
	Revealed   []string
	Predicates []PredicateInfo
}

// Oracle generates nonces
type Oracle interface {
	NewNonce() (string, error)
}

// Engine is the credential cryptography consumed by the protocols.  Implementations never see
// wallets or the ledger, only the material passed in.
//go:generate mockery -name=Engine
type Engine interface {
	Oracle
	NewMasterSecret() (string, error)
	NewCredentialDefinition(attrNames []string, revocation bool) (*CredDefKeys, error)
	BlindMasterSecret(publicKey, keyCorrectnessProof json.RawMessage, offerNonce, masterSecret string) (*BlindedSecrets, error)
	SignCredential(req *SignRequest) (*Signature, error)
	// ProcessSignature checks an issued credential against the holder's secret and returns the
	// signature form to store
	ProcessSignature(cred *Credential, attrNames []string, publicKey, blindingFactor json.RawMessage, masterSecret, requestNonce string) (json.RawMessage, error)
	CreateProof(creds []*ProvingCredential, masterSecret, nonce string) (json.RawMessage, error)
	// RevealedValues returns the encoded values revealed by one sub proof keyed by AttrCommonView
	RevealedValues(proof json.RawMessage, subProofIndex int) (map[string]string, error)
	// VerifyProof returns false for a well formed proof that does not hold and an error only
	// for malformed input
	VerifyProof(proof json.RawMessage, creds []*VerifyingCredential, nonce string) (bool, error)
}
