/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package anoncreds

import (
	"encoding/json"
)

const (
	// SignatureType is the only credential signature scheme published to the ledger
	SignatureType = "CL"
	DefaultTag    = "default"
	MasterSecret  = "master_secret"
)

type Schema struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	AttrNames []string `json:"attrNames"`
	SeqNo     uint32   `json:"seqNo,omitempty"`
}

// Equal compares the published content of two schemas, ignoring the ledger sequence number
func (r *Schema) Equal(o *Schema) bool {
	if r.ID != o.ID || r.Name != o.Name || r.Version != o.Version || len(r.AttrNames) != len(o.AttrNames) {
		return false
	}

	for i := range r.AttrNames {
		if r.AttrNames[i] != o.AttrNames[i] {
			return false
		}
	}

	return true
}

type CredentialDefinition struct {
	ID                  string          `json:"id"`
	SchemaID            string          `json:"schemaId"`
	IssuerDID           string          `json:"issuerDid"`
	Tag                 string          `json:"tag"`
	Type                string          `json:"type"`
	RevocationSupported bool            `json:"revocationSupported"`
	SchemaSeqNo         uint32          `json:"schemaSeqNo"`
	Value               json.RawMessage `json:"value"`
}

type CredentialOffer struct {
	SchemaID            string          `json:"schema_id"`
	CredDefID           string          `json:"cred_def_id"`
	KeyCorrectnessProof json.RawMessage `json:"key_correctness_proof"`
	Nonce               string          `json:"nonce"`
}

type CredentialRequest struct {
	ProverDID                 string          `json:"prover_did"`
	CredDefID                 string          `json:"cred_def_id"`
	BlindedMS                 json.RawMessage `json:"blinded_ms"`
	BlindedMSCorrectnessProof json.RawMessage `json:"blinded_ms_correctness_proof"`
	Nonce                     string          `json:"nonce"`
}

// RequestMetadata stays with the holder between request and store
type RequestMetadata struct {
	MasterSecretID string          `json:"master_secret_name"`
	BlindingFactor json.RawMessage `json:"master_secret_blinding_data"`
	Nonce          string          `json:"nonce"`
	OfferNonce     string          `json:"offer_nonce"`
}

type AttributeValue struct {
	Raw     string `json:"raw"`
	Encoded string `json:"encoded"`
}

type Credential struct {
	SchemaID                  string                    `json:"schema_id"`
	CredDefID                 string                    `json:"cred_def_id"`
	Values                    map[string]AttributeValue `json:"values"`
	Signature                 json.RawMessage           `json:"signature"`
	SignatureCorrectnessProof json.RawMessage           `json:"signature_correctness_proof"`
}

// CredentialInfo is what a holder search yields for one stored credential
type CredentialInfo struct {
	Referent  string            `json:"referent"`
	Attrs     map[string]string `json:"attrs"`
	SchemaID  string            `json:"schema_id"`
	CredDefID string            `json:"cred_def_id"`
}

type Restriction struct {
	SchemaID   string `json:"schema_id,omitempty"`
	SchemaName string `json:"schema_name,omitempty"`
	IssuerDID  string `json:"issuer_did,omitempty"`
	CredDefID  string `json:"cred_def_id,omitempty"`
}

type AttributeInfo struct {
	Name         string        `json:"name"`
	Restrictions []Restriction `json:"restrictions,omitempty"`
}

type PredicateInfo struct {
	Name         string        `json:"name"`
	PType        string        `json:"p_type"`
	PValue       int32         `json:"p_value"`
	Restrictions []Restriction `json:"restrictions,omitempty"`
}

type ProofRequest struct {
	Name                string                   `json:"name"`
	Version             string                   `json:"version"`
	Nonce               string                   `json:"nonce"`
	RequestedAttributes map[string]AttributeInfo `json:"requested_attributes"`
	RequestedPredicates map[string]PredicateInfo `json:"requested_predicates"`
}

type RequestedAttribute struct {
	CredID   string `json:"cred_id"`
	Revealed bool   `json:"revealed"`
}

type RequestedPredicate struct {
	CredID string `json:"cred_id"`
}

// RequestedCredentials is the holder's selection of one credential per referent
type RequestedCredentials struct {
	SelfAttestedAttrs   map[string]string             `json:"self_attested_attributes"`
	RequestedAttributes map[string]RequestedAttribute `json:"requested_attributes"`
	RequestedPredicates map[string]RequestedPredicate `json:"requested_predicates"`
}

type SubProofIndex struct {
	SubProofIndex int `json:"sub_proof_index"`
}

type RevealedAttr struct {
	SubProofIndex int    `json:"sub_proof_index"`
	Raw           string `json:"raw"`
	Encoded       string `json:"encoded"`
}

type RequestedProof struct {
	RevealedAttrs     map[string]RevealedAttr  `json:"revealed_attrs"`
	SelfAttestedAttrs map[string]string        `json:"self_attested_attrs"`
	UnrevealedAttrs   map[string]SubProofIndex `json:"unrevealed_attrs"`
	Predicates        map[string]SubProofIndex `json:"predicates"`
}

type Identifier struct {
	SchemaID  string `json:"schema_id"`
	CredDefID string `json:"cred_def_id"`
}

type Proof struct {
	Proof          json.RawMessage `json:"proof"`
	RequestedProof RequestedProof  `json:"requested_proof"`
	Identifiers    []Identifier    `json:"identifiers"`
}
