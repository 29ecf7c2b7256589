/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package registry

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/anoncreds"
	"github.com/scoir/trustflow/pkg/identity"
	"github.com/scoir/trustflow/pkg/ledger"
	"github.com/scoir/trustflow/pkg/wallet"
)

const credDefCategory = "cred_def"

// credDefData is the CLAIM_DEF data published to the ledger
type credDefData struct {
	Primary    json.RawMessage `json:"primary"`
	Revocation json.RawMessage `json:"revocation,omitempty"`
}

// StoredCredDef is the issuer side record of a credential definition, private key included
type StoredCredDef struct {
	Definition       *anoncreds.CredentialDefinition `json:"definition"`
	SchemaID         string                          `json:"schema_id"`
	AttrNames        []string                        `json:"attr_names"`
	PrivateKey       json.RawMessage                 `json:"private_key"`
	CorrectnessProof json.RawMessage                 `json:"key_correctness_proof"`
}

// PublicKey returns the primary public key out of the published value
func PublicKey(def *anoncreds.CredentialDefinition) (json.RawMessage, error) {
	data := &credDefData{}
	err := json.Unmarshal(def.Value, data)
	if err != nil || len(data.Primary) == 0 {
		return nil, errors.Errorf("credential definition %s has no primary key", def.ID)
	}

	return data.Primary, nil
}

// LoadCredDef reads the issuer record for id from w
func LoadCredDef(w *wallet.Wallet, id string) (*StoredCredDef, error) {
	rec := &StoredCredDef{}
	err := w.Get(credDefCategory, id, rec)
	if err != nil {
		return nil, errors.Wrapf(err, "no key material for credential definition %s", id)
	}

	return rec, nil
}

// CreateAndPublishCredDef creates keys for schema under tag and publishes the public part.
// The id is fixed by issuer, schema and tag, so when w already holds keys for it the stored
// definition is published again instead.
func (r *Registry) CreateAndPublishCredDef(ctx context.Context, issuer *identity.Identity, w *wallet.Wallet,
	schema *anoncreds.Schema, tag string, revocation bool, opts ...PublishOption) (*anoncreds.CredentialDefinition, error) {

	if tag == "" {
		tag = anoncreds.DefaultTag
	}

	seqNo := schema.SeqNo
	if seqNo == 0 {
		published, err := r.ResolveSchema(ctx, schema.ID)
		if err != nil {
			return nil, errors.Wrap(err, "schema must be published before a credential definition")
		}
		seqNo = published.SeqNo
	}

	id := ledger.CredDefID(issuer.DID, seqNo, tag)

	var rec *StoredCredDef
	err := w.Exclusive(func() error {
		ok, err := w.Has(credDefCategory, id)
		if err != nil {
			return err
		}

		if ok {
			rec, err = LoadCredDef(w, id)
			logger.Debugf("reusing stored keys for %s", id)
			return err
		}

		keys, err := r.engine.NewCredentialDefinition(schema.AttrNames, revocation)
		if err != nil {
			return errors.Wrapf(err, "unable to create keys for %s", id)
		}

		data := &credDefData{Primary: keys.PublicKey}
		if revocation {
			data.Revocation = json.RawMessage(`{}`)
		}

		value, err := json.Marshal(data)
		if err != nil {
			return errors.Wrap(err, "unable to marshal credential definition")
		}

		rec = &StoredCredDef{
			Definition: &anoncreds.CredentialDefinition{
				ID:                  id,
				SchemaID:            strconv.FormatUint(uint64(seqNo), 10),
				IssuerDID:           issuer.DID,
				Tag:                 tag,
				Type:                anoncreds.SignatureType,
				RevocationSupported: revocation,
				SchemaSeqNo:         seqNo,
				Value:               value,
			},
			SchemaID:         schema.ID,
			AttrNames:        schema.AttrNames,
			PrivateKey:       keys.PrivateKey,
			CorrectnessProof: keys.CorrectnessProof,
		}

		return w.Put(credDefCategory, id, rec)
	})
	if err != nil {
		return nil, err
	}

	req, err := ledger.NewClaimDef(issuer.DID, seqNo, tag, rec.Definition.Value)
	if err != nil {
		return nil, err
	}

	_, err = r.submit(ctx, issuer, w, req, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to publish credential definition %s", id)
	}

	logger.Infof("published credential definition %s", id)
	return rec.Definition, nil
}

// ResolveCredDef reads a credential definition from the ledger.  SchemaID carries the schema
// sequence number, which is all the ledger records.
func (r *Registry) ResolveCredDef(ctx context.Context, id string) (*anoncreds.CredentialDefinition, error) {
	issuerDID, seqNo, tag, err := ledger.ParseCredDefID(id)
	if err != nil {
		return nil, err
	}

	req, err := ledger.NewGetClaimDef(issuerDID, issuerDID, seqNo, tag)
	if err != nil {
		return nil, err
	}

	resp, err := r.read(ctx, req, id)
	if err != nil {
		return nil, err
	}

	data := &credDefData{}
	err = resp.DecodeData(data)
	if err != nil {
		return nil, err
	}

	return &anoncreds.CredentialDefinition{
		ID:                  id,
		SchemaID:            strconv.FormatUint(uint64(seqNo), 10),
		IssuerDID:           issuerDID,
		Tag:                 tag,
		Type:                anoncreds.SignatureType,
		RevocationSupported: len(data.Revocation) > 0,
		SchemaSeqNo:         seqNo,
		Value:               resp.Result.Data,
	}, nil
}
