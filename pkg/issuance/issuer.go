/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuance

import (
	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/anoncreds"
	"github.com/scoir/trustflow/pkg/registry"
	"github.com/scoir/trustflow/pkg/wallet"
)

// Offer is the issuer's view of an outstanding offer
type Offer struct {
	anoncreds.CredentialOffer
	State State `json:"state"`
}

type Issuer struct {
	engine anoncreds.Engine
}

func NewIssuer(engine anoncreds.Engine) *Issuer {
	return &Issuer{engine: engine}
}

// CreateOffer offers a credential under credDef, whose keys must be in w.  Every offer has a
// fresh nonce and can be issued against once.
func (r *Issuer) CreateOffer(w *wallet.Wallet, credDef *anoncreds.CredentialDefinition) (*Offer, error) {
	stored, err := registry.LoadCredDef(w, credDef.ID)
	if err != nil {
		return nil, err
	}

	nonce, err := r.engine.NewNonce()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create offer nonce")
	}

	offer := &Offer{
		CredentialOffer: anoncreds.CredentialOffer{
			SchemaID:            stored.SchemaID,
			CredDefID:           credDef.ID,
			KeyCorrectnessProof: stored.CorrectnessProof,
			Nonce:               nonce,
		},
		State: StateOffered,
	}

	err = w.Put(offerCategory, nonce, offer)
	if err != nil {
		return nil, errors.Wrap(err, "unable to save offer")
	}

	logger.Debugf("offered %s with nonce %s", credDef.ID, nonce)
	return offer, nil
}

// OfferState reports where the offer with nonce stands
func (r *Issuer) OfferState(w *wallet.Wallet, nonce string) (State, error) {
	offer := &Offer{}
	err := w.Get(offerCategory, nonce, offer)
	if err != nil {
		return 0, err
	}

	return offer.State, nil
}

// Issue signs values for the holder that sent req in answer to offer
func (r *Issuer) Issue(w *wallet.Wallet, offer *anoncreds.CredentialOffer, req *anoncreds.CredentialRequest,
	values map[string]anoncreds.AttributeValue) (*anoncreds.Credential, error) {

	var cred *anoncreds.Credential
	err := w.Exclusive(func() error {
		rec := &Offer{}
		err := w.Get(offerCategory, offer.Nonce, rec)
		if errors.Is(err, wallet.ErrRecordNotFound) {
			return errors.Wrapf(ErrOfferExpired, "unknown offer nonce %s", offer.Nonce)
		}
		if err != nil {
			return err
		}

		if rec.State != StateOffered {
			return errors.Wrapf(ErrOfferExpired, "offer %s already %s", offer.Nonce, rec.State)
		}

		if req.CredDefID != rec.CredDefID {
			return errors.Wrapf(ErrOfferExpired, "request for %s does not answer offer %s", req.CredDefID, offer.Nonce)
		}

		stored, err := registry.LoadCredDef(w, rec.CredDefID)
		if err != nil {
			return err
		}

		err = checkValues(stored.AttrNames, values)
		if err != nil {
			return err
		}

		pub, err := registry.PublicKey(stored.Definition)
		if err != nil {
			return err
		}

		sig, err := r.engine.SignCredential(&anoncreds.SignRequest{
			ProverDID:                 req.ProverDID,
			AttrNames:                 stored.AttrNames,
			Values:                    values,
			PublicKey:                 pub,
			PrivateKey:                stored.PrivateKey,
			BlindedMS:                 req.BlindedMS,
			BlindedMSCorrectnessProof: req.BlindedMSCorrectnessProof,
			OfferNonce:                rec.Nonce,
			RequestNonce:              req.Nonce,
		})
		if err != nil {
			return errors.Wrapf(err, "unable to sign credential for %s", req.ProverDID)
		}

		rec.State = StateIssued
		err = w.Put(offerCategory, rec.Nonce, rec)
		if err != nil {
			return err
		}

		cred = &anoncreds.Credential{
			SchemaID:                  rec.SchemaID,
			CredDefID:                 rec.CredDefID,
			Values:                    values,
			Signature:                 sig.Signature,
			SignatureCorrectnessProof: sig.CorrectnessProof,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("issued %s to %s", cred.CredDefID, req.ProverDID)
	return cred, nil
}

func checkValues(attrNames []string, values map[string]anoncreds.AttributeValue) error {
	if len(values) != len(attrNames) {
		return errors.Wrapf(ErrAttributeMismatch, "got %d values for %d attributes", len(values), len(attrNames))
	}

	for _, name := range attrNames {
		v, ok := values[name]
		if !ok {
			return errors.Wrapf(ErrAttributeMismatch, "no value for %s", name)
		}

		if !v.Consistent() {
			return errors.Wrapf(ErrAttributeMismatch, "value of %s is not encoded from its raw form", name)
		}
	}

	return nil
}
