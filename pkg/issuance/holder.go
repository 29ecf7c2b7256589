/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuance

import (
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/anoncreds"
	"github.com/scoir/trustflow/pkg/identity"
	"github.com/scoir/trustflow/pkg/ledger"
	"github.com/scoir/trustflow/pkg/registry"
	"github.com/scoir/trustflow/pkg/wallet"
)

type masterSecret struct {
	Value string `json:"value"`
}

// request tracks an offer the holder has answered, keyed by the offer nonce
type request struct {
	OfferNonce string `json:"offer_nonce"`
	CredDefID  string `json:"cred_def_id"`
	State      State  `json:"state"`
}

// StoredCredential is a credential in the holder wallet along with what restrictions match on
type StoredCredential struct {
	Referent       string                `json:"referent"`
	Credential     *anoncreds.Credential `json:"credential"`
	MasterSecretID string                `json:"master_secret_id"`
	SchemaName     string                `json:"schema_name"`
	IssuerDID      string                `json:"issuer_did"`
}

// Info is the search view of the credential
func (r *StoredCredential) Info() *anoncreds.CredentialInfo {
	attrs := make(map[string]string, len(r.Credential.Values))
	for k, v := range r.Credential.Values {
		attrs[k] = v.Raw
	}

	return &anoncreds.CredentialInfo{
		Referent:  r.Referent,
		Attrs:     attrs,
		SchemaID:  r.Credential.SchemaID,
		CredDefID: r.Credential.CredDefID,
	}
}

// LoadCredential reads one stored credential by referent
func LoadCredential(w *wallet.Wallet, referent string) (*StoredCredential, error) {
	rec := &StoredCredential{}
	err := w.Get(CredentialCategory, referent, rec)
	if err != nil {
		return nil, errors.Wrapf(err, "credential %s", referent)
	}

	return rec, nil
}

// LoadMasterSecret returns the secret value stored under id
func LoadMasterSecret(w *wallet.Wallet, id string) (string, error) {
	if id == "" {
		id = DefaultMasterSecretID
	}

	ms := &masterSecret{}
	err := w.Get(masterSecretCategory, id, ms)
	if err != nil {
		return "", errors.Wrapf(err, "master secret %s", id)
	}

	return ms.Value, nil
}

type Holder struct {
	engine anoncreds.Engine
}

func NewHolder(engine anoncreds.Engine) *Holder {
	return &Holder{engine: engine}
}

// EnsureMasterSecret creates the master secret id if w does not have it yet and returns its id.
// An empty id selects the default secret.
func (r *Holder) EnsureMasterSecret(w *wallet.Wallet, id string) (string, error) {
	if id == "" {
		id = DefaultMasterSecretID
	}

	err := w.Exclusive(func() error {
		ok, err := w.Has(masterSecretCategory, id)
		if err != nil || ok {
			return err
		}

		v, err := r.engine.NewMasterSecret()
		if err != nil {
			return errors.Wrap(err, "unable to create master secret")
		}

		logger.Debugf("created master secret %s in wallet %s", id, w.ID())
		return w.Put(masterSecretCategory, id, &masterSecret{Value: v})
	})
	if err != nil {
		return "", err
	}

	return id, nil
}

// CreateRequest answers offer with a request bound to the master secret msID.  Each offer
// nonce can be answered once.
func (r *Holder) CreateRequest(w *wallet.Wallet, holder *identity.Identity, offer *anoncreds.CredentialOffer,
	credDef *anoncreds.CredentialDefinition, msID string) (*anoncreds.CredentialRequest, *anoncreds.RequestMetadata, error) {

	if offer.CredDefID != credDef.ID {
		return nil, nil, errors.Errorf("offer is for %s, not %s", offer.CredDefID, credDef.ID)
	}

	if msID == "" {
		msID = DefaultMasterSecretID
	}

	ms, err := LoadMasterSecret(w, msID)
	if err != nil {
		return nil, nil, err
	}

	pub, err := registry.PublicKey(credDef)
	if err != nil {
		return nil, nil, err
	}

	var req *anoncreds.CredentialRequest
	var meta *anoncreds.RequestMetadata
	err = w.Exclusive(func() error {
		used, err := w.Has(requestCategory, offer.Nonce)
		if err != nil {
			return err
		}
		if used {
			return errors.Wrapf(ErrOfferExpired, "offer nonce %s already used", offer.Nonce)
		}

		nonce, err := r.engine.NewNonce()
		if err != nil {
			return errors.Wrap(err, "unable to create request nonce")
		}

		blinded, err := r.engine.BlindMasterSecret(pub, offer.KeyCorrectnessProof, offer.Nonce, ms)
		if err != nil {
			return errors.Wrapf(err, "unable to blind master secret for %s", credDef.ID)
		}

		req = &anoncreds.CredentialRequest{
			ProverDID:                 holder.DID,
			CredDefID:                 credDef.ID,
			BlindedMS:                 blinded.BlindedMS,
			BlindedMSCorrectnessProof: blinded.CorrectnessProof,
			Nonce:                     nonce,
		}

		meta = &anoncreds.RequestMetadata{
			MasterSecretID: msID,
			BlindingFactor: blinded.BlindingFactor,
			Nonce:          nonce,
			OfferNonce:     offer.Nonce,
		}

		return w.Put(requestCategory, offer.Nonce, &request{OfferNonce: offer.Nonce, CredDefID: credDef.ID, State: StateRequested})
	})
	if err != nil {
		return nil, nil, err
	}

	return req, meta, nil
}

// RequestState reports where the holder's answer to the offer with nonce stands
func (r *Holder) RequestState(w *wallet.Wallet, offerNonce string) (State, error) {
	rec := &request{}
	err := w.Get(requestCategory, offerNonce, rec)
	if err != nil {
		return 0, err
	}

	return rec.State, nil
}

// Store checks cred against the master secret named in meta and saves it under a new referent.
// Storing the same credential twice yields two referents.
func (r *Holder) Store(w *wallet.Wallet, cred *anoncreds.Credential, meta *anoncreds.RequestMetadata,
	credDef *anoncreds.CredentialDefinition) (string, error) {

	if cred.CredDefID != credDef.ID {
		return "", errors.Errorf("credential is from %s, not %s", cred.CredDefID, credDef.ID)
	}

	attrNames := make([]string, 0, len(cred.Values))
	for name, v := range cred.Values {
		if !v.Consistent() {
			return "", errors.Wrapf(ErrAttributeMismatch, "value of %s is not encoded from its raw form", name)
		}
		attrNames = append(attrNames, name)
	}
	sort.Strings(attrNames)

	ms, err := LoadMasterSecret(w, meta.MasterSecretID)
	if err != nil {
		return "", err
	}

	pub, err := registry.PublicKey(credDef)
	if err != nil {
		return "", err
	}

	sig, err := r.engine.ProcessSignature(cred, attrNames, pub, meta.BlindingFactor, ms, meta.Nonce)
	if err != nil {
		return "", errors.Wrapf(err, "credential from %s rejected", cred.CredDefID)
	}

	_, schemaName, _, err := ledger.ParseSchemaID(cred.SchemaID)
	if err != nil {
		return "", err
	}

	stored := *cred
	stored.Signature = sig

	rec := &StoredCredential{
		Referent:       uuid.New().String(),
		Credential:     &stored,
		MasterSecretID: meta.MasterSecretID,
		SchemaName:     schemaName,
		IssuerDID:      credDef.IssuerDID,
	}

	err = w.Exclusive(func() error {
		err := w.Put(CredentialCategory, rec.Referent, rec)
		if err != nil {
			return err
		}

		req := &request{}
		err = w.Get(requestCategory, meta.OfferNonce, req)
		if errors.Is(err, wallet.ErrRecordNotFound) {
			return nil
		} else if err != nil {
			return errors.Wrapf(err, "unable to update request for offer %s", meta.OfferNonce)
		}

		req.State = StateStored
		return w.Put(requestCategory, meta.OfferNonce, req)
	})
	if err != nil {
		return "", err
	}

	logger.Infof("stored credential %s from %s", rec.Referent, cred.CredDefID)
	return rec.Referent, nil
}
