/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentation

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/anoncreds"
	"github.com/scoir/trustflow/pkg/issuance"
	"github.com/scoir/trustflow/pkg/registry"
	"github.com/scoir/trustflow/pkg/wallet"
)

type proofRecord struct {
	Nonce string           `json:"nonce"`
	Name  string           `json:"name"`
	State State            `json:"state"`
	Proof *anoncreds.Proof `json:"proof"`
}

type Holder struct {
	engine anoncreds.Engine
}

func NewHolder(engine anoncreds.Engine) *Holder {
	return &Holder{engine: engine}
}

// SearchCredentials opens a search of w for req.  The caller must Close it.
func (r *Holder) SearchCredentials(w *wallet.Wallet, req *anoncreds.ProofRequest) (*Search, error) {
	return OpenSearch(w, req)
}

// subProof collects what one credential contributes to a proof
type subProof struct {
	index int
	rec   *issuance.StoredCredential
	cred  *anoncreds.ProvingCredential
}

// ConstructProof proves req from the credentials chosen in selections.  Every referent needs a
// credential or, for attributes, a self attested value.
func (r *Holder) ConstructProof(w *wallet.Wallet, req *anoncreds.ProofRequest, selections *anoncreds.RequestedCredentials,
	msID string, schemas map[string]*anoncreds.Schema, credDefs map[string]*anoncreds.CredentialDefinition) (*anoncreds.Proof, error) {

	if selections == nil {
		selections = &anoncreds.RequestedCredentials{}
	}

	out := &anoncreds.Proof{
		RequestedProof: anoncreds.RequestedProof{
			RevealedAttrs:     map[string]anoncreds.RevealedAttr{},
			SelfAttestedAttrs: map[string]string{},
			UnrevealedAttrs:   map[string]anoncreds.SubProofIndex{},
			Predicates:        map[string]anoncreds.SubProofIndex{},
		},
	}

	var order []*subProof
	byCred := map[string]*subProof{}
	use := func(credID string) (*subProof, error) {
		if sp, ok := byCred[credID]; ok {
			return sp, nil
		}

		rec, err := issuance.LoadCredential(w, credID)
		if err != nil {
			return nil, err
		}

		schema, ok := schemas[rec.Credential.SchemaID]
		if !ok {
			return nil, errors.Errorf("schema %s not supplied", rec.Credential.SchemaID)
		}

		credDef, ok := credDefs[rec.Credential.CredDefID]
		if !ok {
			return nil, errors.Errorf("credential definition %s not supplied", rec.Credential.CredDefID)
		}

		pub, err := registry.PublicKey(credDef)
		if err != nil {
			return nil, err
		}

		sp := &subProof{
			index: len(order),
			rec:   rec,
			cred: &anoncreds.ProvingCredential{
				AttrNames:  schema.AttrNames,
				PublicKey:  pub,
				Credential: rec.Credential,
			},
		}
		byCred[credID] = sp
		order = append(order, sp)
		return sp, nil
	}

	for _, ref := range sortedKeys(req.RequestedAttributes) {
		info := req.RequestedAttributes[ref]

		sel, ok := selections.RequestedAttributes[ref]
		if !ok {
			v, self := selections.SelfAttestedAttrs[ref]
			if !self {
				return nil, errors.Wrapf(ErrIncompleteProof, "no credential or value for attribute %s", ref)
			}
			out.RequestedProof.SelfAttestedAttrs[ref] = v
			continue
		}

		sp, err := use(sel.CredID)
		if err != nil {
			return nil, err
		}

		name, ok := findAttr(valueNames(sp.rec.Credential.Values), info.Name)
		if !ok {
			return nil, errors.Errorf("credential %s has no attribute %s", sel.CredID, info.Name)
		}

		if !sel.Revealed {
			out.RequestedProof.UnrevealedAttrs[ref] = anoncreds.SubProofIndex{SubProofIndex: sp.index}
			continue
		}

		v := sp.rec.Credential.Values[name]
		out.RequestedProof.RevealedAttrs[ref] = anoncreds.RevealedAttr{SubProofIndex: sp.index, Raw: v.Raw, Encoded: v.Encoded}
		if !contains(sp.cred.Revealed, name) {
			sp.cred.Revealed = append(sp.cred.Revealed, name)
		}
	}

	for _, ref := range sortedKeys(req.RequestedPredicates) {
		pred := req.RequestedPredicates[ref]

		sel, ok := selections.RequestedPredicates[ref]
		if !ok {
			return nil, errors.Wrapf(ErrIncompleteProof, "no credential for predicate %s", ref)
		}

		sp, err := use(sel.CredID)
		if err != nil {
			return nil, err
		}

		name, ok := findAttr(valueNames(sp.rec.Credential.Values), pred.Name)
		if !ok {
			return nil, errors.Errorf("credential %s has no attribute %s", sel.CredID, pred.Name)
		}

		p := pred
		p.Name = name
		sp.cred.Predicates = append(sp.cred.Predicates, p)
		out.RequestedProof.Predicates[ref] = anoncreds.SubProofIndex{SubProofIndex: sp.index}
	}

	ms, err := issuance.LoadMasterSecret(w, msID)
	if err != nil {
		return nil, err
	}

	creds := make([]*anoncreds.ProvingCredential, len(order))
	for i, sp := range order {
		creds[i] = sp.cred
		out.Identifiers = append(out.Identifiers, anoncreds.Identifier{
			SchemaID:  sp.rec.Credential.SchemaID,
			CredDefID: sp.rec.Credential.CredDefID,
		})
	}

	if len(creds) > 0 {
		out.Proof, err = r.engine.CreateProof(creds, ms, req.Nonce)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to prove %s", req.Name)
		}
	}

	err = w.Put(proofCategory, req.Nonce, &proofRecord{Nonce: req.Nonce, Name: req.Name, State: StateProven, Proof: out})
	if err != nil {
		return nil, err
	}

	logger.Debugf("proved %s from %d credentials", req.Name, len(creds))
	return out, nil
}

// ProofState reports whether w has produced a proof for the request with nonce
func (r *Holder) ProofState(w *wallet.Wallet, nonce string) (State, error) {
	rec := &proofRecord{}
	err := w.Get(proofCategory, nonce, rec)
	if err != nil {
		return 0, err
	}

	return rec.State, nil
}

func sortedKeys(m interface{}) []string {
	var out []string
	switch t := m.(type) {
	case map[string]anoncreds.AttributeInfo:
		for k := range t {
			out = append(out, k)
		}
	case map[string]anoncreds.PredicateInfo:
		for k := range t {
			out = append(out, k)
		}
	}

	sort.Strings(out)
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
