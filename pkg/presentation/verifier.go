/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentation

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/anoncreds"
	"github.com/scoir/trustflow/pkg/registry"
)

type Verifier struct {
	engine   anoncreds.Engine
	registry *registry.Registry

	lock     sync.Mutex
	requests map[string]State
}

func NewVerifier(engine anoncreds.Engine, reg *registry.Registry) *Verifier {
	return &Verifier{engine: engine, registry: reg, requests: map[string]State{}}
}

// BuildProofRequest creates a request with a fresh nonce
func (r *Verifier) BuildProofRequest(name, version string, attrs map[string]anoncreds.AttributeInfo,
	preds map[string]anoncreds.PredicateInfo) (*anoncreds.ProofRequest, error) {

	if len(attrs) == 0 && len(preds) == 0 {
		return nil, errors.Wrap(ErrInvalidRequest, "nothing requested")
	}

	for ref, a := range attrs {
		if strings.TrimSpace(a.Name) == "" {
			return nil, errors.Wrapf(ErrInvalidRequest, "attribute %s has no name", ref)
		}
	}

	for ref, p := range preds {
		if strings.TrimSpace(p.Name) == "" {
			return nil, errors.Wrapf(ErrInvalidRequest, "predicate %s has no name", ref)
		}
		if !anoncreds.ValidPredicateType(p.PType) {
			return nil, errors.Wrapf(ErrInvalidRequest, "predicate %s has unsupported type %q", ref, p.PType)
		}
	}

	nonce, err := r.engine.NewNonce()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create proof request nonce")
	}

	if attrs == nil {
		attrs = map[string]anoncreds.AttributeInfo{}
	}
	if preds == nil {
		preds = map[string]anoncreds.PredicateInfo{}
	}

	r.lock.Lock()
	r.requests[nonce] = StateRequested
	r.lock.Unlock()

	return &anoncreds.ProofRequest{
		Name:                name,
		Version:             version,
		Nonce:               nonce,
		RequestedAttributes: attrs,
		RequestedPredicates: preds,
	}, nil
}

// State reports where the request with nonce stands from this verifier's side
func (r *Verifier) State(nonce string) State {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.requests[nonce]
}

// published is the ledger material behind one proof identifier
type published struct {
	schema  *anoncreds.Schema
	credDef *anoncreds.CredentialDefinition
	pub     json.RawMessage
}

// VerifyProof checks proof against req.  A proof that is well formed but does not hold is
// false.  Missing referents, unresolvable identifiers and caller supplied ledger records that
// disagree with the ledger are errors.
func (r *Verifier) VerifyProof(ctx context.Context, req *anoncreds.ProofRequest, proof *anoncreds.Proof,
	schemas map[string]*anoncreds.Schema, credDefs map[string]*anoncreds.CredentialDefinition) (bool, error) {

	ids, err := r.resolve(ctx, proof.Identifiers, schemas, credDefs)
	if err != nil {
		return false, err
	}

	err = checkCoverage(req, proof, len(ids))
	if err != nil {
		return false, err
	}

	ok, err := r.check(req, proof, ids)
	if err != nil || !ok {
		return false, err
	}

	r.lock.Lock()
	r.requests[req.Nonce] = StateVerified
	r.lock.Unlock()

	logger.Infof("verified proof for %s", req.Name)
	return true, nil
}

func (r *Verifier) resolve(ctx context.Context, identifiers []anoncreds.Identifier, schemas map[string]*anoncreds.Schema,
	credDefs map[string]*anoncreds.CredentialDefinition) ([]*published, error) {

	out := make([]*published, len(identifiers))
	for i, id := range identifiers {
		schema, err := r.registry.ResolveSchema(ctx, id.SchemaID)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to resolve schema %s", id.SchemaID)
		}

		if given, ok := schemas[id.SchemaID]; ok {
			if !given.Equal(schema) || (given.SeqNo != 0 && given.SeqNo != schema.SeqNo) {
				return nil, errors.Wrapf(ErrProofInvalid, "schema %s differs from the ledger", id.SchemaID)
			}
		}

		credDef, err := r.registry.ResolveCredDef(ctx, id.CredDefID)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to resolve credential definition %s", id.CredDefID)
		}

		if given, ok := credDefs[id.CredDefID]; ok {
			if !sameJSON(given.Value, credDef.Value) {
				return nil, errors.Wrapf(ErrProofInvalid, "credential definition %s differs from the ledger", id.CredDefID)
			}
		}

		if credDef.SchemaSeqNo != schema.SeqNo {
			return nil, errors.Wrapf(ErrProofInvalid, "credential definition %s is not for schema %s", id.CredDefID, id.SchemaID)
		}

		pub, err := registry.PublicKey(credDef)
		if err != nil {
			return nil, errors.Wrap(ErrProofInvalid, err.Error())
		}

		out[i] = &published{schema: schema, credDef: credDef, pub: pub}
	}

	return out, nil
}

func checkCoverage(req *anoncreds.ProofRequest, proof *anoncreds.Proof, n int) error {
	rp := proof.RequestedProof
	inRange := func(idx int) bool {
		return idx >= 0 && idx < n
	}

	for ref := range req.RequestedAttributes {
		if a, ok := rp.RevealedAttrs[ref]; ok {
			if !inRange(a.SubProofIndex) {
				return errors.Wrapf(ErrProofInvalid, "attribute %s points at sub proof %d", ref, a.SubProofIndex)
			}
			continue
		}
		if a, ok := rp.UnrevealedAttrs[ref]; ok {
			if !inRange(a.SubProofIndex) {
				return errors.Wrapf(ErrProofInvalid, "attribute %s points at sub proof %d", ref, a.SubProofIndex)
			}
			continue
		}
		if _, ok := rp.SelfAttestedAttrs[ref]; ok {
			continue
		}
		return errors.Wrapf(ErrProofInvalid, "attribute %s missing from proof", ref)
	}

	for ref := range req.RequestedPredicates {
		p, ok := rp.Predicates[ref]
		if !ok {
			return errors.Wrapf(ErrProofInvalid, "predicate %s missing from proof", ref)
		}
		if !inRange(p.SubProofIndex) {
			return errors.Wrapf(ErrProofInvalid, "predicate %s points at sub proof %d", ref, p.SubProofIndex)
		}
	}

	if n > 0 && len(proof.Proof) == 0 {
		return errors.Wrap(ErrProofInvalid, "proof has identifiers but no proof data")
	}

	return nil
}

func (r *Verifier) check(req *anoncreds.ProofRequest, proof *anoncreds.Proof, ids []*published) (bool, error) {
	rp := proof.RequestedProof

	creds := make([]*anoncreds.VerifyingCredential, len(ids))
	for i, p := range ids {
		creds[i] = &anoncreds.VerifyingCredential{AttrNames: p.schema.AttrNames, PublicKey: p.pub}
	}

	restricted := func(restrictions []anoncreds.Restriction, idx int) bool {
		p := ids[idx]
		return anoncreds.MatchesAny(restrictions, proof.Identifiers[idx].SchemaID, p.schema.Name, p.credDef.IssuerDID, p.credDef.ID)
	}

	revealed := map[int]map[string]string{}
	for _, ref := range sortedKeys(req.RequestedAttributes) {
		info := req.RequestedAttributes[ref]

		if _, ok := rp.SelfAttestedAttrs[ref]; ok {
			if _, proven := rp.RevealedAttrs[ref]; !proven {
				if _, proven = rp.UnrevealedAttrs[ref]; !proven && len(info.Restrictions) > 0 {
					logger.Debugf("self attested value for restricted attribute %s", ref)
					return false, nil
				}
			}
		}

		idx := -1
		a, isRevealed := rp.RevealedAttrs[ref]
		if isRevealed {
			idx = a.SubProofIndex
		} else if u, ok := rp.UnrevealedAttrs[ref]; ok {
			idx = u.SubProofIndex
		}
		if idx < 0 {
			continue
		}

		if !restricted(info.Restrictions, idx) {
			logger.Debugf("attribute %s does not meet its restrictions", ref)
			return false, nil
		}

		name, ok := findAttr(ids[idx].schema.AttrNames, info.Name)
		if !ok {
			return false, nil
		}

		if !isRevealed {
			continue
		}

		if !(anoncreds.AttributeValue{Raw: a.Raw, Encoded: a.Encoded}).Consistent() {
			logger.Debugf("raw and encoded values of %s disagree", ref)
			return false, nil
		}

		vals, ok := revealed[idx]
		if !ok {
			var err error
			vals, err = r.engine.RevealedValues(proof.Proof, idx)
			if err != nil {
				return false, errors.Wrap(ErrProofInvalid, err.Error())
			}
			revealed[idx] = vals
		}

		if vals[anoncreds.AttrCommonView(name)] != a.Encoded {
			logger.Debugf("revealed value of %s is not the proven value", ref)
			return false, nil
		}

		if !contains(creds[idx].Revealed, name) {
			creds[idx].Revealed = append(creds[idx].Revealed, name)
		}
	}

	for _, ref := range sortedKeys(req.RequestedPredicates) {
		pred := req.RequestedPredicates[ref]
		idx := rp.Predicates[ref].SubProofIndex

		if !restricted(pred.Restrictions, idx) {
			logger.Debugf("predicate %s does not meet its restrictions", ref)
			return false, nil
		}

		name, ok := findAttr(ids[idx].schema.AttrNames, pred.Name)
		if !ok {
			return false, nil
		}

		p := pred
		p.Name = name
		creds[idx].Predicates = append(creds[idx].Predicates, p)
	}

	if len(creds) == 0 {
		return true, nil
	}

	ok, err := r.engine.VerifyProof(proof.Proof, creds, req.Nonce)
	if err != nil {
		return false, errors.Wrap(ErrProofInvalid, err.Error())
	}

	return ok, nil
}

func sameJSON(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return false
	}

	return bytes.Equal(ca.Bytes(), cb.Bytes())
}
