/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hyperledger/aries-framework-go/pkg/storage/mem"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/scoir/trustflow/pkg/anoncreds"
	"github.com/scoir/trustflow/pkg/anoncreds/edsig"
	"github.com/scoir/trustflow/pkg/did"
	"github.com/scoir/trustflow/pkg/identity"
	"github.com/scoir/trustflow/pkg/issuance"
	"github.com/scoir/trustflow/pkg/ledger"
	"github.com/scoir/trustflow/pkg/ledger/pool"
	"github.com/scoir/trustflow/pkg/registry"
	"github.com/scoir/trustflow/pkg/wallet"
)

var transcript = []string{"first_name", "last_name", "degree", "status", "ssn", "year", "average"}

type fixture struct {
	reg      *registry.Registry
	holder   *Holder
	verifier *Verifier
	issuer   *issuance.Issuer
	credHold *issuance.Holder

	faber   *identity.Identity
	fw      *wallet.Wallet
	alice   *identity.Identity
	aw      *wallet.Wallet
	schema  *anoncreds.Schema
	credDef *anoncreds.CredentialDefinition
	wallets *wallet.Manager
}

func newFixture(t *testing.T) *fixture {
	return newEngineFixture(t, edsig.New())
}

func newEngineFixture(t *testing.T, engine anoncreds.Engine) *fixture {
	ctx := context.Background()

	const seed = "000000000000000000000000Trustee1"
	d, kp, err := did.CreateMyDid(&did.MyDIDInfo{Seed: seed, Cid: true})
	require.NoError(t, err)

	p, err := pool.New([]*pool.GenesisTxn{pool.GenesisNym(1, d.DIDVal.DID, kp.Verkey(), ledger.RoleTrustee)})
	require.NoError(t, err)

	lr := identity.NewRegistry(p)
	ids := identity.NewManager(lr)

	f := &fixture{
		reg:      registry.New(lr, engine),
		holder:   NewHolder(engine),
		issuer:   issuance.NewIssuer(engine),
		credHold: issuance.NewHolder(engine),
		wallets:  wallet.NewManager(mem.NewProvider()),
	}
	f.verifier = NewVerifier(engine, f.reg)

	tw := f.wallet(t, "trustee")
	trustee, err := ids.CreateIdentity(tw, seed)
	require.NoError(t, err)

	f.fw = f.wallet(t, "faber")
	f.faber, err = ids.CreateIdentity(f.fw, "")
	require.NoError(t, err)
	f.faber, err = ids.RegisterIdentity(ctx, f.fw, f.faber, trustee, tw, ledger.RoleEndorser)
	require.NoError(t, err)

	f.aw = f.wallet(t, "alice")
	f.alice, err = ids.CreateIdentity(f.aw, "")
	require.NoError(t, err)
	_, err = f.credHold.EnsureMasterSecret(f.aw, "")
	require.NoError(t, err)

	s, err := f.reg.CreateSchema(f.faber, "Transcript", "1.2", transcript)
	require.NoError(t, err)
	f.schema, err = f.reg.PublishSchema(ctx, f.faber, f.fw, s)
	require.NoError(t, err)

	f.credDef, err = f.reg.CreateAndPublishCredDef(ctx, f.faber, f.fw, f.schema, "TAG1", false)
	require.NoError(t, err)

	return f
}

func (r *fixture) wallet(t *testing.T, name string) *wallet.Wallet {
	cfg := wallet.Config{ID: name}
	creds := wallet.Credentials{Key: name + "_wallet_key"}
	require.NoError(t, r.wallets.Create(cfg, creds))

	w, err := r.wallets.Open(cfg, creds)
	require.NoError(t, err)
	return w
}

func (r *fixture) issueTranscript(t *testing.T, average string) string {
	offer, err := r.issuer.CreateOffer(r.fw, r.credDef)
	require.NoError(t, err)

	req, meta, err := r.credHold.CreateRequest(r.aw, r.alice, &offer.CredentialOffer, r.credDef, "")
	require.NoError(t, err)

	cred, err := r.issuer.Issue(r.fw, &offer.CredentialOffer, req, anoncreds.NewAttributeValues(map[string]interface{}{
		"first_name": "Alice",
		"last_name":  "Garcia",
		"degree":     "Bachelor of Science, Marketing",
		"status":     "graduated",
		"ssn":        "123-45-6789",
		"year":       "2015",
		"average":    average,
	}))
	require.NoError(t, err)

	ref, err := r.credHold.Store(r.aw, cred, meta, r.credDef)
	require.NoError(t, err)
	return ref
}

func (r *fixture) jobApplication(t *testing.T) *anoncreds.ProofRequest {
	restrict := []anoncreds.Restriction{{CredDefID: r.credDef.ID}}
	req, err := r.verifier.BuildProofRequest("Job-Application", "0.1",
		map[string]anoncreds.AttributeInfo{
			"attr1_referent": {Name: "first_name"},
			"attr2_referent": {Name: "last_name"},
			"attr3_referent": {Name: "degree", Restrictions: restrict},
			"attr4_referent": {Name: "status", Restrictions: restrict},
			"attr5_referent": {Name: "ssn", Restrictions: restrict},
			"attr6_referent": {Name: "phone_number"},
		},
		map[string]anoncreds.PredicateInfo{
			"predicate1_referent": {Name: "average", PType: anoncreds.PredicateGE, PValue: 4, Restrictions: restrict},
		})
	require.NoError(t, err)
	return req
}

func (r *fixture) selections(ref string) *anoncreds.RequestedCredentials {
	return &anoncreds.RequestedCredentials{
		SelfAttestedAttrs: map[string]string{
			"attr1_referent": "Alice",
			"attr2_referent": "Garcia",
			"attr6_referent": "123-45-6789",
		},
		RequestedAttributes: map[string]anoncreds.RequestedAttribute{
			"attr3_referent": {CredID: ref, Revealed: true},
			"attr4_referent": {CredID: ref, Revealed: true},
			"attr5_referent": {CredID: ref, Revealed: true},
		},
		RequestedPredicates: map[string]anoncreds.RequestedPredicate{
			"predicate1_referent": {CredID: ref},
		},
	}
}

func (r *fixture) ledgerCopies() (map[string]*anoncreds.Schema, map[string]*anoncreds.CredentialDefinition) {
	return map[string]*anoncreds.Schema{r.schema.ID: r.schema},
		map[string]*anoncreds.CredentialDefinition{r.credDef.ID: r.credDef}
}

func TestBuildProofRequest(t *testing.T) {
	v := NewVerifier(edsig.New(), nil)

	t.Run("empty", func(t *testing.T) {
		_, err := v.BuildProofRequest("x", "1.0", nil, nil)
		require.True(t, errors.Is(err, ErrInvalidRequest))
	})

	t.Run("bad predicate", func(t *testing.T) {
		_, err := v.BuildProofRequest("x", "1.0", nil, map[string]anoncreds.PredicateInfo{
			"p": {Name: "average", PType: "=="},
		})
		require.True(t, errors.Is(err, ErrInvalidRequest))
	})

	t.Run("unnamed attribute", func(t *testing.T) {
		_, err := v.BuildProofRequest("x", "1.0", map[string]anoncreds.AttributeInfo{"a": {}}, nil)
		require.True(t, errors.Is(err, ErrInvalidRequest))
	})

	t.Run("fresh nonces", func(t *testing.T) {
		attrs := map[string]anoncreds.AttributeInfo{"a": {Name: "name"}}
		a, err := v.BuildProofRequest("x", "1.0", attrs, nil)
		require.NoError(t, err)
		b, err := v.BuildProofRequest("x", "1.0", attrs, nil)
		require.NoError(t, err)
		require.NotEqual(t, a.Nonce, b.Nonce)
		require.NotNil(t, a.RequestedPredicates)
		require.Equal(t, StateRequested, v.State(a.Nonce))
	})
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ref := f.issueTranscript(t, "5")
	req := f.jobApplication(t)

	t.Run("cursor per referent", func(t *testing.T) {
		s, err := f.holder.SearchCredentials(f.aw, req)
		require.NoError(t, err)
		require.Equal(t, 1, f.aw.OpenHandles())
		require.Equal(t, StateSearched, s.State())

		c, err := s.Referent("attr3_referent")
		require.NoError(t, err)
		got, err := c.Fetch(10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, ref, got[0].Referent)
		require.Equal(t, "Bachelor of Science, Marketing", got[0].Attrs["degree"])

		got, err = c.Fetch(10)
		require.NoError(t, err)
		require.Empty(t, got)

		c, err = s.Referent("attr3_referent")
		require.NoError(t, err)
		info, ok, err := c.Next()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, ref, info.Referent)

		c, err = s.Referent("attr6_referent")
		require.NoError(t, err)
		got, err = c.Fetch(10)
		require.NoError(t, err)
		require.Empty(t, got)

		c, err = s.Referent("predicate1_referent")
		require.NoError(t, err)
		got, err = c.Fetch(1)
		require.NoError(t, err)
		require.Len(t, got, 1)

		_, err = s.Referent("nope")
		require.True(t, errors.Is(err, ErrUnknownReferent))

		s.Close()
		s.Close()
		require.Equal(t, 0, f.aw.OpenHandles())

		_, err = s.Referent("attr3_referent")
		require.True(t, errors.Is(err, wallet.ErrStoreUnavailable))
	})

	t.Run("restriction filters", func(t *testing.T) {
		other, err := f.verifier.BuildProofRequest("other", "1.0", map[string]anoncreds.AttributeInfo{
			"a": {Name: "degree", Restrictions: []anoncreds.Restriction{{IssuerDID: "someone-else"}}},
			"b": {Name: "Degree", Restrictions: []anoncreds.Restriction{{IssuerDID: "someone-else"}, {SchemaName: "Transcript"}}},
		}, nil)
		require.NoError(t, err)

		err = WithSearch(f.aw, other, func(s *Search) error {
			c, err := s.Referent("a")
			require.NoError(t, err)
			got, err := c.Fetch(5)
			require.NoError(t, err)
			require.Empty(t, got)

			c, err = s.Referent("b")
			require.NoError(t, err)
			got, err = c.Fetch(5)
			require.NoError(t, err)
			require.Len(t, got, 1)
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 0, f.aw.OpenHandles())
	})

	t.Run("released on failure", func(t *testing.T) {
		err := WithSearch(f.aw, req, func(s *Search) error {
			require.Equal(t, 1, f.aw.OpenHandles())
			_, err := f.holder.ConstructProof(f.aw, req, &anoncreds.RequestedCredentials{}, "", nil, nil)
			return err
		})
		require.True(t, errors.Is(err, ErrIncompleteProof))
		require.Equal(t, 0, f.aw.OpenHandles())
	})

	t.Run("closed wallet", func(t *testing.T) {
		w := f.wallet(t, "closed")
		require.NoError(t, w.Close())

		_, err := f.holder.SearchCredentials(w, req)
		require.True(t, errors.Is(err, wallet.ErrStoreUnavailable))
	})
}

func TestProof(t *testing.T) {
	ctx := context.Background()

	t.Run("job application", func(t *testing.T) {
		f := newFixture(t)
		ref := f.issueTranscript(t, "5")
		req := f.jobApplication(t)
		schemas, credDefs := f.ledgerCopies()

		proof, err := f.holder.ConstructProof(f.aw, req, f.selections(ref), "", schemas, credDefs)
		require.NoError(t, err)
		require.Len(t, proof.Identifiers, 1)
		require.Equal(t, "Bachelor of Science, Marketing", proof.RequestedProof.RevealedAttrs["attr3_referent"].Raw)
		require.Equal(t, "Alice", proof.RequestedProof.SelfAttestedAttrs["attr1_referent"])

		state, err := f.holder.ProofState(f.aw, req.Nonce)
		require.NoError(t, err)
		require.Equal(t, StateProven, state)

		ok, err := f.verifier.VerifyProof(ctx, req, proof, schemas, credDefs)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, StateVerified, f.verifier.State(req.Nonce))
	})

	t.Run("average below threshold", func(t *testing.T) {
		f := newFixture(t)
		ref := f.issueTranscript(t, "3")
		req := f.jobApplication(t)
		schemas, credDefs := f.ledgerCopies()

		proof, err := f.holder.ConstructProof(f.aw, req, f.selections(ref), "", schemas, credDefs)
		require.NoError(t, err)

		ok, err := f.verifier.VerifyProof(ctx, req, proof, schemas, credDefs)
		require.NoError(t, err)
		require.False(t, ok)
		require.Equal(t, StateRequested, f.verifier.State(req.Nonce))
	})

	t.Run("missing selection", func(t *testing.T) {
		f := newFixture(t)
		ref := f.issueTranscript(t, "5")
		req := f.jobApplication(t)
		schemas, credDefs := f.ledgerCopies()

		sel := f.selections(ref)
		delete(sel.RequestedPredicates, "predicate1_referent")
		_, err := f.holder.ConstructProof(f.aw, req, sel, "", schemas, credDefs)
		require.True(t, errors.Is(err, ErrIncompleteProof))

		sel = f.selections(ref)
		delete(sel.SelfAttestedAttrs, "attr6_referent")
		_, err = f.holder.ConstructProof(f.aw, req, sel, "", schemas, credDefs)
		require.True(t, errors.Is(err, ErrIncompleteProof))
	})

	t.Run("referent dropped from proof", func(t *testing.T) {
		f := newFixture(t)
		ref := f.issueTranscript(t, "5")
		req := f.jobApplication(t)
		schemas, credDefs := f.ledgerCopies()

		proof, err := f.holder.ConstructProof(f.aw, req, f.selections(ref), "", schemas, credDefs)
		require.NoError(t, err)

		delete(proof.RequestedProof.RevealedAttrs, "attr5_referent")
		_, err = f.verifier.VerifyProof(ctx, req, proof, schemas, credDefs)
		require.True(t, errors.Is(err, ErrProofInvalid))
	})

	t.Run("tampered revealed value", func(t *testing.T) {
		f := newFixture(t)
		ref := f.issueTranscript(t, "5")
		req := f.jobApplication(t)
		schemas, credDefs := f.ledgerCopies()

		proof, err := f.holder.ConstructProof(f.aw, req, f.selections(ref), "", schemas, credDefs)
		require.NoError(t, err)

		forged := anoncreds.NewAttributeValue("Master of Science")
		proof.RequestedProof.RevealedAttrs["attr3_referent"] = anoncreds.RevealedAttr{Raw: forged.Raw, Encoded: forged.Encoded}
		ok, err := f.verifier.VerifyProof(ctx, req, proof, schemas, credDefs)
		require.NoError(t, err)
		require.False(t, ok)

		proof.RequestedProof.RevealedAttrs["attr3_referent"] = anoncreds.RevealedAttr{Raw: "Master of Science", Encoded: "1"}
		ok, err = f.verifier.VerifyProof(ctx, req, proof, schemas, credDefs)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("self attested restricted attribute", func(t *testing.T) {
		f := newFixture(t)
		ref := f.issueTranscript(t, "5")
		req := f.jobApplication(t)
		schemas, credDefs := f.ledgerCopies()

		sel := f.selections(ref)
		delete(sel.RequestedAttributes, "attr5_referent")
		sel.SelfAttestedAttrs["attr5_referent"] = "000-00-0000"

		proof, err := f.holder.ConstructProof(f.aw, req, sel, "", schemas, credDefs)
		require.NoError(t, err)

		ok, err := f.verifier.VerifyProof(ctx, req, proof, schemas, credDefs)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("restriction not met", func(t *testing.T) {
		f := newFixture(t)
		ref := f.issueTranscript(t, "5")
		schemas, credDefs := f.ledgerCopies()

		req, err := f.verifier.BuildProofRequest("x", "1.0", map[string]anoncreds.AttributeInfo{
			"degree": {Name: "degree", Restrictions: []anoncreds.Restriction{{IssuerDID: "someone-else"}}},
		}, nil)
		require.NoError(t, err)

		proof, err := f.holder.ConstructProof(f.aw, req, &anoncreds.RequestedCredentials{
			RequestedAttributes: map[string]anoncreds.RequestedAttribute{"degree": {CredID: ref, Revealed: true}},
		}, "", schemas, credDefs)
		require.NoError(t, err)

		ok, err := f.verifier.VerifyProof(ctx, req, proof, schemas, credDefs)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("caller copy disagrees with ledger", func(t *testing.T) {
		f := newFixture(t)
		ref := f.issueTranscript(t, "5")
		req := f.jobApplication(t)
		schemas, credDefs := f.ledgerCopies()

		proof, err := f.holder.ConstructProof(f.aw, req, f.selections(ref), "", schemas, credDefs)
		require.NoError(t, err)

		stale := *f.credDef
		stale.Value = json.RawMessage(`{"primary":{"alg":"other"}}`)
		_, err = f.verifier.VerifyProof(ctx, req, proof, schemas, map[string]*anoncreds.CredentialDefinition{f.credDef.ID: &stale})
		require.True(t, errors.Is(err, ErrProofInvalid))

		renamed := *f.schema
		renamed.AttrNames = []string{"first_name"}
		_, err = f.verifier.VerifyProof(ctx, req, proof, map[string]*anoncreds.Schema{f.schema.ID: &renamed}, credDefs)
		require.True(t, errors.Is(err, ErrProofInvalid))
	})

	t.Run("unknown identifier", func(t *testing.T) {
		f := newFixture(t)
		ref := f.issueTranscript(t, "5")
		req := f.jobApplication(t)
		schemas, credDefs := f.ledgerCopies()

		proof, err := f.holder.ConstructProof(f.aw, req, f.selections(ref), "", schemas, credDefs)
		require.NoError(t, err)

		proof.Identifiers[0].CredDefID = ledger.CredDefID(f.faber.DID, f.schema.SeqNo, "nope")
		_, err = f.verifier.VerifyProof(ctx, req, proof, schemas, credDefs)
		require.True(t, errors.Is(err, registry.ErrNotFound))
	})

	t.Run("replayed against a new request", func(t *testing.T) {
		f := newFixture(t)
		ref := f.issueTranscript(t, "5")
		req := f.jobApplication(t)
		schemas, credDefs := f.ledgerCopies()

		proof, err := f.holder.ConstructProof(f.aw, req, f.selections(ref), "", schemas, credDefs)
		require.NoError(t, err)

		fresh := f.jobApplication(t)
		ok, err := f.verifier.VerifyProof(ctx, fresh, proof, schemas, credDefs)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("embedded nonce rewritten for a new request", func(t *testing.T) {
		f := newFixture(t)
		ref := f.issueTranscript(t, "5")
		req := f.jobApplication(t)
		schemas, credDefs := f.ledgerCopies()

		proof, err := f.holder.ConstructProof(f.aw, req, f.selections(ref), "", schemas, credDefs)
		require.NoError(t, err)

		fresh := f.jobApplication(t)
		inner := map[string]json.RawMessage{}
		require.NoError(t, json.Unmarshal(proof.Proof, &inner))
		inner["nonce"], err = json.Marshal(fresh.Nonce)
		require.NoError(t, err)
		proof.Proof, err = json.Marshal(inner)
		require.NoError(t, err)

		ok, err := f.verifier.VerifyProof(ctx, fresh, proof, schemas, credDefs)
		require.NoError(t, err)
		require.False(t, ok)
		require.Equal(t, StateRequested, f.verifier.State(fresh.Nonce))
	})

	t.Run("other master secret", func(t *testing.T) {
		f := newFixture(t)
		ref := f.issueTranscript(t, "5")
		req := f.jobApplication(t)
		schemas, credDefs := f.ledgerCopies()

		other, err := f.credHold.EnsureMasterSecret(f.aw, "other")
		require.NoError(t, err)

		_, err = f.holder.ConstructProof(f.aw, req, f.selections(ref), other, schemas, credDefs)
		require.True(t, errors.Is(err, edsig.ErrSecretMismatch))
	})

	t.Run("self attested only", func(t *testing.T) {
		f := newFixture(t)
		req, err := f.verifier.BuildProofRequest("x", "1.0", map[string]anoncreds.AttributeInfo{
			"phone": {Name: "phone_number"},
		}, nil)
		require.NoError(t, err)

		proof, err := f.holder.ConstructProof(f.aw, req, &anoncreds.RequestedCredentials{
			SelfAttestedAttrs: map[string]string{"phone": "555-1234"},
		}, "", nil, nil)
		require.NoError(t, err)
		require.Empty(t, proof.Identifiers)

		ok, err := f.verifier.VerifyProof(ctx, req, proof, nil, nil)
		require.NoError(t, err)
		require.True(t, ok)
	})
}
