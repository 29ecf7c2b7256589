/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuance

import (
	"context"
	"sync"
	"testing"

	"github.com/hyperledger/aries-framework-go/pkg/storage/mem"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scoir/trustflow/pkg/anoncreds"
	"github.com/scoir/trustflow/pkg/anoncreds/edsig"
	"github.com/scoir/trustflow/pkg/anoncreds/mocks"
	"github.com/scoir/trustflow/pkg/did"
	"github.com/scoir/trustflow/pkg/identity"
	"github.com/scoir/trustflow/pkg/ledger"
	"github.com/scoir/trustflow/pkg/ledger/pool"
	"github.com/scoir/trustflow/pkg/registry"
	"github.com/scoir/trustflow/pkg/wallet"
)

var transcript = []string{"first_name", "last_name", "degree", "status", "ssn", "year", "average"}

type fixture struct {
	engine  anoncreds.Engine
	issuer  *Issuer
	holder  *Holder
	faber   *identity.Identity
	fw      *wallet.Wallet
	alice   *identity.Identity
	aw      *wallet.Wallet
	credDef *anoncreds.CredentialDefinition
	wallets *wallet.Manager
}

func newFixture(t *testing.T) *fixture {
	ctx := context.Background()
	engine := edsig.New()

	const seed = "000000000000000000000000Trustee1"
	d, kp, err := did.CreateMyDid(&did.MyDIDInfo{Seed: seed, Cid: true})
	require.NoError(t, err)

	p, err := pool.New([]*pool.GenesisTxn{pool.GenesisNym(1, d.DIDVal.DID, kp.Verkey(), ledger.RoleTrustee)})
	require.NoError(t, err)

	lr := identity.NewRegistry(p)
	ids := identity.NewManager(lr)
	reg := registry.New(lr, engine)

	f := &fixture{
		engine:  engine,
		issuer:  NewIssuer(engine),
		holder:  NewHolder(engine),
		wallets: wallet.NewManager(mem.NewProvider()),
	}

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

	s, err := reg.CreateSchema(f.faber, "Transcript", "1.2", transcript)
	require.NoError(t, err)
	s, err = reg.PublishSchema(ctx, f.faber, f.fw, s)
	require.NoError(t, err)

	f.credDef, err = reg.CreateAndPublishCredDef(ctx, f.faber, f.fw, s, "TAG1", false)
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

func aliceValues(average string) map[string]anoncreds.AttributeValue {
	return anoncreds.NewAttributeValues(map[string]interface{}{
		"first_name": "Alice",
		"last_name":  "Garcia",
		"degree":     "Bachelor of Science, Marketing",
		"status":     "graduated",
		"ssn":        "123-45-6789",
		"year":       "2015",
		"average":    average,
	})
}

func TestIssuance(t *testing.T) {
	t.Run("full exchange", func(t *testing.T) {
		f := newFixture(t)

		msID, err := f.holder.EnsureMasterSecret(f.aw, "")
		require.NoError(t, err)
		require.Equal(t, DefaultMasterSecretID, msID)

		offer, err := f.issuer.CreateOffer(f.fw, f.credDef)
		require.NoError(t, err)
		require.Equal(t, StateOffered, offer.State)
		require.Equal(t, f.faber.DID+":2:Transcript:1.2", offer.SchemaID)

		req, meta, err := f.holder.CreateRequest(f.aw, f.alice, &offer.CredentialOffer, f.credDef, msID)
		require.NoError(t, err)
		require.Equal(t, f.alice.DID, req.ProverDID)
		require.Equal(t, offer.Nonce, meta.OfferNonce)

		state, err := f.holder.RequestState(f.aw, offer.Nonce)
		require.NoError(t, err)
		require.Equal(t, StateRequested, state)

		cred, err := f.issuer.Issue(f.fw, &offer.CredentialOffer, req, aliceValues("5"))
		require.NoError(t, err)
		require.Equal(t, f.credDef.ID, cred.CredDefID)

		state, err = f.issuer.OfferState(f.fw, offer.Nonce)
		require.NoError(t, err)
		require.Equal(t, StateIssued, state)

		ref, err := f.holder.Store(f.aw, cred, meta, f.credDef)
		require.NoError(t, err)
		require.NotEmpty(t, ref)

		state, err = f.holder.RequestState(f.aw, offer.Nonce)
		require.NoError(t, err)
		require.Equal(t, StateStored, state)
		require.Equal(t, "stored", state.String())

		stored, err := LoadCredential(f.aw, ref)
		require.NoError(t, err)
		require.Equal(t, "Transcript", stored.SchemaName)
		require.Equal(t, f.faber.DID, stored.IssuerDID)
		require.Equal(t, "graduated", stored.Info().Attrs["status"])
	})

	t.Run("offer used twice", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.holder.EnsureMasterSecret(f.aw, "")
		require.NoError(t, err)

		offer, err := f.issuer.CreateOffer(f.fw, f.credDef)
		require.NoError(t, err)

		req, _, err := f.holder.CreateRequest(f.aw, f.alice, &offer.CredentialOffer, f.credDef, "")
		require.NoError(t, err)

		_, _, err = f.holder.CreateRequest(f.aw, f.alice, &offer.CredentialOffer, f.credDef, "")
		require.True(t, errors.Is(err, ErrOfferExpired))

		_, err = f.issuer.Issue(f.fw, &offer.CredentialOffer, req, aliceValues("5"))
		require.NoError(t, err)

		_, err = f.issuer.Issue(f.fw, &offer.CredentialOffer, req, aliceValues("5"))
		require.True(t, errors.Is(err, ErrOfferExpired))
	})

	t.Run("unknown offer", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.holder.EnsureMasterSecret(f.aw, "")
		require.NoError(t, err)

		offer, err := f.issuer.CreateOffer(f.fw, f.credDef)
		require.NoError(t, err)
		req, _, err := f.holder.CreateRequest(f.aw, f.alice, &offer.CredentialOffer, f.credDef, "")
		require.NoError(t, err)

		forged := offer.CredentialOffer
		forged.Nonce = "1"
		_, err = f.issuer.Issue(f.fw, &forged, req, aliceValues("5"))
		require.True(t, errors.Is(err, ErrOfferExpired))
	})

	t.Run("request for another definition", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.holder.EnsureMasterSecret(f.aw, "")
		require.NoError(t, err)

		offer, err := f.issuer.CreateOffer(f.fw, f.credDef)
		require.NoError(t, err)
		req, _, err := f.holder.CreateRequest(f.aw, f.alice, &offer.CredentialOffer, f.credDef, "")
		require.NoError(t, err)

		req.CredDefID = "other"
		_, err = f.issuer.Issue(f.fw, &offer.CredentialOffer, req, aliceValues("5"))
		require.True(t, errors.Is(err, ErrOfferExpired))
	})

	t.Run("attribute mismatch", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.holder.EnsureMasterSecret(f.aw, "")
		require.NoError(t, err)

		offer, err := f.issuer.CreateOffer(f.fw, f.credDef)
		require.NoError(t, err)
		req, _, err := f.holder.CreateRequest(f.aw, f.alice, &offer.CredentialOffer, f.credDef, "")
		require.NoError(t, err)

		missing := aliceValues("5")
		delete(missing, "ssn")
		_, err = f.issuer.Issue(f.fw, &offer.CredentialOffer, req, missing)
		require.True(t, errors.Is(err, ErrAttributeMismatch))

		extra := aliceValues("5")
		extra["gpa"] = anoncreds.NewAttributeValue("4.0")
		delete(extra, "ssn")
		_, err = f.issuer.Issue(f.fw, &offer.CredentialOffer, req, extra)
		require.True(t, errors.Is(err, ErrAttributeMismatch))

		unencoded := aliceValues("5")
		unencoded["degree"] = anoncreds.AttributeValue{Raw: "Bachelor of Science, Marketing"}
		_, err = f.issuer.Issue(f.fw, &offer.CredentialOffer, req, unencoded)
		require.True(t, errors.Is(err, ErrAttributeMismatch))

		state, err := f.issuer.OfferState(f.fw, offer.Nonce)
		require.NoError(t, err)
		require.Equal(t, StateOffered, state)

		_, err = f.issuer.Issue(f.fw, &offer.CredentialOffer, req, aliceValues("5"))
		require.NoError(t, err)
	})

	t.Run("other master secret", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.holder.EnsureMasterSecret(f.aw, "")
		require.NoError(t, err)
		second, err := f.holder.EnsureMasterSecret(f.aw, "second")
		require.NoError(t, err)

		a, err := LoadMasterSecret(f.aw, "")
		require.NoError(t, err)
		b, err := LoadMasterSecret(f.aw, second)
		require.NoError(t, err)
		require.NotEqual(t, a, b)

		offer, err := f.issuer.CreateOffer(f.fw, f.credDef)
		require.NoError(t, err)
		req, meta, err := f.holder.CreateRequest(f.aw, f.alice, &offer.CredentialOffer, f.credDef, "")
		require.NoError(t, err)
		cred, err := f.issuer.Issue(f.fw, &offer.CredentialOffer, req, aliceValues("5"))
		require.NoError(t, err)

		meta.MasterSecretID = second
		_, err = f.holder.Store(f.aw, cred, meta, f.credDef)
		require.True(t, errors.Is(err, edsig.ErrSecretMismatch))

		ids, err := f.aw.IDs(CredentialCategory)
		require.NoError(t, err)
		require.Empty(t, ids)
	})

	t.Run("store twice keeps both", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.holder.EnsureMasterSecret(f.aw, "")
		require.NoError(t, err)

		offer, err := f.issuer.CreateOffer(f.fw, f.credDef)
		require.NoError(t, err)
		req, meta, err := f.holder.CreateRequest(f.aw, f.alice, &offer.CredentialOffer, f.credDef, "")
		require.NoError(t, err)
		cred, err := f.issuer.Issue(f.fw, &offer.CredentialOffer, req, aliceValues("5"))
		require.NoError(t, err)

		a, err := f.holder.Store(f.aw, cred, meta, f.credDef)
		require.NoError(t, err)
		b, err := f.holder.Store(f.aw, cred, meta, f.credDef)
		require.NoError(t, err)
		require.NotEqual(t, a, b)

		ids, err := f.aw.IDs(CredentialCategory)
		require.NoError(t, err)
		require.Equal(t, []string{a, b}, ids)
	})

	t.Run("request record gone", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.holder.EnsureMasterSecret(f.aw, "")
		require.NoError(t, err)

		offer, err := f.issuer.CreateOffer(f.fw, f.credDef)
		require.NoError(t, err)
		req, meta, err := f.holder.CreateRequest(f.aw, f.alice, &offer.CredentialOffer, f.credDef, "")
		require.NoError(t, err)
		cred, err := f.issuer.Issue(f.fw, &offer.CredentialOffer, req, aliceValues("5"))
		require.NoError(t, err)

		require.NoError(t, f.aw.Delete(requestCategory, offer.Nonce))
		ref, err := f.holder.Store(f.aw, cred, meta, f.credDef)
		require.NoError(t, err)
		require.NotEmpty(t, ref)
	})

	t.Run("unreadable request record", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.holder.EnsureMasterSecret(f.aw, "")
		require.NoError(t, err)

		offer, err := f.issuer.CreateOffer(f.fw, f.credDef)
		require.NoError(t, err)
		req, meta, err := f.holder.CreateRequest(f.aw, f.alice, &offer.CredentialOffer, f.credDef, "")
		require.NoError(t, err)
		cred, err := f.issuer.Issue(f.fw, &offer.CredentialOffer, req, aliceValues("5"))
		require.NoError(t, err)

		require.NoError(t, f.aw.Put(requestCategory, offer.Nonce, map[string]string{"state": "requested"}))
		_, err = f.holder.Store(f.aw, cred, meta, f.credDef)
		require.Error(t, err)
		require.False(t, errors.Is(err, wallet.ErrRecordNotFound))
		require.Contains(t, err.Error(), "unable to update request")
	})

	t.Run("closed holder wallet", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.holder.EnsureMasterSecret(f.aw, "")
		require.NoError(t, err)

		offer, err := f.issuer.CreateOffer(f.fw, f.credDef)
		require.NoError(t, err)
		req, meta, err := f.holder.CreateRequest(f.aw, f.alice, &offer.CredentialOffer, f.credDef, "")
		require.NoError(t, err)
		cred, err := f.issuer.Issue(f.fw, &offer.CredentialOffer, req, aliceValues("5"))
		require.NoError(t, err)

		require.NoError(t, f.aw.Close())
		_, err = f.holder.Store(f.aw, cred, meta, f.credDef)
		require.True(t, errors.Is(err, wallet.ErrStoreUnavailable))
	})

	t.Run("offer without keys", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.issuer.CreateOffer(f.aw, f.credDef)
		require.True(t, errors.Is(err, wallet.ErrRecordNotFound))
	})

	t.Run("request without master secret", func(t *testing.T) {
		f := newFixture(t)
		offer, err := f.issuer.CreateOffer(f.fw, f.credDef)
		require.NoError(t, err)

		_, _, err = f.holder.CreateRequest(f.aw, f.alice, &offer.CredentialOffer, f.credDef, "")
		require.True(t, errors.Is(err, wallet.ErrRecordNotFound))
	})
}

func TestEnsureMasterSecret(t *testing.T) {
	t.Run("concurrent callers create one secret", func(t *testing.T) {
		engine := &mocks.Engine{}
		engine.On("NewMasterSecret").Return("1234567890", nil).Once()

		w, err := newWallet(t)
		require.NoError(t, err)
		h := NewHolder(engine)

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := h.EnsureMasterSecret(w, "")
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		v, err := LoadMasterSecret(w, "")
		require.NoError(t, err)
		require.Equal(t, "1234567890", v)
		engine.AssertNumberOfCalls(t, "NewMasterSecret", 1)
	})

	t.Run("engine failure", func(t *testing.T) {
		engine := &mocks.Engine{}
		engine.On("NewMasterSecret").Return("", errors.New("no entropy"))

		w, err := newWallet(t)
		require.NoError(t, err)

		_, err = NewHolder(engine).EnsureMasterSecret(w, "x")
		require.Error(t, err)

		ok, err := w.Has(masterSecretCategory, "x")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("closed wallet", func(t *testing.T) {
		w, err := newWallet(t)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		_, err = NewHolder(&mocks.Engine{}).EnsureMasterSecret(w, "")
		require.True(t, errors.Is(err, wallet.ErrStoreUnavailable))
	})

	t.Run("nonce failure", func(t *testing.T) {
		f := newFixture(t)
		engine := &mocks.Engine{}
		engine.On("NewNonce").Return("", errors.New("no entropy"))

		_, err := NewIssuer(engine).CreateOffer(f.fw, f.credDef)
		require.Error(t, err)
		engine.AssertCalled(t, "NewNonce")
		engine.AssertNotCalled(t, "SignCredential", mock.Anything)
	})
}

func newWallet(t *testing.T) (*wallet.Wallet, error) {
	m := wallet.NewManager(mem.NewProvider())
	cfg := wallet.Config{ID: "holder"}
	creds := wallet.Credentials{Key: "holder_key"}
	require.NoError(t, m.Create(cfg, creds))
	return m.Open(cfg, creds)
}
