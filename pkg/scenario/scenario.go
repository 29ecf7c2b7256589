/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package scenario runs the getting started workflow end to end: a steward onboards the
// government, a college, an employer and a bank, who then publish schemas and credential
// definitions, issue credentials to Alice and verify her proofs.  A shorter transcript flow
// has a trustee sponsor the organizations instead.
package scenario

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/hyperledger/aries-framework-go/pkg/storage"
	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/anoncreds"
	"github.com/scoir/trustflow/pkg/identity"
	"github.com/scoir/trustflow/pkg/issuance"
	"github.com/scoir/trustflow/pkg/ledger"
	"github.com/scoir/trustflow/pkg/presentation"
	"github.com/scoir/trustflow/pkg/registry"
	"github.com/scoir/trustflow/pkg/util"
	"github.com/scoir/trustflow/pkg/wallet"
)

var logger = log.New("trustflow/scenario")

var ErrNoCredential = errors.New("no credential matches referent")

// Party is one participant with its own wallet
type Party struct {
	Name     string
	Identity *identity.Identity

	wallet *wallet.Wallet
	cfg    wallet.Config
	creds  wallet.Credentials
}

func (r *Party) Wallet() *wallet.Wallet {
	return r.wallet
}

type Option func(*Runner)

// WithBackOff sets the retry policy for ledger requests the pool did not accept for processing
func WithBackOff(f func() backoff.BackOff) Option {
	return func(r *Runner) {
		r.backOff = f
	}
}

// WithAverage sets the average on Alice's transcript
func WithAverage(avg string) Option {
	return func(r *Runner) {
		r.average = avg
	}
}

// WithStewardSeed sets the seed of the steward DID, which must already be on the ledger
func WithStewardSeed(seed string) Option {
	return func(r *Runner) {
		r.stewardSeed = seed
	}
}

// WithTrusteeSeed sets the seed of the trustee DID that sponsors the transcript flow
func WithTrusteeSeed(seed string) Option {
	return func(r *Runner) {
		r.trusteeSeed = seed
	}
}

// KeepWallets leaves the wallets in place when the run finishes
func KeepWallets() Option {
	return func(r *Runner) {
		r.keep = true
	}
}

type Runner struct {
	ledger     *identity.Registry
	ids        *identity.Manager
	registry   *registry.Registry
	wallets    *wallet.Manager
	issuer     *issuance.Issuer
	credHolder *issuance.Holder
	prover     *presentation.Holder
	verifier   *presentation.Verifier

	backOff     func() backoff.BackOff
	average     string
	stewardSeed string
	trusteeSeed string
	keep        bool
}

func New(client ledger.Client, provider storage.Provider, engine anoncreds.Engine, opts ...Option) *Runner {
	lr := identity.NewRegistry(client)
	reg := registry.New(lr, engine)

	r := &Runner{
		ledger:      lr,
		ids:         identity.NewManager(lr),
		registry:    reg,
		wallets:     wallet.NewManager(provider),
		issuer:      issuance.NewIssuer(engine),
		credHolder:  issuance.NewHolder(engine),
		prover:      presentation.NewHolder(engine),
		verifier:    presentation.NewVerifier(engine, reg),
		average:     "5",
		stewardSeed: StewardSeed,
		trusteeSeed: TrusteeSeed,
		backOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxElapsedTime = 10 * time.Second
			return b
		},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// party creates and opens a fresh wallet for name, replacing one left by an earlier run
func (r *Runner) party(name string) (*Party, error) {
	p := &Party{
		Name:  name,
		cfg:   wallet.Config{ID: strings.ToLower(name) + "_wallet"},
		creds: wallet.Credentials{Key: strings.ToLower(name) + "_wallet_key"},
	}

	err := r.wallets.Create(p.cfg, p.creds)
	if errors.Is(err, wallet.ErrExists) {
		logger.Infof("replacing wallet %s", p.cfg.ID)
		err = r.wallets.Delete(p.cfg, p.creds)
		if err == nil {
			err = r.wallets.Create(p.cfg, p.creds)
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create wallet for %s", name)
	}

	p.wallet, err = r.wallets.Open(p.cfg, p.creds)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open wallet for %s", name)
	}

	return p, nil
}

func (r *Runner) release(parties []*Party) {
	for _, p := range parties {
		if p == nil || p.wallet == nil {
			continue
		}

		err := p.wallet.Close()
		if err != nil {
			logger.Warnf("unable to close wallet %s: %v", p.cfg.ID, err)
		}

		if r.keep {
			continue
		}

		err = r.wallets.Delete(p.cfg, p.creds)
		if err != nil {
			logger.Warnf("unable to delete wallet %s: %v", p.cfg.ID, err)
		}
	}
}

// retry runs op until it succeeds, fails with anything but REQNACK, or the back off gives up
func (r *Runner) retry(ctx context.Context, op func() error) error {
	return backoff.RetryNotify(func() error {
		err := op()
		if err == nil || nacked(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(r.backOff(), ctx), util.Logger)
}

func nacked(err error) bool {
	var rej *ledger.RejectedError
	return errors.As(err, &rej) && rej.Response.Op == ledger.OpReqNack
}

// firstCredential returns the referent of the first credential answering ref
func firstCredential(s *presentation.Search, ref string) (*anoncreds.CredentialInfo, error) {
	c, err := s.Referent(ref)
	if err != nil {
		return nil, err
	}

	infos, err := c.Fetch(1)
	if err != nil {
		return nil, err
	}

	if len(infos) == 0 {
		return nil, errors.Wrap(ErrNoCredential, ref)
	}

	return infos[0], nil
}

// proverEntities resolves from the ledger the schemas and credential definitions behind the
// chosen credentials
func (r *Runner) proverEntities(ctx context.Context, infos ...*anoncreds.CredentialInfo) (map[string]*anoncreds.Schema,
	map[string]*anoncreds.CredentialDefinition, error) {

	ids := make([]anoncreds.Identifier, len(infos))
	for i, info := range infos {
		ids[i] = anoncreds.Identifier{SchemaID: info.SchemaID, CredDefID: info.CredDefID}
	}

	return r.ledgerEntities(ctx, ids)
}

func (r *Runner) ledgerEntities(ctx context.Context, ids []anoncreds.Identifier) (map[string]*anoncreds.Schema,
	map[string]*anoncreds.CredentialDefinition, error) {

	schemas := map[string]*anoncreds.Schema{}
	credDefs := map[string]*anoncreds.CredentialDefinition{}

	for _, id := range ids {
		if _, ok := schemas[id.SchemaID]; !ok {
			s, err := r.registry.ResolveSchema(ctx, id.SchemaID)
			if err != nil {
				return nil, nil, err
			}
			schemas[id.SchemaID] = s
		}

		if _, ok := credDefs[id.CredDefID]; !ok {
			cd, err := r.registry.ResolveCredDef(ctx, id.CredDefID)
			if err != nil {
				return nil, nil, err
			}
			credDefs[id.CredDefID] = cd
		}
	}

	return schemas, credDefs, nil
}
