/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package scenario

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/scoir/trustflow/pkg/anoncreds"
	"github.com/scoir/trustflow/pkg/identity"
	"github.com/scoir/trustflow/pkg/ledger"
	"github.com/scoir/trustflow/pkg/presentation"
)

const (
	TrusteeSeed    = "000000000000000000000000Trustee1"
	StewardSeed    = "000000000000000000000000Steward1"
	governmentSeed = "000000000000000000000Government1"
	faberSeed      = "00000000000000000000000000Faber1"
	acmeSeed       = "000000000000000000000000000Acme1"
	thriftSeed     = "0000000000000000000000000Thrift1"
)

var (
	TranscriptAttrs     = []string{"first_name", "last_name", "degree", "status", "year", "average", "ssn"}
	JobCertificateAttrs = []string{"first_name", "last_name", "salary", "employee_status", "experience"}
)

// member is an organization to onboard and the role it is granted
type member struct {
	seed string
	role ledger.Role
}

// Outcome is a verifier's view of one presented proof
type Outcome struct {
	Verified     bool
	Revealed     map[string]string
	SelfAttested map[string]string
}

// Report records what the getting started run published and proved
type Report struct {
	Parties                 map[string]string
	TranscriptSchemaID      string
	JobCertificateSchemaID  string
	TranscriptCredDefID     string
	JobCertificateCredDefID string

	JobApplication *Outcome
	LoanBasic      *Outcome
	LoanKYC        *Outcome
}

// Run executes the workflow.  A job application that does not verify ends the run without
// error after recording the outcome, as Acme will not employ Alice.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	var parties []*Party
	defer func() { r.release(parties) }()

	report := &Report{Parties: map[string]string{}}

	steward, err := r.onboardSponsor(ctx, "Steward", r.stewardSeed, ledger.RoleEndorser)
	if steward != nil {
		parties = append(parties, steward)
	}
	if err != nil {
		return nil, err
	}
	report.Parties[steward.Name] = steward.Identity.DID

	orgs, err := r.onboard(ctx, steward, map[string]member{
		"Government": {seed: governmentSeed, role: ledger.RoleEndorser},
		"Faber":      {seed: faberSeed, role: ledger.RoleEndorser},
		"Acme":       {seed: acmeSeed, role: ledger.RoleEndorser},
		"Thrift":     {seed: thriftSeed, role: ledger.RoleEndorser},
	})
	for _, p := range orgs {
		parties = append(parties, p)
		if p.Identity != nil {
			report.Parties[p.Name] = p.Identity.DID
		}
	}
	if err != nil {
		return nil, err
	}
	government, faber, acme, thrift := orgs["Government"], orgs["Faber"], orgs["Acme"], orgs["Thrift"]

	logger.Infof("=== Credential Schemas Setup ===")
	jobSchema, err := r.publishSchema(ctx, government, "Job-Certificate", "0.2", JobCertificateAttrs)
	if err != nil {
		return nil, err
	}
	report.JobCertificateSchemaID = jobSchema.ID

	transcriptSchema, err := r.publishSchema(ctx, government, "Transcript", "1.2", TranscriptAttrs)
	if err != nil {
		return nil, err
	}
	report.TranscriptSchemaID = transcriptSchema.ID

	logger.Infof("=== Credential Definition Setup ===")
	transcriptDef, err := r.credDef(ctx, faber, transcriptSchema.ID)
	if err != nil {
		return nil, err
	}
	report.TranscriptCredDefID = transcriptDef.ID

	jobDef, err := r.credDef(ctx, acme, jobSchema.ID)
	if err != nil {
		return nil, err
	}
	report.JobCertificateCredDefID = jobDef.ID

	alice, err := r.party("Alice")
	if err != nil {
		return nil, err
	}
	parties = append(parties, alice)

	alice.Identity, err = r.ids.CreateIdentity(alice.wallet, "")
	if err != nil {
		return nil, err
	}
	report.Parties[alice.Name] = alice.Identity.DID

	_, err = r.credHolder.EnsureMasterSecret(alice.wallet, "")
	if err != nil {
		return nil, err
	}

	logger.Infof("=== Getting Transcript with Faber ===")
	err = r.issue(ctx, faber, alice, transcriptDef, map[string]interface{}{
		"first_name": "Alice",
		"last_name":  "Garcia",
		"degree":     "Bachelor of Science, Marketing",
		"status":     "graduated",
		"ssn":        "123-45-6789",
		"year":       "2015",
		"average":    r.average,
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("=== Apply for the job with Acme ===")
	report.JobApplication, err = r.jobApplication(ctx, acme, alice, transcriptDef.ID)
	if err != nil {
		return nil, err
	}
	if !report.JobApplication.Verified {
		logger.Infof("Acme did not accept the job application")
		return report, nil
	}

	logger.Infof("=== Getting Job-Certificate with Acme ===")
	err = r.issue(ctx, acme, alice, jobDef, map[string]interface{}{
		"first_name":      "Alice",
		"last_name":       "Garcia",
		"employee_status": "Permanent",
		"salary":          "2400",
		"experience":      "10",
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("=== Apply for the loan with Thrift ===")
	report.LoanBasic, err = r.loanBasic(ctx, thrift, alice, jobDef.ID)
	if err != nil {
		return nil, err
	}

	report.LoanKYC, err = r.loanKYC(ctx, thrift, alice)
	if err != nil {
		return nil, err
	}

	return report, nil
}

// onboardSponsor opens the wallet of a DID already on the ledger that must be able to grant role
func (r *Runner) onboardSponsor(ctx context.Context, name, seed string, role ledger.Role) (*Party, error) {
	sponsor, err := r.party(name)
	if err != nil {
		return nil, err
	}

	id, err := r.ids.CreateIdentity(sponsor.wallet, seed)
	if err != nil {
		return sponsor, err
	}

	onLedger, err := r.ids.Resolve(ctx, id.DID)
	if err != nil {
		return sponsor, errors.Wrapf(err, "%s must be on the ledger", strings.ToLower(name))
	}

	if !ledger.CanGrant(onLedger.Role, role) {
		return sponsor, errors.Wrapf(identity.ErrInsufficientPrivilege, "%s %s has role %s", strings.ToLower(name), id.DID, onLedger.Role)
	}

	id.Role = onLedger.Role
	sponsor.Identity = id
	return sponsor, nil
}

// onboard registers each organization with its role in parallel
func (r *Runner) onboard(ctx context.Context, sponsor *Party, members map[string]member) (map[string]*Party, error) {
	out := map[string]*Party{}
	for name := range members {
		p, err := r.party(name)
		if err != nil {
			return out, err
		}
		out[name] = p
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, m := range members {
		p, m := out[name], m
		g.Go(func() error {
			logger.Infof("== Getting %s credentials - %s getting Verinym ==", m.role, p.Name)

			id, err := r.ids.CreateIdentity(p.wallet, m.seed)
			if err != nil {
				return err
			}

			var registered *identity.Identity
			err = r.retry(gctx, func() error {
				registered, err = r.ids.RegisterIdentity(gctx, p.wallet, id, sponsor.Identity, sponsor.wallet, m.role)
				return err
			})
			if err != nil {
				return errors.Wrapf(err, "unable to onboard %s", p.Name)
			}

			p.Identity = registered
			return nil
		})
	}

	return out, g.Wait()
}

func (r *Runner) publishSchema(ctx context.Context, author *Party, name, version string, attrs []string) (*anoncreds.Schema, error) {
	s, err := r.registry.CreateSchema(author.Identity, name, version, attrs)
	if err != nil {
		return nil, err
	}

	var published *anoncreds.Schema
	err = r.retry(ctx, func() error {
		published, err = r.registry.PublishSchema(ctx, author.Identity, author.wallet, s)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("%s published schema %s", author.Name, published.ID)
	return published, nil
}

func (r *Runner) credDef(ctx context.Context, issuer *Party, schemaID string) (*anoncreds.CredentialDefinition, error) {
	schema, err := r.registry.ResolveSchema(ctx, schemaID)
	if err != nil {
		return nil, err
	}

	var def *anoncreds.CredentialDefinition
	err = r.retry(ctx, func() error {
		def, err = r.registry.CreateAndPublishCredDef(ctx, issuer.Identity, issuer.wallet, schema, "TAG1", false)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("%s published credential definition %s", issuer.Name, def.ID)
	return def, nil
}

// issue runs one offer, request, issue and store exchange
func (r *Runner) issue(ctx context.Context, issuer, holder *Party, credDef *anoncreds.CredentialDefinition, raw map[string]interface{}) error {
	offer, err := r.issuer.CreateOffer(issuer.wallet, credDef)
	if err != nil {
		return err
	}

	// the holder reads the definition from the ledger rather than trusting the issuer's copy
	holderDef, err := r.registry.ResolveCredDef(ctx, offer.CredDefID)
	if err != nil {
		return err
	}

	req, meta, err := r.credHolder.CreateRequest(holder.wallet, holder.Identity, &offer.CredentialOffer, holderDef, "")
	if err != nil {
		return err
	}

	cred, err := r.issuer.Issue(issuer.wallet, &offer.CredentialOffer, req, anoncreds.NewAttributeValues(raw))
	if err != nil {
		return err
	}

	ref, err := r.credHolder.Store(holder.wallet, cred, meta, holderDef)
	if err != nil {
		return err
	}

	logger.Infof("%s stored credential %s from %s", holder.Name, ref, issuer.Name)
	return nil
}

// selection is how the prover answers one referent
type selection struct {
	ref      string
	revealed bool
	self     string
}

// prove searches the holder wallet for each credential backed selection, constructs the proof
// and has the verifier check it against the ledger
func (r *Runner) prove(ctx context.Context, verifier, holder *Party, req *anoncreds.ProofRequest, sels []selection) (*Outcome, error) {
	rc := &anoncreds.RequestedCredentials{
		SelfAttestedAttrs:   map[string]string{},
		RequestedAttributes: map[string]anoncreds.RequestedAttribute{},
		RequestedPredicates: map[string]anoncreds.RequestedPredicate{},
	}

	var chosen []*anoncreds.CredentialInfo
	err := presentation.WithSearch(holder.wallet, req, func(s *presentation.Search) error {
		for _, sel := range sels {
			if sel.self != "" {
				rc.SelfAttestedAttrs[sel.ref] = sel.self
				continue
			}

			info, err := firstCredential(s, sel.ref)
			if err != nil {
				return err
			}
			chosen = append(chosen, info)

			if _, ok := req.RequestedPredicates[sel.ref]; ok {
				rc.RequestedPredicates[sel.ref] = anoncreds.RequestedPredicate{CredID: info.Referent}
			} else {
				rc.RequestedAttributes[sel.ref] = anoncreds.RequestedAttribute{CredID: info.Referent, Revealed: sel.revealed}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	schemas, credDefs, err := r.proverEntities(ctx, chosen...)
	if err != nil {
		return nil, err
	}

	proof, err := r.prover.ConstructProof(holder.wallet, req, rc, "", schemas, credDefs)
	if err != nil {
		return nil, err
	}

	schemas, credDefs, err = r.ledgerEntities(ctx, proof.Identifiers)
	if err != nil {
		return nil, err
	}

	ok, err := r.verifier.VerifyProof(ctx, req, proof, schemas, credDefs)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Verified: ok, Revealed: map[string]string{}, SelfAttested: proof.RequestedProof.SelfAttestedAttrs}
	for ref, a := range proof.RequestedProof.RevealedAttrs {
		out.Revealed[ref] = a.Raw
	}

	logger.Infof("%s verified %s from %s: %t", verifier.Name, req.Name, holder.Name, ok)
	return out, nil
}

func (r *Runner) jobApplication(ctx context.Context, acme, alice *Party, transcriptDefID string) (*Outcome, error) {
	restrict := []anoncreds.Restriction{{CredDefID: transcriptDefID}}
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
	if err != nil {
		return nil, err
	}

	return r.prove(ctx, acme, alice, req, []selection{
		{ref: "attr1_referent", self: "Alice"},
		{ref: "attr2_referent", self: "Garcia"},
		{ref: "attr3_referent", revealed: true},
		{ref: "attr4_referent", revealed: true},
		{ref: "attr5_referent", revealed: true},
		{ref: "attr6_referent", self: "123-45-6789"},
		{ref: "predicate1_referent"},
	})
}

func (r *Runner) loanBasic(ctx context.Context, thrift, alice *Party, jobDefID string) (*Outcome, error) {
	restrict := []anoncreds.Restriction{{CredDefID: jobDefID}}
	req, err := r.verifier.BuildProofRequest("Loan-Application-Basic", "0.1",
		map[string]anoncreds.AttributeInfo{
			"attr1_referent": {Name: "employee_status", Restrictions: restrict},
		},
		map[string]anoncreds.PredicateInfo{
			"predicate1_referent": {Name: "salary", PType: anoncreds.PredicateGE, PValue: 2000, Restrictions: restrict},
			"predicate2_referent": {Name: "experience", PType: anoncreds.PredicateGE, PValue: 1, Restrictions: restrict},
		})
	if err != nil {
		return nil, err
	}

	return r.prove(ctx, thrift, alice, req, []selection{
		{ref: "attr1_referent", revealed: true},
		{ref: "predicate1_referent"},
		{ref: "predicate2_referent"},
	})
}

func (r *Runner) loanKYC(ctx context.Context, thrift, alice *Party) (*Outcome, error) {
	req, err := r.verifier.BuildProofRequest("Loan-Application-KYC", "0.1",
		map[string]anoncreds.AttributeInfo{
			"attr1_referent": {Name: "first_name"},
			"attr2_referent": {Name: "last_name"},
			"attr3_referent": {Name: "ssn"},
		}, nil)
	if err != nil {
		return nil, err
	}

	return r.prove(ctx, thrift, alice, req, []selection{
		{ref: "attr1_referent", revealed: true},
		{ref: "attr2_referent", revealed: true},
		{ref: "attr3_referent", revealed: true},
	})
}
