/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package scenario

import (
	"context"

	"github.com/scoir/trustflow/pkg/anoncreds"
	"github.com/scoir/trustflow/pkg/ledger"
)

// RunTranscript executes the trustee sponsored flow.  The trustee onboards Government as a
// trustee and Faber and Acme as endorsers.  Faber publishes the transcript schema and its
// credential definition and issues Alice a transcript, which Acme checks for a job application
// with the degree, status, ssn and year restricted to Faber's definition.
func (r *Runner) RunTranscript(ctx context.Context) (*Report, error) {
	var parties []*Party
	defer func() { r.release(parties) }()

	report := &Report{Parties: map[string]string{}}

	trustee, err := r.onboardSponsor(ctx, "Trustee", r.trusteeSeed, ledger.RoleTrustee)
	if trustee != nil {
		parties = append(parties, trustee)
	}
	if err != nil {
		return nil, err
	}
	report.Parties[trustee.Name] = trustee.Identity.DID

	orgs, err := r.onboard(ctx, trustee, map[string]member{
		"Government": {seed: governmentSeed, role: ledger.RoleTrustee},
		"Faber":      {seed: faberSeed, role: ledger.RoleEndorser},
		"Acme":       {seed: acmeSeed, role: ledger.RoleEndorser},
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
	faber, acme := orgs["Faber"], orgs["Acme"]

	schema, err := r.publishSchema(ctx, faber, "Transcript", "1.2", TranscriptAttrs)
	if err != nil {
		return nil, err
	}
	report.TranscriptSchemaID = schema.ID

	def, err := r.credDef(ctx, faber, schema.ID)
	if err != nil {
		return nil, err
	}
	report.TranscriptCredDefID = def.ID

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

	err = r.issue(ctx, faber, alice, def, map[string]interface{}{
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

	report.JobApplication, err = r.transcriptApplication(ctx, acme, alice, def.ID)
	if err != nil {
		return nil, err
	}

	return report, nil
}

func (r *Runner) transcriptApplication(ctx context.Context, acme, alice *Party, transcriptDefID string) (*Outcome, error) {
	restrict := []anoncreds.Restriction{{CredDefID: transcriptDefID}}
	req, err := r.verifier.BuildProofRequest("Job-Application", "0.1",
		map[string]anoncreds.AttributeInfo{
			"attr1_referent": {Name: "first_name"},
			"attr2_referent": {Name: "last_name"},
			"attr3_referent": {Name: "degree", Restrictions: restrict},
			"attr4_referent": {Name: "status", Restrictions: restrict},
			"attr5_referent": {Name: "ssn", Restrictions: restrict},
			"attr6_referent": {Name: "year", Restrictions: restrict},
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
		{ref: "attr6_referent", revealed: true},
		{ref: "predicate1_referent"},
	})
}
