//go:build ursa
// +build ursa

/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ursa

import (
	"github.com/hyperledger/ursa-wrapper-go/pkg/libursa/ursa"
	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/anoncreds"
)

func nonCredentialSchema() (*ursa.NonCredentialSchemaHandle, error) {
	builder, err := ursa.NewNonCredentialSchemaBuilder()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create non cred schema builder")
	}

	err = builder.AddAttr(anoncreds.MasterSecret)
	if err != nil {
		return nil, errors.Wrap(err, "unable to add master secret")
	}

	return builder.Finalize()
}

// credentialSchema builds the ursa schema from attribute names in their common view
func credentialSchema(attrNames []string) (*ursa.CredentialSchemaHandle, error) {
	builder, err := ursa.NewCredentialSchemaBuilder()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create schema builder")
	}

	for _, name := range attrNames {
		err := builder.AddAttr(anoncreds.AttrCommonView(name))
		if err != nil {
			return nil, errors.Wrap(err, "unable to add schema attribute")
		}
	}

	return builder.Finalize()
}

func subProofRequest(revealed []string, predicates []anoncreds.PredicateInfo) (*ursa.SubProofRequestHandle, error) {
	builder, err := ursa.NewSubProofRequestBuilder()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create sub proof request builder")
	}

	for _, name := range revealed {
		err := builder.AddRevealedAttr(anoncreds.AttrCommonView(name))
		if err != nil {
			return nil, errors.Wrap(err, "unable to add revealed attribute")
		}
	}

	for _, p := range predicates {
		err = builder.AddPredicate(anoncreds.AttrCommonView(p.Name), p.PType, p.PValue)
		if err != nil {
			return nil, errors.Wrap(err, "unable to add predicate to sub proof")
		}
	}

	return builder.Finalize()
}

type valueBuilder interface {
	AddDecHidden(attr, decValue string) error
	AddDecKnown(attr, decValue string) error
}

// addValues adds the hidden master secret, when given, and every known attribute value.  Values
// must cover attrNames exactly.
func addValues(b valueBuilder, attrNames []string, values map[string]anoncreds.AttributeValue, masterSecret string) error {
	if masterSecret != "" {
		err := b.AddDecHidden(anoncreds.MasterSecret, masterSecret)
		if err != nil {
			return errors.Wrap(err, "unable to add master secret")
		}
	}

	if len(values) != len(attrNames) {
		return errors.Errorf("credential has %d values for %d attributes", len(values), len(attrNames))
	}

	for _, name := range attrNames {
		v, ok := values[name]
		if !ok {
			return errors.Errorf("credential has no value for %s", name)
		}

		err := b.AddDecKnown(anoncreds.AttrCommonView(name), v.Encoded)
		if err != nil {
			return errors.Wrap(err, "unexpected error adding to ursa value builder")
		}
	}

	return nil
}
