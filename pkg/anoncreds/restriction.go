/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package anoncreds

import (
	"math/big"

	"github.com/pkg/errors"
)

const (
	PredicateGE = ">="
	PredicateGT = ">"
	PredicateLE = "<="
	PredicateLT = "<"
)

// Matches reports whether a credential from schemaID/credDefID satisfies every field set on r
func (r Restriction) Matches(schemaID, schemaName, issuerDID, credDefID string) bool {
	if r.SchemaID != "" && r.SchemaID != schemaID {
		return false
	}
	if r.SchemaName != "" && r.SchemaName != schemaName {
		return false
	}
	if r.IssuerDID != "" && r.IssuerDID != issuerDID {
		return false
	}
	if r.CredDefID != "" && r.CredDefID != credDefID {
		return false
	}
	return true
}

// MatchesAny treats a restriction list as a disjunction.  No restrictions matches everything.
func MatchesAny(restrictions []Restriction, schemaID, schemaName, issuerDID, credDefID string) bool {
	if len(restrictions) == 0 {
		return true
	}

	for _, r := range restrictions {
		if r.Matches(schemaID, schemaName, issuerDID, credDefID) {
			return true
		}
	}

	return false
}

func ValidPredicateType(ptype string) bool {
	switch ptype {
	case PredicateGE, PredicateGT, PredicateLE, PredicateLT:
		return true
	}
	return false
}

// Satisfies evaluates a predicate over an encoded attribute value
func (r PredicateInfo) Satisfies(encoded string) (bool, error) {
	v, ok := new(big.Int).SetString(encoded, 10)
	if !ok {
		return false, errors.Errorf("attribute %s is not numeric", r.Name)
	}

	cmp := v.Cmp(big.NewInt(int64(r.PValue)))
	switch r.PType {
	case PredicateGE:
		return cmp >= 0, nil
	case PredicateGT:
		return cmp > 0, nil
	case PredicateLE:
		return cmp <= 0, nil
	case PredicateLT:
		return cmp < 0, nil
	}

	return false, errors.Errorf("unsupported predicate type %q", r.PType)
}
