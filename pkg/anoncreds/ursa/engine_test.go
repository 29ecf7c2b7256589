//go:build ursa
// +build ursa

/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ursa

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scoir/trustflow/pkg/anoncreds"
)

func TestCredentialLifecycle(t *testing.T) {
	engine := New()
	attrNames := []string{"name", "degree", "average"}

	keys, err := engine.NewCredentialDefinition(attrNames, false)
	require.NoError(t, err)

	ms, err := engine.NewMasterSecret()
	require.NoError(t, err)
	require.NotEmpty(t, ms)

	offerNonce, err := engine.NewNonce()
	require.NoError(t, err)

	blinded, err := engine.BlindMasterSecret(keys.PublicKey, keys.CorrectnessProof, offerNonce, ms)
	require.NoError(t, err)

	requestNonce, err := engine.NewNonce()
	require.NoError(t, err)

	values := anoncreds.NewAttributeValues(map[string]interface{}{
		"name":    "Alice",
		"degree":  "Bachelor of Science, Marketing",
		"average": 5,
	})

	sig, err := engine.SignCredential(&anoncreds.SignRequest{
		ProverDID:                 "CnEDk9HrMnmiHXEV1WFgbV",
		AttrNames:                 attrNames,
		Values:                    values,
		PublicKey:                 keys.PublicKey,
		PrivateKey:                keys.PrivateKey,
		BlindedMS:                 blinded.BlindedMS,
		BlindedMSCorrectnessProof: blinded.CorrectnessProof,
		OfferNonce:                offerNonce,
		RequestNonce:              requestNonce,
	})
	require.NoError(t, err)

	cred := &anoncreds.Credential{
		Values:                    values,
		Signature:                 sig.Signature,
		SignatureCorrectnessProof: sig.CorrectnessProof,
	}

	cred.Signature, err = engine.ProcessSignature(cred, attrNames, keys.PublicKey, blinded.BlindingFactor, ms, requestNonce)
	require.NoError(t, err)

	proofNonce, err := engine.NewNonce()
	require.NoError(t, err)

	prove := func(threshold int32) (bool, error) {
		preds := []anoncreds.PredicateInfo{{Name: "average", PType: anoncreds.PredicateGE, PValue: threshold}}
		proof, err := engine.CreateProof([]*anoncreds.ProvingCredential{{
			AttrNames:  attrNames,
			PublicKey:  keys.PublicKey,
			Credential: cred,
			Revealed:   []string{"degree"},
			Predicates: preds,
		}}, ms, proofNonce)
		if err != nil {
			return false, err
		}

		revealed, err := engine.RevealedValues(proof, 0)
		require.NoError(t, err)
		require.Equal(t, values["degree"].Encoded, revealed["degree"])

		return engine.VerifyProof(proof, []*anoncreds.VerifyingCredential{{
			AttrNames:  attrNames,
			PublicKey:  keys.PublicKey,
			Revealed:   []string{"degree"},
			Predicates: preds,
		}}, proofNonce)
	}

	ok, err := prove(4)
	require.NoError(t, err)
	require.True(t, ok)

	// libursa refuses to prove a predicate that does not hold
	_, err = prove(6)
	require.Error(t, err)
}
