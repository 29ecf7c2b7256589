//go:build ursa
// +build ursa

/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ursa implements the credential engine with CL signatures from libursa.  It needs the
// native library and is only built with the ursa tag.
//
// The pinned ursa-wrapper-go revision does not export every handle constructor used here:
// CredentialKeyCorrectnessProofFromJSON, CredentialSignatureFromJSON,
// SignatureCorrectnessProofFromJSON and CredentialSecretsBlindingFactorsFromJSON are missing from
// it.  Building with the ursa tag needs a wrapper that exports them.
package ursa

import (
	"encoding/json"
	"strings"

	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/hyperledger/ursa-wrapper-go/pkg/libursa/ursa"
	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/anoncreds"
)

var logger = log.New("trustflow/ursa")

type Engine struct{}

func New() *Engine {
	return &Engine{}
}

func (r *Engine) NewNonce() (string, error) {
	n, err := ursa.NewNonce()
	if err != nil {
		return "", errors.Wrap(err, "unable to create nonce")
	}
	defer func() { _ = n.Free() }()

	js, err := n.ToJSON()
	if err != nil {
		return "", errors.Wrap(err, "unable to get nonce JSON")
	}

	return strings.Trim(string(js), "\""), nil
}

func (r *Engine) NewMasterSecret() (string, error) {
	ms, err := ursa.NewMasterSecret()
	if err != nil {
		return "", errors.Wrap(err, "unable to create master secret")
	}

	js, err := ms.ToJSON()
	if err != nil {
		return "", errors.Wrap(err, "unable to get master secret JSON")
	}

	m := struct {
		MS string `json:"ms"`
	}{}
	err = json.Unmarshal(js, &m)
	if err != nil {
		return "", errors.Wrap(err, "invalid master secret JSON")
	}

	return m.MS, nil
}

func (r *Engine) NewCredentialDefinition(attrNames []string, revocation bool) (*anoncreds.CredDefKeys, error) {
	schema, err := credentialSchema(attrNames)
	if err != nil {
		return nil, err
	}

	nonSchema, err := nonCredentialSchema()
	if err != nil {
		return nil, err
	}

	if revocation {
		logger.Warnf("revocation keys are not generated, publishing primary key only")
	}

	credDef, err := ursa.NewCredentialDef(schema, nonSchema, false)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create credential definition")
	}

	pub, err := credDef.PubKey.ToJSON()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get public key JSON")
	}

	priv, err := credDef.PrivKey.ToJSON()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get private key JSON")
	}

	proof, err := credDef.KeyCorrectnessProof.ToJSON()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get key correctness proof JSON")
	}

	return &anoncreds.CredDefKeys{PublicKey: pub, PrivateKey: priv, CorrectnessProof: proof}, nil
}

func (r *Engine) BlindMasterSecret(pubJS, keyProofJS json.RawMessage, offerNonce, masterSecret string) (*anoncreds.BlindedSecrets, error) {
	pubKey, err := ursa.CredentialPublicKeyFromJSON(pubJS)
	if err != nil {
		return nil, errors.Wrap(err, "invalid credential definition public key")
	}
	defer func() { _ = pubKey.Free() }()

	keyProof, err := ursa.CredentialKeyCorrectnessProofFromJSON(keyProofJS)
	if err != nil {
		return nil, errors.Wrap(err, "invalid key correctness proof")
	}

	nonce, err := ursa.NonceFromJSON(nonceJSON(offerNonce))
	if err != nil {
		return nil, errors.Wrap(err, "invalid nonce")
	}
	defer func() { _ = nonce.Free() }()

	builder, err := ursa.NewValueBuilder()
	if err != nil {
		return nil, errors.Wrap(err, "unexpected error from ursa value builder")
	}

	err = addValues(builder, nil, nil, masterSecret)
	if err != nil {
		return nil, err
	}

	values, err := builder.Finalize()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create values")
	}
	defer func() { _ = values.Free() }()

	blinded, err := ursa.BlindCredentialSecrets(pubKey, keyProof, nonce, values)
	if err != nil {
		return nil, errors.Wrap(err, "unable to blind master secret")
	}

	out := &anoncreds.BlindedSecrets{}
	out.BlindedMS, err = blinded.Handle.ToJSON()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get blinded secrets JSON")
	}

	out.CorrectnessProof, err = blinded.CorrectnessProof.ToJSON()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get blinded secrets correctness proof JSON")
	}

	out.BlindingFactor, err = blinded.BlindingFactor.ToJSON()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get blinding factor JSON")
	}

	return out, nil
}

func (r *Engine) SignCredential(req *anoncreds.SignRequest) (*anoncreds.Signature, error) {
	blindedSecrets, err := ursa.BlindedCredentialSecretsFromJSON(req.BlindedMS)
	if err != nil {
		return nil, errors.Wrap(err, "invalid blinded master secret")
	}

	blindedProof, err := ursa.BlindedCredentialSecretsCorrectnessProofFromJSON(req.BlindedMSCorrectnessProof)
	if err != nil {
		return nil, errors.Wrap(err, "invalid blinded master secret correctness proof")
	}

	credentialNonce, err := ursa.NonceFromJSON(nonceJSON(req.OfferNonce))
	if err != nil {
		return nil, errors.Wrap(err, "invalid nonce")
	}

	issuanceNonce, err := ursa.NonceFromJSON(nonceJSON(req.RequestNonce))
	if err != nil {
		return nil, errors.Wrap(err, "invalid nonce")
	}

	builder, err := ursa.NewValueBuilder()
	if err != nil {
		return nil, errors.Wrap(err, "unexpected error from ursa value builder")
	}

	err = addValues(builder, req.AttrNames, req.Values, "")
	if err != nil {
		return nil, err
	}

	values, err := builder.Finalize()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create values")
	}

	pubKey, err := ursa.CredentialPublicKeyFromJSON(req.PublicKey)
	if err != nil {
		return nil, errors.Wrap(err, "invalid credential definition public key")
	}

	privKey, err := ursa.CredentialPrivateKeyFromJSON(req.PrivateKey)
	if err != nil {
		return nil, errors.Wrap(err, "invalid credential definition private key")
	}

	defer func() {
		_ = blindedSecrets.Free()
		_ = blindedProof.Free()
		_ = credentialNonce.Free()
		_ = issuanceNonce.Free()
		_ = values.Free()
		_ = pubKey.Free()
		_ = privKey.Free()
	}()

	params := ursa.NewSignatureParams()
	params.ProverID = req.ProverDID
	params.CredentialPubKey = pubKey
	params.CredentialPrivKey = privKey
	params.BlindedCredentialSecrets = blindedSecrets
	params.BlindedCredentialSecretsCorrectnessProof = blindedProof
	params.CredentialNonce = credentialNonce
	params.CredentialValues = values
	params.CredentialIssuanceNonce = issuanceNonce

	sig, sigProof, err := params.SignCredential()
	if err != nil {
		return nil, errors.Wrap(err, "unable to sign credential")
	}

	out := &anoncreds.Signature{}
	out.Signature, err = sig.ToJSON()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get signature JSON")
	}

	out.CorrectnessProof, err = sigProof.ToJSON()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get correctness proof JSON")
	}

	return out, nil
}

func (r *Engine) ProcessSignature(cred *anoncreds.Credential, attrNames []string, pubJS, bfJS json.RawMessage,
	masterSecret, requestNonce string) (json.RawMessage, error) {

	sig, err := ursa.CredentialSignatureFromJSON(cred.Signature)
	if err != nil {
		return nil, errors.Wrap(err, "invalid credential signature")
	}

	sigProof, err := ursa.SignatureCorrectnessProofFromJSON(cred.SignatureCorrectnessProof)
	if err != nil {
		return nil, errors.Wrap(err, "invalid signature correctness proof")
	}

	bf, err := ursa.CredentialSecretsBlindingFactorsFromJSON(bfJS)
	if err != nil {
		return nil, errors.Wrap(err, "invalid blinding factors")
	}

	pubKey, err := ursa.CredentialPublicKeyFromJSON(pubJS)
	if err != nil {
		return nil, errors.Wrap(err, "invalid credential definition public key")
	}
	defer func() { _ = pubKey.Free() }()

	nonce, err := ursa.NonceFromJSON(nonceJSON(requestNonce))
	if err != nil {
		return nil, errors.Wrap(err, "invalid nonce")
	}
	defer func() { _ = nonce.Free() }()

	builder, err := ursa.NewValueBuilder()
	if err != nil {
		return nil, errors.Wrap(err, "unexpected error from ursa value builder")
	}

	err = addValues(builder, attrNames, cred.Values, masterSecret)
	if err != nil {
		return nil, err
	}

	values, err := builder.Finalize()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create values")
	}
	defer func() { _ = values.Free() }()

	err = sig.ProcessCredentialSignature(values, sigProof, bf, pubKey, nonce)
	if err != nil {
		return nil, errors.Wrap(err, "credential signature does not verify")
	}

	return sig.ToJSON()
}

func (r *Engine) CreateProof(creds []*anoncreds.ProvingCredential, masterSecret, nonce string) (json.RawMessage, error) {
	nonSchema, err := nonCredentialSchema()
	if err != nil {
		return nil, err
	}

	builder, err := ursa.NewProofBuilder()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create proof builder")
	}

	err = builder.AddCommonAttribute(anoncreds.MasterSecret)
	if err != nil {
		return nil, errors.Wrap(err, "unable to add master secret to proof")
	}

	for i, pc := range creds {
		schema, err := credentialSchema(pc.AttrNames)
		if err != nil {
			return nil, err
		}

		subProofRequest, err := subProofRequest(pc.Revealed, pc.Predicates)
		if err != nil {
			return nil, err
		}

		sig, err := ursa.CredentialSignatureFromJSON(pc.Credential.Signature)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid signature for credential %d", i)
		}

		builder, err := ursa.NewValueBuilder()
		if err != nil {
			return nil, errors.Wrap(err, "unexpected error from ursa value builder")
		}

		err = addValues(builder, pc.AttrNames, pc.Credential.Values, masterSecret)
		if err != nil {
			return nil, err
		}

		values, err := builder.Finalize()
		if err != nil {
			return nil, errors.Wrap(err, "unable to create values")
		}

		pubKey, err := ursa.CredentialPublicKeyFromJSON(pc.PublicKey)
		if err != nil {
			return nil, errors.Wrap(err, "invalid credential definition public key")
		}

		err = builder.AddSubProofRequest(subProofRequest, schema, nonSchema, sig, values, pubKey)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to add sub proof %d", i)
		}
	}

	n, err := ursa.NonceFromJSON(nonceJSON(nonce))
	if err != nil {
		return nil, errors.Wrap(err, "invalid nonce")
	}
	defer func() { _ = n.Free() }()

	proof, err := builder.Finalize(n)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create proof")
	}
	defer func() { _ = proof.Free() }()

	return proof.ToJSON()
}

// cryptoProof is the part of the ursa proof JSON carrying revealed values
type cryptoProof struct {
	Proofs []struct {
		Primary struct {
			EqProof struct {
				RevealedAttrs map[string]string `json:"revealed_attrs"`
			} `json:"eq_proof"`
		} `json:"primary_proof"`
	} `json:"proofs"`
}

func (r *Engine) RevealedValues(proofJS json.RawMessage, subProofIndex int) (map[string]string, error) {
	p := &cryptoProof{}
	err := json.Unmarshal(proofJS, p)
	if err != nil {
		return nil, errors.Wrap(err, "invalid crypto proof")
	}

	if subProofIndex < 0 || subProofIndex >= len(p.Proofs) {
		return nil, errors.Errorf("crypto proof not found by index %d", subProofIndex)
	}

	out := map[string]string{}
	for k, v := range p.Proofs[subProofIndex].Primary.EqProof.RevealedAttrs {
		out[anoncreds.AttrCommonView(k)] = v
	}

	return out, nil
}

func (r *Engine) VerifyProof(proofJS json.RawMessage, creds []*anoncreds.VerifyingCredential, nonce string) (bool, error) {
	p := &cryptoProof{}
	err := json.Unmarshal(proofJS, p)
	if err != nil {
		return false, errors.Wrap(err, "invalid crypto proof")
	}

	if len(p.Proofs) != len(creds) {
		return false, errors.Errorf("proof has %d sub proofs, expected %d", len(p.Proofs), len(creds))
	}

	nonSchema, err := nonCredentialSchema()
	if err != nil {
		return false, err
	}

	verifier, err := ursa.NewProofVerifier()
	if err != nil {
		return false, errors.Wrap(err, "unable to create proof verifier")
	}

	for i, vc := range creds {
		schema, err := credentialSchema(vc.AttrNames)
		if err != nil {
			return false, err
		}

		subProofRequest, err := subProofRequest(vc.Revealed, vc.Predicates)
		if err != nil {
			return false, err
		}

		pubKey, err := ursa.CredentialPublicKeyFromJSON(vc.PublicKey)
		if err != nil {
			return false, errors.Wrapf(err, "invalid public key for sub proof %d", i)
		}

		err = verifier.AddSubProofRequest(subProofRequest, schema, nonSchema, pubKey)
		if err != nil {
			return false, errors.Wrapf(err, "unable to add sub proof request %d", i)
		}
	}

	n, err := ursa.NonceFromJSON(nonceJSON(nonce))
	if err != nil {
		return false, errors.Wrap(err, "invalid nonce")
	}
	defer func() { _ = n.Free() }()

	proof, err := ursa.ProofFromJSON(proofJS)
	if err != nil {
		return false, errors.Wrap(err, "invalid ursa proof format")
	}
	defer func() { _ = proof.Free() }()

	err = verifier.Verify(proof, n)
	if err != nil {
		logger.Debugf("proof does not verify: %v", err)
		return false, nil
	}

	return true, nil
}

// nonceJSON quotes a decimal nonce the way ursa serializes it
func nonceJSON(n string) string {
	return "\"" + strings.Trim(n, "\"") + "\""
}
