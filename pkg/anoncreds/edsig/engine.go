/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package edsig is a pure Go credential engine built on ed25519 issuer signatures over salted
// attribute commitments, with the holder's master secret bound through a derived holder key.
// Every sub proof is signed by that holder key over the verifier's nonce, so a proof cannot be
// replayed under another nonce.
//
// It supports selective disclosure of attribute values, but a predicate proof discloses the
// attribute value it is checked against, so predicates are not zero knowledge here.  Deployments
// that need hiding predicates build with the ursa tag and use the CL engine.
package edsig

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"math/big"
	"sort"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/anoncreds"
)

// ErrSecretMismatch means a credential is not bound to the supplied master secret
var ErrSecretMismatch = errors.New("credential is not bound to this master secret")

const algorithm = "ed25519-commitments"

type publicKey struct {
	Alg       string   `json:"alg"`
	Verkey    string   `json:"verkey"`
	AttrNames []string `json:"attr_names"`
}

type privateKey struct {
	Seed string `json:"seed"`
}

type keyProof struct {
	Sig string `json:"sig"`
}

type blindedMS struct {
	Commitment string `json:"commitment"`
}

type digestProof struct {
	C string `json:"c"`
}

type blindingFactor struct {
	BF string `json:"bf"`
}

type signature struct {
	MSCommitment string            `json:"ms_commitment"`
	Commitments  map[string]string `json:"commitments"`
	Salts        map[string]string `json:"salts"`
	Sig          string            `json:"sig"`
	BF           string            `json:"bf,omitempty"`
}

type disclosed struct {
	Encoded string `json:"encoded"`
	Salt    string `json:"salt"`
}

type predicateProof struct {
	Attr    string `json:"attr"`
	PType   string `json:"p_type"`
	PValue  int32  `json:"p_value"`
	Encoded string `json:"encoded"`
	Salt    string `json:"salt"`
}

type subProof struct {
	MSCommitment string               `json:"ms_commitment"`
	Commitments  map[string]string    `json:"commitments"`
	Sig          string               `json:"sig"`
	Revealed     map[string]disclosed `json:"revealed"`
	Predicates   []predicateProof     `json:"predicates"`
	HolderSig    string               `json:"holder_sig,omitempty"`
}

type proof struct {
	Proofs []subProof `json:"proofs"`
	Nonce  string     `json:"nonce"`
}

// Engine implements anoncreds.Engine
type Engine struct {
	rand io.Reader
}

func New() *Engine {
	return &Engine{rand: rand.Reader}
}

func (r *Engine) random(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := io.ReadFull(r.rand, b)
	return b, errors.Wrap(err, "unable to read randomness")
}

// NewNonce returns an 80 bit decimal nonce
func (r *Engine) NewNonce() (string, error) {
	b, err := r.random(10)
	if err != nil {
		return "", err
	}

	return new(big.Int).SetBytes(b).String(), nil
}

func (r *Engine) NewMasterSecret() (string, error) {
	b, err := r.random(32)
	if err != nil {
		return "", err
	}

	return new(big.Int).SetBytes(b).String(), nil
}

func (r *Engine) NewCredentialDefinition(attrNames []string, _ bool) (*anoncreds.CredDefKeys, error) {
	seed, err := r.random(ed25519.SeedSize)
	if err != nil {
		return nil, err
	}

	priv := ed25519.NewKeyFromSeed(seed)
	pub := &publicKey{
		Alg:       algorithm,
		Verkey:    base58.Encode(priv.Public().(ed25519.PublicKey)),
		AttrNames: attrNames,
	}

	pubJS, err := json.Marshal(pub)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal public key")
	}

	privJS, err := json.Marshal(&privateKey{Seed: base58.Encode(seed)})
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal private key")
	}

	kp, err := json.Marshal(&keyProof{Sig: base58.Encode(ed25519.Sign(priv, keyProofInput(pub)))})
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal key correctness proof")
	}

	return &anoncreds.CredDefKeys{PublicKey: pubJS, PrivateKey: privJS, CorrectnessProof: kp}, nil
}

func (r *Engine) BlindMasterSecret(pubJS, keyProofJS json.RawMessage, offerNonce, masterSecret string) (*anoncreds.BlindedSecrets, error) {
	pub, err := parsePublicKey(pubJS)
	if err != nil {
		return nil, err
	}

	kp := &keyProof{}
	err = json.Unmarshal(keyProofJS, kp)
	if err != nil {
		return nil, errors.Wrap(err, "invalid key correctness proof")
	}

	if !verify(pub.Verkey, keyProofInput(pub), kp.Sig) {
		return nil, errors.New("key correctness proof does not verify")
	}

	if masterSecret == "" {
		return nil, errors.New("master secret is required")
	}

	bf, err := r.random(32)
	if err != nil {
		return nil, err
	}

	holder := holderKey(masterSecret, hex.EncodeToString(bf))
	commitment := base58.Encode(holder.Public().(ed25519.PublicKey))

	out := &anoncreds.BlindedSecrets{}
	out.BlindedMS, _ = json.Marshal(&blindedMS{Commitment: commitment})
	out.CorrectnessProof, _ = json.Marshal(&digestProof{C: base58.Encode(ed25519.Sign(holder, blindInput(commitment, offerNonce)))})
	out.BlindingFactor, _ = json.Marshal(&blindingFactor{BF: hex.EncodeToString(bf)})
	return out, nil
}

func (r *Engine) SignCredential(req *anoncreds.SignRequest) (*anoncreds.Signature, error) {
	pub, err := parsePublicKey(req.PublicKey)
	if err != nil {
		return nil, err
	}

	priv := &privateKey{}
	err = json.Unmarshal(req.PrivateKey, priv)
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}

	seed, err := base58.Decode(priv.Seed)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, errors.New("invalid private key seed")
	}

	blinded := &blindedMS{}
	err = json.Unmarshal(req.BlindedMS, blinded)
	if err != nil {
		return nil, errors.Wrap(err, "invalid blinded master secret")
	}

	cp := &digestProof{}
	err = json.Unmarshal(req.BlindedMSCorrectnessProof, cp)
	if err != nil {
		return nil, errors.Wrap(err, "invalid blinded master secret correctness proof")
	}

	if !verify(blinded.Commitment, blindInput(blinded.Commitment, req.OfferNonce), cp.C) {
		return nil, errors.New("blinded master secret correctness proof does not verify")
	}

	if !sameSet(pub.AttrNames, valueNames(req.Values)) {
		return nil, errors.New("credential values do not match the credential definition attributes")
	}

	sig := &signature{
		MSCommitment: blinded.Commitment,
		Commitments:  map[string]string{},
		Salts:        map[string]string{},
	}

	for name, v := range req.Values {
		salt, err := r.random(16)
		if err != nil {
			return nil, err
		}
		sig.Salts[name] = hex.EncodeToString(salt)
		sig.Commitments[name] = commit(name, v.Encoded, sig.Salts[name])
	}

	key := ed25519.NewKeyFromSeed(seed)
	sig.Sig = base58.Encode(ed25519.Sign(key, signatureInput(pub.Verkey, sig)))

	out := &anoncreds.Signature{}
	out.Signature, err = json.Marshal(sig)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal signature")
	}

	out.CorrectnessProof, _ = json.Marshal(&digestProof{C: digest(sig.Sig, req.RequestNonce)})
	return out, nil
}

func (r *Engine) ProcessSignature(cred *anoncreds.Credential, attrNames []string, pubJS, bfJS json.RawMessage,
	masterSecret, requestNonce string) (json.RawMessage, error) {

	pub, err := parsePublicKey(pubJS)
	if err != nil {
		return nil, err
	}

	sig := &signature{}
	err = json.Unmarshal(cred.Signature, sig)
	if err != nil {
		return nil, errors.Wrap(err, "invalid credential signature")
	}

	cp := &digestProof{}
	err = json.Unmarshal(cred.SignatureCorrectnessProof, cp)
	if err != nil || cp.C != digest(sig.Sig, requestNonce) {
		return nil, errors.New("signature correctness proof does not verify")
	}

	if !verify(pub.Verkey, signatureInput(pub.Verkey, sig), sig.Sig) {
		return nil, errors.New("credential signature does not verify")
	}

	if !sameSet(attrNames, valueNames(cred.Values)) || !sameSet(attrNames, pub.AttrNames) {
		return nil, errors.New("credential values do not match the schema")
	}

	for name, v := range cred.Values {
		if commit(name, v.Encoded, sig.Salts[name]) != sig.Commitments[name] {
			return nil, errors.Errorf("value of %s does not match its commitment", name)
		}
	}

	bf := &blindingFactor{}
	err = json.Unmarshal(bfJS, bf)
	if err != nil {
		return nil, errors.Wrap(err, "invalid blinding factor")
	}

	if holderVerkey(masterSecret, bf.BF) != sig.MSCommitment {
		return nil, ErrSecretMismatch
	}

	sig.BF = bf.BF
	return json.Marshal(sig)
}

func (r *Engine) CreateProof(creds []*anoncreds.ProvingCredential, masterSecret, nonce string) (json.RawMessage, error) {
	out := &proof{Nonce: nonce}

	for _, pc := range creds {
		sig := &signature{}
		err := json.Unmarshal(pc.Credential.Signature, sig)
		if err != nil {
			return nil, errors.Wrap(err, "invalid stored credential signature")
		}

		if sig.BF == "" || holderVerkey(masterSecret, sig.BF) != sig.MSCommitment {
			return nil, errors.Wrapf(ErrSecretMismatch, "credential %s", pc.Credential.CredDefID)
		}

		sp := subProof{
			MSCommitment: sig.MSCommitment,
			Commitments:  sig.Commitments,
			Sig:          sig.Sig,
			Revealed:     map[string]disclosed{},
		}

		for _, name := range pc.Revealed {
			v, ok := pc.Credential.Values[name]
			if !ok {
				return nil, errors.Errorf("credential has no attribute %s", name)
			}
			sp.Revealed[name] = disclosed{Encoded: v.Encoded, Salt: sig.Salts[name]}
		}

		for _, p := range pc.Predicates {
			v, ok := pc.Credential.Values[p.Name]
			if !ok {
				return nil, errors.Errorf("credential has no attribute %s", p.Name)
			}
			sp.Predicates = append(sp.Predicates, predicateProof{
				Attr:    p.Name,
				PType:   p.PType,
				PValue:  p.PValue,
				Encoded: v.Encoded,
				Salt:    sig.Salts[p.Name],
			})
		}

		msg, err := subProofInput(nonce, sp)
		if err != nil {
			return nil, err
		}
		sp.HolderSig = base58.Encode(ed25519.Sign(holderKey(masterSecret, sig.BF), msg))

		out.Proofs = append(out.Proofs, sp)
	}

	return json.Marshal(out)
}

func (r *Engine) RevealedValues(proofJS json.RawMessage, subProofIndex int) (map[string]string, error) {
	p := &proof{}
	err := json.Unmarshal(proofJS, p)
	if err != nil {
		return nil, errors.Wrap(err, "invalid proof")
	}

	if subProofIndex < 0 || subProofIndex >= len(p.Proofs) {
		return nil, errors.Errorf("sub proof index %d out of range", subProofIndex)
	}

	out := map[string]string{}
	for name, d := range p.Proofs[subProofIndex].Revealed {
		out[anoncreds.AttrCommonView(name)] = d.Encoded
	}

	return out, nil
}

func (r *Engine) VerifyProof(proofJS json.RawMessage, creds []*anoncreds.VerifyingCredential, nonce string) (bool, error) {
	p := &proof{}
	err := json.Unmarshal(proofJS, p)
	if err != nil {
		return false, errors.Wrap(err, "invalid proof")
	}

	if len(p.Proofs) != len(creds) {
		return false, errors.Errorf("proof has %d sub proofs, expected %d", len(p.Proofs), len(creds))
	}

	if p.Nonce != nonce {
		return false, nil
	}

	for i, vc := range creds {
		pub, err := parsePublicKey(vc.PublicKey)
		if err != nil {
			return false, err
		}

		sp := p.Proofs[i]
		if !sameSet(pub.AttrNames, sortedNames(sp.Commitments)) {
			return false, nil
		}

		msg, err := subProofInput(nonce, sp)
		if err != nil {
			return false, err
		}

		if !verify(sp.MSCommitment, msg, sp.HolderSig) {
			return false, nil
		}

		sig := &signature{MSCommitment: sp.MSCommitment, Commitments: sp.Commitments}
		if !verify(pub.Verkey, signatureInput(pub.Verkey, sig), sp.Sig) {
			return false, nil
		}

		for _, name := range vc.Revealed {
			d, ok := sp.Revealed[name]
			if !ok || commit(name, d.Encoded, d.Salt) != sp.Commitments[name] {
				return false, nil
			}
		}

		for _, want := range vc.Predicates {
			if !predicateHolds(sp, want) {
				return false, nil
			}
		}
	}

	return true, nil
}

func predicateHolds(sp subProof, want anoncreds.PredicateInfo) bool {
	for _, pp := range sp.Predicates {
		if pp.Attr != want.Name || pp.PType != want.PType || pp.PValue != want.PValue {
			continue
		}

		if commit(pp.Attr, pp.Encoded, pp.Salt) != sp.Commitments[pp.Attr] {
			return false
		}

		ok, err := want.Satisfies(pp.Encoded)
		return err == nil && ok
	}

	return false
}

func parsePublicKey(d json.RawMessage) (*publicKey, error) {
	pub := &publicKey{}
	err := json.Unmarshal(d, pub)
	if err != nil {
		return nil, errors.Wrap(err, "invalid credential definition public key")
	}

	if pub.Alg != algorithm || pub.Verkey == "" {
		return nil, errors.Errorf("unsupported credential definition key %q", pub.Alg)
	}

	return pub, nil
}

func keyProofInput(pub *publicKey) []byte {
	return []byte("key|" + pub.Verkey + "|" + strings.Join(pub.AttrNames, ","))
}

func signatureInput(verkey string, sig *signature) []byte {
	names := sortedNames(sig.Commitments)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + "=" + sig.Commitments[n]
	}

	return []byte("cred|" + verkey + "|" + sig.MSCommitment + "|" + strings.Join(parts, ","))
}

func blindInput(commitment, offerNonce string) []byte {
	return []byte("blind|" + commitment + "|" + offerNonce)
}

// subProofInput covers everything in the sub proof except the holder signature itself
func subProofInput(nonce string, sp subProof) ([]byte, error) {
	sp.HolderSig = ""
	d, err := json.Marshal(sp)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal sub proof")
	}

	return append([]byte("proof|"+nonce+"|"), d...), nil
}

func holderKey(masterSecret, bf string) ed25519.PrivateKey {
	seed := sha256.Sum256([]byte("holder|" + masterSecret + "|" + bf))
	return ed25519.NewKeyFromSeed(seed[:])
}

func holderVerkey(masterSecret, bf string) string {
	return base58.Encode(holderKey(masterSecret, bf).Public().(ed25519.PublicKey))
}

func verify(verkey string, msg []byte, sig string) bool {
	pub, err := base58.Decode(verkey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}

	raw, err := base58.Decode(sig)
	if err != nil {
		return false
	}

	return ed25519.Verify(pub, msg, raw)
}

func commit(name, encoded, salt string) string {
	return digest("attr", name, encoded, salt)
}

func digest(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func valueNames(m map[string]anoncreds.AttributeValue) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sortedNames(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[s] = true
	}

	for _, s := range b {
		if !seen[s] {
			return false
		}
	}

	return len(seen) == len(b)
}
