/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// KeyPair is the ed25519 signing key behind a DID
type KeyPair struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// MyDIDInfo controls DID derivation.  Cid selects the 16 byte abbreviated form used by indy ledgers.
type MyDIDInfo struct {
	DID        string
	Seed       string
	Cid        bool
	MethodName string
}

func (r *KeyPair) Verkey() string {
	return base58.Encode(r.pub)
}

func (r *KeyPair) Priv() ed25519.PrivateKey {
	return r.priv
}

// Seed returns the private seed, which is all that needs to be persisted to rebuild the pair
func (r *KeyPair) Seed() []byte {
	return r.priv.Seed()
}

func (r *KeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(r.priv, msg)
}

// KeyPairFromSeed rebuilds a key pair from its raw 32 byte seed
func KeyPairFromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.Errorf("invalid seed length %d", len(seed))
	}

	priv := ed25519.NewKeyFromSeed(seed)
	return &KeyPair{pub: priv.Public().(ed25519.PublicKey), priv: priv}, nil
}

type DIDValue struct {
	DID    string
	Method string
}

func (r *DIDValue) String() string {
	if r.Method == "" {
		return fmt.Sprintf("did:%s", r.DID)
	}
	return fmt.Sprintf("did:%s:%s", r.Method, r.DID)
}

type DID struct {
	DIDVal DIDValue
	Verkey string
}

func (r *DID) String() string {
	return r.DIDVal.String()
}

func CreateMyDid(info *MyDIDInfo) (*DID, *KeyPair, error) {
	edseed, err := convertSeed(info.Seed)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to get seed")
	}

	var kp *KeyPair
	if len(edseed) == 0 {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, errors.Wrap(err, "error generating keypair")
		}
		kp = &KeyPair{pub: pub, priv: priv}
	} else {
		kp, err = KeyPairFromSeed(edseed)
		if err != nil {
			return nil, nil, err
		}
	}

	var did string
	if info.DID != "" {
		did = info.DID
	} else if info.Cid {
		did = base58.Encode(kp.pub[0:16])
	} else {
		did = base58.Encode(kp.pub)
	}

	out := &DID{
		DIDVal: DIDValue{
			DID:    did,
			Method: info.MethodName,
		},
		Verkey: kp.Verkey(),
	}

	return out, kp, nil
}

// Verify checks an ed25519 signature against a base58 verkey
func Verify(verkey string, msg, sig []byte) (bool, error) {
	pub, err := base58.Decode(verkey)
	if err != nil {
		return false, errors.Wrap(err, "invalid verkey encoding")
	}

	if len(pub) != ed25519.PublicKeySize {
		return false, errors.Errorf("invalid verkey length %d", len(pub))
	}

	return ed25519.Verify(pub, msg, sig), nil
}

func convertSeed(seed string) ([]byte, error) {
	if seed == "" {
		return []byte{}, nil
	}

	if len(seed) == ed25519.SeedSize {
		return []byte(seed), nil
	}

	if strings.HasSuffix(seed, "=") {
		out, err := base64.StdEncoding.DecodeString(seed)
		if err != nil || len(out) != ed25519.SeedSize {
			return nil, errors.New("invalid base64 seed value")
		}
		return out, nil
	}

	if len(seed) == 2*ed25519.SeedSize {
		out, err := hex.DecodeString(seed)
		if err != nil || len(out) != ed25519.SeedSize {
			return nil, errors.New("invalid hex seed value")
		}
		return out, nil
	}

	return nil, errors.Errorf("unsupported seed format of length %d", len(seed))
}
