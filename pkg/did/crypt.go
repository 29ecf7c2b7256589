/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/json"
	"io"
	"math/big"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/box"
)

// ErrDecrypt means a message was not sealed for this key or was altered in transit
var ErrDecrypt = errors.New("unable to decrypt message")

const nonceSize = 24

// fieldPrime is 2^255 - 19
var fieldPrime = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(19))

type authEnvelope struct {
	Sender string `json:"sender"`
	Nonce  string `json:"nonce"`
	Msg    string `json:"msg"`
}

// AuthCrypt seals msg for the owner of recipientVerkey.  The recipient learns the sender's verkey
// and can be sure only its holder produced the message.
func AuthCrypt(kp *KeyPair, recipientVerkey string, msg []byte) ([]byte, error) {
	peer, err := curvePublic(recipientVerkey)
	if err != nil {
		return nil, errors.Wrap(err, "invalid recipient verkey")
	}

	var nonce [nonceSize]byte
	_, err = io.ReadFull(rand.Reader, nonce[:])
	if err != nil {
		return nil, errors.Wrap(err, "unable to create nonce")
	}

	sealed := box.Seal(nil, msg, &nonce, peer, kp.curvePrivate())

	d, err := json.Marshal(&authEnvelope{
		Sender: kp.Verkey(),
		Nonce:  base58.Encode(nonce[:]),
		Msg:    base58.Encode(sealed),
	})
	return d, errors.Wrap(err, "unable to marshal envelope")
}

// AuthDecrypt opens a message sealed for kp by AuthCrypt and returns the sender's verkey with it
func AuthDecrypt(kp *KeyPair, data []byte) (string, []byte, error) {
	env := &authEnvelope{}
	err := json.Unmarshal(data, env)
	if err != nil {
		return "", nil, errors.Wrap(ErrDecrypt, "invalid envelope")
	}

	peer, err := curvePublic(env.Sender)
	if err != nil {
		return "", nil, errors.Wrap(ErrDecrypt, "invalid sender verkey")
	}

	n, err := base58.Decode(env.Nonce)
	if err != nil || len(n) != nonceSize {
		return "", nil, errors.Wrap(ErrDecrypt, "invalid nonce")
	}

	sealed, err := base58.Decode(env.Msg)
	if err != nil {
		return "", nil, errors.Wrap(ErrDecrypt, "invalid message encoding")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], n)

	msg, ok := box.Open(nil, sealed, &nonce, peer, kp.curvePrivate())
	if !ok {
		return "", nil, ErrDecrypt
	}

	return env.Sender, msg, nil
}

// curvePrivate is the X25519 scalar matching the ed25519 signing key
func (r *KeyPair) curvePrivate() *[32]byte {
	h := sha512.Sum512(r.priv.Seed())
	h[0] &= 248
	h[31] &= 127
	h[31] |= 64

	out := &[32]byte{}
	copy(out[:], h[:32])
	return out
}

// curvePublic maps an ed25519 verkey to its Montgomery u coordinate, u = (1 + y) / (1 - y)
func curvePublic(verkey string) (*[32]byte, error) {
	raw, err := base58.Decode(verkey)
	if err != nil || len(raw) != 32 {
		return nil, errors.Errorf("invalid verkey %q", verkey)
	}

	be := make([]byte, 32)
	for i := range raw {
		be[31-i] = raw[i]
	}
	be[0] &= 0x7f

	y := new(big.Int).SetBytes(be)
	if y.Cmp(fieldPrime) >= 0 {
		return nil, errors.Errorf("verkey %q is not a curve point", verkey)
	}

	den := new(big.Int).Sub(big.NewInt(1), y)
	den.Mod(den, fieldPrime)
	if den.Sign() == 0 {
		return nil, errors.Errorf("verkey %q is not a curve point", verkey)
	}

	u := new(big.Int).Add(big.NewInt(1), y)
	u.Mul(u, den.ModInverse(den, fieldPrime))
	u.Mod(u, fieldPrime)

	ub := u.Bytes()
	out := &[32]byte{}
	for i := range ub {
		out[i] = ub[len(ub)-1-i]
	}

	return out, nil
}
