/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"crypto/rand"
	"io"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// KeyDerivationArgon2 stretches a passphrase with argon2id
	KeyDerivationArgon2 = "ARGON2I_MOD"
	// KeyDerivationRaw expects a base58 encoded 32 byte key
	KeyDerivationRaw = "RAW"

	keySize   = 32
	nonceSize = 24
	saltSize  = 16
)

type cipher struct {
	key [keySize]byte
}

func deriveKey(creds Credentials, salt []byte) (*cipher, error) {
	c := &cipher{}

	switch creds.KeyDerivation {
	case "", KeyDerivationArgon2:
		if creds.Key == "" {
			return nil, errors.New("wallet key is required")
		}
		copy(c.key[:], argon2.IDKey([]byte(creds.Key), salt, 1, 32*1024, 4, keySize))
	case KeyDerivationRaw:
		raw, err := base58.Decode(creds.Key)
		if err != nil || len(raw) != keySize {
			return nil, errors.New("raw wallet key must be 32 bytes, base58 encoded")
		}
		copy(c.key[:], raw)
	default:
		return nil, errors.Errorf("unknown key derivation method %s", creds.KeyDerivation)
	}

	return c, nil
}

func (r *cipher) seal(plain []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, errors.Wrap(err, "unable to generate record nonce")
	}

	return secretbox.Seal(nonce[:], plain, &nonce, &r.key), nil
}

func (r *cipher) open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, errors.New("sealed record too short")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &r.key)
	if !ok {
		return nil, errors.New("unable to decrypt record")
	}

	return plain, nil
}

func newSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, errors.Wrap(err, "unable to generate salt")
	}

	return salt, nil
}
