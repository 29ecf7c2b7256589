/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// Signer produces ed25519 signatures for one DID
//go:generate mockery -name=Signer
type Signer interface {
	DID() string
	Sign(msg []byte) ([]byte, error)
}

// SignatureInput is the canonical serialization signed by authors and endorsers
func (r *Request) SignatureInput() ([]byte, error) {
	d, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal request")
	}

	dec := json.NewDecoder(bytes.NewReader(d))
	dec.UseNumber()

	var m map[string]interface{}
	err = dec.Decode(&m)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode request")
	}

	return []byte(serialize(m, true)), nil
}

func serialize(v interface{}, top bool) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case json.Number:
		return t.String()
	case string:
		return t
	case []interface{}:
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = serialize(e, false)
		}
		return strings.Join(out, ",")
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			if top && (k == "signature" || k == "signatures" || k == "fees") {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := make([]string, len(keys))
		for i, k := range keys {
			val := serialize(t[k], false)
			if k == "raw" || k == "hash" || k == "enc" {
				sum := sha256.Sum256([]byte(val))
				val = hex.EncodeToString(sum[:])
			}
			out[i] = k + ":" + val
		}
		return strings.Join(out, "|")
	}

	return ""
}

// Sign sets the single author signature.  The request identifier defaults to the signer.
func Sign(req *Request, s Signer) error {
	if req.Identifier == "" {
		req.Identifier = s.DID()
	}

	sig, err := sign(req, s)
	if err != nil {
		return err
	}

	req.Signature = sig
	return nil
}

// MultiSign adds a signature for s.  An existing single signature moves into the signatures map
// under the request identifier.  Order matters: the author signs before the endorser.
func MultiSign(req *Request, s Signer) error {
	if req.Identifier == "" {
		req.Identifier = s.DID()
	}

	sig, err := sign(req, s)
	if err != nil {
		return err
	}

	if req.Signatures == nil {
		req.Signatures = map[string]string{}
	}

	if req.Signature != "" {
		req.Signatures[req.Identifier] = req.Signature
		req.Signature = ""
	}

	req.Signatures[s.DID()] = sig
	return nil
}

// AppendEndorser names the endorser that will co-sign the request
func AppendEndorser(req *Request, endorserDID string) {
	req.Endorser = endorserDID
}

func sign(req *Request, s Signer) (string, error) {
	msg, err := req.SignatureInput()
	if err != nil {
		return "", err
	}

	sig, err := s.Sign(msg)
	if err != nil {
		return "", errors.Wrapf(err, "unable to sign request as %s", s.DID())
	}

	return base58.Encode(sig), nil
}

// Signers lists every DID that signed the request with its base58 signature
func (r *Request) Signers() map[string]string {
	out := map[string]string{}
	for did, sig := range r.Signatures {
		out[did] = sig
	}

	if r.Signature != "" {
		out[r.Identifier] = r.Signature
	}

	return out
}
