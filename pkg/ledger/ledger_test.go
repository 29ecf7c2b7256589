/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"encoding/json"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/scoir/trustflow/pkg/did"
)

type keySigner struct {
	did string
	kp  *did.KeyPair
}

func (r *keySigner) DID() string {
	return r.did
}

func (r *keySigner) Sign(msg []byte) ([]byte, error) {
	return r.kp.Sign(msg), nil
}

func newSigner(t *testing.T, seed string) *keySigner {
	d, kp, err := did.CreateMyDid(&did.MyDIDInfo{Seed: seed, Cid: true})
	require.NoError(t, err)
	return &keySigner{did: d.DIDVal.DID, kp: kp}
}

func TestCanGrant(t *testing.T) {
	tests := []struct {
		a, b Role
		want bool
	}{
		{RoleTrustee, RoleTrustee, true},
		{RoleTrustee, RoleSteward, true},
		{RoleTrustee, RoleNetworkMonitor, true},
		{RoleTrustee, RoleNone, true},
		{RoleSteward, RoleEndorser, true},
		{RoleSteward, RoleTrustAnchor, true},
		{RoleSteward, RoleNone, true},
		{RoleSteward, RoleSteward, false},
		{RoleSteward, RoleTrustee, false},
		{RoleEndorser, RoleEndorser, true},
		{RoleEndorser, RoleNone, true},
		{RoleEndorser, RoleTrustee, false},
		{RoleTrustAnchor, RoleEndorser, true},
		{RoleNetworkMonitor, RoleNone, false},
		{RoleNone, RoleNone, false},
		{RoleNone, RoleEndorser, false},
	}

	for _, tt := range tests {
		t.Run(tt.a.String()+"->"+tt.b.String(), func(t *testing.T) {
			require.Equal(t, tt.want, CanGrant(tt.a, tt.b))
		})
	}
}

func TestRole(t *testing.T) {
	t.Run("partial order", func(t *testing.T) {
		require.True(t, RoleTrustee.Outranks(RoleSteward))
		require.True(t, RoleSteward.Outranks(RoleNone))
		require.False(t, RoleSteward.Outranks(RoleEndorser))
		require.False(t, RoleEndorser.Outranks(RoleSteward))
		require.False(t, RoleNone.Outranks(RoleNone))
	})

	t.Run("codes", func(t *testing.T) {
		require.Equal(t, "0", RoleTrustee.Code())
		require.Equal(t, "101", RoleTrustAnchor.Code())
		require.Equal(t, "", RoleNone.Code())

		r, err := RoleFromCode("101")
		require.NoError(t, err)
		require.Equal(t, RoleEndorser, r)

		_, err = RoleFromCode("7")
		require.Error(t, err)
	})

	t.Run("parse", func(t *testing.T) {
		r, err := ParseRole("steward")
		require.NoError(t, err)
		require.Equal(t, RoleSteward, r)

		r, err = ParseRole("TRUST_ANCHOR")
		require.NoError(t, err)
		require.Equal(t, RoleTrustAnchor, r)

		r, err = ParseRole("")
		require.NoError(t, err)
		require.Equal(t, RoleNone, r)

		r, err = ParseRole("201")
		require.NoError(t, err)
		require.Equal(t, RoleNetworkMonitor, r)

		_, err = ParseRole("admin")
		require.Error(t, err)
	})

	t.Run("write privilege", func(t *testing.T) {
		require.True(t, RoleEndorser.CanWrite())
		require.True(t, RoleTrustee.CanWrite())
		require.False(t, RoleNone.CanWrite())
		require.False(t, RoleNetworkMonitor.CanWrite())
	})
}

func TestSignatureInput(t *testing.T) {
	t.Run("request", func(t *testing.T) {
		req := &Request{
			Operation:       json.RawMessage(`{"type":"1","dest":"xyz"}`),
			Identifier:      "abc",
			ProtocolVersion: 2,
			ReqID:           1,
			Signature:       "zzz",
			Signatures:      map[string]string{"abc": "zzz"},
		}

		d, err := req.SignatureInput()
		require.NoError(t, err)
		require.Equal(t, "identifier:abc|operation:dest:xyz|type:1|protocolVersion:2|reqId:1", string(d))
	})

	t.Run("nested values", func(t *testing.T) {
		m := map[string]interface{}{
			"name":      "John Doe",
			"age":       json.Number("43"),
			"operation": map[string]interface{}{"dest": "54", "raw": "x"},
			"phones":    []interface{}{"1234567", map[string]interface{}{"rust": json.Number("5"), "age": json.Number("1")}, json.Number("3")},
			"flag":      true,
			"nothing":   nil,
		}

		got := serialize(m, true)
		require.Equal(t, "age:43|flag:True|name:John Doe|nothing:None|"+
			"operation:dest:54|raw:2d711642b726b04401627ca9fbac32f5c8530fb1903cc4db02258717921a4881|"+
			"phones:1234567,age:1|rust:5,3", got)
	})

	t.Run("signature fields only skipped at top level", func(t *testing.T) {
		m := map[string]interface{}{
			"operation": map[string]interface{}{"signature": "kept"},
			"signature": "dropped",
		}
		require.Equal(t, "operation:signature:kept", serialize(m, true))
	})
}

func TestSign(t *testing.T) {
	author := newSigner(t, "000000000000000000000000Trustee1")
	endorser := newSigner(t, "000000000000000000000000Steward1")

	t.Run("single", func(t *testing.T) {
		req, err := NewNym("did1", "verkey1", "", RoleEndorser)
		require.NoError(t, err)

		err = Sign(req, author)
		require.NoError(t, err)
		require.Equal(t, author.DID(), req.Identifier)
		require.NotEmpty(t, req.Signature)

		msg, err := req.SignatureInput()
		require.NoError(t, err)
		sig, err := base58.Decode(req.Signature)
		require.NoError(t, err)

		ok, err := did.Verify(author.kp.Verkey(), msg, sig)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("author then endorser", func(t *testing.T) {
		req, err := NewSchema(author.DID(), "gvt", "1.0", []string{"name", "age", "sex", "height"})
		require.NoError(t, err)

		AppendEndorser(req, endorser.DID())
		require.NoError(t, MultiSign(req, author))
		require.NoError(t, MultiSign(req, endorser))

		require.Empty(t, req.Signature)
		require.Len(t, req.Signatures, 2)

		msg, err := req.SignatureInput()
		require.NoError(t, err)
		require.Contains(t, string(msg), "endorser:"+endorser.DID())

		for signer, kp := range map[string]*did.KeyPair{author.DID(): author.kp, endorser.DID(): endorser.kp} {
			sig, err := base58.Decode(req.Signatures[signer])
			require.NoError(t, err)
			ok, err := did.Verify(kp.Verkey(), msg, sig)
			require.NoError(t, err)
			require.True(t, ok)
		}
	})

	t.Run("multi sign moves single signature", func(t *testing.T) {
		req, err := NewSchema(author.DID(), "gvt", "1.0", []string{"name"})
		require.NoError(t, err)

		require.NoError(t, Sign(req, author))
		single := req.Signature
		require.NoError(t, MultiSign(req, endorser))

		require.Equal(t, single, req.Signatures[author.DID()])
		require.Len(t, req.Signers(), 2)
	})
}

func TestBuild(t *testing.T) {
	t.Run("nym", func(t *testing.T) {
		req, err := Build(NYM, "from", map[string]interface{}{"dest": "d", "verkey": "v", "role": "ENDORSER"})
		require.NoError(t, err)

		nym := &Nym{}
		require.NoError(t, req.DecodeOperation(nym))
		require.Equal(t, "101", nym.Role)
		require.Equal(t, "d", nym.Dest)
		require.Equal(t, 2, req.ProtocolVersion)
	})

	t.Run("schema", func(t *testing.T) {
		req, err := Build(SCHEMA, "from", map[string]interface{}{"name": "n", "version": "1.0",
			"attr_names": []interface{}{"a", "b"}})
		require.NoError(t, err)

		typ, err := req.OperationType()
		require.NoError(t, err)
		require.Equal(t, SCHEMA, typ)

		s := &Schema{}
		require.NoError(t, req.DecodeOperation(s))
		require.Equal(t, []string{"a", "b"}, s.Data.AttrNames)
	})

	t.Run("claim def", func(t *testing.T) {
		req, err := Build(CLAIM_DEF, "from", map[string]interface{}{"ref": float64(7), "tag": "TAG1",
			"data": map[string]interface{}{"primary": map[string]interface{}{"n": "1"}}})
		require.NoError(t, err)

		cd := &ClaimDef{}
		require.NoError(t, req.DecodeOperation(cd))
		require.Equal(t, uint32(7), cd.Ref)
		require.Equal(t, "TAG1", cd.Tag)
		require.Equal(t, "CL", cd.SignatureType)
		require.JSONEq(t, `{"primary":{"n":"1"}}`, string(cd.Data))
	})

	t.Run("get claim def", func(t *testing.T) {
		req, err := Build(GET_CLAIM_DEF, "from", map[string]interface{}{"origin": "o", "ref": "12", "tag": "TAG1"})
		require.NoError(t, err)

		cd := &GetClaimDef{}
		require.NoError(t, req.DecodeOperation(cd))
		require.Equal(t, GET_CLAIM_DEF, cd.Type)
		require.Equal(t, "o", cd.Origin)
		require.Equal(t, uint32(12), cd.Ref)

		for _, bad := range []interface{}{nil, -1, 1.5, "x", float64(1 << 33)} {
			_, err = Build(GET_CLAIM_DEF, "from", map[string]interface{}{"origin": "o", "ref": bad})
			require.Error(t, err, "%v", bad)
		}
	})

	t.Run("kind names", func(t *testing.T) {
		k, err := ParseKind("get_nym")
		require.NoError(t, err)
		require.Equal(t, GET_NYM, k)

		k, err = ParseKind("108")
		require.NoError(t, err)
		require.Equal(t, GET_CLAIM_DEF, k)

		_, err = ParseKind("POOL_UPGRADE")
		require.Error(t, err)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := Build("999", "from", nil)
		require.Error(t, err)

		_, err = Build(NYM, "from", map[string]interface{}{"role": "king"})
		require.Error(t, err)
	})

	t.Run("parse", func(t *testing.T) {
		_, err := ParseRequest([]byte(`{"identifier":"x"}`))
		require.Error(t, err)

		_, err = ParseRequest([]byte(`{`))
		require.Error(t, err)
	})
}

func TestResponse(t *testing.T) {
	req, err := NewGetNym("a", "b")
	require.NoError(t, err)

	resp := &Response{Op: OpReply, Result: &Result{Type: GET_NYM, Data: json.RawMessage("null")}}
	require.NoError(t, resp.Err(req))
	require.False(t, resp.Result.Found())

	resp = &Response{Op: OpReject, Reason: "nope"}
	err = resp.Err(req)
	rejected := &RejectedError{}
	require.True(t, errors.As(err, &rejected))
	require.Contains(t, err.Error(), "REJECT for txn type 105: nope")

	rawReq, rawResp := rejected.Raw()
	require.Contains(t, string(rawReq), `"dest":"b"`)
	require.Contains(t, string(rawResp), `"op":"REJECT"`)

	require.Error(t, resp.DecodeData(&Nym{}))
}
