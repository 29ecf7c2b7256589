/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package pool

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/scoir/trustflow/pkg/ledger"
)

// NymData is the GET_NYM reply payload
type NymData struct {
	Dest       string `json:"dest"`
	Verkey     string `json:"verkey"`
	Role       string `json:"role,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	SeqNo      uint32 `json:"seqNo"`
}

// SchemaData is the GET_SCHEMA reply payload
type SchemaData struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	AttrNames []string `json:"attr_names"`
}

func (r *Pool) getNym(req *ledger.Request) *ledger.Response {
	op := &ledger.GetNym{}
	if err := req.DecodeOperation(op); err != nil {
		return nack("invalid GET_NYM operation")
	}

	r.lock.RLock()
	defer r.lock.RUnlock()

	nym, ok := r.nyms[op.Dest]
	if !ok {
		return r.reply(ledger.GET_NYM, 0, "", "", nil)
	}

	resp := r.reply(ledger.GET_NYM, nym.SeqNo, nym.DID, nym.From, &NymData{
		Dest:       nym.DID,
		Verkey:     nym.Verkey,
		Role:       nym.Role.Code(),
		Identifier: nym.From,
		SeqNo:      nym.SeqNo,
	})
	resp.Result.Dest = op.Dest
	return resp
}

func (r *Pool) getSchema(req *ledger.Request) *ledger.Response {
	op := &ledger.GetSchema{}
	if err := req.DecodeOperation(op); err != nil {
		return nack("invalid GET_SCHEMA operation")
	}

	r.lock.RLock()
	defer r.lock.RUnlock()

	id := ledger.SchemaID(op.Dest, op.Data.Name, op.Data.Version)
	rec, ok := r.schemas[id]
	if !ok {
		return r.reply(ledger.GET_SCHEMA, 0, "", "", nil)
	}

	resp := r.reply(ledger.GET_SCHEMA, rec.SeqNo, id, rec.From, &SchemaData{
		ID:        id,
		Name:      rec.Data.Name,
		Version:   rec.Data.Version,
		AttrNames: rec.Data.AttrNames,
	})
	resp.Result.Dest = op.Dest
	return resp
}

func (r *Pool) getClaimDef(req *ledger.Request) *ledger.Response {
	op := &ledger.GetClaimDef{}
	if err := req.DecodeOperation(op); err != nil {
		return nack("invalid GET_CLAIM_DEF operation")
	}

	r.lock.RLock()
	defer r.lock.RUnlock()

	id := ledger.CredDefID(op.Origin, op.Ref, op.Tag)
	rec, ok := r.credDefs[id]
	if !ok {
		return r.reply(ledger.GET_CLAIM_DEF, 0, "", "", nil)
	}

	return r.reply(ledger.GET_CLAIM_DEF, rec.SeqNo, id, rec.From, rec.Data)
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func sameJSON(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return false
	}

	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

func uitoa(n uint32) string {
	return strconv.FormatUint(uint64(n), 10)
}
