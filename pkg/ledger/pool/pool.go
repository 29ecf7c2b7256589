/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package pool is a single node, in-process ledger that validates signatures and role based
// write policy the way an indy pool does.  It backs tests and local runs of the CLI.
package pool

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/amqp"
	"github.com/scoir/trustflow/pkg/did"
	"github.com/scoir/trustflow/pkg/ledger"
)

var logger = log.New("trustflow/ledger/pool")

type nymRecord struct {
	DID    string      `json:"dest"`
	Verkey string      `json:"verkey"`
	Role   ledger.Role `json:"-"`
	From   string      `json:"identifier"`
	SeqNo  uint32      `json:"seqNo"`
}

type schemaRecord struct {
	ID    string
	From  string
	Data  ledger.SchemaData
	SeqNo uint32
}

type credDefRecord struct {
	ID    string
	From  string
	Ref   uint32
	Tag   string
	Data  json.RawMessage
	SeqNo uint32
}

// Event is published for every committed write
type Event struct {
	SeqNo   uint32 `json:"seqNo"`
	Type    string `json:"type"`
	ID      string `json:"id"`
	From    string `json:"identifier"`
	TxnTime int64  `json:"txnTime"`
}

type Option func(p *Pool)

// WithPublisher sends committed txn events to a broker
func WithPublisher(pub amqp.Publisher) Option {
	return func(p *Pool) {
		p.publisher = pub
	}
}

// WithLatency delays every submission, emulating consensus round trips
func WithLatency(d time.Duration) Option {
	return func(p *Pool) {
		p.latency = d
	}
}

// Pool is the in-process ledger
type Pool struct {
	lock     sync.RWMutex
	seqNo    uint32
	nyms     map[string]*nymRecord
	schemas  map[string]*schemaRecord
	bySeqNo  map[uint32]*schemaRecord
	credDefs map[string]*credDefRecord
	closed   bool

	publisher amqp.Publisher
	latency   time.Duration
	now       func() time.Time
}

// Open starts a pool from a genesis file
func Open(genesis io.Reader, opts ...Option) (*Pool, error) {
	txns, err := ReadGenesis(genesis)
	if err != nil {
		return nil, err
	}

	return New(txns, opts...)
}

func New(genesis []*GenesisTxn, opts ...Option) (*Pool, error) {
	p := &Pool{
		nyms:     map[string]*nymRecord{},
		schemas:  map[string]*schemaRecord{},
		bySeqNo:  map[uint32]*schemaRecord{},
		credDefs: map[string]*credDefRecord{},
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	for _, txn := range genesis {
		data := txn.Txn.Data
		role, err := ledger.RoleFromCode(data.Role)
		if err != nil {
			return nil, errors.Wrapf(err, "genesis nym %s", data.Dest)
		}

		verkey, err := fullVerkey(data.Dest, data.Verkey)
		if err != nil {
			return nil, errors.Wrapf(err, "genesis nym %s", data.Dest)
		}

		p.seqNo++
		p.nyms[data.Dest] = &nymRecord{DID: data.Dest, Verkey: verkey, Role: role, SeqNo: p.seqNo}
	}

	if len(p.nyms) == 0 {
		return nil, errors.New("genesis contains no NYM transactions")
	}

	logger.Infof("pool started with %d genesis nyms", len(p.nyms))
	return p, nil
}

func (r *Pool) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.closed = true
	if r.publisher != nil {
		return r.publisher.Close()
	}

	return nil
}

// Size is the number of committed txns, genesis included
func (r *Pool) Size() uint32 {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.seqNo
}

// Submit serializes req and hands it to the node the same way a remote client would
func (r *Pool) Submit(ctx context.Context, req *ledger.Request) (*ledger.Response, error) {
	d, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal request")
	}

	out, err := r.SubmitRaw(ctx, d)
	if err != nil {
		return nil, err
	}

	resp := &ledger.Response{}
	err = json.Unmarshal(out, resp)
	if err != nil {
		return nil, errors.Wrap(err, "invalid pool response")
	}

	return resp, nil
}

// SubmitRaw processes one serialized request and returns the serialized response
func (r *Pool) SubmitRaw(ctx context.Context, d []byte) ([]byte, error) {
	if r.latency > 0 {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "ledger submission abandoned")
		case <-time.After(r.latency):
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "ledger submission abandoned")
	}

	req, err := ledger.ParseRequest(d)
	if err != nil {
		return json.Marshal(&ledger.Response{Op: ledger.OpReqNack, Reason: err.Error()})
	}

	resp := r.handle(req)
	resp.ReqID = req.ReqID
	resp.Identifier = req.Identifier

	return json.Marshal(resp)
}

func (r *Pool) handle(req *ledger.Request) *ledger.Response {
	typ, err := req.OperationType()
	if err != nil {
		return nack(err.Error())
	}

	if req.ProtocolVersion != 2 {
		return nack("unsupported protocol version")
	}

	switch typ {
	case ledger.GET_NYM:
		return r.getNym(req)
	case ledger.GET_SCHEMA:
		return r.getSchema(req)
	case ledger.GET_CLAIM_DEF:
		return r.getClaimDef(req)
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return nack("pool is closed")
	}

	author, resp := r.authenticate(req)
	if resp != nil {
		return resp
	}

	switch typ {
	case ledger.NYM:
		return r.writeNym(req, author)
	case ledger.SCHEMA:
		return r.writeSchema(req, author)
	case ledger.CLAIM_DEF:
		return r.writeClaimDef(req, author)
	}

	return nack("unsupported txn type " + typ)
}

// authenticate checks every signature on a write.  Caller holds the lock.
func (r *Pool) authenticate(req *ledger.Request) (*nymRecord, *ledger.Response) {
	author, ok := r.nyms[req.Identifier]
	if !ok {
		return nil, nack("unknown identifier " + req.Identifier)
	}

	signers := req.Signers()
	if _, ok := signers[req.Identifier]; !ok {
		return nil, nack("missing author signature")
	}

	if req.Endorser != "" {
		if _, ok := signers[req.Endorser]; !ok {
			return nil, nack("missing endorser signature")
		}
	}

	msg, err := req.SignatureInput()
	if err != nil {
		return nil, nack(err.Error())
	}

	for signer, sig := range signers {
		nym, ok := r.nyms[signer]
		if !ok {
			return nil, nack("unknown signer " + signer)
		}

		raw, err := base58.Decode(sig)
		if err != nil {
			return nil, nack("invalid signature encoding")
		}

		valid, err := did.Verify(nym.Verkey, msg, raw)
		if err != nil || !valid {
			return nil, nack("insufficient correct signatures from " + signer)
		}
	}

	return author, nil
}

// mayWrite applies the endorsement rule for SCHEMA and CLAIM_DEF. Caller holds the lock.
func (r *Pool) mayWrite(req *ledger.Request, author *nymRecord) bool {
	if author.Role.CanWrite() {
		return true
	}

	if req.Endorser == "" {
		return false
	}

	endorser := r.nyms[req.Endorser]
	return endorser != nil && endorser.Role.CanWrite()
}

func (r *Pool) writeNym(req *ledger.Request, author *nymRecord) *ledger.Response {
	op := &ledger.Nym{}
	err := req.DecodeOperation(op)
	if err != nil || op.Dest == "" {
		return nack("invalid NYM operation")
	}

	role, err := ledger.RoleFromCode(op.Role)
	if err != nil {
		return nack(err.Error())
	}

	verkey, err := fullVerkey(op.Dest, op.Verkey)
	if err != nil {
		return nack(err.Error())
	}

	existing, ok := r.nyms[op.Dest]
	if ok {
		if existing.Verkey == verkey && existing.Role == role {
			return r.reply(ledger.NYM, existing.SeqNo, op.Dest, req.Identifier, op)
		}

		switch {
		case existing.Role != role && author.Role != ledger.RoleTrustee:
			return reject(author.Role.String() + " cannot change the role of " + op.Dest)
		case existing.Verkey != verkey && author.DID != op.Dest:
			return reject("only the owner may rotate the verkey of " + op.Dest)
		}

		existing.Verkey = verkey
		existing.Role = role
		return r.commit(ledger.NYM, op.Dest, req.Identifier, op)
	}

	if !ledger.CanGrant(author.Role, role) {
		return reject(author.Role.String() + " cannot add a NYM with role " + role.String())
	}

	if verkey == "" {
		return nack("NYM verkey is required")
	}

	resp := r.commit(ledger.NYM, op.Dest, req.Identifier, op)
	r.nyms[op.Dest] = &nymRecord{DID: op.Dest, Verkey: verkey, Role: role, From: req.Identifier, SeqNo: r.seqNo}
	return resp
}

func (r *Pool) writeSchema(req *ledger.Request, author *nymRecord) *ledger.Response {
	op := &ledger.Schema{}
	err := req.DecodeOperation(op)
	if err != nil {
		return nack("invalid SCHEMA operation")
	}

	if op.Data.Name == "" || op.Data.Version == "" || len(op.Data.AttrNames) == 0 {
		return nack("schema requires name, version and attributes")
	}

	seen := map[string]bool{}
	for _, a := range op.Data.AttrNames {
		if a == "" || seen[a] {
			return nack("schema attributes must be unique and non empty")
		}
		seen[a] = true
	}

	if !r.mayWrite(req, author) {
		return reject(author.Role.String() + " cannot write SCHEMA without an endorser")
	}

	id := ledger.SchemaID(req.Identifier, op.Data.Name, op.Data.Version)
	if existing, ok := r.schemas[id]; ok {
		if sameStrings(existing.Data.AttrNames, op.Data.AttrNames) {
			return r.reply(ledger.SCHEMA, existing.SeqNo, id, req.Identifier, op.Data)
		}
		return reject("schema " + id + " already exists with different attributes")
	}

	resp := r.commit(ledger.SCHEMA, id, req.Identifier, op.Data)
	rec := &schemaRecord{ID: id, From: req.Identifier, Data: op.Data, SeqNo: r.seqNo}
	r.schemas[id] = rec
	r.bySeqNo[rec.SeqNo] = rec
	return resp
}

func (r *Pool) writeClaimDef(req *ledger.Request, author *nymRecord) *ledger.Response {
	op := &ledger.ClaimDef{}
	err := req.DecodeOperation(op)
	if err != nil {
		return nack("invalid CLAIM_DEF operation")
	}

	if op.SignatureType != "CL" || op.Tag == "" || len(op.Data) == 0 {
		return nack("claim def requires CL signature type, tag and data")
	}

	if !r.mayWrite(req, author) {
		return reject(author.Role.String() + " cannot write CLAIM_DEF without an endorser")
	}

	if _, ok := r.bySeqNo[op.Ref]; !ok {
		return reject("no schema at seqNo " + uitoa(op.Ref))
	}

	id := ledger.CredDefID(req.Identifier, op.Ref, op.Tag)
	if existing, ok := r.credDefs[id]; ok {
		if sameJSON(existing.Data, op.Data) {
			return r.reply(ledger.CLAIM_DEF, existing.SeqNo, id, req.Identifier, op.Data)
		}
		return reject("claim def " + id + " already exists with different keys")
	}

	resp := r.commit(ledger.CLAIM_DEF, id, req.Identifier, op.Data)
	r.credDefs[id] = &credDefRecord{ID: id, From: req.Identifier, Ref: op.Ref, Tag: op.Tag, Data: op.Data, SeqNo: r.seqNo}
	return resp
}

// commit appends a txn.  Caller holds the lock.
func (r *Pool) commit(typ, id, from string, data interface{}) *ledger.Response {
	r.seqNo++
	resp := r.reply(typ, r.seqNo, id, from, data)

	logger.Debugf("committed txn %d type %s id %s", r.seqNo, typ, id)

	if r.publisher != nil {
		ev, _ := json.Marshal(&Event{SeqNo: r.seqNo, Type: typ, ID: id, From: from, TxnTime: resp.Result.TxnTime})
		err := r.publisher.Publish(ev, "application/json")
		if err != nil {
			logger.Warnf("unable to publish txn %d: %v", r.seqNo, err)
		}
	}

	return resp
}

func (r *Pool) reply(typ string, seqNo uint32, id, from string, data interface{}) *ledger.Response {
	d, _ := json.Marshal(data)
	return &ledger.Response{
		Op: ledger.OpReply,
		Result: &ledger.Result{
			Type:    typ,
			SeqNo:   seqNo,
			TxnTime: r.now().Unix(),
			TxnID:   id,
			From:    from,
			Data:    d,
		},
	}
}

func nack(reason string) *ledger.Response {
	return &ledger.Response{Op: ledger.OpReqNack, Reason: reason}
}

func reject(reason string) *ledger.Response {
	return &ledger.Response{Op: ledger.OpReject, Reason: reason}
}
