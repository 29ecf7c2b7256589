/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

const (
	OpReply   = "REPLY"
	OpReject  = "REJECT"
	OpReqNack = "REQNACK"
)

// Response is a ledger reply.  REJECT and REQNACK are ordinary responses, not transport errors.
type Response struct {
	Op         string  `json:"op"`
	ReqID      uint32  `json:"reqId,omitempty"`
	Identifier string  `json:"identifier,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Result     *Result `json:"result,omitempty"`
}

// Result is the payload of a REPLY.  Data is null for reads of absent records.
type Result struct {
	Type    string          `json:"type"`
	SeqNo   uint32          `json:"seqNo,omitempty"`
	TxnTime int64           `json:"txnTime,omitempty"`
	TxnID   string          `json:"txnId,omitempty"`
	From    string          `json:"identifier,omitempty"`
	Dest    string          `json:"dest,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// Found reports whether a read returned a record
func (r *Result) Found() bool {
	return r != nil && len(r.Data) > 0 && string(r.Data) != "null"
}

// RejectedError carries the request and the non-REPLY response that refused it
type RejectedError struct {
	Request  *Request
	Response *Response
}

func (r *RejectedError) Error() string {
	typ, _ := r.Request.OperationType()
	return fmt.Sprintf("ledger %s for txn type %s: %s", r.Response.Op, typ, r.Response.Reason)
}

// Raw returns the serialized request and response for diagnostics
func (r *RejectedError) Raw() (request, response []byte) {
	request, _ = json.Marshal(r.Request)
	response, _ = json.Marshal(r.Response)
	return
}

// Accepted reports whether the ledger replied with REPLY
func (r *Response) Accepted() bool {
	return r.Op == OpReply
}

// Err converts a refused response into a *RejectedError
func (r *Response) Err(req *Request) error {
	if r.Accepted() {
		return nil
	}

	return &RejectedError{Request: req, Response: r}
}

// DecodeData unmarshals the REPLY data into v
func (r *Response) DecodeData(v interface{}) error {
	if !r.Accepted() || r.Result == nil {
		return errors.Errorf("no result in %s response", r.Op)
	}

	return errors.Wrap(json.Unmarshal(r.Result.Data, v), "unable to decode ledger data")
}
