//go:build indyvdr
// +build indyvdr

/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vdr submits ledger requests to an Indy pool through indy-vdr.  It needs the native
// library and is only built with the indyvdr tag.
package vdr

import (
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"strings"

	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/hyperledger/indy-vdr/wrappers/golang/vdr"
	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/ledger"
)

var logger = log.New("trustflow/vdr")

// Client adapts the indy-vdr pool client to ledger.Client
type Client struct {
	client *vdr.Client
}

// New connects to the pool described by the genesis transactions in genesis
func New(genesis io.Reader) (*Client, error) {
	cl, err := vdr.New(ioutil.NopCloser(genesis))
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to indy pool")
	}

	err = cl.RefreshPool()
	if err != nil {
		_ = cl.Close()
		return nil, errors.Wrap(err, "unable to refresh indy pool")
	}

	return &Client{client: cl}, nil
}

func (r *Client) Close() error {
	return r.client.Close()
}

// reply is the JSON form of a vdr read reply
type reply struct {
	Type       string          `json:"type"`
	Identifier string          `json:"identifier"`
	ReqID      uint32          `json:"reqId"`
	SeqNo      uint32          `json:"seqNo"`
	TxnTime    int64           `json:"txnTime"`
	Data       json.RawMessage `json:"data"`
}

// Submit sends a serialized request.  indy-vdr reports REJECT and REQNACK as errors, which are
// turned back into responses here so callers see them as data.
func (r *Client) Submit(ctx context.Context, req *ledger.Request) (*ledger.Response, error) {
	d, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal ledger request")
	}

	type result struct {
		rply *vdr.ReadReply
		err  error
	}

	ch := make(chan result, 1)
	go func() {
		rply, err := r.client.Submit(d)
		ch <- result{rply, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "ledger request abandoned")
	case res = <-ch:
	}

	if res.err != nil {
		if resp, ok := refusal(req, res.err); ok {
			return resp, nil
		}
		return nil, errors.Wrap(res.err, "indy pool submit failed")
	}

	return toResponse(req, res.rply)
}

func refusal(req *ledger.Request, err error) (*ledger.Response, bool) {
	msg := err.Error()
	for _, op := range []string{ledger.OpReject, ledger.OpReqNack} {
		if strings.Contains(msg, op) {
			logger.Debugf("indy pool refused request %d: %s", req.ReqID, msg)
			return &ledger.Response{Op: op, ReqID: req.ReqID, Identifier: req.Identifier, Reason: msg}, true
		}
	}

	return nil, false
}

func toResponse(req *ledger.Request, rply *vdr.ReadReply) (*ledger.Response, error) {
	d, err := json.Marshal(rply)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read indy reply")
	}

	rp := &reply{}
	err = json.Unmarshal(d, rp)
	if err != nil {
		return nil, errors.Wrap(err, "invalid indy reply")
	}

	data := rp.Data
	var s string
	if json.Unmarshal(data, &s) == nil {
		data = json.RawMessage(s)
		if s == "" {
			data = json.RawMessage("null")
		}
	}

	return &ledger.Response{
		Op:         ledger.OpReply,
		ReqID:      req.ReqID,
		Identifier: req.Identifier,
		Result: &ledger.Result{
			Type:    rp.Type,
			SeqNo:   rp.SeqNo,
			TxnTime: rp.TxnTime,
			From:    rp.Identifier,
			Data:    data,
		},
	}, nil
}
