/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	NYM           = "1"
	ATTRIB        = "100"
	SCHEMA        = "101"
	CLAIM_DEF     = "102"
	GET_NYM       = "105"
	GET_SCHEMA    = "107"
	GET_CLAIM_DEF = "108"
)

const protocolVersion = 2

var kindNames = map[string]string{
	"NYM":           NYM,
	"ATTRIB":        ATTRIB,
	"SCHEMA":        SCHEMA,
	"CLAIM_DEF":     CLAIM_DEF,
	"GET_NYM":       GET_NYM,
	"GET_SCHEMA":    GET_SCHEMA,
	"GET_CLAIM_DEF": GET_CLAIM_DEF,
}

// ParseKind accepts a request type name such as GET_NYM or its ledger code
func ParseKind(s string) (string, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	if k, ok := kindNames[u]; ok {
		return k, nil
	}

	for _, k := range kindNames {
		if k == u {
			return k, nil
		}
	}

	return "", errors.Errorf("unknown request kind %s", s)
}

// Client submits requests to a ledger
//go:generate mockery -name=Client
type Client interface {
	Submit(ctx context.Context, req *Request) (*Response, error)
	Close() error
}

// Request is an unsigned or signed ledger request
type Request struct {
	Operation       json.RawMessage   `json:"operation"`
	Identifier      string            `json:"identifier,omitempty"`
	Endorser        string            `json:"endorser,omitempty"`
	ProtocolVersion int               `json:"protocolVersion"`
	ReqID           uint32            `json:"reqId"`
	Signature       string            `json:"signature,omitempty"`
	Signatures      map[string]string `json:"signatures,omitempty"`
}

// Operation carries the discriminator shared by every operation body
type Operation struct {
	Type string `json:"type"`
}

type Nym struct {
	Operation `json:",inline"`
	Dest      string `json:"dest"`
	Verkey    string `json:"verkey,omitempty"`
	Role      string `json:"role,omitempty"`
	Alias     string `json:"alias,omitempty"`
}

type SchemaData struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	AttrNames []string `json:"attr_names"`
}

type Schema struct {
	Operation `json:",inline"`
	Data      SchemaData `json:"data"`
}

type ClaimDef struct {
	Operation     `json:",inline"`
	Ref           uint32          `json:"ref"`
	SignatureType string          `json:"signature_type"`
	Tag           string          `json:"tag"`
	Data          json.RawMessage `json:"data"`
}

type GetNym struct {
	Operation `json:",inline"`
	Dest      string `json:"dest"`
}

type GetSchemaData struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type GetSchema struct {
	Operation `json:",inline"`
	Dest      string        `json:"dest"`
	Data      GetSchemaData `json:"data"`
}

type GetClaimDef struct {
	Operation     `json:",inline"`
	Origin        string `json:"origin"`
	Ref           uint32 `json:"ref"`
	SignatureType string `json:"signature_type"`
	Tag           string `json:"tag"`
}

// OperationType decodes only the type discriminator
func (r *Request) OperationType() (string, error) {
	op := &Operation{}
	err := json.Unmarshal(r.Operation, op)
	if err != nil {
		return "", errors.Wrap(err, "invalid operation")
	}

	return op.Type, nil
}

// DecodeOperation unmarshals the operation body into v
func (r *Request) DecodeOperation(v interface{}) error {
	return errors.Wrap(json.Unmarshal(r.Operation, v), "invalid operation")
}

// ParseRequest decodes a raw request as received by a ledger node
func ParseRequest(d []byte) (*Request, error) {
	req := &Request{}
	err := json.Unmarshal(d, req)
	if err != nil {
		return nil, errors.Wrap(err, "invalid request")
	}

	if len(req.Operation) == 0 {
		return nil, errors.New("request has no operation")
	}

	return req, nil
}

func newRequest(from string, op interface{}) (*Request, error) {
	d, err := json.Marshal(op)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal operation")
	}

	return &Request{
		Operation:       d,
		Identifier:      from,
		ProtocolVersion: protocolVersion,
		ReqID:           uuid.New().ID(),
	}, nil
}

func NewNym(did, verkey, from string, role Role) (*Request, error) {
	return newRequest(from, &Nym{
		Operation: Operation{Type: NYM},
		Dest:      did,
		Verkey:    verkey,
		Role:      role.Code(),
	})
}

func NewSchema(from, name, version string, attrs []string) (*Request, error) {
	return newRequest(from, &Schema{
		Operation: Operation{Type: SCHEMA},
		Data: SchemaData{
			Name:      name,
			Version:   version,
			AttrNames: attrs,
		},
	})
}

func NewClaimDef(from string, ref uint32, tag string, data json.RawMessage) (*Request, error) {
	return newRequest(from, &ClaimDef{
		Operation:     Operation{Type: CLAIM_DEF},
		Ref:           ref,
		SignatureType: "CL",
		Tag:           tag,
		Data:          data,
	})
}

func NewGetNym(from, did string) (*Request, error) {
	return newRequest(from, &GetNym{
		Operation: Operation{Type: GET_NYM},
		Dest:      did,
	})
}

func NewGetSchema(from, dest, name, version string) (*Request, error) {
	return newRequest(from, &GetSchema{
		Operation: Operation{Type: GET_SCHEMA},
		Dest:      dest,
		Data:      GetSchemaData{Name: name, Version: version},
	})
}

func NewGetClaimDef(from, origin string, ref uint32, tag string) (*Request, error) {
	return newRequest(from, &GetClaimDef{
		Operation:     Operation{Type: GET_CLAIM_DEF},
		Origin:        origin,
		Ref:           ref,
		SignatureType: "CL",
		Tag:           tag,
	})
}

// Build creates a request from a kind and loosely typed parameters, for callers that drive
// the ledger from configuration rather than code.
func Build(kind, from string, params map[string]interface{}) (*Request, error) {
	str := func(k string) string {
		s, _ := params[k].(string)
		return s
	}

	switch kind {
	case NYM:
		role, err := ParseRole(str("role"))
		if err != nil {
			return nil, err
		}
		return NewNym(str("dest"), str("verkey"), from, role)
	case GET_NYM:
		return NewGetNym(from, str("dest"))
	case SCHEMA:
		var attrs []string
		switch v := params["attr_names"].(type) {
		case []string:
			attrs = v
		case []interface{}:
			for _, a := range v {
				s, _ := a.(string)
				attrs = append(attrs, s)
			}
		}
		return NewSchema(from, str("name"), str("version"), attrs)
	case GET_SCHEMA:
		return NewGetSchema(from, str("dest"), str("name"), str("version"))
	case CLAIM_DEF:
		ref, err := seqNo(params["ref"])
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(params["data"])
		if err != nil {
			return nil, errors.Wrap(err, "invalid claim def data")
		}
		return NewClaimDef(from, ref, str("tag"), data)
	case GET_CLAIM_DEF:
		ref, err := seqNo(params["ref"])
		if err != nil {
			return nil, err
		}
		return NewGetClaimDef(from, str("origin"), ref, str("tag"))
	}

	return nil, errors.Errorf("unsupported request kind %s", kind)
}

// seqNo reads a schema sequence number given as a number or a decimal string
func seqNo(v interface{}) (uint32, error) {
	switch n := v.(type) {
	case float64:
		if n >= 0 && n <= float64(^uint32(0)) && n == float64(uint32(n)) {
			return uint32(n), nil
		}
	case int:
		if n >= 0 && uint64(n) <= uint64(^uint32(0)) {
			return uint32(n), nil
		}
	case uint32:
		return n, nil
	case string:
		u, err := strconv.ParseUint(n, 10, 32)
		if err == nil {
			return uint32(u), nil
		}
	}

	return 0, errors.Errorf("invalid ref %v", v)
}
