/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package registry publishes and resolves schemas and credential definitions
package registry

import (
	"context"
	"strings"

	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/anoncreds"
	"github.com/scoir/trustflow/pkg/identity"
	"github.com/scoir/trustflow/pkg/ledger"
	"github.com/scoir/trustflow/pkg/wallet"
)

var logger = log.New("trustflow/registry")

var (
	ErrNotFound      = errors.New("not found on ledger")
	ErrInvalidSchema = errors.New("invalid schema")
)

type publishOpts struct {
	endorser       *identity.Identity
	endorserWallet *wallet.Wallet
}

type PublishOption func(o *publishOpts)

// WithEndorser has endorser co-sign the write, for authors that may not write on their own
func WithEndorser(endorser *identity.Identity, w *wallet.Wallet) PublishOption {
	return func(o *publishOpts) {
		o.endorser = endorser
		o.endorserWallet = w
	}
}

type Registry struct {
	ledger *identity.Registry
	engine anoncreds.Engine
}

func New(reg *identity.Registry, engine anoncreds.Engine) *Registry {
	return &Registry{ledger: reg, engine: engine}
}

// CreateSchema validates and builds a schema owned by issuer.  Nothing is written.
func (r *Registry) CreateSchema(issuer *identity.Identity, name, version string, attrs []string) (*anoncreds.Schema, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(version) == "" {
		return nil, errors.Wrap(ErrInvalidSchema, "name and version are required")
	}

	// both end up as segments of the colon separated schema id
	if strings.Contains(name, ":") || strings.Contains(version, ":") {
		return nil, errors.Wrapf(ErrInvalidSchema, "schema %s:%s contains a colon", name, version)
	}

	if len(attrs) == 0 {
		return nil, errors.Wrapf(ErrInvalidSchema, "schema %s has no attributes", name)
	}

	seen := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		if strings.TrimSpace(a) == "" {
			return nil, errors.Wrapf(ErrInvalidSchema, "schema %s has a blank attribute", name)
		}
		if seen[a] {
			return nil, errors.Wrapf(ErrInvalidSchema, "schema %s repeats attribute %s", name, a)
		}
		seen[a] = true
	}

	return &anoncreds.Schema{
		ID:        ledger.SchemaID(issuer.DID, name, version),
		Name:      name,
		Version:   version,
		AttrNames: append([]string{}, attrs...),
	}, nil
}

// PublishSchema writes schema to the ledger and returns it with its sequence number.
// Publishing an identical schema again returns the original sequence number.
func (r *Registry) PublishSchema(ctx context.Context, issuer *identity.Identity, w *wallet.Wallet,
	schema *anoncreds.Schema, opts ...PublishOption) (*anoncreds.Schema, error) {

	if schema.ID != ledger.SchemaID(issuer.DID, schema.Name, schema.Version) {
		return nil, errors.Wrapf(ErrInvalidSchema, "schema %s is not owned by %s", schema.ID, issuer.DID)
	}

	req, err := ledger.NewSchema(issuer.DID, schema.Name, schema.Version, schema.AttrNames)
	if err != nil {
		return nil, err
	}

	resp, err := r.submit(ctx, issuer, w, req, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to publish schema %s", schema.ID)
	}

	out := *schema
	out.SeqNo = resp.Result.SeqNo

	logger.Infof("published schema %s at seqNo %d", out.ID, out.SeqNo)
	return &out, nil
}

type schemaData struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	AttrNames []string `json:"attr_names"`
}

func (r *Registry) ResolveSchema(ctx context.Context, id string) (*anoncreds.Schema, error) {
	issuerDID, name, version, err := ledger.ParseSchemaID(id)
	if err != nil {
		return nil, err
	}

	req, err := ledger.NewGetSchema(issuerDID, issuerDID, name, version)
	if err != nil {
		return nil, err
	}

	resp, err := r.read(ctx, req, id)
	if err != nil {
		return nil, err
	}

	data := &schemaData{}
	err = resp.DecodeData(data)
	if err != nil {
		return nil, err
	}

	return &anoncreds.Schema{
		ID:        id,
		Name:      data.Name,
		Version:   data.Version,
		AttrNames: data.AttrNames,
		SeqNo:     resp.Result.SeqNo,
	}, nil
}

func (r *Registry) submit(ctx context.Context, author *identity.Identity, w *wallet.Wallet, req *ledger.Request,
	opts []PublishOption) (*ledger.Response, error) {

	o := &publishOpts{}
	for _, opt := range opts {
		opt(o)
	}

	var resp *ledger.Response
	var err error
	if o.endorser != nil {
		resp, err = r.ledger.SubmitEndorsed(ctx, author, w, o.endorser, o.endorserWallet, req)
	} else {
		resp, err = r.ledger.SubmitSigned(ctx, author, w, req)
	}

	if err != nil {
		return nil, err
	}

	if err = resp.Err(req); err != nil {
		return nil, err
	}

	return resp, nil
}

func (r *Registry) read(ctx context.Context, req *ledger.Request, id string) (*ledger.Response, error) {
	resp, err := r.ledger.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	if err = resp.Err(req); err != nil {
		return nil, err
	}

	if !resp.Result.Found() {
		return nil, errors.Wrap(ErrNotFound, id)
	}

	return resp, nil
}
