/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package identity

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/scoir/trustflow/pkg/ledger"
	"github.com/scoir/trustflow/pkg/wallet"
)

var (
	submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustflow_ledger_submissions_total",
		Help: "Ledger submissions by txn type and response op",
	}, []string{"txn_type", "op"})

	submissionSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trustflow_ledger_submission_seconds",
		Help:    "Ledger submission round trip by txn type",
		Buckets: prometheus.DefBuckets,
	}, []string{"txn_type"})
)

// Registry is the only path to the ledger.  REPLY, REJECT and REQNACK all come back as a
// response, an error means the request never got an answer.
type Registry struct {
	client ledger.Client
}

func NewRegistry(client ledger.Client) *Registry {
	return &Registry{client: client}
}

// Submit sends req as is.  Used for reads, which need no signature.
func (r *Registry) Submit(ctx context.Context, req *ledger.Request) (*ledger.Response, error) {
	typ, _ := req.OperationType()

	start := time.Now()
	resp, err := r.client.Submit(ctx, req)
	submissionSeconds.WithLabelValues(typ).Observe(time.Since(start).Seconds())

	if err != nil {
		submissions.WithLabelValues(typ, "error").Inc()
		logger.Warnf("ledger submission of txn type %s failed: %v", typ, err)
		return nil, err
	}

	submissions.WithLabelValues(typ, resp.Op).Inc()
	if !resp.Accepted() {
		logger.Debugf("ledger %s for txn type %s: %s", resp.Op, typ, resp.Reason)
	}

	return resp, nil
}

// SubmitSigned signs req as signer, who becomes the submitter of record, and submits it
func (r *Registry) SubmitSigned(ctx context.Context, signer *Identity, w *wallet.Wallet, req *ledger.Request) (*ledger.Response, error) {
	s, err := newSigner(w, signer.DID)
	if err != nil {
		return nil, err
	}

	req.Identifier = signer.DID
	err = ledger.Sign(req, s)
	if err != nil {
		return nil, err
	}

	return r.Submit(ctx, req)
}

// SubmitEndorsed has author sign req and endorser co-sign it, so an author without write
// permission can publish under the endorser's authority.
func (r *Registry) SubmitEndorsed(ctx context.Context, author *Identity, authorWallet *wallet.Wallet,
	endorser *Identity, endorserWallet *wallet.Wallet, req *ledger.Request) (*ledger.Response, error) {

	as, err := newSigner(authorWallet, author.DID)
	if err != nil {
		return nil, err
	}

	es, err := newSigner(endorserWallet, endorser.DID)
	if err != nil {
		return nil, err
	}

	req.Identifier = author.DID
	req.Signature = ""
	req.Signatures = nil
	ledger.AppendEndorser(req, endorser.DID)

	err = ledger.MultiSign(req, as)
	if err != nil {
		return nil, err
	}

	err = ledger.MultiSign(req, es)
	if err != nil {
		return nil, err
	}

	return r.Submit(ctx, req)
}
