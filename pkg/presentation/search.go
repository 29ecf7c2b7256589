/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentation

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/anoncreds"
	"github.com/scoir/trustflow/pkg/issuance"
	"github.com/scoir/trustflow/pkg/wallet"
)

// Search is an open query of a holder wallet for the referents of one proof request.  It holds
// a wallet handle until closed.
type Search struct {
	w       *wallet.Wallet
	req     *anoncreds.ProofRequest
	release func()

	lock   sync.Mutex
	closed bool
}

// OpenSearch starts a search of w for credentials answering req
func OpenSearch(w *wallet.Wallet, req *anoncreds.ProofRequest) (*Search, error) {
	release, err := w.AcquireHandle()
	if err != nil {
		return nil, err
	}

	return &Search{w: w, req: req, release: release}, nil
}

// WithSearch runs fn over a search of w and always closes it
func WithSearch(w *wallet.Wallet, req *anoncreds.ProofRequest, fn func(s *Search) error) error {
	s, err := OpenSearch(w, req)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

func (r *Search) State() State {
	return StateSearched
}

// Close releases the wallet handle.  Closing again does nothing.
func (r *Search) Close() {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return
	}

	r.closed = true
	r.release()
}

// Referent returns a cursor over the credentials matching one referent.  Each call starts over
// from the credentials in the wallet at that moment.
func (r *Search) Referent(ref string) (*Cursor, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return nil, errors.Wrap(wallet.ErrStoreUnavailable, "search is closed")
	}

	c := &Cursor{search: r}
	if attr, ok := r.req.RequestedAttributes[ref]; ok {
		c.name = attr.Name
		c.restrictions = attr.Restrictions
	} else if pred, ok := r.req.RequestedPredicates[ref]; ok {
		c.name = pred.Name
		c.restrictions = pred.Restrictions
	} else {
		return nil, errors.Wrap(ErrUnknownReferent, ref)
	}

	ids, err := r.w.IDs(issuance.CredentialCategory)
	if err != nil {
		return nil, err
	}
	c.ids = ids

	return c, nil
}

// Cursor walks the candidate credentials for one referent, loading each only when reached
type Cursor struct {
	search       *Search
	name         string
	restrictions []anoncreds.Restriction
	ids          []string
	pos          int
}

// Next returns the next matching credential, or false when there are no more
func (r *Cursor) Next() (*anoncreds.CredentialInfo, bool, error) {
	for r.pos < len(r.ids) {
		r.search.lock.Lock()
		closed := r.search.closed
		r.search.lock.Unlock()
		if closed {
			return nil, false, errors.Wrap(wallet.ErrStoreUnavailable, "search is closed")
		}

		id := r.ids[r.pos]
		r.pos++

		rec, err := issuance.LoadCredential(r.search.w, id)
		if errors.Is(err, wallet.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, false, err
		}

		if matches(rec, r.name, r.restrictions) {
			return rec.Info(), true, nil
		}
	}

	return nil, false, nil
}

// Fetch returns up to n further matches.  An empty result means the cursor is exhausted.
func (r *Cursor) Fetch(n int) ([]*anoncreds.CredentialInfo, error) {
	var out []*anoncreds.CredentialInfo
	for len(out) < n {
		info, ok, err := r.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, info)
	}

	return out, nil
}

func matches(rec *issuance.StoredCredential, name string, restrictions []anoncreds.Restriction) bool {
	if _, ok := findAttr(valueNames(rec.Credential.Values), name); !ok {
		return false
	}

	return anoncreds.MatchesAny(restrictions, rec.Credential.SchemaID, rec.SchemaName, rec.IssuerDID, rec.Credential.CredDefID)
}
