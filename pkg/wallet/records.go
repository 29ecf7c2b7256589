/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"encoding/json"
	"sync"

	"github.com/hyperledger/aries-framework-go/pkg/storage"
	"github.com/pkg/errors"
)

// Wallet is an open, unlocked credential store.  Records are JSON documents grouped by category,
// encrypted at rest with the wallet key.
type Wallet struct {
	id     string
	store  storage.Store
	cipher *cipher

	// guards index, closed and handles
	lock    sync.RWMutex
	index   map[string][]string
	closed  bool
	handles int

	scope   sync.Mutex
	onClose func()
}

func recordKey(category, id string) string {
	return category + ":" + id
}

func (r *Wallet) ID() string {
	return r.id
}

func (r *Wallet) Close() error {
	r.lock.Lock()
	if r.closed {
		r.lock.Unlock()
		return errors.Wrapf(ErrStoreUnavailable, "wallet %s already closed", r.id)
	}
	r.closed = true
	r.lock.Unlock()

	if r.onClose != nil {
		r.onClose()
	}

	return nil
}

func (r *Wallet) markClosed() {
	r.lock.Lock()
	r.closed = true
	r.lock.Unlock()
}

// Exclusive runs fn while holding the wallet's mutual exclusion scope.  Reads through Get
// and IDs are not blocked by the scope.
func (r *Wallet) Exclusive(fn func() error) error {
	r.scope.Lock()
	defer r.scope.Unlock()

	if err := r.available(); err != nil {
		return err
	}

	return fn()
}

func (r *Wallet) Put(category, id string, v interface{}) error {
	if category == "" || id == "" {
		return errors.New("record category and id are required")
	}

	d, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "unable to marshal %s record", category)
	}

	sealed, err := r.cipher.seal(d)
	if err != nil {
		return err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return errors.Wrapf(ErrStoreUnavailable, "wallet %s is closed", r.id)
	}

	err = r.store.Put(recordKey(category, id), sealed)
	if err != nil {
		return errors.Wrapf(err, "unable to store %s record %s", category, id)
	}

	for _, existing := range r.index[category] {
		if existing == id {
			return nil
		}
	}

	r.index[category] = append(r.index[category], id)
	return r.saveIndex()
}

func (r *Wallet) Get(category, id string, v interface{}) error {
	if err := r.available(); err != nil {
		return err
	}

	sealed, err := r.store.Get(recordKey(category, id))
	if errors.Is(err, storage.ErrDataNotFound) {
		return errors.Wrapf(ErrRecordNotFound, "%s record %s", category, id)
	} else if err != nil {
		return errors.Wrapf(err, "unable to load %s record %s", category, id)
	}

	d, err := r.cipher.open(sealed)
	if err != nil {
		return errors.Wrapf(err, "%s record %s", category, id)
	}

	return errors.Wrapf(json.Unmarshal(d, v), "unable to unmarshal %s record %s", category, id)
}

func (r *Wallet) Has(category, id string) (bool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.closed {
		return false, errors.Wrapf(ErrStoreUnavailable, "wallet %s is closed", r.id)
	}

	for _, existing := range r.index[category] {
		if existing == id {
			return true, nil
		}
	}

	return false, nil
}

func (r *Wallet) Delete(category, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return errors.Wrapf(ErrStoreUnavailable, "wallet %s is closed", r.id)
	}

	err := r.store.Delete(recordKey(category, id))
	if err != nil && !errors.Is(err, storage.ErrDataNotFound) {
		return errors.Wrapf(err, "unable to delete %s record %s", category, id)
	}

	ids := r.index[category]
	for i, existing := range ids {
		if existing == id {
			r.index[category] = append(ids[:i:i], ids[i+1:]...)
			return r.saveIndex()
		}
	}

	return nil
}

// IDs returns a snapshot of the record ids of a category in insertion order
func (r *Wallet) IDs(category string) ([]string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.closed {
		return nil, errors.Wrapf(ErrStoreUnavailable, "wallet %s is closed", r.id)
	}

	out := make([]string, len(r.index[category]))
	copy(out, r.index[category])
	return out, nil
}

// AcquireHandle registers a scoped resource such as a search against the wallet.  The returned
// release func is safe to call more than once.
func (r *Wallet) AcquireHandle() (func(), error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return nil, errors.Wrapf(ErrStoreUnavailable, "wallet %s is closed", r.id)
	}

	r.handles++

	var once sync.Once
	return func() {
		once.Do(func() {
			r.lock.Lock()
			r.handles--
			r.lock.Unlock()
		})
	}, nil
}

// OpenHandles counts acquired but not released handles
func (r *Wallet) OpenHandles() int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.handles
}

func (r *Wallet) available() error {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.closed {
		return errors.Wrapf(ErrStoreUnavailable, "wallet %s is closed", r.id)
	}

	return nil
}

func (r *Wallet) loadIndex() error {
	sealed, err := r.store.Get(indexKey)
	if errors.Is(err, storage.ErrDataNotFound) {
		return nil
	} else if err != nil {
		return errors.Wrapf(ErrStoreUnavailable, "unable to load index of wallet %s: %v", r.id, err)
	}

	d, err := r.cipher.open(sealed)
	if err != nil {
		return errors.Wrapf(ErrStoreUnavailable, "unable to decrypt index of wallet %s", r.id)
	}

	return errors.Wrap(json.Unmarshal(d, &r.index), "corrupt wallet index")
}

// caller holds lock
func (r *Wallet) saveIndex() error {
	d, err := json.Marshal(r.index)
	if err != nil {
		return errors.Wrap(err, "unable to marshal wallet index")
	}

	sealed, err := r.cipher.seal(d)
	if err != nil {
		return err
	}

	return errors.Wrap(r.store.Put(indexKey, sealed), "unable to store wallet index")
}
