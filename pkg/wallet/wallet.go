/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"encoding/json"
	"sync"

	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/hyperledger/aries-framework-go/pkg/storage"
	"github.com/pkg/errors"
)

var logger = log.New("trustflow/wallet")

var (
	// ErrStoreUnavailable is returned for closed, missing or locked wallets
	ErrStoreUnavailable = errors.New("credential store unavailable")
	ErrExists           = errors.New("wallet already exists")
	ErrRecordNotFound   = errors.New("wallet record not found")
)

const (
	metadataKey = "_metadata"
	indexKey    = "_index"
	keyCheck    = "trustflow-wallet"
)

// Config names a wallet
type Config struct {
	ID string `mapstructure:"id" json:"id"`
}

// Credentials unlock a wallet
type Credentials struct {
	Key           string `mapstructure:"key" json:"key"`
	KeyDerivation string `mapstructure:"key_derivation" json:"key_derivation,omitempty"`
}

type metadata struct {
	Salt  []byte `json:"salt"`
	Check []byte `json:"check"`
}

// Manager creates, opens and deletes wallets over an aries storage provider
type Manager struct {
	provider storage.Provider

	lock sync.Mutex
	open map[string]*Wallet
}

func NewManager(provider storage.Provider) *Manager {
	return &Manager{
		provider: provider,
		open:     map[string]*Wallet{},
	}
}

func storeName(cfg Config) string {
	return "wallet_" + cfg.ID
}

func (r *Manager) Create(cfg Config, creds Credentials) error {
	if cfg.ID == "" {
		return errors.New("wallet id is required")
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	store, err := r.provider.OpenStore(storeName(cfg))
	if err != nil {
		return errors.Wrapf(ErrStoreUnavailable, "unable to open store for wallet %s: %v", cfg.ID, err)
	}

	_, err = store.Get(metadataKey)
	if err == nil {
		return errors.Wrapf(ErrExists, "wallet %s", cfg.ID)
	} else if !errors.Is(err, storage.ErrDataNotFound) {
		return errors.Wrapf(ErrStoreUnavailable, "unable to read wallet %s: %v", cfg.ID, err)
	}

	salt, err := newSalt()
	if err != nil {
		return err
	}

	c, err := deriveKey(creds, salt)
	if err != nil {
		return err
	}

	check, err := c.seal([]byte(keyCheck))
	if err != nil {
		return err
	}

	d, err := json.Marshal(&metadata{Salt: salt, Check: check})
	if err != nil {
		return errors.Wrap(err, "unable to marshal wallet metadata")
	}

	err = store.Put(metadataKey, d)
	if err != nil {
		return errors.Wrapf(ErrStoreUnavailable, "unable to write wallet %s: %v", cfg.ID, err)
	}

	logger.Debugf("created wallet %s", cfg.ID)
	return nil
}

// Open unlocks a wallet.  Opening an already open wallet with the right key returns the same handle,
// so exclusive scopes are shared by every caller of one wallet.
func (r *Manager) Open(cfg Config, creds Credentials) (*Wallet, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	store, c, err := r.unlock(cfg, creds)
	if err != nil {
		return nil, err
	}

	if w, ok := r.open[cfg.ID]; ok {
		return w, nil
	}

	w := &Wallet{
		id:     cfg.ID,
		store:  store,
		cipher: c,
		index:  map[string][]string{},
		onClose: func() {
			r.lock.Lock()
			delete(r.open, cfg.ID)
			r.lock.Unlock()
		},
	}

	err = w.loadIndex()
	if err != nil {
		return nil, err
	}

	r.open[cfg.ID] = w
	logger.Debugf("opened wallet %s", cfg.ID)
	return w, nil
}

// Delete removes every record of the wallet.  An open handle to it becomes unavailable.
func (r *Manager) Delete(cfg Config, creds Credentials) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	store, c, err := r.unlock(cfg, creds)
	if err != nil {
		return err
	}

	w, ok := r.open[cfg.ID]
	if ok {
		w.markClosed()
		delete(r.open, cfg.ID)
	} else {
		w = &Wallet{id: cfg.ID, store: store, cipher: c, index: map[string][]string{}}
		err = w.loadIndex()
		if err != nil {
			return err
		}
	}

	for category, ids := range w.index {
		for _, id := range ids {
			err = store.Delete(recordKey(category, id))
			if err != nil && !errors.Is(err, storage.ErrDataNotFound) {
				return errors.Wrapf(err, "unable to delete %s record %s", category, id)
			}
		}
	}

	for _, k := range []string{indexKey, metadataKey} {
		err = store.Delete(k)
		if err != nil && !errors.Is(err, storage.ErrDataNotFound) {
			return errors.Wrapf(err, "unable to delete wallet %s", cfg.ID)
		}
	}

	err = r.provider.CloseStore(storeName(cfg))
	if err != nil {
		logger.Debugf("unable to close store for deleted wallet %s: %v", cfg.ID, err)
	}

	logger.Debugf("deleted wallet %s", cfg.ID)
	return nil
}

func (r *Manager) unlock(cfg Config, creds Credentials) (storage.Store, *cipher, error) {
	store, err := r.provider.OpenStore(storeName(cfg))
	if err != nil {
		return nil, nil, errors.Wrapf(ErrStoreUnavailable, "unable to open store for wallet %s: %v", cfg.ID, err)
	}

	d, err := store.Get(metadataKey)
	if errors.Is(err, storage.ErrDataNotFound) {
		return nil, nil, errors.Wrapf(ErrStoreUnavailable, "wallet %s does not exist", cfg.ID)
	} else if err != nil {
		return nil, nil, errors.Wrapf(ErrStoreUnavailable, "unable to read wallet %s: %v", cfg.ID, err)
	}

	md := &metadata{}
	err = json.Unmarshal(d, md)
	if err != nil {
		return nil, nil, errors.Wrapf(ErrStoreUnavailable, "corrupt metadata for wallet %s", cfg.ID)
	}

	c, err := deriveKey(creds, md.Salt)
	if err != nil {
		return nil, nil, errors.Wrapf(ErrStoreUnavailable, "wallet %s: %v", cfg.ID, err)
	}

	check, err := c.open(md.Check)
	if err != nil || string(check) != keyCheck {
		return nil, nil, errors.Wrapf(ErrStoreUnavailable, "invalid key for wallet %s", cfg.ID)
	}

	return store, c, nil
}
