/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package identity onboards DIDs onto the ledger.  The Manager derives keys and grants roles,
// the Registry signs and submits every transaction on behalf of a wallet held identity.
package identity

import (
	"context"
	"fmt"

	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/did"
	"github.com/scoir/trustflow/pkg/ledger"
	"github.com/scoir/trustflow/pkg/wallet"
)

var logger = log.New("trustflow/identity")

var (
	ErrInsufficientPrivilege = errors.New("insufficient privilege")
	ErrNotFound              = errors.New("identity not found on ledger")
)

const (
	keyCategory = "did"
	method      = "sov"
)

// Identity is a DID known to a wallet, with the role it was last granted
type Identity struct {
	DID    string      `json:"did"`
	Verkey string      `json:"verkey"`
	Role   ledger.Role `json:"role"`
	Wallet string      `json:"wallet,omitempty"`
}

func (r *Identity) String() string {
	return fmt.Sprintf("did:%s:%s", method, r.DID)
}

type keyRecord struct {
	DID    string `json:"did"`
	Verkey string `json:"verkey"`
	Seed   string `json:"seed"`
}

// privilegeError reports a refused grant.  It matches ErrInsufficientPrivilege and unwraps to
// the ledger rejection when there was one.
type privilegeError struct {
	msg   string
	cause error
}

func (e *privilegeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", ErrInsufficientPrivilege, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", ErrInsufficientPrivilege, e.msg)
}

func (e *privilegeError) Is(target error) bool {
	return target == ErrInsufficientPrivilege
}

func (e *privilegeError) Unwrap() error {
	return e.cause
}

type Manager struct {
	reg *Registry
}

func NewManager(reg *Registry) *Manager {
	return &Manager{reg: reg}
}

// CreateIdentity derives a key pair from seed, or a random one when seed is empty, and stores it
// in w.  The DID is the base58 form of the first 16 bytes of the verkey.
func (r *Manager) CreateIdentity(w *wallet.Wallet, seed string) (*Identity, error) {
	d, kp, err := did.CreateMyDid(&did.MyDIDInfo{Seed: seed, Cid: true, MethodName: method})
	if err != nil {
		return nil, errors.Wrap(err, "unable to create DID")
	}

	rec := &keyRecord{
		DID:    d.DIDVal.DID,
		Verkey: kp.Verkey(),
		Seed:   base58.Encode(kp.Seed()),
	}

	err = w.Put(keyCategory, rec.DID, rec)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to store key for %s", rec.DID)
	}

	logger.Debugf("created identity %s in wallet %s", rec.DID, w.ID())
	return &Identity{DID: rec.DID, Verkey: rec.Verkey, Role: ledger.RoleNone, Wallet: w.ID()}, nil
}

// RegisterIdentity writes a NYM for id granting role, signed by sponsor.  A sponsor with no
// known role is looked up on the ledger first.
func (r *Manager) RegisterIdentity(ctx context.Context, w *wallet.Wallet, id *Identity, sponsor *Identity,
	sponsorWallet *wallet.Wallet, role ledger.Role) (*Identity, error) {

	ok, err := w.Has(keyCategory, id.DID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(wallet.ErrRecordNotFound, "wallet %s holds no key for %s", w.ID(), id.DID)
	}

	sponsorRole := sponsor.Role
	if sponsorRole == ledger.RoleNone {
		onLedger, err := r.Resolve(ctx, sponsor.DID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, errors.Wrapf(err, "unable to look up sponsor %s", sponsor.DID)
		}
		if onLedger != nil {
			sponsorRole = onLedger.Role
		}
	}

	if !ledger.CanGrant(sponsorRole, role) {
		return nil, &privilegeError{msg: fmt.Sprintf("%s %s cannot grant %s", sponsorRole, sponsor.DID, role)}
	}

	req, err := ledger.NewNym(id.DID, id.Verkey, sponsor.DID, role)
	if err != nil {
		return nil, err
	}

	resp, err := r.reg.SubmitSigned(ctx, sponsor, sponsorWallet, req)
	if err != nil {
		return nil, err
	}

	switch resp.Op {
	case ledger.OpReply:
	case ledger.OpReject:
		return nil, &privilegeError{msg: fmt.Sprintf("grant of %s to %s refused", role, id.DID), cause: resp.Err(req)}
	default:
		return nil, resp.Err(req)
	}

	logger.Infof("%s registered %s as %s", sponsor.DID, id.DID, role)
	return &Identity{DID: id.DID, Verkey: id.Verkey, Role: role, Wallet: id.Wallet}, nil
}

type nymData struct {
	Dest   string `json:"dest"`
	Verkey string `json:"verkey"`
	Role   string `json:"role"`
}

// Resolve reads the current NYM for d.  The returned identity carries no wallet.
func (r *Manager) Resolve(ctx context.Context, d string) (*Identity, error) {
	req, err := ledger.NewGetNym(d, d)
	if err != nil {
		return nil, err
	}

	resp, err := r.reg.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	if err = resp.Err(req); err != nil {
		return nil, err
	}

	if !resp.Result.Found() {
		return nil, errors.Wrap(ErrNotFound, d)
	}

	nym := &nymData{}
	err = resp.DecodeData(nym)
	if err != nil {
		return nil, err
	}

	role, err := ledger.RoleFromCode(nym.Role)
	if err != nil {
		return nil, err
	}

	return &Identity{DID: nym.Dest, Verkey: nym.Verkey, Role: role}, nil
}

// Signer returns a signing handle for a DID whose key is stored in w
func (r *Manager) Signer(w *wallet.Wallet, d string) (ledger.Signer, error) {
	return newSigner(w, d)
}

type keySigner struct {
	did string
	kp  *did.KeyPair
}

func (r *keySigner) DID() string {
	return r.did
}

func (r *keySigner) Sign(msg []byte) ([]byte, error) {
	return r.kp.Sign(msg), nil
}

func newSigner(w *wallet.Wallet, d string) (*keySigner, error) {
	rec := &keyRecord{}
	err := w.Get(keyCategory, d, rec)
	if err != nil {
		return nil, errors.Wrapf(err, "no signing key for %s", d)
	}

	seed, err := base58.Decode(rec.Seed)
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt signing key for %s", d)
	}

	kp, err := did.KeyPairFromSeed(seed)
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt signing key for %s", d)
	}

	return &keySigner{did: d, kp: kp}, nil
}
