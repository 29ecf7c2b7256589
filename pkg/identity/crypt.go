/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package identity

import (
	"github.com/scoir/trustflow/pkg/did"
	"github.com/scoir/trustflow/pkg/wallet"
)

// AuthCrypt seals msg from the DID held in w to the owner of recipientVerkey
func (r *Manager) AuthCrypt(w *wallet.Wallet, sender, recipientVerkey string, msg []byte) ([]byte, error) {
	s, err := newSigner(w, sender)
	if err != nil {
		return nil, err
	}

	return did.AuthCrypt(s.kp, recipientVerkey, msg)
}

// AuthDecrypt opens a message sealed for the DID held in w and returns the sender's verkey
func (r *Manager) AuthDecrypt(w *wallet.Wallet, recipient string, data []byte) (string, []byte, error) {
	s, err := newSigner(w, recipient)
	if err != nil {
		return "", nil, err
	}

	return did.AuthDecrypt(s.kp, data)
}
