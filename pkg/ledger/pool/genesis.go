/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package pool

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/scoir/trustflow/pkg/ledger"
)

// GenesisTxn is one line of an indy domain genesis file
type GenesisTxn struct {
	ReqSignature struct{} `json:"reqSignature"`
	Txn          struct {
		Data struct {
			Dest   string `json:"dest"`
			Verkey string `json:"verkey"`
			Role   string `json:"role,omitempty"`
			Alias  string `json:"alias,omitempty"`
		} `json:"data"`
		Metadata struct{} `json:"metadata"`
		Type     string   `json:"type"`
	} `json:"txn"`
	TxnMetadata struct {
		SeqNo uint32 `json:"seqNo"`
	} `json:"txnMetadata"`
	Ver string `json:"ver"`
}

// GenesisNym builds a genesis NYM line
func GenesisNym(seqNo uint32, did, verkey string, role ledger.Role) *GenesisTxn {
	g := &GenesisTxn{Ver: "1"}
	g.Txn.Type = ledger.NYM
	g.Txn.Data.Dest = did
	g.Txn.Data.Verkey = verkey
	g.Txn.Data.Role = role.Code()
	g.TxnMetadata.SeqNo = seqNo
	return g
}

// WriteGenesis writes txns one JSON document per line
func WriteGenesis(w io.Writer, txns ...*GenesisTxn) error {
	enc := json.NewEncoder(w)
	for _, txn := range txns {
		err := enc.Encode(txn)
		if err != nil {
			return errors.Wrap(err, "unable to write genesis txn")
		}
	}

	return nil
}

// ReadGenesis parses a domain genesis file.  Lines that are not NYM txns are skipped.
func ReadGenesis(r io.Reader) ([]*GenesisTxn, error) {
	var out []*GenesisTxn

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		txn := &GenesisTxn{}
		err := json.Unmarshal([]byte(line), txn)
		if err != nil {
			return nil, errors.Wrap(err, "invalid genesis txn")
		}

		if txn.Txn.Type != ledger.NYM {
			continue
		}

		out = append(out, txn)
	}

	return out, errors.Wrap(scanner.Err(), "unable to read genesis")
}

// fullVerkey expands an abbreviated (~ prefixed) verkey using the DID bytes
func fullVerkey(did, verkey string) (string, error) {
	if !strings.HasPrefix(verkey, "~") {
		return verkey, nil
	}

	head, err := base58.Decode(did)
	if err != nil {
		return "", errors.Wrap(err, "invalid did")
	}

	tail, err := base58.Decode(verkey[1:])
	if err != nil {
		return "", errors.Wrap(err, "invalid abbreviated verkey")
	}

	return base58.Encode(append(head, tail...)), nil
}
