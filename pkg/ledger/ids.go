/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	schemaMarker  = "2"
	credDefMarker = "3"
)

// SchemaID is <issuer_did>:2:<name>:<version>
func SchemaID(issuerDID, name, version string) string {
	return fmt.Sprintf("%s:%s:%s:%s", issuerDID, schemaMarker, name, version)
}

// ParseSchemaID splits a schema id into issuer, name and version
func ParseSchemaID(id string) (issuerDID, name, version string, err error) {
	parts := strings.Split(id, ":")
	if len(parts) != 4 || parts[1] != schemaMarker {
		return "", "", "", errors.Errorf("invalid schema id %q", id)
	}

	return parts[0], parts[2], parts[3], nil
}

// CredDefID is <issuer_did>:3:CL:<schema_seq_no>:<tag>
func CredDefID(issuerDID string, schemaSeqNo uint32, tag string) string {
	return fmt.Sprintf("%s:%s:CL:%d:%s", issuerDID, credDefMarker, schemaSeqNo, tag)
}

// ParseCredDefID splits a cred def id into issuer, schema seqNo and tag
func ParseCredDefID(id string) (issuerDID string, schemaSeqNo uint32, tag string, err error) {
	parts := strings.Split(id, ":")
	if len(parts) != 5 || parts[1] != credDefMarker || parts[2] != "CL" {
		return "", 0, "", errors.Errorf("invalid cred def id %q", id)
	}

	ref, err := strconv.ParseUint(parts[3], 10, 32)
	if err != nil {
		return "", 0, "", errors.Errorf("invalid schema reference in cred def id %q", id)
	}

	return parts[0], uint32(ref), parts[4], nil
}
