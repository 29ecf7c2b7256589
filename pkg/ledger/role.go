/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"strings"

	"github.com/pkg/errors"
)

// Role is the ledger privilege attached to a NYM
type Role int

const (
	RoleNone Role = iota
	RoleTrustee
	RoleSteward
	RoleEndorser
	// RoleTrustAnchor is the legacy name for RoleEndorser and shares its ledger code
	RoleTrustAnchor
	RoleNetworkMonitor
)

var roleNames = map[Role]string{
	RoleNone:           "NONE",
	RoleTrustee:        "TRUSTEE",
	RoleSteward:        "STEWARD",
	RoleEndorser:       "ENDORSER",
	RoleTrustAnchor:    "TRUST_ANCHOR",
	RoleNetworkMonitor: "NETWORK_MONITOR",
}

var roleCodes = map[Role]string{
	RoleNone:           "",
	RoleTrustee:        "0",
	RoleSteward:        "2",
	RoleEndorser:       "101",
	RoleTrustAnchor:    "101",
	RoleNetworkMonitor: "201",
}

// privilege levels; roles on the same level are incomparable peers
var roleLevels = map[Role]int{
	RoleNone:           0,
	RoleNetworkMonitor: 1,
	RoleSteward:        2,
	RoleEndorser:       2,
	RoleTrustAnchor:    2,
	RoleTrustee:        3,
}

func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return "UNKNOWN"
}

// Code is the value written in the role field of a NYM transaction
func (r Role) Code() string {
	return roleCodes[r]
}

// Outranks reports whether r is strictly above o in the privilege order
func (r Role) Outranks(o Role) bool {
	return roleLevels[r] > roleLevels[o]
}

// CanWrite reports whether r may author SCHEMA and CRED_DEF transactions without an endorser
func (r Role) CanWrite() bool {
	switch r {
	case RoleTrustee, RoleSteward, RoleEndorser, RoleTrustAnchor:
		return true
	}
	return false
}

// CanGrant reports whether an identity holding a may register a NYM with role b.
// TRUSTEE grants anything, STEWARD and ENDORSER grant ENDORSER or no role.
func CanGrant(a, b Role) bool {
	switch a {
	case RoleTrustee:
		return true
	case RoleSteward, RoleEndorser, RoleTrustAnchor:
		return b == RoleEndorser || b == RoleTrustAnchor || b == RoleNone
	}
	return false
}

// ParseRole accepts role names (case insensitive) or ledger codes
func ParseRole(s string) (Role, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	for r, n := range roleNames {
		if n == u {
			return r, nil
		}
	}

	return RoleFromCode(s)
}

// RoleFromCode maps a ledger role code to a Role.  Code 101 maps to RoleEndorser.
func RoleFromCode(code string) (Role, error) {
	switch code {
	case "":
		return RoleNone, nil
	case "0":
		return RoleTrustee, nil
	case "2":
		return RoleSteward, nil
	case "101":
		return RoleEndorser, nil
	case "201":
		return RoleNetworkMonitor, nil
	}

	return RoleNone, errors.Errorf("unknown role %q", code)
}
