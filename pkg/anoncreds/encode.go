/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package anoncreds

import (
	"crypto/sha256"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// EncodeValue maps a raw attribute to the integer form signed into credentials.  Integers in
// int32 range are kept as is, everything else is the sha256 digest of its string form.
func EncodeValue(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return toEncodedNumber("None")
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil && i <= math.MaxInt32 && i >= math.MinInt32 {
			return v
		}
		return toEncodedNumber(v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int32:
		return strconv.Itoa(int(v))
	case int64:
		if v <= math.MaxInt32 && v >= math.MinInt32 {
			return strconv.FormatInt(v, 10)
		}
		return toEncodedNumber(strconv.FormatInt(v, 10))
	case int:
		if v <= math.MaxInt32 && v >= math.MinInt32 {
			return strconv.Itoa(v)
		}
		return toEncodedNumber(strconv.Itoa(v))
	case float64:
		if v == 0 {
			return toEncodedNumber("0.0")
		}
		return toEncodedNumber(fmt.Sprintf("%f", v))
	}

	return toEncodedNumber(fmt.Sprintf("%v", raw))
}

func toEncodedNumber(raw string) string {
	sh := sha256.Sum256([]byte(raw))
	return new(big.Int).SetBytes(sh[:]).String()
}

// RawString is the human readable form stored next to the encoding
func RawString(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	return fmt.Sprintf("%v", raw)
}

// NewAttributeValue encodes a raw string
func NewAttributeValue(raw string) AttributeValue {
	return AttributeValue{Raw: raw, Encoded: EncodeValue(raw)}
}

// NewAttributeValues builds credential values from loosely typed input.  Raw values are
// normalized to strings first so that encoded always equals EncodeValue(raw).
func NewAttributeValues(raw map[string]interface{}) map[string]AttributeValue {
	out := make(map[string]AttributeValue, len(raw))
	for k, v := range raw {
		out[k] = NewAttributeValue(RawString(v))
	}

	return out
}

// Consistent reports whether encoded is the encoding of raw
func (r AttributeValue) Consistent() bool {
	return r.Encoded != "" && EncodeValue(r.Raw) == r.Encoded
}

// AttrCommonView is the attribute name form used inside proofs
func AttrCommonView(attr string) string {
	return strings.ToLower(strings.Replace(attr, " ", "", -1))
}
