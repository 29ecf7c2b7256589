/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package anoncreds

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		name     string
		raw      interface{}
		expected string
	}{
		{name: "address2", raw: "101 Wilson Lane", expected: "68086943237164982734333428280784300550565381723532936263016368251445461241953"},
		{name: "zip", raw: "87121", expected: "87121"},
		{name: "city", raw: "SLC", expected: "101327353979588246869873249766058188995681113722618593621043638294296500696424"},
		{name: "address1", raw: "101 Tela Lane", expected: "63690509275174663089934667471948380740244018358024875547775652380902762701972"},
		{name: "state", raw: "UT", expected: "93856629670657830351991220989031130499313559332549427637940645777813964461231"},
		{name: "Empty", raw: "", expected: "102987336249554097029535212322581322789799900648198034993379397001115665086549"},
		{name: "Null", raw: nil, expected: "99769404535520360775991420569103450442789945655240760487761322098828903685777"},
		{name: "bool True", raw: true, expected: "1"},
		{name: "bool False", raw: false, expected: "0"},
		{name: "str True", raw: "True", expected: "27471875274925838976481193902417661171675582237244292940724984695988062543640"},
		{name: "str False", raw: "False", expected: "43710460381310391454089928988014746602980337898724813422905404670995938820350"},
		{name: "max i32", raw: 2147483647, expected: "2147483647"},
		{name: "max i32 + 1", raw: 2147483648, expected: "26221484005389514539852548961319751347124425277437769688639924217837557266135"},
		{name: "str max i32 + 1", raw: "2147483648", expected: "26221484005389514539852548961319751347124425277437769688639924217837557266135"},
		{name: "min i32", raw: -2147483648, expected: "-2147483648"},
		{name: "min i32 - 1", raw: -2147483649, expected: "68956915425095939579909400566452872085353864667122112803508671228696852865689"},
		{name: "float 0.0", raw: 0.0, expected: "62838607218564353630028473473939957328943626306458686867332534889076311281879"},
		{name: "str 0.0", raw: "0.0", expected: "62838607218564353630028473473939957328943626306458686867332534889076311281879"},
		{name: "average", raw: "5", expected: "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, EncodeValue(tt.raw))
		})
	}
}

func TestNewAttributeValues(t *testing.T) {
	vals := NewAttributeValues(map[string]interface{}{
		"degree":  "Bachelor of Science, Marketing",
		"year":    2015,
		"average": 5,
		"score":   4.5,
		"ssn":     "123-45-6789",
	})

	require.Equal(t, "2015", vals["year"].Encoded)
	require.Equal(t, "5", vals["average"].Raw)
	require.Equal(t, "4.5", vals["score"].Raw)

	for name, v := range vals {
		require.True(t, v.Consistent(), name)
	}

	require.False(t, AttributeValue{Raw: "5", Encoded: "6"}.Consistent())
	require.False(t, AttributeValue{Raw: "5"}.Consistent())
}

func TestAttrCommonView(t *testing.T) {
	require.Equal(t, "firstname", AttrCommonView("First Name"))
	require.Equal(t, "ssn", AttrCommonView("ssn"))
}
