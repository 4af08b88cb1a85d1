package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expect    AddressRecord
		expectErr bool
	}{
		{name: "record with newline", input: "spark://node-a:7077\n", expect: AddressRecord{Scheme: "spark", Host: "node-a", Port: 7077}},
		{name: "fake scheme", input: "fake://nodeA:7077", expect: AddressRecord{Scheme: "fake", Host: "nodeA", Port: 7077}},
		{name: "missing scheme", input: "node-a:7077", expectErr: true},
		{name: "missing port", input: "spark://node-a", expectErr: true},
		{name: "bad port", input: "spark://node-a:x", expectErr: true},
		{name: "empty", input: "", expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := ParseAddress(tc.input)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expect, actual)
			assert.Equal(t, tc.expect, mustParse(t, actual.String()))
		})
	}
}

func mustParse(t *testing.T, raw string) AddressRecord {
	t.Helper()
	record, err := ParseAddress(raw)
	require.NoError(t, err)
	return record
}
