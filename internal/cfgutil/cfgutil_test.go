// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/utxowallet/ledger"
	"github.com/stretchr/testify/require"
)

// TestAmountFlag checks decimal coin amounts are converted to base token
// units exactly.
func TestAmountFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		want  ledger.BaseToken
		fails bool
	}{
		{name: "whole", value: "2", want: 2_000_000},
		{name: "fraction", value: "1.5", want: 1_500_000},
		{name: "smallest unit", value: "0.000001", want: 1},
		{name: "with unit", value: "0.25 SMR", want: 250_000},
		{name: "zero", value: "0", want: 0},
		{name: "too precise", value: "0.0000001", fails: true},
		{name: "negative", value: "-1", fails: true},
		{name: "overflow", value: "18446744073710", fails: true},
		{name: "garbage", value: "ten", fails: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			var flag AmountFlag
			err := flag.UnmarshalFlag(test.value)
			if test.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.want, flag.BaseToken)
		})
	}
}

// TestAmountFlagMarshal checks the flag renders the amount it parsed.
func TestAmountFlagMarshal(t *testing.T) {
	t.Parallel()

	flag := NewAmountFlag(1_234_500)
	s, err := flag.MarshalFlag()
	require.NoError(t, err)
	require.Equal(t, "1.2345", s)

	var parsed AmountFlag
	require.NoError(t, parsed.UnmarshalFlag(s))
	require.Equal(t, flag.BaseToken, parsed.BaseToken)
}

func TestNormalizeNodeURLs(t *testing.T) {
	t.Parallel()

	urls, err := NormalizeNodeURLs([]string{
		"localhost",
		"http://localhost:14265",
		"https://node.example:443",
		"10.0.0.1:8080",
	}, "14265")
	require.NoError(t, err)
	require.Equal(t, []string{
		"http://localhost:14265",
		"https://node.example:443",
		"http://10.0.0.1:8080",
	}, urls)

	_, err = NormalizeNodeURL("ftp://localhost", "14265")
	require.Error(t, err)
}

func TestExplicitString(t *testing.T) {
	t.Parallel()

	s := NewExplicitString("default")
	require.False(t, s.ExplicitlySet())

	require.NoError(t, s.UnmarshalFlag("default"))
	require.True(t, s.ExplicitlySet())
	require.Equal(t, "default", s.Value)
}

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "f")

	exists, err := FileExists(path)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, os.WriteFile(path, nil, 0600))
	exists, err = FileExists(path)
	require.NoError(t, err)
	require.True(t, exists)
}
