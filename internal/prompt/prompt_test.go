// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package prompt

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPassPrompt(t *testing.T) {
	t.Parallel()

	// An empty entry and a mismatched confirmation are both asked again.
	in := strings.NewReader("\nsecret\nother\nsecret\nsecret\n")
	var out bytes.Buffer
	p := newFromReader(in, &out)

	pass, err := p.PassPrompt("Enter passphrase", true)
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), pass)
	require.Contains(t, out.String(), "do not match")
}

func TestStoragePass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{name: "default is plaintext", input: "\n"},
		{name: "declined", input: "no\n"},
		{
			name:  "encrypted",
			input: "maybe\ny\npw\npw\n",
			want:  []byte("pw"),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			p := newFromReader(strings.NewReader(test.input),
				io.Discard)
			pass, err := p.StoragePass()
			require.NoError(t, err)
			require.Equal(t, test.want, pass)
		})
	}
}

func TestSeed(t *testing.T) {
	t.Parallel()

	t.Run("generated", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		p := newFromReader(strings.NewReader("\nok\nOK\n"), &out)
		secret, err := p.Seed()
		require.NoError(t, err)
		require.Len(t, secret.Seed, RecommendedSeedLen)
		require.Empty(t, secret.Mnemonic)
	})

	t.Run("hex seed", func(t *testing.T) {
		t.Parallel()

		hexSeed := strings.Repeat("AB", MinSeedBytes)
		input := "yes\n0102\n" + hexSeed + "\n"
		var out bytes.Buffer
		p := newFromReader(strings.NewReader(input), &out)
		secret, err := p.Seed()
		require.NoError(t, err)
		require.Equal(t, bytes.Repeat([]byte{0xab}, MinSeedBytes),
			secret.Seed)
		require.Contains(t, out.String(), "Invalid seed")
	})

	t.Run("mnemonic", func(t *testing.T) {
		t.Parallel()

		input := "y\n  giant  dynamic\tmuseum toddler \n"
		p := newFromReader(strings.NewReader(input), io.Discard)
		secret, err := p.Seed()
		require.NoError(t, err)
		require.Nil(t, secret.Seed)
		require.Equal(t, "giant dynamic museum toddler",
			secret.Mnemonic)
	})
}

func TestSetupStopsAtEOF(t *testing.T) {
	t.Parallel()

	p := newFromReader(strings.NewReader("yes\n"), io.Discard)
	_, _, err := p.Setup()
	require.ErrorIs(t, err, io.EOF)
}
