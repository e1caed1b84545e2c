// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

func TestParseDebugLevels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		fails bool
	}{
		{name: "global", level: "debug"},
		{name: "per subsystem", level: "WLLT=trace,CHAN=warn"},
		{name: "padded tag", level: "WDB=error"},
		{name: "bad level", level: "loud", fails: true},
		{name: "bad pair", level: "WLLT=debug,CHAN", fails: true},
		{name: "bad subsystem", level: "NOPE=debug", fails: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := parseAndSetDebugLevels(test.level)
			if test.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}

	// A subsystem level only touches its own logger.
	require.NoError(t, parseAndSetDebugLevels("info"))
	require.NoError(t, parseAndSetDebugLevels("WLLT=trace"))
	require.Equal(t, btclog.LevelInfo, chainLog.Level())
	require.Equal(t, btclog.LevelTrace, walletLog.Level())
	setLogLevels(defaultLogLevel)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*config)
		fails  bool
	}{
		{name: "defaults need simnet", modify: func(*config) {}, fails: true},
		{name: "simnet", modify: func(c *config) { c.SimNet = true }},
		{
			name: "zero interval",
			modify: func(c *config) {
				c.SimNet = true
				c.SyncInterval = 0
			},
			fails: true,
		},
		{
			name: "zero address gap",
			modify: func(c *config) {
				c.SimNet = true
				c.AddressGapLimit = 0
			},
			fails: true,
		},
		{
			name: "bad node",
			modify: func(c *config) {
				c.SimNet = true
				c.Nodes = []string{"ftp://node"}
			},
			fails: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			c := defaultConfig()
			test.modify(&c)
			err := c.validate()
			if test.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConfigNodesAndPaths(t *testing.T) {
	t.Parallel()

	c := defaultConfig()
	c.SimNet = true
	c.Nodes = []string{"localhost", "http://localhost:14265"}
	c.DataDir.Value = filepath.Join(t.TempDir(), "a", "..", "wallet")
	require.NoError(t, c.validate())

	require.Equal(t, []string{"http://localhost:14265"}, c.Nodes)
	require.Equal(t, filepath.Join(filepath.Dir(c.DataDir.Value),
		"wallet", simnetName, "wallet.db"), c.dbPath())

	c.DBType = "sqlite"
	require.Equal(t, "wallet.sqlite", filepath.Base(c.dbPath()))

	c.DBType = "memdb"
	require.Empty(t, c.dbPath())
}
