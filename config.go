// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/utxowallet/internal/cfgutil"
	"github.com/btcsuite/utxowallet/wallet"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename  = "utxowallet.conf"
	defaultLogLevel        = "info"
	defaultLogDirname      = "logs"
	defaultLogFilename     = "utxowallet.log"
	defaultDBType          = "bdb"
	defaultAccountGapLimit = 2
	defaultAddressGapLimit = 20
	defaultNodePort        = "14265"

	// simnetName namespaces the data and log directories.  The simulated
	// network is the only one the daemon can reach.
	simnetName = "simnet"
)

var (
	utxowalletHomeDir = btcutil.AppDataDir("utxowallet", false)
	defaultConfigFile = filepath.Join(utxowalletHomeDir,
		defaultConfigFilename)
	defaultDataDir = utxowalletHomeDir
	defaultLogDir  = filepath.Join(utxowalletHomeDir, defaultLogDirname)
)

// dbFilenames maps each persistent storage driver to its file name.
var dbFilenames = map[string]string{
	"bdb":    "wallet.db",
	"sqlite": "wallet.sqlite",
}

type config struct {
	// General application behavior
	ConfigFile  *cfgutil.ExplicitString `short:"C" long:"configfile" description:"Path to configuration file"`
	ShowVersion bool                    `short:"V" long:"version" description:"Display version information and exit"`
	Create      bool                    `long:"create" description:"Create the wallet if it does not exist"`
	DataDir     *cfgutil.ExplicitString `short:"b" long:"datadir" description:"Directory to store the wallet"`
	DBType      string                  `long:"dbtype" description:"Storage driver" choice:"bdb" choice:"sqlite" choice:"memdb"`
	SimNet      bool                    `long:"simnet" description:"Use an in-process simulated network"`
	DebugLevel  string                  `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	LogDir      string                  `long:"logdir" description:"Directory to log output."`

	// Wallet options
	CoinType        uint32              `long:"coin-type" description:"BIP-44 coin type of a new wallet"`
	SyncInterval    time.Duration       `long:"syncinterval" description:"Pause between background syncs"`
	Recover         bool                `long:"recover" description:"Search the seed for funded accounts on startup"`
	AccountGapLimit uint32              `long:"account-gap-limit" description:"Empty accounts searched past the last funded one during recovery"`
	AddressGapLimit uint32              `long:"address-gap-limit" description:"Unused addresses searched past the last used one during recovery"`
	SimnetFaucet    *cfgutil.AmountFlag `long:"simnetfaucet" description:"Coins credited to the first account on startup (simnet only)"`

	// Node options
	Nodes    []string `long:"node" description:"URL of a node to remember in the client options (default port: 14265)"`
	LocalPoW bool     `long:"localpow" description:"Remember that proof of work is done locally"`

	// Service options
	RPCStdio      bool   `long:"rpcstdio" description:"Serve wallet methods as JSON lines on standard input and output"`
	MetricsListen string `long:"metricslisten" description:"Serve Prometheus metrics on this interface/port"`
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical":
		return true
	}
	return false
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsytems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		setLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsytems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// defaultConfig returns a config with sane settings.
func defaultConfig() config {
	return config{
		ConfigFile:      cfgutil.NewExplicitString(defaultConfigFile),
		DataDir:         cfgutil.NewExplicitString(defaultDataDir),
		DBType:          defaultDBType,
		DebugLevel:      defaultLogLevel,
		LogDir:          defaultLogDir,
		CoinType:        wallet.DefaultCoinType,
		SyncInterval:    wallet.DefaultBackgroundSyncInterval,
		AccountGapLimit: defaultAccountGapLimit,
		AddressGapLimit: defaultAddressGapLimit,
		SimnetFaucet:    cfgutil.NewAmountFlag(0),
	}
}

// dbPath returns the storage file of the wallet, or "" for a driver that
// keeps nothing on disk.
func (c *config) dbPath() string {
	name, ok := dbFilenames[c.DBType]
	if !ok {
		return ""
	}
	return filepath.Join(c.DataDir.Value, simnetName, name)
}

// validate checks the combination of options and normalizes paths and
// node URLs.
func (c *config) validate() error {
	if !c.SimNet {
		return errors.New("the daemon only runs against the simulated " +
			"network -- use --simnet")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("invalid sync interval %v", c.SyncInterval)
	}
	if c.AddressGapLimit == 0 {
		return errors.New("the address gap limit must be positive")
	}

	nodes, err := cfgutil.NormalizeNodeURLs(c.Nodes, defaultNodePort)
	if err != nil {
		return fmt.Errorf("invalid node: %w", err)
	}
	c.Nodes = nodes

	c.DataDir.Value = cfgutil.CleanAndExpandPath(c.DataDir.Value)
	c.LogDir = cfgutil.CleanAndExpandPath(c.LogDir)

	return nil
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in utxowallet functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options.  Command line options always take
// precedence.
func loadConfig() (*config, []string, error) {
	cfg := defaultConfig()

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	_, err := preParser.Parse()
	if err != nil {
		var e *flags.Error
		if !errors.As(err, &e) || e.Type != flags.ErrHelp {
			preParser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version())
		os.Exit(0)
	}

	// If a config file is found in the data directory and no config file
	// was explicitly given, read that one instead of the default.
	configFilePath := preCfg.ConfigFile.Value
	if preCfg.DataDir.ExplicitlySet() && !preCfg.ConfigFile.ExplicitlySet() {
		candidate := filepath.Join(
			cfgutil.CleanAndExpandPath(preCfg.DataDir.Value),
			defaultConfigFilename,
		)
		exists, err := cfgutil.FileExists(candidate)
		if err != nil {
			return nil, nil, err
		}
		if exists {
			configFilePath = candidate
		}
	}

	// Load additional config from file.
	var configFileError error
	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(
		cfgutil.CleanAndExpandPath(configFilePath),
	)
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			fmt.Fprintln(os.Stderr, err)
			parser.WriteHelp(os.Stderr)
			return nil, nil, err
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		var e *flags.Error
		if !errors.As(err, &e) || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	if err := cfg.validate(); err != nil {
		err := fmt.Errorf("loadConfig: %w", err)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Responses own standard output when it serves wallet methods.
	if cfg.RPCStdio {
		logOutput = os.Stderr
	}

	// Append the network type to the log directory so it is "namespaced"
	// per network.
	cfg.LogDir = filepath.Join(cfg.LogDir, simnetName)

	// Initialize logging at the default logging level.
	initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
	setLogLevels(defaultLogLevel)

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("loadConfig: %w", err)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Warn about missing config file after the final command line parse
	// succeeds.  This prevents the warning on help messages and invalid
	// options.
	if configFileError != nil {
		log.Warnf("%v", configFileError)
	}

	return &cfg, remainingArgs, nil
}
