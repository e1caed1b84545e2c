// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/btcsuite/utxowallet/chain"
	"github.com/btcsuite/utxowallet/keychain"
	"github.com/btcsuite/utxowallet/rpc/walletrpc"
	"github.com/btcsuite/utxowallet/wallet"
	"github.com/btcsuite/utxowallet/walletdb"
	"github.com/jrick/logrotate/rotator"
)

// logOutput is the console half of the log.  It moves to standard error
// when standard output carries wallet responses.
var logOutput io.Writer = os.Stdout

// logWriter implements an io.Writer that outputs to both the console and the
// write-end pipe of an initialized log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	logOutput.Write(p)
	if logRotatorPipe != nil {
		logRotatorPipe.Write(p)
	}
	return len(p), nil
}

// Loggers per subsystem.  A single backend logger is created and all subsystem
// loggers created from it will write to the backend.  When adding new
// subsystems, add the subsystem logger variable here and to the
// subsystemLoggers map.
//
// Loggers can not be used before the log rotator has been initialized with a
// log file.  This must be performed early during application startup by
// calling initLogRotator.
var (
	// backendLog is the logging backend used to create all subsystem
	// loggers.
	backendLog = btclog.NewBackend(logWriter{})

	// logRotator is one of the logging outputs.  It should be closed on
	// application shutdown.
	logRotator *rotator.Rotator

	// logRotatorPipe is the write-end pipe for writing to the log
	// rotator.  It is written to by the Write method of the logWriter
	// type.
	logRotatorPipe *io.PipeWriter

	log       = backendLog.Logger("UTXW")
	walletLog = backendLog.Logger("WLLT")
	chainLog  = backendLog.Logger("CHAN")
	wdbLog    = backendLog.Logger("WDB ")
	keycLog   = backendLog.Logger("KEYC")
	rpcwLog   = backendLog.Logger("RPCW")
)

// Initialize package-global logger variables.  wallet.UseLogger hands its
// logger down to the packages it drives, so the more specific loggers are
// installed after it.
func init() {
	wallet.UseLogger(walletLog)
	chain.UseLogger(chainLog)
	walletdb.UseLogger(wdbLog)
	keychain.UseLogger(keycLog)
	walletrpc.UseLogger(rpcwLog)
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	"UTXW": log,
	"WLLT": walletLog,
	"CHAN": chainLog,
	"WDB":  wdbLog,
	"KEYC": keycLog,
	"RPCW": rpcwLog,
}

// initLogRotator initializes the logging rotater to write logs to logFile and
// create roll files in the same directory.  It must be called before the
// package-global log rotater variables are used.
func initLogRotator(logFile string) {
	logDir, _ := filepath.Split(logFile)
	err := os.MkdirAll(logDir, 0700)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %v\n", err)
		os.Exit(1)
	}

	pr, pw := io.Pipe()
	go r.Run(pr)

	logRotator = r
	logRotatorPipe = pw
}

// setLogLevel sets the logging level for provided subsystem.  Invalid
// subsystems are ignored.
func setLogLevel(subsystemID string, logLevel string) {
	// Ignore invalid subsystems.
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	// Defaults to info if the log level is invalid.
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// setLogLevels sets the log level for all subsystem loggers to the passed
// level.
func setLogLevels(logLevel string) {
	// Configure all sub-systems with the new logging level.
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}

// pickNoun returns the singular or plural form of a noun depending
// on the count n.
func pickNoun(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
