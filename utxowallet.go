// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/btcsuite/utxowallet/chain"
	"github.com/btcsuite/utxowallet/internal/cfgutil"
	"github.com/btcsuite/utxowallet/internal/prompt"
	"github.com/btcsuite/utxowallet/ledger"
	"github.com/btcsuite/utxowallet/rpc/walletrpc"
	"github.com/btcsuite/utxowallet/wallet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var cfg *config

func main() {
	// Work around defer not working after os.Exit.
	if err := walletMain(); err != nil {
		os.Exit(1)
	}
}

// walletMain is a work-around main function that is required since deferred
// functions (such as log flushing) are not called with calls to os.Exit.
// Instead, main runs this function and checks for a non-nil error, at which
// point any defers have already run, and if the error is non-nil, the program
// can be exited with an error exit status.
func walletMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	tcfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = tcfg
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	log.Infof("Version %s", version())
	startInterruptHandler()

	var registerer prometheus.Registerer
	if cfg.MetricsListen != "" {
		registry := prometheus.NewRegistry()
		registerer = registry
		srv := startMetricsServer(cfg.MetricsListen, registry)
		addInterruptHandler(func() {
			srv.Close()
		})
	}

	// Prompts move off standard output when it carries responses.
	promptOut := io.Writer(os.Stdout)
	if cfg.RPCStdio {
		promptOut = os.Stderr
	}
	p := prompt.New(os.Stdin, promptOut)

	db, created, err := openStorage(cfg, p)
	if err != nil {
		log.Errorf("Unable to open wallet storage: %v", err)
		return err
	}
	keys, err := secretManager(p, created)
	if err != nil {
		db.Close()
		log.Errorf("Unable to load wallet secret: %v", err)
		return err
	}

	node := chain.NewMemNode(ledger.SimnetParams)
	mgr, err := wallet.NewManager(wallet.Config{
		DB:            db,
		Client:        node,
		SecretManager: keys,
		CoinType:      cfg.CoinType,
		ClientOptions: wallet.ClientOptions{
			Nodes:    cfg.Nodes,
			LocalPoW: cfg.LocalPoW,
		},
		Registerer: registerer,
	})
	if err != nil {
		db.Close()
		keys.Close()
		log.Errorf("Unable to open wallet: %v", err)
		return err
	}
	addInterruptHandler(func() {
		if err := mgr.Close(); err != nil {
			log.Errorf("Unable to close wallet: %v", err)
		}
		keys.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	addInterruptHandler(cancel)

	if err := prepareAccounts(ctx, cfg, mgr, node); err != nil {
		log.Errorf("Unable to prepare accounts: %v", err)
		daemonShutdown.run()
		return err
	}

	if err := mgr.StartBackgroundSync(nil, cfg.SyncInterval); err != nil {
		log.Errorf("Unable to start background sync: %v", err)
		daemonShutdown.run()
		return err
	}

	if cfg.RPCStdio {
		handler := walletrpc.NewHandler(mgr, ledger.SimnetParams.Bech32HRP)
		go func() {
			err := serveStdio(ctx, handler, p.Reader(), os.Stdout)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("Method stream failed: %v", err)
			}
			simulateInterrupt()
		}()
	}

	// Wait for the shutdown handlers to finish, either due to an
	// interrupt or the end of the method stream.
	<-daemonShutdown.done
	log.Info("Shutdown complete")

	return nil
}

// prepareAccounts recovers accounts when asked to, makes sure the wallet
// holds at least one account and credits the simnet faucet amount to it.
func prepareAccounts(ctx context.Context, cfg *config, mgr *wallet.Manager,
	node *chain.MemNode) error {

	if cfg.Recover {
		accts, err := mgr.RecoverAccounts(ctx, 0, cfg.AccountGapLimit,
			cfg.AddressGapLimit, nil)
		if err != nil {
			return err
		}
		log.Infof("Recovered %d %s", len(accts),
			pickNoun(len(accts), "account", "accounts"))
	}

	accts := mgr.Accounts()
	if len(accts) == 0 {
		acct, err := mgr.CreateAccount(ctx, "")
		if err != nil {
			return err
		}
		accts = append(accts, acct)
	}

	if cfg.SimnetFaucet.BaseToken == 0 {
		return nil
	}
	addr := accts[0].PublicAddresses()[0].Address
	node.Fund(&ledger.BasicOutput{
		Amount: cfg.SimnetFaucet.BaseToken,
		UnlockConditions: ledger.UnlockConditions{
			&ledger.AddressUnlockCondition{Address: addr},
		},
	})
	log.Infof("Credited %s to %s",
		cfgutil.FormatAmount(cfg.SimnetFaucet.BaseToken),
		addr.Bech32(ledger.SimnetParams.Bech32HRP))

	return nil
}

// startMetricsServer serves the wallet metrics of registry on addr.
func startMetricsServer(addr string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry,
		promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Infof("Metrics server listening on %s", addr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics server failed: %v", err)
		}
	}()

	return srv
}

// serveStdio answers every JSON method line of r with a JSON response line
// on w, until r ends or ctx is canceled.
func serveStdio(ctx context.Context, handler *walletrpc.Handler, r io.Reader,
	w io.Writer) error {

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	out := bufio.NewWriter(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		resp := handler.CallJSON(ctx, line)
		if _, err := out.Write(append(resp, '\n')); err != nil {
			return err
		}
		if err := out.Flush(); err != nil {
			return err
		}
	}

	return scanner.Err()
}
