// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	submittedTransactions prometheus.Counter
	failedTransactions    prometheus.Counter
	syncDuration          prometheus.Histogram
	unspentOutputs        *prometheus.GaugeVec
}

// newMetrics creates the wallet collectors.  A nil registerer keeps them
// unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		submittedTransactions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "utxowallet",
			Name:      "transactions_submitted_total",
			Help:      "number of transactions submitted to the node",
		}),
		failedTransactions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "utxowallet",
			Name:      "transactions_failed_total",
			Help: "number of transactions rejected locally or not " +
				"accepted by the node",
		}),
		syncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "utxowallet",
			Name:      "sync_duration_seconds",
			Help:      "duration of account sync passes",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		unspentOutputs: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "utxowallet",
			Name:      "unspent_outputs",
			Help:      "number of unspent outputs per account",
		}, []string{"account"}),
	}
}
