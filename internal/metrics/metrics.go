package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Completion outcomes
const (
	OutcomeRewarded   = "rewarded"
	OutcomeUnrewarded = "unrewarded"
	OutcomeDuplicate  = "duplicate"
	OutcomeRejected   = "rejected"
)

var (
	Completions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completions_total",
			Help: "Completion submissions by settlement outcome",
		},
		[]string{"outcome", "game_type"},
	)
	CoinsGranted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coins_granted_total",
			Help: "Coins credited to wallets by completions",
		},
		[]string{"game_type"},
	)
	SettleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "completion_settle_duration_seconds",
			Help:    "Time spent in the settlement transaction",
			Buckets: prometheus.DefBuckets,
		},
	)
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_events_published_total",
			Help: "Wallet and completion events handed to a sink",
		},
		[]string{"sink", "result"},
	)
	WalletSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wallet_ws_subscribers",
			Help: "Open wallet websocket connections",
		},
	)
	LedgerDriftWallets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_drift_wallets",
			Help: "Wallets whose balance disagreed with their ledger at the last audit",
		},
	)
)

func init() {
	prometheus.MustRegister(Completions)
	prometheus.MustRegister(CoinsGranted)
	prometheus.MustRegister(SettleDuration)
	prometheus.MustRegister(EventsPublished)
	prometheus.MustRegister(WalletSubscribers)
	prometheus.MustRegister(LedgerDriftWallets)
}
