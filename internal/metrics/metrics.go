package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "drip"
)

// Rejection reasons used as the reason label of ClaimsRejected.
const (
	ReasonPaused       = "paused"
	ReasonCooldown     = "cooldown"
	ReasonLifetimeCap  = "lifetime_cap"
	ReasonSupplyCap    = "supply_cap"
	ReasonUnauthorized = "unauthorized"
	ReasonOther        = "other"
)

var (
	// Token metrics
	TotalSupply = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "token_total_supply",
		Help:      "Minted token supply in whole tokens",
	})

	MaxSupply = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "token_max_supply",
		Help:      "Token supply cap in whole tokens",
	})

	Mints = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_mints_total",
		Help:      "Total number of successful mints",
	})

	Transfers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_transfers_total",
		Help:      "Total number of balance transfers",
	})

	// Faucet metrics
	Claims = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "faucet_claims_total",
		Help:      "Total number of accepted faucet claims",
	})

	ClaimedAmount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "faucet_claimed_amount_total",
		Help:      "Total amount dispensed by the faucet in whole tokens",
	})

	ClaimsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "faucet_claims_rejected_total",
		Help:      "Total number of rejected faucet claims by reason",
	}, []string{"reason"})

	Paused = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "faucet_paused",
		Help:      "1 while the faucet is paused",
	})

	// RPC metrics
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_requests_total",
		Help:      "Total number of JSON-RPC requests by method",
	}, []string{"method"})

	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rpc_request_duration_seconds",
		Help:      "JSON-RPC request duration by method",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	RPCErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_requests_errors_total",
		Help:      "Total number of failed JSON-RPC requests by method",
	}, []string{"method"})

	// Websocket metrics
	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_clients",
		Help:      "Number of connected websocket clients",
	})
)

// SetPaused mirrors the faucet pause flag.
func SetPaused(paused bool) {
	if paused {
		Paused.Set(1)
		return
	}
	Paused.Set(0)
}
