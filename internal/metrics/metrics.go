// Package metrics exposes Prometheus collectors for the color game.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var RoundsOpened = promauto.NewCounter(prometheus.CounterOpts{
	Name: "colorgame_rounds_opened_total",
	Help: "Betting rounds opened.",
})

var RoundsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "colorgame_rounds_closed_total",
	Help: "Betting rounds closed, by trigger (timer, manual, reset).",
}, []string{"trigger"})

var RoundOpen = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "colorgame_round_open",
	Help: "1 while a betting round is open.",
})

var WagersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "colorgame_wagers_placed_total",
	Help: "Accepted wagers by color.",
}, []string{"color"})

var WagersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "colorgame_wagers_rejected_total",
	Help: "Rejected wagers by error code.",
}, []string{"code"})

var WagersCanceled = promauto.NewCounter(prometheus.CounterOpts{
	Name: "colorgame_wagers_canceled_total",
	Help: "Wagers canceled and refunded.",
})

var CoinsWagered = promauto.NewCounter(prometheus.CounterOpts{
	Name: "colorgame_coins_wagered_total",
	Help: "Coins debited by accepted wagers.",
})

var CoinsPaidOut = promauto.NewCounter(prometheus.CounterOpts{
	Name: "colorgame_coins_paid_out_total",
	Help: "Coins credited by draw payouts, stake included.",
})

var CoinsLost = promauto.NewCounter(prometheus.CounterOpts{
	Name: "colorgame_coins_lost_total",
	Help: "Coins lost on colors that missed the draw.",
})

var DrawsResolved = promauto.NewCounter(prometheus.CounterOpts{
	Name: "colorgame_draws_resolved_total",
	Help: "Draws recorded, with or without wagers.",
})

var Approvals = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "colorgame_approvals_total",
	Help: "Approval requests by kind and outcome.",
}, []string{"kind", "outcome"})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "colorgame_http_requests_total",
	Help: "HTTP requests by method, route and status.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "colorgame_http_request_duration_seconds",
	Help:    "HTTP request latency by route.",
	Buckets: prometheus.DefBuckets,
}, []string{"route"})
