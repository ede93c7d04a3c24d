package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SolveDuration records latency distribution of complete solve calls
var SolveDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "cowsolver_solve_duration_seconds",
		Help:    "Latency in seconds of complete solve calls",
		Buckets: prometheus.DefBuckets,
	},
)

// SolveOutcomes counts solve call outcomes (accepted/rejected/timed_out)
var SolveOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cowsolver_solve_outcomes_total",
		Help: "Total number of solve calls by outcome",
	},
	[]string{"outcome"},
)

// OrdersRejected counts orders dropped during validation by reason
var OrdersRejected = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cowsolver_orders_rejected_total",
		Help: "Total number of orders dropped during validation",
	},
	[]string{"reason"},
)

// Matching and routing stage metrics
var (
	MatchesFound = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cowsolver_matches_found_total",
			Help: "Total number of selected matches by kind",
		},
		[]string{"kind"},
	)

	RoutesFound = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cowsolver_routes_found_total",
			Help: "Total number of routes selected for unmatched orders",
		},
	)

	RoutingFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cowsolver_routing_failures_total",
			Help: "Total number of orders dropped for lack of liquidity",
		},
	)

	PricingFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cowsolver_pricing_failures_total",
			Help: "Total number of token pairs dropped as price-infeasible",
		},
	)
)

func init() {
	prometheus.MustRegister(SolveDuration, SolveOutcomes, OrdersRejected)
	prometheus.MustRegister(MatchesFound, RoutesFound, RoutingFailures, PricingFailures)
}
