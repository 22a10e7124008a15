package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cartMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_cart_mutations_total",
			Help: "Committed cart mutations by action.",
		},
		[]string{"action"},
	)

	ordersPlacedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shop_orders_placed_total",
			Help: "Orders committed.",
		},
	)

	orderCommitFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shop_order_commit_failures_total",
			Help: "Order commits rolled back after a storage failure.",
		},
	)

	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_logins_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)
)
