package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/domain"
)

var cartMutations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Cart mutations by cart mode, operation and outcome (changed, noop, error).",
	},
	[]string{"mode", "operation", "result"},
)

const (
	resultChanged = "changed"
	resultNoop    = "noop"
	resultError   = "error"
)

func observeMutation(mode domain.CartMode, op, result string) {
	cartMutations.WithLabelValues(string(mode), op, result).Inc()
}
