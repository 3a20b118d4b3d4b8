package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var listCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "admin_list_cache_lookups_total",
	Help: "List page cache lookups by collection and result (hit, miss).",
}, []string{"collection", "result"})
