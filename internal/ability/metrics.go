// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package ability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheRequests counts cache lookups by kind (object, common) and result (hit, miss).
	cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freee_ability_cache_requests_total",
		Help: "Total number of ability cache lookups",
	}, []string{"kind", "result"})

	cacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "freee_ability_cache_invalidations_total",
		Help: "Total number of ability cache generations discarded",
	})

	// stackingFallbacks counts groups left unstacked because a numeric rule
	// met a non-numeric value.
	stackingFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freee_ability_stacking_fallbacks_total",
		Help: "Total number of ability groups that fell back to do_not_stack",
	}, []string{"rule"})
)
