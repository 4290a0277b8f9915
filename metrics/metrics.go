/*
   Copyright 2018-2019 Banco Bilbao Vizcaya Argentaria, S.A.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package metrics holds the prometheus collectors published by the
// cache. Collectors are package-level so the hot paths can increment
// them without indirection; the embedder opts in via Register.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (

	// CACHE

	FarcacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "farcache_hits_total",
			Help: "The total number of cache hits across all sections.",
		},
	)
	FarcacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "farcache_misses_total",
			Help: "The total number of cache misses across all sections.",
		},
	)
	FarcacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "farcache_evictions_total",
			Help: "The total number of pages evicted from their section.",
		},
	)
	FarcacheFlushesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "farcache_flushes_total",
			Help: "The total number of dirty pages written back to the backing store.",
		},
	)
	FarcachePrefetchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "farcache_prefetches_total",
			Help: "The total number of pages installed by prefetch.",
		},
	)
	FarcacheVictimHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "farcache_victim_hits_total",
			Help: "The total number of misses served from the victim cache instead of the backing store.",
		},
	)

	// STORE

	FarcacheStoreReadDurationSeconds = prometheus.NewSummary(
		prometheus.SummaryOpts{
			Name: "farcache_store_read_duration_seconds",
			Help: "Duration of backing-store reads on the miss path.",
		},
	)
	FarcacheStoreWriteDurationSeconds = prometheus.NewSummary(
		prometheus.SummaryOpts{
			Name: "farcache_store_write_duration_seconds",
			Help: "Duration of backing-store writes on flush and dirty eviction.",
		},
	)
)

var collectors = []prometheus.Collector{
	FarcacheHitsTotal,
	FarcacheMissesTotal,
	FarcacheEvictionsTotal,
	FarcacheFlushesTotal,
	FarcachePrefetchesTotal,
	FarcacheVictimHitsTotal,
	FarcacheStoreReadDurationSeconds,
	FarcacheStoreWriteDurationSeconds,
}

// Register registers every cache collector on the given registerer, or
// on the default prometheus registerer when nil.
func Register(r prometheus.Registerer) error {
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	for _, c := range collectors {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}
