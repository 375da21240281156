// Copyright 2025 cinematch Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cinematch",
		Subsystem: "server",
		Name:      "request_seconds",
		Help:      "Duration of REST API requests.",
	}, []string{"route"})
	RecommendationsServedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cinematch",
		Subsystem: "server",
		Name:      "recommendations_served_total",
		Help:      "Number of recommended movies served.",
	})
	RatingsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cinematch",
		Subsystem: "server",
		Name:      "ratings_submitted_total",
		Help:      "Number of ratings submitted by users.",
	})
	TelemetryEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinematch",
		Subsystem: "server",
		Name:      "telemetry_events_total",
		Help:      "Number of telemetry events recorded.",
	}, []string{"event"})
	CacheHitTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cinematch",
		Subsystem: "server",
		Name:      "cache_hit_total",
		Help:      "Number of recommendation cache hits.",
	})
	CacheMissTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cinematch",
		Subsystem: "server",
		Name:      "cache_miss_total",
		Help:      "Number of recommendation cache misses.",
	})
)
