// Copyright 2026 gorse Project Authors
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

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoadDatasetSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "movierec",
		Subsystem: "engine",
		Name:      "load_dataset_seconds",
	})
	TrainSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "movierec",
		Subsystem: "engine",
		Name:      "train_seconds",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	GetRatingSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "movierec",
		Subsystem: "engine",
		Name:      "get_rating_seconds",
	})
	GetTopRecommendationsSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "movierec",
		Subsystem: "engine",
		Name:      "get_top_recommendations_seconds",
	})
	RetrainTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "movierec",
		Subsystem: "engine",
		Name:      "retrain_total",
	}, []string{"trigger", "result"})
	RecommendCacheHitTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "movierec",
		Subsystem: "engine",
		Name:      "recommend_cache_hit_total",
	})
	NumRatings = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "movierec",
		Subsystem: "engine",
		Name:      "num_ratings",
	})
	ModelVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "movierec",
		Subsystem: "engine",
		Name:      "model_version",
	})
)
