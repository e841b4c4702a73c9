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

package logics

import (
	"github.com/chewxy/math32"
	"github.com/gorse-io/movierec/base"
	"github.com/gorse-io/movierec/common/heap"
	"github.com/gorse-io/movierec/common/parallel"
	"github.com/gorse-io/movierec/dataset"
)

// MaxRating is the upper bound of predicted ratings. There is no lower bound.
const MaxRating float32 = 5

// Model predicts the rating of a user for a movie.
type Model interface {
	Predict(userId, movieId int32) (float32, bool)
}

type Query struct {
	UserId  int32
	MovieId int32
}

// Prediction is a predicted rating joined with the catalog and the popularity summary.
type Prediction struct {
	MovieId int32   `json:"movieId"`
	Title   string  `json:"title"`
	Rating  float32 `json:"rating"`
	Count   int     `json:"count"`
}

// Predictor turns queries into predictions. Predictions with privacy noise are
// perturbed by an independent gaussian sample before clamping.
type Predictor struct {
	privacyNoise bool
	noiseStdDev  float32
	jobs         int
	rng          base.RandomGenerator
}

func NewPredictor(privacyNoise bool, noiseStdDev float32, seed int64, jobs int) *Predictor {
	return &Predictor{
		privacyNoise: privacyNoise,
		noiseStdDev:  noiseStdDev,
		jobs:         jobs,
		rng:          base.NewLockedRandomGenerator(seed),
	}
}

func (p *Predictor) PrivacyNoise() bool {
	return p.privacyNoise
}

// Predict ratings for queries. A query yields a prediction only if the model knows
// both ids, the movie is in the catalog and the movie has ratings. Predictions keep
// the order of queries.
func (p *Predictor) Predict(model Model, d *dataset.Dataset, popularity Popularity, queries []Query) []Prediction {
	predictions := make([]Prediction, len(queries))
	found := make([]bool, len(queries))
	parallel.ForEach(queries, p.jobs, func(i int, query Query) {
		rating, ok := model.Predict(query.UserId, query.MovieId)
		if !ok {
			return
		}
		item, ok := d.GetItem(query.MovieId)
		if !ok {
			return
		}
		count, ok := popularity.Count(query.MovieId)
		if !ok {
			return
		}
		if p.privacyNoise {
			rating += p.rng.NormFloat32(0, p.noiseStdDev)
		}
		predictions[i] = Prediction{
			MovieId: query.MovieId,
			Title:   item.Title,
			Rating:  math32.Min(rating, MaxRating),
			Count:   count,
		}
		found[i] = true
	})
	results := make([]Prediction, 0, len(queries))
	for i := range predictions {
		if found[i] {
			results = append(results, predictions[i])
		}
	}
	return results
}

// TopK returns at most k predictions with the highest ratings in descending order.
// The order of equal ratings is unspecified.
func TopK(predictions []Prediction, k int) []Prediction {
	filter := heap.NewTopKFilter[Prediction, float32](k)
	for _, prediction := range predictions {
		filter.Push(prediction, prediction.Rating)
	}
	return filter.PopAllValues()
}
