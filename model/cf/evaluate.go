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

package cf

import (
	"github.com/chewxy/math32"
	"github.com/gorse-io/movierec/base"
	"github.com/gorse-io/movierec/dataset"
)

// Split ratings into a train set and a test set. testRatio is the fraction of
// ratings in the test set.
func Split(ratings []dataset.Rating, testRatio float64, seed int64) (train, test []dataset.Rating) {
	rng := base.NewRandomGenerator(seed)
	perm := rng.Perm(len(ratings))
	numTest := int(float64(len(ratings)) * testRatio)
	test = make([]dataset.Rating, 0, numTest)
	train = make([]dataset.Rating, 0, len(ratings)-numTest)
	for i, j := range perm {
		if i < numTest {
			test = append(test, ratings[j])
		} else {
			train = append(train, ratings[j])
		}
	}
	return
}

// RMSE of a model over ratings. Ratings the model cannot predict are skipped; the
// number of evaluated ratings is returned as well.
func RMSE(als *ALS, ratings []dataset.Rating) (float32, int) {
	var sum float32
	var count int
	for _, r := range ratings {
		prediction, ok := als.Predict(r.UserId, r.MovieId)
		if !ok {
			continue
		}
		sum += (prediction - r.Rating) * (prediction - r.Rating)
		count++
	}
	if count == 0 {
		return math32.NaN(), 0
	}
	return math32.Sqrt(sum / float32(count)), count
}
