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
	"github.com/gorse-io/movierec/dataset"
	"github.com/samber/lo"
)

// Popularity maps a movie to its number of ratings. Movies without ratings are absent.
type Popularity map[int32]int

// Summarize counts ratings per movie.
func Summarize(ratings []dataset.Rating) Popularity {
	return lo.CountValuesBy(ratings, func(r dataset.Rating) int32 {
		return r.MovieId
	})
}

// Count returns the number of ratings of a movie.
func (p Popularity) Count(movieId int32) (int, bool) {
	count, ok := p[movieId]
	return count, ok
}
