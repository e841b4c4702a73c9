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
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/movierec/dataset"
)

// Candidates returns the queries to rank for a user: every rated movie the user has
// not rated yet, with at least minRatings ratings and accepted by filter. Having
// rated a movie stands in for having seen it.
func Candidates(d *dataset.Dataset, popularity Popularity, userId int32, minRatings int, filter *ItemFilter) []Query {
	items := d.RatedItems()
	rated := mapset.NewThreadUnsafeSet(d.RatedBy(userId)...)
	queries := make([]Query, 0, len(items)-rated.Cardinality())
	for _, movieId := range items {
		if rated.Contains(movieId) {
			continue
		}
		count := popularity[movieId]
		if count < minRatings {
			continue
		}
		if filter != nil && filter.program != nil {
			item, ok := d.GetItem(movieId)
			if !ok || !filter.Accept(item, count) {
				continue
			}
		}
		queries = append(queries, Query{UserId: userId, MovieId: movieId})
	}
	return queries
}
