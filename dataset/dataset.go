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

package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gorse-io/movierec/base/log"
	"github.com/gorse-io/movierec/storage/blob"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	RatingsFile = "ratings.csv"
	MoviesFile  = "movies.csv"
)

// Rating is a single explicit observation. Duplicates of the same (user, movie)
// pair are kept as independent observations.
type Rating struct {
	UserId  int32   `json:"userId"`
	MovieId int32   `json:"movieId"`
	Rating  float32 `json:"rating"`
}

// Item is a catalog entry.
type Item struct {
	MovieId int32    `json:"movieId"`
	Title   string   `json:"title"`
	Genres  []string `json:"genres,omitempty"`
}

// DataLoadError is returned when a dataset resource is missing, empty or malformed.
type DataLoadError struct {
	Resource string
	Line     int
	Err      error
}

func (e *DataLoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("failed to load %s at line %d: %v", e.Resource, e.Line, e.Err)
	}
	return fmt.Sprintf("failed to load %s: %v", e.Resource, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// Dataset holds the rating log and the movie catalog.
type Dataset struct {
	ratings []Rating
	items   []Item
	index   map[int32]int
}

// NewDataset creates a dataset from ratings and items. Later items replace earlier
// items with the same id.
func NewDataset(ratings []Rating, items []Item) *Dataset {
	d := &Dataset{
		ratings: ratings,
		index:   make(map[int32]int, len(items)),
	}
	for _, item := range items {
		if i, exist := d.index[item.MovieId]; exist {
			d.items[i] = item
			continue
		}
		d.index[item.MovieId] = len(d.items)
		d.items = append(d.items, item)
	}
	return d
}

// Load reads ratings.csv and movies.csv from a store.
func Load(ctx context.Context, store blob.Store) (*Dataset, error) {
	ratings, err := loadRatings(ctx, store)
	if err != nil {
		return nil, err
	}
	items, err := loadItems(ctx, store)
	if err != nil {
		return nil, err
	}
	d := NewDataset(ratings, items)
	log.Logger().Info("load dataset",
		zap.String("root", log.RedactURL(store.String())),
		zap.Int("n_ratings", d.CountRatings()),
		zap.Int("n_items", d.CountItems()),
		zap.Int("n_users", d.CountUsers()))
	return d, nil
}

func loadRatings(ctx context.Context, store blob.Store) ([]Rating, error) {
	var ratings []Rating
	err := readCSV(ctx, store, RatingsFile, 3, func(record []string) error {
		userId, err := parseId(record[0])
		if err != nil {
			return errors.Annotate(err, "userId")
		}
		movieId, err := parseId(record[1])
		if err != nil {
			return errors.Annotate(err, "movieId")
		}
		rating, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 32)
		if err != nil {
			return errors.Annotate(err, "rating")
		}
		if math.IsNaN(rating) || math.IsInf(rating, 0) {
			return errors.NotValidf("rating %q", record[2])
		}
		ratings = append(ratings, Rating{UserId: userId, MovieId: movieId, Rating: float32(rating)})
		return nil
	})
	return ratings, err
}

func loadItems(ctx context.Context, store blob.Store) ([]Item, error) {
	var items []Item
	err := readCSV(ctx, store, MoviesFile, 2, func(record []string) error {
		movieId, err := parseId(record[0])
		if err != nil {
			return errors.Annotate(err, "movieId")
		}
		item := Item{MovieId: movieId, Title: record[1]}
		if len(record) > 2 && record[2] != "" {
			item.Genres = lo.Filter(strings.Split(record[2], "|"), func(genre string, _ int) bool {
				return genre != "" && genre != "(no genres listed)"
			})
		}
		items = append(items, item)
		return nil
	})
	return items, err
}

// readCSV skips the header line and calls handle for every following record.
func readCSV(ctx context.Context, store blob.Store, name string, minFields int, handle func([]string) error) error {
	r, err := store.Open(ctx, name)
	if err != nil {
		return &DataLoadError{Resource: name, Err: err}
	}
	defer r.Close()
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	lineNumber, records := 0, 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return &DataLoadError{Resource: name, Line: lineNumber + 1, Err: err}
		}
		lineNumber++
		if lineNumber == 1 {
			continue
		}
		if len(record) < minFields {
			return &DataLoadError{Resource: name, Line: lineNumber,
				Err: errors.NotValidf("record with %d fields", len(record))}
		}
		if err = handle(record); err != nil {
			return &DataLoadError{Resource: name, Line: lineNumber, Err: err}
		}
		records++
	}
	if records == 0 {
		return &DataLoadError{Resource: name, Err: errors.New("no records after header")}
	}
	return nil
}

func parseId(s string) (int32, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return int32(id), nil
}

// Append adds ratings to the log. No validation is applied.
func (d *Dataset) Append(ratings ...Rating) {
	d.ratings = append(d.ratings, ratings...)
}

// Clone returns a copy that can be appended to without affecting d. The catalog is
// shared since it is never modified after load.
func (d *Dataset) Clone() *Dataset {
	ratings := make([]Rating, len(d.ratings))
	copy(ratings, d.ratings)
	return &Dataset{
		ratings: ratings,
		items:   d.items,
		index:   d.index,
	}
}

func (d *Dataset) Ratings() []Rating {
	return d.ratings
}

func (d *Dataset) CountRatings() int {
	return len(d.ratings)
}

func (d *Dataset) Items() []Item {
	return d.items
}

func (d *Dataset) CountItems() int {
	return len(d.items)
}

func (d *Dataset) CountUsers() int {
	return len(lo.UniqBy(d.ratings, func(r Rating) int32 { return r.UserId }))
}

// GetItem returns the catalog entry of a movie.
func (d *Dataset) GetItem(movieId int32) (Item, bool) {
	if i, exist := d.index[movieId]; exist {
		return d.items[i], true
	}
	return Item{}, false
}

// RatedBy returns the distinct movies rated by a user.
func (d *Dataset) RatedBy(userId int32) []int32 {
	return lo.Uniq(lo.FilterMap(d.ratings, func(r Rating, _ int) (int32, bool) {
		return r.MovieId, r.UserId == userId
	}))
}

// RatedItems returns the distinct movies with at least one rating.
func (d *Dataset) RatedItems() []int32 {
	return lo.Uniq(lo.Map(d.ratings, func(r Rating, _ int) int32 {
		return r.MovieId
	}))
}
