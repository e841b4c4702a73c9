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
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gorse-io/movierec/storage/blob"
	"github.com/jaswdr/faker"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRatings = `userId,movieId,rating,timestamp
1,10,4.0,964982703
2,10,2.0,964981247
1,20,5.0,964982224
`
	testMovies = `movieId,title,genres
10,GoldenEye (1995),Action|Adventure|Thriller
20,"American President, The (1995)",Comedy|Drama|Romance
30,Nixon (1995),(no genres listed)
`
)

func writeDataset(t *testing.T, ratings, movies string) blob.Store {
	dir := t.TempDir()
	if ratings != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, RatingsFile), []byte(ratings), 0644))
	}
	if movies != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, MoviesFile), []byte(movies), 0644))
	}
	return blob.NewPOSIX(dir)
}

func TestLoad(t *testing.T) {
	d, err := Load(context.Background(), writeDataset(t, testRatings, testMovies))
	require.NoError(t, err)
	assert.Equal(t, []Rating{
		{UserId: 1, MovieId: 10, Rating: 4},
		{UserId: 2, MovieId: 10, Rating: 2},
		{UserId: 1, MovieId: 20, Rating: 5},
	}, d.Ratings())
	assert.Equal(t, 3, d.CountRatings())
	assert.Equal(t, 3, d.CountItems())
	assert.Equal(t, 2, d.CountUsers())

	item, ok := d.GetItem(20)
	assert.True(t, ok)
	assert.Equal(t, "American President, The (1995)", item.Title)
	assert.Equal(t, []string{"Comedy", "Drama", "Romance"}, item.Genres)
	item, ok = d.GetItem(30)
	assert.True(t, ok)
	assert.Empty(t, item.Genres)
	_, ok = d.GetItem(40)
	assert.False(t, ok)

	assert.ElementsMatch(t, []int32{10, 20}, d.RatedBy(1))
	assert.Equal(t, []int32{10}, d.RatedBy(2))
	assert.Empty(t, d.RatedBy(3))
	assert.ElementsMatch(t, []int32{10, 20}, d.RatedItems())
}

func TestLoad_ExtraColumns(t *testing.T) {
	d, err := Load(context.Background(), writeDataset(t,
		"userId,movieId,rating\n1,10,4.0\n2,10,2.0,964981247,extra\n",
		"movieId,title\n10,GoldenEye (1995)\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, d.CountRatings())
	item, ok := d.GetItem(10)
	assert.True(t, ok)
	assert.Equal(t, "GoldenEye (1995)", item.Title)
}

func TestLoad_QuotedTitles(t *testing.T) {
	fake := faker.New()
	var builder strings.Builder
	w := csv.NewWriter(&builder)
	require.NoError(t, w.Write([]string{"movieId", "title", "genres"}))
	titles := make(map[int32]string)
	for i := int32(1); i <= 50; i++ {
		titles[i] = fmt.Sprintf("%s, \"%s\" (%d)", fake.Lorem().Sentence(3), fake.Lorem().Word(), fake.IntBetween(1900, 2020))
		require.NoError(t, w.Write([]string{strconv.Itoa(int(i)), titles[i], fake.Lorem().Word()}))
	}
	w.Flush()
	require.NoError(t, w.Error())

	d, err := Load(context.Background(), writeDataset(t, testRatings, builder.String()))
	require.NoError(t, err)
	assert.Equal(t, 50, d.CountItems())
	for id, title := range titles {
		item, ok := d.GetItem(id)
		require.True(t, ok)
		assert.Equal(t, title, item.Title)
		assert.Len(t, item.Genres, 1)
	}
}

func TestLoad_Errors(t *testing.T) {
	var loadErr *DataLoadError

	// missing resource
	_, err := Load(context.Background(), writeDataset(t, testRatings, ""))
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, MoviesFile, loadErr.Resource)
	assert.True(t, errors.Is(err, errors.NotFound))

	// non-numeric rating
	_, err = Load(context.Background(), writeDataset(t, "userId,movieId,rating\n1,10,good\n", testMovies))
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, RatingsFile, loadErr.Resource)
	assert.Equal(t, 2, loadErr.Line)

	// non-finite rating
	for _, rating := range []string{"NaN", "Inf", "-inf"} {
		_, err = Load(context.Background(), writeDataset(t, "userId,movieId,rating\n1,10,4\n2,10,"+rating+"\n", testMovies))
		require.True(t, errors.As(err, &loadErr), rating)
		assert.Equal(t, RatingsFile, loadErr.Resource)
		assert.Equal(t, 3, loadErr.Line)
		assert.True(t, errors.Is(err, errors.NotValid))
	}

	// non-numeric id
	_, err = Load(context.Background(), writeDataset(t, testRatings, "movieId,title\nabc,GoldenEye\n"))
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, MoviesFile, loadErr.Resource)

	// too few columns
	_, err = Load(context.Background(), writeDataset(t, "userId,movieId,rating\n1,10\n", testMovies))
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, RatingsFile, loadErr.Resource)

	// header only
	_, err = Load(context.Background(), writeDataset(t, "userId,movieId,rating\n", testMovies))
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, RatingsFile, loadErr.Resource)
}

func TestDataset_AppendClone(t *testing.T) {
	d := NewDataset([]Rating{{UserId: 1, MovieId: 10, Rating: 4}}, []Item{{MovieId: 10, Title: "GoldenEye (1995)"}})
	c := d.Clone()
	c.Append(Rating{UserId: 1, MovieId: 10, Rating: 4}, Rating{UserId: 2, MovieId: 30, Rating: 1})
	assert.Equal(t, 1, d.CountRatings())
	assert.Equal(t, 3, c.CountRatings())
	// duplicates are kept
	assert.Equal(t, c.Ratings()[0], c.Ratings()[1])
	// unknown movies are accepted
	assert.Equal(t, []int32{10}, c.RatedBy(1))
	assert.Equal(t, []int32{30}, c.RatedBy(2))
	assert.Equal(t, 1, c.CountItems())
}

func TestFreqDict(t *testing.T) {
	d := NewFreqDict()
	assert.Equal(t, 0, d.Id(100))
	assert.Equal(t, 1, d.Id(7))
	assert.Equal(t, 0, d.Id(100))
	assert.Equal(t, 2, d.Count())
	assert.Equal(t, 2, d.Freq(0))
	assert.Equal(t, 1, d.Freq(1))
	assert.Equal(t, 0, d.Freq(2))
	v, ok := d.Value(1)
	assert.True(t, ok)
	assert.Equal(t, int32(7), v)
	_, ok = d.Value(2)
	assert.False(t, ok)
	i, ok := d.Lookup(7)
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = d.Lookup(8)
	assert.False(t, ok)
}
