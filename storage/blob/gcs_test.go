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

package blob

import (
	"context"
	"io"
	"testing"

	"github.com/fsouza/fake-gcs-server/fakestorage"
	"github.com/gorse-io/movierec/config"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestGCS(t *testing.T) {
	server := fakestorage.NewServer([]fakestorage.Object{
		{
			ObjectAttrs: fakestorage.ObjectAttrs{
				BucketName: "movierec-test",
				Name:       "ml-latest-small/ratings.csv",
			},
			Content: []byte("userId,movieId,rating,timestamp\n1,10,4.0,964982703\n"),
		},
	})
	defer server.Stop()

	client, err := NewGCS(config.GCSConfig{}, "movierec-test", "ml-latest-small",
		option.WithHTTPClient(server.HTTPClient()), option.WithEndpoint(server.URL()+"/storage/v1/"))
	require.NoError(t, err)

	// read file
	r, err := client.Open(context.Background(), "ratings.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, "userId,movieId,rating,timestamp\n1,10,4.0,964982703\n", string(data))
	assert.NoError(t, r.Close())

	// missing file
	_, err = client.Open(context.Background(), "movies.csv")
	assert.True(t, errors.Is(err, errors.NotFound))
}
