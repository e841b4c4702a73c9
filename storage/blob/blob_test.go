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
	"os"
	"path"
	"testing"

	"github.com/gorse-io/movierec/config"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	store, err := Open("datasets/ml-latest-small", config.DatasetConfig{})
	require.NoError(t, err)
	assert.IsType(t, &POSIX{}, store)
	assert.Equal(t, "datasets/ml-latest-small", store.String())

	store, err = Open("s3://movies/ml-latest-small", config.DatasetConfig{
		S3: config.S3Config{Endpoint: "localhost:9000"},
	})
	require.NoError(t, err)
	assert.IsType(t, &S3{}, store)
	assert.Equal(t, "s3://movies/ml-latest-small", store.String())

	store, err = Open("gs://movies/ml-latest-small", config.DatasetConfig{
		GCS: config.GCSConfig{Endpoint: "http://localhost:4443/storage/v1/"},
	})
	require.NoError(t, err)
	assert.IsType(t, &GCS{}, store)
	assert.Equal(t, "gs://movies/ml-latest-small", store.String())

	_, err = Open("ftp://movies/ml-latest-small", config.DatasetConfig{})
	assert.True(t, errors.Is(err, errors.NotSupported))
	_, err = Open("s3:///ml-latest-small", config.DatasetConfig{})
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = Open("az://movies/ml", config.DatasetConfig{})
	assert.Error(t, err)
}

func TestPOSIX(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(path.Join(dir, "ratings.csv"), []byte("hello world"), 0644))
	client := NewPOSIX(dir)

	// read the file
	r, err := client.Open(context.Background(), "ratings.csv")
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
	assert.NoError(t, r.Close())

	// missing file
	_, err = client.Open(context.Background(), "movies.csv")
	assert.True(t, errors.Is(err, errors.NotFound))
}
