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
	"net/url"
	"strings"

	"github.com/gorse-io/movierec/config"
	"github.com/juju/errors"
)

// Store gives read access to the objects under a dataset root.
type Store interface {
	// Open an object for reading. A missing object yields an errors.NotFound error.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// String returns the location of the store.
	String() string
}

// Open creates a store for a dataset root. Supported roots are local directories,
// s3://bucket/prefix, gs://bucket/prefix and az://container/prefix.
func Open(root string, cfg config.DatasetConfig) (Store, error) {
	switch {
	case strings.HasPrefix(root, "s3://"):
		bucket, prefix, err := splitURL(root)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return NewS3(cfg.S3, bucket, prefix)
	case strings.HasPrefix(root, "gs://"):
		bucket, prefix, err := splitURL(root)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return NewGCS(cfg.GCS, bucket, prefix)
	case strings.HasPrefix(root, "az://"):
		container, prefix, err := splitURL(root)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return NewAzureBlob(cfg.Azure, container, prefix)
	case strings.Contains(root, "://"):
		return nil, errors.NotSupportedf("dataset root %s", root)
	default:
		return NewPOSIX(root), nil
	}
}

func splitURL(root string) (string, string, error) {
	parsed, err := url.Parse(root)
	if err != nil {
		return "", "", errors.Trace(err)
	}
	if parsed.Host == "" {
		return "", "", errors.NotValidf("dataset root %s", root)
	}
	return parsed.Host, strings.Trim(parsed.Path, "/"), nil
}
