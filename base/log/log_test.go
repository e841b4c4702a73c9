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

package log

import (
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/emicklei/go-restful/v3"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLogger(t *testing.T) {
	temp := t.TempDir()
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flagSet)
	err := flagSet.Parse([]string{"--log-path", filepath.Join(temp, "movierec.log")})
	assert.NoError(t, err)

	SetLogger(flagSet, false)
	Logger().Info("hello")
	_ = Logger().Sync()
	_, err = os.Stat(filepath.Join(temp, "movierec.log"))
	assert.NoError(t, err)

	SetLogger(flagSet, true)
	assert.True(t, Logger().Core().Enabled(-1))
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "s3://xxx:xxxxxx@bucket/ml-latest-small", RedactURL("s3://bob:secret@bucket/ml-latest-small"))
	assert.Equal(t, "gs://xxx@bucket/prefix", RedactURL("gs://bob@bucket/prefix"))
	assert.Equal(t, "data/ml-latest-small", RedactURL("data/ml-latest-small"))
}

func TestResponseLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger = zap.New(core)
	defer func() { logger = zap.Must(zap.NewDevelopment()) }()

	resp := restful.NewResponse(httptest.NewRecorder())
	resp.Header().Set(headerRequestId, "abc")
	ResponseLogger(resp).Info("served")
	GetErrorHandler().Handle(errors.New("exporter unavailable"))

	entries := logs.AllUntimed()
	assert.Len(t, entries, 2)
	assert.Equal(t, "abc", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "opentelemetry failure", entries[1].Message)
	assert.Equal(t, "exporter unavailable", entries[1].ContextMap()["error"])
}
