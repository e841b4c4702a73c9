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

package server

import (
	"context"
	"fmt"
	"net/http"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/gorse-io/movierec/base/log"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"
	"go.uber.org/zap"
)

const (
	apiDocsPath = "/apidocs/"
	apiSpecPath = "/apidocs.json"
)

// Handler builds the container serving the REST API, OpenAPI spec, swagger UI and metrics.
func (s *RestServer) Handler() http.Handler {
	s.CreateWebService()
	container := restful.NewContainer()
	container.Add(s.WebService)
	specConfig := restfulspec.Config{
		WebServices: container.RegisteredWebServices(),
		APIPath:     apiSpecPath,
	}
	container.Add(restfulspec.NewOpenAPIService(specConfig))
	container.Handle(apiDocsPath, v5emb.New("movierec", apiSpecPath, apiDocsPath))
	container.Handle("/metrics", promhttp.Handler())
	return container
}

// StartHttpServer starts the REST-ful API server. It blocks until the server is shut down.
func (s *RestServer) StartHttpServer() error {
	s.HttpServer.Handler = s.Handler()
	log.Logger().Info("start http server",
		zap.String("url", fmt.Sprintf("http://%s:%d", s.Config.Server.Host, s.Config.Server.Port)))
	if err := s.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Trace(err)
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *RestServer) Shutdown(ctx context.Context) error {
	return errors.Trace(s.HttpServer.Shutdown(ctx))
}
