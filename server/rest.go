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
	"strconv"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/go-playground/validator/v10"
	"github.com/gorse-io/movierec/config"
	"github.com/gorse-io/movierec/dataset"
	"github.com/gorse-io/movierec/engine"
	"github.com/gorse-io/movierec/logics"
	"github.com/gorse-io/movierec/model/cf"
	"github.com/juju/errors"
	"github.com/juju/ratelimit"
	"go.opentelemetry.io/contrib/instrumentation/github.com/emicklei/go-restful/otelrestful"
	"go.opentelemetry.io/otel/trace"
)

// Engine is the recommendation engine behind the REST API.
type Engine interface {
	GetRating(ctx context.Context, userId, movieId int32) (logics.Prediction, error)
	GetTopRecommendations(ctx context.Context, userId int32, n int) ([]logics.Prediction, error)
	AddRatings(ctx context.Context, ratings ...dataset.Rating) error
	ReloadAndRetrain(ctx context.Context, params cf.Params) (time.Duration, error)
	Status() engine.Status
}

// RestServer implements a REST-ful API server.
type RestServer struct {
	Config         *config.Config
	Engine         Engine
	TracerProvider trace.TracerProvider
	WebService     *restful.WebService
	HttpServer     *http.Server

	retrainBucket *ratelimit.Bucket
	validate      *validator.Validate
}

func NewRestServer(cfg *config.Config, e Engine, tp trace.TracerProvider) *RestServer {
	return &RestServer{
		Config:         cfg,
		Engine:         e,
		TracerProvider: tp,
		WebService:     new(restful.WebService),
		HttpServer:     &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)},
		retrainBucket:  NewRetrainBucket(cfg.Server.RetrainRate, cfg.Server.RetrainBurst),
		validate:       validator.New(),
	}
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/")
	ws.Filter(RequestIdFilter)
	ws.Filter(LogFilter)
	if s.TracerProvider != nil {
		ws.Filter(otelrestful.OTelFilter(config.ServiceName, otelrestful.WithTracerProvider(s.TracerProvider)))
	}

	// Get top recommendations
	ws.Route(ws.GET("/{user-id}/ratings/top").To(s.getTopRecommendations).
		Doc("Get top recommendations for a user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("integer")).
		Param(ws.QueryParameter("n", "number of returned recommendations").DataType("integer")).
		Returns(http.StatusOK, "OK", RecommendationsResponse{}).
		Returns(http.StatusBadRequest, "malformed request", ErrorResponse{}).
		Returns(http.StatusInternalServerError, "engine failure", ErrorResponse{}).
		Writes(RecommendationsResponse{}))
	// Get a predicted rating
	ws.Route(ws.GET("/{user-id}/ratings/{movie-id}").To(s.getRating).
		Doc("Get the predicted rating of a user for a movie.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"rating"}).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("integer")).
		Param(ws.PathParameter("movie-id", "identifier of the movie").DataType("integer")).
		Returns(http.StatusOK, "OK", RatingResponse{}).
		Returns(http.StatusBadRequest, "malformed request", ErrorResponse{}).
		Returns(http.StatusInternalServerError, "engine failure", ErrorResponse{}).
		Writes(RatingResponse{}))
	// Add a rating
	ws.Route(ws.POST("/{user-id}/ratings").To(s.addRating).
		Doc("Add a rating and retrain the model.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"rating"}).
		Filter(RateLimitFilter(s.retrainBucket)).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("integer")).
		Reads(RatingRequest{}).
		Returns(http.StatusOK, "OK", RetrainResponse{}).
		Returns(http.StatusBadRequest, "malformed request", ErrorResponse{}).
		Returns(http.StatusTooManyRequests, "rate limited", ErrorResponse{}).
		Returns(http.StatusInternalServerError, "engine failure", ErrorResponse{}).
		Writes(RetrainResponse{}))
	// Reload and retrain
	ws.Route(ws.POST("/engine/reload-and-retrain").To(s.reloadAndRetrain).
		Doc("Reload the dataset and retrain the model with new hyper-parameters.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"engine"}).
		Filter(RateLimitFilter(s.retrainBucket)).
		Reads(ReloadRequest{}).
		Returns(http.StatusOK, "OK", RetrainResponse{}).
		Returns(http.StatusBadRequest, "malformed request", ErrorResponse{}).
		Returns(http.StatusTooManyRequests, "rate limited", ErrorResponse{}).
		Returns(http.StatusInternalServerError, "engine failure", ErrorResponse{}).
		Writes(RetrainResponse{}))
	// Get engine status
	ws.Route(ws.GET("/engine/status").To(s.getStatus).
		Doc("Get the status of the engine.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"engine"}).
		Writes(engine.Status{}))
}

type RatingResponse struct {
	Rating logics.Prediction `json:"rating"`
}

type RecommendationsResponse struct {
	Recs []logics.Prediction `json:"recs"`
}

type RatingRequest struct {
	MovieId *int32   `json:"movieId" validate:"required"`
	Rating  *float32 `json:"rating" validate:"required"`
}

type ReloadRequest struct {
	Rank          *int     `json:"rank" validate:"required"`
	Seed          *int64   `json:"seed" validate:"required"`
	NumIterations *int     `json:"num_iterations" validate:"required"`
	Reg           *float64 `json:"reg" validate:"required"`
}

type RetrainResponse struct {
	Retrained    bool     `json:"retrained"`
	TrainingTime *float64 `json:"trainingTime,omitempty"`
}

// ParseInt parses integers from the query parameter.
func ParseInt(request *restful.Request, name string, fallback int) (value int, err error) {
	valueString := request.QueryParameter(name)
	value, err = strconv.Atoi(valueString)
	if err != nil && valueString == "" {
		value = fallback
		err = nil
	}
	return
}

// parseId parses a 32-bit identifier from the path parameter.
func parseId(request *restful.Request, name string) (int32, error) {
	id, err := strconv.ParseInt(request.PathParameter(name), 10, 32)
	if err != nil {
		return 0, errors.NotValidf("%s %q", name, request.PathParameter(name))
	}
	return int32(id), nil
}

func (s *RestServer) getRating(request *restful.Request, response *restful.Response) {
	userId, err := parseId(request, "user-id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	movieId, err := parseId(request, "movie-id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	prediction, err := s.Engine.GetRating(request.Request.Context(), userId, movieId)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, RatingResponse{Rating: prediction})
}

func (s *RestServer) getTopRecommendations(request *restful.Request, response *restful.Response) {
	userId, err := parseId(request, "user-id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	n, err := ParseInt(request, "n", s.Config.Recommend.DefaultN)
	if err != nil {
		BadRequest(response, err)
		return
	}
	if n <= 0 {
		BadRequest(response, errors.NotValidf("n %d", n))
		return
	}
	recommendations, err := s.Engine.GetTopRecommendations(request.Request.Context(), userId, n)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, RecommendationsResponse{Recs: recommendations})
}

func (s *RestServer) addRating(request *restful.Request, response *restful.Response) {
	userId, err := parseId(request, "user-id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	var body RatingRequest
	if err = request.ReadEntity(&body); err != nil {
		BadRequest(response, err)
		return
	}
	if err = s.validate.Struct(body); err != nil {
		BadRequest(response, err)
		return
	}
	rating := dataset.Rating{UserId: userId, MovieId: *body.MovieId, Rating: *body.Rating}
	if err = s.Engine.AddRatings(request.Request.Context(), rating); err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, RetrainResponse{Retrained: true})
}

func (s *RestServer) reloadAndRetrain(request *restful.Request, response *restful.Response) {
	var body ReloadRequest
	if err := request.ReadEntity(&body); err != nil {
		BadRequest(response, err)
		return
	}
	if err := s.validate.Struct(body); err != nil {
		BadRequest(response, err)
		return
	}
	params := cf.Params{
		Rank:       *body.Rank,
		Seed:       *body.Seed,
		Iterations: *body.NumIterations,
		Reg:        *body.Reg,
		Jobs:       s.Config.Model.Jobs,
	}
	trainingTime, err := s.Engine.ReloadAndRetrain(request.Request.Context(), params)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	seconds := trainingTime.Seconds()
	Ok(response, RetrainResponse{Retrained: true, TrainingTime: &seconds})
}

func (s *RestServer) getStatus(_ *restful.Request, response *restful.Response) {
	Ok(response, s.Engine.Status())
}
