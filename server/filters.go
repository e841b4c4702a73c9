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
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/gorse-io/movierec/base/log"
	"github.com/juju/errors"
	"github.com/juju/ratelimit"
	"go.uber.org/zap"
)

const HeaderRequestId = "X-Request-ID"

// RequestIdFilter propagates the request id of a request or assigns a new one.
func RequestIdFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	requestId := req.HeaderParameter(HeaderRequestId)
	if requestId == "" {
		requestId = uuid.New().String()
	}
	resp.Header().Set(HeaderRequestId, requestId)
	chain.ProcessFilter(req, resp)
}

// LogFilter writes an access log and records request latency.
func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	chain.ProcessFilter(req, resp)
	elapsed := time.Since(start)
	route := req.SelectedRoutePath()
	if route == "" {
		route = "unknown"
	}
	RequestSeconds.WithLabelValues(route, strconv.Itoa(resp.StatusCode())).Observe(elapsed.Seconds())
	log.ResponseLogger(resp).Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
		zap.Int("status_code", resp.StatusCode()),
		zap.Duration("elapsed", elapsed))
}

// RateLimitFilter rejects requests with 429 when the bucket is empty. A nil bucket
// admits every request.
func RateLimitFilter(bucket *ratelimit.Bucket) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		if bucket != nil && bucket.TakeAvailable(1) == 0 {
			RateLimitedTotal.WithLabelValues(req.SelectedRoutePath()).Inc()
			TooManyRequests(resp, errors.New("retraining rate limit exceeded"))
			return
		}
		chain.ProcessFilter(req, resp)
	}
}

// NewRetrainBucket creates the token bucket of retraining routes. It returns nil if
// rate is zero.
func NewRetrainBucket(rate float64, burst int64) *ratelimit.Bucket {
	if rate <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = max(1, int64(rate))
	}
	return ratelimit.NewBucketWithRate(rate, burst)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(response *restful.Response, status int, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteHeaderAndJson(status, ErrorResponse{Error: err.Error()}, restful.MIME_JSON); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	log.ResponseLogger(response).Warn("bad request", zap.Error(err))
	writeError(response, http.StatusBadRequest, err)
}

// InternalServerError returns a internal server error.
func InternalServerError(response *restful.Response, err error) {
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	writeError(response, http.StatusInternalServerError, err)
}

// TooManyRequests returns a rate limited error.
func TooManyRequests(response *restful.Response, err error) {
	log.ResponseLogger(response).Warn("too many requests", zap.Error(err))
	writeError(response, http.StatusTooManyRequests, err)
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content any) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}
