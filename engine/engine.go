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

package engine

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/gorse-io/movierec/base/log"
	"github.com/gorse-io/movierec/config"
	"github.com/gorse-io/movierec/dataset"
	"github.com/gorse-io/movierec/logics"
	"github.com/gorse-io/movierec/model/cf"
	"github.com/gorse-io/movierec/storage/blob"
	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type State int32

const (
	Uninitialized State = iota
	Loaded
	Trained
	Serving
	Retraining
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loaded:
		return "loaded"
	case Trained:
		return "trained"
	case Serving:
		return "serving"
	case Retraining:
		return "retraining"
	default:
		return "unknown"
	}
}

// Trainer fits a model on ratings.
type Trainer func(ctx context.Context, ratings []dataset.Rating, params cf.Params) (logics.Model, error)

// TrainALS is the default trainer.
func TrainALS(ctx context.Context, ratings []dataset.Rating, params cf.Params) (logics.Model, error) {
	model, err := cf.Train(ctx, ratings, params)
	if err != nil {
		return nil, err
	}
	return model, nil
}

type Option func(*Engine)

// WithTrainer replaces the ALS trainer.
func WithTrainer(trainer Trainer) Option {
	return func(e *Engine) {
		e.trainer = trainer
	}
}

// WithStore reads the dataset from store instead of the configured path.
func WithStore(store blob.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// snapshot is an immutable generation of the served data. Readers load it once per
// call so the model and the popularity summary always match.
type snapshot struct {
	dataset      *dataset.Dataset
	popularity   logics.Popularity
	model        logics.Model
	params       cf.Params
	version      int64
	trainingTime time.Duration
	trainedAt    time.Time
}

type cacheKey struct {
	version int64
	userId  int32
	n       int
}

// Engine serves predictions from the current snapshot. Mutations are serialized and
// publish a new snapshot only when they succeed.
type Engine struct {
	cfg       *config.Config
	store     blob.Store
	trainer   Trainer
	predictor *logics.Predictor
	filter    *logics.ItemFilter
	cache     *ttlcache.Cache[cacheKey, []logics.Prediction]
	tracer    trace.Tracer

	mu      sync.Mutex
	state   *atomic.Int32
	current *atomic.Pointer[snapshot]
}

func NewEngine(cfg *config.Config, opts ...Option) (*Engine, error) {
	filter, err := logics.NewItemFilter(cfg.Recommend.ItemFilter)
	if err != nil {
		return nil, errors.Trace(err)
	}
	e := &Engine{
		cfg:     cfg,
		trainer: TrainALS,
		predictor: logics.NewPredictor(cfg.Recommend.PrivacyNoise, float32(cfg.Recommend.NoiseStdDev),
			time.Now().UnixNano(), cfg.Model.Jobs),
		filter:  filter,
		tracer:  otel.Tracer("engine"),
		state:   atomic.NewInt32(int32(Uninitialized)),
		current: atomic.NewPointer[snapshot](nil),
	}
	if !cfg.Recommend.PrivacyNoise && cfg.Recommend.CacheTTL > 0 {
		e.cache = ttlcache.New[cacheKey, []logics.Prediction](
			ttlcache.WithTTL[cacheKey, []logics.Prediction](cfg.Recommend.CacheTTL),
			ttlcache.WithCapacity[cacheKey, []logics.Prediction](cfg.Recommend.CacheSize),
			ttlcache.WithDisableTouchOnHit[cacheKey, []logics.Prediction]())
		go e.cache.Start()
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close stops background work.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Stop()
	}
}

func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) defaultParams() cf.Params {
	return cf.Params{
		Rank:       e.cfg.Model.Rank,
		Seed:       e.cfg.Model.Seed,
		Iterations: e.cfg.Model.Iterations,
		Reg:        e.cfg.Model.Reg,
		Jobs:       e.cfg.Model.Jobs,
	}
}

// Initialize loads the dataset and trains the first model.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ctx, span := e.tracer.Start(ctx, "Initialize")
	defer span.End()
	if e.current.Load() != nil {
		return &InitializationError{Err: errors.AlreadyExistsf("model")}
	}

	d, err := e.load(ctx)
	if err != nil {
		e.state.Store(int32(Uninitialized))
		return &InitializationError{Err: err}
	}
	e.state.Store(int32(Loaded))
	popularity := logics.Summarize(d.Ratings())
	params := e.defaultParams()
	model, trainingTime, err := e.train(ctx, d, params)
	if err != nil {
		e.state.Store(int32(Uninitialized))
		return &InitializationError{Err: err}
	}
	e.state.Store(int32(Trained))
	e.publish(&snapshot{
		dataset:      d,
		popularity:   popularity,
		model:        model,
		params:       params,
		version:      1,
		trainingTime: trainingTime,
		trainedAt:    time.Now(),
	})
	e.state.Store(int32(Serving))
	RetrainTotal.WithLabelValues("initialize", "success").Inc()
	return nil
}

func (e *Engine) load(ctx context.Context) (*dataset.Dataset, error) {
	ctx, span := e.tracer.Start(ctx, "LoadDataset")
	defer span.End()
	start := time.Now()
	store := e.store
	if store == nil {
		var err error
		if store, err = blob.Open(e.cfg.Dataset.Path, e.cfg.Dataset); err != nil {
			return nil, errors.Trace(err)
		}
	}
	d, err := dataset.Load(ctx, store)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	LoadDatasetSeconds.Observe(time.Since(start).Seconds())
	return d, nil
}

func (e *Engine) train(ctx context.Context, d *dataset.Dataset, params cf.Params) (logics.Model, time.Duration, error) {
	ctx, span := e.tracer.Start(ctx, "Train", trace.WithAttributes(
		attribute.Int("rank", params.Rank),
		attribute.Int64("seed", params.Seed),
		attribute.Int("iterations", params.Iterations),
		attribute.Float64("reg", params.Reg),
		attribute.Int("n_ratings", d.CountRatings())))
	defer span.End()
	start := time.Now()
	model, err := e.trainer(ctx, d.Ratings(), params)
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}
	trainingTime := time.Since(start)
	TrainSeconds.Observe(trainingTime.Seconds())
	log.Logger().Info("train model",
		zap.String("params", params.String()),
		zap.Duration("training_time", trainingTime))
	return model, trainingTime, nil
}

func (e *Engine) publish(s *snapshot) {
	e.current.Store(s)
	if e.cache != nil {
		e.cache.DeleteAll()
	}
	NumRatings.Set(float64(s.dataset.CountRatings()))
	ModelVersion.Set(float64(s.version))
	log.Logger().Info("publish model",
		zap.Int64("version", s.version),
		zap.Int("n_ratings", s.dataset.CountRatings()),
		zap.Int("n_items", s.dataset.CountItems()))
}

func (e *Engine) currentSnapshot() (*snapshot, error) {
	s := e.current.Load()
	if s == nil {
		return nil, ErrNotReady
	}
	return s, nil
}

// GetRating predicts the rating of a user for a movie. It returns a NotFound error
// if the model, the catalog or the popularity summary lacks the pair.
func (e *Engine) GetRating(ctx context.Context, userId, movieId int32) (logics.Prediction, error) {
	_, span := e.tracer.Start(ctx, "GetRating")
	defer span.End()
	s, err := e.currentSnapshot()
	if err != nil {
		return logics.Prediction{}, err
	}
	start := time.Now()
	predictions := e.predictor.Predict(s.model, s.dataset, s.popularity, []logics.Query{{UserId: userId, MovieId: movieId}})
	GetRatingSeconds.Observe(time.Since(start).Seconds())
	if len(predictions) == 0 {
		return logics.Prediction{}, errors.NotFoundf("rating of user %d for movie %d", userId, movieId)
	}
	return predictions[0], nil
}

// GetTopRecommendations returns the n movies with the highest predicted ratings among
// the movies the user has not rated and that have enough ratings.
func (e *Engine) GetTopRecommendations(ctx context.Context, userId int32, n int) ([]logics.Prediction, error) {
	_, span := e.tracer.Start(ctx, "GetTopRecommendations", trace.WithAttributes(
		attribute.Int("user_id", int(userId)), attribute.Int("n", n)))
	defer span.End()
	if n <= 0 {
		return nil, errors.NotValidf("number of recommendations %d", n)
	}
	s, err := e.currentSnapshot()
	if err != nil {
		return nil, err
	}
	key := cacheKey{version: s.version, userId: userId, n: n}
	if e.cache != nil {
		if item := e.cache.Get(key); item != nil {
			RecommendCacheHitTotal.Inc()
			return slices.Clone(item.Value()), nil
		}
	}
	start := time.Now()
	candidates := logics.Candidates(s.dataset, s.popularity, userId, e.cfg.Recommend.MinRatings, e.filter)
	predictions := e.predictor.Predict(s.model, s.dataset, s.popularity, candidates)
	recommendations := logics.TopK(predictions, n)
	GetTopRecommendationsSeconds.Observe(time.Since(start).Seconds())
	if len(recommendations) == 0 {
		return nil, errors.NotFoundf("recommendations for user %d", userId)
	}
	if e.cache != nil {
		e.cache.Set(key, slices.Clone(recommendations), ttlcache.DefaultTTL)
	}
	return recommendations, nil
}

// AddRatings appends ratings and retrains with the current parameters. It returns nil
// only if retraining succeeded; otherwise the previous model keeps serving.
func (e *Engine) AddRatings(ctx context.Context, ratings ...dataset.Rating) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ctx, span := e.tracer.Start(ctx, "AddRatings", trace.WithAttributes(attribute.Int("n_ratings", len(ratings))))
	defer span.End()
	s, err := e.currentSnapshot()
	if err != nil {
		return err
	}
	e.state.Store(int32(Retraining))
	defer e.state.Store(int32(Serving))

	d := s.dataset.Clone()
	d.Append(ratings...)
	popularity := logics.Summarize(d.Ratings())
	model, trainingTime, err := e.train(ctx, d, s.params)
	if err != nil {
		RetrainTotal.WithLabelValues("add_ratings", "failure").Inc()
		return errors.Annotate(err, "retrain after adding ratings")
	}
	e.publish(&snapshot{
		dataset:      d,
		popularity:   popularity,
		model:        model,
		params:       s.params,
		version:      s.version + 1,
		trainingTime: trainingTime,
		trainedAt:    time.Now(),
	})
	RetrainTotal.WithLabelValues("add_ratings", "success").Inc()
	return nil
}

// ReloadAndRetrain reloads the dataset from its root, discarding ratings added since
// the last load, and retrains with params. It returns the training time.
func (e *Engine) ReloadAndRetrain(ctx context.Context, params cf.Params) (time.Duration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ctx, span := e.tracer.Start(ctx, "ReloadAndRetrain")
	defer span.End()
	s, err := e.currentSnapshot()
	if err != nil {
		return 0, err
	}
	if params.Jobs == 0 {
		params.Jobs = e.cfg.Model.Jobs
	}
	e.state.Store(int32(Retraining))
	defer e.state.Store(int32(Serving))

	d, err := e.load(ctx)
	if err != nil {
		RetrainTotal.WithLabelValues("reload", "failure").Inc()
		return 0, &ReloadError{Params: params, Err: err}
	}
	popularity := logics.Summarize(d.Ratings())
	model, trainingTime, err := e.train(ctx, d, params)
	if err != nil {
		RetrainTotal.WithLabelValues("reload", "failure").Inc()
		return 0, &ReloadError{Params: params, Err: err}
	}
	e.publish(&snapshot{
		dataset:      d,
		popularity:   popularity,
		model:        model,
		params:       params,
		version:      s.version + 1,
		trainingTime: trainingTime,
		trainedAt:    time.Now(),
	})
	RetrainTotal.WithLabelValues("reload", "success").Inc()
	return trainingTime, nil
}

type Status struct {
	State        string    `json:"state"`
	Version      int64     `json:"version"`
	Params       cf.Params `json:"params"`
	NumRatings   int       `json:"numRatings"`
	NumItems     int       `json:"numItems"`
	NumUsers     int       `json:"numUsers"`
	TrainingTime float64   `json:"trainingTime"`
	TrainedAt    time.Time `json:"trainedAt"`
	PrivacyNoise bool      `json:"privacyNoise"`
}

// Status describes the engine and its current snapshot.
func (e *Engine) Status() Status {
	status := Status{
		State:        e.State().String(),
		PrivacyNoise: e.predictor.PrivacyNoise(),
	}
	if s := e.current.Load(); s != nil {
		status.Version = s.version
		status.Params = s.params
		status.NumRatings = s.dataset.CountRatings()
		status.NumItems = s.dataset.CountItems()
		status.NumUsers = s.dataset.CountUsers()
		status.TrainingTime = s.trainingTime.Seconds()
		status.TrainedAt = s.trainedAt
	}
	return status
}
