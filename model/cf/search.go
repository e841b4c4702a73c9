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

package cf

import (
	"context"
	"fmt"

	"github.com/c-bata/goptuna"
	"github.com/c-bata/goptuna/tpe"
	"github.com/chewxy/math32"
	"github.com/gorse-io/movierec/base/log"
	"github.com/gorse-io/movierec/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// SearchConfig bounds a hyper-parameter search.
type SearchConfig struct {
	NumTrials     int
	TestRatio     float64
	MinRank       int
	MaxRank       int
	MinReg        float64
	MaxReg        float64
	MinIterations int
	MaxIterations int
}

func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		NumTrials:     20,
		TestRatio:     0.2,
		MinRank:       4,
		MaxRank:       32,
		MinReg:        0.01,
		MaxReg:        1,
		MinIterations: 5,
		MaxIterations: 20,
	}
}

// Trial is the outcome of one evaluated set of parameters.
type Trial struct {
	Params Params
	RMSE   float32
}

type SearchResult struct {
	BestParams Params
	BestRMSE   float32
	Trials     []Trial
}

// Search looks for the parameters minimizing hold-out RMSE with a TPE sampler.
// Seed and jobs are taken from base. The callback is invoked after each trial.
func Search(ctx context.Context, ratings []dataset.Rating, base Params, cfg SearchConfig, callback func(Trial)) (*SearchResult, error) {
	if cfg.NumTrials <= 0 {
		return nil, errors.NotValidf("number of trials %d", cfg.NumTrials)
	}
	trainSet, testSet := Split(ratings, cfg.TestRatio, base.Seed)
	if len(testSet) == 0 {
		return nil, errors.NotValidf("empty test set")
	}
	study, err := goptuna.CreateStudy("als",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMinimize),
		goptuna.StudyOptionSampler(tpe.NewSampler(tpe.SamplerOptionSeed(base.Seed))))
	if err != nil {
		return nil, errors.Trace(err)
	}

	result := &SearchResult{BestRMSE: math32.Inf(1)}
	objective := func(trial goptuna.Trial) (float64, error) {
		if err := ctx.Err(); err != nil {
			return 0, errors.Trace(err)
		}
		var err error
		params := base
		if params.Rank, err = trial.SuggestInt("rank", cfg.MinRank, cfg.MaxRank); err != nil {
			return 0, errors.Trace(err)
		}
		if params.Reg, err = trial.SuggestLogFloat("reg", cfg.MinReg, cfg.MaxReg); err != nil {
			return 0, errors.Trace(err)
		}
		if params.Iterations, err = trial.SuggestInt("iterations", cfg.MinIterations, cfg.MaxIterations); err != nil {
			return 0, errors.Trace(err)
		}
		model, err := Train(ctx, trainSet, params)
		if err != nil {
			return 0, errors.Trace(err)
		}
		score, n := RMSE(model, testSet)
		if n == 0 {
			return 0, errors.New("no predictable ratings in test set")
		}
		log.Logger().Info(fmt.Sprintf("search als (%v/%v)", len(result.Trials)+1, cfg.NumTrials),
			zap.String("params", params.String()),
			zap.Float32("rmse", score),
			zap.Int("n_evaluated", n))
		t := Trial{Params: params, RMSE: score}
		result.Trials = append(result.Trials, t)
		if score < result.BestRMSE {
			result.BestRMSE = score
			result.BestParams = params
		}
		if callback != nil {
			callback(t)
		}
		return float64(score), nil
	}
	if err = study.Optimize(objective, cfg.NumTrials); err != nil {
		return nil, errors.Trace(err)
	}
	if len(result.Trials) == 0 {
		return nil, errors.New("no trial succeeded")
	}
	return result, nil
}
