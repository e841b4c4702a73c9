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
	"time"

	"github.com/gorse-io/movierec/base"
	"github.com/gorse-io/movierec/base/log"
	"github.com/gorse-io/movierec/common/floats"
	"github.com/gorse-io/movierec/common/parallel"
	"github.com/gorse-io/movierec/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

const (
	initStdDev  = 0.1
	svdRankCond = 1e-10
	// maxCondition bounds the condition number of systems solved by Cholesky.
	maxCondition = 1e10
)

// TrainingError is returned when a model cannot be fitted.
type TrainingError struct {
	Params Params
	Err    error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("failed to train model (%v): %v", e.Params, e.Err)
}

func (e *TrainingError) Unwrap() error {
	return e.Err
}

// ALS is an explicit feedback matrix factorization fitted by alternating least
// squares with weighted-λ regularization [1]. A fitted model is never modified.
//
// [1] Zhou, Yunhong, et al. "Large-scale parallel collaborative filtering for
// the netflix prize." International conference on algorithmic applications in
// management. Springer, Berlin, Heidelberg, 2008.
type ALS struct {
	Params     Params
	UserIndex  *dataset.FreqDict
	ItemIndex  *dataset.FreqDict
	UserFactor [][]float32 // p_u
	ItemFactor [][]float32 // q_i
}

// Predict the rating of a user for a movie. It returns false if either the user or
// the movie was absent from the training ratings.
func (als *ALS) Predict(userId, movieId int32) (float32, bool) {
	userIndex, ok := als.UserIndex.Lookup(userId)
	if !ok {
		return 0, false
	}
	itemIndex, ok := als.ItemIndex.Lookup(movieId)
	if !ok {
		return 0, false
	}
	return floats.Dot(als.UserFactor[userIndex], als.ItemFactor[itemIndex]), true
}

func (als *ALS) CountUsers() int {
	return als.UserIndex.Count()
}

func (als *ALS) CountItems() int {
	return als.ItemIndex.Count()
}

// sparseRow lists the observations of one user or one item.
type sparseRow struct {
	indices []int
	values  []float64
}

// Train fits an ALS model. Every rating is an independent observation, so duplicated
// (user, movie) pairs contribute to the normal equations once per occurrence.
func Train(ctx context.Context, ratings []dataset.Rating, params Params) (*ALS, error) {
	if err := params.Validate(); err != nil {
		return nil, &TrainingError{Params: params, Err: err}
	}
	if len(ratings) == 0 {
		return nil, &TrainingError{Params: params, Err: errors.New("no ratings")}
	}

	// index users and items
	als := &ALS{
		Params:    params,
		UserIndex: dataset.NewFreqDict(),
		ItemIndex: dataset.NewFreqDict(),
	}
	var userRows, itemRows []sparseRow
	for _, r := range ratings {
		userIndex := als.UserIndex.Id(r.UserId)
		itemIndex := als.ItemIndex.Id(r.MovieId)
		if userIndex == len(userRows) {
			userRows = append(userRows, sparseRow{})
		}
		if itemIndex == len(itemRows) {
			itemRows = append(itemRows, sparseRow{})
		}
		userRows[userIndex].indices = append(userRows[userIndex].indices, itemIndex)
		userRows[userIndex].values = append(userRows[userIndex].values, float64(r.Rating))
		itemRows[itemIndex].indices = append(itemRows[itemIndex].indices, userIndex)
		itemRows[itemIndex].values = append(itemRows[itemIndex].values, float64(r.Rating))
	}
	log.Logger().Info("fit als",
		zap.Int("n_ratings", len(ratings)),
		zap.Int("n_users", als.UserIndex.Count()),
		zap.Int("n_items", als.ItemIndex.Count()),
		zap.Int("rank", params.Rank),
		zap.Int64("seed", params.Seed),
		zap.Int("iterations", params.Iterations),
		zap.Float64("reg", params.Reg))

	// initialize factors
	rng := base.NewRandomGenerator(params.Seed)
	userFactor := rng.NormalMatrix64(len(userRows), params.Rank, 0, initStdDev)
	itemFactor := rng.NormalMatrix64(len(itemRows), params.Rank, 0, initStdDev)

	start := time.Now()
	for ep := 1; ep <= params.Iterations; ep++ {
		// p_u <- (Q_u^T Q_u + λ n_u I)^{-1} Q_u^T r_u
		if err := solve(ctx, params, userRows, itemFactor, userFactor); err != nil {
			return nil, &TrainingError{Params: params, Err: errors.Annotatef(err, "update user factors at iteration %d", ep)}
		}
		// q_i <- (P_i^T P_i + λ n_i I)^{-1} P_i^T r_i
		if err := solve(ctx, params, itemRows, userFactor, itemFactor); err != nil {
			return nil, &TrainingError{Params: params, Err: errors.Annotatef(err, "update item factors at iteration %d", ep)}
		}
		log.Logger().Debug(fmt.Sprintf("fit als %v/%v", ep, params.Iterations),
			zap.Duration("elapsed", time.Since(start)))
	}

	als.UserFactor = make([][]float32, len(userFactor))
	for i := range userFactor {
		als.UserFactor[i] = floats.FromFloat64(userFactor[i])
	}
	als.ItemFactor = make([][]float32, len(itemFactor))
	for i := range itemFactor {
		als.ItemFactor[i] = floats.FromFloat64(itemFactor[i])
	}
	return als, nil
}

// solve recomputes every row of dst from the fixed factors of the other side. Rows
// are independent so the result does not depend on the number of workers.
func solve(ctx context.Context, params Params, rows []sparseRow, fixed, dst [][]float64) error {
	jobs := params.jobs()
	a := make([]*mat.SymDense, jobs)
	b := make([]*mat.VecDense, jobs)
	for i := 0; i < jobs; i++ {
		a[i] = mat.NewSymDense(params.Rank, nil)
		b[i] = mat.NewVecDense(params.Rank, nil)
	}
	return parallel.Parallel(ctx, len(rows), jobs, func(workerId, rowIndex int) error {
		row := rows[rowIndex]
		a, b := a[workerId], b[workerId]
		a.Zero()
		b.Zero()
		for k, j := range row.indices {
			v := mat.NewVecDense(params.Rank, fixed[j])
			a.SymRankOne(a, 1, v)
			b.AddScaledVec(b, row.values[k], v)
		}
		lambda := params.Reg * float64(len(row.indices))
		for f := 0; f < params.Rank; f++ {
			a.SetSym(f, f, a.At(f, f)+lambda)
		}
		x := mat.NewVecDense(params.Rank, dst[rowIndex])
		var chol mat.Cholesky
		if ok := chol.Factorize(a); !ok || chol.Cond() > maxCondition {
			// rank deficient without regularization
			if err := solveLeastSquares(x, a, b); err != nil {
				return errors.Annotatef(err, "row %d", rowIndex)
			}
			return nil
		}
		if err := chol.SolveVecTo(x, b); err != nil {
			var cond mat.Condition
			if !errors.As(err, &cond) {
				return errors.Trace(err)
			}
		}
		return nil
	})
}

// solveLeastSquares writes the minimum norm least squares solution of a x = b to x.
func solveLeastSquares(x *mat.VecDense, a mat.Symmetric, b *mat.VecDense) error {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return errors.New("singular value decomposition failed")
	}
	rank := svd.Rank(svdRankCond)
	if rank == 0 {
		x.Zero()
		return nil
	}
	svd.SolveVecTo(x, b, rank)
	return nil
}
