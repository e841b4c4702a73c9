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
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
)

const (
	DefaultRank       = 8
	DefaultSeed       = 5
	DefaultIterations = 15
	DefaultReg        = 0.1
)

// Params are the hyper-parameters of ALS.
type Params struct {
	Rank       int     `json:"rank" validate:"gt=0"`
	Seed       int64   `json:"seed"`
	Iterations int     `json:"num_iterations" validate:"gt=0"`
	Reg        float64 `json:"reg" validate:"gte=0"`
	// Jobs is the number of workers. It does not change the trained model.
	Jobs int `json:"-" validate:"gte=0"`
}

func DefaultParams() Params {
	return Params{
		Rank:       DefaultRank,
		Seed:       DefaultSeed,
		Iterations: DefaultIterations,
		Reg:        DefaultReg,
		Jobs:       1,
	}
}

func (p Params) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return errors.NewNotValid(err, "params")
	}
	return nil
}

func (p Params) String() string {
	return fmt.Sprintf("rank=%d seed=%d iterations=%d reg=%g", p.Rank, p.Seed, p.Iterations, p.Reg)
}

func (p Params) jobs() int {
	if p.Jobs < 1 {
		return 1
	}
	return p.Jobs
}
