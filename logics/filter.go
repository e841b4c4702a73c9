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

package logics

import (
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/gorse-io/movierec/base/log"
	"github.com/gorse-io/movierec/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// ItemFilter decides whether a movie can be recommended. The expression is evaluated
// with `item` (the catalog entry) and `count` (its number of ratings), e.g.
// `count >= 50 && "Drama" in item.Genres`.
type ItemFilter struct {
	program *vm.Program
}

func NewItemFilter(filter string) (*ItemFilter, error) {
	if filter == "" {
		return &ItemFilter{}, nil
	}
	program, err := expr.Compile(filter, expr.Env(map[string]any{
		"item":  dataset.Item{},
		"count": 0,
	}))
	if err != nil {
		return nil, errors.Annotatef(err, "compile item filter %q", filter)
	}
	if program.Node().Type().Kind() != reflect.Bool {
		return nil, errors.New("item filter must return bool")
	}
	return &ItemFilter{program: program}, nil
}

// Accept evaluates the filter. An empty filter accepts every movie.
func (f *ItemFilter) Accept(item dataset.Item, count int) bool {
	if f == nil || f.program == nil {
		return true
	}
	result, err := expr.Run(f.program, map[string]any{
		"item":  item,
		"count": count,
	})
	if err != nil {
		log.Logger().Error("evaluate item filter", zap.Int32("movie_id", item.MovieId), zap.Error(err))
		return false
	}
	return result.(bool)
}
