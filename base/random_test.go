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

package base

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomGenerator_NormalMatrix64(t *testing.T) {
	rng := NewRandomGenerator(0)
	mat := rng.NormalMatrix64(2000, 10, 1, 0.5)
	var sum, sumSquare float64
	for _, row := range mat {
		assert.Len(t, row, 10)
		for _, v := range row {
			sum += v
			sumSquare += v * v
		}
	}
	n := float64(2000 * 10)
	mean := sum / n
	stdDev := math.Sqrt(sumSquare/n - mean*mean)
	assert.InDelta(t, 1, mean, 0.05)
	assert.InDelta(t, 0.5, stdDev, 0.05)
}

func TestRandomGenerator_Deterministic(t *testing.T) {
	a := NewRandomGenerator(5).NormalVector64(8, 0, 1)
	b := NewRandomGenerator(5).NormalVector64(8, 0, 1)
	assert.Equal(t, a, b)
}

func TestLockedRandomGenerator(t *testing.T) {
	rng := NewLockedRandomGenerator(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				_ = rng.NormFloat32(0, 0.1)
			}
		}()
	}
	wg.Wait()
}
