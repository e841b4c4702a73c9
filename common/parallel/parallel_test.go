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

package parallel

import (
	"context"
	"fmt"
	"runtime"
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestParallel(t *testing.T) {
	a := lo.Range(10000)
	b := make([]int, len(a))
	workerIds := make([]int, len(a))
	// multiple threads
	err := Parallel(context.Background(), len(a), 4, func(workerId, jobId int) error {
		b[jobId] = a[jobId]
		workerIds[jobId] = workerId
		return nil
	})
	assert.NoError(t, err)
	workersSet := mapset.NewSet(workerIds...)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, 4, workersSet.Cardinality())
	// single thread
	err = Parallel(context.Background(), len(a), 1, func(workerId, jobId int) error {
		b[jobId] = a[jobId]
		workerIds[jobId] = workerId
		return nil
	})
	assert.NoError(t, err)
	workersSet = mapset.NewSet(workerIds...)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, workersSet.Cardinality())
}

func TestParallel_Error(t *testing.T) {
	for _, nWorkers := range []int{1, 4} {
		err := Parallel(context.Background(), 100, nWorkers, func(workerId, jobId int) error {
			if jobId == 42 {
				return fmt.Errorf("job %d failed", jobId)
			}
			return nil
		})
		assert.ErrorContains(t, err, "job 42 failed")
	}
}

func TestParallel_ErrorStopsProducer(t *testing.T) {
	before := runtime.NumGoroutine()
	// every worker fails while the queue is still full
	err := Parallel(context.Background(), 10*chanSize, 4, func(workerId, jobId int) error {
		return fmt.Errorf("job %d failed", jobId)
	})
	assert.ErrorContains(t, err, "failed")
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, time.Second, 10*time.Millisecond)
}

func TestParallel_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, nWorkers := range []int{1, 4} {
		err := Parallel(ctx, 100, nWorkers, func(workerId, jobId int) error {
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestForEach(t *testing.T) {
	a := lo.Range(10000)
	for _, nWorkers := range []int{1, 4} {
		b := make([]int, len(a))
		ForEach(a, nWorkers, func(i, v int) {
			b[i] = v * 2
		})
		assert.Equal(t, lo.Map(a, func(v int, _ int) int { return v * 2 }), b)
	}
}
