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
	"fmt"

	"github.com/gorse-io/movierec/model/cf"
	"github.com/juju/errors"
)

// ErrNotReady is returned by reads and mutations before the engine is serving.
const ErrNotReady = errors.ConstError("recommendation engine is not ready")

// InitializationError wraps a failure to load or train during initialization.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("failed to initialize recommendation engine: %v", e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// ReloadError wraps a failed reload. The previous model keeps serving.
type ReloadError struct {
	Params cf.Params
	Err    error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("failed to reload and retrain (%v): %v", e.Params, e.Err)
}

func (e *ReloadError) Unwrap() error {
	return e.Err
}
