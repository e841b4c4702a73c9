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

package floats

// Dot two vectors.
func Dot(a, b []float32) (ret float32) {
	if len(a) != len(b) {
		panic("floats: slice lengths do not match")
	}
	for i := range a {
		ret += a[i] * b[i]
	}
	return
}

// FromFloat64 converts a float64 vector to float32.
func FromFloat64(a []float64) []float32 {
	ret := make([]float32, len(a))
	for i := range a {
		ret[i] = float32(a[i])
	}
	return ret
}

// ToFloat64 converts a float32 vector to float64.
func ToFloat64(a []float32) []float64 {
	ret := make([]float64, len(a))
	for i := range a {
		ret[i] = float64(a[i])
	}
	return ret
}
