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

package dataset

// FreqDict maps sparse ids to dense indexes and counts how often each id was seen.
type FreqDict struct {
	si  map[int32]int
	is  []int32
	cnt []int
}

func NewFreqDict() (d *FreqDict) {
	d = &FreqDict{map[int32]int{}, []int32{}, []int{}}
	return
}

func (d *FreqDict) Count() int {
	return len(d.is)
}

// Id returns the index of s, adding it if absent, and increases its frequency.
func (d *FreqDict) Id(s int32) (y int) {
	if y, ok := d.si[s]; ok {
		d.cnt[y]++
		return y
	}

	y = len(d.is)
	d.si[s] = y
	d.is = append(d.is, s)
	d.cnt = append(d.cnt, 1)
	return
}

// Lookup returns the index of s without modifying the dictionary.
func (d *FreqDict) Lookup(s int32) (int, bool) {
	y, ok := d.si[s]
	return y, ok
}

func (d *FreqDict) Value(id int) (s int32, ok bool) {
	if id < 0 || id >= len(d.is) {
		return 0, false
	}
	return d.is[id], true
}

func (d *FreqDict) Freq(id int) int {
	if id < 0 || id >= len(d.cnt) {
		return 0
	}
	return d.cnt[id]
}
