// Copyright 2025 cinematch Project Authors
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

// Dict maps sparse ids to dense indices assigned in order of first appearance.
type Dict struct {
	si map[string]int32
	is []string
}

func NewDict() *Dict {
	return &Dict{si: map[string]int32{}, is: []string{}}
}

// Count returns the number of distinct ids.
func (d *Dict) Count() int32 {
	return int32(len(d.is))
}

// Add returns the dense index of s, assigning the next index if s is unseen.
func (d *Dict) Add(s string) int32 {
	if y, ok := d.si[s]; ok {
		return y
	}
	y := int32(len(d.is))
	d.si[s] = y
	d.is = append(d.is, s)
	return y
}

// Id returns the dense index of s, or -1 if s is unknown. The dictionary is
// never mutated by lookups.
func (d *Dict) Id(s string) int32 {
	if y, ok := d.si[s]; ok {
		return y
	}
	return -1
}

// String returns the sparse id at a dense index.
func (d *Dict) String(id int32) (string, bool) {
	if id < 0 || id >= int32(len(d.is)) {
		return "", false
	}
	return d.is[id], true
}

// Strings returns all sparse ids in dense index order.
func (d *Dict) Strings() []string {
	return d.is
}
