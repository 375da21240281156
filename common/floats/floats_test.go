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

package floats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDot(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}
	assert.Equal(t, float32(32), Dot(a, b))
}

func TestAdd(t *testing.T) {
	a := []float32{1, 2, 3}
	Add(a, []float32{1, 1, 1})
	assert.Equal(t, []float32{2, 3, 4}, a)
}

func TestSub(t *testing.T) {
	a := []float32{1, 2, 3}
	Sub(a, []float32{1, 1, 1})
	assert.Equal(t, []float32{0, 1, 2}, a)
}

func TestSubTo(t *testing.T) {
	c := make([]float32, 3)
	SubTo([]float32{4, 5, 6}, []float32{1, 2, 3}, c)
	assert.Equal(t, []float32{3, 3, 3}, c)
}

func TestMulConst(t *testing.T) {
	a := []float32{1, 2, 3}
	MulConst(a, 2)
	assert.Equal(t, []float32{2, 4, 6}, a)
}

func TestMulConstTo(t *testing.T) {
	c := make([]float32, 3)
	MulConstTo([]float32{1, 2, 3}, 3, c)
	assert.Equal(t, []float32{3, 6, 9}, c)
}

func TestMulConstAdd(t *testing.T) {
	dst := []float32{1, 1, 1}
	MulConstAdd([]float32{1, 2, 3}, 2, dst)
	assert.Equal(t, []float32{3, 5, 7}, dst)
}

func TestMatZero(t *testing.T) {
	m := [][]float32{{1, 2}, {3, 4}}
	MatZero(m)
	assert.Equal(t, [][]float32{{0, 0}, {0, 0}}, m)
}
