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

// Dot computes the dot product of two vectors.
func Dot(a, b []float32) (ret float32) {
	for i := range a {
		ret += a[i] * b[i]
	}
	return
}

// Add adds b to a in place.
func Add(a, b []float32) {
	for i := range a {
		a[i] += b[i]
	}
}

// Sub subtracts b from a in place.
func Sub(a, b []float32) {
	for i := range a {
		a[i] -= b[i]
	}
}

// SubTo stores a - b into c.
func SubTo(a, b, c []float32) {
	for i := range a {
		c[i] = a[i] - b[i]
	}
}

// MulConst multiplies a by the constant b in place.
func MulConst(a []float32, b float32) {
	for i := range a {
		a[i] *= b
	}
}

// MulConstTo stores a * b into c.
func MulConstTo(a []float32, b float32, c []float32) {
	for i := range a {
		c[i] = a[i] * b
	}
}

// MulConstAdd adds a * c to dst in place.
func MulConstAdd(a []float32, c float32, dst []float32) {
	for i := range a {
		dst[i] += a[i] * c
	}
}

// MatZero fills a matrix with zeros.
func MatZero(x [][]float32) {
	for i := range x {
		for j := range x[i] {
			x[i][j] = 0
		}
	}
}
