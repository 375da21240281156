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

package encoding

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteReadMatrix(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	w := [][]float32{{1, 2, 3}, {4, 5, 6}}
	err := WriteMatrix(buf, w)
	assert.NoError(t, err)
	r := [][]float32{make([]float32, 3), make([]float32, 3)}
	err = ReadMatrix(buf, r)
	assert.NoError(t, err)
	assert.Equal(t, w, r)
}

func TestWriteReadString(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	err := WriteString(buf, "cinematch")
	assert.NoError(t, err)
	s, err := ReadString(buf)
	assert.NoError(t, err)
	assert.Equal(t, "cinematch", s)
}

func TestWriteReadGob(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	w := map[string]int{"a": 1, "b": 2}
	err := WriteGob(buf, w)
	assert.NoError(t, err)
	var r map[string]int
	err = ReadGob(buf, &r)
	assert.NoError(t, err)
	assert.Equal(t, w, r)
}

func TestFormatFloat32(t *testing.T) {
	assert.Equal(t, "3.14", FormatFloat32(3.14))
}
