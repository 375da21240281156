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

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams(t *testing.T) {
	p := Params{
		NFactors: 10,
		Lr:       0.01,
	}
	assert.Equal(t, 10, p.GetInt(NFactors, 50))
	assert.Equal(t, 20, p.GetInt(NEpochs, 20))
	assert.Equal(t, float32(0.01), p.GetFloat32(Lr, 0.005))
	assert.Equal(t, int64(0), p.GetInt64(RandomState, 0))
	// type mismatch falls back to the default
	assert.Equal(t, 50, Params{NFactors: "ten"}.GetInt(NFactors, 50))
}

func TestParamsCopyOverwrite(t *testing.T) {
	p := Params{NFactors: 10}
	q := p.Copy()
	q[NFactors] = 20
	assert.Equal(t, 10, p.GetInt(NFactors, 0))

	merged := p.Overwrite(Params{NFactors: 30, NEpochs: 5})
	assert.Equal(t, 30, merged.GetInt(NFactors, 0))
	assert.Equal(t, 5, merged.GetInt(NEpochs, 0))
}

func TestParamsGrid(t *testing.T) {
	grid := ParamsGrid{
		NFactors: {8, 16},
		Lr:       {0.01, 0.05, 0.1},
	}
	assert.Equal(t, 2, grid.Len())
	assert.Equal(t, 6, grid.NumCombinations())
	grid.Fill(ParamsGrid{NEpochs: {20}, Lr: {0.5}})
	assert.Equal(t, []interface{}{20}, grid[NEpochs])
	assert.Equal(t, []interface{}{0.01, 0.05, 0.1}, grid[Lr])
}
