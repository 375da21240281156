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

import (
	"fmt"
	"time"

	"github.com/juju/errors"
)

// Table is a loosely typed column store for data that has not passed schema
// validation yet. Cells hold int64, float64, string, time.Time or nil for a
// missing value.
type Table struct {
	names []string
	cols  map[string][]interface{}
	n     int
}

func NewTable(names ...string) *Table {
	t := &Table{names: names, cols: make(map[string][]interface{})}
	for _, name := range names {
		t.cols[name] = []interface{}{}
	}
	return t
}

// Names returns column names in declaration order.
func (t *Table) Names() []string {
	return t.names
}

func (t *Table) Len() int {
	return t.n
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns the cells of a column, or nil if the column is absent.
func (t *Table) Column(name string) []interface{} {
	return t.cols[name]
}

// Append adds a row. Columns absent from the row get a missing cell.
func (t *Table) Append(row map[string]interface{}) {
	for _, name := range t.names {
		t.cols[name] = append(t.cols[name], row[name])
	}
	t.n++
}

// Set replaces a single cell.
func (t *Table) Set(name string, i int, v interface{}) {
	t.cols[name][i] = v
}

// Get returns a single cell.
func (t *Table) Get(name string, i int) interface{} {
	return t.cols[name][i]
}

// Copy returns a deep copy of the table.
func (t *Table) Copy() *Table {
	c := NewTable(t.names...)
	for _, name := range t.names {
		c.cols[name] = append(c.cols[name], t.cols[name]...)
	}
	c.n = t.n
	return c
}

// DropRows returns a copy of the table without the given row indices.
func (t *Table) DropRows(drop map[int]bool) *Table {
	c := NewTable(t.names...)
	for i := 0; i < t.n; i++ {
		if drop[i] {
			continue
		}
		row := make(map[string]interface{}, len(t.names))
		for _, name := range t.names {
			row[name] = t.cols[name][i]
		}
		c.Append(row)
	}
	return c
}

// ToRatings converts a validated ratings table into rating records. Identifier
// cells are stringified, missing timestamps become the zero time.
func (t *Table) ToRatings() ([]Rating, error) {
	for _, name := range []string{"user_id", "movie_id", "rating"} {
		if !t.HasColumn(name) {
			return nil, errors.NotValidf("ratings table without column %q", name)
		}
	}
	ratings := make([]Rating, 0, t.n)
	for i := 0; i < t.n; i++ {
		userId, err := cellString(t.Get("user_id", i))
		if err != nil {
			return nil, errors.Annotatef(err, "row %d user_id", i)
		}
		movieId, err := cellString(t.Get("movie_id", i))
		if err != nil {
			return nil, errors.Annotatef(err, "row %d movie_id", i)
		}
		value, err := cellFloat(t.Get("rating", i))
		if err != nil {
			return nil, errors.Annotatef(err, "row %d rating", i)
		}
		var timestamp time.Time
		if t.HasColumn("time") {
			if v, ok := t.Get("time", i).(time.Time); ok {
				timestamp = v
			}
		}
		ratings = append(ratings, Rating{
			UserId:    userId,
			MovieId:   movieId,
			Rating:    float32(value),
			Timestamp: timestamp,
		})
	}
	return ratings, nil
}

func cellString(v interface{}) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case int64:
		return fmt.Sprintf("%d", v), nil
	case float64:
		return fmt.Sprintf("%d", int64(v)), nil
	default:
		return "", errors.NotValidf("cell %v", v)
	}
}

func cellFloat(v interface{}) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	default:
		return 0, errors.NotValidf("cell %v", v)
	}
}
