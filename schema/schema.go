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

// Package schema validates loosely typed tables against the expected layout
// of the ratings, movies and users feeds, and repairs the ratings feed where
// a fix is mechanical.
package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/samber/lo"

	"github.com/cinematch-io/cinematch/dataset"
)

// ColumnType enumerates the value types a column may be coerced to.
type ColumnType string

const (
	Int      ColumnType = "int"
	Float    ColumnType = "float"
	String   ColumnType = "str"
	DateTime ColumnType = "datetime"
)

// Column is one rule of a schema. Min and Max bound numeric columns and
// MaxLength bounds string columns; nil means unconstrained.
type Column struct {
	Name      string
	Type      ColumnType
	Required  bool
	Min       *float64
	Max       *float64
	MaxLength *int
}

// Schema is an ordered list of column rules. Order decides the order of
// reported validation errors.
type Schema struct {
	Name    string
	Columns []Column
}

// Ratings describes the ratings feed: who rated which movie, how much, when.
func Ratings() Schema {
	return Schema{Name: "ratings", Columns: []Column{
		{Name: "user_id", Type: Int, Required: true, Min: lo.ToPtr(1.0)},
		{Name: "movie_id", Type: Int, Required: true, Min: lo.ToPtr(1.0)},
		{Name: "rating", Type: Float, Required: true, Min: lo.ToPtr(1.0), Max: lo.ToPtr(5.0)},
		{Name: "time", Type: DateTime, Required: true},
	}}
}

// Movies describes the movie catalog feed.
func Movies() Schema {
	return Schema{Name: "movies", Columns: []Column{
		{Name: "movie_id", Type: Int, Required: true, Min: lo.ToPtr(1.0)},
		{Name: "title", Type: String, Required: true, MaxLength: lo.ToPtr(255)},
		{Name: "genres", Type: String},
	}}
}

// Users describes the optional user demographics feed.
func Users() Schema {
	return Schema{Name: "users", Columns: []Column{
		{Name: "user_id", Type: Int, Required: true, Min: lo.ToPtr(1.0)},
		{Name: "age", Type: Int, Min: lo.ToPtr(1.0)},
		{Name: "gender", Type: String, MaxLength: lo.ToPtr(1)},
		{Name: "occupation", Type: String},
	}}
}

// Validate checks table against schema. Structural failures (empty table,
// missing required columns) short-circuit; per column failures accumulate.
// Successful type checks coerce the column cells in place.
func Validate(table *dataset.Table, schema Schema) (bool, []string) {
	if table == nil || table.Len() == 0 {
		return false, []string{"table is empty"}
	}
	var missing []string
	for _, column := range schema.Columns {
		if column.Required && !table.HasColumn(column.Name) {
			missing = append(missing, column.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return false, []string{fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))}
	}
	var errs []string
	for _, column := range schema.Columns {
		if !table.HasColumn(column.Name) {
			continue
		}
		if !coerceColumn(table, column) {
			errs = append(errs, fmt.Sprintf("column '%s' should be of type %s", column.Name, column.Type))
		}
		minVal, maxVal, maxLen, seen := columnStats(table, column.Name)
		if !seen {
			continue
		}
		if column.Min != nil && minVal < *column.Min {
			errs = append(errs, fmt.Sprintf("column '%s' contains values below minimum (%v)", column.Name, *column.Min))
		}
		if column.Max != nil && maxVal > *column.Max {
			errs = append(errs, fmt.Sprintf("column '%s' contains values above maximum (%v)", column.Name, *column.Max))
		}
		if column.Type == String && column.MaxLength != nil && maxLen > *column.MaxLength {
			errs = append(errs, fmt.Sprintf("column '%s' contains strings longer than %d characters", column.Name, *column.MaxLength))
		}
	}
	return len(errs) == 0, errs
}

// coerceColumn converts every non-nil cell of the column to the rule's type,
// writing converted values back. Returns false if any cell resists.
func coerceColumn(table *dataset.Table, column Column) bool {
	ok := true
	for i := 0; i < table.Len(); i++ {
		cell := table.Get(column.Name, i)
		if cell == nil {
			// absent int cells cannot be represented, like NaN in an integer column
			if column.Type == Int {
				ok = false
			}
			continue
		}
		converted, convertedOk := coerceCell(cell, column.Type)
		if !convertedOk {
			ok = false
			continue
		}
		table.Set(column.Name, i, converted)
	}
	return ok
}

func coerceCell(cell interface{}, columnType ColumnType) (interface{}, bool) {
	switch columnType {
	case Int:
		switch v := cell.(type) {
		case int64:
			return v, true
		case float64:
			return int64(v), true
		case string:
			if parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return parsed, true
			}
		}
	case Float:
		switch v := cell.(type) {
		case float64:
			return v, true
		case int64:
			return float64(v), true
		case string:
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return parsed, true
			}
		}
	case String:
		switch v := cell.(type) {
		case string:
			return v, true
		case int64:
			return strconv.FormatInt(v, 10), true
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64), true
		case time.Time:
			return v.Format(time.RFC3339), true
		}
	case DateTime:
		switch v := cell.(type) {
		case time.Time:
			return v, true
		case string:
			if parsed, err := dateparse.ParseAny(v); err == nil {
				return parsed, true
			}
		case int64:
			return time.Unix(v, 0).UTC(), true
		}
	}
	return nil, false
}

// columnStats scans non-nil cells for the numeric minimum and maximum and the
// longest string length. seen is false when the column holds no usable cell.
func columnStats(table *dataset.Table, name string) (minVal, maxVal float64, maxLen int, seen bool) {
	for i := 0; i < table.Len(); i++ {
		switch v := table.Get(name, i).(type) {
		case int64:
			if !seen || float64(v) < minVal {
				minVal = float64(v)
			}
			if !seen || float64(v) > maxVal {
				maxVal = float64(v)
			}
			seen = true
		case float64:
			if !seen || v < minVal {
				minVal = v
			}
			if !seen || v > maxVal {
				maxVal = v
			}
			seen = true
		case string:
			if len(v) > maxLen {
				maxLen = len(v)
			}
			seen = true
		}
	}
	return
}
