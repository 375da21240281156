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

package schema

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"

	"github.com/cinematch-io/cinematch/base/log"
	"github.com/cinematch-io/cinematch/dataset"
)

// ValidateAndRepairRatings validates the ratings feed and, when validation
// fails, applies mechanical fixes before validating again:
//
//   - ratings outside [1, 5] are clamped to the range
//   - timestamps are parsed leniently, unparsable cells become nil
//   - rows missing user_id, movie_id or rating are dropped
//   - ids are coerced to integers
//
// The input table is never modified. Returns the repaired table, whether it
// is valid, and the remaining validation errors.
func ValidateAndRepairRatings(table *dataset.Table) (*dataset.Table, bool, []string) {
	fixed := table.Copy()
	valid, errs := Validate(fixed, Ratings())
	if valid {
		return fixed, true, nil
	}
	log.Logger().Warn("ratings validation failed",
		zap.Strings("errors", errs))

	if fixed.HasColumn("rating") {
		clamped := 0
		for i := 0; i < fixed.Len(); i++ {
			r, ok := ratingValue(fixed.Get("rating", i))
			if !ok {
				continue
			}
			if r < 1.0 {
				fixed.Set("rating", i, 1.0)
				clamped++
			} else if r > 5.0 {
				fixed.Set("rating", i, 5.0)
				clamped++
			}
		}
		if clamped > 0 {
			log.Logger().Warn("clamped ratings to valid range",
				zap.Int("count", clamped))
		}
	}

	if fixed.HasColumn("time") {
		for i := 0; i < fixed.Len(); i++ {
			switch v := fixed.Get("time", i).(type) {
			case time.Time:
			case string:
				if parsed, err := dateparse.ParseAny(v); err == nil {
					fixed.Set("time", i, parsed)
				} else {
					fixed.Set("time", i, nil)
				}
			case int64:
				fixed.Set("time", i, time.Unix(v, 0).UTC())
			case nil:
			default:
				fixed.Set("time", i, nil)
			}
		}
	}

	// rows without identity or rating carry no signal
	drop := make(map[int]bool)
	for _, name := range []string{"user_id", "movie_id", "rating"} {
		if !fixed.HasColumn(name) {
			continue
		}
		count := 0
		for i := 0; i < fixed.Len(); i++ {
			if fixed.Get(name, i) == nil && !drop[i] {
				drop[i] = true
				count++
			}
		}
		if count > 0 {
			log.Logger().Warn("dropped rows with missing values",
				zap.String("column", name),
				zap.Int("count", count))
		}
	}
	if len(drop) > 0 {
		fixed = fixed.DropRows(drop)
	}

	for _, name := range []string{"user_id", "movie_id"} {
		if !fixed.HasColumn(name) {
			continue
		}
		for i := 0; i < fixed.Len(); i++ {
			switch v := fixed.Get(name, i).(type) {
			case int64:
			case float64:
				fixed.Set(name, i, int64(v))
			case string:
				if parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
					fixed.Set(name, i, parsed)
				} else {
					log.Logger().Error("failed to convert id to integer",
						zap.String("column", name),
						zap.String("value", v))
				}
			}
		}
	}

	valid, errs = Validate(fixed, Ratings())
	return fixed, valid, errs
}

func ratingValue(cell interface{}) (float64, bool) {
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
	return 0, false
}
