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

package drift

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cinematch-io/cinematch/dataset"
)

func ratingsWithValues(values []float32) []dataset.Rating {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ratings := make([]dataset.Rating, len(values))
	for i, v := range values {
		ratings[i] = dataset.Rating{
			UserId:    fmt.Sprint(i % 10),
			MovieId:   fmt.Sprint(100 + i%20),
			Rating:    v,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return ratings
}

func repeated(pattern []float32, n int) []float32 {
	values := make([]float32, 0, n)
	for len(values) < n {
		values = append(values, pattern...)
	}
	return values[:n]
}

func TestDetectRatingDistributionDrift_NoDrift(t *testing.T) {
	pattern := []float32{1, 2, 3, 4, 5}
	reference := ratingsWithValues(repeated(pattern, 200))
	current := ratingsWithValues(repeated(pattern, 200))
	detected, pValue := DetectRatingDistributionDrift(reference, current, DefaultPValueThreshold)
	assert.False(t, detected)
	assert.InDelta(t, 1.0, pValue, 0.01)
}

func TestDetectRatingDistributionDrift_Drift(t *testing.T) {
	reference := ratingsWithValues(repeated([]float32{4, 5, 5, 4, 5}, 200))
	current := ratingsWithValues(repeated([]float32{1, 1, 2, 1, 2}, 200))
	detected, pValue := DetectRatingDistributionDrift(reference, current, DefaultPValueThreshold)
	assert.True(t, detected)
	assert.Less(t, pValue, 0.05)
}

func TestDetectRatingDistributionDrift_Empty(t *testing.T) {
	detected, pValue := DetectRatingDistributionDrift(nil, ratingsWithValues([]float32{3}), DefaultPValueThreshold)
	assert.False(t, detected)
	assert.Equal(t, 1.0, pValue)
}

func TestDetectPopulationDrift(t *testing.T) {
	reference := []dataset.Rating{
		{UserId: "1", MovieId: "101"},
		{UserId: "2", MovieId: "102"},
	}
	// half the users and all movies are new
	current := []dataset.Rating{
		{UserId: "1", MovieId: "201"},
		{UserId: "9", MovieId: "202"},
	}
	result := DetectPopulationDrift(reference, current)
	assert.True(t, result.UserDrift)
	assert.True(t, result.MovieDrift)
	assert.Equal(t, 0.5, result.NewUserFraction)
	assert.Equal(t, 1.0, result.NewMovieFraction)

	same := DetectPopulationDrift(reference, reference)
	assert.False(t, same.UserDrift)
	assert.False(t, same.MovieDrift)
}

func TestDetectPopulationDrift_EmptyCurrent(t *testing.T) {
	reference := []dataset.Rating{{UserId: "1", MovieId: "101"}}
	result := DetectPopulationDrift(reference, nil)
	assert.False(t, result.UserDrift)
	assert.False(t, result.MovieDrift)
}

func TestDetectTemporalDrift(t *testing.T) {
	// reference rates high on weekends, current inverts the pattern
	var reference, current []dataset.Rating
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // a Monday
	for day := 0; day < 14; day++ {
		for hour := 0; hour < 24; hour += 3 {
			ts := start.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
			weekend := ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday
			refRating, curRating := float32(2), float32(5)
			if weekend {
				refRating, curRating = 5, 2
			}
			reference = append(reference, dataset.Rating{UserId: "1", MovieId: "101", Rating: refRating, Timestamp: ts})
			current = append(current, dataset.Rating{UserId: "1", MovieId: "101", Rating: curRating, Timestamp: ts})
		}
	}
	result := DetectTemporalDrift(reference, current)
	assert.True(t, result.DayOfWeekDrift)
	assert.True(t, result.Detected)
	assert.Less(t, result.DayOfWeekCorr, 0.7)

	same := DetectTemporalDrift(reference, reference)
	assert.False(t, same.Detected)
	assert.InDelta(t, 1.0, same.DayOfWeekCorr, 0.01)
}

func TestDetectTemporalDrift_Degenerate(t *testing.T) {
	// a single shared bucket cannot produce a correlation
	ratings := []dataset.Rating{{UserId: "1", MovieId: "101", Rating: 3,
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}}
	result := DetectTemporalDrift(ratings, ratings)
	assert.False(t, result.Detected)
}

func TestDetect(t *testing.T) {
	pattern := []float32{1, 2, 3, 4, 5}
	reference := ratingsWithValues(repeated(pattern, 200))
	report := Detect(reference, reference)
	assert.False(t, report.Detected)
	assert.False(t, report.RatingDrift)
	assert.False(t, report.Population.UserDrift)
	assert.False(t, report.Temporal.Detected)

	shifted := ratingsWithValues(repeated([]float32{1, 1, 1, 2, 1}, 200))
	report = Detect(reference, shifted)
	assert.True(t, report.Detected)
	assert.True(t, report.RatingDrift)
}

func TestMonitorPredictionQuality(t *testing.T) {
	report, err := MonitorPredictionQuality([]float64{3, 4, 5}, []float64{3, 4, 5}, 1.0, 0.1)
	assert.NoError(t, err)
	assert.False(t, report.Degraded)
	assert.Equal(t, 0.0, *report.CurrentRMSE)

	report, err = MonitorPredictionQuality([]float64{1, 1, 1}, []float64{5, 5, 5}, 1.0, 0.1)
	assert.NoError(t, err)
	assert.True(t, report.Degraded)
	assert.Equal(t, 4.0, *report.CurrentRMSE)
	assert.InDelta(t, 3.0, report.RelativeIncrease, 1e-9)
}

func TestMonitorPredictionQuality_LengthMismatch(t *testing.T) {
	_, err := MonitorPredictionQuality([]float64{1}, []float64{1, 2}, 1.0, 0.1)
	assert.Error(t, err)
}

func TestMonitorPredictionQuality_Empty(t *testing.T) {
	report, err := MonitorPredictionQuality(nil, nil, 1.0, 0.1)
	assert.NoError(t, err)
	assert.False(t, report.Degraded)
	assert.Nil(t, report.CurrentRMSE)
}
