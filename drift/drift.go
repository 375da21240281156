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

// Package drift decides whether freshly collected ratings still look like the
// data the serving model was trained on. It combines a statistical test on
// the rating distribution with population and temporal heuristics.
package drift

import (
	"math"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/cinematch-io/cinematch/base/log"
	"github.com/cinematch-io/cinematch/dataset"
)

// DefaultPValueThreshold is the significance level for the rating
// distribution test.
const DefaultPValueThreshold = 0.05

// PopulationDrift reports the share of users and movies in the current window
// that the reference window has never seen.
type PopulationDrift struct {
	UserDrift        bool
	MovieDrift       bool
	NewUserFraction  float64
	NewMovieFraction float64
}

// TemporalDrift reports whether the mean-rating profile over weekdays or
// hours of day decorrelated from the reference window.
type TemporalDrift struct {
	Detected       bool
	DayOfWeekDrift bool
	HourDrift      bool
	DayOfWeekCorr  float64
	HourCorr       float64
}

// Report aggregates all drift signals. Detected is true when any single
// signal fires.
type Report struct {
	Detected     bool
	RatingDrift  bool
	RatingPValue float64
	Population   PopulationDrift
	Temporal     TemporalDrift
}

// DetectRatingDistributionDrift runs a two-sample Kolmogorov-Smirnov test on
// the rating values of both windows. Drift is flagged when the p-value falls
// below threshold. Either window being empty yields no drift and p = 1.
func DetectRatingDistributionDrift(reference, current []dataset.Rating, threshold float64) (bool, float64) {
	if len(reference) == 0 || len(current) == 0 {
		log.Logger().Warn("empty window for rating drift detection")
		return false, 1.0
	}
	refRatings := sortedRatings(reference)
	curRatings := sortedRatings(current)
	d := stat.KolmogorovSmirnov(refRatings, nil, curRatings, nil)
	pValue := ksPValue(d, len(refRatings), len(curRatings))
	detected := pValue < threshold
	if detected {
		log.Logger().Warn("rating distribution drift detected",
			zap.Float64("p_value", pValue),
			zap.Float64("ks_statistic", d),
			zap.Float64("reference_mean", stat.Mean(refRatings, nil)),
			zap.Float64("current_mean", stat.Mean(curRatings, nil)))
	}
	return detected, pValue
}

// DetectPopulationDrift flags user drift when over 20% of current users are
// new and movie drift when over 10% of current movies are new.
func DetectPopulationDrift(reference, current []dataset.Rating) PopulationDrift {
	refUsers := mapset.NewSet(dataset.Users(reference)...)
	curUsers := mapset.NewSet(dataset.Users(current)...)
	refMovies := mapset.NewSet(dataset.Movies(reference)...)
	curMovies := mapset.NewSet(dataset.Movies(current)...)
	var result PopulationDrift
	if curUsers.Cardinality() > 0 {
		result.NewUserFraction = float64(curUsers.Difference(refUsers).Cardinality()) / float64(curUsers.Cardinality())
	}
	if curMovies.Cardinality() > 0 {
		result.NewMovieFraction = float64(curMovies.Difference(refMovies).Cardinality()) / float64(curMovies.Cardinality())
	}
	result.UserDrift = result.NewUserFraction > 0.2
	result.MovieDrift = result.NewMovieFraction > 0.1
	if result.UserDrift {
		log.Logger().Warn("user population drift detected",
			zap.Float64("new_user_fraction", result.NewUserFraction))
	}
	if result.MovieDrift {
		log.Logger().Warn("movie population drift detected",
			zap.Float64("new_movie_fraction", result.NewMovieFraction))
	}
	return result
}

// DetectTemporalDrift correlates mean ratings grouped by weekday and by hour
// of day between the two windows. A Pearson correlation below 0.7 flags
// drift. Degenerate profiles (too few shared buckets or zero variance) never
// flag drift.
func DetectTemporalDrift(reference, current []dataset.Rating) TemporalDrift {
	var result TemporalDrift
	result.DayOfWeekCorr = profileCorrelation(
		meanByBucket(reference, func(r dataset.Rating) int { return int(r.Timestamp.Weekday()) }),
		meanByBucket(current, func(r dataset.Rating) int { return int(r.Timestamp.Weekday()) }))
	result.HourCorr = profileCorrelation(
		meanByBucket(reference, func(r dataset.Rating) int { return r.Timestamp.Hour() }),
		meanByBucket(current, func(r dataset.Rating) int { return r.Timestamp.Hour() }))
	result.DayOfWeekDrift = !math.IsNaN(result.DayOfWeekCorr) && result.DayOfWeekCorr < 0.7
	result.HourDrift = !math.IsNaN(result.HourCorr) && result.HourCorr < 0.7
	result.Detected = result.DayOfWeekDrift || result.HourDrift
	if result.Detected {
		log.Logger().Warn("temporal pattern drift detected",
			zap.Float64("day_of_week_correlation", result.DayOfWeekCorr),
			zap.Float64("hour_correlation", result.HourCorr))
	}
	return result
}

// Detect runs every drift signal against the two windows and aggregates them.
func Detect(reference, current []dataset.Rating) Report {
	var report Report
	report.RatingDrift, report.RatingPValue = DetectRatingDistributionDrift(reference, current, DefaultPValueThreshold)
	report.Population = DetectPopulationDrift(reference, current)
	report.Temporal = DetectTemporalDrift(reference, current)
	report.Detected = report.RatingDrift ||
		report.Population.UserDrift ||
		report.Population.MovieDrift ||
		report.Temporal.Detected
	if report.Detected {
		log.Logger().Warn("data drift detected, consider retraining the model")
	} else {
		log.Logger().Info("no significant data drift detected")
	}
	return report
}

func sortedRatings(ratings []dataset.Rating) []float64 {
	values := make([]float64, len(ratings))
	for i, rating := range ratings {
		values[i] = float64(rating.Rating)
	}
	sort.Float64s(values)
	return values
}

// ksPValue approximates the two-sided p-value of the two-sample
// Kolmogorov-Smirnov statistic with the asymptotic Kolmogorov distribution.
func ksPValue(d float64, n1, n2 int) float64 {
	if d <= 0 {
		return 1.0
	}
	en := math.Sqrt(float64(n1) * float64(n2) / float64(n1+n2))
	lambda := (en + 0.12 + 0.11/en) * d
	sum := 0.0
	for j := 1; j <= 100; j++ {
		term := 2 * math.Pow(-1, float64(j-1)) * math.Exp(-2*float64(j)*float64(j)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-10 {
			break
		}
	}
	return math.Max(0, math.Min(1, sum))
}

func meanByBucket(ratings []dataset.Rating, bucket func(dataset.Rating) int) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, rating := range ratings {
		b := bucket(rating)
		sums[b] += float64(rating.Rating)
		counts[b]++
	}
	means := make(map[int]float64, len(sums))
	for b, sum := range sums {
		means[b] = sum / float64(counts[b])
	}
	return means
}

// profileCorrelation computes the Pearson correlation of two bucketed
// profiles over their shared buckets. Returns NaN when fewer than two buckets
// overlap or either profile is constant.
func profileCorrelation(a, b map[int]float64) float64 {
	var keys []int
	for k := range a {
		if _, ok := b[k]; ok {
			keys = append(keys, k)
		}
	}
	if len(keys) < 2 {
		return math.NaN()
	}
	sort.Ints(keys)
	x := make([]float64, len(keys))
	y := make([]float64, len(keys))
	for i, k := range keys {
		x[i] = a[k]
		y[i] = b[k]
	}
	return stat.Correlation(x, y, nil)
}
