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

package server

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/juju/errors"
	"github.com/samber/lo"

	"github.com/cinematch-io/cinematch/storage/data"
)

// Each recommendations_shown event represents one list of this many movies.
const recommendationsPerImpression = 10

// TopMovie is one row of the top rated movies board.
type TopMovie struct {
	Title           string  `json:"title"`
	AverageRating   float64 `json:"average_rating"`
	Recommendations int     `json:"recommendations"`
}

// AnalyticsMetrics summarizes engagement over a time window. Rates are
// percentages in [0, 100].
type AnalyticsMetrics struct {
	TotalRecommendations      int                `json:"total_recommendations"`
	ClickThroughRate          float64            `json:"click_through_rate"`
	RatingCompletionRate      float64            `json:"rating_completion_rate"`
	RatedPercentage           float64            `json:"rated_percentage"`
	ClickedNotRatedPercentage float64            `json:"clicked_not_rated_percentage"`
	NotClickedPercentage      float64            `json:"not_clicked_percentage"`
	AverageRating             float64            `json:"average_rating"`
	RatingDistribution        map[string]float64 `json:"rating_distribution"`
	TopRatedMovies            []TopMovie         `json:"top_rated_movies"`
	UniqueUsers               int                `json:"unique_users"`
}

func (s *RestServer) getAnalytics(request *restful.Request, response *restful.Response) {
	timeRange := request.QueryParameter("range")
	if timeRange == "" {
		timeRange = "week"
	}
	beginTime, err := rangeBegin(timeRange, time.Now())
	if err != nil {
		BadRequest(response, err)
		return
	}
	metrics, err := s.computeAnalytics(request.Request.Context(), beginTime)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, metrics)
}

// rangeBegin maps a named range to its inclusive lower bound. "all" maps to
// nil, meaning no bound.
func rangeBegin(timeRange string, now time.Time) (*time.Time, error) {
	switch timeRange {
	case "day":
		return lo.ToPtr(now.AddDate(0, 0, -1)), nil
	case "week":
		return lo.ToPtr(now.AddDate(0, 0, -7)), nil
	case "month":
		return lo.ToPtr(now.AddDate(0, 0, -30)), nil
	case "all":
		return nil, nil
	}
	return nil, errors.NotValidf("time range %q", timeRange)
}

func (s *RestServer) computeAnalytics(ctx context.Context, beginTime *time.Time) (AnalyticsMetrics, error) {
	counts, err := s.DataClient.CountEvents(ctx, beginTime)
	if err != nil {
		return AnalyticsMetrics{}, errors.Trace(err)
	}
	metrics := AnalyticsMetrics{
		RatingDistribution: make(map[string]float64),
		TopRatedMovies:     []TopMovie{},
	}
	metrics.TotalRecommendations = counts["recommendations_shown"] * recommendationsPerImpression
	totalClicks := counts["movie_card_clicked"]
	totalRatings := counts["movie_rated"]
	if metrics.TotalRecommendations > 0 {
		metrics.ClickThroughRate = float64(totalClicks) / float64(metrics.TotalRecommendations) * 100
		metrics.RatedPercentage = float64(totalRatings) / float64(metrics.TotalRecommendations) * 100
		metrics.ClickedNotRatedPercentage = float64(totalClicks-totalRatings) / float64(metrics.TotalRecommendations) * 100
		metrics.NotClickedPercentage = 100 - metrics.RatedPercentage - metrics.ClickedNotRatedPercentage
	}
	if totalClicks > 0 {
		metrics.RatingCompletionRate = float64(totalRatings) / float64(totalClicks) * 100
	}

	ratings, err := s.DataClient.GetRatings(ctx, beginTime)
	if err != nil {
		return AnalyticsMetrics{}, errors.Trace(err)
	}
	// ratings of zero mean the movie was dismissed without being watched
	valid := lo.Filter(ratings, func(r data.SubmittedRating, _ int) bool { return r.Rating > 0 })
	if len(valid) > 0 {
		var sum float64
		distribution := make(map[string]int)
		for _, rating := range valid {
			sum += rating.Rating
			distribution[fmt.Sprint(int(rating.Rating))]++
		}
		metrics.AverageRating = sum / float64(len(valid))
		for value, count := range distribution {
			metrics.RatingDistribution[value] = float64(count) / float64(len(valid)) * 100
		}
		metrics.TopRatedMovies = topRatedMovies(valid, 5)
	}

	metrics.UniqueUsers, err = s.DataClient.CountUniqueUsers(ctx, beginTime)
	if err != nil {
		return AnalyticsMetrics{}, errors.Trace(err)
	}
	return metrics, nil
}

// topRatedMovies ranks movies by mean rating, ties broken by title.
func topRatedMovies(ratings []data.SubmittedRating, n int) []TopMovie {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, rating := range ratings {
		sums[rating.MovieName] += rating.Rating
		counts[rating.MovieName]++
	}
	movies := make([]TopMovie, 0, len(sums))
	for title, sum := range sums {
		movies = append(movies, TopMovie{
			Title:           title,
			AverageRating:   sum / float64(counts[title]),
			Recommendations: counts[title],
		})
	}
	sort.Slice(movies, func(i, j int) bool {
		if movies[i].AverageRating != movies[j].AverageRating {
			return movies[i].AverageRating > movies[j].AverageRating
		}
		return movies[i].Title < movies[j].Title
	})
	if len(movies) > n {
		movies = movies[:n]
	}
	return movies
}
