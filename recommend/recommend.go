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

// Package recommend turns a trained factorization model into ranked movie
// lists, falling back to popularity ranking for users the model has never
// seen.
package recommend

import (
	"encoding/json"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/cinematch-io/cinematch/base/log"
	"github.com/cinematch-io/cinematch/dataset"
	"github.com/cinematch-io/cinematch/model/cf"
)

// Recommendation is one ranked movie. Score is the predicted rating for
// model-based recommendations and the rating count for popularity fallbacks.
type Recommendation struct {
	MovieId string  `json:"movie_id"`
	Title   string  `json:"title"`
	Score   float32 `json:"score"`
}

// RecommendMovies returns up to n movies for a user. Known users get the
// movies with the highest predicted ratings among movies they have not rated.
// Unknown users get the most rated movies instead. Ties break towards the
// smaller movie id, so repeated calls return identical lists.
func RecommendMovies(estimator *cf.SVD, catalog *dataset.Catalog,
	ratings []dataset.Rating, userId string, n int) []Recommendation {
	if estimator == nil || estimator.Invalid() || estimator.UserIndex.Id(userId) < 0 {
		log.Logger().Info("user unknown to the model, falling back to popularity",
			zap.String("user_id", userId))
		return popularMovies(catalog, ratings, n)
	}
	rated := dataset.RatedBy(ratings, userId)
	recommendations := make([]Recommendation, 0, estimator.ItemIndex.Count())
	for _, movieId := range estimator.ItemIndex.Strings() {
		if rated.Contains(movieId) {
			continue
		}
		score, ok := estimator.Predict(userId, movieId)
		if !ok {
			continue
		}
		recommendations = append(recommendations, Recommendation{
			MovieId: movieId,
			Title:   Title(catalog, movieId),
			Score:   score,
		})
	}
	sort.SliceStable(recommendations, func(i, j int) bool {
		if recommendations[i].Score != recommendations[j].Score {
			return recommendations[i].Score > recommendations[j].Score
		}
		return lessMovieId(recommendations[i].MovieId, recommendations[j].MovieId)
	})
	return truncate(recommendations, n)
}

// popularMovies ranks movies by how often they were rated.
func popularMovies(catalog *dataset.Catalog, ratings []dataset.Rating, n int) []Recommendation {
	counts := dataset.CountByMovie(ratings)
	recommendations := make([]Recommendation, 0, len(counts))
	for movieId, count := range counts {
		recommendations = append(recommendations, Recommendation{
			MovieId: movieId,
			Title:   Title(catalog, movieId),
			Score:   float32(count),
		})
	}
	sort.SliceStable(recommendations, func(i, j int) bool {
		if recommendations[i].Score != recommendations[j].Score {
			return recommendations[i].Score > recommendations[j].Score
		}
		return lessMovieId(recommendations[i].MovieId, recommendations[j].MovieId)
	})
	return truncate(recommendations, n)
}

// Title extracts the title from the movie's JSON payload. Movies without a
// catalog entry, without a payload or with a broken payload fall back to the
// movie id.
func Title(catalog *dataset.Catalog, movieId string) string {
	if catalog == nil {
		return movieId
	}
	payload, ok := catalog.Payload(movieId)
	if !ok || payload == "" {
		return movieId
	}
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return movieId
	}
	if title, ok := fields["title"].(string); ok {
		return title
	}
	return movieId
}

// lessMovieId orders numeric ids numerically and everything else
// lexicographically.
func lessMovieId(a, b string) bool {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	if aErr == nil && bErr == nil {
		return ai < bi
	}
	return a < b
}

func truncate(recommendations []Recommendation, n int) []Recommendation {
	if n >= 0 && len(recommendations) > n {
		return recommendations[:n]
	}
	return recommendations
}
