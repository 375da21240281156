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
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/suite"

	"github.com/cinematch-io/cinematch/config"
	"github.com/cinematch-io/cinematch/dataset"
	"github.com/cinematch-io/cinematch/model"
	"github.com/cinematch-io/cinematch/model/cf"
	"github.com/cinematch-io/cinematch/storage/data"
)

type ServerTestSuite struct {
	suite.Suite
	server  *RestServer
	handler *restful.Container
}

func trainingRatings() []dataset.Rating {
	return []dataset.Rating{
		{UserId: "1", MovieId: "101", Rating: 5},
		{UserId: "2", MovieId: "101", Rating: 4},
		{UserId: "3", MovieId: "101", Rating: 3},
		{UserId: "1", MovieId: "102", Rating: 2},
		{UserId: "2", MovieId: "102", Rating: 3},
		{UserId: "3", MovieId: "103", Rating: 4},
	}
}

func trainedSnapshot(suite *ServerTestSuite) *Snapshot {
	ratings := trainingRatings()
	estimator := cf.NewSVD(model.Params{
		model.NFactors:    8,
		model.NEpochs:     20,
		model.RandomState: 42,
	})
	suite.NoError(estimator.Fit(ratings, cf.NewFitConfig()))
	return &Snapshot{Estimator: estimator, Ratings: ratings}
}

func (suite *ServerTestSuite) SetupSuite() {
	database, err := data.Open(fmt.Sprintf("sqlite://%s/data.db", suite.T().TempDir()))
	suite.NoError(err)
	suite.NoError(database.Init())
	catalog := dataset.NewCatalog([]dataset.Movie{
		{MovieId: "101", Payload: `{"title": "Heat"}`},
		{MovieId: "102", Payload: `{"title": "Alien"}`},
		{MovieId: "103", Payload: `{"title": "Ran"}`},
	})
	suite.server = NewRestServer(config.GetDefaultConfig(), database, catalog)
	suite.server.CreateWebService()
	suite.handler = restful.NewContainer()
	suite.handler.Add(suite.server.WebService)
}

func (suite *ServerTestSuite) TearDownSuite() {
	suite.NoError(suite.server.DataClient.Close())
}

func (suite *ServerTestSuite) SetupTest() {
	suite.NoError(suite.server.DataClient.Purge())
	suite.server.SetSnapshot(trainedSnapshot(suite))
}

func (suite *ServerTestSuite) TestHealth() {
	apitest.New().
		Handler(suite.handler).
		Get("/api/health").
		Expect(suite.T()).
		Status(http.StatusOK).
		Body(`{"status": "healthy", "model_loaded": true}`).
		End()
}

func (suite *ServerTestSuite) TestHealthWithoutModel() {
	database, err := data.Open(fmt.Sprintf("sqlite://%s/data.db", suite.T().TempDir()))
	suite.NoError(err)
	suite.NoError(database.Init())
	bare := NewRestServer(config.GetDefaultConfig(), database, nil)
	bare.CreateWebService()
	handler := restful.NewContainer()
	handler.Add(bare.WebService)
	apitest.New().
		Handler(handler).
		Get("/api/health").
		Expect(suite.T()).
		Status(http.StatusInternalServerError).
		End()
	suite.NoError(database.Close())
}

func (suite *ServerTestSuite) TestRecommendations() {
	result := apitest.New().
		Handler(suite.handler).
		Get("/api/recommendations/1").
		Expect(suite.T()).
		Status(http.StatusOK).
		End()
	var body RecommendationsResponse
	suite.NoError(json.NewDecoder(result.Response.Body).Decode(&body))
	suite.Equal("1", body.UserId)
	// user 1 already rated 101 and 102
	suite.Equal(1, body.Count)
	suite.Equal("103", body.Recommendations[0].MovieId)
	suite.Equal("Ran", body.Recommendations[0].Title)
}

func (suite *ServerTestSuite) TestRecommendationsColdStart() {
	result := apitest.New().
		Handler(suite.handler).
		Get("/api/recommendations/999").
		Query("count", "2").
		Expect(suite.T()).
		Status(http.StatusOK).
		End()
	var body RecommendationsResponse
	suite.NoError(json.NewDecoder(result.Response.Body).Decode(&body))
	suite.Equal(2, body.Count)
	// popularity order: 101 has three ratings, 102 has two
	suite.Equal("Heat", body.Recommendations[0].Title)
	suite.Equal("Alien", body.Recommendations[1].Title)
}

func (suite *ServerTestSuite) TestRecommendationsBadCount() {
	apitest.New().
		Handler(suite.handler).
		Get("/api/recommendations/1").
		Query("count", "many").
		Expect(suite.T()).
		Status(http.StatusBadRequest).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/recommendations/1").
		Query("count", "-1").
		Expect(suite.T()).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestSubmitRating() {
	apitest.New().
		Handler(suite.handler).
		Post("/api/rating").
		JSON(`{"user_id": "1", "movie_name": "Heat", "rating": 4.5, "watched": true, "timestamp": "2024-05-01T10:00:00Z"}`).
		Expect(suite.T()).
		Status(http.StatusOK).
		End()
	ratings, err := suite.server.DataClient.GetRatings(context.Background(), nil)
	suite.NoError(err)
	suite.Len(ratings, 1)
	suite.Equal("Heat", ratings[0].MovieName)
	suite.Equal(4.5, ratings[0].Rating)
	suite.True(ratings[0].Watched)
}

func (suite *ServerTestSuite) TestSubmitRatingMissingField() {
	apitest.New().
		Handler(suite.handler).
		Post("/api/rating").
		JSON(`{"user_id": "1", "movie_name": "Heat"}`).
		Expect(suite.T()).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestTelemetry() {
	apitest.New().
		Handler(suite.handler).
		Post("/api/telemetry").
		JSON(`{"event": "movie_card_clicked", "user_id": "1", "movie": "Heat"}`).
		Expect(suite.T()).
		Status(http.StatusOK).
		Body(`{"success": true}`).
		End()
	events, err := suite.server.DataClient.GetTelemetry(context.Background(), nil)
	suite.NoError(err)
	suite.Len(events, 1)
	suite.Equal("movie_card_clicked", events[0].Event)
}

func (suite *ServerTestSuite) TestTelemetryMissingField() {
	apitest.New().
		Handler(suite.handler).
		Post("/api/telemetry").
		JSON(`{"event": "movie_card_clicked"}`).
		Expect(suite.T()).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestAnalytics() {
	ctx := context.Background()
	now := time.Now()
	for i := 0; i < 2; i++ {
		suite.NoError(suite.server.DataClient.InsertTelemetry(ctx, data.TelemetryEvent{
			Timestamp: now, Event: "recommendations_shown", UserId: "1", Data: `{}`,
		}))
	}
	for i := 0; i < 4; i++ {
		suite.NoError(suite.server.DataClient.InsertTelemetry(ctx, data.TelemetryEvent{
			Timestamp: now, Event: "movie_card_clicked", UserId: "2", Data: `{}`,
		}))
	}
	suite.NoError(suite.server.DataClient.InsertTelemetry(ctx, data.TelemetryEvent{
		Timestamp: now, Event: "movie_rated", UserId: "2", Data: `{}`,
	}))
	suite.NoError(suite.server.DataClient.InsertRating(ctx, data.SubmittedRating{
		UserId: "2", MovieName: "Heat", Rating: 5, Watched: true, Timestamp: now,
	}))
	suite.NoError(suite.server.DataClient.InsertRating(ctx, data.SubmittedRating{
		UserId: "2", MovieName: "Alien", Rating: 3, Watched: true, Timestamp: now,
	}))

	result := apitest.New().
		Handler(suite.handler).
		Get("/api/analytics").
		Query("range", "all").
		Expect(suite.T()).
		Status(http.StatusOK).
		End()
	var metrics AnalyticsMetrics
	suite.NoError(json.NewDecoder(result.Response.Body).Decode(&metrics))
	suite.Equal(20, metrics.TotalRecommendations)
	suite.InDelta(20.0, metrics.ClickThroughRate, 1e-9)
	suite.InDelta(25.0, metrics.RatingCompletionRate, 1e-9)
	suite.InDelta(4.0, metrics.AverageRating, 1e-9)
	suite.Equal(2, metrics.UniqueUsers)
	suite.Len(metrics.TopRatedMovies, 2)
	suite.Equal("Heat", metrics.TopRatedMovies[0].Title)
	suite.InDelta(50.0, metrics.RatingDistribution["5"], 1e-9)
}

func (suite *ServerTestSuite) TestAnalyticsBadRange() {
	apitest.New().
		Handler(suite.handler).
		Get("/api/analytics").
		Query("range", "fortnight").
		Expect(suite.T()).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestRecommendationCache() {
	for i := 0; i < 2; i++ {
		apitest.New().
			Handler(suite.handler).
			Get("/api/recommendations/2").
			Expect(suite.T()).
			Status(http.StatusOK).
			End()
	}
	// swapping the model must invalidate cached lists
	suite.server.SetSnapshot(trainedSnapshot(suite))
	apitest.New().
		Handler(suite.handler).
		Get("/api/recommendations/2").
		Expect(suite.T()).
		Status(http.StatusOK).
		End()
}

func TestServer(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
