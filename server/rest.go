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
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/cinematch-io/cinematch/base/log"
	"github.com/cinematch-io/cinematch/config"
	"github.com/cinematch-io/cinematch/dataset"
	"github.com/cinematch-io/cinematch/model/cf"
	"github.com/cinematch-io/cinematch/recommend"
	"github.com/cinematch-io/cinematch/storage/data"
)

// Snapshot bundles a trained model with the ratings it was trained on. The
// ratings drive the rated-movie exclusion and the popularity fallback.
type Snapshot struct {
	Estimator *cf.SVD
	Ratings   []dataset.Rating
}

// RestServer serves recommendations and collects feedback over HTTP.
type RestServer struct {
	Config     *config.Config
	DataClient data.Database
	Catalog    *dataset.Catalog
	WebService *restful.WebService

	snapshot atomic.Pointer[Snapshot]
	cache    *ttlcache.Cache[string, []recommend.Recommendation]
}

// NewRestServer creates a server around a feedback store and movie catalog.
func NewRestServer(conf *config.Config, dataClient data.Database, catalog *dataset.Catalog) *RestServer {
	s := &RestServer{
		Config:     conf,
		DataClient: dataClient,
		Catalog:    catalog,
		WebService: new(restful.WebService),
		cache: ttlcache.New[string, []recommend.Recommendation](
			ttlcache.WithTTL[string, []recommend.Recommendation](conf.Server.CacheExpire),
			ttlcache.WithCapacity[string, []recommend.Recommendation](uint64(conf.Server.CacheSize)),
		),
	}
	go s.cache.Start()
	return s
}

// SetSnapshot atomically swaps the serving model and drops cached lists.
func (s *RestServer) SetSnapshot(snapshot *Snapshot) {
	s.snapshot.Store(snapshot)
	s.cache.DeleteAll()
}

// StartHttpServer starts the REST API server.
func (s *RestServer) StartHttpServer() {
	s.CreateWebService()
	restful.DefaultContainer.Add(s.WebService)
	specConfig := restfulspec.Config{
		WebServices: restful.RegisteredWebServices(),
		APIPath:     "/apidocs.json",
	}
	restful.DefaultContainer.Add(restfulspec.NewOpenAPIService(specConfig))
	http.Handle("/metrics", promhttp.Handler())
	log.Logger().Info("start http server",
		zap.String("url", fmt.Sprintf("http://%s:%d", s.Config.Server.HTTPHost, s.Config.Server.HTTPPort)))
	log.Logger().Fatal("failed to start http server",
		zap.Error(http.ListenAndServe(fmt.Sprintf("%s:%d", s.Config.Server.HTTPHost, s.Config.Server.HTTPPort), nil)))
}

// LogFilter stamps a request id on every request and logs the outcome.
func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	requestId := req.HeaderParameter("X-Request-ID")
	if requestId == "" {
		requestId = uuid.NewString()
	}
	resp.AddHeader("X-Request-ID", requestId)
	start := time.Now()
	chain.ProcessFilter(req, resp)
	RequestSeconds.WithLabelValues(req.SelectedRoutePath()).Observe(time.Since(start).Seconds())
	log.Logger().Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
		zap.Int("status_code", resp.StatusCode()),
		zap.String("request_id", requestId))
}

// CreateWebService registers all routes.
func (s *RestServer) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/api/")
	ws.Filter(LogFilter)

	ws.Route(ws.GET("/health").To(s.getHealth).
		Doc("Check server health and model availability.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(HealthResponse{}))
	ws.Route(ws.GET("/recommendations/{user-id}").To(s.getRecommendations).
		Doc("Get ranked movie recommendations for a user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("string")).
		Param(ws.QueryParameter("count", "number of recommendations").DataType("integer")).
		Writes(RecommendationsResponse{}))
	ws.Route(ws.POST("/rating").To(s.submitRating).
		Doc("Submit a user rating.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"feedback"}).
		Reads(RatingRequest{}).
		Writes(Success{}))
	ws.Route(ws.POST("/telemetry").To(s.logTelemetry).
		Doc("Log a frontend telemetry event.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"feedback"}).
		Reads(TelemetryRequest{}).
		Writes(Success{}))
	ws.Route(ws.GET("/analytics").To(s.getAnalytics).
		Doc("Get engagement analytics for a time range.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"analytics"}).
		Param(ws.QueryParameter("range", "day, week, month or all").DataType("string")).
		Writes(AnalyticsMetrics{}))
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// RecommendationsResponse is the body of the recommendations endpoint.
type RecommendationsResponse struct {
	UserId          string                     `json:"user_id"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Count           int                        `json:"count"`
}

// RatingRequest is a rating submitted by a user.
type RatingRequest struct {
	UserId    string   `json:"user_id"`
	MovieName string   `json:"movie_name"`
	Rating    *float64 `json:"rating"`
	Watched   *bool    `json:"watched"`
	Timestamp string   `json:"timestamp"`
}

// TelemetryRequest is a frontend telemetry event.
type TelemetryRequest struct {
	Event  string `json:"event"`
	UserId string `json:"user_id"`
}

// Success is the body of write endpoints.
type Success struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (s *RestServer) getHealth(_ *restful.Request, response *restful.Response) {
	snapshot := s.snapshot.Load()
	loaded := snapshot != nil && !snapshot.Estimator.Invalid()
	if !loaded {
		if err := response.WriteHeaderAndJson(http.StatusInternalServerError,
			HealthResponse{Status: "unhealthy", ModelLoaded: false}, restful.MIME_JSON); err != nil {
			log.Logger().Error("failed to write json", zap.Error(err))
		}
		return
	}
	Ok(response, HealthResponse{Status: "healthy", ModelLoaded: true})
}

func (s *RestServer) getRecommendations(request *restful.Request, response *restful.Response) {
	userId := request.PathParameter("user-id")
	count, err := ParseInt(request, "count", s.Config.Recommend.DefaultCount)
	if err != nil {
		BadRequest(response, err)
		return
	}
	if count <= 0 {
		BadRequest(response, errors.NotValidf("count %d", count))
		return
	}
	if count > s.Config.Recommend.MaxCount {
		count = s.Config.Recommend.MaxCount
	}
	snapshot := s.snapshot.Load()
	if snapshot == nil {
		InternalServerError(response, errors.NotProvisionedf("model"))
		return
	}
	cacheKey := fmt.Sprintf("%s/%d", userId, count)
	var recommendations []recommend.Recommendation
	if item := s.cache.Get(cacheKey); item != nil {
		CacheHitTotal.Inc()
		recommendations = item.Value()
	} else {
		CacheMissTotal.Inc()
		recommendations = recommend.RecommendMovies(snapshot.Estimator, s.Catalog, snapshot.Ratings, userId, count)
		s.cache.Set(cacheKey, recommendations, ttlcache.DefaultTTL)
	}
	RecommendationsServedTotal.Add(float64(len(recommendations)))
	s.recordTelemetry("recommendations_served", userId, map[string]interface{}{
		"count": len(recommendations),
	})
	Ok(response, RecommendationsResponse{
		UserId:          userId,
		Recommendations: recommendations,
		Count:           len(recommendations),
	})
}

func (s *RestServer) submitRating(request *restful.Request, response *restful.Response) {
	var body RatingRequest
	if err := request.ReadEntity(&body); err != nil {
		BadRequest(response, err)
		return
	}
	if body.UserId == "" || body.MovieName == "" || body.Rating == nil ||
		body.Watched == nil || body.Timestamp == "" {
		BadRequest(response, errors.NotValidf("missing required fields"))
		return
	}
	timestamp, err := dateparse.ParseAny(body.Timestamp)
	if err != nil {
		BadRequest(response, errors.NotValidf("timestamp %q", body.Timestamp))
		return
	}
	if err := s.DataClient.InsertRating(request.Request.Context(), data.SubmittedRating{
		UserId:    body.UserId,
		MovieName: body.MovieName,
		Rating:    *body.Rating,
		Watched:   *body.Watched,
		Timestamp: timestamp,
	}); err != nil {
		InternalServerError(response, err)
		return
	}
	RatingsSubmittedTotal.Inc()
	s.recordTelemetry("rating_submitted", body.UserId, map[string]interface{}{
		"movie":  body.MovieName,
		"rating": *body.Rating,
	})
	Ok(response, Success{Success: true, Message: "rating submitted"})
}

func (s *RestServer) logTelemetry(request *restful.Request, response *restful.Response) {
	raw := make(map[string]interface{})
	if err := request.ReadEntity(&raw); err != nil {
		BadRequest(response, err)
		return
	}
	event, _ := raw["event"].(string)
	userId, _ := raw["user_id"].(string)
	if event == "" || userId == "" {
		BadRequest(response, errors.NotValidf("missing required fields"))
		return
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	if err := s.DataClient.InsertTelemetry(request.Request.Context(), data.TelemetryEvent{
		Timestamp: time.Now(),
		Event:     event,
		UserId:    userId,
		Data:      string(payload),
	}); err != nil {
		InternalServerError(response, err)
		return
	}
	TelemetryEventsTotal.WithLabelValues(event).Inc()
	Ok(response, Success{Success: true})
}

// recordTelemetry logs a server-side event, dropping it on storage failure.
func (s *RestServer) recordTelemetry(event, userId string, fields map[string]interface{}) {
	payload, err := json.Marshal(fields)
	if err != nil {
		log.Logger().Error("failed to marshal telemetry", zap.Error(err))
		return
	}
	if err := s.DataClient.InsertTelemetry(context.Background(), data.TelemetryEvent{
		Timestamp: time.Now(),
		Event:     event,
		UserId:    userId,
		Data:      string(payload),
	}); err != nil {
		log.Logger().Error("failed to record telemetry", zap.Error(err))
	}
	TelemetryEventsTotal.WithLabelValues(event).Inc()
}

// ParseInt parses an integer query parameter with a default.
func ParseInt(request *restful.Request, name string, fallback int) (int, error) {
	s := request.QueryParameter(name)
	if s == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return value, nil
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	log.Logger().Error("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.Logger().Error("failed to write error", zap.Error(err))
	}
}

// InternalServerError returns an internal server error.
func InternalServerError(response *restful.Response, err error) {
	log.Logger().Error("internal server error", zap.Error(err))
	if err = response.WriteError(http.StatusInternalServerError, err); err != nil {
		log.Logger().Error("failed to write error", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content interface{}) {
	if err := response.WriteAsJson(content); err != nil {
		log.Logger().Error("failed to write json", zap.Error(err))
	}
}
