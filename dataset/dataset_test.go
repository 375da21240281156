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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func makeRatings(n int) []Rating {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ratings := make([]Rating, n)
	for i := 0; i < n; i++ {
		ratings[i] = Rating{
			UserId:    "u1",
			MovieId:   "m1",
			Rating:    3,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return ratings
}

func TestSplitByTime(t *testing.T) {
	ratings := makeRatings(10)
	// shuffle the input order, split must follow timestamps
	ratings[0], ratings[9] = ratings[9], ratings[0]
	train, val, test := SplitByTime(ratings, 0.1, 0.1)
	assert.Equal(t, 8, len(train))
	assert.Equal(t, 1, len(val))
	assert.Equal(t, 1, len(test))
	assert.True(t, train[len(train)-1].Timestamp.Before(val[0].Timestamp))
	assert.True(t, val[0].Timestamp.Before(test[0].Timestamp))
}

func TestCountByUser(t *testing.T) {
	ratings := []Rating{
		{UserId: "1", MovieId: "101"},
		{UserId: "1", MovieId: "102"},
		{UserId: "2", MovieId: "101"},
	}
	counts := CountByUser(ratings)
	assert.Equal(t, 2, counts["1"])
	assert.Equal(t, 1, counts["2"])
}

func TestRatedBy(t *testing.T) {
	ratings := []Rating{
		{UserId: "1", MovieId: "101"},
		{UserId: "1", MovieId: "102"},
		{UserId: "2", MovieId: "103"},
	}
	rated := RatedBy(ratings, "1")
	assert.True(t, rated.Contains("101"))
	assert.True(t, rated.Contains("102"))
	assert.False(t, rated.Contains("103"))
}

func TestTable(t *testing.T) {
	table := NewTable("user_id", "movie_id", "rating")
	table.Append(map[string]interface{}{"user_id": int64(1), "movie_id": int64(101), "rating": 4.5})
	table.Append(map[string]interface{}{"user_id": int64(2), "movie_id": int64(102)})
	assert.Equal(t, 2, table.Len())
	assert.Nil(t, table.Get("rating", 1))

	dropped := table.DropRows(map[int]bool{1: true})
	assert.Equal(t, 1, dropped.Len())

	copied := table.Copy()
	copied.Set("rating", 0, 5.0)
	assert.Equal(t, 4.5, table.Get("rating", 0))
}

func TestTableToRatings(t *testing.T) {
	table := NewTable("user_id", "movie_id", "rating", "time")
	now := time.Now()
	table.Append(map[string]interface{}{"user_id": int64(1), "movie_id": int64(101), "rating": 4.5, "time": now})
	ratings, err := table.ToRatings()
	assert.NoError(t, err)
	assert.Equal(t, 1, len(ratings))
	assert.Equal(t, "1", ratings[0].UserId)
	assert.Equal(t, "101", ratings[0].MovieId)
	assert.Equal(t, float32(4.5), ratings[0].Rating)
	assert.Equal(t, now, ratings[0].Timestamp)
}

func TestLoadTableFromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.csv")
	content := "user_id,movie_id,rating,time\n1,101,4.5,2024-01-02\n2,102,,2024-01-03\n"
	assert.NoError(t, os.WriteFile(path, []byte(content), 0644))
	table, err := LoadTableFromCSV(path)
	assert.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, int64(1), table.Get("user_id", 0))
	assert.Equal(t, 4.5, table.Get("rating", 0))
	assert.Nil(t, table.Get("rating", 1))
	assert.Equal(t, "2024-01-02", table.Get("time", 0))
}

func TestLoadMoviesFromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.csv")
	content := "movie_id,json_data\n101,\"{\"\"title\"\": \"\"Heat\"\"}\"\n"
	assert.NoError(t, os.WriteFile(path, []byte(content), 0644))
	movies, err := LoadMoviesFromCSV(path)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(movies))
	assert.Equal(t, "101", movies[0].MovieId)
	assert.Equal(t, `{"title": "Heat"}`, movies[0].Payload)
}

func TestUsersMovies(t *testing.T) {
	ratings := []Rating{
		{UserId: "2", MovieId: "101"},
		{UserId: "1", MovieId: "102"},
		{UserId: "2", MovieId: "103"},
	}
	assert.Equal(t, []string{"2", "1"}, Users(ratings))
	assert.Equal(t, []string{"101", "102", "103"}, Movies(ratings))
}
