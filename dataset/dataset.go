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
	"encoding/csv"
	"os"
	"sort"
	"strconv"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Rating is one (user, movie, rating, timestamp) record. The rating value is
// expected to lie in [1, 5] once the record has passed schema validation.
type Rating struct {
	UserId    string
	MovieId   string
	Rating    float32
	Timestamp time.Time
}

// Movie is one catalog row. The payload is an opaque JSON document carrying at
// least a title field.
type Movie struct {
	MovieId string
	Payload string
}

// Catalog indexes catalog rows by movie id. Read-only once built.
type Catalog struct {
	movies map[string]string
}

func NewCatalog(movies []Movie) *Catalog {
	c := &Catalog{movies: make(map[string]string, len(movies))}
	for _, movie := range movies {
		c.movies[movie.MovieId] = movie.Payload
	}
	return c
}

func (c *Catalog) Len() int {
	return len(c.movies)
}

// Payload returns the descriptive payload of a movie.
func (c *Catalog) Payload(movieId string) (string, bool) {
	payload, ok := c.movies[movieId]
	return payload, ok
}

// SplitByTime sorts ratings by timestamp and cuts them into train, validation
// and test sets. Ratios refer to the validation and test shares.
func SplitByTime(ratings []Rating, valRatio, testRatio float64) (train, val, test []Rating) {
	sorted := make([]Rating, len(ratings))
	copy(sorted, ratings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	testSize := int(float64(len(sorted)) * testRatio)
	valSize := int(float64(len(sorted)) * valRatio)
	trainSize := len(sorted) - valSize - testSize
	return sorted[:trainSize], sorted[trainSize : trainSize+valSize], sorted[trainSize+valSize:]
}

// CountByUser returns the number of ratings per user.
func CountByUser(ratings []Rating) map[string]int {
	counts := make(map[string]int)
	for _, r := range ratings {
		counts[r.UserId]++
	}
	return counts
}

// CountByMovie returns the number of ratings per movie.
func CountByMovie(ratings []Rating) map[string]int {
	counts := make(map[string]int)
	for _, r := range ratings {
		counts[r.MovieId]++
	}
	return counts
}

// RatedBy returns the set of movies a user has rated.
func RatedBy(ratings []Rating, userId string) mapset.Set[string] {
	rated := mapset.NewSet[string]()
	for _, r := range ratings {
		if r.UserId == userId {
			rated.Add(r.MovieId)
		}
	}
	return rated
}

// LoadTableFromCSV reads a CSV file with a header row into a loose table.
// Numeric cells are parsed eagerly, everything else stays a string. Empty
// cells become missing values.
func LoadTableFromCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(records) == 0 {
		return nil, errors.NotValidf("csv file %q without header", path)
	}
	header := records[0]
	table := NewTable(header...)
	for _, record := range records[1:] {
		row := make(map[string]interface{}, len(header))
		for i, name := range header {
			if i >= len(record) {
				break
			}
			row[name] = parseCell(record[i])
		}
		table.Append(row)
	}
	return table, nil
}

// LoadMoviesFromCSV reads a movie catalog with movie_id and json_data columns.
func LoadMoviesFromCSV(path string) ([]Movie, error) {
	table, err := LoadTableFromCSV(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if !table.HasColumn("movie_id") {
		return nil, errors.NotValidf("movie catalog %q without movie_id column", path)
	}
	movies := make([]Movie, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		movieId, err := cellString(table.Get("movie_id", i))
		if err != nil {
			return nil, errors.Annotatef(err, "row %d movie_id", i)
		}
		var payload string
		if table.HasColumn("json_data") {
			payload, _ = table.Get("json_data", i).(string)
		}
		movies = append(movies, Movie{MovieId: movieId, Payload: payload})
	}
	return movies, nil
}

// Users returns distinct user ids in order of first appearance.
func Users(ratings []Rating) []string {
	return lo.Uniq(lo.Map(ratings, func(r Rating, _ int) string { return r.UserId }))
}

// Movies returns distinct movie ids in order of first appearance.
func Movies(ratings []Rating) []string {
	return lo.Uniq(lo.Map(ratings, func(r Rating, _ int) string { return r.MovieId }))
}

func parseCell(s string) interface{} {
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}
