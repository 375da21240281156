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

// Package data persists ratings and telemetry collected by the serving API.
package data

import (
	"context"
	"strings"
	"time"

	"github.com/juju/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	PostgresPrefix   = "postgres://"
	PostgreSQLPrefix = "postgresql://"
	SQLitePrefix     = "sqlite://"
)

// SubmittedRating is one rating collected from the serving API. Watched is
// false when the user dismissed the movie without finishing it.
type SubmittedRating struct {
	ID        uint   `gorm:"primaryKey"`
	UserId    string `gorm:"index"`
	MovieName string
	Rating    float64
	Watched   bool
	Timestamp time.Time `gorm:"index"`
}

// TelemetryEvent is one frontend event. Data carries the raw event payload
// as JSON.
type TelemetryEvent struct {
	ID        uint      `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"index"`
	Event     string    `gorm:"index"`
	UserId    string
	Data      string
}

// Database is the storage interface for collected feedback.
type Database interface {
	Init() error
	Ping() error
	Close() error
	Purge() error
	InsertRating(ctx context.Context, rating SubmittedRating) error
	GetRatings(ctx context.Context, beginTime *time.Time) ([]SubmittedRating, error)
	InsertTelemetry(ctx context.Context, event TelemetryEvent) error
	GetTelemetry(ctx context.Context, beginTime *time.Time) ([]TelemetryEvent, error)
	CountEvents(ctx context.Context, beginTime *time.Time) (map[string]int, error)
	CountUniqueUsers(ctx context.Context, beginTime *time.Time) (int, error)
}

// Open a connection to a database. The scheme of the path picks the driver.
func Open(path string) (Database, error) {
	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	switch {
	case strings.HasPrefix(path, PostgresPrefix) || strings.HasPrefix(path, PostgreSQLPrefix):
		database := new(SQLDatabase)
		gormDB, err := gorm.Open(postgres.Open(path), gormConfig)
		if err != nil {
			return nil, errors.Trace(err)
		}
		database.gormDB = gormDB
		return database, nil
	case strings.HasPrefix(path, SQLitePrefix):
		database := new(SQLDatabase)
		name := path[len(SQLitePrefix):]
		gormDB, err := gorm.Open(sqlite.Open(name), gormConfig)
		if err != nil {
			return nil, errors.Trace(err)
		}
		database.gormDB = gormDB
		return database, nil
	}
	return nil, errors.Errorf("unknown database: %s", path)
}
