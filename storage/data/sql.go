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

package data

import (
	"context"
	"time"

	"github.com/juju/errors"
	"gorm.io/gorm"
)

// SQLDatabase stores ratings and telemetry in a relational database.
type SQLDatabase struct {
	gormDB *gorm.DB
}

// Init creates tables if they do not exist.
func (db *SQLDatabase) Init() error {
	return errors.Trace(db.gormDB.AutoMigrate(&SubmittedRating{}, &TelemetryEvent{}))
}

func (db *SQLDatabase) Ping() error {
	connection, err := db.gormDB.DB()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(connection.Ping())
}

func (db *SQLDatabase) Close() error {
	connection, err := db.gormDB.DB()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(connection.Close())
}

// Purge deletes all rows. Used by tests and by explicit resets only.
func (db *SQLDatabase) Purge() error {
	if err := db.gormDB.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&SubmittedRating{}).Error; err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(db.gormDB.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&TelemetryEvent{}).Error)
}

func (db *SQLDatabase) InsertRating(ctx context.Context, rating SubmittedRating) error {
	return errors.Trace(db.gormDB.WithContext(ctx).Create(&rating).Error)
}

// GetRatings returns ratings submitted at or after beginTime, newest first.
// A nil beginTime returns everything.
func (db *SQLDatabase) GetRatings(ctx context.Context, beginTime *time.Time) ([]SubmittedRating, error) {
	tx := db.gormDB.WithContext(ctx).Model(&SubmittedRating{})
	if beginTime != nil {
		tx = tx.Where("timestamp >= ?", *beginTime)
	}
	var ratings []SubmittedRating
	if err := tx.Order("timestamp DESC").Find(&ratings).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return ratings, nil
}

func (db *SQLDatabase) InsertTelemetry(ctx context.Context, event TelemetryEvent) error {
	return errors.Trace(db.gormDB.WithContext(ctx).Create(&event).Error)
}

// GetTelemetry returns telemetry events at or after beginTime, newest first.
func (db *SQLDatabase) GetTelemetry(ctx context.Context, beginTime *time.Time) ([]TelemetryEvent, error) {
	tx := db.gormDB.WithContext(ctx).Model(&TelemetryEvent{})
	if beginTime != nil {
		tx = tx.Where("timestamp >= ?", *beginTime)
	}
	var events []TelemetryEvent
	if err := tx.Order("timestamp DESC").Find(&events).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return events, nil
}

// CountEvents returns the number of telemetry events per event type.
func (db *SQLDatabase) CountEvents(ctx context.Context, beginTime *time.Time) (map[string]int, error) {
	tx := db.gormDB.WithContext(ctx).Model(&TelemetryEvent{})
	if beginTime != nil {
		tx = tx.Where("timestamp >= ?", *beginTime)
	}
	var rows []struct {
		Event string
		Count int
	}
	if err := tx.Select("event, count(*) as count").Group("event").Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Event] = row.Count
	}
	return counts, nil
}

// CountUniqueUsers returns the number of distinct users with telemetry.
func (db *SQLDatabase) CountUniqueUsers(ctx context.Context, beginTime *time.Time) (int, error) {
	tx := db.gormDB.WithContext(ctx).Model(&TelemetryEvent{})
	if beginTime != nil {
		tx = tx.Where("timestamp >= ?", *beginTime)
	}
	var count int64
	if err := tx.Distinct("user_id").Count(&count).Error; err != nil {
		return 0, errors.Trace(err)
	}
	return int(count), nil
}
