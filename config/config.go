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

package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/spf13/viper"

	"github.com/cinematch-io/cinematch/model"
)

// Config is the configuration for the recommender.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Data      DataConfig      `mapstructure:"data"`
	Model     ModelConfig     `mapstructure:"model"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Server    ServerConfig    `mapstructure:"server"`
	Drift     DriftConfig     `mapstructure:"drift"`
}

// DatabaseConfig points at the feedback store.
type DatabaseConfig struct {
	// database for collected ratings and telemetry (sqlite:// or postgres://)
	Path string `mapstructure:"path" validate:"required"`
}

// DataConfig points at the offline training feeds.
type DataConfig struct {
	RatingsPath string `mapstructure:"ratings_path" validate:"required"`
	MoviesPath  string `mapstructure:"movies_path"`
}

// ModelConfig drives training.
type ModelConfig struct {
	NFactors     int     `mapstructure:"n_factors" validate:"gt=0"`
	NEpochs      int     `mapstructure:"n_epochs" validate:"gt=0"`
	Lr           float64 `mapstructure:"lr" validate:"gt=0"`
	Reg          float64 `mapstructure:"reg" validate:"gte=0"`
	RandomState  int64   `mapstructure:"random_state"`
	SearchParams bool    `mapstructure:"search_params"`
	ValRatio     float64 `mapstructure:"val_ratio" validate:"gte=0,lt=1"`
	TestRatio    float64 `mapstructure:"test_ratio" validate:"gte=0,lt=1"`
	SnapshotPath string  `mapstructure:"snapshot_path" validate:"required"`
}

// RecommendConfig drives recommendation serving.
type RecommendConfig struct {
	DefaultCount int `mapstructure:"default_count" validate:"gt=0"`
	MaxCount     int `mapstructure:"max_count" validate:"gt=0"`
}

// ServerConfig drives the REST server.
type ServerConfig struct {
	HTTPHost    string        `mapstructure:"http_host"`
	HTTPPort    int           `mapstructure:"http_port" validate:"gte=0,lte=65535"`
	CacheExpire time.Duration `mapstructure:"cache_expire" validate:"gt=0"`
	CacheSize   int           `mapstructure:"cache_size" validate:"gt=0"`
}

// DriftConfig drives drift detection.
type DriftConfig struct {
	PValueThreshold  float64 `mapstructure:"p_value_threshold" validate:"gt=0,lt=1"`
	QualityThreshold float64 `mapstructure:"quality_threshold" validate:"gt=0"`
}

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "sqlite://cinematch.db",
		},
		Data: DataConfig{
			RatingsPath: "data/ratings.csv",
			MoviesPath:  "data/movies.csv",
		},
		Model: ModelConfig{
			NFactors:     50,
			NEpochs:      20,
			Lr:           0.01,
			Reg:          0.01,
			RandomState:  42,
			ValRatio:     0.1,
			TestRatio:    0.1,
			SnapshotPath: "cinematch.model",
		},
		Recommend: RecommendConfig{
			DefaultCount: 10,
			MaxCount:     100,
		},
		Server: ServerConfig{
			HTTPHost:    "0.0.0.0",
			HTTPPort:    8088,
			CacheExpire: 10 * time.Minute,
			CacheSize:   10000,
		},
		Drift: DriftConfig{
			PValueThreshold:  0.05,
			QualityThreshold: 0.1,
		},
	}
}

// ModelParams converts the configured hyper-parameters.
func (config *Config) ModelParams() model.Params {
	return model.Params{
		model.NFactors:    config.Model.NFactors,
		model.NEpochs:     config.Model.NEpochs,
		model.Lr:          config.Model.Lr,
		model.Reg:         config.Model.Reg,
		model.RandomState: config.Model.RandomState,
	}
}

// Validate checks the configuration against struct tags.
func (config *Config) Validate() error {
	return errors.Trace(validator.New().Struct(config))
}

func setDefault(defaults *Config) {
	viper.SetDefault("database.path", defaults.Database.Path)
	viper.SetDefault("data.ratings_path", defaults.Data.RatingsPath)
	viper.SetDefault("data.movies_path", defaults.Data.MoviesPath)
	viper.SetDefault("model.n_factors", defaults.Model.NFactors)
	viper.SetDefault("model.n_epochs", defaults.Model.NEpochs)
	viper.SetDefault("model.lr", defaults.Model.Lr)
	viper.SetDefault("model.reg", defaults.Model.Reg)
	viper.SetDefault("model.random_state", defaults.Model.RandomState)
	viper.SetDefault("model.search_params", defaults.Model.SearchParams)
	viper.SetDefault("model.val_ratio", defaults.Model.ValRatio)
	viper.SetDefault("model.test_ratio", defaults.Model.TestRatio)
	viper.SetDefault("model.snapshot_path", defaults.Model.SnapshotPath)
	viper.SetDefault("recommend.default_count", defaults.Recommend.DefaultCount)
	viper.SetDefault("recommend.max_count", defaults.Recommend.MaxCount)
	viper.SetDefault("server.http_host", defaults.Server.HTTPHost)
	viper.SetDefault("server.http_port", defaults.Server.HTTPPort)
	viper.SetDefault("server.cache_expire", defaults.Server.CacheExpire)
	viper.SetDefault("server.cache_size", defaults.Server.CacheSize)
	viper.SetDefault("drift.p_value_threshold", defaults.Drift.PValueThreshold)
	viper.SetDefault("drift.quality_threshold", defaults.Drift.QualityThreshold)
}

// LoadConfig loads and validates the configuration from a TOML file.
// Environment variables prefixed with CINEMATCH_ override file values.
func LoadConfig(path string) (*Config, error) {
	setDefault(GetDefaultConfig())
	viper.SetConfigType("toml")
	viper.SetConfigFile(path)
	viper.SetEnvPrefix("cinematch")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Trace(err)
	}
	conf := new(Config)
	if err := viper.Unmarshal(conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return conf, nil
}
