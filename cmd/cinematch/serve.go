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

package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cinematch-io/cinematch/base/log"
	"github.com/cinematch-io/cinematch/config"
	"github.com/cinematch-io/cinematch/dataset"
	"github.com/cinematch-io/cinematch/model/cf"
	"github.com/cinematch-io/cinematch/schema"
	"github.com/cinematch-io/cinematch/server"
	"github.com/cinematch-io/cinematch/storage/data"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over the REST API.",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogger(cmd)
		configPath, _ := cmd.Root().PersistentFlags().GetString("config")
		conf, err := config.LoadConfig(configPath)
		if err != nil {
			log.Logger().Fatal("failed to load config",
				zap.String("path", configPath), zap.Error(err))
		}
		if err := serve(conf); err != nil {
			log.Logger().Fatal("failed to serve", zap.Error(err))
		}
	},
}

func serve(conf *config.Config) error {
	// load the model snapshot
	estimator := new(cf.SVD)
	f, err := os.Open(conf.Model.SnapshotPath)
	if err != nil {
		return err
	}
	if err := estimator.Unmarshal(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	// the training ratings drive rated-movie exclusion and cold-start fallback
	table, err := dataset.LoadTableFromCSV(conf.Data.RatingsPath)
	if err != nil {
		return err
	}
	fixed, valid, errs := schema.ValidateAndRepairRatings(table)
	if !valid {
		log.Logger().Fatal("ratings feed is invalid after repair",
			zap.Strings("errors", errs))
	}
	ratings, err := fixed.ToRatings()
	if err != nil {
		return err
	}

	var catalog *dataset.Catalog
	if conf.Data.MoviesPath != "" {
		movies, err := dataset.LoadMoviesFromCSV(conf.Data.MoviesPath)
		if err != nil {
			return err
		}
		catalog = dataset.NewCatalog(movies)
	}

	// open the feedback store
	database, err := data.Open(conf.Database.Path)
	if err != nil {
		return err
	}
	if err := database.Init(); err != nil {
		return err
	}
	log.Logger().Info("connected to database",
		zap.String("path", log.RedactDBURL(conf.Database.Path)))

	s := server.NewRestServer(conf, database, catalog)
	s.SetSnapshot(&server.Snapshot{Estimator: estimator, Ratings: ratings})
	s.StartHttpServer()
	return nil
}
