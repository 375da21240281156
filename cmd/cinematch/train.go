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

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cinematch-io/cinematch/base/log"
	"github.com/cinematch-io/cinematch/config"
	"github.com/cinematch-io/cinematch/dataset"
	"github.com/cinematch-io/cinematch/model"
	"github.com/cinematch-io/cinematch/model/cf"
	"github.com/cinematch-io/cinematch/recommend"
	"github.com/cinematch-io/cinematch/schema"
)

var trainCommand = &cobra.Command{
	Use:   "train",
	Short: "Train the collaborative filtering model from the ratings feed.",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogger(cmd)
		configPath, _ := cmd.Root().PersistentFlags().GetString("config")
		conf, err := config.LoadConfig(configPath)
		if err != nil {
			log.Logger().Fatal("failed to load config",
				zap.String("path", configPath), zap.Error(err))
		}
		if err := train(conf); err != nil {
			log.Logger().Fatal("failed to train model", zap.Error(err))
		}
	},
}

func train(conf *config.Config) error {
	// load and repair the ratings feed
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
	log.Logger().Info("loaded ratings",
		zap.String("path", conf.Data.RatingsPath),
		zap.Int("n_ratings", len(ratings)),
		zap.Int("n_users", len(dataset.Users(ratings))),
		zap.Int("n_movies", len(dataset.Movies(ratings))))

	// hold out the newest ratings for validation and test
	trainSet, valSet, testSet := dataset.SplitByTime(ratings, conf.Model.ValRatio, conf.Model.TestRatio)
	log.Logger().Info("split ratings by time",
		zap.Int("train_set_size", len(trainSet)),
		zap.Int("val_set_size", len(valSet)),
		zap.Int("test_set_size", len(testSet)))

	params := conf.ModelParams()
	if conf.Model.SearchParams {
		searchEstimator := cf.NewSVD(model.Params{model.RandomState: conf.Model.RandomState})
		result, err := cf.GridSearchCV(searchEstimator, trainSet, valSet,
			searchEstimator.GetParamsGrid(), cf.NewFitConfig())
		if err != nil {
			return err
		}
		params = params.Overwrite(result.BestParams)
	}

	// train the final model
	estimator := cf.NewSVD(params)
	bar := progressbar.Default(int64(params.GetInt(model.NEpochs, 20)), "fit svd")
	fitConfig := cf.NewFitConfig()
	fitConfig.OnEpoch = func(epoch int, rmse float32) {
		_ = bar.Add(1)
	}
	if err := estimator.Fit(trainSet, fitConfig); err != nil {
		return err
	}

	// report test metrics
	score := cf.Evaluate(estimator, testSet)
	log.Logger().Info("test set metrics",
		zap.Float32("rmse", score.RMSE),
		zap.Float32("mae", score.MAE),
		zap.Float32("coverage", score.Coverage))
	for name, segment := range cf.EvaluateSegments(estimator, testSet, trainSet) {
		fields := []zap.Field{
			zap.String("segment", name),
			zap.Int("count", segment.Count),
			zap.Float32("coverage", segment.Coverage),
		}
		if segment.RMSE != nil {
			fields = append(fields, zap.Float32("rmse", *segment.RMSE), zap.Float32("mae", *segment.MAE))
		}
		log.Logger().Info("segment metrics", fields...)
	}

	// sample recommendations as a smoke check
	if len(trainSet) > 0 && conf.Data.MoviesPath != "" {
		movies, err := dataset.LoadMoviesFromCSV(conf.Data.MoviesPath)
		if err != nil {
			log.Logger().Warn("failed to load movie catalog", zap.Error(err))
		} else {
			catalog := dataset.NewCatalog(movies)
			sampleUser := trainSet[0].UserId
			recommendations := recommend.RecommendMovies(estimator, catalog, ratings,
				sampleUser, conf.Recommend.DefaultCount)
			titles := make([]string, 0, len(recommendations))
			for _, rec := range recommendations {
				titles = append(titles, rec.Title)
			}
			log.Logger().Info("sample recommendations",
				zap.String("user_id", sampleUser),
				zap.Strings("titles", titles))
		}
	}

	// persist the model snapshot
	f, err := os.Create(conf.Model.SnapshotPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := estimator.Marshal(f); err != nil {
		return err
	}
	log.Logger().Info("saved model snapshot",
		zap.String("path", conf.Model.SnapshotPath))
	return nil
}
