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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cinematch-io/cinematch/base/log"
	"github.com/cinematch-io/cinematch/dataset"
	"github.com/cinematch-io/cinematch/drift"
	"github.com/cinematch-io/cinematch/schema"
)

var driftCommand = &cobra.Command{
	Use:   "drift",
	Short: "Compare a current ratings window against a reference window.",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogger(cmd)
		referencePath, _ := cmd.Flags().GetString("reference")
		currentPath, _ := cmd.Flags().GetString("current")
		reference, err := loadRatingsWindow(referencePath)
		if err != nil {
			log.Logger().Fatal("failed to load reference window",
				zap.String("path", referencePath), zap.Error(err))
		}
		current, err := loadRatingsWindow(currentPath)
		if err != nil {
			log.Logger().Fatal("failed to load current window",
				zap.String("path", currentPath), zap.Error(err))
		}
		report := drift.Detect(reference, current)
		encoded, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.Logger().Fatal("failed to marshal report", zap.Error(err))
		}
		fmt.Println(string(encoded))
		if report.Detected {
			os.Exit(1)
		}
	},
}

func init() {
	driftCommand.Flags().String("reference", "", "reference ratings CSV (e.g. the training feed)")
	driftCommand.Flags().String("current", "", "current ratings CSV to compare")
	_ = driftCommand.MarkFlagRequired("reference")
	_ = driftCommand.MarkFlagRequired("current")
}

func loadRatingsWindow(path string) ([]dataset.Rating, error) {
	table, err := dataset.LoadTableFromCSV(path)
	if err != nil {
		return nil, err
	}
	fixed, valid, errs := schema.ValidateAndRepairRatings(table)
	if !valid {
		log.Logger().Warn("ratings window is invalid after repair",
			zap.String("path", path),
			zap.Strings("errors", errs))
	}
	return fixed.ToRatings()
}
