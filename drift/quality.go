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

package drift

import (
	"math"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/cinematch-io/cinematch/base/log"
)

// QualityReport compares live prediction quality against the RMSE recorded
// at training time. CurrentRMSE is nil when no predictions were supplied.
type QualityReport struct {
	Degraded         bool
	CurrentRMSE      *float64
	BaselineRMSE     float64
	RelativeIncrease float64
}

// MonitorPredictionQuality computes the RMSE of predictions against actuals
// and flags degradation when the relative increase over baselineRMSE exceeds
// threshold.
func MonitorPredictionQuality(predictions, actuals []float64, baselineRMSE, threshold float64) (QualityReport, error) {
	if len(predictions) != len(actuals) {
		return QualityReport{}, errors.NotValidf("predictions and actuals length mismatch: %d != %d",
			len(predictions), len(actuals))
	}
	report := QualityReport{BaselineRMSE: baselineRMSE}
	if len(predictions) == 0 {
		return report, nil
	}
	var sumSquares float64
	for i := range predictions {
		diff := predictions[i] - actuals[i]
		sumSquares += diff * diff
	}
	currentRMSE := math.Sqrt(sumSquares / float64(len(predictions)))
	report.CurrentRMSE = &currentRMSE
	report.RelativeIncrease = (currentRMSE - baselineRMSE) / baselineRMSE
	report.Degraded = report.RelativeIncrease > threshold
	if report.Degraded {
		log.Logger().Warn("model performance degraded",
			zap.Float64("current_rmse", currentRMSE),
			zap.Float64("baseline_rmse", baselineRMSE),
			zap.Float64("relative_increase", report.RelativeIncrease))
	}
	return report, nil
}
