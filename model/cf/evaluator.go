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

package cf

import (
	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/cinematch-io/cinematch/base/log"
	"github.com/cinematch-io/cinematch/dataset"
)

// Segment names for activity based evaluation. A user's segment is decided by
// how many ratings the user has in the training set.
const (
	SegmentLowActivity    = "low_activity"    // fewer than 5 ratings
	SegmentMediumActivity = "medium_activity" // 5 to 19 ratings
	SegmentHighActivity   = "high_activity"   // 20 or more ratings
)

// Score is the result of evaluating a model on a test set. RMSE and MAE are
// computed over predictable rows only, while Coverage is the fraction of rows
// the model could predict at all.
type Score struct {
	RMSE     float32
	MAE      float32
	Coverage float32
	Count    int
}

// SegmentScore is a Score restricted to one user activity segment. RMSE and
// MAE are nil when no row in the segment was predictable.
type SegmentScore struct {
	RMSE     *float32
	MAE      *float32
	Coverage float32
	Count    int
}

// Evaluate computes RMSE, MAE and coverage of the model on a test set. Rows
// with a user or movie unseen during training are excluded from the error
// metrics and counted against coverage instead.
func Evaluate(estimator *SVD, testSet []dataset.Rating) Score {
	if len(testSet) == 0 {
		log.Logger().Warn("evaluate on empty test set")
		return Score{}
	}
	var sumSquares, sumAbs float32
	var predicted int
	for _, rating := range testSet {
		pred, ok := estimator.Predict(rating.UserId, rating.MovieId)
		if !ok {
			continue
		}
		diff := pred - rating.Rating
		sumSquares += diff * diff
		sumAbs += math32.Abs(diff)
		predicted++
	}
	score := Score{
		Coverage: float32(predicted) / float32(len(testSet)),
		Count:    len(testSet),
	}
	if predicted > 0 {
		score.RMSE = math32.Sqrt(sumSquares / float32(predicted))
		score.MAE = sumAbs / float32(predicted)
	}
	return score
}

// EvaluateSegments evaluates the model separately for low, medium and high
// activity users. Activity is measured on trainSet, so a user absent from the
// training set lands in the low activity segment.
func EvaluateSegments(estimator *SVD, testSet, trainSet []dataset.Rating) map[string]SegmentScore {
	counts := dataset.CountByUser(trainSet)
	segments := map[string][]dataset.Rating{
		SegmentLowActivity:    {},
		SegmentMediumActivity: {},
		SegmentHighActivity:   {},
	}
	for _, rating := range testSet {
		segments[segmentOf(counts[rating.UserId])] = append(segments[segmentOf(counts[rating.UserId])], rating)
	}
	results := make(map[string]SegmentScore)
	for name, rows := range segments {
		if len(rows) == 0 {
			results[name] = SegmentScore{}
			continue
		}
		score := Evaluate(estimator, rows)
		segmentScore := SegmentScore{Coverage: score.Coverage, Count: score.Count}
		if score.Coverage > 0 {
			rmse, mae := score.RMSE, score.MAE
			segmentScore.RMSE = &rmse
			segmentScore.MAE = &mae
		}
		results[name] = segmentScore
		log.Logger().Debug("evaluate segment",
			zap.String("segment", name),
			zap.Int("count", segmentScore.Count),
			zap.Float32("coverage", segmentScore.Coverage))
	}
	return results
}

func segmentOf(nRatings int) string {
	switch {
	case nRatings < 5:
		return SegmentLowActivity
	case nRatings < 20:
		return SegmentMediumActivity
	default:
		return SegmentHighActivity
	}
}
