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
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/cinematch-io/cinematch/base/log"
	"github.com/cinematch-io/cinematch/dataset"
	"github.com/cinematch-io/cinematch/model"
)

// searchOrder fixes the iteration order of the grid so a search over the same
// grid always visits combinations in the same sequence.
var searchOrder = []model.ParamName{model.NFactors, model.NEpochs, model.Lr, model.Reg}

// ParamsSearchResult contains the result of hyper-parameter search.
type ParamsSearchResult struct {
	BestScore  Score
	BestParams model.Params
	BestIndex  int
	Scores     []Score
	Params     []model.Params
}

// AddScore compares a candidate against the current best. Ties keep the
// earlier candidate, so the first combination reaching the minimum wins.
func (r *ParamsSearchResult) AddScore(params model.Params, score Score) {
	r.Scores = append(r.Scores, score)
	r.Params = append(r.Params, params.Copy())
	if len(r.Scores) == 1 || score.RMSE < r.BestScore.RMSE {
		r.BestScore = score
		r.BestParams = params.Copy()
		r.BestIndex = len(r.Params) - 1
	}
}

// GridSearchCV exhaustively searches the Cartesian product of paramGrid. Each
// combination is trained on trainSet and scored on valSet by RMSE. Parameters
// missing from the grid are filled with the estimator's defaults.
func GridSearchCV(estimator *SVD, trainSet, valSet []dataset.Rating,
	paramGrid model.ParamsGrid, fitConfig *FitConfig) (ParamsSearchResult, error) {
	paramGrid.Fill(estimator.GetParamsGrid())
	log.Logger().Info("grid search",
		zap.Int("n_combinations", paramGrid.NumCombinations()),
		zap.Int("train_set_size", len(trainSet)),
		zap.Int("val_set_size", len(valSet)))
	results := ParamsSearchResult{
		Scores: make([]Score, 0, paramGrid.NumCombinations()),
		Params: make([]model.Params, 0, paramGrid.NumCombinations()),
	}
	var dfs func(deep int, params model.Params) error
	dfs = func(deep int, params model.Params) error {
		if deep == len(searchOrder) {
			estimator.Clear()
			estimator.SetParams(estimator.GetParams().Overwrite(params))
			if err := estimator.Fit(trainSet, fitConfig); err != nil {
				return errors.Trace(err)
			}
			score := Evaluate(estimator, valSet)
			log.Logger().Info("grid search candidate",
				zap.String("params", params.ToString()),
				zap.Float32("val_rmse", score.RMSE))
			results.AddScore(params, score)
			return nil
		}
		name := searchOrder[deep]
		values, exist := paramGrid[name]
		if !exist {
			return dfs(deep+1, params)
		}
		for _, value := range values {
			params[name] = value
			if err := dfs(deep+1, params); err != nil {
				return errors.Trace(err)
			}
		}
		delete(params, name)
		return nil
	}
	if err := dfs(0, make(model.Params)); err != nil {
		return ParamsSearchResult{}, errors.Trace(err)
	}
	log.Logger().Info("grid search complete",
		zap.String("best_params", results.BestParams.ToString()),
		zap.Float32("best_rmse", results.BestScore.RMSE))
	return results, nil
}
