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
	"encoding/binary"
	"fmt"
	"io"

	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/cinematch-io/cinematch/base"
	"github.com/cinematch-io/cinematch/base/encoding"
	"github.com/cinematch-io/cinematch/base/log"
	"github.com/cinematch-io/cinematch/common/floats"
	"github.com/cinematch-io/cinematch/dataset"
	"github.com/cinematch-io/cinematch/model"
)

// Rating values are clamped into [MinRating, MaxRating] at prediction time.
const (
	MinRating float32 = 1.0
	MaxRating float32 = 5.0
)

type FitConfig struct {
	Verbose int
	// OnEpoch is called after every epoch with the training RMSE. Informational only.
	OnEpoch func(epoch int, rmse float32)
}

func NewFitConfig() *FitConfig {
	return &FitConfig{Verbose: 5}
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

// SVD implements biased matrix factorization, as popularized by Simon Funk
// during the Netflix Prize. The prediction \hat{r}_{um} is set as:
//
//	\hat{r}_{um} = μ + b_u + b_m + q_m^T p_u
//
// and clamped into the valid rating range. A model is immutable after Fit;
// retraining builds fresh factors instead of mutating a served model.
//
// Hyper-parameters:
//
//	Lr         - The learning rate of SGD. Default is 0.01.
//	Reg        - The regularization parameter of the cost function that is
//	             optimized. Default is 0.01.
//	NFactors   - The number of latent factors. Default is 50.
//	NEpochs    - The number of iterations of the SGD procedure. Default is 20.
//	InitMean   - The mean of initial random latent factors. Default is 0.
//	InitStdDev - The standard deviation of initial random latent factors. Default is 0.1.
type SVD struct {
	model.BaseModel
	// Model parameters
	UserFactor [][]float32 // p_u
	ItemFactor [][]float32 // q_m
	UserBias   []float32   // b_u
	ItemBias   []float32   // b_m
	GlobalMean float32     // mu
	UserIndex  *dataset.Dict
	ItemIndex  *dataset.Dict
	// Hyper parameters
	nFactors   int
	nEpochs    int
	lr         float32
	reg        float32
	initMean   float32
	initStdDev float32
}

// NewSVD creates a SVD model.
func NewSVD(params model.Params) *SVD {
	svd := new(SVD)
	svd.SetParams(params)
	return svd
}

// SetParams sets hyper-parameters of the SVD model.
func (svd *SVD) SetParams(params model.Params) {
	svd.BaseModel.SetParams(params)
	svd.nFactors = svd.Params.GetInt(model.NFactors, 50)
	svd.nEpochs = svd.Params.GetInt(model.NEpochs, 20)
	svd.lr = svd.Params.GetFloat32(model.Lr, 0.01)
	svd.reg = svd.Params.GetFloat32(model.Reg, 0.01)
	svd.initMean = svd.Params.GetFloat32(model.InitMean, 0)
	svd.initStdDev = svd.Params.GetFloat32(model.InitStdDev, 0.1)
}

func (svd *SVD) GetParamsGrid() model.ParamsGrid {
	return model.ParamsGrid{
		model.NFactors: {20, 50, 100},
		model.NEpochs:  {15, 20},
		model.Lr:       {0.01, 0.005},
		model.Reg:      {0.01, 0.1},
	}
}

// Clear drops model weights so the estimator can be fitted from scratch.
func (svd *SVD) Clear() {
	svd.UserIndex = nil
	svd.ItemIndex = nil
	svd.UserFactor = nil
	svd.ItemFactor = nil
	svd.UserBias = nil
	svd.ItemBias = nil
	svd.GlobalMean = 0
}

// Invalid reports whether the model has not been fitted.
func (svd *SVD) Invalid() bool {
	return svd == nil || svd.UserIndex == nil || svd.ItemIndex == nil ||
		svd.UserFactor == nil || svd.ItemFactor == nil
}

// Fit trains the model on trainSet with sequential stochastic gradient
// descent. Examples are shuffled into a fresh permutation every epoch and
// updates are applied in place, so each example sees the state left by the
// previous one.
func (svd *SVD) Fit(trainSet []dataset.Rating, config *FitConfig) error {
	if len(trainSet) == 0 {
		return errors.NotValidf("empty training set")
	}
	if svd.nFactors < 1 {
		return errors.NotValidf("NFactors = %d", svd.nFactors)
	}
	if svd.nEpochs < 1 {
		return errors.NotValidf("NEpochs = %d", svd.nEpochs)
	}
	if svd.lr <= 0 {
		return errors.NotValidf("Lr = %v", svd.lr)
	}
	if svd.reg < 0 {
		return errors.NotValidf("Reg = %v", svd.reg)
	}
	if config == nil {
		config = NewFitConfig()
	}
	log.Logger().Info("fit svd",
		zap.Int("train_set_size", len(trainSet)),
		zap.Any("params", svd.GetParams()))
	// Assign dense indices in order of first appearance.
	svd.UserIndex = dataset.NewDict()
	svd.ItemIndex = dataset.NewDict()
	users := make([]int32, len(trainSet))
	items := make([]int32, len(trainSet))
	for i, rating := range trainSet {
		users[i] = svd.UserIndex.Add(rating.UserId)
		items[i] = svd.ItemIndex.Add(rating.MovieId)
	}
	// Initialize parameters.
	rng := svd.GetRandomGenerator()
	svd.UserFactor = rng.NormalMatrix(int(svd.UserIndex.Count()), svd.nFactors, svd.initMean, svd.initStdDev)
	svd.ItemFactor = rng.NormalMatrix(int(svd.ItemIndex.Count()), svd.nFactors, svd.initMean, svd.initStdDev)
	svd.UserBias = make([]float32, svd.UserIndex.Count())
	svd.ItemBias = make([]float32, svd.ItemIndex.Count())
	var sum float32
	for _, rating := range trainSet {
		sum += rating.Rating
	}
	svd.GlobalMean = sum / float32(len(trainSet))
	// Create buffers.
	userBuf := make([]float32, svd.nFactors)
	itemBuf := make([]float32, svd.nFactors)
	grad := make([]float32, svd.nFactors)
	// Stochastic gradient descent.
	for epoch := 1; epoch <= svd.nEpochs; epoch++ {
		var cost float32
		perm := rng.Perm(len(trainSet))
		for _, i := range perm {
			u, m, r := users[i], items[i], trainSet[i].Rating
			// Compute error: e_{um} = r - \hat{r}
			pred := svd.internalPredict(u, m)
			diff := r - pred
			cost += diff * diff
			// Update biases: b <- b + \gamma (e_{um} - \lambda b)
			svd.UserBias[u] += svd.lr * (diff - svd.reg*svd.UserBias[u])
			svd.ItemBias[m] += svd.lr * (diff - svd.reg*svd.ItemBias[m])
			// Both factor updates read the pre-update opposite vector.
			copy(userBuf, svd.UserFactor[u])
			copy(itemBuf, svd.ItemFactor[m])
			// Update user latent factor: p_u <- p_u + \gamma (e_{um} q_m - \lambda p_u)
			floats.MulConstTo(itemBuf, diff, grad)
			floats.MulConstAdd(userBuf, -svd.reg, grad)
			floats.MulConstAdd(grad, svd.lr, svd.UserFactor[u])
			// Update item latent factor: q_m <- q_m + \gamma (e_{um} p_u - \lambda q_m)
			floats.MulConstTo(userBuf, diff, grad)
			floats.MulConstAdd(itemBuf, -svd.reg, grad)
			floats.MulConstAdd(grad, svd.lr, svd.ItemFactor[m])
		}
		rmse := math32.Sqrt(cost / float32(len(trainSet)))
		if config.OnEpoch != nil {
			config.OnEpoch(epoch, rmse)
		}
		if epoch%config.Verbose == 0 || epoch == svd.nEpochs {
			log.Logger().Debug(fmt.Sprintf("fit svd %v/%v", epoch, svd.nEpochs),
				zap.Float32("train_rmse", rmse))
		}
	}
	log.Logger().Info("fit svd complete",
		zap.Int32("n_users", svd.UserIndex.Count()),
		zap.Int32("n_items", svd.ItemIndex.Count()),
		zap.Float32("global_mean", svd.GlobalMean))
	return nil
}

// Predict returns the estimated rating given by a user to a movie, clamped
// into [MinRating, MaxRating]. The second return value is false when either
// id is unknown to the model.
func (svd *SVD) Predict(userId, movieId string) (float32, bool) {
	userIndex := svd.UserIndex.Id(userId)
	itemIndex := svd.ItemIndex.Id(movieId)
	if userIndex < 0 || itemIndex < 0 {
		return 0, false
	}
	pred := svd.internalPredict(userIndex, itemIndex)
	if pred < MinRating {
		pred = MinRating
	} else if pred > MaxRating {
		pred = MaxRating
	}
	return pred, true
}

// internalPredict computes the raw (unclamped) score for dense indices.
func (svd *SVD) internalPredict(userIndex, itemIndex int32) float32 {
	return svd.GlobalMean +
		svd.UserBias[userIndex] +
		svd.ItemBias[itemIndex] +
		floats.Dot(svd.UserFactor[userIndex], svd.ItemFactor[itemIndex])
}

// Marshal model into byte stream. The snapshot round-trips factors, biases,
// the global mean and both index dictionaries.
func (svd *SVD) Marshal(w io.Writer) error {
	if err := encoding.WriteGob(w, svd.Params); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, svd.GlobalMean); err != nil {
		return errors.Trace(err)
	}
	if err := writeDict(w, svd.UserIndex); err != nil {
		return errors.Trace(err)
	}
	if err := writeDict(w, svd.ItemIndex); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, svd.UserBias); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, svd.ItemBias); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, svd.UserFactor); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, svd.ItemFactor); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal model from byte stream.
func (svd *SVD) Unmarshal(r io.Reader) error {
	var params model.Params
	if err := encoding.ReadGob(r, &params); err != nil {
		return errors.Trace(err)
	}
	svd.SetParams(params)
	if err := binary.Read(r, binary.LittleEndian, &svd.GlobalMean); err != nil {
		return errors.Trace(err)
	}
	var err error
	if svd.UserIndex, err = readDict(r); err != nil {
		return errors.Trace(err)
	}
	if svd.ItemIndex, err = readDict(r); err != nil {
		return errors.Trace(err)
	}
	svd.UserBias = make([]float32, svd.UserIndex.Count())
	svd.ItemBias = make([]float32, svd.ItemIndex.Count())
	if err := binary.Read(r, binary.LittleEndian, svd.UserBias); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Read(r, binary.LittleEndian, svd.ItemBias); err != nil {
		return errors.Trace(err)
	}
	svd.UserFactor = base.NewMatrix32(int(svd.UserIndex.Count()), svd.nFactors)
	svd.ItemFactor = base.NewMatrix32(int(svd.ItemIndex.Count()), svd.nFactors)
	if err := encoding.ReadMatrix(r, svd.UserFactor); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadMatrix(r, svd.ItemFactor); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func writeDict(w io.Writer, dict *dataset.Dict) error {
	if err := binary.Write(w, binary.LittleEndian, dict.Count()); err != nil {
		return errors.Trace(err)
	}
	for _, s := range dict.Strings() {
		if err := encoding.WriteString(w, s); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func readDict(r io.Reader) (*dataset.Dict, error) {
	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, errors.Trace(err)
	}
	dict := dataset.NewDict()
	for i := int32(0); i < count; i++ {
		s, err := encoding.ReadString(r)
		if err != nil {
			return nil, errors.Trace(err)
		}
		dict.Add(s)
	}
	return dict, nil
}
