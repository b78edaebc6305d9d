package model

import (
	"math"
	"math/rand"
)

// EvalMetrics summarizes regression quality on a held-out set.
type EvalMetrics struct {
	RMSE     float64 `json:"rmse"`
	MAE      float64 `json:"mae"`
	R2       float64 `json:"r2"`
	Examples int     `json:"examples"`
}

// Evaluate scores predictions against true targets.
func Evaluate(predicted, actual []float64) EvalMetrics {
	n := len(actual)
	if n == 0 || len(predicted) != n {
		return EvalMetrics{}
	}

	var sqErr, absErr float64
	for i := range actual {
		d := predicted[i] - actual[i]
		sqErr += d * d
		absErr += math.Abs(d)
	}

	m := EvalMetrics{
		RMSE:     math.Sqrt(sqErr / float64(n)),
		MAE:      absErr / float64(n),
		Examples: n,
	}

	actualMean := mean(actual)
	var totalSq float64
	for _, a := range actual {
		d := a - actualMean
		totalSq += d * d
	}
	if totalSq > 0 {
		m.R2 = 1 - sqErr/totalSq
	}
	return m
}

// CrossValidate runs k-fold cross validation over the raw rows, fitting a
// fresh scaler and forest per fold so no fold is standardized with its own
// holdout statistics. Returns the per-fold RMSE values. Fold assignment is
// a seeded shuffle so reports are reproducible.
func CrossValidate(cfg ForestConfig, rows [][]float64, targets []float64, folds int, seed int64) ([]float64, error) {
	if folds < 2 {
		folds = 2
	}
	if folds > len(rows) {
		folds = len(rows)
	}

	order := rand.New(rand.NewSource(seed)).Perm(len(rows))
	scores := make([]float64, 0, folds)

	for fold := 0; fold < folds; fold++ {
		var trainRows, testRows [][]float64
		var trainTargets, testTargets []float64
		for i, idx := range order {
			if i%folds == fold {
				testRows = append(testRows, rows[idx])
				testTargets = append(testTargets, targets[idx])
			} else {
				trainRows = append(trainRows, rows[idx])
				trainTargets = append(trainTargets, targets[idx])
			}
		}

		scaler, err := FitScaler(trainRows)
		if err != nil {
			return nil, err
		}
		forest, err := TrainForest(cfg, scaler.TransformAll(trainRows), trainTargets, seed+int64(fold))
		if err != nil {
			return nil, err
		}
		predicted := make([]float64, len(testRows))
		for i, row := range testRows {
			predicted[i] = forest.Predict(scaler.Transform(row))
		}
		scores = append(scores, Evaluate(predicted, testTargets).RMSE)
	}
	return scores, nil
}

// splitTrainTest partitions rows into train and test sets with a seeded
// shuffle. testFraction is clamped so both sides keep at least one row.
func splitTrainTest(rows [][]float64, targets []float64, testFraction float64, seed int64) (trainRows, testRows [][]float64, trainTargets, testTargets []float64) {
	n := len(rows)
	testCount := int(math.Round(float64(n) * testFraction))
	if testCount < 1 {
		testCount = 1
	}
	if testCount >= n {
		testCount = n - 1
	}

	order := rand.New(rand.NewSource(seed)).Perm(n)
	for i, idx := range order {
		if i < testCount {
			testRows = append(testRows, rows[idx])
			testTargets = append(testTargets, targets[idx])
		} else {
			trainRows = append(trainRows, rows[idx])
			trainTargets = append(trainTargets, targets[idx])
		}
	}
	return trainRows, testRows, trainTargets, testTargets
}
