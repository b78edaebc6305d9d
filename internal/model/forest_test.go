package model

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitScaler(t *testing.T) {
	t.Run("no rows", func(t *testing.T) {
		_, err := FitScaler(nil)
		assert.Error(t, err)
	})

	t.Run("standardizes each dimension", func(t *testing.T) {
		rows := [][]float64{{1, 100}, {3, 200}, {5, 300}}
		s, err := FitScaler(rows)
		require.NoError(t, err)

		assert.InDelta(t, 3.0, s.Mean[0], 1e-9)
		assert.InDelta(t, 200.0, s.Mean[1], 1e-9)

		scaled := s.Transform([]float64{3, 200})
		assert.InDelta(t, 0.0, scaled[0], 1e-9)
		assert.InDelta(t, 0.0, scaled[1], 1e-9)
	})

	t.Run("constant dimension stays finite", func(t *testing.T) {
		rows := [][]float64{{7, 1}, {7, 2}, {7, 3}}
		s, err := FitScaler(rows)
		require.NoError(t, err)
		scaled := s.Transform([]float64{7, 2})
		assert.InDelta(t, 0.0, scaled[0], 1e-9)
	})

	t.Run("dimension mismatch passes through", func(t *testing.T) {
		s := &Scaler{Mean: []float64{0, 0}, Stddev: []float64{1, 1}}
		in := []float64{1, 2, 3}
		assert.Equal(t, in, s.Transform(in))
	})
}

func syntheticRows(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	targets := make([]float64, n)
	for i := range rows {
		a := rng.Float64() * 10
		b := rng.Float64()
		rows[i] = []float64{a, b}
		targets[i] = a*8 + b*2
	}
	return rows, targets
}

func TestTrainForest(t *testing.T) {
	t.Run("no rows", func(t *testing.T) {
		_, err := TrainForest(DefaultForestConfig(), nil, nil, 1)
		assert.Error(t, err)
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := TrainForest(DefaultForestConfig(), [][]float64{{1}}, []float64{1, 2}, 1)
		assert.Error(t, err)
	})

	t.Run("learns a linear target", func(t *testing.T) {
		rows, targets := syntheticRows(200, 7)
		f, err := TrainForest(DefaultForestConfig(), rows, targets, 7)
		require.NoError(t, err)

		low := f.Predict([]float64{1, 0.5})
		high := f.Predict([]float64{9, 0.5})
		assert.Greater(t, high, low, "predictions follow the dominant feature")
		assert.InDelta(t, 9, low, 20)
		assert.InDelta(t, 73, high, 20)
	})

	t.Run("deterministic for a fixed seed", func(t *testing.T) {
		rows, targets := syntheticRows(100, 3)
		f1, err := TrainForest(DefaultForestConfig(), rows, targets, 11)
		require.NoError(t, err)
		f2, err := TrainForest(DefaultForestConfig(), rows, targets, 11)
		require.NoError(t, err)

		probe := []float64{4.2, 0.3}
		assert.Equal(t, f1.Predict(probe), f2.Predict(probe))
	})

	t.Run("importances favor the dominant feature", func(t *testing.T) {
		rows, targets := syntheticRows(200, 19)
		f, err := TrainForest(DefaultForestConfig(), rows, targets, 19)
		require.NoError(t, err)

		require.Len(t, f.Importances, 2)
		assert.Greater(t, f.Importances[0], f.Importances[1])
		assert.InDelta(t, 1.0, f.Importances[0]+f.Importances[1], 1e-9)
	})

	t.Run("constant targets yield a stump", func(t *testing.T) {
		rows := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
		targets := []float64{42, 42, 42, 42, 42, 42}
		f, err := TrainForest(DefaultForestConfig(), rows, targets, 5)
		require.NoError(t, err)
		assert.Equal(t, 42.0, f.Predict([]float64{100}))
	})
}

func TestSplitFeatures(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	t.Run("sqrt-sized subset of distinct in-range indices", func(t *testing.T) {
		feats := splitFeatures(rng, 12)
		require.Len(t, feats, 4)
		seen := map[int]bool{}
		for _, fi := range feats {
			assert.GreaterOrEqual(t, fi, 0)
			assert.Less(t, fi, 12)
			assert.False(t, seen[fi], "feature sampled twice")
			seen[fi] = true
		}
	})

	t.Run("low dimensions keep every feature", func(t *testing.T) {
		assert.Equal(t, []int{0, 1}, splitFeatures(rng, 2))
		assert.Equal(t, []int{0}, splitFeatures(rng, 1))
	})

	t.Run("subsets vary between splits", func(t *testing.T) {
		counts := map[int]int{}
		for i := 0; i < 50; i++ {
			for _, fi := range splitFeatures(rng, 12) {
				counts[fi]++
			}
		}
		assert.Greater(t, len(counts), 4, "every split drawing the same subset")
	})
}

func TestEvaluate(t *testing.T) {
	t.Run("perfect fit", func(t *testing.T) {
		m := Evaluate([]float64{1, 2, 3}, []float64{1, 2, 3})
		assert.Equal(t, 0.0, m.RMSE)
		assert.Equal(t, 0.0, m.MAE)
		assert.Equal(t, 1.0, m.R2)
		assert.Equal(t, 3, m.Examples)
	})

	t.Run("known errors", func(t *testing.T) {
		m := Evaluate([]float64{2, 4}, []float64{0, 4})
		assert.InDelta(t, 1.4142, m.RMSE, 0.001)
		assert.InDelta(t, 1.0, m.MAE, 1e-9)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, EvalMetrics{}, Evaluate(nil, nil))
	})
}

func TestCrossValidate(t *testing.T) {
	rows, targets := syntheticRows(100, 23)
	cfg := ForestConfig{Trees: 10, MaxDepth: 5, MinSplit: 5, MinLeaf: 2}

	scores, err := CrossValidate(cfg, rows, targets, 5, 23)
	require.NoError(t, err)
	require.Len(t, scores, 5)
	for _, s := range scores {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.Less(t, s, 40.0, "fold error stays far below the target range")
	}
}

func TestSplitTrainTest(t *testing.T) {
	rows, targets := syntheticRows(10, 31)

	trainRows, testRows, trainTargets, testTargets := splitTrainTest(rows, targets, 0.2, 31)
	assert.Len(t, testRows, 2)
	assert.Len(t, trainRows, 8)
	assert.Len(t, trainTargets, 8)
	assert.Len(t, testTargets, 2)

	// Extreme fractions still leave rows on both sides.
	trainRows, testRows, _, _ = splitTrainTest(rows, targets, 0.99, 31)
	assert.NotEmpty(t, trainRows)
	assert.NotEmpty(t, testRows)
}
