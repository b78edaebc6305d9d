package model

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// ForestConfig holds the ensemble hyperparameters.
type ForestConfig struct {
	Trees    int `json:"trees"`
	MaxDepth int `json:"max_depth"`
	MinSplit int `json:"min_split"`
	MinLeaf  int `json:"min_leaf"`
}

// DefaultForestConfig returns the tuning used for the production risk model.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{Trees: 100, MaxDepth: 10, MinSplit: 5, MinLeaf: 2}
}

// treeNode is one node of a regression tree. Leaves carry the mean target of
// their training rows; internal nodes route on feature <= threshold.
type treeNode struct {
	Feature   int       `json:"f,omitempty"`
	Threshold float64   `json:"t,omitempty"`
	Value     float64   `json:"v"`
	Left      *treeNode `json:"l,omitempty"`
	Right     *treeNode `json:"r,omitempty"`
}

func (n *treeNode) leaf() bool { return n.Left == nil && n.Right == nil }

func (n *treeNode) predict(x []float64) float64 {
	for !n.leaf() {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// Forest is a bagged ensemble of regression trees trained on variance
// reduction. Predictions average over all trees.
type Forest struct {
	Config     ForestConfig `json:"config"`
	Roots      []*treeNode  `json:"roots"`
	Dimensions int          `json:"dimensions"`

	// importances accumulates weighted impurity decrease per feature during
	// training and is normalized to sum to 1.
	Importances []float64 `json:"importances"`
}

// TrainForest fits the ensemble on standardized rows and targets. Each tree
// sees a bootstrap sample of the rows drawn from the provided seed, so the
// same seed always yields the same forest.
func TrainForest(cfg ForestConfig, rows [][]float64, targets []float64, seed int64) (*Forest, error) {
	if len(rows) == 0 {
		return nil, errors.New("no training rows")
	}
	if len(rows) != len(targets) {
		return nil, errors.New("rows and targets length mismatch")
	}
	dims := len(rows[0])

	f := &Forest{
		Config:      cfg,
		Roots:       make([]*treeNode, 0, cfg.Trees),
		Dimensions:  dims,
		Importances: make([]float64, dims),
	}

	rng := rand.New(rand.NewSource(seed))
	for t := 0; t < cfg.Trees; t++ {
		sampleRows := make([][]float64, len(rows))
		sampleTargets := make([]float64, len(rows))
		for i := range rows {
			j := rng.Intn(len(rows))
			sampleRows[i] = rows[j]
			sampleTargets[i] = targets[j]
		}
		f.Roots = append(f.Roots, f.grow(rng, sampleRows, sampleTargets, 0))
	}

	normalize(f.Importances)
	return f, nil
}

// Predict averages the per-tree estimates for a standardized feature vector.
func (f *Forest) Predict(x []float64) float64 {
	if len(f.Roots) == 0 {
		return 0
	}
	sum := 0.0
	for _, root := range f.Roots {
		sum += root.predict(x)
	}
	return sum / float64(len(f.Roots))
}

// grow builds one tree recursively, splitting on the feature and threshold
// with the largest variance reduction.
func (f *Forest) grow(rng *rand.Rand, rows [][]float64, targets []float64, depth int) *treeNode {
	node := &treeNode{Value: mean(targets)}
	if depth >= f.Config.MaxDepth || len(rows) < f.Config.MinSplit {
		return node
	}

	feature, threshold, gain := f.bestSplit(rng, rows, targets)
	if gain <= 0 {
		return node
	}

	var leftRows, rightRows [][]float64
	var leftTargets, rightTargets []float64
	for i, row := range rows {
		if row[feature] <= threshold {
			leftRows = append(leftRows, row)
			leftTargets = append(leftTargets, targets[i])
		} else {
			rightRows = append(rightRows, row)
			rightTargets = append(rightTargets, targets[i])
		}
	}
	if len(leftRows) < f.Config.MinLeaf || len(rightRows) < f.Config.MinLeaf {
		return node
	}

	f.Importances[feature] += gain * float64(len(rows))

	node.Feature = feature
	node.Threshold = threshold
	node.Left = f.grow(rng, leftRows, leftTargets, depth+1)
	node.Right = f.grow(rng, rightRows, rightTargets, depth+1)
	return node
}

// bestSplit scans a random sqrt-sized feature subset with candidate
// thresholds at the midpoints of adjacent sorted values and returns the
// split with the best variance reduction. Subsampling features per split
// decorrelates the trees beyond what bagging alone provides. gain is zero
// when no split improves on the parent.
func (f *Forest) bestSplit(rng *rand.Rand, rows [][]float64, targets []float64) (feature int, threshold, gain float64) {
	parent := variance(targets)
	if parent == 0 {
		return 0, 0, 0
	}
	n := float64(len(rows))

	type pair struct{ x, y float64 }
	column := make([]pair, len(rows))

	for _, fi := range splitFeatures(rng, f.Dimensions) {
		for i, row := range rows {
			column[i] = pair{x: row[fi], y: targets[i]}
		}
		sort.Slice(column, func(a, b int) bool { return column[a].x < column[b].x })

		// Running sums let each candidate threshold be scored in O(1).
		var leftSum, leftSq float64
		rightSum, rightSq := 0.0, 0.0
		for _, p := range column {
			rightSum += p.y
			rightSq += p.y * p.y
		}

		for i := 0; i < len(column)-1; i++ {
			leftSum += column[i].y
			leftSq += column[i].y * column[i].y
			rightSum -= column[i].y
			rightSq -= column[i].y * column[i].y

			if column[i].x == column[i+1].x {
				continue
			}
			nl := float64(i + 1)
			nr := n - nl
			if int(nl) < f.Config.MinLeaf || int(nr) < f.Config.MinLeaf {
				continue
			}

			leftVar := leftSq/nl - (leftSum/nl)*(leftSum/nl)
			rightVar := rightSq/nr - (rightSum/nr)*(rightSum/nr)
			g := parent - (nl/n)*leftVar - (nr/n)*rightVar
			if g > gain {
				feature = fi
				threshold = (column[i].x + column[i+1].x) / 2
				gain = g
			}
		}
	}
	return feature, threshold, gain
}

// splitFeatures samples ceil(sqrt(dims)) distinct feature indices for one
// split. Low-dimensional inputs keep every feature.
func splitFeatures(rng *rand.Rand, dims int) []int {
	k := int(math.Ceil(math.Sqrt(float64(dims))))
	if k >= dims {
		all := make([]int, dims)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return rng.Perm(dims)[:k]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs))
}

func normalize(xs []float64) {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	if total == 0 {
		return
	}
	for i := range xs {
		xs[i] /= total
	}
}
