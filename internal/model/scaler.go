package model

import (
	"errors"
	"math"
)

// Scaler standardizes feature vectors with z-score normalization so that
// dimensions with large magnitudes (temperature in degrees, dry spell in
// days) do not dominate dimensions on unit scales (NDVI, trends).
type Scaler struct {
	Mean   []float64 `json:"mean"`
	Stddev []float64 `json:"stddev"`
}

// FitScaler computes per-dimension mean and standard deviation over the
// training rows. Constant dimensions get stddev 1 so Transform stays defined.
func FitScaler(rows [][]float64) (*Scaler, error) {
	if len(rows) == 0 {
		return nil, errors.New("no training rows provided")
	}
	dims := len(rows[0])
	if dims == 0 {
		return nil, errors.New("training rows have no features")
	}

	mean := make([]float64, dims)
	for _, row := range rows {
		if len(row) != dims {
			return nil, errors.New("inconsistent feature dimensions")
		}
		for i, v := range row {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= float64(len(rows))
	}

	stddev := make([]float64, dims)
	for _, row := range rows {
		for i, v := range row {
			diff := v - mean[i]
			stddev[i] += diff * diff
		}
	}
	for i := range stddev {
		stddev[i] = math.Sqrt(stddev[i] / float64(len(rows)))
		if stddev[i] < 1e-10 {
			stddev[i] = 1.0
		}
	}

	return &Scaler{Mean: mean, Stddev: stddev}, nil
}

// Transform returns the standardized copy of a feature vector. Vectors with
// a mismatched dimension count are returned unchanged.
func (s *Scaler) Transform(features []float64) []float64 {
	if len(features) != len(s.Mean) {
		return features
	}
	scaled := make([]float64, len(features))
	for i, v := range features {
		scaled[i] = (v - s.Mean[i]) / s.Stddev[i]
	}
	return scaled
}

// TransformAll standardizes every row, returning a new matrix.
func (s *Scaler) TransformAll(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = s.Transform(row)
	}
	return out
}
