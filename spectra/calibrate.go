// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package spectra

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var ErrLengthMismatch = errors.New("spectrum length mismatch")

// Ratio divides measurement by reference element by element. Results that
// are infinite or NaN are replaced with 0, meaning no signal.
func Ratio(measurement, reference []float64) ([]float64, error) {
	if len(measurement) != len(reference) {
		return nil, fmt.Errorf("ratio of %d by %d values: %w", len(measurement), len(reference), ErrLengthMismatch)
	}

	ratio := make([]float64, len(measurement))
	floats.DivTo(ratio, measurement, reference)
	for i, v := range ratio {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			ratio[i] = 0
		}
	}
	return ratio, nil
}

// Rescale multiplies a ratio spectrum by the laboratory target spectrum.
func Rescale(ratio, target []float64) ([]float64, error) {
	if len(ratio) != len(target) {
		return nil, fmt.Errorf("rescale of %d by %d values: %w", len(ratio), len(target), ErrLengthMismatch)
	}

	out := make([]float64, len(ratio))
	floats.MulTo(out, ratio, target)
	return out, nil
}

// RelativeReflectance applies Ratio and then Rescale.
func RelativeReflectance(measurement, reference, target []float64) ([]float64, error) {
	ratio, err := Ratio(measurement, reference)
	if err != nil {
		return nil, err
	}
	return Rescale(ratio, target)
}
