// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package spectra

import (
	"errors"
	"reflect"
	"testing"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		m, r, want []float64
	}{
		{[]float64{10, 0, 0}, []float64{5, 0, 2}, []float64{2, 0, 0}},
		{[]float64{1, -1, 3}, []float64{0, 0, 4}, []float64{0, 0, 0.75}},
		{nil, nil, []float64{}},
	}

	for _, test := range tests {
		got, err := Ratio(test.m, test.r)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("Ratio(%v, %v) = %v, want %v", test.m, test.r, got, test.want)
		}
	}

	if _, err := Ratio([]float64{1, 2}, []float64{1}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("got %v, want length mismatch", err)
	}
}

func TestRescale(t *testing.T) {
	got, err := Rescale([]float64{2, 0, 4}, []float64{0.5, 0.9, 0.25})
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{1, 0, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := Rescale([]float64{1}, []float64{1, 2}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("got %v, want length mismatch", err)
	}
}

func TestRelativeReflectance(t *testing.T) {
	got, err := RelativeReflectance(
		[]float64{10, 0, 0, 8},
		[]float64{5, 0, 2, 4},
		[]float64{0.5, 1, 1, 0.25},
	)
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{1, 0, 0, 0.5}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := RelativeReflectance([]float64{1}, []float64{1}, []float64{1, 2}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("got %v, want length mismatch", err)
	}
}
