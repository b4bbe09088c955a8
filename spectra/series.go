// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package spectra

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var ErrMalformedSeries = errors.New("malformed spectrum table")

// Series is an ordered list of (wavelength, value) pairs. Measurement,
// reference and calibrated spectra all share this shape and are combined by
// index, never by wavelength.
type Series struct {
	Wavelength []float64
	Value      []float64
}

func (s *Series) Len() int {
	return len(s.Wavelength)
}

// ReadSeries reads a two column whitespace separated table. A metadata block
// terminated by BeginMarker is skipped when present, as are blank lines.
func ReadSeries(r io.Reader) (*Series, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for i, line := range lines {
		if strings.Contains(line, BeginMarker) {
			lines = lines[i+1:]
			break
		}
	}

	s := &Series{}
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected 2 columns, got %d: %w", i+1, len(fields), ErrMalformedSeries)
		}

		wl, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v: %w", i+1, err, ErrMalformedSeries)
		}
		val, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v: %w", i+1, err, ErrMalformedSeries)
		}

		s.Wavelength = append(s.Wavelength, wl)
		s.Value = append(s.Value, val)
	}

	return s, nil
}

func ReadSeriesBytes(b []byte) (*Series, error) {
	return ReadSeries(bytes.NewReader(b))
}

func ReadSeriesFile(filename string) (*Series, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := ReadSeries(f)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return s, nil
}

// FormatLine renders one output table row. Downstream tools parse this
// layout by position, so the field widths must not change.
func FormatLine(wavelength, value float64) string {
	return fmt.Sprintf("   %3.3f      %10f                \r\n", wavelength, value)
}

// WriteTable writes any header lines verbatim followed by one fixed format
// row per pair.
func WriteTable(w io.Writer, wavelengths, values []float64, header []string) error {
	if len(wavelengths) != len(values) {
		return fmt.Errorf("%d wavelengths for %d values: %w", len(wavelengths), len(values), ErrLengthMismatch)
	}

	bw := bufio.NewWriter(w)
	for _, line := range header {
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
	}
	for i := range wavelengths {
		if _, err := bw.WriteString(FormatLine(wavelengths[i], values[i])); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func WriteTableFile(filename string, wavelengths, values []float64, header []string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err := WriteTable(f, wavelengths, values, header); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
