// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package spectra

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
)

// BeginMarker terminates the metadata block at the front of a measurement
// file.
const BeginMarker = ">>>>Begin"

const (
	ipbcKey = "IPBCdivisor"
	ictKey  = "ICTdivisor"

	clockRate    = 33000000
	readoutDelay = 0.00356
)

var ErrMissingHeaderField = errors.New("missing header field")

// Header maps metadata keys to their raw string values.
type Header map[string]string

// Float parses the value stored under key.
func (h Header) Float(key string) (float64, bool) {
	v, ok := h[key]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseHeader reads "key: value" lines up to the first line containing
// BeginMarker. Lines without a colon are ignored and later keys replace
// earlier ones. If the marker never shows up, every pair in the input is
// returned.
func ParseHeader(r io.Reader) (Header, error) {
	h := make(Header)

	// lines are read whole, however long, so an oversized line is
	// skipped like any other malformed one
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if strings.Contains(line, BeginMarker) {
				return h, nil
			}
			if toks := strings.SplitN(line, ":", 2); len(toks) == 2 {
				key := strings.TrimLeft(toks[0], `"`)
				h[key] = strings.TrimRight(toks[1], "\"\r\n")
			}
		}
		if err == io.EOF {
			return h, nil
		}
		if err != nil {
			return h, err
		}
	}
}

func ReadHeaderFile(filename string) (Header, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseHeader(f)
}

// IntegrationTime computes the exposure duration in seconds from the
// IPBCdivisor and ICTdivisor header values. The source argument only names
// the file in diagnostics.
func IntegrationTime(h Header, source string) (float64, error) {
	ipbc, ok := h.Float(ipbcKey)
	if !ok {
		return integrationTimeError(source, ipbcKey)
	}
	ict, ok := h.Float(ictKey)
	if !ok {
		return integrationTimeError(source, ictKey)
	}

	return (ipbc*ict)/clockRate + readoutDelay, nil
}

func integrationTimeError(source, key string) (float64, error) {
	log.Printf("Header not formatted correctly in file %v. Unable to calculate exposure time.\n", source)
	return math.NaN(), fmt.Errorf("%v: %v: %w", source, key, ErrMissingHeaderField)
}

// Bucket rounds an integration time to whole milliseconds.
func Bucket(seconds float64) int {
	return int(math.RoundToEven(seconds * 1000))
}
