// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

// Package label derives PDS labels for radiance and relative reflectance
// tables from the label of the raw PSV product. The rewrite is positional:
// the PSV labels produced by the ground data system share one fixed layout
// and each rule in the table applies to a single line index.
package label

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
)

var ErrLayoutMismatch = errors.New("label layout mismatch")

const (
	psvMarker     = "PSV"
	dnDescription = "in DN units. Companion wavelength file is CCAM_DEFAULT_WAVE.TAB.\""
	eol           = "\r\n"
)

// Kind selects the product a label is generated for.
type Kind int

const (
	Radiance Kind = iota
	Reflectance
)

func (k Kind) String() string {
	switch k {
	case Radiance:
		return "radiance"
	case Reflectance:
		return "reflectance"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Marker is the product type token that replaces PSV in the label.
func (k Kind) Marker() string {
	if k == Radiance {
		return "RAD"
	}
	return "REF"
}

func (k Kind) unitsDescription() string {
	if k == Radiance {
		return "calibrated to units of radiance (W/m^2/sr/um)\""
	}
	return "calibrated to units of relative reflectance\""
}

func (k Kind) unit() string {
	if k == Radiance {
		return "RADIANCE"
	}
	return "RELATIVE REFLECTANCE"
}

func (k Kind) description() string {
	if k == Radiance {
		return "Calibrated Radiance"
	}
	return "Relative Reflectance"
}

// Transform reads a PSV product label from r and writes the label of the
// kind product to w. Nothing is written when the input is too short for
// the positional rules.
func Transform(r io.Reader, w io.Writer, kind Kind) error {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(lines) < MinLines {
		return fmt.Errorf("%d lines, need at least %d: %w", len(lines), MinLines, ErrLayoutMismatch)
	}

	s := &state{kind: kind}
	bw := bufio.NewWriter(w)
	for i, line := range lines {
		if rule, ok := rules[i]; ok {
			var keep bool
			if line, keep = rule(line, s); !keep {
				continue
			}
		}
		bw.WriteString(line)
		bw.WriteString(eol)
	}
	bw.WriteString(columns(kind))

	return bw.Flush()
}

// TransformFile writes the kind label for the PSV label at src to dst. dst
// is left untouched when src cannot be transformed.
func TransformFile(src, dst string, kind Kind) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	buf := &bytes.Buffer{}
	if err := Transform(in, buf, kind); err != nil {
		return fmt.Errorf("%v: %w", src, err)
	}
	return ioutil.WriteFile(dst, buf.Bytes(), 0644)
}

func columns(kind Kind) string {
	return "" +
		"  OBJECT                          = COLUMN 1" + eol +
		"    NAME                          = \"WAVELENGTH\"" + eol +
		"    DATA_TYPE                     = ASCII_REAL" + eol +
		"    START_BYTE                    = 1" + eol +
		"    BYTES                         = 42" + eol +
		"    UNIT                          = \"WAVELENGTH\" " + eol +
		"    DESCRIPTION                   = \"Wavelengths from CCAM_DEFAULT_WAVE.TAB\" " + eol +
		"  END_OBJECT                      = COLUMN " + eol +
		" " + eol +
		"  OBJECT                          = COLUMN 2 " + eol +
		"    NAME                          = \"CHANNEL_INTENSITY\" " + eol +
		"    DATA_TYPE                     = ASCII_REAL " + eol +
		"    START_BYTE                    = 1 " + eol +
		"    BYTES                         = 42 " + eol +
		"    UNIT                          = \"" + kind.unit() + "\"" + eol +
		"    DESCRIPTION                   = \"" + kind.description() + "\" " + eol +
		"  END_OBJECT                      = COLUMN " + eol +
		" " + eol +
		" END_OBJECT                        = TABLE " + eol +
		" " + eol +
		"END" + eol
}
