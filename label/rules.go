// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package label

import (
	"strings"
)

// Rule rewrites the label line at a fixed index. Returning false drops the
// line from the output.
type Rule func(line string, s *state) (string, bool)

type state struct {
	kind      Kind
	productID string
}

// Line indices are 0-based positions in the PSV product label. Any index
// without an entry is copied unchanged.
var rules = map[int]Rule{
	// FILE_RECORDS: the reflectance table has no 300 line header block
	6: recordCount,
	// ^HEADER pointer, only radiance tables carry a header
	10: radianceOnly(substitute),
	// ^TABLE pointer and PRODUCT_TYPE
	11: substitute,
	17: substitute,
	// PRODUCT_ID of the source product is kept for SOURCE_PRODUCT_ID
	39: captureProductID,
	43: sourceProductID,
	// HEADER object
	310: radianceOnly(substitute),
	311: radianceOnly(substitute),
	312: radianceOnly(substitute),
	313: radianceOnly(substitute),
	314: radianceOnly(substitute),
	315: radianceOnly(substitute),
	316: radianceOnly(substitute),
	317: radianceOnly(substitute),
	318: radianceOnly(substitute),
	319: radianceOnly(substitute),
	320: radianceOnly(substitute),
	// TABLE object: COLUMNS, ROW_BYTES
	326: replace("1", "2"),
	// TODO: derive ROW_BYTES from the output row layout instead of doubling
	// the PSV value.
	327: replace("44", "88"),
	329: substitute,
	331: unitsDescription,
	// PSV column objects, superseded by the generated columns
	333: drop,
	334: drop,
	335: drop,
	336: drop,
	337: drop,
	338: drop,
	339: drop,
	340: drop,
	341: drop,
	342: drop,
	343: drop,
	344: drop,
	345: drop,
}

// MinLines is the number of lines a PSV label needs for every rewritten
// index to exist.
const MinLines = 332

func substitute(line string, s *state) (string, bool) {
	return strings.Replace(line, psvMarker, s.kind.Marker(), -1), true
}

func radianceOnly(r Rule) Rule {
	return func(line string, s *state) (string, bool) {
		if s.kind != Radiance {
			return "", false
		}
		return r(line, s)
	}
}

func replace(old, new string) Rule {
	return func(line string, s *state) (string, bool) {
		return strings.Replace(line, old, new, -1), true
	}
}

func drop(line string, s *state) (string, bool) {
	return "", false
}

func recordCount(line string, s *state) (string, bool) {
	if s.kind == Radiance {
		return line, true
	}
	return strings.Replace(line, "6473", "6173", -1), true
}

func captureProductID(line string, s *state) (string, bool) {
	if parts := strings.SplitN(line, "=", 2); len(parts) == 2 {
		s.productID = strings.TrimSpace(parts[1])
	}
	return substitute(line, s)
}

func sourceProductID(line string, s *state) (string, bool) {
	parts := strings.SplitN(line, "=", 2)
	return parts[0] + "= " + s.productID, true
}

func unitsDescription(line string, s *state) (string, bool) {
	return strings.Replace(line, dnDescription, s.kind.unitsDescription(), -1), true
}
