// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package spectra

import (
	"fmt"
	"strings"
)

// InputType says how a calibration input path is interpreted.
type InputType int

const (
	InputFile InputType = iota + 1
	InputList
	InputDirectory
)

func (t InputType) String() string {
	switch t {
	case InputFile:
		return "file"
	case InputList:
		return "list"
	case InputDirectory:
		return "directory"
	}
	return fmt.Sprintf("InputType(%d)", int(t))
}

func ParseInputType(s string) (InputType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "file", "f":
		return InputFile, nil
	case "list", "l":
		return InputList, nil
	case "directory", "dir", "d":
		return InputDirectory, nil
	}
	return 0, fmt.Errorf("unknown input type %q", s)
}
