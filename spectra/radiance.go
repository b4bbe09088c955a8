// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package spectra

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var ErrMissingRadianceInput = errors.New("missing radiance input")

// RadianceCalibrator converts raw PSV products to radiance. On success the
// radiance file must exist at RadiancePath of the input, placed in outDir.
type RadianceCalibrator interface {
	CalibrateToRadiance(kind InputType, path, outDir string) bool
}

type RadianceCalibratorFunc func(kind InputType, path, outDir string) bool

func (f RadianceCalibratorFunc) CalibrateToRadiance(kind InputType, path, outDir string) bool {
	return f(kind, path, outDir)
}

// NoRadiance is used when no radiance calibration step is configured.
var NoRadiance = RadianceCalibratorFunc(func(kind InputType, path, outDir string) bool {
	log.Println("no radiance calibration configured for", path)
	return false
})

// CommandCalibrator runs an external radiance calibration program as
//
//	<Command> <Args...> <kind> <path> <outDir>
//
// and reports success when it exits with status 0.
type CommandCalibrator struct {
	Command string
	Args    []string
}

func (c *CommandCalibrator) CalibrateToRadiance(kind InputType, path, outDir string) bool {
	args := append(append([]string{}, c.Args...), kind.String(), path, outDir)
	cmd := exec.Command(c.Command, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		log.Printf("radiance calibration of %v failed: %v\n", path, err)
		return false
	}
	return true
}

// ParseRadianceCommand splits a command line such as the -radcmd flag into
// a CommandCalibrator.
func ParseRadianceCommand(s string) (*CommandCalibrator, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, errors.New("empty radiance calibration command")
	}
	return &CommandCalibrator{Command: fields[0], Args: fields[1:]}, nil
}

// RadiancePath names the radiance product derived from a PSV or RAD input.
func RadiancePath(input string) string {
	return renameBase(input, strings.NewReplacer("psv", "rad"))
}

// PsvPath names the raw product that carries the instrument header.
func PsvPath(input string) string {
	return renameBase(input, strings.NewReplacer("rad", "psv"))
}

// ReflectancePath names the reflectance table written for a radiance file.
func ReflectancePath(radiance string) string {
	return renameBase(radiance, strings.NewReplacer("RAD", "REF", "rad", "ref"))
}

// renameBase rewrites product type tokens in the file name only, leaving
// directories such as ".../radiance/" alone.
func renameBase(path string, r *strings.Replacer) string {
	dir, base := filepath.Split(path)
	return dir + r.Replace(base)
}

// LocateRadiance returns the radiance file for input, invoking calibrator
// when the file does not exist yet.
func LocateRadiance(input, outDir string, calibrator RadianceCalibrator) (string, error) {
	radFile := RadiancePath(input)
	if fileExists(radFile) {
		return radFile, nil
	}

	if outDir != "" {
		radFile = filepath.Join(outDir, filepath.Base(radFile))
	} else {
		outDir = filepath.Dir(input)
	}

	if calibrator == nil {
		calibrator = NoRadiance
	}
	if !calibrator.CalibrateToRadiance(InputFile, input, outDir) {
		return "", fmt.Errorf("%v: %w", input, ErrMissingRadianceInput)
	}
	if !fileExists(radFile) {
		return "", fmt.Errorf("%v: radiance calibration did not produce %v: %w", input, radFile, ErrMissingRadianceInput)
	}
	return radFile, nil
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}
