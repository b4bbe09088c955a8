// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package spectra

import (
	"errors"
	"io/ioutil"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestProductPaths(t *testing.T) {
	tests := []struct {
		fn       func(string) string
		in, want string
	}{
		{RadiancePath, "/data/psv/cl5_psv_001.tab", "/data/psv/cl5_rad_001.tab"},
		{RadiancePath, "/data/radiance/cl5_rad_001.tab", "/data/radiance/cl5_rad_001.tab"},
		{PsvPath, "/data/radiance/cl5_rad_001.tab", "/data/radiance/cl5_psv_001.tab"},
		{ReflectancePath, "/data/radiance/cl5_rad_001.tab", "/data/radiance/cl5_ref_001.tab"},
		{ReflectancePath, "CL5_RAD_001.TAB", "CL5_REF_001.TAB"},
	}

	for _, test := range tests {
		if got := test.fn(test.in); got != test.want {
			t.Errorf("%v: got %v, want %v", test.in, got, test.want)
		}
	}
}

func TestLocateRadianceExisting(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "cl5_psv_001.tab", "")
	rad := writeFile(t, dir, "cl5_rad_001.tab", "")

	called := false
	calibrator := RadianceCalibratorFunc(func(InputType, string, string) bool {
		called = true
		return true
	})

	got, err := LocateRadiance(input, "", calibrator)
	if err != nil {
		t.Fatal(err)
	}
	if got != rad {
		t.Errorf("got %v, want %v", got, rad)
	}
	if called {
		t.Error("calibrator should not run when the radiance file exists")
	}
}

func TestLocateRadianceCalibrates(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()
	input := writeFile(t, dir, "cl5_psv_001.tab", "")

	calibrator := RadianceCalibratorFunc(func(kind InputType, path, out string) bool {
		if kind != InputFile || path != input || out != outDir {
			t.Errorf("called with %v %v %v", kind, path, out)
		}
		return ioutil.WriteFile(filepath.Join(out, "cl5_rad_001.tab"), nil, 0644) == nil
	})

	got, err := LocateRadiance(input, outDir, calibrator)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(outDir, "cl5_rad_001.tab"); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLocateRadianceMissing(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "cl5_psv_001.tab", "")

	liar := RadianceCalibratorFunc(func(InputType, string, string) bool { return true })
	for _, calibrator := range []RadianceCalibrator{nil, NoRadiance, liar} {
		if _, err := LocateRadiance(input, "", calibrator); !errors.Is(err, ErrMissingRadianceInput) {
			t.Errorf("got %v, want missing radiance input", err)
		}
	}
}

func TestCommandCalibrator(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no sh available")
	}
	dir := t.TempDir()
	input := writeFile(t, dir, "cl5_psv_001.tab", "")

	tests := []struct {
		name string
		cmd  *CommandCalibrator
		want bool
	}{
		{
			name: "arguments follow the configured ones",
			cmd: &CommandCalibrator{Command: "sh", Args: []string{"-c",
				`test "$1" = file && test "$2" = "` + input + `" && test "$3" = "` + dir + `"`, "x"}},
			want: true,
		},
		{
			name: "non-zero exit",
			cmd:  &CommandCalibrator{Command: "false"},
			want: false,
		},
		{
			name: "missing program",
			cmd:  &CommandCalibrator{Command: filepath.Join(dir, "no-such-program")},
			want: false,
		},
	}

	for _, test := range tests {
		if got := test.cmd.CalibrateToRadiance(InputFile, input, dir); got != test.want {
			t.Errorf("%v: got %v, want %v", test.name, got, test.want)
		}
	}
}

func TestLocateRadianceCommand(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no sh available")
	}
	dir := t.TempDir()
	outDir := t.TempDir()
	input := writeFile(t, dir, "cl5_psv_001.tab", "")

	// the script sees <kind> <path> <outDir> as $1 $2 $3
	cmd := &CommandCalibrator{Command: "sh", Args: []string{"-c", `cp "$2" "$3/cl5_rad_001.tab"`, "x"}}

	got, err := LocateRadiance(input, outDir, cmd)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(outDir, "cl5_rad_001.tab"); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseRadianceCommand(t *testing.T) {
	cmd, err := ParseRadianceCommand("  rad-calibrate --sol 76  ")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Command != "rad-calibrate" || len(cmd.Args) != 2 || cmd.Args[1] != "76" {
		t.Errorf("got %+v", cmd)
	}

	for _, s := range []string{"", " ", "\t\n"} {
		if _, err := ParseRadianceCommand(s); err == nil {
			t.Errorf("%q: expected error", s)
		}
	}
}
