// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package spectra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var (
	testWavelengths = []float64{240.1, 240.2, 240.3, 240.4}
	testReference   = []float64{5, 0, 2, 4}
	testTarget      = []float64{0.5, 1, 1, 0.25}
	testMeasurement = []float64{10, 0, 0, 8}
	testReflectance = []float64{1, 0, 0, 0.5}
)

// IPBCdivisor values giving each bucket with an ICTdivisor of 1
const (
	ipbc34ms  = "1004520"
	ipbc100ms = "3182520"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	filename := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(filename, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return filename
}

func table(wls, vals []float64) string {
	var b strings.Builder
	for i := range wls {
		fmt.Fprintf(&b, "%v %v\r\n", wls[i], vals[i])
	}
	return b.String()
}

// writeReferences fills dir with every preset and the lab target.
func writeReferences(t *testing.T, dir string) ReferenceSource {
	t.Helper()
	for _, name := range Presets {
		writeFile(t, dir, name, table(testWavelengths, testReference))
	}
	writeFile(t, dir, LabTarget, table(testWavelengths, testTarget))
	return DirSource(dir)
}

// writeProduct writes a PSV file with the given IPBCdivisor and its
// radiance file, returning the PSV path.
func writeProduct(t *testing.T, dir, id, ipbc string) string {
	t.Helper()
	header := ""
	if ipbc != "" {
		header = "\"IPBCdivisor: " + ipbc + "\"\r\n\"ICTdivisor: 1\"\r\n"
	}
	psv := writeFile(t, dir, "cl5_psv_"+id+".tab",
		header+BeginMarker+"\r\n"+table(testWavelengths, []float64{1, 2, 3, 4}))
	writeFile(t, dir, "cl5_rad_"+id+".tab", table(testWavelengths, testMeasurement))
	return psv
}

func expectedTable() string {
	var b strings.Builder
	for i := range testWavelengths {
		b.WriteString(FormatLine(testWavelengths[i], testReflectance[i]))
	}
	return b.String()
}

func readFile(t *testing.T, filename string) string {
	t.Helper()
	b, err := ioutil.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestCalibrateFile(t *testing.T) {
	dir := t.TempDir()
	c := &Calibrator{References: writeReferences(t, t.TempDir())}
	psv := writeProduct(t, dir, "001", ipbc34ms)

	r := c.CalibrateFile(context.Background(), psv)
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	if r.Outcome != Calibrated || r.Bucket != 34 {
		t.Errorf("got %+v", r)
	}

	want := filepath.Join(dir, "cl5_ref_001.tab")
	if r.Output != want {
		t.Errorf("output %v, want %v", r.Output, want)
	}
	first := readFile(t, want)
	if first != expectedTable() {
		t.Errorf("got table\n%q\nwant\n%q", first, expectedTable())
	}

	// running again reproduces the same bytes
	if r := c.CalibrateFile(context.Background(), psv); r.Err != nil {
		t.Fatal(r.Err)
	}
	if second := readFile(t, want); second != first {
		t.Error("second run produced a different table")
	}
}

func TestCalibrateRadianceInput(t *testing.T) {
	dir := t.TempDir()
	c := &Calibrator{References: writeReferences(t, t.TempDir())}
	writeProduct(t, dir, "001", ipbc34ms)

	r := c.CalibrateFile(context.Background(), filepath.Join(dir, "cl5_rad_001.tab"))
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	if readFile(t, filepath.Join(dir, "cl5_ref_001.tab")) != expectedTable() {
		t.Error("unexpected table")
	}
}

func TestCalibrateOutDir(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "out")
	c := &Calibrator{References: writeReferences(t, t.TempDir()), OutDir: outDir}
	psv := writeProduct(t, dir, "001", ipbc34ms)

	r := c.CalibrateFile(context.Background(), psv)
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	if r.Output != filepath.Join(outDir, "cl5_ref_001.tab") {
		t.Errorf("output %v", r.Output)
	}
	if readFile(t, filepath.Join(outDir, "cl5_psv_001.tab")) != readFile(t, psv) {
		t.Error("input was not copied to the output directory")
	}
	if _, err := os.Stat(filepath.Join(dir, "cl5_ref_001.tab")); !os.IsNotExist(err) {
		t.Error("table written next to the input")
	}
}

func TestCalibrateSkips(t *testing.T) {
	refs := t.TempDir()
	c := &Calibrator{References: writeReferences(t, refs)}

	tests := []struct {
		name  string
		setup func(dir string) string
		want  error
	}{
		{
			name: "unsupported integration time",
			setup: func(dir string) string {
				return writeProduct(t, dir, "001", ipbc100ms)
			},
			want: ErrUnsupportedIntegrationTime,
		},
		{
			name: "missing header",
			setup: func(dir string) string {
				return writeProduct(t, dir, "001", "")
			},
			want: ErrMissingHeaderField,
		},
		{
			name: "missing radiance",
			setup: func(dir string) string {
				return writeFile(t, dir, "cl5_psv_001.tab", "IPBCdivisor: 1\r\nICTdivisor: 1\r\n")
			},
			want: ErrMissingRadianceInput,
		},
	}

	for _, test := range tests {
		dir := t.TempDir()
		r := c.CalibrateFile(context.Background(), test.setup(dir))
		if r.Outcome != Skipped || !errors.Is(r.Err, test.want) {
			t.Errorf("%v: got %v %v", test.name, r.Outcome, r.Err)
		}
		if r.Reason == "" {
			t.Errorf("%v: no reason recorded", test.name)
		}
		if _, err := os.Stat(filepath.Join(dir, "cl5_ref_001.tab")); !os.IsNotExist(err) {
			t.Errorf("%v: output written", test.name)
		}
	}
}

func TestCalibrateCustomTarget(t *testing.T) {
	dir := t.TempDir()
	custom := writeFile(t, t.TempDir(), "custom.txt", table(testWavelengths, []float64{10, 10, 10, 10}))
	c := &Calibrator{References: writeReferences(t, t.TempDir()), CustomTarget: custom}

	// a custom target applies to any integration time
	psv := writeProduct(t, dir, "001", ipbc100ms)
	r := c.CalibrateFile(context.Background(), psv)
	if r.Err != nil {
		t.Fatal(r.Err)
	}

	var want strings.Builder
	for i, m := range testMeasurement {
		want.WriteString(FormatLine(testWavelengths[i], m/10*testTarget[i]))
	}
	if got := readFile(t, r.Output); got != want.String() {
		t.Errorf("got\n%q\nwant\n%q", got, want.String())
	}

	// but not to files without a header
	noHeader := writeProduct(t, t.TempDir(), "002", "")
	if r := c.CalibrateFile(context.Background(), noHeader); r.Outcome != Skipped {
		t.Errorf("got %v", r.Outcome)
	}
}

func TestCalibrateLengthMismatch(t *testing.T) {
	dir := t.TempDir()
	c := &Calibrator{References: writeReferences(t, t.TempDir())}
	psv := writeProduct(t, dir, "001", ipbc34ms)
	writeFile(t, dir, "cl5_rad_001.tab", table(testWavelengths[:3], testMeasurement[:3]))

	report, err := c.Calibrate(context.Background(), InputFile, psv)
	if err != nil {
		t.Fatal(err)
	}
	if report.Count(Failed) != 1 {
		t.Fatalf("got %+v", report.Results)
	}
	if err := report.Err(); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("report error %v", err)
	}
}

func TestCalibrateRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	c := &Calibrator{References: writeReferences(t, t.TempDir())}
	content := "IPBCdivisor: " + ipbc34ms + "\r\nICTdivisor: 1\r\n" + BeginMarker + "\r\n" +
		table(testWavelengths, testMeasurement)
	input := writeFile(t, dir, "measurement.tab", content)

	r := c.CalibrateFile(context.Background(), input)
	if r.Outcome != Failed {
		t.Errorf("got %v %v", r.Outcome, r.Err)
	}
	if readFile(t, input) != content {
		t.Error("input was modified")
	}
}

func TestCalibrateExtras(t *testing.T) {
	dir := t.TempDir()
	archiveDir := t.TempDir()
	c := &Calibrator{
		References: writeReferences(t, t.TempDir()),
		Labels:     true,
		PlotFormat: "svg",
		Archive:    &Archive{URL: "file://" + filepath.ToSlash(archiveDir)},
	}
	psv := writeProduct(t, dir, "001", ipbc34ms)

	var lbl strings.Builder
	for i := 0; i < 340; i++ {
		fmt.Fprintf(&lbl, "LINE %03d PSV\r\n", i)
	}
	writeFile(t, dir, "cl5_psv_001.lbl", lbl.String())

	r := c.CalibrateFile(context.Background(), psv)
	if r.Err != nil {
		t.Fatal(r.Err)
	}

	if r.Label != filepath.Join(dir, "cl5_ref_001.lbl") {
		t.Errorf("label %v", r.Label)
	}
	if !strings.Contains(readFile(t, r.Label), "LINE 011 REF") {
		t.Error("label not rewritten")
	}
	if r.Plot != filepath.Join(dir, "cl5_ref_001.svg") {
		t.Errorf("plot %v", r.Plot)
	}
	if !strings.Contains(readFile(t, r.Plot), "<svg") {
		t.Error("plot is not svg")
	}

	if len(r.Archived) != 3 {
		t.Fatalf("archived %v", r.Archived)
	}
	for _, name := range []string{"cl5_ref_001.tab", "cl5_ref_001.lbl", "cl5_ref_001.svg"} {
		if readFile(t, filepath.Join(archiveDir, name)) != readFile(t, filepath.Join(dir, name)) {
			t.Errorf("%v archived copy differs", name)
		}
	}
}

func TestCalibrateLabelMissing(t *testing.T) {
	dir := t.TempDir()
	c := &Calibrator{References: writeReferences(t, t.TempDir()), Labels: true}
	psv := writeProduct(t, dir, "001", ipbc34ms)

	r := c.CalibrateFile(context.Background(), psv)
	if r.Err != nil || r.Label != "" {
		t.Errorf("got %v %v", r.Label, r.Err)
	}
}

func TestCalibrateUnknownType(t *testing.T) {
	if _, err := (&Calibrator{}).Calibrate(context.Background(), InputType(9), "x"); err == nil {
		t.Error("expected error")
	}
}

func TestResultJSON(t *testing.T) {
	dir := t.TempDir()
	c := &Calibrator{References: writeReferences(t, t.TempDir())}
	r := c.CalibrateFile(context.Background(), writeProduct(t, dir, "001", ""))

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(b, []byte(`"outcome":"skipped"`)) {
		t.Errorf("got %s", b)
	}

	var back Result
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back.Outcome != Skipped || back.Reason != r.Reason {
		t.Errorf("got %+v", back)
	}
}

func TestOpsDescribe(t *testing.T) {
	desc := (&Calibrator{}).Ops().Describe()
	if !strings.HasPrefix(desc, "0) Locates or produces the radiance input\n") {
		t.Errorf("got %q", desc)
	}
	if strings.Contains(desc, "label") {
		t.Error("label op listed without Labels")
	}

	full := (&Calibrator{Labels: true, PlotFormat: "png", Archive: &Archive{}}).Ops()
	if len(full) != 9 {
		t.Errorf("got %d ops", len(full))
	}
}

func TestOpArrayStops(t *testing.T) {
	var ran []int
	op := func(i int, err error) Op {
		return ProductOp{
			Description: fmt.Sprint("op ", i),
			ProductProcessor: func(context.Context, *Product) error {
				ran = append(ran, i)
				return err
			},
		}
	}

	boom := errors.New("boom")
	err := OpArray{op(0, nil), op(1, boom), op(2, nil)}.Run(context.Background(), &Product{})
	if !errors.Is(err, boom) || !strings.HasPrefix(err.Error(), "op 1: ") {
		t.Errorf("got %v", err)
	}
	if len(ran) != 2 {
		t.Errorf("ran %v", ran)
	}
}
