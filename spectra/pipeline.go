// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package spectra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rditech/ccam-reflectance/label"
	"github.com/rditech/ccam-reflectance/plot"
)

// Product holds everything known about one input file while it moves
// through the calibration ops. Nothing here is shared between files.
type Product struct {
	Input     string
	PsvPath   string
	RadPath   string
	OutPath   string
	LabelPath string
	PlotPath  string
	Archived  []string

	Header          Header
	IntegrationTime float64
	Bucket          int

	ReferenceName string
	Reference     *Series
	Measurement   *Series
	Calibrated    *Series
}

// Calibrator converts PSV or RAD products to relative reflectance tables.
// The zero value uses the built-in reference spectra, writes next to the
// input and has no radiance calibration step.
type Calibrator struct {
	// References resolves the built-in reference spectra and the lab
	// target. Defaults to DefaultReferences.
	References ReferenceSource
	// CustomTarget replaces the built-in reference for every integration
	// time when set.
	CustomTarget string
	// OutDir receives the reflectance tables and a copy of each input.
	OutDir string
	// Radiance produces missing radiance files. Defaults to NoRadiance.
	Radiance RadianceCalibrator
	// Labels enables writing a PDS label derived from the PSV label.
	Labels bool
	// PlotFormat is "svg" or "png" to render a preview of each spectrum.
	PlotFormat string
	// Archive receives copies of every output when set.
	Archive *Archive
	// Cache shares loaded references between calibrators. When nil the
	// calibrator keeps its own cache over References.
	Cache *ReferenceCache

	once sync.Once
	refs *ReferenceCache
}

func (c *Calibrator) references() *ReferenceCache {
	c.once.Do(func() {
		c.refs = c.Cache
		if c.refs == nil {
			c.refs = NewReferenceCache(c.References)
		}
	})
	return c.refs
}

// Ops lists the stages applied to each input file.
func (c *Calibrator) Ops() OpArray {
	ops := OpArray{
		ProductOp{
			Description:      "Locates or produces the radiance input",
			ProductProcessor: c.locateRadiance,
		},
		ProductOp{
			Description:      "Derives integration time from the instrument header",
			ProductProcessor: c.deriveIntegrationTime,
		},
		ProductOp{
			Description:      "Selects the reference dataset for the integration time",
			ProductProcessor: c.selectReference,
		},
		ProductOp{
			Description:      "Reads the radiance measurement",
			ProductProcessor: c.readMeasurement,
		},
		ProductOp{
			Description:      "Computes relative reflectance",
			ProductProcessor: c.computeReflectance,
		},
		ProductOp{
			Description:      "Writes the reflectance table",
			ProductProcessor: c.writeTable,
		},
	}
	if c.Labels {
		ops = append(ops, ProductOp{
			Description:      "Writes the reflectance label",
			ProductProcessor: c.writeLabel,
		})
	}
	if c.PlotFormat != "" {
		ops = append(ops, ProductOp{
			Description:      "Renders the reflectance spectrum",
			ProductProcessor: c.renderPlot,
		})
	}
	if c.Archive != nil {
		ops = append(ops, ProductOp{
			Description:      "Archives the outputs",
			ProductProcessor: c.archive,
		})
	}
	return ops
}

func (c *Calibrator) locateRadiance(ctx context.Context, p *Product) (err error) {
	p.PsvPath = PsvPath(p.Input)
	p.RadPath, err = LocateRadiance(p.Input, c.OutDir, c.Radiance)
	return
}

// the instrument header lives in the PSV product; radiance files made by
// the ground pipeline keep a copy of it
func (c *Calibrator) deriveIntegrationTime(ctx context.Context, p *Product) (err error) {
	source := p.PsvPath
	if !fileExists(source) {
		source = p.RadPath
	}

	if p.Header, err = ReadHeaderFile(source); err != nil {
		return err
	}
	if p.IntegrationTime, err = IntegrationTime(p.Header, source); err != nil {
		return err
	}
	p.Bucket = Bucket(p.IntegrationTime)
	return nil
}

func (c *Calibrator) selectReference(ctx context.Context, p *Product) (err error) {
	if p.ReferenceName, err = SelectReference(p.Bucket, c.CustomTarget); err != nil {
		return err
	}

	refs := c.references()
	if c.CustomTarget != "" {
		p.Reference, err = refs.custom(p.ReferenceName)
	} else {
		p.Reference, err = refs.builtin(p.ReferenceName)
	}
	return
}

func (c *Calibrator) readMeasurement(ctx context.Context, p *Product) (err error) {
	p.Measurement, err = ReadSeriesFile(p.RadPath)
	return
}

func (c *Calibrator) computeReflectance(ctx context.Context, p *Product) error {
	target, err := c.references().builtin(LabTarget)
	if err != nil {
		return err
	}

	values, err := RelativeReflectance(p.Measurement.Value, p.Reference.Value, target.Value)
	if err != nil {
		return err
	}
	p.Calibrated = &Series{
		Wavelength: p.Reference.Wavelength,
		Value:      values,
	}
	return nil
}

func (c *Calibrator) writeTable(ctx context.Context, p *Product) error {
	p.OutPath = ReflectancePath(p.RadPath)
	if c.OutDir != "" {
		if err := os.MkdirAll(c.OutDir, 0755); err != nil {
			return err
		}
		if err := copyFile(p.Input, filepath.Join(c.OutDir, filepath.Base(p.Input))); err != nil {
			return err
		}
		p.OutPath = filepath.Join(c.OutDir, filepath.Base(p.OutPath))
	}
	if filepath.Clean(p.OutPath) == filepath.Clean(p.RadPath) || sameFile(p.OutPath, p.RadPath) {
		return fmt.Errorf("%v has no RAD marker to replace, refusing to overwrite it", p.RadPath)
	}

	return WriteTableFile(p.OutPath, p.Calibrated.Wavelength, p.Calibrated.Value, nil)
}

func (c *Calibrator) writeLabel(ctx context.Context, p *Product) error {
	src, ok := findLabel(p.PsvPath)
	if !ok {
		log.Println("no PSV label found for", p.Input, "- skipping label")
		return nil
	}

	dst := LabelPath(p.OutPath)
	if err := label.TransformFile(src, dst, label.Reflectance); err != nil {
		return err
	}
	p.LabelPath = dst
	return nil
}

func (c *Calibrator) renderPlot(ctx context.Context, p *Product) error {
	ext := "." + strings.ToLower(c.PlotFormat)
	dst := strings.TrimSuffix(p.OutPath, filepath.Ext(p.OutPath)) + ext

	pl, err := plot.Spectrum(filepath.Base(p.OutPath), "Relative reflectance", p.Calibrated.Wavelength, p.Calibrated.Value)
	if err != nil {
		return err
	}
	if err := plot.Save(dst, pl); err != nil {
		return err
	}
	p.PlotPath = dst
	return nil
}

func (c *Calibrator) archive(ctx context.Context, p *Product) error {
	for _, filename := range []string{p.OutPath, p.LabelPath, p.PlotPath} {
		if filename == "" {
			continue
		}
		dest, err := c.Archive.Put(ctx, filename)
		if err != nil {
			return err
		}
		p.Archived = append(p.Archived, dest)
	}
	return nil
}

// LabelPath names the label that accompanies a table.
func LabelPath(table string) string {
	ext := filepath.Ext(table)
	lbl := ".lbl"
	if ext != "" && ext == strings.ToUpper(ext) {
		lbl = ".LBL"
	}
	return strings.TrimSuffix(table, ext) + lbl
}

func findLabel(table string) (string, bool) {
	base := strings.TrimSuffix(table, filepath.Ext(table))
	for _, ext := range []string{filepath.Ext(LabelPath(table)), ".lbl", ".LBL"} {
		if fileExists(base + ext) {
			return base + ext, true
		}
	}
	return "", false
}

func copyFile(src, dst string) error {
	if sameFile(src, dst) {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// CalibrateFile runs every op on one input file and reports the outcome.
func (c *Calibrator) CalibrateFile(ctx context.Context, input string) Result {
	p := &Product{Input: input}
	err := c.Ops().Run(ctx, p)
	r := newResult(p, err)
	switch r.Outcome {
	case Calibrated:
		log.Printf("calibrated %v -> %v (%d ms)\n", input, p.OutPath, p.Bucket)
	case Skipped:
		log.Printf("skipped %v: %v\n", input, err)
	default:
		log.Printf("failed %v: %v\n", input, err)
	}
	return r
}

// Calibrate dispatches on the input type.
func (c *Calibrator) Calibrate(ctx context.Context, kind InputType, path string) (*Report, error) {
	switch kind {
	case InputFile:
		report := &Report{}
		report.Add(c.CalibrateFile(ctx, path))
		return report, nil
	case InputList:
		return c.CalibrateList(ctx, path)
	case InputDirectory:
		return c.CalibrateDirectory(ctx, path)
	}
	return nil, fmt.Errorf("unknown input type %v", kind)
}

// Outcome classifies what happened to one input file.
type Outcome int

const (
	Calibrated Outcome = iota
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Calibrated:
		return "calibrated"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "calibrated":
		*o = Calibrated
	case "skipped":
		*o = Skipped
	case "failed":
		*o = Failed
	default:
		return fmt.Errorf("unknown outcome %q", b)
	}
	return nil
}

// Skippable reports whether err is a per-file condition that a batch
// records and moves past, rather than a failure.
func Skippable(err error) bool {
	return errors.Is(err, ErrMissingHeaderField) ||
		errors.Is(err, ErrUnsupportedIntegrationTime) ||
		errors.Is(err, ErrMissingRadianceInput)
}

type Result struct {
	Input           string   `json:"input"`
	Output          string   `json:"output,omitempty"`
	Label           string   `json:"label,omitempty"`
	Plot            string   `json:"plot,omitempty"`
	Archived        []string `json:"archived,omitempty"`
	IntegrationTime float64  `json:"integration_time,omitempty"`
	Bucket          int      `json:"bucket_ms,omitempty"`
	Outcome         Outcome  `json:"outcome"`
	Reason          string   `json:"reason,omitempty"`
	Err             error    `json:"-"`
}

func newResult(p *Product, err error) Result {
	r := Result{
		Input:    p.Input,
		Label:    p.LabelPath,
		Plot:     p.PlotPath,
		Archived: p.Archived,
		Bucket:   p.Bucket,
		Err:      err,
	}
	if !math.IsNaN(p.IntegrationTime) {
		r.IntegrationTime = p.IntegrationTime
	}

	switch {
	case err == nil:
		r.Outcome = Calibrated
		r.Output = p.OutPath
	case Skippable(err):
		r.Outcome = Skipped
		r.Reason = err.Error()
	default:
		r.Outcome = Failed
		r.Reason = err.Error()
	}
	return r
}

// Report collects the results of a batch in processing order.
type Report struct {
	Results []Result `json:"results"`
}

func (r *Report) Add(result Result) {
	r.Results = append(r.Results, result)
}

func (r *Report) Merge(other *Report) {
	if other != nil {
		r.Results = append(r.Results, other.Results...)
	}
}

func (r *Report) Count(o Outcome) int {
	n := 0
	for _, result := range r.Results {
		if result.Outcome == o {
			n++
		}
	}
	return n
}

// Err returns nil unless some file failed, in which case the error wraps
// the first failure.
func (r *Report) Err() error {
	var first error
	for _, result := range r.Results {
		if result.Outcome == Failed {
			first = result.Err
			if first == nil {
				first = errors.New(result.Reason)
			}
			break
		}
	}
	if first == nil {
		return nil
	}
	return fmt.Errorf("%d of %d files failed, first: %w", r.Count(Failed), len(r.Results), first)
}
