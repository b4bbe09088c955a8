// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package plot

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"
)

const (
	Width  = 6 * vg.Inch
	Height = 3.5 * vg.Inch
)

// Spectrum builds a line plot of values against wavelength in nm.
func Spectrum(title, yLabel string, wavelengths, values []float64) (*plot.Plot, error) {
	if len(wavelengths) != len(values) {
		return nil, fmt.Errorf("%d wavelengths for %d values", len(wavelengths), len(values))
	}
	if len(values) == 0 {
		return nil, errors.New("empty spectrum")
	}

	p, err := plot.New()
	if err != nil {
		return nil, err
	}
	p.Title.Text = title
	p.X.Label.Text = "Wavelength (nm)"
	p.Y.Label.Text = yLabel
	p.X.Tick.Marker = RollTicks{NSuggestedTicks: 6}
	p.Y.Tick.Marker = RollTicks{}
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(values))
	for i := range values {
		pts[i].X = wavelengths[i]
		pts[i].Y = values[i]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Width = vg.Points(0.75)
	line.LineStyle.Color = color.RGBA{B: 160, A: 255}
	p.Add(line)

	// a flat spectrum, e.g. all zero ratios, still needs a drawable range
	if p.Y.Min == p.Y.Max {
		p.Y.Min--
		p.Y.Max++
	}
	if p.X.Min == p.X.Max {
		p.X.Min--
		p.X.Max++
	}

	return p, nil
}

func WriteSVG(w io.Writer, p *plot.Plot) error {
	svg := vgsvg.New(Width, Height)
	p.Draw(draw.New(svg))
	_, err := svg.WriteTo(w)
	return err
}

func WritePNG(w io.Writer, p *plot.Plot) error {
	img := vgimg.New(Width, Height)
	p.Draw(draw.New(img))
	_, err := vgimg.PngCanvas{Canvas: img}.WriteTo(w)
	return err
}

// Save writes p to filename as SVG or PNG depending on the extension.
func Save(filename string, p *plot.Plot) error {
	var write func(io.Writer, *plot.Plot) error
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".svg":
		write = WriteSVG
	case ".png":
		write = WritePNG
	default:
		return fmt.Errorf("unsupported plot format %q", ext)
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := write(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
