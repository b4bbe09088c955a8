// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package spectra

import (
	"bufio"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
)

// IsProductTable reports whether a file name looks like a PSV or RAD table.
func IsProductTable(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, ".tab") &&
		(strings.Contains(lower, "psv") || strings.Contains(lower, "rad"))
}

// CalibrateDirectory calibrates every product table in dir and its
// subdirectories, in name order. Per-file problems end up in the report;
// the returned error is only set when a directory cannot be read.
func (c *Calibrator) CalibrateDirectory(ctx context.Context, dir string) (*Report, error) {
	report := &Report{}
	return report, c.walk(ctx, dir, report)
}

func (c *Calibrator) walk(ctx context.Context, dir string, report *Report) error {
	infos, err := ioutil.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, info := range infos {
		fullPath := filepath.Join(dir, info.Name())
		switch {
		case info.IsDir():
			if err := c.walk(ctx, fullPath, report); err != nil {
				return err
			}
		case IsProductTable(info.Name()):
			report.Add(c.CalibrateFile(ctx, fullPath))
		}
	}
	return nil
}

// CalibrateList calibrates the files named one per line in listFile.
// Blank lines are ignored.
func (c *Calibrator) CalibrateList(ctx context.Context, listFile string) (*Report, error) {
	f, err := os.Open(listFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var files []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			files = append(files, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, name := range files {
		report.Add(c.CalibrateFile(ctx, name))
	}
	return report, nil
}
