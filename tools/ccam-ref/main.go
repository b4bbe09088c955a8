// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/rditech/ccam-reflectance/spectra"
)

var (
	ccamFile   = flag.String("f", "", "CCAM psv or rad *.tab file")
	directory  = flag.String("d", "", "directory containing .tab files to calibrate")
	listFile   = flag.String("l", "", "file with a list of .tab files to calibrate")
	customFile = flag.String("c", "", "custom calibration target file used for every integration time")
	outDir     = flag.String("o", "", "directory to store the output files")
	refDir     = flag.String("r", "", "directory holding the reference spectra instead of the built-in box")
	labels     = flag.Bool("labels", false, "write a PDS label for each reflectance table")
	plotFormat = flag.String("plot", "", "render a preview of each spectrum: svg or png")
	archiveUrl = flag.String("a", "", "archive outputs to a file:// or gs:// url")
	radCmd     = flag.String("radcmd", os.Getenv("CCAM_RADIANCE_CMD"), "command that calibrates PSV files to radiance")
	cpuProfile = flag.String("cpuprofile", "", "output file for cpu profiling")
)

func printUsage(c *spectra.Calibrator) func() {
	return func() {
		fmt.Fprintf(os.Stderr,
			`Usage: `+os.Args[0]+` [options] (-f <file> | -d <directory> | -l <list-file>)

Relative reflectance calibration of ChemCam passive spectra.

`+c.Ops().Describe()+`

options:
`,
		)
		flag.PrintDefaults()
	}
}

func main() {
	c := &spectra.Calibrator{}
	flag.Usage = printUsage(c)
	flag.Parse()

	var kind spectra.InputType
	var input string
	switch {
	case *ccamFile != "":
		kind, input = spectra.InputFile, *ccamFile
	case *directory != "":
		kind, input = spectra.InputDirectory, *directory
	case *listFile != "":
		kind, input = spectra.InputList, *listFile
	default:
		flag.Usage()
		log.Fatal("Invalid arguments")
	}

	c.CustomTarget = *customFile
	c.OutDir = *outDir
	c.Labels = *labels
	c.PlotFormat = strings.ToLower(*plotFormat)
	switch c.PlotFormat {
	case "", "svg", "png":
	default:
		log.Fatalf("unsupported plot format %q", *plotFormat)
	}
	if *refDir != "" {
		c.References = spectra.DirSource(*refDir)
	}
	if *radCmd != "" {
		cmd, err := spectra.ParseRadianceCommand(*radCmd)
		if err != nil {
			flag.Usage()
			log.Fatal("-radcmd: ", err)
		}
		c.Radiance = cmd
	}
	if *archiveUrl != "" {
		c.Archive = &spectra.Archive{
			URL:         *archiveUrl,
			Credentials: os.Getenv("CCAM_GCS_CREDENTIALS"),
		}
	}

	if err := c.CheckReferences(); err != nil {
		log.Fatal(err, "\ninstall the reference spectra in spectra/sol76 or pass -r <dir>")
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal("could not create cpu profile file: ", err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	report, err := c.Calibrate(context.Background(), kind, input)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("%d calibrated, %d skipped, %d failed\n",
		report.Count(spectra.Calibrated),
		report.Count(spectra.Skipped),
		report.Count(spectra.Failed),
	)
	if err := report.Err(); err != nil {
		pprof.StopCPUProfile()
		log.Fatal(err)
	}
}
