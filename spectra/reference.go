// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package spectra

import (
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gobuffalo/packr"
)

var (
	ErrUnsupportedIntegrationTime = errors.New("unsupported integration time")
	ErrMissingReference           = errors.New("missing reference spectrum")
)

// Cosine-corrected reference spectra of calibration target 11 taken on sol
// 76, one per supported integration time bucket in milliseconds.
var Presets = map[int]string{
	7:    "CL0_404238481PSV_F0050104CCAM02076P1.TXT.RAD.cor.7ms.txt.cos",
	34:   "CL0_404238492PSV_F0050104CCAM02076P1.TXT.RAD.cor.34ms.txt.cos",
	404:  "CL9_404238503PSV_F0050104CCAM02076P1.TXT.RAD.cor.404ms.txt.cos",
	5004: "CL9_404238538PSV_F0050104CCAM02076P1.TXT.RAD.cor.5004ms.txt.cos",
}

// LabTarget is the laboratory bidirectional reflectance spectrum of target
// 11 used to rescale every ratio.
const LabTarget = "Target11_60_95.txt.conv"

// ReferenceSource resolves built-in reference files by name. packr.Box
// satisfies it.
type ReferenceSource interface {
	Find(name string) ([]byte, error)
}

var DefaultReferences ReferenceSource = packr.NewBox("./sol76")

// DirSource looks up reference files in a directory on disk.
type DirSource string

func (d DirSource) Find(name string) ([]byte, error) {
	return ioutil.ReadFile(filepath.Join(string(d), name))
}

// SelectReference picks the reference file for an integration time bucket.
// A custom path wins for every bucket, supported or not.
func SelectReference(bucket int, custom string) (string, error) {
	if custom != "" {
		return custom, nil
	}

	name, ok := Presets[bucket]
	if !ok {
		log.Println("error - integration time in input file is not 7, 34, 404, or 5004.")
		return "", fmt.Errorf("%d ms: %w", bucket, ErrUnsupportedIntegrationTime)
	}
	return name, nil
}

// CheckReferences loads every built-in reference the calibrator can need,
// so a missing data file is reported once instead of for every input.
func (c *Calibrator) CheckReferences() error {
	names := []string{LabTarget}
	if c.CustomTarget == "" {
		var buckets []int
		for bucket := range Presets {
			buckets = append(buckets, bucket)
		}
		sort.Ints(buckets)
		for _, bucket := range buckets {
			names = append(names, Presets[bucket])
		}
	}

	var missing []string
	for _, name := range names {
		if _, err := c.references().builtin(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingReference, strings.Join(missing, ", "))
	}
	return nil
}

// ReferenceCache holds parsed reference spectra so each file is read once.
// Entries are shared between products and must be treated as read only.
// Custom files are keyed by path, size and modification time so an edited
// file is read again.
type ReferenceCache struct {
	sync.Mutex
	source ReferenceSource
	series map[string]*Series
}

// NewReferenceCache caches lookups in source, DefaultReferences when nil.
func NewReferenceCache(source ReferenceSource) *ReferenceCache {
	if source == nil {
		source = DefaultReferences
	}
	return &ReferenceCache{
		source: source,
		series: make(map[string]*Series),
	}
}

// builtin loads a named file from the reference source.
func (c *ReferenceCache) builtin(name string) (*Series, error) {
	return c.load("builtin:"+name, func() ([]byte, error) {
		return c.source.Find(name)
	})
}

// custom loads a reference file from disk.
func (c *ReferenceCache) custom(filename string) (*Series, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("reading reference %v: %w", filename, err)
	}
	key := fmt.Sprintf("file:%v:%d:%d", filename, info.Size(), info.ModTime().UnixNano())
	return c.load(key, func() ([]byte, error) {
		return ioutil.ReadFile(filename)
	})
}

func (c *ReferenceCache) load(key string, read func() ([]byte, error)) (*Series, error) {
	c.Lock()
	defer c.Unlock()

	if s, ok := c.series[key]; ok {
		return s, nil
	}

	b, err := read()
	if err != nil {
		return nil, fmt.Errorf("reading reference %v: %w", key, err)
	}
	s, err := ReadSeriesBytes(b)
	if err != nil {
		return nil, fmt.Errorf("reading reference %v: %w", key, err)
	}

	c.series[key] = s
	return s, nil
}
