// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package spectra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ArchiveObject is one product stored under an archive url.
type ArchiveObject struct {
	Name string `json:"name"`
}

// Archive copies calibrated products to a file:// or gs:// location.
type Archive struct {
	URL         string
	Credentials string
}

// Put copies a local file into the archive, keeping its base name, and
// returns the url it was stored at.
func (a *Archive) Put(ctx context.Context, filename string) (string, error) {
	dest := strings.TrimRight(a.URL, "/") + "/" + filepath.Base(filename)

	in, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := GetArchiveWriter(ctx, dest, a.Credentials)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return dest, nil
}

func (a *Archive) List(ctx context.Context) ([]*ArchiveObject, error) {
	return ListArchive(ctx, a.URL, a.Credentials)
}

func ListArchive(ctx context.Context, urlString, credentials string) (objects []*ArchiveObject, err error) {
	var thisUrl *url.URL
	thisUrl, err = url.Parse(urlString)
	if err != nil {
		return
	}

	switch thisUrl.Scheme {
	case "gs":
		objects, err = ListGcsObjects(
			ctx,
			thisUrl.Host,
			strings.TrimLeft(thisUrl.Path, "/"),
			[]byte(credentials),
		)
	case "file":
		var files []string
		files, err = filepath.Glob(filepath.Join(localPath(thisUrl), "*"))
		sort.Strings(files)
		for _, file := range files {
			if info, statErr := os.Stat(file); statErr == nil && !info.IsDir() {
				objects = append(objects, &ArchiveObject{Name: path.Base(filepath.ToSlash(file))})
			}
		}
	default:
		err = errors.New("bad url scheme")
	}
	return
}

func GetArchiveReader(ctx context.Context, urlString, credentials string) (reader io.ReadCloser, err error) {
	var thisUrl *url.URL
	thisUrl, err = url.Parse(urlString)
	if err != nil {
		return
	}

	switch thisUrl.Scheme {
	case "gs":
		reader, err = CreateGcsReader(
			ctx,
			thisUrl.Host,
			strings.TrimLeft(thisUrl.Path, "/"),
			[]byte(credentials),
		)
	case "file":
		var f *os.File
		if f, err = os.Open(localPath(thisUrl)); err == nil {
			reader = f
		}
	default:
		err = errors.New("bad url scheme")
	}
	return
}

func GetArchiveWriter(ctx context.Context, urlString, credentials string) (writer io.WriteCloser, err error) {
	var thisUrl *url.URL
	thisUrl, err = url.Parse(urlString)
	if err != nil {
		return
	}

	switch thisUrl.Scheme {
	case "gs":
		writer, err = CreateGcsWriter(
			ctx,
			thisUrl.Host,
			strings.TrimLeft(thisUrl.Path, "/"),
			[]byte(credentials),
		)
	case "file":
		p := localPath(thisUrl)
		if err = os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
		var f *os.File
		if f, err = os.Create(p); err == nil {
			writer = f
		}
	default:
		err = errors.New("bad url scheme")
	}
	return
}

// localPath maps file://dir/name and file:///abs/name urls to paths.
func localPath(u *url.URL) string {
	return filepath.Clean(filepath.Join(u.Host, filepath.FromSlash(u.Path)))
}
