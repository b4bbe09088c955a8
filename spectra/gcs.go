// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package spectra

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

func newGcsClient(ctx context.Context, credentials []byte) (*storage.Client, error) {
	if len(credentials) == 0 {
		return storage.NewClient(ctx)
	}
	return storage.NewClient(
		ctx,
		option.WithCredentialsJSON(credentials),
	)
}

func ListGcsObjects(ctx context.Context, bucket, prefix string, credentials []byte) ([]*ArchiveObject, error) {
	client, err := newGcsClient(ctx, credentials)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	var objects []*ArchiveObject

	bucketHandle := client.Bucket(bucket)
	it := bucketHandle.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		objAttrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		objects = append(objects, &ArchiveObject{Name: objAttrs.Name})
	}

	return objects, nil
}

type gcsReader struct {
	*storage.Reader
	client *storage.Client
}

func (r *gcsReader) Close() error {
	err := r.Reader.Close()
	if cerr := r.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func CreateGcsReader(ctx context.Context, bucket, name string, credentials []byte) (io.ReadCloser, error) {
	client, err := newGcsClient(ctx, credentials)
	if err != nil {
		return nil, err
	}

	objectReader, err := client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, err
	}
	return &gcsReader{Reader: objectReader, client: client}, nil
}

type gcsWriter struct {
	*storage.Writer
	client *storage.Client
}

func (w *gcsWriter) Close() error {
	err := w.Writer.Close()
	if cerr := w.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func CreateGcsWriter(ctx context.Context, bucket, name string, credentials []byte) (io.WriteCloser, error) {
	client, err := newGcsClient(ctx, credentials)
	if err != nil {
		return nil, err
	}

	objectWriter := client.Bucket(bucket).Object(name).NewWriter(ctx)
	return &gcsWriter{Writer: objectWriter, client: client}, nil
}
