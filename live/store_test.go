// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package live

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rditech/ccam-reflectance/spectra"

	"github.com/alicebob/miniredis"
	"github.com/go-redis/redis"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		client.Close()
		s.Close()
	})
	return s, client
}

func TestReportStore(t *testing.T) {
	s, client := newTestRedis(t)
	store := &ReportStore{Redis: client, TTL: time.Hour}

	report := &spectra.Report{}
	report.Add(spectra.Result{Input: "a.tab", Output: "a_ref.tab", Bucket: 34, Outcome: spectra.Calibrated})
	report.Add(spectra.Result{Input: "b.tab", Outcome: spectra.Skipped, Reason: "unsupported integration time"})

	id, err := store.Save(&StoredReport{Type: "list", Path: "files.txt", Report: report})
	if err != nil {
		t.Fatal(err)
	}
	if !s.Exists("ccam report " + id) {
		t.Errorf("keys %v", s.Keys())
	}

	got, err := store.Load(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != id || got.Type != "list" || got.Path != "files.txt" {
		t.Errorf("got %+v", got)
	}
	if len(got.Results) != 2 || got.Results[1].Outcome != spectra.Skipped || got.Results[0].Bucket != 34 {
		t.Errorf("results %+v", got.Results)
	}

	s.FastForward(2 * time.Hour)
	if _, err := store.Load(id); err != ErrReportNotFound {
		t.Errorf("got %v after expiry", err)
	}
}

func TestReportStoreNotFound(t *testing.T) {
	_, client := newTestRedis(t)
	store := &ReportStore{Redis: client, Prefix: "test"}

	if _, err := store.Load("nope"); err != ErrReportNotFound {
		t.Errorf("got %v", err)
	}
}

func TestStatusOrder(t *testing.T) {
	s := &Status{}
	s.SetString("redis", "localhost:6379")
	s.SetString("archive", "file:///tmp/archive")
	s.SetString("redis", "localhost:6380")

	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	want := `[{"key":"redis","value":"localhost:6380"},{"key":"archive","value":"file:///tmp/archive"}]`
	if string(b) != want {
		t.Errorf("got %s", b)
	}
}
