// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package live

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rditech/ccam-reflectance/spectra"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
)

var ErrReportNotFound = errors.New("report not found")

// StoredReport is a batch report as kept in redis.
type StoredReport struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Path    string    `json:"path"`
	Created time.Time `json:"created"`

	*spectra.Report
}

// ReportStore keeps batch reports in redis under "<Prefix> report <id>".
type ReportStore struct {
	Redis  *redis.Client
	Prefix string
	TTL    time.Duration
}

func (s *ReportStore) key(id string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "ccam"
	}
	return prefix + " report " + id
}

// Save assigns r a new id and stores it.
func (s *ReportStore) Save(r *StoredReport) (string, error) {
	r.ID = uuid.New().String()
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	if err := s.Redis.Set(s.key(r.ID), b, s.TTL).Err(); err != nil {
		return "", err
	}
	return r.ID, nil
}

func (s *ReportStore) Load(id string) (*StoredReport, error) {
	b, err := s.Redis.Get(s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}

	r := &StoredReport{}
	if err := json.Unmarshal(b, r); err != nil {
		return nil, err
	}
	return r, nil
}
