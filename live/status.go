// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package live

import (
	"encoding/json"
)

// Status is an ordered set of string settings reported by the server.
type Status struct {
	Keys       []string
	StringData map[string]string
}

func (s *Status) SetString(key, value string) {
	if s.StringData == nil {
		s.StringData = make(map[string]string)
	}
	if _, ok := s.StringData[key]; !ok {
		s.Keys = append(s.Keys, key)
	}
	s.StringData[key] = value
}

type statusEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// MarshalJSON keeps the settings in the order they were first set.
func (s *Status) MarshalJSON() ([]byte, error) {
	entries := make([]statusEntry, 0, len(s.Keys))
	for _, k := range s.Keys {
		entries = append(entries, statusEntry{Key: k, Value: s.StringData[k]})
	}
	return json.Marshal(entries)
}
