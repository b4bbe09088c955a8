// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package live

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rditech/ccam-reflectance/spectra"

	"github.com/gorilla/mux"
)

// CalibrateRequest describes one batch submitted by the web form or a JSON
// client.
type CalibrateRequest struct {
	Type         string `json:"type"`
	Path         string `json:"path"`
	OutDir       string `json:"out_dir"`
	CustomTarget string `json:"custom_target"`
	Labels       bool   `json:"labels"`
}

// Server runs calibration batches for HTTP clients. Batches run one at a
// time.
type Server struct {
	Store      *ReportStore
	References spectra.ReferenceSource
	Radiance   spectra.RadianceCalibrator
	Archive    *spectra.Archive
	PlotFormat string
	Status     *Status

	sync.Mutex
	cacheOnce sync.Once
	cache     *spectra.ReferenceCache
}

// references is shared by every batch so reference files are parsed once
// per server.
func (s *Server) references() *spectra.ReferenceCache {
	s.cacheOnce.Do(func() {
		s.cache = spectra.NewReferenceCache(s.References)
	})
	return s.cache
}

// CheckReferences loads the built-in references into the shared cache and
// reports any that are missing.
func (s *Server) CheckReferences() error {
	return s.calibrator(&CalibrateRequest{}).CheckReferences()
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/calibrate", s.Calibrate).Methods(http.MethodPost)
	router.HandleFunc("/reports/{id}", s.GetReport).Methods(http.MethodGet)
	router.HandleFunc("/archive", s.ListArchive).Methods(http.MethodGet)
	router.HandleFunc("/status", s.GetStatus).Methods(http.MethodGet)
	router.PathPrefix("/").Handler(http.FileServer(WebdataBox))
	return router
}

func (s *Server) calibrator(req *CalibrateRequest) *spectra.Calibrator {
	return &spectra.Calibrator{
		References:   s.References,
		CustomTarget: req.CustomTarget,
		OutDir:       req.OutDir,
		Radiance:     s.Radiance,
		Labels:       req.Labels,
		PlotFormat:   s.PlotFormat,
		Archive:      s.Archive,
		Cache:        s.references(),
	}
}

func parseCalibrateRequest(r *http.Request) (*CalibrateRequest, error) {
	req := &CalibrateRequest{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			return nil, err
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	req.Type = r.FormValue("type")
	req.Path = r.FormValue("path")
	req.OutDir = r.FormValue("out_dir")
	req.CustomTarget = r.FormValue("custom_target")
	switch strings.ToLower(r.FormValue("labels")) {
	case "on", "true", "1":
		req.Labels = true
	}
	return req, nil
}

func (s *Server) Calibrate(w http.ResponseWriter, r *http.Request) {
	req, err := parseCalibrateRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}
	kind, err := spectra.ParseInputType(req.Type)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Printf("calibrating %v %v for %v\n", kind, req.Path, r.RemoteAddr)

	s.Lock()
	report, err := s.calibrator(req).Calibrate(r.Context(), kind, req.Path)
	s.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	stored := &StoredReport{
		Type:    kind.String(),
		Path:    req.Path,
		Created: time.Now().UTC(),
		Report:  report,
	}
	if _, err := s.Store.Save(stored); err != nil {
		log.Println("unable to store report:", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJson(w, http.StatusOK, stored)
}

func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.Store.Load(mux.Vars(r)["id"])
	switch {
	case err == ErrReportNotFound:
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		writeJson(w, http.StatusOK, report)
	}
}

func (s *Server) ListArchive(w http.ResponseWriter, r *http.Request) {
	if s.Archive == nil {
		http.Error(w, "no archive configured", http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	objects, err := s.Archive.List(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if objects == nil {
		objects = []*spectra.ArchiveObject{}
	}
	writeJson(w, http.StatusOK, objects)
}

func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := s.Status
	if status == nil {
		status = &Status{}
	}
	writeJson(w, http.StatusOK, status)
}

func writeJson(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("unable to write response:", err)
	}
}
