package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/mux"

	"sheriff-scraper/config"
	"sheriff-scraper/models"
	"sheriff-scraper/storage"
	"sheriff-scraper/utils"
)

// Runner triggers one pipeline run for a named source.
type Runner interface {
	Run(ctx context.Context, sourceID string) error
}

// Syncer regenerates the export after a detail update.
type Syncer interface {
	Run() error
}

// Server exposes the pipeline to the outside: a scrape trigger, a
// pass-through read of the export file, and the manual detail-update flow.
// Auth lives in the external API layer in front of this service.
type Server struct {
	runner     Runner
	store      storage.Store
	sync       Syncer
	exportPath string
	logger     *utils.Logger

	// The pipeline assumes a single writer, so every mutating flow — scrape
	// runs and detail updates alike — holds this. A detail update landing
	// between a run's canonical-set snapshot and its upsert would otherwise
	// be overwritten by the stale snapshot.
	runMu sync.Mutex
}

// New creates a Server.
func New(runner Runner, store storage.Store, sync Syncer, exportPath string, logger *utils.Logger) *Server {
	return &Server{
		runner:     runner,
		store:      store,
		sync:       sync,
		exportPath: exportPath,
		logger:     logger,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/scrape/{source}", s.handleScrape).Methods(http.MethodPost)
	r.HandleFunc("/api/listings", s.handleListings).Methods(http.MethodGet)
	r.HandleFunc("/api/listings/detail", s.handleDetail).Methods(http.MethodPut)
	return r
}

type triggerResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	sourceID := mux.Vars(r)["source"]

	s.runMu.Lock()
	err := s.runner.Run(r.Context(), sourceID)
	s.runMu.Unlock()

	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, config.ErrUnknownSource) {
			status = http.StatusBadRequest
		}
		s.logger.Error("[server] scrape %s failed: %v", sourceID, err)
		writeJSON(w, status, triggerResponse{OK: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, triggerResponse{OK: true})
}

// handleListings streams the latest export. A missing file means the
// pipeline has never run and is a 404; an export with only a header row is a
// normal 200 — ran, found nothing.
func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(s.exportPath)
	if os.IsNotExist(err) {
		writeJSON(w, http.StatusNotFound, triggerResponse{OK: false, Error: "no export yet: pipeline has not run"})
		return
	}
	if err != nil {
		s.logger.Error("[server] open export: %v", err)
		writeJSON(w, http.StatusInternalServerError, triggerResponse{OK: false, Error: "export unreadable"})
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/csv")
	if _, err := io.Copy(w, f); err != nil {
		s.logger.Error("[server] stream export: %v", err)
	}
}

type detailRequest struct {
	Address string `json:"address"`
	models.DetailUpdate
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	var req detailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, triggerResponse{OK: false, Error: "invalid JSON body"})
		return
	}
	if req.Address == "" {
		verr := &models.ValidationError{Reason: "address is required"}
		writeJSON(w, http.StatusBadRequest, triggerResponse{OK: false, Error: verr.Error()})
		return
	}
	if req.DetailUpdate.IsEmpty() {
		verr := &models.ValidationError{Reason: "no detail fields provided"}
		writeJSON(w, http.StatusBadRequest, triggerResponse{OK: false, Error: verr.Error()})
		return
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	if err := s.store.UpdateDetail(req.Address, req.DetailUpdate); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrAddressNotFound) {
			status = http.StatusNotFound
		}
		s.logger.Error("[server] detail update %q failed: %v", req.Address, err)
		writeJSON(w, status, triggerResponse{OK: false, Error: err.Error()})
		return
	}

	if err := s.sync.Run(); err != nil {
		s.logger.Error("[server] post-update sync failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, triggerResponse{OK: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, triggerResponse{OK: true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
