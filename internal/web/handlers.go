package web

import (
	"net/http"

	"github.com/fineplay-930/apply/internal/application"
)

type rootResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
}

type healthResponse struct {
	OK bool `json:"ok"`
}

type submitResponse struct {
	Status string `json:"status"`
	SentTo string `json:"sent_to"`
}

// handleRoot reports the service name.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{OK: true, Service: s.cfg.Server.ServiceName})
}

// handleHealth reports liveness. It does not check SendGrid.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{OK: true})
}

// handleSubmit decodes an application and sends it to the operations inbox.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Submit.MaxBodyBytes)

	app, err := application.Decode(r.Body)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	receipt, err := s.service.Submit(r.Context(), app)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{Status: "ok", SentTo: receipt.SentTo})
}
