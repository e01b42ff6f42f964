package apihttp

import (
	"log/slog"
	"net/http"

	"github.com/sathyapriyan07/metamovies-sub001/internal/auth"
	"github.com/sathyapriyan07/metamovies-sub001/internal/importer"
)

type importRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (s *Server) handleImportDeezer(w http.ResponseWriter, r *http.Request) {
	s.handleImport(w, r, func(body importRequest) (importer.ImportReport, error) {
		return s.importer.ImportAlbums(r.Context(), body.Query, body.Limit)
	})
}

func (s *Server) handleImportTMDB(w http.ResponseWriter, r *http.Request) {
	s.handleImport(w, r, func(body importRequest) (importer.ImportReport, error) {
		return s.importer.ImportMovies(r.Context(), body.Query)
	})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, run func(importRequest) (importer.ImportReport, error)) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, err := auth.RequireAdmin(r.Context())
	if err != nil {
		writeServiceError(w, err, "admin role required")
		return
	}
	if s.importer == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "importer is not configured")
		return
	}
	var body importRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if body.Limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}

	report, err := run(body)
	if err != nil {
		s.logger.Warn("catalog import failed",
			slog.String("path", r.URL.Path),
			slog.String("userID", user.ID.String()),
			slog.String("error", err.Error()),
		)
		writeServiceError(w, err, "import failed")
		return
	}
	status := http.StatusOK
	if report.Failed > 0 && report.Imported == 0 {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, report)
}
