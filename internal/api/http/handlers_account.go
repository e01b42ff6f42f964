package apihttp

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sathyapriyan07/metamovies-sub001/internal/auth"
)

type watchlistAddRequest struct {
	ItemID string `json:"itemId"`
}

type platformPreferenceRequest struct {
	Platform string `json:"platform"`
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/watchlist" {
		http.NotFound(w, r)
		return
	}
	user, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, err, "sign in required")
		return
	}
	if s.watchlist == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "watchlist is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		limit, err := parsePositiveInt(r, "limit", defaultListLimit)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
			return
		}
		entries, err := s.watchlist.List(r.Context(), user, limit)
		if err != nil {
			s.logger.Error("watchlist list failed", slog.String("userID", user.ID.String()), slog.String("error", err.Error()))
			writeServiceError(w, err, "watchlist list failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": entries, "count": len(entries)})
	case http.MethodPost:
		var body watchlistAddRequest
		if err := decodeJSONBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		entry, err := s.watchlist.Add(r.Context(), user, body.ItemID)
		if err != nil {
			writeServiceError(w, err, "watchlist add failed")
			return
		}
		s.logger.Info("watchlist item added",
			slog.String("userID", user.ID.String()),
			slog.String("itemID", entry.ItemID),
		)
		writeJSON(w, http.StatusCreated, entry)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleWatchlistItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathParam(r.URL.Path, "/watchlist/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	user, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, err, "sign in required")
		return
	}
	if s.watchlist == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "watchlist is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		present, err := s.watchlist.Contains(r.Context(), user, itemID)
		if err != nil {
			writeServiceError(w, err, "watchlist lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"itemId": itemID, "inWatchlist": present})
	case http.MethodDelete:
		if err := s.watchlist.Remove(r.Context(), user, itemID); err != nil {
			writeServiceError(w, err, "watchlist remove failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handlePlatformPreference stores the platform row a signed-in user last
// selected. An empty platform means "all".
func (s *Server) handlePlatformPreference(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, err, "sign in required")
		return
	}
	if s.preferences == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "preferences are not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		platform, found, err := s.preferences.GetActivePlatform(r.Context(), user.ID)
		if err != nil {
			writeServiceError(w, err, "preferences lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"platform": platform, "saved": found})
	case http.MethodPut:
		var body platformPreferenceRequest
		if err := decodeJSONBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		platform := strings.ToLower(strings.TrimSpace(body.Platform))
		if err := s.preferences.SetActivePlatform(r.Context(), user.ID, platform); err != nil {
			writeServiceError(w, err, "preferences update failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"platform": platform, "saved": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.auth == nil || !s.auth.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "auth is not configured")
		return
	}
	raw, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "bearer token required")
		return
	}
	if err := s.auth.SignOut(r.Context(), raw); err != nil {
		if errors.Is(err, auth.ErrTokenInvalid) {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid token")
			return
		}
		s.logger.Error("sign out failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "sign out failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
