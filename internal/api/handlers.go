package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// errorResponse is the JSON body for error replies.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, errorResponse{Error: err, Message: message})
}

// parseLimit reads the limit query parameter, clamped to [1, maxLimit].
func parseLimit(r *http.Request) int {
	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.archive.GetStats()
	if err != nil {
		s.logger.Error("stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	emails, err := s.archive.ListEmails(parseLimit(r))
	if err != nil {
		s.logger.Error("list messages failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": emails, "count": len(emails)})
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	email, err := s.archive.GetEmail(id)
	if err != nil {
		s.logger.Error("get message failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get message")
		return
	}
	if email == nil {
		writeError(w, http.StatusNotFound, "not_found", "no message with id "+id)
		return
	}
	writeJSON(w, http.StatusOK, email)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "missing q parameter")
		return
	}
	emails, err := s.archive.Search(query, parseLimit(r))
	if err != nil {
		s.logger.Error("search failed", "query", query, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"query": query, "messages": emails, "count": len(emails)})
}

func (s *Server) handleByDomain(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	emails, err := s.archive.EmailsByDomain(domain, parseLimit(r))
	if err != nil {
		s.logger.Error("domain lookup failed", "domain", domain, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "domain lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"domain": domain, "messages": emails, "count": len(emails)})
}

func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "scheduler is not running")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"running":  s.scheduler.IsRunning(),
		"accounts": s.scheduler.Status(),
	})
}

func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "scheduler is not running")
		return
	}
	account := chi.URLParam(r, "account")
	if !s.scheduler.IsScheduled(account) {
		writeError(w, http.StatusNotFound, "not_found", "account not scheduled: "+account)
		return
	}
	if err := s.scheduler.TriggerSync(account); err != nil {
		writeError(w, http.StatusConflict, "conflict", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sync started", "account": account})
}
