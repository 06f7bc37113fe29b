// Package api exposes the engine over HTTP. GET endpoints are public
// read-only observation; POST endpoints require the admin bearer token.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"rialto/internal/activity"
	"rialto/internal/ledger"
	"rialto/internal/model"
	"rialto/internal/store"
	"rialto/internal/stratagem"
	"rialto/internal/ticker"
)

// Server serves engine state and accepts intent triggers.
type Server struct {
	Store     store.Store
	Creator   *activity.Creator
	Ledger    *ledger.Ledger
	StratCrea *stratagem.Creator
	StratProc *stratagem.Processor
	Port      int
	AdminKey  string // Bearer token for POST endpoints. Empty = POST disabled.
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	mux := http.NewServeMux()

	// Public observation endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/citizen/", s.handleCitizen)
	mux.HandleFunc("/api/v1/ledger", s.handleLedger)

	// Admin control plane.
	mux.HandleFunc("/api/v1/intent", s.adminOnly(s.handleIntent))
	mux.HandleFunc("/api/v1/stratagem", s.adminOnly(s.handleStratagem))
	mux.HandleFunc("/api/v1/stratagem/reactivate", s.adminOnly(s.handleReactivate))
	mux.HandleFunc("/api/v1/activity/cancel", s.adminOnly(s.handleCancel))
	mux.HandleFunc("/api/v1/reconcile", s.adminOnly(s.handleReconcile))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// adminOnly gates POST endpoints behind the bearer token.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpError(w, http.StatusMethodNotAllowed, "POST only")
			return
		}
		if s.AdminKey == "" {
			httpError(w, http.StatusForbidden, "admin endpoints disabled")
			return
		}
		auth := r.Header.Get("Authorization")
		if auth != "Bearer "+s.AdminKey {
			httpError(w, http.StatusUnauthorized, "bad token")
			return
		}
		next(w, r)
	}
}

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func httpError(w http.ResponseWriter, status int, msg string) {
	jsonResponse(w, status, map[string]string{"error": msg})
}

// statusForError maps taxonomy errors onto HTTP codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidParameters):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrPreconditionUnmet),
		errors.Is(err, model.ErrNoPathFound),
		errors.Is(err, model.ErrStaleStateConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{
		"service": "rialto",
		"time":    time.Now().UTC(),
	})
}

func (s *Server) handleCitizen(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimPrefix(r.URL.Path, "/api/v1/citizen/")
	if username == "" {
		httpError(w, http.StatusBadRequest, "username required")
		return
	}
	citizen, err := s.Store.GetCitizen(username)
	if err != nil {
		httpError(w, statusForError(err), "citizen not found")
		return
	}
	pending, err := s.Store.PendingByCitizen(username)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "pending activities unavailable")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"citizen": citizen,
		"pending": pending,
	})
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	recent, err := s.Store.RecentTransactions(50)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "ledger unavailable")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"transactions": recent})
}

// handleIntent plans and persists an activity chain for a citizen.
func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	var intent activity.Intent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		httpError(w, http.StatusBadRequest, "invalid intent body")
		return
	}

	plan, err := s.Creator.Plan(intent)
	if err != nil {
		httpError(w, statusForError(err), err.Error())
		return
	}
	if err := ticker.Persist(s.Store, plan); err != nil {
		httpError(w, http.StatusInternalServerError, "plan could not be stored")
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]any{"activities": plan})
}

func (s *Server) handleStratagem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type     model.StratagemType   `json:"type"`
		Executor string                `json:"executor"`
		Target   string                `json:"target"`
		Params   model.StratagemParams `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpError(w, http.StatusBadRequest, "invalid stratagem body")
		return
	}

	st, err := s.StratCrea.Commit(body.Type, body.Executor, body.Params, body.Target)
	if err != nil {
		httpError(w, statusForError(err), err.Error())
		return
	}
	jsonResponse(w, http.StatusCreated, st)
}

func (s *Server) handleReactivate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		httpError(w, http.StatusBadRequest, "stratagem id required")
		return
	}
	st, err := s.StratProc.Reactivate(body.ID)
	if err != nil {
		httpError(w, statusForError(err), err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, st)
}

// handleCancel marks a not-yet-processed activity cancelled. Terminal
// activities are left alone.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		httpError(w, http.StatusBadRequest, "activity id required")
		return
	}
	a, err := s.Store.GetActivity(body.ID)
	if err != nil {
		httpError(w, statusForError(err), "activity not found")
		return
	}
	if a.Status.Terminal() {
		httpError(w, http.StatusConflict, fmt.Sprintf("activity is already %s", a.Status))
		return
	}
	if err := s.Store.SetActivityStatus(a.ID, model.ActivityCancelled); err != nil {
		httpError(w, http.StatusInternalServerError, "cancel failed")
		return
	}
	slog.Info("activity cancelled", "activity", a.ID, "citizen", a.Citizen)
	jsonResponse(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := s.Ledger.Reconcile(0)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, report)
}
