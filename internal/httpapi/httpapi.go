// Package httpapi exposes the conversation engine over HTTP. One endpoint
// posts chat messages into a session, one lists archived research records,
// and a health endpoint backs deployment probes.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/FranksOps/dossier/internal/conversation"
	"github.com/FranksOps/dossier/internal/storage"
)

// MaxMessageBytes bounds a chat message body.
const MaxMessageBytes = 16 << 10

// DefaultRecordLimit caps an archive listing when the caller gives no limit.
const DefaultRecordLimit = 50

// Handler serves the chat API.
type Handler struct {
	engine *conversation.Engine
	store  storage.Backend
	logger *slog.Logger
}

// NewHandler wires the API around the engine. store backs the archive
// listing and may be nil when no archive is configured.
func NewHandler(engine *conversation.Engine, store storage.Backend, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, store: store, logger: logger}
}

// Router builds the chi router for the API.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/healthz", h.handleHealth)
	r.Post("/api/sessions/{sessionID}/messages", h.handleMessage)
	r.Get("/api/records", h.handleRecords)
	return r
}

type messageRequest struct {
	Text string `json:"text"`
}

type messageResponse struct {
	Reply  string   `json:"reply"`
	URLs   []string `json:"urls,omitempty"`
	Status string   `json:"status"`
	State  string   `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "session id required"})
		return
	}

	var req messageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxMessageBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	reply, err := h.engine.Message(r.Context(), sessionID, req.Text)
	if err != nil {
		h.logger.Error("turn failed", "session", sessionID, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "processing failed"})
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Reply:  reply.Text,
		URLs:   reply.URLs,
		Status: reply.Status,
		State:  string(reply.State),
	})
}

type recordResponse struct {
	ID               string    `json:"id"`
	CompanyName      string    `json:"companyName"`
	WebsiteURL       string    `json:"websiteUrl"`
	RecipientEmail   string    `json:"recipientEmail"`
	WhatTheySell     string    `json:"whatTheySell"`
	WhoTheyTarget    string    `json:"whoTheyTarget"`
	CondensedSummary string    `json:"condensedSummary"`
	PagesScraped     int       `json:"pagesScraped"`
	Delivered        bool      `json:"delivered"`
	CreatedAt        time.Time `json:"createdAt"`
}

// handleRecords lists archived research, filterable by ?company=, ?url=,
// ?delivered= and bounded by ?limit=. Scraped page text is omitted from the
// listing.
func (h *Handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "archive not configured"})
		return
	}

	q := r.URL.Query()
	filter := storage.Filter{
		CompanyName: strings.TrimSpace(q.Get("company")),
		WebsiteURL:  strings.TrimSpace(q.Get("url")),
		Limit:       DefaultRecordLimit,
	}
	if v := q.Get("delivered"); v != "" {
		delivered, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "delivered must be true or false"})
			return
		}
		filter.Delivered = &delivered
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		filter.Limit = n
	}

	recs, err := h.store.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("archive query failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "query failed"})
		return
	}

	out := make([]recordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recordResponse{
			ID:               rec.ID,
			CompanyName:      rec.CompanyName,
			WebsiteURL:       rec.WebsiteURL,
			RecipientEmail:   rec.RecipientEmail,
			WhatTheySell:     rec.WhatTheySell,
			WhoTheyTarget:    rec.WhoTheyTarget,
			CondensedSummary: rec.CondensedSummary,
			PagesScraped:     rec.PagesScraped,
			Delivered:        rec.Delivered,
			CreatedAt:        rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
