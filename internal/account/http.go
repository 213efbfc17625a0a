package account

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/k9ert/rbac-poc/internal/record"
	"github.com/k9ert/rbac-poc/internal/session"
)

type Handler struct {
	store  *record.Store
	logger *log.Logger
}

func NewHandler(store *record.Store, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{store: store, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/api/accounts", h.List)
	r.Post("/api/accounts", h.Create)
	r.Get("/api/accounts/{id}", h.Get)
	r.Put("/api/accounts/{id}", h.Update)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg})
}

// decodeBody accepts an absent body as an empty object; everything else
// must be a JSON object.
func decodeBody(r *http.Request) (map[string]any, error) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, nil
}

func stringField(rec record.Record, key string) string {
	s, _ := rec[key].(string)
	return s
}

// GET /api/accounts
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.List()
	if err != nil {
		h.logger.Printf("[accounts] list: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to read accounts",
			"message": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    accounts,
		"count":   len(accounts),
		"user":    session.EmailFromContext(r.Context()),
	})
}

// POST /api/accounts
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	rec := record.Scrub(body)
	if stringField(rec, "name") == "" {
		rec["name"] = "Unnamed Account"
	}
	if _, ok := rec["email"]; !ok {
		rec["email"] = ""
	}
	if stringField(rec, "status") == "" {
		rec["status"] = "active"
	}

	// Server stamps are applied last and always win.
	id := uuid.NewString()
	rec["id"] = id
	rec["createdAt"] = time.Now().UTC().Format(time.RFC3339)
	rec["createdBy"] = session.EmailFromContext(r.Context())

	if err := h.store.Put(id, rec); err != nil {
		h.logger.Printf("[accounts] create: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to create account",
			"message": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"data":    rec,
		"message": "Account created successfully",
	})
}

// GET /api/accounts/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) || errors.Is(err, record.ErrInvalidID) {
			writeErr(w, http.StatusNotFound, "Account not found")
			return
		}
		h.logger.Printf("[accounts] get %s: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to read account",
			"message": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": rec})
}

// PUT /api/accounts/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) || errors.Is(err, record.ErrInvalidID) {
			writeErr(w, http.StatusNotFound, "Account not found")
			return
		}
		h.logger.Printf("[accounts] update %s: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to update account",
			"message": err.Error(),
		})
		return
	}

	body, err := decodeBody(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	for k, v := range record.Scrub(body) {
		existing[k] = v
	}
	existing["id"] = id
	existing["updatedAt"] = time.Now().UTC().Format(time.RFC3339)
	existing["updatedBy"] = session.EmailFromContext(r.Context())

	if err := h.store.Put(id, existing); err != nil {
		h.logger.Printf("[accounts] update %s: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to update account",
			"message": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    existing,
		"message": "Account updated successfully",
	})
}
