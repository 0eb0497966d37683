package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"card-quiz/internal/app"
	"card-quiz/internal/domain"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// MaxRunBody caps the size of a submitted run.
const MaxRunBody = 10 << 10

// AdminPasswordHeader carries the admin password on admin routes.
const AdminPasswordHeader = "X-Admin-Password"

// Handler serves the collector over HTTP. Devices use the ingest router;
// people use the web router.
type Handler struct {
	collector     *app.Collector
	adminPassword string
	ws            *WSHandler
}

func NewHandler(collector *app.Collector, adminPassword string) *Handler {
	return &Handler{
		collector:     collector,
		adminPassword: adminPassword,
		ws:            NewWSHandler(collector),
	}
}

// IngestRouter accepts runs from devices.
func (h *Handler) IngestRouter() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/add", h.addRun).Methods(http.MethodPost)
	r.Use(requestLogger("ingest"))
	return r
}

// WebRouter serves leaderboard reads, the live stream and admin operations.
func (h *Handler) WebRouter() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard", h.leaderboard).Methods(http.MethodGet)
	r.HandleFunc("/ws", h.ws.ServeWS)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(h.requireAdmin)
	admin.HandleFunc("/answer-key", h.getAnswerKey).Methods(http.MethodGet)
	admin.HandleFunc("/answer-key", h.putAnswerKey).Methods(http.MethodPut)
	admin.HandleFunc("/reset", h.reset).Methods(http.MethodPost)

	r.Use(requestLogger("web"))
	return r
}

type statusResponse struct {
	Status   string                   `json:"status"`
	Message  string                   `json:"message,omitempty"`
	Accepted *bool                    `json:"accepted,omitempty"`
	Entry    *domain.LeaderboardEntry `json:"entry,omitempty"`
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) addRun(w http.ResponseWriter, r *http.Request) {
	var payload runPayload
	if err := decodeJSON(w, r, MaxRunBody, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	run, err := payload.run()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.collector.Submit(r.Context(), run)
	switch {
	case errors.Is(err, domain.ErrInvalidRun):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Msg("submit run")
		writeError(w, http.StatusInternalServerError, "could not store run")
		return
	}
	accepted := res.Stored
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Accepted: &accepted, Entry: &res.Entry})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	category, err := categoryParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.collector.Leaderboard(category))
}

func (h *Handler) getAnswerKey(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.collector.AnswerKey())
}

func (h *Handler) putAnswerKey(w http.ResponseWriter, r *http.Request) {
	var key domain.AnswerKey
	if err := decodeJSON(w, r, 64<<10, &key); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if key.Categories == nil {
		key.Categories = map[domain.CategoryID]domain.Answers{}
	}
	saved, err := h.collector.SaveAnswerKey(r.Context(), key)
	switch {
	case errors.Is(err, domain.ErrInvalidAnswerKey), errors.Is(err, domain.ErrInvalidAnswer), errors.Is(err, domain.ErrInvalidQuestion):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Msg("save answer key")
		writeError(w, http.StatusInternalServerError, "could not save answer key")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.collector.Reset(r.Context()); err != nil {
		log.Error().Err(err).Msg("reset leaderboard")
		writeError(w, http.StatusInternalServerError, "could not reset leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// requireAdmin rejects requests without the admin password. An empty
// configured password disables the admin routes.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(AdminPasswordHeader)
		if h.adminPassword == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.adminPassword)) != 1 {
			log.Warn().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("admin request rejected")
			writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func categoryParam(r *http.Request) (domain.CategoryID, error) {
	raw := r.URL.Query().Get("category")
	if raw == "" {
		return domain.CategoryUnassigned, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || (n != 0 && !domain.CategoryID(n).Valid()) || n > 255 {
		return 0, fmt.Errorf("unknown category %q", raw)
	}
	return domain.CategoryID(n), nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("body exceeds %d bytes", limit)
		}
		return fmt.Errorf("invalid JSON: %v", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid JSON: trailing data")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, statusResponse{Status: "error", Message: msg})
}
