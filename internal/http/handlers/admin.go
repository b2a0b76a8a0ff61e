// Package handlers holds the administrative HTTP surface: read-only
// projections of the store plus maintenance operations (cleanup, backup,
// session eviction). The conversational endpoint lives with the assistant.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/clinic-concierge/internal/session"
	"github.com/wolfman30/clinic-concierge/internal/store"
	"github.com/wolfman30/clinic-concierge/pkg/logging"
)

// AdminHandler serves the /admin routes.
type AdminHandler struct {
	store     *store.Store
	sessions  *session.Store
	logger    *logging.Logger
	startedAt time.Time
}

// NewAdminHandler creates the admin surface over the given stores.
func NewAdminHandler(st *store.Store, sessions *session.Store, logger *logging.Logger) *AdminHandler {
	if st == nil {
		panic("handlers: store required")
	}
	if sessions == nil {
		panic("handlers: session store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{
		store:     st,
		sessions:  sessions,
		logger:    logger.WithComponent("admin"),
		startedAt: time.Now(),
	}
}

// ListPatients handles GET /admin/patients.
func (h *AdminHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients := h.store.GetAllPatients()
	writeJSON(w, http.StatusOK, map[string]any{
		"patients": patients,
		"count":    len(patients),
	})
}

// CreatePatientRequest is the POST /admin/patients payload.
type CreatePatientRequest struct {
	Name      string `json:"name"`
	Age       int    `json:"age"`
	Condition string `json:"condition"`
}

// CreatePatient handles POST /admin/patients.
func (h *AdminHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	id := h.store.CreatePatient(req.Name, req.Age, req.Condition)
	h.logger.Info("patient registered", "patient_id", id)
	writeJSON(w, http.StatusCreated, map[string]string{"patient_id": id})
}

// ListDoctors handles GET /admin/doctors.
func (h *AdminHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors := h.store.GetAllDoctors()
	writeJSON(w, http.StatusOK, map[string]any{
		"doctors": doctors,
		"count":   len(doctors),
	})
}

// ListAppointments handles GET /admin/appointments: active appointments with
// patient and doctor names joined on.
func (h *AdminHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	appointments := h.store.GetAllAppointments(false)
	writeJSON(w, http.StatusOK, map[string]any{
		"appointments": appointments,
		"count":        len(appointments),
	})
}

// ListAllAppointments handles GET /admin/appointments/expired: the same
// projection with expired records included and flagged.
func (h *AdminHandler) ListAllAppointments(w http.ResponseWriter, r *http.Request) {
	appointments := h.store.GetAllAppointments(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"appointments": appointments,
		"count":        len(appointments),
	})
}

// GetStats handles GET /admin/stats.
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats())
}

// GetStatus handles GET /admin/status: a single operational snapshot.
func (h *AdminHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"stats":          h.store.Stats(),
		"data_file":      h.store.DataFileInfo(),
		"sessions": map[string]int{
			"active":   h.sessions.Count(),
			"messages": h.sessions.MessageCount(),
		},
	})
}

// Cleanup handles POST /admin/cleanup: hard-delete every appointment whose
// date and time have passed, regardless of status.
func (h *AdminHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	summary := h.store.CleanupExpired()
	h.logger.Info("cleanup ran", "expired_count", summary.ExpiredCount)
	writeJSON(w, http.StatusOK, summary)
}

// BackupRequest is the optional POST /admin/backup payload.
type BackupRequest struct {
	Filename string `json:"filename"`
}

// Backup handles POST /admin/backup: write a timestamped snapshot of the
// data file.
func (h *AdminHandler) Backup(w http.ResponseWriter, r *http.Request) {
	var req BackupRequest
	if r.Body != nil {
		// Body is optional; decode errors just mean no filename override.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	path, err := h.store.Backup(req.Filename)
	if err != nil {
		h.logger.Error("backup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "backup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"backup_file": path})
}

// CleanupSessions handles POST /admin/sessions/cleanup: evict idle sessions
// immediately instead of waiting for the janitor.
func (h *AdminHandler) CleanupSessions(w http.ResponseWriter, r *http.Request) {
	evicted := h.sessions.EvictIdle()
	writeJSON(w, http.StatusOK, map[string]int{"evicted": evicted})
}

// Health handles GET /health.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
