package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/salgadospro/api/internal/costing"
	"github.com/salgadospro/api/internal/database"
)

// SettingStore defines the database methods needed by settings handlers.
type SettingStore interface {
	ListSettings(ctx context.Context) ([]database.Setting, error)
	UpsertSetting(ctx context.Context, arg database.UpsertSettingParams) (database.Setting, error)
}

// SettingHandler handles app settings. The key set is closed: unknown keys
// are rejected rather than stored.
type SettingHandler struct {
	store SettingStore
}

// NewSettingHandler creates a new SettingHandler.
func NewSettingHandler(store SettingStore) *SettingHandler {
	return &SettingHandler{store: store}
}

// RegisterRoutes registers settings endpoints on the given Chi router.
func (h *SettingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Put("/", h.Update)
}

type settingsPayload map[string]string

// settingDefaults fills in keys that have never been stored, so a fresh
// database still reports a usable configuration.
func settingDefaults() settingsPayload {
	return settingsPayload{
		database.SettingKeyCMVEstimatedPercent: strconv.Itoa(costing.DefaultCMVPercent),
		database.SettingKeyAppName:             "SalgadosPro",
		database.SettingKeyLogoURL:             "",
	}
}

// List handles GET /settings. Stored values override the defaults.
func (h *SettingHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.ListSettings(r.Context())
	if err != nil {
		log.Printf("ERROR: list settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := settingDefaults()
	for _, s := range settings {
		resp[s.Key] = s.Value
	}
	writeJSON(w, http.StatusOK, resp)
}

// Update handles PUT /settings: upserts the given key/value pairs.
func (h *SettingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no settings provided"})
		return
	}

	for key, value := range req {
		if !isKnownSettingKey(key) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown setting key: " + key})
			return
		}
		if key == database.SettingKeyCMVEstimatedPercent {
			percent, err := decimal.NewFromString(value)
			if err != nil || percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cmv_estimated_percent must be between 0 and 100"})
				return
			}
		}
	}

	resp := settingsPayload{}
	for key, value := range req {
		setting, err := h.store.UpsertSetting(r.Context(), database.UpsertSettingParams{
			Key:   key,
			Value: value,
		})
		if err != nil {
			log.Printf("ERROR: upsert setting %s: %v", key, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		resp[setting.Key] = setting.Value
	}

	writeJSON(w, http.StatusOK, resp)
}

func isKnownSettingKey(key string) bool {
	switch key {
	case database.SettingKeyCMVEstimatedPercent,
		database.SettingKeyAppName,
		database.SettingKeyLogoURL:
		return true
	}
	return false
}
