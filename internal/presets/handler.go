package presets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/pacelog/pacelog/internal/activities"
	"github.com/pacelog/pacelog/internal/auth"
	"github.com/pacelog/pacelog/internal/telemetry/metrics"
	"github.com/pacelog/pacelog/internal/telemetry/tracing"
	"github.com/pacelog/pacelog/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=presets_mocks_test.go -package=presets_test

type presetsRepo interface {
	Add(ctx context.Context, userID int, preset Preset) (*Preset, error)
	Get(ctx context.Context, userID, id int) (*Preset, error)
	ListAll(ctx context.Context, userID int) ([]Preset, error)
	Recent(ctx context.Context, userID int, activityType activities.Type) ([]Preset, error)
	Update(ctx context.Context, userID int, preset *Preset) error
	Delete(ctx context.Context, userID, id int) error
	Touch(ctx context.Context, userID, id int, usedAt time.Time) error
}

type DeletePresetResponse struct {
	DeletedID int `json:"deletedId"`
}

type UpdatePresetResponse struct {
	UpdatedID int `json:"updatedId"`
}

type TouchPresetResponse struct {
	TouchedID int `json:"touchedId"`
}

type Handler struct {
	repo           presetsRepo
	metricsManager *metrics.Manager
}

func NewHandler(repo presetsRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.presets.new")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var preset Preset
	if err := json.NewDecoder(r.Body).Decode(&preset); err != nil {
		log.Tracef("new preset, unmarshal json params: %s", err)
		http.Error(w, "add preset failed", http.StatusBadRequest)
		return
	}

	if !preset.Valid() {
		http.Error(w, "error, invalid preset", http.StatusBadRequest)
		return
	}

	if preset.LastUsedAt.IsZero() {
		preset.LastUsedAt = time.Now()
	}

	addedPreset, err := handler.repo.Add(ctx, userID, preset)
	if err != nil {
		log.Errorf("failed to add new preset [%s]: %s", preset.Name, err)
		http.Error(w, "error, failed to add new preset", http.StatusInternalServerError)
		return
	}

	addedJson, err := json.Marshal(addedPreset)
	if err != nil {
		log.Errorf("failed to marshal new preset: %s", err)
		http.Error(w, "error, failed to add new preset", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (handler *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.presets.listall")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	found, err := handler.repo.ListAll(ctx, userID)
	if err != nil {
		log.Errorf("list presets error: %s", err)
		http.Error(w, "failed to get presets", http.StatusInternalServerError)
		return
	}

	foundJson, err := json.Marshal(found)
	if err != nil {
		log.Errorf("marshal presets error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, foundJson, http.StatusOK)
}

// HandleRecent returns the presets the quick log form offers: the last
// used ones of the requested type.
func (handler *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.presets.recent")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	activityType := activities.Type(r.URL.Query().Get("type"))
	if !activityType.IsValid() {
		http.Error(w, "error, invalid type", http.StatusBadRequest)
		return
	}

	found, err := handler.repo.Recent(ctx, userID, activityType)
	if err != nil {
		log.Errorf("recent presets error: %s", err)
		http.Error(w, "failed to get presets", http.StatusInternalServerError)
		return
	}

	foundJson, err := json.Marshal(found)
	if err != nil {
		log.Errorf("marshal presets error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, foundJson, http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.presets.update")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var preset Preset
	if err := json.NewDecoder(r.Body).Decode(&preset); err != nil {
		log.Errorf("update preset, unmarshal json params: %s", err)
		http.Error(w, "update preset failed", http.StatusBadRequest)
		return
	}

	if !preset.Valid() {
		http.Error(w, "error, invalid preset", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(ctx, userID, &preset); err != nil {
		if errors.Is(err, ErrPresetNotFound) {
			http.Error(w, "preset not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update preset [%d]: %s", preset.ID, err)
		http.Error(w, "error, failed to update preset", http.StatusInternalServerError)
		return
	}

	updateRespJson, err := json.Marshal(UpdatePresetResponse{
		UpdatedID: preset.ID,
	})
	if err != nil {
		log.Errorf("failed to marshal update response: %s", err)
		http.Error(w, "failed to marshal update response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(updateRespJson))
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.presets.delete")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, ErrPresetNotFound) {
			http.Error(w, "preset not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete preset %d: %s", id, err)
		http.Error(w, "preset not deleted", http.StatusInternalServerError)
		return
	}

	deleteRespJson, err := json.Marshal(DeletePresetResponse{
		DeletedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

// HandleTouch marks the preset as used now. Called by the logging flow
// whenever a preset pre-fills a new activity.
func (handler *Handler) HandleTouch(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.presets.touch")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Touch(ctx, userID, id, time.Now()); err != nil {
		if errors.Is(err, ErrPresetNotFound) {
			http.Error(w, "preset not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to touch preset %d: %s", id, err)
		http.Error(w, "preset not updated", http.StatusInternalServerError)
		return
	}

	if handler.metricsManager != nil {
		handler.metricsManager.CounterPresetsUsed.Inc()
	}

	touchRespJson, err := json.Marshal(TouchPresetResponse{
		TouchedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal touch response: %s", err)
		http.Error(w, "failed to marshal touch response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(touchRespJson))
}
