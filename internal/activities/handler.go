package activities

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/pacelog/pacelog/internal/auth"
	"github.com/pacelog/pacelog/internal/feed"
	"github.com/pacelog/pacelog/internal/telemetry/metrics"
	"github.com/pacelog/pacelog/internal/telemetry/tracing"
	"github.com/pacelog/pacelog/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=activities_mocks_test.go -package=activities_test

type activitiesRepo interface {
	Add(ctx context.Context, userID int, activity Activity) (*Activity, error)
	Get(ctx context.Context, userID, id int) (*Activity, error)
	List(ctx context.Context, userID int, params ListParams) (_ []Activity, total int, err error)
	ListAll(ctx context.Context, userID int, params ActivityParams) ([]Activity, error)
	Update(ctx context.Context, userID int, activity *Activity) error
	Delete(ctx context.Context, userID, id int) error
}

type changePublisher interface {
	PublishChange(userID int, eventType feed.EventType, newRecord, oldRecord any)
}

// overviewInvalidator drops cached stats after a write.
type overviewInvalidator interface {
	InvalidateUser(userID int)
}

type DeleteActivityResponse struct {
	DeletedID int `json:"deletedId"`
}

type UpdateActivityResponse struct {
	UpdatedID int `json:"updatedId"`
}

type ListResponse struct {
	Activities []Activity `json:"activities"`
	Total      int        `json:"total"`
}

type Handler struct {
	repo           activitiesRepo
	publisher      changePublisher
	statsCache     overviewInvalidator
	metricsManager *metrics.Manager
}

func NewHandler(
	repo activitiesRepo,
	publisher changePublisher,
	statsCache overviewInvalidator,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		repo:           repo,
		publisher:      publisher,
		statsCache:     statsCache,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) invalidateStats(userID int) {
	if handler.statsCache != nil {
		handler.statsCache.InvalidateUser(userID)
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.new")
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

	var activity Activity
	if err := json.NewDecoder(r.Body).Decode(&activity); err != nil {
		log.Tracef("new activity, unmarshal json params: %s", err)
		http.Error(w, "add activity failed", http.StatusBadRequest)
		return
	}

	activity.Normalize()
	if !activity.Valid() {
		http.Error(w, "error, invalid activity", http.StatusBadRequest)
		return
	}

	addedActivity, err := handler.repo.Add(ctx, userID, activity)
	if err != nil {
		log.Errorf("failed to add new activity [%s]: %s", activity.Type, err)
		http.Error(w, "error, failed to add new activity", http.StatusInternalServerError)
		return
	}

	handler.publisher.PublishChange(userID, feed.EventTypeInsert, addedActivity, nil)
	handler.invalidateStats(userID)
	if handler.metricsManager != nil {
		handler.metricsManager.CounterActivitiesLogged.Inc()
	}

	addedJson, err := json.Marshal(addedActivity)
	if err != nil {
		log.Errorf("failed to marshal new activity: %s", err)
		http.Error(w, "error, failed to add new activity", http.StatusInternalServerError)
		return
	}

	log.Debugf("new activity added: %s", addedJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.get")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	idStr := vars["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	a, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			http.Error(w, "activity not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get activity %d: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	activityJson, err := json.Marshal(a)
	if err != nil {
		log.Errorf("failed to marshal activity: %s", err)
		http.Error(w, "failed to marshal activity", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, activityJson, http.StatusOK)
}

// HandleListAll returns the user's whole collection, date descending.
// This is what sync clients call on load.
func (handler *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.listall")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	params := ActivityParams{}
	if typeParam := r.URL.Query().Get("type"); typeParam != "" {
		params.Type = Type(typeParam)
		if !params.Type.IsValid() {
			http.Error(w, "error, invalid type", http.StatusBadRequest)
			return
		}
	}

	found, err := handler.repo.ListAll(ctx, userID, params)
	if err != nil {
		log.Errorf("list all activities error: %s", err)
		http.Error(w, "failed to get activities", http.StatusInternalServerError)
		return
	}

	foundJson, err := json.Marshal(found)
	if err != nil {
		log.Errorf("marshal activities error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, foundJson, http.StatusOK)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	page, err := strconv.Atoi(vars["page"])
	if err != nil {
		log.Tracef("handle get activities page, from <page> param: %s", err)
		http.Error(w, "parse form error, parameter <page>", http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(vars["size"])
	if err != nil {
		log.Tracef("handle get activities page, from <size> param: %s", err)
		http.Error(w, "parse form error, parameter <size>", http.StatusBadRequest)
		return
	}

	if page < 1 {
		http.Error(w, "invalid page (has to be non-zero value)", http.StatusBadRequest)
		return
	}
	if size < 1 {
		http.Error(w, "invalid size (has to be non-zero value)", http.StatusBadRequest)
		return
	}

	listParams := ListParams{
		ActivityParams: ActivityParams{
			Type: Type(r.URL.Query().Get("type")),
		},
		Page: page,
		Size: size,
	}

	found, total, err := handler.repo.List(ctx, userID, listParams)
	if err != nil {
		log.Errorf("list activities error: %s", err)
		http.Error(w, "failed to get activities", http.StatusInternalServerError)
		return
	}

	listResponseJson, err := json.Marshal(ListResponse{
		Activities: found,
		Total:      total,
	})
	if err != nil {
		log.Errorf("marshal activities error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, listResponseJson, http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.update")
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

	var activity Activity
	if err := json.NewDecoder(r.Body).Decode(&activity); err != nil {
		log.Errorf("update activity, unmarshal json params: %s", err)
		http.Error(w, "update activity failed", http.StatusBadRequest)
		return
	}

	activity.Normalize()
	if !activity.Valid() {
		http.Error(w, "error, invalid activity", http.StatusBadRequest)
		return
	}

	currentActivity, err := handler.repo.Get(ctx, userID, activity.ID)
	if err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			log.Debugf("activity %d not found", activity.ID)
			http.Error(w, "activity not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get activity %d: %s", activity.ID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	log.Debugf("update activity %+v -> %+v", currentActivity, activity)

	if err := handler.repo.Update(ctx, userID, &activity); err != nil {
		log.Errorf("failed to update activity [%d]: %s", activity.ID, err)
		http.Error(w, "error, failed to update activity", http.StatusInternalServerError)
		return
	}

	handler.publisher.PublishChange(userID, feed.EventTypeUpdate, &activity, currentActivity)
	handler.invalidateStats(userID)

	updateRespJson, err := json.Marshal(UpdateActivityResponse{
		UpdatedID: activity.ID,
	})
	if err != nil {
		log.Errorf("failed to marshal update response: %s", err)
		http.Error(w, "failed to marshal update response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(updateRespJson))
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.delete")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	idStr := vars["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	activity, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			// already gone, deleting again is not an error
			log.Debugf("activity %d not found", id)
			deleteRespJson, err := json.Marshal(DeleteActivityResponse{DeletedID: id})
			if err != nil {
				http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
				return
			}
			pkg.WriteJSONResponseOK(w, string(deleteRespJson))
			return
		}
		log.Errorf("failed to get activity %d: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	log.Debugf("deleting activity %+v", activity)

	if err := handler.repo.Delete(ctx, userID, id); err != nil && !errors.Is(err, ErrActivityNotFound) {
		log.Errorf("failed to delete activity %d: %s", id, err)
		http.Error(w, "activity not deleted", http.StatusInternalServerError)
		return
	}

	handler.publisher.PublishChange(userID, feed.EventTypeDelete, nil, activity)
	handler.invalidateStats(userID)

	deleteRespJson, err := json.Marshal(DeleteActivityResponse{
		DeletedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}
