package goals

import (
	"context"
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/pacelog/pacelog/internal/auth"
	"github.com/pacelog/pacelog/internal/telemetry/tracing"
	"github.com/pacelog/pacelog/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=goals_mocks_test.go -package=goals_test

type goalsRepo interface {
	ListAll(ctx context.Context, userID int) ([]Goal, error)
	Upsert(ctx context.Context, userID int, goalsToSave []Goal) error
}

// overviewInvalidator drops cached stats after a write.
type overviewInvalidator interface {
	InvalidateUser(userID int)
}

type SaveGoalsResponse struct {
	Saved int `json:"saved"`
}

type Handler struct {
	repo       goalsRepo
	statsCache overviewInvalidator
}

func NewHandler(repo goalsRepo, statsCache overviewInvalidator) *Handler {
	return &Handler{
		repo:       repo,
		statsCache: statsCache,
	}
}

func (handler *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.goals.listall")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	found, err := handler.repo.ListAll(ctx, userID)
	if err != nil {
		log.Errorf("list goals error: %s", err)
		http.Error(w, "failed to get goals", http.StatusInternalServerError)
		return
	}

	foundJson, err := json.Marshal(found)
	if err != nil {
		log.Errorf("marshal goals error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, foundJson, http.StatusOK)
}

// HandleSave upserts the whole goals form at once.
func (handler *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.goals.save")
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

	var goalsToSave []Goal
	if err := json.NewDecoder(r.Body).Decode(&goalsToSave); err != nil {
		log.Tracef("save goals, unmarshal json params: %s", err)
		http.Error(w, "save goals failed", http.StatusBadRequest)
		return
	}

	for i := range goalsToSave {
		if !goalsToSave[i].Valid() {
			http.Error(w, "error, invalid goal", http.StatusBadRequest)
			return
		}
	}

	if err := handler.repo.Upsert(ctx, userID, goalsToSave); err != nil {
		log.Errorf("failed to save goals: %s", err)
		http.Error(w, "error, failed to save goals", http.StatusInternalServerError)
		return
	}

	if handler.statsCache != nil {
		handler.statsCache.InvalidateUser(userID)
	}

	saveRespJson, err := json.Marshal(SaveGoalsResponse{
		Saved: len(goalsToSave),
	})
	if err != nil {
		log.Errorf("failed to marshal save goals response: %s", err)
		http.Error(w, "failed to marshal save goals response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(saveRespJson))
}
