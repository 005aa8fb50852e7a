package stats

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"

	"github.com/pacelog/pacelog/internal/auth"
	"github.com/pacelog/pacelog/internal/telemetry/tracing"
	"github.com/pacelog/pacelog/pkg"
)

// Handler serves the precomputed stats overview. Overviews are cached
// for a short while per user, the dashboard polls this endpoint on
// every focus.
type Handler struct {
	analyzer *Analyzer
	cache    *freecache.Cache
	cacheTTL int // seconds
}

func NewHandler(analyzer *Analyzer, cacheSizeMegabytes, cacheTTLSeconds int) *Handler {
	return &Handler{
		analyzer: analyzer,
		cache:    freecache.NewCache(cacheSizeMegabytes * 1024 * 1024),
		cacheTTL: cacheTTLSeconds,
	}
}

func (handler *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.overview")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	cacheKey := []byte(fmt.Sprintf("overview||%d", userID))
	if cached, err := handler.cache.Get(cacheKey); err == nil {
		span.AddEvent("overview cache hit")
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, cached, http.StatusOK)
		return
	}

	overview, err := handler.analyzer.Overview(ctx, userID)
	if err != nil {
		log.Errorf("stats overview for user %d: %s", userID, err)
		http.Error(w, "failed to get stats overview", http.StatusInternalServerError)
		return
	}

	overviewJson, err := json.Marshal(overview)
	if err != nil {
		log.Errorf("marshal stats overview: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := handler.cache.Set(cacheKey, overviewJson, handler.cacheTTL); err != nil {
		log.Warnf("failed to cache stats overview: %s", err)
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, overviewJson, http.StatusOK)
}

// InvalidateUser drops the cached overview after a write so the next
// dashboard load sees fresh numbers.
func (handler *Handler) InvalidateUser(userID int) {
	handler.cache.Del([]byte(fmt.Sprintf("overview||%d", userID)))
}
