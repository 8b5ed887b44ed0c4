package health

import (
	"context"
	"net/http"
	"time"

	httputil "fleetlink/pkg/http"
	"fleetlink/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const checkTimeout = 2 * time.Second

type Response struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Cache    string `json:"cache,omitempty"`
}

// Check probes one dependency. A nil Check means the dependency is not
// configured.
type Check func(ctx context.Context) error

func MongoCheck(client *mongo.Client) Check {
	if client == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}
}

func RedisCheck(client *redis.Client) Check {
	if client == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

type Handler struct {
	database Check
	cache    Check
	log      *logger.Logger
}

func NewHandler(database, cache Check, log *logger.Logger) *Handler {
	return &Handler{
		database: database,
		cache:    cache,
		log:      log,
	}
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	httputil.WriteJSON(w, http.StatusOK, Response{Status: "ok"})
}

// Ready fails only on the database. The catalog cache is optional, so its
// state is reported without affecting the status code.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := Response{Status: "ready", Database: "ok", Cache: "disabled"}

	if h.cache != nil {
		resp.Cache = "ok"
		if err := h.cache(ctx); err != nil {
			h.log.Warn("Cache health check failed", "error", err)
			resp.Cache = "error"
		}
	}

	if h.database == nil {
		resp.Status, resp.Database = "unavailable", "not configured"
		httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	if err := h.database(ctx); err != nil {
		h.log.Error("Database health check failed",
			"error", err,
			"path", r.URL.Path,
		)
		resp.Status, resp.Database = "unavailable", "error"
		httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
