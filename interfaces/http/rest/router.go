package rest

import (
	"net/http"

	"github.com/ajacobm/code-graph-mcp-sub002/application/query"
	"github.com/ajacobm/code-graph-mcp-sub002/interfaces/http/rest/handlers"
	restmiddleware "github.com/ajacobm/code-graph-mcp-sub002/interfaces/http/rest/middleware"
	"github.com/ajacobm/code-graph-mcp-sub002/pkg/auth"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router builds the chi router serving the facade's HTTP surface (§6).
type Router struct {
	facade         *query.Facade
	logger         *zap.Logger
	authRequired   bool
	validator      *auth.JWTValidator
	hubThreshold   int
	allowedOrigins []string
}

// Config controls the router's optional cross-cutting behavior.
type Config struct {
	AuthRequired   bool
	Validator      *auth.JWTValidator
	HubThreshold   int
	AllowedOrigins []string
}

// NewRouter builds a Router against facade.
func NewRouter(facade *query.Facade, logger *zap.Logger, cfg Config) *Router {
	if cfg.HubThreshold <= 0 {
		cfg.HubThreshold = 10
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return &Router{
		facade:         facade,
		logger:         logger,
		authRequired:   cfg.AuthRequired,
		validator:      cfg.Validator,
		hubThreshold:   cfg.HubThreshold,
		allowedOrigins: cfg.AllowedOrigins,
	}
}

// Setup configures and returns the full route tree.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(restmiddleware.Logger(rt.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", rt.health)

	graph := handlers.NewGraphHandler(rt.facade, rt.logger)

	router.Route("/api/graph", func(r chi.Router) {
		if rt.authRequired {
			r.Use(restmiddleware.Authenticate(rt.validator))
		}

		r.Get("/stats", graph.Stats)
		r.Get("/nodes/search", graph.Search)
		r.Get("/nodes/{id}", graph.GetNode)
		r.Post("/traverse", graph.Traverse)
		r.Get("/call-chain/{startId}", graph.CallChain)
		r.Get("/query/{relation}", graph.Query)
		r.Get("/categories/{category}", func(w http.ResponseWriter, req *http.Request) {
			graph.Categories(w, req, rt.hubThreshold)
		})
		r.Get("/seams", graph.Seams)
		r.Post("/subgraph", graph.Subgraph)
		r.Post("/admin/reanalyze", graph.ForceReanalysis)
	})

	return router
}

// health reports liveness per §6: {status, redisReachable, graphReady}.
// redisReachable is always false — this engine has no Redis dependency,
// the field is carried for client contract compatibility only.
// graphReady is true once the facade holds a constructed store, which
// is always true by the time this handler is reachable.
func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","redisReachable":false,"graphReady":true}`))
}
