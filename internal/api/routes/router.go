package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/zatekoja/caretriage/internal/api/handlers"
	"github.com/zatekoja/caretriage/internal/api/middleware"
	"github.com/zatekoja/caretriage/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	caseHandler    *handlers.CaseHandler
	streamHandler  *handlers.StreamHandler
	metrics        *observability.Metrics
	allowedOrigins []string
}

// NewRouter creates a new router. streamHandler may be nil when no event bus is configured.
func NewRouter(
	caseHandler *handlers.CaseHandler,
	streamHandler *handlers.StreamHandler,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		caseHandler:    caseHandler,
		streamHandler:  streamHandler,
		metrics:        metrics,
		allowedOrigins: allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.CORSMiddleware(r.allowedOrigins))
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.ObservabilityMiddleware(r.metrics))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(chimw.Recoverer)

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.Route("/api/cases", func(cr chi.Router) {
		cr.Post("/", r.caseHandler.SubmitCase)
		cr.Post("/batch", r.caseHandler.SubmitBatch)
		cr.Get("/review", r.caseHandler.ListReviewQueue)
		cr.Get("/{caseID}", r.caseHandler.GetCase)
	})

	if r.streamHandler != nil {
		mux.Get("/api/stream/cases", r.streamHandler.StreamCases)
		mux.Get("/api/stream/review", r.streamHandler.StreamReview)
	}

	return mux
}
