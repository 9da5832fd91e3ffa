package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trusteelab/vpass/internal/verify/service"
	"github.com/trusteelab/vpass/internal/verify/store"
	"github.com/trusteelab/vpass/pkg/httpx"
	"github.com/trusteelab/vpass/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	SessionService *service.SessionService

	// ServiceCredentialHash gates the S2S identity endpoint. Empty means
	// the endpoint is not registered at all.
	ServiceCredentialHash string
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerVerifications()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerVerifications() {
	handler := &VerificationHandler{Sessions: r.SessionService}

	// POST /verifications - strict limit by IP (session creation)
	r.Mux.Handle("POST /v1/verifications",
		httpx.Chain(http.HandlerFunc(handler.HandleInitiate),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /challenge - strict limit by IP (OTP re-issue)
	r.Mux.Handle("POST /v1/verifications/{id}/challenge",
		httpx.Chain(http.HandlerFunc(handler.HandleChallenge),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /confirm - strict limit by IP + session to slow per-session
	// brute force independently of the attempt counter
	r.Mux.Handle("POST /v1/verifications/{id}/confirm",
		httpx.Chain(http.HandlerFunc(handler.HandleConfirm),
			httpx.RateLimitByIPAndPathValue(httpx.StrictLimit, "id"),
		),
	)

	// GET /verifications/{id} - lenient limit (polling endpoint)
	r.Mux.Handle("GET /v1/verifications/{id}",
		httpx.Chain(http.HandlerFunc(handler.HandleStatus),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// GET /identity - S2S only, moderate limit
	if r.ServiceCredentialHash != "" {
		r.Mux.Handle("GET /v1/verifications/{id}/identity",
			httpx.Chain(http.HandlerFunc(handler.HandleIdentity),
				httpx.RateLimitByIP(httpx.ModerateLimit),
				httpx.RequireServiceToken(r.ServiceCredentialHash),
			),
		)
	}
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
	r.Mux.Handle("GET /metrics", promhttp.Handler())
}
