package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Pinger reports whether a dependency such as the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type RouterOptions struct {
	AuthHandler *AuthHandler
	UserHandler *UserHandler
	Local       CredentialVerifier
	Bearer      CredentialVerifier
	// GoogleEnabled mounts POST /auth/google.
	GoogleEnabled      bool
	AllowedOrigins     []string
	RateLimitPerMinute int
	DB                 Pinger
	Logger             zerolog.Logger
}

func NewHandler(opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	allowed := opts.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if opts.DB != nil {
			if err := opts.DB.PingContext(r.Context()); err != nil {
				hlog.FromRequest(r).Warn().Err(err).Msg("database not ready")
				respondError(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Method("GET", "/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Group(func(r chi.Router) {
		if opts.RateLimitPerMinute > 0 {
			r.Use(httprate.LimitByIP(opts.RateLimitPerMinute, time.Minute))
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", opts.AuthHandler.Register)
			r.With(Guard(opts.Local)).Post("/login", opts.AuthHandler.Login)
			r.Post("/refresh", opts.AuthHandler.Refresh)
			r.With(Guard(opts.Bearer)).Post("/logout", opts.AuthHandler.Logout)
			if opts.GoogleEnabled {
				r.Post("/google", opts.AuthHandler.GoogleLogin)
			}
		})

		r.Route("/api", func(r chi.Router) {
			r.Use(Guard(opts.Bearer))
			r.Get("/me", opts.UserHandler.GetMe)
		})
	})

	return r
}
