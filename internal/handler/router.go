/*
Package handler provides the HTTP handlers and routing setup for the SpiderLink server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"spiderlink/internal/pkg/auth/jwt"
	"spiderlink/internal/pkg/limiter"
	"spiderlink/internal/pkg/logx"
	"spiderlink/internal/pkg/resp"
)

const (
	AuthRate    = 0.2
	AuthBurst   = 10
	UploadRate  = 0.1
	UploadBurst = 5
	WSRate      = 0.5
	WSBurst     = 10
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// The rate limiters' sweeps stop when ctx is done.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	authLimiter := limiter.NewIPRateLimiter(ctx, "auth", rate.Limit(AuthRate), AuthBurst)
	uploadLimiter := limiter.NewIPRateLimiter(ctx, "upload", rate.Limit(UploadRate), UploadBurst)
	wsLimiter := limiter.NewIPRateLimiter(ctx, "ws", rate.Limit(WSRate), WSBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host {
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)
	r.Use(jwt.IdentityExtractorMiddleware(deps.Config.SessionSecret))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		logx.Debug("Health check endpoint hit")

		data := map[string]any{
			"status":      "ok",
			"service":     "SpiderLink",
			"connections": deps.Hub.Len(),
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/auth", func(auth chi.Router) {
		auth.Use(authLimiter.Middleware)

		auth.Get("/challenge", HandleGetChallenge(deps))
		auth.Post("/verify", HandleVerifyChallenge(deps))
		auth.Post("/signup", HandleSignup(deps))
		auth.Post("/login", HandleLogin(deps))
		auth.Post("/logout", HandleLogout(deps))
		auth.Get("/me", HandleGetUserProfile(deps))
	})

	r.With(uploadLimiter.Middleware).Post("/upload", HandleUpload(deps))
	r.Get("/files/*", HandleDownload(deps))

	r.Get("/ws", HandleWebSocket(deps, wsUpgrader, wsLimiter))

	staticDir := deps.Config.StaticDir
	r.Get("/spiderlink", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(staticDir, "spiderlink.html"))
	})
	r.Handle("/*", http.FileServer(http.Dir(staticDir)))

	return r
}
