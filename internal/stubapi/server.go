// Package stubapi is a self-contained stub backend for local development: the
// full REST surface the client talks to, plus the per-chat WebSocket endpoint.
// All state lives in memory and resets on restart.
package stubapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/Esmakirs9082/chat-sub000/internal/config"
	"github.com/Esmakirs9082/chat-sub000/internal/constants"
)

type contextKey string

const userIDKey contextKey = "userID"

type Server struct {
	router    *chi.Mux
	state     *state
	tokens    *tokenService
	responder Responder
	logger    *slog.Logger
}

func NewServer(cfg *config.Config) *Server {
	s := &Server{
		state:  newState(),
		tokens: newTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL),
		logger: slog.Default(),
	}

	if cfg.AI.OpenAIKey != "" {
		s.responder = NewOpenAIResponder(cfg.AI.OpenAIKey, cfg.AI.Model)
	} else {
		s.responder = CannedResponder{}
	}

	authLimiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, constants.ErrCodeRateLimited, "Too many requests, slow down")
		}),
	)
	messageLimiter := httprate.Limit(60, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, constants.ErrCodeRateLimited, "Sending too fast")
		}),
	)

	r := chi.NewRouter()
	r.Use(slogRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(maxBodySizeMiddleware(1 << 20)) // 1 MB

		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter).Post("/register", s.handleRegister)
			r.With(authLimiter).Post("/login", s.handleLogin)
			r.With(authLimiter).Post("/refresh", s.handleRefresh)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/logout", s.handleLogout)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Route("/characters", func(r chi.Router) {
				r.Get("/", s.handleListCharacters)
				r.Post("/", s.handleCreateCharacter)
				r.Patch("/{id}", s.handleUpdateCharacter)
				r.Delete("/{id}", s.handleDeleteCharacter)
			})

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", s.handleListChats)
				r.Post("/", s.handleCreateChat)
				r.Delete("/{id}", s.handleDeleteChat)
				r.Get("/{id}/messages", s.handleListMessages)
				r.With(messageLimiter).Post("/{id}/messages", s.handlePostMessage)
			})

			r.Get("/settings", s.handleGetSettings)
			r.Put("/settings", s.handlePutSettings)

			r.Route("/subscriptions", func(r chi.Router) {
				r.Get("/me", s.handleGetSubscription)
				r.Get("/plans", s.handleListPlans)
				r.Post("/", s.handleSubscribe)
				r.Post("/cancel", s.handleCancelSubscription)
			})

			r.Post("/uploads", s.handleUpload)
		})
	})

	r.Get("/ws/chats/{id}", s.handleChatSocket)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.authenticateRequest(r)
		if !ok {
			unauthorized(w, "Invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticateRequest resolves the bearer token from the Authorization header,
// falling back to the token query parameter for WebSocket dials from browsers.
func (s *Server) authenticateRequest(r *http.Request) (string, bool) {
	token := ""
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return "", false
		}
		token = parts[1]
	} else {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return "", false
	}

	userID, err := s.tokens.Validate(token)
	if err != nil {
		return "", false
	}
	return userID, true
}

func requestUserID(r *http.Request) string {
	if v := r.Context().Value(userIDKey); v != nil {
		if userID, ok := v.(string); ok {
			return userID
		}
	}
	return ""
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func maxBodySizeMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		)
	})
}
