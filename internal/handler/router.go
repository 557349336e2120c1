package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/siriwatk/noteflow-api/internal/config"
	"github.com/siriwatk/noteflow-api/internal/usecase"
)

// NewRouter wires all HTTP routes. Credential endpoints sit behind a
// fixed-window per-IP rate limit; everything under /api/notes and /api/users
// requires a verified bearer credential.
func NewRouter(
	cfg *config.Config,
	logger *zerolog.Logger,
	authUsecase usecase.AuthUsecase,
	authHandler *AuthHandler,
	passwordResetHandler *PasswordResetHandler,
	noteHandler *NoteHandler,
	userHandler *UserHandler,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(*logger))
	r.Use(hlog.AccessHandler(func(req *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(req).Info().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(hlog.RequestIDHandler("request_id", "X-Request-ID"))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(cfg.AuthRateLimit, cfg.AuthRateWindow))

			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/verify-email", authHandler.VerifyEmail)
			r.Post("/verify-email/resend", authHandler.ResendVerification)
			r.Post("/password/forgot", passwordResetHandler.ForgotPassword)
			r.Post("/password/reset", passwordResetHandler.ResetPassword)
		})

		r.Post("/logout", authHandler.Logout)
	})

	r.Route("/api/notes", func(r chi.Router) {
		r.Use(RequireAuth(authUsecase))

		r.Post("/", noteHandler.Create)
		r.Get("/", noteHandler.List)
		r.Get("/{id}", noteHandler.Get)
		r.Put("/{id}", noteHandler.Update)
		r.Delete("/{id}", noteHandler.Delete)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(RequireAuth(authUsecase))

		r.Get("/me", userHandler.Me)
		r.Put("/me/picture", userHandler.UploadProfilePicture)
	})

	uploadServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir)))
	r.Get("/uploads/*", uploadServer.ServeHTTP)

	return r
}
