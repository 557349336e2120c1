package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/siriwatk/noteflow-api/internal/auth"
	"github.com/siriwatk/noteflow-api/internal/config"
	"github.com/siriwatk/noteflow-api/internal/handler"
	"github.com/siriwatk/noteflow-api/internal/mailer"
	"github.com/siriwatk/noteflow-api/internal/repository"
	"github.com/siriwatk/noteflow-api/internal/usecase"
	"github.com/siriwatk/noteflow-api/internal/validation"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.NewConfig(&logger)

	privateKeyPEM, err := os.ReadFile(cfg.Token.PrivateKeyFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read token private key")
	}

	jwtAuth, err := auth.NewJWTAuthenticator(privateKeyPEM, cfg.Token.Audience, cfg.Token.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create JWT authenticator")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to disconnect from MongoDB")
		}
	}()

	if err := client.Ping(ctx, nil); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping MongoDB")
	}

	db := client.Database(cfg.MongoDatabase)

	userRepo := repository.NewUserMongoRepository(ctx, &logger, db)
	tokenRepo := repository.NewEphemeralTokenMongoRepository(ctx, &logger, db)
	noteRepo := repository.NewNoteMongoRepository(ctx, &logger, db)

	smtpMailer := mailer.NewMailer(&logger)

	authUsecase := usecase.NewAuthUsecase(userRepo, tokenRepo, jwtAuth, cfg)
	passwordResetUsecase := usecase.NewPasswordResetUsecase(userRepo, tokenRepo, smtpMailer, cfg)
	verificationUsecase := usecase.NewVerificationUsecase(userRepo, tokenRepo, smtpMailer, cfg)
	noteUsecase := usecase.NewNoteUsecase(noteRepo)
	userUsecase := usecase.NewUserUsecase(userRepo)

	validator, err := validation.New()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create validator")
	}

	authHandler := handler.NewAuthHandler(authUsecase, verificationUsecase, validator, &logger)
	passwordResetHandler := handler.NewPasswordResetHandler(passwordResetUsecase, validator, &logger)
	noteHandler := handler.NewNoteHandler(noteUsecase, validator)
	userHandler := handler.NewUserHandler(userUsecase, cfg.UploadDir, &logger)

	router := handler.NewRouter(cfg, &logger, authUsecase, authHandler, passwordResetHandler, noteHandler, userHandler)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go startTokenReaper(rootCtx, &logger, tokenRepo, cfg.ReapInterval)

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// startTokenReaper periodically deletes expired ephemeral tokens. Reads
// already filter on expiry and a TTL index reaps independently, so this is
// storage hygiene, not a correctness concern.
func startTokenReaper(
	ctx context.Context,
	logger *zerolog.Logger,
	tokenRepo repository.EphemeralTokenRepository,
	interval time.Duration,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := tokenRepo.DeleteExpired(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("failed to reap expired tokens")
				continue
			}
			if deleted > 0 {
				logger.Info().Int64("deleted", deleted).Msg("reaped expired tokens")
			}
		}
	}
}
