package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"realestate-app/config"
	"realestate-app/database"
	adminapi "realestate-app/internal/api/admin"
	authapi "realestate-app/internal/api/auth"
	listingsapi "realestate-app/internal/api/listings"
	routes "realestate-app/internal/app/http"
	"realestate-app/internal/infra/filestore"
	"realestate-app/internal/listings"
	"realestate-app/internal/logging"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadEnv()

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBURL)
	if err != nil {
		return err
	}
	logger.Info("connected to database")

	store, err := openPhotoStore(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("photo store ready", "kind", cfg.PhotoStore)

	engine := listings.NewEngine(db, store, listings.Options{
		AllowHEIC:            cfg.AllowHEIC,
		PhotoReadConcurrency: cfg.PhotoReadConcurrency,
	})

	authHandler := &authapi.Handler{
		DB:                db,
		JWTSecret:         []byte(cfg.JWTSecret),
		TokenTTL:          cfg.JWTTTL,
		AllowRegistration: cfg.AllowRegistration,
	}
	if cfg.GoogleEnabled() {
		authHandler.Google = authapi.NewGoogleSignIn(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
			cfg.GoogleFrontendRedirect,
		)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(corsConfig(cfg.CORSOrigin)))

	routes.RegisterRoutes(r, routes.Deps{
		Logger:    logger,
		JWTSecret: []byte(cfg.JWTSecret),
		Listings:  listingsapi.NewHandler(engine, cfg.MaxPageSize),
		Admin:     adminapi.NewHandler(engine),
		Auth:      authHandler,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func corsConfig(origin string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Trace-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Trace-ID"},
		MaxAge:        12 * time.Hour,
	}
	if origin == "" || origin == "*" {
		c.AllowAllOrigins = true
		return c
	}
	for _, o := range strings.Split(origin, ",") {
		c.AllowOrigins = append(c.AllowOrigins, strings.TrimSpace(o))
	}
	c.AllowCredentials = true
	return c
}

func openPhotoStore(ctx context.Context, cfg *config.Config) (filestore.Store, error) {
	if cfg.PhotoStore == "s3" {
		return filestore.NewS3(ctx, cfg.S3)
	}
	return filestore.NewLocal(cfg.UploadDir)
}
