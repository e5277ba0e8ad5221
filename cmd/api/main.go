//	@title			Dropbucket API
//	@version		1.0
//	@description	Drag-and-drop uploader that sends files to an S3-compatible bucket.
//
//	@host		localhost:8080
//	@BasePath	/api/v1

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/dropbucket/uploader/internal/config"
	"github.com/dropbucket/uploader/internal/logging"
	appMiddleware "github.com/dropbucket/uploader/internal/middleware"
	"github.com/dropbucket/uploader/internal/storage"
	"github.com/dropbucket/uploader/internal/uploader"
	"github.com/dropbucket/uploader/internal/web"

	_ "github.com/dropbucket/uploader/docs/swagger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logging.Setup(os.Stdout, cfg.LogLevel, cfg.IsProduction())

	if missing := cfg.Storage.Missing(); len(missing) > 0 {
		slog.Warn("storage settings missing, uploads will fail until they are set", "missing", missing)
	}

	// A fresh client per batch, so configuration errors show up as
	// transfer failures rather than at startup.
	newClient := func(ctx context.Context) (storage.Storage, error) {
		return storage.New(ctx, cfg.Storage)
	}
	widgets := uploader.NewRegistry(func() *uploader.Widget {
		return uploader.NewWidget(newClient)
	}, cfg.SessionIdleTimeout)
	uploadHandler := uploader.NewHandler(widgets, cfg.MaxMemoryBytes)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go widgets.Run(sweepCtx, time.Minute)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:" + cfg.Port},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI at /swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Get("/", web.Index)
	r.Handle("/static/*", web.Static())

	r.Route("/api/v1", uploadHandler.AddRoutes)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server listening", "addr", srv.Addr, "env", cfg.AppEnv, "driver", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "err", err)
		os.Exit(1)
	}

	// Batches cannot be cancelled; let the running ones finish.
	slog.Info("waiting for running uploads")
	uploadHandler.Wait()

	slog.Info("server stopped")
}
