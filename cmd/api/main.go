package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/filedrop/service/internal/config"
	"github.com/filedrop/service/internal/files"
	appMiddleware "github.com/filedrop/service/internal/middleware"
	"github.com/filedrop/service/internal/storage"
)

func main() {
	cfg := config.Load()

	backend, err := storage.Select(cfg)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}

	// Wire dependencies: backend → service → handler
	fileSvc := files.NewService(backend)
	fileHandler := files.NewHandler(fileSvc)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/files", func(r chi.Router) {
			r.Post("/", fileHandler.Upload)
			r.Get("/", fileHandler.List)
			r.Delete("/{key}", fileHandler.Delete)
			r.Get("/{key}/download", fileHandler.Download)
			r.Get("/{key}/share", fileHandler.Share)
		})
	})

	// Local-mode link verification endpoint. In remote mode the provider
	// serves presigned URLs directly and this route does not exist.
	if local, ok := backend.(*storage.Local); ok {
		localHandler := files.NewLocalHandler(local)
		r.Get("/local/{token}", localHandler.Serve)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
		// Uploads and downloads may carry up to 100 MiB over slow links,
		// so body timeouts are generous; only headers are held short.
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Minute,
		WriteTimeout:      15 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}
