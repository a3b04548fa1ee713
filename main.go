package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"gopkg.in/natefinch/lumberjack.v2"

	"dramarelay/api"
	"dramarelay/config"
	"dramarelay/handlers"
	"dramarelay/services/catalog"
	"dramarelay/services/party"
	"dramarelay/services/upstream"
)

func main() {
	cfg := config.Load()

	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}

	client := upstream.New(upstream.WithTimeout(cfg.UpstreamTimeout))
	catalogSvc := catalog.NewService(client, cfg.UpstreamBaseURL, cfg.EpisodeCacheTTL)
	coordinator := party.NewCoordinator()

	catalogHandler := handlers.NewCatalogHandler(catalogSvc)
	partyHandler := handlers.NewPartyHandler(coordinator)
	healthHandler := handlers.NewHealthHandler()

	r := mux.NewRouter()
	r.HandleFunc("/latest", catalogHandler.Latest).Methods(http.MethodGet)
	r.HandleFunc("/search", catalogHandler.Search).Methods(http.MethodGet)
	r.HandleFunc("/stream", catalogHandler.Stream).Methods(http.MethodGet)
	r.HandleFunc("/trending", catalogHandler.Trending).Methods(http.MethodGet)
	r.HandleFunc("/recommendations", catalogHandler.Recommendations).Methods(http.MethodGet)
	r.HandleFunc("/mood/{mood}", catalogHandler.Mood).Methods(http.MethodGet)
	r.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	r.HandleFunc("/ws", partyHandler.WebSocket)

	if cfg.RateLimitRPM > 0 {
		limiter := api.NewIPRateLimiter(api.LimitPerMinute(cfg.RateLimitRPM), cfg.RateLimitBurst)
		r.Use(api.RateLimitMiddleware(limiter))
	} else {
		log.Println("[server] per-IP rate limiting disabled")
	}

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket connections stay open
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("[server] listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] listen failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[server] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] shutdown error: %v", err)
	}
}
