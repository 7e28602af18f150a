package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"slidecast/internal/config"
	"slidecast/internal/db"
	"slidecast/internal/handlers"
	"slidecast/internal/services"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// Initialize telemetry journal database
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = cfg.Data.DBPath
	}
	if err := db.InitDatabase(dbPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize stores
	registry := services.NewRegistry()
	session := services.NewSessionState()
	stats := services.NewStatsManager(filepath.Join(cfg.Data.Dir, "stats.json"))
	activity := services.NewActivityManager()
	downloads := services.NewDownloadManager()
	feedback := services.NewFeedbackManager(filepath.Join(cfg.Data.Dir, "feedback.json"))
	forms := services.NewFormsStore(filepath.Join(cfg.Data.Dir, "forms.json"))
	cache := services.NewCacheManager(cfg.Cache.MaxSize)
	journal := services.NewJournal(db.DB)

	broadcaster := services.NewBroadcaster(registry)
	router := services.NewRouter(registry, session, stats, activity, downloads, feedback, broadcaster, journal)

	// Periodic stats flusher
	stopFlusher := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.Stats.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := stats.Flush(); err != nil {
					log.Printf("Failed to flush stats: %v", err)
				}
			case <-stopFlusher:
				return
			}
		}
	}()

	// Initialize handlers
	wsHandler := handlers.NewWebSocketHandler(registry, session, activity, router)
	apiHandler := handlers.NewAPIHandler(stats, feedback, forms, downloads, session, cache, journal, fileRenderer(cfg.Data.Dir))

	// Setup routes
	mux := handlers.SetupRoutes(wsHandler, apiHandler)

	// Configure server
	server := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: mux,
	}

	// Shut down cleanly on SIGINT/SIGTERM: stop accepting, let broadcasts
	// drain, flush the stats snapshot.
	shutdownDone := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}

		close(stopFlusher)
		broadcaster.Wait()
		if err := stats.Export(); err != nil {
			log.Printf("Failed to export stats on shutdown: %v", err)
		}
		close(shutdownDone)
	}()

	// Configure TLS if enabled
	if cfg.TLS.Enabled {
		server.TLSConfig = &tls.Config{
			MinVersion: getTLSVersion(cfg.TLS.MinVersion),
		}

		log.Printf("Starting HTTPS server on %s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("TLS Certificate: %s", cfg.TLS.CertFile)
		log.Printf("TLS Key: %s", cfg.TLS.KeyFile)
		log.Printf("TLS Min Version: %s", cfg.TLS.MinVersion)

		if err := server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	} else {
		log.Printf("Starting HTTP server on %s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Warning: HTTP mode is not recommended for production")

		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}

	<-shutdownDone
}

// fileRenderer serves pre-rendered slide HTML from dataDir/slides. The
// markdown compiler writes these files; this process only reads them.
func fileRenderer(dataDir string) handlers.SlideRenderer {
	return func(locale, name string) (string, error) {
		if strings.Contains(locale, "..") || strings.Contains(name, "..") {
			return "", fmt.Errorf("invalid slide path %s/%s", locale, name)
		}
		path := filepath.Join(dataDir, "slides", locale, name+".html")
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read slide %s/%s: %w", locale, name, err)
		}
		return string(data), nil
	}
}

// getTLSVersion converts string version to tls.Version constant
func getTLSVersion(version string) uint16 {
	switch version {
	case "1.0":
		return tls.VersionTLS10
	case "1.1":
		return tls.VersionTLS11
	case "1.2":
		return tls.VersionTLS12
	case "1.3":
		return tls.VersionTLS13
	default:
		return tls.VersionTLS12
	}
}
