package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"cineplay/api"
	"cineplay/config"
	"cineplay/handlers"
	"cineplay/internal/database"
	"cineplay/services/backup"
	"cineplay/services/catalog"
	"cineplay/services/playback"
	"cineplay/services/progress"
	"cineplay/services/source"
	"cineplay/utils"
)

const version = "1.0.0"

func main() {
	dataDir := flag.String("data", defaultDataDir(), "data directory for settings, catalog and progress")
	listenAddr := flag.String("listen", "", "listen address (overrides settings)")
	flag.Parse()

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatalf("[main] Failed to create data dir: %v", err)
	}

	log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   filepath.Join(*dataDir, "logs", "cineplay.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}))

	configManager := config.NewManager(filepath.Join(*dataDir, "settings.json"))
	settings, err := configManager.Load()
	if err != nil {
		log.Fatalf("[main] Failed to load settings: %v", err)
	}

	db, err := database.NewDB(database.Config{
		DatabasePath: filepath.Join(*dataDir, "progress.db"),
	})
	if err != nil {
		log.Fatalf("[main] Failed to open database: %v", err)
	}
	defer db.Close()

	resolver := source.NewResolver()
	if settings.Bunny.EnrichmentEnabled && settings.Bunny.APIKey != "" {
		resolver.SetMetadataClient(source.NewMetadataClient(settings.Bunny.APIKey, nil))
		log.Printf("[main] Bunny metadata enrichment enabled")
	}

	catalogSvc, err := catalog.NewService(*dataDir, resolver)
	if err != nil {
		log.Fatalf("[main] Failed to load catalog: %v", err)
	}

	progressSvc := progress.NewService(db.Repository)

	playbackSvc := playback.NewService(resolver, catalogSvc, progressSvc, playback.Config{
		ProgressInterval:  time.Duration(settings.Playback.ProgressIntervalSeconds) * time.Second,
		ControlsHideDelay: time.Duration(settings.Playback.ControlsHideSeconds) * time.Second,
		SeekResumeGrace:   time.Duration(settings.Playback.SeekResumeGraceMillis) * time.Millisecond,
		SeekRetryDelay:    time.Duration(settings.Playback.SeekRetryDelayMillis) * time.Millisecond,
		SessionIdleTTL:    time.Duration(settings.Playback.SessionIdleMinutes) * time.Minute,
	})

	backupSvc, err := backup.NewService(afero.NewOsFs(), *dataDir, settings.Backup.MaxCount)
	if err != nil {
		log.Fatalf("[main] Failed to init backups: %v", err)
	}

	router := utils.NewRouter(version)
	router.Use(api.LoggingMiddleware())
	router.Use(api.ClientIDMiddleware())

	resolveHandler := handlers.NewResolveHandler(resolver)
	sessionsHandler := handlers.NewSessionsHandler(playbackSvc)
	progressHandler := handlers.NewProgressHandler(progressSvc, catalogSvc)
	catalogHandler := handlers.NewCatalogHandler(catalogSvc)
	settingsHandler := handlers.NewSettingsHandler(configManager)
	backupHandler := handlers.NewBackupHandler(backupSvc)

	// Resolve endpoints are cheap but unauthenticated; cap per-IP throughput.
	resolveLimiter := api.NewIPRateLimiter(rate.Every(time.Second), 20)
	router.Handle("/api/playback/resolve", api.RateLimitHandler(resolveLimiter, http.HandlerFunc(resolveHandler.Resolve))).Methods("POST")
	router.Handle("/api/playback/resolve/batch", api.RateLimitHandler(resolveLimiter, http.HandlerFunc(resolveHandler.ResolveBatch))).Methods("POST")

	router.HandleFunc("/api/playback/sessions", sessionsHandler.Open).Methods("POST")
	router.HandleFunc("/api/playback/sessions/{id}", sessionsHandler.Get).Methods("GET")
	router.HandleFunc("/api/playback/sessions/{id}", sessionsHandler.Close).Methods("DELETE")
	router.HandleFunc("/api/playback/sessions/{id}/events", sessionsHandler.Events).Methods("POST")
	router.HandleFunc("/api/playback/sessions/{id}/actions", sessionsHandler.Action).Methods("POST")
	router.HandleFunc("/api/playback/sessions/{id}/directives", sessionsHandler.Directives).Methods("POST")

	router.HandleFunc("/api/users/{userId}/progress/{movieId}", progressHandler.Get).Methods("GET")
	router.HandleFunc("/api/users/{userId}/progress/{movieId}", progressHandler.Put).Methods("PUT")
	router.HandleFunc("/api/users/{userId}/progress/{movieId}", progressHandler.Delete).Methods("DELETE")
	router.HandleFunc("/api/users/{userId}/continue-watching", progressHandler.ContinueWatching).Methods("GET")

	router.HandleFunc("/api/movies", catalogHandler.List).Methods("GET")
	router.HandleFunc("/api/movies/{id}", catalogHandler.Get).Methods("GET")
	router.HandleFunc("/api/movies/{id}", catalogHandler.Upsert).Methods("PUT")
	router.HandleFunc("/api/movies/{id}", catalogHandler.Delete).Methods("DELETE")
	router.HandleFunc("/api/movies/{id}/resolve", catalogHandler.Resolve).Methods("GET")

	router.HandleFunc("/api/settings", settingsHandler.Get).Methods("GET")
	router.HandleFunc("/api/settings", settingsHandler.Update).Methods("PUT")

	router.HandleFunc("/api/backups", backupHandler.ListBackups).Methods("GET")
	router.HandleFunc("/api/backups", backupHandler.CreateBackup).Methods("POST")
	router.HandleFunc("/api/backups/{filename}", backupHandler.DeleteBackup).Methods("DELETE")
	router.HandleFunc("/api/backups/{filename}/download", backupHandler.DownloadBackup).Methods("GET")
	router.HandleFunc("/api/backups/{filename}/restore", backupHandler.RestoreBackup).Methods("POST")

	addr := settings.Server.ListenAddr
	if *listenAddr != "" {
		addr = *listenAddr
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("[main] cineplay %s listening on %s", version, addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Printf("[main] Shutting down")

	// Close sessions first so their teardown progress flushes land before
	// the database goes away.
	playbackSvc.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[main] Server shutdown: %v", err)
	}
}

func defaultDataDir() string {
	if dir := os.Getenv("CINEPLAY_DATA"); dir != "" {
		return dir
	}
	return "./data"
}
