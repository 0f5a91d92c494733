package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/michaelpyon/subway-shame/internal/config"
	"github.com/michaelpyon/subway-shame/internal/feed"
	"github.com/michaelpyon/subway-shame/internal/history"
	"github.com/michaelpyon/subway-shame/internal/state"
	"github.com/michaelpyon/subway-shame/internal/status"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log.Printf("Config loaded: cache_ttl=%v, fetch_timeout=%v, workers=%d",
		cfg.CacheTTL, cfg.FetchTimeout, cfg.FetchWorkers)

	for _, p := range []string{cfg.StateFile, cfg.HistoryDatabase} {
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				log.Fatalf("Failed to create data directory %s: %v", dir, err)
			}
		}
	}

	// The archive is optional: if it cannot be opened the server runs
	// without it.
	var archive *history.Archive
	if a, err := history.Open(cfg.HistoryDatabase); err != nil {
		log.Printf("Warning: history archive unavailable: %v", err)
	} else {
		archive = a
		defer archive.Close()
		log.Printf("History archive opened: %s", cfg.HistoryDatabase)
	}

	store := state.NewStore(cfg.StateFile)
	client := feed.NewClient(cfg)
	engine := status.NewEngine(client, store, archive, cfg.CacheTTL)

	if archive != nil {
		go cleanupLoop(archive, cfg.HistoryRetentionDays)
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/api/status", func(w http.ResponseWriter, r *http.Request) {
		resp := engine.Status(r.Context())
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":      true,
			"archive": archive != nil,
		})
	})

	r.Get("/api/history", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if archive == nil {
			json.NewEncoder(w).Encode([]history.ArchivedAlert{})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		since := time.Now().UTC().Add(-24 * time.Hour)
		alerts, err := archive.RecentAlerts(ctx, since)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "Failed to query history"})
			return
		}
		json.NewEncoder(w).Encode(alerts)
	})

	if cfg.StaticDir != "" {
		r.Handle("/*", spaHandler(cfg.StaticDir))
	}

	log.Printf("Server starting on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// spaHandler serves files from dir, falling back to index.html for
// paths that don't exist so client-side routing works.
func spaHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean(r.URL.Path))
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	})
}

// cleanupLoop prunes old archive rows at startup and then once a day.
func cleanupLoop(archive *history.Archive, retentionDays int) {
	prune := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := archive.Cleanup(ctx, retentionDays); err != nil {
			log.Printf("History: cleanup failed: %v", err)
		}
	}

	prune()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		prune()
	}
}
