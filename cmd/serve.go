package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/placetimes/internal/feature"
	"github.com/sells-group/placetimes/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scraped feature collection over HTTP",
	Long: `Starts a read-only HTTP server over the scraped output. The collection
is loaded once at startup; rerun the server to pick up new scrape results.

  GET /healthz         liveness probe
  GET /features        the full GeoJSON feature collection
  GET /stats           collection summary counts
  GET /runs            recent scrape runs, newest first`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		features := store.NewFeatureStore()
		if err := features.Load(cfg.Scrape.OutFile); err != nil {
			return eris.Wrap(err, "serve: load feature collection")
		}

		runs, err := store.OpenRunStore(cfg.Store.RunsPath)
		if err != nil {
			return err
		}
		defer runs.Close() //nolint:errcheck
		if err := runs.Migrate(ctx); err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      serveRouter(features, runs),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.Int("features", features.Len()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "serve: listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func serveRouter(features *store.FeatureStore, runs *store.RunStore) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/features", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, feature.NewCollection(features.Features()))
	})

	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, collectionStats(features))
	})

	r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
		list, err := runs.ListRuns(req.Context(), 0)
		if err != nil {
			zap.L().Error("could not list runs", zap.Error(err))
			respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not list runs"})
			return
		}
		respondJSON(w, http.StatusOK, list)
	})

	return r
}

type serveStats struct {
	Features         int `json:"features"`
	WithPopularTimes int `json:"with_popular_times"`
	WithLiveInfo     int `json:"with_live_info"`
	WithAddress      int `json:"with_address"`
}

func collectionStats(features *store.FeatureStore) serveStats {
	stats := serveStats{Features: features.Len()}
	for _, f := range features.Features() {
		if f.Properties.PopularTimes != nil {
			stats.WithPopularTimes++
		}
		if f.Properties.LiveInfo != nil {
			stats.WithLiveInfo++
		}
		if f.Properties.Address != nil {
			stats.WithAddress++
		}
	}
	return stats
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
