package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/barrioguide/venue-cli/internal/store"
	"github.com/barrioguide/venue-cli/internal/venue"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the venue catalog over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newCatalogHandler(st),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// newCatalogHandler builds the read-only catalog API.
func newCatalogHandler(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/venues", func(w http.ResponseWriter, req *http.Request) {
		city := req.URL.Query().Get("city")
		if city == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "city is required"})
			return
		}

		venues, err := st.ListByCity(req.Context(), city)
		if err != nil {
			zap.L().Error("list venues failed", zap.String("city", city), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}

		venues = filterVenues(venues, req.URL.Query().Get("neighborhood"), req.URL.Query().Get("tier"), req.URL.Query().Get("min_score"))
		writeJSON(w, http.StatusOK, map[string]any{
			"city":   city,
			"count":  len(venues),
			"venues": venues,
		})
	})

	return r
}

// filterVenues applies the optional query filters in memory. The per-city
// catalog is small enough that pushing these into SQL buys nothing.
func filterVenues(venues []venue.Venue, neighborhood, tier, minScore string) []venue.Venue {
	min := 0
	if minScore != "" {
		if n, err := strconv.Atoi(minScore); err == nil {
			min = n
		}
	}

	out := venues[:0]
	for _, v := range venues {
		if neighborhood != "" && v.Neighborhood != neighborhood {
			continue
		}
		if tier != "" && string(v.Tier) != tier {
			continue
		}
		if min > 0 && (v.QualityScore == nil || *v.QualityScore < min) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
