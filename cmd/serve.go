package main

import (
	"context"
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
	"golang.org/x/time/rate"

	"github.com/sells-group/leads-cli/internal/enrich"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for export requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Content-Type"},
		}))
		r.Use(throttle(rate.NewLimiter(rate.Limit(cfg.Server.RatePerSecond), cfg.Server.RatePerSecond)))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
			st, err := env.Coordinator.Status(req.Context())
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, st)
		})

		r.Get("/usage", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, env.Limiter.Stats(req.Context()))
		})

		r.Post("/export", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Folder      string `json:"folder"`
				Model       string `json:"model"`
				FindDomains *bool  `json:"find_domains"`
				SplitNames  *bool  `json:"split_names"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			if body.Folder == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "folder is required"})
				return
			}

			contacts, err := env.Folders.Contacts(req.Context(), body.Folder)
			if err != nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
				return
			}
			companies, err := env.Folders.LinkedCompanies(req.Context(), body.Folder)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}

			opts := enrich.Options{
				Folder:      body.Folder,
				Contacts:    contacts,
				Companies:   companies,
				FindDomains: cfg.Export.FindDomains,
				SplitNames:  cfg.Export.SplitNames,
				Model:       cfg.Gemini.Model,
				OutputDir:   cfg.Export.OutputDir,
			}
			if body.Model != "" {
				opts.Model = body.Model
			}
			if body.FindDomains != nil {
				opts.FindDomains = *body.FindDomains
			}
			if body.SplitNames != nil {
				opts.SplitNames = *body.SplitNames
			}

			// Run asynchronously; the run status is observable on /status.
			go func() {
				result, err := env.Coordinator.Run(ctx, opts)
				if err != nil {
					zap.L().Error("export run failed",
						zap.String("folder", opts.Folder),
						zap.Error(err),
					)
					return
				}
				zap.L().Info("export run complete",
					zap.String("folder", opts.Folder),
					zap.String("path", result.ContactsPath),
				)
			}()

			writeJSON(w, http.StatusAccepted, map[string]string{
				"status": "accepted",
				"folder": body.Folder,
			})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// throttle rejects requests beyond the configured rate with 429.
func throttle(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
