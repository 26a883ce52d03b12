package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadmail-cli/internal/extract"
	"github.com/sells-group/leadmail-cli/internal/model"
	"github.com/sells-group/leadmail-cli/internal/store"
)

var servePort int

type scoreFunc func(context.Context, string, model.CompanyProfile) (model.ScoreResult, error)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		resolver, err := initResolver()
		if err != nil {
			return err
		}

		score, err := initScoreFunc()
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: buildRouter(st, resolver, score),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func buildRouter(st store.Store, resolver *extract.Resolver, score scoreFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/extract", handleExtract(resolver))
		r.Post("/score", handleScore(score))
		r.Get("/companies", handleCompanies(st))
		r.Get("/leads", handleLeads(st))
	})

	return r
}

func handleExtract(resolver *extract.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Subject   string `json:"subject"`
			BodyText  string `json:"body_text"`
			FromEmail string `json:"from_email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Subject == "" && req.BodyText == "" {
			writeError(w, http.StatusBadRequest, "subject or body_text is required")
			return
		}

		result := resolver.Resolve(r.Context(), req.Subject, req.BodyText, req.FromEmail)
		writeJSON(w, http.StatusOK, result)
	}
}

func handleScore(score scoreFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CompanyName string               `json:"company_name"`
			Profile     model.CompanyProfile `json:"profile"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := score(r.Context(), req.CompanyName, req.Profile)
		if err != nil {
			zap.L().Error("score request failed", zap.String("company", req.CompanyName), zap.Error(err))
			writeError(w, http.StatusBadGateway, "scoring failed")
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleCompanies(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 50)
		offset := queryInt(r, "offset", 0)

		companies, err := st.ListCompanies(r.Context(), limit, offset)
		if err != nil {
			zap.L().Error("list companies failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list companies failed")
			return
		}
		writeJSON(w, http.StatusOK, companies)
	}
}

func handleLeads(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		minScore, _ := strconv.ParseFloat(r.URL.Query().Get("min_score"), 64)

		leads, err := st.ListLeads(r.Context(), store.LeadFilter{
			Label:    model.ScoreLabel(r.URL.Query().Get("label")),
			MinScore: minScore,
			Limit:    queryInt(r, "limit", 0),
		})
		if err != nil {
			zap.L().Error("list leads failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list leads failed")
			return
		}
		writeJSON(w, http.StatusOK, leads)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
