package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/runixer/trendstudio/internal/audit"
	"github.com/runixer/trendstudio/internal/config"
	"github.com/runixer/trendstudio/internal/playground"
	"github.com/runixer/trendstudio/internal/storage"
	"github.com/runixer/trendstudio/internal/trend"
)

// getClientIP extracts the real client IP from the request.
// It checks X-Forwarded-For and X-Real-IP headers (set by reverse proxies like traefik),
// falling back to RemoteAddr if no proxy headers are present.
func getClientIP(r *http.Request) string {
	// X-Forwarded-For may contain multiple IPs: "client, proxy1, proxy2"
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

// Server is the admin JSON API used by the trend editor.
type Server struct {
	cfg      *config.Config
	trends   *trend.Service
	vars     storage.VariableRepository
	logs     storage.PlaygroundLogRepository
	audits   storage.AuditRepository
	maint    storage.MaintenanceRepository
	runner   *playground.Runner
	recorder *audit.Recorder
	cache    *responseCache
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func NewServer(logger *slog.Logger, cfg *config.Config, store storage.Storage, trends *trend.Service, runner *playground.Runner, recorder *audit.Recorder) (*Server, error) {
	cache, err := newResponseCache(cfg.Cache.MaxItems, cfg.Cache.GetTrendTTL())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize trend cache: %w", err)
	}

	return &Server{
		cfg:      cfg,
		trends:   trends,
		vars:     store,
		logs:     store,
		audits:   store,
		maint:    store,
		runner:   runner,
		recorder: recorder,
		cache:    cache,
		logger:   logger.With("component", "web_server"),
	}, nil
}

// Handler builds the router. Everything under /api/ sits behind basic auth.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.loggingMiddleware)

	r.Get("/healthz", instrumentHandler("healthz", s.healthzHandler))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.basicAuthMiddleware)

		r.Route("/prompt", func(r chi.Router) {
			r.Post("/parse", instrumentHandler("prompt_parse", s.parsePromptHandler))
			r.Post("/build", instrumentHandler("prompt_build", s.buildPromptHandler))
			r.Post("/flatten", instrumentHandler("prompt_flatten", s.flattenSectionsHandler))
			r.Post("/split", instrumentHandler("prompt_split", s.splitPromptHandler))
			r.Post("/substitute", instrumentHandler("prompt_substitute", s.substituteHandler))
		})

		r.Route("/trends", func(r chi.Router) {
			r.Get("/", instrumentHandler("trends_list", s.listTrendsHandler))
			r.Post("/", instrumentHandler("trends_create", s.createTrendHandler))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", instrumentHandler("trends_get", s.getTrendHandler))
				r.Patch("/", instrumentHandler("trends_update", s.updateTrendHandler))
				r.Delete("/", instrumentHandler("trends_delete", s.deleteTrendHandler))
				r.Get("/sections", instrumentHandler("trends_sections_get", s.getSectionsHandler))
				r.Put("/sections", instrumentHandler("trends_sections_put", s.putSectionsHandler))
				r.Post("/sections/reset", instrumentHandler("trends_sections_reset", s.resetSectionsHandler))
				r.Post("/sections/move", instrumentHandler("trends_sections_move", s.moveSectionHandler))
				r.Patch("/sections/{sectionID}", instrumentHandler("trends_sections_toggle", s.toggleSectionHandler))
				r.Get("/prompt", instrumentHandler("trends_prompt_get", s.getFullPromptHandler))
				r.Put("/prompt", instrumentHandler("trends_prompt_put", s.putFullPromptHandler))
			})
		})

		r.Get("/variables", instrumentHandler("variables_get", s.getVariablesHandler))
		r.Put("/variables", instrumentHandler("variables_put", s.putVariablesHandler))

		r.Route("/playground", func(r chi.Router) {
			r.Post("/run", instrumentHandler("playground_run", s.playgroundRunHandler))
			r.Post("/batch", instrumentHandler("playground_batch", s.playgroundBatchHandler))
			r.Get("/logs", instrumentHandler("playground_logs", s.playgroundLogsHandler))
			r.Get("/files/{name}", instrumentHandler("playground_file", s.playgroundFileHandler))
		})

		r.Get("/audit", instrumentHandler("audit", s.auditHandler))

		r.Get("/maintenance/stats", instrumentHandler("maintenance_stats", s.maintenanceStatsHandler))
		r.Post("/maintenance/cleanup", instrumentHandler("maintenance_cleanup", s.maintenanceCleanupHandler))
	})

	return r
}

func (s *Server) Start(ctx context.Context) error {
	if err := s.ensurePassword(); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + s.cfg.Server.ListenPort,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Background work stops with ctx or when the listener fails.
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("web server shutdown failed", "error", err)
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.maintenanceLoop(ctx)
	}()

	s.logger.Info("Starting web server", "port", s.cfg.Server.ListenPort)
	err := server.ListenAndServe()
	stop()
	s.wg.Wait()
	s.cache.close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ensurePassword generates a password when auth is enabled without one.
func (s *Server) ensurePassword() error {
	if !s.cfg.Server.Auth.Enabled || s.cfg.Server.Auth.Password != "" {
		return nil
	}
	bytes := make([]byte, 6) // 12 hex chars
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Errorf("failed to generate random password: %w", err)
	}
	s.cfg.Server.Auth.Password = hex.EncodeToString(bytes)
	fmt.Printf("\n⚠️  Admin API password not set, generated: %s\n\n", s.cfg.Server.Auth.Password)
	s.logger.Info("Admin API password auto-generated (see console output)")
	return nil
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		// Log healthz and metrics at debug level, other requests at info level
		if path == "/healthz" || path == "/metrics" {
			s.logger.Debug("Received HTTP request",
				"method", r.Method,
				"path", path,
				"client_ip", getClientIP(r),
			)
		} else {
			s.logger.Info("Received HTTP request",
				"method", r.Method,
				"path", path,
				"client_ip", getClientIP(r),
				"user_agent", r.UserAgent(),
			)
		}
		next.ServeHTTP(w, r)
	})
}

// basicAuthMiddleware guards the API and tags the request context with the
// authenticated user for the audit trail.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.Server.Auth.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || user != s.cfg.Server.Auth.Username || pass != s.cfg.Server.Auth.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(audit.WithActor(r.Context(), user)))
	})
}
