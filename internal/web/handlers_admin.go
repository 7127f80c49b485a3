package web

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/runixer/trendstudio/internal/audit"
	"github.com/runixer/trendstudio/internal/jobtype"
	"github.com/runixer/trendstudio/internal/playground"
	"github.com/runixer/trendstudio/internal/storage"
	"github.com/runixer/trendstudio/internal/trend"
)

type variablesPayload struct {
	Variables map[string]string `json:"variables"`
}

type auditLogView struct {
	ID         int64     `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type auditLogsResponse struct {
	Data  []auditLogView `json:"data"`
	Total int            `json:"total"`
}

type tableSizeView struct {
	Name  string `json:"name"`
	Bytes int64  `json:"bytes"`
}

type maintenanceStats struct {
	DBSizeBytes int64           `json:"db_size_bytes"`
	Tables      []tableSizeView `json:"tables"`
}

// MaintenanceReport summarizes one cleanup run.
type MaintenanceReport struct {
	PlaygroundLogsDeleted int64    `json:"playground_logs_deleted"`
	AuditLogsDeleted      int64    `json:"audit_logs_deleted"`
	TempFilesDeleted      int      `json:"temp_files_deleted"`
	Errors                []string `json:"errors,omitempty"`
}

func (s *Server) getVariablesHandler(w http.ResponseWriter, r *http.Request) {
	vars, err := s.vars.GetVariables()
	if err != nil {
		writeInternalError(w, s.logger, "failed to get variables", err)
		return
	}
	writeJSON(w, http.StatusOK, variablesPayload{Variables: vars})
}

// putVariablesHandler replaces the whole master variable set.
func (s *Server) putVariablesHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[variablesPayload](w, r, s.cfg.Server.BodyLimit)
	if !ok {
		return
	}
	if req.Variables == nil {
		req.Variables = map[string]string{}
	}

	names := make([]string, 0, len(req.Variables))
	for name := range req.Variables {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, "{}") {
			writeError(w, http.StatusBadRequest, "variable names must be non-empty and must not contain braces")
			return
		}
		names = append(names, name)
	}
	sort.Strings(names)

	if err := s.vars.SetVariables(req.Variables); err != nil {
		writeInternalError(w, s.logger, "failed to set variables", err)
		return
	}
	s.recorder.Record(r.Context(), audit.ActionSet, audit.EntityVariables, "", map[string][]string{"names": names})
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) auditHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.AuditLogFilter{
		Actor:      q.Get("actor"),
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
	}
	limit, offset := pagination(r)

	result, err := s.audits.GetAuditLogs(filter, limit, offset)
	if err != nil {
		writeInternalError(w, s.logger, "failed to get audit logs", err)
		return
	}

	views := make([]auditLogView, 0, len(result.Data))
	for _, l := range result.Data {
		views = append(views, auditLogView{
			ID:         l.ID,
			Actor:      l.Actor,
			Action:     l.Action,
			EntityType: l.EntityType,
			EntityID:   l.EntityID,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, auditLogsResponse{Data: views, Total: result.TotalCount})
}

func (s *Server) maintenanceStatsHandler(w http.ResponseWriter, r *http.Request) {
	var stats maintenanceStats
	size, err := s.maint.GetDBSize()
	if err != nil {
		s.logger.Warn("failed to get DB size", "error", err)
	}
	stats.DBSizeBytes = size

	tables, err := s.maint.GetTableSizes()
	if err != nil {
		writeInternalError(w, s.logger, "failed to get table sizes", err)
		return
	}
	stats.Tables = make([]tableSizeView, 0, len(tables))
	for _, t := range tables {
		stats.Tables = append(stats.Tables, tableSizeView{Name: t.Name, Bytes: t.Bytes})
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) maintenanceCleanupHandler(w http.ResponseWriter, r *http.Request) {
	report := s.runMaintenance(r.Context(), "manual")
	s.recorder.Record(r.Context(), audit.ActionCleanup, audit.EntityMaintenance, "", report)
	writeJSON(w, http.StatusOK, report)
}

// maintenanceLoop refreshes metrics and runs cleanup on startup and then
// every maintenance interval until ctx is cancelled.
func (s *Server) maintenanceLoop(ctx context.Context) {
	ctx = jobtype.WithJobType(ctx, jobtype.Maintenance)
	s.runMaintenance(ctx, "schedule")

	ticker := time.NewTicker(s.cfg.Maintenance.GetInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runMaintenance(ctx, "schedule")
		}
	}
}

func (s *Server) runMaintenance(ctx context.Context, trigger string) MaintenanceReport {
	maintenanceRunsTotal.WithLabelValues(trigger).Inc()
	var report MaintenanceReport
	fail := func(msg string, err error) {
		s.logger.Error(msg, "error", err, "job_type", jobtype.FromContext(ctx))
		report.Errors = append(report.Errors, msg+": "+err.Error())
	}

	m := s.cfg.Maintenance
	if m.PlaygroundLogsKeep > 0 {
		n, err := s.cleanupTable("playground_logs", m.PlaygroundLogsKeep, s.maint.CleanupPlaygroundLogs)
		if err != nil {
			fail("failed to cleanup playground_logs", err)
		}
		report.PlaygroundLogsDeleted = n
	}
	if m.AuditLogsKeep > 0 {
		n, err := s.cleanupTable("audit_logs", m.AuditLogsKeep, s.maint.CleanupAuditLogs)
		if err != nil {
			fail("failed to cleanup audit_logs", err)
		}
		report.AuditLogsDeleted = n
	}

	if s.runner != nil && s.runner.Files() != nil {
		n, err := s.runner.Files().Cleanup(m.GetTempFileTTL())
		if err != nil {
			fail("failed to cleanup generated files", err)
		}
		if n > 0 {
			playground.RecordTempFilesDeleted(n)
			s.logger.Info("cleaned up generated files", "deleted", n)
		}
		report.TempFilesDeleted = n
	}

	s.updateMetrics(ctx)
	return report
}

// cleanupTable runs one keep-latest cleanup and records its metrics.
func (s *Server) cleanupTable(table string, keep int, cleanup func(int) (int64, error)) (int64, error) {
	start := time.Now()
	deleted, err := cleanup(keep)
	duration := time.Since(start).Seconds()
	if err != nil {
		return 0, err
	}
	storage.RecordCleanupDuration(table, duration)
	if deleted > 0 {
		storage.RecordCleanupDeleted(table, deleted)
		s.logger.Info("cleaned up "+table, "deleted", deleted, "duration_s", duration)
	}
	return deleted, nil
}

// updateMetrics refreshes storage size and trend count gauges.
func (s *Server) updateMetrics(ctx context.Context) {
	if size, err := s.maint.GetDBSize(); err != nil {
		s.logger.Debug("failed to get DB size", "error", err)
	} else {
		storage.SetStorageSize(size)
	}

	if tables, err := s.maint.GetTableSizes(); err != nil {
		s.logger.Error("failed to get table sizes", "error", err)
	} else {
		for _, ts := range tables {
			storage.SetTableSize(ts.Name, ts.Bytes)
		}
	}

	if s.trends == nil {
		return
	}
	trends, err := s.trends.List(ctx, trend.Filter{})
	if err != nil {
		s.logger.Error("failed to list trends for metrics", "error", err)
		return
	}
	enabled := 0
	for _, t := range trends {
		if t.Enabled {
			enabled++
		}
	}
	storage.SetTrendsTotal(enabled, len(trends)-enabled)
}
