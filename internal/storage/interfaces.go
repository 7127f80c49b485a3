package storage

// TrendRepository handles trend operations.
type TrendRepository interface {
	CreateTrend(trend Trend) (int64, error)
	GetTrend(id int64) (*Trend, error)
	GetTrends(filter TrendFilter) ([]Trend, error)
	UpdateTrend(trend Trend) error
	DeleteTrend(id int64) error
}

// VariableRepository handles master prompt variables used for placeholder substitution.
type VariableRepository interface {
	GetVariables() (map[string]string, error)
	SetVariables(vars map[string]string) error
}

// PlaygroundLogRepository handles playground exchange logs.
type PlaygroundLogRepository interface {
	AddPlaygroundLog(log PlaygroundLog) (int64, error)
	GetPlaygroundLogs(filter PlaygroundLogFilter, limit, offset int) (PlaygroundLogResult, error)
}

// AuditRepository handles the administrative audit trail.
type AuditRepository interface {
	AddAuditLog(log AuditLog) error
	GetAuditLogs(filter AuditLogFilter, limit, offset int) (AuditLogResult, error)
}

// MaintenanceRepository handles database size reporting and log cleanup.
type MaintenanceRepository interface {
	GetDBSize() (int64, error)
	GetTableSizes() ([]TableSize, error)
	CleanupPlaygroundLogs(keep int) (int64, error)
	CleanupAuditLogs(keep int) (int64, error)
}
