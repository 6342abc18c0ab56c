package models

import "time"

// Import run status constants
const (
	ImportStatusInProgress = "IN_PROGRESS"
	ImportStatusComplete   = "COMPLETE"
	ImportStatusFailed     = "FAILED"
	ImportStatusFatal      = "FATAL"
)

// ImportLog is per-(workspace, attribute type) bookkeeping of the last
// successful import run; LastSuccessfulRunAt feeds the next run's sync_after
// watermark.
type ImportLog struct {
	ID                    string     `gorm:"column:id;primaryKey"`
	WorkspaceID           string     `gorm:"column:workspace_id;index:idx_import_log_scope,unique"`
	AttributeType         string     `gorm:"column:attribute_type;index:idx_import_log_scope,unique"`
	Status                string     `gorm:"column:status"`
	ErrorLog              JSONB      `gorm:"column:error_log;type:jsonb"`
	TotalBatchesCount     int        `gorm:"column:total_batches_count"`
	ProcessedBatchesCount int        `gorm:"column:processed_batches_count"`
	LastSuccessfulRunAt   *time.Time `gorm:"column:last_successful_run_at"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (ImportLog) TableName() string {
	return "import_logs"
}

// InProgressWithPendingBatches reports whether a previous run is still mid
// flight; trigger_import must no-op in that case to prevent overlapping runs.
func (l ImportLog) InProgressWithPendingBatches() bool {
	return l.Status == ImportStatusInProgress && l.TotalBatchesCount > l.ProcessedBatchesCount
}
