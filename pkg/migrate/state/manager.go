// package state
//
// persistent audit log for migration runs, one RunLog per run and one
// TableRunLog per table attempted
package state

import "time"

type RunLogState string

const (
	Started RunLogState = "STARTED"
	Success RunLogState = "SUCCESS"
	Aborted RunLogState = "ABORTED"
	Failed  RunLogState = "FAILED"
)

type Base struct {
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`
}

type RunLog struct {
	ID                    int         `json:"id" db:"id" gorm:"primaryKey;autoIncrement"`
	RunID                 string      `json:"run_id" db:"run_id" gorm:"type:varchar(64);index"`
	TotalTablesForThisRun int         `json:"total_tables_for_run" db:"total_tables_for_run"`
	Status                RunLogState `json:"status" db:"status" gorm:"type:varchar(50)"`
	ErrMsg                string      `json:"err_msg" db:"err_msg" gorm:"type:text"`
	Base
}

type TableRunLog struct {
	ID            int         `json:"id" db:"id" gorm:"primaryKey;autoIncrement"`
	ParentRunID   string      `json:"parent_run_id" db:"parent_run_id" gorm:"type:varchar(64);index"`
	TableName     string      `json:"table_name" db:"table_name" gorm:"type:varchar(255)"`
	ListName      string      `json:"list_name" db:"list_name" gorm:"type:varchar(255)"`
	ListCreated   bool        `json:"list_created" db:"list_created"`
	RowsAttempted int         `json:"rows_attempted" db:"rows_attempted"`
	RowsLoaded    int         `json:"rows_loaded" db:"rows_loaded"`
	RowsRejected  int         `json:"rows_rejected" db:"rows_rejected"`
	Status        RunLogState `gorm:"type:varchar(50)"`
	ErrMsg        string      `json:"err_msg" db:"err_msg" gorm:"type:text"`
	Base
}

// TableOutcome : what a finished table attempt gets recorded with
type TableOutcome struct {
	ListCreated   bool
	RowsAttempted int
	RowsLoaded    int
	RowsRejected  int
	Err           error
}

// Manager : everything the orchestrator needs to leave an audit trail
type Manager interface {
	// GetLastRun : most recent run first
	GetLastRun() *RunLog
	GetRunLog(runID string) *RunLog
	GetTableRunLogs(runID string) []*TableRunLog
	// InitRunLog : start a run log
	InitRunLog(runID string, totalTableCount int)
	FailedRunLog(runID string, err error)
	PassedRunLog(runID string)
	InitTableRunLog(runID string, tableName string, listName string)
	FailedTableRun(runID string, tableName string, outcome TableOutcome)
	PassedTableRun(runID string, tableName string, outcome TableOutcome)
	DidTableFailForRun(runID string) bool
	// OnShutDownEv : marks an interrupted run and its in flight tables
	// as aborted
	OnShutDownEv()
}
