package state

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type GormManager struct {
	DB *gorm.DB
}

var _ Manager = (*GormManager)(nil)

// NewSqliteGormManager : opens (or creates) the audit log database at the
// given path and migrates the log tables
func NewSqliteGormManager(path string) (*GormManager, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("Could not open state db %s : %w", path, err)
	}
	if err := db.AutoMigrate(&RunLog{}, &TableRunLog{}); err != nil {
		return nil, fmt.Errorf("Could not migrate state db : %w", err)
	}
	return &GormManager{DB: db}, nil
}

func (m *GormManager) OnShutDownEv() {
	run := m.GetLastRun()
	if run == nil || run.Status != Started {
		return
	}
	tx := m.DB.Begin()
	errTx := tx.Model(&RunLog{}).Where("run_id = ? AND status = ?", run.RunID, Started).Update("status", Aborted).Error
	if errTx != nil {
		tx.Rollback()
		return
	}
	errTx = tx.Model(&TableRunLog{}).Where("parent_run_id = ? AND status = ?", run.RunID, Started).Update("status", Aborted).Error
	if errTx != nil {
		tx.Rollback()
		return
	}
	tx.Commit()
}

func (m *GormManager) GetLastRun() *RunLog {
	var lastRun RunLog
	m.DB.Order("created_at desc").First(&lastRun)
	if lastRun.ID == 0 {
		return nil
	}
	return &lastRun
}

func (m *GormManager) GetRunLog(runID string) *RunLog {
	var runLog RunLog
	m.DB.Where("run_id = ?", runID).First(&runLog)
	return &runLog
}

func (m *GormManager) GetTableRunLogs(runID string) []*TableRunLog {
	var tableRunLogs []*TableRunLog
	m.DB.Where("parent_run_id = ?", runID).Find(&tableRunLogs)
	return tableRunLogs
}

func (m *GormManager) InitRunLog(runID string, totalTableCount int) {
	m.DB.Create(&RunLog{
		RunID:                 runID,
		TotalTablesForThisRun: totalTableCount,
		Status:                Started,
		Base:                  Base{CreatedAt: currentTime(), UpdatedAt: currentTime()},
	})
}

func (m *GormManager) FailedRunLog(runID string, err error) {
	m.updateRunStatus(runID, Failed, err)
}

func (m *GormManager) PassedRunLog(runID string) {
	m.updateRunStatus(runID, Success, nil)
}

func (m *GormManager) InitTableRunLog(runID string, tableName string, listName string) {
	m.DB.Create(&TableRunLog{
		ParentRunID: runID,
		TableName:   tableName,
		ListName:    listName,
		Status:      Started,
		Base:        Base{CreatedAt: currentTime(), UpdatedAt: currentTime()},
	})
}

func (m *GormManager) FailedTableRun(runID string, tableName string, outcome TableOutcome) {
	m.updateTableRunStatus(runID, tableName, Failed, outcome)
}

func (m *GormManager) PassedTableRun(runID string, tableName string, outcome TableOutcome) {
	m.updateTableRunStatus(runID, tableName, Success, outcome)
}

func (m *GormManager) DidTableFailForRun(runID string) bool {
	var failedTableRunLogs int64
	m.DB.Model(&TableRunLog{}).Where("parent_run_id = ? AND status = ?", runID, Failed).Count(&failedTableRunLogs)
	return failedTableRunLogs > 0
}

func (m *GormManager) updateRunStatus(runID string, status RunLogState, err error) {
	var errMsg string
	if err != nil {
		errMsg = err.Error()
	}
	tx := m.DB.Begin()
	errTx := tx.Model(&RunLog{}).Where("run_id = ?", runID).Updates(map[string]any{
		"status":     status,
		"err_msg":    errMsg,
		"updated_at": currentTime(),
	}).Error
	if errTx != nil {
		tx.Rollback()
		return
	}
	if status == Failed {
		errTx = tx.Model(&TableRunLog{}).Where("parent_run_id = ? AND status = ?", runID, Started).Update("status", Aborted).Error
		if errTx != nil {
			tx.Rollback()
			return
		}
	}
	tx.Commit()
}

func (m *GormManager) updateTableRunStatus(runID string, tableName string, status RunLogState, outcome TableOutcome) {
	var errMsg string
	if outcome.Err != nil {
		errMsg = outcome.Err.Error()
	}
	m.DB.Model(&TableRunLog{}).Where("parent_run_id = ? AND table_name = ?", runID, tableName).Updates(map[string]any{
		"status":         status,
		"err_msg":        errMsg,
		"list_created":   outcome.ListCreated,
		"rows_attempted": outcome.RowsAttempted,
		"rows_loaded":    outcome.RowsLoaded,
		"rows_rejected":  outcome.RowsRejected,
		"updated_at":     currentTime(),
	})
}

func currentTime() *time.Time {
	now := time.Now()
	return &now
}
