package executionrepo

import (
	"time"

	domain "github.com/staffdesk/recalc/internal/biz/execution"
	"github.com/staffdesk/recalc/internal/infra/persistence/commonrepo"
)

// JobExecutionPO is the persisted shape of one execution attempt.
//
// execution_id is deliberately not unique: the runtime recycles ids across
// restarts, so the open-row filter (end_time IS NULL, newest start_time) is
// what actually identifies the live attempt.
type JobExecutionPO struct {
	commonrepo.Mode
	ExecutionID       int64            `gorm:"column:execution_id;not null;index:idx_execution_open,priority:1"`
	JobName           string           `gorm:"column:job_name;size:255;not null;index"`
	Status            domain.RawStatus `gorm:"column:status;size:50;not null;index"`
	Result            domain.Result    `gorm:"column:result;size:50;index"`
	StartTime         time.Time        `gorm:"column:start_time;not null;index"`
	EndTime           *time.Time       `gorm:"column:end_time;index:idx_execution_open,priority:2;index"`
	TotalSubtasks     *int             `gorm:"column:total_subtasks"`
	CompletedSubtasks *int             `gorm:"column:completed_subtasks"`
	ProgressPercent   int              `gorm:"column:progress_percent;default:0"`
	Details           string           `gorm:"column:details;type:text"`
	TraceLog          string           `gorm:"column:trace_log;type:mediumtext"`
}

func (JobExecutionPO) TableName() string {
	return "job_executions"
}
