package executionrepo

import (
	domain "github.com/staffdesk/recalc/internal/biz/execution"
	"github.com/staffdesk/recalc/internal/infra/persistence/commonrepo"
)

func (po *JobExecutionPO) ToDomain() *domain.JobExecution {
	return &domain.JobExecution{
		ID:                po.ID,
		CreatedAt:         po.CreatedAt,
		UpdatedAt:         po.UpdatedAt,
		ExecutionID:       po.ExecutionID,
		JobName:           po.JobName,
		Status:            po.Status,
		Result:            po.Result,
		StartTime:         po.StartTime,
		EndTime:           po.EndTime,
		TotalSubtasks:     po.TotalSubtasks,
		CompletedSubtasks: po.CompletedSubtasks,
		ProgressPercent:   po.ProgressPercent,
		Details:           po.Details,
		TraceLog:          po.TraceLog,
	}
}

func (po *JobExecutionPO) FromDomain(e *domain.JobExecution) *JobExecutionPO {
	po.Mode = commonrepo.Mode{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
	po.ExecutionID = e.ExecutionID
	po.JobName = e.JobName
	po.Status = e.Status
	po.Result = e.Result
	po.StartTime = e.StartTime
	po.EndTime = e.EndTime
	po.TotalSubtasks = e.TotalSubtasks
	po.CompletedSubtasks = e.CompletedSubtasks
	po.ProgressPercent = e.ProgressPercent
	po.Details = e.Details
	po.TraceLog = e.TraceLog
	return po
}
