package mapper

import (
	"github.com/samber/lo"
	"github.com/staffdesk/recalc/internal/biz/execution"
	"github.com/staffdesk/recalc/internal/dto/response"
)

type ExecutionMapper struct{}

func NewExecutionMapper() *ExecutionMapper {
	return &ExecutionMapper{}
}

func (m *ExecutionMapper) ToExecutionResponse(e *execution.JobExecution) response.JobExecutionResponse {
	return response.JobExecutionResponse{
		ExecutionID:       e.ExecutionID,
		JobName:           e.JobName,
		Status:            string(e.Status),
		Result:            string(e.Result),
		StartTime:         e.StartTime,
		EndTime:           e.EndTime,
		TotalSubtasks:     e.TotalSubtasks,
		CompletedSubtasks: e.CompletedSubtasks,
		ProgressPercent:   e.ProgressPercent,
		Details:           e.Details,
		TraceLog:          e.TraceLog,
	}
}

func (m *ExecutionMapper) ToExecutionListResponse(executions []*execution.JobExecution, total int64, page, pageSize int) response.ListExecutionResponse {
	return response.ListExecutionResponse{
		Items: lo.Map(executions, func(e *execution.JobExecution, _ int) response.JobExecutionResponse {
			return m.ToExecutionResponse(e)
		}),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
}

func (m *ExecutionMapper) ToExecutionStatsResponse(stats map[execution.Result]int64) response.ExecutionStatsResponse {
	return response.ExecutionStatsResponse{
		Completed: stats[execution.ResultCompleted],
		Failed:    stats[execution.ResultFailed],
		Partial:   stats[execution.ResultPartial],
	}
}
