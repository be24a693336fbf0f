package response

import "time"

type JobExecutionResponse struct {
	ExecutionID       int64      `json:"execution_id"`
	JobName           string     `json:"job_name"`
	Status            string     `json:"status"`
	Result            string     `json:"result,omitempty"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           *time.Time `json:"end_time,omitempty"`
	TotalSubtasks     *int       `json:"total_subtasks,omitempty"`
	CompletedSubtasks *int       `json:"completed_subtasks,omitempty"`
	ProgressPercent   int        `json:"progress_percent"`
	Details           string     `json:"details,omitempty"`
	TraceLog          string     `json:"trace_log,omitempty"`
}

type ListExecutionResponse struct {
	Items    []JobExecutionResponse `json:"items"`
	Total    int64                  `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
}

type ExecutionStatsResponse struct {
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Partial   int64 `json:"partial"`
}

type LaunchResponse struct {
	ExecutionID int64  `json:"execution_id"`
	JobName     string `json:"job_name"`
}
