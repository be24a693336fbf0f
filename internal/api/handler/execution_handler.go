package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/mo"
	"github.com/spf13/cast"
	"github.com/staffdesk/recalc/internal/biz/execution"
	"github.com/staffdesk/recalc/internal/dto/mapper"
)

// ListExecutionReq narrows the monitoring query surface: a fixed filter set
// and a sort allow-list, no free-form query construction.
type ListExecutionReq struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	JobName  string `form:"job_name"`
	Status   string `form:"status"`
	Result   string `form:"result"`
	Running  bool   `form:"running"`

	StartedAfter  string `form:"started_after"`
	StartedBefore string `form:"started_before"`
	EndedAfter    string `form:"ended_after"`
	EndedBefore   string `form:"ended_before"`

	SortBy string `form:"sort_by"`
	Order  string `form:"order"`
}

type ExecutionStatsReq struct {
	JobName       string `form:"job_name"`
	StartedAfter  string `form:"started_after"`
	StartedBefore string `form:"started_before"`
}

type ExecutionHandler struct {
	repo   execution.Repo
	mapper *mapper.ExecutionMapper
}

func NewExecutionHandler(repo execution.Repo, m *mapper.ExecutionMapper) *ExecutionHandler {
	return &ExecutionHandler{repo: repo, mapper: m}
}

// List handles GET /api/v1/executions.
func (h *ExecutionHandler) List(c *gin.Context) {
	var req ListExecutionReq
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter := execution.ListFilter{
		RunningOnly: req.Running,
		SortBy:      req.SortBy,
		SortDesc:    req.Order != "asc",
	}
	if req.JobName != "" {
		filter.JobName = mo.Some(req.JobName)
	}
	if req.Status != "" {
		filter.Status = mo.Some(execution.RawStatus(req.Status))
	}
	if req.Result != "" {
		filter.Result = mo.Some(execution.Result(req.Result))
	}
	filter.StartedAfter = parseTime(req.StartedAfter)
	filter.StartedBefore = parseTime(req.StartedBefore)
	filter.EndedAfter = parseTime(req.EndedAfter)
	filter.EndedBefore = parseTime(req.EndedBefore)

	page := req.Page
	if page <= 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	executions, total, err := h.repo.List(c, filter, (page-1)*pageSize, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, h.mapper.ToExecutionListResponse(executions, total, page, pageSize))
}

// Get handles GET /api/v1/executions/:id. Returns the most recent attempt for
// the id; older rows sharing a reused id are reachable through List.
func (h *ExecutionHandler) Get(c *gin.Context) {
	executionID := cast.ToInt64(c.Param("id"))
	if executionID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid execution id"})
		return
	}

	exec, err := h.repo.GetLatest(c, executionID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, h.mapper.ToExecutionResponse(exec))
}

// Stats handles GET /api/v1/executions/stats.
func (h *ExecutionHandler) Stats(c *gin.Context) {
	var req ExecutionStatsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := execution.StatsQuery{}
	if req.JobName != "" {
		query.JobName = mo.Some(req.JobName)
	}
	query.StartedAfter = parseTime(req.StartedAfter)
	query.StartedBefore = parseTime(req.StartedBefore)

	stats, err := h.repo.CountByResult(c, query)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, h.mapper.ToExecutionStatsResponse(stats))
}

func parseTime(raw string) mo.Option[time.Time] {
	if raw == "" {
		return mo.None[time.Time]()
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return mo.Some(t)
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return mo.Some(t)
	}
	return mo.None[time.Time]()
}
