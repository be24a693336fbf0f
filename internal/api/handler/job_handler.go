package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/staffdesk/recalc/internal/dto/response"
	"github.com/staffdesk/recalc/internal/engine"
)

type LaunchRequest struct {
	EntityIDs string `json:"entity_ids"`
	Start     string `json:"start" binding:"required"`
	End       string `json:"end"`
	Threads   string `json:"threads"`
}

type JobHandler struct {
	engine   *engine.Engine
	registry *engine.Registry
}

func NewJobHandler(eng *engine.Engine, registry *engine.Registry) *JobHandler {
	return &JobHandler{engine: eng, registry: registry}
}

// Launch handles POST /api/v1/jobs/:name/launch. The body maps directly onto
// the string-keyed launch properties.
func (h *JobHandler) Launch(c *gin.Context) {
	var req LaunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobName := c.Param("name")
	props := map[string]string{
		engine.PropStart: req.Start,
	}
	if req.End != "" {
		props[engine.PropEnd] = req.End
	}
	if req.EntityIDs != "" {
		props[engine.PropEntityIDs] = req.EntityIDs
	}
	if req.Threads != "" {
		props[engine.PropThreads] = req.Threads
	}

	executionID, err := h.engine.Launch(c, jobName, props)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, response.LaunchResponse{
		ExecutionID: executionID,
		JobName:     jobName,
	})
}

// Jobs handles GET /api/v1/jobs: the launchable job names.
func (h *JobHandler) Jobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.registry.Names()})
}
