package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/staffdesk/recalc/internal/api/handler"
	"github.com/staffdesk/recalc/internal/api/middleware"
	"github.com/staffdesk/recalc/internal/dto/mapper"
	"github.com/staffdesk/recalc/internal/orm"
	"go.uber.org/zap"
)

var Provider = wire.NewSet(
	mapper.NewExecutionMapper,
	handler.NewExecutionHandler,
	handler.NewJobHandler,
	NewServer,
)

type Server struct {
	router  *gin.Engine
	storage *orm.Storage
}

func NewServer(
	storage *orm.Storage,
	executionHandler *handler.ExecutionHandler,
	jobHandler *handler.JobHandler,
	logger *zap.Logger,
) *Server {
	s := &Server{storage: storage}

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.ErrorHandlingMiddleware(logger))
	s.router.Use(middleware.Cors())

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/jobs", jobHandler.Jobs)
		v1.POST("/jobs/:name/launch", jobHandler.Launch)
		v1.GET("/executions", executionHandler.List)
		v1.GET("/executions/stats", executionHandler.Stats)
		v1.GET("/executions/:id", executionHandler.Get)
		v1.GET("/health", s.health)
	}

	return s
}

func (s *Server) health(c *gin.Context) {
	if err := s.storage.Ping(); err != nil {
		c.JSON(503, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
