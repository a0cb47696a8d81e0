package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/LJTian/NewsRelay/internal/scheduler"
	"github.com/LJTian/NewsRelay/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DeliveryLister 投递记录查询
type DeliveryLister interface {
	ListDeliveries(ctx context.Context, limit int) ([]storage.Delivery, error)
}

// Runner 手动触发与运行状态
type Runner interface {
	Trigger() bool
	Running() bool
	LastReport() (scheduler.RunReport, bool)
}

type Server struct {
	deliveries DeliveryLister
	runner     Runner
}

func NewServer(deliveries DeliveryLister, runner Runner) *Server {
	return &Server{deliveries: deliveries, runner: runner}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/deliveries", s.listDeliveries)
		v1.GET("/runs/last", s.lastRun)
		v1.POST("/run", s.triggerRun)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "running": s.runner.Running()})
}

func (s *Server) listDeliveries(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	items, err := s.deliveries.ListDeliveries(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

func (s *Server) lastRun(c *gin.Context) {
	report, ok := s.runner.LastReport()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "no run finished yet",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    report,
	})
}

func (s *Server) triggerRun(c *gin.Context) {
	if !s.runner.Trigger() {
		c.JSON(http.StatusConflict, gin.H{
			"code":    "run_in_progress",
			"message": "a relay run is already in progress",
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"code":    "ok",
		"message": "run started",
	})
}
