package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dashmail/internal/auth"
	"github.com/dashmail/internal/delivery"
	"github.com/dashmail/internal/models"
	"github.com/dashmail/internal/queue"
)

// ScheduleStore is the read surface the API needs over schedule and user
// records.
type ScheduleStore interface {
	GetDashboardSchedule(id uint) (*models.DashboardEmailSchedule, error)
	GetSliceSchedule(id uint) (*models.SliceEmailSchedule, error)
	ActiveDashboardSchedules() ([]models.DashboardEmailSchedule, error)
	ActiveSliceSchedules() ([]models.SliceEmailSchedule, error)
	GetUser(username string) (*models.User, error)
}

// RunQueue accepts immediate delivery tasks and exposes run history.
type RunQueue interface {
	Enqueue(t queue.Task) error
	Snapshot() []queue.RunRecord
}

// TaskBuilder produces the run function for one schedule's delivery.
type TaskBuilder interface {
	Task(reportType models.ScheduleType, scheduleID uint) func(ctx context.Context) (queue.Outcome, error)
}

type Server struct {
	store     ScheduleStore
	queue     RunQueue
	builder   TaskBuilder
	jwtSecret string
	router    *gin.Engine
}

func NewServer(store ScheduleStore, runQueue RunQueue, builder TaskBuilder, jwtSecret string) *Server {
	server := &Server{
		store:     store,
		queue:     runQueue,
		builder:   builder,
		jwtSecret: jwtSecret,
		router:    gin.Default(),
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	// Public routes
	s.router.GET("/health", s.health)
	s.router.POST("/api/v1/auth/login", s.login)

	// Protected routes (require authentication)
	api := s.router.Group("/api/v1")
	api.Use(auth.AuthMiddleware(s.jwtSecret))

	api.GET("/schedules/dashboard", s.listDashboardSchedules)
	api.GET("/schedules/slice", s.listSliceSchedules)
	api.POST("/schedules/:type/:id/run", s.triggerRun)

	api.GET("/runs", s.listRuns)
}

func (s *Server) Start(port int) error {
	return s.router.Run(fmt.Sprintf(":%d", port))
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) login(c *gin.Context) {
	var loginReq struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&loginReq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.store.GetUser(loginReq.Username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if !user.IsActive || !user.CheckPassword(loginReq.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(s.jwtSecret, user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) listDashboardSchedules(c *gin.Context) {
	schedules, err := s.store.ActiveDashboardSchedules()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, schedules)
}

func (s *Server) listSliceSchedules(c *gin.Context) {
	schedules, err := s.store.ActiveSliceSchedules()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, schedules)
}

func (s *Server) listRuns(c *gin.Context) {
	c.JSON(http.StatusOK, s.queue.Snapshot())
}

// triggerRun enqueues one immediate delivery for a schedule, bypassing its
// crontab. Activity and target data are still re-checked at execution time.
func (s *Server) triggerRun(c *gin.Context) {
	reportType := models.ScheduleType(c.Param("type"))

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule ID"})
		return
	}
	scheduleID := uint(id)

	switch reportType {
	case models.ScheduleTypeDashboard:
		if _, err := s.store.GetDashboardSchedule(scheduleID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
			return
		}
	case models.ScheduleTypeSlice:
		if _, err := s.store.GetSliceSchedule(scheduleID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown report type %q", reportType)})
		return
	}

	task := queue.Task{
		ID:   uuid.NewString(),
		Name: delivery.TaskName(reportType, scheduleID),
		Run:  s.builder.Task(reportType, scheduleID),
	}
	if err := s.queue.Enqueue(task); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"task_id": task.ID})
}
