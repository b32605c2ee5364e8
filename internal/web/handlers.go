package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/npolatykin/mas-sandbox/internal/search"
	"github.com/npolatykin/mas-sandbox/internal/store"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"tasks":          s.store.CountTasks(),
		"semantic_index": s.engine.SemanticAvailable(),
	})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "message must not be empty"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	response := s.agent.HandleMessage(c.Request.Context(), req.SessionID, req.Message)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": req.SessionID,
		"response":   response,
		"timestamp":  time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleSearchTasks(c *gin.Context) {
	criteria := search.Criteria{
		UserID:            c.Query("user_id"),
		TaskID:            c.Query("task_id"),
		Name:              c.Query("task_name"),
		Description:       c.Query("task_description"),
		Status:            c.Query("task_status"),
		Date:              c.Query("date"),
		DateFrom:          c.Query("date_from"),
		DateTo:            c.Query("date_to"),
		UseSemanticSearch: c.Query("semantic") != "false",
	}
	if criteria.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one search filter is required"})
		return
	}

	tasks, err := s.engine.Search(c.Request.Context(), criteria)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(tasks), "tasks": tasks})
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.store.GetTaskByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

type createTaskRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	Name        string `json:"task_name" binding:"required"`
	Description string `json:"task_description"`
	Date        string `json:"date"`
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taskID, err := s.store.CreateTask(c.Request.Context(), req.UserID, req.Name, req.Description, req.Date)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, store.ErrInvalidDate):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task_id": taskID})
}

type updateTaskRequest struct {
	Name        *string `json:"task_name"`
	Description *string `json:"task_description"`
	Status      *string `json:"task_status"`
	Date        *string `json:"date"`
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update := store.TaskUpdate{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Date:        req.Date,
	}
	changed, err := s.store.UpdateTask(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		if errors.Is(err, store.ErrInvalidStatus) || errors.Is(err, store.ErrInvalidDate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !changed {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	deleted, err := s.store.DeleteTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
