package web

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/npolatykin/mas-sandbox/internal/agent"
	"github.com/npolatykin/mas-sandbox/internal/search"
	"github.com/npolatykin/mas-sandbox/internal/store"
)

// Server exposes the assistant and the task store over HTTP.
type Server struct {
	agent  *agent.Agent
	store  *store.Store
	engine *search.Engine
	router *gin.Engine
}

// NewServer wires the routes.
func NewServer(a *agent.Agent, st *store.Store, engine *search.Engine) *Server {
	router := gin.Default()

	s := &Server{
		agent:  a,
		store:  st,
		engine: engine,
		router: router,
	}

	router.GET("/health", s.handleHealth)
	router.GET("/ws", s.handleWebSocket)

	api := router.Group("/api")
	{
		api.POST("/chat", s.handleChat)
		api.GET("/tasks", s.handleSearchTasks)
		api.GET("/tasks/:id", s.handleGetTask)
		api.POST("/tasks", s.handleCreateTask)
		api.PUT("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
	}

	return s
}

// RunContext serves until ctx is cancelled, then shuts down gracefully so
// the caller's deferred cleanup (data flush, vector cache handle) runs.
// Returns nil after a clean shutdown.
func (s *Server) RunContext(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: s.router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Warning: server shutdown: %v", err)
		}
	}()

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
