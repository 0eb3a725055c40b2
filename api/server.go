package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/moyoez/docconvert-go/api/controllers"
	"github.com/moyoez/docconvert-go/api/middlewares"
	"github.com/moyoez/docconvert-go/api/notifyhub"
	"github.com/moyoez/docconvert-go/tool"
	"github.com/moyoez/docconvert-go/types"
)

// Deps are the collaborators the local control API forwards user intents to.
type Deps struct {
	Orchestrator controllers.Orchestrator
	Guard        controllers.Guard
	History      controllers.HistoryStore
	Hub          *notifyhub.Hub // optional, enables /notify-ws
	DefaultMode  types.Mode
}

// Server is the loopback-only HTTP API a local UI uses to drive conversions.
type Server struct {
	port   int
	deps   Deps
	engine *gin.Engine
	server *http.Server
	mu     sync.RWMutex
}

func NewServer(port int, deps Deps) *Server {
	return &Server{
		port: port,
		deps: deps,
	}
}

// Handler builds the routes without starting a listener.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		s.engine = s.setupRoutes()
	}
	return s.engine
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	sessionCtrl := controllers.NewSessionController(s.deps.Orchestrator, s.deps.Guard, s.deps.History, s.deps.DefaultMode)

	self := engine.Group("/api/self/v1", middlewares.OnlyAllowLocal)
	{
		self.POST("/submit", sessionCtrl.HandleSubmit)          // Upload local files and start a session
		self.GET("/status", sessionCtrl.HandleStatus)           // Snapshot of the active session
		self.DELETE("/session", sessionCtrl.HandleAbandon)      // Abandon: cleanup on server, drop locally
		self.GET("/history", sessionCtrl.HandleHistory)         // Recently finished sessions
		self.GET("/download-qr", sessionCtrl.HandleDownloadQR) // QR code PNG of the download URL
		if s.deps.Hub != nil {
			self.GET("/notify-ws", notifyhub.HandleNotifyWS(s.deps.Hub, s.deps.Orchestrator.Snapshot))
		}
	}
	return engine
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	handler := s.Handler()

	s.mu.Lock()
	s.server = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler: handler,
	}
	srv := s.server
	s.mu.Unlock()

	tool.DefaultLogger.Infof("[Server] Starting local control API on http://%s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
