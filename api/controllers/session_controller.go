package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/docconvert-go/session"
	"github.com/moyoez/docconvert-go/tool"
	"github.com/moyoez/docconvert-go/types"
)

// Orchestrator is the part of session.Orchestrator the local API drives.
type Orchestrator interface {
	Submit(sel types.FileSelection) (types.Snapshot, error)
	Snapshot() (types.Snapshot, bool)
	Close()
}

// Guard receives the abandonment signal.
type Guard interface {
	Abandon(ctx context.Context) bool
}

// HistoryStore lists recently finished sessions.
type HistoryStore interface {
	List() []types.Snapshot
}

// SubmitRequest is the body of POST /api/self/v1/submit.
type SubmitRequest struct {
	Files []string `json:"files"`
	Mode  string   `json:"mode"`
	Lang  string   `json:"lang"`
}

type SessionController struct {
	orch        Orchestrator
	guard       Guard
	history     HistoryStore
	defaultMode types.Mode
}

func NewSessionController(orch Orchestrator, guard Guard, history HistoryStore, defaultMode types.Mode) *SessionController {
	if defaultMode == "" {
		defaultMode = types.ModePDF
	}
	return &SessionController{
		orch:        orch,
		guard:       guard,
		history:     history,
		defaultMode: defaultMode,
	}
}

// HandleSubmit starts a new session from local file paths.
// POST /api/self/v1/submit
func (ctrl *SessionController) HandleSubmit(c *gin.Context) {
	var request SubmitRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}

	mode := ctrl.defaultMode
	if request.Mode != "" {
		m, ok := types.ParseMode(request.Mode)
		if !ok {
			c.JSON(http.StatusBadRequest, tool.FastReturnError("Unknown mode: "+request.Mode))
			return
		}
		mode = m
	}

	files, err := tool.CollectFiles(request.Files)
	if err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError(err.Error()))
		return
	}

	snap, err := ctrl.orch.Submit(types.FileSelection{Files: files, Mode: mode, Language: request.Lang})
	if err != nil {
		var ve *session.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, tool.FastReturnErrorWithData(ve.Message, map[string]any{"mode": string(mode)}))
			return
		}
		tool.DefaultLogger.Errorf("[Submit] %v", err)
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Internal server error"))
		return
	}
	c.JSON(http.StatusAccepted, tool.FastReturnSuccessWithData(snap))
}

// HandleStatus returns the active session.
// GET /api/self/v1/status
func (ctrl *SessionController) HandleStatus(c *gin.Context) {
	snap, ok := ctrl.orch.Snapshot()
	if !ok {
		c.JSON(http.StatusNotFound, tool.FastReturnError("No active session"))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(snap))
}

// HandleAbandon is the abandonment signal: clean the active session up on the
// server, then drop it locally.
// DELETE /api/self/v1/session
func (ctrl *SessionController) HandleAbandon(c *gin.Context) {
	released := ctrl.guard.Abandon(c.Request.Context())
	ctrl.orch.Close()
	tool.DefaultLogger.Infof("[Abandon] Active session dropped (cleanup dispatched=%v)", released)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "released": released})
}

// HandleHistory lists finished sessions that have not expired yet.
// GET /api/self/v1/history
func (ctrl *SessionController) HandleHistory(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(ctrl.history.List()))
}
