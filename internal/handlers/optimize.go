package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"territory-planner/internal/progress"
	"territory-planner/internal/workspace"
)

const (
	wsReadLimit    = 1 << 16
	wsPongWait     = 60 * time.Second
	wsPingInterval = 20 * time.Second
	wsWriteWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return allowedOrigin(r.Header.Get("Origin")) },
}

// HandleOptimize handles POST /api/v1/optimize. The run starts in the
// background and 202 carries its id; with ?wait=true the request blocks and
// returns the result.
func (h *Handler) HandleOptimize(c *gin.Context) {
	var req workspace.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.handleValidationError(c, "Invalid request body")
		return
	}
	if req.Iterations < 0 {
		h.handleValidationError(c, "iterations must not be negative")
		return
	}

	if c.Query("wait") == "true" {
		res, err := h.Workspace.Optimize(c.Request.Context(), req)
		if err != nil {
			h.handleError(c, err)
			return
		}
		h.writeJSON(c, http.StatusOK, res)
		return
	}

	run, err := h.Workspace.StartOptimize(req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.Logger.Info("optimization queued", zap.String("run_id", run.ID))
	c.Header("Location", "/api/v1/runs/"+run.ID)
	h.writeJSON(c, http.StatusAccepted, run)
}

// HandleGetRun handles GET /api/v1/runs/:id
func (h *Handler) HandleGetRun(c *gin.Context) {
	run, ok := h.Workspace.Run(c.Param("id"))
	if !ok {
		h.handleNotFound(c, "Run not found")
		return
	}
	h.writeJSON(c, http.StatusOK, run)
}

// HandleCancelRun handles DELETE /api/v1/runs/:id
func (h *Handler) HandleCancelRun(c *gin.Context) {
	if !h.Workspace.CancelRun(c.Param("id")) {
		h.handleNotFound(c, "Run not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleRunProgress handles GET /api/v1/runs/:id/progress. The socket
// receives the latest known event, then every published event until the run
// reaches a terminal state.
func (h *Handler) HandleRunProgress(c *gin.Context) {
	runID := c.Param("id")
	broker := h.Workspace.Broker()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", zap.String("run_id", runID), zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	events := broker.Subscribe(runID)
	defer broker.Unsubscribe(runID, events)

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// reader only watches for the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(evt progress.Event) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(evt)
	}
	finish := func() {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"))
	}

	if last, ok := broker.Last(runID); ok {
		if err := write(last); err != nil {
			return
		}
		if last.Terminal() {
			finish()
			return
		}
	}

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := write(evt); err != nil {
				return
			}
			if evt.Terminal() {
				finish()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
