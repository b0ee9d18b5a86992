package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"territory-planner/internal/database"
	"territory-planner/internal/models"
	"territory-planner/internal/workspace"
)

// Handler provides common handler utilities and dependencies
type Handler struct {
	Workspace *workspace.Workspace
	DB        database.DataStore
	Logger    *zap.Logger

	optimizeLimiter *rate.Limiter
}

// Config tunes the handler layer
type Config struct {
	OptimizeRate  float64
	OptimizeBurst int
}

// New builds a Handler. A non-positive OptimizeRate disables the optimize
// rate limit.
func New(ws *workspace.Workspace, db database.DataStore, logger *zap.Logger, cfg Config) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.OptimizeRate > 0 {
		limit = rate.Limit(cfg.OptimizeRate)
	}
	burst := cfg.OptimizeBurst
	if burst <= 0 {
		burst = 1
	}
	return &Handler{
		Workspace:       ws,
		DB:              db,
		Logger:          logger.Named("http"),
		optimizeLimiter: rate.NewLimiter(limit, burst),
	}
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// writeError writes a JSON error response
func (h *Handler) writeError(c *gin.Context, status int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// handleNotFound handles 404 errors
func (h *Handler) handleNotFound(c *gin.Context, message string) {
	h.writeError(c, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// handleValidationError handles 400 errors
func (h *Handler) handleValidationError(c *gin.Context, message string) {
	h.writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

// handleInternalError handles 500 errors
func (h *Handler) handleInternalError(c *gin.Context, err error) {
	h.Logger.Error("internal error",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	h.writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An error occurred. Please try again.", nil)
}

// handleError maps workspace and store errors to responses
func (h *Handler) handleError(c *gin.Context, err error) {
	var dataErr *models.DataError
	switch {
	case errors.As(err, &dataErr):
		h.writeError(c, http.StatusUnprocessableEntity, "DATA_ERROR", dataErr.Error(), map[string]interface{}{
			"row":    dataErr.Row,
			"field":  dataErr.Field,
			"value":  dataErr.Value,
			"reason": dataErr.Reason,
		})
	case errors.Is(err, workspace.ErrNoDataset):
		h.writeError(c, http.StatusConflict, "NO_DATASET", "No dataset loaded. Import customers and representatives first.", nil)
	case errors.Is(err, workspace.ErrOptimizationRunning):
		h.writeError(c, http.StatusConflict, "OPTIMIZATION_RUNNING", err.Error(), nil)
	case errors.Is(err, workspace.ErrDatasetChanged):
		h.writeError(c, http.StatusConflict, "DATASET_CHANGED", err.Error(), nil)
	case errors.Is(err, workspace.ErrNothingToUndo):
		h.writeError(c, http.StatusConflict, "NOTHING_TO_UNDO", err.Error(), nil)
	case errors.Is(err, workspace.ErrUnknownCustomer):
		h.handleNotFound(c, "Customer not found")
	case errors.Is(err, workspace.ErrUnknownRepresentative):
		h.handleNotFound(c, "Representative not found")
	case errors.Is(err, database.ErrNotFound):
		h.handleNotFound(c, "Scenario not found")
	case errors.Is(err, database.ErrEmptyName):
		h.handleValidationError(c, "Scenario name is required")
	case errors.Is(err, workspace.ErrNoStore):
		h.writeError(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", err.Error(), nil)
	default:
		h.handleInternalError(c, err)
	}
}

// Register mounts every route on r
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.HandleHealthCheck)

	api := r.Group("/api/v1")

	api.POST("/dataset/import", h.HandleImportDataset)
	api.GET("/publishers", h.HandleListPublishers)
	api.GET("/customers", h.HandleListCustomers)
	api.GET("/representatives", h.HandleListRepresentatives)
	api.GET("/summary", h.HandleSummary)
	api.GET("/stats", h.HandleStats)
	api.GET("/territories", h.HandleTerritories)

	api.GET("/assignment", h.HandleGetAssignment)
	api.POST("/assignment/reassign", h.HandleReassign)
	api.POST("/assignment/undo", h.HandleUndo)
	api.GET("/assignment/history", h.HandleHistory)
	api.GET("/assignment/export", h.HandleExportAssignment)

	api.POST("/optimize", h.rateLimit(h.optimizeLimiter), h.HandleOptimize)
	api.GET("/runs/:id", h.HandleGetRun)
	api.DELETE("/runs/:id", h.HandleCancelRun)
	api.GET("/runs/:id/progress", h.HandleRunProgress)

	api.GET("/scenarios", h.HandleListScenarios)
	api.POST("/scenarios", h.HandleSaveScenario)
	api.GET("/scenarios/:name", h.HandleGetScenario)
	api.DELETE("/scenarios/:name", h.HandleDeleteScenario)
	api.POST("/scenarios/:name/apply", h.HandleApplyScenario)
}

// rateLimit rejects requests beyond the limiter's budget
func (h *Handler) rateLimit(lim *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !lim.Allow() {
			h.writeError(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many optimization requests. Please wait.", nil)
			return
		}
		c.Next()
	}
}

// HandleHealthCheck handles GET /healthz
func (h *Handler) HandleHealthCheck(c *gin.Context) {
	if h.DB != nil {
		if err := h.DB.HealthCheck(c.Request.Context()); err != nil {
			h.Logger.Warn("health check failed", zap.Error(err))
			h.writeError(c, http.StatusServiceUnavailable, "UNHEALTHY", "Store unavailable", nil)
			return
		}
	}
	h.writeJSON(c, http.StatusOK, gin.H{
		"status":     "ok",
		"loaded":     h.Workspace.Loaded(),
		"optimizing": h.Workspace.Optimizing(),
	})
}
