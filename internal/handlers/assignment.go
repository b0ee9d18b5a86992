package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"territory-planner/internal/ingest"
	"territory-planner/internal/models"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv; charset=utf-8"
)

// AssignmentResponse is the current customer to representative mapping
type AssignmentResponse struct {
	Assignment models.Assignment `json:"assignment"`
	Customers  int               `json:"customers"`
	Cost       float64           `json:"cost"`
}

// ReassignRequest moves one customer
type ReassignRequest struct {
	CustomerID       int64 `json:"customer_id"`
	RepresentativeID int64 `json:"representative_id"`
}

// HandleGetAssignment handles GET /api/v1/assignment
func (h *Handler) HandleGetAssignment(c *gin.Context) {
	a, err := h.Workspace.Assignment()
	if err != nil {
		h.handleError(c, err)
		return
	}
	cost, err := h.Workspace.Cost(nil)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.writeJSON(c, http.StatusOK, AssignmentResponse{Assignment: a, Customers: len(a), Cost: cost})
}

// HandleReassign handles POST /api/v1/assignment/reassign
func (h *Handler) HandleReassign(c *gin.Context) {
	var req ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleValidationError(c, "Invalid request body")
		return
	}
	if req.CustomerID == 0 || req.RepresentativeID == 0 {
		h.handleValidationError(c, "customer_id and representative_id are required")
		return
	}

	rec, err := h.Workspace.Reassign(c.Request.Context(), req.CustomerID, req.RepresentativeID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.writeJSON(c, http.StatusOK, rec)
}

// HandleUndo handles POST /api/v1/assignment/undo
func (h *Handler) HandleUndo(c *gin.Context) {
	rec, err := h.Workspace.Undo(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.writeJSON(c, http.StatusOK, rec)
}

// HandleHistory handles GET /api/v1/assignment/history
func (h *Handler) HandleHistory(c *gin.Context) {
	history := h.Workspace.History()
	h.writeJSON(c, http.StatusOK, gin.H{"history": history, "total": len(history)})
}

// HandleExportAssignment handles GET /api/v1/assignment/export?format=xlsx|csv
func (h *Handler) HandleExportAssignment(c *gin.Context) {
	ds, err := h.Workspace.Dataset()
	if err != nil {
		h.handleError(c, err)
		return
	}
	a, err := h.Workspace.Assignment()
	if err != nil {
		h.handleError(c, err)
		return
	}

	format := c.DefaultQuery("format", string(ingest.FormatXLSX))
	var buf bytes.Buffer
	var contentType string
	switch ingest.Format(format) {
	case ingest.FormatXLSX:
		err = ingest.WriteAssignmentXLSX(&buf, ds, a)
		contentType = xlsxContentType
	case ingest.FormatCSV:
		err = ingest.WriteAssignmentCSV(&buf, ds, a)
		contentType = csvContentType
	default:
		h.handleValidationError(c, "format must be xlsx or csv")
		return
	}
	if err != nil {
		h.handleInternalError(c, err)
		return
	}

	filename := fmt.Sprintf("gebietsplanung_%s.%s", time.Now().Format("20060102_1504"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
