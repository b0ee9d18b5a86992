package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"territory-planner/internal/ingest"
	"territory-planner/internal/models"
)

// ScenarioListResponse represents the list response
type ScenarioListResponse struct {
	Scenarios []models.ScenarioInfo `json:"scenarios"`
	Total     int                   `json:"total"`
}

// HandleListScenarios handles GET /api/v1/scenarios
func (h *Handler) HandleListScenarios(c *gin.Context) {
	infos, err := h.Workspace.ListScenarios(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	if infos == nil {
		infos = []models.ScenarioInfo{}
	}
	h.writeJSON(c, http.StatusOK, ScenarioListResponse{Scenarios: infos, Total: len(infos)})
}

// HandleSaveScenario handles POST /api/v1/scenarios
func (h *Handler) HandleSaveScenario(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleValidationError(c, "Invalid request body")
		return
	}

	sc, err := h.Workspace.SaveScenario(c.Request.Context(), req.Name)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.writeJSON(c, http.StatusCreated, sc)
}

// HandleGetScenario handles GET /api/v1/scenarios/:name. format=yaml returns
// the scenario as a YAML document.
func (h *Handler) HandleGetScenario(c *gin.Context) {
	name := c.Param("name")
	sc, err := h.Workspace.LoadScenario(c.Request.Context(), name)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if sc == nil {
		h.handleNotFound(c, "Scenario not found")
		return
	}

	if c.Query("format") == "yaml" {
		var buf bytes.Buffer
		if err := ingest.WriteScenarioYAML(&buf, sc); err != nil {
			h.handleInternalError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sc.Name+".yaml"))
		c.Data(http.StatusOK, "application/yaml", buf.Bytes())
		return
	}
	h.writeJSON(c, http.StatusOK, sc)
}

// HandleDeleteScenario handles DELETE /api/v1/scenarios/:name
func (h *Handler) HandleDeleteScenario(c *gin.Context) {
	if err := h.Workspace.DeleteScenario(c.Request.Context(), c.Param("name")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleApplyScenario handles POST /api/v1/scenarios/:name/apply
func (h *Handler) HandleApplyScenario(c *gin.Context) {
	sc, err := h.Workspace.ApplyScenario(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.writeJSON(c, http.StatusOK, sc)
}
