package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"territory-planner/internal/ingest"
	"territory-planner/internal/models"
	"territory-planner/internal/workspace"
)

// maxUploadBytes bounds one imported file
const maxUploadBytes = 32 << 20

// ImportResponse is returned after a dataset import
type ImportResponse struct {
	Report  *ingest.Report `json:"report"`
	Summary models.Summary `json:"summary"`
}

// CustomerListResponse represents the list response
type CustomerListResponse struct {
	Customers []models.Customer `json:"customers"`
	Total     int               `json:"total"`
}

// RepresentativeListResponse represents the list response
type RepresentativeListResponse struct {
	Representatives []RepresentativeView `json:"representatives"`
	Total           int                  `json:"total"`
}

// RepresentativeView is a representative with its palette colour
type RepresentativeView struct {
	models.Representative
	Color string `json:"color"`
}

// parseFilter reads publisher, representative and search query parameters.
// representative may repeat.
func parseFilter(c *gin.Context) (workspace.Filter, error) {
	f := workspace.Filter{
		Publisher: c.Query("publisher"),
		Search:    c.Query("search"),
	}
	for _, raw := range c.QueryArray("representative") {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, fmt.Errorf("invalid representative id %q", raw)
		}
		f.RepresentativeIDs = append(f.RepresentativeIDs, id)
	}
	return f, nil
}

func readUpload(fh *multipart.FileHeader) ([][]string, error) {
	if fh.Size > maxUploadBytes {
		return nil, fmt.Errorf("%s is larger than %d MB", fh.Filename, maxUploadBytes>>20)
	}
	format, err := ingest.FormatOf(fh.Filename)
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return ingest.ReadTable(f, format)
}

// HandleImportDataset handles POST /api/v1/dataset/import. The multipart form
// carries a customers file and a representatives file, each xlsx or csv.
func (h *Handler) HandleImportDataset(c *gin.Context) {
	customersFile, err := c.FormFile("customers")
	if err != nil {
		h.handleValidationError(c, "customers file is required")
		return
	}
	repsFile, err := c.FormFile("representatives")
	if err != nil {
		h.handleValidationError(c, "representatives file is required")
		return
	}

	customerTable, err := readUpload(customersFile)
	if err != nil {
		h.handleValidationError(c, err.Error())
		return
	}
	repTable, err := readUpload(repsFile)
	if err != nil {
		h.handleValidationError(c, err.Error())
		return
	}

	ds, report, err := ingest.Parse(customerTable, repTable)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if err := h.Workspace.Load(c.Request.Context(), ds); err != nil {
		h.handleError(c, err)
		return
	}

	summary, err := h.Workspace.Summary(workspace.Filter{})
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.Logger.Info("dataset imported",
		zap.String("customers_file", customersFile.Filename),
		zap.String("representatives_file", repsFile.Filename),
		zap.Int("customers", report.Customers),
		zap.Int("skipped", len(report.Skipped)))

	h.writeJSON(c, http.StatusCreated, ImportResponse{Report: report, Summary: summary})
}

// HandleListPublishers handles GET /api/v1/publishers
func (h *Handler) HandleListPublishers(c *gin.Context) {
	pubs, err := h.Workspace.Publishers()
	if err != nil {
		h.handleError(c, err)
		return
	}
	if pubs == nil {
		pubs = []string{}
	}
	h.writeJSON(c, http.StatusOK, gin.H{"publishers": pubs})
}

// HandleListCustomers handles GET /api/v1/customers
func (h *Handler) HandleListCustomers(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		h.handleValidationError(c, err.Error())
		return
	}
	customers, err := h.Workspace.Customers(f)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.writeJSON(c, http.StatusOK, CustomerListResponse{
		Customers: customers,
		Total:     len(customers),
	})
}

// HandleListRepresentatives handles GET /api/v1/representatives. With a
// publisher parameter only representatives serving that publisher are listed.
func (h *Handler) HandleListRepresentatives(c *gin.Context) {
	reps, err := h.Workspace.AvailableRepresentatives(c.Query("publisher"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	colors := h.Workspace.Colors()
	views := make([]RepresentativeView, 0, len(reps))
	for _, r := range reps {
		views = append(views, RepresentativeView{Representative: r, Color: colors[r.ID]})
	}
	h.writeJSON(c, http.StatusOK, RepresentativeListResponse{
		Representatives: views,
		Total:           len(views),
	})
}

// HandleSummary handles GET /api/v1/summary
func (h *Handler) HandleSummary(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		h.handleValidationError(c, err.Error())
		return
	}
	sum, err := h.Workspace.Summary(f)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.writeJSON(c, http.StatusOK, sum)
}

// HandleStats handles GET /api/v1/stats
func (h *Handler) HandleStats(c *gin.Context) {
	stats, err := h.Workspace.Stats()
	if err != nil {
		h.handleError(c, err)
		return
	}
	cost, err := h.Workspace.Cost(nil)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.writeJSON(c, http.StatusOK, gin.H{"representatives": stats, "cost": cost})
}

// HandleTerritories handles GET /api/v1/territories
func (h *Handler) HandleTerritories(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		h.handleValidationError(c, err.Error())
		return
	}
	terr, err := h.Workspace.Territories(f)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.writeJSON(c, http.StatusOK, gin.H{"territories": terr})
}
