package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"territory-planner/internal/metrics"
	"territory-planner/internal/models"
	"territory-planner/internal/progress"
	"territory-planner/internal/sqlite"
	fixtures "territory-planner/internal/testutil"
	"territory-planner/internal/workspace"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	h      *Handler
	ws     *workspace.Workspace
	engine *gin.Engine
}

func setupTestHandler(t *testing.T, cfg Config, load bool) *testEnv {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "handlers.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ws := workspace.New(workspace.Options{
		Store:    db,
		Defaults: workspace.Defaults{Iterations: 200, ProgressEvery: 50, Seed: 5},
	})
	if load {
		require.NoError(t, ws.Load(context.Background(), fixtures.SampleDataset()))
	}

	h := New(ws, db, zap.NewNop(), cfg)
	engine := gin.New()
	engine.Use(Metrics())
	h.Register(engine)
	return &testEnv{h: h, ws: ws, engine: engine}
}

func (e *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestWriteJSONHelper(t *testing.T) {
	h := &Handler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.writeJSON(c, http.StatusOK, map[string]string{"message": "test"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var result map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, "test", result["message"])
}

func TestWriteErrorHelper(t *testing.T) {
	h := &Handler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.writeError(c, http.StatusBadRequest, "TEST_ERROR", "Test error message", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, c.IsAborted())
	response := decodeError(t, w)
	assert.Equal(t, "TEST_ERROR", response.Error.Code)
	assert.Equal(t, "Test error message", response.Error.Message)
}

func TestHandleHealthCheck(t *testing.T) {
	e := setupTestHandler(t, Config{}, true)

	w := e.do("GET", "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["loaded"])
}

func TestHandlersWithoutDataset(t *testing.T) {
	e := setupTestHandler(t, Config{}, false)

	for _, path := range []string{"/api/v1/summary", "/api/v1/customers", "/api/v1/territories", "/api/v1/assignment", "/api/v1/assignment/export"} {
		t.Run(path, func(t *testing.T) {
			w := e.do("GET", path, nil)
			assert.Equal(t, http.StatusConflict, w.Code)
			assert.Equal(t, "NO_DATASET", decodeError(t, w).Error.Code)
		})
	}
}

func TestHandleSummary(t *testing.T) {
	e := setupTestHandler(t, Config{}, true)

	w := e.do("GET", "/api/v1/summary?publisher=Westverlag", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var sum models.Summary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sum))
	assert.Equal(t, 2, sum.Representatives)
	assert.Equal(t, 3, sum.Customers)
	assert.InDelta(t, 2500, sum.Revenue, 1e-9)

	w = e.do("GET", "/api/v1/summary?publisher=Westverlag&representative=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sum))
	assert.Equal(t, 1, sum.Representatives)
	assert.Equal(t, 2, sum.Customers)
}

func TestHandleListCustomers(t *testing.T) {
	e := setupTestHandler(t, Config{}, true)

	w := e.do("GET", "/api/v1/customers?search=buch", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response CustomerListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 4, response.Total)

	w = e.do("GET", "/api/v1/customers?representative=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Error.Code)
}

func TestHandleListRepresentatives(t *testing.T) {
	e := setupTestHandler(t, Config{}, true)

	w := e.do("GET", "/api/v1/representatives?publisher=Westverlag", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response RepresentativeListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Equal(t, 2, response.Total)
	assert.Equal(t, "Schulz", response.Representatives[0].Name)
	assert.Equal(t, "#ff7f0e", response.Representatives[0].Color)
}

func TestHandleTerritoriesAndStats(t *testing.T) {
	e := setupTestHandler(t, Config{}, true)

	w := e.do("GET", "/api/v1/territories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var terr struct {
		Territories []models.Territory `json:"territories"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&terr))
	assert.Len(t, terr.Territories, 3)

	w = e.do("GET", "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Representatives []models.RepresentativeStats `json:"representatives"`
		Cost            float64                      `json:"cost"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	assert.Len(t, stats.Representatives, 3)
	assert.Greater(t, stats.Cost, 0.0)
}

func TestHandleReassignUndoHistory(t *testing.T) {
	e := setupTestHandler(t, Config{}, true)

	w := e.do("POST", "/api/v1/assignment/reassign", ReassignRequest{CustomerID: 3004, RepresentativeID: 3})
	require.Equal(t, http.StatusOK, w.Code)
	var rec models.ReassignmentRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rec))
	assert.Equal(t, int64(1), rec.OldRepresentativeID)

	w = e.do("GET", "/api/v1/assignment/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = e.do("POST", "/api/v1/assignment/reassign", ReassignRequest{CustomerID: 9999, RepresentativeID: 3})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do("POST", "/api/v1/assignment/reassign", ReassignRequest{CustomerID: 3004})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do("POST", "/api/v1/assignment/undo", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do("POST", "/api/v1/assignment/undo", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NOTHING_TO_UNDO", decodeError(t, w).Error.Code)
}

func TestHandleGetAssignment(t *testing.T) {
	e := setupTestHandler(t, Config{}, true)

	w := e.do("GET", "/api/v1/assignment", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response AssignmentResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 12, response.Customers)
	assert.Equal(t, int64(1), response.Assignment[2004])
}

func TestHandleExportAssignment(t *testing.T) {
	e := setupTestHandler(t, Config{}, true)

	w := e.do("GET", "/api/v1/assignment/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Assignment")
	require.NoError(t, err)
	assert.Len(t, rows, 13)

	w = e.do("GET", "/api/v1/assignment/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "Kunden_Nr;"))

	w = e.do("GET", "/api/v1/assignment/export?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleImportDataset(t *testing.T) {
	e := setupTestHandler(t, Config{}, false)

	customers := "Kunden_Nr;Kunde_ID_Name;Verlag;Latitude;Longitude;Umsatz_2024;Vertreter_Name\n" +
		"1;Buchhandlung Meier;Nordverlag;53,55;9,99;1200;Schulz\n" +
		"2;Lesezeichen GmbH;Suedverlag;48.13;11.58;900;Huber\n" +
		"3;Ohne Koordinaten;Suedverlag;;;300;Huber\n"
	reps := "Vertreter_Name;Wohnort_Lat;Wohnort_Lon\nSchulz;53.0;10.0\nHuber;48.2;11.6\n"

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, content := range map[string]string{"customers": customers, "representatives": reps} {
		part, err := mw.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v1/dataset/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var response ImportResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 2, response.Report.Customers)
	assert.Len(t, response.Report.Skipped, 1)
	assert.Equal(t, 2, response.Summary.Customers)
	assert.InDelta(t, 2100, response.Summary.Revenue, 1e-9)
	assert.True(t, e.ws.Loaded())
}

func TestHandleImportDatasetMissingFile(t *testing.T) {
	e := setupTestHandler(t, Config{}, false)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no files"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v1/dataset/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleOptimizeWait(t *testing.T) {
	e := setupTestHandler(t, Config{}, true)

	w := e.do("POST", "/api/v1/optimize?wait=true", workspace.OptimizeRequest{Iterations: 150})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		Assignment models.Assignment `json:"assignment"`
		Iterations int               `json:"iterations"`
		Phase      string            `json:"phase"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, 150, res.Iterations)
	assert.Equal(t, "exhausted", res.Phase)
	assert.Len(t, res.Assignment, 12)

	w = e.do("POST", "/api/v1/optimize", workspace.OptimizeRequest{Iterations: -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleOptimizeAsync(t *testing.T) {
	e := setupTestHandler(t, Config{}, true)

	w := e.do("POST", "/api/v1/optimize", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var run workspace.Run
	require.NoError(t, json.NewDecoder(w.Body).Decode(&run))
	require.NotEmpty(t, run.ID)
	assert.Equal(t, "/api/v1/runs/"+run.ID, w.Header().Get("Location"))

	require.Eventually(t, func() bool {
		w := e.do("GET", "/api/v1/runs/"+run.ID, nil)
		var got workspace.Run
		_ = json.NewDecoder(w.Body).Decode(&got)
		return got.State == progress.StateExhausted
	}, 5*time.Second, 10*time.Millisecond)

	w = e.do("GET", "/api/v1/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do("DELETE", "/api/v1/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleOptimizeRateLimited(t *testing.T) {
	e := setupTestHandler(t, Config{OptimizeRate: 0.001, OptimizeBurst: 1}, true)

	w := e.do("POST", "/api/v1/optimize?wait=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do("POST", "/api/v1/optimize?wait=true", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, w).Error.Code)
}

func TestHandleRunProgressWebsocket(t *testing.T) {
	e := setupTestHandler(t, Config{}, true)
	srv := httptest.NewServer(e.engine)
	defer srv.Close()

	run, err := e.ws.StartOptimize(workspace.OptimizeRequest{})
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/runs/" + run.ID + "/progress"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var last progress.Event
	for {
		var evt progress.Event
		require.NoError(t, conn.ReadJSON(&evt))
		assert.Equal(t, run.ID, evt.RunID)
		last = evt
		if evt.Terminal() {
			break
		}
	}
	assert.Equal(t, progress.StateExhausted, last.State)
	assert.Equal(t, 200, last.Iteration)

	require.Eventually(t, func() bool { return !e.ws.Optimizing() }, 5*time.Second, 10*time.Millisecond)
}

func TestHandleScenarios(t *testing.T) {
	e := setupTestHandler(t, Config{}, true)

	w := e.do("POST", "/api/v1/scenarios", map[string]string{"name": "Basis"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do("POST", "/api/v1/scenarios", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do("GET", "/api/v1/scenarios", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list ScenarioListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Basis", list.Scenarios[0].Name)

	w = e.do("GET", "/api/v1/scenarios/Basis?format=yaml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "name: Basis")

	w = e.do("GET", "/api/v1/scenarios/Fehlt", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, err := e.ws.Reassign(context.Background(), 1001, 2)
	require.NoError(t, err)
	w = e.do("POST", "/api/v1/scenarios/Basis/apply", nil)
	require.Equal(t, http.StatusOK, w.Code)
	a, _ := e.ws.Assignment()
	assert.Equal(t, int64(1), a[1001])

	w = e.do("DELETE", "/api/v1/scenarios/Basis", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = e.do("DELETE", "/api/v1/scenarios/Basis", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsMiddlewareCountsRoutes(t *testing.T) {
	e := setupTestHandler(t, Config{}, true)
	before := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "/api/v1/scenarios/:name", "404"))

	e.do("GET", "/api/v1/scenarios/unbekannt", nil)

	after := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "/api/v1/scenarios/:name", "404"))
	assert.Equal(t, 1.0, after-before)
}

func TestCORS(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS())
	engine.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("OPTIONS", "/x", nil)
	req.Header.Set("Origin", "http://localhost:34115")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:34115", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Origin", "https://example.com")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	assert.True(t, allowedOrigin(""))
	assert.True(t, allowedOrigin("wails://wails"))
	assert.False(t, allowedOrigin("https://example.com"))
}
