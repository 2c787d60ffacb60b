package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/tag-remediation/pkg/audit"
	"github.com/David-Botos/tag-remediation/pkg/cleaner"
	"github.com/David-Botos/tag-remediation/pkg/model"
	"github.com/David-Botos/tag-remediation/pkg/remediation"
	"github.com/David-Botos/tag-remediation/pkg/telemetry"
)

const inventoryCSV = `AccountID,ResourceID,Service,Region,Department,Project,Environment,Owner,CostCenter,CreatedBy,MonthlyCostUSD,Tagged
1,r1,EC2,us-east-1,Eng,Apollo,prod,jdoe,CC1,terraform,100,Yes
1,r2,S3,us-east-1,,,,,,console,20,No
1,r3,EC2,eu-west-1,Finance,Ledger,dev,asmith,CC2,terraform,40,Yes
1,r4,RDS,us-east-1,Eng,,prod,,,console,60,No
1,r5,EC2,us-east-1,Eng,Apollo,dev,jdoe,CC1,console,10,No
`

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router   *gin.Engine
	recorder *audit.MemoryRecorder
	registry *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	registry := prometheus.NewRegistry()
	metrics, err := telemetry.NewMetrics(registry, logger)
	require.NoError(t, err)

	dataCleaner, err := cleaner.NewDataCleaner(logger, cleaner.DefaultRepairPolicy())
	require.NoError(t, err)

	recorder := &audit.MemoryRecorder{}
	session := remediation.NewSession(logger,
		remediation.WithRecorder(recorder),
		remediation.WithMetrics(metrics))

	srv, err := New(logger, dataCleaner, session, WithMetrics(metrics, registry))
	require.NoError(t, err)

	return &fixture{router: srv.Router(), recorder: recorder, registry: registry}
}

func (f *fixture) do(t *testing.T, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) upload(t *testing.T, content string) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, http.MethodPost, "/v1/upload?name=inventory.csv", []byte(content), "text/csv")
}

// rowsBody mirrors rowsResponse with plain JSON values
type rowsBody struct {
	Snapshot string `json:"snapshot"`
	Total    int    `json:"total"`
	Count    int    `json:"count"`
	Rows     []struct {
		Row    int            `json:"row"`
		Values map[string]any `json:"values"`
	} `json:"rows"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestNew_Rejections(t *testing.T) {
	dataCleaner, err := cleaner.NewDataCleaner(zap.NewNop(), cleaner.DefaultRepairPolicy())
	require.NoError(t, err)

	_, err = New(nil, dataCleaner, remediation.NewSession(nil))
	assert.Error(t, err)
	_, err = New(zap.NewNop(), nil, remediation.NewSession(nil))
	assert.Error(t, err)
	_, err = New(zap.NewNop(), dataCleaner, nil)
	assert.Error(t, err)
}

func TestNoSessionConflict(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{
		"/v1/session",
		"/v1/resources",
		"/v1/reports/overview",
		"/v1/remediation/untagged",
		"/v1/remediation/compare",
		"/v1/export/edited",
	} {
		w := f.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusConflict, w.Code, path)
	}

	w := f.do(t, http.MethodPost, "/v1/remediation/apply", []byte(`{"edits":[]}`), "application/json")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpload(t *testing.T) {
	f := newFixture(t)

	w := f.upload(t, inventoryCSV)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[uploadResponse](t, w)
	assert.Equal(t, "inventory.csv", resp.Source)
	assert.Equal(t, 5, resp.Rows)
	assert.True(t, resp.Initialized)
	assert.Empty(t, f.recorder.Entries, "a clean file needs no repair audit")

	// Same content keeps the session
	w = f.upload(t, inventoryCSV)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[uploadResponse](t, w).Initialized)

	w = f.do(t, http.MethodGet, "/v1/session", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"inventory.csv"`)
}

func TestUpload_Multipart(t *testing.T) {
	f := newFixture(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "cloudmart.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(inventoryCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := f.do(t, http.MethodPost, "/v1/upload", body.Bytes(), mw.FormDataContentType())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cloudmart.csv", decode[uploadResponse](t, w).Source)
}

func TestUpload_Errors(t *testing.T) {
	f := newFixture(t)

	w := f.upload(t, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"category":"Ingestion"`)

	w = f.upload(t, "ResourceID,Service\nr1,EC2\n")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"category":"Schema"`)

	// A failed upload leaves the previous session intact
	require.Equal(t, http.StatusOK, f.upload(t, inventoryCSV).Code)
	assert.Equal(t, http.StatusBadRequest, f.upload(t, "").Code)
	w = f.do(t, http.MethodGet, "/v1/resources", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, decode[rowsBody](t, w).Count)
}

func TestResources(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.upload(t, inventoryCSV).Code)

	w := f.do(t, http.MethodGet, "/v1/resources?service=EC2&department=Eng", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[rowsBody](t, w)
	assert.Equal(t, snapshotOriginal, resp.Snapshot)
	assert.Equal(t, 5, resp.Total)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, 0, resp.Rows[0].Row)
	assert.Equal(t, 4, resp.Rows[1].Row)
	assert.Equal(t, "r5", resp.Rows[1].Values["ResourceID"])
	assert.Nil(t, decode[rowsBody](t, f.do(t, http.MethodGet, "/v1/resources?tagged=No", nil, "")).Rows[0].Values["Department"])

	w = f.do(t, http.MethodGet, "/v1/resources?service=All&tagged=No", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[rowsBody](t, w).Count)

	w = f.do(t, http.MethodGet, "/v1/resources?snapshot=latest", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFilterOptions(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.upload(t, inventoryCSV).Code)

	w := f.do(t, http.MethodGet, "/v1/filters/Department", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Options []string `json:"options"`
	}](t, w)
	assert.Equal(t, []string{"All", "Eng", "Finance"}, resp.Options)

	// Owner has no selector
	w = f.do(t, http.MethodGet, "/v1/filters/Owner", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReports(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.upload(t, inventoryCSV).Code)

	for _, path := range []string{
		"/v1/reports",
		"/v1/reports/overview",
		"/v1/reports/missing",
		"/v1/reports/completeness",
		"/v1/reports/cost-by-tag",
		"/v1/reports/crosstab",
		"/v1/reports/cost-by/Project",
	} {
		w := f.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := f.do(t, http.MethodGet, "/v1/reports/cost-by/Department?tagged=No", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `{"key":"Eng","cost":70,"resources":2}`)

	w = f.do(t, http.MethodGet, "/v1/reports/cost-by/Nope", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/v1/reports/overview?service=EC2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"resources":3`)
}

func TestApplyCompareAndExport(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.upload(t, inventoryCSV).Code)

	body := `{"edits":[
		{"resource_id":"r4","column":"Project","value":"Hermes"},
		{"resource_id":"r4","column":"Owner","value":" bob "},
		{"row":0,"column":"Owner","value":"x"}
	]}`
	w := f.do(t, http.MethodPost, "/v1/remediation/apply", []byte(body), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[remediation.ApplyResult](t, w)
	assert.Equal(t, 2, result.Applied)
	assert.Equal(t, 1, result.Changed)
	assert.Equal(t, []int{3}, result.TaggedRows)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, model.RejectNotUntagged, result.Rejected[0].Reason)
	assert.NotEmpty(t, f.recorder.Entries, "accepted edits are audited")

	// The original snapshot is untouched
	w = f.do(t, http.MethodGet, "/v1/resources?tagged=No", nil, "")
	assert.Equal(t, 3, decode[rowsBody](t, w).Count)

	w = f.do(t, http.MethodGet, "/v1/remediation/untagged", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	untagged := decode[rowsBody](t, w)
	assert.Equal(t, snapshotEdited, untagged.Snapshot)
	assert.Equal(t, 2, untagged.Count)

	w = f.do(t, http.MethodGet, "/v1/remediation/compare", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[remediation.CompareReport](t, w)
	assert.Equal(t, 1, report.Remediated)
	assert.Equal(t, -1, report.Untagged.Delta)
	assert.InDelta(t, 60.0, report.CostVisibilityGained, 1e-9)

	w = f.do(t, http.MethodGet, "/v1/export/edited", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "cloudmart_remediated.csv")
	assert.Contains(t, w.Body.String(), "1,r4,RDS,us-east-1,Eng,Hermes,prod,bob,,console,60,Yes\n")

	w = f.do(t, http.MethodGet, "/v1/export/untagged", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "untagged_resources.csv")
	lines := strings.Split(strings.TrimSuffix(w.Body.String(), "\n"), "\n")
	assert.Len(t, lines, 3, "header plus r2 and r5")

	w = f.do(t, http.MethodGet, "/v1/export/original", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, inventoryCSV, w.Body.String())

	w = f.do(t, http.MethodGet, "/v1/export/everything", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApply_BadRequests(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.upload(t, inventoryCSV).Code)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"edits":`},
		{name: "missing edits", body: `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/v1/remediation/apply", []byte(tt.body), "application/json")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	w := f.do(t, http.MethodPost, "/v1/remediation/apply", []byte(`{"edits":[]}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[remediation.ApplyResult](t, w).Applied)
}

func TestApply_EditWithoutColumnIsRejectedAlone(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.upload(t, inventoryCSV).Code)

	body := `{"edits":[{"row":1,"column":"Department","value":"Eng"},{"row":1,"value":"x"}]}`
	w := f.do(t, http.MethodPost, "/v1/remediation/apply", []byte(body), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decode[remediation.ApplyResult](t, w)
	assert.Equal(t, 1, result.Applied)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, model.RejectUnknownColumn, result.Rejected[0].Reason)

	w = f.do(t, http.MethodGet, "/v1/export/edited", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1,r2,S3,us-east-1,Eng,,,,,console,20,No\n")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.upload(t, inventoryCSV).Code)

	w := f.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tagremediation_ingest_files_total")
	assert.Contains(t, w.Body.String(), "tagremediation_remediation_untagged_resources")
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "no session", err: model.ErrNoSession, want: http.StatusConflict},
		{name: "unknown column", err: fmt.Errorf("cost by: %w", model.ErrUnknownColumn), want: http.StatusBadRequest},
		{name: "ingestion", err: &model.IngestionError{Line: 2, Reason: model.ErrUnrepairableRow}, want: http.StatusBadRequest},
		{name: "schema", err: &model.SchemaError{Missing: []string{model.ColTagged}}, want: http.StatusUnprocessableEntity},
		{name: "internal", err: errors.New("disk on fire"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
