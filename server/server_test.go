package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchforge/secscan/database"
	"github.com/launchforge/secscan/model"
	"github.com/launchforge/secscan/scanner"
)

// stubTrigger accepts every scan and records the target it was handed
type stubTrigger struct {
	target scanner.Target
	report *model.SecurityReport
	err    error
}

func (s *stubTrigger) TriggerScan(_ context.Context, target scanner.Target) (*model.SecurityReport, error) {
	s.target = target
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

// stubTriage returns a canned error and records the last mutation
type stubTriage struct {
	err error

	vulnKey    string
	vulnValue  bool
	recKey     string
	recValue   bool
	deletedKey string
}

func (s *stubTriage) SetVulnerabilityResolved(_ context.Context, key string, resolved bool) (*model.Vulnerability, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.vulnKey, s.vulnValue = key, resolved
	v := model.NewVulnerability()
	v.Key = key
	v.Resolved = resolved
	return v, nil
}

func (s *stubTriage) SetRecommendationImplemented(_ context.Context, key string, implemented bool) (*model.Recommendation, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.recKey, s.recValue = key, implemented
	r := model.NewRecommendation()
	r.Key = key
	r.Implemented = implemented
	return r, nil
}

func (s *stubTriage) DeleteReport(_ context.Context, key string) error {
	if s.err != nil {
		return s.err
	}
	s.deletedKey = key
	return nil
}

// testSchema is a one-field schema; route tests do not need the real resolvers
func testSchema(t *testing.T) graphql.Schema {
	t.Helper()
	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name: "Query",
			Fields: graphql.Fields{
				"ping": &graphql.Field{
					Type: graphql.String,
					Resolve: func(graphql.ResolveParams) (interface{}, error) {
						return "pong", nil
					},
				},
			},
		}),
	})
	require.NoError(t, err)
	return schema
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out), "body: %s", data)
}

func TestHealthCheck(t *testing.T) {
	app := New(&stubTrigger{}, &stubTriage{}, testSchema(t))

	resp := doRequest(t, app, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeJSON(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestPostScan_Accepted(t *testing.T) {
	dir := t.TempDir()
	report := model.NewSecurityReport()
	report.Key = "report-1"
	svc := &stubTrigger{report: report}
	app := New(svc, &stubTriage{}, testSchema(t))

	payload := fmt.Sprintf(`{"repo_id": "web_frontend", "project_id": "acme", "path": %q, "commit_sha": "deadbeef"}`, dir)
	resp := doRequest(t, app, http.MethodPost, "/api/v1/scans", payload)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body ScanResponse
	decodeJSON(t, resp, &body)
	assert.True(t, body.Success)
	assert.Equal(t, "report-1", body.ReportKey)
	assert.Contains(t, body.Message, "web_frontend")

	assert.Equal(t, scanner.Target{
		RepoID:    "web_frontend",
		ProjectID: "acme",
		RootPath:  dir,
		CommitSha: "deadbeef",
	}, svc.target)
}

func TestPostScan_MissingFields(t *testing.T) {
	app := New(&stubTrigger{}, &stubTriage{}, testSchema(t))

	for _, payload := range []string{
		`{"path": "/tmp"}`,
		`{"repo_id": "web_frontend"}`,
		`{}`,
	} {
		resp := doRequest(t, app, http.MethodPost, "/api/v1/scans", payload)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "payload: %s", payload)
	}
}

func TestPostScan_MalformedBody(t *testing.T) {
	app := New(&stubTrigger{}, &stubTriage{}, testSchema(t))

	resp := doRequest(t, app, http.MethodPost, "/api/v1/scans", `{"repo_id": `)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostScan_RejectsFilePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(file, []byte("hi"), 0644))

	app := New(&stubTrigger{}, &stubTriage{}, testSchema(t))

	payload := fmt.Sprintf(`{"repo_id": "r", "path": %q}`, file)
	resp := doRequest(t, app, http.MethodPost, "/api/v1/scans", payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	payload = fmt.Sprintf(`{"repo_id": "r", "path": %q}`, filepath.Join(dir, "missing"))
	resp = doRequest(t, app, http.MethodPost, "/api/v1/scans", payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostScan_Conflict(t *testing.T) {
	svc := &stubTrigger{err: scanner.ErrScanInFlight}
	app := New(svc, &stubTriage{}, testSchema(t))

	payload := fmt.Sprintf(`{"repo_id": "busy_repo", "path": %q}`, t.TempDir())
	resp := doRequest(t, app, http.MethodPost, "/api/v1/scans", payload)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var body ScanResponse
	decodeJSON(t, resp, &body)
	assert.False(t, body.Success)
	assert.Contains(t, body.Message, "already running")
}

func TestPostScan_TriggerFailure(t *testing.T) {
	svc := &stubTrigger{err: errors.New("database down")}
	app := New(svc, &stubTriage{}, testSchema(t))

	payload := fmt.Sprintf(`{"repo_id": "r", "path": %q}`, t.TempDir())
	resp := doRequest(t, app, http.MethodPost, "/api/v1/scans", payload)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestPatchVulnerabilityResolved(t *testing.T) {
	store := &stubTriage{}
	app := New(&stubTrigger{}, store, testSchema(t))

	resp := doRequest(t, app, http.MethodPatch, "/api/v1/vulnerabilities/vuln-1/resolved", `{"resolved": true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "vuln-1", store.vulnKey)
	assert.True(t, store.vulnValue)

	var body UpdateResponse
	decodeJSON(t, resp, &body)
	assert.True(t, body.Success)
}

func TestPatchVulnerabilityResolved_BadBody(t *testing.T) {
	app := New(&stubTrigger{}, &stubTriage{}, testSchema(t))

	// The resolved field must be present, not defaulted.
	resp := doRequest(t, app, http.MethodPatch, "/api/v1/vulnerabilities/vuln-1/resolved", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPatch, "/api/v1/vulnerabilities/vuln-1/resolved", `resolved`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPatchVulnerabilityResolved_NotFound(t *testing.T) {
	store := &stubTriage{err: database.ErrNotFound}
	app := New(&stubTrigger{}, store, testSchema(t))

	resp := doRequest(t, app, http.MethodPatch, "/api/v1/vulnerabilities/nope/resolved", `{"resolved": false}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPatchRecommendationImplemented(t *testing.T) {
	store := &stubTriage{}
	app := New(&stubTrigger{}, store, testSchema(t))

	// false is a valid value, distinct from the field being absent
	resp := doRequest(t, app, http.MethodPatch, "/api/v1/recommendations/rec-1/implemented", `{"implemented": false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "rec-1", store.recKey)
	assert.False(t, store.recValue)
}

func TestPatchRecommendationImplemented_NotFound(t *testing.T) {
	store := &stubTriage{err: database.ErrNotFound}
	app := New(&stubTrigger{}, store, testSchema(t))

	resp := doRequest(t, app, http.MethodPatch, "/api/v1/recommendations/nope/implemented", `{"implemented": true}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteReport(t *testing.T) {
	store := &stubTriage{}
	app := New(&stubTrigger{}, store, testSchema(t))

	resp := doRequest(t, app, http.MethodDelete, "/api/v1/reports/report-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "report-1", store.deletedKey)
}

func TestDeleteReport_NotFound(t *testing.T) {
	store := &stubTriage{err: database.ErrNotFound}
	app := New(&stubTrigger{}, store, testSchema(t))

	resp := doRequest(t, app, http.MethodDelete, "/api/v1/reports/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGraphQL_Query(t *testing.T) {
	app := New(&stubTrigger{}, &stubTriage{}, testSchema(t))

	resp := doRequest(t, app, http.MethodPost, "/api/v1/graphql", `{"query": "{ ping }"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data   map[string]interface{}   `json:"data"`
		Errors []map[string]interface{} `json:"errors"`
	}
	decodeJSON(t, resp, &body)
	assert.Empty(t, body.Errors)
	assert.Equal(t, "pong", body.Data["ping"])
}

func TestGraphQL_QueryErrors(t *testing.T) {
	app := New(&stubTrigger{}, &stubTriage{}, testSchema(t))

	// Field errors travel in the response envelope, not the HTTP status.
	resp := doRequest(t, app, http.MethodPost, "/api/v1/graphql", `{"query": "{ nosuchfield }"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Errors []map[string]interface{} `json:"errors"`
	}
	decodeJSON(t, resp, &body)
	assert.NotEmpty(t, body.Errors)
}

func TestGraphQL_MalformedBody(t *testing.T) {
	app := New(&stubTrigger{}, &stubTriage{}, testSchema(t))

	resp := doRequest(t, app, http.MethodPost, "/api/v1/graphql", `not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Errors []map[string]interface{} `json:"errors"`
	}
	decodeJSON(t, resp, &body)
	require.NotEmpty(t, body.Errors)
	assert.Equal(t, "Invalid request body", body.Errors[0]["message"])
}
