package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*InMemoryRepository, http.Handler) {
	t.Helper()
	repo := NewInMemoryRepository()
	h := NewHandler(repo, nil, zerolog.Nop())
	return repo, h.NewRouter(RouterConfig{Version: "test", Logger: zerolog.Nop()})
}

func putBody() string {
	return `{
		"capturedAt": "2025-06-01T08:30:00Z",
		"pm25": 95,
		"aqi": 180,
		"phri": 70,
		"outdoorMinutes": 70,
		"symptoms": ["cough"],
		"wearingMask": false,
		"location": "Bangkok"
	}`
}

func TestPutExposure_CreatesRecord(t *testing.T) {
	repo, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/v1/users/u1/exposures/2025-06-01", strings.NewReader(putBody()))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	stored, err := repo.Get(context.Background(), "u1", "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, 95.0, stored.PM25)
	assert.Equal(t, 70.0, stored.PHRI)
	assert.Equal(t, []string{"cough"}, stored.Symptoms)
}

func TestPutExposure_ReplayLeavesOneRecord(t *testing.T) {
	repo, router := newTestRouter(t)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPut, "/v1/users/u1/exposures/2025-06-01", strings.NewReader(putBody()))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	records, err := repo.List(context.Background(), "u1", "", "")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestPutExposure_NullSymptomsStoredAsEmptyList(t *testing.T) {
	repo, router := newTestRouter(t)

	// A device with no symptoms that day marshals the field as JSON null;
	// the stored record must still carry a real (empty) list so the
	// NOT NULL array column accepts it.
	body := `{"capturedAt": "2025-06-01T08:30:00Z", "pm25": 20, "symptoms": null}`
	req := httptest.NewRequest(http.MethodPut, "/v1/users/u1/exposures/2025-06-01", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	stored, err := repo.Get(context.Background(), "u1", "2025-06-01")
	require.NoError(t, err)
	require.NotNil(t, stored.Symptoms)
	assert.Empty(t, stored.Symptoms)

	// The echoed record must not regress to null either.
	assert.Contains(t, rr.Body.String(), `"symptoms":[]`)
}

func TestPutExposure_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{
			name: "malformed day key",
			path: "/v1/users/u1/exposures/June-1st",
			body: putBody(),
		},
		{
			name: "invalid JSON",
			path: "/v1/users/u1/exposures/2025-06-01",
			body: "{not json",
		},
		{
			name: "missing capturedAt",
			path: "/v1/users/u1/exposures/2025-06-01",
			body: `{"pm25": 10}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, router := newTestRouter(t)

			req := httptest.NewRequest(http.MethodPut, tt.path, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestGetExposure_NotFound(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/u1/exposures/2025-06-01", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListExposures_RangeAndOrder(t *testing.T) {
	repo, router := newTestRouter(t)

	days := []string{"2025-06-03", "2025-06-01", "2025-06-02", "2025-06-10"}
	for _, day := range days {
		req := httptest.NewRequest(http.MethodPut, "/v1/users/u1/exposures/"+day, strings.NewReader(putBody()))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	// Another user's record must not leak in.
	otherReq := httptest.NewRequest(http.MethodPut, "/v1/users/u2/exposures/2025-06-02", strings.NewReader(putBody()))
	router.ServeHTTP(httptest.NewRecorder(), otherReq)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/u1/exposures?from=2025-06-01&to=2025-06-03", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Count)
	assert.Equal(t, "2025-06-01", resp.Records[0].DayKey)
	assert.Equal(t, "2025-06-02", resp.Records[1].DayKey)
	assert.Equal(t, "2025-06-03", resp.Records[2].DayKey)

	// Sanity: unfiltered list sees all four days.
	all, err := repo.List(context.Background(), "u1", "", "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestListExposures_EmptyIsAnEmptyArray(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/u1/exposures", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"records":[]`)
}

func TestListExposures_RejectsMalformedBounds(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/u1/exposures?from=yesterday", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealth(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
}
