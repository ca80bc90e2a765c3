package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parking-analytics/internal/backend"
	"parking-analytics/internal/parking"
	"parking-analytics/internal/reports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Get(ctx context.Context, facilityID string) (parking.Snapshot, error) {
	args := m.Called(ctx, facilityID)
	return args.Get(0).(parking.Snapshot), args.Error(1)
}

func (m *mockSource) Refresh(ctx context.Context, facilityID string) (parking.Snapshot, error) {
	args := m.Called(ctx, facilityID)
	return args.Get(0).(parking.Snapshot), args.Error(1)
}

func tp(s string) *time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return &t
}

func sampleSnapshot() parking.Snapshot {
	snap := parking.EmptySnapshot("12")
	snap.Facility.TotalCapacity = 10
	snap.Sessions = []parking.ParkingSession{
		{ID: "1", Entry: tp("2024-01-10T10:00:00Z"), Exit: tp("2024-01-10T12:00:00Z"), Fee: 100, Method: parking.MethodCash},
	}
	snap.Payments = []parking.PaymentEvent{
		{SessionID: "1", Amount: 100, Method: parking.MethodCash, Timestamp: *tp("2024-01-10T12:00:00Z")},
	}
	return snap
}

func newTestAPI(src SnapshotSource) http.Handler {
	api := NewWebAPI(zerolog.Nop(), Config{Location: time.UTC, InsightLimit: 4, MermaidCharts: true}, src)
	return api.Handler()
}

func TestListReports(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestAPI(&mockSource{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var kinds []kindInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kinds))
	assert.Len(t, kinds, len(reports.Kinds))
	assert.Equal(t, reports.KindOccupancy, kinds[0].Kind)
}

func TestGetReport(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		setupMock      func(*mockSource)
		expectedStatus int
		check          func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name: "income report",
			path: "/api/v1/facilities/12/reports/income?from=2024-01-08&to=2024-01-14",
			setupMock: func(m *mockSource) {
				m.On("Get", mock.Anything, "12").Return(sampleSnapshot(), nil)
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var rep reports.Report
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
				assert.Equal(t, reports.KindIncome, rep.Kind)
				assert.Equal(t, 100.0, rep.Current["total_income"])
				assert.LessOrEqual(t, len(rep.Insights), 4)
			},
		},
		{
			name: "dash separated kind and markdown output",
			path: "/api/v1/facilities/12/reports/payment-methods?format=markdown",
			setupMock: func(m *mockSource) {
				m.On("Get", mock.Anything, "12").Return(sampleSnapshot(), nil)
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
				assert.Contains(t, rec.Body.String(), "# Payment methods report, facility 12")
			},
		},
		{
			name:           "unknown kind",
			path:           "/api/v1/facilities/12/reports/weather",
			setupMock:      func(m *mockSource) {},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "invalid range",
			path:           "/api/v1/facilities/12/reports/income?from=2024-02-01&to=2024-01-01",
			setupMock:      func(m *mockSource) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "upstream failure degrades to empty report",
			path: "/api/v1/facilities/12/reports/movements",
			setupMock: func(m *mockSource) {
				m.On("Get", mock.Anything, "12").Return(parking.EmptySnapshot("12"), backend.ErrUpstream)
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Header().Get(SnapshotErrorHeader), "upstream")
				var rep reports.Report
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
				assert.Empty(t, rep.Insights)
				assert.NotNil(t, rep.Insights)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &mockSource{}
			tt.setupMock(src)

			rec := httptest.NewRecorder()
			newTestAPI(src).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, rec)
			}
			src.AssertExpectations(t)
		})
	}
}

func TestGetAllReportsAndPage(t *testing.T) {
	src := &mockSource{}
	src.On("Get", mock.Anything, "12").Return(sampleSnapshot(), nil)
	h := newTestAPI(src)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/facilities/12/reports", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var all []reports.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, len(reports.Kinds))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/facilities/12/reports/occupancy/html", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "<!DOCTYPE html>"))
}

func TestRefresh(t *testing.T) {
	src := &mockSource{}
	src.On("Refresh", mock.Anything, "12").Return(sampleSnapshot(), nil).Once()
	src.On("Refresh", mock.Anything, "12").Return(parking.EmptySnapshot("12"), backend.ErrUpstream).Once()
	h := newTestAPI(src)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/facilities/12/refresh", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp refreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Sessions)
	assert.Equal(t, 1, resp.Payments)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/facilities/12/refresh", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	src.AssertExpectations(t)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestAPI(&mockSource{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "parking_http_requests_total")
}
