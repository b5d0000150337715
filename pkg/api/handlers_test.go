package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmonitor/alertd/pkg/models"
	"github.com/openmonitor/alertd/pkg/mongodb"
	"github.com/openmonitor/alertd/pkg/services"
)

// fakeAlertStore is an in-memory AlertStore for handler tests.
type fakeAlertStore struct {
	alerts map[string]*models.Alert
}

var _ mongodb.AlertStore = (*fakeAlertStore)(nil)

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{alerts: make(map[string]*models.Alert)}
}

func (f *fakeAlertStore) FindByIdentity(_ context.Context, environment, resource, event string) (*models.Alert, error) {
	for _, a := range f.alerts {
		if a.Environment == environment && a.Resource == resource && a.Event == event &&
			a.Status != models.StatusDeleted {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeAlertStore) FindByID(_ context.Context, id string) (*models.Alert, error) {
	a, ok := f.alerts[id]
	if !ok {
		return nil, fmt.Errorf("%w: alert %s", models.ErrNotFound, id)
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAlertStore) Insert(_ context.Context, alert *models.Alert) error {
	for _, a := range f.alerts {
		if a.Environment == alert.Environment && a.Resource == alert.Resource &&
			a.Event == alert.Event && a.Status != models.StatusDeleted {
			return models.ErrDuplicateIdentity
		}
	}
	alert.Revision = 1
	copied := *alert
	f.alerts[alert.ID] = &copied
	return nil
}

func (f *fakeAlertStore) Update(_ context.Context, alert *models.Alert) error {
	current, ok := f.alerts[alert.ID]
	if !ok || current.Revision != alert.Revision {
		return models.ErrWriteConflict
	}
	alert.Revision++
	copied := *alert
	f.alerts[alert.ID] = &copied
	return nil
}

func (f *fakeAlertStore) ScanExpirable(_ context.Context, _ time.Time, _ func(*models.Alert) error) error {
	return nil
}

func (f *fakeAlertStore) PurgeResolved(_ context.Context, _ time.Time) (int64, error)      { return 0, nil }
func (f *fakeAlertStore) PurgeInformational(_ context.Context, _ time.Time) (int64, error) { return 0, nil }
func (f *fakeAlertStore) PurgeDeleted(_ context.Context) (int64, error)                    { return 0, nil }

func (f *fakeAlertStore) List(_ context.Context, filter models.AlertFilter) ([]*models.Alert, error) {
	var out []*models.Alert
	for _, a := range f.alerts {
		if a.Status == models.StatusDeleted {
			continue
		}
		if filter.Environment != "" && a.Environment != filter.Environment {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		copied := *a
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeAlertStore) Counts(_ context.Context, filter models.AlertFilter) (*models.AlertCounts, error) {
	alerts, _ := f.List(context.Background(), filter)
	counts := &models.AlertCounts{
		ByStatus:   make(map[string]int64),
		BySeverity: make(map[string]int64),
	}
	for _, a := range alerts {
		counts.Total++
		counts.ByStatus[string(a.Status)]++
		counts.BySeverity[string(a.Severity)]++
	}
	return counts, nil
}

// fakeHeartbeatStore is an in-memory HeartbeatStore for handler tests.
type fakeHeartbeatStore struct {
	heartbeats map[string]*models.Heartbeat
}

var _ mongodb.HeartbeatStore = (*fakeHeartbeatStore)(nil)

func newFakeHeartbeatStore() *fakeHeartbeatStore {
	return &fakeHeartbeatStore{heartbeats: make(map[string]*models.Heartbeat)}
}

func (f *fakeHeartbeatStore) Upsert(_ context.Context, hb *models.Heartbeat) error {
	copied := *hb
	f.heartbeats[hb.Origin] = &copied
	return nil
}

func (f *fakeHeartbeatStore) List(_ context.Context) ([]*models.Heartbeat, error) {
	var out []*models.Heartbeat
	for _, hb := range f.heartbeats {
		copied := *hb
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeHeartbeatStore) Delete(_ context.Context, origin string) error {
	if _, ok := f.heartbeats[origin]; !ok {
		return fmt.Errorf("%w: heartbeat %s", models.ErrNotFound, origin)
	}
	delete(f.heartbeats, origin)
	return nil
}

// setupTestRouter creates a test router over in-memory stores
func setupTestRouter() (*echo.Echo, *fakeAlertStore) {
	store := newFakeAlertStore()
	alertService := services.NewAlertService(store, 86400)
	heartbeatService := services.NewHeartbeatService(newFakeHeartbeatStore(), 300)

	e := echo.New()
	handler := NewAPIHandler(alertService, heartbeatService)
	handler.SetupRoutes(e)
	return e, store
}

func postJSON(router *echo.Echo, path string, body interface{}) *httptest.ResponseRecorder {
	jsonData, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(jsonData))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func putJSON(router *echo.Echo, path string, body interface{}) *httptest.ResponseRecorder {
	jsonData, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPut, path, bytes.NewBuffer(jsonData))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestReceiveAlert(t *testing.T) {
	router, _ := setupTestRouter()

	tests := []struct {
		name       string
		event      models.RawEvent
		wantStatus int
	}{
		{
			name: "valid event",
			event: models.RawEvent{
				Environment: "PROD",
				Resource:    "web01",
				Event:       "HighCPU",
				Severity:    "warning",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "missing resource",
			event: models.RawEvent{
				Environment: "PROD",
				Event:       "HighCPU",
				Severity:    "warning",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "invalid severity",
			event: models.RawEvent{
				Environment: "PROD",
				Resource:    "web02",
				Event:       "HighCPU",
				Severity:    "catastrophic",
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(router, "/api/alerts", tt.event)
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusCreated {
				var response models.Alert
				err := json.Unmarshal(rec.Body.Bytes(), &response)
				assert.NoError(t, err)
				assert.NotEmpty(t, response.ID)
				assert.Equal(t, models.StatusOpen, response.Status)
				assert.Equal(t, 0, response.DuplicateCount)
			}
		})
	}
}

func TestReceiveAlertDeduplicates(t *testing.T) {
	router, _ := setupTestRouter()

	event := models.RawEvent{
		Environment: "PROD",
		Resource:    "web01",
		Event:       "HighCPU",
		Severity:    "warning",
	}

	rec := postJSON(router, "/api/alerts", event)
	require.Equal(t, http.StatusCreated, rec.Code)
	var first models.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	rec = postJSON(router, "/api/alerts", event)
	require.Equal(t, http.StatusCreated, rec.Code)
	var second models.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, second.DuplicateCount)
	assert.Len(t, second.History, 1)
}

func TestChangeAlertStatus(t *testing.T) {
	router, _ := setupTestRouter()

	rec := postJSON(router, "/api/alerts", models.RawEvent{
		Environment: "PROD", Resource: "web01", Event: "HighCPU", Severity: "warning",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var alert models.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alert))

	rec = putJSON(router, "/api/alerts/"+alert.ID+"/status", models.StatusChangeRequest{
		Status: "ack", Actor: "oncall",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, models.StatusAck, updated.Status)
	assert.Len(t, updated.History, 2)

	// ack -> assign is not a legal transition
	rec = putJSON(router, "/api/alerts/"+alert.ID+"/status", models.StatusChangeRequest{
		Status: "assign",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// unknown alert id
	rec = putJSON(router, "/api/alerts/no-such-id/status", models.StatusChangeRequest{
		Status: "ack",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAlertCounts(t *testing.T) {
	router, _ := setupTestRouter()

	for i, sev := range []string{"critical", "critical", "warning"} {
		rec := postJSON(router, "/api/alerts", models.RawEvent{
			Environment: "PROD",
			Resource:    fmt.Sprintf("web%02d", i),
			Event:       "HighCPU",
			Severity:    sev,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/alerts/counts?environment=PROD", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var counts models.AlertCounts
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	assert.Equal(t, int64(3), counts.Total)
	assert.Equal(t, int64(2), counts.BySeverity["critical"])
	assert.Equal(t, int64(1), counts.BySeverity["warning"])
	assert.Equal(t, int64(3), counts.ByStatus["open"])
}

func TestListAlertsInvalidFilter(t *testing.T) {
	router, _ := setupTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/alerts?severity=bogus", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteAlertHidesIdentity(t *testing.T) {
	router, store := setupTestRouter()

	rec := postJSON(router, "/api/alerts", models.RawEvent{
		Environment: "PROD", Resource: "web01", Event: "HighCPU", Severity: "warning",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var alert models.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alert))

	req := httptest.NewRequest(http.MethodDelete, "/api/alerts/"+alert.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, models.StatusDeleted, store.alerts[alert.ID].Status)

	// The identity is free again: the next event creates a fresh alert.
	rec = postJSON(router, "/api/alerts", models.RawEvent{
		Environment: "PROD", Resource: "web01", Event: "HighCPU", Severity: "warning",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var fresh models.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fresh))
	assert.NotEqual(t, alert.ID, fresh.ID)
}

func TestHeartbeatRoundTrip(t *testing.T) {
	router, _ := setupTestRouter()

	rec := postJSON(router, "/api/heartbeats", models.HeartbeatRequest{
		Origin:  "collector/host01",
		Version: "1.6.1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/heartbeats", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var statuses []models.HeartbeatStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, "collector/host01", statuses[0].Origin)
	assert.False(t, statuses[0].Stale)
}

func TestHeartbeatRequiresOrigin(t *testing.T) {
	router, _ := setupTestRouter()
	rec := postJSON(router, "/api/heartbeats", models.HeartbeatRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
