package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haoyun/waytrack/internal/archive"
	"github.com/haoyun/waytrack/internal/config"
	"github.com/haoyun/waytrack/internal/models"
	"github.com/haoyun/waytrack/internal/recorder"
	"github.com/haoyun/waytrack/internal/source"
	"github.com/haoyun/waytrack/pkg/ws"
)

type memKV struct {
	data map[string][]byte
}

func (m *memKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(ctx context.Context, key string, value []byte) error {
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *archive.Archive, *source.PushSource) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	arch := archive.New(logger, &memKV{data: make(map[string][]byte)}, "trips")
	src := source.NewPushSource()
	rec := recorder.New(&config.Config{}, logger, src, arch)
	hub := ws.NewHub(logger)

	h := NewHandler(logger, arch, rec, src, hub)
	router := gin.New()
	h.RegisterRoutes(router)
	return router, arch, src
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedTrip(t *testing.T, arch *archive.Archive, id string, startMs int64) {
	t.Helper()
	err := arch.Append(context.Background(), models.Trip{
		ID:          id,
		StartTimeMs: startMs,
		EndTimeMs:   startMs + 1000,
		Path: []models.LocationSample{
			{Latitude: 10, Longitude: 10, TimestampMs: startMs},
		},
		DurationSeconds: 1,
	})
	if err != nil {
		t.Fatalf("seed trip %s: %v", id, err)
	}
}

func TestStartRecordingWithoutFix(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/recorder/start", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if !strings.Contains(w.Body.String(), "No fix available") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestStopWhileIdle(t *testing.T) {
	router, arch, _ := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/recorder/stop", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	trips, err := arch.List(context.Background())
	if err != nil || len(trips) != 0 {
		t.Fatalf("idle stop touched archive: %v %v", trips, err)
	}
}

func TestRecorderRoundTripOverAPI(t *testing.T) {
	router, arch, _ := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/location",
		`{"latitude":10,"longitude":10,"timestamp_ms":1000}`)
	if w.Code != http.StatusOK {
		t.Fatalf("push location: %d %s", w.Code, w.Body.String())
	}

	if w := doRequest(router, http.MethodPost, "/api/recorder/start", ""); w.Code != http.StatusOK {
		t.Fatalf("start: %d %s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/api/recorder/status", "")
	var statusResp struct {
		Data recorder.Status `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &statusResp); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !statusResp.Data.Active || statusResp.Data.SampleCount != 1 {
		t.Fatalf("unexpected status: %+v", statusResp.Data)
	}

	doRequest(router, http.MethodPost, "/api/location",
		`{"latitude":10.00001,"longitude":10,"timestamp_ms":2000}`)

	w = doRequest(router, http.MethodPost, "/api/recorder/stop", "")
	if w.Code != http.StatusOK {
		t.Fatalf("stop: %d %s", w.Code, w.Body.String())
	}

	trips, err := arch.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(trips) != 1 || len(trips[0].Path) != 2 {
		t.Fatalf("unexpected archived trips: %+v", trips)
	}
}

func TestPushLocationValidation(t *testing.T) {
	router, _, src := newTestRouter(t)

	cases := []string{
		`{"latitude":91,"longitude":0}`,
		`{"latitude":0,"longitude":-181}`,
		`not json`,
	}
	for _, body := range cases {
		if w := doRequest(router, http.MethodPost, "/api/location", body); w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, w.Code)
		}
	}
	if _, ok := src.CurrentFix(); ok {
		t.Fatal("invalid sample reached the source")
	}
}

func TestListTripsSorted(t *testing.T) {
	router, arch, _ := newTestRouter(t)
	seedTrip(t, arch, "older", 1000)
	seedTrip(t, arch, "newer", 2000)

	w := doRequest(router, http.MethodGet, "/api/trips", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Data []models.Trip `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("got %d trips", len(resp.Data))
	}
	if resp.Data[0].ID != "newer" || resp.Data[1].ID != "older" {
		t.Fatalf("not sorted most-recent-first: %s, %s", resp.Data[0].ID, resp.Data[1].ID)
	}
}

func TestListTripsCorruptArchive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	kv := &memKV{data: map[string][]byte{"trips": []byte("{corrupt")}}
	arch := archive.New(logger, kv, "trips")
	src := source.NewPushSource()
	rec := recorder.New(&config.Config{}, logger, src, arch)
	h := NewHandler(logger, arch, rec, src, ws.NewHub(logger))
	router := gin.New()
	h.RegisterRoutes(router)

	w := doRequest(router, http.MethodGet, "/api/trips", "")
	if w.Code != http.StatusOK {
		t.Fatalf("corrupt archive should not crash listing: %d", w.Code)
	}

	var resp struct {
		Data   []models.Trip `json:"data"`
		Notice string        `json:"notice"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 0 || resp.Notice == "" {
		t.Fatalf("expected empty list with notice, got %+v", resp)
	}
}

func TestGetTripAndRegion(t *testing.T) {
	router, arch, _ := newTestRouter(t)
	seedTrip(t, arch, "t1", 1000)

	w := doRequest(router, http.MethodGet, "/api/trips/t1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get trip: %d", w.Code)
	}

	w = doRequest(router, http.MethodGet, "/api/trips/t1/region", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get region: %d", w.Code)
	}
	var resp struct {
		Data *models.Region `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode region: %v", err)
	}
	if resp.Data == nil || resp.Data.LatitudeDelta != 0.001 {
		t.Fatalf("unexpected region: %+v", resp.Data)
	}

	if w := doRequest(router, http.MethodGet, "/api/trips/nope", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing trip: %d, want 404", w.Code)
	}
}

func TestRemoveAndClearTrips(t *testing.T) {
	router, arch, _ := newTestRouter(t)
	seedTrip(t, arch, "t1", 1000)
	seedTrip(t, arch, "t2", 2000)

	if w := doRequest(router, http.MethodDelete, "/api/trips/t1", ""); w.Code != http.StatusOK {
		t.Fatalf("remove: %d", w.Code)
	}
	trips, _ := arch.List(context.Background())
	if len(trips) != 1 || trips[0].ID != "t2" {
		t.Fatalf("unexpected trips after remove: %+v", trips)
	}

	// 删除不存在的 id 也成功
	if w := doRequest(router, http.MethodDelete, "/api/trips/ghost", ""); w.Code != http.StatusOK {
		t.Fatalf("remove absent id: %d", w.Code)
	}

	if w := doRequest(router, http.MethodDelete, "/api/trips", ""); w.Code != http.StatusOK {
		t.Fatalf("clear: %d", w.Code)
	}
	trips, err := arch.List(context.Background())
	if err != nil || len(trips) != 0 {
		t.Fatalf("archive not cleared: %v %v", trips, err)
	}
}

func TestHealthCheck(t *testing.T) {
	router, _, _ := newTestRouter(t)
	w := doRequest(router, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}
}
