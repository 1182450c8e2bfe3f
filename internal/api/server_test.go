package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amaumene/gowatch/internal/api/handlers"
	"github.com/amaumene/gowatch/internal/config"
	"github.com/amaumene/gowatch/internal/controllers"
	"github.com/amaumene/gowatch/internal/metrics"
	"github.com/amaumene/gowatch/internal/models"
	"github.com/amaumene/gowatch/internal/store"
	"github.com/amaumene/gowatch/internal/utils"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBackend struct {
	mu      sync.Mutex
	records []models.Record
}

func (b *memBackend) Load(ctx context.Context) ([]models.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return models.CloneRecords(b.records), nil
}

func (b *memBackend) Save(ctx context.Context, records []models.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = models.CloneRecords(records)
	return nil
}

type stubRemote struct {
	records []models.Record
	pullErr error
	remote  config.RemoteConfig
}

func (s *stubRemote) Pull(ctx context.Context) ([]models.Record, []string, error) {
	return models.CloneRecords(s.records), nil, s.pullErr
}

func (s *stubRemote) Save(ctx context.Context, records []models.Record) error { return nil }
func (s *stubRemote) Configure(remote config.RemoteConfig)                     { s.remote = remote }
func (s *stubRemote) Configured() bool                                         { return s.remote.APIURL != "" }

var added = models.Date{Year: 2024, Month: time.January, Day: 1}

func movie(id, title, year string) models.Record {
	return models.Record{ID: id, Kind: models.KindMovie, Title: title, Year: year, DateAdded: added, Movie: &models.MovieDetails{}}
}

type testServer struct {
	handler http.Handler
	store   *store.Store
	remote  *stubRemote
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, records ...models.Record) *testServer {
	t.Helper()
	logger := utils.NewDiscardLogger()

	m := metrics.New()
	st := store.New(&memBackend{records: records}, logger)
	st.OnCommit(m.SetRecordCounts)
	require.NoError(t, st.Load(context.Background()))

	remote := &stubRemote{}
	deps := Deps{
		Store:    st,
		Form:     controllers.NewFormController(st, logger),
		Sync:     controllers.NewSyncController(st, remote, false, m, logger),
		Transfer: controllers.NewTransferController(st, logger),
		Metrics:  m,
	}

	return &testServer{
		handler: NewServer("0", deps, logger).Handler(),
		store:   st,
		remote:  remote,
		metrics: m,
	}
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func listIDs(resp handlers.ListResponse) []string {
	out := make([]string, len(resp.Records))
	for i, r := range resp.Records {
		out[i] = r.ID
	}
	return out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, movie("m1", "Heat", "1995"))

	rec := srv.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[handlers.HealthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 1, resp.Records)
}

func TestListFilterAndSort(t *testing.T) {
	srv := newTestServer(t,
		movie("m1", "Heat", "1995"),
		movie("m2", "Alien", "1979"),
		movie("m3", "Aliens", "1986"),
	)

	resp := decode[handlers.ListResponse](t, srv.do(http.MethodGet, "/api/records", ""))
	assert.Equal(t, []string{"m1", "m2", "m3"}, listIDs(resp), "store order without a sort")
	assert.Equal(t, 3, resp.Total)

	resp = decode[handlers.ListResponse](t, srv.do(http.MethodGet, "/api/records?q=ALIEN&sort=year&dir=desc", ""))
	assert.Equal(t, []string{"m3", "m2"}, listIDs(resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, "ALIEN", resp.Query)

	resp = decode[handlers.ListResponse](t, srv.do(http.MethodGet, "/api/records?q=nothing", ""))
	assert.NotNil(t, resp.Records)
	assert.Empty(t, resp.Records)
}

func TestListToggle(t *testing.T) {
	srv := newTestServer(t, movie("m1", "B", ""), movie("m2", "A", ""))

	resp := decode[handlers.ListResponse](t, srv.do(http.MethodGet, "/api/records?toggle=title", ""))
	assert.Equal(t, utils.SortState{Field: "title", Direction: models.SortAsc}, resp.Sort)
	assert.Equal(t, []string{"m2", "m1"}, listIDs(resp))

	resp = decode[handlers.ListResponse](t, srv.do(http.MethodGet, "/api/records?sort=title&dir=asc&toggle=title", ""))
	assert.Equal(t, models.SortDesc, resp.Sort.Direction)
	assert.Equal(t, []string{"m1", "m2"}, listIDs(resp))
}

func TestListRejectsUnknownSort(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/api/records?sort=budget", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "sort", decode[handlers.ErrorResponse](t, rec).Field)

	rec = srv.do(http.MethodGet, "/api/records?sort=title&dir=sideways", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateAndGet(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodPost, "/api/records", `{"kind": "Movie", "title": "Heat", "year": 1995, "duration": "2.8"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[models.Record](t, rec)
	assert.True(t, strings.HasPrefix(created.ID, "movie-"))
	assert.Equal(t, "1995", created.Year)

	rec = srv.do(http.MethodGet, "/api/records/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Heat", decode[models.Record](t, rec).Title)

	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodGet, "/api/records/nope", "").Code)
}

func TestCreateErrors(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodPost, "/api/records", `{"kind": "Movie", "title": ""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "title", decode[handlers.ErrorResponse](t, rec).Field)

	rec = srv.do(http.MethodPost, "/api/records", `{"kind": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 0, srv.store.Len())
}

func TestUpdate(t *testing.T) {
	srv := newTestServer(t, movie("m1", "Heat", "1995"))

	rec := srv.do(http.MethodPut, "/api/records/m1", `{"kind": "Movie", "title": "Heat (Director's Cut)"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, ok := srv.store.Get("m1")
	require.True(t, ok)
	assert.Equal(t, "Heat (Director's Cut)", got.Title)

	rec = srv.do(http.MethodPut, "/api/records/missing", `{"kind": "Movie", "title": "x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRate(t *testing.T) {
	srv := newTestServer(t, movie("m1", "Heat", "1995"))

	rec := srv.do(http.MethodPatch, "/api/records/m1/rating", `{"dateWatched": "2024-05-01", "xRating": 0, "yRating": 4}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, _ := srv.store.Get("m1")
	require.NotNil(t, got.XRating)
	assert.Equal(t, 0, *got.XRating)
	assert.Equal(t, 4, *got.YRating)
	assert.Equal(t, "01/05/2024", got.DateWatched.Stored())

	rec = srv.do(http.MethodPatch, "/api/records/m1/rating", `{"xRating": 7}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeleteCascade(t *testing.T) {
	show := models.Record{ID: "show-1", Kind: models.KindShow, Title: "Dark", DateAdded: added, Show: &models.ShowDetails{}}
	season := models.Record{ID: "season-1", Kind: models.KindSeason, Title: "Season 1", DateAdded: added,
		Season: &models.SeasonDetails{ShowRef: "show-1", SeasonNumber: 1}}
	srv := newTestServer(t, show, season, movie("m1", "Heat", "1995"))

	rec := srv.do(http.MethodDelete, "/api/records/show-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.ElementsMatch(t, []string{"show-1", "season-1"}, decode[handlers.DeleteResponse](t, rec).Removed)
	assert.Equal(t, 1, srv.store.Len())

	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodDelete, "/api/records/show-1", "").Code)
}

func TestHierarchy(t *testing.T) {
	show := models.Record{ID: "show-1", Kind: models.KindShow, Title: "Dark", DateAdded: added, Show: &models.ShowDetails{}}
	srv := newTestServer(t, show, movie("m1", "Heat", "1995"))

	rec := srv.do(http.MethodGet, "/api/shows/show-1/hierarchy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "show-1", decode[controllers.ShowHierarchy](t, rec).Show.ID)

	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodGet, "/api/shows/m1/hierarchy", "").Code)
}

func TestStats(t *testing.T) {
	srv := newTestServer(t, movie("m1", "Heat", "1995"), movie("m2", "Alien", "1979"))

	rec := srv.do(http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decode[controllers.Statistics](t, rec)
	assert.Equal(t, 2, stats.TotalMovies)
	assert.Equal(t, "0.0", stats.AvgXRating)
}

func TestExportImport(t *testing.T) {
	srv := newTestServer(t, movie("m1", "Heat", "1995"))

	rec := srv.do(http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "watchlist.json")
	exported := rec.Body.String()

	target := newTestServer(t)
	rec = target.do(http.MethodPost, "/api/import", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[controllers.ImportResult](t, rec).Imported)
	assert.Equal(t, srv.store.Snapshot(), target.store.Snapshot())

	rec = target.do(http.MethodPost, "/api/import", `{"not": "an array"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, target.store.Len())
}

func TestSyncRoutes(t *testing.T) {
	srv := newTestServer(t, movie("local", "Local", ""))

	// Not configured yet
	rec := srv.do(http.MethodPost, "/api/sync/pull", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, decode[controllers.SyncStatus](t, rec).OK)

	rec = srv.do(http.MethodPost, "/api/config/import", `{"apiUrl": "http://sheet"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	srv.remote.records = []models.Record{movie("movie-1", "Remote", "")}
	rec = srv.do(http.MethodPost, "/api/config/import", `{"apiUrl": "http://sheet", "sheetId": "abc"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Data loaded successfully", decode[controllers.SyncStatus](t, rec).Message)

	got, ok := srv.store.Get("movie-1")
	require.True(t, ok)
	assert.Equal(t, "Remote", got.Title)

	rec = srv.do(http.MethodGet, "/api/sync/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, controllers.DirectionPull, decode[controllers.SyncStatus](t, rec).Direction)

	rec = srv.do(http.MethodPost, "/api/sync/push", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	srv.do(http.MethodGet, "/health", "")

	rec := srv.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gowatch_http_request_duration_seconds")
}

func TestRecordGaugeFollowsChanges(t *testing.T) {
	srv := newTestServer(t, movie("m1", "Heat", "1995"))
	movies := func() float64 {
		return testutil.ToFloat64(srv.metrics.RecordGauge().WithLabelValues(string(models.KindMovie)))
	}
	assert.Equal(t, 1.0, movies())

	rec := srv.do(http.MethodPost, "/api/records", `{"kind": "Movie", "title": "Alien"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2.0, movies())

	require.Equal(t, http.StatusOK, srv.do(http.MethodDelete, "/api/records/m1", "").Code)
	assert.Equal(t, 1.0, movies())

	rec = srv.do(http.MethodPost, "/api/import", `[]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, movies())
}
