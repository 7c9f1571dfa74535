package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depositrent/internal/app/dto"
	"depositrent/internal/domain/shared/daterange"
	"depositrent/internal/infra/config"
	ginserver "depositrent/internal/infra/http/gin"
	"depositrent/internal/infra/obs"
)

type testApp struct {
	t      *testing.T
	app    *application
	router http.Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := config.Config{
		Env:                "test",
		StorageMode:        config.StorageMemory,
		SessionTTL:         time.Hour,
		OutboxPollInterval: 10 * time.Millisecond,
		RetryBackoff:       []time.Duration{time.Second},
		MetricsEnabled:     true,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := buildApplication(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { app.close(context.Background()) })

	router := ginserver.NewRouter(cfg, obs.Middleware{Logger: logger, Metrics: app.metrics}, obs.HealthHandlers{Ready: app.ready}, app.handlers)
	return &testApp{t: t, app: app, router: router}
}

func (a *testApp) call(method, path, token string, body any, out any) int {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func (a *testApp) register(email, name string) string {
	a.t.Helper()
	var session dto.SessionView
	code := a.call(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "name": name, "password": "correct-horse",
	}, &session)
	require.Equal(a.t, http.StatusCreated, code)
	require.NotEmpty(a.t, session.Token)
	return session.Token
}

func day(offset int) string {
	return time.Now().UTC().AddDate(0, 0, offset).Format(daterange.Layout)
}

func TestBookingLifecycle(t *testing.T) {
	app := newTestApp(t)
	admin := app.register("admin@example.com", "Ada")
	client := app.register("client@example.com", "Bob")

	var me dto.UserView
	require.Equal(t, http.StatusOK, app.call(http.MethodGet, "/api/v1/auth/me", admin, nil, &me))
	assert.Equal(t, "administrator", me.Role)

	deposit := map[string]any{"name": "North", "area": "A", "size": "Small"}
	assert.Equal(t, http.StatusForbidden, app.call(http.MethodPost, "/api/v1/deposits", client, deposit, nil))
	require.Equal(t, http.StatusCreated, app.call(http.MethodPost, "/api/v1/deposits", admin, deposit, nil))
	assert.Equal(t, http.StatusConflict, app.call(http.MethodPost, "/api/v1/deposits", admin, deposit, nil))

	var calendar dto.CalendarView
	window := map[string]string{"start": day(10), "end": day(40)}
	require.Equal(t, http.StatusOK, app.call(http.MethodPost, "/api/v1/deposits/North/availability", admin, window, &calendar))
	require.Len(t, calendar.Available, 1)

	var quote dto.QuoteView
	require.Equal(t, http.StatusOK, app.call(http.MethodGet, "/api/v1/deposits/North/quote?start="+day(12)+"&end="+day(15), "", nil, &quote))
	assert.Positive(t, quote.Total)

	request := map[string]string{"deposit": "North", "start": day(12), "end": day(15)}
	var booking dto.BookingView
	require.Equal(t, http.StatusCreated, app.call(http.MethodPost, "/api/v1/bookings", client, request, &booking))
	assert.Equal(t, "Pending", booking.Stage)
	require.NotNil(t, booking.Payment)
	assert.InDelta(t, quote.Total, booking.Payment.Amount, 0.001)

	overlapping := map[string]string{"deposit": "North", "start": day(14), "end": day(20)}
	assert.Equal(t, http.StatusConflict, app.call(http.MethodPost, "/api/v1/bookings", client, overlapping, nil))
	assert.Equal(t, http.StatusUnauthorized, app.call(http.MethodPost, "/api/v1/bookings", "", overlapping, nil))

	var availability dto.AvailabilityView
	require.Equal(t, http.StatusOK, app.call(http.MethodGet, "/api/v1/deposits/North/availability?start="+day(13)+"&end="+day(14), "", nil, &availability))
	assert.False(t, availability.Available)

	approvePath := "/api/v1/bookings/" + booking.ID + "/approve"
	assert.Equal(t, http.StatusForbidden, app.call(http.MethodPost, approvePath, client, nil, nil))
	var approved dto.BookingView
	require.Equal(t, http.StatusOK, app.call(http.MethodPost, approvePath, admin, nil, &approved))
	assert.Equal(t, "Approved", approved.Stage)
	assert.Equal(t, http.StatusConflict, app.call(http.MethodPost, approvePath, admin, nil, nil))

	var mine dto.BookingCollection
	require.Equal(t, http.StatusOK, app.call(http.MethodGet, "/api/v1/bookings", client, nil, &mine))
	require.Len(t, mine.Items, 1)
	assert.Equal(t, booking.ID, mine.Items[0].ID)

	var report dto.ReportView
	require.Equal(t, http.StatusCreated, app.call(http.MethodPost, "/api/v1/reports/bookings", admin, map[string]string{"format": "csv"}, &report))
	assert.Equal(t, 1, report.Rows)
	assert.Contains(t, report.URL, "memory://reports/")

	sent, err := app.app.worker.Drain(context.Background())
	require.NoError(t, err)
	assert.Positive(t, sent)
}

func TestRequestBookingReplaysIdempotencyKey(t *testing.T) {
	app := newTestApp(t)
	admin := app.register("admin@example.com", "Ada")
	client := app.register("client@example.com", "Bob")
	require.Equal(t, http.StatusCreated, app.call(http.MethodPost, "/api/v1/deposits", admin, map[string]any{"name": "Vault", "area": "E", "size": "Large", "climate_control": true}, nil))
	require.Equal(t, http.StatusOK, app.call(http.MethodPost, "/api/v1/deposits/Vault/availability", admin, map[string]string{"start": day(5), "end": day(30)}, nil))

	send := func() dto.BookingView {
		raw, _ := json.Marshal(map[string]string{"deposit": "Vault", "start": day(6), "end": day(9)})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+client)
		req.Header.Set("Idempotency-Key", "retry-1")
		rec := httptest.NewRecorder()
		app.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var view dto.BookingView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		return view
	}

	first := send()
	second := send()
	assert.Equal(t, first.ID, second.ID)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusOK, app.call(http.MethodGet, "/livez", "", nil, nil))
	assert.Equal(t, http.StatusOK, app.call(http.MethodGet, "/readyz", "", nil, nil))
	app.call(http.MethodGet, "/api/v1/deposits", "", nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "depositrent_bus_messages_total")
	assert.Contains(t, rec.Body.String(), "depositrent_http_requests_total")
}

func TestLoadDepositFixtures(t *testing.T) {
	app := newTestApp(t)
	path := filepath.Join(t.TempDir(), "deposits.json")
	fixtures := `[
		{"name": "Harbor", "area": "C", "size": "Medium", "climate_control": true,
		 "availability": [{"start": "2031-01-01", "end": "2031-03-31"}],
		 "promotions": [{"label": "Spring", "discount": 10, "validity": {"start": "2031-03-01", "end": "2031-05-31"}}]},
		{"name": "Broken", "area": "Z", "size": "Small"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(fixtures), 0o600))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, app.app.loadDepositFixtures(context.Background(), path, logger))
	require.NoError(t, app.app.loadDepositFixtures(context.Background(), path, logger))

	var view dto.DepositView
	require.Equal(t, http.StatusOK, app.call(http.MethodGet, "/api/v1/deposits/Harbor", "", nil, &view))
	require.Len(t, view.Promotions, 1)
	assert.Equal(t, http.StatusNotFound, app.call(http.MethodGet, "/api/v1/deposits/Broken", "", nil, nil))

	var calendar dto.CalendarView
	require.Equal(t, http.StatusOK, app.call(http.MethodGet, "/api/v1/deposits/Harbor/calendar", "", nil, &calendar))
	require.Len(t, calendar.Available, 1)

	assert.NoError(t, app.app.loadDepositFixtures(context.Background(), filepath.Join(t.TempDir(), "missing.json"), logger))
}

func TestIdempotencyKeyIsPerClient(t *testing.T) {
	app := newTestApp(t)
	admin := app.register("admin@example.com", "Ada")
	alice := app.register("alice@example.com", "Alice")
	bob := app.register("bob@example.com", "Bob")
	for _, name := range []string{"North", "Harbor"} {
		require.Equal(t, http.StatusCreated, app.call(http.MethodPost, "/api/v1/deposits", admin, map[string]any{"name": name, "area": "A", "size": "Small"}, nil))
		require.Equal(t, http.StatusOK, app.call(http.MethodPost, "/api/v1/deposits/"+name+"/availability", admin, map[string]string{"start": day(5), "end": day(30)}, nil))
	}

	send := func(token, deposit string) dto.BookingView {
		raw, _ := json.Marshal(map[string]string{"deposit": deposit, "start": day(6), "end": day(9)})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "retry-1")
		rec := httptest.NewRecorder()
		app.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var view dto.BookingView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		return view
	}

	first := send(alice, "North")
	second := send(bob, "Harbor")
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.ClientID, second.ClientID)
	assert.Equal(t, "Harbor", second.Deposit)

	var mine dto.BookingCollection
	require.Equal(t, http.StatusOK, app.call(http.MethodGet, "/api/v1/bookings", bob, nil, &mine))
	require.Len(t, mine.Items, 1)
	assert.Equal(t, second.ID, mine.Items[0].ID)
}

func TestServeWaitsForInFlightRequests(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusOK)
	})}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- serve(ctx, server, listener, 5*time.Second, logger) }()

	status := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + listener.Addr().String() + "/")
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()

	<-entered
	cancel()
	select {
	case <-served:
		t.Fatal("serve returned while a request was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-served)
	assert.Equal(t, http.StatusOK, <-status)
}
