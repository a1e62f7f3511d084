package http_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborhq/arbor"
	arborhttp "github.com/arborhq/arbor/pkg/adapters/http"
	"github.com/arborhq/arbor/pkg/adapters/memory"
	"github.com/arborhq/arbor/pkg/domain"
	"github.com/arborhq/arbor/pkg/observability"
)

type testServer struct {
	bus     *memory.Bus
	machine *arbor.Machine
	handler http.Handler
}

func newTestServer(t *testing.T, opts ...arborhttp.Option) *testServer {
	t.Helper()

	bus := memory.NewBus()
	machine, err := arbor.New(
		[]domain.State{"empty", "occupied"}, bus, memory.NewScheduler())
	require.NoError(t, err)
	require.NoError(t, machine.AddTransition(
		"empty", domain.StateOn("sensor.motion"), "occupied", nil))
	require.NoError(t, machine.AddTransition(
		"occupied", domain.Timeout(5*time.Minute), "empty", nil))

	server := arborhttp.NewServer(machine, bus, opts...)
	return &testServer{bus: bus, machine: machine, handler: server.Handler()}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := newTestServer(t).do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestState(t *testing.T) {
	rec := newTestServer(t).do(t, http.MethodGet, "/state", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state":"empty","states":["empty","occupied"]}`, rec.Body.String())
}

func TestGraph(t *testing.T) {
	ts := newTestServer(t)

	t.Run("dot is the default", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/graph", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Body.String(), "digraph G {"))
	})

	t.Run("mermaid", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/graph?format=mermaid", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Body.String(), "graph TD"))
	})

	t.Run("link", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/graph?format=link", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Body.String(), "https://"))
	})

	t.Run("unknown format", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/graph?format=png", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReadEntity(t *testing.T) {
	ts := newTestServer(t)

	t.Run("missing entity", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/entities/sensor.motion", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("present entity", func(t *testing.T) {
		ts.bus.Write("sensor.motion", "off")
		rec := ts.do(t, http.MethodGet, "/entities/sensor.motion", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"entity":"sensor.motion","value":"off"}`, rec.Body.String())
	})
}

func TestWriteEntityDrivesMachine(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/entities/sensor.motion", `{"value":"on"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, domain.State("occupied"), ts.machine.Current())
}

func TestWriteEntityRejectsBadBody(t *testing.T) {
	rec := newTestServer(t).do(t, http.MethodPut, "/entities/sensor.motion", "{nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = observability.NewCollector(reg)

	ts := newTestServer(t, arborhttp.WithMetrics(reg))
	rec := ts.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
