package ui

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dbrefs/internal/state"
	"github.com/leapstack-labs/dbrefs/internal/testutil"
)

func newTestStore(t *testing.T) *state.SQLiteStore {
	t.Helper()
	store := state.NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(state.MemoryPath))
	require.NoError(t, store.InitSchema())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec,noctx // test server URL
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Routes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	run := &state.Run{
		StartedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Roots:     []string{"Orders"},
		Failures:  []state.Failure{{Object: "usp_Broken", Error: "boom"}},
	}
	require.NoError(t, store.RecordRun(ctx, run))
	require.NoError(t, store.RecordRun(ctx, &state.Run{
		StartedAt: time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		Roots:     []string{"Customers"},
	}))

	out := t.TempDir()
	testutil.WriteFile(t, out, "1_tree_Orders.html", "<html>tree</html>")

	srv := httptest.NewServer(NewServer(Config{Store: store, OutputDir: out, Logger: testutil.NewTestLogger(t)}).Handler())
	defer srv.Close()

	t.Run("list runs", func(t *testing.T) {
		code, body := get(t, srv.URL+"/api/runs")
		require.Equal(t, http.StatusOK, code)

		var runs []*state.Run
		require.NoError(t, json.Unmarshal([]byte(body), &runs))
		require.Len(t, runs, 2)
		assert.Equal(t, []string{"Customers"}, runs[0].Roots)
	})

	t.Run("list runs limited", func(t *testing.T) {
		code, body := get(t, srv.URL+"/api/runs?limit=1")
		require.Equal(t, http.StatusOK, code)

		var runs []*state.Run
		require.NoError(t, json.Unmarshal([]byte(body), &runs))
		assert.Len(t, runs, 1)
	})

	t.Run("bad limit", func(t *testing.T) {
		code, _ := get(t, srv.URL+"/api/runs?limit=x")
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("run detail", func(t *testing.T) {
		code, body := get(t, srv.URL+"/api/runs/"+run.ID)
		require.Equal(t, http.StatusOK, code)

		var got state.Run
		require.NoError(t, json.Unmarshal([]byte(body), &got))
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, run.Failures, got.Failures)
	})

	t.Run("unknown run", func(t *testing.T) {
		code, _ := get(t, srv.URL+"/api/runs/missing")
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("rendered page", func(t *testing.T) {
		code, body := get(t, srv.URL+"/1_tree_Orders.html")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "<html>tree</html>", body)
	})
}

func TestServer_NoStore(t *testing.T) {
	srv := httptest.NewServer(NewServer(Config{OutputDir: t.TempDir()}).Handler())
	defer srv.Close()

	code, _ := get(t, srv.URL+"/api/runs")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(Config{OutputDir: t.TempDir()})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/") //nolint:noctx // test
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
