// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package workload

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startUnixSocketServer serves an httptest-style handler over a Unix
// socket, mimicking the container runtime API.
func startUnixSocketServer(t *testing.T, handler http.Handler) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "uplinkd-docker")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	socketPath := filepath.Join(dir, "docker.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	srv := &http.Server{Handler: handler}
	go srv.Serve(listener)
	t.Cleanup(func() { srv.Close() })

	return socketPath
}

func TestInspect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/containers/workload/json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Id":"abc123","Name":"/workload","State":{"Running":true,"Pid":4242,"Status":"running"}}`))
	})
	client := NewDockerClient(startUnixSocketServer(t, mux))

	st, err := client.Inspect(context.Background(), "workload")
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.Equal(t, 4242, st.Pid)
}

func TestInspectNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	client := NewDockerClient(startUnixSocketServer(t, mux))

	_, err := client.Inspect(context.Background(), "missing")
	assert.Error(t, err)
}

func TestRestart(t *testing.T) {
	var restarted atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/containers/workload/restart", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		restarted.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})
	client := NewDockerClient(startUnixSocketServer(t, mux))

	err := client.Restart(context.Background(), "workload", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, restarted.Load())
}

func TestHealthCheckerSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := NewHealthChecker(1, 10*time.Millisecond, nil)
	assert.NoError(t, h.Check(context.Background(), srv.URL))
}

func TestHealthCheckerRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := NewHealthChecker(5, 5*time.Millisecond, nil)
	assert.NoError(t, h.Check(context.Background(), srv.URL))
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestHealthCheckerExhaustsRetries(t *testing.T) {
	h := NewHealthChecker(1, 5*time.Millisecond, nil)
	// Closed port: connection refused on every attempt.
	err := h.Check(context.Background(), "http://127.0.0.1:1/healthz")
	assert.Error(t, err)
}

func TestHealthURL(t *testing.T) {
	assert.Equal(t, "http://192.168.1.50:8123/", HealthURL("192.168.1.50", 8123, "/"))
	assert.Equal(t, "http://10.0.0.2:80/healthz", HealthURL("10.0.0.2", 80, "healthz"))
}
