package server

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/tapwars/internal/testutil"
)

func TestCreateServer(t *testing.T) {
	handler := http.NewServeMux()
	srv := CreateServer(":1234", handler)

	assert.Equal(t, ":1234", srv.Addr)
	assert.Equal(t, handler, srv.Handler)
	assert.Equal(t, 15*time.Second, srv.ReadTimeout)
	assert.Equal(t, 15*time.Second, srv.WriteTimeout)
	assert.Equal(t, 60*time.Second, srv.IdleTimeout)
}

func TestStartAndShutdownServer(t *testing.T) {
	srv := CreateServer("127.0.0.1:0", http.HandlerFunc(HealthHandler))
	logger := testutil.NopLogger()

	errCh := make(chan error, 1)
	go func() { errCh <- StartServer(srv, logger) }()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, ShutdownServer(srv, time.Second, logger))

	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, http.ErrServerClosed))
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}
}
