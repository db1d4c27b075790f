package web

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusmon/internal/config"
	"focusmon/internal/database"
)

func TestServerLifecycle(t *testing.T) {
	cfg := config.Default()
	cfg.Web.Host = "127.0.0.1"
	cfg.Web.Port = 0

	db, err := database.Connect(filepath.Join(t.TempDir(), "focusmon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Initialize())

	s := NewServer(cfg, database.NewRepository(db), &fakeSource{}, nil)

	errc := make(chan error, 1)
	go func() { errc <- s.Start() }()

	require.Eventually(t, func() bool {
		return s.GetAddress() != "127.0.0.1:0"
	}, 2*time.Second, 10*time.Millisecond)

	base := "http://" + s.GetAddress()

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodOptions, base+"/api/focus", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.ErrorIs(t, <-errc, http.ErrServerClosed)
}
