package main

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"relab/internal/config"
	"relab/pkg/relab"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func serveApp(t *testing.T, archive string) *app {
	t.Helper()
	opts := relab.DefaultOptions()
	opts.Archive = archive
	opts.WorkDir = t.TempDir()
	opts.CatalogueSuffix = "xlsx"
	return &app{
		cfg: config.Config{Store: opts, LogLevel: "debug", BindAddr: freeAddr(t)},
		log: zaptest.NewLogger(t),
	}
}

func TestServeLifecycle(t *testing.T) {
	// 1. Start the server; the catalogue loads in the background
	a := serveApp(t, library(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.serve(ctx) }()

	// 2. Wait until the catalogue is served
	url := "http://" + a.cfg.BindAddr + "/api/catalogue"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 20*time.Millisecond)

	// 3. Cancel: a clean shutdown returns nil
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}

	_, err := http.Get(url)
	assert.Error(t, err)
}

func TestServeLoadFailure(t *testing.T) {
	a := serveApp(t, filepath.Join(t.TempDir(), "missing.zip"))

	done := make(chan error, 1)
	go func() { done <- a.serve(context.Background()) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, relab.ErrNotFound)
	case <-time.After(10 * time.Second):
		t.Fatal("serve kept running after the catalogue failed to load")
	}
}
