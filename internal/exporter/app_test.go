package exporter

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/dmitrijs2005/exporter3/internal/exporter/config"
	"github.com/dmitrijs2005/exporter3/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inMemoryConfig(addr string) *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.InMemory = true
	c.EndpointAddrGRPC = addr
	c.KeysDir = ""
	return c
}

func TestApp_InMemoryStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), inMemoryConfig("127.0.0.1:0"), logging.NewJSONLogger(io.Discard, "error"))
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
}

func TestApp_BadAddressStopsEverything(t *testing.T) {
	app, err := NewApp(context.Background(), inMemoryConfig("127.0.0.1:99999"), logging.NewJSONLogger(io.Discard, "error"))
	require.NoError(t, err)
	defer app.Close()

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "grpc server")
	case <-time.After(3 * time.Second):
		t.Fatal("app kept running after the server failed")
	}
}

func TestNewApp_RejectsUnknownZone(t *testing.T) {
	c := inMemoryConfig("127.0.0.1:0")
	c.TimeZone = "Nowhere/Special"
	_, err := NewApp(context.Background(), c, logging.NewJSONLogger(io.Discard, "error"))
	assert.Error(t, err)
}
