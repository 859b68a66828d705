package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeWhileStopsPollingWhenServerFails(t *testing.T) {
	bindErr := errors.New("listen tcp :8000: address already in use")
	stopped := make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- serveWhile(context.Background(),
			func(context.Context) error { return bindErr },
			func(ctx context.Context) {
				<-ctx.Done()
				close(stopped)
			})
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, bindErr)
	case <-time.After(2 * time.Second):
		t.Fatal("polling kept running after the health server failed")
	}
	<-stopped
}

func TestServeWhileCleanShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var served bool
	err := serveWhile(ctx,
		func(ctx context.Context) error {
			<-ctx.Done()
			served = true
			return nil
		},
		func(context.Context) { cancel() })
	assert.NoError(t, err)
	assert.True(t, served)
}
