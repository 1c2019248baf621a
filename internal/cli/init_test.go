package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoviieira/register-track-bot/internal/log"
)

func testLogger() *log.Logger {
	var buf bytes.Buffer
	return log.NewText(&buf, log.ParseLevel("debug"), log.ComponentApp)
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("PORT", "8099")
	t.Setenv("TIMEZONE", "UTC")
	cfg, err := LoadAndValidateConfig()
	require.NoError(t, err)
	assert.Equal(t, "8099", cfg.Port)

	t.Setenv("PORT", "nope")
	_, err = LoadAndValidateConfig()
	assert.ErrorContains(t, err, "invalid port 'nope'")
}

func TestRunCleanup(t *testing.T) {
	var order []int
	boom := errors.New("boom")

	err := RunCleanup(testLogger(), time.Second,
		func(context.Context) error { order = append(order, 1); return nil },
		nil,
		func(context.Context) error { order = append(order, 2); return boom },
		func(context.Context) error { order = append(order, 3); return errors.New("later") },
	)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestRunCleanup_StepsShareDeadline(t *testing.T) {
	err := RunCleanup(testLogger(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSignalContext_Cancel(t *testing.T) {
	ctx, cancel := SignalContext(testLogger())
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
}
