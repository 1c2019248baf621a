package conversation

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoviieira/register-track-bot/internal/cache"
	"github.com/diogoviieira/register-track-bot/internal/log"
)

func TestSessionEvictionLogsAsEngine(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{
		Level:     slog.LevelInfo,
		Component: log.ComponentGateway,
		Handler:   slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}),
	})
	clock := newTestClock()
	sessions := NewSessions(time.Minute, 10, logger, cache.WithClock[*Session](clock.Now))

	sessions.Put(&Session{Owner: "U1", Flow: FlowAdd, State: AwaitingKind})
	clock.Advance(2 * time.Minute)
	require.Equal(t, 1, sessions.Cleaner().CleanExpired())

	out := buf.String()
	assert.Contains(t, out, `msg="Session evicted"`)
	assert.Contains(t, out, "component=engine")
	assert.Contains(t, out, "owner=U1")
	assert.Contains(t, out, "flow=add")
	assert.Contains(t, out, "state=awaiting_kind")
	assert.NotContains(t, out, "component=gateway")
}

func TestSessionDeleteDoesNotLogEviction(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Handler: slog.NewTextHandler(&buf, nil)})
	sessions := NewSessions(time.Minute, 10, logger)

	sessions.Put(&Session{Owner: "U1", Flow: FlowAdd, State: AwaitingKind})
	sessions.Delete("U1")
	assert.Zero(t, sessions.Len())
	assert.Empty(t, buf.String())
}
