package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// recordingHandler remembers the order in which events were handled and can
// hold one owner until released.
type recordingHandler struct {
	mu      sync.Mutex
	handled map[string][]string
	active  map[string]int
	overlap bool

	block   string
	started chan struct{}
	release chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		handled: make(map[string][]string),
		active:  make(map[string]int),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (h *recordingHandler) Handle(_ context.Context, ev Event) Reply {
	h.mu.Lock()
	h.active[ev.Owner]++
	if h.active[ev.Owner] > 1 {
		h.overlap = true
	}
	h.mu.Unlock()

	if ev.Owner == h.block {
		select {
		case h.started <- struct{}{}:
		default:
		}
		<-h.release
	}

	h.mu.Lock()
	h.handled[ev.Owner] = append(h.handled[ev.Owner], ev.Text)
	h.active[ev.Owner]--
	h.mu.Unlock()
	return Reply{Prompt: &Prompt{Owner: ev.Owner, Text: ev.Text}}
}

func (h *recordingHandler) order(owner string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.handled[owner]...)
}

func TestDispatcher_SerializesPerOwner(t *testing.T) {
	h := newRecordingHandler()
	d := NewDispatcher(h)

	inputs := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, in := range inputs {
		r, err := d.Submit(context.Background(), Event{Owner: "U1", Type: EventText, Text: in})
		require.NoError(t, err)
		assert.Equal(t, in, r.Prompt.Text)
	}
	assert.Equal(t, inputs, h.order("U1"))
	assert.Eventually(t, func() bool { return d.Active() == 0 }, time.Second, 5*time.Millisecond)
}

func TestDispatcher_ConcurrentSubmitsNeverOverlap(t *testing.T) {
	h := newRecordingHandler()
	d := NewDispatcher(h)

	var g errgroup.Group
	for i := 0; i < 50; i++ {
		owner := []string{"U1", "U2", "U3"}[i%3]
		g.Go(func() error {
			_, err := d.Submit(context.Background(), Event{Owner: owner, Type: EventText, Text: "x"})
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.False(t, h.overlap, "two events of one owner were handled at the same time")
	total := len(h.order("U1")) + len(h.order("U2")) + len(h.order("U3"))
	assert.Equal(t, 50, total)
}

func TestDispatcher_OwnersDoNotBlockEachOther(t *testing.T) {
	h := newRecordingHandler()
	h.block = "slow"
	d := NewDispatcher(h)

	slowDone := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background(), Event{Owner: "slow", Type: EventText, Text: "1"})
		slowDone <- err
	}()
	<-h.started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r, err := d.Submit(ctx, Event{Owner: "fast", Type: EventText, Text: "2"})
	require.NoError(t, err)
	assert.Equal(t, "2", r.Prompt.Text)
	assert.Equal(t, 1, d.Active(), "only the slow owner is still in flight")

	close(h.release)
	require.NoError(t, <-slowDone)
}

func TestDispatcher_CancelledWhileQueued(t *testing.T) {
	h := newRecordingHandler()
	h.block = "U1"
	d := NewDispatcher(h)

	go d.Submit(context.Background(), Event{Owner: "U1", Type: EventText, Text: "first"}) //nolint:errcheck
	<-h.started

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := d.Submit(ctx, Event{Owner: "U1", Type: EventText, Text: "second"})
		errCh <- err
	}()
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(h.release)
	assert.Eventually(t, func() bool { return d.Active() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"first"}, h.order("U1"), "an event cancelled before its turn is never handled")
}

func TestDispatcher_Close(t *testing.T) {
	h := newRecordingHandler()
	h.block = "U1"
	d := NewDispatcher(h)

	done := make(chan Reply, 1)
	go func() {
		r, _ := d.Submit(context.Background(), Event{Owner: "U1", Type: EventText, Text: "pending"})
		done <- r
	}()
	<-h.started

	closed := make(chan error, 1)
	go func() { closed <- d.Close(context.Background()) }()

	assert.Eventually(t, func() bool {
		_, err := d.Submit(context.Background(), Event{Owner: "U2"})
		return err == ErrDispatcherClosed
	}, time.Second, 5*time.Millisecond)

	close(h.release)
	require.NoError(t, <-closed)
	assert.Equal(t, "pending", (<-done).Prompt.Text, "queued events are drained on close")
}

func TestDispatcher_CloseTimeout(t *testing.T) {
	h := newRecordingHandler()
	h.block = "U1"
	d := NewDispatcher(h)
	go d.Submit(context.Background(), Event{Owner: "U1"}) //nolint:errcheck
	<-h.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
	close(h.release)
}

func TestDispatcher_DrivesEngine(t *testing.T) {
	h := newHarness(t)
	d := NewDispatcher(h.engine)

	steps := []Event{
		{Owner: "U1", Type: EventCommand, Command: "add"},
		{Owner: "U1", Type: EventText, Text: "Expense"},
		{Owner: "U1", Type: EventText, Text: "Car"},
		{Owner: "U1", Type: EventText, Text: "Fuel"},
		{Owner: "U1", Type: EventText, Text: "55.20"},
	}
	var last Reply
	for _, ev := range steps {
		var err error
		last, err = d.Submit(context.Background(), ev)
		require.NoError(t, err)
	}
	require.NotNil(t, last.Result)
	assert.Equal(t, "Car - Fuel", last.Result.Entry.Description)
	require.NoError(t, d.Close(context.Background()))
}
