package conversation

import (
	"context"
	"errors"
	"sync"
)

const defaultMailboxSize = 16

var ErrDispatcherClosed = errors.New("dispatcher is closed")

// Handler processes one event. *Engine satisfies it.
type Handler interface {
	Handle(ctx context.Context, ev Event) Reply
}

// Dispatcher serializes events per owner. Each owner with pending events has
// a mailbox goroutine that handles them in arrival order; the goroutine exits
// as soon as its mailbox is empty. Different owners never wait on each other.
type Dispatcher struct {
	handler Handler

	mu        sync.Mutex
	mailboxes map[string]*mailbox
	closed    bool
	wg        sync.WaitGroup
}

type mailbox struct {
	jobs    chan job
	pending int // submitted and not yet answered, guarded by Dispatcher.mu
}

type job struct {
	ctx   context.Context
	ev    Event
	reply chan Reply
}

func NewDispatcher(h Handler) *Dispatcher {
	return &Dispatcher{
		handler:   h,
		mailboxes: make(map[string]*mailbox),
	}
}

// Submit queues ev behind earlier events of the same owner and waits for its
// reply.
func (d *Dispatcher) Submit(ctx context.Context, ev Event) (Reply, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return Reply{}, ErrDispatcherClosed
	}
	mb, ok := d.mailboxes[ev.Owner]
	if !ok {
		mb = &mailbox{jobs: make(chan job, defaultMailboxSize)}
		d.mailboxes[ev.Owner] = mb
		d.wg.Add(1)
		go d.run(ev.Owner, mb)
	}
	mb.pending++
	d.mu.Unlock()

	j := job{ctx: ctx, ev: ev, reply: make(chan Reply, 1)}
	select {
	case mb.jobs <- j:
	case <-ctx.Done():
		if d.release(ev.Owner, mb) {
			// nothing else will be sent to this mailbox; stop its goroutine
			close(mb.jobs)
		}
		return Reply{}, ctx.Err()
	}

	select {
	case r := <-j.reply:
		return r, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

func (d *Dispatcher) run(owner string, mb *mailbox) {
	defer d.wg.Done()
	for j := range mb.jobs {
		if err := j.ctx.Err(); err != nil {
			j.reply <- Reply{Err: err}
		} else {
			j.reply <- d.handler.Handle(j.ctx, j.ev)
		}
		if d.release(owner, mb) {
			return
		}
	}
}

// release marks one job of mb as done and retires the mailbox when it was
// the last one.
func (d *Dispatcher) release(owner string, mb *mailbox) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	mb.pending--
	if mb.pending > 0 {
		return false
	}
	if d.mailboxes[owner] == mb {
		delete(d.mailboxes, owner)
	}
	return true
}

// Active returns the number of owners with events in flight.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.mailboxes)
}

// Close rejects new events and waits for queued ones to be handled.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
