package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/diogoviieira/register-track-bot/internal/core"
	"github.com/diogoviieira/register-track-bot/internal/log"
	"github.com/diogoviieira/register-track-bot/internal/storage"
)

// Config wires an Engine.
type Config struct {
	Store      storage.Store
	Catalog    *core.Catalog
	Limits     core.Limits
	DateLayout string
	Clock      core.Clock
	Sessions   *Sessions
	Logger     *log.Logger
}

// Engine runs the conversation state machine. Handle is safe for concurrent
// use across owners; events of one owner must not be handled concurrently,
// which the Dispatcher guarantees.
type Engine struct {
	store      storage.Store
	catalog    *core.Catalog
	validator  core.Validator
	dateLayout string
	clock      core.Clock
	sessions   *Sessions
	flows      map[string]*FlowSpec
	log        *log.Logger
	slog       *log.StructuredLogger
}

func NewEngine(cfg Config) *Engine {
	if cfg.Catalog == nil {
		cfg.Catalog = core.DefaultCatalog()
	}
	if cfg.Limits.MaxAmount.IsZero() {
		cfg.Limits = core.DefaultLimits()
	}
	if cfg.DateLayout == "" {
		cfg.DateLayout = core.DefaultDateLayout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.DefaultConfig())
	}
	if cfg.Sessions == nil {
		cfg.Sessions = NewSessions(DefaultIdleTimeout, DefaultMaxSessions, cfg.Logger)
	}
	logger := cfg.Logger.WithComponent(log.ComponentEngine)

	e := &Engine{
		store:      cfg.Store,
		catalog:    cfg.Catalog,
		validator:  core.NewValidator(cfg.Limits),
		dateLayout: cfg.DateLayout,
		clock:      cfg.Clock,
		sessions:   cfg.Sessions,
		log:        logger,
		slog:       log.NewStructuredLogger(logger),
	}
	e.flows = e.buildFlows()
	return e
}

// Sessions returns the live session table.
func (e *Engine) Sessions() *Sessions { return e.sessions }

// Commands lists the commands the engine starts a flow for.
func (e *Engine) Commands() []string {
	out := make([]string, 0, len(e.flows))
	for _, name := range commandOrder {
		if _, ok := e.flows[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Handle processes one event and returns the prompt or result to show.
func (e *Engine) Handle(ctx context.Context, ev Event) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			e.sessions.Delete(ev.Owner)
			err := fmt.Errorf("%w: %v", errPanic, r)
			e.log.ErrorContext(ctx, "Panic while handling event", log.FieldOwner, ev.Owner, log.FieldError, err)
			reply = failureReply(ev.Owner, "", err)
		}
	}()

	e.log.DebugContext(ctx, "Handling event",
		log.FieldOwner, ev.Owner,
		log.FieldEventType, ev.Type.String(),
		log.FieldCommand, ev.Command)

	switch ev.Type {
	case EventCancel:
		return e.cancel(ctx, ev.Owner)
	case EventCommand:
		return e.command(ctx, ev)
	case EventText:
		return e.text(ctx, ev)
	default:
		return e.protocol(ev.Owner, fmt.Errorf("%w: event type %d", ErrProtocol, ev.Type))
	}
}

func (e *Engine) cancel(ctx context.Context, owner string) Reply {
	s, ok := e.sessions.Get(owner)
	e.sessions.Delete(owner)

	res := &Result{Owner: owner, Flow: FlowCancel, Outcome: Cancelled, Message: "Nothing to cancel."}
	if ok {
		res.Flow = s.Flow
		res.Message = "Operation cancelled."
		e.log.InfoContext(ctx, "Session cancelled", log.FieldOwner, owner, log.FieldFlow, s.Flow, log.FieldState, s.State)
	}
	return Reply{Result: res}
}

func (e *Engine) command(ctx context.Context, ev Event) Reply {
	name := strings.ToLower(strings.TrimPrefix(ev.Command, "/"))
	spec, ok := e.flows[name]
	if !ok {
		return e.protocol(ev.Owner, fmt.Errorf("%w: unknown command /%s", ErrProtocol, name))
	}

	// a new top-level command always replaces the previous conversation
	e.sessions.Delete(ev.Owner)

	today := e.clock.Today()
	s := &Session{
		Owner: ev.Owner,
		Flow:  spec.Flow,
		Draft: Draft{Kind: core.Expense, Date: today},
		spec:  spec,
	}
	return e.apply(ctx, s, spec.Begin(ctx, s, ev.Args))
}

func (e *Engine) text(ctx context.Context, ev Event) Reply {
	s, ok := e.sessions.Get(ev.Owner)
	if !ok {
		return e.protocol(ev.Owner, fmt.Errorf("%w: no conversation in progress", ErrProtocol))
	}
	step, ok := s.spec.Steps[s.State]
	if !ok {
		// unreachable unless a FlowSpec is missing a state it advances to
		return e.finish(ctx, s, func(context.Context) (*Result, error) {
			return nil, fmt.Errorf("flow %s has no step for %s", s.Flow, s.State)
		})
	}
	return e.apply(ctx, s, step(ctx, s, strings.TrimSpace(ev.Text)))
}

// apply moves s according to the outcome of a step.
func (e *Engine) apply(ctx context.Context, s *Session, st step) Reply {
	if st.commit != nil {
		return e.finish(ctx, s, st.commit)
	}
	if st.next != "" {
		s.State = st.next
		s.Prompt = e.prompt(s)
	}
	s.UpdatedAt = e.now()
	e.sessions.Put(s)

	p := s.Prompt
	if st.invalid != nil {
		p.Error = userMessage(st.invalid)
		e.log.DebugContext(ctx, "Input rejected", log.FieldOwner, s.Owner, log.FieldState, s.State, log.FieldError, st.invalid)
	}
	return Reply{Prompt: &p, Err: st.invalid}
}

// finish runs the terminal action of a flow. The session is removed on every
// path out of it, panics included.
func (e *Engine) finish(ctx context.Context, s *Session, commit Commit) (reply Reply) {
	defer e.sessions.Delete(s.Owner)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", errPanic, r)
			e.log.ErrorContext(ctx, "Panic in terminal action", log.FieldOwner, s.Owner, log.FieldFlow, s.Flow, log.FieldError, err)
			reply = failureReply(s.Owner, s.Flow, err)
		}
	}()

	res, err := commit(ctx)
	if err != nil {
		reply = failureReply(s.Owner, s.Flow, err)
		e.slog.LogFlowFailed(ctx, s.Owner, string(s.Flow), string(s.State), string(reply.Result.Failure.Reason), err)
		return reply
	}
	res.Owner = s.Owner
	res.Flow = s.Flow
	res.Outcome = Success
	return Reply{Result: res}
}

// protocol answers input the engine cannot place. A live session is left
// untouched and its prompt is repeated.
func (e *Engine) protocol(owner string, err error) Reply {
	if s, ok := e.sessions.Get(owner); ok {
		p := s.Prompt
		p.Error = userMessage(err) + ". Send /cancel to stop the current operation."
		return Reply{Prompt: &p, Err: err}
	}
	return Reply{
		Prompt: &Prompt{
			Owner: owner,
			Text:  "Send /add to record an expense or income, or /help to see all commands.",
			Error: userMessage(err) + ".",
		},
		Err: err,
	}
}

func failureReply(owner string, flow Flow, err error) Reply {
	reason, msg := classify(err)
	return Reply{
		Result: &Result{
			Owner:   owner,
			Flow:    flow,
			Outcome: Failure,
			Failure: &FailureInfo{Reason: reason, Message: msg},
		},
		Err: err,
	}
}

func (e *Engine) now() time.Time {
	if e.clock.Now != nil {
		return e.clock.Now()
	}
	return time.Now()
}

// userMessage renders a rejection for the owner.
func userMessage(err error) string {
	var ve *core.ValidationError
	msg := err.Error()
	switch {
	case errors.As(err, &ve):
		msg = ve.Message
	case errors.Is(err, ErrProtocol):
		msg = strings.TrimPrefix(msg, ErrProtocol.Error()+": ")
	}
	return upperFirst(msg)
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
