package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/diogoviieira/register-track-bot/internal/core"
	"github.com/diogoviieira/register-track-bot/internal/log"
	"github.com/diogoviieira/register-track-bot/internal/storage"
)

// Commit is the terminal action of a flow: at most one store mutation.
type Commit func(ctx context.Context) (*Result, error)

// StepFunc consumes the input of one state.
type StepFunc func(ctx context.Context, s *Session, input string) step

// step is the outcome of a StepFunc: advance to next, reject the input, or
// commit. A step that rejects must leave the session unchanged.
type step struct {
	next    State
	commit  Commit
	invalid error
}

func advance(next State) step { return step{next: next} }

func reject(err error) step { return step{invalid: err} }

func commit(c Commit) step { return step{commit: c} }

// rejectInto enters next and reports err against it.
func rejectInto(next State, err error) step { return step{next: next, invalid: err} }

// fail ends the flow with err.
func fail(err error) step {
	return commit(func(context.Context) (*Result, error) { return nil, err })
}

// FlowSpec describes one command: how it starts and which input each of its
// states accepts.
type FlowSpec struct {
	Flow  Flow
	Begin func(ctx context.Context, s *Session, args []string) step
	Steps map[State]StepFunc

	afterDate   func(ctx context.Context, s *Session) step
	afterSelect func(ctx context.Context, s *Session) step
	period      periodPrompt
}

type periodPrompt struct {
	text    string
	choices []string
}

// commandOrder is the order commands are listed in help.
var commandOrder = []string{
	"start", "add", "add_d",
	"edit", "edit_d", "delete", "delete_d",
	"view", "view_d", "summary", "month", "income",
	"report", "pdf", "help",
}

func (e *Engine) buildFlows() map[string]*FlowSpec {
	addSteps := map[State]StepFunc{
		AwaitingDate:        e.stepDate,
		AwaitingKind:        e.stepKind,
		AwaitingCategory:    e.stepCategory,
		AwaitingSubcategory: e.stepSubcategory,
		AwaitingAmount:      e.stepAmount,
		AwaitingDescription: e.stepDescription,
	}
	selectSteps := map[State]StepFunc{
		AwaitingDate:        e.stepDate,
		AwaitingSelection:   e.stepSelection,
		AwaitingFieldChoice: e.stepFieldChoice,
		AwaitingNewValue:    e.stepNewValue,
	}
	afterKindChoice := func(context.Context, *Session) step { return advance(AwaitingKind) }
	toFieldChoice := func(context.Context, *Session) step { return advance(AwaitingFieldChoice) }

	add := &FlowSpec{Flow: FlowAdd, Steps: addSteps, afterDate: afterKindChoice, Begin: e.beginAdd}
	addOnDate := &FlowSpec{Flow: FlowAdd, Steps: addSteps, afterDate: afterKindChoice,
		Begin: func(context.Context, *Session, []string) step { return advance(AwaitingDate) }}

	edit := &FlowSpec{Flow: FlowEdit, Steps: selectSteps, afterDate: e.loadSelection, afterSelect: toFieldChoice}
	editOnDate := *edit
	edit.Begin = e.beginForDay(false)
	editOnDate.Begin = e.beginForDay(true)

	del := &FlowSpec{Flow: FlowDelete, Steps: selectSteps, afterDate: e.loadSelection, afterSelect: e.commitDelete}
	delOnDate := *del
	del.Begin = e.beginForDay(false)
	delOnDate.Begin = e.beginForDay(true)

	view := &FlowSpec{Flow: FlowView, Steps: map[State]StepFunc{AwaitingDate: e.stepDate}, afterDate: e.commitView}
	viewOnDate := *view
	view.Begin = e.beginForDay(false)
	viewOnDate.Begin = e.beginForDay(true)

	summary := &FlowSpec{
		Flow:  FlowSummary,
		Steps: map[State]StepFunc{AwaitingPeriod: e.stepSummaryPeriod},
		Begin: e.beginWithArg(e.stepSummaryPeriod),
		period: periodPrompt{
			text:    "Which period do you want to summarize?",
			choices: []string{"Today", "This Week", "This Month", "This Year"},
		},
	}
	month := e.monthFlow(core.Expense)
	income := e.monthFlow(core.Income)

	report := &FlowSpec{
		Flow:  FlowReport,
		Steps: map[State]StepFunc{AwaitingPeriod: e.stepReportPeriod},
		Begin: e.beginWithArg(e.stepReportPeriod),
		period: periodPrompt{
			text:    "Select the report period:",
			choices: []string{"This Week", "This Month", "This Year"},
		},
	}

	help := &FlowSpec{Flow: FlowHelp, Begin: func(context.Context, *Session, []string) step {
		return commit(func(context.Context) (*Result, error) {
			return &Result{Action: ActionHelp, Title: "Available commands", Message: helpText}, nil
		})
	}}

	return map[string]*FlowSpec{
		"start":    add,
		"add":      add,
		"add_d":    addOnDate,
		"edit":     edit,
		"edit_d":   &editOnDate,
		"delete":   del,
		"delete_d": &delOnDate,
		"view":     view,
		"view_d":   &viewOnDate,
		"summary":  summary,
		"month":    month,
		"income":   income,
		"report":   report,
		"pdf":      report,
		"help":     help,
	}
}

const helpText = `/add - record an expense or income for today
/add_d - record an entry on a given date
/edit [income] - change the amount or description of today's entry
/edit_d [income] - edit an entry on a given date
/delete [income] - delete one of today's entries
/delete_d [income] - delete an entry on a given date
/view [income] - list today's entries
/view_d [income] - list the entries of a given date
/summary [today|week|month|year] - expenses by category
/month <month> - expenses of a month of this year
/income <month> - incomes of a month of this year
/report [week|month|year] - financial report
/cancel - stop the current operation`

// beginAdd starts at the kind choice, or at the category when the kind is
// given as an argument ("/add income").
func (e *Engine) beginAdd(_ context.Context, s *Session, args []string) step {
	if k, ok := kindArg(args); ok {
		s.Draft.Kind = k
		return advance(AwaitingCategory)
	}
	return advance(AwaitingKind)
}

// beginForDay works on today's entries, or asks for a date first.
func (e *Engine) beginForDay(askDate bool) func(ctx context.Context, s *Session, args []string) step {
	return func(ctx context.Context, s *Session, args []string) step {
		if k, ok := kindArg(args); ok {
			s.Draft.Kind = k
		}
		if askDate {
			return advance(AwaitingDate)
		}
		return s.spec.afterDate(ctx, s)
	}
}

// beginWithArg feeds the command argument to the period step, or prompts
// for it when missing.
func (e *Engine) beginWithArg(fn StepFunc) func(ctx context.Context, s *Session, args []string) step {
	return func(ctx context.Context, s *Session, args []string) step {
		if len(args) == 0 {
			return advance(AwaitingPeriod)
		}
		st := fn(ctx, s, strings.Join(args, " "))
		if st.invalid != nil {
			return rejectInto(AwaitingPeriod, st.invalid)
		}
		return st
	}
}

func kindArg(args []string) (core.Kind, bool) {
	if len(args) == 0 {
		return "", false
	}
	k, err := core.ParseKind(args[0])
	return k, err == nil
}

func (e *Engine) stepDate(ctx context.Context, s *Session, input string) step {
	d, err := e.validator.ValidateDate(input, e.dateLayout)
	if err != nil {
		return reject(err)
	}
	s.Draft.Date = d
	return s.spec.afterDate(ctx, s)
}

func (e *Engine) stepKind(_ context.Context, s *Session, input string) step {
	k, err := core.ParseKind(input)
	if err != nil {
		return reject(&core.ValidationError{Kind: core.BadFormat, Message: "choose Expense or Income"})
	}
	s.Draft.Kind = k
	return advance(AwaitingCategory)
}

func (e *Engine) stepCategory(_ context.Context, s *Session, input string) step {
	cat, err := e.catalog.Lookup(s.Draft.Kind, input)
	if err != nil {
		return reject(&core.ValidationError{Kind: core.BadFormat,
			Message: fmt.Sprintf("%q is not a category, choose one of the options", input)})
	}
	s.Draft.Category = cat
	return advance(AwaitingSubcategory)
}

func (e *Engine) stepSubcategory(_ context.Context, s *Session, input string) step {
	cat := s.Draft.Category
	sub, ok := cat.MatchSubcategory(input)
	if !ok {
		if !cat.FreeText {
			return reject(&core.ValidationError{Kind: core.BadFormat,
				Message: fmt.Sprintf("choose one of the %s subcategories", cat.Name)})
		}
		text, err := e.validator.ValidateSubcategoryText(input)
		if err != nil {
			return reject(err)
		}
		sub = text
	}
	s.Draft.Subcategory = sub
	s.Draft.AutoDescription, _ = cat.AutoDescriptionFor(sub)
	return advance(AwaitingAmount)
}

func (e *Engine) stepAmount(_ context.Context, s *Session, input string) step {
	amount, err := e.validator.ValidateAmount(input)
	if err != nil {
		return reject(err)
	}
	s.Draft.Amount = amount
	if s.Draft.AutoDescription != "" {
		s.Draft.Description = e.validator.ValidateDescription(s.Draft.AutoDescription)
		return commit(e.commitCreate(s))
	}
	return advance(AwaitingDescription)
}

func (e *Engine) stepDescription(_ context.Context, s *Session, input string) step {
	desc := e.validator.ValidateDescription(input)
	if desc == "" {
		return reject(&core.ValidationError{Kind: core.Empty, Message: "description cannot be empty"})
	}
	s.Draft.Description = desc
	return commit(e.commitCreate(s))
}

func (e *Engine) commitCreate(s *Session) Commit {
	d := s.Draft
	return func(ctx context.Context) (*Result, error) {
		entry, err := e.store.Create(ctx, core.NewEntry{
			Owner:       s.Owner,
			Kind:        d.Kind,
			OccurredOn:  d.Date,
			Category:    d.Category.Name,
			Subcategory: d.Subcategory,
			Amount:      d.Amount,
			Description: d.Description,
		})
		if err != nil {
			return nil, err
		}
		e.logChange(ctx, log.OpCreate, entry)
		return &Result{Action: ActionCreated, Kind: entry.Kind, Entry: &entry}, nil
	}
}

// loadSelection captures the entries of the draft day for Edit and Delete.
func (e *Engine) loadSelection(ctx context.Context, s *Session) step {
	entries, err := e.store.ListByDate(ctx, s.Owner, s.Draft.Kind, s.Draft.Date)
	if err != nil {
		return fail(err)
	}
	if len(entries) == 0 {
		kind, title := s.Draft.Kind, e.dayTitle(s.Draft.Kind, s.Draft.Date)
		return commit(func(context.Context) (*Result, error) {
			return &Result{Action: ActionNoEntries, Kind: kind, Title: title}, nil
		})
	}
	s.Selection = entries
	return advance(AwaitingSelection)
}

func (e *Engine) stepSelection(ctx context.Context, s *Session, input string) step {
	n, err := strconv.Atoi(strings.TrimPrefix(input, "#"))
	if err != nil {
		return reject(&core.ValidationError{Kind: core.BadFormat, Message: "send the number of the entry"})
	}
	if n < 1 || n > len(s.Selection) {
		return reject(&core.ValidationError{Kind: core.OutOfRange,
			Message: fmt.Sprintf("choose a number between 1 and %d", len(s.Selection))})
	}
	target := s.Selection[n-1]
	s.Target = &target
	return s.spec.afterSelect(ctx, s)
}

func (e *Engine) commitDelete(_ context.Context, s *Session) step {
	target := *s.Target
	return commit(func(ctx context.Context) (*Result, error) {
		deleted, err := e.store.Delete(ctx, s.Owner, target.Kind, target.ID)
		if err != nil {
			return nil, staleIfMissing(err, target.ID)
		}
		e.logChange(ctx, log.OpDelete, deleted)
		return &Result{Action: ActionDeleted, Kind: deleted.Kind, Entry: &deleted}, nil
	})
}

func (e *Engine) stepFieldChoice(_ context.Context, s *Session, input string) step {
	switch strings.ToLower(input) {
	case "amount", "1":
		s.Field = FieldAmount
	case "description", "2":
		s.Field = FieldDescription
	default:
		return reject(&core.ValidationError{Kind: core.BadFormat, Message: "choose Amount or Description"})
	}
	return advance(AwaitingNewValue)
}

func (e *Engine) stepNewValue(_ context.Context, s *Session, input string) step {
	target := *s.Target
	field := s.Field

	var update func(ctx context.Context) (core.Entry, error)
	switch field {
	case FieldAmount:
		amount, err := e.validator.ValidateAmount(input)
		if err != nil {
			return reject(err)
		}
		update = func(ctx context.Context) (core.Entry, error) {
			return e.store.UpdateAmount(ctx, s.Owner, target.Kind, target.ID, amount)
		}
	default:
		desc := e.validator.ValidateDescription(input)
		if desc == "" {
			return reject(&core.ValidationError{Kind: core.Empty, Message: "description cannot be empty"})
		}
		update = func(ctx context.Context) (core.Entry, error) {
			return e.store.UpdateDescription(ctx, s.Owner, target.Kind, target.ID, desc)
		}
	}

	return commit(func(ctx context.Context) (*Result, error) {
		updated, err := update(ctx)
		if err != nil {
			return nil, staleIfMissing(err, target.ID)
		}
		e.logChange(ctx, log.OpUpdate, updated)
		return &Result{Action: ActionUpdated, Kind: updated.Kind, Entry: &updated, Field: field}, nil
	})
}

// staleIfMissing turns a vanished selection into ErrStaleSelection.
func staleIfMissing(err error, id int64) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: entry %d: %w", ErrStaleSelection, id, err)
	}
	return err
}

func (e *Engine) commitView(_ context.Context, s *Session) step {
	owner, kind, date := s.Owner, s.Draft.Kind, s.Draft.Date
	title := e.dayTitle(kind, date)
	return commit(func(ctx context.Context) (*Result, error) {
		entries, err := e.store.ListByDate(ctx, owner, kind, date)
		if err != nil {
			return nil, err
		}
		return &Result{Action: ActionListed, Kind: kind, Title: title, Entries: entries, Total: core.Sum(entries)}, nil
	})
}

func (e *Engine) stepSummaryPeriod(_ context.Context, s *Session, input string) step {
	name, ok := core.ParsePeriodName(input)
	if !ok {
		return reject(&core.ValidationError{Kind: core.BadFormat, Message: "choose today, week, month or year"})
	}
	p := name.Resolve(e.clock.Today())
	owner := s.Owner
	return commit(func(ctx context.Context) (*Result, error) {
		var (
			totals  []core.CategoryTotal
			entries []core.Entry
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			totals, err = e.store.AggregateByCategory(gctx, owner, core.Expense, p)
			return err
		})
		g.Go(func() error {
			var err error
			entries, err = e.store.ListBetween(gctx, owner, core.Expense, p)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		core.AttachSubcategories(totals, entries)
		return &Result{
			Action:  ActionSummary,
			Kind:    core.Expense,
			Title:   "Expenses Summary - " + p.Label,
			Totals:  totals,
			Entries: entries,
			Total:   core.Sum(entries),
		}, nil
	})
}

func (e *Engine) monthFlow(kind core.Kind) *FlowSpec {
	stepMonth := func(_ context.Context, s *Session, input string) step {
		m, err := e.validator.ValidateMonth(input)
		if err != nil {
			return reject(err)
		}
		return commit(e.commitMonth(s.Owner, kind, m))
	}
	return &FlowSpec{
		Flow:  FlowSummary,
		Steps: map[State]StepFunc{AwaitingPeriod: stepMonth},
		Begin: e.beginWithArg(stepMonth),
		period: periodPrompt{
			text: fmt.Sprintf("Which month of %s do you want to see?", strings.ToLower(kind.Label())+"s"),
			choices: []string{
				"January", "February", "March", "April", "May", "June",
				"July", "August", "September", "October", "November", "December",
			},
		},
	}
}

func (e *Engine) commitMonth(owner string, kind core.Kind, month time.Month) Commit {
	year := e.clock.Today().Year()
	return func(ctx context.Context) (*Result, error) {
		entries, err := e.store.ListByPeriod(ctx, owner, kind, year, int(month))
		if err != nil {
			return nil, err
		}
		return &Result{
			Action:  ActionSummary,
			Kind:    kind,
			Title:   fmt.Sprintf("%ss - %s %d", kind.Label(), month, year),
			Entries: entries,
			Totals:  core.GroupByCategory(entries),
			Total:   core.Sum(entries),
		}, nil
	}
}

func (e *Engine) stepReportPeriod(_ context.Context, s *Session, input string) step {
	name, ok := core.ParsePeriodName(input)
	if !ok || name == core.PeriodToday {
		return reject(&core.ValidationError{Kind: core.BadFormat, Message: "choose week, month or year"})
	}
	p := name.Resolve(e.clock.Today())
	switch name {
	case core.PeriodMonth:
		p.Label = "This Month"
	case core.PeriodYear:
		p.Label = "This Year"
	}
	owner := s.Owner
	return commit(func(ctx context.Context) (*Result, error) {
		var expenses, incomes []core.Entry
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			expenses, err = e.store.ListBetween(gctx, owner, core.Expense, p)
			return err
		})
		g.Go(func() error {
			var err error
			incomes, err = e.store.ListBetween(gctx, owner, core.Income, p)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		report := core.NewReport(owner, p, expenses, incomes)
		return &Result{Action: ActionReport, Title: "Financial Report - " + p.Label, Report: &report}, nil
	})
}

func (e *Engine) dayTitle(kind core.Kind, d core.Date) string {
	return fmt.Sprintf("%ss on %s", kind.Label(), d.Format(e.dateLayout))
}

func (e *Engine) logChange(ctx context.Context, op string, entry core.Entry) {
	e.slog.LogEntryChanged(ctx, op, entry.Owner, string(entry.Kind), entry.ID,
		core.ToCents(entry.Amount), entry.Category, entry.Subcategory)
}
