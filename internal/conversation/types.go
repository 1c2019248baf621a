// Package conversation drives the multi-step chat dialogs that add, edit,
// delete and browse entries.
//
// Each owner has at most one live Session. Events for one owner must be
// handled in order; the Dispatcher guarantees that, while events of
// different owners run in parallel. A flow touches the record store only in
// its terminal step, inside Engine.finish, which always removes the Session.
package conversation

import (
	"github.com/shopspring/decimal"

	"github.com/diogoviieira/register-track-bot/internal/core"
)

// EventType tells the engine how to route an Event.
type EventType int

const (
	EventCommand EventType = iota
	EventText
	EventCancel
)

func (t EventType) String() string {
	switch t {
	case EventCommand:
		return "command"
	case EventText:
		return "text"
	case EventCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Event is one classified inbound chat message.
type Event struct {
	Owner   string
	Type    EventType
	Command string   // without the leading slash, lower case
	Args    []string // words following the command
	Text    string
}

// State is the input a live Session is waiting for.
type State string

const (
	AwaitingKind        State = "awaiting_kind"
	AwaitingDate        State = "awaiting_date"
	AwaitingCategory    State = "awaiting_category"
	AwaitingSubcategory State = "awaiting_subcategory"
	AwaitingAmount      State = "awaiting_amount"
	AwaitingDescription State = "awaiting_description"
	AwaitingSelection   State = "awaiting_selection"
	AwaitingFieldChoice State = "awaiting_field_choice"
	AwaitingNewValue    State = "awaiting_new_value"
	AwaitingPeriod      State = "awaiting_period"
)

// Flow names a conversation shape.
type Flow string

const (
	FlowAdd     Flow = "add"
	FlowEdit    Flow = "edit"
	FlowDelete  Flow = "delete"
	FlowView    Flow = "view"
	FlowSummary Flow = "summary"
	FlowReport  Flow = "report"
	FlowHelp    Flow = "help"
	FlowCancel  Flow = "cancel"
)

// Field is the part of an entry an Edit flow may change.
type Field string

const (
	FieldAmount      Field = "amount"
	FieldDescription Field = "description"
)

// Prompt asks the owner for the next input.
type Prompt struct {
	Owner   string
	Flow    Flow
	State   State
	Text    string
	Choices [][]string
	// Entries are listed with their 1-based index when the owner must pick one.
	Entries []core.Entry
	// Error explains why the previous input was rejected.
	Error string
}

type Outcome string

const (
	Success   Outcome = "success"
	Failure   Outcome = "failure"
	Cancelled Outcome = "cancelled"
)

// Action says which store operation a successful Result reports.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionDeleted   Action = "deleted"
	ActionListed    Action = "listed"
	ActionSummary   Action = "summary"
	ActionReport    Action = "report"
	ActionHelp      Action = "help"
	ActionNoEntries Action = "no_entries"
)

// Reason classifies a failed flow for the owner, without internal detail.
type Reason string

const (
	ReasonNotFound       Reason = "not_found"
	ReasonStaleSelection Reason = "stale_selection"
	ReasonStorage        Reason = "storage_failure"
	ReasonInternal       Reason = "internal"
)

type FailureInfo struct {
	Reason  Reason
	Message string
}

// Result is the terminal output of a flow.
type Result struct {
	Owner   string
	Flow    Flow
	Outcome Outcome
	Action  Action

	Kind    core.Kind
	Title   string
	Entry   *core.Entry
	Field   Field
	Entries []core.Entry
	Totals  []core.CategoryTotal
	Total   decimal.Decimal
	Report  *core.Report
	Message string
	Failure *FailureInfo
}

// Reply carries exactly one of Prompt or Result. Err holds the cause of a
// re-prompt or a failure and is never shown to the owner verbatim.
type Reply struct {
	Prompt *Prompt
	Result *Result
	Err    error
}

// Terminal reports whether the reply ended the conversation.
func (r Reply) Terminal() bool { return r.Result != nil }
