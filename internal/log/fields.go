package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldConnID      = "conn_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldOwner       = "owner"
	FieldFlow        = "flow"
	FieldState       = "state"
	FieldEventType   = "event_type"
	FieldCommand     = "command"
	FieldOutcome     = "outcome"
	FieldReason      = "reason"
	FieldKind        = "kind"
	FieldEntryID     = "entry_id"
	FieldAmountCents = "amount_cents"
	FieldCategory    = "category"
	FieldSubcategory = "subcategory"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentEngine    = "engine"
	ComponentGateway   = "gateway"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpList      = "list"
	OpAggregate = "aggregate"
	OpMirror    = "mirror"
	OpValidate  = "validate"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithOwner scopes the line to one chat user.
func (f LogFields) WithOwner(owner string) LogFields {
	f[FieldOwner] = owner
	return f
}

// WithFlow adds the conversation flow and state.
func (f LogFields) WithFlow(flow, state string) LogFields {
	f[FieldFlow] = flow
	if state != "" {
		f[FieldState] = state
	}
	return f
}

// WithEntry adds entry-related fields
func (f LogFields) WithEntry(kind string, id int64, amountCents int64, category, subcategory string) LogFields {
	f[FieldKind] = kind
	f[FieldEntryID] = id
	f[FieldAmountCents] = amountCents
	f[FieldCategory] = category
	f[FieldSubcategory] = subcategory
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
