package gateway

// Message types of the chat protocol.
const (
	TypeMessage = "message"
	TypeReply   = "reply"
	TypeError   = "error"
)

// Error codes carried by TypeError frames.
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeOwnerRequired  = "owner_required"
	ErrorCodeOwnerMismatch  = "owner_mismatch"
	ErrorCodeRateLimited    = "rate_limited"
	ErrorCodeUnavailable    = "unavailable"
)

// ClientMessage is one line of chat sent by a client. On a WebSocket the
// owner may be left empty once the connection is bound to one.
type ClientMessage struct {
	Type  string `json:"type"`
	Owner string `json:"owner"`
	Text  string `json:"text"`
}

// ServerMessage answers a ClientMessage.
type ServerMessage struct {
	Type    string     `json:"type"`
	Owner   string     `json:"owner,omitempty"`
	Text    string     `json:"text,omitempty"`
	Choices [][]string `json:"choices,omitempty"`
	Code    string     `json:"code,omitempty"`
}

func errorMessage(owner, code, text string) ServerMessage {
	return ServerMessage{Type: TypeError, Owner: owner, Code: code, Text: text}
}
