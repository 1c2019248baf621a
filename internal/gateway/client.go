package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a chat connection for one owner. Send waits for the reply to
// each message before the next one goes out.
type Client struct {
	ws      *websocket.Conn
	owner   string
	timeout time.Duration
}

// Dial opens a chat connection to a gateway /ws endpoint, bound to owner.
func Dial(ctx context.Context, endpoint, owner string) (*Client, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, fmt.Errorf("dial chat: owner required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial chat: %w", err)
	}
	q := u.Query()
	q.Set("owner", owner)
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial chat: %w", err)
	}
	return &Client{ws: ws, owner: owner, timeout: DefaultConfig().SubmitTimeout}, nil
}

// Send delivers text and returns the server's answer. Error frames are
// returned as messages, not errors.
func (c *Client) Send(text string) (ServerMessage, error) {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return ServerMessage{}, err
	}
	if err := c.ws.WriteJSON(ClientMessage{Type: TypeMessage, Owner: c.owner, Text: text}); err != nil {
		return ServerMessage{}, fmt.Errorf("send: %w", err)
	}
	if err := c.ws.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return ServerMessage{}, err
	}
	var out ServerMessage
	if err := c.ws.ReadJSON(&out); err != nil {
		return ServerMessage{}, fmt.Errorf("receive: %w", err)
	}
	return out, nil
}

// Close says goodbye and closes the connection.
func (c *Client) Close() error {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}

// FormatChoices lays out reply choices one row per line, e.g. "[Expense] [Income]".
func FormatChoices(choices [][]string) string {
	rows := make([]string, 0, len(choices))
	for _, row := range choices {
		labels := make([]string, len(row))
		for i, label := range row {
			labels[i] = "[" + label + "]"
		}
		rows = append(rows, strings.Join(labels, " "))
	}
	return strings.Join(rows, "\n")
}
