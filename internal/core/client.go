package core

// Client is a single connected session as seen by the core layer. One user
// identifier may own several clients at once (multiple tabs or devices).
type Client struct {
	ID       string
	UserID   string
	Commands chan *Command
	Events   chan *Event
	rooms    map[string]struct{}
}

// NewClient constructs a session with initialized channels.
func NewClient(id, userID string) *Client {
	return &Client{
		ID:       id,
		UserID:   userID,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 16),
		rooms:    make(map[string]struct{}),
	}
}

// send delivers an event without blocking. Slow consumers drop events; a
// fan-out target must never stall the hub loop.
func (c *Client) send(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}

func (c *Client) inRoom(room string) bool {
	_, ok := c.rooms[room]
	return ok
}
