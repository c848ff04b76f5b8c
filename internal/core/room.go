package core

// Room groups sessions subscribed to the same broadcast channel.
type Room struct {
	Key     string
	clients map[*Client]struct{}
}

// NewRoom constructs a room with no clients.
func NewRoom(key string) *Room {
	return &Room{
		Key:     key,
		clients: make(map[*Client]struct{}),
	}
}

// AddClient inserts a session into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a session from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Broadcast sends an event to all sessions in the room, including the
// sender's. Delivery is best-effort per session.
func (r *Room) Broadcast(event *Event) {
	for client := range r.clients {
		client.send(event)
	}
}

// BroadcastExcept sends an event to all sessions in the room except those
// belonging to userID.
func (r *Room) BroadcastExcept(event *Event, userID string) {
	for client := range r.clients {
		if client.UserID == userID {
			continue
		}
		client.send(event)
	}
}

// Empty returns true if no sessions are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
