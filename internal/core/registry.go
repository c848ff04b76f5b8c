package core

// registry is the connection registry: identifier → live sessions, so
// recipient resolution never scans the full connection set. Only the hub
// goroutine touches it.
type registry struct {
	sessions map[string][]*Client
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string][]*Client)}
}

// add registers a session and reports whether it is the identifier's first.
func (r *registry) add(c *Client) (first bool) {
	list := r.sessions[c.UserID]
	r.sessions[c.UserID] = append(list, c)
	return len(list) == 0
}

// remove drops a session and reports whether it was present and whether it
// was the identifier's last.
func (r *registry) remove(c *Client) (removed, last bool) {
	list := r.sessions[c.UserID]
	for i, s := range list {
		if s != c {
			continue
		}
		list = append(list[:i], list[i+1:]...)
		if len(list) == 0 {
			delete(r.sessions, c.UserID)
			return true, true
		}
		r.sessions[c.UserID] = list
		return true, false
	}
	return false, false
}

// get returns every live session for an identifier (possibly none).
func (r *registry) get(userID string) []*Client {
	return r.sessions[userID]
}

// each calls fn for every registered session.
func (r *registry) each(fn func(*Client)) {
	for _, list := range r.sessions {
		for _, c := range list {
			fn(c)
		}
	}
}
