package store

// ReactionMap maps an emoji to the ordered list of user ids that applied it.
// An emoji key is never present with an empty user list.
type ReactionMap map[string][]string

// Toggle adds userID under emoji if absent, removes it if present, and drops
// the emoji key when its user list becomes empty. Applying the same toggle
// twice restores the map to its prior state.
func (m ReactionMap) Toggle(emoji, userID string) {
	users := m[emoji]
	for i, u := range users {
		if u == userID {
			users = append(users[:i], users[i+1:]...)
			if len(users) == 0 {
				delete(m, emoji)
			} else {
				m[emoji] = users
			}
			return
		}
	}
	m[emoji] = append(users, userID)
}

// Clone returns a deep copy so callers can hand the map across goroutines.
func (m ReactionMap) Clone() ReactionMap {
	out := make(ReactionMap, len(m))
	for emoji, users := range m {
		out[emoji] = append([]string(nil), users...)
	}
	return out
}
