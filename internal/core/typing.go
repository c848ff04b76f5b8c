package core

import "time"

// typingKey identifies one live typing indicator: an identifier typing into
// one scope (the group room or a DM pair).
type typingKey struct {
	user  string
	scope string
	dm    bool
}

// typingTracker owns the server-side expiry timers for typing indicators.
// Timers fire on their own goroutines and post the key back to the hub loop,
// which resolves what (if anything) to broadcast. Only the hub goroutine
// calls the tracker's methods.
type typingTracker struct {
	timers  map[typingKey]*time.Timer
	expired chan typingKey
}

func newTypingTracker() *typingTracker {
	return &typingTracker{
		timers: make(map[typingKey]*time.Timer),
		// Buffered so a firing timer never blocks; if the hub is too far
		// behind to drain 64 expiries, dropping a stop signal is the
		// lesser harm.
		expired: make(chan typingKey, 64),
	}
}

// arm starts a timer for key unless one is already pending. Returns true if
// a new timer was armed. DM indicators rely on this: repeat keystrokes while
// armed neither refresh the timer nor re-notify.
func (t *typingTracker) arm(key typingKey, d time.Duration) bool {
	if _, pending := t.timers[key]; pending {
		return false
	}
	t.timers[key] = time.AfterFunc(d, func() {
		select {
		case t.expired <- key:
		default:
		}
	})
	return true
}

// reset arms the timer for key, restarting it if already pending. Room
// indicators slide their expiry window on every keystroke.
func (t *typingTracker) reset(key typingKey, d time.Duration) {
	if timer, pending := t.timers[key]; pending {
		timer.Stop()
		delete(t.timers, key)
	}
	t.arm(key, d)
}

// cancel stops the timer for key. Returns true if one was pending.
func (t *typingTracker) cancel(key typingKey) bool {
	timer, pending := t.timers[key]
	if !pending {
		return false
	}
	timer.Stop()
	delete(t.timers, key)
	return true
}

// cancelUser stops every timer owned by an identifier and returns the keys
// that were pending, so the hub can broadcast stops where needed.
func (t *typingTracker) cancelUser(user string) []typingKey {
	var cancelled []typingKey
	for key, timer := range t.timers {
		if key.user != user {
			continue
		}
		timer.Stop()
		delete(t.timers, key)
		cancelled = append(cancelled, key)
	}
	return cancelled
}

// take clears a fired key; the timer has already gone off. Returns true if
// the key was still considered pending (i.e. not cancelled in the meantime).
func (t *typingTracker) take(key typingKey) bool {
	if _, pending := t.timers[key]; !pending {
		return false
	}
	delete(t.timers, key)
	return true
}
