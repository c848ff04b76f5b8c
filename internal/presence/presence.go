package presence

import "context"

// Status values stored in the directory.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Directory is the shared record of connected identifiers and their status.
// In a horizontally scaled deployment every coordinating process talks to
// the same directory, so entries must be linearizable per key.
type Directory interface {
	// Set records the status for an identifier.
	Set(ctx context.Context, id, status string) error

	// Delete removes the identifier's entry entirely.
	Delete(ctx context.Context, id string) error

	// All returns a snapshot of every known identifier and its status.
	All(ctx context.Context) (map[string]string, error)
}
