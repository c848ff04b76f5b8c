package presence

import (
	"context"
	"sync"

	"github.com/samber/lo"
)

// MemoryDirectory is a process-local Directory for tests and single-node
// runs without redis.
type MemoryDirectory struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemory returns an empty in-memory directory.
func NewMemory() *MemoryDirectory {
	return &MemoryDirectory{entries: make(map[string]string)}
}

// Set records the status for an identifier.
func (d *MemoryDirectory) Set(_ context.Context, id, status string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[id] = status
	return nil
}

// Delete removes the identifier's entry.
func (d *MemoryDirectory) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, id)
	return nil
}

// All returns a copy of the directory.
func (d *MemoryDirectory) All(_ context.Context) (map[string]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lo.Assign(map[string]string{}, d.entries), nil
}
