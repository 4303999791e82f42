package device

import "context"

// Controller is the boundary the session engine exposes to the HTTP and MCP surfaces.
type Controller interface {
	// Topology returns the read-only module map, or nil if none was supplied
	Topology() *Topology

	// Latest returns the current snapshot, or nil before the first status frame
	Latest() *Snapshot

	// GetValue reads one output from the latest snapshot
	GetValue(module, output int) (int, error)

	// GetModuleValues reads the ordered values of a module from the latest snapshot
	GetModuleValues(module int) ([]int, error)

	// SetOutput queues an output change and returns without waiting
	SetOutput(ctx context.Context, module, output, value int) error

	// SetOutputAndWait queues an output change and waits for the device acknowledgment
	SetOutputAndWait(ctx context.Context, module, output, value int) error

	// TurnOn sets an output to its maximum value
	TurnOn(ctx context.Context, module, output int) error

	// TurnOff sets an output to zero
	TurnOff(ctx context.Context, module, output int) error

	// IsConnected returns true if the session is active
	IsConnected() bool

	// SessionState names the current session state
	SessionState() string

	// Close stops the session
	Close()
}

// SnapshotSubscriber streams every new snapshot
type SnapshotSubscriber interface {
	// Subscribe returns a channel that receives snapshots
	Subscribe() <-chan *Snapshot

	// Unsubscribe removes a subscription and closes its channel
	Unsubscribe(ch <-chan *Snapshot)
}
