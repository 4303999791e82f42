package device

import "context"

// NullController is a no-op controller used when no device is configured.
// It allows the API to run in limited mode without a device session.
type NullController struct {
	topology *Topology
}

// NewNullController creates a new NullController over an optional topology.
func NewNullController(topology *Topology) *NullController {
	return &NullController{topology: topology}
}

func (c *NullController) Topology() *Topology {
	return c.topology
}

func (c *NullController) Latest() *Snapshot {
	return nil
}

func (c *NullController) GetValue(module, output int) (int, error) {
	return 0, ErrNotConnected
}

func (c *NullController) GetModuleValues(module int) ([]int, error) {
	return nil, ErrNotConnected
}

func (c *NullController) SetOutput(ctx context.Context, module, output, value int) error {
	return ErrNotConnected
}

func (c *NullController) SetOutputAndWait(ctx context.Context, module, output, value int) error {
	return ErrNotConnected
}

func (c *NullController) TurnOn(ctx context.Context, module, output int) error {
	return ErrNotConnected
}

func (c *NullController) TurnOff(ctx context.Context, module, output int) error {
	return ErrNotConnected
}

func (c *NullController) IsConnected() bool {
	return false
}

func (c *NullController) SessionState() string {
	return "disconnected"
}

func (c *NullController) Close() {}

// NullSnapshotSubscriber is a no-op subscriber used when no device is configured.
type NullSnapshotSubscriber struct{}

// NewNullSnapshotSubscriber creates a new NullSnapshotSubscriber.
func NewNullSnapshotSubscriber() *NullSnapshotSubscriber {
	return &NullSnapshotSubscriber{}
}

func (s *NullSnapshotSubscriber) Subscribe() <-chan *Snapshot {
	// Channel is never sent to; callers should check IsConnected() on the controller
	return make(chan *Snapshot)
}

func (s *NullSnapshotSubscriber) Unsubscribe(ch <-chan *Snapshot) {}
