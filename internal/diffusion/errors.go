package diffusion

import "errors"

var (
	// ErrNotFrozen is returned when a simulator is built over a topology
	// that can still change.
	ErrNotFrozen = errors.New("topology is not frozen")

	// ErrNoAdversary is returned when the topology has no adversary node.
	ErrNoAdversary = errors.New("topology has no adversary")

	// ErrInvalidProbe is returned when a probe target is not an ordinary peer.
	ErrInvalidProbe = errors.New("probe target is not an ordinary peer")

	// ErrUnknownAction means the event queue held an action the simulator
	// does not implement. The run cannot continue.
	ErrUnknownAction = errors.New("unknown event action")
)
