package diffusion

import (
	"github.com/LeJamon/txdiffusion/internal/topology"
	"github.com/LeJamon/txdiffusion/internal/tx"
)

// Event is something the simulator reports to collectors.
type Event interface {
	isEvent()
}

// SeedEvent fires when the adversary injects a transaction into a probe peer.
type SeedEvent struct {
	Tx *tx.Transaction
}

func (SeedEvent) isEvent() {}

// FlushEvent fires after a peer services a flush on one of its edges.
// Delivered holds the transactions that were new to the receiver.
type FlushEvent struct {
	Edge      topology.Edge
	Sent      []*tx.Transaction
	Delivered []*tx.Transaction
	KnownSize int
}

func (FlushEvent) isEvent() {}

// FirstSightingEvent fires when the adversary records a peer's first
// observed transaction.
type FirstSightingEvent struct {
	Sighting Sighting
}

func (FirstSightingEvent) isEvent() {}

// Collector observes simulation events.
type Collector interface {
	// On is called with the peer the event belongs to and the simulated time.
	On(peer topology.PeerID, when SimTime, event Event)
}

// CollectorFunc is a function adapter for Collector.
type CollectorFunc func(peer topology.PeerID, when SimTime, event Event)

func (f CollectorFunc) On(peer topology.PeerID, when SimTime, event Event) {
	f(peer, when, event)
}

// Collectors fans events out to a list of collectors.
type Collectors struct {
	collectors []Collector
}

// Add registers a collector.
func (c *Collectors) Add(collector Collector) {
	c.collectors = append(c.collectors, collector)
}

// On dispatches an event to all collectors.
func (c *Collectors) On(peer topology.PeerID, when SimTime, event Event) {
	for _, collector := range c.collectors {
		collector.On(peer, when, event)
	}
}

func (c *Collectors) empty() bool { return len(c.collectors) == 0 }

// DeliveryCollector counts transactions newly delivered to each peer and
// remembers when each peer first received anything.
type DeliveryCollector struct {
	Delivered  map[topology.PeerID]int
	FirstHeard map[topology.PeerID]SimTime
}

// NewDeliveryCollector creates an empty DeliveryCollector.
func NewDeliveryCollector() *DeliveryCollector {
	return &DeliveryCollector{
		Delivered:  make(map[topology.PeerID]int),
		FirstHeard: make(map[topology.PeerID]SimTime),
	}
}

func (c *DeliveryCollector) On(peer topology.PeerID, when SimTime, event Event) {
	switch e := event.(type) {
	case SeedEvent:
		c.heard(peer, when, 1)
	case FlushEvent:
		c.heard(e.Edge.To, when, len(e.Delivered))
	}
}

func (c *DeliveryCollector) heard(peer topology.PeerID, when SimTime, n int) {
	if n == 0 {
		return
	}
	c.Delivered[peer] += n
	if _, ok := c.FirstHeard[peer]; !ok {
		c.FirstHeard[peer] = when
	}
}

// Coverage returns how many of the given peers have received a transaction.
func (c *DeliveryCollector) Coverage(peers []topology.PeerID) int {
	n := 0
	for _, p := range peers {
		if _, ok := c.FirstHeard[p]; ok {
			n++
		}
	}
	return n
}
