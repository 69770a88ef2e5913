package diffusion

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/LeJamon/txdiffusion/internal/delay"
	"github.com/LeJamon/txdiffusion/internal/topology"
	"github.com/LeJamon/txdiffusion/internal/tx"
)

// DefaultTimeCeiling bounds a run in simulated time.
const DefaultTimeCeiling = SimTime(50 * time.Second)

// Sighting is the adversary's first observation of a transaction relayed by
// a non-probed peer, with its guess of which probe peer that transaction
// came from.
type Sighting struct {
	Peer  topology.PeerID
	When  SimTime
	Guess topology.PeerID
	Tx    *tx.Transaction
}

// Picker selects the representative transaction the adversary attributes
// when a peer relays several at once. candidates is never empty.
type Picker func(candidates []*tx.Transaction) *tx.Transaction

// RandomPicker picks uniformly using rng.
func RandomPicker(rng *rand.Rand) Picker {
	return func(candidates []*tx.Transaction) *tx.Transaction {
		return candidates[rng.Intn(len(candidates))]
	}
}

// FirstPicker always picks the earliest inserted candidate.
func FirstPicker(candidates []*tx.Transaction) *tx.Transaction {
	return candidates[0]
}

// Config configures a Simulator.
type Config struct {
	// DoubleSpend makes seeded transactions all spend a shared resource.
	DoubleSpend bool

	// Policy decides transaction identity. Defaults to tx.PolicyFor(DoubleSpend).
	Policy tx.CollisionPolicy

	// Probes are the peers the adversary injects a transaction into.
	Probes []topology.PeerID

	// TimeCeiling stops Run once the clock reaches it. Defaults to
	// DefaultTimeCeiling.
	TimeCeiling SimTime

	// Picker chooses the attributed transaction. Defaults to RandomPicker.
	Picker Picker
}

// Status is the result of a single Step.
type Status int

const (
	// StatusRunning means an event was processed.
	StatusRunning Status = iota

	// StatusExhausted means the queue was empty.
	StatusExhausted

	// StatusFailed means the popped event could not be processed. The
	// simulator must not be stepped again.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusExhausted:
		return "exhausted"
	case StatusFailed:
		return "failed"
	default:
		return "running"
	}
}

// Simulator runs one diffusion experiment. It is single threaded and is
// meant to be used for exactly one run; build a new one per trial.
type Simulator struct {
	graph  *topology.Graph
	delays *delay.Model
	policy tx.CollisionPolicy
	picker Picker

	doubleSpend bool
	ceiling     SimTime

	queue *queue
	now   SimTime
	steps int

	mempools  map[topology.PeerID]*tx.Set
	known     map[topology.Edge]*tx.Set
	probes    map[topology.PeerID]struct{}
	sightings map[topology.PeerID]Sighting
	targets   int
	seeded    bool

	collectors Collectors
}

// New builds a simulator over a frozen topology and schedules the first
// flush of every directed edge.
func New(g *topology.Graph, delays *delay.Model, rng *rand.Rand, cfg Config) (*Simulator, error) {
	if !g.Frozen() {
		return nil, ErrNotFrozen
	}
	if !g.HasAdversary() {
		return nil, ErrNoAdversary
	}

	probes := make(map[topology.PeerID]struct{}, len(cfg.Probes))
	for _, p := range cfg.Probes {
		if !g.IsOrdinary(p) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidProbe, p)
		}
		probes[p] = struct{}{}
	}

	policy := cfg.Policy
	if policy == nil {
		policy = tx.PolicyFor(cfg.DoubleSpend)
	}
	picker := cfg.Picker
	if picker == nil {
		picker = RandomPicker(rng)
	}
	ceiling := cfg.TimeCeiling
	if ceiling <= 0 {
		ceiling = DefaultTimeCeiling
	}

	s := &Simulator{
		graph:       g,
		delays:      delays,
		policy:      policy,
		picker:      picker,
		doubleSpend: cfg.DoubleSpend,
		ceiling:     ceiling,
		mempools:    make(map[topology.PeerID]*tx.Set, g.PeerCount()+1),
		known:       make(map[topology.Edge]*tx.Set, g.EdgeCount()),
		probes:      probes,
		sightings:   make(map[topology.PeerID]Sighting),
		targets:     g.PeerCount() - len(probes),
	}

	s.mempools[topology.Adversary] = tx.NewSet(policy)
	for _, p := range g.Peers() {
		s.mempools[p] = tx.NewSet(policy)
	}

	edges := g.Edges()
	initial := make([]event, 0, 2*len(edges))
	for _, e := range edges {
		s.known[e] = tx.NewSet(policy)
		initial = append(initial, s.nextFlush(e), s.nextFlush(e.Reverse()))
	}
	s.queue = newQueue(initial)

	return s, nil
}

// AddCollector registers an observer of simulation events.
func (s *Simulator) AddCollector(c Collector) {
	s.collectors.Add(c)
}

func (s *Simulator) nextFlush(e topology.Edge) event {
	return event{
		when:   s.now + SimTime(s.delays.Next(s.graph.IsOutgoing(e))),
		edge:   e,
		action: ActionFlush,
	}
}

// Seed has the adversary inject one transaction into every probe peer. The
// adversary's edge to that peer already knows the transaction, so it will
// never count as news coming back.
func (s *Simulator) Seed() {
	for _, p := range s.ProbeSet() {
		t := tx.New(tx.SeedUTXOs(int(p), s.doubleSpend), p)
		s.mempools[p].Add(t)
		s.known[topology.Edge{From: topology.Adversary, To: p}.Undirected()].Add(t)
		if !s.collectors.empty() {
			s.collectors.On(p, s.now, SeedEvent{Tx: t})
		}
	}
	s.seeded = true
}

// Step processes the earliest scheduled event.
func (s *Simulator) Step() (Status, error) {
	ev, ok := s.queue.pop()
	if !ok {
		return StatusExhausted, nil
	}

	switch ev.action {
	case ActionFlush:
		s.flush(ev)
	default:
		return StatusFailed, fmt.Errorf("%w: %d on %s at %s", ErrUnknownAction, ev.action, ev.edge, ev.when)
	}

	s.now = ev.when
	s.steps++
	return StatusRunning, nil
}

func (s *Simulator) flush(ev event) {
	src, dst := ev.edge.From, ev.edge.To

	// The adversary only injects; its edges go quiet after their first turn.
	if src.IsAdversary() {
		return
	}

	known := s.known[ev.edge.Undirected()]
	toSend := s.mempools[src].Difference(known)

	if dst.IsAdversary() && len(toSend) > 0 && !s.Probed(src) {
		if _, seen := s.sightings[src]; !seen {
			s.recordSighting(src, ev.when, toSend)
		}
	}

	known.AddAll(toSend)
	var delivered []*tx.Transaction
	for _, t := range toSend {
		if s.mempools[dst].Add(t) {
			delivered = append(delivered, t)
		}
	}

	if !s.collectors.empty() {
		s.collectors.On(src, ev.when, FlushEvent{
			Edge:      ev.edge,
			Sent:      toSend,
			Delivered: delivered,
			KnownSize: known.Len(),
		})
	}

	s.now = ev.when
	s.queue.push(s.nextFlush(ev.edge))
}

func (s *Simulator) recordSighting(src topology.PeerID, when SimTime, toSend []*tx.Transaction) {
	rep := s.picker(toSend)
	top, ok := rep.MaxUTXO()
	if !ok {
		return
	}
	sighting := Sighting{
		Peer:  src,
		When:  when,
		Guess: topology.PeerID(top),
		Tx:    rep,
	}
	s.sightings[src] = sighting
	if !s.collectors.empty() {
		s.collectors.On(src, when, FirstSightingEvent{Sighting: sighting})
	}
}

// Done reports whether every non-probed peer has a first sighting.
func (s *Simulator) Done() bool { return len(s.sightings) >= s.targets }

// Now returns the simulated clock.
func (s *Simulator) Now() SimTime { return s.now }

// Steps returns the number of events processed.
func (s *Simulator) Steps() int { return s.steps }

// Pending returns the number of scheduled events.
func (s *Simulator) Pending() int { return s.queue.len() }

// Ceiling returns the configured time ceiling.
func (s *Simulator) Ceiling() SimTime { return s.ceiling }

// Policy returns the collision policy in use.
func (s *Simulator) Policy() tx.CollisionPolicy { return s.policy }

// Graph returns the topology being simulated.
func (s *Simulator) Graph() *topology.Graph { return s.graph }

// Probed reports whether p is in the probe subset.
func (s *Simulator) Probed(p topology.PeerID) bool {
	_, ok := s.probes[p]
	return ok
}

// ProbeSet returns the probe subset in ascending order.
func (s *Simulator) ProbeSet() []topology.PeerID {
	out := make([]topology.PeerID, 0, len(s.probes))
	for p := range s.probes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Mempool returns the transactions known to peer p.
func (s *Simulator) Mempool(p topology.PeerID) *tx.Set { return s.mempools[p] }

// Known returns the transactions already exchanged across the connection
// between u and v, or nil if they are not connected.
func (s *Simulator) Known(u, v topology.PeerID) *tx.Set {
	return s.known[topology.Edge{From: u, To: v}.Undirected()]
}

// Sighting returns the first sighting recorded for p.
func (s *Simulator) Sighting(p topology.PeerID) (Sighting, bool) {
	sg, ok := s.sightings[p]
	return sg, ok
}

// Sightings returns a copy of every recorded first sighting keyed by peer.
func (s *Simulator) Sightings() map[topology.PeerID]Sighting {
	out := make(map[topology.PeerID]Sighting, len(s.sightings))
	for p, sg := range s.sightings {
		out[p] = sg
	}
	return out
}
