package diffusion

import "github.com/LeJamon/txdiffusion/internal/topology"

// StopReason says why Run returned.
type StopReason int

const (
	// StopExhausted means no events were left.
	StopExhausted StopReason = iota

	// StopAllSighted means every non-probed peer has a first sighting.
	StopAllSighted

	// StopCeiling means the clock reached the time ceiling.
	StopCeiling
)

func (r StopReason) String() string {
	switch r {
	case StopExhausted:
		return "exhausted"
	case StopAllSighted:
		return "all-sighted"
	case StopCeiling:
		return "ceiling"
	default:
		return "unknown"
	}
}

// Outcome summarizes a finished run.
type Outcome struct {
	Reason    StopReason
	Elapsed   SimTime
	Steps     int
	Sightings map[topology.PeerID]Sighting
}

// Run seeds the probe peers if Seed has not been called, then steps until the
// queue is exhausted, every non-probed peer has been sighted, or the clock
// reaches the time ceiling. The ceiling is checked after each event, so at
// most one event past it is processed.
func (s *Simulator) Run() (Outcome, error) {
	if !s.seeded {
		s.Seed()
	}

	reason, err := s.loop()
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Reason:    reason,
		Elapsed:   s.now,
		Steps:     s.steps,
		Sightings: s.Sightings(),
	}, nil
}

func (s *Simulator) loop() (StopReason, error) {
	if s.Done() {
		return StopAllSighted, nil
	}
	for {
		status, err := s.Step()
		if err != nil {
			return 0, err
		}
		switch {
		case status == StatusExhausted:
			return StopExhausted, nil
		case s.Done():
			return StopAllSighted, nil
		case s.now >= s.ceiling:
			return StopCeiling, nil
		}
	}
}
