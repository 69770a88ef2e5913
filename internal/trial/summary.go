package trial

import (
	"fmt"
	"io"
	"time"
)

// Summary aggregates a batch of results.
type Summary struct {
	Trials      int
	Scored      int
	MeanScore   float64
	MeanElapsed time.Duration
}

// Summarize averages scores over scored trials and elapsed time over all.
func Summarize(results []Result) Summary {
	s := Summary{Trials: len(results)}
	if len(results) == 0 {
		return s
	}

	var total float64
	var elapsed time.Duration
	for _, r := range results {
		elapsed += r.Elapsed
		if r.Scored {
			s.Scored++
			total += r.Score
		}
	}
	if s.Scored > 0 {
		s.MeanScore = total / float64(s.Scored)
	}
	s.MeanElapsed = elapsed / time.Duration(len(results))
	return s
}

// WriteLines prints one "<elapsed_us> <score>" line per trial. Unscored
// trials print "-" for the score.
func WriteLines(w io.Writer, results []Result) error {
	for _, r := range results {
		score := "-"
		if r.Scored {
			score = fmt.Sprintf("%g", r.Score)
		}
		if _, err := fmt.Fprintf(w, "%d %s\n", r.Elapsed.Microseconds(), score); err != nil {
			return err
		}
	}
	return nil
}

func (s Summary) String() string {
	return fmt.Sprintf("trials=%d scored=%d mean_score=%.4f mean_elapsed=%v",
		s.Trials, s.Scored, s.MeanScore, s.MeanElapsed)
}
