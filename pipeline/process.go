package pipeline

import (
	"fmt"
	"sort"
)

// Strategy selects how out-of-range notes are brought into range after the
// global transpose.
type Strategy string

const (
	// StrategyAuto picks a strategy from the input's note distribution.
	StrategyAuto Strategy = "auto"
	// StrategyGlobalOnly applies the global transpose only; residual
	// out-of-range notes are dropped.
	StrategyGlobalOnly Strategy = "global_transpose"
	// StrategyFlowing is the voice-leading-aware scored fold (default).
	StrategyFlowing Strategy = "flowing_fold"
	// StrategyHybrid folds residual notes by plain modulo octaves.
	StrategyHybrid Strategy = "hybrid"
)

// GridDefault is the quantization grid: one 60 Hz frame.
const GridDefault = 1.0 / 60.0

// Options configures a pipeline run. The zero value is not usable; start
// from DefaultOptions.
type Options struct {
	NoteMin int
	NoteMax int
	// Tracks is the allow-set for the track filter; nil keeps all tracks.
	Tracks map[int]bool
	// MaxPolyphony limits simultaneously sounding notes; 0 means unlimited.
	MaxPolyphony int
	Strategy     Strategy
	// Grid is the quantization interval in seconds.
	Grid float64
	// TargetVelocity is applied to every note-on.
	TargetVelocity int
	// KeepPercussion disables the percussion filter.
	KeepPercussion bool
}

// DefaultOptions returns options targeting the given scheme range.
func DefaultOptions(noteMin, noteMax int) Options {
	return Options{
		NoteMin:        noteMin,
		NoteMax:        noteMax,
		Strategy:       StrategyFlowing,
		Grid:           GridDefault,
		TargetVelocity: 127,
	}
}

// Stats summarizes one pipeline run. Purely informational.
type Stats struct {
	TotalNotes        int
	OriginalMin       int
	OriginalMax       int
	Transpose         int
	NotesFolded       int
	PercussionRemoved int
	TrackRemoved      int
	OctaveDupsRemoved int
	CollisionsRemoved int
	PolyphonyRemoved  int
	OutOfRangeDropped int
	Strategy          Strategy
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"notes=%d range=%d..%d transpose=%+d folded=%d strategy=%s removed(perc=%d track=%d octdup=%d collide=%d poly=%d oor=%d)",
		s.TotalNotes, s.OriginalMin, s.OriginalMax, s.Transpose, s.NotesFolded, s.Strategy,
		s.PercussionRemoved, s.TrackRemoved, s.OctaveDupsRemoved,
		s.CollisionsRemoved, s.PolyphonyRemoved, s.OutOfRangeDropped,
	)
}

// Process runs the full pipeline. Stages run strictly in order:
// percussion filter, track filter, octave de-dup, global transpose,
// fold, collision resolution, polyphony limit, velocity normalization,
// time quantization, final sort. Empty input degrades to empty output.
func Process(events []Event, opts Options) ([]Event, Stats, error) {
	var stats Stats
	if opts.NoteMin < 0 || opts.NoteMax > 127 || opts.NoteMin > opts.NoteMax {
		return nil, stats, fmt.Errorf("pipeline: invalid note range %d..%d", opts.NoteMin, opts.NoteMax)
	}
	if opts.Grid <= 0 {
		opts.Grid = GridDefault
	}
	if opts.TargetVelocity <= 0 || opts.TargetVelocity > 127 {
		opts.TargetVelocity = 127
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyFlowing
	}
	if len(events) == 0 {
		stats.Strategy = opts.Strategy
		return nil, stats, nil
	}

	events = sorted(events)

	for _, e := range events {
		if e.Kind != NoteOn {
			continue
		}
		if stats.TotalNotes == 0 {
			stats.OriginalMin, stats.OriginalMax = e.Note, e.Note
		}
		stats.TotalNotes++
		if e.Note < stats.OriginalMin {
			stats.OriginalMin = e.Note
		}
		if e.Note > stats.OriginalMax {
			stats.OriginalMax = e.Note
		}
	}

	if !opts.KeepPercussion {
		events = filterPercussion(events, &stats)
	}
	events = filterTracks(events, opts.Tracks, &stats)
	events = dedupOctaves(events, &stats)

	stats.Transpose = bestTranspose(events, opts.NoteMin, opts.NoteMax)
	events = applyTranspose(events, stats.Transpose)

	strategy := opts.Strategy
	if strategy == StrategyAuto {
		strategy = pickStrategy(events, opts.NoteMin, opts.NoteMax)
	}
	stats.Strategy = strategy
	events = foldWithStrategy(events, strategy, opts.NoteMin, opts.NoteMax, &stats)

	events = resolveCollisions(events, &stats)
	if opts.MaxPolyphony > 0 {
		events = limitPolyphony(events, opts.MaxPolyphony, &stats)
	}
	events = normalizeVelocity(events, opts.TargetVelocity)
	events = quantizeTiming(events, opts.Grid)
	// Snapping can make previously distinct onsets coincide; sweep again so
	// the final output never double-presses a key in the same instant.
	events = resolveCollisions(events, &stats)

	return sorted(events), stats, nil
}

// sorted returns a copy ordered by time, note-off before note-on at equal
// timestamps.
func sorted(events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}
