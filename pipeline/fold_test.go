package pipeline

import (
	"math"
	"testing"
)

func TestOctaveCandidates(t *testing.T) {
	tests := []struct {
		note, min, max int
		want           []int
	}{
		{96, 48, 83, []int{48, 60, 72}}, // pitch class C
		{97, 48, 83, []int{49, 61, 73}},
		{96, 60, 71, []int{60}},
		{95, 48, 83, []int{59, 71, 83}}, // pitch class B
		{49, 50, 60, []int{}},           // C# missing from a sub-octave range
	}
	for _, tt := range tests {
		got := octaveCandidates(tt.note, tt.min, tt.max)
		if len(got) != len(tt.want) {
			t.Errorf("octaveCandidates(%d, %d, %d) = %v, want %v", tt.note, tt.min, tt.max, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("octaveCandidates(%d, %d, %d) = %v, want %v", tt.note, tt.min, tt.max, got, tt.want)
				break
			}
		}
	}
}

func TestModuloFold(t *testing.T) {
	tests := []struct {
		note, min, max, want int
	}{
		{96, 48, 83, 72},
		{24, 48, 83, 48},
		{60, 48, 83, 60},
		{49, 50, 60, 50}, // narrower than an octave: clamped
	}
	for _, tt := range tests {
		if got := moduloFold(tt.note, tt.min, tt.max); got != tt.want {
			t.Errorf("moduloFold(%d, %d, %d) = %d, want %d", tt.note, tt.min, tt.max, got, tt.want)
		}
	}
}

// foldScore recomputes the published scoring function for verification.
func foldScore(c int, v voiceState, noteMin, noteMax int) float64 {
	mid := float64(noteMin+noteMax) / 2
	step := c - v.prev
	score := -2.0*math.Abs(float64(step)) +
		-0.5*math.Abs(float64(c)-v.center) +
		-0.1*math.Abs(float64(c)-mid)
	if v.dir != 0 && step != 0 {
		if sign(step) == v.dir {
			score += 4.0
		} else if abs(step) <= 7 {
			score += 1.5
		}
	}
	return score
}

// Rising line C3 E3 G3 then a C6 leap: the fold must continue the upward
// trend from G3 instead of jumping to the range floor or a far octave.
func TestFlowingFoldPreservesDirection(t *testing.T) {
	events := notes(
		note(0, 48, 100, 0, 0),
		note(1, 52, 100, 0, 0),
		note(2, 55, 100, 0, 0),
		note(3, 96, 100, 0, 0),
	)
	var stats Stats
	out := foldWithStrategy(sorted(events), StrategyFlowing, 48, 83, &stats)

	var folded *Event
	for i := range out {
		if out[i].Kind == NoteOn && out[i].Time == 3 {
			folded = &out[i]
		}
	}
	if folded == nil {
		t.Fatal("folded note-on not found")
	}
	if stats.NotesFolded != 1 {
		t.Errorf("NotesFolded = %d, want 1", stats.NotesFolded)
	}
	if folded.Note <= 55 {
		t.Errorf("C6 folded to %d, want continuation above G3 (55)", folded.Note)
	}

	// The chosen candidate must be the score-function argmax given the
	// state after C3, E3, G3.
	v := voiceState{}
	for _, n := range []int{48, 52, 55} {
		v.update(n)
	}
	best, bestScore := 0, math.Inf(-1)
	for _, c := range octaveCandidates(96, 48, 83) {
		if s := foldScore(c, v, 48, 83); s > bestScore {
			best, bestScore = c, s
		}
	}
	if folded.Note != best {
		t.Errorf("fold chose %d, score argmax is %d", folded.Note, best)
	}
}

// Every folded note-on gets exactly one note-off at the same folded pitch,
// even when same-pitch notes overlap.
func TestFoldPairingInvariant(t *testing.T) {
	events := []Event{
		{Time: 0.0, Kind: NoteOn, Note: 96, Velocity: 100},
		{Time: 0.5, Kind: NoteOn, Note: 96, Velocity: 100},
		{Time: 1.0, Kind: NoteOff, Note: 96},
		{Time: 1.5, Kind: NoteOff, Note: 96},
		{Time: 2.0, Kind: NoteOn, Note: 24, Velocity: 100},
		{Time: 2.5, Kind: NoteOff, Note: 24},
	}
	var stats Stats
	out := foldWithStrategy(events, StrategyFlowing, 48, 83, &stats)

	balance := make(map[int]int)
	for _, e := range out {
		if e.Kind == NoteOn {
			balance[e.Note]++
		} else {
			balance[e.Note]--
		}
		if balance[e.Note] < 0 {
			t.Fatalf("note-off for %d without a preceding note-on", e.Note)
		}
	}
	for n, b := range balance {
		if b != 0 {
			t.Errorf("note %d has %d unpaired note-ons", n, b)
		}
	}
}

// Channels fold independently: a bass line on channel 1 must not drag the
// melody's voice state on channel 0.
func TestFoldChannelsIndependent(t *testing.T) {
	events := notes(
		note(0, 79, 100, 0, 0), // melody sets a high context
		note(0, 26, 100, 1, 0), // bass, out of range
		note(1, 98, 100, 0, 0), // melody, out of range
	)
	var stats Stats
	out := foldWithStrategy(sorted(events), StrategyFlowing, 48, 83, &stats)
	for _, e := range out {
		if e.Kind != NoteOn {
			continue
		}
		if e.Channel == 1 && e.Note > 62 {
			t.Errorf("bass folded to %d, want a low placement near the range midpoint", e.Note)
		}
		if e.Channel == 0 && e.Time == 1 && e.Note < 62 {
			t.Errorf("melody folded to %d despite high previous note", e.Note)
		}
	}
}

func TestGlobalOnlyDropsResidual(t *testing.T) {
	events := notes(
		note(0, 60, 100, 0, 0),
		note(1, 49, 100, 0, 0), // C#3 has no octave inside 50..60... still dropped only if out of range
	)
	var stats Stats
	out := foldWithStrategy(sorted(events), StrategyGlobalOnly, 55, 66, &stats)
	for _, e := range out {
		if e.Note < 55 || e.Note > 66 {
			t.Errorf("out-of-range event survived GlobalOnly: %+v", e)
		}
	}
	if stats.OutOfRangeDropped != 1 {
		t.Errorf("OutOfRangeDropped = %d, want 1", stats.OutOfRangeDropped)
	}
}

func TestPickStrategy(t *testing.T) {
	inRange := notes(note(0, 60, 100, 0, 0), note(1, 64, 100, 0, 0), note(2, 67, 100, 0, 0))
	if got := pickStrategy(inRange, 48, 83); got != StrategyGlobalOnly {
		t.Errorf("pickStrategy(in-range) = %s, want %s", got, StrategyGlobalOnly)
	}

	wide := notes(note(0, 21, 100, 0, 0), note(1, 60, 100, 0, 0), note(2, 105, 100, 0, 0))
	if got := pickStrategy(wide, 48, 83); got != StrategyHybrid {
		t.Errorf("pickStrategy(wide) = %s, want %s", got, StrategyHybrid)
	}

	narrow := notes(note(0, 84, 100, 0, 0), note(1, 88, 100, 0, 0), note(2, 91, 100, 0, 0))
	if got := pickStrategy(narrow, 48, 83); got != StrategyFlowing {
		t.Errorf("pickStrategy(out-of-range narrow) = %s, want %s", got, StrategyFlowing)
	}
}
