package pipeline

import "math"

// Flowing-fold scoring weights. A candidate an octave away from the voice's
// previous note pays heavily for the jump; continuing the melodic direction
// earns the bonus.
const (
	weightJump      = -2.0
	weightCenter    = -0.5
	weightMidpoint  = -0.1
	bonusSameDir    = 4.0
	bonusSmoothTurn = 1.5
	// Reversals up to a fifth still read as melodic motion.
	smoothTurnMaxStep = 7
	centerDecay       = 0.85
)

// voiceState tracks one MIDI channel's melodic context across a fold run.
// A fixed array of these is allocated fresh per pipeline invocation and
// discarded when the run completes.
type voiceState struct {
	active bool
	prev   int
	center float64
	dir    int
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// octaveCandidates lists every octave position of note's pitch class inside
// [noteMin, noteMax], ascending. Empty when the range is narrower than an
// octave and misses the pitch class.
func octaveCandidates(note, noteMin, noteMax int) []int {
	pc := pitchClass(note)
	base := noteMin + ((pc-pitchClass(noteMin))%12+12)%12
	var out []int
	for c := base; c <= noteMax; c += 12 {
		out = append(out, c)
	}
	return out
}

// moduloFold shifts a note by whole octaves into range, clamping when the
// range is narrower than an octave.
func moduloFold(note, noteMin, noteMax int) int {
	for note > noteMax {
		note -= 12
	}
	for note < noteMin {
		note += 12
	}
	if note > noteMax {
		note = noteMax
	}
	return note
}

// choose picks the in-range octave for an out-of-range note given the
// voice's context.
func (v *voiceState) choose(note, noteMin, noteMax int) int {
	cands := octaveCandidates(note, noteMin, noteMax)
	if len(cands) == 0 {
		return moduloFold(note, noteMin, noteMax)
	}
	if len(cands) == 1 {
		return cands[0]
	}
	mid := float64(noteMin+noteMax) / 2
	if !v.active {
		// No context yet: sit near the middle of the range.
		best := cands[0]
		for _, c := range cands[1:] {
			if math.Abs(float64(c)-mid) < math.Abs(float64(best)-mid) {
				best = c
			}
		}
		return best
	}
	best := cands[0]
	bestScore := math.Inf(-1)
	for _, c := range cands {
		step := c - v.prev
		score := weightJump*math.Abs(float64(step)) +
			weightCenter*math.Abs(float64(c)-v.center) +
			weightMidpoint*math.Abs(float64(c)-mid)
		if v.dir != 0 && step != 0 {
			if sign(step) == v.dir {
				score += bonusSameDir
			} else if abs(step) <= smoothTurnMaxStep {
				score += bonusSmoothTurn
			}
		}
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best
}

// update records a chosen note into the voice state.
func (v *voiceState) update(chosen int) {
	if !v.active {
		v.active = true
		v.prev = chosen
		v.center = float64(chosen)
		v.dir = 0
		return
	}
	v.dir = sign(chosen - v.prev)
	v.center = centerDecay*v.center + (1-centerDecay)*float64(chosen)
	v.prev = chosen
}

// foldKey identifies a sounding note for note-on/note-off pairing.
type foldKey struct {
	channel int
	note    int
}

// foldWithStrategy brings every event into [noteMin, noteMax] according to
// the strategy. Note-offs follow their note-on's folded value via a
// per-(channel, original note) stack, so overlapping same-pitch notes keep
// their pairing.
func foldWithStrategy(events []Event, strategy Strategy, noteMin, noteMax int, stats *Stats) []Event {
	switch strategy {
	case StrategyGlobalOnly:
		return dropOutOfRange(events, noteMin, noteMax, stats)
	case StrategyHybrid:
		return foldEach(events, noteMin, noteMax, stats,
			func(_ int, note int) int { return moduloFold(note, noteMin, noteMax) },
			nil)
	default: // StrategyFlowing
		// One voice tracker per MIDI channel; bass and melody lines fold
		// independently of each other.
		var voices [16]voiceState
		return foldEach(events, noteMin, noteMax, stats,
			func(channel, note int) int {
				return voices[channel&0x0F].choose(note, noteMin, noteMax)
			},
			func(channel, chosen int) {
				voices[channel&0x0F].update(chosen)
			})
	}
}

// foldEach runs the shared fold loop. pick maps an out-of-range note-on to
// its in-range replacement; observe, when non-nil, sees every note-on's
// final value so the flowing strategy keeps context from in-range notes too.
func foldEach(events []Event, noteMin, noteMax int, stats *Stats, pick func(channel, note int) int, observe func(channel, chosen int)) []Event {
	pending := make(map[foldKey][]int)
	out := make([]Event, 0, len(events))
	for _, e := range events {
		switch e.Kind {
		case NoteOn:
			chosen := e.Note
			if e.Note < noteMin || e.Note > noteMax {
				chosen = pick(e.Channel, e.Note)
				stats.NotesFolded++
			}
			k := foldKey{e.Channel, e.Note}
			pending[k] = append(pending[k], chosen)
			if observe != nil {
				observe(e.Channel, chosen)
			}
			e.Note = chosen
			out = append(out, e)
		case NoteOff:
			k := foldKey{e.Channel, e.Note}
			if stack := pending[k]; len(stack) > 0 {
				e.Note = stack[len(stack)-1]
				pending[k] = stack[:len(stack)-1]
			} else if e.Note < noteMin || e.Note > noteMax {
				e.Note = moduloFold(e.Note, noteMin, noteMax)
			}
			out = append(out, e)
		}
	}
	return out
}

// dropOutOfRange removes events the global transpose could not place.
func dropOutOfRange(events []Event, noteMin, noteMax int, stats *Stats) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Note < noteMin || e.Note > noteMax {
			if e.Kind == NoteOn {
				stats.OutOfRangeDropped++
			}
			continue
		}
		out = append(out, e)
	}
	return out
}

// pickStrategy chooses a fold policy from the input's note distribution:
// mostly-in-range input after the best transpose needs no folding, very
// wide input folds by plain modulo, everything else gets the scored fold.
func pickStrategy(events []Event, noteMin, noteMax int) Strategy {
	total, inRange := 0, 0
	lo, hi := 0, 0
	for _, e := range events {
		if e.Kind != NoteOn {
			continue
		}
		if total == 0 {
			lo, hi = e.Note, e.Note
		}
		total++
		if e.Note >= noteMin && e.Note <= noteMax {
			inRange++
		}
		if e.Note < lo {
			lo = e.Note
		}
		if e.Note > hi {
			hi = e.Note
		}
	}
	if total == 0 {
		return StrategyGlobalOnly
	}
	if float64(inRange)/float64(total) >= 0.80 {
		return StrategyGlobalOnly
	}
	if hi-lo > 36 {
		return StrategyHybrid
	}
	return StrategyFlowing
}
