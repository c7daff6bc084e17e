package pipeline

import "math"

// percussionChannel is the GM drum channel (channel 10, zero-indexed 9).
const percussionChannel = 9

func filterPercussion(events []Event, stats *Stats) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Channel == percussionChannel {
			if e.Kind == NoteOn {
				stats.PercussionRemoved++
			}
			continue
		}
		out = append(out, e)
	}
	return out
}

func filterTracks(events []Event, allow map[int]bool, stats *Stats) []Event {
	if allow == nil {
		return events
	}
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if !allow[e.Track] {
			if e.Kind == NoteOn {
				stats.TrackRemoved++
			}
			continue
		}
		out = append(out, e)
	}
	return out
}

// pitchClass returns note mod 12 normalized into 0..11.
func pitchClass(note int) int {
	return ((note % 12) + 12) % 12
}

// dropWithPairedOffs removes the events whose indexes are marked in drop,
// and for every dropped note-on also removes its paired note-off: the next
// unmarked note-off with the same channel, track, and note. Events must be
// time-sorted.
func dropWithPairedOffs(events []Event, drop []bool) []Event {
	for i, e := range events {
		if !drop[i] || e.Kind != NoteOn {
			continue
		}
		for j := i + 1; j < len(events); j++ {
			o := events[j]
			if drop[j] || o.Kind != NoteOff {
				continue
			}
			if o.Channel == e.Channel && o.Track == e.Track && o.Note == e.Note {
				drop[j] = true
				break
			}
		}
	}
	out := make([]Event, 0, len(events))
	for i, e := range events {
		if !drop[i] {
			out = append(out, e)
		}
	}
	return out
}

// dedupOctaves removes unison-octave doublings: note-ons sharing a
// timestamp and a pitch class keep only the highest pitch. Doing this
// before folding keeps the doublings from amplifying collision pressure.
func dedupOctaves(events []Event, stats *Stats) []Event {
	type slot struct {
		idx  int
		note int
	}
	type key struct {
		time float64
		pc   int
	}
	best := make(map[key]slot)
	drop := make([]bool, len(events))
	for i, e := range events {
		if e.Kind != NoteOn {
			continue
		}
		k := key{e.Time, pitchClass(e.Note)}
		prev, seen := best[k]
		if !seen {
			best[k] = slot{i, e.Note}
			continue
		}
		if e.Note > prev.note {
			drop[prev.idx] = true
			best[k] = slot{i, e.Note}
		} else {
			drop[i] = true
		}
		stats.OctaveDupsRemoved++
	}
	if stats.OctaveDupsRemoved == 0 {
		return events
	}
	return dropWithPairedOffs(events, drop)
}

// bestTranspose searches octave shifts in ±4 octaves for the one that puts
// the most note-ons inside [noteMin, noteMax]. Ties keep shift 0 when it is
// among the winners (so in-range input is untouched); otherwise the shift
// whose landed notes average closest to the range midpoint wins, then the
// smallest magnitude.
func bestTranspose(events []Event, noteMin, noteMax int) int {
	mid := float64(noteMin+noteMax) / 2
	score := func(shift int) (int, float64) {
		count, sum := 0, 0
		for _, e := range events {
			if e.Kind != NoteOn {
				continue
			}
			landed := e.Note + shift
			if landed >= noteMin && landed <= noteMax {
				count++
				sum += landed
			}
		}
		if count == 0 {
			return 0, math.Inf(1)
		}
		return count, math.Abs(float64(sum)/float64(count) - mid)
	}

	bestShift := 0
	bestCount, bestDist := score(0)
	for shift := -48; shift <= 48; shift += 12 {
		if shift == 0 {
			continue
		}
		count, dist := score(shift)
		better := count > bestCount
		if count == bestCount && bestShift != 0 {
			// Never displace the no-op on a tie; among real shifts the one
			// landing closest to the range midpoint wins, then the smallest.
			if dist < bestDist || (dist == bestDist && abs(shift) < abs(bestShift)) {
				better = true
			}
		}
		if better {
			bestShift = shift
			bestCount = count
			bestDist = dist
		}
	}
	return bestShift
}

func applyTranspose(events []Event, semitones int) []Event {
	if semitones == 0 {
		return events
	}
	out := make([]Event, len(events))
	for i, e := range events {
		e.Note += semitones
		out[i] = e
	}
	return out
}

// resolveCollisions keeps, for note-ons coinciding at (time, note), only
// the highest-velocity one; ties keep the earliest in input order. Losing
// note-ons go away along with their paired note-offs.
func resolveCollisions(events []Event, stats *Stats) []Event {
	type key struct {
		time float64
		note int
	}
	type slot struct {
		idx int
		vel int
	}
	best := make(map[key]slot)
	drop := make([]bool, len(events))
	removed := 0
	for i, e := range events {
		if e.Kind != NoteOn {
			continue
		}
		k := key{e.Time, e.Note}
		prev, seen := best[k]
		if !seen {
			best[k] = slot{i, e.Velocity}
			continue
		}
		if e.Velocity > prev.vel {
			drop[prev.idx] = true
			best[k] = slot{i, e.Velocity}
		} else {
			drop[i] = true
		}
		removed++
	}
	stats.CollisionsRemoved += removed
	if removed == 0 {
		return events
	}
	return dropWithPairedOffs(events, drop)
}

// limitPolyphony drops note-ons that would push the count of sounding
// notes above max. Within an onset group the bass anchor (lowest) and the
// top voice (highest) survive first, then the loudest of the rest; equal
// velocities break ties by ascending MIDI note.
func limitPolyphony(events []Event, max int, stats *Stats) []Event {
	drop := make([]bool, len(events))
	sounding := make(map[int]int) // note -> count of sounding instances

	soundingCount := func() int {
		n := 0
		for _, c := range sounding {
			n += c
		}
		return n
	}

	i := 0
	for i < len(events) {
		// Gather the onset group sharing this timestamp.
		t := events[i].Time
		j := i
		var group []int
		for j < len(events) && events[j].Time == t {
			switch events[j].Kind {
			case NoteOff:
				if sounding[events[j].Note] > 0 {
					sounding[events[j].Note]--
				}
			case NoteOn:
				group = append(group, j)
			}
			j++
		}
		capacity := max - soundingCount()
		if len(group) > capacity {
			keep := rankOnsets(events, group, capacity)
			for _, gi := range group {
				if keep[gi] {
					sounding[events[gi].Note]++
				} else {
					drop[gi] = true
					stats.PolyphonyRemoved++
				}
			}
		} else {
			for _, gi := range group {
				sounding[events[gi].Note]++
			}
		}
		i = j
	}
	if stats.PolyphonyRemoved == 0 {
		return events
	}
	return dropWithPairedOffs(events, drop)
}

// rankOnsets picks up to capacity indexes from group: highest note, lowest
// note, then by velocity descending with ascending note as the tie-break.
func rankOnsets(events []Event, group []int, capacity int) map[int]bool {
	keep := make(map[int]bool)
	if capacity <= 0 {
		return keep
	}
	hi, lo := group[0], group[0]
	for _, gi := range group {
		if events[gi].Note > events[hi].Note {
			hi = gi
		}
		if events[gi].Note < events[lo].Note {
			lo = gi
		}
	}
	keep[hi] = true
	if len(keep) < capacity {
		keep[lo] = true
	}
	rest := make([]int, 0, len(group))
	for _, gi := range group {
		if !keep[gi] {
			rest = append(rest, gi)
		}
	}
	// Stable selection sort keeps the rule deterministic.
	for len(keep) < capacity && len(rest) > 0 {
		best := 0
		for k := 1; k < len(rest); k++ {
			a, b := events[rest[k]], events[rest[best]]
			if a.Velocity > b.Velocity || (a.Velocity == b.Velocity && a.Note < b.Note) {
				best = k
			}
		}
		keep[rest[best]] = true
		rest = append(rest[:best], rest[best+1:]...)
	}
	return keep
}

func normalizeVelocity(events []Event, target int) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		if e.Kind == NoteOn {
			e.Velocity = target
		}
		out[i] = e
	}
	return out
}

func quantizeTiming(events []Event, grid float64) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		e.Time = math.Round(e.Time/grid) * grid
		out[i] = e
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
