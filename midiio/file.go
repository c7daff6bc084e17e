// Package midiio is the MIDI boundary: live input ports, reconnect
// polling, standard MIDI file parsing and writing, and live capture.
package midiio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/EdmondVirelle/cyber-qin/pipeline"
)

// TrackInfo describes one track of a parsed MIDI file.
type TrackInfo struct {
	Index        int
	Name         string
	Channel      int // primary channel, -1 if mixed or empty
	NoteCount    int
	IsPercussion bool
}

// FileInfo is the metadata of a parsed MIDI file.
type FileInfo struct {
	Path       string
	Name       string
	Duration   float64
	TrackCount int
	NoteCount  int
	TempoBPM   float64
	Tracks     []TrackInfo
}

// tempoPoint is one entry of the global tempo map.
type tempoPoint struct {
	tick int64
	bpm  float64
}

// buildTempoMap scans every track for tempo events; some files put them
// outside the conductor track.
func buildTempoMap(s *smf.SMF) []tempoPoint {
	var points []tempoPoint
	for _, track := range s.Tracks {
		var abs int64
		for _, ev := range track {
			abs += int64(ev.Delta)
			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) && bpm > 0 {
				points = append(points, tempoPoint{abs, bpm})
			}
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].tick < points[j].tick })
	if len(points) == 0 || points[0].tick != 0 {
		points = append([]tempoPoint{{0, 120}}, points...)
	}
	return points
}

// tickToSec converts an absolute tick to seconds through the tempo map.
func tickToSec(absTick int64, tempo []tempoPoint, resolution int64) float64 {
	seconds := 0.0
	prevTick := int64(0)
	prevBPM := tempo[0].bpm
	for _, tp := range tempo {
		if tp.tick >= absTick {
			break
		}
		seconds += float64(tp.tick-prevTick) / float64(resolution) * 60.0 / prevBPM
		prevTick = tp.tick
		prevBPM = tp.bpm
	}
	seconds += float64(absTick-prevTick) / float64(resolution) * 60.0 / prevBPM
	return seconds
}

// Parse reads a standard MIDI file into a time-sorted event list plus
// metadata. Note-on events with velocity zero come out as note-offs.
func Parse(r io.Reader) ([]pipeline.Event, FileInfo, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, FileInfo{}, fmt.Errorf("parse midi: %w", err)
	}

	resolution := int64(960)
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		resolution = int64(mt.Resolution())
	}
	tempo := buildTempoMap(s)

	var events []pipeline.Event
	var infos []TrackInfo

	for trackIdx, track := range s.Tracks {
		var abs int64
		name := ""
		noteCount := 0
		channelHits := make(map[int]int)

		for _, ev := range track {
			abs += int64(ev.Delta)
			var ch, key, vel uint8
			var text string
			switch {
			case ev.Message.GetNoteOn(&ch, &key, &vel):
				t := tickToSec(abs, tempo, resolution)
				kind := pipeline.NoteOn
				if vel == 0 {
					// Running-status shorthand for note-off.
					kind = pipeline.NoteOff
				} else {
					noteCount++
				}
				events = append(events, pipeline.Event{
					Time: t, Kind: kind, Note: int(key), Velocity: int(vel),
					Channel: int(ch), Track: trackIdx,
				})
				channelHits[int(ch)]++
			case ev.Message.GetNoteOff(&ch, &key, &vel):
				events = append(events, pipeline.Event{
					Time: tickToSec(abs, tempo, resolution), Kind: pipeline.NoteOff,
					Note: int(key), Channel: int(ch), Track: trackIdx,
				})
				channelHits[int(ch)]++
			case ev.Message.GetMetaTrackName(&text):
				name = text
			}
		}

		primary := -1
		for ch, hits := range channelHits {
			if primary == -1 || hits > channelHits[primary] {
				primary = ch
			}
		}
		if name == "" {
			name = fmt.Sprintf("Track %d", trackIdx)
		}
		infos = append(infos, TrackInfo{
			Index:        trackIdx,
			Name:         name,
			Channel:      primary,
			NoteCount:    noteCount,
			IsPercussion: primary == 9,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Time != events[j].Time {
			return events[i].Time < events[j].Time
		}
		return events[i].Kind < events[j].Kind
	})

	duration := 0.0
	totalNotes := 0
	for _, e := range events {
		if e.Kind == pipeline.NoteOn {
			totalNotes++
		}
		if e.Time > duration {
			duration = e.Time
		}
	}

	info := FileInfo{
		Duration:   duration,
		TrackCount: len(s.Tracks),
		NoteCount:  totalNotes,
		TempoBPM:   tempo[0].bpm,
		Tracks:     infos,
	}
	return events, info, nil
}

// ParseFile parses the MIDI file at path.
func ParseFile(path string) ([]pipeline.Event, FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, FileInfo{}, fmt.Errorf("open midi file: %w", err)
	}
	defer f.Close()
	events, info, err := Parse(f)
	if err != nil {
		return nil, FileInfo{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	info.Path = path
	info.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return events, info, nil
}

// Loaded is one successfully imported file.
type Loaded struct {
	Events []pipeline.Event
	Info   FileInfo
}

// ParseAll imports a batch of files. A malformed file never aborts the
// batch: failures are collected and reported together at the end.
func ParseAll(paths []string) ([]Loaded, []error) {
	var loaded []Loaded
	var errs []error
	for _, p := range paths {
		events, info, err := ParseFile(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		loaded = append(loaded, Loaded{Events: events, Info: info})
	}
	return loaded, errs
}
