// Package types provides core data structures for CNT recordings.
//
// This package defines the Channel, Annotation, ImpedanceRecord, Segment,
// SubjectInfo and DeviceInfo types that represent a parsed continuous-EEG
// recording, along with the error taxonomy shared by all parsing stages.
package types

import "time"

// ChannelType is the semantic type assigned to a recording channel.
type ChannelType string

const (
	// ChannelSignal is a scalp electrode carrying the primary EEG signal.
	ChannelSignal ChannelType = "signal"

	// ChannelAuxiliary is a non-scalp channel (bipolar, trigger, counter, ...).
	ChannelAuxiliary ChannelType = "auxiliary"

	// ChannelOcular is an electrooculography channel.
	ChannelOcular ChannelType = "ocular"
)

// Channel describes a single recording channel as declared in the
// container's channel table. Labels are unique within a recording.
type Channel struct {
	Label     string
	Unit      string
	Reference string
	Type      ChannelType
}

// SubjectInfo identifies the recorded subject.
//
// All fields are optional in the container; absent fields are zero values,
// never errors. Sex uses the convention 0 = unknown, 1 = male, 2 = female.
type SubjectInfo struct {
	Name     string
	ID       string
	Birthday time.Time // zero if not recorded
	Sex      int
}

// DeviceInfo identifies the acquisition amplifier.
//
// Serial may legitimately be empty: some amplifiers do not report one.
type DeviceInfo struct {
	Manufacturer string
	Model        string
	Serial       string
}

// RawEvent is a trigger/event record exactly as stored in the container's
// event table. OnsetSample is 1-indexed, as written by the acquisition
// software. Payload holds per-channel measurements attached to the event
// (impedance snapshots); empty for plain triggers.
type RawEvent struct {
	Code            string
	OnsetSample     uint64
	DurationSamples uint32
	Payload         []float64
}

// Annotation is a typed, timestamped marker derived from a raw event.
//
// Onset is in seconds relative to recording start. Because the source
// format is 1-indexed, the very first stored event converts as
// (onset-1)/rate and may land one sample before t=0; this is an accepted
// property of the format, not corruption. Annotations are constructed once
// at load time and immutable thereafter.
type Annotation struct {
	Onset       float64
	Duration    float64
	Description string
	Payload     []float64
}

// ImpedanceRecord holds one per-channel electrode-resistance snapshot.
//
// Labels preserves recording channel order; Values maps every channel
// label to its resistance. The key set always equals the recording's full
// channel set.
type ImpedanceRecord struct {
	Labels []string
	Values map[string]float64
}

// Segment is a contiguous span of valid samples bounded by explicit
// start/stop markers, used where acquisition was paused and resumed.
// Sample indexes are 0-indexed and inclusive of Start, exclusive of Stop.
// Segments are non-overlapping and ordered by Start.
type Segment struct {
	Start uint64
	Stop  uint64
}

// Duration returns the segment length in seconds at the given rate.
func (s Segment) Duration(sampleRate float64) float64 {
	return float64(s.Stop-s.Start) / sampleRate
}
