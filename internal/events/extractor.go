// Package events maps the raw trigger/event table of a CNT container to
// typed annotations, recording segments, and impedance records.
package events

import (
	"fmt"
	"sort"

	"github.com/proloyd/cntio/internal/types"
)

// Trigger codes written by the acquisition software. Everything not in
// this table passes through as a literal annotation description.
const (
	codeImpedance    = "Impedance"
	codeAmpDisjoined = "9001"
	codeAmpRejoined  = "9002"
	codeSegmentStart = "9003"
	codeSegmentStop  = "9004"

	// BadDisconnection is the description of the annotation synthesized
	// over an amplifier-disconnection gap, so downstream consumers can
	// reject the span.
	BadDisconnection = "BAD_disconnection"
)

// Config controls annotation extraction.
type Config struct {
	// ImpedanceAnnotation is the description given to impedance-snapshot
	// annotations. Defaults to "impedance".
	ImpedanceAnnotation string
}

// DefaultImpedanceAnnotation is the description used for impedance
// snapshots unless overridden.
const DefaultImpedanceAnnotation = "impedance"

// Extract converts the stored event table into annotations and segments,
// ordered by onset.
//
// The source format indexes samples from 1. The very first stored event
// converts as (onset-1)/rate and may therefore land one sample before the
// recording start; that is an accepted property of the format which
// downstream consumers clip, so it is preserved here, not corrected. All
// later events convert as onset/rate.
//
// Amplifier-disconnection markers come in pairs; each pair additionally
// synthesizes one BadDisconnection annotation spanning the gap plus one
// sample period (the stop marker is inclusive). A lone half of a pair is
// a *types.CorruptionError.
func Extract(rawEvents []types.RawEvent, sampleRate float64, cfg Config, path string) ([]types.Annotation, []types.Segment, error) {
	marker := cfg.ImpedanceAnnotation
	if marker == "" {
		marker = DefaultImpedanceAnnotation
	}

	annotations := make([]types.Annotation, 0, len(rawEvents))
	var segments []types.Segment

	period := 1 / sampleRate
	disjoinedAt := 0.0
	disconnected := false
	segmentStart := uint64(0)
	inSegment := false

	for i, ev := range rawEvents {
		onset := float64(ev.OnsetSample) / sampleRate
		if i == 0 {
			// 1-indexed to 0-indexed; only the first stored event
			// carries the shift, matching the reference decoder.
			onset = (float64(ev.OnsetSample) - 1) / sampleRate
		}
		duration := float64(ev.DurationSamples) / sampleRate

		description := ev.Code
		switch ev.Code {
		case codeImpedance:
			description = marker
		case codeAmpDisjoined:
			if disconnected {
				return nil, nil, &types.CorruptionError{
					Path:   path,
					Reason: fmt.Sprintf("amplifier disconnection at event %d while already disconnected", i),
				}
			}
			// The onset may be negative here via the first-event shift, so
			// openness is tracked separately rather than by sign.
			disjoinedAt = onset
			disconnected = true
		case codeAmpRejoined:
			if !disconnected {
				return nil, nil, &types.CorruptionError{
					Path:   path,
					Reason: fmt.Sprintf("amplifier reconnection at event %d without a matching disconnection", i),
				}
			}
			annotations = append(annotations, types.Annotation{
				Onset:       disjoinedAt,
				Duration:    onset - disjoinedAt + period,
				Description: BadDisconnection,
			})
			disconnected = false
		case codeSegmentStart:
			if inSegment {
				return nil, nil, &types.CorruptionError{
					Path:   path,
					Reason: fmt.Sprintf("segment start at event %d inside an open segment", i),
				}
			}
			segmentStart = zeroIndexed(ev.OnsetSample)
			inSegment = true
		case codeSegmentStop:
			if !inSegment {
				return nil, nil, &types.CorruptionError{
					Path:   path,
					Reason: fmt.Sprintf("segment stop at event %d without a matching start", i),
				}
			}
			// The stop marker is inclusive, so the exclusive bound is
			// the stored 1-indexed onset itself.
			seg := types.Segment{Start: segmentStart, Stop: ev.OnsetSample}
			if n := len(segments); n > 0 && seg.Start < segments[n-1].Stop {
				return nil, nil, &types.CorruptionError{
					Path:   path,
					Reason: fmt.Sprintf("segment at event %d overlaps the previous segment", i),
				}
			}
			segments = append(segments, seg)
			inSegment = false
		}

		annotations = append(annotations, types.Annotation{
			Onset:       onset,
			Duration:    duration,
			Description: description,
			Payload:     ev.Payload,
		})
	}

	if disconnected {
		return nil, nil, &types.CorruptionError{
			Path:   path,
			Reason: "amplifier disconnection without a matching reconnection",
		}
	}
	if inSegment {
		return nil, nil, &types.CorruptionError{
			Path:   path,
			Reason: "segment start without a matching stop",
		}
	}

	sort.SliceStable(annotations, func(i, j int) bool {
		return annotations[i].Onset < annotations[j].Onset
	})

	return annotations, segments, nil
}

// zeroIndexed converts a 1-indexed stored sample to a 0-indexed one,
// saturating at zero for the first-sample quirk.
func zeroIndexed(onset uint64) uint64 {
	if onset == 0 {
		return 0
	}
	return onset - 1
}
