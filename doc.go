// Package cntio reads CNT continuous-EEG binary containers.
//
// cntio decodes the proprietary CNT container into a randomly-accessible
// multichannel time series plus derived metadata: channel typing,
// timestamped annotations (triggers, impedance snapshots, amplifier
// disconnections, segment boundaries), impedance records, and
// subject/device identity.
//
// # Quick Start
//
// Reading a recording:
//
//	rec, err := cntio.Open("recording.cnt")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer rec.Close()
//
//	fmt.Printf("%d channels at %g Hz\n", len(rec.Channels), rec.SampleRate)
//	data, err := rec.Data(nil, 0, rec.NSamples)
//
// # Lazy and eager access
//
// Open builds an index only; sample blocks are decoded on first access and
// cached. Pass WithPreload() to decode everything up front. Both modes run
// through the same decode path and return bit-identical values, so the
// choice is purely a memory/latency trade-off.
//
// # Annotations and impedances
//
// Trigger events surface as Annotations ordered by onset. Impedance
// snapshots additionally surface as ImpedanceRecords keyed by channel
// label in channel order. Amplifier-disconnection marker pairs synthesize
// a single "BAD_disconnection" annotation spanning the gap, which
// downstream consumers can use to reject the span.
//
// Because the source format indexes samples from 1, the very first stored
// event may be annotated one sample before the recording start. This is a
// documented property of the format and is preserved, not corrected.
//
// # Error Handling
//
// Fatal conditions abort Open and release the file handle: FormatError
// (unsupported magic/version), TruncationError (file shorter than the
// header declares), CorruptionError (internal cross-check failures).
// Data-quality issues such as inconsistent reference electrodes are
// non-fatal and collected in Recording.Warnings.
package cntio
