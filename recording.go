package cntio

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/proloyd/cntio/internal/classify"
	"github.com/proloyd/cntio/internal/cnt"
	"github.com/proloyd/cntio/internal/events"
)

// Recording represents an opened CNT recording.
//
// All metadata — channel table, annotations, impedance records, segments,
// subject and device identity — is constructed once during Open and is
// read-only afterward. Sample data is decoded lazily unless WithPreload()
// was given; both modes return bit-identical values.
//
// Always call Close() when done to release the file handle:
//
//	rec, err := cntio.Open("recording.cnt")
//	if err != nil {
//		return err
//	}
//	defer rec.Close()
type Recording struct {
	// Path to the recording file.
	Path string

	// File size in bytes.
	Size int64

	// Sampling rate in Hz.
	SampleRate float64

	// Total per-channel sample count.
	NSamples int

	// Acquisition timestamp, timezone-aware.
	MeasDate time.Time

	// Channel table in declared order, with semantic types assigned.
	Channels []Channel

	// Annotations ordered by onset, including synthesized
	// BAD_disconnection spans.
	Annotations []Annotation

	// Impedance snapshots, one per annotation matching the configured
	// impedance description, keyed by channel label in channel order.
	Impedances []ImpedanceRecord

	// Segments bounded by explicit start/stop markers, non-overlapping
	// and ordered by onset.
	Segments []Segment

	// Subject identity. Optional fields are zero values when absent.
	Subject SubjectInfo

	// Device identity. Serial may legitimately be empty.
	Device DeviceInfo

	// Warnings encountered while loading (non-fatal data-quality issues).
	Warnings []Warning

	// Internal state (unexported).
	file    io.Closer
	samples *cnt.SampleReader
}

// Open opens a CNT recording and reads its metadata.
//
// Open builds an index only: sample blocks are decoded on first access.
// Pass WithPreload() to materialize everything up front.
//
// Fatal conditions (FormatError, TruncationError, CorruptionError) abort
// construction and release the file handle. Non-fatal data-quality issues
// are collected in Recording.Warnings.
func Open(path string, opts ...Option) (*Recording, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	rec, err := openReader(f, stat.Size(), path, options)
	if err != nil {
		f.Close()
		return nil, err
	}

	// Keep the file handle for lazy block decoding.
	rec.file = f

	if options.preload {
		if err := rec.LoadAll(); err != nil {
			f.Close()
			return nil, err
		}
	}

	return rec, nil
}

// OpenContext opens a recording with context support for cancellation.
//
// This is a thin wrapper around Open() that checks the context before
// starting; parsing a local file is bounded work.
func OpenContext(ctx context.Context, path string, opts ...Option) (*Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Open(path, opts...)
}

// OpenMany opens multiple recordings concurrently.
//
// Recordings are parsed in parallel using up to runtime.NumCPU()
// goroutines. Results are returned in the same order as the input paths.
// If any file fails to open, all successfully opened recordings are
// closed and an error is returned.
func OpenMany(ctx context.Context, paths []string, opts ...Option) ([]*Recording, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	results := make([]*Recording, len(paths))

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			rec, err := Open(path, opts...)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			results[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, rec := range results {
			if rec != nil {
				rec.Close()
			}
		}
		return nil, err
	}

	return results, nil
}

// openReader parses from an io.ReaderAt (internal, also used by tests).
func openReader(r io.ReaderAt, size int64, path string, options *openOptions) (*Recording, error) {
	container, err := cnt.Parse(r, size, path)
	if err != nil {
		return nil, err
	}

	warnings := classify.Apply(container.Channels, classify.Config{
		Misc: options.misc,
		EOG:  options.eog,
	})

	annotations, segments, err := events.Extract(container.Events, container.SampleRate,
		events.Config{ImpedanceAnnotation: options.impedanceAnnotation}, path)
	if err != nil {
		return nil, err
	}

	impedances, err := events.BuildImpedances(annotations, container.Channels,
		options.impedanceAnnotation, path)
	if err != nil {
		return nil, err
	}

	samples, err := container.SampleReader()
	if err != nil {
		return nil, err
	}

	return &Recording{
		Path:        path,
		Size:        size,
		SampleRate:  container.SampleRate,
		NSamples:    int(container.TotalSamples),
		MeasDate:    container.MeasDate,
		Channels:    container.Channels,
		Annotations: annotations,
		Impedances:  impedances,
		Segments:    segments,
		Subject:     container.Subject,
		Device:      container.Device,
		Warnings:    warnings,
		samples:     samples,
	}, nil
}

// Data reads samples [from, to) for the given channel indices and returns
// one row per channel, each of length to-from.
//
// channels may be nil to read every channel in declared order. Blocks are
// decoded on demand and cached; only blocks intersecting the range are
// touched. Out-of-range channel or sample indices fail with a RangeError
// and never clamp; the Recording remains usable after such a failure.
func (r *Recording) Data(channels []int, from, to int) ([][]float64, error) {
	return r.samples.Data(channels, from, to)
}

// LoadAll decodes and caches every sample block. After LoadAll succeeds,
// reads no longer touch the underlying file.
func (r *Recording) LoadAll() error {
	return r.samples.LoadAll()
}

// Loaded reports whether every sample block has been decoded and cached.
func (r *Recording) Loaded() bool {
	return r.samples.Loaded()
}

// ChannelNames returns the channel labels in declared order.
func (r *Recording) ChannelNames() []string {
	names := make([]string, len(r.Channels))
	for i := range r.Channels {
		names[i] = r.Channels[i].Label
	}
	return names
}

// ChannelIndex returns the index of the channel with the given label.
func (r *Recording) ChannelIndex(label string) (int, bool) {
	for i := range r.Channels {
		if r.Channels[i].Label == label {
			return i, true
		}
	}
	return 0, false
}

// Close releases the file handle.
//
// Metadata and already-cached sample blocks remain readable after Close;
// lazy reads that still need the file will fail. Close is idempotent.
func (r *Recording) Close() error {
	if r.file == nil {
		return nil
	}
	f := r.file
	r.file = nil
	return f.Close()
}
