package types

import "fmt"

// FormatError is returned when the container is not a CNT file this
// package can read: bad magic bytes or an unsupported version.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: unsupported format: %s", e.Path, e.Reason)
}

// TruncationError is returned when the file is shorter than its header
// declares, or any read would run past the end of the file.
type TruncationError struct {
	Path   string
	What   string
	Offset int64
	Length int
	Size   int64
}

func (e *TruncationError) Error() string {
	if e.Offset >= e.Size {
		return fmt.Sprintf("%s: offset %d out of bounds (file size: %d) while reading %s",
			e.Path, e.Offset, e.Size, e.What)
	}
	return fmt.Sprintf("%s: read of %d bytes at offset %d would exceed file size %d while reading %s",
		e.Path, e.Length, e.Offset, e.Size, e.What)
}

// CorruptionError is returned when an internal cross-check fails: block
// sample counts disagreeing with the header, channel-table/stride
// mismatches, unpaired disconnection markers, or an impedance event with
// too few readings.
type CorruptionError struct {
	Path   string
	Reason string
	Offset int64
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("%s: corrupted file at offset %d: %s", e.Path, e.Offset, e.Reason)
}

// RangeError is returned for out-of-range channel or sample access after
// construction. The failing call aborts; the Recording remains usable.
type RangeError struct {
	Path  string
	What  string
	Index int
	Bound int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: %s index %d out of range [0, %d)", e.Path, e.What, e.Index, e.Bound)
}

// Warning represents a non-fatal data-quality issue encountered while
// loading a recording. Warnings never abort parsing; they are collected
// on the Recording for the caller to inspect.
//
// Examples include inconsistent reference electrodes across signal
// channels or an override naming a channel that does not exist.
type Warning struct {
	// Stage where the warning occurred: "header", "classify", "events".
	Stage string

	// Warning message.
	Message string

	// File offset where the issue occurred (0 if not applicable).
	Offset int64
}

// String returns a human-readable warning message.
func (w Warning) String() string {
	if w.Offset > 0 {
		return fmt.Sprintf("%s (at offset %d): %s", w.Stage, w.Offset, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Stage, w.Message)
}
