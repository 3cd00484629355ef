package cntio

import (
	"github.com/proloyd/cntio/internal/types"
)

// FormatError is an alias to types.FormatError.
// Re-exporting from internal/types keeps the public API stable.
type FormatError = types.FormatError

// TruncationError is an alias to types.TruncationError.
// Re-exporting from internal/types keeps the public API stable.
type TruncationError = types.TruncationError

// CorruptionError is an alias to types.CorruptionError.
// Re-exporting from internal/types keeps the public API stable.
type CorruptionError = types.CorruptionError

// RangeError is an alias to types.RangeError.
// Re-exporting from internal/types keeps the public API stable.
type RangeError = types.RangeError

// Warning is an alias to types.Warning.
// Re-exporting from internal/types keeps the public API stable.
type Warning = types.Warning
