// Package cnt parses the CNT continuous-EEG binary container.
//
// A CNT file is little-endian throughout and starts with a fixed 52-byte
// header, followed by the subject and device sections, the channel table,
// the block table and the event table. The region covered by those
// structures is declared up front as headerSize; sample block payloads
// live after it at the offsets recorded in the block table.
//
// Parsing builds an index only. Sample payloads are decoded on demand by
// SampleReader, so opening a multi-gigabyte recording stays cheap.
package cnt

const (
	// Magic identifies a CNT container.
	Magic = "CNTR"

	// SupportedVersion is the only container version this reader accepts.
	SupportedVersion = 1

	// fixedHeaderSize is the byte length of the fixed header fields,
	// before the variable-length sections begin.
	fixedHeaderSize = 52

	// blockCompressed marks a block whose payload is zstd-compressed.
	blockCompressed = 1 << 0
)

// Block locates one sample block inside the container. Payloads are
// sample-major interleaved float64: SampleCount frames of one value per
// channel, IEEE-754 bit patterns preserved verbatim.
type Block struct {
	ByteOffset  uint64
	ByteLength  uint32
	FirstSample uint64
	SampleCount uint32
	Flags       uint32
}

// Compressed reports whether the block payload is zstd-compressed.
func (b Block) Compressed() bool {
	return b.Flags&blockCompressed != 0
}
