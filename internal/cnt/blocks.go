package cnt

import (
	encbin "encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/singleflight"

	"github.com/proloyd/cntio/internal/binary"
	"github.com/proloyd/cntio/internal/types"
)

// SampleReader provides index-addressable access to the sample data of a
// parsed container.
//
// Blocks are decoded on first access and cached; eager materialization
// (LoadAll) runs through the same decode path, so lazy and eager reads are
// bit-identical. Concurrent reads of disjoint ranges are safe: the cache is
// mutex-guarded and in-flight block decodes are shared through a
// singleflight group so a block is never decoded twice.
type SampleReader struct {
	sr     *binary.SafeReader
	blocks []Block
	nchan  int
	total  int

	mu    sync.Mutex
	cache map[int][]float64
	group singleflight.Group
	zdec  *zstd.Decoder
}

// SampleReader returns a reader over the container's block index.
func (c *Container) SampleReader() (*SampleReader, error) {
	zdec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("%s: init zstd decoder: %w", c.Path, err)
	}
	return &SampleReader{
		sr:     c.sr,
		blocks: c.Blocks,
		nchan:  len(c.Channels),
		total:  int(c.TotalSamples),
		cache:  make(map[int][]float64, len(c.Blocks)),
		zdec:   zdec,
	}, nil
}

// NChannels returns the uniform channel count of every block.
func (r *SampleReader) NChannels() int {
	return r.nchan
}

// NSamples returns the total sample count across all blocks.
func (r *SampleReader) NSamples() int {
	return r.total
}

// Data reads samples [from, to) for the requested channel indices and
// returns one row per channel, each of length to-from.
//
// channels may be nil to request every channel in declared order. Reads
// touch only the blocks intersecting the range; out-of-range channel or
// sample indices fail with *types.RangeError and never clamp.
func (r *SampleReader) Data(channels []int, from, to int) ([][]float64, error) {
	if channels == nil {
		channels = make([]int, r.nchan)
		for i := range channels {
			channels[i] = i
		}
	}
	for _, ch := range channels {
		if ch < 0 || ch >= r.nchan {
			return nil, &types.RangeError{Path: r.sr.Path(), What: "channel", Index: ch, Bound: r.nchan}
		}
	}
	if from < 0 || from > r.total {
		return nil, &types.RangeError{Path: r.sr.Path(), What: "sample", Index: from, Bound: r.total + 1}
	}
	if to < from || to > r.total {
		return nil, &types.RangeError{Path: r.sr.Path(), What: "sample", Index: to, Bound: r.total + 1}
	}

	out := make([][]float64, len(channels))
	for i := range out {
		out[i] = make([]float64, to-from)
	}
	if to == from {
		return out, nil
	}

	// First block whose span reaches past `from`.
	first := sort.Search(len(r.blocks), func(i int) bool {
		b := r.blocks[i]
		return b.FirstSample+uint64(b.SampleCount) > uint64(from)
	})

	for i := first; i < len(r.blocks); i++ {
		b := r.blocks[i]
		if b.FirstSample >= uint64(to) {
			break
		}

		buf, err := r.block(i)
		if err != nil {
			return nil, err
		}

		lo := max(from, int(b.FirstSample))
		hi := min(to, int(b.FirstSample)+int(b.SampleCount))
		for s := lo; s < hi; s++ {
			frame := (s - int(b.FirstSample)) * r.nchan
			for k, ch := range channels {
				out[k][s-from] = buf[frame+ch]
			}
		}
	}

	return out, nil
}

// LoadAll decodes and caches every block. After LoadAll succeeds, reads
// no longer touch the underlying file.
func (r *SampleReader) LoadAll() error {
	for i := range r.blocks {
		if _, err := r.block(i); err != nil {
			return err
		}
	}
	return nil
}

// Loaded reports whether every block has been decoded and cached.
func (r *SampleReader) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache) == len(r.blocks)
}

// block returns the decoded samples of block i, decoding and caching on
// first access.
func (r *SampleReader) block(i int) ([]float64, error) {
	r.mu.Lock()
	if buf, ok := r.cache[i]; ok {
		r.mu.Unlock()
		return buf, nil
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do(strconv.Itoa(i), func() (interface{}, error) {
		buf, err := r.decode(i)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[i] = buf
		r.mu.Unlock()
		return buf, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float64), nil
}

// decode reads and decodes the payload of block i.
func (r *SampleReader) decode(i int) ([]float64, error) {
	b := r.blocks[i]

	raw := make([]byte, b.ByteLength)
	if err := r.sr.ReadAt(raw, int64(b.ByteOffset), fmt.Sprintf("sample block %d", i)); err != nil {
		return nil, err
	}

	if b.Compressed() {
		decoded, err := r.zdec.DecodeAll(raw, nil)
		if err != nil {
			return nil, &types.CorruptionError{
				Path:   r.sr.Path(),
				Offset: int64(b.ByteOffset),
				Reason: fmt.Sprintf("block %d: zstd decode failed: %v", i, err),
			}
		}
		raw = decoded
	}

	want := int(b.SampleCount) * r.nchan * 8
	if len(raw) != want {
		return nil, &types.CorruptionError{
			Path:   r.sr.Path(),
			Offset: int64(b.ByteOffset),
			Reason: fmt.Sprintf("block %d decodes to %d bytes, expected %d", i, len(raw), want),
		}
	}

	// Bit patterns carry over verbatim; no rescaling happens anywhere.
	buf := make([]float64, int(b.SampleCount)*r.nchan)
	for j := range buf {
		buf[j] = math.Float64frombits(encbin.LittleEndian.Uint64(raw[j*8:]))
	}
	return buf, nil
}
