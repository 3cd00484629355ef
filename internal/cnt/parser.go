package cnt

import (
	encbin "encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/proloyd/cntio/internal/binary"
	"github.com/proloyd/cntio/internal/types"
)

// Container is the parsed skeleton of a CNT file: header fields, channel
// table, block index and raw event table. Sample payloads are not decoded;
// call SampleReader for that.
type Container struct {
	Path         string
	Size         int64
	Version      uint16
	SampleRate   float64
	TotalSamples uint64
	MeasDate     time.Time
	Subject      types.SubjectInfo
	Device       types.DeviceInfo
	Channels     []types.Channel
	Blocks       []Block
	Events       []types.RawEvent

	sr *binary.SafeReader
}

// Parse reads the header and all tables of a CNT container.
//
// It fails with *types.FormatError on bad magic or an unsupported version,
// *types.TruncationError when the file is shorter than the header declares,
// and *types.CorruptionError when internal cross-checks disagree. No sample
// data is materialized.
func Parse(r io.ReaderAt, size int64, path string) (*Container, error) {
	sr := binary.NewSafeReader(r, size, path)

	magic := make([]byte, 4)
	if err := sr.ReadAt(magic, 0, "magic bytes"); err != nil {
		return nil, err
	}
	if string(magic) != Magic {
		return nil, &types.FormatError{
			Path:   path,
			Reason: fmt.Sprintf("bad magic bytes %q", magic),
		}
	}

	cr := binary.NewChainReader(binary.NewReader(sr, 4))
	version := binary.ReadChained[uint16](cr, "version")
	binary.ReadChained[uint16](cr, "reserved flags")
	headerSize := binary.ReadChained[uint32](cr, "header size")
	sampleRate := cr.Float64("sample rate")
	totalSamples := binary.ReadChained[uint64](cr, "total sample count")
	channelCount := binary.ReadChained[uint32](cr, "channel count")
	blockCount := binary.ReadChained[uint32](cr, "block count")
	eventCount := binary.ReadChained[uint32](cr, "event count")
	measDateMicros := cr.Int64("measurement date")
	tzOffsetMinutes := cr.Int32("timezone offset")
	if err := cr.Err(); err != nil {
		return nil, err
	}

	if version != SupportedVersion {
		return nil, &types.FormatError{
			Path:   path,
			Reason: fmt.Sprintf("unsupported container version %d", version),
		}
	}
	if int64(headerSize) > size {
		return nil, &types.TruncationError{
			Path:   path,
			What:   "declared header region",
			Offset: int64(headerSize),
			Size:   size,
		}
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) {
		return nil, &types.CorruptionError{
			Path:   path,
			Offset: 12,
			Reason: fmt.Sprintf("invalid sample rate %v", sampleRate),
		}
	}
	if channelCount == 0 {
		return nil, &types.CorruptionError{
			Path:   path,
			Offset: 28,
			Reason: "channel count is zero",
		}
	}

	c := &Container{
		Path:         path,
		Size:         size,
		Version:      version,
		SampleRate:   sampleRate,
		TotalSamples: totalSamples,
		MeasDate:     time.UnixMicro(measDateMicros).In(time.FixedZone("", int(tzOffsetMinutes)*60)),
		sr:           sr,
	}

	if err := c.parseSubject(cr); err != nil {
		return nil, err
	}
	if err := c.parseDevice(cr); err != nil {
		return nil, err
	}
	if err := c.parseChannelTable(cr, channelCount); err != nil {
		return nil, err
	}
	if err := c.parseBlockTable(cr, blockCount, headerSize); err != nil {
		return nil, err
	}
	if err := c.parseEventTable(cr, eventCount, headerSize); err != nil {
		return nil, err
	}

	if cr.Offset() != int64(headerSize) {
		return nil, &types.CorruptionError{
			Path:   path,
			Offset: cr.Offset(),
			Reason: fmt.Sprintf("declared header size %d disagrees with table contents ending at %d", headerSize, cr.Offset()),
		}
	}

	return c, nil
}

func (c *Container) parseSubject(cr *binary.ChainReader) error {
	name := cr.String("subject name")
	id := cr.String("subject identifier")
	birthday := cr.Int64("subject birthday")
	sex := binary.ReadChained[uint8](cr, "subject sex")
	if err := cr.Err(); err != nil {
		return err
	}

	c.Subject = types.SubjectInfo{
		Name: name,
		ID:   id,
		Sex:  int(sex),
	}
	// Zero means the acquisition software did not record a birthday.
	if birthday != 0 {
		c.Subject.Birthday = time.Unix(birthday, 0).UTC()
	}
	return nil
}

func (c *Container) parseDevice(cr *binary.ChainReader) error {
	c.Device = types.DeviceInfo{
		Manufacturer: cr.String("device manufacturer"),
		Model:        cr.String("device model"),
		Serial:       cr.String("device serial"),
	}
	return cr.Err()
}

func (c *Container) parseChannelTable(cr *binary.ChainReader, count uint32) error {
	c.Channels = make([]types.Channel, count)
	seen := make(map[string]struct{}, count)
	for i := range c.Channels {
		offset := cr.Offset()
		c.Channels[i] = types.Channel{
			Label:     cr.String("channel label"),
			Unit:      cr.String("channel unit"),
			Reference: cr.String("channel reference"),
			Type:      types.ChannelSignal,
		}
		if err := cr.Err(); err != nil {
			return err
		}
		if _, dup := seen[c.Channels[i].Label]; dup {
			return &types.CorruptionError{
				Path:   c.Path,
				Offset: offset,
				Reason: fmt.Sprintf("duplicate channel label %q", c.Channels[i].Label),
			}
		}
		seen[c.Channels[i].Label] = struct{}{}
	}
	return nil
}

func (c *Container) parseBlockTable(cr *binary.ChainReader, count, headerSize uint32) error {
	c.Blocks = make([]Block, count)
	stride := uint64(len(c.Channels)) * 8

	var nextSample, sum uint64
	for i := range c.Blocks {
		offset := cr.Offset()
		b := Block{
			ByteOffset:  binary.ReadChained[uint64](cr, "block byte offset"),
			ByteLength:  binary.ReadChained[uint32](cr, "block byte length"),
			FirstSample: binary.ReadChained[uint64](cr, "block first sample"),
			SampleCount: binary.ReadChained[uint32](cr, "block sample count"),
			Flags:       binary.ReadChained[uint32](cr, "block flags"),
		}
		if err := cr.Err(); err != nil {
			return err
		}

		if b.ByteOffset < uint64(headerSize) {
			return &types.CorruptionError{
				Path:   c.Path,
				Offset: offset,
				Reason: fmt.Sprintf("block %d payload overlaps the header region", i),
			}
		}
		if b.ByteOffset+uint64(b.ByteLength) > uint64(c.Size) {
			return &types.TruncationError{
				Path:   c.Path,
				What:   fmt.Sprintf("sample block %d payload", i),
				Offset: int64(b.ByteOffset),
				Length: int(b.ByteLength),
				Size:   c.Size,
			}
		}
		if b.FirstSample != nextSample {
			return &types.CorruptionError{
				Path:   c.Path,
				Offset: offset,
				Reason: fmt.Sprintf("block %d starts at sample %d, expected %d", i, b.FirstSample, nextSample),
			}
		}
		if !b.Compressed() && uint64(b.ByteLength) != uint64(b.SampleCount)*stride {
			return &types.CorruptionError{
				Path:   c.Path,
				Offset: offset,
				Reason: fmt.Sprintf("block %d length %d disagrees with %d samples of %d channels",
					i, b.ByteLength, b.SampleCount, len(c.Channels)),
			}
		}

		nextSample += uint64(b.SampleCount)
		sum += uint64(b.SampleCount)
		c.Blocks[i] = b
	}

	if sum != c.TotalSamples {
		return &types.CorruptionError{
			Path:   c.Path,
			Offset: cr.Offset(),
			Reason: fmt.Sprintf("blocks hold %d samples, header declares %d", sum, c.TotalSamples),
		}
	}
	return nil
}

func (c *Container) parseEventTable(cr *binary.ChainReader, count, headerSize uint32) error {
	c.Events = make([]types.RawEvent, 0, count)
	for i := uint32(0); i < count; i++ {
		code := cr.String("event code")
		onset := binary.ReadChained[uint64](cr, "event onset sample")
		duration := binary.ReadChained[uint32](cr, "event duration")
		payloadCount := binary.ReadChained[uint32](cr, "event payload count")
		if err := cr.Err(); err != nil {
			return err
		}

		if cr.Offset()+int64(payloadCount)*8 > int64(headerSize) {
			return &types.CorruptionError{
				Path:   c.Path,
				Offset: cr.Offset(),
				Reason: fmt.Sprintf("event %d payload of %d readings extends past the header region", i, payloadCount),
			}
		}

		var payload []float64
		if payloadCount > 0 {
			raw := cr.Bytes(int(payloadCount)*8, "event payload")
			if err := cr.Err(); err != nil {
				return err
			}
			payload = make([]float64, payloadCount)
			for j := range payload {
				payload[j] = math.Float64frombits(encbin.LittleEndian.Uint64(raw[j*8:]))
			}
		}

		c.Events = append(c.Events, types.RawEvent{
			Code:            code,
			OnsetSample:     onset,
			DurationSamples: duration,
			Payload:         payload,
		})
	}
	return nil
}
