package cnt_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proloyd/cntio/internal/cnt"
	"github.com/proloyd/cntio/internal/cnttest"
	"github.com/proloyd/cntio/internal/types"
)

func basicFixture() *cnttest.Fixture {
	return &cnttest.Fixture{
		SampleRate:   512,
		Channels:     append(cnttest.EEGChannels(4), cnttest.BipolarChannels(2)...),
		Data:         cnttest.Ramp(6, 100),
		BlockSize:    32,
		SubjectName:  "antio test",
		Birthday:     time.Date(2024, 8, 14, 0, 0, 0, 0, time.UTC),
		Manufacturer: "eego",
		Model:        "EE_225",
		MeasDate:     time.Date(2024, 8, 14, 10, 44, 47, 0, time.UTC),
	}
}

func parse(t *testing.T, raw []byte) (*cnt.Container, error) {
	t.Helper()
	return cnt.Parse(bytes.NewReader(raw), int64(len(raw)), "fixture.cnt")
}

func TestParse(t *testing.T) {
	f := basicFixture()
	c, err := parse(t, f.Bytes())
	require.NoError(t, err)

	assert.Equal(t, 512.0, c.SampleRate)
	assert.Equal(t, uint64(100), c.TotalSamples)
	require.Len(t, c.Channels, 6)
	assert.Equal(t, "E1", c.Channels[0].Label)
	assert.Equal(t, "CPz", c.Channels[0].Reference)
	assert.Equal(t, "uV", c.Channels[0].Unit)
	assert.Equal(t, "BIP2", c.Channels[5].Label)

	// 100 samples in blocks of 32: 32+32+32+4.
	require.Len(t, c.Blocks, 4)
	assert.Equal(t, uint64(96), c.Blocks[3].FirstSample)
	assert.Equal(t, uint32(4), c.Blocks[3].SampleCount)

	assert.Equal(t, "antio test", c.Subject.Name)
	assert.Equal(t, "", c.Subject.ID)
	assert.Equal(t, 0, c.Subject.Sex)
	assert.Equal(t, "2024-08-14", c.Subject.Birthday.Format("2006-01-02"))
	assert.Equal(t, "eego", c.Device.Manufacturer)
	assert.Equal(t, "EE_225", c.Device.Model)
	assert.Equal(t, "", c.Device.Serial)
}

func TestParseMeasDate(t *testing.T) {
	f := basicFixture()
	f.TZOffsetMinutes = 120

	c, err := parse(t, f.Bytes())
	require.NoError(t, err)

	// Timezone-aware and equal to the stored instant.
	want := time.Date(2024, 8, 14, 10, 44, 47, 0, time.UTC)
	assert.True(t, c.MeasDate.Equal(want))
	_, offset := c.MeasDate.Zone()
	assert.Equal(t, 120*60, offset)
}

func TestParseBadMagic(t *testing.T) {
	raw := basicFixture().Bytes()
	copy(raw, "RIFF")

	_, err := parse(t, raw)
	var formatErr *types.FormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestParseUnsupportedVersion(t *testing.T) {
	raw := basicFixture().Bytes()
	binary.LittleEndian.PutUint16(raw[4:], 2)

	_, err := parse(t, raw)
	var formatErr *types.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, formatErr.Reason, "version 2")
}

func TestParseTruncatedFile(t *testing.T) {
	raw := basicFixture().Bytes()

	// Cut into the last sample block.
	_, err := parse(t, raw[:len(raw)-16])
	var truncErr *types.TruncationError
	require.ErrorAs(t, err, &truncErr)

	// Cut into the header itself.
	_, err = parse(t, raw[:40])
	require.ErrorAs(t, err, &truncErr)
}

func TestParseSampleCountMismatch(t *testing.T) {
	raw := basicFixture().Bytes()

	// Header claims more samples than the blocks hold.
	binary.LittleEndian.PutUint64(raw[20:], 101)

	_, err := parse(t, raw)
	var corruptErr *types.CorruptionError
	require.ErrorAs(t, err, &corruptErr)
	assert.Contains(t, corruptErr.Reason, "declares")
}

func TestParseBlockStrideMismatch(t *testing.T) {
	f := basicFixture()
	f.BlockSize = 0 // single block
	f.Events = nil
	raw := f.Bytes()

	// Shrink the single block's byte length: it no longer matches
	// sampleCount x channelCount x 8. With no events, the block table is
	// the last 28 bytes of the header and byteLength sits 20 bytes from
	// its end.
	headerSize := binary.LittleEndian.Uint32(raw[8:])
	lengthOff := headerSize - 20
	length := binary.LittleEndian.Uint32(raw[lengthOff:])
	binary.LittleEndian.PutUint32(raw[lengthOff:], length-8)

	_, err := parse(t, raw)
	var corruptErr *types.CorruptionError
	require.ErrorAs(t, err, &corruptErr)
	assert.Contains(t, corruptErr.Reason, "disagrees")
}

func TestParseZeroChannels(t *testing.T) {
	raw := basicFixture().Bytes()
	binary.LittleEndian.PutUint32(raw[28:], 0)

	_, err := parse(t, raw)
	var corruptErr *types.CorruptionError
	require.ErrorAs(t, err, &corruptErr)
	assert.Contains(t, corruptErr.Reason, "channel count")
}

func TestParseDuplicateChannelLabel(t *testing.T) {
	f := basicFixture()
	f.Channels[1].Label = "E1"

	_, err := parse(t, f.Bytes())
	var corruptErr *types.CorruptionError
	require.ErrorAs(t, err, &corruptErr)
	assert.Contains(t, corruptErr.Reason, "duplicate channel label")
}

func TestParseEvents(t *testing.T) {
	f := basicFixture()
	f.Events = []cnttest.Event{
		{Code: "Impedance", Onset: 1, Duration: 256, Payload: []float64{1, 2, 3, 4, 5, 6}},
		{Code: "1", Onset: 50},
	}

	c, err := parse(t, f.Bytes())
	require.NoError(t, err)
	require.Len(t, c.Events, 2)
	assert.Equal(t, "Impedance", c.Events[0].Code)
	assert.Equal(t, uint64(1), c.Events[0].OnsetSample)
	assert.Equal(t, uint32(256), c.Events[0].DurationSamples)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, c.Events[0].Payload)
	assert.Empty(t, c.Events[1].Payload)
}

func TestParseDoesNotTouchSampleData(t *testing.T) {
	f := basicFixture()
	raw := f.Bytes()

	// Parsing must succeed from the header region alone; hand Parse a
	// reader that fails on any access past it.
	headerSize := binary.LittleEndian.Uint32(raw[8:])
	guarded := &guardedReader{raw: raw, limit: int64(headerSize)}

	_, err := cnt.Parse(guarded, int64(len(raw)), "fixture.cnt")
	require.NoError(t, err)
}

type guardedReader struct {
	raw   []byte
	limit int64
}

func (g *guardedReader) ReadAt(p []byte, off int64) (int, error) {
	if off+int64(len(p)) > g.limit {
		return 0, errors.New("unexpected read past the header region")
	}
	return copy(p, g.raw[off:]), nil
}
