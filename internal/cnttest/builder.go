// Package cnttest synthesizes CNT containers for tests.
//
// No real recordings ship with the repository, so tests build byte-exact
// fixtures in memory, the same way the format writes them: fixed header,
// subject/device sections, channel/block/event tables, then block payloads.
// This package is test infrastructure only; the public API stays read-only.
package cnttest

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Channel declares one channel-table entry of a fixture.
type Channel struct {
	Label     string
	Unit      string
	Reference string
}

// Event declares one event-table entry of a fixture. Onset is 1-indexed,
// as the acquisition software writes it.
type Event struct {
	Code     string
	Onset    uint64
	Duration uint32
	Payload  []float64
}

// Fixture describes a synthetic recording. Zero values mean: one block
// holding all samples, uncompressed, measurement date 2024-08-14 10:44:47
// UTC, no events, empty subject/device strings.
type Fixture struct {
	SampleRate float64
	Channels   []Channel
	Data       [][]float64 // Data[channel][sample]; rows must be equal length
	BlockSize  int         // samples per block; 0 = single block
	Compress   bool        // zstd-compress every block payload
	Events     []Event

	SubjectName string
	SubjectID   string
	Birthday    time.Time // zero = not recorded
	Sex         uint8

	Manufacturer string
	Model        string
	Serial       string

	MeasDate        time.Time // zero = 2024-08-14 10:44:47 UTC
	TZOffsetMinutes int32
}

// NSamples returns the per-channel sample count of the fixture.
func (f *Fixture) NSamples() int {
	if len(f.Data) == 0 {
		return 0
	}
	return len(f.Data[0])
}

// Bytes encodes the fixture as a CNT container.
func (f *Fixture) Bytes() []byte {
	nchan := len(f.Channels)
	nsamples := f.NSamples()

	blockSize := f.BlockSize
	if blockSize <= 0 {
		blockSize = nsamples
	}

	// Block payloads first: descriptor offsets depend on their lengths.
	var payloads [][]byte
	var counts []int
	var enc *zstd.Encoder
	if f.Compress {
		enc, _ = zstd.NewWriter(nil)
		defer enc.Close()
	}
	for start := 0; start < nsamples; start += blockSize {
		end := start + blockSize
		if end > nsamples {
			end = nsamples
		}
		raw := make([]byte, (end-start)*nchan*8)
		for s := start; s < end; s++ {
			for ch := 0; ch < nchan; ch++ {
				off := ((s-start)*nchan + ch) * 8
				binary.LittleEndian.PutUint64(raw[off:], math.Float64bits(f.Data[ch][s]))
			}
		}
		if f.Compress {
			raw = enc.EncodeAll(raw, nil)
		}
		payloads = append(payloads, raw)
		counts = append(counts, end-start)
	}

	subject := &bytes.Buffer{}
	writeString(subject, f.SubjectName)
	writeString(subject, f.SubjectID)
	var birthday int64
	if !f.Birthday.IsZero() {
		birthday = f.Birthday.Unix()
	}
	binary.Write(subject, binary.LittleEndian, birthday)
	subject.WriteByte(f.Sex)

	device := &bytes.Buffer{}
	writeString(device, f.Manufacturer)
	writeString(device, f.Model)
	writeString(device, f.Serial)

	channelTable := &bytes.Buffer{}
	for _, ch := range f.Channels {
		writeString(channelTable, ch.Label)
		writeString(channelTable, ch.Unit)
		writeString(channelTable, ch.Reference)
	}

	eventTable := &bytes.Buffer{}
	for _, ev := range f.Events {
		writeString(eventTable, ev.Code)
		binary.Write(eventTable, binary.LittleEndian, ev.Onset)
		binary.Write(eventTable, binary.LittleEndian, ev.Duration)
		binary.Write(eventTable, binary.LittleEndian, uint32(len(ev.Payload)))
		for _, v := range ev.Payload {
			binary.Write(eventTable, binary.LittleEndian, math.Float64bits(v))
		}
	}

	const fixedHeader = 52
	const blockDescriptor = 28
	headerSize := fixedHeader + subject.Len() + device.Len() + channelTable.Len() +
		len(payloads)*blockDescriptor + eventTable.Len()

	blockTable := &bytes.Buffer{}
	offset := uint64(headerSize)
	firstSample := uint64(0)
	for i, payload := range payloads {
		flags := uint32(0)
		if f.Compress {
			flags |= 1
		}
		binary.Write(blockTable, binary.LittleEndian, offset)
		binary.Write(blockTable, binary.LittleEndian, uint32(len(payload)))
		binary.Write(blockTable, binary.LittleEndian, firstSample)
		binary.Write(blockTable, binary.LittleEndian, uint32(counts[i]))
		binary.Write(blockTable, binary.LittleEndian, flags)
		offset += uint64(len(payload))
		firstSample += uint64(counts[i])
	}

	measDate := f.MeasDate
	if measDate.IsZero() {
		measDate = time.Date(2024, 8, 14, 10, 44, 47, 0, time.UTC)
	}

	buf := &bytes.Buffer{}
	buf.WriteString("CNTR")
	binary.Write(buf, binary.LittleEndian, uint16(1)) // version
	binary.Write(buf, binary.LittleEndian, uint16(0)) // reserved flags
	binary.Write(buf, binary.LittleEndian, uint32(headerSize))
	binary.Write(buf, binary.LittleEndian, math.Float64bits(f.SampleRate))
	binary.Write(buf, binary.LittleEndian, uint64(nsamples))
	binary.Write(buf, binary.LittleEndian, uint32(nchan))
	binary.Write(buf, binary.LittleEndian, uint32(len(payloads)))
	binary.Write(buf, binary.LittleEndian, uint32(len(f.Events)))
	binary.Write(buf, binary.LittleEndian, measDate.UnixMicro())
	binary.Write(buf, binary.LittleEndian, f.TZOffsetMinutes)

	buf.Write(subject.Bytes())
	buf.Write(device.Bytes())
	buf.Write(channelTable.Bytes())
	buf.Write(blockTable.Bytes())
	buf.Write(eventTable.Bytes())
	for _, payload := range payloads {
		buf.Write(payload)
	}

	return buf.Bytes()
}

// WriteFile writes the fixture to a temp file and returns its path.
// The file is removed when the test finishes.
func (f *Fixture) WriteFile(t *testing.T) string {
	t.Helper()
	path := t.TempDir() + "/fixture.cnt"
	if err := os.WriteFile(path, f.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// Ramp generates deterministic sample data with non-trivial float bit
// patterns: Data[ch][s] = ch + s/3.
func Ramp(nchan, nsamples int) [][]float64 {
	data := make([][]float64, nchan)
	for ch := range data {
		data[ch] = make([]float64, nsamples)
		for s := range data[ch] {
			data[ch][s] = float64(ch) + float64(s)/3
		}
	}
	return data
}

// EEGChannels builds n scalp channels E1..En referenced to CPz, in uV.
func EEGChannels(n int) []Channel {
	channels := make([]Channel, n)
	for i := range channels {
		channels[i] = Channel{
			Label:     "E" + strconv.Itoa(i+1),
			Unit:      "uV",
			Reference: "CPz",
		}
	}
	return channels
}

// BipolarChannels builds n bipolar auxiliary channels BIP1..BIPn with no
// reference electrode.
func BipolarChannels(n int) []Channel {
	channels := make([]Channel, n)
	for i := range channels {
		channels[i] = Channel{
			Label: "BIP" + strconv.Itoa(i+1),
			Unit:  "uV",
		}
	}
	return channels
}

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint16(len(s)))
	buf.WriteString(s)
}
