package cntio_test

import (
	"context"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proloyd/cntio"
	"github.com/proloyd/cntio/internal/cnttest"
)

// gelFixture mirrors a 64+24 channel gel recording, scaled down: four
// scalp channels referenced to CPz, one EOG channel, two unreferenced
// bipolar channels.
func gelFixture() *cnttest.Fixture {
	channels := cnttest.EEGChannels(4)
	channels = append(channels, cnttest.Channel{Label: "EOG", Unit: "uV", Reference: "CPz"})
	channels = append(channels, cnttest.BipolarChannels(2)...)

	return &cnttest.Fixture{
		SampleRate: 512,
		Channels:   channels,
		Data:       cnttest.Ramp(7, 200),
		BlockSize:  64,
		Events: []cnttest.Event{
			{Code: "Impedance", Onset: 1, Duration: 256, Payload: []float64{1, 2, 3, 4, 5, 6, 7}},
			{Code: "1", Onset: 50},
			{Code: "Impedance", Onset: 150, Duration: 256, Payload: []float64{8, 9, 10, 11, 12, 13, 14}},
		},
		SubjectName:  "antio test",
		Birthday:     time.Date(2024, 8, 14, 0, 0, 0, 0, time.UTC),
		Manufacturer: "eego",
		Model:        "EE_225",
		MeasDate:     time.Date(2024, 8, 14, 10, 44, 47, 0, time.UTC),
	}
}

func disconnectionFixture() *cnttest.Fixture {
	f := gelFixture()
	f.Events = append(f.Events,
		cnttest.Event{Code: "9001", Onset: 80},
		cnttest.Event{Code: "9002", Onset: 120},
	)
	return f
}

func open(t *testing.T, f *cnttest.Fixture, opts ...cntio.Option) *cntio.Recording {
	t.Helper()
	rec, err := cntio.Open(f.WriteFile(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })
	return rec
}

func requireBitIdentical(t *testing.T, want, got [][]float64) {
	t.Helper()
	require.Equal(t, len(want), len(got))
	for ch := range want {
		require.Equal(t, len(want[ch]), len(got[ch]), "channel %d", ch)
		for s := range want[ch] {
			if math.Float64bits(want[ch][s]) != math.Float64bits(got[ch][s]) {
				t.Fatalf("channel %d sample %d: %v != %v", ch, s, got[ch][s], want[ch][s])
			}
		}
	}
}

func TestPreloadEqualsLazy(t *testing.T) {
	f := gelFixture()
	eager := open(t, f, cntio.WithPreload())
	lazy := open(t, f)

	assert.True(t, eager.Loaded())
	assert.False(t, lazy.Loaded())

	a, err := eager.Data(nil, 0, eager.NSamples)
	require.NoError(t, err)
	b, err := lazy.Data(nil, 0, lazy.NSamples)
	require.NoError(t, err)

	requireBitIdentical(t, a, b)
	requireBitIdentical(t, f.Data, b)
}

func TestCropThenLoadEqualsLoadThenCrop(t *testing.T) {
	f := gelFixture()
	eager := open(t, f, cntio.WithPreload())
	lazy := open(t, f)

	// ~[0.05s, 0.25s) at 512 Hz.
	from, to := 26, 128

	full, err := eager.Data(nil, 0, eager.NSamples)
	require.NoError(t, err)
	sliced := make([][]float64, len(full))
	for ch := range full {
		sliced[ch] = full[ch][from:to]
	}

	ranged, err := lazy.Data(nil, from, to)
	require.NoError(t, err)
	requireBitIdentical(t, sliced, ranged)
}

func TestDropChannelsLeavesOthersUntouched(t *testing.T) {
	f := gelFixture()
	eager := open(t, f, cntio.WithPreload())
	lazy := open(t, f)

	// Drop channels 1, 5 — i.e. keep the rest, in order.
	keep := []int{0, 2, 3, 4, 6}

	full, err := eager.Data(nil, 0, eager.NSamples)
	require.NoError(t, err)
	manual := make([][]float64, len(keep))
	for i, ch := range keep {
		manual[i] = full[ch]
	}

	subset, err := lazy.Data(keep, 0, lazy.NSamples)
	require.NoError(t, err)
	requireBitIdentical(t, manual, subset)
}

func TestChannelClassification(t *testing.T) {
	rec := open(t, gelFixture())

	types := make([]cntio.ChannelType, len(rec.Channels))
	for i, ch := range rec.Channels {
		types[i] = ch.Type
	}
	assert.Equal(t, []cntio.ChannelType{
		cntio.ChannelSignal, cntio.ChannelSignal, cntio.ChannelSignal, cntio.ChannelSignal,
		cntio.ChannelSignal, // EOG stays signal by default
		cntio.ChannelAuxiliary, cntio.ChannelAuxiliary,
	}, types)
	assert.Empty(t, rec.Warnings)
}

func TestWithoutMiscWarnsOnMixedReferences(t *testing.T) {
	rec := open(t, gelFixture(), cntio.WithoutMisc())

	for _, ch := range rec.Channels {
		assert.Equal(t, cntio.ChannelSignal, ch.Type)
	}
	require.Len(t, rec.Warnings, 1)
	assert.Equal(t, "All EEG channels are not referenced to the same electrode.", rec.Warnings[0].Message)
}

func TestWithEOGFlipsExactlyOneChannel(t *testing.T) {
	base := open(t, gelFixture())
	rec := open(t, gelFixture(), cntio.WithEOG("EOG"))

	idx, ok := rec.ChannelIndex("EOG")
	require.True(t, ok)
	assert.Equal(t, cntio.ChannelOcular, rec.Channels[idx].Type)

	for i := range rec.Channels {
		if i == idx {
			continue
		}
		assert.Equal(t, base.Channels[i].Type, rec.Channels[i].Type, "channel %d", i)
	}
}

func TestSubjectAndDeviceInfo(t *testing.T) {
	rec := open(t, gelFixture())

	assert.Equal(t, "antio test", rec.Subject.Name)
	assert.Equal(t, "", rec.Subject.ID)
	assert.Equal(t, 0, rec.Subject.Sex)
	assert.Equal(t, "2024-08-14", rec.Subject.Birthday.Format("2006-01-02"))

	assert.Equal(t, "eego", rec.Device.Manufacturer)
	assert.Equal(t, "EE_225", rec.Device.Model)
	assert.Equal(t, "", rec.Device.Serial)
}

func TestMeasDate(t *testing.T) {
	f := gelFixture()
	f.TZOffsetMinutes = 60
	rec := open(t, f)

	want := time.Date(2024, 8, 14, 10, 44, 47, 0, time.UTC)
	assert.LessOrEqual(t, rec.MeasDate.Sub(want).Abs(), time.Millisecond)
	_, offset := rec.MeasDate.Zone()
	assert.Equal(t, 3600, offset)
}

func TestImpedances(t *testing.T) {
	rec := open(t, gelFixture())

	matching := 0
	for _, a := range rec.Annotations {
		if a.Description == "impedance" {
			matching++
		}
	}
	require.Len(t, rec.Impedances, matching)
	require.Len(t, rec.Impedances, 2)

	for _, imp := range rec.Impedances {
		assert.Equal(t, rec.ChannelNames(), imp.Labels)
		assert.Len(t, imp.Values, len(rec.Channels))
	}
	assert.Equal(t, 1.0, rec.Impedances[0].Values["E1"])
	assert.Equal(t, 14.0, rec.Impedances[1].Values["BIP2"])
}

func TestImpedanceAnnotationOption(t *testing.T) {
	rec := open(t, gelFixture(), cntio.WithImpedanceAnnotation("test"))

	matching := 0
	for _, a := range rec.Annotations {
		if a.Description == "test" {
			matching++
		}
	}
	assert.Equal(t, 2, matching)
	assert.Len(t, rec.Impedances, 2)
}

// retainedSamples counts the samples left after rejecting spans covered by
// BAD annotations, the way a downstream container's reject_by_annotation
// would.
func retainedSamples(rec *cntio.Recording) int {
	retained := 0
	for s := 0; s < rec.NSamples; s++ {
		ts := float64(s) / rec.SampleRate
		bad := false
		for _, a := range rec.Annotations {
			if strings.HasPrefix(a.Description, "BAD") && a.Onset <= ts && ts < a.Onset+a.Duration {
				bad = true
				break
			}
		}
		if !bad {
			retained++
		}
	}
	return retained
}

func TestAmpDisconnection(t *testing.T) {
	rec := open(t, disconnectionFixture())

	var bad []cntio.Annotation
	for _, a := range rec.Annotations {
		if a.Description == "BAD_disconnection" {
			bad = append(bad, a)
		}
	}
	require.Len(t, bad, 1)
	assert.Equal(t, 80/rec.SampleRate, bad[0].Onset)
	assert.InDelta(t, (120-80)/rec.SampleRate+1/rec.SampleRate, bad[0].Duration, 1e-12)

	// Rejecting the disconnected span strictly shrinks the output...
	assert.Less(t, retainedSamples(rec), rec.NSamples)

	// ...and a recording without a disconnection keeps every sample.
	clean := open(t, gelFixture())
	assert.Equal(t, clean.NSamples, retainedSamples(clean))
}

func TestUnpairedDisconnectionFailsOpen(t *testing.T) {
	f := gelFixture()
	f.Events = append(f.Events, cnttest.Event{Code: "9001", Onset: 80})

	_, err := cntio.Open(f.WriteFile(t))
	var corruptErr *cntio.CorruptionError
	require.ErrorAs(t, err, &corruptErr)
}

func TestSegments(t *testing.T) {
	f := gelFixture()
	f.Events = []cnttest.Event{
		{Code: "9003", Onset: 1},
		{Code: "9004", Onset: 100},
		{Code: "9003", Onset: 120},
		{Code: "9004", Onset: 200},
	}
	rec := open(t, f)

	require.Len(t, rec.Segments, 2)
	assert.Equal(t, cntio.Segment{Start: 0, Stop: 100}, rec.Segments[0])
	assert.Equal(t, cntio.Segment{Start: 119, Stop: 200}, rec.Segments[1])
}

func TestAnnotationsSortedWithFirstEventQuirk(t *testing.T) {
	f := gelFixture()
	f.Events = []cnttest.Event{
		{Code: "Impedance", Onset: 0, Duration: 256, Payload: []float64{1, 2, 3, 4, 5, 6, 7}},
		{Code: "1", Onset: 10},
	}
	rec := open(t, f)

	require.Len(t, rec.Annotations, 2)
	// The first stored event lands one sample before the recording start.
	assert.Equal(t, -1/rec.SampleRate, rec.Annotations[0].Onset)
	assert.Equal(t, "impedance", rec.Annotations[0].Description)
	assert.Equal(t, 10/rec.SampleRate, rec.Annotations[1].Onset)
}

func TestOpenFileNotFound(t *testing.T) {
	_, err := cntio.Open("/nonexistent/recording.cnt")
	require.Error(t, err)
}

func TestOpenNotACNTFile(t *testing.T) {
	path := t.TempDir() + "/not-a-cnt.cnt"
	require.NoError(t, os.WriteFile(path, []byte("RIFF this is something else"), 0o644))

	_, err := cntio.Open(path)
	var formatErr *cntio.FormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestOpenMany(t *testing.T) {
	paths := []string{
		gelFixture().WriteFile(t),
		disconnectionFixture().WriteFile(t),
	}

	recs, err := cntio.OpenMany(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.Equal(t, 200, rec.NSamples)
		require.NoError(t, rec.Close())
	}

	_, err = cntio.OpenMany(context.Background(), append(paths, "/nonexistent/recording.cnt"))
	require.Error(t, err)
}

func TestCloseSemantics(t *testing.T) {
	f := gelFixture()

	// Preloaded data stays readable after Close.
	eager := open(t, f, cntio.WithPreload())
	require.NoError(t, eager.Close())
	require.NoError(t, eager.Close()) // idempotent
	_, err := eager.Data(nil, 0, eager.NSamples)
	require.NoError(t, err)

	// Lazy reads that still need the file fail after Close.
	lazy := open(t, f)
	require.NoError(t, lazy.Close())
	_, err = lazy.Data(nil, 0, lazy.NSamples)
	require.Error(t, err)
}
