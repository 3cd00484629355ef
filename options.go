package cntio

import (
	"github.com/proloyd/cntio/internal/classify"
	"github.com/proloyd/cntio/internal/events"
)

// Option configures behavior when opening recordings.
//
// Options use the functional options pattern:
//
//	rec, err := cntio.Open("recording.cnt",
//	    cntio.WithPreload(),
//	    cntio.WithEOG("EOG"),
//	)
type Option func(*openOptions)

// openOptions holds configuration for opening recordings.
type openOptions struct {
	preload             bool                 // decode all sample blocks during Open
	misc                *classify.ChannelSet // nil = default pattern policy
	eog                 classify.ChannelSet  // channels reclassified to ocular
	impedanceAnnotation string               // description given to impedance snapshots
}

// defaultOptions returns the default configuration.
func defaultOptions() *openOptions {
	return &openOptions{
		impedanceAnnotation: events.DefaultImpedanceAnnotation,
	}
}

// WithPreload decodes every sample block during Open instead of lazily.
//
// Lazy and eager access return bit-identical values; preloading trades
// memory for first-read latency and fails fast on corrupted blocks.
func WithPreload() Option {
	return func(o *openOptions) {
		o.preload = true
	}
}

// WithMisc replaces the default auxiliary-channel policy with an explicit
// set of labels. Exactly the named channels become auxiliary; everything
// else is typed signal.
func WithMisc(labels ...string) Option {
	return func(o *openOptions) {
		set := classify.NewChannelSet(labels...)
		o.misc = &set
	}
}

// WithoutMisc disables auxiliary typing entirely: every channel becomes
// signal. If the resulting signal channels are not all referenced to the
// same electrode, a data-quality warning is recorded on the Recording;
// parsing continues.
func WithoutMisc() Option {
	return func(o *openOptions) {
		set := classify.NewChannelSet()
		o.misc = &set
	}
}

// WithEOG reclassifies the named channels to the ocular type, overriding
// whatever the default or explicit policy assigned them. Other channels
// are untouched.
func WithEOG(labels ...string) Option {
	return func(o *openOptions) {
		o.eog = classify.NewChannelSet(labels...)
	}
}

// WithImpedanceAnnotation sets the description given to impedance-snapshot
// annotations. The default is "impedance". Impedance records are built
// from annotations matching this description.
func WithImpedanceAnnotation(description string) Option {
	return func(o *openOptions) {
		o.impedanceAnnotation = description
	}
}
