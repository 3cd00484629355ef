// Package classify assigns semantic types to recording channels.
//
// Channels default to the primary signal type unless their label matches a
// known non-scalp pattern. Callers may override the default policy with an
// explicit auxiliary set (or none at all) and may promote named channels
// to the ocular type.
package classify

import (
	"fmt"
	"strings"

	"github.com/proloyd/cntio/internal/types"
)

// auxiliaryPrefixes are label prefixes of channels that do not carry
// scalp EEG: bipolar inputs, auxiliary sensors, and hardware counters.
var auxiliaryPrefixes = []string{"BIP", "AUX", "ECG", "EMG", "TRIG", "CNTR"}

// ChannelSet is a set of channel labels used for classification overrides.
type ChannelSet map[string]struct{}

// NewChannelSet builds a ChannelSet from labels.
func NewChannelSet(labels ...string) ChannelSet {
	set := make(ChannelSet, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return set
}

// Config controls channel classification.
//
// Misc selects the channels typed auxiliary. Nil applies the default
// label-pattern policy. A non-nil empty set disables auxiliary typing
// entirely: every channel becomes signal, and a data-quality warning is
// recorded if the signal channels then disagree on reference electrode.
//
// EOG names channels reclassified to ocular, applied after Misc.
type Config struct {
	Misc *ChannelSet
	EOG  ChannelSet
}

// Apply types every channel in place, in declared channel order, and
// returns any data-quality warnings. It never fails: classification
// problems are warnings, not errors.
func Apply(channels []types.Channel, cfg Config) []types.Warning {
	var warnings []types.Warning

	for i := range channels {
		channels[i].Type = types.ChannelSignal
		if cfg.Misc == nil {
			if matchesAuxiliary(channels[i].Label) {
				channels[i].Type = types.ChannelAuxiliary
			}
		} else if _, ok := (*cfg.Misc)[channels[i].Label]; ok {
			channels[i].Type = types.ChannelAuxiliary
		}
	}

	// Forcing every channel to signal pulls in channels that were never
	// referenced like scalp electrodes, so check that the result is
	// consistently referenced.
	if cfg.Misc != nil && len(*cfg.Misc) == 0 && !consistentReference(channels) {
		warnings = append(warnings, types.Warning{
			Stage:   "classify",
			Message: "All EEG channels are not referenced to the same electrode.",
		})
	}

	for label := range cfg.EOG {
		idx := -1
		for i := range channels {
			if channels[i].Label == label {
				idx = i
				break
			}
		}
		if idx < 0 {
			warnings = append(warnings, types.Warning{
				Stage:   "classify",
				Message: fmt.Sprintf("ocular channel %q not found in the recording", label),
			})
			continue
		}
		channels[idx].Type = types.ChannelOcular
	}

	return warnings
}

// matchesAuxiliary reports whether a label names a known non-scalp channel.
func matchesAuxiliary(label string) bool {
	upper := strings.ToUpper(label)
	for _, prefix := range auxiliaryPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

// consistentReference reports whether all signal channels share one
// reference electrode.
func consistentReference(channels []types.Channel) bool {
	ref := ""
	seen := false
	for i := range channels {
		if channels[i].Type != types.ChannelSignal {
			continue
		}
		if !seen {
			ref = channels[i].Reference
			seen = true
			continue
		}
		if channels[i].Reference != ref {
			return false
		}
	}
	return true
}
