package events

import (
	"fmt"

	"github.com/proloyd/cntio/internal/types"
)

// BuildImpedances assembles one ImpedanceRecord per annotation whose
// description equals the configured impedance marker.
//
// Each matching annotation must carry at least one resistance reading per
// recording channel in its payload; the first len(channels) readings are
// keyed by channel label in declared channel order. Fewer readings than
// channels is a *types.CorruptionError. The returned slice always has
// exactly as many records as there are matching annotations.
func BuildImpedances(annotations []types.Annotation, channels []types.Channel, marker, path string) ([]types.ImpedanceRecord, error) {
	labels := make([]string, len(channels))
	for i := range channels {
		labels[i] = channels[i].Label
	}

	var records []types.ImpedanceRecord
	for i, annot := range annotations {
		if annot.Description != marker {
			continue
		}
		if len(annot.Payload) < len(channels) {
			return nil, &types.CorruptionError{
				Path: path,
				Reason: fmt.Sprintf("impedance annotation %d carries %d readings for %d channels",
					i, len(annot.Payload), len(channels)),
			}
		}

		values := make(map[string]float64, len(labels))
		for j, label := range labels {
			values[label] = annot.Payload[j]
		}
		records = append(records, types.ImpedanceRecord{
			Labels: labels,
			Values: values,
		})
	}

	return records, nil
}
