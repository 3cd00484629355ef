package cntio

import (
	"github.com/proloyd/cntio/internal/types"
)

// ChannelType is an alias to types.ChannelType.
type ChannelType = types.ChannelType

// Re-export all channel type constants.
const (
	ChannelSignal    = types.ChannelSignal
	ChannelAuxiliary = types.ChannelAuxiliary
	ChannelOcular    = types.ChannelOcular
)

// Channel is an alias to types.Channel.
type Channel = types.Channel

// Annotation is an alias to types.Annotation.
type Annotation = types.Annotation

// ImpedanceRecord is an alias to types.ImpedanceRecord.
type ImpedanceRecord = types.ImpedanceRecord

// Segment is an alias to types.Segment.
type Segment = types.Segment

// SubjectInfo is an alias to types.SubjectInfo.
type SubjectInfo = types.SubjectInfo

// DeviceInfo is an alias to types.DeviceInfo.
type DeviceInfo = types.DeviceInfo
