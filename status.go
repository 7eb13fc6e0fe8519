package esplayer

import (
	"encoding/json"
	"fmt"
)

// StatusKind is the kind of a status message.
type StatusKind int

// Status kinds.
const (
	StatusTimeUpdate         StatusKind = 100
	StatusSetDuration        StatusKind = 101
	StatusBufferingCompleted StatusKind = 102
	StatusStreamEnded        StatusKind = 103
	StatusSetAudioLevel      StatusKind = 104
	StatusSendStats          StatusKind = 105
)

func (k StatusKind) String() string {
	switch k {
	case StatusTimeUpdate:
		return "time update"
	case StatusSetDuration:
		return "set duration"
	case StatusBufferingCompleted:
		return "buffering completed"
	case StatusStreamEnded:
		return "stream ended"
	case StatusSetAudioLevel:
		return "set audio level"
	case StatusSendStats:
		return "send stats"
	}
	return fmt.Sprintf("unknown (%d)", int(k))
}

// Status is a status message emitted by the Player.
type Status struct {
	Kind StatusKind

	// time in seconds, for StatusTimeUpdate and StatusSetDuration.
	Time float64

	// audio level in decibels, for StatusSetAudioLevel.
	AudioLevel float64

	// transport statistics, for StatusSendStats.
	Lost    int64
	Jitter  float64
	Bitrate int64
}

// MarshalJSON implements json.Marshaler.
// Only the fields of the status kind are encoded.
func (s Status) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"messageFromPlayer": int(s.Kind),
	}

	switch s.Kind {
	case StatusTimeUpdate, StatusSetDuration:
		m["time"] = s.Time

	case StatusSetAudioLevel:
		m["audio_level"] = s.AudioLevel

	case StatusSendStats:
		m["stats_lost"] = s.Lost
		m["stats_jitter"] = s.Jitter
		m["stats_bitrate"] = s.Bitrate
	}

	return json.Marshal(m)
}
