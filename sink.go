package esplayer

import (
	"github.com/vicon-security/esplayer/pkg/espacket"
)

// Rect is a rectangle in view coordinates.
type Rect struct {
	X      int `json:"x_coordinate"`
	Y      int `json:"y_coordinate"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SinkListener receives notifications from a Sink.
//
// OnNeedData and OnEnoughData may be called from any goroutine.
type SinkListener interface {
	// OnNeedData is called when the sink wants more data for a track.
	OnNeedData(track TrackType)

	// OnEnoughData is called when the sink does not want more data for a track.
	OnEnoughData(track TrackType)

	// OnSeekData is called when the sink requests data from a position, in microseconds.
	OnSeekData(track TrackType, ts int64)

	// OnBufferingCompleted is called when the sink buffered enough data to start playback.
	OnBufferingCompleted()

	// OnTimeUpdate is called when the playback position changes, in seconds.
	OnTimeUpdate(t float64)

	// OnEnded is called when playback reached the end of stream.
	OnEnded()

	// OnError is called when the sink fails.
	OnError(err error)
}

// Sink is a playback sink that consumes elementary streams.
//
// All methods are called from the delivery routine of the Player.
type Sink interface {
	// Initialize attaches the listener. It is called once, before any other method.
	Initialize(l SinkListener) error

	ConfigureAudioTrack(conf *AudioTrackConfig) error
	ConfigureVideoTrack(conf *VideoTrackConfig) error

	// AppendPacket appends a packet to a track.
	AppendPacket(track TrackType, pkt *espacket.Packet) error

	// SetEndOfStream notifies that no more packets will be appended.
	SetEndOfStream()

	Play() error
	Pause() error
	SetViewRect(r Rect) error

	// Close releases resources.
	Close()
}
