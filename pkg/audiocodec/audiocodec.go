// Package audiocodec defines the decoder and encoder contract used to transcode audio tracks.
//
// Decoders and encoders follow a send/receive model: a single input can produce
// zero or more outputs, and ErrAgain signals that more input is needed before
// an output is available. Sending a nil input starts draining; once drained,
// receive functions return ErrEOF.
package audiocodec

import (
	"errors"

	"github.com/vicon-security/esplayer/pkg/audio"
	"github.com/vicon-security/esplayer/pkg/codecs"
)

// ErrAgain is returned when an output is not available yet and more input is needed.
var ErrAgain = errors.New("resource temporarily unavailable")

// ErrEOF is returned when a drained codec has no more outputs.
var ErrEOF = errors.New("end of file")

// Decoder decodes compressed audio into raw frames.
type Decoder interface {
	// SendPacket sends a compressed frame. A nil payload starts draining.
	SendPacket(payload []byte, pts int64) error

	// ReceiveFrame returns a decoded frame, ErrAgain or ErrEOF.
	ReceiveFrame() (*audio.Frame, error)

	// Close releases resources.
	Close()
}

// InputFormat is the raw audio format an encoder accepts.
type InputFormat struct {
	Format     audio.SampleFormat
	SampleRate int
	Channels   int
}

// Encoder encodes raw frames into compressed audio.
type Encoder interface {
	// Codec returns the output codec.
	Codec() codecs.Codec

	// InputFormat returns the accepted raw audio format.
	InputFormat() InputFormat

	// FrameSize returns the number of samples per channel of each frame passed to SendFrame.
	FrameSize() int

	// SendFrame sends a raw frame. A nil frame starts draining.
	SendFrame(fr *audio.Frame) error

	// ReceivePacket returns a compressed frame, ErrAgain or ErrEOF.
	ReceivePacket() ([]byte, error)

	// Close releases resources.
	Close()
}

// EncoderConfig is the configuration of an encoder.
type EncoderConfig struct {
	SampleRate   int
	ChannelCount int
	BitRate      int
}

// Factory allocates decoders and encoders.
type Factory interface {
	NewDecoder(c codecs.Codec) (Decoder, error)
	NewEncoder(conf EncoderConfig) (Encoder, error)
}
