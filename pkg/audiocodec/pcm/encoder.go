package pcm

import (
	"encoding/binary"
	"fmt"

	"github.com/vicon-security/esplayer/pkg/audio"
	"github.com/vicon-security/esplayer/pkg/audiocodec"
	"github.com/vicon-security/esplayer/pkg/codecs"
)

// DefaultFrameSize is the default number of samples per encoded frame.
const DefaultFrameSize = 1024

// Encoder is a 16-bit big endian LPCM encoder.
type Encoder struct {
	sampleRate int
	channels   int
	frameSize  int

	pending  [][]byte
	draining bool
}

// NewEncoder allocates an Encoder.
func NewEncoder(conf audiocodec.EncoderConfig, frameSize int) (*Encoder, error) {
	if conf.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", conf.SampleRate)
	}
	if conf.ChannelCount <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", conf.ChannelCount)
	}
	if frameSize <= 0 {
		frameSize = DefaultFrameSize
	}

	return &Encoder{
		sampleRate: conf.SampleRate,
		channels:   conf.ChannelCount,
		frameSize:  frameSize,
	}, nil
}

// Codec implements audiocodec.Encoder.
func (e *Encoder) Codec() codecs.Codec {
	return &codecs.LPCM{
		BitDepth:     16,
		SampleRate:   e.sampleRate,
		ChannelCount: e.channels,
	}
}

// InputFormat implements audiocodec.Encoder.
func (e *Encoder) InputFormat() audiocodec.InputFormat {
	return audiocodec.InputFormat{
		Format:     audio.SampleFormatS16,
		SampleRate: e.sampleRate,
		Channels:   e.channels,
	}
}

// FrameSize implements audiocodec.Encoder.
func (e *Encoder) FrameSize() int {
	return e.frameSize
}

// SendFrame implements audiocodec.Encoder.
func (e *Encoder) SendFrame(fr *audio.Frame) error {
	if fr == nil {
		e.draining = true
		return nil
	}
	if e.draining {
		return audiocodec.ErrEOF
	}

	if fr.Format != audio.SampleFormatS16 || fr.Channels != e.channels {
		return fmt.Errorf("unexpected frame format: %v, %d channels", fr.Format, fr.Channels)
	}
	if fr.NumSamples != e.frameSize {
		return fmt.Errorf("unexpected frame size: %d, expected %d", fr.NumSamples, e.frameSize)
	}

	err := fr.Validate()
	if err != nil {
		return err
	}

	n := fr.NumSamples * fr.Channels
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.BigEndian.PutUint16(out[i*2:], binary.LittleEndian.Uint16(fr.Data[0][i*2:]))
	}

	e.pending = append(e.pending, out)
	return nil
}

// ReceivePacket implements audiocodec.Encoder.
func (e *Encoder) ReceivePacket() ([]byte, error) {
	if len(e.pending) == 0 {
		if e.draining {
			return nil, audiocodec.ErrEOF
		}
		return nil, audiocodec.ErrAgain
	}

	pkt := e.pending[0]
	e.pending = e.pending[1:]
	return pkt, nil
}

// Close implements audiocodec.Encoder.
func (e *Encoder) Close() {
	e.pending = nil
}
