package pcm

import (
	"github.com/vicon-security/esplayer/pkg/audiocodec"
	"github.com/vicon-security/esplayer/pkg/codecs"
)

// Factory is an audiocodec.Factory that transcodes into 16-bit LPCM.
type Factory struct {
	// Number of samples per encoded frame.
	// It defaults to DefaultFrameSize.
	FrameSize int
}

// NewDecoder implements audiocodec.Factory.
func (f *Factory) NewDecoder(c codecs.Codec) (audiocodec.Decoder, error) {
	d, err := NewDecoder(c)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// NewEncoder implements audiocodec.Factory.
func (f *Factory) NewEncoder(conf audiocodec.EncoderConfig) (audiocodec.Encoder, error) {
	e, err := NewEncoder(conf, f.FrameSize)
	if err != nil {
		return nil, err
	}
	return e, nil
}
