// Package ffmpeg contains audio decoders and encoders backed by FFmpeg.
package ffmpeg

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"

	"github.com/vicon-security/esplayer/pkg/audio"
	"github.com/vicon-security/esplayer/pkg/audiocodec"
	"github.com/vicon-security/esplayer/pkg/codecs"
)

// translate converts FFmpeg errors into audiocodec errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, astiav.ErrEagain):
		return audiocodec.ErrAgain
	case errors.Is(err, astiav.ErrEof):
		return audiocodec.ErrEOF
	}
	return err
}

func channelLayout(channels int) (astiav.ChannelLayout, error) {
	switch channels {
	case 1:
		return astiav.ChannelLayoutMono, nil
	case 2:
		return astiav.ChannelLayoutStereo, nil
	}
	return astiav.ChannelLayout{}, fmt.Errorf("unsupported channel count: %d", channels)
}

func sampleFormatFromFF(f astiav.SampleFormat) audio.SampleFormat {
	switch f {
	case astiav.SampleFormatU8:
		return audio.SampleFormatU8
	case astiav.SampleFormatS16:
		return audio.SampleFormatS16
	case astiav.SampleFormatS32:
		return audio.SampleFormatS32
	case astiav.SampleFormatFlt:
		return audio.SampleFormatF32
	case astiav.SampleFormatU8P:
		return audio.SampleFormatU8P
	case astiav.SampleFormatS16P:
		return audio.SampleFormatS16P
	case astiav.SampleFormatS32P:
		return audio.SampleFormatS32P
	case astiav.SampleFormatFltp:
		return audio.SampleFormatF32P
	}
	return audio.SampleFormatNone
}

func sampleFormatToFF(f audio.SampleFormat) astiav.SampleFormat {
	switch f {
	case audio.SampleFormatU8:
		return astiav.SampleFormatU8
	case audio.SampleFormatS16:
		return astiav.SampleFormatS16
	case audio.SampleFormatS32:
		return astiav.SampleFormatS32
	case audio.SampleFormatF32:
		return astiav.SampleFormatFlt
	case audio.SampleFormatU8P:
		return astiav.SampleFormatU8P
	case audio.SampleFormatS16P:
		return astiav.SampleFormatS16P
	case audio.SampleFormatS32P:
		return astiav.SampleFormatS32P
	case audio.SampleFormatF32P:
		return astiav.SampleFormatFltp
	}
	return astiav.SampleFormatNone
}

// decoderParams returns the FFmpeg codec ID and extra data of a codec.
func decoderParams(c codecs.Codec) (astiav.CodecID, []byte, error) {
	switch c := c.(type) {
	case *codecs.MPEG4Audio:
		extra, err := c.Config.Marshal()
		if err != nil {
			return 0, nil, err
		}
		return astiav.CodecIDAac, extra, nil

	case *codecs.G711:
		if c.MULaw {
			return astiav.CodecIDPcmMulaw, nil, nil
		}
		return astiav.CodecIDPcmAlaw, nil, nil

	case *codecs.LPCM:
		switch c.BitDepth {
		case 8:
			return astiav.CodecIDPcmU8, nil, nil
		case 16:
			return astiav.CodecIDPcmS16Be, nil, nil
		case 24:
			return astiav.CodecIDPcmS24Be, nil, nil
		}
		return 0, nil, fmt.Errorf("unsupported bit depth: %d", c.BitDepth)

	case *codecs.Opus:
		return astiav.CodecIDOpus, nil, nil

	case *codecs.MPEG1Audio:
		return astiav.CodecIDMp3, nil, nil

	case *codecs.AC3:
		return astiav.CodecIDAc3, nil, nil
	}

	return 0, nil, fmt.Errorf("unsupported codec: %T", c)
}

// Factory is an audiocodec.Factory that transcodes into AAC-LC.
type Factory struct {
	// Encoder bit rate.
	// It defaults to 64 kbit/s.
	BitRate int
}

// NewDecoder implements audiocodec.Factory.
func (f *Factory) NewDecoder(c codecs.Codec) (audiocodec.Decoder, error) {
	d := &Decoder{Codec: c}
	err := d.Initialize()
	if err != nil {
		return nil, err
	}
	return d, nil
}

// NewEncoder implements audiocodec.Factory.
func (f *Factory) NewEncoder(conf audiocodec.EncoderConfig) (audiocodec.Encoder, error) {
	if conf.BitRate == 0 {
		conf.BitRate = f.BitRate
	}
	e := &Encoder{Config: conf}
	err := e.Initialize()
	if err != nil {
		return nil, err
	}
	return e, nil
}

// aacConfig returns the configuration of the AAC-LC output.
func aacConfig(sampleRate int, channels int) mpeg4audio.Config {
	return mpeg4audio.Config{
		Type:         mpeg4audio.ObjectTypeAACLC,
		SampleRate:   sampleRate,
		ChannelCount: channels,
	}
}
