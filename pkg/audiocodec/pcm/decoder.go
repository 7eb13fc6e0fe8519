// Package pcm contains pure Go decoders and encoders for uncompressed and G711 audio.
package pcm

import (
	"encoding/binary"
	"fmt"

	"github.com/bluenviron/mediacommon/pkg/codecs/g711"

	"github.com/vicon-security/esplayer/pkg/audio"
	"github.com/vicon-security/esplayer/pkg/audiocodec"
	"github.com/vicon-security/esplayer/pkg/codecs"
)

type decodeFunc func(payload []byte) ([]byte, audio.SampleFormat, error)

// Decoder is a G711 or LPCM decoder.
type Decoder struct {
	sampleRate int
	channels   int
	decode     decodeFunc

	pending  []*audio.Frame
	draining bool
}

// NewDecoder allocates a Decoder.
func NewDecoder(c codecs.Codec) (*Decoder, error) {
	switch c := c.(type) {
	case *codecs.G711:
		d := &Decoder{
			sampleRate: c.SampleRate,
			channels:   c.ChannelCount,
		}
		if c.MULaw {
			d.decode = func(payload []byte) ([]byte, audio.SampleFormat, error) {
				return swap16(g711.DecodeMulaw(payload)), audio.SampleFormatS16, nil
			}
		} else {
			d.decode = func(payload []byte) ([]byte, audio.SampleFormat, error) {
				return swap16(g711.DecodeAlaw(payload)), audio.SampleFormatS16, nil
			}
		}
		return d, d.checkParams()

	case *codecs.LPCM:
		d := &Decoder{
			sampleRate: c.SampleRate,
			channels:   c.ChannelCount,
		}
		switch c.BitDepth {
		case 8:
			d.decode = func(payload []byte) ([]byte, audio.SampleFormat, error) {
				// 8-bit samples are offset binary, 0x80 is silence.
				return append([]byte(nil), payload...), audio.SampleFormatU8, nil
			}

		case 16:
			d.decode = func(payload []byte) ([]byte, audio.SampleFormat, error) {
				if (len(payload) % 2) != 0 {
					return nil, 0, fmt.Errorf("invalid payload size: %d", len(payload))
				}
				return swap16(append([]byte(nil), payload...)), audio.SampleFormatS16, nil
			}

		case 24:
			d.decode = func(payload []byte) ([]byte, audio.SampleFormat, error) {
				if (len(payload) % 3) != 0 {
					return nil, 0, fmt.Errorf("invalid payload size: %d", len(payload))
				}
				out := make([]byte, len(payload)/3*4)
				for i := 0; i < len(payload)/3; i++ {
					binary.LittleEndian.PutUint32(out[i*4:], uint32(payload[i*3])<<24|
						uint32(payload[i*3+1])<<16|uint32(payload[i*3+2])<<8)
				}
				return out, audio.SampleFormatS32, nil
			}

		default:
			return nil, fmt.Errorf("unsupported bit depth: %d", c.BitDepth)
		}
		return d, d.checkParams()
	}

	return nil, fmt.Errorf("unsupported codec: %T", c)
}

func (d *Decoder) checkParams() error {
	if d.sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", d.sampleRate)
	}
	if d.channels <= 0 {
		return fmt.Errorf("invalid channel count: %d", d.channels)
	}
	return nil
}

// swap16 converts big endian 16-bit samples into little endian ones, in place.
func swap16(buf []byte) []byte {
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = buf[i+1], buf[i]
	}
	return buf
}

// SendPacket implements audiocodec.Decoder.
func (d *Decoder) SendPacket(payload []byte, pts int64) error {
	if payload == nil {
		d.draining = true
		return nil
	}
	if d.draining {
		return audiocodec.ErrEOF
	}

	samples, format, err := d.decode(payload)
	if err != nil {
		return err
	}

	frameBytes := d.channels * format.BytesPerSample()
	if (len(samples) % frameBytes) != 0 {
		return fmt.Errorf("payload does not contain a whole number of samples")
	}

	d.pending = append(d.pending, &audio.Frame{
		Format:     format,
		SampleRate: d.sampleRate,
		Channels:   d.channels,
		NumSamples: len(samples) / frameBytes,
		Data:       [][]byte{samples},
		PTS:        pts,
	})
	return nil
}

// ReceiveFrame implements audiocodec.Decoder.
func (d *Decoder) ReceiveFrame() (*audio.Frame, error) {
	if len(d.pending) == 0 {
		if d.draining {
			return nil, audiocodec.ErrEOF
		}
		return nil, audiocodec.ErrAgain
	}

	fr := d.pending[0]
	d.pending = d.pending[1:]
	return fr, nil
}

// Close implements audiocodec.Decoder.
func (d *Decoder) Close() {
	d.pending = nil
}
