package ffmpeg

import (
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/vicon-security/esplayer/pkg/audio"
	"github.com/vicon-security/esplayer/pkg/codecs"
)

// Decoder is a FFmpeg audio decoder.
type Decoder struct {
	Codec codecs.Codec

	cc    *astiav.CodecContext
	pkt   *astiav.Packet
	frame *astiav.Frame
}

// Initialize initializes a Decoder.
func (d *Decoder) Initialize() error {
	id, extra, err := decoderParams(d.Codec)
	if err != nil {
		return err
	}

	codec := astiav.FindDecoder(id)
	if codec == nil {
		return fmt.Errorf("decoder %v not found", id)
	}

	d.cc = astiav.AllocCodecContext(codec)
	if d.cc == nil {
		return fmt.Errorf("unable to allocate codec context")
	}

	if sampleRate, channels, ok := codecs.AudioParams(d.Codec); ok {
		d.cc.SetSampleRate(sampleRate)
		if layout, err2 := channelLayout(channels); err2 == nil {
			d.cc.SetChannelLayout(layout)
		}
	}

	if extra != nil {
		err = d.cc.SetExtraData(extra)
		if err != nil {
			d.cc.Free()
			return err
		}
	}

	err = d.cc.Open(codec, nil)
	if err != nil {
		d.cc.Free()
		return fmt.Errorf("unable to open decoder: %w", err)
	}

	d.pkt = astiav.AllocPacket()
	d.frame = astiav.AllocFrame()
	return nil
}

// Close implements audiocodec.Decoder.
func (d *Decoder) Close() {
	d.frame.Free()
	d.pkt.Free()
	d.cc.Free()
}

// SendPacket implements audiocodec.Decoder.
func (d *Decoder) SendPacket(payload []byte, pts int64) error {
	if payload == nil {
		return translate(d.cc.SendPacket(nil))
	}

	defer d.pkt.Unref()

	err := d.pkt.FromData(payload)
	if err != nil {
		return err
	}
	d.pkt.SetPts(pts)

	return translate(d.cc.SendPacket(d.pkt))
}

// ReceiveFrame implements audiocodec.Decoder.
func (d *Decoder) ReceiveFrame() (*audio.Frame, error) {
	err := d.cc.ReceiveFrame(d.frame)
	if err != nil {
		return nil, translate(err)
	}
	defer d.frame.Unref()

	return frameFromFF(d.frame)
}

// frameFromFF copies a FFmpeg frame into an audio.Frame.
func frameFromFF(f *astiav.Frame) (*audio.Frame, error) {
	format := sampleFormatFromFF(f.SampleFormat())
	if format == audio.SampleFormatNone {
		return nil, fmt.Errorf("unsupported sample format: %v", f.SampleFormat())
	}

	buf, err := f.Data().Bytes(1)
	if err != nil {
		return nil, err
	}

	out := &audio.Frame{
		Format:     format,
		SampleRate: f.SampleRate(),
		Channels:   f.ChannelLayout().Channels(),
		NumSamples: f.NbSamples(),
		PTS:        f.Pts(),
	}

	if format.IsPlanar() {
		planeSize := out.NumSamples * format.BytesPerSample()
		out.Data = make([][]byte, out.Channels)
		for i := range out.Data {
			out.Data[i] = buf[i*planeSize : (i+1)*planeSize]
		}
	} else {
		out.Data = [][]byte{buf}
	}

	return out, out.Validate()
}
