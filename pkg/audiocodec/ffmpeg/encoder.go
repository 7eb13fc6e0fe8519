package ffmpeg

import (
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/vicon-security/esplayer/pkg/audio"
	"github.com/vicon-security/esplayer/pkg/audiocodec"
	"github.com/vicon-security/esplayer/pkg/codecs"
)

const (
	defaultBitRate = 64000
	aacFrameSize   = 1024
)

// Encoder is a FFmpeg AAC-LC encoder.
type Encoder struct {
	Config audiocodec.EncoderConfig

	cc     *astiav.CodecContext
	layout astiav.ChannelLayout
	pkt    *astiav.Packet
	frame  *astiav.Frame

	// pts of the next frame, in samples.
	nextPTS int64
}

// Initialize initializes an Encoder.
func (e *Encoder) Initialize() error {
	if e.Config.BitRate == 0 {
		e.Config.BitRate = defaultBitRate
	}

	var err error
	e.layout, err = channelLayout(e.Config.ChannelCount)
	if err != nil {
		return err
	}

	codec := astiav.FindEncoder(astiav.CodecIDAac)
	if codec == nil {
		return fmt.Errorf("AAC encoder not found")
	}

	e.cc = astiav.AllocCodecContext(codec)
	if e.cc == nil {
		return fmt.Errorf("unable to allocate codec context")
	}

	e.cc.SetSampleFormat(astiav.SampleFormatFltp)
	e.cc.SetSampleRate(e.Config.SampleRate)
	e.cc.SetChannelLayout(e.layout)
	e.cc.SetBitRate(int64(e.Config.BitRate))
	e.cc.SetTimeBase(astiav.NewRational(1, e.Config.SampleRate))

	err = e.cc.Open(codec, nil)
	if err != nil {
		e.cc.Free()
		return fmt.Errorf("unable to open encoder: %w", err)
	}

	e.pkt = astiav.AllocPacket()
	e.frame = astiav.AllocFrame()
	return nil
}

// Close implements audiocodec.Encoder.
func (e *Encoder) Close() {
	e.frame.Free()
	e.pkt.Free()
	e.cc.Free()
}

// Codec implements audiocodec.Encoder.
func (e *Encoder) Codec() codecs.Codec {
	return &codecs.MPEG4Audio{
		Config: aacConfig(e.Config.SampleRate, e.Config.ChannelCount),
	}
}

// InputFormat implements audiocodec.Encoder.
func (e *Encoder) InputFormat() audiocodec.InputFormat {
	return audiocodec.InputFormat{
		Format:     audio.SampleFormatF32P,
		SampleRate: e.Config.SampleRate,
		Channels:   e.Config.ChannelCount,
	}
}

// FrameSize implements audiocodec.Encoder.
func (e *Encoder) FrameSize() int {
	if fs := e.cc.FrameSize(); fs > 0 {
		return fs
	}
	return aacFrameSize
}

// SendFrame implements audiocodec.Encoder.
func (e *Encoder) SendFrame(fr *audio.Frame) error {
	if fr == nil {
		return translate(e.cc.SendFrame(nil))
	}

	err := fr.Validate()
	if err != nil {
		return err
	}

	e.frame.SetNbSamples(fr.NumSamples)
	e.frame.SetSampleFormat(sampleFormatToFF(fr.Format))
	e.frame.SetChannelLayout(e.layout)
	e.frame.SetSampleRate(fr.SampleRate)
	e.frame.SetPts(e.nextPTS)

	err = e.frame.AllocBuffer(0)
	if err != nil {
		return err
	}
	defer e.frame.Unref()

	var buf []byte
	for _, plane := range fr.Data {
		buf = append(buf, plane...)
	}

	err = e.frame.Data().SetBytes(buf, 1)
	if err != nil {
		return err
	}

	err = translate(e.cc.SendFrame(e.frame))
	if err != nil {
		return err
	}

	e.nextPTS += int64(fr.NumSamples)
	return nil
}

// ReceivePacket implements audiocodec.Encoder.
func (e *Encoder) ReceivePacket() ([]byte, error) {
	err := e.cc.ReceivePacket(e.pkt)
	if err != nil {
		return nil, translate(err)
	}
	defer e.pkt.Unref()

	return append([]byte(nil), e.pkt.Data()...), nil
}
