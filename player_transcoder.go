package esplayer

import (
	"errors"
	"fmt"

	"github.com/vicon-security/esplayer/pkg/audio"
	"github.com/vicon-security/esplayer/pkg/audiocodec"
	"github.com/vicon-security/esplayer/pkg/codecs"
	"github.com/vicon-security/esplayer/pkg/espacket"
	"github.com/vicon-security/esplayer/pkg/source"
)

type transcoderState int

const (
	transcoderStateUninitialized transcoderState = iota
	transcoderStateReady
	transcoderStateDecoding
	transcoderStateConverting
	transcoderStateBuffering
	transcoderStateEncoding
	transcoderStateFlushing
	transcoderStateClosed
)

// TranscodeStats are the sample counters of the audio transcoder.
// Encoded + EncodeFailed + Remaining + DroppedOnFlush always equals Converted.
type TranscodeStats struct {
	// samples written into the FIFO.
	Converted int64

	// samples read from the FIFO and accepted by the encoder.
	Encoded int64

	// samples read from the FIFO and rejected by the encoder.
	EncodeFailed int64

	// samples in the FIFO.
	Remaining int64

	// samples discarded when the transcoder was closed.
	DroppedOnFlush int64

	// compressed frames that were not decoded since the FIFO already held a full encoder frame.
	SkippedFrames int64
}

type playerTranscoder struct {
	factory audiocodec.Factory
	codec   codecs.Codec
	bitRate int
	mute    *playerMute
	meter   *playerLevelMeter

	state   transcoderState
	dec     audiocodec.Decoder
	enc     audiocodec.Encoder
	conv    *audio.Converter
	fifo    *audio.FIFO
	stats   TranscodeStats
	frameSz int
}

func (t *playerTranscoder) initialize() error {
	sampleRate, _, ok := codecs.AudioParams(t.codec)
	if !ok {
		return fmt.Errorf("unable to get audio parameters of codec %T", t.codec)
	}

	var err error
	t.dec, err = t.factory.NewDecoder(t.codec)
	if err != nil {
		return fmt.Errorf("unable to create decoder: %w", err)
	}

	// sinks are fed with mono audio at the source sample rate.
	t.enc, err = t.factory.NewEncoder(audiocodec.EncoderConfig{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		BitRate:      t.bitRate,
	})
	if err != nil {
		t.dec.Close()
		return fmt.Errorf("unable to create encoder: %w", err)
	}

	in := t.enc.InputFormat()
	t.conv = &audio.Converter{
		Format:     in.Format,
		SampleRate: in.SampleRate,
		Channels:   in.Channels,
	}
	t.fifo = audio.NewFIFO(in.Format, in.SampleRate, in.Channels)
	t.frameSz = t.enc.FrameSize()
	t.state = transcoderStateReady

	return nil
}

func (t *playerTranscoder) trackConfig() *AudioTrackConfig {
	return audioTrackConfig(t.enc.Codec(), t.enc.InputFormat().Format)
}

// transcode processes a compressed frame.
// It returns nil when the encoder has not produced anything yet.
func (t *playerTranscoder) transcode(f *source.Frame) (*espacket.Packet, error) {
	if t.fifo.Size() < t.frameSz {
		err := t.decode(f)
		if err != nil {
			return nil, err
		}
	} else {
		t.stats.SkippedFrames++
	}

	if t.fifo.Size() < t.frameSz {
		return nil, nil
	}

	return t.encode(f)
}

func (t *playerTranscoder) decode(f *source.Frame) error {
	t.state = transcoderStateDecoding

	err := t.dec.SendPacket(f.Payload, f.PTS)
	if err != nil && !errors.Is(err, audiocodec.ErrAgain) {
		return fmt.Errorf("decode failed: %w", err)
	}

	for {
		fr, err := t.dec.ReceiveFrame()
		if err != nil {
			if errors.Is(err, audiocodec.ErrAgain) || errors.Is(err, audiocodec.ErrEOF) {
				return nil
			}
			return fmt.Errorf("decode failed: %w", err)
		}

		t.meter.update(fr)

		t.state = transcoderStateConverting

		var out *audio.Frame
		err = t.mute.do(func(muted bool) error {
			var err2 error
			out, err2 = t.conv.Convert(fr, muted)
			return err2
		})
		if err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}

		t.state = transcoderStateBuffering

		err = t.fifo.Write(out)
		if err != nil {
			return fmt.Errorf("FIFO write failed: %w", err)
		}
		t.stats.Converted += int64(out.NumSamples)
	}
}

func (t *playerTranscoder) encode(f *source.Frame) (*espacket.Packet, error) {
	t.state = transcoderStateEncoding

	fr, err := t.fifo.Read(t.frameSz)
	if err != nil {
		return nil, err
	}

	err = t.enc.SendFrame(fr)
	if err != nil {
		t.stats.EncodeFailed += int64(t.frameSz)
		return nil, fmt.Errorf("encode failed: %w", err)
	}
	t.stats.Encoded += int64(t.frameSz)

	payload, err := t.enc.ReceivePacket()
	if err != nil {
		if errors.Is(err, audiocodec.ErrAgain) {
			return nil, nil
		}
		return nil, fmt.Errorf("encode failed: %w", err)
	}

	// output timestamps are taken from the compressed frame that triggered the encoding.
	pkt := espacket.New(payload)
	pkt.SetTiming(f.PTS, f.DTS, espacket.Rescale(int64(t.frameSz), 1, int64(t.conv.SampleRate)))
	pkt.SetKeyFrame(true)
	return pkt, nil
}

// close drains the decoder and the encoder, discarding their output,
// and releases them.
func (t *playerTranscoder) close() {
	if t.state == transcoderStateUninitialized || t.state == transcoderStateClosed {
		return
	}

	t.state = transcoderStateFlushing

	if t.dec.SendPacket(nil, 0) == nil {
		for {
			_, err := t.dec.ReceiveFrame()
			if err != nil {
				break
			}
		}
	}

	if t.enc.SendFrame(nil) == nil {
		for {
			_, err := t.enc.ReceivePacket()
			if err != nil {
				break
			}
		}
	}

	t.stats.DroppedOnFlush += int64(t.fifo.Reset())

	t.dec.Close()
	t.enc.Close()
	t.state = transcoderStateClosed
}

func (t *playerTranscoder) transcodeStats() TranscodeStats {
	s := t.stats
	if t.fifo != nil {
		s.Remaining = int64(t.fifo.Size())
	}
	return s
}
