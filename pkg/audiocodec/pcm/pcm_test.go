package pcm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vicon-security/esplayer/pkg/audio"
	"github.com/vicon-security/esplayer/pkg/audiocodec"
	"github.com/vicon-security/esplayer/pkg/codecs"
)

func TestDecoderG711(t *testing.T) {
	for _, ca := range []struct {
		name  string
		codec *codecs.G711
	}{
		{"mulaw", &codecs.G711{MULaw: true, SampleRate: 8000, ChannelCount: 1}},
		{"alaw", &codecs.G711{MULaw: false, SampleRate: 8000, ChannelCount: 1}},
	} {
		t.Run(ca.name, func(t *testing.T) {
			d, err := NewDecoder(ca.codec)
			require.NoError(t, err)
			defer d.Close()

			_, err = d.ReceiveFrame()
			require.ErrorIs(t, err, audiocodec.ErrAgain)

			err = d.SendPacket(make([]byte, 160), 20000)
			require.NoError(t, err)

			fr, err := d.ReceiveFrame()
			require.NoError(t, err)
			require.Equal(t, audio.SampleFormatS16, fr.Format)
			require.Equal(t, 160, fr.NumSamples)
			require.Equal(t, 8000, fr.SampleRate)
			require.Equal(t, int64(20000), fr.PTS)

			err = d.SendPacket(nil, 0)
			require.NoError(t, err)

			_, err = d.ReceiveFrame()
			require.ErrorIs(t, err, audiocodec.ErrEOF)
		})
	}
}

func TestDecoderLPCM(t *testing.T) {
	d, err := NewDecoder(&codecs.LPCM{BitDepth: 16, SampleRate: 16000, ChannelCount: 2})
	require.NoError(t, err)

	err = d.SendPacket([]byte{0x40, 0x00, 0xC0, 0x00}, 0)
	require.NoError(t, err)

	fr, err := d.ReceiveFrame()
	require.NoError(t, err)
	require.Equal(t, 1, fr.NumSamples)
	require.InDelta(t, 0.5, fr.Sample(0, 0), 0.0001)
	require.InDelta(t, -0.5, fr.Sample(1, 0), 0.0001)

	err = d.SendPacket([]byte{0x40, 0x00, 0xC0}, 0)
	require.Error(t, err)

	_, err = NewDecoder(&codecs.LPCM{BitDepth: 12, SampleRate: 16000, ChannelCount: 2})
	require.Error(t, err)

	_, err = NewDecoder(&codecs.Opus{ChannelCount: 2})
	require.Error(t, err)
}

func TestDecoderLPCM8(t *testing.T) {
	d, err := NewDecoder(&codecs.LPCM{BitDepth: 8, SampleRate: 8000, ChannelCount: 1})
	require.NoError(t, err)
	defer d.Close()

	err = d.SendPacket([]byte{0x80, 0x80, 0xC0, 0x40}, 0)
	require.NoError(t, err)

	fr, err := d.ReceiveFrame()
	require.NoError(t, err)
	require.Equal(t, audio.SampleFormatU8, fr.Format)
	require.Equal(t, 4, fr.NumSamples)

	for i, v := range []float64{0, 0, 0.5, -0.5} {
		require.InDelta(t, v, fr.Sample(0, i), 0.0001)
	}
}

func TestEncoder(t *testing.T) {
	e, err := NewEncoder(audiocodec.EncoderConfig{SampleRate: 8000, ChannelCount: 1}, 4)
	require.NoError(t, err)
	defer e.Close()

	require.Equal(t, 4, e.FrameSize())
	require.Equal(t, &codecs.LPCM{BitDepth: 16, SampleRate: 8000, ChannelCount: 1}, e.Codec())

	err = e.SendFrame(audio.NewFrame(audio.SampleFormatS16, 8000, 1, 3))
	require.Error(t, err)

	fr := audio.NewFrame(audio.SampleFormatS16, 8000, 1, 4)
	fr.SetSample(0, 0, 0.5)
	err = e.SendFrame(fr)
	require.NoError(t, err)

	pkt, err := e.ReceivePacket()
	require.NoError(t, err)
	require.Equal(t, []byte{0x40, 0, 0, 0, 0, 0, 0, 0}, pkt)

	_, err = e.ReceivePacket()
	require.ErrorIs(t, err, audiocodec.ErrAgain)

	err = e.SendFrame(nil)
	require.NoError(t, err)

	_, err = e.ReceivePacket()
	require.ErrorIs(t, err, audiocodec.ErrEOF)
}
