package esplayer

import (
	"testing"

	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"
	"github.com/stretchr/testify/require"

	"github.com/vicon-security/esplayer/pkg/audio"
	"github.com/vicon-security/esplayer/pkg/codecs"
)

var testSPS = []byte{
	0x67, 0x42, 0xc0, 0x28, 0xd9, 0x00, 0x78, 0x02,
	0x27, 0xe5, 0x84, 0x00, 0x00, 0x03, 0x00, 0x04,
	0x00, 0x00, 0x03, 0x00, 0xf0, 0x3c, 0x60, 0xc9, 0x20,
}

func TestVideoTrackConfig(t *testing.T) {
	t.Run("with parameters", func(t *testing.T) {
		conf := videoTrackConfig(&codecs.H264{SPS: testSPS, PPS: []byte{0x08}})
		require.Equal(t, 66, conf.Profile)
		require.Equal(t, 1920, conf.Width)
		require.Equal(t, 1080, conf.Height)
		require.Equal(t, VideoFrameFormat, conf.FrameFormat)
		require.Equal(t, `video/mp4; codecs="avc1.42c028"`, conf.MIMEType)
		require.Equal(t, []byte{0, 0, 0, 1, 0x67}, conf.ExtraData[:5])
	})

	t.Run("without parameters", func(t *testing.T) {
		conf := videoTrackConfig(&codecs.H264{})
		require.Equal(t, 0, conf.Profile)
		require.Equal(t, "", conf.MIMEType)
		require.Nil(t, conf.ExtraData)
	})
}

func TestAudioTrackConfig(t *testing.T) {
	for _, ca := range []struct {
		name  string
		codec codecs.Codec
		in    audio.SampleFormat
		conf  AudioTrackConfig
	}{
		{
			"aac",
			&codecs.MPEG4Audio{Config: mpeg4audio.Config{
				Type:         mpeg4audio.ObjectTypeAACLC,
				SampleRate:   16000,
				ChannelCount: 1,
			}},
			audio.SampleFormatF32P,
			AudioTrackConfig{
				MIMEType:       `audio/mp4; codecs="mp4a.40.2"`,
				Profile:        2,
				SampleFormat:   audio.SampleFormatF32P,
				ChannelCount:   1,
				BitsPerChannel: 32,
				SampleRate:     16000,
			},
		},
		{
			"lpcm",
			&codecs.LPCM{BitDepth: 16, SampleRate: 8000, ChannelCount: 1},
			audio.SampleFormatS16,
			AudioTrackConfig{
				SampleFormat:   audio.SampleFormatS16,
				ChannelCount:   1,
				BitsPerChannel: 16,
				SampleRate:     8000,
			},
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			ca.conf.Codec = ca.codec
			require.Equal(t, &ca.conf, audioTrackConfig(ca.codec, ca.in))
		})
	}
}
