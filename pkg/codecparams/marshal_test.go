package codecparams

import (
	"testing"

	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"
	"github.com/stretchr/testify/require"

	"github.com/vicon-security/esplayer/pkg/codecs"
)

func TestMarshal(t *testing.T) {
	for _, ca := range []struct {
		name  string
		codec codecs.Codec
		enc   string
		mime  string
	}{
		{
			"h264",
			&codecs.H264{
				SPS: []byte{
					0x67, 0x42, 0xc0, 0x28, 0xd9, 0x00, 0x78, 0x02,
					0x27, 0xe5, 0x84, 0x00, 0x00, 0x03, 0x00, 0x04,
					0x00, 0x00, 0x03, 0x00, 0xf0, 0x3c, 0x60, 0xc9, 0x20,
				},
				PPS: []byte{0x08},
			},
			"avc1.42c028",
			`video/mp4; codecs="avc1.42c028"`,
		},
		{
			"h264 without parameters",
			&codecs.H264{},
			"",
			"",
		},
		{
			"mpeg-4 audio",
			&codecs.MPEG4Audio{
				Config: mpeg4audio.Config{
					Type:         mpeg4audio.ObjectTypeAACLC,
					SampleRate:   44100,
					ChannelCount: 1,
				},
			},
			"mp4a.40.2",
			`audio/mp4; codecs="mp4a.40.2"`,
		},
		{
			"mpeg-1 audio",
			&codecs.MPEG1Audio{SampleRate: 44100, ChannelCount: 2},
			"mp4a.6b",
			`audio/mp4; codecs="mp4a.6b"`,
		},
		{
			"ac-3",
			&codecs.AC3{SampleRate: 48000, ChannelCount: 2},
			"ac-3",
			`audio/mp4; codecs="ac-3"`,
		},
		{
			"opus",
			&codecs.Opus{ChannelCount: 2},
			"opus",
			`audio/mp4; codecs="opus"`,
		},
		{
			"lpcm",
			&codecs.LPCM{BitDepth: 16, SampleRate: 8000, ChannelCount: 1},
			"",
			"",
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			require.Equal(t, ca.enc, Marshal(ca.codec))
			require.Equal(t, ca.mime, MIMEType(ca.codec))
		})
	}
}
