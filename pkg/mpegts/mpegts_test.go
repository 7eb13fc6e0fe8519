package mpegts

import (
	"bytes"
	"testing"

	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"
	mcmpegts "github.com/bluenviron/mediacommon/pkg/formats/mpegts"
	"github.com/stretchr/testify/require"
)

func TestTimeDecoder(t *testing.T) {
	d := NewTimeDecoder(90000)

	require.Equal(t, int64(0), d.Decode(90000))
	require.Equal(t, int64(1000000), d.Decode(180000))
	require.Equal(t, int64(500000), d.Decode(135000))

	// wraparound
	d = NewTimeDecoder(maximum - 90000 + 1)
	require.Equal(t, int64(2000000), d.Decode(90000))
}

func TestWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf, true, &mpeg4audio.Config{
		Type:         mpeg4audio.ObjectTypeAACLC,
		SampleRate:   8000,
		ChannelCount: 1,
	})

	sps := []byte{
		0x67, 0x42, 0xc0, 0x28, 0xd9, 0x00, 0x78, 0x02,
		0x27, 0xe5, 0x84, 0x00, 0x00, 0x03, 0x00, 0x04,
		0x00, 0x00, 0x03, 0x00, 0xf0, 0x3c, 0x60, 0xc9, 0x20,
	}

	err := w.WriteH264(0, 0, 0, true, [][]byte{sps, {0x68, 0xee, 0x3c, 0x80}, {0x65, 0x88, 0x84, 0x00}})
	require.NoError(t, err)

	err = w.WriteAAC(0, 0, []byte{1, 2, 3, 4})
	require.NoError(t, err)

	err = w.WriteH264(40000, 40000, 40000, false, [][]byte{{0x41, 0x9a, 0x24}})
	require.NoError(t, err)

	r, err := mcmpegts.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, r.Tracks(), 2)

	var videoAUs int
	var audioAUs [][]byte

	for _, track := range r.Tracks() {
		switch track.Codec.(type) {
		case *mcmpegts.CodecH264:
			r.OnDataH26x(track, func(_ int64, _ int64, _ [][]byte) error {
				videoAUs++
				return nil
			})

		case *mcmpegts.CodecMPEG4Audio:
			r.OnDataMPEG4Audio(track, func(_ int64, aus [][]byte) error {
				audioAUs = append(audioAUs, aus...)
				return nil
			})
		}
	}

	for {
		err = r.Read()
		if err != nil {
			break
		}
	}

	require.Equal(t, [][]byte{{1, 2, 3, 4}}, audioAUs)
	require.GreaterOrEqual(t, videoAUs, 1)
}
