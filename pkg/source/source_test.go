package source

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"
	"github.com/stretchr/testify/require"

	"github.com/vicon-security/esplayer/pkg/codecs"
	"github.com/vicon-security/esplayer/pkg/mpegts"
)

var testSPS = []byte{
	0x67, 0x42, 0xc0, 0x28, 0xd9, 0x00, 0x78, 0x02,
	0x27, 0xe5, 0x84, 0x00, 0x00, 0x03, 0x00, 0x04,
	0x00, 0x00, 0x03, 0x00, 0xf0, 0x3c, 0x60, 0xc9, 0x20,
}

var testPPS = []byte{0x68, 0xee, 0x3c, 0x80}

func writeTestSegment(t *testing.T, start int64) []byte {
	var buf bytes.Buffer

	w := mpegts.NewWriter(&buf, true, &mpeg4audio.Config{
		Type:         mpeg4audio.ObjectTypeAACLC,
		SampleRate:   48000,
		ChannelCount: 1,
	})

	err := w.WriteH264(start, start, start, true, [][]byte{testSPS, testPPS, {0x65, 0x88, 0x84, 0x00}})
	require.NoError(t, err)

	err = w.WriteAAC(start, start, []byte{1, 2, 3, 4})
	require.NoError(t, err)

	err = w.WriteH264(start+40000, start+40000, start+40000, false, [][]byte{{0x41, 0x9a, 0x24}})
	require.NoError(t, err)

	err = w.WriteAAC(start+40000, start+21333, []byte{5, 6, 7, 8})
	require.NoError(t, err)

	return buf.Bytes()
}

func readAll(t *testing.T, s Source) []*Frame {
	var frames []*Frame
	for {
		f, err := s.ReadFrame(context.Background())
		if err == io.EOF {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, f)
	}
}

func TestOpenUnsupportedScheme(t *testing.T) {
	_, err := Open(context.Background(), "gopher://localhost/stream", Options{})
	require.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestMPEGTSFile(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "stream.ts")
	err := os.WriteFile(fpath, writeTestSegment(t, 0), 0o644)
	require.NoError(t, err)

	s, err := Open(context.Background(), fpath, Options{})
	require.NoError(t, err)
	defer s.Close()

	require.Len(t, s.Tracks(), 2)

	_, ok := s.TransportStats()
	require.False(t, ok)

	frames := readAll(t, s)

	var video []*Frame
	var audio []*Frame
	for _, f := range frames {
		if f.Track.Codec.IsVideo() {
			video = append(video, f)
		} else {
			audio = append(audio, f)
		}
	}

	require.Len(t, audio, 2)
	require.Equal(t, []byte{1, 2, 3, 4}, audio[0].Payload)
	require.Equal(t, []byte{5, 6, 7, 8}, audio[1].Payload)
	require.Equal(t, int64(0), audio[0].PTS)

	require.NotEmpty(t, video)
	require.True(t, video[0].KeyFrame)
	require.Equal(t, int64(0), video[0].PTS)

	sps, pps := video[0].Track.Codec.(*codecs.H264).SafeParams()
	require.Equal(t, testSPS, sps)
	require.Equal(t, testPPS, pps)
}

func TestHLS(t *testing.T) {
	seg := writeTestSegment(t, 0)

	mux := http.NewServeMux()
	mux.HandleFunc("/index.m3u8", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", `application/vnd.apple.mpegurl`)
		w.Write([]byte("#EXTM3U\n" +
			"#EXT-X-VERSION:3\n" +
			"#EXT-X-STREAM-INF:BANDWIDTH=200000,CODECS=\"avc1.42c028,mp4a.40.2\"\n" +
			"stream.m3u8\n"))
	})
	mux.HandleFunc("/stream.m3u8", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", `application/vnd.apple.mpegurl`)
		w.Write([]byte("#EXTM3U\n" +
			"#EXT-X-VERSION:3\n" +
			"#EXT-X-TARGETDURATION:2\n" +
			"#EXT-X-MEDIA-SEQUENCE:0\n" +
			"#EXTINF:2,\n" +
			"segment1.ts\n" +
			"#EXT-X-ENDLIST\n"))
	})
	mux.HandleFunc("/segment1.ts", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", `video/MP2T`)
		w.Write(seg)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	s, err := Open(context.Background(), srv.URL+"/index.m3u8", Options{})
	require.NoError(t, err)
	defer s.Close()

	require.Len(t, s.Tracks(), 2)

	frames := readAll(t, s)
	require.GreaterOrEqual(t, len(frames), 3)

	total := 0
	for _, f := range frames {
		total += f.Size
	}
	require.Greater(t, total, 0)
}

// newStalledServer returns a server that serves a live playlist
// whose segment never completes.
func newStalledServer(t *testing.T, sendHeaders bool, release chan struct{}) *httptest.Server {
	seg := writeTestSegment(t, 0)

	mux := http.NewServeMux()
	mux.HandleFunc("/stream.m3u8", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", `application/vnd.apple.mpegurl`)
		w.Write([]byte("#EXTM3U\n" +
			"#EXT-X-VERSION:3\n" +
			"#EXT-X-TARGETDURATION:2\n" +
			"#EXT-X-MEDIA-SEQUENCE:0\n" +
			"#EXTINF:2,\n" +
			"segment1.ts\n"))
	})
	mux.HandleFunc("/segment1.ts", func(w http.ResponseWriter, r *http.Request) {
		if sendHeaders {
			w.Header().Set("Content-Type", `video/MP2T`)
			w.WriteHeader(http.StatusOK)
			w.Write(seg[:188])
			w.(http.Flusher).Flush()
		}

		select {
		case <-r.Context().Done():
		case <-release:
		}
	})

	return httptest.NewServer(mux)
}

func TestHLSStalled(t *testing.T) {
	for _, ca := range []struct {
		name        string
		sendHeaders bool
		ctxTimeout  time.Duration
		readTimeout time.Duration
	}{
		{"response, read timeout", false, time.Minute, 300 * time.Millisecond},
		{"body, read timeout", true, time.Minute, 300 * time.Millisecond},
		{"body, context canceled", true, 200 * time.Millisecond, time.Minute},
	} {
		t.Run(ca.name, func(t *testing.T) {
			release := make(chan struct{})
			srv := newStalledServer(t, ca.sendHeaders, release)
			defer srv.Close()
			defer close(release)

			ctx, ctxCancel := context.WithTimeout(context.Background(), ca.ctxTimeout)
			defer ctxCancel()

			done := make(chan error, 1)
			go func() {
				s, err := Open(ctx, srv.URL+"/stream.m3u8", Options{ReadTimeout: ca.readTimeout})
				if err == nil {
					s.Close()
				}
				done <- err
			}()

			select {
			case err := <-done:
				require.Error(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("Open did not return")
			}
		})
	}
}

func TestTimeoutReader(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	r := &timeoutReader{
		rc:      pr,
		timeout: 100 * time.Millisecond,
		abort: func() {
			pr.CloseWithError(io.ErrClosedPipe)
		},
	}

	go pw.Write([]byte{1, 2, 3}) //nolint:errcheck

	buf := make([]byte, 3)
	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	_, err = r.Read(buf)
	require.EqualError(t, err, "read timed out after 100ms")
}
